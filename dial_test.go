package pastewire

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"
)

func TestProxyDialer(t *testing.T) {
	d, err := ProxyDialer("socks5://127.0.0.1:1080", time.Second)
	if err != nil {
		t.Fatalf("ProxyDialer failed: %v", err)
	}
	if d == nil {
		t.Fatal("ProxyDialer returned nil dialer")
	}
}

func TestProxyDialer_Invalid(t *testing.T) {
	tests := []struct {
		name string
		url  string
	}{
		{"malformed", "://nope"},
		{"unsupported scheme", "ftp://127.0.0.1:21"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ProxyDialer(tt.url, time.Second); err == nil {
				t.Errorf("ProxyDialer(%q) expected error", tt.url)
			}
		})
	}
}

func TestDial_ThroughUnreachableProxy(t *testing.T) {
	// Grab a free port and release it so nothing is listening there.
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	addr := l.Addr().String()
	l.Close()

	d, err := ProxyDialer("socks5://"+addr, time.Second)
	if err != nil {
		t.Fatalf("ProxyDialer failed: %v", err)
	}

	_, err = Dial(context.Background(), "127.0.0.1:9998", DialerOption(d), LoggerOption(NopLogger()))
	if !errors.Is(err, ErrConnectFailed) {
		t.Errorf("expected ErrConnectFailed, got %v", err)
	}
}

type plainDialer struct {
	delay time.Duration
}

func (d plainDialer) Dial(network, address string) (net.Conn, error) {
	time.Sleep(d.delay)
	return nil, errors.New("no route")
}

func TestContextDialer(t *testing.T) {
	cd := contextDialer{plainDialer{}}
	if _, err := cd.DialContext(context.Background(), "tcp", "x:1"); err == nil || err.Error() != "no route" {
		t.Errorf("DialContext error = %v, want no route", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	cd = contextDialer{plainDialer{delay: 50 * time.Millisecond}}
	if _, err := cd.DialContext(ctx, "tcp", "x:1"); !errors.Is(err, context.Canceled) {
		t.Errorf("DialContext error = %v, want context.Canceled", err)
	}
}
