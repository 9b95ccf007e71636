package pastewire

import (
	"context"
	"net"
	"net/url"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/net/proxy"
)

// ProxyDialer returns a dialer that reaches the peer through the proxy at rawURL,
// for example "socks5://127.0.0.1:1080". The proxy itself is dialed with timeout.
func ProxyDialer(rawURL string, timeout time.Duration) (ContextDialer, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, errors.Wrapf(err, "pastewire: parse proxy url %q", rawURL)
	}

	d, err := proxy.FromURL(u, &net.Dialer{Timeout: timeout})
	if err != nil {
		return nil, errors.Wrapf(err, "pastewire: proxy %q", u.Redacted())
	}

	if cd, ok := d.(ContextDialer); ok {
		return cd, nil
	}
	return contextDialer{d}, nil
}

// contextDialer adapts a proxy.Dialer without context support.
type contextDialer struct {
	d proxy.Dialer
}

func (c contextDialer) DialContext(ctx context.Context, network, address string) (net.Conn, error) {
	type result struct {
		conn net.Conn
		err  error
	}

	ch := make(chan result, 1)
	go func() {
		conn, err := c.d.Dial(network, address)
		ch <- result{conn, err}
	}()

	select {
	case r := <-ch:
		return r.conn, r.err
	case <-ctx.Done():
		go func() {
			if r := <-ch; r.conn != nil {
				r.conn.Close()
			}
		}()
		return nil, ctx.Err()
	}
}
