// Command pastewire connects to a paste peer, answers captured text from the peer with the
// marker-wrapped text, and sends lines typed on stdin for pasting until "exit".
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/Zereker/pastewire"
	"github.com/Zereker/pastewire/internal/config"
	"github.com/Zereker/pastewire/internal/console"
	"github.com/Zereker/pastewire/internal/logging"
	"github.com/Zereker/pastewire/internal/transform"
)

func main() {
	configPath := flag.String("config", "", "path to a TOML config file")
	addr := flag.String("addr", "", "peer address, overrides the config")
	flag.Parse()

	if err := run(*configPath, *addr); err != nil {
		fmt.Fprintf(os.Stderr, "pastewire: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath, addr string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if addr != "" {
		cfg.Address = addr
	}

	zl := logging.New(logging.Options{App: "pastewire", Level: cfg.LogLevel, NoColor: cfg.LogNoColor})
	logger := logging.Adapt(zl)

	opts := []pastewire.Option{
		pastewire.LoggerOption(logger),
		pastewire.ConnectTimeoutOption(cfg.ConnectTimeout),
		pastewire.ReadTimeoutOption(cfg.ReadTimeout),
		pastewire.WriteTimeoutOption(cfg.WriteTimeout),
		pastewire.MaxFrameSizeOption(cfg.MaxFrameSize),
	}
	if cfg.Proxy != "" {
		d, err := pastewire.ProxyDialer(cfg.Proxy, cfg.ConnectTimeout)
		if err != nil {
			return err
		}
		opts = append(opts, pastewire.DialerOption(d))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sess, err := pastewire.Dial(ctx, cfg.Address, opts...)
	if err != nil {
		return err
	}
	defer sess.Close()

	zl.Info().Str("addr", cfg.Address).Msgf("connected; type text to send it for pasting, %q to quit", cfg.ExitCommand)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	group, gctx := errgroup.WithContext(ctx)

	group.Go(func() error {
		// The console has nothing to send to once the peer is gone.
		defer cancel()
		return sess.Run(gctx, clientHandler(zl, cfg.Marker))
	})

	group.Go(func() error {
		defer sess.Close()
		c := console.New(os.Stdin, console.WithExitCommand(cfg.ExitCommand))
		return c.Run(gctx, func(text string) error {
			if err := sess.SendText(pastewire.TypeTextForPaste, text); err != nil {
				return err
			}
			zl.Info().Int("length", len(text)).Str("text", text).Msg("sent for pasting")
			return nil
		})
	})

	err = group.Wait()
	if ctxErr := ctx.Err(); ctxErr != nil && err == ctxErr {
		err = nil
	}
	zl.Info().Msg("client closed")
	return err
}

// clientHandler logs every received frame and answers captured text with the
// marker-wrapped text for pasting. Other frames, including replies echoed by the
// peer, are only logged.
func clientHandler(zl zerolog.Logger, marker string) pastewire.Handler {
	mux := pastewire.NewTypeMux(nil)
	mux.Handle(pastewire.TypeCapturedText,
		pastewire.ReplyHandler(transform.Marker(marker), pastewire.TypeTextForPaste))
	return logFrames(zl, mux)
}

// logFrames logs each received frame before passing it on.
func logFrames(zl zerolog.Logger, next pastewire.Handler) pastewire.Handler {
	return pastewire.HandlerFunc(func(ctx context.Context, s *pastewire.Session, f pastewire.Frame) error {
		text, err := pastewire.DecodeText(f)
		if err != nil {
			zl.Warn().Err(err).Stringer("type", f.Type).Int("length", f.Length()).Msg("received undecodable text")
			return err
		}
		zl.Info().Stringer("type", f.Type).Int("length", f.Length()).Str("text", text).Msg("received")
		return next.HandleFrame(ctx, s, f)
	})
}
