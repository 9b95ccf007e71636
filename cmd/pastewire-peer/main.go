// Command pastewire-peer accepts pastewire clients. It keeps the latest text sent for
// pasting and broadcasts every line typed on its stdin to all clients as captured text.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/Zereker/pastewire"
	"github.com/Zereker/pastewire/internal/config"
	"github.com/Zereker/pastewire/internal/console"
	"github.com/Zereker/pastewire/internal/hub"
	"github.com/Zereker/pastewire/internal/logging"
)

func main() {
	configPath := flag.String("config", "", "path to a TOML config file")
	listen := flag.String("listen", "", "listen address, overrides the config")
	flag.Parse()

	if err := run(*configPath, *listen); err != nil {
		fmt.Fprintf(os.Stderr, "pastewire-peer: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath, listen string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if listen != "" {
		cfg.Listen = listen
	}

	zl := logging.New(logging.Options{App: "pastewire-peer", Level: cfg.LogLevel, NoColor: cfg.LogNoColor})
	logger := logging.Adapt(zl)
	clients := hub.New(logger)

	server, err := pastewire.NewServer(cfg.Listen,
		pastewire.ServerLoggerOption(logger),
		pastewire.ServerSessionOptions(
			pastewire.LoggerOption(logger),
			pastewire.ReadTimeoutOption(cfg.ReadTimeout),
			pastewire.WriteTimeoutOption(cfg.WriteTimeout),
			pastewire.MaxFrameSizeOption(cfg.PeerMaxFrameSize()),
		),
		pastewire.ServerOnSessionOpen(clients.Add),
		pastewire.ServerOnSessionClose(func(s *pastewire.Session, _ error) {
			clients.Remove(s)
		}),
	)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	group, gctx := errgroup.WithContext(ctx)

	group.Go(func() error {
		return server.Serve(gctx, clients)
	})

	group.Go(func() error {
		// Leaving the console shuts the peer down.
		defer cancel()
		c := console.New(os.Stdin, console.WithExitCommand(cfg.ExitCommand))
		return c.Run(gctx, func(text string) error {
			n := clients.Broadcast(pastewire.TypeCapturedText, []byte(text))
			zl.Info().Int("clients", n).Int("length", len(text)).Msg("captured text broadcast")
			return nil
		})
	})

	zl.Info().Str("listen", server.Addr().String()).Msgf("peer running; typed lines are broadcast, %q to quit", cfg.ExitCommand)

	err = group.Wait()
	if err == context.Canceled {
		err = nil
	}
	zl.Info().Str("paste", clients.Paste()).Msg("peer stopped")
	return err
}
