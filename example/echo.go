// Command echo is a minimal peer for trying the client: it answers every text frame with
// the marker-wrapped text, the way the client itself answers captured text.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/Zereker/pastewire"
	"github.com/Zereker/pastewire/internal/transform"
)

func main() {
	server, err := pastewire.NewServer("127.0.0.1:9998")
	if err != nil {
		slog.Error("failed to create server", "error", err)
		return
	}

	// Handle graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	handler := pastewire.ReplyHandler(transform.Marker(transform.DefaultMarker), pastewire.TypeTextForPaste)

	slog.Info("echo peer start", "addr", server.Addr().String())
	if err := server.Serve(ctx, handler); err != nil && err != context.Canceled {
		slog.Error("server error", "error", err)
	}
}
