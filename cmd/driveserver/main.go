// Command driveserver serves drive sessions over WebSocket.
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/brensch/gridiron/config"
	"github.com/brensch/gridiron/game"
	"github.com/brensch/gridiron/logging"
	"github.com/brensch/gridiron/server"
)

func main() {
	// .env values become the defaults for the flags below.
	if err := config.LoadDotEnv(); err != nil {
		log.Fatal(err)
	}

	addr := flag.String("listen", config.GetEnvOrDefault("LISTEN_ADDR", ":8080"), "HTTP listen address")
	archiveDir := flag.String("archive-dir", config.GetEnvOrDefault("ARCHIVE_DIR", ""), "If set, archive each session as parquet when it disconnects")
	logLevel := flag.String("log-level", config.GetEnvOrDefault("LOG_LEVEL", "info"), "debug, info, warn or error")
	prettyLogs := flag.Bool("pretty-logs", config.GetEnvBoolOrDefault("PRETTY_LOGS", false), "Indent JSON log records")
	pingInterval := flag.Duration("ping-interval", config.GetEnvDurationOrDefault("PING_INTERVAL", server.DefaultPingInterval), "WebSocket ping interval")
	readTimeout := flag.Duration("read-timeout", config.GetEnvDurationOrDefault("READ_TIMEOUT", server.DefaultReadTimeout), "Drop connections silent for this long")
	settings := config.BindSettingsFlags(flag.CommandLine, game.DefaultSettings)
	flag.Parse()

	level, err := logging.ParseLevel(*logLevel)
	if err != nil {
		log.Fatal(err)
	}
	logger := logging.New(os.Stderr, level, *prettyLogs)
	slog.SetDefault(logger)

	srv := server.New(server.Config{
		Settings:     settings.Normalize(),
		ArchiveDir:   *archiveDir,
		Logger:       logger,
		PingInterval: *pingInterval,
		ReadTimeout:  *readTimeout,
	})
	httpServer := &http.Server{
		Addr:              *addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		<-ctx.Done()
		shutdown(httpServer, srv, 10*time.Second)
	}()

	log.Printf("listening on %s (ws endpoint: /ws)", *addr)
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal(err)
	}
	<-stopped
	log.Printf("server stopped")
}

// shutdown stops accepting connections, closes the live sessions and returns
// once every session has been archived.
func shutdown(httpServer *http.Server, srv *server.Server, timeout time.Duration) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		slog.Warn("http shutdown", "err", err)
	}
	srv.Shutdown()
	srv.Wait()
}
