package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/OOF2510/geofinder-harness/internal/log"
	"github.com/OOF2510/geofinder-harness/internal/mockserver"
)

func main() {
	addr := flag.String("addr", ":8080", "HTTP listen address")
	bypass := flag.String("bypass-app-check", "", "required provisioning credential (empty accepts any)")
	rounds := flag.Int("rounds", 5, "rounds per game")
	roundDuration := flag.Duration("round-duration", 30*time.Second, "maximum round length")
	roundGap := flag.Duration("round-gap", 3*time.Second, "pause between rounds")
	logLevel := flag.String("log-level", "info", "log level: debug, info, warn, error")
	flag.Parse()

	logger := log.New(*logLevel)

	mock := mockserver.New(mockserver.Options{
		BypassAppCheck: *bypass,
		Rounds:         *rounds,
		RoundDuration:  *roundDuration,
		RoundGap:       *roundGap,
		Logger:         logger,
	})

	server := &http.Server{
		Addr:              *addr,
		Handler:           mock.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	logger.Info().Str("addr", *addr).Msg("starting geofinder mock server")
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal().Err(err).Msg("server exited with error")
	}
	logger.Info().Msg("server stopped")
}
