// Package http owns the server lifecycle. Routing lives in router;
// handlers live under controllers.
package http

import (
	"context"
	"errors"
	stdhttp "net/http"
	"time"

	"github.com/tastebase/auth/internal/observability/logger"
)

const shutdownGrace = 15 * time.Second

// Serve runs the server until ctx is canceled, then drains in-flight
// requests for up to shutdownGrace before giving up.
func Serve(ctx context.Context, addr string, handler stdhttp.Handler) error {
	srv := &stdhttp.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	log := logger.From(ctx)
	log.Info("http server listening", logger.String("addr", addr))

	select {
	case err := <-errCh:
		if errors.Is(err, stdhttp.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		log.Info("shutting down", logger.Duration(shutdownGrace))
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return nil
	}
}
