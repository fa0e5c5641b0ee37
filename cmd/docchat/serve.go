package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"
)

const shutdownTimeout = 5 * time.Second

// Run executes the serve command. It returns when the context is canceled.
func (c *ServeCmd) Run(deps *Dependencies) error {
	ctx := deps.Ctx

	if addr := deps.Config.Metrics.Addr; addr != "" && deps.MetricsHandler != nil {
		ln, err := net.Listen("tcp", addr)
		if err != nil {
			return printError(deps, err)
		}
		mux := http.NewServeMux()
		mux.Handle("/metrics", deps.MetricsHandler)
		srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
				deps.Logger.Error("metrics server stopped", "err", err)
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
		deps.Logger.Info("serving metrics", "addr", ln.Addr().String())
	}

	deps.Logger.Info("worker started")
	if err := deps.Jobs.Run(ctx); err != nil {
		return printError(deps, err)
	}
	deps.Logger.Info("worker stopped")
	return nil
}
