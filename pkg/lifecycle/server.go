package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
)

const (
	ShutdownTimeout   = 10 * time.Second
	readHeaderTimeout = 10 * time.Second
)

// Service defines the interface that all long-running services implement.
type Service interface {
	Start(context.Context) error
	Stop(context.Context) error
}

// ServerOptions holds configuration for running a server.
type ServerOptions struct {
	ListenAddr  string
	ServiceName string
	Handler     http.Handler
	Service     Service
	Logger      *zap.Logger
}

// RunServer starts an HTTP server plus an optional background service
// and blocks until a signal, an error, or context cancellation.
func RunServer(ctx context.Context, opts *ServerOptions) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	logger.Info("starting service",
		zap.String("service", opts.ServiceName),
		zap.String("listen_addr", opts.ListenAddr))

	httpServer := &http.Server{
		Addr:              opts.ListenAddr,
		Handler:           opts.Handler,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	errChan := make(chan error, 1)

	if opts.Service != nil {
		go func() {
			if err := opts.Service.Start(ctx); err != nil {
				select {
				case errChan <- err:
				default:
					logger.Error("service error", zap.Error(err))
				}
			}
		}()
	}

	go func() {
		logger.Info("http server listening", zap.String("addr", opts.ListenAddr))

		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			select {
			case errChan <- err:
			default:
				logger.Error("http server error", zap.Error(err))
			}
		}
	}()

	return handleShutdown(ctx, cancel, httpServer, opts.Service, errChan, logger)
}

func handleShutdown(
	ctx context.Context,
	cancel context.CancelFunc,
	httpServer *http.Server,
	svc Service,
	errChan chan error,
	logger *zap.Logger) error {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		logger.Info("received signal, initiating shutdown", zap.String("signal", sig.String()))
	case err := <-errChan:
		logger.Error("received error, initiating shutdown", zap.Error(err))
		return fmt.Errorf("service error: %w", err)
	case <-ctx.Done():
		logger.Info("context canceled, initiating shutdown")
		return ctx.Err()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer shutdownCancel()

	cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", zap.Error(err))
	}

	if svc != nil {
		if err := svc.Stop(shutdownCtx); err != nil {
			logger.Error("error during service shutdown", zap.Error(err))
			return fmt.Errorf("shutdown error: %w", err)
		}
	}

	return nil
}
