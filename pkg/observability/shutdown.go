package observability

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"
)

// ShutdownManager drains the HTTP server and runs registered cleanup
// functions when the process receives SIGINT or SIGTERM.
type ShutdownManager struct {
	logger          *Logger
	server          *http.Server
	shutdownFuncs   []ShutdownFunc
	shutdownTimeout time.Duration
	mu              sync.Mutex
}

// ShutdownFunc releases a resource during shutdown.
type ShutdownFunc func(context.Context) error

// NewShutdownManager builds a manager around server. A zero timeout
// defaults to 30 seconds.
func NewShutdownManager(logger *Logger, server *http.Server, timeout time.Duration) *ShutdownManager {
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &ShutdownManager{
		logger:          logger,
		server:          server,
		shutdownFuncs:   make([]ShutdownFunc, 0),
		shutdownTimeout: timeout,
	}
}

// RegisterShutdownFunc adds fn to the cleanup list. Functions run
// concurrently once the HTTP server has drained.
func (sm *ShutdownManager) RegisterShutdownFunc(fn ShutdownFunc) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	sm.shutdownFuncs = append(sm.shutdownFuncs, fn)
}

// WaitForShutdown blocks until a termination signal arrives, then drains
// the server and runs the cleanup functions under the configured timeout.
func (sm *ShutdownManager) WaitForShutdown() error {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigChan
	sm.logger.Infof("Caught %s, draining", sig)

	ctx, cancel := context.WithTimeout(context.Background(), sm.shutdownTimeout)
	defer cancel()

	if sm.server != nil {
		sm.logger.Info("Draining HTTP server")
		if err := sm.server.Shutdown(ctx); err != nil {
			sm.logger.WithError(err).Error("HTTP server drain failed")
			return fmt.Errorf("HTTP server shutdown failed: %w", err)
		}
	}

	sm.mu.Lock()
	funcs := sm.shutdownFuncs
	sm.mu.Unlock()

	var wg sync.WaitGroup
	errChan := make(chan error, len(funcs))

	for i, fn := range funcs {
		wg.Add(1)
		go func(index int, shutdownFn ShutdownFunc) {
			defer wg.Done()
			if err := shutdownFn(ctx); err != nil {
				sm.logger.WithError(err).Errorf("Cleanup function %d failed", index)
				errChan <- err
			}
		}(i, fn)
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		sm.logger.Warn("Shutdown timeout reached, forcing exit")
		return fmt.Errorf("shutdown timeout reached")
	}

	close(errChan)
	var errs []error
	for err := range errChan {
		errs = append(errs, err)
	}

	if len(errs) > 0 {
		return fmt.Errorf("shutdown completed with %d errors", len(errs))
	}

	sm.logger.Info("Shutdown complete")
	return nil
}
