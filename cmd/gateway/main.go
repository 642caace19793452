// Command gateway launches the cricket live-score fan-out gateway.
package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/sourcegraph/conc"

	"github.com/crickstream/gateway/internal/app/hub"
	"github.com/crickstream/gateway/internal/app/pump"
	"github.com/crickstream/gateway/internal/infra/config"
	"github.com/crickstream/gateway/internal/infra/logging"
	httpserver "github.com/crickstream/gateway/internal/infra/server/http"
	"github.com/crickstream/gateway/internal/infra/store"
	"github.com/crickstream/gateway/internal/infra/telemetry"
)

const (
	gatewayLoggerPrefix = "gateway "

	connectMaxAttempts = 10
	connectRetryDelay  = 5 * time.Second

	serverShutdownTimeout    = 30 * time.Second
	telemetryShutdownTimeout = 5 * time.Second
	readHeaderTimeout        = 5 * time.Second
)

func main() {
	ctx, cancel := newSignalContext()
	defer cancel()

	cfg, err := config.FromEnv()
	if err != nil {
		logging.New(gatewayLoggerPrefix, logging.LevelInfo).Fatalf("load config: %v", err)
	}

	logger := logging.New(gatewayLoggerPrefix, logging.ParseLevel(cfg.LogLevel))
	logger.Infof("starting cricket live score backend")

	telemetryShutdown, err := initTelemetry(ctx, logger, cfg.OTLPEndpoint)
	if err != nil {
		logger.Fatalf("initialize telemetry: %v", err)
	}

	st, err := connectStore(ctx, logger, cfg.RedisURL)
	if err != nil {
		logger.Fatalf("connect to store: %v", err)
	}
	logger.Infof("connected to store")

	matchHub := hub.New(logger.WithPrefix("hub "))

	// The pump is abandoned at shutdown: cancelling the main context ends
	// its subscription and the process exits without joining it.
	notificationPump := pump.New(st, matchHub, logger.WithPrefix("pump "))
	go func() {
		defer func() {
			if r := recover(); r != nil {
				logger.Errorf("notification pump panicked: %v", r)
			}
		}()
		notificationPump.Run(ctx)
	}()

	server := &http.Server{
		Addr:              cfg.ListenAddr(),
		Handler:           httpserver.NewHandler(st, matchHub, logger.WithPrefix("http ")),
		ReadHeaderTimeout: readHeaderTimeout,
	}

	var lifecycle conc.WaitGroup
	serverErr := make(chan error, 1)
	lifecycle.Go(func() {
		logger.Infof("server listening on http://%s", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	})

	select {
	case err := <-serverErr:
		logger.Fatalf("server error: %v", err)
	case <-ctx.Done():
	}
	logger.Infof("shutdown signal received, starting graceful shutdown")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), serverShutdownTimeout)
	defer shutdownCancel()

	shutdownStep := func(name string, timeout time.Duration, fn func(context.Context) error) {
		stepCtx, stepCancel := context.WithTimeout(shutdownCtx, timeout)
		defer stepCancel()
		if err := fn(stepCtx); err != nil {
			logger.Errorf("shutdown: %s failed: %v", name, err)
		} else {
			logger.Infof("shutdown: %s completed", name)
		}
	}

	shutdownStep("stopping http server", serverShutdownTimeout, server.Shutdown)
	cancel()
	lifecycle.Wait()
	shutdownStep("closing store", time.Second, func(context.Context) error { return st.Close() })
	shutdownStep("shutting down telemetry", telemetryShutdownTimeout, telemetryShutdown)

	logger.Infof("server shutdown complete")
}

func newSignalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

func initTelemetry(ctx context.Context, logger *logging.Logger, endpoint string) (func(context.Context) error, error) {
	_, shutdown, err := telemetry.Init(ctx, endpoint)
	if err != nil {
		return nil, err
	}
	if endpoint != "" {
		logger.Infof("telemetry initialized: endpoint=%s", endpoint)
	} else {
		logger.Infof("telemetry disabled")
	}
	return shutdown, nil
}

// connectStore builds the store client and verifies reachability, retrying
// the initial connection before aborting startup.
func connectStore(ctx context.Context, logger *logging.Logger, redisURL string) (*store.Store, error) {
	logger.Infof("connecting to store at %s", redisURL)

	st, err := store.New(redisURL, logger.WithPrefix("store "))
	if err != nil {
		return nil, err
	}

	attempt := 0
	_, err = backoff.Retry(ctx, func() (struct{}, error) {
		attempt++
		if err := st.Ping(ctx); err != nil {
			if attempt < connectMaxAttempts {
				logger.Warnf("store connect failed (attempt %d/%d): %v; retrying in %v",
					attempt, connectMaxAttempts, err, connectRetryDelay)
			}
			return struct{}{}, err
		}
		return struct{}{}, nil
	},
		backoff.WithBackOff(backoff.NewConstantBackOff(connectRetryDelay)),
		backoff.WithMaxTries(connectMaxAttempts),
	)
	if err != nil {
		logger.Errorf("store connect failed after %d attempts: %v", connectMaxAttempts, err)
		return nil, err
	}

	logger.Infof("store connection established on attempt %d", attempt)
	return st, nil
}
