package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"

	"github.com/cory-johannsen/skirmish/internal/config"
	"github.com/cory-johannsen/skirmish/internal/game/encounter"
	"github.com/cory-johannsen/skirmish/internal/server"
)

const dbHealthInterval = 30 * time.Second

// App is the assembled server.
type App struct {
	cfg        config.Config
	logger     *zap.Logger
	encounters *encounter.Manager
	grpc       *grpc.Server
	http       *http.Server
	outcomes   *Outcomes
}

func newApp(
	cfg config.Config,
	logger *zap.Logger,
	encounters *encounter.Manager,
	grpcServer *grpc.Server,
	httpServer *http.Server,
	outcomes *Outcomes,
) *App {
	return &App{
		cfg:        cfg,
		logger:     logger,
		encounters: encounters,
		grpc:       grpcServer,
		http:       httpServer,
		outcomes:   outcomes,
	}
}

// Lifecycle registers the listeners and the encounter manager. The manager is
// added last so it stops first: live encounters are abandoned and persisted
// while the stores are still open, and their watch streams end before the
// gRPC server drains.
func (a *App) Lifecycle() *server.Lifecycle {
	lc := server.NewLifecycle(a.logger, a.cfg.Server.ShutdownTimeout)

	lc.Add("grpc", &server.FuncService{
		StartFn: func() error {
			lis, err := net.Listen("tcp", a.cfg.GRPC.Addr())
			if err != nil {
				return fmt.Errorf("listening on %s: %w", a.cfg.GRPC.Addr(), err)
			}
			a.logger.Info("gRPC server listening", zap.String("addr", lis.Addr().String()))
			return a.grpc.Serve(lis)
		},
		StopFn: func(ctx context.Context) error {
			done := make(chan struct{})
			go func() {
				a.grpc.GracefulStop()
				close(done)
			}()
			select {
			case <-done:
				return nil
			case <-ctx.Done():
				a.grpc.Stop()
				return ctx.Err()
			}
		},
	})

	lc.Add("http", &server.FuncService{
		StartFn: func() error {
			a.logger.Info("HTTP server listening", zap.String("addr", a.http.Addr))
			if err := a.http.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		},
		StopFn: a.http.Shutdown,
	})

	if pool := a.outcomes.Pool; pool != nil {
		stop := make(chan struct{})
		lc.Add("postgres", &server.FuncService{
			StartFn: func() error {
				ticker := time.NewTicker(dbHealthInterval)
				defer ticker.Stop()
				for {
					select {
					case <-stop:
						return nil
					case <-ticker.C:
						if err := pool.Health(context.Background(), 5*time.Second); err != nil {
							a.logger.Warn("database health check failed", zap.Error(err))
						}
					}
				}
			},
			StopFn: func(context.Context) error {
				close(stop)
				return nil
			},
		})
	}

	lc.Add("encounters", &server.FuncService{
		StopFn: a.encounters.Shutdown,
	})
	return lc
}
