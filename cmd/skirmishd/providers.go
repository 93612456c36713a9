package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"google.golang.org/grpc"

	"github.com/cory-johannsen/skirmish/internal/config"
	"github.com/cory-johannsen/skirmish/internal/game/dice"
	"github.com/cory-johannsen/skirmish/internal/game/encounter"
	"github.com/cory-johannsen/skirmish/internal/game/inventory"
	"github.com/cory-johannsen/skirmish/internal/game/session"
	"github.com/cory-johannsen/skirmish/internal/gameserver"
	"github.com/cory-johannsen/skirmish/internal/httpapi"
	"github.com/cory-johannsen/skirmish/internal/messaging"
	"github.com/cory-johannsen/skirmish/internal/observability"
	"github.com/cory-johannsen/skirmish/internal/scripting"
	"github.com/cory-johannsen/skirmish/internal/storage"
	"github.com/cory-johannsen/skirmish/internal/storage/postgres"
	"github.com/cory-johannsen/skirmish/internal/storage/sqlite"
)

const instrumentationName = "github.com/cory-johannsen/skirmish"

func provideLogger(cfg config.Config) (*zap.Logger, func(), error) {
	logger, err := observability.NewLogger(cfg.Logging, cfg.Server.Name)
	if err != nil {
		return nil, nil, fmt.Errorf("initializing logger: %w", err)
	}
	return logger, func() { _ = logger.Sync() }, nil
}

func provideTracerProvider(ctx context.Context, cfg config.Config, logger *zap.Logger) (trace.TracerProvider, func(), error) {
	tp, shutdown, err := observability.NewTracerProvider(ctx, cfg.Tracing, cfg.Server.Name)
	if err != nil {
		return nil, nil, fmt.Errorf("initializing tracing: %w", err)
	}
	cleanup := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(ctx); err != nil {
			logger.Warn("flushing traces", zap.Error(err))
		}
	}
	return tp, cleanup, nil
}

func provideRoller(logger *zap.Logger) *dice.Roller {
	return dice.NewLoggedRoller(dice.NewCryptoSource(), logger)
}

func provideRegistry(cfg config.Config, logger *zap.Logger) (*inventory.Registry, error) {
	start := time.Now()
	reg, err := inventory.LoadRegistry(inventory.ContentDirs{
		Weapons: cfg.Content.WeaponsDir,
		Armor:   cfg.Content.ArmorDir,
		Covers:  cfg.Content.CoverDir,
		Items:   cfg.Content.ItemsDir,
	})
	if err != nil {
		return nil, fmt.Errorf("loading content: %w", err)
	}
	weapons, armor, covers, items := reg.Counts()
	logger.Info("content loaded",
		zap.Int("weapons", weapons),
		zap.Int("armor", armor),
		zap.Int("covers", covers),
		zap.Int("items", items),
		zap.Duration("elapsed", time.Since(start)),
	)
	return reg, nil
}

// provideDecisions loads the NPC scripts. Without a script directory the
// manager holds no VMs and every timed-out NPC waits.
func provideDecisions(cfg config.Config, roller *dice.Roller, logger *zap.Logger) (encounter.DecisionMaker, func(), error) {
	mgr := scripting.NewManager(roller, logger)
	dir := cfg.Content.ScriptDir
	if dir == "" {
		return mgr, mgr.Close, nil
	}
	if _, err := os.Stat(dir); errors.Is(err, os.ErrNotExist) {
		logger.Warn("script directory missing; npc scripting disabled", zap.String("dir", dir))
		return mgr, mgr.Close, nil
	}
	n, err := mgr.LoadTree(dir, cfg.Content.ScriptInstructionLimit)
	if err != nil {
		mgr.Close()
		return nil, nil, fmt.Errorf("loading scripts: %w", err)
	}
	logger.Info("npc scripts loaded", zap.String("dir", dir), zap.Int("vms", n))
	return mgr, mgr.Close, nil
}

func provideSessions(cfg config.Config, logger *zap.Logger) *session.Manager {
	return session.NewManager(logger, cfg.Combat.SessionBuffer)
}

// provideNATS returns nil when NATS is disabled.
func provideNATS(cfg config.Config, logger *zap.Logger) (*messaging.Publisher, func(), error) {
	if !cfg.NATS.Enabled {
		return nil, func() {}, nil
	}
	url := cfg.NATS.URL
	var embedded *messaging.Server
	if cfg.NATS.Embedded {
		srv, err := messaging.NewServer(logger,
			messaging.WithHost(cfg.NATS.Host),
			messaging.WithPort(cfg.NATS.Port),
		)
		if err != nil {
			return nil, nil, err
		}
		if err := srv.Start(); err != nil {
			return nil, nil, err
		}
		embedded = srv
		url = srv.ClientURL()
	}
	pub, err := messaging.Connect(url, cfg.NATS.SubjectPrefix, logger)
	if err != nil {
		if embedded != nil {
			embedded.Shutdown()
		}
		return nil, nil, err
	}
	logger.Info("publishing encounter updates",
		zap.String("url", url),
		zap.Bool("embedded", embedded != nil),
	)
	cleanup := func() {
		if err := pub.Close(); err != nil {
			logger.Warn("closing nats publisher", zap.Error(err))
		}
		if embedded != nil {
			embedded.Shutdown()
		}
	}
	return pub, cleanup, nil
}

func provideBroadcaster(sessions *session.Manager, pub *messaging.Publisher) encounter.Broadcaster {
	if pub == nil {
		return sessions
	}
	return encounter.Broadcasters{sessions, pub}
}

// Outcomes is the configured outcome store. Store is nil for "none"; Pool is
// set only for "postgres".
type Outcomes struct {
	Store storage.OutcomeStore
	Pool  *postgres.Pool
}

func provideOutcomes(ctx context.Context, cfg config.Config, logger *zap.Logger) (*Outcomes, func(), error) {
	switch cfg.Outcomes.Store {
	case config.StorePostgres:
		pool, err := postgres.NewPool(ctx, cfg.Database)
		if err != nil {
			return nil, nil, fmt.Errorf("connecting to database: %w", err)
		}
		logger.Info("outcomes stored in postgres", zap.String("host", cfg.Database.Host))
		return &Outcomes{Store: pool.Outcomes(), Pool: pool}, pool.Close, nil
	case config.StoreSQLite:
		store, err := sqlite.Open(ctx, cfg.SQLite.Path)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("outcomes stored in sqlite", zap.String("path", cfg.SQLite.Path))
		cleanup := func() {
			if err := store.Close(); err != nil {
				logger.Warn("closing sqlite store", zap.Error(err))
			}
		}
		return &Outcomes{Store: store}, cleanup, nil
	default:
		logger.Warn("outcome persistence disabled")
		return &Outcomes{}, func() {}, nil
	}
}

func provideEncounters(
	cfg config.Config,
	roller *dice.Roller,
	registry *inventory.Registry,
	decisions encounter.DecisionMaker,
	broadcaster encounter.Broadcaster,
	outcomes *Outcomes,
	tp trace.TracerProvider,
	logger *zap.Logger,
) *encounter.Manager {
	deps := encounter.Deps{
		Source:      roller,
		Registry:    registry,
		Decisions:   decisions,
		Broadcaster: broadcaster,
		Tracer:      tp.Tracer(instrumentationName + "/encounter"),
		Logger:      logger,
		Clock:       time.Now,
		Config:      cfg.Combat.Encounter(),
	}
	if outcomes.Store != nil {
		deps.Sink = outcomes.Store
	}
	return encounter.NewManager(deps, encounter.WithArchiveSize(cfg.Outcomes.ArchiveSize))
}

func provideGRPCServer(
	encounters *encounter.Manager,
	sessions *session.Manager,
	registry *inventory.Registry,
	tp trace.TracerProvider,
	logger *zap.Logger,
) *grpc.Server {
	srv := grpc.NewServer(
		grpc.StatsHandler(otelgrpc.NewServerHandler(otelgrpc.WithTracerProvider(tp))),
	)
	gameserver.RegisterEncounterServiceServer(srv,
		gameserver.NewEncounterService(encounters, sessions, registry, logger))
	return srv
}

func provideHTTPServer(
	cfg config.Config,
	encounters *encounter.Manager,
	registry *inventory.Registry,
	outcomes *Outcomes,
	tp trace.TracerProvider,
	logger *zap.Logger,
) *http.Server {
	apiCfg := httpapi.Config{
		Encounters: encounters,
		Registry:   registry,
		Logger:     logger,
	}
	if outcomes.Store != nil {
		apiCfg.Outcomes = outcomes.Store
	}
	handler := otelhttp.NewHandler(httpapi.New(apiCfg), "httpapi",
		otelhttp.WithTracerProvider(tp))
	return &http.Server{
		Addr:              cfg.HTTP.Addr(),
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}
}
