package app

import (
	"context"
	"fmt"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/yungbote/geoseo-backend/internal/data/db"
	"github.com/yungbote/geoseo-backend/internal/http"
	httpH "github.com/yungbote/geoseo-backend/internal/http/handlers"
	"github.com/yungbote/geoseo-backend/internal/observability"
	"github.com/yungbote/geoseo-backend/internal/platform/logger"
)

type App struct {
	Log      *logger.Logger
	DB       *gorm.DB
	Router   *gin.Engine
	Cfg      Config
	Clients  Clients
	Repos    Repos
	Services Services

	store        *db.Service
	shutdownOtel func(context.Context) error
}

// New loads configuration from the environment and wires every component.
// It does not touch the schema; callers run Migrate.
func New(ctx context.Context) (*App, error) {
	cfg := LoadConfig()
	log, err := logger.New(cfg.LogMode)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	shutdownOtel := observability.InitOTel(ctx, log, cfg.Otel)

	store, err := db.NewService(log, cfg.DB)
	if err != nil {
		log.Sync()
		return nil, fmt.Errorf("init database: %w", err)
	}

	a := assemble(log, cfg, store.DB(), store, wireClients(log, cfg))
	a.store = store
	a.shutdownOtel = shutdownOtel
	return a, nil
}

func assemble(log *logger.Logger, cfg Config, theDB *gorm.DB, pinger httpH.Pinger, clients Clients) *App {
	reposet := wireRepos(theDB, log)
	serviceset := wireServices(theDB, log, cfg, reposet, clients)
	handlerset := wireHandlers(log, pinger, serviceset)
	return &App{
		Log:      log,
		DB:       theDB,
		Router:   wireRouter(log, handlerset),
		Cfg:      cfg,
		Clients:  clients,
		Repos:    reposet,
		Services: serviceset,
	}
}

// Migrate applies the schema and indexes, then seeds any missing settings.
func (a *App) Migrate(ctx context.Context) error {
	if err := db.AutoMigrateAll(a.DB.WithContext(ctx)); err != nil {
		return fmt.Errorf("automigrate: %w", err)
	}
	if err := db.EnsureIndexes(a.DB.WithContext(ctx)); err != nil {
		return fmt.Errorf("indexes: %w", err)
	}
	if err := a.Services.Settings.Seed(ctx); err != nil {
		return fmt.Errorf("seed settings: %w", err)
	}
	a.Log.Info("database migrated")
	return nil
}

// Run serves HTTP until ctx is cancelled.
func (a *App) Run(ctx context.Context) error {
	if a == nil || a.Router == nil {
		return fmt.Errorf("app not initialized")
	}
	addr := ":" + a.Cfg.Port
	a.Log.Info("listening", "addr", addr)
	srv := &http.Server{Engine: a.Router}
	return srv.Run(ctx, addr, a.Cfg.ShutdownTimeout)
}

func (a *App) Close() {
	if a == nil {
		return
	}
	a.Clients.Close()
	if a.shutdownOtel != nil {
		if err := a.shutdownOtel(context.Background()); err != nil {
			a.Log.Warn("otel shutdown failed", "error", err)
		}
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.Log.Warn("database close failed", "error", err)
		}
	}
	if a.Log != nil {
		a.Log.Sync()
	}
}
