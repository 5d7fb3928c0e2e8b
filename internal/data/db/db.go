package db

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	"github.com/yungbote/geoseo-backend/internal/platform/envutil"
	"github.com/yungbote/geoseo-backend/internal/platform/logger"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

type Config struct {
	Driver     string
	DSN        string
	SQLitePath string
	LogLevel   gormLogger.LogLevel
}

// ConfigFromEnv prefers DATABASE_URL, then assembles a DSN from POSTGRES_*.
func ConfigFromEnv() Config {
	cfg := Config{
		Driver:     strings.ToLower(envutil.String("DB_DRIVER", DriverPostgres)),
		SQLitePath: envutil.String("SQLITE_PATH", "geoseo.db"),
		LogLevel:   gormLogger.Warn,
	}
	if dsn := envutil.String("DATABASE_URL", ""); dsn != "" {
		cfg.DSN = dsn
		return cfg
	}
	cfg.DSN = fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s",
		envutil.String("POSTGRES_USER", "postgres"),
		envutil.String("POSTGRES_PASSWORD", ""),
		envutil.String("POSTGRES_HOST", "localhost"),
		envutil.String("POSTGRES_PORT", "5432"),
		envutil.String("POSTGRES_NAME", "geoseo"),
		envutil.String("POSTGRES_SSLMODE", "disable"),
	)
	return cfg
}

type Service struct {
	db     *gorm.DB
	driver string
	log    *logger.Logger
}

func NewService(logg *logger.Logger, cfg Config) (*Service, error) {
	serviceLog := logg.With("service", "DBService")

	gormLog := gormLogger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		gormLogger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  cfg.LogLevel,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)
	dialector, err := dialectorFor(cfg)
	if err != nil {
		return nil, err
	}
	db, err := gorm.Open(dialector, &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
		TranslateError:                           true,
		Logger:                                   gormLog,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", cfg.Driver, err)
	}
	if cfg.Driver == DriverSQLite {
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		// sqlite serialises writers; one connection avoids SQLITE_BUSY under load.
		sqlDB.SetMaxOpenConns(1)
	}
	serviceLog.Info("database connected", "driver", cfg.Driver)
	return &Service{db: db, driver: cfg.Driver, log: serviceLog}, nil
}

func dialectorFor(cfg Config) (gorm.Dialector, error) {
	switch cfg.Driver {
	case DriverPostgres, "":
		return postgres.Open(cfg.DSN), nil
	case DriverSQLite:
		return sqlite.Open(cfg.SQLitePath), nil
	}
	return nil, fmt.Errorf("unsupported DB_DRIVER %q", cfg.Driver)
}

func (s *Service) DB() *gorm.DB { return s.db }

func (s *Service) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (s *Service) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *Service) Migrate() error {
	if err := AutoMigrateAll(s.db); err != nil {
		return fmt.Errorf("automigrate: %w", err)
	}
	if err := EnsureIndexes(s.db); err != nil {
		return fmt.Errorf("indexes: %w", err)
	}
	return nil
}
