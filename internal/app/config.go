package app

import (
	"time"

	"github.com/yungbote/geoseo-backend/internal/data/db"
	"github.com/yungbote/geoseo-backend/internal/observability"
	"github.com/yungbote/geoseo-backend/internal/platform/envutil"
	"github.com/yungbote/geoseo-backend/internal/platform/openai"
)

const ServiceName = "geoseo-backend"

type Config struct {
	Port            string
	LogMode         string
	JWTSecretKey    string
	BatchDelay      time.Duration
	ShutdownTimeout time.Duration
	AutoMigrate     bool

	DB     db.Config
	OpenAI openai.Config
	Otel   observability.OtelConfig
}

func LoadConfig() Config {
	logMode := envutil.String("LOG_MODE", "development")
	return Config{
		Port:            envutil.String("PORT", "8080"),
		LogMode:         logMode,
		JWTSecretKey:    envutil.String("JWT_SECRET_KEY", ""),
		BatchDelay:      envutil.Duration("BATCH_DELAY_MS", 1500*time.Millisecond),
		ShutdownTimeout: envutil.Duration("SHUTDOWN_TIMEOUT", 15*time.Second),
		AutoMigrate:     envutil.Bool("DB_AUTO_MIGRATE", true),
		DB:              db.ConfigFromEnv(),
		OpenAI:          openai.ConfigFromEnv(),
		Otel:            observability.OtelConfigFromEnv(ServiceName, logMode),
	}
}
