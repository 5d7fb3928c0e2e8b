package app

import (
	"github.com/yungbote/geoseo-backend/internal/clients/redis"
	"github.com/yungbote/geoseo-backend/internal/platform/logger"
	"github.com/yungbote/geoseo-backend/internal/platform/openai"
)

type Clients struct {
	// AI is nil without OPENAI_API_KEY; generation then fails per item and
	// the failure is recorded on the queue row.
	AI openai.Client
	// Counter is nil when Redis is not configured; the generation budget then
	// counts attempts in the database.
	Counter redis.GenerationCounter
}

func wireClients(log *logger.Logger, cfg Config) Clients {
	log.Info("Wiring clients...")
	var out Clients

	if ai, err := openai.NewClient(log, cfg.OpenAI); err != nil {
		log.Warn("completion client disabled", "error", err)
	} else {
		out.AI = ai
	}

	if counter, err := redis.NewGenerationCounter(log); err != nil {
		log.Warn("redis generation counter unavailable, using database count", "error", err)
	} else {
		out.Counter = counter
	}
	return out
}

func (c Clients) Close() {
	if c.Counter != nil {
		_ = c.Counter.Close()
	}
}
