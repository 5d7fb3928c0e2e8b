package app

import (
	httpH "github.com/yungbote/geoseo-backend/internal/http/handlers"
	"github.com/yungbote/geoseo-backend/internal/platform/logger"
)

type Handlers struct {
	Health       *httpH.HealthHandler
	GeoExpansion *httpH.GeoExpansionHandler
	SEOExpert    *httpH.SEOExpertHandler
}

func wireHandlers(log *logger.Logger, db httpH.Pinger, s Services) Handlers {
	log.Info("Wiring handlers...")
	return Handlers{
		Health: httpH.NewHealthHandler(db),
		GeoExpansion: httpH.NewGeoExpansionHandler(httpH.GeoExpansionHandlerDeps{
			Log:       log,
			Identity:  s.Identity,
			Queue:     s.Queue,
			Generator: s.Generation,
			Publisher: s.Publisher,
			Rollback:  s.Rollback,
			Settings:  s.Settings,
			Stats:     s.Stats,
		}),
		SEOExpert: httpH.NewSEOExpertHandler(httpH.SEOExpertHandlerDeps{
			Log:      log,
			Identity: s.Identity,
			Audit:    s.Audit,
		}),
	}
}
