package app

import (
	"github.com/gin-gonic/gin"

	"github.com/yungbote/geoseo-backend/internal/http"
	"github.com/yungbote/geoseo-backend/internal/platform/logger"
)

func wireRouter(log *logger.Logger, h Handlers) *gin.Engine {
	return http.NewRouter(http.RouterConfig{
		Log:                 log,
		ServiceName:         ServiceName,
		GeoExpansionHandler: h.GeoExpansion,
		SEOExpertHandler:    h.SEOExpert,
		HealthHandler:       h.Health,
	})
}
