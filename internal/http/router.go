package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/yungbote/geoseo-backend/internal/http/handlers"
	httpMW "github.com/yungbote/geoseo-backend/internal/http/middleware"
	"github.com/yungbote/geoseo-backend/internal/http/response"
	"github.com/yungbote/geoseo-backend/internal/platform/logger"
)

var errPanic = errors.New("Internal server error")

type RouterConfig struct {
	Log         *logger.Logger
	ServiceName string

	GeoExpansionHandler *httpH.GeoExpansionHandler
	SEOExpertHandler    *httpH.SEOExpertHandler
	HealthHandler       *httpH.HealthHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	log := cfg.Log
	if log == nil {
		log = logger.Nop()
	}
	name := cfg.ServiceName
	if name == "" {
		name = "geoseo"
	}

	r := gin.New()
	r.Use(gin.CustomRecovery(func(c *gin.Context, recovered any) {
		log.Error("panic recovered", "path", c.Request.URL.Path, "panic", recovered)
		response.RespondError(c, http.StatusInternalServerError, "internal_error", errPanic)
		c.Abort()
	}))
	r.Use(otelgin.Middleware(name))
	r.Use(httpMW.AttachRequestIDs())
	r.Use(httpMW.RequestLogger(log))
	r.Use(httpMW.CORS())
	r.Use(httpMW.AttachBearer())

	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
	}

	fn := r.Group("/functions/v1")
	{
		if cfg.GeoExpansionHandler != nil {
			fn.POST("/geo-expansion", cfg.GeoExpansionHandler.Handle)
			fn.OPTIONS("/geo-expansion", preflight)
		}
		if cfg.SEOExpertHandler != nil {
			fn.POST("/seo-expert", cfg.SEOExpertHandler.Handle)
			fn.OPTIONS("/seo-expert", preflight)
		}
	}
	return r
}

// preflight answers OPTIONS requests that did not carry an Origin header and
// so were not short-circuited by the CORS middleware.
func preflight(c *gin.Context) {
	c.Header("Access-Control-Allow-Origin", "*")
	c.Header("Access-Control-Allow-Headers", httpMW.AllowedHeaders)
	c.Status(http.StatusOK)
}
