package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/yungbote/geoseo-backend/internal/platform/ctxutil"
	"github.com/yungbote/geoseo-backend/internal/services"
)

// ActionKey is the gin context key handlers set to the dispatched action.
const ActionKey = "action"

// AttachBearer stores the raw bearer token on the request context. Resolution
// is left to the handler because only some actions need a caller.
func AttachBearer() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := services.BearerToken(c.GetHeader("Authorization"))
		ctx := ctxutil.WithRequestData(c.Request.Context(), &ctxutil.RequestData{TokenString: token})
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
