package middleware

import (
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

var allowHeaders = []string{"authorization", "x-client-info", "apikey", "content-type"}

// AllowedHeaders is the Access-Control-Allow-Headers value for preflights.
const AllowedHeaders = "authorization, x-client-info, apikey, content-type"

// CORS answers preflight for any origin with an empty 200.
func CORS() gin.HandlerFunc {
	return cors.New(cors.Config{
		AllowAllOrigins:           true,
		AllowMethods:              []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:              allowHeaders,
		ExposeHeaders:             []string{HeaderRequestID, HeaderTraceID},
		OptionsResponseStatusCode: http.StatusOK,
	})
}
