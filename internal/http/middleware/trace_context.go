package middleware

import (
	"regexp"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/yungbote/geoseo-backend/internal/platform/ctxutil"
)

const (
	HeaderTraceID   = "X-Trace-Id"
	HeaderRequestID = "X-Request-Id"
)

// Inbound ids end up in log lines and response headers.
var callerID = regexp.MustCompile(`^[A-Za-z0-9._:-]{1,128}$`)

func callerSuppliedID(c *gin.Context, header string) string {
	v := strings.TrimSpace(c.GetHeader(header))
	if !callerID.MatchString(v) {
		return ""
	}
	return v
}

// AttachRequestIDs resolves the request and trace ids for the admin
// function calls and echoes both on the response. The active span's trace
// id wins over a caller-supplied X-Trace-Id so log lines join the exported
// trace.
func AttachRequestIDs() gin.HandlerFunc {
	return func(c *gin.Context) {
		reqID := callerSuppliedID(c, HeaderRequestID)
		if reqID == "" {
			reqID = uuid.NewString()
		}

		span := trace.SpanFromContext(c.Request.Context())
		traceID := callerSuppliedID(c, HeaderTraceID)
		if sc := span.SpanContext(); sc.HasTraceID() {
			traceID = sc.TraceID().String()
		}
		if traceID == "" {
			traceID = uuid.NewString()
		}
		span.SetAttributes(attribute.String("geoseo.request_id", reqID))

		ctx := ctxutil.WithTraceData(c.Request.Context(), &ctxutil.TraceData{TraceID: traceID, RequestID: reqID})
		c.Request = c.Request.WithContext(ctx)
		h := c.Writer.Header()
		h.Set(HeaderTraceID, traceID)
		h.Set(HeaderRequestID, reqID)
		c.Next()
	}
}
