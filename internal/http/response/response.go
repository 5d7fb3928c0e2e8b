package response

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/geoseo-backend/internal/platform/apierr"
)

type ErrorEnvelope struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
}

func RespondError(c *gin.Context, status int, code string, err error) {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	c.JSON(status, ErrorEnvelope{Success: false, Error: msg, Code: code})
}

// RespondErr takes status and code from an *apierr.Error in err's chain;
// anything else is a 500.
func RespondErr(c *gin.Context, err error) {
	code := "internal_error"
	var ae *apierr.Error
	if errors.As(err, &ae) && ae.Code != "" {
		code = ae.Code
	}
	RespondError(c, apierr.StatusOf(err), code, err)
}

// RespondOK merges payload into a {success:true} envelope.
func RespondOK(c *gin.Context, payload gin.H) {
	body := gin.H{"success": true}
	for k, v := range payload {
		body[k] = v
	}
	c.JSON(http.StatusOK, body)
}
