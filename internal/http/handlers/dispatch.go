package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sort"

	"github.com/gin-gonic/gin"
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"

	"github.com/yungbote/geoseo-backend/internal/http/middleware"
	"github.com/yungbote/geoseo-backend/internal/http/response"
	"github.com/yungbote/geoseo-backend/internal/platform/apierr"
	"github.com/yungbote/geoseo-backend/internal/platform/ctxutil"
	"github.com/yungbote/geoseo-backend/internal/platform/logger"
)

// commandRequest is the {action, ...params} body shared by both dispatchers.
type commandRequest struct {
	Action string `json:"action"`

	EntityType  string     `json:"entityType"`
	EntityID    string     `json:"entityId"`
	QueueID     string     `json:"queueId"`
	TriggeredBy string     `json:"triggeredBy"`
	ClinicID    string     `json:"clinicId"`
	Filters     *queueArgs `json:"filters"`

	SettingKey   string          `json:"settingKey"`
	SettingValue json.RawMessage `json:"settingValue"`

	PageID   string   `json:"pageId"`
	PageIDs  []string `json:"pageIds"`
	Severity string   `json:"severity"`
	Limit    int      `json:"limit"`
}

type queueArgs struct {
	Status   string `json:"status"`
	PageType string `json:"pageType"`
	Limit    int    `json:"limit"`
}

type actionFunc func(ctx context.Context, req *commandRequest) (gin.H, error)

type dispatcher struct {
	log     *logger.Logger
	actions map[string]actionFunc
}

func (d *dispatcher) serve(c *gin.Context) {
	var req commandRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondErr(c, apierr.BadRequest("Invalid request body"))
		return
	}
	c.Set(middleware.ActionKey, req.Action)
	fn, ok := d.actions[req.Action]
	if !ok {
		response.RespondErr(c, apierr.BadRequest("Unknown action: %s", req.Action))
		return
	}
	out, err := fn(c.Request.Context(), &req)
	if err != nil {
		if apierr.StatusOf(err) >= http.StatusInternalServerError {
			d.log.Error("action failed", "action", req.Action, "error", err)
		}
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, out)
}

func (d *dispatcher) names() []string {
	out := make([]string, 0, len(d.actions))
	for k := range d.actions {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// validate maps ozzo field errors to a 400. Rule misconfiguration stays a 500.
func validate(err error) error {
	if err == nil {
		return nil
	}
	var ierr validation.InternalError
	if errors.As(err, &ierr) {
		return err
	}
	return apierr.BadRequest("%s", err.Error())
}

func parseID(raw string) uuid.UUID {
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil
	}
	return id
}

func optionalID(raw string) *uuid.UUID {
	if raw == "" {
		return nil
	}
	id := parseID(raw)
	if id == uuid.Nil {
		return nil
	}
	return &id
}

func bearer(ctx context.Context) string {
	if rd := ctxutil.GetRequestData(ctx); rd != nil {
		return rd.TokenString
	}
	return ""
}
