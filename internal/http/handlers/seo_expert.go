package handlers

import (
	"context"

	"github.com/gin-gonic/gin"
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/google/uuid"

	"github.com/yungbote/geoseo-backend/internal/modules/geoseo/rules"
	"github.com/yungbote/geoseo-backend/internal/platform/logger"
	"github.com/yungbote/geoseo-backend/internal/services"
)

const maxFixLimit = 50

type SEOExpertHandlerDeps struct {
	Log      *logger.Logger
	Identity services.IdentityService
	Audit    services.AuditService
}

// SEOExpertHandler serves POST /functions/v1/seo-expert.
type SEOExpertHandler struct {
	deps SEOExpertHandlerDeps
	d    *dispatcher
}

func NewSEOExpertHandler(deps SEOExpertHandlerDeps) *SEOExpertHandler {
	log := deps.Log
	if log == nil {
		log = logger.Nop()
	}
	h := &SEOExpertHandler{deps: deps}
	h.d = &dispatcher{log: log.With("handler", "SEOExpertHandler")}
	h.d.actions = map[string]actionFunc{
		"full_audit":     h.elevated(h.fullAudit),
		"get_issues":     h.elevated(h.getIssues),
		"fix_issues":     h.elevated(h.fixIssues),
		"get_page_score": h.pageScore,
	}
	h.d.log.Debug("dispatcher ready", "actions", h.d.names())
	return h
}

// POST /functions/v1/seo-expert
func (h *SEOExpertHandler) Handle(c *gin.Context) { h.d.serve(c) }

type elevatedFunc func(ctx context.Context, req *commandRequest, user uuid.UUID) (gin.H, error)

// elevated resolves the caller once and requires an admin role before fn runs.
func (h *SEOExpertHandler) elevated(fn elevatedFunc) actionFunc {
	return func(ctx context.Context, req *commandRequest) (gin.H, error) {
		user, err := h.deps.Identity.RequireElevated(ctx, bearer(ctx))
		if err != nil {
			return nil, err
		}
		return fn(ctx, req, user)
	}
}

func (h *SEOExpertHandler) fullAudit(ctx context.Context, _ *commandRequest, user uuid.UUID) (gin.H, error) {
	sum, err := h.deps.Audit.FullAudit(ctx, &user)
	if err != nil {
		return nil, err
	}
	return gin.H{"audit": sum}, nil
}

func (h *SEOExpertHandler) getIssues(ctx context.Context, req *commandRequest, _ uuid.UUID) (gin.H, error) {
	err := validation.ValidateStruct(req, validation.Field(&req.Severity, validation.In(
		string(rules.SeverityCritical),
		string(rules.SeverityWarning),
		string(rules.SeverityInfo),
	).Error("must be critical, warning or info")))
	if err := validate(err); err != nil {
		return nil, err
	}
	res, err := h.deps.Audit.Issues(ctx, req.Severity)
	if err != nil {
		return nil, err
	}
	return gin.H{"runId": res.RunID, "completedAt": res.CompletedAt, "issues": res.Issues}, nil
}

func (h *SEOExpertHandler) fixIssues(ctx context.Context, req *commandRequest, user uuid.UUID) (gin.H, error) {
	err := validation.ValidateStruct(req,
		validation.Field(&req.PageIDs, validation.Each(is.UUID)),
		validation.Field(&req.Limit, validation.Min(0), validation.Max(maxFixLimit)),
	)
	if err := validate(err); err != nil {
		return nil, err
	}
	ids := make([]uuid.UUID, 0, len(req.PageIDs))
	for _, raw := range req.PageIDs {
		ids = append(ids, parseID(raw))
	}
	sum, err := h.deps.Audit.FixIssues(ctx, services.FixInput{PageIDs: ids, Limit: req.Limit, StartedBy: &user})
	if err != nil {
		return nil, err
	}
	return gin.H{"fixed": sum.Succeeded, "failed": sum.Failed, "results": sum.Results}, nil
}

func (h *SEOExpertHandler) pageScore(ctx context.Context, req *commandRequest) (gin.H, error) {
	if err := validate(validation.ValidateStruct(req, validation.Field(&req.PageID, uuidRule...))); err != nil {
		return nil, err
	}
	score, err := h.deps.Audit.PageScore(ctx, parseID(req.PageID))
	if err != nil {
		return nil, err
	}
	return gin.H{"score": score}, nil
}
