package handlers

import (
	"context"

	"github.com/gin-gonic/gin"
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/google/uuid"

	"github.com/yungbote/geoseo-backend/internal/data/repos"
	types "github.com/yungbote/geoseo-backend/internal/domain"
	"github.com/yungbote/geoseo-backend/internal/platform/logger"
	"github.com/yungbote/geoseo-backend/internal/services"
)

const maxQueueLimit = 500

type GeoExpansionHandlerDeps struct {
	Log       *logger.Logger
	Identity  services.IdentityService
	Queue     services.QueueService
	Generator services.GenerationService
	Publisher services.PublisherService
	Rollback  services.RollbackService
	Settings  services.SettingsService
	Stats     services.StatsService
}

// GeoExpansionHandler serves POST /functions/v1/geo-expansion.
type GeoExpansionHandler struct {
	deps GeoExpansionHandlerDeps
	d    *dispatcher
}

func NewGeoExpansionHandler(deps GeoExpansionHandlerDeps) *GeoExpansionHandler {
	log := deps.Log
	if log == nil {
		log = logger.Nop()
	}
	h := &GeoExpansionHandler{deps: deps}
	h.d = &dispatcher{log: log.With("handler", "GeoExpansionHandler")}
	h.d.actions = map[string]actionFunc{
		"get_stats":              h.getStats,
		"get_queue":              h.getQueue,
		"enqueue_page":           h.enqueue,
		"generate_state_content": h.generate(types.PageTypeState),
		"generate_city_content":  h.generate(types.PageTypeCity),
		"validate_seo":           h.validateSEO,
		"publish_page":           h.publish,
		"approve_page":           h.publish,
		"reject_page":            h.reject,
		"rollback_page":          h.rollback,
		"get_settings":           h.getSettings,
		"update_settings":        h.updateSettings,
	}
	h.d.log.Debug("dispatcher ready", "actions", h.d.names())
	return h
}

// POST /functions/v1/geo-expansion
func (h *GeoExpansionHandler) Handle(c *gin.Context) { h.d.serve(c) }

// caller resolves the bearer token when one was sent. No token is not an
// error; an invalid one is.
func (h *GeoExpansionHandler) caller(ctx context.Context) (*uuid.UUID, error) {
	token := bearer(ctx)
	if token == "" || h.deps.Identity == nil {
		return nil, nil
	}
	id, err := h.deps.Identity.Resolve(ctx, token)
	if err != nil {
		return nil, err
	}
	return &id, nil
}

var uuidRule = []validation.Rule{validation.Required, is.UUID}

func pageTypeRule() validation.Rule {
	return validation.In(string(types.PageTypeState), string(types.PageTypeCity))
}

func (h *GeoExpansionHandler) getStats(ctx context.Context, _ *commandRequest) (gin.H, error) {
	stats, err := h.deps.Stats.Get(ctx)
	if err != nil {
		return nil, err
	}
	return gin.H{"stats": stats}, nil
}

func (h *GeoExpansionHandler) getQueue(ctx context.Context, req *commandRequest) (gin.H, error) {
	f := queueArgs{}
	if req.Filters != nil {
		f = *req.Filters
	}
	err := validation.ValidateStruct(&f,
		validation.Field(&f.Status, validation.In(
			string(types.QueueStatusPending),
			string(types.QueueStatusProcessing),
			string(types.QueueStatusGenerated),
			string(types.QueueStatusPublished),
			string(types.QueueStatusFailed),
		)),
		validation.Field(&f.PageType, pageTypeRule()),
		validation.Field(&f.Limit, validation.Min(0), validation.Max(maxQueueLimit)),
	)
	if err := validate(err); err != nil {
		return nil, err
	}
	items, err := h.deps.Queue.List(ctx, repos.QueueFilter{
		Status:   types.QueueStatus(f.Status),
		PageType: types.PageType(f.PageType),
		Limit:    f.Limit,
	})
	if err != nil {
		return nil, err
	}
	return gin.H{"queue": items}, nil
}

func (h *GeoExpansionHandler) enqueue(ctx context.Context, req *commandRequest) (gin.H, error) {
	err := validation.ValidateStruct(req,
		validation.Field(&req.EntityType, validation.Required, pageTypeRule()),
		validation.Field(&req.EntityID, uuidRule...),
		validation.Field(&req.ClinicID, is.UUID),
	)
	if err := validate(err); err != nil {
		return nil, err
	}
	user, err := h.caller(ctx)
	if err != nil {
		return nil, err
	}
	triggeredBy := req.TriggeredBy
	if triggeredBy == "" {
		triggeredBy = "admin"
	}
	res, err := h.deps.Queue.Enqueue(ctx, services.EnqueueInput{
		PageType:          types.PageType(req.EntityType),
		EntityID:          parseID(req.EntityID),
		TriggeredBy:       triggeredBy,
		TriggeredByUser:   user,
		TriggeredByClinic: optionalID(req.ClinicID),
	})
	if err != nil {
		return nil, err
	}
	return gin.H{"queueItem": res.Item, "created": res.Created}, nil
}

func (h *GeoExpansionHandler) generate(pt types.PageType) actionFunc {
	return func(ctx context.Context, req *commandRequest) (gin.H, error) {
		err := validation.ValidateStruct(req,
			validation.Field(&req.EntityID, uuidRule...),
			validation.Field(&req.QueueID, is.UUID),
		)
		if err := validate(err); err != nil {
			return nil, err
		}
		res, err := h.deps.Generator.Generate(ctx, services.GenerateInput{
			PageType: pt,
			EntityID: parseID(req.EntityID),
			QueueID:  optionalID(req.QueueID),
		})
		if err != nil {
			return nil, err
		}
		out := gin.H{
			"success":             res.Success,
			"queueId":             res.QueueID,
			"confidenceScore":     res.ConfidenceScore,
			"seoValidationPassed": res.ValidationPass,
			"autoPublished":       res.AutoPublished,
		}
		if res.Error != "" {
			out["error"] = res.Error
		}
		if res.Content != nil {
			out["content"] = res.Content
		}
		if res.Published != nil {
			out["published"] = res.Published
		}
		return out, nil
	}
}

func (h *GeoExpansionHandler) validateSEO(ctx context.Context, req *commandRequest) (gin.H, error) {
	if err := validate(validation.ValidateStruct(req, validation.Field(&req.QueueID, uuidRule...))); err != nil {
		return nil, err
	}
	res, err := h.deps.Generator.Validate(ctx, parseID(req.QueueID))
	if err != nil {
		return nil, err
	}
	return gin.H{"validation": res}, nil
}

func (h *GeoExpansionHandler) publish(ctx context.Context, req *commandRequest) (gin.H, error) {
	if err := validate(validation.ValidateStruct(req, validation.Field(&req.QueueID, uuidRule...))); err != nil {
		return nil, err
	}
	approvedBy, err := h.caller(ctx)
	if err != nil {
		return nil, err
	}
	res, err := h.deps.Publisher.Publish(ctx, services.PublishInput{QueueID: parseID(req.QueueID), ApprovedBy: approvedBy})
	if err != nil {
		return nil, err
	}
	return gin.H{"published": res}, nil
}

func (h *GeoExpansionHandler) reject(ctx context.Context, req *commandRequest) (gin.H, error) {
	if err := validate(validation.ValidateStruct(req, validation.Field(&req.QueueID, uuidRule...))); err != nil {
		return nil, err
	}
	item, err := h.deps.Queue.Reject(ctx, parseID(req.QueueID))
	if err != nil {
		return nil, err
	}
	return gin.H{"queueItem": item}, nil
}

// rollback_page reuses the field names: entityId is the page, queueId the version.
func (h *GeoExpansionHandler) rollback(ctx context.Context, req *commandRequest) (gin.H, error) {
	err := validation.ValidateStruct(req,
		validation.Field(&req.EntityID, uuidRule...),
		validation.Field(&req.QueueID, uuidRule...),
	)
	if err := validate(err); err != nil {
		return nil, err
	}
	actor, err := h.caller(ctx)
	if err != nil {
		return nil, err
	}
	res, err := h.deps.Rollback.Rollback(ctx, services.RollbackInput{
		PageID:    parseID(req.EntityID),
		VersionID: parseID(req.QueueID),
		ChangedBy: actor,
	})
	if err != nil {
		return nil, err
	}
	return gin.H{"rollback": res}, nil
}

func (h *GeoExpansionHandler) getSettings(ctx context.Context, _ *commandRequest) (gin.H, error) {
	rows, err := h.deps.Settings.List(ctx)
	if err != nil {
		return nil, err
	}
	cfg, err := h.deps.Settings.Pipeline(ctx)
	if err != nil {
		return nil, err
	}
	return gin.H{"settings": rows, "pipeline": cfg}, nil
}

func (h *GeoExpansionHandler) updateSettings(ctx context.Context, req *commandRequest) (gin.H, error) {
	err := validation.ValidateStruct(req,
		validation.Field(&req.SettingKey, validation.Required),
		validation.Field(&req.SettingValue, validation.Required),
	)
	if err := validate(err); err != nil {
		return nil, err
	}
	actor, err := h.caller(ctx)
	if err != nil {
		return nil, err
	}
	row, err := h.deps.Settings.Update(ctx, req.SettingKey, req.SettingValue, actor)
	if err != nil {
		return nil, err
	}
	return gin.H{"setting": row}, nil
}
