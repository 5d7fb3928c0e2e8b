package services

import (
	"github.com/google/uuid"

	"github.com/yungbote/geoseo-backend/internal/data/repos"
	types "github.com/yungbote/geoseo-backend/internal/domain"
	"github.com/yungbote/geoseo-backend/internal/domain/seo"
	"github.com/yungbote/geoseo-backend/internal/platform/apierr"
	"github.com/yungbote/geoseo-backend/internal/platform/dbctx"
)

// geoEntity is the state-or-city view the pipeline works with.
type geoEntity struct {
	PageType  types.PageType
	ID        uuid.UUID
	Name      string
	Slug      string
	SEOStatus types.SEOStatus
	PageID    *uuid.UUID

	State *types.State
	City  *types.City
}

func (e *geoEntity) StateSlug() string {
	if e.City != nil && e.City.State != nil {
		return e.City.State.Slug
	}
	return ""
}

func (e *geoEntity) PageSlug() string {
	return seo.PageSlug(e.PageType, e.Slug, e.StateSlug())
}

type entityStore struct {
	states repos.StateRepo
	cities repos.CityRepo
}

func (s entityStore) load(dbc dbctx.Context, pt types.PageType, id uuid.UUID) (*geoEntity, error) {
	switch pt {
	case types.PageTypeState:
		st, err := s.states.GetByID(dbc, id)
		if err != nil {
			return nil, err
		}
		if st == nil {
			return nil, apierr.NotFound("State")
		}
		return &geoEntity{PageType: pt, ID: st.ID, Name: st.Name, Slug: st.Slug, SEOStatus: st.SEOStatus, PageID: st.SEOPageID, State: st}, nil
	case types.PageTypeCity:
		c, err := s.cities.GetByID(dbc, id)
		if err != nil {
			return nil, err
		}
		if c == nil {
			return nil, apierr.NotFound("City")
		}
		if c.State == nil {
			return nil, apierr.NotFound("State")
		}
		return &geoEntity{PageType: pt, ID: c.ID, Name: c.Name, Slug: c.Slug, SEOStatus: c.SEOStatus, PageID: c.SEOPageID, City: c}, nil
	}
	return nil, apierr.BadRequest("Unknown page type: %s", pt)
}

func (s entityStore) update(dbc dbctx.Context, e *geoEntity, updates map[string]interface{}) error {
	if e.PageType == types.PageTypeCity {
		return s.cities.UpdateFields(dbc, e.ID, updates)
	}
	return s.states.UpdateFields(dbc, e.ID, updates)
}
