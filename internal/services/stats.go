package services

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/yungbote/geoseo-backend/internal/data/repos"
	types "github.com/yungbote/geoseo-backend/internal/domain"
	"github.com/yungbote/geoseo-backend/internal/platform/dbctx"
	"github.com/yungbote/geoseo-backend/internal/platform/logger"
)

const recentVersionLimit = 10

type EntityCounts struct {
	Total    int64 `json:"total"`
	Live     int64 `json:"live"`
	Draft    int64 `json:"draft"`
	Inactive int64 `json:"inactive"`
}

type QueueCounts struct {
	Pending    int64 `json:"pending"`
	Processing int64 `json:"processing"`
	Generated  int64 `json:"generated"`
	Published  int64 `json:"published"`
	Failed     int64 `json:"failed"`
}

type Stats struct {
	States         EntityCounts           `json:"states"`
	Cities         EntityCounts           `json:"cities"`
	Queue          QueueCounts            `json:"queue"`
	RecentVersions []*types.VersionRecord `json:"recentVersions"`
}

type StatsService interface {
	Get(ctx context.Context) (*Stats, error)
}

type statsService struct {
	log      *logger.Logger
	states   repos.StateRepo
	cities   repos.CityRepo
	queue    repos.QueueRepo
	versions repos.VersionRepo
}

func NewStatsService(baseLog *logger.Logger, states repos.StateRepo, cities repos.CityRepo, queue repos.QueueRepo, versions repos.VersionRepo) StatsService {
	return &statsService{
		log:      baseLog.With("service", "StatsService"),
		states:   states,
		cities:   cities,
		queue:    queue,
		versions: versions,
	}
}

type entityCounter func(dbc dbctx.Context, status *types.SEOStatus) (int64, error)

func (s *statsService) Get(ctx context.Context) (*Stats, error) {
	out := &Stats{}
	g, gctx := errgroup.WithContext(ctx)
	dbc := dbctx.Context{Ctx: gctx}

	live, draft := types.SEOStatusLive, types.SEOStatusDraft
	countInto := func(dst *int64, count entityCounter, status *types.SEOStatus) {
		g.Go(func() error {
			n, err := count(dbc, status)
			*dst = n
			return err
		})
	}
	countInto(&out.States.Total, s.states.Count, nil)
	countInto(&out.States.Live, s.states.Count, &live)
	countInto(&out.States.Draft, s.states.Count, &draft)
	countInto(&out.Cities.Total, s.cities.Count, nil)
	countInto(&out.Cities.Live, s.cities.Count, &live)
	countInto(&out.Cities.Draft, s.cities.Count, &draft)

	for dst, status := range map[*int64]types.QueueStatus{
		&out.Queue.Pending:    types.QueueStatusPending,
		&out.Queue.Processing: types.QueueStatusProcessing,
		&out.Queue.Generated:  types.QueueStatusGenerated,
		&out.Queue.Published:  types.QueueStatusPublished,
		&out.Queue.Failed:     types.QueueStatusFailed,
	} {
		g.Go(func() error {
			n, err := s.queue.CountByStatus(dbc, status)
			*dst = n
			return err
		})
	}
	g.Go(func() error {
		recent, err := s.versions.ListRecent(dbc, recentVersionLimit)
		out.RecentVersions = recent
		return err
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	out.States.Inactive = inactive(out.States)
	out.Cities.Inactive = inactive(out.Cities)
	return out, nil
}

func inactive(c EntityCounts) int64 {
	n := c.Total - c.Live - c.Draft
	if n < 0 {
		return 0
	}
	return n
}
