package services

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/geoseo-backend/internal/batch"
	"github.com/yungbote/geoseo-backend/internal/clients/redis"
	"github.com/yungbote/geoseo-backend/internal/data/repos"
	"github.com/yungbote/geoseo-backend/internal/data/repos/testutil"
	types "github.com/yungbote/geoseo-backend/internal/domain"
	"github.com/yungbote/geoseo-backend/internal/modules/geoseo/content"
	"github.com/yungbote/geoseo-backend/internal/modules/geoseo/rules"
	"github.com/yungbote/geoseo-backend/internal/platform/dbctx"
	"github.com/yungbote/geoseo-backend/internal/platform/openai"
)

// scriptedAI replays replies in order and repeats the last one.
type scriptedAI struct {
	mu      sync.Mutex
	replies []string
	err     error
	calls   int
}

func (f *scriptedAI) Complete(_ context.Context, _ openai.CompletionRequest) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	if len(f.replies) == 0 {
		return "", nil
	}
	i := f.calls - 1
	if i >= len(f.replies) {
		i = len(f.replies) - 1
	}
	return f.replies[i], nil
}

func (f *scriptedAI) script(err error, replies ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err, f.replies, f.calls = err, replies, 0
}

type fakeCounter struct {
	ok    bool
	err   error
	calls int
}

func (c *fakeCounter) Reserve(context.Context, time.Time, int) (bool, int64, error) {
	c.calls++
	return c.ok, int64(c.calls), c.err
}

func (c *fakeCounter) Count(context.Context, time.Time) (int64, error) { return int64(c.calls), c.err }
func (c *fakeCounter) Close() error                                     { return nil }

type harness struct {
	db  *gorm.DB
	ai  *scriptedAI
	dbc dbctx.Context

	states    repos.StateRepo
	cities    repos.CityRepo
	queueRepo repos.QueueRepo
	pages     repos.PageRepo
	versions  repos.VersionRepo
	roles     repos.UserRoleRepo

	settings  SettingsService
	queue     QueueService
	publisher PublisherService
	rollback  RollbackService
	generator GenerationService
	stats     StatsService
	audit     AuditService
	identity  IdentityService
}

const testSecret = "test-signing-secret"

func newHarness(t *testing.T, counter redis.GenerationCounter) *harness {
	t.Helper()
	db := testutil.DB(t)
	log := testutil.Logger(t)
	h := &harness{db: db, ai: &scriptedAI{}, dbc: dbctx.Context{Ctx: context.Background()}}

	h.states = repos.NewStateRepo(db, log)
	h.cities = repos.NewCityRepo(db, log)
	h.queueRepo = repos.NewQueueRepo(db, log)
	h.pages = repos.NewPageRepo(db, log)
	h.versions = repos.NewVersionRepo(db, log)
	h.roles = repos.NewUserRoleRepo(db, log)

	gen := content.NewGenerator(log, h.ai, rules.GenerationPolicy)
	h.settings = NewSettingsService(log, repos.NewSettingRepo(db, log))
	if err := h.settings.Seed(context.Background()); err != nil {
		t.Fatalf("seed settings: %v", err)
	}
	h.queue = NewQueueService(db, log, h.queueRepo, h.states, h.cities)
	h.publisher = NewPublisherService(db, log, h.queueRepo, h.pages, h.versions, h.states, h.cities, h.settings)
	h.rollback = NewRollbackService(db, log, h.pages, h.versions, h.states, h.cities, h.settings)
	h.generator = NewGenerationService(log, h.queueRepo, h.pages, h.states, h.cities, gen, h.settings,
		NewGenerationBudget(log, counter, h.queueRepo), h.publisher)
	h.stats = NewStatsService(log, h.states, h.cities, h.queueRepo, h.versions)
	h.audit = NewAuditService(db, log, h.pages, h.versions, repos.NewAuditRunRepo(db, log), gen, batch.NewRunner(log, 0))
	h.identity = NewIdentityService(log, h.roles, testSecret)
	return h
}

// pageReply is a model reply that passes validation with a clean score
// unless edit changes it.
func pageReply(t *testing.T, intro string, edit func(map[string]any)) string {
	t.Helper()
	m := map[string]any{
		"h1":               "Find a Trusted Dentist Today",
		"meta_title":       "Dentists Across the State | Compare Local Care",
		"meta_description": strings.Repeat("Compare licensed dental offices, read patient reviews and book a visit today. ", 2)[:140],
		"intro":            intro,
		"service_overview": strings.Repeat("cleaning ", 320),
		"local_info":       "Major metro areas have extended evening hours.",
		"faq": []map[string]string{
			{"question": "How do I book?", "answer": "Use the directory."},
			{"question": "Do clinics take insurance?", "answer": "Most do."},
			{"question": "Are weekend visits available?", "answer": "Some offices offer them."},
		},
		"internal_links": []map[string]string{{"text": "Austin", "url": ""}, {"text": "Dallas", "url": ""}},
	}
	if edit != nil {
		edit(m)
	}
	b, err := json.Marshal(m)
	if err != nil {
		t.Fatalf("marshal reply: %v", err)
	}
	return "Here is the page:\n" + string(b)
}

func (h *harness) seedState(t *testing.T, name, abbr, slug string) *types.State {
	t.Helper()
	return testutil.SeedState(t, context.Background(), h.db, name, abbr, slug)
}

func (h *harness) reloadState(t *testing.T, id uuid.UUID) *types.State {
	t.Helper()
	st, err := h.states.GetByID(h.dbc, id)
	if err != nil || st == nil {
		t.Fatalf("reload state: st=%v err=%v", st, err)
	}
	return st
}

func (h *harness) reloadItem(t *testing.T, id uuid.UUID) *types.QueueItem {
	t.Helper()
	item, err := h.queueRepo.GetByID(h.dbc, id)
	if err != nil || item == nil {
		t.Fatalf("reload queue item: item=%v err=%v", item, err)
	}
	return item
}

// generateState enqueues and generates one state page, failing the test on
// any error.
func (h *harness) generateState(t *testing.T, st *types.State, reply string) (*types.QueueItem, *GenerateResult) {
	t.Helper()
	ctx := context.Background()
	enq, err := h.queue.Enqueue(ctx, EnqueueInput{PageType: types.PageTypeState, EntityID: st.ID, TriggeredBy: "admin"})
	if err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	h.ai.script(nil, reply)
	id := enq.Item.ID
	res, err := h.generator.Generate(ctx, GenerateInput{PageType: types.PageTypeState, EntityID: st.ID, QueueID: &id})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	return enq.Item, res
}
