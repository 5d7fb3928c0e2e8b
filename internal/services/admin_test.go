package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/yungbote/geoseo-backend/internal/data/repos/testutil"
	types "github.com/yungbote/geoseo-backend/internal/domain"
	"github.com/yungbote/geoseo-backend/internal/domain/auth"
	"github.com/yungbote/geoseo-backend/internal/domain/seo"
	"github.com/yungbote/geoseo-backend/internal/platform/apierr"
)

func TestStatsCountsEntitiesAndQueue(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	for i := 0; i < 8; i++ {
		st := h.seedState(t, fmt.Sprintf("State %d", i), "", fmt.Sprintf("state-%d", i))
		status := types.SEOStatusLive
		if i >= 5 {
			status = types.SEOStatusDraft
		}
		if err := h.states.UpdateFields(h.dbc, st.ID, map[string]interface{}{"seo_status": status}); err != nil {
			t.Fatalf("UpdateFields: %v", err)
		}
		if i == 0 {
			testutil.SeedQueueItem(t, ctx, h.db, types.PageTypeState, st.ID, st.Slug, types.QueueStatusFailed)
		}
		if i == 1 {
			testutil.SeedQueueItem(t, ctx, h.db, types.PageTypeState, st.ID, st.Slug, types.QueueStatusPending)
		}
	}

	stats, err := h.stats.Get(ctx)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	want := EntityCounts{Total: 8, Live: 5, Draft: 3, Inactive: 0}
	if stats.States != want {
		t.Fatalf("states: want=%+v got=%+v", want, stats.States)
	}
	if stats.Cities != (EntityCounts{}) {
		t.Fatalf("cities: want zero got=%+v", stats.Cities)
	}
	if stats.Queue.Failed != 1 || stats.Queue.Pending != 1 || stats.Queue.Published != 0 {
		t.Fatalf("queue: %+v", stats.Queue)
	}
	if len(stats.RecentVersions) != 0 {
		t.Fatalf("recent versions: want empty slice got=%v", stats.RecentVersions)
	}
}

func TestDailyLimitFallsBackToQueueAttempts(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	if _, err := h.settings.Update(ctx, seo.SettingDailyGenerationLimit, json.RawMessage(`1`), nil); err != nil {
		t.Fatalf("Update: %v", err)
	}
	tx := h.seedState(t, "Texas", "TX", "texas")
	ohio := h.seedState(t, "Ohio", "OH", "ohio")
	if _, res := h.generateState(t, tx, pageReply(t, texasIntro, nil)); !res.Success {
		t.Fatalf("first generation should succeed: %q", res.Error)
	}

	enq, err := h.queue.Enqueue(ctx, EnqueueInput{PageType: types.PageTypeState, EntityID: ohio.ID})
	if err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	id := enq.Item.ID
	_, err = h.generator.Generate(ctx, GenerateInput{PageType: types.PageTypeState, EntityID: ohio.ID, QueueID: &id})
	if apierr.StatusOf(err) != http.StatusTooManyRequests || err.Error() != "Daily generation limit reached" {
		t.Fatalf("Generate over limit: want 429 got %v", err)
	}
	if stored := h.reloadItem(t, id); stored.Status != types.QueueStatusPending || stored.GenerationAttempts != 0 {
		t.Fatalf("rejected item should be untouched: status=%s attempts=%d", stored.Status, stored.GenerationAttempts)
	}
}

func TestDailyLimitUsesCounterWhenAvailable(t *testing.T) {
	counter := &fakeCounter{ok: false}
	h := newHarness(t, counter)
	tx := h.seedState(t, "Texas", "TX", "texas")

	_, err := h.generator.Generate(context.Background(), GenerateInput{PageType: types.PageTypeState, EntityID: tx.ID})
	if apierr.StatusOf(err) != http.StatusTooManyRequests {
		t.Fatalf("Generate: want 429 got %v", err)
	}
	if counter.calls != 1 || h.ai.calls != 0 {
		t.Fatalf("counter calls=%d ai calls=%d", counter.calls, h.ai.calls)
	}

	counter.err = errors.New("redis down")
	h.ai.script(nil, pageReply(t, texasIntro, nil))
	res, err := h.generator.Generate(context.Background(), GenerateInput{PageType: types.PageTypeState, EntityID: tx.ID})
	if err != nil || !res.Success {
		t.Fatalf("Generate with counter error should fall back: res=%+v err=%v", res, err)
	}
}

func TestRetryBlockedByActiveItemReservesNoBudget(t *testing.T) {
	counter := &fakeCounter{ok: true}
	h := newHarness(t, counter)
	ctx := context.Background()
	tx := h.seedState(t, "Texas", "TX", "texas")
	failed := testutil.SeedQueueItem(t, ctx, h.db, types.PageTypeState, tx.ID, "texas", types.QueueStatusFailed)
	testutil.SeedQueueItem(t, ctx, h.db, types.PageTypeState, tx.ID, "texas", types.QueueStatusPending)

	id := failed.ID
	_, err := h.generator.Generate(ctx, GenerateInput{PageType: types.PageTypeState, EntityID: tx.ID, QueueID: &id})
	if apierr.StatusOf(err) != http.StatusConflict {
		t.Fatalf("Generate(failed with active sibling): want 409 got %v", err)
	}
	if counter.calls != 0 || h.ai.calls != 0 {
		t.Fatalf("counter calls=%d ai calls=%d", counter.calls, h.ai.calls)
	}
	if stored := h.reloadItem(t, id); stored.Status != types.QueueStatusFailed {
		t.Fatalf("failed item: want failed got %s", stored.Status)
	}
}

func TestAutoPublishAboveThreshold(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	if _, err := h.settings.Update(ctx, seo.SettingAutoPublishEnabled, json.RawMessage(`true`), nil); err != nil {
		t.Fatalf("Update: %v", err)
	}
	tx := h.seedState(t, "Texas", "TX", "texas")
	item, res := h.generateState(t, tx, pageReply(t, texasIntro, nil))
	if !res.AutoPublished || res.Published == nil || res.Published.Slug != "texas" {
		t.Fatalf("expected auto-publish: %+v", res)
	}
	if stored := h.reloadItem(t, item.ID); stored.Status != types.QueueStatusPublished {
		t.Fatalf("queue item: want published got %s", stored.Status)
	}
	versions, err := h.versions.ListByPage(h.dbc, res.Published.PageID)
	if err != nil || len(versions) != 1 || versions[0].ChangedBy != ChangedByAutoPublish {
		t.Fatalf("versions: %+v err=%v", versions, err)
	}

	// Below the threshold the item waits for review.
	ohio := h.seedState(t, "Ohio", "OH", "ohio")
	item, res = h.generateState(t, ohio, pageReply(t, "Ohio households can compare licensed dental offices statewide.", func(m map[string]any) {
		m["meta_title"] = "Ohio Dentists"
		m["h1"] = "Ohio"
	}))
	if res.AutoPublished {
		t.Fatalf("confidence %v should not auto-publish", res.ConfidenceScore)
	}
	if stored := h.reloadItem(t, item.ID); stored.Status != types.QueueStatusGenerated {
		t.Fatalf("queue item: want generated got %s", stored.Status)
	}
}

func TestSettingsUpdateValidation(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()

	rows, err := h.settings.List(ctx)
	if err != nil || len(rows) != 5 {
		t.Fatalf("List: n=%d err=%v", len(rows), err)
	}
	cases := []struct {
		name  string
		key   string
		value string
		want  int
	}{
		{"threshold above one", seo.SettingAutoPublishThreshold, `1.5`, http.StatusBadRequest},
		{"threshold not a number", seo.SettingAutoPublishThreshold, `"high"`, http.StatusBadRequest},
		{"limit zero", seo.SettingDailyGenerationLimit, `0`, http.StatusBadRequest},
		{"min words below floor", seo.SettingContentMinWords, `40`, http.StatusBadRequest},
		{"min words above max", seo.SettingContentMinWords, `2000`, http.StatusBadRequest},
		{"max words below min", seo.SettingContentMaxWords, `200`, http.StatusBadRequest},
		{"unknown key", "colour", `1`, http.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := h.settings.Update(ctx, tc.key, json.RawMessage(tc.value), nil)
			if apierr.StatusOf(err) != tc.want {
				t.Fatalf("Update(%s=%s): want %d got %v", tc.key, tc.value, tc.want, err)
			}
		})
	}
	if _, err := h.settings.Update(ctx, "colour", json.RawMessage(`1`), nil); err == nil || err.Error() != "Unknown setting: colour" {
		t.Fatalf("unknown key message: %v", err)
	}

	actor := uuid.New()
	row, err := h.settings.Update(ctx, seo.SettingAutoPublishThreshold, json.RawMessage(`0.9`), &actor)
	if err != nil {
		t.Fatalf("Update(valid): %v", err)
	}
	if row.UpdatedBy == nil || *row.UpdatedBy != actor {
		t.Fatalf("updated_by: %v", row.UpdatedBy)
	}
	cfg, err := h.settings.Pipeline(ctx)
	if err != nil || cfg.AutoPublishThreshold != 0.9 {
		t.Fatalf("Pipeline: threshold=%v err=%v", cfg.AutoPublishThreshold, err)
	}
}

func signToken(t *testing.T, secret string, sub string) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, IdentityClaims{
		Role: "authenticated",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   sub,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	s, err := tok.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return s
}

func TestIdentityResolveAndElevation(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()

	if _, err := h.identity.Resolve(ctx, ""); apierr.StatusOf(err) != http.StatusUnauthorized || !errors.Is(err, ErrMissingToken) {
		t.Fatalf("Resolve(empty): want 401 missing token got %v", err)
	}
	if _, err := h.identity.Resolve(ctx, signToken(t, "other-secret", uuid.NewString())); apierr.StatusOf(err) != http.StatusUnauthorized {
		t.Fatalf("Resolve(wrong secret): want 401 got %v", err)
	}
	if _, err := h.identity.Resolve(ctx, signToken(t, testSecret, "not-a-uuid")); apierr.StatusOf(err) != http.StatusUnauthorized {
		t.Fatalf("Resolve(bad subject): want 401 got %v", err)
	}

	userID := uuid.New()
	token := signToken(t, testSecret, userID.String())
	got, err := h.identity.Resolve(ctx, token)
	if err != nil || got != userID {
		t.Fatalf("Resolve: got=%s err=%v", got, err)
	}
	if _, err := h.identity.RequireElevated(ctx, token); apierr.StatusOf(err) != http.StatusForbidden {
		t.Fatalf("RequireElevated(no role): want 403 got %v", err)
	}
	testutil.SeedRole(t, ctx, h.db, userID, auth.RoleAdmin)
	if got, err := h.identity.RequireElevated(ctx, token); err != nil || got != userID {
		t.Fatalf("RequireElevated(admin): got=%s err=%v", got, err)
	}

	if BearerToken("Bearer abc.def") != "abc.def" || BearerToken("abc") != "" {
		t.Fatalf("BearerToken parsing")
	}
}

func auditContent(pt types.PageType, title, h1, intro string) types.PageContent {
	c := types.PageContent{
		PageType:        pt,
		H1:              h1,
		MetaTitle:       title,
		MetaDescription: strings.Repeat("d", 140),
		Intro:           intro,
		ServiceOverview: strings.Repeat("cleaning ", 420),
	}
	if pt == types.PageTypeCity {
		c.City = &types.CityDetails{LocalInfo: "Transit runs late."}
	} else {
		c.State = &types.StateDetails{}
	}
	return c
}

func issueTypes(ps *PageScore) map[string]bool {
	out := map[string]bool{}
	for _, is := range ps.Issues {
		out[is.Type] = true
	}
	return out
}

func TestFullAuditScoresAndFlagsDuplicates(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	tx := h.seedState(t, "Texas", "TX", "texas")
	austin := testutil.SeedCity(t, ctx, h.db, tx, "Austin", "austin")
	dallas := testutil.SeedCity(t, ctx, h.db, tx, "Dallas", "dallas")

	good := testutil.SeedPage(t, ctx, h.db, types.PageTypeState, tx.ID, "texas",
		auditContent(types.PageTypeState, "Texas Dentists | Compare Local Dental Care", "Dentists in Texas", "Statewide dental guide."))
	a := testutil.SeedPage(t, ctx, h.db, types.PageTypeCity, austin.ID, "texas/austin",
		auditContent(types.PageTypeCity, "City Dentists | Compare Local Dental Care", "", "Austin offices."))
	d := testutil.SeedPage(t, ctx, h.db, types.PageTypeCity, dallas.ID, "texas/dallas",
		auditContent(types.PageTypeCity, "city dentists | compare local dental care", "Dentists in Dallas", "Dallas offices."))

	sum, err := h.audit.FullAudit(ctx, nil)
	if err != nil {
		t.Fatalf("FullAudit: %v", err)
	}
	if sum.PagesScanned != 3 {
		t.Fatalf("pages scanned: want=3 got=%d", sum.PagesScanned)
	}
	byID := map[uuid.UUID]*PageScore{}
	for i := range sum.Pages {
		byID[sum.Pages[i].PageID] = &sum.Pages[i]
	}
	if ps := byID[good.ID]; ps == nil || ps.Score != 100 || len(ps.Issues) != 0 {
		t.Fatalf("good page: %+v", ps)
	}
	if got := issueTypes(byID[a.ID]); !got["duplicate_content"] || !got["missing_h1"] {
		t.Fatalf("austin issues: %v", got)
	}
	if got := issueTypes(byID[d.ID]); !got["duplicate_content"] {
		t.Fatalf("dallas issues: %v", got)
	}
	if sum.CriticalCount != 1 {
		t.Fatalf("critical count: want=1 got=%d", sum.CriticalCount)
	}

	critical, err := h.audit.Issues(ctx, "critical")
	if err != nil {
		t.Fatalf("Issues: %v", err)
	}
	if critical.RunID == nil || *critical.RunID != sum.RunID || len(critical.Issues) != 1 || critical.Issues[0].PageID != a.ID {
		t.Fatalf("critical issues: %+v", critical)
	}
	if _, err := h.audit.Issues(ctx, "severe"); apierr.StatusOf(err) != http.StatusBadRequest {
		t.Fatalf("Issues(bad severity): want 400 got %v", err)
	}

	score, err := h.audit.PageScore(ctx, d.ID)
	if err != nil || score.Score != 100-15 {
		t.Fatalf("PageScore: score=%+v err=%v", score, err)
	}
	if _, err := h.audit.PageScore(ctx, uuid.New()); apierr.StatusOf(err) != http.StatusNotFound {
		t.Fatalf("PageScore(unknown): want 404 got %v", err)
	}
}

func TestFixIssuesRewritesMetaAndVersions(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	tx := h.seedState(t, "Texas", "TX", "texas")
	page := testutil.SeedPage(t, ctx, h.db, types.PageTypeState, tx.ID, "texas",
		auditContent(types.PageTypeState, "Texas", "TX", "Statewide dental guide."))

	h.ai.script(nil, `{"meta_title":"Texas Dentists | Compare Local Dental Care","meta_description":"`+strings.Repeat("d", 140)+`","h1":"Dentists in Texas"}`)
	actor := uuid.New()
	sum, err := h.audit.FixIssues(ctx, FixInput{PageIDs: []uuid.UUID{page.ID}, StartedBy: &actor})
	if err != nil {
		t.Fatalf("FixIssues: %v", err)
	}
	if sum.Succeeded != 1 || sum.Failed != 0 {
		t.Fatalf("summary: %+v", sum)
	}
	fixed, ok := sum.Results[0].Data.(*FixedPage)
	if !ok || fixed.ScoreAfter <= fixed.ScoreBefore || fixed.VersionNumber != 1 {
		t.Fatalf("fixed page: %+v", sum.Results[0].Data)
	}

	stored, err := h.pages.GetByID(h.dbc, page.ID)
	if err != nil || stored.H1 != "Dentists in Texas" || stored.MetaTitle != "Texas Dentists | Compare Local Dental Care" {
		t.Fatalf("stored page: %+v err=%v", stored, err)
	}
	versions, err := h.versions.ListByPage(h.dbc, page.ID)
	if err != nil || len(versions) != 1 || versions[0].ChangeTrigger != seo.TriggerSEOFix || versions[0].ChangedBy != actor.String() {
		t.Fatalf("versions: %+v err=%v", versions, err)
	}

	// A fix that still violates the length table is rejected per page.
	h.ai.script(nil, `{"meta_title":"Short","meta_description":"","h1":""}`)
	sum, err = h.audit.FixIssues(ctx, FixInput{PageIDs: []uuid.UUID{page.ID}})
	if err != nil {
		t.Fatalf("FixIssues: %v", err)
	}
	if sum.Failed != 1 || !strings.Contains(sum.Results[0].Error, "Fix rejected") {
		t.Fatalf("rejected fix: %+v", sum)
	}
}
