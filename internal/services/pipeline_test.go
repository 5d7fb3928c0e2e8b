package services

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/yungbote/geoseo-backend/internal/data/repos"
	"github.com/yungbote/geoseo-backend/internal/data/repos/testutil"
	types "github.com/yungbote/geoseo-backend/internal/domain"
	"github.com/yungbote/geoseo-backend/internal/domain/seo"
	"github.com/yungbote/geoseo-backend/internal/platform/apierr"
)

const texasIntro = "Texas families can compare licensed dental offices across every major metro area."

func TestEnqueueIsIdempotentAndListingsJumpTheQueue(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	tx := h.seedState(t, "Texas", "TX", "texas")
	ohio := h.seedState(t, "Ohio", "OH", "ohio")

	first, err := h.queue.Enqueue(ctx, EnqueueInput{PageType: types.PageTypeState, EntityID: tx.ID, TriggeredBy: "admin"})
	if err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	if !first.Created || first.Item.Status != types.QueueStatusPending || first.Item.Priority != 0 {
		t.Fatalf("first enqueue: created=%v status=%s priority=%d", first.Created, first.Item.Status, first.Item.Priority)
	}
	again, err := h.queue.Enqueue(ctx, EnqueueInput{PageType: types.PageTypeState, EntityID: tx.ID, TriggeredBy: "admin"})
	if err != nil {
		t.Fatalf("Enqueue(again): %v", err)
	}
	if again.Created || again.Item.ID != first.Item.ID {
		t.Fatalf("second enqueue: created=%v id=%s want id=%s", again.Created, again.Item.ID, first.Item.ID)
	}

	listing, err := h.queue.Enqueue(ctx, EnqueueInput{PageType: types.PageTypeState, EntityID: ohio.ID, TriggeredBy: seo.TriggeredByListing})
	if err != nil {
		t.Fatalf("Enqueue(listing): %v", err)
	}
	if listing.Item.Priority != seo.ListingPriority {
		t.Fatalf("listing priority: want=%d got=%d", seo.ListingPriority, listing.Item.Priority)
	}
	if listing.Item.EntitySlug != "ohio" {
		t.Fatalf("entity slug: got=%q", listing.Item.EntitySlug)
	}

	items, err := h.queue.List(ctx, repos.QueueFilter{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(items) != 2 || items[0].ID != listing.Item.ID {
		t.Fatalf("List: expected listing item first, got %d items", len(items))
	}

	if _, err := h.queue.Enqueue(ctx, EnqueueInput{PageType: types.PageTypeState, EntityID: uuid.New()}); apierr.StatusOf(err) != http.StatusNotFound {
		t.Fatalf("Enqueue(unknown state): want 404 got %v", err)
	}
}

func TestRejectMarksItemFailed(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	tx := h.seedState(t, "Texas", "TX", "texas")
	item := testutil.SeedQueueItem(t, ctx, h.db, types.PageTypeState, tx.ID, "texas", types.QueueStatusGenerated)

	got, err := h.queue.Reject(ctx, item.ID)
	if err != nil {
		t.Fatalf("Reject: %v", err)
	}
	if got.Status != types.QueueStatusFailed || got.ErrorMessage != seo.RejectedMessage {
		t.Fatalf("Reject: status=%s msg=%q", got.Status, got.ErrorMessage)
	}
	if stored := h.reloadItem(t, item.ID); stored.Status != types.QueueStatusFailed {
		t.Fatalf("stored status: got=%s", stored.Status)
	}
	if _, err := h.queue.Reject(ctx, uuid.New()); apierr.StatusOf(err) != http.StatusNotFound {
		t.Fatalf("Reject(unknown): want 404 got %v", err)
	}
}

func TestRejectedItemCannotBePublished(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	tx := h.seedState(t, "Texas", "TX", "texas")

	item, res := h.generateState(t, tx, pageReply(t, texasIntro, nil))
	if !res.Success {
		t.Fatalf("Generate: %q", res.Error)
	}
	if _, err := h.queue.Reject(ctx, item.ID); err != nil {
		t.Fatalf("Reject: %v", err)
	}

	if _, err := h.publisher.Publish(ctx, PublishInput{QueueID: item.ID}); apierr.StatusOf(err) != http.StatusConflict {
		t.Fatalf("Publish(rejected): want 409 got %v", err)
	}
	if stored := h.reloadItem(t, item.ID); stored.Status != types.QueueStatusFailed || stored.PublishedAt != nil {
		t.Fatalf("queue item: want failed got %s", stored.Status)
	}
	if st := h.reloadState(t, tx.ID); st.SEOStatus == types.SEOStatusLive || st.PageExists {
		t.Fatalf("state: status=%s exists=%v", st.SEOStatus, st.PageExists)
	}
	if page, err := h.pages.GetBySlug(h.dbc, "texas", types.PageTypeState); err != nil || page != nil {
		t.Fatalf("expected no page, got page=%v err=%v", page, err)
	}
}

func TestTexasGeneratePublishFlow(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	tx := h.seedState(t, "Texas", "TX", "texas")

	item, res := h.generateState(t, tx, pageReply(t, texasIntro, nil))
	if !res.Success || !res.ValidationPass {
		t.Fatalf("Generate: success=%v passed=%v err=%q", res.Success, res.ValidationPass, res.Error)
	}
	if res.ConfidenceScore != 1 {
		t.Fatalf("confidence: want=1 got=%v", res.ConfidenceScore)
	}
	stored := h.reloadItem(t, item.ID)
	if stored.Status != types.QueueStatusGenerated || stored.GenerationAttempts != 1 || stored.LastAttemptAt == nil {
		t.Fatalf("queue item after generate: status=%s attempts=%d", stored.Status, stored.GenerationAttempts)
	}
	if st := h.reloadState(t, tx.ID); st.SEOStatus != types.SEOStatusDraft {
		t.Fatalf("state after generate: want draft got %s", st.SEOStatus)
	}

	pub, err := h.publisher.Publish(ctx, PublishInput{QueueID: item.ID})
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if pub.Slug != "texas" || !pub.Created || pub.VersionNumber != 1 || pub.IsThinContent {
		t.Fatalf("Publish: %+v", pub)
	}
	page, err := h.pages.GetBySlug(h.dbc, "texas", types.PageTypeState)
	if err != nil || page == nil {
		t.Fatalf("GetBySlug: page=%v err=%v", page, err)
	}
	if page.WordCount < 300 || !page.IsIndexed {
		t.Fatalf("page: words=%d indexed=%v", page.WordCount, page.IsIndexed)
	}
	st := h.reloadState(t, tx.ID)
	if st.SEOStatus != types.SEOStatusLive || !st.PageExists || st.SEOPageID == nil || *st.SEOPageID != page.ID {
		t.Fatalf("state after publish: status=%s exists=%v page=%v", st.SEOStatus, st.PageExists, st.SEOPageID)
	}
	if stored := h.reloadItem(t, item.ID); stored.Status != types.QueueStatusPublished || stored.PublishedAt == nil {
		t.Fatalf("queue item after publish: status=%s", stored.Status)
	}
	versions, err := h.versions.ListByPage(h.dbc, page.ID)
	if err != nil {
		t.Fatalf("ListByPage: %v", err)
	}
	if len(versions) != 1 || versions[0].ChangeTrigger != seo.TriggerNewPage || !isNullJSON(versions[0].OldValue) {
		t.Fatalf("versions after publish: %+v", versions)
	}

	if _, err := h.publisher.Publish(ctx, PublishInput{QueueID: item.ID}); apierr.StatusOf(err) != http.StatusConflict {
		t.Fatalf("Publish(again): want 409 got %v", err)
	}
	if _, err := h.generator.Generate(ctx, GenerateInput{PageType: types.PageTypeState, EntityID: tx.ID, QueueID: &item.ID}); apierr.StatusOf(err) != http.StatusConflict {
		t.Fatalf("Generate(published): want 409 got %v", err)
	}
}

func TestBannedPhraseBlocksPublish(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	tx := h.seedState(t, "Texas", "TX", "texas")

	item, res := h.generateState(t, tx, pageReply(t, "Looking for the best dentist in Texas? Start with licensed local offices.", nil))
	if !res.Success {
		t.Fatalf("Generate: %q", res.Error)
	}
	if res.ConfidenceScore > 0.85 {
		t.Fatalf("confidence: want <= 0.85 got=%v", res.ConfidenceScore)
	}

	_, err := h.publisher.Publish(ctx, PublishInput{QueueID: item.ID})
	if apierr.StatusOf(err) != http.StatusUnprocessableEntity {
		t.Fatalf("Publish: want 422 got %v", err)
	}
	if !strings.Contains(err.Error(), "best dentist in") {
		t.Fatalf("Publish error should name the phrase: %q", err.Error())
	}
}

func TestFailedValidationLeavesStateUntouched(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	tx := h.seedState(t, "Texas", "TX", "texas")

	item, res := h.generateState(t, tx, pageReply(t, texasIntro, func(m map[string]any) {
		m["meta_title"] = "Texas Dentists"
	}))
	if !res.Success || res.ConfidenceScore != 0.9 {
		t.Fatalf("Generate: success=%v confidence=%v", res.Success, res.ConfidenceScore)
	}

	_, err := h.publisher.Publish(ctx, PublishInput{QueueID: item.ID})
	if apierr.StatusOf(err) != http.StatusUnprocessableEntity || !strings.HasPrefix(err.Error(), "Validation failed: ") {
		t.Fatalf("Publish: want 422 validation failure got %v", err)
	}
	if stored := h.reloadItem(t, item.ID); stored.Status != types.QueueStatusGenerated {
		t.Fatalf("queue item: want generated got %s", stored.Status)
	}
	st := h.reloadState(t, tx.ID)
	if st.SEOStatus != types.SEOStatusDraft || st.PageExists {
		t.Fatalf("state: status=%s exists=%v", st.SEOStatus, st.PageExists)
	}
	if page, err := h.pages.GetBySlug(h.dbc, "texas", types.PageTypeState); err != nil || page != nil {
		t.Fatalf("expected no page, got page=%v err=%v", page, err)
	}
}

func TestValidationPassedFollowsConfidence(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	tx := h.seedState(t, "Texas", "TX", "texas")

	item, res := h.generateState(t, tx, pageReply(t, texasIntro, func(m map[string]any) {
		m["meta_title"] = "Texas Dentists"
	}))
	if !res.Success || !res.ValidationPass {
		t.Fatalf("Generate: success=%v passed=%v", res.Success, res.ValidationPass)
	}
	generated := h.reloadItem(t, item.ID).SEOValidationPassed

	v, err := h.generator.Validate(ctx, item.ID)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if v.Valid || v.ConfidenceScore != res.ConfidenceScore {
		t.Fatalf("Validate: valid=%v confidence=%v", v.Valid, v.ConfidenceScore)
	}
	if stored := h.reloadItem(t, item.ID).SEOValidationPassed; stored != generated {
		t.Fatalf("seo_validation_passed: want=%v got=%v", generated, stored)
	}
}

func TestPublishRequiresContent(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	tx := h.seedState(t, "Texas", "TX", "texas")
	item := testutil.SeedQueueItem(t, ctx, h.db, types.PageTypeState, tx.ID, "texas", types.QueueStatusPending)

	if _, err := h.publisher.Publish(ctx, PublishInput{QueueID: item.ID}); apierr.StatusOf(err) != http.StatusBadRequest {
		t.Fatalf("Publish(no content): want 400 got %v", err)
	}
	if _, err := h.publisher.Publish(ctx, PublishInput{QueueID: uuid.New()}); apierr.StatusOf(err) != http.StatusNotFound {
		t.Fatalf("Publish(unknown): want 404 got %v", err)
	}
}

func TestGeneratorFailureIsRecordedAndRetryResetsAttempts(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	tx := h.seedState(t, "Texas", "TX", "texas")
	enq, err := h.queue.Enqueue(ctx, EnqueueInput{PageType: types.PageTypeState, EntityID: tx.ID})
	if err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	id := enq.Item.ID

	h.ai.script(errors.New("upstream returned 503"))
	res, err := h.generator.Generate(ctx, GenerateInput{PageType: types.PageTypeState, EntityID: tx.ID, QueueID: &id})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if res.Success || res.Error == "" {
		t.Fatalf("Generate: want failure result got %+v", res)
	}
	stored := h.reloadItem(t, id)
	if stored.Status != types.QueueStatusFailed || stored.ErrorMessage != res.Error {
		t.Fatalf("queue item: status=%s msg=%q", stored.Status, stored.ErrorMessage)
	}

	h.ai.script(nil, pageReply(t, texasIntro, nil))
	if res, err = h.generator.Generate(ctx, GenerateInput{PageType: types.PageTypeState, EntityID: tx.ID, QueueID: &id}); err != nil || !res.Success {
		t.Fatalf("Generate(retry): res=%+v err=%v", res, err)
	}
	stored = h.reloadItem(t, id)
	if stored.Status != types.QueueStatusGenerated || stored.GenerationAttempts != 1 || stored.ErrorMessage != "" {
		t.Fatalf("after retry: status=%s attempts=%d msg=%q", stored.Status, stored.GenerationAttempts, stored.ErrorMessage)
	}
}

func TestPreviewGenerationWritesNoQueueRow(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	tx := h.seedState(t, "Texas", "TX", "texas")
	h.ai.script(nil, pageReply(t, texasIntro, nil))

	res, err := h.generator.Generate(ctx, GenerateInput{PageType: types.PageTypeState, EntityID: tx.ID})
	if err != nil || !res.Success {
		t.Fatalf("Generate: res=%+v err=%v", res, err)
	}
	if res.QueueID != nil {
		t.Fatalf("preview should not reference a queue item")
	}
	items, err := h.queue.List(ctx, repos.QueueFilter{})
	if err != nil || len(items) != 0 {
		t.Fatalf("queue: items=%d err=%v", len(items), err)
	}
	st := h.reloadState(t, tx.ID)
	if st.SEOStatus != types.SEOStatusDraft || st.AIConfidenceScore == nil || *st.AIConfidenceScore != 1 {
		t.Fatalf("state: status=%s score=%v", st.SEOStatus, st.AIConfidenceScore)
	}
}

func TestCityGenerationPenalisesDuplicateIntro(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	tx := h.seedState(t, "Texas", "TX", "texas")
	austin := testutil.SeedCity(t, ctx, h.db, tx, "Austin", "austin")
	dallas := testutil.SeedCity(t, ctx, h.db, tx, "Dallas", "dallas")

	shared := "Residents across this growing city can compare licensed dental offices, evening appointments and insurance options."
	testutil.SeedPage(t, ctx, h.db, types.PageTypeCity, austin.ID, "texas/austin", types.PageContent{
		PageType: types.PageTypeCity,
		Intro:    shared,
		City:     &types.CityDetails{},
	})

	enq, err := h.queue.Enqueue(ctx, EnqueueInput{PageType: types.PageTypeCity, EntityID: dallas.ID})
	if err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	if enq.Item.StateSlug != "texas" || enq.Item.EntitySlug != "dallas" {
		t.Fatalf("city queue slugs: state=%q entity=%q", enq.Item.StateSlug, enq.Item.EntitySlug)
	}
	h.ai.script(nil, pageReply(t, shared, nil))
	id := enq.Item.ID
	res, err := h.generator.Generate(ctx, GenerateInput{PageType: types.PageTypeCity, EntityID: dallas.ID, QueueID: &id})
	if err != nil || !res.Success {
		t.Fatalf("Generate: res=%+v err=%v", res, err)
	}
	if res.ConfidenceScore != 0.7 {
		t.Fatalf("confidence: want=0.7 got=%v", res.ConfidenceScore)
	}

	pub, err := h.publisher.Publish(ctx, PublishInput{QueueID: id})
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if pub.Slug != "texas/dallas" {
		t.Fatalf("city page slug: got=%q", pub.Slug)
	}
}

func TestRollbackOfNewPageDeletesIt(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	tx := h.seedState(t, "Texas", "TX", "texas")
	item, _ := h.generateState(t, tx, pageReply(t, texasIntro, nil))
	pub, err := h.publisher.Publish(ctx, PublishInput{QueueID: item.ID})
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}
	versions, err := h.versions.ListByPage(h.dbc, pub.PageID)
	if err != nil || len(versions) != 1 {
		t.Fatalf("ListByPage: n=%d err=%v", len(versions), err)
	}

	actor := uuid.New()
	res, err := h.rollback.Rollback(ctx, RollbackInput{PageID: pub.PageID, VersionID: versions[0].ID, ChangedBy: &actor})
	if err != nil {
		t.Fatalf("Rollback: %v", err)
	}
	if !res.Deleted || res.VersionNumber != 2 {
		t.Fatalf("Rollback: %+v", res)
	}
	if page, err := h.pages.GetByID(h.dbc, pub.PageID); err != nil || page != nil {
		t.Fatalf("page should be gone: page=%v err=%v", page, err)
	}
	st := h.reloadState(t, tx.ID)
	if st.SEOStatus != types.SEOStatusInactive || st.PageExists || st.SEOPageID != nil {
		t.Fatalf("state: status=%s exists=%v page=%v", st.SEOStatus, st.PageExists, st.SEOPageID)
	}
	versions, err = h.versions.ListByPage(h.dbc, pub.PageID)
	if err != nil || len(versions) != 2 {
		t.Fatalf("ListByPage(after): n=%d err=%v", len(versions), err)
	}
	last := versions[1]
	if last.ChangeTrigger != seo.TriggerRollback || last.ChangedBy != actor.String() || !isNullJSON(last.NewValue) {
		t.Fatalf("rollback version: trigger=%s by=%s new=%s", last.ChangeTrigger, last.ChangedBy, last.NewValue)
	}

	if _, err := h.rollback.Rollback(ctx, RollbackInput{PageID: pub.PageID, VersionID: uuid.New()}); apierr.StatusOf(err) != http.StatusNotFound {
		t.Fatalf("Rollback(unknown version): want 404 got %v", err)
	}
	if _, err := h.rollback.Rollback(ctx, RollbackInput{PageID: uuid.New(), VersionID: versions[0].ID}); apierr.StatusOf(err) != http.StatusBadRequest {
		t.Fatalf("Rollback(wrong page): want 400 got %v", err)
	}
}

func TestRollbackOfUpdateRestoresPriorContent(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	tx := h.seedState(t, "Texas", "TX", "texas")

	first, _ := h.generateState(t, tx, pageReply(t, texasIntro, nil))
	if _, err := h.publisher.Publish(ctx, PublishInput{QueueID: first.ID}); err != nil {
		t.Fatalf("Publish(first): %v", err)
	}
	second, _ := h.generateState(t, tx, pageReply(t, "Updated guidance on Texas dental coverage and emergency appointments.", nil))
	pub, err := h.publisher.Publish(ctx, PublishInput{QueueID: second.ID})
	if err != nil {
		t.Fatalf("Publish(second): %v", err)
	}
	if pub.Created || pub.VersionNumber != 2 {
		t.Fatalf("second publish should update: %+v", pub)
	}

	versions, err := h.versions.ListByPage(h.dbc, pub.PageID)
	if err != nil || len(versions) != 2 || versions[1].ChangeTrigger != seo.TriggerUpdate {
		t.Fatalf("ListByPage: %+v err=%v", versions, err)
	}
	res, err := h.rollback.Rollback(ctx, RollbackInput{PageID: pub.PageID, VersionID: versions[1].ID})
	if err != nil {
		t.Fatalf("Rollback: %v", err)
	}
	if !res.Restored || res.VersionNumber != 3 {
		t.Fatalf("Rollback: %+v", res)
	}
	page, err := h.pages.GetByID(h.dbc, pub.PageID)
	if err != nil || page == nil {
		t.Fatalf("GetByID: page=%v err=%v", page, err)
	}
	c, err := page.DecodeContent()
	if err != nil || c == nil || c.Intro != texasIntro {
		t.Fatalf("restored intro: c=%+v err=%v", c, err)
	}
	if page.WordCount != c.CountWords() || page.IsThinContent {
		t.Fatalf("derived fields: words=%d thin=%v", page.WordCount, page.IsThinContent)
	}
	if st := h.reloadState(t, tx.ID); st.SEOStatus != types.SEOStatusLive {
		t.Fatalf("state: want live got %s", st.SEOStatus)
	}
}

func isNullJSON(raw []byte) bool {
	return len(raw) == 0 || string(raw) == "null"
}
