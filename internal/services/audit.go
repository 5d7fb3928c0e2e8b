package services

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/yungbote/geoseo-backend/internal/batch"
	"github.com/yungbote/geoseo-backend/internal/data/repos"
	types "github.com/yungbote/geoseo-backend/internal/domain"
	"github.com/yungbote/geoseo-backend/internal/domain/seo"
	"github.com/yungbote/geoseo-backend/internal/modules/geoseo/content"
	"github.com/yungbote/geoseo-backend/internal/modules/geoseo/rules"
	"github.com/yungbote/geoseo-backend/internal/modules/geoseo/similarity"
	"github.com/yungbote/geoseo-backend/internal/platform/apierr"
	"github.com/yungbote/geoseo-backend/internal/platform/dbctx"
	"github.com/yungbote/geoseo-backend/internal/platform/logger"
)

const defaultFixLimit = 10

type PageIssue struct {
	PageID   uuid.UUID      `json:"pageId"`
	Slug     string         `json:"slug"`
	PageType types.PageType `json:"pageType"`
	rules.Issue
}

type PageScore struct {
	PageID            uuid.UUID      `json:"pageId"`
	Slug              string         `json:"slug"`
	PageType          types.PageType `json:"pageType"`
	Score             int            `json:"score"`
	Issues            []rules.Issue  `json:"issues"`
	NeedsOptimization bool           `json:"needsOptimization"`
}

type AuditSummary struct {
	RunID             uuid.UUID   `json:"runId"`
	PagesScanned      int         `json:"pagesScanned"`
	IssuesFound       int         `json:"issuesFound"`
	CriticalCount     int         `json:"criticalCount"`
	AverageScore      float64     `json:"averageScore"`
	NeedsOptimization []uuid.UUID `json:"needsOptimization"`
	Pages             []PageScore `json:"pages"`
}

type IssuesResult struct {
	RunID       *uuid.UUID  `json:"runId"`
	CompletedAt *time.Time  `json:"completedAt,omitempty"`
	Issues      []PageIssue `json:"issues"`
}

type FixInput struct {
	PageIDs   []uuid.UUID
	Limit     int
	StartedBy *uuid.UUID
}

type FixedPage struct {
	PageID          uuid.UUID `json:"pageId"`
	MetaTitle       string    `json:"metaTitle"`
	MetaDescription string    `json:"metaDescription"`
	H1              string    `json:"h1"`
	ScoreBefore     int       `json:"scoreBefore"`
	ScoreAfter      int       `json:"scoreAfter"`
	VersionNumber   int       `json:"versionNumber"`
}

type AuditService interface {
	FullAudit(ctx context.Context, startedBy *uuid.UUID) (*AuditSummary, error)
	// Issues returns the latest completed audit's issues, optionally filtered
	// by severity.
	Issues(ctx context.Context, severity string) (*IssuesResult, error)
	FixIssues(ctx context.Context, in FixInput) (*batch.Summary, error)
	PageScore(ctx context.Context, pageID uuid.UUID) (*PageScore, error)
}

type auditService struct {
	db        *gorm.DB
	log       *logger.Logger
	pages     repos.PageRepo
	versions  repos.VersionRepo
	runs      repos.AuditRunRepo
	generator *content.Generator
	runner    *batch.Runner
	policy    rules.Policy
}

func NewAuditService(
	db *gorm.DB,
	baseLog *logger.Logger,
	pages repos.PageRepo,
	versions repos.VersionRepo,
	runs repos.AuditRunRepo,
	generator *content.Generator,
	runner *batch.Runner,
) AuditService {
	return &auditService{
		db:        db,
		log:       baseLog.With("service", "AuditService"),
		pages:     pages,
		versions:  versions,
		runs:      runs,
		generator: generator,
		runner:    runner,
		policy:    rules.AuditPolicy,
	}
}

func (s *auditService) FullAudit(ctx context.Context, startedBy *uuid.UUID) (*AuditSummary, error) {
	dbc := dbctx.Context{Ctx: ctx}
	run := &types.AuditRun{
		ID:        uuid.New(),
		RunType:   seo.AuditRunFull,
		Status:    seo.AuditStatusRunning,
		StartedBy: startedBy,
	}
	if err := s.runs.Create(dbc, run); err != nil {
		return nil, err
	}

	pages, err := s.pages.ListAll(dbc, "")
	if err != nil {
		s.failRun(ctx, run.ID, err)
		return nil, err
	}
	scores := s.scoreAll(pages)

	sum := &AuditSummary{RunID: run.ID, PagesScanned: len(scores), NeedsOptimization: []uuid.UUID{}, Pages: scores}
	issues := []PageIssue{}
	total := 0
	for _, ps := range scores {
		total += ps.Score
		if ps.NeedsOptimization {
			sum.NeedsOptimization = append(sum.NeedsOptimization, ps.PageID)
		}
		for _, is := range ps.Issues {
			issues = append(issues, PageIssue{PageID: ps.PageID, Slug: ps.Slug, PageType: ps.PageType, Issue: is})
			if is.Severity == rules.SeverityCritical {
				sum.CriticalCount++
			}
		}
	}
	sum.IssuesFound = len(issues)
	if len(scores) > 0 {
		sum.AverageScore = math.Round(float64(total)/float64(len(scores))*10) / 10
	}

	issuesRaw, err := json.Marshal(issues)
	if err != nil {
		return nil, err
	}
	needsRaw, err := json.Marshal(sum.NeedsOptimization)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	if err := s.runs.UpdateFields(dbc, run.ID, map[string]interface{}{
		"status":             seo.AuditStatusCompleted,
		"pages_scanned":      sum.PagesScanned,
		"issues_found":       sum.IssuesFound,
		"critical_count":     sum.CriticalCount,
		"average_score":      sum.AverageScore,
		"issues":             datatypes.JSON(issuesRaw),
		"needs_optimization": datatypes.JSON(needsRaw),
		"completed_at":       now,
	}); err != nil {
		return nil, err
	}
	s.log.Info("audit completed",
		"run_id", run.ID,
		"pages", sum.PagesScanned,
		"issues", sum.IssuesFound,
		"critical", sum.CriticalCount,
		"average_score", sum.AverageScore,
		"started_by", startedBy,
	)
	return sum, nil
}

func (s *auditService) failRun(ctx context.Context, runID uuid.UUID, cause error) {
	err := s.runs.UpdateFields(dbctx.Context{Ctx: context.WithoutCancel(ctx)}, runID, map[string]interface{}{
		"status":        seo.AuditStatusFailed,
		"error_message": cause.Error(),
		"completed_at":  time.Now().UTC(),
	})
	if err != nil {
		s.log.Warn("mark audit run failed", "run_id", runID, "error", err)
	}
}

type auditedPage struct {
	page    *types.Page
	content *types.PageContent
}

// scoreAll flags duplicates within each page type before scoring: equal meta
// titles, or intros above the similarity threshold.
func (s *auditService) scoreAll(pages []*types.Page) []PageScore {
	audited := make([]auditedPage, 0, len(pages))
	for _, p := range pages {
		c, err := p.DecodeContent()
		if err != nil {
			s.log.Warn("undecodable page content", "page_id", p.ID, "error", err)
		}
		audited = append(audited, auditedPage{page: p, content: c})
	}
	dup := make([]bool, len(audited))
	for i := range audited {
		for j := i + 1; j < len(audited); j++ {
			if isDuplicate(audited[i], audited[j]) {
				dup[i], dup[j] = true, true
			}
		}
	}
	out := make([]PageScore, 0, len(audited))
	for i, a := range audited {
		out = append(out, s.score(a, dup[i]))
	}
	return out
}

func isDuplicate(a, b auditedPage) bool {
	if a.page.PageType != b.page.PageType {
		return false
	}
	ta, tb := strings.TrimSpace(a.page.MetaTitle), strings.TrimSpace(b.page.MetaTitle)
	if ta != "" && strings.EqualFold(ta, tb) {
		return true
	}
	if a.content == nil || b.content == nil {
		return false
	}
	return similarity.Jaccard(a.content.Intro, b.content.Intro) > rules.DuplicateSimilarityThreshold
}

func (s *auditService) score(a auditedPage, duplicate bool) PageScore {
	f := rules.PageFields{
		MetaTitle:       a.page.MetaTitle,
		MetaDescription: a.page.MetaDescription,
		H1:              a.page.H1,
		WordCount:       a.page.WordCount,
		Duplicate:       duplicate,
	}
	if a.content != nil {
		f.Sections = a.content.Sections()
		f.Text = a.content.Serialized()
		if f.WordCount == 0 {
			f.WordCount = a.content.CountWords()
		}
	} else {
		f.Text = strings.Join([]string{a.page.H1, a.page.MetaTitle, a.page.MetaDescription}, "\n")
	}
	res := rules.Score(f, s.policy)
	return PageScore{
		PageID:            a.page.ID,
		Slug:              a.page.Slug,
		PageType:          a.page.PageType,
		Score:             res.Score,
		Issues:            res.Issues,
		NeedsOptimization: res.NeedsOptimization,
	}
}

func (s *auditService) latestRun(ctx context.Context) (*types.AuditRun, error) {
	return s.runs.GetLatestCompleted(dbctx.Context{Ctx: ctx}, seo.AuditRunFull)
}

func (s *auditService) Issues(ctx context.Context, severity string) (*IssuesResult, error) {
	var want rules.Severity
	if severity != "" {
		sev, ok := rules.ParseSeverity(severity)
		if !ok {
			return nil, apierr.BadRequest("Unknown severity: %s", severity)
		}
		want = sev
	}
	run, err := s.latestRun(ctx)
	if err != nil {
		return nil, err
	}
	out := &IssuesResult{Issues: []PageIssue{}}
	if run == nil {
		return out, nil
	}
	out.RunID, out.CompletedAt = &run.ID, run.CompletedAt
	var all []PageIssue
	if len(run.Issues) > 0 {
		if err := json.Unmarshal(run.Issues, &all); err != nil {
			return nil, fmt.Errorf("decode audit issues: %w", err)
		}
	}
	for _, is := range all {
		if want == "" || is.Severity == want {
			out.Issues = append(out.Issues, is)
		}
	}
	return out, nil
}

func (s *auditService) PageScore(ctx context.Context, pageID uuid.UUID) (*PageScore, error) {
	dbc := dbctx.Context{Ctx: ctx}
	page, err := s.pages.GetByID(dbc, pageID)
	if err != nil {
		return nil, err
	}
	if page == nil {
		return nil, apierr.NotFound("Page")
	}
	peers, err := s.pages.ListAll(dbc, page.PageType)
	if err != nil {
		return nil, err
	}
	scores := s.scoreAll(peers)
	for i := range scores {
		if scores[i].PageID == page.ID {
			return &scores[i], nil
		}
	}
	return nil, apierr.NotFound("Page")
}

func (s *auditService) FixIssues(ctx context.Context, in FixInput) (*batch.Summary, error) {
	limit := in.Limit
	if limit <= 0 {
		limit = defaultFixLimit
	}
	ids := in.PageIDs
	if len(ids) == 0 {
		run, err := s.latestRun(ctx)
		if err != nil {
			return nil, err
		}
		if run != nil && len(run.NeedsOptimization) > 0 {
			if err := json.Unmarshal(run.NeedsOptimization, &ids); err != nil {
				return nil, fmt.Errorf("decode needs_optimization: %w", err)
			}
		}
	}
	if len(ids) > limit {
		ids = ids[:limit]
	}
	sum := s.runner.Run(ctx, ids, func(ctx context.Context, id uuid.UUID) (any, error) {
		return s.fixPage(ctx, id, in.StartedBy)
	})
	s.log.Info("fix issues finished", "requested", len(ids), "fixed", sum.Succeeded, "failed", sum.Failed, "stopped", sum.Stopped, "started_by", in.StartedBy)
	return &sum, nil
}

func (s *auditService) fixPage(ctx context.Context, pageID uuid.UUID, actor *uuid.UUID) (*FixedPage, error) {
	before, err := s.PageScore(ctx, pageID)
	if err != nil {
		return nil, err
	}
	page, err := s.pages.GetByID(dbctx.Context{Ctx: ctx}, pageID)
	if err != nil {
		return nil, err
	}
	if page == nil {
		return nil, apierr.NotFound("Page")
	}
	c, err := page.DecodeContent()
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, apierr.BadRequest("Page has no content to fix")
	}

	problems := make([]string, 0, len(before.Issues))
	for _, is := range before.Issues {
		problems = append(problems, is.Message)
	}
	fix, err := s.generator.FixMeta(ctx, content.FixInput{
		Slug:            page.Slug,
		PageType:        page.PageType,
		MetaTitle:       page.MetaTitle,
		MetaDescription: page.MetaDescription,
		H1:              page.H1,
		Intro:           c.Intro,
		Problems:        problems,
	}, s.policy)
	if err != nil {
		return nil, err
	}

	updated := *c
	updated.MetaTitle, updated.MetaDescription, updated.H1 = fix.MetaTitle, fix.MetaDescription, fix.H1
	if res := rules.Validate(updated, s.policy); !res.Valid {
		return nil, apierr.Unprocessable("Fix rejected: %s", strings.Join(res.Errors, "; "))
	}
	raw, err := json.Marshal(updated)
	if err != nil {
		return nil, err
	}

	out := &FixedPage{PageID: page.ID, MetaTitle: fix.MetaTitle, MetaDescription: fix.MetaDescription, H1: fix.H1, ScoreBefore: before.Score}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dbc := dbctx.Context{Ctx: ctx, Tx: tx}
		prior := page.Snapshot()
		page.GenerationVersion++
		if err := s.pages.UpdateFields(dbc, page.ID, map[string]interface{}{
			"h1":                 fix.H1,
			"meta_title":         fix.MetaTitle,
			"meta_description":   fix.MetaDescription,
			"content":            datatypes.JSON(raw),
			"generation_version": page.GenerationVersion,
		}); err != nil {
			return err
		}
		page.H1, page.MetaTitle, page.MetaDescription, page.Content = fix.H1, fix.MetaTitle, fix.MetaDescription, datatypes.JSON(raw)
		next := page.Snapshot()
		v, err := appendVersion(dbc, s.versions, versionEntry{
			Page:      page,
			Trigger:   seo.TriggerSEOFix,
			Old:       &prior,
			New:       &next,
			ChangedBy: changedBy("", actor),
		})
		if err != nil {
			return err
		}
		out.VersionNumber = v.VersionNumber
		return nil
	})
	if err != nil {
		return nil, err
	}
	after, err := s.PageScore(ctx, pageID)
	if err == nil {
		out.ScoreAfter = after.Score
	}
	return out, nil
}
