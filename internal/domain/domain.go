package domain

import (
	"github.com/yungbote/geoseo-backend/internal/domain/auth"
	"github.com/yungbote/geoseo-backend/internal/domain/geo"
	"github.com/yungbote/geoseo-backend/internal/domain/seo"
)

type SEOStatus = geo.SEOStatus

const (
	SEOStatusInactive = geo.SEOStatusInactive
	SEOStatusDraft    = geo.SEOStatusDraft
	SEOStatusLive     = geo.SEOStatusLive
)

type State = geo.State
type City = geo.City

type PageType = seo.PageType

const (
	PageTypeState = seo.PageTypeState
	PageTypeCity  = seo.PageTypeCity
)

type QueueStatus = seo.QueueStatus

const (
	QueueStatusPending    = seo.QueueStatusPending
	QueueStatusProcessing = seo.QueueStatusProcessing
	QueueStatusGenerated  = seo.QueueStatusGenerated
	QueueStatusPublished  = seo.QueueStatusPublished
	QueueStatusFailed     = seo.QueueStatusFailed
)

type PageContent = seo.PageContent
type FAQEntry = seo.FAQEntry
type InternalLink = seo.InternalLink
type StateDetails = seo.StateDetails
type CityDetails = seo.CityDetails
type QueueItem = seo.QueueItem
type Page = seo.Page
type PageSnapshot = seo.PageSnapshot
type VersionRecord = seo.VersionRecord
type Setting = seo.Setting
type AuditRun = seo.AuditRun

type UserRole = auth.UserRole
