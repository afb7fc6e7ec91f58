package models

import "time"

// Status is the moderation lifecycle state of an admitted event.
// The crawler only ever produces StatusDraft; the admin panel moves
// events to verified/published/rejected.
type Status string

const (
	StatusDraft     Status = "draft"
	StatusVerified  Status = "verified"
	StatusPublished Status = "published"
	StatusRejected  Status = "rejected"
)

// RawEvent holds one listing exactly as an adapter scraped it, in the
// source's native shape. It is never persisted as-is and carries no
// identity beyond SourceID + OriginURL.
type RawEvent struct {
	SourceID       string
	OriginURL      string
	RawTitle       string
	RawDescription string
	RawDate        string
	RawLocation    string
	RawPrice       string
	RawImage       string
	Metadata       map[string]string
	FetchedAt      time.Time
	Source         string
}

// NormalizedEvent is the canonical, schema-fixed record produced by the
// normalizer. Date and Time are always populated (defaulted when the
// source omits them) so downstream code never branches on missing
// temporal data.
type NormalizedEvent struct {
	Title         string
	Description   string
	Date          string // YYYY-MM-DD
	Time          string // HH:mm, 24-hour
	LocationName  string
	Address       string
	Latitude      float64
	Longitude     float64
	ImageURL      string
	Price         int // smallest currency unit, 0 = free/unknown
	Currency      string
	Tags          []string
	OrganizerName string
	SourceURL     string
}

// EnrichedEvent is a NormalizedEvent plus the workflow-computed fields.
// Every EnrichedEvent handed back from a crawl has Status == StatusDraft
// and a Hash that was absent from the store at admission time.
type EnrichedEvent struct {
	NormalizedEvent

	Hash                  string
	Status                Status
	ConfidenceScore       float64
	ComplianceCheckPassed bool
	Source                string
	AdmittedAt            time.Time
}
