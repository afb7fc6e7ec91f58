package services

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"strings"
	"time"

	"events-crawler/models"
	"events-crawler/utils"
)

// DedupStore is the durable-store lookup the workflow engine needs: has
// an event with this hash ever been admitted, regardless of its current
// moderation status.
type DedupStore interface {
	HasHash(ctx context.Context, hash string) (bool, error)
}

// hashDelimiter joins the hash ingredients. It never appears in a
// trimmed title, date or venue name.
const hashDelimiter = "|"

// draftConfidence is the fixed certainty score assigned by the
// heuristic normalizer path.
const draftConfidence = 0.75

// CrawlerWorkflow fingerprints normalized events, drops duplicates
// against the durable store and stamps the survivors with their initial
// moderation state.
type CrawlerWorkflow struct {
	store  DedupStore
	logger *utils.Logger
	now    func() time.Time
}

// NewCrawlerWorkflow creates a workflow engine backed by the given store.
func NewCrawlerWorkflow(store DedupStore, logger *utils.Logger) *CrawlerWorkflow {
	return &CrawlerWorkflow{store: store, logger: logger, now: time.Now}
}

// GenerateHash computes the dedup fingerprint: the md5 hex digest of the
// lower-cased trimmed title, the date string and the lower-cased trimmed
// venue name, joined by "|". Three weak signals combined survive casing
// and whitespace differences between sources while catching the common
// re-scrape of the same listing. Near-duplicate titles intentionally do
// NOT collide; that false-negative rate is an accepted trade-off.
func (w *CrawlerWorkflow) GenerateHash(ev *models.NormalizedEvent) string {
	key := strings.ToLower(strings.TrimSpace(ev.Title)) +
		hashDelimiter + ev.Date +
		hashDelimiter + strings.ToLower(strings.TrimSpace(ev.LocationName))

	sum := md5.Sum([]byte(key))
	return hex.EncodeToString(sum[:])
}

// IsDuplicate looks the hash up in the durable store. A store fault is
// treated as "not a duplicate": ingestion availability is deliberately
// favored over strict dedup correctness, and a re-admitted event is
// caught later by the unique hash column at insert time.
func (w *CrawlerWorkflow) IsDuplicate(ctx context.Context, hash string) bool {
	seen, err := w.store.HasHash(ctx, hash)
	if err != nil {
		w.logger.Warn("[workflow] dedup lookup failed, failing open: %v", err)
		return false
	}
	return seen
}

// Process admits a normalized event into the moderation pipeline.
// Returns nil for a detected duplicate — an expected, silent no-op that
// callers must not treat as an error.
func (w *CrawlerWorkflow) Process(ctx context.Context, ev *models.NormalizedEvent) (*models.EnrichedEvent, error) {
	hash := w.GenerateHash(ev)

	if w.IsDuplicate(ctx, hash) {
		w.logger.Debug("[workflow] duplicate dropped: %q (%s)", ev.Title, hash)
		return nil, nil
	}

	return &models.EnrichedEvent{
		NormalizedEvent: *ev,
		Hash:            hash,
		Status:          models.StatusDraft,
		ConfidenceScore: draftConfidence,
		// TODO: wire ComplianceCheckPassed to Normalizer.CheckCompliance
		// over title+description once product decides whether a failed
		// check should block admission or only annotate the draft.
		ComplianceCheckPassed: true,
		AdmittedAt:            w.now(),
	}, nil
}
