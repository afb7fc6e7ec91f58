package storage

import (
	"context"

	"events-crawler/models"
)

// EventStore is the durable events table the crawler collaborates with:
// hash lookups during dedup and the moderation-side draft insert.
type EventStore interface {
	HasHash(ctx context.Context, hash string) (bool, error)
	InsertDrafts(ctx context.Context, events []*models.EnrichedEvent) error
	Close() error
}

// RawWriter persists unprocessed scraped events for debugging and replay.
type RawWriter interface {
	RecordRaw(raws []*models.RawEvent) error
	Close() error
}
