package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"

	"events-crawler/models"
)

// PostgresStore is the durable events table. The hash column is unique:
// it backs the workflow's dedup lookup and is the last line of defense
// when the lookup fails open.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore opens a connection to PostgreSQL, runs schema
// migrations, and returns a ready-to-use store.
func NewPostgresStore(dsn string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: open: %w", err)
	}

	for i := 0; i < 10; i++ {
		if err = db.Ping(); err == nil {
			break
		}
		time.Sleep(2 * time.Second)
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: ping failed after retries: %w", err)
	}

	ps := &PostgresStore{db: db}
	if err := ps.migrate(); err != nil {
		return nil, fmt.Errorf("postgres: migrate: %w", err)
	}

	return ps, nil
}

func (ps *PostgresStore) migrate() error {
	_, err := ps.db.Exec(`
		CREATE TABLE IF NOT EXISTS events (
			id            SERIAL PRIMARY KEY,
			source        VARCHAR(50)  NOT NULL,
			title         TEXT         NOT NULL,
			description   TEXT         NOT NULL DEFAULT '',
			event_date    DATE         NOT NULL,
			event_time    VARCHAR(5)   NOT NULL,
			location_name TEXT         NOT NULL,
			address       TEXT         NOT NULL DEFAULT '',
			latitude      NUMERIC(9,6) NOT NULL DEFAULT 0,
			longitude     NUMERIC(9,6) NOT NULL DEFAULT 0,
			image_url     TEXT         NOT NULL DEFAULT '',
			price         INTEGER      NOT NULL DEFAULT 0,
			currency      VARCHAR(8)   NOT NULL DEFAULT '',
			tags          TEXT[]       NOT NULL DEFAULT '{}',
			organizer     TEXT         NOT NULL DEFAULT '',
			source_url    TEXT         NOT NULL,
			hash          VARCHAR(32)  UNIQUE NOT NULL,
			status        VARCHAR(16)  NOT NULL DEFAULT 'draft',
			confidence    NUMERIC(3,2) NOT NULL DEFAULT 0,
			compliance_ok BOOLEAN      NOT NULL DEFAULT TRUE,
			admitted_at   TIMESTAMPTZ  NOT NULL DEFAULT NOW()
		);

		CREATE INDEX IF NOT EXISTS idx_events_hash   ON events(hash);
		CREATE INDEX IF NOT EXISTS idx_events_status ON events(status);
		CREATE INDEX IF NOT EXISTS idx_events_date   ON events(event_date);
		CREATE INDEX IF NOT EXISTS idx_events_source ON events(source);
	`)
	return err
}

// HasHash reports whether an event with the given dedup hash has ever
// been admitted, regardless of its current moderation status.
func (ps *PostgresStore) HasHash(ctx context.Context, hash string) (bool, error) {
	var exists bool
	err := ps.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM events WHERE hash = $1)`, hash).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("postgres: hash lookup: %w", err)
	}
	return exists, nil
}

// InsertDrafts batch-inserts admitted draft events. Hash conflicts are
// ignored: a concurrent run or a failed-open dedup check may have
// admitted the same event twice, and first write wins.
func (ps *PostgresStore) InsertDrafts(ctx context.Context, events []*models.EnrichedEvent) error {
	if len(events) == 0 {
		return nil
	}

	const batchSize = 50
	for i := 0; i < len(events); i += batchSize {
		end := i + batchSize
		if end > len(events) {
			end = len(events)
		}
		if err := ps.insertBatch(ctx, events[i:end]); err != nil {
			return err
		}
	}
	return nil
}

func (ps *PostgresStore) insertBatch(ctx context.Context, batch []*models.EnrichedEvent) error {
	const cols = 20
	valueStrings := make([]string, 0, len(batch))
	valueArgs := make([]interface{}, 0, len(batch)*cols)

	for idx, ev := range batch {
		base := idx * cols
		placeholders := make([]string, cols)
		for j := 0; j < cols; j++ {
			placeholders[j] = fmt.Sprintf("$%d", base+j+1)
		}
		valueStrings = append(valueStrings, "("+strings.Join(placeholders, ",")+")")
		valueArgs = append(valueArgs,
			ev.Source, ev.Title, ev.Description, ev.Date, ev.Time,
			ev.LocationName, ev.Address, ev.Latitude, ev.Longitude, ev.ImageURL,
			ev.Price, ev.Currency, pq.Array(ev.Tags), ev.OrganizerName, ev.SourceURL,
			ev.Hash, string(ev.Status), ev.ConfidenceScore, ev.ComplianceCheckPassed, ev.AdmittedAt)
	}

	query := fmt.Sprintf(`
		INSERT INTO events (
			source, title, description, event_date, event_time,
			location_name, address, latitude, longitude, image_url,
			price, currency, tags, organizer, source_url,
			hash, status, confidence, compliance_ok, admitted_at
		)
		VALUES %s
		ON CONFLICT (hash) DO NOTHING
	`, strings.Join(valueStrings, ","))

	if _, err := ps.db.ExecContext(ctx, query, valueArgs...); err != nil {
		return fmt.Errorf("postgres: insert drafts: %w", err)
	}
	return nil
}

// CountByStatus returns the number of stored events per moderation status.
func (ps *PostgresStore) CountByStatus(ctx context.Context) (map[models.Status]int, error) {
	rows, err := ps.db.QueryContext(ctx,
		`SELECT status, COUNT(*) FROM events GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("postgres: count by status: %w", err)
	}
	defer rows.Close()

	counts := make(map[models.Status]int)
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("postgres: scan count: %w", err)
		}
		counts[models.Status(status)] = count
	}
	return counts, rows.Err()
}

func (ps *PostgresStore) Close() error {
	return ps.db.Close()
}
