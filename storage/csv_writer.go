package storage

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"events-crawler/models"
)

// CSVWriter appends raw (unnormalized) events to a CSV file as the crawl
// fetches them. It is safe for concurrent use.
type CSVWriter struct {
	mu     sync.Mutex
	file   *os.File
	writer *csv.Writer
}

// NewCSVWriter creates (or truncates) the CSV file at the given path and
// writes the header row. Intermediate directories are created automatically.
func NewCSVWriter(path string) (*CSVWriter, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("csv: create output dir: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("csv: create file %q: %w", path, err)
	}

	w := csv.NewWriter(f)
	if err := w.Write([]string{
		"source", "source_id", "origin_url", "title", "description",
		"date", "location", "price", "image", "fetched_at",
	}); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("csv: write header: %w", err)
	}
	w.Flush()

	return &CSVWriter{file: f, writer: w}, nil
}

// RecordRaw appends the given raw events to the CSV file.
func (c *CSVWriter) RecordRaw(raws []*models.RawEvent) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, r := range raws {
		row := []string{
			r.Source,
			r.SourceID,
			r.OriginURL,
			r.RawTitle,
			r.RawDescription,
			r.RawDate,
			r.RawLocation,
			r.RawPrice,
			r.RawImage,
			r.FetchedAt.Format(time.RFC3339),
		}
		if err := c.writer.Write(row); err != nil {
			return fmt.Errorf("csv: write row: %w", err)
		}
	}

	c.writer.Flush()
	return c.writer.Error()
}

// Close flushes and closes the underlying file.
func (c *CSVWriter) Close() error {
	c.writer.Flush()
	return c.file.Close()
}
