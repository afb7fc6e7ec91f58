package adapters

import (
	"context"
	"fmt"

	"events-crawler/config"
	"events-crawler/models"
	"events-crawler/utils"
)

// SourceAdapter is the contract every crawl source implements. Adapters
// are stateless per call: FetchEvents returns the source's current
// listings as raw events, or an error on a fetch-level fault. An empty
// slice is a normal "no results" outcome, not an error.
type SourceAdapter interface {
	SourceName() string
	BaseURL() string
	FetchEvents(ctx context.Context) ([]*models.RawEvent, error)
}

// NewFromConfig builds the adapter described by one sources.yml entry.
func NewFromConfig(sc config.SourceConfig, cfg *config.Config, logger *utils.Logger) (SourceAdapter, error) {
	switch sc.Type {
	case "kudago":
		return NewKudaGo(sc, cfg, logger), nil
	case "afisha":
		return NewAfisha(sc, cfg, logger), nil
	default:
		return nil, fmt.Errorf("adapters: unknown source type %q", sc.Type)
	}
}
