package services

import (
	"context"
	"time"

	"events-crawler/adapters"
	"events-crawler/metrics"
	"events-crawler/models"
	"events-crawler/utils"
)

// RawRecorder receives every raw event an adapter fetched, before
// normalization. Used for the raw CSV snapshot; a nil recorder disables
// recording.
type RawRecorder interface {
	RecordRaw(raws []*models.RawEvent) error
}

// Crawler drives the full fetch → normalize → enrich sequence over the
// registered adapters. Adapters run sequentially in registration order,
// and failures are isolated per adapter and per item: one dead source or
// one broken listing only reduces the yield, never aborts the run.
type Crawler struct {
	adapters     []adapters.SourceAdapter
	normalizer   Normalizer
	workflow     *CrawlerWorkflow
	recorder     RawRecorder
	crawlMetrics *metrics.CrawlMetrics
	logger       *utils.Logger
	fetchTimeout time.Duration
}

// NewCrawler creates a Crawler with no adapters registered. recorder and
// crawlMetrics may be nil.
func NewCrawler(normalizer Normalizer, workflow *CrawlerWorkflow, recorder RawRecorder,
	crawlMetrics *metrics.CrawlMetrics, logger *utils.Logger, fetchTimeout time.Duration) *Crawler {
	return &Crawler{
		normalizer:   normalizer,
		workflow:     workflow,
		recorder:     recorder,
		crawlMetrics: crawlMetrics,
		logger:       logger,
		fetchTimeout: fetchTimeout,
	}
}

// RegisterAdapter appends an adapter to the registry. Registration order
// is crawl order; adapters are not deduplicated by name.
func (c *Crawler) RegisterAdapter(a adapters.SourceAdapter) {
	c.adapters = append(c.adapters, a)
}

// Run crawls every registered adapter and returns the newly-admitted
// draft events, ordered by adapter registration and, within an adapter,
// by the order the source returned them.
func (c *Crawler) Run(ctx context.Context) []*models.EnrichedEvent {
	admitted := make([]*models.EnrichedEvent, 0)

	for _, adapter := range c.adapters {
		source := adapter.SourceName()
		c.logger.Info("[crawler] fetching source %q (%s)", source, adapter.BaseURL())

		raws, err := c.fetch(ctx, adapter)
		if err != nil {
			c.logger.Error("[crawler] source %q fetch failed: %v", source, err)
			if c.crawlMetrics != nil {
				c.crawlMetrics.FetchFailures.WithLabelValues(source).Inc()
			}
			continue
		}

		c.logger.Info("[crawler] source %q returned %d raw events", source, len(raws))
		if c.crawlMetrics != nil {
			c.crawlMetrics.EventsFetched.WithLabelValues(source).Add(float64(len(raws)))
		}

		if c.recorder != nil && len(raws) > 0 {
			if err := c.recorder.RecordRaw(raws); err != nil {
				c.logger.Warn("[crawler] raw recording failed for %q: %v", source, err)
			}
		}

		for _, raw := range raws {
			enriched := c.processOne(ctx, source, raw)
			if enriched != nil {
				admitted = append(admitted, enriched)
			}
		}
	}

	c.logger.Info("[crawler] run complete — %d new draft events", len(admitted))
	if c.crawlMetrics != nil {
		c.crawlMetrics.LastRunTimestamp.SetToCurrentTime()
	}
	return admitted
}

// fetch calls the adapter under the per-adapter timeout, if configured.
func (c *Crawler) fetch(ctx context.Context, adapter adapters.SourceAdapter) ([]*models.RawEvent, error) {
	if c.fetchTimeout <= 0 {
		return adapter.FetchEvents(ctx)
	}
	fetchCtx, cancel := context.WithTimeout(ctx, c.fetchTimeout)
	defer cancel()
	return adapter.FetchEvents(fetchCtx)
}

// processOne normalizes and enriches a single raw event. Any failure or
// intentional skip drops only this item.
func (c *Crawler) processOne(ctx context.Context, source string, raw *models.RawEvent) *models.EnrichedEvent {
	norm, err := c.normalizer.Normalize(ctx, raw)
	if err != nil {
		c.logger.Warn("[crawler] normalize failed for %s: %v", raw.OriginURL, err)
		if c.crawlMetrics != nil {
			c.crawlMetrics.NormalizeFailures.WithLabelValues(source).Inc()
		}
		return nil
	}
	if norm == nil {
		c.logger.Debug("[crawler] normalizer skipped %s", raw.OriginURL)
		return nil
	}

	enriched, err := c.workflow.Process(ctx, norm)
	if err != nil {
		c.logger.Warn("[crawler] workflow failed for %q: %v", norm.Title, err)
		return nil
	}
	if enriched == nil {
		if c.crawlMetrics != nil {
			c.crawlMetrics.Duplicates.WithLabelValues(source).Inc()
		}
		return nil
	}

	enriched.Source = source
	if c.crawlMetrics != nil {
		c.crawlMetrics.EventsAdmitted.WithLabelValues(source).Inc()
	}
	return enriched
}
