package services

import (
	"fmt"
	"sort"
	"strings"

	"events-crawler/models"
	"events-crawler/utils"
)

// CrawlReport summarizes one crawl run over the admitted draft events.
type CrawlReport struct {
	TotalAdmitted  int
	BySource       map[string]int
	FreeEvents     int
	PricedEvents   int
	AveragePrice   float64
	TopTags        []TagCount
	ComplianceFail int
}

// TagCount is one entry of the tag frequency ranking.
type TagCount struct {
	Tag   string
	Count int
}

// ReportService builds and prints post-run summaries.
type ReportService struct {
	logger *utils.Logger
}

// NewReportService creates a ReportService with the given logger.
func NewReportService(logger *utils.Logger) *ReportService {
	return &ReportService{logger: logger}
}

// Generate computes the summary over one run's admitted events.
func (s *ReportService) Generate(events []*models.EnrichedEvent) *CrawlReport {
	report := &CrawlReport{BySource: make(map[string]int)}
	if len(events) == 0 {
		return report
	}

	report.TotalAdmitted = len(events)

	tagCounts := make(map[string]int)
	var pricedTotal int

	for _, ev := range events {
		report.BySource[ev.Source]++

		if ev.Price > 0 {
			report.PricedEvents++
			pricedTotal += ev.Price
		} else {
			report.FreeEvents++
		}
		if !ev.ComplianceCheckPassed {
			report.ComplianceFail++
		}
		for _, tag := range ev.Tags {
			tagCounts[strings.ToLower(tag)]++
		}
	}

	if report.PricedEvents > 0 {
		report.AveragePrice = round2(float64(pricedTotal) / float64(report.PricedEvents))
	}

	for tag, count := range tagCounts {
		report.TopTags = append(report.TopTags, TagCount{Tag: tag, Count: count})
	}
	sort.Slice(report.TopTags, func(i, j int) bool {
		if report.TopTags[i].Count != report.TopTags[j].Count {
			return report.TopTags[i].Count > report.TopTags[j].Count
		}
		return report.TopTags[i].Tag < report.TopTags[j].Tag
	})
	if len(report.TopTags) > 5 {
		report.TopTags = report.TopTags[:5]
	}

	return report
}

// Print renders the report to stdout.
func (s *ReportService) Print(r *CrawlReport) {
	sep := strings.Repeat("═", 54)
	thin := strings.Repeat("─", 54)

	fmt.Printf("\n\033[1;35m%s\033[0m\n", sep)
	fmt.Printf("\033[1;35m  CRAWL RUN SUMMARY\033[0m\n")
	fmt.Printf("\033[1;35m%s\033[0m\n\n", sep)

	fmt.Printf("\033[1;33m  Admitted drafts\033[0m\n")
	fmt.Printf("  %s\n", thin)
	fmt.Printf("  Total new events : \033[1m%d\033[0m\n", r.TotalAdmitted)
	for _, source := range sortedSources(r.BySource) {
		fmt.Printf("  %-16s : %d\n", source, r.BySource[source])
	}
	fmt.Println()

	fmt.Printf("\033[1;33m  Pricing\033[0m\n")
	fmt.Printf("  %s\n", thin)
	fmt.Printf("  Free events   : %d\n", r.FreeEvents)
	fmt.Printf("  Priced events : %d\n", r.PricedEvents)
	if r.PricedEvents > 0 {
		fmt.Printf("  Average price : \033[1;32m%.2f\033[0m\n", r.AveragePrice)
	}
	fmt.Println()

	fmt.Printf("\033[1;33m  Top Tags\033[0m\n")
	fmt.Printf("  %s\n", thin)
	if len(r.TopTags) == 0 {
		fmt.Printf("  No tag data\n")
	} else {
		for _, tc := range r.TopTags {
			bar := strings.Repeat("█", tc.Count)
			fmt.Printf("  %-20s %s (%d)\n", tc.Tag, bar, tc.Count)
		}
	}

	fmt.Printf("\n\033[1;35m%s\033[0m\n\n", sep)
}

func sortedSources(bySource map[string]int) []string {
	sources := make([]string, 0, len(bySource))
	for s := range bySource {
		sources = append(sources, s)
	}
	sort.Strings(sources)
	return sources
}

func round2(f float64) float64 {
	return float64(int(f*100+0.5)) / 100
}
