package services

import (
	"testing"

	"events-crawler/models"
)

func sampleAdmitted() []*models.EnrichedEvent {
	return []*models.EnrichedEvent{
		{NormalizedEvent: models.NormalizedEvent{Title: "Jazz Night", Price: 500, Tags: []string{"music", "jazz"}}, Source: "kudago", Status: models.StatusDraft, ComplianceCheckPassed: true},
		{NormalizedEvent: models.NormalizedEvent{Title: "Open Mic", Price: 0, Tags: []string{"music"}}, Source: "kudago", Status: models.StatusDraft, ComplianceCheckPassed: true},
		{NormalizedEvent: models.NormalizedEvent{Title: "Art Walk", Price: 300, Tags: []string{"art"}}, Source: "afisha", Status: models.StatusDraft, ComplianceCheckPassed: true},
		{NormalizedEvent: models.NormalizedEvent{Title: "Lecture", Price: 0, Tags: []string{"general"}}, Source: "afisha", Status: models.StatusDraft, ComplianceCheckPassed: true},
	}
}

func TestReportCounts(t *testing.T) {
	svc := NewReportService(newTestLogger())
	r := svc.Generate(sampleAdmitted())

	if r.TotalAdmitted != 4 {
		t.Errorf("TotalAdmitted: got %d, want 4", r.TotalAdmitted)
	}
	if r.BySource["kudago"] != 2 || r.BySource["afisha"] != 2 {
		t.Errorf("BySource: got %v", r.BySource)
	}
	if r.FreeEvents != 2 || r.PricedEvents != 2 {
		t.Errorf("Free/Priced: got %d/%d, want 2/2", r.FreeEvents, r.PricedEvents)
	}
}

func TestReportAveragePrice(t *testing.T) {
	svc := NewReportService(newTestLogger())
	r := svc.Generate(sampleAdmitted())

	if r.AveragePrice != 400 {
		t.Errorf("AveragePrice: got %.2f, want 400", r.AveragePrice)
	}
}

func TestReportTopTags(t *testing.T) {
	svc := NewReportService(newTestLogger())
	r := svc.Generate(sampleAdmitted())

	if len(r.TopTags) == 0 {
		t.Fatal("TopTags should not be empty")
	}
	if r.TopTags[0].Tag != "music" || r.TopTags[0].Count != 2 {
		t.Errorf("TopTags[0]: got %+v, want music x2", r.TopTags[0])
	}
}

func TestReportEmptyRun(t *testing.T) {
	svc := NewReportService(newTestLogger())
	r := svc.Generate(nil)

	if r.TotalAdmitted != 0 || len(r.BySource) != 0 {
		t.Errorf("empty run report: %+v", r)
	}
}
