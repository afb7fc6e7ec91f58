package services

import (
	"context"
	"testing"
	"time"

	"events-crawler/models"
)

func TestNormalizeMapsAllFields(t *testing.T) {
	n := NewHeuristicNormalizer(newTestLogger())

	raw := &models.RawEvent{
		SourceID:       "wh-001",
		OriginURL:      "http://x/1",
		RawTitle:       "  Jazz   Night ",
		RawDescription: "An evening of live jazz.",
		RawDate:        "2023-12-01 20:30",
		RawLocation:    "Witch House, Nevsky 42",
		RawPrice:       "500 ₽",
		Metadata: map[string]string{
			"tags":      "music, jazz",
			"organizer": "Witch House Club",
			"lat":       "59.93",
			"lng":       "30.36",
		},
	}

	ev, err := n.Normalize(context.Background(), raw)
	if err != nil {
		t.Fatalf("Normalize returned error: %v", err)
	}
	if ev == nil {
		t.Fatal("Normalize returned nil for a processable event")
	}

	if ev.Title != "Jazz Night" {
		t.Errorf("Title = %q; want %q", ev.Title, "Jazz Night")
	}
	if ev.Date != "2023-12-01" {
		t.Errorf("Date = %q; want 2023-12-01", ev.Date)
	}
	if ev.Time != "20:30" {
		t.Errorf("Time = %q; want 20:30", ev.Time)
	}
	if ev.LocationName != "Witch House" {
		t.Errorf("LocationName = %q; want Witch House", ev.LocationName)
	}
	if ev.Address != "Witch House, Nevsky 42" {
		t.Errorf("Address = %q", ev.Address)
	}
	if ev.Price != 500 || ev.Currency != "RUB" {
		t.Errorf("Price/Currency = %d %q; want 500 RUB", ev.Price, ev.Currency)
	}
	if len(ev.Tags) != 2 || ev.Tags[0] != "music" || ev.Tags[1] != "jazz" {
		t.Errorf("Tags = %v; want [music jazz]", ev.Tags)
	}
	if ev.OrganizerName != "Witch House Club" {
		t.Errorf("OrganizerName = %q", ev.OrganizerName)
	}
	if ev.Latitude != 59.93 || ev.Longitude != 30.36 {
		t.Errorf("coords = %f,%f; want 59.93,30.36", ev.Latitude, ev.Longitude)
	}
	if ev.SourceURL != "http://x/1" {
		t.Errorf("SourceURL = %q", ev.SourceURL)
	}
}

// Missing temporal and location data must come back defaulted, never
// empty, so hashing downstream cannot see a missing field.
func TestNormalizeDefaultsMissingFields(t *testing.T) {
	n := NewHeuristicNormalizer(newTestLogger())

	ev, err := n.Normalize(context.Background(), &models.RawEvent{
		SourceID:  "wh-002",
		OriginURL: "http://x/2",
		RawTitle:  "Mystery Show",
	})
	if err != nil {
		t.Fatalf("Normalize returned error: %v", err)
	}
	if ev == nil {
		t.Fatal("Normalize returned nil")
	}

	if ev.Date == "" {
		t.Error("Date must be defaulted, not empty")
	}
	if _, parseErr := time.Parse("2006-01-02", ev.Date); parseErr != nil {
		t.Errorf("defaulted Date %q is not YYYY-MM-DD", ev.Date)
	}
	if ev.Time != defaultTime {
		t.Errorf("Time = %q; want default %q", ev.Time, defaultTime)
	}
	if ev.LocationName == "" {
		t.Error("LocationName must be defaulted, not empty")
	}
	if ev.Description != defaultDescription {
		t.Errorf("Description = %q; want placeholder", ev.Description)
	}
	if len(ev.Tags) == 0 {
		t.Error("Tags must be non-empty by default")
	}
	if ev.Latitude != defaultLatitude || ev.Longitude != defaultLongitude {
		t.Errorf("coords = %f,%f; want city-center fallback", ev.Latitude, ev.Longitude)
	}
}

func TestNormalizeDateFormats(t *testing.T) {
	n := NewHeuristicNormalizer(newTestLogger())

	tests := []struct {
		raw      string
		wantDate string
		wantTime string
	}{
		{"2024-03-08", "2024-03-08", defaultTime},
		{"08.03.2024", "2024-03-08", defaultTime},
		{"8.3.2024 19:30", "2024-03-08", "19:30"},
		{"Friday 2024-03-08 at 9:05", "2024-03-08", "09:05"},
	}

	for _, tt := range tests {
		ev, err := n.Normalize(context.Background(), &models.RawEvent{
			RawTitle: "x", RawDate: tt.raw,
		})
		if err != nil || ev == nil {
			t.Fatalf("Normalize(%q) = (%v, %v)", tt.raw, ev, err)
		}
		if ev.Date != tt.wantDate {
			t.Errorf("Normalize(%q).Date = %q; want %q", tt.raw, ev.Date, tt.wantDate)
		}
		if ev.Time != tt.wantTime {
			t.Errorf("Normalize(%q).Time = %q; want %q", tt.raw, ev.Time, tt.wantTime)
		}
	}
}

// A string shaped like a date but naming an impossible day must not
// leak into the canonical record; the date falls back to the default.
func TestNormalizeRejectsImpossibleDates(t *testing.T) {
	n := NewHeuristicNormalizer(newTestLogger())
	n.now = func() time.Time { return time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC) }
	today := "2024-06-01"

	tests := []string{
		"2023-13-45",
		"2024-02-30",
		"31.02.2024",
		"00.00.2024",
	}

	for _, raw := range tests {
		ev, err := n.Normalize(context.Background(), &models.RawEvent{
			RawTitle: "x", RawDate: raw,
		})
		if err != nil || ev == nil {
			t.Fatalf("Normalize(%q) = (%v, %v)", raw, ev, err)
		}
		if ev.Date != today {
			t.Errorf("Normalize(%q).Date = %q; want default %q", raw, ev.Date, today)
		}
	}
}

func TestNormalizeParsePrice(t *testing.T) {
	tests := []struct {
		raw          string
		wantPrice    int
		wantCurrency string
	}{
		{"500 ₽", 500, "RUB"},
		{"от 1 200 руб", 1200, "RUB"},
		{"$25", 25, "USD"},
		{"15 eur", 15, "EUR"},
		{"free", 0, ""},
		{"бесплатно", 0, ""},
		{"", 0, ""},
	}

	for _, tt := range tests {
		price, currency := parsePrice(tt.raw)
		if price != tt.wantPrice || currency != tt.wantCurrency {
			t.Errorf("parsePrice(%q) = (%d, %q); want (%d, %q)",
				tt.raw, price, currency, tt.wantPrice, tt.wantCurrency)
		}
	}
}

func TestNormalizeSkipsEmptyTitle(t *testing.T) {
	n := NewHeuristicNormalizer(newTestLogger())

	ev, err := n.Normalize(context.Background(), &models.RawEvent{
		SourceID: "wh-003", OriginURL: "http://x/3", RawTitle: "   ",
	})
	if err != nil {
		t.Fatalf("Normalize returned error: %v", err)
	}
	if ev != nil {
		t.Error("Normalize must return nil for an event without a title")
	}
}

func TestCheckCompliance(t *testing.T) {
	n := NewHeuristicNormalizer(newTestLogger())

	tests := []struct {
		text string
		want bool
	}{
		{"An evening of live jazz at the club.", true},
		{"Open-air festival, entry from 18:00.", true},
		{"Call me at +7 921 123-45-67 for tickets", false},
		{"contact organizer@example.com directly", false},
		{"DM me for the address", false},
		{"home address of the performer will be shared", false},
	}

	for _, tt := range tests {
		got, err := n.CheckCompliance(context.Background(), tt.text)
		if err != nil {
			t.Fatalf("CheckCompliance(%q) returned error: %v", tt.text, err)
		}
		if got != tt.want {
			t.Errorf("CheckCompliance(%q) = %v; want %v", tt.text, got, tt.want)
		}
	}
}
