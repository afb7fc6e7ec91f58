package adapters

import (
	"testing"

	"events-crawler/config"
	"events-crawler/utils"
)

func afishaTestAdapter() *Afisha {
	return NewAfisha(config.SourceConfig{Type: "afisha"},
		&config.Config{MaxRetries: 1, MaxConcurrency: 1}, utils.NewLogger())
}

func sampleCards() []afishaCard {
	return []afishaCard{
		{Title: "Jazz Night", URL: "http://a.test/event/1", Date: "01.12.2023", Location: "Witch House"},
		{Title: "Open Mic", URL: "http://a.test/event/2"},
		{Title: "", URL: "http://a.test/event/3"},
		{Title: "No Link"},
		{Title: "Jazz Night again", URL: "http://a.test/event/1"},
	}
}

func TestAfishaCollectCards(t *testing.T) {
	a := afishaTestAdapter()

	raws := a.collectCards(sampleCards())
	if len(raws) != 2 {
		t.Fatalf("collected %d raw events; want 2 (incomplete and repeated cards skipped)", len(raws))
	}
	if raws[0].RawTitle != "Jazz Night" || raws[1].RawTitle != "Open Mic" {
		t.Errorf("collected titles = %q, %q", raws[0].RawTitle, raws[1].RawTitle)
	}
	if raws[0].OriginURL != "http://a.test/event/1" || raws[0].SourceID != "http://a.test/event/1" {
		t.Errorf("first card identity = %q / %q", raws[0].OriginURL, raws[0].SourceID)
	}
}

// The visited set only dedups pagination overlap within one fetch. A
// fresh fetch must re-attempt everything from scratch: the adapter is
// stateless per call.
func TestAfishaResetRunClearsVisited(t *testing.T) {
	a := afishaTestAdapter()

	first := a.collectCards(sampleCards())
	if len(first) != 2 {
		t.Fatalf("first pass collected %d; want 2", len(first))
	}

	// Same cards again within the same run: all dropped as overlap.
	if again := a.collectCards(sampleCards()); len(again) != 0 {
		t.Fatalf("overlap pass collected %d; want 0", len(again))
	}

	a.resetRun()

	second := a.collectCards(sampleCards())
	if len(second) != 2 {
		t.Errorf("after resetRun collected %d; want 2 (previous run must not leak)", len(second))
	}
}
