package services

import (
	"context"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"

	"events-crawler/models"
	"events-crawler/utils"
)

// Normalizer converts raw scraped events into the canonical schema and
// flags disallowed text. The heuristic implementation below is a
// deterministic stand-in for an AI-backed extraction service; swapping
// the backend never touches the workflow or the orchestrator.
type Normalizer interface {
	// Normalize returns the canonical form of raw, or nil when the item
	// is unprocessable. Callers treat nil as "skip", not as an error.
	Normalize(ctx context.Context, raw *models.RawEvent) (*models.NormalizedEvent, error)

	// CheckCompliance reports whether text is free of disallowed
	// content (exposed personal contacts, privacy-violating intent).
	CheckCompliance(ctx context.Context, text string) (bool, error)
}

const (
	defaultTime        = "19:00"
	defaultDescription = "No description provided by the source; details to be confirmed."
	defaultTag         = "general"

	// City-center fallback used when a source carries no coordinates.
	defaultLatitude  = 59.9343
	defaultLongitude = 30.3351
)

var (
	// isoDateRegexp captures a YYYY-MM-DD date anywhere in a raw string
	isoDateRegexp = regexp.MustCompile(`\b(\d{4})-(\d{2})-(\d{2})\b`)
	// dottedDateRegexp captures DD.MM.YYYY, common on Russian listing sites
	dottedDateRegexp = regexp.MustCompile(`\b(\d{1,2})\.(\d{1,2})\.(\d{4})\b`)
	// timeRegexp captures a 24-hour HH:mm value
	timeRegexp = regexp.MustCompile(`\b([01]?\d|2[0-3]):([0-5]\d)\b`)
	// amountRegexp captures the first integer amount in a price string
	amountRegexp = regexp.MustCompile(`\d[\d\s,.]*`)

	// disallowedRegexps flag text that exposes personal contact data or
	// privacy-violating intent. Matching any of them fails compliance.
	disallowedRegexps = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\b[\w.+-]+@[\w-]+\.[\w.]+\b`),
		regexp.MustCompile(`(?i)(call|text|whatsapp|telegram)\s*(me|us)?\s*(at|on)?\s*\+?\d[\d\s()-]{6,}`),
		regexp.MustCompile(`\+?\d[\d\s()-]{9,}\d`),
		regexp.MustCompile(`(?i)\b(dm|direct message)\s+(me|us)\b`),
		regexp.MustCompile(`(?i)home\s+address\s+of\b`),
		regexp.MustCompile(`(?i)personal\s+(phone|number|contacts?)\b`),
	}
)

// HeuristicNormalizer is the default regex/string-based Normalizer.
type HeuristicNormalizer struct {
	logger *utils.Logger
	now    func() time.Time
}

// NewHeuristicNormalizer creates a HeuristicNormalizer with the given logger.
func NewHeuristicNormalizer(logger *utils.Logger) *HeuristicNormalizer {
	return &HeuristicNormalizer{logger: logger, now: time.Now}
}

// Normalize maps one raw event into the canonical schema. Every required
// field is populated, falling back to fixed defaults when the source
// omits it, so downstream hashing never sees a missing field.
func (n *HeuristicNormalizer) Normalize(ctx context.Context, raw *models.RawEvent) (*models.NormalizedEvent, error) {
	if raw == nil {
		return nil, nil
	}

	title := normaliseText(raw.RawTitle)
	if title == "" {
		n.logger.Debug("[normalizer] dropping event with empty title: %s", raw.OriginURL)
		return nil, nil
	}

	date, timeOfDay := n.parseWhen(raw.RawDate)
	locationName, address := parseLocation(raw.RawLocation)
	if locationName == "" {
		locationName = "Venue TBA"
	}

	description := normaliseText(raw.RawDescription)
	if description == "" {
		description = defaultDescription
	}

	price, currency := parsePrice(raw.RawPrice)

	ev := &models.NormalizedEvent{
		Title:         title,
		Description:   description,
		Date:          date,
		Time:          timeOfDay,
		LocationName:  locationName,
		Address:       address,
		Latitude:      defaultLatitude,
		Longitude:     defaultLongitude,
		ImageURL:      strings.TrimSpace(raw.RawImage),
		Price:         price,
		Currency:      currency,
		Tags:          parseTags(raw.Metadata),
		OrganizerName: parseOrganizer(raw.Metadata, locationName),
		SourceURL:     strings.TrimSpace(raw.OriginURL),
	}

	if lat, lng, ok := parseCoords(raw.Metadata); ok {
		ev.Latitude = lat
		ev.Longitude = lng
	}

	return ev, nil
}

// CheckCompliance returns false when text matches a disallowed-content
// pattern. The result is advisory; admission does not currently gate on it.
func (n *HeuristicNormalizer) CheckCompliance(ctx context.Context, text string) (bool, error) {
	for _, re := range disallowedRegexps {
		if re.MatchString(text) {
			n.logger.Debug("[normalizer] compliance hit: %s", re.String())
			return false, nil
		}
	}
	return true, nil
}

// parseWhen extracts a calendar date and a clock time from the raw date
// string. Both fall back to defaults (today, 19:00) so they are never
// empty, and an extracted date must be a real calendar date — "2023-13-45"
// matches the pattern but is rejected.
func (n *HeuristicNormalizer) parseWhen(rawDate string) (string, string) {
	date := n.now().Format("2006-01-02")
	timeOfDay := defaultTime

	if m := isoDateRegexp.FindStringSubmatch(rawDate); m != nil {
		date = validDateOr(m[1]+"-"+m[2]+"-"+m[3], date)
	} else if m := dottedDateRegexp.FindStringSubmatch(rawDate); m != nil {
		date = validDateOr(m[3]+"-"+pad2(m[2])+"-"+pad2(m[1]), date)
	}

	if m := timeRegexp.FindStringSubmatch(rawDate); m != nil {
		timeOfDay = pad2(m[1]) + ":" + m[2]
	}

	return date, timeOfDay
}

// validDateOr returns candidate if it is a real YYYY-MM-DD calendar
// date, fallback otherwise.
func validDateOr(candidate, fallback string) string {
	if _, err := time.Parse("2006-01-02", candidate); err != nil {
		return fallback
	}
	return candidate
}

// parseLocation splits "Venue, Street 1" into a venue name and the full
// address. The venue name is the part before the first comma.
func parseLocation(rawLocation string) (string, string) {
	full := normaliseText(rawLocation)
	if full == "" {
		return "", ""
	}
	if idx := strings.Index(full, ","); idx > 0 {
		return strings.TrimSpace(full[:idx]), full
	}
	return full, full
}

// parsePrice extracts a non-negative integer amount in the smallest
// currency unit plus an ISO-like currency code. Free or unparsable
// prices come back as 0 with no currency.
func parsePrice(rawPrice string) (int, string) {
	raw := strings.ToLower(strings.TrimSpace(rawPrice))
	if raw == "" || strings.Contains(raw, "free") || strings.Contains(raw, "бесплатно") {
		return 0, ""
	}

	match := amountRegexp.FindString(raw)
	if match == "" {
		return 0, ""
	}
	digits := strings.Map(func(r rune) rune {
		if unicode.IsDigit(r) {
			return r
		}
		return -1
	}, strings.SplitN(match, ".", 2)[0])

	amount, err := strconv.Atoi(digits)
	if err != nil || amount < 0 {
		return 0, ""
	}

	currency := "RUB"
	switch {
	case strings.ContainsAny(raw, "$") || strings.Contains(raw, "usd"):
		currency = "USD"
	case strings.ContainsAny(raw, "€") || strings.Contains(raw, "eur"):
		currency = "EUR"
	}

	return amount, currency
}

func parseTags(metadata map[string]string) []string {
	if csv := metadata["tags"]; csv != "" {
		parts := strings.Split(csv, ",")
		tags := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				tags = append(tags, p)
			}
		}
		if len(tags) > 0 {
			return tags
		}
	}
	return []string{defaultTag}
}

func parseOrganizer(metadata map[string]string, locationName string) string {
	if org := normaliseText(metadata["organizer"]); org != "" {
		return org
	}
	return locationName
}

func parseCoords(metadata map[string]string) (float64, float64, bool) {
	lat, errLat := strconv.ParseFloat(metadata["lat"], 64)
	lng, errLng := strconv.ParseFloat(metadata["lng"], 64)
	if errLat != nil || errLng != nil {
		return 0, 0, false
	}
	return lat, lng, true
}

// normaliseText strips leading/trailing whitespace and collapses internal whitespace.
func normaliseText(s string) string {
	fields := strings.FieldsFunc(strings.TrimSpace(s), unicode.IsSpace)
	return strings.Join(fields, " ")
}

func pad2(s string) string {
	if len(s) == 1 {
		return "0" + s
	}
	return s
}
