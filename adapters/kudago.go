package adapters

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"events-crawler/config"
	"events-crawler/models"
	"events-crawler/utils"
)

const (
	kudagoDefaultBaseURL = "https://kudago.com/public-api/v1.4"
	kudagoDefaultCity    = "spb"
	kudagoPlatform       = "kudago"

	kudagoFields = "id,title,description,dates,place,price,images,site_url,tags"
)

// KudaGo pulls event listings from the KudaGo public JSON API.
type KudaGo struct {
	name       string
	baseURL    string
	city       string
	pageSize   int
	maxPages   int
	httpClient *http.Client
	logger     *utils.Logger
	retry      *utils.RetryConfig
}

// NewKudaGo creates a KudaGo adapter from a sources.yml entry.
func NewKudaGo(sc config.SourceConfig, cfg *config.Config, logger *utils.Logger) *KudaGo {
	name := sc.Name
	if name == "" {
		name = kudagoPlatform
	}
	baseURL := sc.BaseURL
	if baseURL == "" {
		baseURL = kudagoDefaultBaseURL
	}
	city := sc.Location
	if city == "" {
		city = kudagoDefaultCity
	}
	pageSize := sc.PageSize
	if pageSize <= 0 {
		pageSize = 50
	}
	maxPages := sc.MaxPages
	if maxPages <= 0 {
		maxPages = 2
	}

	return &KudaGo{
		name:       name,
		baseURL:    strings.TrimRight(baseURL, "/"),
		city:       city,
		pageSize:   pageSize,
		maxPages:   maxPages,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		logger:     logger,
		retry: &utils.RetryConfig{
			MaxAttempts: cfg.MaxRetries,
			BaseDelay:   time.Second,
			Logger:      logger,
		},
	}
}

func (k *KudaGo) SourceName() string { return k.name }

func (k *KudaGo) BaseURL() string { return k.baseURL }

type kudagoPlace struct {
	Title   string `json:"title"`
	Address string `json:"address"`
	Coords  struct {
		Lat float64 `json:"lat"`
		Lon float64 `json:"lon"`
	} `json:"coords"`
}

type kudagoEvent struct {
	ID          int64  `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Dates       []struct {
		Start int64 `json:"start"`
		End   int64 `json:"end"`
	} `json:"dates"`
	Place  *kudagoPlace `json:"place"`
	Price  string       `json:"price"`
	Images []struct {
		Image string `json:"image"`
	} `json:"images"`
	SiteURL string   `json:"site_url"`
	Tags    []string `json:"tags"`
}

type kudagoPage struct {
	Next    string        `json:"next"`
	Results []kudagoEvent `json:"results"`
}

// FetchEvents walks the paginated events endpoint and maps every result
// into the common raw-event shape.
func (k *KudaGo) FetchEvents(ctx context.Context) ([]*models.RawEvent, error) {
	raws := make([]*models.RawEvent, 0, k.pageSize)

	pageURL := k.listURL()
	for page := 1; page <= k.maxPages && pageURL != ""; page++ {
		var resp kudagoPage
		err := k.retry.Do("kudago-page", func() error {
			return k.getJSON(ctx, pageURL, &resp)
		})
		if err != nil {
			if len(raws) > 0 {
				// Partial result: keep what earlier pages yielded.
				k.logger.Warn("[kudago] page %d failed, returning %d events from earlier pages: %v",
					page, len(raws), err)
				return raws, nil
			}
			return nil, fmt.Errorf("kudago: fetch page %d: %w", page, err)
		}

		for _, ev := range resp.Results {
			raws = append(raws, k.toRawEvent(ev))
		}

		k.logger.Debug("[kudago] page %d — %d events", page, len(resp.Results))
		pageURL = resp.Next
	}

	return raws, nil
}

func (k *KudaGo) listURL() string {
	v := url.Values{}
	v.Set("location", k.city)
	v.Set("fields", kudagoFields)
	v.Set("page_size", strconv.Itoa(k.pageSize))
	v.Set("actual_since", strconv.FormatInt(time.Now().Unix(), 10))
	return k.baseURL + "/events/?" + v.Encode()
}

func (k *KudaGo) getJSON(ctx context.Context, rawURL string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("kudago: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := k.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("kudago: request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return fmt.Errorf("kudago: unexpected status %d for %s", resp.StatusCode, rawURL)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("kudago: decode response: %w", err)
	}
	return nil
}

func (k *KudaGo) toRawEvent(ev kudagoEvent) *models.RawEvent {
	raw := &models.RawEvent{
		SourceID:       strconv.FormatInt(ev.ID, 10),
		OriginURL:      ev.SiteURL,
		RawTitle:       ev.Title,
		RawDescription: ev.Description,
		RawPrice:       ev.Price,
		Metadata:       map[string]string{},
		FetchedAt:      time.Now(),
		Source:         k.name,
	}

	if len(ev.Dates) > 0 && ev.Dates[0].Start > 0 {
		raw.RawDate = time.Unix(ev.Dates[0].Start, 0).Format("2006-01-02 15:04")
	}
	if ev.Place != nil {
		raw.RawLocation = ev.Place.Title
		if ev.Place.Address != "" {
			raw.RawLocation = ev.Place.Title + ", " + ev.Place.Address
		}
		if ev.Place.Coords.Lat != 0 || ev.Place.Coords.Lon != 0 {
			raw.Metadata["lat"] = strconv.FormatFloat(ev.Place.Coords.Lat, 'f', -1, 64)
			raw.Metadata["lng"] = strconv.FormatFloat(ev.Place.Coords.Lon, 'f', -1, 64)
		}
	}
	if len(ev.Images) > 0 {
		raw.RawImage = ev.Images[0].Image
	}
	if len(ev.Tags) > 0 {
		raw.Metadata["tags"] = strings.Join(ev.Tags, ",")
	}

	return raw
}
