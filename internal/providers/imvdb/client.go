// Package imvdb implements the catalog provider against the IMVDb HTTP API.
package imvdb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"mvault/internal/catalog"
	"mvault/internal/services"
)

const perPage = 50

// videoEntry is a single video in an IMVDb listing.
type videoEntry struct {
	ID          int64  `json:"id"`
	SongTitle   string `json:"song_title"`
	Version     string `json:"version_name"`
	Year        int    `json:"year"`
	DurationSec int    `json:"duration_seconds"`
	Sources     []struct {
		Source     string `json:"source"`
		SourceData string `json:"source_data"`
	} `json:"sources"`
}

// listResponse is the paginated IMVDb video listing payload.
type listResponse struct {
	TotalResults int          `json:"total_results"`
	CurrentPage  int          `json:"current_page"`
	TotalPages   int          `json:"total_pages"`
	Videos       []videoEntry `json:"videos"`
}

// Client queries IMVDb for an artist's videography.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

var _ catalog.Provider = (*Client)(nil)

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// New creates an IMVDb client.
func New(apiKey, baseURL string, timeout time.Duration, opts ...Option) (*Client, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("imvdb api key required")
	}
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		return nil, errors.New("imvdb base url required")
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	client := &Client{
		apiKey:     apiKey,
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// ListCandidates returns every video IMVDb knows for the artist, walking the
// paginated listing to the end. Artists with a provider id are fetched by
// entity; the rest go through name search.
func (c *Client) ListCandidates(ctx context.Context, artist catalog.Artist) ([]catalog.Candidate, error) {
	var candidates []catalog.Candidate
	page := 1
	for {
		payload, err := c.listPage(ctx, artist, page)
		if err != nil {
			return nil, err
		}
		for _, video := range payload.Videos {
			candidate, ok := toCandidate(video)
			if !ok {
				continue
			}
			candidates = append(candidates, candidate)
		}
		if payload.TotalPages <= 0 || page >= payload.TotalPages {
			return candidates, nil
		}
		page++
	}
}

func (c *Client) listPage(ctx context.Context, artist catalog.Artist, page int) (*listResponse, error) {
	var path string
	params := url.Values{}
	if artist.ProviderID != "" {
		path = "/entity/" + url.PathEscape(artist.ProviderID) + "/videos"
	} else {
		path = "/search/videos"
		params.Set("q", artist.Name)
	}
	params.Set("page", strconv.Itoa(page))
	params.Set("per_page", strconv.Itoa(perPage))

	endpoint, err := url.Parse(c.baseURL + path)
	if err != nil {
		return nil, fmt.Errorf("parse imvdb url: %w", err)
	}
	endpoint.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("IMVDB-APP-KEY", c.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, services.Wrap(services.ErrProvider, "imvdb", "list videos", "execute request", err)
	}
	defer resp.Body.Close()

	if err := classifyStatus(resp.StatusCode); err != nil {
		return nil, err
	}

	var payload listResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, services.Wrap(services.ErrValidation, "imvdb", "list videos", "decode response", err)
	}
	return &payload, nil
}

func classifyStatus(code int) error {
	switch {
	case code == http.StatusOK:
		return nil
	case code == http.StatusTooManyRequests:
		return services.Wrap(services.ErrRateLimited, "imvdb", "list videos", "throttled by provider", nil)
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return services.Wrap(services.ErrConfiguration, "imvdb", "list videos", "api key rejected", nil)
	case code == http.StatusNotFound:
		return services.Wrap(services.ErrSourceGone, "imvdb", "list videos", "artist not found", nil)
	case code >= 500:
		return services.Wrap(services.ErrProvider, "imvdb", "list videos", fmt.Sprintf("provider returned %d", code), nil)
	default:
		return services.Wrap(services.ErrProvider, "imvdb", "list videos", fmt.Sprintf("unexpected status %d", code), nil)
	}
}

// toCandidate maps a listing entry to a catalog candidate. Entries without a
// usable source are dropped; there is nothing to download.
func toCandidate(video videoEntry) (catalog.Candidate, bool) {
	title := strings.TrimSpace(video.SongTitle)
	if title == "" {
		return catalog.Candidate{}, false
	}
	locator := pickLocator(video)
	if locator == "" {
		return catalog.Candidate{}, false
	}
	candidate := catalog.Candidate{
		Title:         title,
		Kind:          strings.ToLower(strings.TrimSpace(video.Version)),
		SourceLocator: locator,
		DurationSec:   video.DurationSec,
	}
	if video.Year > 0 {
		candidate.ReleasedAt = time.Date(video.Year, time.January, 1, 0, 0, 0, 0, time.UTC)
	}
	return candidate, true
}

// pickLocator prefers a YouTube source and falls back to the first source
// with data.
func pickLocator(video videoEntry) string {
	for _, source := range video.Sources {
		if strings.EqualFold(source.Source, "youtube") && source.SourceData != "" {
			return "yt:" + source.SourceData
		}
	}
	for _, source := range video.Sources {
		if source.Source != "" && source.SourceData != "" {
			return strings.ToLower(source.Source) + ":" + source.SourceData
		}
	}
	return ""
}
