package imvdb_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"mvault/internal/catalog"
	"mvault/internal/providers/imvdb"
	"mvault/internal/services"
)

func newClient(t *testing.T, server *httptest.Server) *imvdb.Client {
	t.Helper()
	client, err := imvdb.New("key", server.URL, time.Second)
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	return client
}

func TestNewRequiresAPIKey(t *testing.T) {
	if _, err := imvdb.New("", "https://example.com", 0); err == nil {
		t.Fatal("expected error when api key missing")
	}
}

func TestListCandidatesByEntity(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/entity/4321/videos" {
			t.Fatalf("unexpected path %q", r.URL.Path)
		}
		if r.Header.Get("IMVDB-APP-KEY") != "key" {
			t.Fatalf("expected api key header, got %q", r.Header.Get("IMVDB-APP-KEY"))
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"total_results": 2,
			"current_page": 1,
			"total_pages": 1,
			"videos": [
				{
					"id": 1,
					"song_title": "Hit Single",
					"version_name": "Official",
					"year": 2019,
					"sources": [{"source": "youtube", "source_data": "abc123"}]
				},
				{
					"id": 2,
					"song_title": "Sourceless",
					"sources": []
				}
			]
		}`))
	}))
	t.Cleanup(server.Close)

	client := newClient(t, server)
	candidates, err := client.ListCandidates(context.Background(), catalog.Artist{Name: "Artist", ProviderID: "4321"})
	if err != nil {
		t.Fatalf("ListCandidates returned error: %v", err)
	}
	if len(candidates) != 1 {
		t.Fatalf("candidates = %d, want 1 (sourceless entry dropped)", len(candidates))
	}
	got := candidates[0]
	if got.Title != "Hit Single" || got.Kind != "official" || got.SourceLocator != "yt:abc123" {
		t.Fatalf("unexpected candidate: %#v", got)
	}
	if got.ReleasedAt.Year() != 2019 {
		t.Fatalf("expected release year 2019, got %v", got.ReleasedAt)
	}
}

func TestListCandidatesWalksPages(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/search/videos" {
			t.Fatalf("unexpected path %q", r.URL.Path)
		}
		if r.URL.Query().Get("q") != "Artist" {
			t.Fatalf("expected name query, got %q", r.URL.RawQuery)
		}
		page := r.URL.Query().Get("page")
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{
			"total_results": 2,
			"current_page": %s,
			"total_pages": 2,
			"videos": [{
				"id": %s,
				"song_title": "Track %s",
				"sources": [{"source": "youtube", "source_data": "vid%s"}]
			}]
		}`, page, page, page, page)
	}))
	t.Cleanup(server.Close)

	client := newClient(t, server)
	candidates, err := client.ListCandidates(context.Background(), catalog.Artist{Name: "Artist"})
	if err != nil {
		t.Fatalf("ListCandidates returned error: %v", err)
	}
	if len(candidates) != 2 {
		t.Fatalf("candidates = %d, want 2", len(candidates))
	}
	if candidates[1].SourceLocator != "yt:vid2" {
		t.Fatalf("second page not fetched: %#v", candidates[1])
	}
}

func TestListCandidatesClassifiesStatuses(t *testing.T) {
	cases := []struct {
		status int
		marker error
	}{
		{http.StatusTooManyRequests, services.ErrRateLimited},
		{http.StatusUnauthorized, services.ErrConfiguration},
		{http.StatusNotFound, services.ErrSourceGone},
		{http.StatusBadGateway, services.ErrProvider},
	}
	for _, tc := range cases {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(tc.status)
		}))
		client := newClient(t, server)
		_, err := client.ListCandidates(context.Background(), catalog.Artist{Name: "Artist"})
		server.Close()
		if !errors.Is(err, tc.marker) {
			t.Fatalf("status %d: error %v, want %v", tc.status, err, tc.marker)
		}
	}
}

func TestListCandidatesRejectsMalformedPayload(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"videos": "not-a-list"`))
	}))
	t.Cleanup(server.Close)

	client := newClient(t, server)
	if _, err := client.ListCandidates(context.Background(), catalog.Artist{Name: "Artist"}); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("error = %v, want validation marker", err)
	}
}
