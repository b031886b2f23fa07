package signals

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/go-cmp/cmp"
)

func testClient() *resty.Client {
	return NewHTTPClient(ClientOptions{UserAgent: "fleet-intel-test", Timeout: 2 * time.Second})
}

func testFeed(items int) string {
	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="UTF-8"?><rss version="2.0"><channel><title>Google Actualités</title>`)
	for i := 0; i < items; i++ {
		b.WriteString(`<item><title>Article `)
		b.WriteString(string(rune('A' + i)))
		b.WriteString(`</title><link>https://news.example.com/`)
		b.WriteString(string(rune('a' + i)))
		b.WriteString(`</link>`)
		if i == 0 {
			b.WriteString(`<pubDate>Tue, 05 Mar 2024 08:00:00 GMT</pubDate><source url="https://www.flotauto.com">Flottes Automobiles</source>`)
		}
		b.WriteString(`</item>`)
	}
	b.WriteString(`</channel></rss>`)
	return b.String()
}

func TestNewsFetchLimitsItemsAndMapsFields(t *testing.T) {
	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("q")
		if r.URL.Query().Get("hl") != "fr" || r.URL.Query().Get("ceid") != "FR:fr" {
			t.Errorf("Expected French locale parameters, got %s", r.URL.RawQuery)
		}
		if ua := r.Header.Get("User-Agent"); ua != "fleet-intel-test" {
			t.Errorf("Expected configured user agent, got '%s'", ua)
		}
		w.Header().Set("Content-Type", "application/rss+xml")
		w.Write([]byte(testFeed(7)))
	}))
	defer srv.Close()

	fetcher := NewNewsFetcher(testClient(), srv.URL+"/rss/search", nil)
	result := fetcher.Fetch(t.Context(), "Geotab")

	if result.Outcome != OutcomeOK {
		t.Fatalf("Expected outcome ok, got %s (%v)", result.Outcome, result.Err)
	}
	if len(result.Value) != DefaultNewsLimit {
		t.Fatalf("Expected %d items, got %d", DefaultNewsLimit, len(result.Value))
	}

	wantQuery := `Geotab France (télématique OR "gestion de flotte")`
	if gotQuery != wantQuery {
		t.Errorf("Expected query %q, got %q", wantQuery, gotQuery)
	}

	want := NewsItem{
		Title:         "Article A",
		Link:          "https://news.example.com/a",
		PublishedDate: "Tue, 05 Mar 2024 08:00:00 GMT",
		SourceName:    "Flottes Automobiles",
	}
	if diff := cmp.Diff(want, result.Value[0]); diff != "" {
		t.Errorf("First item mismatch (-want +got):\n%s", diff)
	}

	if result.Value[1].PublishedDate != "N/A" || result.Value[1].SourceName != "N/A" {
		t.Errorf("Expected N/A defaults, got date '%s' source '%s'", result.Value[1].PublishedDate, result.Value[1].SourceName)
	}
}

func TestNewsFetchEmptyFeed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(testFeed(0)))
	}))
	defer srv.Close()

	result := NewNewsFetcher(testClient(), srv.URL, nil).Fetch(t.Context(), "Geotab")

	if result.Outcome != OutcomeEmpty {
		t.Errorf("Expected outcome empty, got %s", result.Outcome)
	}
	if result.Value == nil || len(result.Value) != 0 {
		t.Errorf("Expected empty non-nil items, got %v", result.Value)
	}
}

func TestNewsFetchFailures(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{
			name: "server error",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusServiceUnavailable)
			},
		},
		{
			name: "not a feed",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte("this is not xml"))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			result := NewNewsFetcher(testClient(), srv.URL, nil).Fetch(t.Context(), "Geotab")

			if result.Outcome != OutcomeFailed {
				t.Errorf("Expected outcome failed, got %s", result.Outcome)
			}
			if result.Err == nil {
				t.Error("Expected failure cause to be recorded")
			}
			if len(result.Value) != 0 {
				t.Errorf("Expected no items, got %d", len(result.Value))
			}
		})
	}
}

func TestNewsFetchUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	endpoint := srv.URL
	srv.Close()

	result := NewNewsFetcher(testClient(), endpoint, nil).Fetch(t.Context(), "Geotab")

	if !result.Failed() {
		t.Errorf("Expected failed outcome for unreachable endpoint, got %s", result.Outcome)
	}
}
