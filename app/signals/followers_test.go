package signals

import (
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/suivideflotte/fleet-intel/app/session"
)

func TestExtractFollowerCount(t *testing.T) {
	tests := []struct {
		name   string
		page   string
		want   int
		wantOK bool
	}{
		{name: "embedded json", page: `{"followerCount": 12345,"name":"Geotab"}`, want: 12345, wantOK: true},
		{name: "french label with spaces", page: `<span>1 234 abonnés</span>`, want: 1234, wantOK: true},
		{name: "narrow no-break space", page: "12\u202f345\u00a0abonnés", want: 12345, wantOK: true},
		{name: "english label with comma", page: `5,678 followers`, want: 5678, wantOK: true},
		{name: "dot separator", page: `2.500 abonnés`, want: 2500, wantOK: true},
		{name: "case insensitive", page: `1 234 FOLLOWERS`, want: 1234, wantOK: true},
		{name: "out of bound json falls through", page: `{"followerCount":5} 2 500 abonnés`, want: 2500, wantOK: true},
		{name: "lower bound is exclusive", page: `10 followers`, wantOK: false},
		{name: "upper bound is exclusive", page: `10 000 000 followers`, wantOK: false},
		{name: "too large", page: `{"followerCount": 25000000}`, wantOK: false},
		{name: "no count", page: `<html><body>Geotab</body></html>`, wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ExtractFollowerCount(tt.page)
			if ok != tt.wantOK {
				t.Fatalf("Expected ok=%v, got ok=%v (count %d)", tt.wantOK, ok, got)
			}
			if ok && got != tt.want {
				t.Errorf("Expected %d, got %d", tt.want, got)
			}
		})
	}
}

func TestFollowerFetchWithoutCredentialsMakesNoRequest(t *testing.T) {
	var requests atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
	}))
	defer srv.Close()

	result := NewFollowerFetcher(testClient(), nil).Fetch(t.Context(), srv.URL, nil)

	if result.Outcome != OutcomeSkipped {
		t.Errorf("Expected outcome skipped, got %s", result.Outcome)
	}
	if result.Value.Value != nil || result.Value.Authoritative {
		t.Errorf("Expected absent non-authoritative count, got %+v", result.Value)
	}
	if requests.Load() != 0 {
		t.Errorf("Expected no request, got %d", requests.Load())
	}
}

func TestFollowerFetchSendsSessionCookies(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, err := r.Cookie(session.CookieAuthToken)
		if err != nil || token.Value != "AQEDAR-token" {
			t.Errorf("Expected li_at cookie, got %v (%v)", token, err)
		}
		id, err := r.Cookie(session.CookieSessionID)
		if err != nil || id.Value != "ajax:123" {
			t.Errorf("Expected JSESSIONID cookie, got %v (%v)", id, err)
		}
		w.Write([]byte(`<code>{"followerCount": 48211}</code>`))
	}))
	defer srv.Close()

	creds := &session.Credentials{AuthToken: "AQEDAR-token", SessionID: "ajax:123"}
	result := NewFollowerFetcher(testClient(), nil).Fetch(t.Context(), srv.URL, creds)

	if result.Outcome != OutcomeOK {
		t.Fatalf("Expected outcome ok, got %s (%v)", result.Outcome, result.Err)
	}
	if result.Value.Value == nil || *result.Value.Value != 48211 {
		t.Errorf("Expected 48211 followers, got %v", result.Value.Value)
	}
	if !result.Value.Authoritative {
		t.Error("Expected authoritative count")
	}
}

func TestFollowerFetchFailures(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{
			name: "non-200",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusFound)
			},
		},
		{
			name: "no count in page",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`<html><body>Sign in</body></html>`))
			},
		},
	}

	creds := &session.Credentials{AuthToken: "a", SessionID: "b"}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			result := NewFollowerFetcher(testClient(), nil).Fetch(t.Context(), srv.URL, creds)

			if result.Outcome != OutcomeFailed {
				t.Errorf("Expected outcome failed, got %s", result.Outcome)
			}
			if result.Value.Value != nil || result.Value.Authoritative {
				t.Errorf("Expected absent count, got %+v", result.Value)
			}
		})
	}
}

func TestServerCookiesDoNotOutliveSession(t *testing.T) {
	var profileCookies []string
	var jobCookie string

	mux := http.NewServeMux()
	mux.HandleFunc("/company/geotab", func(w http.ResponseWriter, r *http.Request) {
		profileCookies = append(profileCookies, r.Header.Get("Cookie"))
		http.SetCookie(w, &http.Cookie{Name: session.CookieAuthToken, Value: "server-issued-session", Path: "/"})
		w.Write([]byte(`{"followerCount": 48211}`))
	})
	mux.HandleFunc("/jobs/search", func(w http.ResponseWriter, r *http.Request) {
		jobCookie = r.Header.Get("Cookie")
		w.Write([]byte(jobSearchPage))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	client := testClient()
	followers := NewFollowerFetcher(client, nil)
	jobs := NewJobFetcher(client, srv.URL+"/jobs/search", nil)

	store := session.NewStore()
	if err := store.Login("AQEDAR-token", "ajax:123"); err != nil {
		t.Fatalf("Failed to login: %v", err)
	}

	for i := 0; i < 2; i++ {
		result := followers.Fetch(t.Context(), srv.URL+"/company/geotab", store.Credentials())
		if result.Outcome != OutcomeOK {
			t.Fatalf("Expected outcome ok, got %s (%v)", result.Outcome, result.Err)
		}
	}

	want := "li_at=AQEDAR-token; JSESSIONID=ajax:123"
	for i, got := range profileCookies {
		if got != want {
			t.Errorf("Profile request %d: expected Cookie '%s', got '%s'", i, want, got)
		}
	}

	store.Logout()
	jobs.Fetch(t.Context(), "Geotab")

	if store.State() != session.StateUnauthenticated {
		t.Fatalf("Expected unauthenticated session, got %s", store.State())
	}
	if jobCookie != "" {
		t.Errorf("Expected no cookies after logout, got '%s'", jobCookie)
	}
}
