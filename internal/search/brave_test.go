package search

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"go.uber.org/zap"
)

func braveFixture(urls ...string) string {
	type item struct {
		Title       string `json:"title"`
		URL         string `json:"url"`
		Description string `json:"description"`
	}
	var items []item
	for _, u := range urls {
		items = append(items, item{Title: "posting", URL: u, Description: "snippet"})
	}
	body, _ := json.Marshal(map[string]any{
		"web": map[string]any{"results": items},
	})
	return string(body)
}

func TestBraveSearchFansOutVariants(t *testing.T) {
	var mu sync.Mutex
	var queries []string

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("X-Subscription-Token"); got != "secret" {
			t.Errorf("missing subscription token, got %q", got)
		}
		if got := r.URL.Query().Get("count"); got != "20" {
			t.Errorf("expected count=20, got %q", got)
		}

		q := r.URL.Query().Get("q")
		mu.Lock()
		n := len(queries)
		queries = append(queries, q)
		mu.Unlock()

		fmt.Fprint(w, braveFixture(fmt.Sprintf("https://result/%d", n)))
	}))
	defer ts.Close()

	b := NewBrave("secret", zap.NewNop())
	b.APIURL = ts.URL

	results, err := b.Search(context.Background(), "data engineer")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(queries) != len(braveQueryVariants) {
		t.Fatalf("expected %d variant requests, got %d", len(braveQueryVariants), len(queries))
	}
	for _, q := range queries {
		if !strings.Contains(q, "data engineer") {
			t.Fatalf("variant query missing the base query: %q", q)
		}
	}
	if len(results) != len(braveQueryVariants) {
		t.Fatalf("expected one result per variant, got %d", len(results))
	}
	for _, r := range results {
		if r.Source != "brave" {
			t.Fatalf("expected source brave, got %q", r.Source)
		}
	}
}

func TestBraveSearchPartialVariantFailure(t *testing.T) {
	var mu sync.Mutex
	calls := 0

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		calls++
		first := calls == 1
		mu.Unlock()

		if first {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		fmt.Fprint(w, braveFixture("https://ok/"+r.URL.Query().Get("q")))
	}))
	defer ts.Close()

	b := NewBrave("t", zap.NewNop())
	b.APIURL = ts.URL

	results, err := b.Search(context.Background(), "q")
	if err != nil {
		t.Fatalf("one failed variant must not fail the search: %v", err)
	}
	if len(results) != len(braveQueryVariants)-1 {
		t.Fatalf("expected %d results, got %d", len(braveQueryVariants)-1, len(results))
	}
}

func TestBraveSearchAllVariantsFailed(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer ts.Close()

	b := NewBrave("bad", zap.NewNop())
	b.APIURL = ts.URL

	if _, err := b.Search(context.Background(), "q"); err == nil {
		t.Fatalf("expected an error when every variant fails")
	}
}

func TestBraveSearchDropsEmptyURLs(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, braveFixture("", "https://keep"))
	}))
	defer ts.Close()

	b := NewBrave("t", zap.NewNop())
	b.APIURL = ts.URL

	results, err := b.Search(context.Background(), "q")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, r := range results {
		if r.URL == "" {
			t.Fatalf("results without URLs must be dropped")
		}
	}
	if len(results) != len(braveQueryVariants) {
		t.Fatalf("expected %d kept results, got %d", len(braveQueryVariants), len(results))
	}
}
