package api

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

	"github.com/pdj555/job-engine/internal/engine"
	"github.com/pdj555/job-engine/internal/opportunity"
	"github.com/pdj555/job-engine/internal/search"
)

type stubFinder struct {
	result    *engine.Result
	err       error
	lastQuery string
	lastQuick bool
	profile   *opportunity.Profile
}

func (s *stubFinder) Find(ctx context.Context, query string, profile *opportunity.Profile, quick bool) (*engine.Result, error) {
	s.lastQuery = query
	s.lastQuick = quick
	s.profile = profile
	if s.err != nil {
		return s.result, s.err
	}
	return s.result, nil
}

func doRequest(t *testing.T, server *Server, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()

	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}

	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)
	return rec
}

func TestSearchEndpoint(t *testing.T) {
	finder := &stubFinder{result: &engine.Result{
		State: engine.StateDone,
		Opportunities: &opportunity.Opportunities{Items: []*opportunity.Opportunity{
			{Title: "A", URL: "https://a", Score: opportunity.Float(120)},
		}},
		Warnings: []string{"provider brave failed: rate limited"},
	}}
	server := NewServer(finder, opportunity.DefaultProfile(), "", []string{"brave"}, zap.NewNop())

	rec := doRequest(t, server, http.MethodPost, "/search", `{"query": "data engineer"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Results  []map[string]any `json:"results"`
		Count    int              `json:"count"`
		Warnings []string         `json:"warnings"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}

	if resp.Count != 1 || len(resp.Results) != 1 {
		t.Fatalf("expected 1 result, got %+v", resp)
	}
	if len(resp.Warnings) != 1 {
		t.Fatalf("partial results must surface warnings, got %+v", resp.Warnings)
	}
	if finder.lastQuery != "data engineer" {
		t.Fatalf("query not passed through: %q", finder.lastQuery)
	}
}

func TestSearchEndpointRequiresQuery(t *testing.T) {
	server := NewServer(&stubFinder{}, nil, "", nil, zap.NewNop())

	rec := doRequest(t, server, http.MethodPost, "/search", `{}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestSearchEndpointNoResults(t *testing.T) {
	finder := &stubFinder{
		result: &engine.Result{State: engine.StateFailed, Warnings: []string{"provider brave failed: down"}},
		err:    fmt.Errorf("%w: all 1 providers failed", search.ErrNoResults),
	}
	server := NewServer(finder, nil, "", nil, zap.NewNop())

	rec := doRequest(t, server, http.MethodPost, "/search", `{"query": "q"}`)
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", rec.Code)
	}

	var resp struct {
		Error    string   `json:"error"`
		Warnings []string `json:"warnings"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Error == "" || len(resp.Warnings) != 1 {
		t.Fatalf("failure must carry the error and warnings: %+v", resp)
	}
}

func TestSearchGetIsAlwaysQuick(t *testing.T) {
	finder := &stubFinder{result: &engine.Result{
		State:         engine.StateDone,
		Opportunities: &opportunity.Opportunities{},
	}}
	server := NewServer(finder, nil, "", nil, zap.NewNop())

	rec := doRequest(t, server, http.MethodGet, "/search?q=engineer", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !finder.lastQuick {
		t.Fatalf("GET /search must run in quick mode")
	}
	if finder.lastQuery != "engineer" {
		t.Fatalf("query not passed through: %q", finder.lastQuery)
	}
}

func TestSearchGetRequiresQuery(t *testing.T) {
	server := NewServer(&stubFinder{}, nil, "", nil, zap.NewNop())

	rec := doRequest(t, server, http.MethodGet, "/search", "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestProfileEndpoint(t *testing.T) {
	path := t.TempDir() + "/profile.yaml"
	server := NewServer(&stubFinder{}, opportunity.DefaultProfile(), path, nil, zap.NewNop())

	rec := doRequest(t, server, http.MethodPost, "/profile",
		`{"min_income": 150000, "max_hours_weekly": 25, "skills": ["go"], "remote_only": true}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var got opportunity.Profile
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if got.MinIncome != 150000 || got.MaxHoursWeekly != 25 || !got.RemoteOnly {
		t.Fatalf("profile not echoed back: %+v", got)
	}

	loaded, err := opportunity.LoadProfile(path)
	if err != nil {
		t.Fatalf("profile must be persisted: %v", err)
	}
	if loaded.MinIncome != 150000 {
		t.Fatalf("persisted profile mismatch: %+v", loaded)
	}
}

func TestProfileAppliedToLaterSearches(t *testing.T) {
	finder := &stubFinder{result: &engine.Result{
		State:         engine.StateDone,
		Opportunities: &opportunity.Opportunities{},
	}}
	server := NewServer(finder, opportunity.DefaultProfile(), "", nil, zap.NewNop())

	doRequest(t, server, http.MethodPost, "/profile", `{"min_income": 99999}`)
	doRequest(t, server, http.MethodPost, "/search", `{"query": "q"}`)

	if finder.profile == nil || finder.profile.MinIncome != 99999 {
		t.Fatalf("updated profile must apply to later searches, got %+v", finder.profile)
	}
}

type countingFinder struct {
	mu      sync.Mutex
	calls   int
	incomes []int
}

func (c *countingFinder) Find(ctx context.Context, query string, profile *opportunity.Profile, quick bool) (*engine.Result, error) {
	c.mu.Lock()
	c.calls++
	if profile != nil {
		c.incomes = append(c.incomes, profile.MinIncome)
	}
	c.mu.Unlock()
	return &engine.Result{State: engine.StateDone, Opportunities: &opportunity.Opportunities{}}, nil
}

func TestConcurrentProfileUpdatesAndSearches(t *testing.T) {
	finder := &countingFinder{}
	server := NewServer(finder, opportunity.DefaultProfile(), "", nil, zap.NewNop())

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			body := fmt.Sprintf(`{"min_income": %d}`, 100000+i)
			rec := doRequest(t, server, http.MethodPost, "/profile", body)
			if rec.Code != http.StatusOK {
				t.Errorf("profile update: expected 200, got %d", rec.Code)
			}
		}(i)
		go func() {
			defer wg.Done()
			rec := doRequest(t, server, http.MethodPost, "/search", `{"query": "q"}`)
			if rec.Code != http.StatusOK {
				t.Errorf("search: expected 200, got %d", rec.Code)
			}
		}()
	}
	wg.Wait()

	if finder.calls != 50 {
		t.Fatalf("expected 50 searches, got %d", finder.calls)
	}
	// Every search must have observed a coherent profile, either the default
	// or one of the updates.
	for _, income := range finder.incomes {
		if income != 100000 && (income < 100000 || income >= 100050) {
			t.Fatalf("search saw a torn profile: min_income %d", income)
		}
	}
}

func TestHealthEndpoint(t *testing.T) {
	server := NewServer(&stubFinder{}, nil, "", []string{"brave", "perplexity"}, zap.NewNop())

	rec := doRequest(t, server, http.MethodGet, "/healthz", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var resp struct {
		Status    string   `json:"status"`
		Providers []string `json:"providers"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Status != "ok" || len(resp.Providers) != 2 {
		t.Fatalf("unexpected health payload: %+v", resp)
	}
}
