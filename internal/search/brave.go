package search

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

const (
	braveAPIURL = "https://api.search.brave.com/res/v1/web/search"
	// Brave caps web search at 20 results per request.
	braveMaxCount = 20
)

// braveQueryVariants widen a free-text query into the opportunity classes the
// engine hunts: plain jobs, freelance work, grants, and founding roles.
var braveQueryVariants = []string{
	"%s remote job hiring",
	"%s freelance contract",
	"%s grant funding opportunity",
	"%s startup equity cofounder",
}

// Brave queries the Brave web search API. Each Search call issues one request
// per query variant and merges the pages in variant order.
type Brave struct {
	token      string
	logger     *zap.Logger
	HTTPClient *http.Client
	APIURL     string
	Freshness  string
}

func NewBrave(token string, logger *zap.Logger) *Brave {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Brave{
		token:  token,
		logger: logger,
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		APIURL:    braveAPIURL,
		Freshness: "pm",
	}
}

func (b *Brave) Name() string { return "brave" }

type braveResponse struct {
	Web struct {
		Results []struct {
			Title       string `json:"title"`
			URL         string `json:"url"`
			Description string `json:"description"`
		} `json:"results"`
	} `json:"web"`
}

func (b *Brave) Search(ctx context.Context, query string) ([]Result, error) {
	variants := make([]string, len(braveQueryVariants))
	for i, v := range braveQueryVariants {
		variants[i] = fmt.Sprintf(v, query)
	}

	perVariant := make([][]Result, len(variants))
	errs := make([]error, len(variants))

	var wg sync.WaitGroup
	for i, variant := range variants {
		wg.Add(1)
		go func(i int, variant string) {
			defer wg.Done()
			perVariant[i], errs[i] = b.searchOnce(ctx, variant)
		}(i, variant)
	}
	wg.Wait()

	var merged []Result
	var firstErr error
	for i := range variants {
		if errs[i] != nil {
			if firstErr == nil {
				firstErr = errs[i]
			}
			continue
		}
		merged = append(merged, perVariant[i]...)
	}

	// A variant may fail on quota while others succeed. Only report an error
	// when nothing came back at all.
	if len(merged) == 0 && firstErr != nil {
		return nil, firstErr
	}

	return merged, nil
}

func (b *Brave) searchOnce(ctx context.Context, query string) ([]Result, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.APIURL, nil)
	if err != nil {
		return nil, err
	}

	q := url.Values{}
	q.Set("q", query)
	q.Set("count", strconv.Itoa(braveMaxCount))
	q.Set("freshness", b.Freshness)
	q.Set("text_decorations", "false")
	req.URL.RawQuery = q.Encode()

	req.Header.Set("X-Subscription-Token", b.token)
	req.Header.Set("Accept", "application/json")

	b.logger.Debug("brave request", zap.String("query", query))

	resp, err := b.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("bad status: %s", resp.Status)
	}

	var body braveResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, err
	}

	results := make([]Result, 0, len(body.Web.Results))
	for _, item := range body.Web.Results {
		if strings.TrimSpace(item.URL) == "" {
			continue
		}
		results = append(results, Result{
			Title:   item.Title,
			URL:     item.URL,
			Snippet: item.Description,
			Source:  b.Name(),
		})
	}

	return results, nil
}
