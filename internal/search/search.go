// Package search queries external providers and merges their results into a
// single deduplicated list.
package search

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// ErrNoResults is returned when every enabled provider failed. A single
// failing provider is a warning, not an error.
var ErrNoResults = errors.New("no search provider returned results")

// Result is a raw search hit, normalized across providers. Pay/hours/remote
// are usually nil; providers that synthesize answers (perplexity) may fill
// them, letting the extraction stage skip those items.
type Result struct {
	Title   string
	URL     string
	Snippet string
	Source  string

	AnnualPay   *float64
	WeeklyHours *float64
	Remote      *bool
}

// Provider is a single external search backend.
type Provider interface {
	Name() string
	Search(ctx context.Context, query string) ([]Result, error)
}

// Warning records a provider that failed without failing the search.
type Warning struct {
	Provider string
	Err      error
}

func (w Warning) String() string {
	return fmt.Sprintf("provider %s failed: %v", w.Provider, w.Err)
}

// Aggregator fans a query out to all providers concurrently. Provider order
// in the slice is priority order: it decides both output ordering and which
// duplicate of a URL survives.
type Aggregator struct {
	providers []Provider
	logger    *zap.Logger
}

func NewAggregator(providers []Provider, logger *zap.Logger) *Aggregator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Aggregator{providers: providers, logger: logger}
}

// Search queries every provider concurrently and joins the results in
// provider-priority order. Results are deduplicated by URL, first occurrence
// wins. When all providers fail the returned error wraps ErrNoResults.
func (a *Aggregator) Search(ctx context.Context, query string) ([]Result, []Warning, error) {
	if len(a.providers) == 0 {
		return nil, nil, fmt.Errorf("%w: no providers enabled", ErrNoResults)
	}

	perProvider := make([][]Result, len(a.providers))
	errs := make([]error, len(a.providers))

	var wg sync.WaitGroup
	for i, p := range a.providers {
		wg.Add(1)
		go func(i int, p Provider) {
			defer wg.Done()
			results, err := p.Search(ctx, query)
			if err != nil {
				errs[i] = err
				return
			}
			perProvider[i] = results
		}(i, p)
	}
	wg.Wait()

	var warnings []Warning
	var merged []Result
	seen := make(map[string]struct{})

	for i, p := range a.providers {
		if errs[i] != nil {
			warnings = append(warnings, Warning{Provider: p.Name(), Err: errs[i]})
			a.logger.Warn("search provider failed",
				zap.String("provider", p.Name()),
				zap.Error(errs[i]),
			)
			continue
		}

		for _, r := range perProvider[i] {
			if r.URL == "" {
				continue
			}
			if _, dup := seen[r.URL]; dup {
				continue
			}
			seen[r.URL] = struct{}{}
			merged = append(merged, r)
		}
	}

	if len(warnings) == len(a.providers) {
		return nil, warnings, fmt.Errorf("%w: all %d providers failed", ErrNoResults, len(a.providers))
	}

	a.logger.Info("search completed",
		zap.String("query", query),
		zap.Int("results", len(merged)),
		zap.Int("providers_failed", len(warnings)),
	)

	return merged, warnings, nil
}
