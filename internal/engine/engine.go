// Package engine sequences the pipeline: search, extract, rank, and an
// optional deep-research pass over the top results.
package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/pdj555/job-engine/internal/ai"
	"github.com/pdj555/job-engine/internal/memory"
	"github.com/pdj555/job-engine/internal/opportunity"
	"github.com/pdj555/job-engine/internal/ranking"
	"github.com/pdj555/job-engine/internal/search"

	"go.uber.org/zap"
)

// State names the pipeline stages. The flow is linear with one optional
// branch, so an explicit sequence replaces any graph machinery.
type State string

const (
	StateSearching    State = "searching"
	StateExtracting   State = "extracting"
	StateRanking      State = "ranking"
	StateDeepResearch State = "deep_research"
	StateDone         State = "done"
	StateFailed       State = "failed"
)

const (
	defaultConcurrency  = 5
	defaultResearchTopN = 5
	defaultLimit        = 20
)

// Researcher runs a synthesis query about one opportunity.
type Researcher interface {
	Research(ctx context.Context, prompt string) (string, error)
}

// Config carries the orchestration knobs. Zero values fall back to documented
// defaults.
type Config struct {
	// Concurrency caps parallel extraction calls to respect provider rate
	// limits.
	Concurrency  int
	ResearchTopN int
	Limit        int
	Ranking      ranking.Config
}

func (c Config) withDefaults() Config {
	if c.Concurrency <= 0 {
		c.Concurrency = defaultConcurrency
	}
	if c.ResearchTopN <= 0 {
		c.ResearchTopN = defaultResearchTopN
	}
	if c.Limit <= 0 {
		c.Limit = defaultLimit
	}
	return c
}

// Engine wires the stages together. Extractor, researcher, and memory are all
// optional; a nil dependency skips its stage.
type Engine struct {
	aggregator *search.Aggregator
	extractor  ai.Extractor
	researcher Researcher
	memory     *memory.Memory
	cfg        Config
	logger     *zap.Logger
}

// Result is the terminal pipeline output. State is Done or Failed; Done always
// carries the full ranked list, even when some items are unscoreable.
type Result struct {
	State         State
	Opportunities *opportunity.Opportunities
	Warnings      []string
}

func New(aggregator *search.Aggregator, extractor ai.Extractor, researcher Researcher, mem *memory.Memory, cfg Config, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		aggregator: aggregator,
		extractor:  extractor,
		researcher: researcher,
		memory:     mem,
		cfg:        cfg.withDefaults(),
		logger:     logger,
	}
}

// Find runs the full pipeline for a query. quick skips memory and deep
// research. The returned error is non-nil only for the terminal failure case
// (no provider returned data); it wraps search.ErrNoResults.
func (e *Engine) Find(ctx context.Context, query string, profile *opportunity.Profile, quick bool) (*Result, error) {
	e.logger.Info("pipeline stage", zap.String("state", string(StateSearching)), zap.String("query", query))

	results, searchWarnings, err := e.aggregator.Search(ctx, query)
	if err != nil {
		if errors.Is(err, search.ErrNoResults) {
			return &Result{State: StateFailed, Warnings: warningStrings(searchWarnings)}, err
		}
		return &Result{State: StateFailed}, err
	}

	warnings := warningStrings(searchWarnings)
	opps := fromResults(results)

	if !quick && e.memory.Enabled() {
		suppressed := e.suppressSeen(ctx, opps)
		if suppressed > 0 {
			e.logger.Info("suppressed previously seen opportunities", zap.Int("count", suppressed))
		}
	}

	e.logger.Info("pipeline stage", zap.String("state", string(StateExtracting)), zap.Int("items", opps.Len()))
	extractionFailures := e.extractAll(ctx, opps)
	if extractionFailures > 0 {
		warnings = append(warnings, fmt.Sprintf("extraction failed for %d of %d results", extractionFailures, opps.Len()))
	}

	e.logger.Info("pipeline stage", zap.String("state", string(StateRanking)), zap.Int("items", opps.Len()))
	ranking.Rank(opps, profile, e.cfg.Ranking)
	opps.Truncate(e.cfg.Limit)

	if !quick && e.researcher != nil {
		e.logger.Info("pipeline stage", zap.String("state", string(StateDeepResearch)), zap.Int("top_n", e.cfg.ResearchTopN))
		e.deepResearch(ctx, opps)
	}

	if !quick && e.memory.Enabled() {
		e.remember(ctx, opps)
	}

	e.logger.Info("pipeline stage",
		zap.String("state", string(StateDone)),
		zap.Int("results", opps.Len()),
		zap.Int("warnings", len(warnings)),
	)

	return &Result{State: StateDone, Opportunities: opps, Warnings: warnings}, nil
}

// Research runs a standalone deep dive on one URL.
func (e *Engine) Research(ctx context.Context, title, company, url string) (string, error) {
	if e.researcher == nil {
		return "", errors.New("deep research is not configured")
	}
	if company == "" {
		company = "Unknown Company"
	}

	prompt := fmt.Sprintf(`Research this opportunity:
%s at %s
URL: %s

Tell me:
1. Is this legit?
2. What's realistic pay?
3. What's realistic hours?
4. Red flags?
5. Should I apply? Yes/No and why.

Be direct. No fluff.`, title, company, url)

	return e.researcher.Research(ctx, prompt)
}

func fromResults(results []search.Result) *opportunity.Opportunities {
	opps := &opportunity.Opportunities{}
	for _, r := range results {
		opps.Items = append(opps.Items, &opportunity.Opportunity{
			Title:       r.Title,
			URL:         r.URL,
			RawText:     r.Snippet,
			Source:      r.Source,
			AnnualPay:   r.AnnualPay,
			WeeklyHours: r.WeeklyHours,
			Remote:      r.Remote,
		})
	}
	opps.Dedupe()
	return opps
}

func (e *Engine) suppressSeen(ctx context.Context, opps *opportunity.Opportunities) int {
	kept := make([]*opportunity.Opportunity, 0, opps.Len())
	suppressed := 0

	for _, opp := range opps.Items {
		// Dedup runs against the url-independent text so the same posting on
		// a different board still collapses.
		if e.memory.SeenBefore(ctx, opp.Title+"\n"+opp.RawText) {
			suppressed++
			continue
		}
		kept = append(kept, opp)
	}

	opps.Items = kept
	return suppressed
}

// extractAll fills pay/hours/remote on every item that needs it, at most
// Concurrency calls in flight. Item failures are isolated: the item keeps nil
// fields and the batch continues. Output order never depends on completion
// order because items are mutated in place.
func (e *Engine) extractAll(ctx context.Context, opps *opportunity.Opportunities) int {
	if e.extractor == nil {
		return 0
	}

	sem := make(chan struct{}, e.cfg.Concurrency)
	var wg sync.WaitGroup
	var mu sync.Mutex
	failures := 0

	for _, opp := range opps.Items {
		// Providers that synthesize answers deliver pay already; skip the
		// extraction call for those items.
		if opp.AnnualPay != nil {
			continue
		}

		wg.Add(1)
		go func(opp *opportunity.Opportunity) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			extraction, err := e.extractor.Extract(ctx, opp.Title, opp.RawText)
			if err != nil {
				e.logger.Warn("extraction failed, keeping item with unknown fields",
					zap.String("url", opp.URL),
					zap.Error(err),
				)
				mu.Lock()
				failures++
				mu.Unlock()
				return
			}

			applyExtraction(opp, extraction)
		}(opp)
	}

	wg.Wait()
	return failures
}

// applyExtraction fills in fields the model found. A nil extraction field
// means unknown and must not erase a value the provider already supplied.
func applyExtraction(opp *opportunity.Opportunity, ex *ai.Extraction) {
	if ex == nil {
		return
	}
	if ex.Company != nil && opp.Company == "" {
		opp.Company = *ex.Company
	}
	if ex.AnnualPay != nil {
		opp.AnnualPay = ex.AnnualPay
	}
	if ex.WeeklyHours != nil {
		opp.WeeklyHours = ex.WeeklyHours
	}
	if ex.Remote != nil {
		opp.Remote = ex.Remote
	}
}

// deepResearch annotates the top-ranked items. A failed research call leaves
// the item exactly as ranked.
func (e *Engine) deepResearch(ctx context.Context, opps *opportunity.Opportunities) {
	top := opps.Top(e.cfg.ResearchTopN)

	var wg sync.WaitGroup
	for _, opp := range top {
		wg.Add(1)
		go func(opp *opportunity.Opportunity) {
			defer wg.Done()

			answer, err := e.Research(ctx, opp.Title, opp.Company, opp.URL)
			if err != nil {
				e.logger.Warn("deep research failed",
					zap.String("url", opp.URL),
					zap.Error(err),
				)
				return
			}
			opp.Research = answer
		}(opp)
	}
	wg.Wait()
}

func (e *Engine) remember(ctx context.Context, opps *opportunity.Opportunities) {
	for _, opp := range opps.Items {
		score := 0.0
		if opp.Score != nil {
			score = *opp.Score
		}
		e.memory.Remember(ctx, opp.URL, opp.Title+"\n"+opp.RawText, memory.Payload{
			Title: opp.Title,
			URL:   opp.URL,
			Score: score,
		})
	}
}

func warningStrings(warnings []search.Warning) []string {
	out := make([]string, 0, len(warnings))
	for _, w := range warnings {
		out = append(out, w.String())
	}
	return out
}
