package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	perplexityAPIURL = "https://api.perplexity.ai/chat/completions"
	perplexityModel  = "llama-3.1-sonar-large-128k-online"
)

const perplexitySearchPrompt = `Find the best opportunities for: %s

Focus on:
- High pay, low hours
- Remote/flexible
- Currently open

Return as JSON array with objects containing:
- title
- company (if known)
- url
- description
- estimated_pay (annual USD, just a number)
- estimated_hours_per_week (just a number)
- remote (boolean)

Only return the JSON array, nothing else.`

// Perplexity asks a synthesis model for opportunities instead of crawling an
// index. Its results arrive pre-enriched with pay/hours estimates, so the
// extraction stage can skip them.
type Perplexity struct {
	token      string
	logger     *zap.Logger
	HTTPClient *http.Client
	APIURL     string
	Model      string
}

func NewPerplexity(token string, logger *zap.Logger) *Perplexity {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Perplexity{
		token:  token,
		logger: logger,
		HTTPClient: &http.Client{
			Timeout: 60 * time.Second,
		},
		APIURL: perplexityAPIURL,
		Model:  perplexityModel,
	}
}

func (p *Perplexity) Name() string { return "perplexity" }

type perplexityItem struct {
	Title       string   `json:"title"`
	Company     string   `json:"company"`
	URL         string   `json:"url"`
	Description string   `json:"description"`
	Pay         *float64 `json:"estimated_pay"`
	Hours       *float64 `json:"estimated_hours_per_week"`
	Remote      *bool    `json:"remote"`
}

func (p *Perplexity) Search(ctx context.Context, query string) ([]Result, error) {
	content, err := p.complete(ctx, fmt.Sprintf(perplexitySearchPrompt, query))
	if err != nil {
		return nil, err
	}

	items, err := parsePerplexityItems(content)
	if err != nil {
		return nil, err
	}

	results := make([]Result, 0, len(items))
	for _, item := range items {
		if strings.TrimSpace(item.URL) == "" {
			continue
		}
		results = append(results, Result{
			Title:       item.Title,
			URL:         item.URL,
			Snippet:     item.Description,
			Source:      p.Name(),
			AnnualPay:   item.Pay,
			WeeklyHours: item.Hours,
			Remote:      item.Remote,
		})
	}

	return results, nil
}

// Research runs a free-form deep dive and returns the synthesized answer.
func (p *Perplexity) Research(ctx context.Context, prompt string) (string, error) {
	return p.complete(ctx, prompt)
}

func (p *Perplexity) complete(ctx context.Context, prompt string) (string, error) {
	payload := map[string]any{
		"model": p.Model,
		"messages": []map[string]string{
			{"role": "user", "content": prompt},
		},
		"temperature": 0.1,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.APIURL, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", p.token))
	req.Header.Set("Content-Type", "application/json")

	p.logger.Debug("perplexity request", zap.Int("prompt_length", len(prompt)))

	resp, err := p.HTTPClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("bad status: %s", resp.Status)
	}

	var parsed struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", err
	}

	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("perplexity returned no choices")
	}

	return parsed.Choices[0].Message.Content, nil
}

// parsePerplexityItems recovers a JSON array from a chat answer that may wrap
// it in prose or a code fence.
func parsePerplexityItems(content string) ([]perplexityItem, error) {
	start := strings.Index(content, "[")
	end := strings.LastIndex(content, "]")
	if start < 0 || end <= start {
		return nil, fmt.Errorf("no JSON array in perplexity response")
	}

	var items []perplexityItem
	if err := json.Unmarshal([]byte(content[start:end+1]), &items); err != nil {
		return nil, fmt.Errorf("parse perplexity response: %w", err)
	}

	return items, nil
}
