package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	_ "embed"

	"github.com/pdj555/job-engine/internal/ai"
	"github.com/pdj555/job-engine/internal/logger"
	"github.com/pdj555/job-engine/internal/utils"
	"go.uber.org/zap"
)

type contentGenerator interface {
	GenerateContent(ctx context.Context, prompt string) (string, error)
}

//go:embed prompt.md
var promptTemplate string

const (
	defaultMaxLogLength = 200
	defaultMaxAttempts  = 3

	strictInstruction = "\n\nYour previous answer was not valid JSON. " +
		"Return ONLY a single valid JSON object with the requested fields. " +
		"No prose, no markdown fences."
)

// Extractor pulls pay/hours/remote fields out of posting text with a Gemini
// prompt. Transport errors are retried with exponential backoff; a malformed
// answer gets exactly one retry with a stricter instruction.
type Extractor struct {
	generator   contentGenerator
	logger      *zap.Logger
	maxAttempts int
	maxLogLen   int
	backoffBase time.Duration
}

func NewExtractor(generator contentGenerator, maxAttempts, maxLogLength int, log *zap.Logger) *Extractor {
	if maxAttempts <= 0 {
		maxAttempts = defaultMaxAttempts
	}
	if maxLogLength <= 0 {
		maxLogLength = defaultMaxLogLength
	}
	if log == nil {
		log = zap.NewNop()
	}

	return &Extractor{
		generator:   generator,
		logger:      log,
		maxAttempts: maxAttempts,
		maxLogLen:   maxLogLength,
		backoffBase: time.Second,
	}
}

func (e *Extractor) Extract(ctx context.Context, title, text string) (*ai.Extraction, error) {
	prompt := buildPrompt(title, text)

	e.logger.Debug("gemini extraction request",
		zap.Int("prompt_length", utf8.RuneCountInString(prompt)),
		zap.String("prompt_preview", logger.TruncateForLog(prompt, e.maxLogLen)),
	)

	raw, err := e.generate(ctx, prompt)
	if err != nil {
		return nil, err
	}

	extraction, parseErr := parseExtraction(raw)
	if parseErr == nil {
		return extraction, nil
	}

	// One retry with a stricter instruction, then give up.
	e.logger.Debug("gemini extraction output unparseable, retrying strict",
		zap.String("response_preview", logger.TruncateForLog(raw, e.maxLogLen)),
		zap.Error(parseErr),
	)

	raw, err = e.generate(ctx, prompt+strictInstruction)
	if err != nil {
		return nil, err
	}

	extraction, parseErr = parseExtraction(raw)
	if parseErr != nil {
		return nil, fmt.Errorf("extraction output unusable after strict retry: %w", parseErr)
	}

	return extraction, nil
}

// generate calls the model with bounded exponential backoff on transport
// errors.
func (e *Extractor) generate(ctx context.Context, prompt string) (string, error) {
	var lastErr error
	for attempt := 0; attempt < e.maxAttempts; attempt++ {
		if attempt > 0 {
			delay := e.backoffBase * time.Duration(1<<(attempt-1))
			if err := utils.WaitFor(ctx, delay); err != nil {
				return "", err
			}
		}

		raw, err := e.generator.GenerateContent(ctx, prompt)
		if err == nil {
			return raw, nil
		}
		lastErr = err

		e.logger.Debug("gemini call failed",
			zap.Int("attempt", attempt+1),
			zap.Error(err),
		)
	}

	return "", fmt.Errorf("gemini call failed after %d attempts: %w", e.maxAttempts, lastErr)
}

func buildPrompt(title, text string) string {
	prompt := strings.ReplaceAll(promptTemplate, "{{TITLE}}", title)
	return strings.ReplaceAll(prompt, "{{TEXT}}", text)
}

func parseExtraction(raw string) (*ai.Extraction, error) {
	cleaned := extractJSON(raw)

	var data map[string]any
	if err := json.Unmarshal([]byte(cleaned), &data); err != nil {
		return nil, fmt.Errorf("parse gemini response: %w", err)
	}

	return &ai.Extraction{
		Company:     coerceStringPtr(data["company"]),
		AnnualPay:   coerceFloatPtr(data["annual_pay"]),
		WeeklyHours: coerceFloatPtr(data["weekly_hours"]),
		Remote:      coerceBoolPtr(data["remote"]),
	}, nil
}

func extractJSON(raw string) string {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "```") {
		raw = strings.TrimPrefix(raw, "```json")
		raw = strings.TrimPrefix(raw, "```")
		raw = strings.TrimSpace(raw)
		if idx := strings.LastIndex(raw, "```"); idx != -1 {
			raw = raw[:idx]
		}
	}
	raw = strings.Trim(raw, "`")
	return strings.TrimSpace(raw)
}

func coerceStringPtr(v any) *string {
	s, ok := v.(string)
	if !ok {
		return nil
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

func coerceFloatPtr(v any) *float64 {
	switch val := v.(type) {
	case float64:
		if math.IsNaN(val) || val <= 0 {
			return nil
		}
		return &val
	case string:
		trimmed := strings.ToLower(strings.TrimSpace(val))
		trimmed = strings.TrimPrefix(trimmed, "$")
		trimmed = strings.ReplaceAll(trimmed, ",", "")

		// Models sometimes answer "120k" despite the schema.
		multiplier := 1.0
		if strings.HasSuffix(trimmed, "k") {
			multiplier = 1000
			trimmed = strings.TrimSuffix(trimmed, "k")
		}

		f, err := strconv.ParseFloat(trimmed, 64)
		if err != nil || f <= 0 {
			return nil
		}
		f *= multiplier
		return &f
	default:
		return nil
	}
}

func coerceBoolPtr(v any) *bool {
	switch val := v.(type) {
	case bool:
		return &val
	case string:
		switch strings.ToLower(strings.TrimSpace(val)) {
		case "true", "yes":
			t := true
			return &t
		case "false", "no":
			f := false
			return &f
		}
		return nil
	default:
		return nil
	}
}
