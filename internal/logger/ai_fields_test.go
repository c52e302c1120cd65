package logger

import (
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestCommonFields(t *testing.T) {
	fields := CommonFields("  gemini  ", "gemini-2.5-flash")
	if len(fields) != 2 {
		t.Fatalf("expected 2 fields, got %d", len(fields))
	}
	if fields[0].Key != FieldProvider || fields[0].String != "gemini" {
		t.Fatalf("unexpected provider field: %+v", fields[0])
	}
	if fields[1].Key != FieldModel || fields[1].String != "gemini-2.5-flash" {
		t.Fatalf("unexpected model field: %+v", fields[1])
	}

	if got := CommonFields("gemini", "  "); len(got) != 1 {
		t.Fatalf("blank model must be omitted, got %d fields", len(got))
	}
	if got := CommonFields("", ""); len(got) != 0 {
		t.Fatalf("expected no fields, got %d", len(got))
	}
}

func TestWithCommonFields(t *testing.T) {
	core, observed := observer.New(zapcore.InfoLevel)

	enriched := WithCommonFields(zap.New(core), "gemini", "model-x")
	enriched.Info("extraction started")

	entries := observed.All()
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}

	ctx := entries[0].ContextMap()
	if ctx[FieldProvider] != "gemini" || ctx[FieldModel] != "model-x" {
		t.Fatalf("unexpected fields: %v", ctx)
	}
}

func TestWithCommonFieldsNilLogger(t *testing.T) {
	enriched := WithCommonFields(nil, "gemini", "model-x")
	if enriched == nil {
		t.Fatalf("expected a fallback logger")
	}
	enriched.Info("must not panic")
}

func TestTruncateForLog(t *testing.T) {
	if got := TruncateForLog("  short  ", 100); got != "short" {
		t.Fatalf("expected trimmed string, got %q", got)
	}
	if got := TruncateForLog("abcdef", 3); got != "abc..." {
		t.Fatalf("expected abc..., got %q", got)
	}
	if got := TruncateForLog("anything", 0); got != "" {
		t.Fatalf("expected empty string for zero limit, got %q", got)
	}
	// Runes, not bytes.
	if got := TruncateForLog("héllo wörld", 5); got != "héllo..." {
		t.Fatalf("expected rune-aware truncation, got %q", got)
	}
}
