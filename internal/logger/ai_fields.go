package logger

import (
	"strings"

	"go.uber.org/zap"
)

// Structured field keys shared by everything that talks to an AI backend, so
// extraction, embedding, and research logs stay queryable by the same keys.
const (
	FieldProvider = "ai_provider"
	FieldModel    = "ai_model"
)

// CommonFields returns the provider/model fields, omitting blank values so
// log entries stay compact when a detail is unknown.
func CommonFields(provider, model string) []zap.Field {
	var fields []zap.Field
	if v := strings.TrimSpace(provider); v != "" {
		fields = append(fields, zap.String(FieldProvider, v))
	}
	if v := strings.TrimSpace(model); v != "" {
		fields = append(fields, zap.String(FieldModel, v))
	}
	return fields
}

// WithCommonFields attaches the common AI fields to the logger. A nil logger
// is replaced with a no-op one.
func WithCommonFields(logger *zap.Logger, provider, model string) *zap.Logger {
	if logger == nil {
		logger = zap.NewNop()
	}

	fields := CommonFields(provider, model)
	if len(fields) == 0 {
		return logger
	}
	return logger.With(fields...)
}
