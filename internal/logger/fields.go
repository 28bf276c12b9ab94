package logger

import (
	"strings"

	"go.uber.org/zap"
)

const (
	// FieldCandidateID is the structured log field key for a candidate id.
	FieldCandidateID = "candidate_id"
	// FieldExecutionID is the structured log field key for a provider execution id.
	FieldExecutionID = "execution_id"
	// FieldCallStatus is the structured log field key for the raw provider call status.
	FieldCallStatus = "call_status"
	// FieldClassifier names the transcript classifier that produced a decision.
	FieldClassifier = "classifier"
	// FieldModel is the structured log field key for an LLM model identifier.
	FieldModel = "ai_model"
)

// StringField describes a string-valued structured logging field.
type StringField struct {
	Key   string
	Value string
}

// StringFields converts the provided key/value pairs into zap fields, trimming
// whitespace and omitting entries with empty keys or values.
func StringFields(fields ...StringField) []zap.Field {
	result := make([]zap.Field, 0, len(fields))
	for _, field := range fields {
		key := strings.TrimSpace(field.Key)
		if key == "" {
			continue
		}

		value := strings.TrimSpace(field.Value)
		if value == "" {
			continue
		}

		result = append(result, zap.String(key, value))
	}

	return result
}

// WithFields safely attaches the provided fields to the logger.
// A nil logger becomes a no-op logger.
func WithFields(logger *zap.Logger, fields ...zap.Field) *zap.Logger {
	if logger == nil {
		logger = zap.NewNop()
	}

	if len(fields) == 0 {
		return logger
	}

	return logger.With(fields...)
}

// ExecutionFields describes one provider execution. Empty values and
// non-positive candidate ids are left out.
func ExecutionFields(executionID string, candidateID int, callStatus string) []zap.Field {
	fields := StringFields(
		StringField{Key: FieldExecutionID, Value: executionID},
		StringField{Key: FieldCallStatus, Value: callStatus},
	)
	if candidateID > 0 {
		fields = append(fields, zap.Int(FieldCandidateID, candidateID))
	}
	return fields
}

// WithExecution attaches ExecutionFields to the logger.
func WithExecution(logger *zap.Logger, executionID string, candidateID int, callStatus string) *zap.Logger {
	return WithFields(logger, ExecutionFields(executionID, candidateID, callStatus)...)
}
