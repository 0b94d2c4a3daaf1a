package logger

import (
	"strings"

	"go.uber.org/zap"
)

const (
	FieldProvider    = "ai_provider"
	FieldModel       = "ai_model"
	FieldInterviewID = "interview_id"
	FieldCandidateID = "candidate_id"
	FieldPhase       = "phase"
)

// StringField describes a string-valued structured logging field.
type StringField struct {
	Key   string
	Value string
}

// StringFields converts key/value pairs into zap fields, skipping blank keys and values.
func StringFields(fields ...StringField) []zap.Field {
	result := make([]zap.Field, 0, len(fields))
	for _, field := range fields {
		key := strings.TrimSpace(field.Key)
		value := strings.TrimSpace(field.Value)
		if key == "" || value == "" {
			continue
		}

		result = append(result, zap.String(key, value))
	}

	return result
}

// WithFields attaches fields to the logger, defaulting to a no-op logger when nil.
func WithFields(logger *zap.Logger, fields ...zap.Field) *zap.Logger {
	if logger == nil {
		logger = zap.NewNop()
	}

	if len(fields) == 0 {
		return logger
	}

	return logger.With(fields...)
}

// CommonFields describes the AI provider and model behind a generation call.
func CommonFields(provider, model string) []zap.Field {
	return StringFields(
		StringField{Key: FieldProvider, Value: provider},
		StringField{Key: FieldModel, Value: model},
	)
}

func WithCommonFields(logger *zap.Logger, provider, model string) *zap.Logger {
	return WithFields(logger, CommonFields(provider, model)...)
}

// InterviewFields identifies the interview (and optionally candidate and phase) a log
// entry belongs to.
func InterviewFields(interviewID, candidateID, phase string) []zap.Field {
	return StringFields(
		StringField{Key: FieldInterviewID, Value: interviewID},
		StringField{Key: FieldCandidateID, Value: candidateID},
		StringField{Key: FieldPhase, Value: phase},
	)
}

func WithInterview(logger *zap.Logger, interviewID, candidateID, phase string) *zap.Logger {
	return WithFields(logger, InterviewFields(interviewID, candidateID, phase)...)
}
