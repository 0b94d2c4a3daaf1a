package logger

import (
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestStringFields(t *testing.T) {
	fields := StringFields(
		StringField{Key: "  phase  ", Value: "  technical  "},
		StringField{Key: "ignored", Value: "   "},
		StringField{Key: "   ", Value: "empty key"},
	)

	if len(fields) != 1 {
		t.Fatalf("expected 1 field, got %d", len(fields))
	}
	if fields[0].Key != "phase" || fields[0].String != "technical" {
		t.Fatalf("unexpected field: %+v", fields[0])
	}

	if empty := StringFields(); len(empty) != 0 {
		t.Fatalf("expected empty fields, got %d", len(empty))
	}
}

func TestWithFieldsNilLogger(t *testing.T) {
	enriched := WithFields(nil, zap.String("baz", "qux"))
	if enriched == nil {
		t.Fatal("expected fallback logger when nil provided")
	}
	enriched.Info("does not panic")
}

func TestWithCommonFields(t *testing.T) {
	core, observed := observer.New(zapcore.InfoLevel)

	WithCommonFields(zap.New(core), "gemini", "gemini-2.5-flash").Info("generate content request")
	WithCommonFields(zap.New(core), "", "gemini-2.0-flash").Info("model only")

	entries := observed.All()
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}

	first := entries[0].ContextMap()
	if first[FieldProvider] != "gemini" || first[FieldModel] != "gemini-2.5-flash" {
		t.Fatalf("unexpected fields: %v", first)
	}

	second := entries[1].ContextMap()
	if _, ok := second[FieldProvider]; ok {
		t.Fatalf("blank provider must be omitted: %v", second)
	}
	if second[FieldModel] != "gemini-2.0-flash" {
		t.Fatalf("unexpected model: %v", second)
	}
}

func TestWithInterview(t *testing.T) {
	core, observed := observer.New(zapcore.DebugLevel)

	WithInterview(zap.New(core), "iv-1", "", "project").Debug("turn generated")

	ctx := observed.All()[0].ContextMap()
	if ctx[FieldInterviewID] != "iv-1" || ctx[FieldPhase] != "project" {
		t.Fatalf("unexpected fields: %v", ctx)
	}
	if _, ok := ctx[FieldCandidateID]; ok {
		t.Fatalf("blank candidate id must be omitted: %v", ctx)
	}
}
