package report

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/spigell/interview-agent/internal/ai"
	"github.com/spigell/interview-agent/internal/model"
	"go.uber.org/zap"
)

type stubObjectGenerator struct {
	obj    map[string]any
	err    error
	prompt string
	opts   ai.Options
}

func (s *stubObjectGenerator) GenerateObject(_ context.Context, prompt string, opts ai.Options) (map[string]any, error) {
	s.prompt = prompt
	s.opts = opts
	return s.obj, s.err
}

func scores(values ...float64) []model.Score {
	out := make([]model.Score, 0, len(values))
	for _, v := range values {
		out = append(out, model.Score{Phase: model.PhaseTechnical, Value: v})
	}
	return out
}

func TestMeanScore(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		scores []model.Score
		want   float64
	}{
		{name: "no scores", scores: nil, want: 5.0},
		{name: "mean", scores: scores(4, 6, 8), want: 6.0},
		{name: "rounded to one decimal", scores: scores(7, 8, 8), want: 7.7},
		{name: "single", scores: scores(3.25), want: 3.3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := MeanScore(tt.scores); got != tt.want {
				t.Fatalf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestCompileFallback(t *testing.T) {
	t.Parallel()

	gen := &stubObjectGenerator{err: ai.ErrExhausted}
	c := NewCompiler(gen, zap.NewNop())

	r := c.Compile(context.Background(), model.Candidate{Name: "Jane Doe"}, scores(4, 6, 8), nil)

	if !r.Fallback {
		t.Fatal("expected fallback report")
	}
	if r.OverallScore != 6.0 {
		t.Fatalf("expected 6.0, got %v", r.OverallScore)
	}
	if r.Recommendation != model.RecommendationMaybe {
		t.Fatalf("expected Maybe, got %s", r.Recommendation)
	}
	if r.Summary != fallbackSummary || len(r.Strengths) != 1 || len(r.Improvements) != 1 {
		t.Fatalf("unexpected fallback body: %+v", r)
	}
}

func TestCompileFallbackWithoutVerdict(t *testing.T) {
	t.Parallel()

	for _, obj := range []map[string]any{
		{},
		{"strengths": []any{"Go"}, "summary": "  "},
	} {
		c := NewCompiler(&stubObjectGenerator{obj: obj}, zap.NewNop())
		r := c.Compile(context.Background(), model.Candidate{}, scores(4, 6, 8), nil)

		if !r.Fallback || r.OverallScore != 6.0 || r.Summary != fallbackSummary {
			t.Fatalf("expected fallback report for %v, got %+v", obj, r)
		}
	}
}

func TestCompileFallbackWithoutScores(t *testing.T) {
	t.Parallel()

	c := NewCompiler(&stubObjectGenerator{err: errors.New("boom")}, nil)
	r := c.Compile(context.Background(), model.Candidate{}, nil, nil)

	if r.OverallScore != 5.0 || r.Recommendation != model.RecommendationMaybe {
		t.Fatalf("unexpected report: %+v", r)
	}
}

func TestCompileDecodedReport(t *testing.T) {
	t.Parallel()

	gen := &stubObjectGenerator{obj: map[string]any{
		"overall_score":     "8.24",
		"recommendation":    "strong hire",
		"summary":           " Strong candidate. ",
		"strengths":         []any{"Go", "", "testing"},
		"improvements":      "system design",
		"detailed_feedback": "Answered every question.",
	}}
	c := NewCompiler(gen, zap.NewNop())

	transcript := []model.Message{{Role: model.RoleCandidate, Content: "I like Go."}}
	r := c.Compile(context.Background(), model.Candidate{Name: "Jane Doe"}, scores(8), transcript)

	want := &model.Report{
		OverallScore:     8.2,
		Recommendation:   model.RecommendationStrongHire,
		Summary:          "Strong candidate.",
		Strengths:        []string{"Go", "testing"},
		Improvements:     []string{"system design"},
		DetailedFeedback: "Answered every question.",
	}
	if !reflect.DeepEqual(r, want) {
		t.Fatalf("unexpected report:\n got %+v\nwant %+v", r, want)
	}

	if gen.opts != ai.AnalysisOptions {
		t.Fatalf("expected analysis options, got %+v", gen.opts)
	}
	if !strings.Contains(gen.prompt, "Candidate: I like Go.") {
		t.Fatalf("prompt does not contain the transcript:\n%s", gen.prompt)
	}
}

func TestCompileDecodedReportNormalization(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		obj       map[string]any
		wantScore float64
		wantRec   model.Recommendation
	}{
		{
			name:      "missing score uses mean",
			obj:       map[string]any{"recommendation": "Hire"},
			wantScore: 6.0,
			wantRec:   model.RecommendationHire,
		},
		{
			name:      "garbage score uses mean",
			obj:       map[string]any{"overall_score": "excellent", "recommendation": "No_Hire"},
			wantScore: 6.0,
			wantRec:   model.RecommendationNoHire,
		},
		{
			name:      "score is clamped",
			obj:       map[string]any{"overall_score": 14.0},
			wantScore: 10,
			wantRec:   model.RecommendationMaybe,
		},
		{
			name:      "unknown recommendation is maybe",
			obj:       map[string]any{"overall_score": 2.0, "recommendation": "Definitely"},
			wantScore: 2,
			wantRec:   model.RecommendationMaybe,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			c := NewCompiler(&stubObjectGenerator{obj: tt.obj}, zap.NewNop())
			r := c.Compile(context.Background(), model.Candidate{}, scores(4, 6, 8), nil)

			if r.Fallback {
				t.Fatal("decoded report must not be marked as fallback")
			}
			if r.OverallScore != tt.wantScore {
				t.Fatalf("expected score %v, got %v", tt.wantScore, r.OverallScore)
			}
			if r.Recommendation != tt.wantRec {
				t.Fatalf("expected %s, got %s", tt.wantRec, r.Recommendation)
			}
		})
	}
}
