package report

import (
	"context"
	"math"

	"github.com/spigell/interview-agent/internal/ai"
	"github.com/spigell/interview-agent/internal/logger"
	"github.com/spigell/interview-agent/internal/model"
	"github.com/spigell/interview-agent/internal/prompt"
	"go.uber.org/zap"
)

const (
	// NeutralScore is reported when an interview has no scored answers.
	NeutralScore = 5.0

	fallbackSummary  = "Automated analysis unavailable. Manual review recommended."
	fallbackStrength = "Completed the interview"
	fallbackImprove  = "Analysis could not be generated"
	fallbackFeedback = "The AI analysis service was unavailable. Please review the interview transcript manually."
)

// ObjectGenerator produces one decoded JSON object per prompt.
type ObjectGenerator interface {
	GenerateObject(ctx context.Context, prompt string, opts ai.Options) (map[string]any, error)
}

// Compiler turns stored scores and the transcript into a final report.
type Compiler struct {
	generator ObjectGenerator
	logger    *zap.Logger
}

func NewCompiler(generator ObjectGenerator, log *zap.Logger) *Compiler {
	return &Compiler{generator: generator, logger: logger.WithFields(log)}
}

// Compile never fails. When the model cannot produce a verdict the report is computed
// from the mean score and marked as Fallback.
func (c *Compiler) Compile(ctx context.Context, candidate model.Candidate, scores []model.Score, transcript []model.Message) *model.Report {
	mean := MeanScore(scores)

	if c.generator == nil {
		return Fallback(mean)
	}

	obj, err := c.generator.GenerateObject(ctx, prompt.Report(candidate, scores, transcript), ai.AnalysisOptions)
	if err != nil {
		c.logger.Warn("report generation failed, using fallback report",
			zap.String("candidate", candidate.Name),
			zap.Int("scores", len(scores)),
			zap.Error(err),
		)
		return Fallback(mean)
	}

	if !hasVerdict(obj) {
		c.logger.Warn("report output has no verdict fields, using fallback report",
			zap.String("candidate", candidate.Name),
			zap.Int("fields", len(obj)),
		)
		return Fallback(mean)
	}

	return fromObject(obj, mean, c.logger)
}

// verdictKeys are the fields of which at least one must be present for a model report.
var verdictKeys = []string{"overall_score", "recommendation", "summary"}

func hasVerdict(obj map[string]any) bool {
	for _, key := range verdictKeys {
		if ai.CoerceString(obj[key]) != "" {
			return true
		}
	}
	return false
}

// MeanScore is the arithmetic mean rounded to one decimal, NeutralScore when empty.
func MeanScore(scores []model.Score) float64 {
	if len(scores) == 0 {
		return NeutralScore
	}

	var sum float64
	for _, s := range scores {
		sum += s.Value
	}
	return Round1(sum / float64(len(scores)))
}

func Round1(v float64) float64 {
	return math.Round(v*10) / 10
}

// Fallback builds the deterministic report used when no model verdict is available.
func Fallback(mean float64) *model.Report {
	return &model.Report{
		OverallScore:     mean,
		Recommendation:   model.RecommendationMaybe,
		Summary:          fallbackSummary,
		Strengths:        []string{fallbackStrength},
		Improvements:     []string{fallbackImprove},
		DetailedFeedback: fallbackFeedback,
		Fallback:         true,
	}
}

func fromObject(obj map[string]any, mean float64, log *zap.Logger) *model.Report {
	r := &model.Report{
		OverallScore:     mean,
		Recommendation:   model.RecommendationMaybe,
		Summary:          ai.CoerceString(obj["summary"]),
		Strengths:        ai.CoerceStrings(obj["strengths"]),
		Improvements:     ai.CoerceStrings(obj["improvements"]),
		DetailedFeedback: ai.CoerceString(obj["detailed_feedback"]),
	}

	if score := ai.CoerceFloat(obj["overall_score"]); !math.IsNaN(score) && !math.IsInf(score, 0) {
		r.OverallScore = Round1(math.Max(0, math.Min(10, score)))
	} else {
		log.Debug("report has no usable overall score, using mean", zap.Float64("mean", mean))
	}

	if raw := ai.CoerceString(obj["recommendation"]); raw != "" {
		rec, err := model.ParseRecommendation(raw)
		if err != nil {
			log.Debug("unknown recommendation, defaulting to maybe", zap.String("recommendation", raw))
		}
		r.Recommendation = rec
	}

	return r
}
