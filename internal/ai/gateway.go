package ai

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/spigell/interview-agent/internal/logger"
	"github.com/spigell/interview-agent/internal/model"
	"github.com/spigell/interview-agent/internal/utils"
	"go.uber.org/zap"
)

// FallbackReply is returned to the candidate when no model produced a usable turn.
const FallbackReply = "That's interesting! Could you tell me a bit more about that? I'd like to understand your experience better."

const (
	defaultMaxRetries   = 3
	defaultBaseDelay    = time.Second
	defaultMaxLogLength = 300
	// Raw text at or below this length is not worth showing to the candidate.
	minRawReplyLength = 10
)

// DefaultModels is the model chain used when none is configured: primary first, then
// cheaper fallbacks.
var DefaultModels = []string{"gemini-2.5-flash", "gemini-2.0-flash", "gemini-2.0-flash-lite"}

var (
	TurnOptions     = Options{Temperature: 0.7, MaxOutputTokens: 800}
	AnalysisOptions = Options{Temperature: 0.5, MaxOutputTokens: 1000}
)

var errMalformed = errors.New("model output has no usable structure")

// wait is swapped in tests to skip backoff delays.
var wait = utils.WaitFor

// Options bound a single generation request.
type Options struct {
	Temperature     float32
	MaxOutputTokens int32
}

// Generator is the external text generation capability. Implementations tag failures
// with *Error so the gateway can tell rate limits from other errors.
type Generator interface {
	Generate(ctx context.Context, model, prompt string, opts Options) (string, error)
}

type TurnSource string

const (
	SourceStructured TurnSource = "structured"
	SourceRawText    TurnSource = "raw_text"
	SourceFallback   TurnSource = "fallback"
)

// Turn is the normalized interviewer turn.
type Turn struct {
	Reply      string
	Phase      model.Phase
	Score      *float64
	Assessment *string

	Model    string
	Attempts int
	Source   TurnSource
}

type Config struct {
	Models       []string
	MaxRetries   int
	BaseDelay    time.Duration
	MaxLogLength int
}

// Gateway runs prompts against an ordered chain of models with retries, backoff and a
// tolerant JSON decoder.
type Gateway struct {
	generator  Generator
	models     []string
	maxRetries int
	baseDelay  time.Duration
	maxLogLen  int
	logger     *zap.Logger
}

func NewGateway(generator Generator, cfg Config, log *zap.Logger) *Gateway {
	models := make([]string, 0, len(cfg.Models))
	for _, m := range cfg.Models {
		if m = strings.TrimSpace(m); m != "" {
			models = append(models, m)
		}
	}
	if len(models) == 0 {
		models = append(models, DefaultModels...)
	}

	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = defaultMaxRetries
	}
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = defaultBaseDelay
	}
	if cfg.MaxLogLength <= 0 {
		cfg.MaxLogLength = defaultMaxLogLength
	}

	return &Gateway{
		generator:  generator,
		models:     models,
		maxRetries: cfg.MaxRetries,
		baseDelay:  cfg.BaseDelay,
		maxLogLen:  cfg.MaxLogLength,
		logger:     logger.WithFields(log),
	}
}

func (g *Gateway) Models() []string {
	return append([]string(nil), g.models...)
}

// GenerateTurn never fails: when every model and retry is exhausted it returns
// FallbackReply with the phase left at current.
func (g *Gateway) GenerateTurn(ctx context.Context, prompt string, current model.Phase) *Turn {
	var turn *Turn

	attempts, err := g.execute(ctx, prompt, TurnOptions, func(modelName, raw string) bool {
		obj, stage, ok := Decode(raw)
		if ok {
			if reply := replyOf(obj); reply != "" {
				turn = turnFromObject(obj, reply, current)
				turn.Source = SourceStructured
				turn.Model = modelName
				return true
			}

			g.logger.Warn("decoded model output has no reply",
				zap.String(logger.FieldModel, modelName),
				zap.String("stage", string(stage)),
			)
			// Only the primary model is retried for a missing reply, fallbacks degrade to raw text.
			if modelName == g.models[0] {
				return false
			}
		}

		text := strings.TrimSpace(raw)
		if utf8.RuneCountInString(text) > minRawReplyLength {
			g.logger.Warn("model output is not json, using it as the reply",
				zap.String(logger.FieldModel, modelName),
				zap.String("response_preview", utils.TruncateForLog(text, g.maxLogLen)),
			)
			turn = &Turn{Reply: text, Phase: current, Source: SourceRawText, Model: modelName}
			return true
		}
		return false
	})

	if err != nil {
		g.logger.Error("all generation attempts failed, returning fallback reply",
			zap.Int("attempts", attempts),
			zap.Error(err),
		)
		return &Turn{Reply: FallbackReply, Phase: current, Source: SourceFallback, Attempts: attempts}
	}

	turn.Attempts = attempts
	return turn
}

// GenerateObject returns the first decodable non-empty JSON object, or ErrExhausted.
func (g *Gateway) GenerateObject(ctx context.Context, prompt string, opts Options) (map[string]any, error) {
	var result map[string]any

	_, err := g.execute(ctx, prompt, opts, func(_ string, raw string) bool {
		obj, _, ok := Decode(raw)
		if !ok || len(obj) == 0 {
			return false
		}
		result = obj
		return true
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// execute walks the model chain. accept reports whether a raw response was usable.
func (g *Gateway) execute(ctx context.Context, prompt string, opts Options, accept func(model, raw string) bool) (int, error) {
	attempts := 0
	promptLen := utf8.RuneCountInString(prompt)

	for _, modelName := range g.models {
		log := logger.WithCommonFields(g.logger, "", modelName)

		for attempt := 0; attempt < g.maxRetries; attempt++ {
			if err := ctx.Err(); err != nil {
				return attempts, fmt.Errorf("%w: %w", ErrExhausted, err)
			}
			attempts++

			log.Debug("generate content request",
				zap.Int("attempt", attempt+1),
				zap.Int("prompt_length", promptLen),
				zap.Float32("temperature", opts.Temperature),
			)

			raw, err := g.generator.Generate(ctx, modelName, prompt, opts)
			if err == nil {
				log.Debug("generate content response",
					zap.Int("attempt", attempt+1),
					zap.Int("response_length", utf8.RuneCountInString(raw)),
					zap.String("response_preview", utils.TruncateForLog(raw, g.maxLogLen)),
				)
				if accept(modelName, raw) {
					return attempts, nil
				}
				err = NewError(KindTransient, modelName, errMalformed)
			}

			kind := KindOf(err)
			log.Warn("generation attempt failed",
				zap.Int("attempt", attempt+1),
				zap.Int("max_attempts", g.maxRetries),
				zap.String("kind", kind.String()),
				zap.Error(err),
			)

			if kind == KindRateLimited {
				log.Info("model is rate limited, switching to the next one")
				break
			}

			if attempt < g.maxRetries-1 {
				if err := wait(ctx, utils.Backoff(g.baseDelay, attempt)); err != nil {
					return attempts, fmt.Errorf("%w: %w", ErrExhausted, err)
				}
			}
		}
	}

	return attempts, ErrExhausted
}

// replyKeys are the fields a model may put the interviewer reply under, in order of preference.
var replyKeys = []string{"reply", "message", "response"}

func replyOf(obj map[string]any) string {
	for _, key := range replyKeys {
		if reply := coerceString(obj[key]); reply != "" {
			return reply
		}
	}
	return ""
}

func turnFromObject(obj map[string]any, reply string, current model.Phase) *Turn {
	turn := &Turn{Reply: reply, Phase: current}

	if raw := coerceString(obj["phase"]); raw != "" {
		if phase, err := model.ParsePhase(raw); err == nil {
			turn.Phase = phase
		}
	}

	if v, ok := obj["score"]; ok && v != nil {
		score := coerceFloat(v)
		if !math.IsNaN(score) && !math.IsInf(score, 0) {
			score = math.Max(0, math.Min(10, score))
			turn.Score = &score
		}
	}

	if assessment := coerceString(obj["assessment"]); assessment != "" {
		turn.Assessment = &assessment
	}

	return turn
}
