package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/spigell/interview-agent/internal/ai"
	"github.com/spigell/interview-agent/internal/logger"
	"go.uber.org/zap"
	"google.golang.org/genai"
)

const (
	Provider          = "gemini"
	statusExhausted   = "RESOURCE_EXHAUSTED"
	statusUnavailable = "UNAVAILABLE"
)

// contentModels is the subset of genai.Models used by the generator.
type contentModels interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Generator sends prompts to the Gemini API. It implements ai.Generator.
type Generator struct {
	models contentModels
	logger *zap.Logger
}

// NewGenerator creates a new Generator configured for the Gemini API backend.
func NewGenerator(ctx context.Context, apiKey string, log *zap.Logger) (*Generator, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("gemini api key is required")
	}

	cfg := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}

	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	return &Generator{
		models: client.Models,
		logger: logger.WithCommonFields(log, Provider, ""),
	}, nil
}

// Generate sends the prompt to the given model and returns the joined text parts.
func (g *Generator) Generate(ctx context.Context, model, prompt string, opts ai.Options) (string, error) {
	if g == nil || g.models == nil {
		return "", ai.NewError(ai.KindFatal, model, errors.New("gemini generator is not initialized"))
	}

	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return "", ai.NewError(ai.KindFatal, model, errors.New("prompt must not be empty"))
	}

	config := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(opts.Temperature),
		MaxOutputTokens: opts.MaxOutputTokens,
	}

	resp, err := g.models.GenerateContent(ctx, model, genai.Text(prompt), config)
	if err != nil {
		kind := classify(err)
		g.logger.Debug("gemini generate content failed",
			zap.String(logger.FieldModel, model),
			zap.String("kind", kind.String()),
			zap.Error(err),
		)
		return "", ai.NewError(kind, model, fmt.Errorf("generate content: %w", err))
	}

	output := responseText(resp)
	if output == "" {
		return "", ai.NewError(ai.KindTransient, model, errors.New("gemini api returned empty response"))
	}

	return output, nil
}

func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil {
		return ""
	}

	var builder strings.Builder
	for _, candidate := range resp.Candidates {
		if candidate == nil || candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if part == nil {
				continue
			}
			text := strings.TrimSpace(part.Text)
			if text == "" {
				continue
			}
			if builder.Len() > 0 {
				builder.WriteString("\n")
			}
			builder.WriteString(text)
		}
	}

	return strings.TrimSpace(builder.String())
}

// classify maps Gemini API failures onto the gateway error kinds.
func classify(err error) ai.ErrorKind {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return ai.KindFatal
	}

	code, status, ok := apiErrorDetails(err)
	if !ok {
		// network level failures
		return ai.KindTransient
	}

	switch {
	case code == http.StatusTooManyRequests || strings.EqualFold(status, statusExhausted):
		return ai.KindRateLimited
	case code >= http.StatusInternalServerError, code == http.StatusRequestTimeout, strings.EqualFold(status, statusUnavailable):
		return ai.KindTransient
	case code >= http.StatusBadRequest:
		return ai.KindFatal
	default:
		return ai.KindTransient
	}
}

func apiErrorDetails(err error) (int, string, bool) {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code, apiErr.Status, true
	}

	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil {
		return apiErrPtr.Code, apiErrPtr.Status, true
	}

	return 0, "", false
}
