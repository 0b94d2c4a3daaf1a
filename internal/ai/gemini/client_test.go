package gemini

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"

	"github.com/spigell/interview-agent/internal/ai"
	"go.uber.org/zap"
	"google.golang.org/genai"
)

type modelCall struct {
	model  string
	text   string
	config *genai.GenerateContentConfig
}

type fakeModels struct {
	mu    sync.Mutex
	calls []modelCall
	resp  *genai.GenerateContentResponse
	err   error
}

func (f *fakeModels) GenerateContent(_ context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	text := ""
	if len(contents) > 0 && len(contents[0].Parts) > 0 {
		text = contents[0].Parts[0].Text
	}
	f.calls = append(f.calls, modelCall{model: model, text: text, config: config})
	return f.resp, f.err
}

func textResponse(parts ...string) *genai.GenerateContentResponse {
	content := &genai.Content{}
	for _, p := range parts {
		content.Parts = append(content.Parts, &genai.Part{Text: p})
	}
	return &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{Content: content}}}
}

func TestGeneratorSendsOptions(t *testing.T) {
	models := &fakeModels{resp: textResponse(`{"reply": "hi"}`)}
	g := &Generator{models: models, logger: zap.NewNop()}

	out, err := g.Generate(context.Background(), "gemini-2.5-flash", "  prompt  ", ai.Options{Temperature: 0.7, MaxOutputTokens: 800})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != `{"reply": "hi"}` {
		t.Fatalf("unexpected output: %q", out)
	}

	if len(models.calls) != 1 {
		t.Fatalf("expected 1 call, got %d", len(models.calls))
	}
	call := models.calls[0]
	if call.model != "gemini-2.5-flash" {
		t.Fatalf("unexpected model: %s", call.model)
	}
	if call.text != "prompt" {
		t.Fatalf("expected trimmed prompt, got %q", call.text)
	}
	if call.config == nil || call.config.Temperature == nil || *call.config.Temperature != 0.7 {
		t.Fatalf("expected temperature 0.7, got %+v", call.config)
	}
	if call.config.MaxOutputTokens != 800 {
		t.Fatalf("expected 800 max output tokens, got %d", call.config.MaxOutputTokens)
	}
}

func TestGeneratorJoinsParts(t *testing.T) {
	models := &fakeModels{resp: textResponse("first", "  ", "second")}
	g := &Generator{models: models, logger: zap.NewNop()}

	out, err := g.Generate(context.Background(), "m", "p", ai.TurnOptions)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "first\nsecond" {
		t.Fatalf("unexpected output: %q", out)
	}
}

func TestGeneratorEmptyResponseIsTransient(t *testing.T) {
	g := &Generator{models: &fakeModels{resp: textResponse("")}, logger: zap.NewNop()}

	_, err := g.Generate(context.Background(), "m", "p", ai.TurnOptions)
	if err == nil {
		t.Fatal("expected error for empty response")
	}
	if kind := ai.KindOf(err); kind != ai.KindTransient {
		t.Fatalf("expected transient, got %s", kind)
	}
}

func TestGeneratorEmptyPromptIsFatal(t *testing.T) {
	models := &fakeModels{resp: textResponse("x")}
	g := &Generator{models: models, logger: zap.NewNop()}

	_, err := g.Generate(context.Background(), "m", "   ", ai.TurnOptions)
	if kind := ai.KindOf(err); err == nil || kind != ai.KindFatal {
		t.Fatalf("expected fatal error, got %v", err)
	}
	if len(models.calls) != 0 {
		t.Fatalf("expected no api calls, got %d", len(models.calls))
	}
}

func TestGeneratorClassifiesErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want ai.ErrorKind
	}{
		{
			name: "quota exhausted",
			err:  genai.APIError{Code: http.StatusTooManyRequests, Status: "RESOURCE_EXHAUSTED", Message: "quota exhausted"},
			want: ai.KindRateLimited,
		},
		{
			name: "status only",
			err:  genai.APIError{Status: "RESOURCE_EXHAUSTED"},
			want: ai.KindRateLimited,
		},
		{
			name: "internal",
			err:  genai.APIError{Code: http.StatusInternalServerError, Status: "INTERNAL"},
			want: ai.KindTransient,
		},
		{
			name: "unavailable",
			err:  genai.APIError{Code: http.StatusServiceUnavailable, Status: "UNAVAILABLE"},
			want: ai.KindTransient,
		},
		{
			name: "bad request",
			err:  genai.APIError{Code: http.StatusBadRequest, Status: "INVALID_ARGUMENT"},
			want: ai.KindFatal,
		},
		{
			name: "pointer api error",
			err:  &genai.APIError{Code: http.StatusTooManyRequests},
			want: ai.KindRateLimited,
		},
		{
			name: "network",
			err:  errors.New("connection reset by peer"),
			want: ai.KindTransient,
		},
		{
			name: "canceled",
			err:  context.Canceled,
			want: ai.KindFatal,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			g := &Generator{models: &fakeModels{err: tt.err}, logger: zap.NewNop()}
			_, err := g.Generate(context.Background(), "gemini-2.0-flash", "p", ai.TurnOptions)
			if err == nil {
				t.Fatal("expected error")
			}

			if kind := ai.KindOf(err); kind != tt.want {
				t.Fatalf("expected %s, got %s", tt.want, kind)
			}

			var tagged *ai.Error
			if !errors.As(err, &tagged) || tagged.Model != "gemini-2.0-flash" {
				t.Fatalf("expected error tagged with model, got %v", err)
			}
		})
	}
}

func TestNewGeneratorRequiresKey(t *testing.T) {
	if _, err := NewGenerator(context.Background(), "  ", zap.NewNop()); err == nil {
		t.Fatal("expected error for empty api key")
	}
}
