package prompt

import (
	"strings"
	"testing"

	"github.com/spigell/interview-agent/internal/model"
)

func janeDoe() model.Candidate {
	return model.Candidate{
		Name:       "Jane Doe",
		Email:      "jane@example.com",
		Position:   "Backend Engineer",
		Experience: 3,
		Location:   "Berlin",
		TechStack:  model.TechStack{"Python", "Django"},
	}
}

func TestInterviewOpeningPrompt(t *testing.T) {
	t.Parallel()

	got := Interview(janeDoe(), model.PhaseTechnical, nil)

	for _, want := range []string{
		"- Name: Jane Doe",
		"- Position: Backend Engineer",
		"- Experience: 3 years",
		"- Tech Stack: Python, Django",
		"- Location: Berlin",
		"- Current Phase: technical",
		EmptyTranscript,
		"Greet the candidate by name (Jane)",
	} {
		if !strings.Contains(got, want) {
			t.Fatalf("expected prompt to contain %q\n%s", want, got)
		}
	}

	if !strings.HasSuffix(got, JSONDirective) {
		t.Fatalf("prompt must end with the json directive:\n%s", got)
	}
	if strings.Contains(got, "{{") {
		t.Fatalf("prompt has unreplaced placeholders:\n%s", got)
	}
}

func TestInterviewContinuationPrompt(t *testing.T) {
	t.Parallel()

	transcript := []model.Message{
		{Role: model.RoleInterviewer, Content: "Hi Jane! What is a Python generator?"},
		{Role: model.RoleCandidate, Content: "  A lazy iterator.  "},
	}

	got := Interview(janeDoe(), model.PhaseProject, transcript)

	if !strings.Contains(got, "Interviewer: Hi Jane! What is a Python generator?\nCandidate: A lazy iterator.") {
		t.Fatalf("unexpected transcript rendering:\n%s", got)
	}
	if strings.Contains(got, EmptyTranscript) {
		t.Fatal("non-empty transcript must not render the placeholder")
	}
	if !strings.Contains(got, "Do NOT repeat any previous question.") {
		t.Fatal("expected continuation instructions")
	}
	if strings.Contains(got, "START of the interview") {
		t.Fatal("continuation prompt must not include the opening instruction")
	}
}

func TestInterviewDefaults(t *testing.T) {
	t.Parallel()

	got := Interview(model.Candidate{}, model.PhaseTechnical, nil)

	for _, want := range []string{
		"- Name: Candidate",
		"- Position: Software Engineer",
		"- Experience: 0 years",
		"- Tech Stack: General",
		"- Location: Not specified",
		"Greet the candidate by name (Candidate)",
	} {
		if !strings.Contains(got, want) {
			t.Fatalf("expected prompt to contain %q", want)
		}
	}
}

func TestInterviewIsPure(t *testing.T) {
	t.Parallel()

	c := janeDoe()
	first := Interview(c, model.PhaseBehavioral, nil)
	second := Interview(c, model.PhaseBehavioral, nil)
	if first != second {
		t.Fatal("expected identical prompts for identical input")
	}
}

func TestReportPrompt(t *testing.T) {
	t.Parallel()

	scores := []model.Score{
		{Phase: model.PhaseTechnical, Value: 7.5, Assessment: "solid basics"},
		{Phase: model.PhaseProject, Value: 6},
	}
	transcript := []model.Message{
		{Role: model.RoleInterviewer, Content: "Tell me about a project."},
		{Role: model.RoleCandidate, Content: "I built a scheduler."},
	}

	got := Report(janeDoe(), scores, transcript)

	for _, want := range []string{
		"expert HR analyst",
		"- Phase: technical, Score: 7.5/10, Assessment: solid basics",
		"- Phase: project, Score: 6/10, Assessment: N/A",
		"Interviewer: Tell me about a project.\nCandidate: I built a scheduler.",
		`"recommendation": "<Strong Hire | Hire | Maybe | No Hire>"`,
	} {
		if !strings.Contains(got, want) {
			t.Fatalf("expected report prompt to contain %q\n%s", want, got)
		}
	}
	if strings.Contains(got, "- Location:") {
		t.Fatal("report prompt does not include the location")
	}
	if !strings.HasSuffix(got, JSONDirective) {
		t.Fatal("report prompt must end with the json directive")
	}
}

func TestReportPromptWithoutScores(t *testing.T) {
	t.Parallel()

	got := Report(janeDoe(), nil, nil)
	if !strings.Contains(got, NoScores) {
		t.Fatalf("expected %q in prompt", NoScores)
	}
}
