package prompt

import (
	"strconv"
	"strings"

	_ "embed"

	"github.com/spigell/interview-agent/internal/model"
)

// Version identifies the embedded prompt templates. Bump it when interviewer.md or
// analyst.md change so logged prompts can be traced back to a template revision.
const Version = "2"

const (
	EmptyTranscript = "(No messages yet - this is the start of the interview.)"
	NoScores        = "No scores recorded."
	JSONDirective   = "Respond ONLY with a valid JSON object."

	defaultName     = "Candidate"
	defaultPosition = "Software Engineer"
	defaultLocation = "Not specified"

	openingTask = "This is the START of the interview. Greet the candidate by name ({{FIRST_NAME}}), welcome them, " +
		"and then ask your first technical question based on their tech stack."
	continueTask = "The candidate just replied. Continue the interview naturally.\n" +
		"- Do NOT repeat any previous question.\n" +
		"- Reference what they just said in your response.\n" +
		"- Decide whether to ask a follow-up, move to the next topic, or transition to a new phase."
)

//go:embed interviewer.md
var interviewerTemplate string

//go:embed analyst.md
var analystTemplate string

// Interview renders the prompt for the next interviewer turn.
func Interview(c model.Candidate, phase model.Phase, transcript []model.Message) string {
	task := continueTask
	if len(transcript) == 0 {
		task = strings.ReplaceAll(openingTask, "{{FIRST_NAME}}", firstName(c))
	}

	replacer := strings.NewReplacer(
		"{{CANDIDATE}}", candidateBlock(c, true),
		"{{PHASE}}", phase.String(),
		"{{TRANSCRIPT}}", Transcript(transcript),
		"{{TASK}}", task,
	)

	return finish(replacer.Replace(interviewerTemplate))
}

// Report renders the analyst prompt used to compile the final verdict.
func Report(c model.Candidate, scores []model.Score, transcript []model.Message) string {
	replacer := strings.NewReplacer(
		"{{CANDIDATE}}", candidateBlock(c, false),
		"{{SCORES}}", scoreLines(scores),
		"{{TRANSCRIPT}}", Transcript(transcript),
	)

	return finish(replacer.Replace(analystTemplate))
}

// Transcript renders messages in order as "Candidate: ..." / "Interviewer: ..." lines.
func Transcript(messages []model.Message) string {
	if len(messages) == 0 {
		return EmptyTranscript
	}

	lines := make([]string, 0, len(messages))
	for _, msg := range messages {
		lines = append(lines, speaker(msg.Role)+": "+strings.TrimSpace(msg.Content))
	}
	return strings.Join(lines, "\n")
}

func speaker(role model.Role) string {
	if role == model.RoleCandidate {
		return "Candidate"
	}
	return "Interviewer"
}

func candidateBlock(c model.Candidate, withLocation bool) string {
	lines := []string{
		"- Name: " + orDefault(c.Name, defaultName),
		"- Position: " + orDefault(c.Position, defaultPosition),
		"- Experience: " + formatNumber(c.Experience) + " years",
		"- Tech Stack: " + c.TechStack.Display(),
	}
	if withLocation {
		lines = append(lines, "- Location: "+orDefault(c.Location, defaultLocation))
	}
	return strings.Join(lines, "\n")
}

func scoreLines(scores []model.Score) string {
	if len(scores) == 0 {
		return NoScores
	}

	lines := make([]string, 0, len(scores))
	for _, s := range scores {
		lines = append(lines, "- Phase: "+orDefault(s.Phase.String(), "unknown")+
			", Score: "+formatNumber(s.Value)+"/10"+
			", Assessment: "+orDefault(s.Assessment, "N/A"))
	}
	return strings.Join(lines, "\n")
}

func firstName(c model.Candidate) string {
	if name := c.FirstName(); name != "" {
		return name
	}
	return defaultName
}

func finish(body string) string {
	return strings.TrimSpace(body) + "\n\n" + JSONDirective
}

func orDefault(value, fallback string) string {
	if v := strings.TrimSpace(value); v != "" {
		return v
	}
	return fallback
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
