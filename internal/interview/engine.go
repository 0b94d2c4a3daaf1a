// Package interview drives an interview through its phases: it persists every turn,
// asks the AI gateway for the next interviewer message and records the scores the
// model hands out along the way.
package interview

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spigell/interview-agent/internal/ai"
	"github.com/spigell/interview-agent/internal/logger"
	"github.com/spigell/interview-agent/internal/model"
	"github.com/spigell/interview-agent/internal/prompt"
	"github.com/spigell/interview-agent/internal/report"
	"github.com/spigell/interview-agent/internal/store"
	"go.uber.org/zap"
)

// CompletedReply is returned for messages sent after the interview is over.
const CompletedReply = "This interview has already been completed. Thank you!"

const (
	CollectionCandidates = "candidates"
	CollectionInterviews = "interviews"
	CollectionMessages   = "interview_messages"
	CollectionScores     = "interview_scores"
)

var (
	ErrNotFound         = fmt.Errorf("interview: %w", store.ErrNotFound)
	ErrInvalidCandidate = errors.New("invalid candidate profile")
)

// TurnGenerator produces the next interviewer turn. It never fails.
type TurnGenerator interface {
	GenerateTurn(ctx context.Context, prompt string, current model.Phase) *ai.Turn
}

// ReportCompiler builds the final verdict for an interview. It never fails.
type ReportCompiler interface {
	Compile(ctx context.Context, candidate model.Candidate, scores []model.Score, transcript []model.Message) *model.Report
}

type Engine struct {
	store    store.Store
	turns    TurnGenerator
	reports  ReportCompiler
	validate *validator.Validate
	logger   *zap.Logger
	now      func() time.Time
}

type StartResult struct {
	InterviewID string      `json:"interview_id"`
	CandidateID string      `json:"candidate_id"`
	Reply       string      `json:"message"`
	Phase       model.Phase `json:"current_phase"`
}

type TurnResult struct {
	Reply string      `json:"message"`
	Phase model.Phase `json:"current_phase"`
}

type Status struct {
	InterviewID   string          `json:"interview_id"`
	CandidateID   string          `json:"candidate_id"`
	CandidateName string          `json:"candidate_name"`
	Phase         model.Phase     `json:"current_phase"`
	PhasesVisited []model.Phase   `json:"phases_visited"`
	CompletedAt   *time.Time      `json:"completed_at"`
	Messages      []model.Message `json:"messages"`
}

type Stats struct {
	TotalCandidates     int     `json:"total_candidates"`
	CompletedInterviews int     `json:"completed_interviews"`
	AverageScore        float64 `json:"avg_score"`
}

func New(st store.Store, turns TurnGenerator, reports ReportCompiler, log *zap.Logger) *Engine {
	return &Engine{
		store:    st,
		turns:    turns,
		reports:  reports,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		logger:   logger.WithFields(log),
		now:      time.Now,
	}
}

// Start registers the candidate, opens an interview in the technical phase and
// returns the interviewer's greeting. The phase of the opening turn is always
// technical, whatever the model suggests.
func (e *Engine) Start(ctx context.Context, candidate model.Candidate) (*StartResult, error) {
	candidate.Name = strings.TrimSpace(candidate.Name)
	candidate.Email = strings.TrimSpace(candidate.Email)
	if err := e.validate.Struct(candidate); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidCandidate, err)
	}

	now := e.now()
	candidate.ID = ""
	candidate.Status = model.CandidateStatusInProgress
	candidate.CreatedAt = now

	candidateID, err := e.insert(ctx, CollectionCandidates, candidate)
	if err != nil {
		return nil, fmt.Errorf("save candidate: %w", err)
	}
	candidate.ID = candidateID

	iv := model.Interview{
		CandidateID:  candidateID,
		CurrentPhase: model.PhaseTechnical,
		Metadata:     model.InterviewMetadata{PhasesVisited: []model.Phase{model.PhaseTechnical}},
		CreatedAt:    now,
	}
	interviewID, err := e.insert(ctx, CollectionInterviews, iv)
	if err != nil {
		return nil, fmt.Errorf("save interview: %w", err)
	}

	log := logger.WithInterview(e.logger, interviewID, candidateID, model.PhaseTechnical.String())
	log.Info("interview started", zap.String("position", candidate.Position))

	turn := e.turns.GenerateTurn(ctx, prompt.Interview(candidate, model.PhaseTechnical, nil), model.PhaseTechnical)
	e.logTurn(log, turn)

	if err := e.appendMessage(ctx, interviewID, model.RoleInterviewer, turn.Reply, model.PhaseTechnical); err != nil {
		return nil, err
	}

	return &StartResult{
		InterviewID: interviewID,
		CandidateID: candidateID,
		Reply:       turn.Reply,
		Phase:       model.PhaseTechnical,
	}, nil
}

// Process records the candidate's answer and produces the next interviewer turn.
// A score from the model is stored under the phase the answer was given in, before
// any transition the same turn requests. Completed interviews are left untouched.
func (e *Engine) Process(ctx context.Context, interviewID, content string) (*TurnResult, error) {
	iv, err := e.interview(ctx, interviewID)
	if err != nil {
		return nil, err
	}

	if iv.CurrentPhase.IsTerminal() {
		return &TurnResult{Reply: CompletedReply, Phase: model.PhaseCompleted}, nil
	}

	candidate, err := e.Candidate(ctx, iv.CandidateID)
	if err != nil {
		return nil, err
	}

	current := iv.CurrentPhase
	if err := e.appendMessage(ctx, iv.ID, model.RoleCandidate, content, current); err != nil {
		return nil, err
	}

	transcript, err := e.transcript(ctx, iv.ID)
	if err != nil {
		return nil, err
	}

	log := logger.WithInterview(e.logger, iv.ID, iv.CandidateID, current.String())

	turn := e.turns.GenerateTurn(ctx, prompt.Interview(candidate, current, transcript), current)
	e.logTurn(log, turn)

	if turn.Score != nil {
		score := model.Score{
			InterviewID: iv.ID,
			Phase:       current,
			Value:       *turn.Score,
			CreatedAt:   e.now(),
		}
		if turn.Assessment != nil {
			score.Assessment = *turn.Assessment
		}
		if _, err := e.insert(ctx, CollectionScores, score); err != nil {
			return nil, fmt.Errorf("save score: %w", err)
		}
	}

	next := turn.Phase
	if !next.Valid() {
		next = current
	}

	if err := e.transition(ctx, iv, next); err != nil {
		return nil, err
	}
	if next != current {
		log.Info("phase changed", zap.String("next_phase", next.String()))
	}

	if err := e.appendMessage(ctx, iv.ID, model.RoleInterviewer, turn.Reply, next); err != nil {
		return nil, err
	}

	return &TurnResult{Reply: turn.Reply, Phase: next}, nil
}

// Status returns the interview state together with the full transcript.
func (e *Engine) Status(ctx context.Context, interviewID string) (*Status, error) {
	iv, err := e.interview(ctx, interviewID)
	if err != nil {
		return nil, err
	}

	candidate, err := e.Candidate(ctx, iv.CandidateID)
	if err != nil {
		return nil, err
	}

	messages, err := e.transcript(ctx, iv.ID)
	if err != nil {
		return nil, err
	}

	return &Status{
		InterviewID:   iv.ID,
		CandidateID:   candidate.ID,
		CandidateName: candidate.Name,
		Phase:         iv.CurrentPhase,
		PhasesVisited: iv.Metadata.PhasesVisited,
		CompletedAt:   iv.CompletedAt,
		Messages:      messages,
	}, nil
}

// Report compiles the verdict from everything stored for the interview. It can be
// called at any phase.
func (e *Engine) Report(ctx context.Context, interviewID string) (*model.Report, error) {
	iv, err := e.interview(ctx, interviewID)
	if err != nil {
		return nil, err
	}

	candidate, err := e.Candidate(ctx, iv.CandidateID)
	if err != nil {
		return nil, err
	}

	scores, err := e.scores(ctx, iv.ID)
	if err != nil {
		return nil, err
	}

	transcript, err := e.transcript(ctx, iv.ID)
	if err != nil {
		return nil, err
	}

	r := e.reports.Compile(ctx, candidate, scores, transcript)
	e.logger.Info("report compiled",
		zap.String(logger.FieldInterviewID, iv.ID),
		zap.Float64("overall_score", r.OverallScore),
		zap.String("recommendation", r.Recommendation.String()),
		zap.Bool("fallback", r.Fallback),
	)
	return r, nil
}

func (e *Engine) Candidate(ctx context.Context, id string) (model.Candidate, error) {
	var c model.Candidate
	if err := e.get(ctx, CollectionCandidates, id, &c); err != nil {
		return c, err
	}
	return c, nil
}

// Candidates lists candidates newest first, optionally only those with the given status.
func (e *Engine) Candidates(ctx context.Context, status string) ([]model.Candidate, error) {
	var filter store.Filter
	if status = strings.TrimSpace(status); status != "" {
		filter = store.Filter{"status": status}
	}

	records, err := e.store.Query(ctx, CollectionCandidates, filter, &store.Order{Field: store.FieldCreatedAt, Desc: true})
	if err != nil {
		return nil, fmt.Errorf("query candidates: %w", err)
	}
	return store.DecodeAll[model.Candidate](records)
}

// CandidateScores returns every score recorded in the candidate's interviews.
func (e *Engine) CandidateScores(ctx context.Context, candidateID string) ([]model.Score, error) {
	if _, err := e.Candidate(ctx, candidateID); err != nil {
		return nil, err
	}

	records, err := e.store.Query(ctx, CollectionInterviews, store.Filter{"candidate_id": candidateID}, &store.Order{Field: store.FieldCreatedAt})
	if err != nil {
		return nil, fmt.Errorf("query interviews: %w", err)
	}

	out := make([]model.Score, 0)
	for _, rec := range records {
		scores, err := e.scores(ctx, rec.ID())
		if err != nil {
			return nil, err
		}
		out = append(out, scores...)
	}
	return out, nil
}

func (e *Engine) Stats(ctx context.Context) (*Stats, error) {
	candidates, err := e.store.Query(ctx, CollectionCandidates, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("query candidates: %w", err)
	}

	stats := &Stats{TotalCandidates: len(candidates)}
	for _, rec := range candidates {
		if status, _ := rec["status"].(string); status == model.CandidateStatusCompleted {
			stats.CompletedInterviews++
		}
	}

	records, err := e.store.Query(ctx, CollectionScores, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("query scores: %w", err)
	}
	scores, err := store.DecodeAll[model.Score](records)
	if err != nil {
		return nil, err
	}

	if len(scores) > 0 {
		var sum float64
		for _, s := range scores {
			sum += s.Value
		}
		stats.AverageScore = report.Round1(sum / float64(len(scores)))
	}
	return stats, nil
}

func (e *Engine) transition(ctx context.Context, iv *model.Interview, next model.Phase) error {
	patch := store.Record{"current_phase": next}
	if iv.Metadata.Visit(next) {
		patch["metadata"] = iv.Metadata
	}

	completing := next == model.PhaseCompleted && iv.CompletedAt == nil
	if completing {
		patch["completed_at"] = e.now()
	}

	if err := e.store.Update(ctx, CollectionInterviews, iv.ID, patch); err != nil {
		return fmt.Errorf("update interview %s: %w", iv.ID, err)
	}

	if completing {
		patch := store.Record{"status": model.CandidateStatusCompleted}
		if err := e.store.Update(ctx, CollectionCandidates, iv.CandidateID, patch); err != nil {
			return fmt.Errorf("update candidate %s: %w", iv.CandidateID, err)
		}
		e.logger.Info("interview completed", logger.InterviewFields(iv.ID, iv.CandidateID, "")...)
	}
	return nil
}

func (e *Engine) interview(ctx context.Context, id string) (*model.Interview, error) {
	var iv model.Interview
	if err := e.get(ctx, CollectionInterviews, id, &iv); err != nil {
		return nil, err
	}
	return &iv, nil
}

func (e *Engine) transcript(ctx context.Context, interviewID string) ([]model.Message, error) {
	records, err := e.store.Query(ctx, CollectionMessages, store.Filter{"interview_id": interviewID}, &store.Order{Field: store.FieldCreatedAt})
	if err != nil {
		return nil, fmt.Errorf("query messages: %w", err)
	}
	return store.DecodeAll[model.Message](records)
}

func (e *Engine) scores(ctx context.Context, interviewID string) ([]model.Score, error) {
	records, err := e.store.Query(ctx, CollectionScores, store.Filter{"interview_id": interviewID}, &store.Order{Field: store.FieldCreatedAt})
	if err != nil {
		return nil, fmt.Errorf("query scores: %w", err)
	}
	return store.DecodeAll[model.Score](records)
}

func (e *Engine) appendMessage(ctx context.Context, interviewID string, role model.Role, content string, phase model.Phase) error {
	msg := model.Message{
		InterviewID: interviewID,
		Role:        role,
		Content:     content,
		Phase:       phase,
		CreatedAt:   e.now(),
	}
	if _, err := e.insert(ctx, CollectionMessages, msg); err != nil {
		return fmt.Errorf("save %s message: %w", role, err)
	}
	return nil
}

func (e *Engine) insert(ctx context.Context, collection string, v any) (string, error) {
	rec, err := store.Encode(v)
	if err != nil {
		return "", err
	}

	saved, err := e.store.Insert(ctx, collection, rec)
	if err != nil {
		return "", err
	}
	return saved.ID(), nil
}

func (e *Engine) get(ctx context.Context, collection, id string, target any) error {
	rec, err := e.store.Get(ctx, collection, strings.TrimSpace(id))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("%w: %s %s", ErrNotFound, collection, id)
		}
		return fmt.Errorf("load %s %s: %w", collection, id, err)
	}
	return store.Decode(rec, target)
}

func (e *Engine) logTurn(log *zap.Logger, turn *ai.Turn) {
	fields := []zap.Field{
		zap.String("source", string(turn.Source)),
		zap.Int("attempts", turn.Attempts),
		zap.String("turn_phase", turn.Phase.String()),
	}
	fields = append(fields, logger.CommonFields("", turn.Model)...)
	if turn.Score != nil {
		fields = append(fields, zap.Float64("score", *turn.Score))
	}
	log.Debug("interviewer turn generated", fields...)
}
