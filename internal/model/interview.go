package model

import (
	"slices"
	"time"
)

// Role identifies the author of a message.
type Role string

const (
	RoleCandidate   Role = "candidate"
	RoleInterviewer Role = "interviewer"
)

type Interview struct {
	ID           string            `json:"id,omitempty"`
	CandidateID  string            `json:"candidate_id"`
	CurrentPhase Phase             `json:"current_phase"`
	Metadata     InterviewMetadata `json:"metadata"`
	CompletedAt  *time.Time        `json:"completed_at"`
	CreatedAt    time.Time         `json:"created_at,omitempty"`
}

type InterviewMetadata struct {
	PhasesVisited []Phase `json:"phases_visited"`
}

// Visit records the phase in the visited set. It reports whether the phase was new.
func (m *InterviewMetadata) Visit(p Phase) bool {
	if slices.Contains(m.PhasesVisited, p) {
		return false
	}
	m.PhasesVisited = append(m.PhasesVisited, p)
	return true
}

// Message is one transcript entry. Phase is the interview phase at the time the
// message was recorded and never changes afterwards.
type Message struct {
	ID          string    `json:"id,omitempty"`
	InterviewID string    `json:"interview_id"`
	Role        Role      `json:"role"`
	Content     string    `json:"content"`
	Phase       Phase     `json:"phase"`
	CreatedAt   time.Time `json:"created_at,omitempty"`
}

type Score struct {
	ID          string    `json:"id,omitempty"`
	InterviewID string    `json:"interview_id"`
	Phase       Phase     `json:"phase"`
	Value       float64   `json:"value"`
	Assessment  string    `json:"assessment"`
	CreatedAt   time.Time `json:"created_at,omitempty"`
}
