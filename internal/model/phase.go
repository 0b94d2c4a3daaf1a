package model

import (
	"fmt"
	"strings"
)

// Phase is a named stage of an interview. Completed is absorbing.
type Phase string

const (
	PhaseTechnical      Phase = "technical"
	PhaseProject        Phase = "project"
	PhaseProblemSolving Phase = "problem_solving"
	PhaseBehavioral     Phase = "behavioral"
	PhaseCompleted      Phase = "completed"
)

// Phases lists every phase in the order the interviewer is asked to follow.
var Phases = []Phase{
	PhaseTechnical,
	PhaseProject,
	PhaseProblemSolving,
	PhaseBehavioral,
	PhaseCompleted,
}

func (p Phase) String() string { return string(p) }

func (p Phase) Valid() bool {
	for _, known := range Phases {
		if p == known {
			return true
		}
	}
	return false
}

func (p Phase) IsTerminal() bool { return p == PhaseCompleted }

// ParsePhase accepts the canonical tags as well as casing, space and hyphen variations
// ("Problem Solving", "problem-solving").
func ParsePhase(raw string) (Phase, error) {
	normalized := strings.ToLower(strings.TrimSpace(raw))
	normalized = strings.NewReplacer(" ", "_", "-", "_").Replace(normalized)

	phase := Phase(normalized)
	if !phase.Valid() {
		return "", fmt.Errorf("unknown phase %q", raw)
	}
	return phase, nil
}
