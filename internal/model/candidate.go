package model

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

const (
	CandidateStatusInProgress = "In Progress"
	CandidateStatusCompleted  = "Completed"
)

// Candidate is the profile an interview is run against.
type Candidate struct {
	ID         string    `json:"id,omitempty"`
	Name       string    `json:"name" validate:"required"`
	Email      string    `json:"email" validate:"omitempty,email"`
	Phone      string    `json:"phone"`
	Position   string    `json:"position"`
	Experience float64   `json:"experience" validate:"gte=0"`
	Location   string    `json:"location"`
	TechStack  TechStack `json:"tech_stack"`
	Status     string    `json:"status,omitempty"`
	CreatedAt  time.Time `json:"created_at,omitempty"`
}

// FirstName returns the first word of the candidate name.
func (c Candidate) FirstName() string {
	fields := strings.Fields(c.Name)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

// TechStack is a list of technologies. It decodes from either a JSON list or a
// comma separated string.
type TechStack []string

func (t *TechStack) UnmarshalJSON(data []byte) error {
	var list []string
	if err := json.Unmarshal(data, &list); err == nil {
		*t = cleanStack(list)
		return nil
	}

	var joined string
	if err := json.Unmarshal(data, &joined); err != nil {
		return fmt.Errorf("tech_stack must be a list or a comma separated string: %w", err)
	}

	*t = ParseTechStack(joined)
	return nil
}

// ParseTechStack splits a comma separated list of technologies.
func ParseTechStack(joined string) TechStack {
	return cleanStack(strings.Split(joined, ","))
}

// Display joins the stack into the single string shown to the model.
func (t TechStack) Display() string {
	cleaned := cleanStack(t)
	if len(cleaned) == 0 {
		return "General"
	}
	return strings.Join(cleaned, ", ")
}

func cleanStack(items []string) TechStack {
	out := make(TechStack, 0, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		out = append(out, item)
	}
	return out
}
