package model

import (
	"fmt"
	"strings"
)

type Recommendation int

const (
	RecommendationMaybe Recommendation = iota
	RecommendationStrongHire
	RecommendationHire
	RecommendationNoHire
)

var recommendationNames = map[Recommendation]string{
	RecommendationStrongHire: "Strong Hire",
	RecommendationHire:       "Hire",
	RecommendationMaybe:      "Maybe",
	RecommendationNoHire:     "No Hire",
}

func (r Recommendation) String() string {
	if name, ok := recommendationNames[r]; ok {
		return name
	}
	return fmt.Sprintf("Recommendation(%d)", int(r))
}

// ParseRecommendation matches the verdict regardless of casing, spaces, hyphens or underscores.
func ParseRecommendation(raw string) (Recommendation, error) {
	key := strings.ToLower(strings.TrimSpace(raw))
	key = strings.NewReplacer(" ", "", "_", "", "-", "").Replace(key)

	for rec, name := range recommendationNames {
		if strings.ToLower(strings.ReplaceAll(name, " ", "")) == key {
			return rec, nil
		}
	}
	return RecommendationMaybe, fmt.Errorf("unknown recommendation %q", raw)
}

func (r Recommendation) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

func (r *Recommendation) UnmarshalText(text []byte) error {
	parsed, err := ParseRecommendation(string(text))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// Report is the hire/no-hire verdict compiled after an interview.
type Report struct {
	OverallScore     float64        `json:"overall_score"`
	Recommendation   Recommendation `json:"recommendation"`
	Summary          string         `json:"summary"`
	Strengths        []string       `json:"strengths"`
	Improvements     []string       `json:"improvements"`
	DetailedFeedback string         `json:"detailed_feedback"`
	// Fallback is set when the report was computed without the model.
	Fallback bool `json:"fallback"`
}
