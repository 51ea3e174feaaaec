package domain

import "fmt"

// SentimentLabel describes the tone of news for an instrument within a
// session. The label set is fixed.
type SentimentLabel string

const (
	SentimentPositive     SentimentLabel = "POSITIVE"
	SentimentPositiveLean SentimentLabel = "POSITIVE_LEAN"
	SentimentMixed        SentimentLabel = "MIXED"
	SentimentNegativeLean SentimentLabel = "NEGATIVE_LEAN"
	SentimentNegative     SentimentLabel = "NEGATIVE"
)

// Valid reports whether the label belongs to the fixed set.
func (l SentimentLabel) Valid() bool {
	switch l {
	case SentimentPositive, SentimentPositiveLean, SentimentMixed,
		SentimentNegativeLean, SentimentNegative:
		return true
	}
	return false
}

// SessionSpec is the static definition of one news session: its aggregation
// weight, the sentiment assigned to each instrument it covers, and the signed
// daily drift target for each sentiment label.
type SessionSpec struct {
	ID           string                     `yaml:"-"`
	Weight       float64                    `yaml:"weight"`
	Sentiment    map[string]SentimentLabel  `yaml:"sentiment"`
	DriftTargets map[SentimentLabel]float64 `yaml:"drift_targets"`
}

// Validate checks the session definition for internal consistency.
func (s SessionSpec) Validate() error {
	if s.Weight <= 0 || s.Weight > 1 {
		return fmt.Errorf("session %s: weight %v outside (0,1]", s.ID, s.Weight)
	}
	for sym, label := range s.Sentiment {
		if !label.Valid() {
			return fmt.Errorf("session %s: unknown sentiment %q for %s", s.ID, label, sym)
		}
		if _, ok := s.DriftTargets[label]; !ok {
			return fmt.Errorf("session %s: no drift target for sentiment %q", s.ID, label)
		}
	}
	return nil
}

// DriftTarget returns the daily drift target for the given instrument, or
// zero if the session does not cover it.
func (s SessionSpec) DriftTarget(symbol string) float64 {
	label, ok := s.Sentiment[symbol]
	if !ok {
		return 0
	}
	return s.DriftTargets[label]
}
