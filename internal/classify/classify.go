// Package classify scores text for hate speech and offensive language.
package classify

import (
	"context"
	"fmt"
)

// Class names whose confidences are extracted into Scores.
const (
	ClassHateSpeech = "hate_speech"
	ClassOffensive  = "offensive_language"
	ClassNeither    = "neither"
)

// ClassScore is one entry of a classifier result.
type ClassScore struct {
	ClassName  string  `json:"class_name"`
	Confidence float64 `json:"confidence"`
}

// Classifier returns per-class confidences for text, in no particular order.
type Classifier interface {
	Classify(ctx context.Context, text string) ([]ClassScore, error)
}

// Scores holds the two confidences persisted per post, each in [0, 1].
type Scores struct {
	Hate      float64
	Offensive float64
}

// Error reports a classifier failure for a single text.
type Error struct {
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("classification failed: %v", e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Scorer adapts a Classifier to the two scores stored on posts.
type Scorer struct {
	classifier Classifier
}

// NewScorer creates a Scorer backed by c.
func NewScorer(c Classifier) *Scorer {
	return &Scorer{classifier: c}
}

// Score classifies text. Errors are returned as *Error; the returned Scores
// are zero in that case.
func (s *Scorer) Score(ctx context.Context, text string) (Scores, error) {
	classes, err := s.classifier.Classify(ctx, text)
	if err != nil {
		return Scores{}, &Error{Err: err}
	}
	return Extract(classes), nil
}

// Extract picks the hate_speech and offensive_language confidences out of an
// unordered result. Missing classes score 0; values are clamped into [0, 1].
func Extract(classes []ClassScore) Scores {
	var s Scores
	for _, c := range classes {
		switch c.ClassName {
		case ClassHateSpeech:
			s.Hate = clamp(c.Confidence)
		case ClassOffensive:
			s.Offensive = clamp(c.Confidence)
		}
	}
	return s
}

func clamp(v float64) float64 {
	switch {
	case v != v: // NaN
		return 0
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}
