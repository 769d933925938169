package domain

import (
	"fmt"
	"math"
)

const (
	FeedbackExcellent  = "Excellent work!"
	FeedbackGreat      = "Great effort!"
	FeedbackPracticing = "Keep practicing!"
)

// Result is the final score summary of a finished quiz.
type Result struct {
	Score      int    `json:"score"`
	Total      int    `json:"total"`
	Percentage int    `json:"percentage"`
	Feedback   string `json:"feedback"`
}

// ComputeResult derives the percentage and feedback tier. A zero total scores 0%.
func ComputeResult(score, total int) Result {
	percentage := 0
	if total > 0 {
		percentage = int(math.Round(100 * float64(score) / float64(total)))
	}
	return Result{
		Score:      score,
		Total:      total,
		Percentage: percentage,
		Feedback:   feedbackFor(percentage),
	}
}

func feedbackFor(percentage int) string {
	switch {
	case percentage > 80:
		return FeedbackExcellent
	case percentage < 40:
		return FeedbackPracticing
	default:
		return FeedbackGreat
	}
}

// Fraction renders the score as "score/total".
func (r Result) Fraction() string {
	return fmt.Sprintf("%d/%d", r.Score, r.Total)
}

// PercentageText renders the percentage as "NN%".
func (r Result) PercentageText() string {
	return fmt.Sprintf("%d%%", r.Percentage)
}
