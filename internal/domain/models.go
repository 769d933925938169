package domain

import (
	"fmt"
	"strings"
)

// OptionCount is the fixed number of answer options per question.
const OptionCount = 4

// QuizSummary is the catalog row for a quiz. Subject is optional.
type QuizSummary struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Subject string `json:"subject,omitempty"`
}

// Question is one quiz item with four options and the index of the correct one.
type Question struct {
	ID           string              `json:"id"`
	QuizID       string              `json:"quizId"`
	Text         string              `json:"questionText"`
	Options      [OptionCount]string `json:"options"`
	CorrectIndex int                 `json:"correctAnswerIndex"`
}

// Quiz is a quiz together with its ordered question set, as loaded at session start.
type Quiz struct {
	QuizSummary
	Questions []Question `json:"questions"`
}

// User is the signed-in identity reported by the identity provider.
type User struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
	Email       string `json:"email,omitempty"`
}

// Snapshot is one delivery of the live catalog subscription. It always carries the
// full current state; Err is set when the subscription failed instead.
type Snapshot struct {
	Quizzes []QuizSummary
	Err     error
}

// CatalogQuery narrows a catalog subscription.
type CatalogQuery struct {
	// OrderBy is either empty (store delivery order) or "title".
	OrderBy string
}

// NewQuizSummary trims the input and rejects blank titles.
func NewQuizSummary(title, subject string) (QuizSummary, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return QuizSummary{}, ErrEmptyTitle
	}
	return QuizSummary{Title: title, Subject: strings.TrimSpace(subject)}, nil
}

// NewQuestion trims and validates authoring input.
func NewQuestion(text string, options []string, correctIndex int) (Question, error) {
	q := Question{Text: strings.TrimSpace(text), CorrectIndex: correctIndex}
	if q.Text == "" {
		return Question{}, fmt.Errorf("%w: question text is empty", ErrInvalidQuestion)
	}
	if len(options) != OptionCount {
		return Question{}, fmt.Errorf("%w: need %d options, got %d", ErrInvalidQuestion, OptionCount, len(options))
	}
	for i, opt := range options {
		opt = strings.TrimSpace(opt)
		if opt == "" {
			return Question{}, fmt.Errorf("%w: option %d is empty", ErrInvalidQuestion, i+1)
		}
		q.Options[i] = opt
	}
	if err := q.Validate(); err != nil {
		return Question{}, err
	}
	return q, nil
}

// Validate checks the invariants of a stored question.
func (q Question) Validate() error {
	if q.CorrectIndex < 0 || q.CorrectIndex >= OptionCount {
		return fmt.Errorf("%w: correct index %d out of range", ErrInvalidQuestion, q.CorrectIndex)
	}
	return nil
}
