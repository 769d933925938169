package app

import (
	"context"
	"time"

	"quiz-webapp/internal/domain"
)

// Store is the hosted document store holding the quizzes collection and each
// quiz's questions child collection.
type Store interface {
	CreateQuiz(ctx context.Context, quiz domain.QuizSummary) (domain.QuizSummary, error)
	GetQuiz(ctx context.Context, quizID string) (domain.QuizSummary, error)
	ListQuestions(ctx context.Context, quizID string) ([]domain.Question, error)
	DeleteQuiz(ctx context.Context, quizID string) error
	AddQuestion(ctx context.Context, quizID string, question domain.Question) (domain.Question, error)
	// Subscribe delivers the full catalog immediately and again after every change.
	// The caller must invoke the returned cancel function to avoid leaks.
	Subscribe(ctx context.Context, query domain.CatalogQuery) (<-chan domain.Snapshot, func(), error)
}

// IdentityProvider is the external federated sign-in service.
type IdentityProvider interface {
	SignIn(ctx context.Context) error
	SignOut(ctx context.Context) error
	// OnAuthStateChanged registers fn for auth state changes and reports the current
	// state right away. A nil user means signed out.
	OnAuthStateChanged(fn func(user *domain.User)) (unsubscribe func())
}

// Timer is a pending delayed continuation.
type Timer interface {
	Stop() bool
}

// Scheduler creates delayed continuations.
type Scheduler interface {
	AfterFunc(d time.Duration, f func()) Timer
}

// RealScheduler runs continuations on the runtime timer.
type RealScheduler struct{}

func (RealScheduler) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}
