package app

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"quiz-webapp/internal/domain"
)

// DefaultAdminPassword is the shared secret guarding the authoring panel. The
// comparison only decides which view to show; it is not an authorization check.
const DefaultAdminPassword = "admin"

const (
	MessageIncorrectPassword = "Incorrect password."
	NoticeFillAllFields      = "Please fill all fields."
	NoticeQuestionAdded      = "Question added!"
)

// AdminPanel authors quizzes. It never renders its own writes; the catalog
// subscription redelivers them.
type AdminPanel struct {
	store    Store
	router   *Router
	renderer Renderer
	password string
	logger   *zap.Logger

	mu       sync.RWMutex
	unlocked bool
}

func NewAdminPanel(store Store, router *Router, renderer Renderer, password string, logger *zap.Logger) *AdminPanel {
	if password == "" {
		password = DefaultAdminPassword
	}
	return &AdminPanel{
		store:    store,
		router:   router,
		renderer: renderer,
		password: password,
		logger:   logger.Named("admin"),
	}
}

// Login opens the panel when password matches the shared secret.
func (a *AdminPanel) Login(password string) bool {
	if password != a.password {
		a.renderer.RenderLoginError(MessageIncorrectPassword)
		return false
	}
	a.mu.Lock()
	a.unlocked = true
	a.mu.Unlock()

	a.renderer.RenderLoginError("")
	a.router.Show(ViewAdminPanel)
	return true
}

// Logout locks the panel and returns to subject selection.
func (a *AdminPanel) Logout() {
	a.mu.Lock()
	a.unlocked = false
	a.mu.Unlock()
	a.router.Show(ViewSubjectSelection)
}

func (a *AdminPanel) Unlocked() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.unlocked
}

// CreateQuiz adds a quiz with no questions. A blank title is ignored.
func (a *AdminPanel) CreateQuiz(ctx context.Context, title, subject string) error {
	if !a.Unlocked() {
		return domain.ErrAdminLocked
	}
	summary, err := domain.NewQuizSummary(title, subject)
	if err != nil {
		return err
	}
	created, err := a.store.CreateQuiz(ctx, summary)
	if err != nil {
		a.logger.Error("create quiz failed", zap.String("title", summary.Title), zap.Error(err))
		return err
	}
	a.logger.Info("quiz created", zap.String("quizID", created.ID), zap.String("title", created.Title))
	a.renderer.ResetForm(FormCreateQuiz, "")
	return nil
}

// DeleteQuiz removes the quiz record once confirmed. Its questions are left in place.
func (a *AdminPanel) DeleteQuiz(ctx context.Context, quizID string, confirmed bool) error {
	if !a.Unlocked() {
		return domain.ErrAdminLocked
	}
	if !confirmed {
		return nil
	}
	if err := a.store.DeleteQuiz(ctx, quizID); err != nil {
		a.logger.Error("delete quiz failed", zap.String("quizID", quizID), zap.Error(err))
		return err
	}
	a.logger.Info("quiz deleted", zap.String("quizID", quizID))
	return nil
}

// AddQuestion appends a question to the quiz after validating every field.
func (a *AdminPanel) AddQuestion(ctx context.Context, quizID, text string, options []string, correctIndex int) error {
	if !a.Unlocked() {
		return domain.ErrAdminLocked
	}
	question, err := domain.NewQuestion(text, options, correctIndex)
	if err != nil {
		a.renderer.Notice(NoticeFillAllFields)
		return err
	}
	added, err := a.store.AddQuestion(ctx, quizID, question)
	if err != nil {
		if !errors.Is(err, domain.ErrQuizNotFound) {
			a.logger.Error("add question failed", zap.String("quizID", quizID), zap.Error(err))
		}
		return err
	}
	a.logger.Info("question added", zap.String("quizID", quizID), zap.String("questionID", added.ID))
	a.renderer.ResetForm(FormAddQuestion, quizID)
	a.renderer.Notice(NoticeQuestionAdded)
	return nil
}
