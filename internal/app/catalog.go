package app

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"quiz-webapp/internal/domain"
)

const (
	MessageCatalogError = "Could not load quizzes."
	MessageNoQuizzes    = "No quizzes created yet."
)

// Catalog mirrors the quizzes collection through a live subscription and renders
// whichever list areas are currently relevant.
type Catalog struct {
	store    Store
	router   *Router
	renderer Renderer
	session  *QuizSession
	query    domain.CatalogQuery
	logger   *zap.Logger

	mu              sync.RWMutex
	quizzes         []domain.QuizSummary
	subject         string
	subjectSelected bool
	cancel          func()
	done            chan struct{}
}

func NewCatalog(store Store, router *Router, renderer Renderer, session *QuizSession, query domain.CatalogQuery, logger *zap.Logger) *Catalog {
	return &Catalog{
		store:    store,
		router:   router,
		renderer: renderer,
		session:  session,
		query:    query,
		logger:   logger.Named("catalog"),
	}
}

// Start opens the live subscription. Every delivered snapshot replaces the cache.
func (c *Catalog) Start(ctx context.Context) error {
	updates, cancel, err := c.store.Subscribe(ctx, c.query)
	if err != nil {
		c.logger.Error("subscribe to quizzes failed", zap.Error(err))
		c.renderer.RenderList(ListFrame{Kind: ListCatalog, Message: MessageCatalogError, Error: true})
		return fmt.Errorf("subscribe catalog: %w", err)
	}

	done := make(chan struct{})
	c.mu.Lock()
	c.cancel = cancel
	c.done = done
	c.mu.Unlock()

	go func() {
		defer close(done)
		for snap := range updates {
			c.apply(snap)
		}
	}()
	return nil
}

// Stop closes the subscription and waits for the delivery loop to drain.
func (c *Catalog) Stop() {
	c.mu.Lock()
	cancel, done := c.cancel, c.done
	c.cancel, c.done = nil, nil
	c.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
}

func (c *Catalog) apply(snap domain.Snapshot) {
	if snap.Err != nil {
		c.logger.Error("quiz subscription failed", zap.Error(snap.Err))
		c.renderer.RenderList(ListFrame{Kind: ListCatalog, Message: MessageCatalogError, Error: true})
		return
	}

	quizzes := make([]domain.QuizSummary, len(snap.Quizzes))
	copy(quizzes, snap.Quizzes)

	c.mu.Lock()
	c.quizzes = quizzes
	subject, selected := c.subject, c.subjectSelected
	c.mu.Unlock()

	if selected {
		c.renderChapters(subject)
	}
	if c.router.IsActive(ViewHome) {
		c.RenderCatalog()
	}
	if c.router.IsActive(ViewAdminPanel) {
		c.RenderAdminList()
	}
}

// SelectSubject shows the chapter list of one subject.
func (c *Catalog) SelectSubject(subject string) {
	c.mu.Lock()
	c.subject = subject
	c.subjectSelected = true
	c.mu.Unlock()

	c.renderChapters(subject)
	c.router.Show(ViewChapterSelection)
}

// Subject returns the selected subject, if any.
func (c *Catalog) Subject() (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.subject, c.subjectSelected
}

// Select starts the quiz with the given id.
func (c *Catalog) Select(ctx context.Context, quizID string) error {
	return c.session.Start(ctx, quizID)
}

// Quizzes returns a copy of the cached catalog.
func (c *Catalog) Quizzes() []domain.QuizSummary {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]domain.QuizSummary, len(c.quizzes))
	copy(out, c.quizzes)
	return out
}

// Chapters returns the cached quizzes tagged with subject.
func (c *Catalog) Chapters(subject string) []domain.QuizSummary {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]domain.QuizSummary, 0, len(c.quizzes))
	for _, q := range c.quizzes {
		if q.Subject == subject {
			out = append(out, q)
		}
	}
	return out
}

func (c *Catalog) renderChapters(subject string) {
	chapters := c.Chapters(subject)
	frame := ListFrame{
		Kind:    ListChapters,
		Title:   subject + " Chapters",
		Subject: subject,
		Quizzes: chapters,
	}
	if len(chapters) == 0 {
		frame.Message = fmt.Sprintf("No chapters available for %s yet.", subject)
	}
	c.renderer.RenderList(frame)
}

// RenderCatalog renders the flat quiz list from the cache.
func (c *Catalog) RenderCatalog() {
	c.renderer.RenderList(ListFrame{Kind: ListCatalog, Quizzes: c.Quizzes()})
}

// RenderChapters renders the chapter list of the selected subject, if any.
func (c *Catalog) RenderChapters() {
	if subject, ok := c.Subject(); ok {
		c.renderChapters(subject)
	}
}

// RenderAdminList renders the admin list from the cache.
func (c *Catalog) RenderAdminList() {
	quizzes := c.Quizzes()
	frame := ListFrame{Kind: ListAdmin, Quizzes: quizzes}
	if len(quizzes) == 0 {
		frame.Message = MessageNoQuizzes
	}
	c.renderer.RenderList(frame)
}
