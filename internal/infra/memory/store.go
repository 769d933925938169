package memory

import (
	"context"
	"sync"

	"quiz-webapp/internal/domain"
	"quiz-webapp/internal/infra/feed"
)

// Store is an in-process document store with a live catalog subscription. It is
// the default backend for demos and tests.
type Store struct {
	newID func() string

	mu          sync.RWMutex
	quizzes     []domain.QuizSummary
	questions   map[string][]domain.Question
	subscribers map[*subscriber]struct{}
}

type subscriber struct {
	ch    chan domain.Snapshot
	query domain.CatalogQuery
}

func NewStore() *Store {
	return &Store{
		newID:       domain.NewID,
		questions:   make(map[string][]domain.Question),
		subscribers: make(map[*subscriber]struct{}),
	}
}

// NewStoreWithIDs is test-only for deterministic identifiers.
func NewStoreWithIDs(newID func() string) *Store {
	s := NewStore()
	s.newID = newID
	return s
}

func (s *Store) CreateQuiz(_ context.Context, quiz domain.QuizSummary) (domain.QuizSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	quiz.ID = s.newID()
	s.quizzes = append(s.quizzes, quiz)
	s.broadcastLocked()
	return quiz, nil
}

func (s *Store) GetQuiz(_ context.Context, quizID string) (domain.QuizSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := s.indexLocked(quizID); i >= 0 {
		return s.quizzes[i], nil
	}
	return domain.QuizSummary{}, domain.ErrQuizNotFound
}

func (s *Store) ListQuestions(_ context.Context, quizID string) ([]domain.Question, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	stored := s.questions[quizID]
	out := make([]domain.Question, len(stored))
	copy(out, stored)
	return out, nil
}

// DeleteQuiz removes the quiz record only; its questions stay behind as orphans.
func (s *Store) DeleteQuiz(_ context.Context, quizID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexLocked(quizID)
	if i < 0 {
		return nil
	}
	s.quizzes = append(s.quizzes[:i:i], s.quizzes[i+1:]...)
	s.broadcastLocked()
	return nil
}

func (s *Store) AddQuestion(_ context.Context, quizID string, question domain.Question) (domain.Question, error) {
	if err := question.Validate(); err != nil {
		return domain.Question{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.indexLocked(quizID) < 0 {
		return domain.Question{}, domain.ErrQuizNotFound
	}
	question.ID = s.newID()
	question.QuizID = quizID
	s.questions[quizID] = append(s.questions[quizID], question)
	return question, nil
}

// OrphanedQuestions counts stored questions whose quiz no longer exists.
func (s *Store) OrphanedQuestions() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for quizID, qs := range s.questions {
		if s.indexLocked(quizID) < 0 {
			n += len(qs)
		}
	}
	return n
}

// Subscribe sends the current catalog right away and a full snapshot after every
// change until cancel is called or ctx is done.
func (s *Store) Subscribe(ctx context.Context, query domain.CatalogQuery) (<-chan domain.Snapshot, func(), error) {
	sub := &subscriber{ch: make(chan domain.Snapshot, feed.Buffer), query: query}

	s.mu.Lock()
	s.subscribers[sub] = struct{}{}
	feed.Deliver(sub.ch, s.snapshotLocked(query))
	s.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			s.mu.Lock()
			if _, ok := s.subscribers[sub]; ok {
				delete(s.subscribers, sub)
				close(sub.ch)
			}
			s.mu.Unlock()
		})
	}
	stop := context.AfterFunc(ctx, cancel)
	return sub.ch, func() {
		stop()
		cancel()
	}, nil
}

func (s *Store) broadcastLocked() {
	for sub := range s.subscribers {
		feed.Deliver(sub.ch, s.snapshotLocked(sub.query))
	}
}

func (s *Store) snapshotLocked(query domain.CatalogQuery) domain.Snapshot {
	return domain.Snapshot{Quizzes: feed.Order(s.quizzes, query)}
}

func (s *Store) indexLocked(quizID string) int {
	for i, q := range s.quizzes {
		if q.ID == quizID {
			return i
		}
	}
	return -1
}
