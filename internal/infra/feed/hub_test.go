package feed_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"quiz-webapp/internal/domain"
	"quiz-webapp/internal/infra/feed"
	"quiz-webapp/internal/infra/memory"
)

type countingStore struct {
	*memory.Store
	subscribes atomic.Int32
}

func (s *countingStore) Subscribe(ctx context.Context, q domain.CatalogQuery) (<-chan domain.Snapshot, func(), error) {
	s.subscribes.Add(1)
	return s.Store.Subscribe(ctx, q)
}

func TestHubSharesUpstreamSubscription(t *testing.T) {
	ctx := context.Background()
	store := &countingStore{Store: memory.NewStore()}
	hub := feed.Share(store)

	a, cancelA, err := hub.Subscribe(ctx, domain.CatalogQuery{})
	if err != nil {
		t.Fatalf("subscribe a: %v", err)
	}
	defer cancelA()
	waitQuizzes(t, a, 0)

	b, cancelB, err := hub.Subscribe(ctx, domain.CatalogQuery{})
	if err != nil {
		t.Fatalf("subscribe b: %v", err)
	}
	waitQuizzes(t, b, 0)

	if n := store.subscribes.Load(); n != 1 {
		t.Fatalf("expected one upstream subscription, got %d", n)
	}

	if _, err := hub.CreateQuiz(ctx, domain.QuizSummary{Title: "Algebra I"}); err != nil {
		t.Fatalf("create quiz: %v", err)
	}
	waitQuizzes(t, a, 1)
	waitQuizzes(t, b, 1)

	cancelB()
	for range b {
		// drains buffered snapshots; the loop ends once b is closed
	}

	cancelA()
	if _, err := hub.CreateQuiz(ctx, domain.QuizSummary{Title: "Physics"}); err != nil {
		t.Fatalf("create quiz: %v", err)
	}

	c, cancelC, err := hub.Subscribe(ctx, domain.CatalogQuery{})
	if err != nil {
		t.Fatalf("subscribe c: %v", err)
	}
	defer cancelC()
	waitQuizzes(t, c, 2)
	if n := store.subscribes.Load(); n != 2 {
		t.Fatalf("expected a fresh upstream after all subscribers left, got %d", n)
	}
}

func waitQuizzes(t *testing.T, ch <-chan domain.Snapshot, n int) {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case snap, ok := <-ch:
			if !ok {
				t.Fatalf("subscription closed")
			}
			if len(snap.Quizzes) == n {
				return
			}
		case <-deadline:
			t.Fatalf("timed out waiting for %d quizzes", n)
		}
	}
}
