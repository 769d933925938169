package memory

import (
	"context"
	"fmt"
	"testing"
	"time"

	"quiz-webapp/internal/domain"
)

func TestStoreQuizLifecycle(t *testing.T) {
	ctx := context.Background()
	store := NewStoreWithIDs(sequentialIDs())

	quiz, err := store.CreateQuiz(ctx, domain.QuizSummary{Title: "Algebra I", Subject: "Math"})
	if err != nil {
		t.Fatalf("create quiz: %v", err)
	}
	if quiz.ID != "id-1" {
		t.Fatalf("expected store-assigned id, got %q", quiz.ID)
	}

	q, _ := domain.NewQuestion("2 + 2?", []string{"2", "3", "4", "5"}, 2)
	added, err := store.AddQuestion(ctx, quiz.ID, q)
	if err != nil {
		t.Fatalf("add question: %v", err)
	}
	if added.QuizID != quiz.ID || added.ID == "" {
		t.Fatalf("expected question bound to quiz, got %+v", added)
	}

	questions, err := store.ListQuestions(ctx, quiz.ID)
	if err != nil || len(questions) != 1 {
		t.Fatalf("expected 1 question, got %d (%v)", len(questions), err)
	}

	if err := store.DeleteQuiz(ctx, quiz.ID); err != nil {
		t.Fatalf("delete quiz: %v", err)
	}
	if _, err := store.GetQuiz(ctx, quiz.ID); err != domain.ErrQuizNotFound {
		t.Fatalf("expected quiz gone, got %v", err)
	}
	if n := store.OrphanedQuestions(); n != 1 {
		t.Fatalf("expected questions left behind, got %d orphans", n)
	}
	if _, err := store.AddQuestion(ctx, quiz.ID, q); err != domain.ErrQuizNotFound {
		t.Fatalf("expected add to deleted quiz to fail, got %v", err)
	}
}

func TestSubscribeDeliversFullSnapshots(t *testing.T) {
	ctx := context.Background()
	store := NewStoreWithIDs(sequentialIDs())

	updates, cancel, err := store.Subscribe(ctx, domain.CatalogQuery{OrderBy: "title"})
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer cancel()

	initial := next(t, updates)
	if len(initial.Quizzes) != 0 {
		t.Fatalf("expected empty initial snapshot, got %+v", initial.Quizzes)
	}

	_, _ = store.CreateQuiz(ctx, domain.QuizSummary{Title: "Physics"})
	_ = next(t, updates)
	_, _ = store.CreateQuiz(ctx, domain.QuizSummary{Title: "Algebra I"})
	snap := next(t, updates)
	if len(snap.Quizzes) != 2 || snap.Quizzes[0].Title != "Algebra I" {
		t.Fatalf("expected ordered full snapshot, got %+v", snap.Quizzes)
	}
}

func TestSubscribeStopsOnCancel(t *testing.T) {
	ctx, cancelCtx := context.WithCancel(context.Background())
	store := NewStore()

	updates, cancel, err := store.Subscribe(ctx, domain.CatalogQuery{})
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer cancel()
	<-updates

	cancelCtx()
	select {
	case _, ok := <-updates:
		if ok {
			t.Fatalf("expected channel closed after context cancel")
		}
	case <-time.After(time.Second):
		t.Fatalf("subscription not closed")
	}
	cancel() // idempotent
}

func next(t *testing.T, ch <-chan domain.Snapshot) domain.Snapshot {
	t.Helper()
	select {
	case snap := <-ch:
		return snap
	case <-time.After(time.Second):
		t.Fatalf("timed out waiting for snapshot")
	}
	return domain.Snapshot{}
}

func sequentialIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("id-%d", n)
	}
}
