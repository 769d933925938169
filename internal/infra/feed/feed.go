// Package feed holds the delivery rules shared by the live catalog subscriptions.
package feed

import (
	"sort"

	"quiz-webapp/internal/domain"
)

// Buffer is the channel capacity handed to subscribers.
const Buffer = 8

// Deliver pushes snap to ch without blocking. When the subscriber is behind, the
// oldest pending snapshot is dropped: every snapshot carries full state, so only
// the latest one matters.
func Deliver(ch chan domain.Snapshot, snap domain.Snapshot) {
	for {
		select {
		case ch <- snap:
			return
		default:
		}
		select {
		case <-ch:
		default:
		}
	}
}

// Order returns a copy of quizzes arranged for query.
func Order(quizzes []domain.QuizSummary, query domain.CatalogQuery) []domain.QuizSummary {
	out := make([]domain.QuizSummary, len(quizzes))
	copy(out, quizzes)
	if query.OrderBy == "title" {
		sort.SliceStable(out, func(i, j int) bool {
			return out[i].Title < out[j].Title
		})
	}
	return out
}
