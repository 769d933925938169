package feed

import (
	"context"
	"time"

	"golang.org/x/sync/singleflight"

	"quiz-webapp/internal/domain"
)

const loaderKey = "catalog"

// Loader coalesces concurrent catalog reloads of one store.
type Loader struct {
	group   singleflight.Group
	timeout time.Duration
}

func NewLoader(timeout time.Duration) *Loader {
	return &Loader{timeout: timeout}
}

// Snapshot runs load, or joins a load already in flight, and orders the result
// for query.
func (l *Loader) Snapshot(ctx context.Context, query domain.CatalogQuery, load func(context.Context) ([]domain.QuizSummary, error)) domain.Snapshot {
	result, err, _ := l.group.Do(loaderKey, func() (interface{}, error) {
		// shared by every subscriber, so one caller's cancellation must not fail the rest
		loadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), l.timeout)
		defer cancel()
		return load(loadCtx)
	})
	if err != nil {
		return domain.Snapshot{Err: err}
	}
	return domain.Snapshot{Quizzes: Order(result.([]domain.QuizSummary), query)}
}

// Changed must be called when a change notification arrives, before the next
// Snapshot. A load that started earlier may predate the change, so later callers
// must not join it.
func (l *Loader) Changed() {
	l.group.Forget(loaderKey)
}
