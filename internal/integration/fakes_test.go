package integration

import (
	"context"
	"sync"

	"quiz-webapp/internal/app"
	"quiz-webapp/internal/domain"
)

// anonymous never signs anyone in.
type anonymous struct{}

func (anonymous) SignIn(context.Context) error  { return domain.ErrProviderNotConfigured }
func (anonymous) SignOut(context.Context) error { return nil }
func (anonymous) OnAuthStateChanged(fn func(*domain.User)) func() {
	fn(nil)
	return func() {}
}

// resultRecorder keeps only the last result; every other render is dropped.
type resultRecorder struct {
	mu   sync.Mutex
	last domain.Result
}

func (r *resultRecorder) result() domain.Result {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.last
}

func (r *resultRecorder) RenderResults(res domain.Result) {
	r.mu.Lock()
	r.last = res
	r.mu.Unlock()
}

func (*resultRecorder) ShowView(app.View)                {}
func (*resultRecorder) RenderAuth(app.AuthFrame)         {}
func (*resultRecorder) RenderList(app.ListFrame)         {}
func (*resultRecorder) RenderQuestion(app.QuestionFrame) {}
func (*resultRecorder) RenderOptions(app.OptionsFrame)   {}
func (*resultRecorder) RenderLoginError(string)          {}
func (*resultRecorder) ResetForm(string, string)         {}
func (*resultRecorder) Notice(string)                    {}
