package app_test

import (
	"context"
	"sync"
	"time"

	"quiz-webapp/internal/app"
	"quiz-webapp/internal/domain"
)

// recorder is a Renderer that keeps every frame.
type recorder struct {
	mu         sync.Mutex
	views      []app.View
	auth       []app.AuthFrame
	lists      []app.ListFrame
	questions  []app.QuestionFrame
	options    []app.OptionsFrame
	results    []domain.Result
	loginError []string
	resets     []string
	notices    []string
}

func (r *recorder) ShowView(v app.View) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.views = append(r.views, v)
}

func (r *recorder) RenderAuth(f app.AuthFrame) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.auth = append(r.auth, f)
}

func (r *recorder) RenderList(f app.ListFrame) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lists = append(r.lists, f)
}

func (r *recorder) RenderQuestion(f app.QuestionFrame) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.questions = append(r.questions, f)
}

func (r *recorder) RenderOptions(f app.OptionsFrame) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.options = append(r.options, f)
}

func (r *recorder) RenderResults(res domain.Result) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.results = append(r.results, res)
}

func (r *recorder) RenderLoginError(msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.loginError = append(r.loginError, msg)
}

func (r *recorder) ResetForm(form, quizID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.resets = append(r.resets, form+":"+quizID)
}

func (r *recorder) Notice(msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notices = append(r.notices, msg)
}

func (r *recorder) lastQuestion() app.QuestionFrame {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.questions[len(r.questions)-1]
}

func (r *recorder) lastOptions() app.OptionsFrame {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.options[len(r.options)-1]
}

func (r *recorder) lastResult() (domain.Result, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.results) == 0 {
		return domain.Result{}, false
	}
	return r.results[len(r.results)-1], true
}

func (r *recorder) lastNotice() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.notices) == 0 {
		return ""
	}
	return r.notices[len(r.notices)-1]
}

// lastList returns the most recent frame of the given kind.
func (r *recorder) lastList(kind app.ListKind) (app.ListFrame, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.lists) - 1; i >= 0; i-- {
		if r.lists[i].Kind == kind {
			return r.lists[i], true
		}
	}
	return app.ListFrame{}, false
}

func (r *recorder) countLists(kind app.ListKind) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, f := range r.lists {
		if f.Kind == kind {
			n++
		}
	}
	return n
}

// manualScheduler fires timers only when told to.
type manualScheduler struct {
	mu     sync.Mutex
	timers []*manualTimer
}

type manualTimer struct {
	mu      sync.Mutex
	d       time.Duration
	f       func()
	stopped bool
	fired   bool
}

func (s *manualScheduler) AfterFunc(d time.Duration, f func()) app.Timer {
	t := &manualTimer{d: d, f: f}
	s.mu.Lock()
	s.timers = append(s.timers, t)
	s.mu.Unlock()
	return t
}

func (t *manualTimer) Stop() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	wasPending := !t.stopped && !t.fired
	t.stopped = true
	return wasPending
}

// fire runs f even if the timer was stopped, mimicking a continuation that was
// already in flight when Stop was called.
func (t *manualTimer) fire() {
	t.mu.Lock()
	t.fired = true
	t.mu.Unlock()
	t.f()
}

// fireAll runs every pending, non-stopped timer.
func (s *manualScheduler) fireAll() int {
	s.mu.Lock()
	timers := s.timers
	s.timers = nil
	s.mu.Unlock()
	n := 0
	for _, t := range timers {
		t.mu.Lock()
		skip := t.stopped || t.fired
		t.mu.Unlock()
		if skip {
			continue
		}
		t.fire()
		n++
	}
	return n
}

func (s *manualScheduler) last() *manualTimer {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.timers[len(s.timers)-1]
}

// fakeIdentity is a scripted IdentityProvider.
type fakeIdentity struct {
	mu        sync.Mutex
	user      *domain.User
	listeners []func(*domain.User)
	subs      int
	signInErr error
	next      *domain.User
}

func (f *fakeIdentity) SignIn(context.Context) error {
	if f.signInErr != nil {
		return f.signInErr
	}
	f.set(f.next)
	return nil
}

func (f *fakeIdentity) SignOut(context.Context) error {
	f.set(nil)
	return nil
}

func (f *fakeIdentity) OnAuthStateChanged(fn func(*domain.User)) func() {
	f.mu.Lock()
	f.subs++
	f.listeners = append(f.listeners, fn)
	u := f.user
	f.mu.Unlock()
	fn(u)
	return func() {}
}

func (f *fakeIdentity) set(u *domain.User) {
	f.mu.Lock()
	f.user = u
	listeners := append([]func(*domain.User){}, f.listeners...)
	f.mu.Unlock()
	for _, fn := range listeners {
		fn(u)
	}
}

// countingStore wraps a Store and counts reads, optionally failing them.
type countingStore struct {
	app.Store
	mu        sync.Mutex
	gets      int
	lists     int
	failReads error
}

func (s *countingStore) GetQuiz(ctx context.Context, id string) (domain.QuizSummary, error) {
	s.mu.Lock()
	s.gets++
	err := s.failReads
	s.mu.Unlock()
	if err != nil {
		return domain.QuizSummary{}, err
	}
	return s.Store.GetQuiz(ctx, id)
}

func (s *countingStore) ListQuestions(ctx context.Context, id string) ([]domain.Question, error) {
	s.mu.Lock()
	s.lists++
	s.mu.Unlock()
	return s.Store.ListQuestions(ctx, id)
}

func (s *countingStore) reads() (int, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gets, s.lists
}
