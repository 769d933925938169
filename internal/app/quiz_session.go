package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"quiz-webapp/internal/domain"
)

// DefaultDwell is how long answer feedback stays visible before the next question.
const DefaultDwell = 1200 * time.Millisecond

const (
	NoticeQuizNotFound = "Quiz not found!"
	NoticeNoQuestions  = "This chapter has no questions yet!"
)

// SessionState is the quiz-taking state machine.
type SessionState int

const (
	StateIdle SessionState = iota
	StateLoading
	StateAnswering
	StateRevealing
	StateFinished
)

func (s SessionState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLoading:
		return "loading"
	case StateAnswering:
		return "answering"
	case StateRevealing:
		return "revealing"
	case StateFinished:
		return "finished"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// SessionStatus is a read-only view of the current attempt.
type SessionStatus struct {
	State    SessionState
	QuizID   string
	Index    int
	Score    int
	Total    int
	Selected int
}

// attempt is the transient state of one run through a quiz. It is built fresh on
// every start and never shared with the catalog.
type attempt struct {
	quizID    string
	title     string
	questions []domain.Question
	index     int
	score     int
	selected  int
	timer     Timer
}

// QuizSession steps one user through a quiz.
type QuizSession struct {
	store     Store
	router    *Router
	renderer  Renderer
	scheduler Scheduler
	dwell     time.Duration
	logger    *zap.Logger

	mu         sync.Mutex
	state      SessionState
	current    *attempt
	lastQuizID string
	generation uint64
}

func NewQuizSession(store Store, router *Router, renderer Renderer, scheduler Scheduler, dwell time.Duration, logger *zap.Logger) *QuizSession {
	if scheduler == nil {
		scheduler = RealScheduler{}
	}
	if dwell <= 0 {
		dwell = DefaultDwell
	}
	return &QuizSession{
		store:     store,
		router:    router,
		renderer:  renderer,
		scheduler: scheduler,
		dwell:     dwell,
		logger:    logger.Named("session"),
	}
}

// Start loads the quiz and its questions and shows the first question. A missing
// quiz or an empty question set leaves the current view in place with a notice.
func (s *QuizSession) Start(ctx context.Context, quizID string) error {
	s.mu.Lock()
	s.discardLocked()
	s.generation++
	gen := s.generation
	s.lastQuizID = quizID
	s.state = StateLoading
	s.mu.Unlock()

	quiz, err := s.load(ctx, quizID)

	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.generation {
		// superseded by a later start
		return nil
	}
	switch {
	case errors.Is(err, domain.ErrQuizNotFound):
		s.state = StateIdle
		s.renderer.Notice(NoticeQuizNotFound)
		return nil
	case err != nil:
		s.state = StateIdle
		s.logger.Error("start quiz failed", zap.String("quizID", quizID), zap.Error(err))
		return fmt.Errorf("start quiz %s: %w", quizID, err)
	case len(quiz.Questions) == 0:
		s.state = StateIdle
		s.renderer.Notice(NoticeNoQuestions)
		return nil
	}

	s.current = &attempt{
		quizID:    quiz.ID,
		title:     quiz.Title,
		questions: quiz.Questions,
		selected:  -1,
	}
	s.router.Show(ViewQuiz)
	s.loadQuestionLocked()
	return nil
}

// load reads the parent document, then its questions.
func (s *QuizSession) load(ctx context.Context, quizID string) (domain.Quiz, error) {
	summary, err := s.store.GetQuiz(ctx, quizID)
	if err != nil {
		return domain.Quiz{}, err
	}
	questions, err := s.store.ListQuestions(ctx, quizID)
	if err != nil {
		return domain.Quiz{}, err
	}
	return domain.Quiz{QuizSummary: summary, Questions: questions}, nil
}

// Restart reloads the last started quiz from the store.
func (s *QuizSession) Restart(ctx context.Context) error {
	s.mu.Lock()
	quizID := s.lastQuizID
	s.mu.Unlock()
	if quizID == "" {
		return nil
	}
	return s.Start(ctx, quizID)
}

// SelectOption records the first selection for the current question. Later
// selections are ignored.
func (s *QuizSession) SelectOption(idx int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	a := s.current
	if s.state != StateAnswering || a == nil || a.selected >= 0 {
		return false
	}
	if idx < 0 || idx >= domain.OptionCount {
		return false
	}
	a.selected = idx

	frame := OptionsFrame{Locked: true, AdvanceEnabled: true}
	frame.Marks[idx] = MarkSelected
	s.renderer.RenderOptions(frame)
	return true
}

// Advance reveals the outcome of the selected option and schedules the next
// question after the dwell time. Without a selection it does nothing.
func (s *QuizSession) Advance() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	a := s.current
	if s.state != StateAnswering || a == nil || a.selected < 0 {
		return false
	}

	q := a.questions[a.index]
	frame := OptionsFrame{Locked: true}
	if a.selected == q.CorrectIndex {
		a.score++
		frame.Marks[a.selected] = MarkCorrect
	} else {
		frame.Marks[a.selected] = MarkIncorrect
		frame.Marks[q.CorrectIndex] = MarkCorrect
	}
	s.state = StateRevealing
	s.renderer.RenderOptions(frame)

	a.timer = s.scheduler.AfterFunc(s.dwell, func() { s.finishReveal(a) })
	return true
}

func (s *QuizSession) finishReveal(a *attempt) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current != a || s.state != StateRevealing {
		return
	}
	a.timer = nil
	a.index++
	s.loadQuestionLocked()
}

func (s *QuizSession) loadQuestionLocked() {
	a := s.current
	total := len(a.questions)
	if a.index >= total {
		s.state = StateFinished
		s.renderer.RenderResults(domain.ComputeResult(a.score, total))
		s.router.Show(ViewResults)
		return
	}

	q := a.questions[a.index]
	a.selected = -1
	s.state = StateAnswering

	label := AdvanceNext
	if a.index == total-1 {
		label = AdvanceFinish
	}
	s.renderer.RenderQuestion(QuestionFrame{
		QuizTitle:    a.title,
		Number:       a.index + 1,
		Total:        total,
		Text:         q.Text,
		Options:      q.Options,
		AdvanceLabel: label,
	})
}

// Leave discards the current attempt, cancels a pending reveal and drops the
// result of a load still in flight.
func (s *QuizSession) Leave() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.discardLocked()
	s.generation++
	s.state = StateIdle
}

func (s *QuizSession) discardLocked() {
	if s.current != nil && s.current.timer != nil {
		s.current.timer.Stop()
		s.current.timer = nil
	}
	s.current = nil
}

// Status reports the current attempt.
func (s *QuizSession) Status() SessionStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := SessionStatus{State: s.state, QuizID: s.lastQuizID, Selected: -1}
	if a := s.current; a != nil {
		st.QuizID = a.quizID
		st.Index = a.index
		st.Score = a.score
		st.Total = len(a.questions)
		st.Selected = a.selected
	}
	return st
}
