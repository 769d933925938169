package app

import "quiz-webapp/internal/domain"

// ListKind names the list area a ListFrame targets.
type ListKind string

const (
	ListCatalog  ListKind = "catalog"
	ListChapters ListKind = "chapters"
	ListAdmin    ListKind = "admin"
)

// OptionMark is the visual state of one answer option.
type OptionMark string

const (
	MarkNone      OptionMark = ""
	MarkSelected  OptionMark = "selected"
	MarkCorrect   OptionMark = "correct"
	MarkIncorrect OptionMark = "incorrect"
)

const (
	AdvanceNext   = "Next"
	AdvanceFinish = "Finish"
)

// Form names used by ResetForm.
const (
	FormCreateQuiz  = "createQuiz"
	FormAddQuestion = "addQuestion"
)

// ListFrame is a full render of one list area. Message replaces the list when set.
type ListFrame struct {
	Kind    ListKind             `json:"kind"`
	Title   string               `json:"title,omitempty"`
	Subject string               `json:"subject,omitempty"`
	Quizzes []domain.QuizSummary `json:"quizzes"`
	Message string               `json:"message,omitempty"`
	Error   bool                 `json:"error,omitempty"`
}

// AuthFrame drives the mutually exclusive logged-in and logged-out regions.
type AuthFrame struct {
	SignedIn    bool   `json:"signedIn"`
	DisplayName string `json:"displayName"`
}

// QuestionFrame renders the current question with its options unmarked.
type QuestionFrame struct {
	QuizTitle      string                     `json:"quizTitle"`
	Number         int                        `json:"number"`
	Total          int                        `json:"total"`
	Text           string                     `json:"questionText"`
	Options        [domain.OptionCount]string `json:"options"`
	AdvanceLabel   string                     `json:"advanceLabel"`
	AdvanceEnabled bool                       `json:"advanceEnabled"`
}

// OptionsFrame updates option marks and control state for the current question.
type OptionsFrame struct {
	Marks          [domain.OptionCount]OptionMark `json:"marks"`
	Locked         bool                           `json:"locked"`
	AdvanceEnabled bool                           `json:"advanceEnabled"`
}

// Renderer is the view surface. Implementations must be safe for concurrent use and
// must not call back into the components.
type Renderer interface {
	ShowView(view View)
	RenderAuth(frame AuthFrame)
	RenderList(frame ListFrame)
	RenderQuestion(frame QuestionFrame)
	RenderOptions(frame OptionsFrame)
	RenderResults(result domain.Result)
	RenderLoginError(message string)
	ResetForm(form, quizID string)
	Notice(message string)
}
