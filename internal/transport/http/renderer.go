package http

import (
	"quiz-webapp/internal/app"
	"quiz-webapp/internal/domain"
)

type popupPayload struct {
	URL string `json:"url"`
}

type authPayload struct {
	app.AuthFrame
	Token string `json:"token,omitempty"`
}

type resultsPayload struct {
	domain.Result
	Fraction       string `json:"fraction"`
	PercentageText string `json:"percentageText"`
}

type messagePayload struct {
	Message string `json:"message"`
}

type formPayload struct {
	Form   string `json:"form"`
	QuizID string `json:"quizId,omitempty"`
}

// wsRenderer turns component renders into outbound frames.
type wsRenderer struct {
	emit  func(typ string, payload any)
	token func() string
}

func (r *wsRenderer) ShowView(view app.View) {
	r.emit("view", viewPayload{View: view})
}

func (r *wsRenderer) RenderAuth(frame app.AuthFrame) {
	p := authPayload{AuthFrame: frame}
	if frame.SignedIn && r.token != nil {
		p.Token = r.token()
	}
	r.emit("auth", p)
}

func (r *wsRenderer) RenderList(frame app.ListFrame) {
	if frame.Error {
		r.emit("catalogError", messagePayload{Message: frame.Message})
		return
	}
	switch frame.Kind {
	case app.ListChapters:
		r.emit("chapters", frame)
	case app.ListAdmin:
		r.emit("adminList", frame)
	default:
		r.emit("catalog", frame)
	}
}

func (r *wsRenderer) RenderQuestion(frame app.QuestionFrame) {
	r.emit("question", frame)
}

func (r *wsRenderer) RenderOptions(frame app.OptionsFrame) {
	r.emit("options", frame)
}

func (r *wsRenderer) RenderResults(res domain.Result) {
	r.emit("results", resultsPayload{Result: res, Fraction: res.Fraction(), PercentageText: res.PercentageText()})
}

func (r *wsRenderer) RenderLoginError(message string) {
	r.emit("loginError", messagePayload{Message: message})
}

func (r *wsRenderer) ResetForm(form, quizID string) {
	r.emit("formReset", formPayload{Form: form, QuizID: quizID})
}

func (r *wsRenderer) Notice(message string) {
	r.emit("notice", messagePayload{Message: message})
}
