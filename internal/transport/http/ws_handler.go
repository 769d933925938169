package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"quiz-webapp/internal/app"
	"quiz-webapp/internal/auth"
	"quiz-webapp/internal/domain"
)

const defaultWriteWait = 10 * time.Second

// WSHandler hosts one app.Client per websocket connection.
type WSHandler struct {
	deps      app.Deps
	auth      *auth.Service
	upgrader  websocket.Upgrader
	writeWait time.Duration
	logger    *zap.Logger
}

func NewWSHandler(deps app.Deps, authSvc *auth.Service, logger *zap.Logger) *WSHandler {
	deps.Logger = logger
	return &WSHandler{
		deps: deps,
		auth: authSvc,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		writeWait: defaultWriteWait,
		logger:    logger.Named("ws"),
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type viewPayload struct {
	View app.View `json:"view"`
}

type subjectPayload struct {
	Subject string `json:"subject"`
}

type quizPayload struct {
	QuizID    string `json:"quizId"`
	Confirmed bool   `json:"confirmed"`
}

type optionPayload struct {
	Index int `json:"index"`
}

type backPayload struct {
	To string `json:"to"`
}

type passwordPayload struct {
	Password string `json:"password"`
}

type createQuizPayload struct {
	Title   string `json:"title"`
	Subject string `json:"subject"`
}

type addQuestionPayload struct {
	QuizID       string   `json:"quizId"`
	Text         string   `json:"text"`
	Options      []string `json:"options"`
	CorrectIndex int      `json:"correctIndex"`
}

type errorPayload struct {
	Message string `json:"message"`
}

// backTargets maps the navigation buttons of the page to views.
var backTargets = map[string]app.View{
	"subjects":    app.ViewSubjectSelection,
	"chapters":    app.ViewChapterSelection,
	"home":        app.ViewHome,
	"admin-login": app.ViewAdminLogin,
}

// ServeWS upgrades the request and runs a client until the connection closes.
// An optional token query parameter restores a signed-in session.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("ws upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	send := make(chan outboundMessage[any], 64)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})

	go func() {
		defer close(writerDone)
		for {
			select {
			case msg := <-send:
				_ = conn.SetWriteDeadline(time.Now().Add(h.writeWait))
				if err := conn.WriteJSON(msg); err != nil {
					h.logger.Debug("ws write failed", zap.Error(err))
					cancel()
					// unblocks the read loop
					_ = conn.Close()
					return
				}
			case <-closeSignals:
				return
			}
		}
	}()

	// emit drops the frame once the writer is gone or the connection is closing.
	emit := func(typ string, payload any) {
		select {
		case send <- outboundMessage[any]{Type: typ, Payload: payload}:
		case <-writerDone:
		case <-ctx.Done():
		case <-closeSignals:
		}
	}

	renderer := &wsRenderer{emit: emit}
	provider := h.auth.NewProvider(func(url string) {
		emit("popup", popupPayload{URL: url})
	})
	renderer.token = provider.Token

	if token := r.URL.Query().Get("token"); token != "" {
		if err := provider.Restore(ctx, token); err != nil {
			h.logger.Info("session token rejected", zap.Error(err))
		}
	}

	deps := h.deps
	deps.Identity = provider
	client := app.NewClient(deps, renderer)
	if err := client.Start(ctx); err != nil {
		h.logger.Warn("client started without catalog", zap.Error(err))
	}

	var background sync.WaitGroup
	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		if inbound.Type == "signIn" {
			background.Add(1)
			go func() {
				defer background.Done()
				client.Gate.SignIn(ctx)
			}()
			continue
		}
		if err := h.dispatch(ctx, client, inbound); err != nil {
			emit("error", errorPayload{Message: err.Error()})
		}
	}

	cancel()
	background.Wait()
	client.Close()
	close(closeSignals)
	<-writerDone
}

var errUnsupported = errors.New("unsupported message type")

func (h *WSHandler) dispatch(ctx context.Context, client *app.Client, in inboundMessage) error {
	switch in.Type {
	case "show":
		var p viewPayload
		if err := decode(in, &p); err != nil {
			return err
		}
		client.Navigate(p.View)
	case "back":
		var p backPayload
		if err := decode(in, &p); err != nil {
			return err
		}
		view, ok := backTargets[p.To]
		if !ok {
			view = app.View(p.To)
		}
		client.Navigate(view)
	case "signOut":
		client.Gate.SignOut(ctx)
	case "selectSubject":
		var p subjectPayload
		if err := decode(in, &p); err != nil {
			return err
		}
		client.Session.Leave()
		client.Catalog.SelectSubject(p.Subject)
	case "startQuiz":
		var p quizPayload
		if err := decode(in, &p); err != nil {
			return err
		}
		if err := client.Catalog.Select(ctx, p.QuizID); err != nil {
			return errors.New("could not load quiz")
		}
	case "selectOption":
		var p optionPayload
		if err := decode(in, &p); err != nil {
			return err
		}
		client.Session.SelectOption(p.Index)
	case "advance":
		client.Session.Advance()
	case "restart":
		if err := client.Session.Restart(ctx); err != nil {
			return errors.New("could not load quiz")
		}
	case "adminLogin":
		var p passwordPayload
		if err := decode(in, &p); err != nil {
			return err
		}
		client.AdminLogin(p.Password)
	case "adminLogout":
		client.AdminLogout()
	case "createQuiz":
		var p createQuizPayload
		if err := decode(in, &p); err != nil {
			return err
		}
		return adminError(client.Admin.CreateQuiz(ctx, p.Title, p.Subject))
	case "deleteQuiz":
		var p quizPayload
		if err := decode(in, &p); err != nil {
			return err
		}
		return adminError(client.Admin.DeleteQuiz(ctx, p.QuizID, p.Confirmed))
	case "addQuestion":
		var p addQuestionPayload
		if err := decode(in, &p); err != nil {
			return err
		}
		return adminError(client.Admin.AddQuestion(ctx, p.QuizID, p.Text, p.Options, p.CorrectIndex))
	default:
		return errUnsupported
	}
	return nil
}

func decode(in inboundMessage, dst any) error {
	if len(in.Payload) == 0 {
		return nil
	}
	if err := json.Unmarshal(in.Payload, dst); err != nil {
		return errors.New("invalid " + in.Type + " payload")
	}
	return nil
}

// adminError drops the errors the panel already reported to the user.
func adminError(err error) error {
	switch {
	case err == nil,
		errors.Is(err, domain.ErrEmptyTitle),
		errors.Is(err, domain.ErrInvalidQuestion):
		return nil
	case errors.Is(err, domain.ErrAdminLocked):
		return errors.New("admin login required")
	case errors.Is(err, domain.ErrQuizNotFound):
		return errors.New("quiz not found")
	default:
		return errors.New("could not save changes")
	}
}
