package http

import (
	"errors"
	"html/template"
	"net/http"

	"go.uber.org/zap"

	"quiz-webapp/internal/auth"
	"quiz-webapp/internal/domain"
)

// AuthHandler completes the popup sign-in started over a websocket.
type AuthHandler struct {
	auth   *auth.Service
	logger *zap.Logger
}

func NewAuthHandler(svc *auth.Service, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{auth: svc, logger: logger.Named("auth")}
}

var closePopup = template.Must(template.New("popup").Parse(`<!doctype html>
<html><body><p>{{.}}</p><script>window.close()</script></body></html>`))

// Callback is the OAuth redirect target.
func (h *AuthHandler) Callback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if msg := q.Get("error"); msg != "" {
		h.logger.Info("sign-in declined", zap.String("error", msg))
		h.auth.Decline(q.Get("state"), msg)
		h.render(w, http.StatusOK, "Sign-in cancelled.")
		return
	}

	user, err := h.auth.Complete(r.Context(), q.Get("state"), q.Get("code"))
	switch {
	case errors.Is(err, domain.ErrAuthStateMismatch):
		h.render(w, http.StatusBadRequest, "This sign-in request has expired.")
	case err != nil:
		h.logger.Error("sign-in failed", zap.Error(err))
		h.render(w, http.StatusBadGateway, "Sign-in failed.")
	default:
		h.logger.Info("signed in", zap.String("userID", user.ID))
		h.render(w, http.StatusOK, "Signed in as "+user.DisplayName+". You can close this window.")
	}
}

func (h *AuthHandler) render(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_ = closePopup.Execute(w, msg)
}
