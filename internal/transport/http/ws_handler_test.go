package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"quiz-webapp/internal/app"
	"quiz-webapp/internal/auth"
	"quiz-webapp/internal/domain"
	"quiz-webapp/internal/infra/memory"
)

type testServer struct {
	url   string
	store *memory.Store
	auth  *auth.Service
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	store := memory.NewStore()
	svc := auth.NewService(auth.Config{JWTSecret: "test-secret"}, memory.NewTokenStore(), zap.NewNop())
	wsHandler := NewWSHandler(app.Deps{Store: store, Dwell: 10 * time.Millisecond}, svc, zap.NewNop())

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", wsHandler.ServeWS)
	mux.HandleFunc("/auth/google/callback", NewAuthHandler(svc, zap.NewNop()).Callback)
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return &testServer{url: server.URL, store: store, auth: svc}
}

func (s *testServer) dial(t *testing.T, query string) *websocket.Conn {
	t.Helper()
	u := "ws" + strings.TrimPrefix(s.url, "http") + "/ws" + query
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func seed(t *testing.T, store *memory.Store) string {
	t.Helper()
	ctx := context.Background()
	quiz, err := store.CreateQuiz(ctx, domain.QuizSummary{Title: "Algebra I", Subject: "Math"})
	if err != nil {
		t.Fatalf("create quiz: %v", err)
	}
	q, err := domain.NewQuestion("What is 2 + 2?", []string{"2", "3", "4", "5"}, 2)
	if err != nil {
		t.Fatalf("new question: %v", err)
	}
	if _, err := store.AddQuestion(ctx, quiz.ID, q); err != nil {
		t.Fatalf("add question: %v", err)
	}
	return quiz.ID
}

func send(t *testing.T, conn *websocket.Conn, typ string, payload any) {
	t.Helper()
	if err := conn.WriteJSON(map[string]any{"type": typ, "payload": payload}); err != nil {
		t.Fatalf("write %s: %v", typ, err)
	}
}

// readUntil skips frames until one of type expect arrives.
func readUntil(t *testing.T, conn *websocket.Conn, expect string) map[string]any {
	t.Helper()
	return readMatching(t, conn, expect, func(map[string]any) bool { return true })
}

// readMatching skips frames until one of type expect satisfies match.
func readMatching(t *testing.T, conn *websocket.Conn, expect string, match func(map[string]any) bool) map[string]any {
	t.Helper()
	for i := 0; i < 50; i++ {
		var msg struct {
			Type    string          `json:"type"`
			Payload json.RawMessage `json:"payload"`
		}
		_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
		if err := conn.ReadJSON(&msg); err != nil {
			t.Fatalf("read json waiting for %s: %v", expect, err)
		}
		if msg.Type != expect {
			continue
		}
		var payload map[string]any
		if err := json.Unmarshal(msg.Payload, &payload); err != nil {
			t.Fatalf("decode %s payload: %v", expect, err)
		}
		if match(payload) {
			return payload
		}
	}
	t.Fatalf("no %s frame received", expect)
	return nil
}

func TestWebSocketQuizFlow(t *testing.T) {
	srv := newTestServer(t)
	quizID := seed(t, srv.store)
	conn := srv.dial(t, "")

	if auth := readUntil(t, conn, "auth"); auth["signedIn"] != false {
		t.Fatalf("expected signed out, got %v", auth)
	}
	if view := readUntil(t, conn, "view"); view["view"] != string(app.ViewSubjectSelection) {
		t.Fatalf("expected subject selection, got %v", view)
	}

	send(t, conn, "selectSubject", map[string]any{"subject": "Math"})
	chapters := readUntil(t, conn, "chapters")
	if chapters["title"] != "Math Chapters" {
		t.Fatalf("unexpected chapters frame: %v", chapters)
	}
	if quizzes, _ := chapters["quizzes"].([]any); len(quizzes) != 1 {
		t.Fatalf("expected one chapter, got %v", chapters["quizzes"])
	}

	send(t, conn, "startQuiz", map[string]any{"quizId": quizID})
	question := readUntil(t, conn, "question")
	if question["questionText"] != "What is 2 + 2?" || question["advanceLabel"] != app.AdvanceFinish {
		t.Fatalf("unexpected question frame: %v", question)
	}

	send(t, conn, "selectOption", map[string]any{"index": 2})
	readUntil(t, conn, "options")
	send(t, conn, "advance", nil)
	reveal := readUntil(t, conn, "options")
	if marks, _ := reveal["marks"].([]any); len(marks) != 4 || marks[2] != string(app.MarkCorrect) {
		t.Fatalf("unexpected reveal: %v", reveal)
	}

	results := readUntil(t, conn, "results")
	if results["fraction"] != "1/1" || results["percentageText"] != "100%" || results["feedback"] != domain.FeedbackExcellent {
		t.Fatalf("unexpected results: %v", results)
	}
	if view := readUntil(t, conn, "view"); view["view"] != string(app.ViewResults) {
		t.Fatalf("expected results view, got %v", view)
	}
}

func TestWebSocketAdminFlow(t *testing.T) {
	srv := newTestServer(t)
	conn := srv.dial(t, "")
	readUntil(t, conn, "view")

	send(t, conn, "createQuiz", map[string]any{"title": "Cells", "subject": "Science"})
	if e := readUntil(t, conn, "error"); e["message"] != "admin login required" {
		t.Fatalf("unexpected error: %v", e)
	}

	send(t, conn, "adminLogin", map[string]any{"password": "nope"})
	if e := readUntil(t, conn, "loginError"); e["message"] != app.MessageIncorrectPassword {
		t.Fatalf("unexpected login error: %v", e)
	}

	send(t, conn, "adminLogin", map[string]any{"password": "admin"})
	if view := readUntil(t, conn, "view"); view["view"] != string(app.ViewAdminPanel) {
		t.Fatalf("expected admin panel, got %v", view)
	}
	if list := readUntil(t, conn, "adminList"); list["message"] != app.MessageNoQuizzes {
		t.Fatalf("expected empty admin list, got %v", list)
	}

	send(t, conn, "createQuiz", map[string]any{"title": "Cells", "subject": "Science"})
	list := readMatching(t, conn, "adminList", func(p map[string]any) bool {
		quizzes, _ := p["quizzes"].([]any)
		return len(quizzes) == 1
	})
	quizzes := list["quizzes"].([]any)
	quizID, _ := quizzes[0].(map[string]any)["id"].(string)

	send(t, conn, "addQuestion", map[string]any{
		"quizId": quizID, "text": "Powerhouse of the cell?",
		"options": []string{"Nucleus", "", "Ribosome", "Golgi"}, "correctIndex": 1,
	})
	if n := readUntil(t, conn, "notice"); n["message"] != app.NoticeFillAllFields {
		t.Fatalf("unexpected notice: %v", n)
	}

	send(t, conn, "deleteQuiz", map[string]any{"quizId": quizID, "confirmed": true})
	readMatching(t, conn, "adminList", func(p map[string]any) bool {
		return p["message"] == app.MessageNoQuizzes
	})
	if n := srv.store.OrphanedQuestions(); n != 0 {
		t.Fatalf("expected no orphans from a question-less quiz, got %d", n)
	}
}

func TestWebSocketRestoresSessionToken(t *testing.T) {
	srv := newTestServer(t)
	token, err := srv.auth.IssueToken(context.Background(), domain.User{ID: "u1", DisplayName: "Ada"})
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}

	conn := srv.dial(t, "?token="+token)
	got := readUntil(t, conn, "auth")
	if got["signedIn"] != true || got["displayName"] != "Ada" || got["token"] != token {
		t.Fatalf("expected restored session, got %v", got)
	}

	send(t, conn, "signOut", nil)
	if got := readUntil(t, conn, "auth"); got["signedIn"] != false {
		t.Fatalf("expected signed out, got %v", got)
	}
	if _, err := srv.auth.VerifyToken(context.Background(), token); err == nil {
		t.Fatalf("expected token to be revoked")
	}
}

func TestWebSocketRejectsUnknownMessages(t *testing.T) {
	srv := newTestServer(t)
	conn := srv.dial(t, "")
	readUntil(t, conn, "view")

	send(t, conn, "dance", nil)
	if e := readUntil(t, conn, "error"); e["message"] != "unsupported message type" {
		t.Fatalf("unexpected error: %v", e)
	}
	if err := conn.WriteJSON(map[string]any{"type": "selectOption", "payload": "bogus"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	if e := readUntil(t, conn, "error"); e["message"] != "invalid selectOption payload" {
		t.Fatalf("unexpected error: %v", e)
	}
}

func TestAuthCallbackUnknownState(t *testing.T) {
	srv := newTestServer(t)
	resp, err := http.Get(srv.url + "/auth/google/callback?state=nope&code=x")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestStalledClientReleasesHandler(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	title := strings.Repeat("x", 4096)
	for i := 0; i < 200; i++ {
		if _, err := store.CreateQuiz(ctx, domain.QuizSummary{Title: title, Subject: "Math"}); err != nil {
			t.Fatalf("create quiz: %v", err)
		}
	}
	svc := auth.NewService(auth.Config{JWTSecret: "test-secret"}, memory.NewTokenStore(), zap.NewNop())
	wsHandler := NewWSHandler(app.Deps{Store: store}, svc, zap.NewNop())
	wsHandler.writeWait = 100 * time.Millisecond

	finished := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer close(finished)
		wsHandler.ServeWS(w, r)
	}))
	defer server.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(server.URL, "http"), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	// every frame asks for the full catalog; nothing is ever read back
	for i := 0; i < 400; i++ {
		_ = conn.SetWriteDeadline(time.Now().Add(time.Second))
		if err := conn.WriteJSON(map[string]any{"type": "show", "payload": map[string]any{"view": "home"}}); err != nil {
			break
		}
	}
	time.Sleep(300 * time.Millisecond)
	conn.Close()

	select {
	case <-finished:
	case <-time.After(5 * time.Second):
		t.Fatalf("handler still running after the client went away")
	}
}
