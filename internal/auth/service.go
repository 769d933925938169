// Package auth implements federated popup sign-in against Google OAuth2 and the
// signed session tokens that let a reconnecting client restore its user.
package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"quiz-webapp/internal/domain"
)

const (
	defaultUserInfoURL  = "https://www.googleapis.com/oauth2/v2/userinfo"
	defaultSessionTTL   = 24 * time.Hour
	defaultPopupTimeout = 5 * time.Minute
	tokenIssuer         = "quiz-webapp"
)

// TokenStore persists signed-in sessions by token id.
type TokenStore interface {
	Save(ctx context.Context, tokenID string, user domain.User, ttl time.Duration) error
	Load(ctx context.Context, tokenID string) (domain.User, error)
	Delete(ctx context.Context, tokenID string) error
}

type Config struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	// AuthURL, TokenURL and UserInfoURL default to Google's endpoints.
	AuthURL      string
	TokenURL     string
	UserInfoURL  string
	JWTSecret    string
	SessionTTL   time.Duration
	PopupTimeout time.Duration
}

// Service runs the server side of the popup flow. A client begins a sign-in,
// opens the returned URL in a popup, and the OAuth callback completes it.
type Service struct {
	oauth        *oauth2.Config
	userInfoURL  string
	secret       []byte
	sessionTTL   time.Duration
	popupTimeout time.Duration
	tokens       TokenStore
	logger       *zap.Logger
	now          func() time.Time

	mu      sync.Mutex
	pending map[string]chan popupResult
}

type popupResult struct {
	user domain.User
	err  error
}

type googleUserInfo struct {
	ID      string `json:"id"`
	Email   string `json:"email"`
	Name    string `json:"name"`
	Picture string `json:"picture"`
}

type sessionClaims struct {
	Name string `json:"name"`
	jwt.RegisteredClaims
}

func NewService(cfg Config, tokens TokenStore, logger *zap.Logger) *Service {
	endpoint := google.Endpoint
	if cfg.AuthURL != "" {
		endpoint.AuthURL = cfg.AuthURL
	}
	if cfg.TokenURL != "" {
		endpoint.TokenURL = cfg.TokenURL
	}
	userInfoURL := cfg.UserInfoURL
	if userInfoURL == "" {
		userInfoURL = defaultUserInfoURL
	}
	sessionTTL := cfg.SessionTTL
	if sessionTTL <= 0 {
		sessionTTL = defaultSessionTTL
	}
	popupTimeout := cfg.PopupTimeout
	if popupTimeout <= 0 {
		popupTimeout = defaultPopupTimeout
	}
	return &Service{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes: []string{
				"https://www.googleapis.com/auth/userinfo.email",
				"https://www.googleapis.com/auth/userinfo.profile",
			},
			Endpoint: endpoint,
		},
		userInfoURL:  userInfoURL,
		secret:       []byte(cfg.JWTSecret),
		sessionTTL:   sessionTTL,
		popupTimeout: popupTimeout,
		tokens:       tokens,
		logger:       logger.Named("auth"),
		now:          time.Now,
		pending:      make(map[string]chan popupResult),
	}
}

// Configured reports whether client credentials and a signing secret are present.
func (s *Service) Configured() bool {
	return s.oauth.ClientID != "" && s.oauth.ClientSecret != "" && len(s.secret) > 0
}

// begin registers a pending popup and returns its state and consent URL.
func (s *Service) begin() (string, string, <-chan popupResult, error) {
	if !s.Configured() {
		return "", "", nil, domain.ErrProviderNotConfigured
	}
	state, err := randomState()
	if err != nil {
		return "", "", nil, err
	}
	ch := make(chan popupResult, 1)
	s.mu.Lock()
	s.pending[state] = ch
	s.mu.Unlock()
	return state, s.oauth.AuthCodeURL(state), ch, nil
}

func (s *Service) cancel(state string) {
	s.mu.Lock()
	delete(s.pending, state)
	s.mu.Unlock()
}

// Decline ends the popup identified by state with the provider's error.
func (s *Service) Decline(state, reason string) {
	s.mu.Lock()
	waiter, ok := s.pending[state]
	delete(s.pending, state)
	s.mu.Unlock()
	if ok {
		waiter <- popupResult{err: fmt.Errorf("sign-in declined: %s", reason)}
	}
}

// Complete finishes the popup identified by state: it exchanges the code, reads
// the user profile and hands the result to the waiting client.
func (s *Service) Complete(ctx context.Context, state, code string) (domain.User, error) {
	s.mu.Lock()
	waiter, ok := s.pending[state]
	delete(s.pending, state)
	s.mu.Unlock()
	if !ok {
		return domain.User{}, domain.ErrAuthStateMismatch
	}

	user, err := s.exchange(ctx, code)
	waiter <- popupResult{user: user, err: err}
	return user, err
}

func (s *Service) exchange(ctx context.Context, code string) (domain.User, error) {
	token, err := s.oauth.Exchange(ctx, code)
	if err != nil {
		return domain.User{}, fmt.Errorf("exchange code: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.userInfoURL, nil)
	if err != nil {
		return domain.User{}, err
	}
	resp, err := s.oauth.Client(ctx, token).Do(req)
	if err != nil {
		return domain.User{}, fmt.Errorf("get user info: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return domain.User{}, fmt.Errorf("get user info: status %d", resp.StatusCode)
	}

	var info googleUserInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return domain.User{}, fmt.Errorf("decode user info: %w", err)
	}
	if info.ID == "" {
		return domain.User{}, fmt.Errorf("user info is incomplete")
	}
	name := info.Name
	if name == "" {
		name = info.Email
	}
	s.logger.Info("user signed in", zap.String("userID", info.ID))
	return domain.User{ID: info.ID, DisplayName: name, Email: info.Email}, nil
}

// IssueToken mints a session token for user and records it in the token store.
func (s *Service) IssueToken(ctx context.Context, user domain.User) (string, error) {
	now := s.now()
	tokenID := domain.NewID()
	claims := sessionClaims{
		Name: user.DisplayName,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        tokenID,
			Issuer:    tokenIssuer,
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.sessionTTL)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign session token: %w", err)
	}
	if err := s.tokens.Save(ctx, tokenID, user, s.sessionTTL); err != nil {
		return "", err
	}
	return signed, nil
}

// VerifyToken checks the signature and that the session was not revoked.
func (s *Service) VerifyToken(ctx context.Context, token string) (domain.User, error) {
	claims, err := s.parse(token)
	if err != nil {
		return domain.User{}, err
	}
	return s.tokens.Load(ctx, claims.ID)
}

// RevokeToken forgets the session behind token.
func (s *Service) RevokeToken(ctx context.Context, token string) error {
	claims, err := s.parse(token)
	if err != nil {
		return err
	}
	return s.tokens.Delete(ctx, claims.ID)
}

func (s *Service) parse(token string) (*sessionClaims, error) {
	if len(s.secret) == 0 {
		return nil, domain.ErrProviderNotConfigured
	}
	claims := &sessionClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrTokenInvalid, err)
	}
	return claims, nil
}

func randomState() (string, error) {
	buf := make([]byte, 24)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate state: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
