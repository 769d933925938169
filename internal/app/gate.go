package app

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"quiz-webapp/internal/domain"
)

// Gate mirrors the identity provider's auth state into the logged-in and
// logged-out regions. It does not restrict any other component.
type Gate struct {
	provider IdentityProvider
	renderer Renderer
	logger   *zap.Logger

	once        sync.Once
	mu          sync.RWMutex
	user        *domain.User
	unsubscribe func()
}

func NewGate(provider IdentityProvider, renderer Renderer, logger *zap.Logger) *Gate {
	return &Gate{provider: provider, renderer: renderer, logger: logger.Named("gate")}
}

// Start subscribes to auth state changes. Later calls are no-ops.
func (g *Gate) Start() {
	g.once.Do(func() {
		unsubscribe := g.provider.OnAuthStateChanged(g.onAuthState)
		g.mu.Lock()
		g.unsubscribe = unsubscribe
		g.mu.Unlock()
	})
}

// Stop drops the auth subscription.
func (g *Gate) Stop() {
	g.mu.Lock()
	unsubscribe := g.unsubscribe
	g.unsubscribe = nil
	g.mu.Unlock()
	if unsubscribe != nil {
		unsubscribe()
	}
}

func (g *Gate) onAuthState(user *domain.User) {
	g.mu.Lock()
	if user != nil {
		u := *user
		g.user = &u
	} else {
		g.user = nil
	}
	g.mu.Unlock()

	frame := AuthFrame{}
	if user != nil {
		frame = AuthFrame{SignedIn: true, DisplayName: user.DisplayName}
	}
	g.renderer.RenderAuth(frame)
}

// SignIn runs the provider's popup flow. Failures are only logged.
func (g *Gate) SignIn(ctx context.Context) {
	if err := g.provider.SignIn(ctx); err != nil {
		g.logger.Error("sign-in failed", zap.Error(err))
	}
}

// SignOut delegates to the provider. Failures are only logged.
func (g *Gate) SignOut(ctx context.Context) {
	if err := g.provider.SignOut(ctx); err != nil {
		g.logger.Error("sign-out failed", zap.Error(err))
	}
}

func (g *Gate) SignedIn() bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.user != nil
}

func (g *Gate) DisplayName() string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if g.user == nil {
		return ""
	}
	return g.user.DisplayName
}
