package auth

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"quiz-webapp/internal/domain"
)

// Provider is one client's view of the identity service. It satisfies
// app.IdentityProvider.
type Provider struct {
	svc   *Service
	popup func(url string)

	// notifyMu keeps listener calls in the order of the state changes.
	notifyMu  sync.Mutex
	mu        sync.Mutex
	user      *domain.User
	token     string
	listeners map[int]func(*domain.User)
	nextID    int
}

// NewProvider binds a client to the service; popup is called with the consent URL
// the client has to open.
func (s *Service) NewProvider(popup func(url string)) *Provider {
	return &Provider{svc: s, popup: popup, listeners: make(map[int]func(*domain.User))}
}

// SignIn opens the popup and waits until its callback completes, ctx ends or the
// popup times out.
func (p *Provider) SignIn(ctx context.Context) error {
	state, url, wait, err := p.svc.begin()
	if err != nil {
		return err
	}
	p.popup(url)

	timer := time.NewTimer(p.svc.popupTimeout)
	defer timer.Stop()

	var res popupResult
	select {
	case res = <-wait:
	case <-ctx.Done():
		p.svc.cancel(state)
		return ctx.Err()
	case <-timer.C:
		p.svc.cancel(state)
		return context.DeadlineExceeded
	}
	if res.err != nil {
		return res.err
	}

	token, err := p.svc.IssueToken(ctx, res.user)
	if err != nil {
		return err
	}
	p.set(&res.user, token)
	return nil
}

// SignOut revokes the session token and reports the signed-out state.
func (p *Provider) SignOut(ctx context.Context) error {
	p.mu.Lock()
	token := p.token
	p.mu.Unlock()

	var err error
	if token != "" {
		err = p.svc.RevokeToken(ctx, token)
	}
	p.set(nil, "")
	return err
}

// Restore signs the client in from a previously issued session token.
func (p *Provider) Restore(ctx context.Context, token string) error {
	user, err := p.svc.VerifyToken(ctx, token)
	if err != nil {
		return err
	}
	p.set(&user, token)
	return nil
}

// Token returns the current session token, empty when signed out.
func (p *Provider) Token() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.token
}

func (p *Provider) OnAuthStateChanged(fn func(*domain.User)) func() {
	p.notifyMu.Lock()
	defer p.notifyMu.Unlock()

	p.mu.Lock()
	id := p.nextID
	p.nextID++
	p.listeners[id] = fn
	current := p.user
	p.mu.Unlock()

	fn(current)

	return func() {
		p.mu.Lock()
		delete(p.listeners, id)
		p.mu.Unlock()
	}
}

func (p *Provider) set(user *domain.User, token string) {
	p.notifyMu.Lock()
	defer p.notifyMu.Unlock()

	p.mu.Lock()
	p.user = user
	p.token = token
	listeners := make([]func(*domain.User), 0, len(p.listeners))
	for _, fn := range p.listeners {
		listeners = append(listeners, fn)
	}
	p.mu.Unlock()

	if user != nil {
		p.svc.logger.Debug("auth state changed", zap.String("userID", user.ID))
	}
	for _, fn := range listeners {
		fn(user)
	}
}
