package app

import (
	"context"
	"time"

	"go.uber.org/zap"

	"quiz-webapp/internal/domain"
)

// Deps carries what a client needs from the process.
type Deps struct {
	Store         Store
	Identity      IdentityProvider
	Scheduler     Scheduler
	Dwell         time.Duration
	AdminPassword string
	CatalogQuery  domain.CatalogQuery
	Logger        *zap.Logger
}

// Client is one connected browser: it owns its own router, gate, catalog, quiz
// session and admin panel.
type Client struct {
	Router  *Router
	Gate    *Gate
	Catalog *Catalog
	Session *QuizSession
	Admin   *AdminPanel
}

func NewClient(deps Deps, renderer Renderer) *Client {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	router := NewRouter(DefaultViews, renderer.ShowView)
	session := NewQuizSession(deps.Store, router, renderer, deps.Scheduler, deps.Dwell, logger)
	return &Client{
		Router:  router,
		Gate:    NewGate(deps.Identity, renderer, logger),
		Catalog: NewCatalog(deps.Store, router, renderer, session, deps.CatalogQuery, logger),
		Session: session,
		Admin:   NewAdminPanel(deps.Store, router, renderer, deps.AdminPassword, logger),
	}
}

// Start initializes the gate and the catalog independently and shows subject
// selection. A catalog subscription failure is rendered, not fatal.
func (c *Client) Start(ctx context.Context) error {
	c.Gate.Start()
	err := c.Catalog.Start(ctx)
	c.Router.Show(ViewSubjectSelection)
	return err
}

// Close releases subscriptions and pending timers.
func (c *Client) Close() {
	c.Session.Leave()
	c.Catalog.Stop()
	c.Gate.Stop()
}

// Navigate switches views on user request. Leaving the quiz or results view
// discards the running attempt; the admin panel stays behind the login.
func (c *Client) Navigate(view View) {
	if view != ViewQuiz && view != ViewResults {
		c.Session.Leave()
	}
	switch view {
	case ViewAdminPanel:
		if !c.Admin.Unlocked() {
			c.Router.Show(ViewAdminLogin)
			return
		}
		c.Router.Show(view)
		c.Catalog.RenderAdminList()
	case ViewHome:
		c.Router.Show(view)
		c.Catalog.RenderCatalog()
	case ViewChapterSelection:
		c.Router.Show(view)
		c.Catalog.RenderChapters()
	default:
		c.Router.Show(view)
	}
}

// AdminLogin checks the shared secret and shows the admin list on success.
func (c *Client) AdminLogin(password string) bool {
	if !c.Admin.Login(password) {
		return false
	}
	c.Session.Leave()
	c.Catalog.RenderAdminList()
	return true
}

// AdminLogout locks the panel.
func (c *Client) AdminLogout() {
	c.Admin.Logout()
}
