package app

import "sync"

// View identifies one top-level screen.
type View string

const (
	ViewNone             View = ""
	ViewSubjectSelection View = "subject-selection"
	ViewChapterSelection View = "chapter-selection"
	ViewHome             View = "home"
	ViewQuiz             View = "quiz"
	ViewResults          View = "results"
	ViewAdminLogin       View = "admin-login"
	ViewAdminPanel       View = "admin-panel"
)

// DefaultViews is the fixed set of views registered by a client.
var DefaultViews = []View{
	ViewSubjectSelection,
	ViewChapterSelection,
	ViewHome,
	ViewQuiz,
	ViewResults,
	ViewAdminLogin,
	ViewAdminPanel,
}

// Router keeps exactly one active view among the registered ones. Any view is
// reachable from any other.
type Router struct {
	// notifyMu orders onChange calls the same way as the state changes.
	notifyMu sync.Mutex
	mu       sync.RWMutex
	views    map[View]struct{}
	active   View
	onChange func(View)
}

func NewRouter(views []View, onChange func(View)) *Router {
	r := &Router{views: make(map[View]struct{}, len(views)), onChange: onChange}
	for _, v := range views {
		r.views[v] = struct{}{}
	}
	return r
}

// Show activates view and deactivates every other one. An unregistered view
// leaves no view active.
func (r *Router) Show(view View) {
	r.notifyMu.Lock()
	defer r.notifyMu.Unlock()

	r.mu.Lock()
	if _, ok := r.views[view]; ok {
		r.active = view
	} else {
		r.active = ViewNone
	}
	active := r.active
	r.mu.Unlock()

	if r.onChange != nil {
		r.onChange(active)
	}
}

func (r *Router) Active() View {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.active
}

func (r *Router) IsActive(view View) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return view != ViewNone && r.active == view
}
