package domain

import "errors"

var (
	// ErrQuizNotFound indicates the quiz record no longer exists in the store.
	ErrQuizNotFound = errors.New("quiz not found")
	// ErrEmptyTitle is returned when a quiz title is blank after trimming.
	ErrEmptyTitle = errors.New("quiz title is empty")
	// ErrInvalidQuestion wraps every question validation failure.
	ErrInvalidQuestion = errors.New("invalid question")
	// ErrAdminLocked is returned when authoring is attempted before the admin login succeeded.
	ErrAdminLocked = errors.New("admin panel is locked")
	// ErrProviderNotConfigured indicates federated sign-in has no client credentials.
	ErrProviderNotConfigured = errors.New("identity provider not configured")
	// ErrAuthStateMismatch is returned when an OAuth callback carries an unknown state.
	ErrAuthStateMismatch = errors.New("unknown or expired sign-in state")
	// ErrTokenInvalid is returned for session tokens that fail verification or were revoked.
	ErrTokenInvalid = errors.New("session token invalid")
)
