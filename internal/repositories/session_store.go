package repositories

import "context"

// SessionStore persists server-side sessions. A session maps an opaque
// token to the owning user's email; nothing else is cached in the
// token, so role changes take effect on the next request.
//
// Flash notices are read-once messages tied to a session, used for the
// redirect-then-notice flow of the admin screens.
type SessionStore interface {
	// Create stores a new session for the email and returns its token.
	Create(ctx context.Context, email string) (string, error)
	// Get resolves a token to the session's email. Returns ErrNotFound
	// for unknown or expired tokens.
	Get(ctx context.Context, token string) (string, error)
	Delete(ctx context.Context, token string) error

	SetFlash(ctx context.Context, token, message string) error
	// Flash returns the pending notice and clears it. Returns
	// ErrNotFound when no notice is pending.
	Flash(ctx context.Context, token string) (string, error)
}
