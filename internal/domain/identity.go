package domain

import (
	"context"
	"errors"
)

// ErrAuthFailed covers identity-gateway failures: a bad or expired ID token,
// a rejected code exchange, or the provider being unreachable.
var ErrAuthFailed = errors.New("authentication failed")

// Identity is the verified result of a provider sign-in.
type Identity struct {
	SubjectID string
	Email     string
	Name      string
	AvatarURL string
}

// IdentityGateway authenticates a person via the external identity provider.
// AuthCodeURL and Exchange implement the redirect (authorization-code) flow;
// VerifyIDToken covers clients that obtained an ID token themselves.
type IdentityGateway interface {
	AuthCodeURL(state string) string
	Exchange(ctx context.Context, code string) (*Identity, error)
	VerifyIDToken(ctx context.Context, rawToken string) (*Identity, error)
}

// Reconciler merges a successful sign-in into the member store: it creates the
// record on first sign-in (adopting any pre-registered role keyed by email) or
// refreshes profile fields and last-login on a returning one. Sign-in must not
// be reported complete unless Reconcile succeeded.
type Reconciler interface {
	Reconcile(ctx context.Context, ident *Identity) (*Member, error)
}
