package domain

import (
	"context"
	"errors"
	"time"
)

// Sentinel errors for the sign-in lifecycle.
var (
	ErrFlowNotFound = errors.New("sign-in flow not found or already completed")
	ErrFlowExpired  = errors.New("sign-in flow expired")
)

// AuthFlowStatus is the lifecycle state of a redirect sign-in flow. A flow is
// single-use: it leaves FlowPending exactly once.
type AuthFlowStatus string

const (
	FlowPending   AuthFlowStatus = "pending"
	FlowCompleted AuthFlowStatus = "completed"
	FlowFailed    AuthFlowStatus = "failed"
	FlowExpired   AuthFlowStatus = "expired"
)

// AuthFlow is the persisted half of a redirect sign-in: created when the
// client is sent to the identity provider, resolved when the provider calls
// back. Because it lives in the store, a flow survives a process restart.
type AuthFlow struct {
	State       string
	Status      AuthFlowStatus
	CreatedAt   time.Time
	CompletedAt *time.Time
}

// AuthFlowRepository defines storage for redirect sign-in flows.
type AuthFlowRepository interface {
	Create(ctx context.Context, flow *AuthFlow) error
	Get(ctx context.Context, state string) (*AuthFlow, error)
	// Consume moves a pending flow to a terminal status. It returns false if
	// the flow was not pending, which closes the duplicate-completion race.
	Consume(ctx context.Context, state string, status AuthFlowStatus, completedAt time.Time) (bool, error)
	// ExpirePending marks every pending flow created before cutoff as expired
	// and returns how many were affected.
	ExpirePending(ctx context.Context, cutoff time.Time) (int64, error)
}

// TokenIssuer issues session tokens for a signed-in member.
type TokenIssuer interface {
	Issue(memberID, email, role string, expiry time.Duration) (string, error)
}

// SessionClaims are the verified contents of a session token.
type SessionClaims struct {
	MemberID string
	Email    string
	Role     string
}

// TokenVerifier verifies a session token and returns its claims.
type TokenVerifier interface {
	Verify(token string) (*SessionClaims, error)
}

// SignInResult is returned to the client once sign-in has fully completed,
// meaning the identity was verified and the member record was written.
type SignInResult struct {
	Token  string  `json:"token"`
	Member *Member `json:"member"`
}

// SessionService owns the signed-out -> authenticating -> signed-in lifecycle.
type SessionService interface {
	// BeginSignIn starts a redirect flow and returns the state nonce and the
	// provider authorize URL to send the client to.
	BeginSignIn(ctx context.Context) (state, authURL string, err error)
	// CompleteSignIn finishes a redirect flow with the provider callback
	// parameters. Any failure leaves the caller signed out and is returned,
	// never swallowed.
	CompleteSignIn(ctx context.Context, state, code string) (*SignInResult, error)
	// SignInWithIDToken is the one-shot path for clients that already hold a
	// provider ID token.
	SignInWithIDToken(ctx context.Context, rawToken string) (*SignInResult, error)
	// ResumeIfPending must be called once at startup. It settles flows left
	// pending by an earlier process and is a no-op when there are none.
	ResumeIfPending(ctx context.Context) error
	// SignOut ends the member's session.
	SignOut(ctx context.Context, memberID string) error
	// WhoAmI returns the signed-in member, role read fresh from the store.
	WhoAmI(ctx context.Context, memberID string) (*Member, error)
}
