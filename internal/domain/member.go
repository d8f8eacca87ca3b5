package domain

import (
	"context"
	"errors"
	"strings"
	"time"
)

// Member roles.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// Sentinel errors for member operations.
var (
	ErrMemberNotFound = errors.New("member not found")
	ErrInvalidRole    = errors.New("role must be \"user\" or \"admin\"")
	ErrInvalidEmail   = errors.New("invalid email format")
)

// Member is the single persisted entity: one record per known attendee or admin.
// The ID is either the identity provider's stable subject id or, for records
// created before the person's first sign-in, an email-derived key (see
// EncodeEmailKey). A pre-registration record is retired (ConsumedAt set) once
// its role has been merged into a subject-id record.
// swagger:model Member
type Member struct {
	ID              string     `json:"id"`
	Email           string     `json:"email"`
	Name            string     `json:"name"`
	AvatarURL       string     `json:"avatar_url"`
	Role            string     `json:"role"`
	CreatedAt       time.Time  `json:"created_at"`
	LastLoginAt     time.Time  `json:"last_login_at"`
	CheckedIn       bool       `json:"checked_in"`
	CheckedInAt     *time.Time `json:"checked_in_at"`
	IsPreRegistered bool       `json:"is_pre_registered"`
	ConsumedAt      *time.Time `json:"consumed_at,omitempty"`
}

// MemberPatch is a partial update of a member record. Only non-nil fields are
// written; the rest of the record is left untouched.
type MemberPatch struct {
	Email       *string
	Name        *string
	AvatarURL   *string
	Role        *string
	LastLoginAt *time.Time
	CheckedIn   *bool
	CheckedInAt *time.Time
	ConsumedAt  *time.Time
}

// EncodeEmailKey turns an email address into the storage key used for
// pre-registration records: "@" becomes "_at_" and every "." becomes "_".
// The transform is deterministic so the same email always maps to the same key.
func EncodeEmailKey(email string) string {
	key := strings.Replace(email, "@", "_at_", 1)
	return strings.ReplaceAll(key, ".", "_")
}

// ValidRole reports whether role is one of the defined member roles.
func ValidRole(role string) bool {
	return role == RoleUser || role == RoleAdmin
}

// MemberRepository defines the interface for member storage. Implementations
// are keyed by the member ID string and must return ErrMemberNotFound (possibly
// wrapped) when a key is absent.
type MemberRepository interface {
	// Get fetches the record at the given key.
	Get(ctx context.Context, id string) (*Member, error)
	// Put creates or fully overwrites the record at m.ID.
	Put(ctx context.Context, m *Member) error
	// Patch applies a partial update to an existing record.
	Patch(ctx context.Context, id string, patch MemberPatch) error
	// ListAll returns every record. No pagination: the backend returns the
	// full set per call.
	ListAll(ctx context.Context) ([]*Member, error)
}

// RosterStats are the summary counters shown on the admin dashboard.
// swagger:model RosterStats
type RosterStats struct {
	Total              int `json:"total"`
	CheckedIn          int `json:"checked_in"`
	Pending            int `json:"pending"`
	CheckInRatePercent int `json:"check_in_rate_percent"`
}

// RosterService defines the admin-facing roster operations.
type RosterService interface {
	// ListAll returns the live roster. Retired pre-registration records are
	// excluded so the list holds one entry per person.
	ListAll(ctx context.Context) ([]*Member, error)
	// CheckIn marks the member as checked in. Calling it on an
	// already-checked-in member is not an error; the timestamp is re-stamped.
	CheckIn(ctx context.Context, id string) (*Member, error)
	// UpdateRole changes a member's role. This is the only operation that
	// changes a role after the record exists.
	UpdateRole(ctx context.Context, id, role string) (*Member, error)
	// PreRegister creates an email-keyed record ahead of the person's first
	// sign-in, optionally with the admin role.
	PreRegister(ctx context.Context, email, name, role string) (*Member, error)
}
