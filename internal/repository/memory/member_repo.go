package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"eventcheckin/internal/domain"
)

// MemberRepository is a map-backed MemberRepository. It is used as the dev
// store backend and keeps the same key semantics as the postgres adapter.
// Safe for concurrent use.
type MemberRepository struct {
	mu   sync.RWMutex
	byID map[string]*domain.Member
}

// NewMemberRepository returns an empty in-memory member store.
func NewMemberRepository() *MemberRepository {
	return &MemberRepository{byID: make(map[string]*domain.Member)}
}

func cloneMember(m *domain.Member) *domain.Member {
	cp := *m
	return &cp
}

func (r *MemberRepository) Get(ctx context.Context, id string) (*domain.Member, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.byID[id]
	if !ok {
		return nil, domain.ErrMemberNotFound
	}
	return cloneMember(m), nil
}

func (r *MemberRepository) Put(ctx context.Context, m *domain.Member) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[m.ID] = cloneMember(m)
	return nil
}

func (r *MemberRepository) Patch(ctx context.Context, id string, patch domain.MemberPatch) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.byID[id]
	if !ok {
		return domain.ErrMemberNotFound
	}
	if patch.Email != nil {
		m.Email = *patch.Email
	}
	if patch.Name != nil {
		m.Name = *patch.Name
	}
	if patch.AvatarURL != nil {
		m.AvatarURL = *patch.AvatarURL
	}
	if patch.Role != nil {
		m.Role = *patch.Role
	}
	if patch.LastLoginAt != nil {
		m.LastLoginAt = *patch.LastLoginAt
	}
	if patch.CheckedIn != nil {
		m.CheckedIn = *patch.CheckedIn
	}
	if patch.CheckedInAt != nil {
		t := *patch.CheckedInAt
		m.CheckedInAt = &t
	}
	if patch.ConsumedAt != nil {
		t := *patch.ConsumedAt
		m.ConsumedAt = &t
	}
	return nil
}

func (r *MemberRepository) ListAll(ctx context.Context) ([]*domain.Member, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	members := make([]*domain.Member, 0, len(r.byID))
	for _, m := range r.byID {
		members = append(members, cloneMember(m))
	}
	// Same ordering as the postgres adapter.
	sort.Slice(members, func(i, j int) bool {
		if !members[i].CreatedAt.Equal(members[j].CreatedAt) {
			return members[i].CreatedAt.Before(members[j].CreatedAt)
		}
		return members[i].ID < members[j].ID
	})
	return members, nil
}

// AuthFlowRepository is a map-backed AuthFlowRepository for the dev store
// backend. Safe for concurrent use.
type AuthFlowRepository struct {
	mu      sync.Mutex
	byState map[string]*domain.AuthFlow
}

// NewAuthFlowRepository returns an empty in-memory flow store.
func NewAuthFlowRepository() *AuthFlowRepository {
	return &AuthFlowRepository{byState: make(map[string]*domain.AuthFlow)}
}

func (r *AuthFlowRepository) Create(ctx context.Context, flow *domain.AuthFlow) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *flow
	r.byState[flow.State] = &cp
	return nil
}

func (r *AuthFlowRepository) Get(ctx context.Context, state string) (*domain.AuthFlow, error) {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	f, ok := r.byState[state]
	if !ok {
		return nil, domain.ErrFlowNotFound
	}
	cp := *f
	return &cp, nil
}

func (r *AuthFlowRepository) Consume(ctx context.Context, state string, status domain.AuthFlowStatus, completedAt time.Time) (bool, error) {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	f, ok := r.byState[state]
	if !ok || f.Status != domain.FlowPending {
		return false, nil
	}
	f.Status = status
	t := completedAt
	f.CompletedAt = &t
	return true, nil
}

func (r *AuthFlowRepository) ExpirePending(ctx context.Context, cutoff time.Time) (int64, error) {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, f := range r.byState {
		if f.Status == domain.FlowPending && f.CreatedAt.Before(cutoff) {
			f.Status = domain.FlowExpired
			n++
		}
	}
	return n, nil
}
