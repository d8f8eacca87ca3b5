package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eventcheckin/internal/domain"
)

func TestMemberRepository_PutGetPatch(t *testing.T) {
	ctx := context.Background()
	repo := NewMemberRepository()
	now := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

	_, err := repo.Get(ctx, "uid1")
	require.ErrorIs(t, err, domain.ErrMemberNotFound)

	require.NoError(t, repo.Put(ctx, &domain.Member{
		ID: "uid1", Email: "alice@x.com", Name: "Alice",
		Role: domain.RoleUser, CreatedAt: now, LastLoginAt: now,
	}))

	got, err := repo.Get(ctx, "uid1")
	require.NoError(t, err)
	assert.Equal(t, "alice@x.com", got.Email)

	// The returned record is a copy; mutating it must not touch the store.
	got.Name = "Mallory"
	again, err := repo.Get(ctx, "uid1")
	require.NoError(t, err)
	assert.Equal(t, "Alice", again.Name)

	checkedIn := true
	stamp := now.Add(time.Hour)
	require.NoError(t, repo.Patch(ctx, "uid1", domain.MemberPatch{CheckedIn: &checkedIn, CheckedInAt: &stamp}))

	got, err = repo.Get(ctx, "uid1")
	require.NoError(t, err)
	assert.True(t, got.CheckedIn)
	require.NotNil(t, got.CheckedInAt)
	assert.True(t, got.CheckedInAt.Equal(stamp))

	err = repo.Patch(ctx, "ghost", domain.MemberPatch{CheckedIn: &checkedIn})
	require.ErrorIs(t, err, domain.ErrMemberNotFound)
}

func TestMemberRepository_ListAll_Ordering(t *testing.T) {
	ctx := context.Background()
	repo := NewMemberRepository()
	base := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

	require.NoError(t, repo.Put(ctx, &domain.Member{ID: "b", CreatedAt: base}))
	require.NoError(t, repo.Put(ctx, &domain.Member{ID: "a", CreatedAt: base}))
	require.NoError(t, repo.Put(ctx, &domain.Member{ID: "c", CreatedAt: base.Add(-time.Minute)}))

	members, err := repo.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, members, 3)
	assert.Equal(t, "c", members[0].ID)
	assert.Equal(t, "a", members[1].ID)
	assert.Equal(t, "b", members[2].ID)
}

func TestAuthFlowRepository_ConsumeOnce(t *testing.T) {
	ctx := context.Background()
	repo := NewAuthFlowRepository()
	created := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

	require.NoError(t, repo.Create(ctx, &domain.AuthFlow{
		State: "state-1", Status: domain.FlowPending, CreatedAt: created,
	}))

	ok, err := repo.Consume(ctx, "state-1", domain.FlowCompleted, created.Add(time.Minute))
	require.NoError(t, err)
	assert.True(t, ok)

	// A settled flow cannot be consumed again.
	ok, err = repo.Consume(ctx, "state-1", domain.FlowCompleted, created.Add(2*time.Minute))
	require.NoError(t, err)
	assert.False(t, ok)

	flow, err := repo.Get(ctx, "state-1")
	require.NoError(t, err)
	assert.Equal(t, domain.FlowCompleted, flow.Status)
	require.NotNil(t, flow.CompletedAt)

	ok, err = repo.Consume(ctx, "ghost", domain.FlowFailed, created)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestAuthFlowRepository_ExpirePending(t *testing.T) {
	ctx := context.Background()
	repo := NewAuthFlowRepository()
	base := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

	require.NoError(t, repo.Create(ctx, &domain.AuthFlow{State: "old", Status: domain.FlowPending, CreatedAt: base.Add(-time.Hour)}))
	require.NoError(t, repo.Create(ctx, &domain.AuthFlow{State: "fresh", Status: domain.FlowPending, CreatedAt: base}))

	_, err := repo.Consume(ctx, "fresh", domain.FlowCompleted, base.Add(time.Minute))
	require.NoError(t, err)
	require.NoError(t, repo.Create(ctx, &domain.AuthFlow{State: "pending", Status: domain.FlowPending, CreatedAt: base}))

	n, err := repo.ExpirePending(ctx, base.Add(-time.Minute))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	old, err := repo.Get(ctx, "old")
	require.NoError(t, err)
	assert.Equal(t, domain.FlowExpired, old.Status)

	still, err := repo.Get(ctx, "pending")
	require.NoError(t, err)
	assert.Equal(t, domain.FlowPending, still.Status)
}
