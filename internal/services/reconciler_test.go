package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eventcheckin/internal/domain"
	"eventcheckin/internal/repository/memory"
)

// failingMemberRepo wraps the memory repo and fails selected operations.
type failingMemberRepo struct {
	*memory.MemberRepository
	putErr error
	getErr error
}

func (f *failingMemberRepo) Put(ctx context.Context, m *domain.Member) error {
	if f.putErr != nil {
		return f.putErr
	}
	return f.MemberRepository.Put(ctx, m)
}

func (f *failingMemberRepo) Get(ctx context.Context, id string) (*domain.Member, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	return f.MemberRepository.Get(ctx, id)
}

func TestReconciler_FirstSignIn_NoPreRegistration(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewMemberRepository()
	rec := NewReconciler(repo)

	before := time.Now()
	member, err := rec.Reconcile(ctx, &domain.Identity{
		SubjectID: "uid2",
		Email:     "b@x.com",
		Name:      "Bob",
		AvatarURL: "https://img.test/bob.png",
	})
	require.NoError(t, err)

	assert.Equal(t, "uid2", member.ID)
	assert.Equal(t, domain.RoleUser, member.Role)
	assert.False(t, member.CheckedIn)
	assert.Nil(t, member.CheckedInAt)
	assert.False(t, member.IsPreRegistered)
	assert.Equal(t, "b@x.com", member.Email)
	assert.Equal(t, "Bob", member.Name)
	assert.WithinRange(t, member.CreatedAt, before, time.Now())
	assert.Equal(t, member.CreatedAt, member.LastLoginAt)

	stored, err := repo.Get(ctx, "uid2")
	require.NoError(t, err)
	assert.Equal(t, domain.RoleUser, stored.Role)
}

func TestReconciler_FirstSignIn_PreRegisteredAdmin(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewMemberRepository()
	emailKey := domain.EncodeEmailKey("a@x.com")
	require.NoError(t, repo.Put(ctx, &domain.Member{
		ID:              emailKey,
		Email:           "a@x.com",
		Name:            "Alice",
		Role:            domain.RoleAdmin,
		CreatedAt:       time.Now().Add(-24 * time.Hour),
		IsPreRegistered: true,
	}))

	rec := NewReconciler(repo)
	member, err := rec.Reconcile(ctx, &domain.Identity{
		SubjectID: "uid1",
		Email:     "a@x.com",
		Name:      "Alice",
	})
	require.NoError(t, err)

	assert.Equal(t, "uid1", member.ID)
	assert.Equal(t, domain.RoleAdmin, member.Role)
	assert.False(t, member.CheckedIn)

	// The email-keyed record is retired, not deleted.
	pre, err := repo.Get(ctx, emailKey)
	require.NoError(t, err)
	assert.True(t, pre.IsPreRegistered)
	require.NotNil(t, pre.ConsumedAt)
}

func TestReconciler_FirstSignIn_PreRegistrationWithoutRole(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewMemberRepository()
	emailKey := domain.EncodeEmailKey("c@x.com")
	require.NoError(t, repo.Put(ctx, &domain.Member{
		ID:              emailKey,
		Email:           "c@x.com",
		IsPreRegistered: true,
	}))

	rec := NewReconciler(repo)
	member, err := rec.Reconcile(ctx, &domain.Identity{SubjectID: "uid3", Email: "c@x.com"})
	require.NoError(t, err)
	assert.Equal(t, domain.RoleUser, member.Role)
}

func TestReconciler_ReturningSignIn(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name       string
		ident      *domain.Identity
		wantName   string
		wantAvatar string
	}{
		{
			name:       "provider values refresh stored fields",
			ident:      &domain.Identity{SubjectID: "uid1", Email: "a@x.com", Name: "Alice B", AvatarURL: "https://img.test/new.png"},
			wantName:   "Alice B",
			wantAvatar: "https://img.test/new.png",
		},
		{
			name:       "empty provider values never overwrite stored ones",
			ident:      &domain.Identity{SubjectID: "uid1", Email: "a@x.com"},
			wantName:   "Alice",
			wantAvatar: "https://img.test/old.png",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := memory.NewMemberRepository()
			previousLogin := time.Now().Add(-time.Hour)
			require.NoError(t, repo.Put(ctx, &domain.Member{
				ID:          "uid1",
				Email:       "a@x.com",
				Name:        "Alice",
				AvatarURL:   "https://img.test/old.png",
				Role:        domain.RoleAdmin,
				CreatedAt:   time.Now().Add(-48 * time.Hour),
				LastLoginAt: previousLogin,
			}))

			rec := NewReconciler(repo)
			member, err := rec.Reconcile(ctx, tt.ident)
			require.NoError(t, err)

			assert.Equal(t, tt.wantName, member.Name)
			assert.Equal(t, tt.wantAvatar, member.AvatarURL)
			assert.True(t, member.LastLoginAt.After(previousLogin), "last login must never decrease")
			// Role is never changed on the returning path.
			assert.Equal(t, domain.RoleAdmin, member.Role)

			stored, err := repo.Get(ctx, "uid1")
			require.NoError(t, err)
			assert.Equal(t, tt.wantName, stored.Name)
			assert.Equal(t, tt.wantAvatar, stored.AvatarURL)
		})
	}
}

func TestReconciler_Failures(t *testing.T) {
	ctx := context.Background()

	t.Run("missing subject id", func(t *testing.T) {
		rec := NewReconciler(memory.NewMemberRepository())
		_, err := rec.Reconcile(ctx, &domain.Identity{Email: "a@x.com"})
		require.ErrorIs(t, err, domain.ErrAuthFailed)
	})

	t.Run("store write failure fails the sign-in", func(t *testing.T) {
		repo := &failingMemberRepo{
			MemberRepository: memory.NewMemberRepository(),
			putErr:           errors.New("write refused"),
		}
		rec := NewReconciler(repo)
		_, err := rec.Reconcile(ctx, &domain.Identity{SubjectID: "uid9", Email: "z@x.com"})
		require.Error(t, err)
	})

	t.Run("store read failure fails the sign-in", func(t *testing.T) {
		repo := &failingMemberRepo{
			MemberRepository: memory.NewMemberRepository(),
			getErr:           errors.New("store unreachable"),
		}
		rec := NewReconciler(repo)
		_, err := rec.Reconcile(ctx, &domain.Identity{SubjectID: "uid9", Email: "z@x.com"})
		require.Error(t, err)
	})
}

func TestEncodeEmailKey(t *testing.T) {
	assert.Equal(t, "a_at_x_com", domain.EncodeEmailKey("a@x.com"))
	assert.Equal(t, "first_last_at_sub_example_org", domain.EncodeEmailKey("first.last@sub.example.org"))
	// Deterministic: same input, same key.
	assert.Equal(t, domain.EncodeEmailKey("a@x.com"), domain.EncodeEmailKey("a@x.com"))
}
