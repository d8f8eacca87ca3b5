package postgres

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"eventcheckin/internal/domain"
)

func memberRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "email", "name", "avatar_url", "role",
		"created_at", "last_login_at", "checked_in", "checked_in_at",
		"is_pre_registered", "consumed_at",
	})
}

func TestMemberRepository_Get(t *testing.T) {
	ctx := context.Background()
	created := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		id      string
		mock    func(mock sqlmock.Sqlmock)
		wantErr bool
		errIs   error
	}{
		{
			name: "success",
			id:   "uid1",
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`SELECT (.+) FROM members`).
					WithArgs("uid1").
					WillReturnRows(memberRows().AddRow(
						"uid1", "alice@x.com", "Alice", "", domain.RoleAdmin,
						created, created, false, nil, false, nil,
					))
			},
		},
		{
			name: "pre-registered record has no last login",
			id:   "bob_at_x_com",
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`SELECT (.+) FROM members`).
					WithArgs("bob_at_x_com").
					WillReturnRows(memberRows().AddRow(
						"bob_at_x_com", "bob@x.com", "Bob", "", domain.RoleUser,
						created, nil, false, nil, true, nil,
					))
			},
		},
		{
			name: "not found",
			id:   "ghost",
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`SELECT (.+) FROM members`).
					WithArgs("ghost").
					WillReturnError(sql.ErrNoRows)
			},
			wantErr: true,
			errIs:   domain.ErrMemberNotFound,
		},
		{
			name: "db error",
			id:   "uid1",
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`SELECT (.+) FROM members`).
					WillReturnError(sql.ErrConnDone)
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock, err := sqlmock.New()
			require.NoError(t, err)
			defer db.Close()

			tt.mock(mock)
			repo := NewMemberRepository(db)
			m, err := repo.Get(ctx, tt.id)
			if tt.wantErr {
				require.Error(t, err)
				if tt.errIs != nil {
					require.ErrorIs(t, err, tt.errIs)
				}
			} else {
				require.NoError(t, err)
				require.Equal(t, tt.id, m.ID)
			}
			require.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestMemberRepository_Get_MapsNullLastLogin(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	created := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	mock.ExpectQuery(`SELECT (.+) FROM members`).
		WithArgs("bob_at_x_com").
		WillReturnRows(memberRows().AddRow(
			"bob_at_x_com", "bob@x.com", "Bob", "", domain.RoleUser,
			created, nil, false, nil, true, nil,
		))

	repo := NewMemberRepository(db)
	m, err := repo.Get(context.Background(), "bob_at_x_com")
	require.NoError(t, err)
	require.True(t, m.LastLoginAt.IsZero())
	require.True(t, m.IsPreRegistered)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMemberRepository_Put(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		member  *domain.Member
		mock    func(mock sqlmock.Sqlmock)
		wantErr bool
	}{
		{
			name: "insert new member",
			member: &domain.Member{
				ID: "uid1", Email: "alice@x.com", Name: "Alice",
				Role: domain.RoleUser, CreatedAt: now, LastLoginAt: now,
			},
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec(`INSERT INTO members`).
					WithArgs("uid1", "alice@x.com", "Alice", "", domain.RoleUser,
						now, sql.NullTime{Time: now, Valid: true}, false, nil, false, nil).
					WillReturnResult(sqlmock.NewResult(0, 1))
			},
		},
		{
			name: "pre-registration stores null last login",
			member: &domain.Member{
				ID: "bob_at_x_com", Email: "bob@x.com", Name: "Bob",
				Role: domain.RoleAdmin, CreatedAt: now, IsPreRegistered: true,
			},
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec(`INSERT INTO members`).
					WithArgs("bob_at_x_com", "bob@x.com", "Bob", "", domain.RoleAdmin,
						now, sql.NullTime{}, false, nil, true, nil).
					WillReturnResult(sqlmock.NewResult(0, 1))
			},
		},
		{
			name:   "db error",
			member: &domain.Member{ID: "uid1", CreatedAt: now},
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec(`INSERT INTO members`).
					WillReturnError(sql.ErrConnDone)
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock, err := sqlmock.New()
			require.NoError(t, err)
			defer db.Close()

			tt.mock(mock)
			repo := NewMemberRepository(db)
			err = repo.Put(ctx, tt.member)
			if tt.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}
			require.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestMemberRepository_Patch(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	checkedIn := true

	tests := []struct {
		name    string
		id      string
		patch   domain.MemberPatch
		mock    func(mock sqlmock.Sqlmock)
		wantErr bool
		errIs   error
	}{
		{
			name:  "check-in patch",
			id:    "uid1",
			patch: domain.MemberPatch{CheckedIn: &checkedIn, CheckedInAt: &now},
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec(`UPDATE members SET checked_in = \$1, checked_in_at = \$2 WHERE id = \$3`).
					WithArgs(true, now, "uid1").
					WillReturnResult(sqlmock.NewResult(0, 1))
			},
		},
		{
			name:  "last login patch",
			id:    "uid1",
			patch: domain.MemberPatch{LastLoginAt: &now},
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec(`UPDATE members SET last_login_at = \$1 WHERE id = \$2`).
					WithArgs(now, "uid1").
					WillReturnResult(sqlmock.NewResult(0, 1))
			},
		},
		{
			name:  "empty patch is a no-op",
			id:    "uid1",
			patch: domain.MemberPatch{},
			mock:  func(mock sqlmock.Sqlmock) {},
		},
		{
			name:  "not found zero rows affected",
			id:    "ghost",
			patch: domain.MemberPatch{LastLoginAt: &now},
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec(`UPDATE members SET last_login_at = \$1 WHERE id = \$2`).
					WithArgs(now, "ghost").
					WillReturnResult(sqlmock.NewResult(0, 0))
			},
			wantErr: true,
			errIs:   domain.ErrMemberNotFound,
		},
		{
			name:  "db error",
			id:    "uid1",
			patch: domain.MemberPatch{LastLoginAt: &now},
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec(`UPDATE members`).
					WillReturnError(sql.ErrConnDone)
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock, err := sqlmock.New()
			require.NoError(t, err)
			defer db.Close()

			tt.mock(mock)
			repo := NewMemberRepository(db)
			err = repo.Patch(ctx, tt.id, tt.patch)
			if tt.wantErr {
				require.Error(t, err)
				if tt.errIs != nil {
					require.ErrorIs(t, err, tt.errIs)
				}
			} else {
				require.NoError(t, err)
			}
			require.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestMemberRepository_ListAll(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	created := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	consumed := created.Add(time.Hour)
	mock.ExpectQuery(`SELECT (.+) FROM members ORDER BY created_at, id`).
		WillReturnRows(memberRows().
			AddRow("uid1", "alice@x.com", "Alice", "", domain.RoleAdmin, created, created, true, consumed, false, nil).
			AddRow("bob_at_x_com", "bob@x.com", "Bob", "", domain.RoleUser, created, nil, false, nil, true, consumed))

	repo := NewMemberRepository(db)
	members, err := repo.ListAll(context.Background())
	require.NoError(t, err)
	require.Len(t, members, 2)
	require.Equal(t, "uid1", members[0].ID)
	require.NotNil(t, members[0].CheckedInAt)
	require.NotNil(t, members[1].ConsumedAt)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMemberRepository_ListAll_Error(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`SELECT (.+) FROM members`).
		WillReturnError(sql.ErrConnDone)

	repo := NewMemberRepository(db)
	_, err = repo.ListAll(context.Background())
	require.Error(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}
