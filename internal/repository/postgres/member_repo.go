package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"eventcheckin/internal/domain"
)

type memberRepository struct {
	DB *sql.DB
}

// NewMemberRepository returns a MemberRepository backed by the members table.
func NewMemberRepository(db *sql.DB) domain.MemberRepository {
	return &memberRepository{DB: db}
}

const memberColumns = `id, email, name, avatar_url, role, created_at, last_login_at, checked_in, checked_in_at, is_pre_registered, consumed_at`

func scanMember(row interface{ Scan(dest ...any) error }) (*domain.Member, error) {
	m := &domain.Member{}
	var lastLogin sql.NullTime
	err := row.Scan(
		&m.ID, &m.Email, &m.Name, &m.AvatarURL, &m.Role,
		&m.CreatedAt, &lastLogin, &m.CheckedIn, &m.CheckedInAt,
		&m.IsPreRegistered, &m.ConsumedAt,
	)
	if err != nil {
		return nil, err
	}
	if lastLogin.Valid {
		m.LastLoginAt = lastLogin.Time
	}
	return m, nil
}

func (r *memberRepository) Get(ctx context.Context, id string) (*domain.Member, error) {
	query := `
		SELECT ` + memberColumns + `
		FROM members
		WHERE id = $1
	`
	m, err := scanMember(r.DB.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrMemberNotFound
		}
		return nil, err
	}
	return m, nil
}

func (r *memberRepository) Put(ctx context.Context, m *domain.Member) error {
	query := `
		INSERT INTO members (` + memberColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (id) DO UPDATE SET
			email = EXCLUDED.email,
			name = EXCLUDED.name,
			avatar_url = EXCLUDED.avatar_url,
			role = EXCLUDED.role,
			created_at = EXCLUDED.created_at,
			last_login_at = EXCLUDED.last_login_at,
			checked_in = EXCLUDED.checked_in,
			checked_in_at = EXCLUDED.checked_in_at,
			is_pre_registered = EXCLUDED.is_pre_registered,
			consumed_at = EXCLUDED.consumed_at
	`
	var lastLogin sql.NullTime
	if !m.LastLoginAt.IsZero() {
		lastLogin = sql.NullTime{Time: m.LastLoginAt, Valid: true}
	}
	_, err := r.DB.ExecContext(ctx, query,
		m.ID, m.Email, m.Name, m.AvatarURL, m.Role,
		m.CreatedAt, lastLogin, m.CheckedIn, m.CheckedInAt,
		m.IsPreRegistered, m.ConsumedAt,
	)
	return err
}

func (r *memberRepository) Patch(ctx context.Context, id string, patch domain.MemberPatch) error {
	var (
		sets []string
		args []any
	)
	add := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}
	if patch.Email != nil {
		add("email", *patch.Email)
	}
	if patch.Name != nil {
		add("name", *patch.Name)
	}
	if patch.AvatarURL != nil {
		add("avatar_url", *patch.AvatarURL)
	}
	if patch.Role != nil {
		add("role", *patch.Role)
	}
	if patch.LastLoginAt != nil {
		add("last_login_at", *patch.LastLoginAt)
	}
	if patch.CheckedIn != nil {
		add("checked_in", *patch.CheckedIn)
	}
	if patch.CheckedInAt != nil {
		add("checked_in_at", *patch.CheckedInAt)
	}
	if patch.ConsumedAt != nil {
		add("consumed_at", *patch.ConsumedAt)
	}
	if len(sets) == 0 {
		return nil
	}
	args = append(args, id)
	query := fmt.Sprintf("UPDATE members SET %s WHERE id = $%d", strings.Join(sets, ", "), len(args))
	res, err := r.DB.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return domain.ErrMemberNotFound
	}
	return nil
}

func (r *memberRepository) ListAll(ctx context.Context) ([]*domain.Member, error) {
	query := `
		SELECT ` + memberColumns + `
		FROM members
		ORDER BY created_at, id
	`
	rows, err := r.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var members []*domain.Member
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			return nil, err
		}
		members = append(members, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return members, nil
}
