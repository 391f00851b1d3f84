package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/keito-ux/advent-calendar-bolt/internal/domain/model"
	"github.com/keito-ux/advent-calendar-bolt/internal/services/profiles"
)

type ProfileRepo struct {
	pool *pgxpool.Pool
}

func NewProfileRepo(pool *pgxpool.Pool) *ProfileRepo {
	return &ProfileRepo{pool: pool}
}

const profileColumns = `id, username, email, COALESCE(avatar_url, ''), created_at, updated_at`

func scanProfile(row pgx.Row) (model.Profile, error) {
	var p model.Profile
	err := row.Scan(&p.ID, &p.Username, &p.Email, &p.AvatarURL, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

func (r *ProfileRepo) GetProfile(ctx context.Context, id uuid.UUID) (model.Profile, error) {
	if r.pool == nil {
		return model.Profile{}, fmt.Errorf("postgres pool is nil")
	}

	p, err := scanProfile(r.pool.QueryRow(ctx, `
SELECT `+profileColumns+`
FROM profiles
WHERE id = $1
`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Profile{}, profiles.ErrNotFound
		}
		return model.Profile{}, fmt.Errorf("get profile: %w", err)
	}
	return p, nil
}

// UpdateProfile applies the non-nil patch fields. An empty avatar URL clears
// the avatar.
func (r *ProfileRepo) UpdateProfile(ctx context.Context, id uuid.UUID, patch profiles.Patch) (model.Profile, error) {
	if r.pool == nil {
		return model.Profile{}, fmt.Errorf("postgres pool is nil")
	}

	p, err := scanProfile(r.pool.QueryRow(ctx, `
UPDATE profiles SET
	username = COALESCE($2, username),
	avatar_url = CASE WHEN $3::boolean THEN NULLIF($4, '') ELSE avatar_url END,
	updated_at = NOW()
WHERE id = $1
RETURNING `+profileColumns+`
`, id, patch.Username, patch.AvatarURL != nil, derefString(patch.AvatarURL)))
	if err != nil {
		switch {
		case errors.Is(err, pgx.ErrNoRows):
			return model.Profile{}, profiles.ErrNotFound
		case isUniqueViolation(err, "profiles_username_lower_idx"):
			return model.Profile{}, profiles.ErrUsernameTaken
		default:
			return model.Profile{}, fmt.Errorf("update profile: %w", err)
		}
	}
	return p, nil
}

// SearchCreators matches a username substring, an exact email, or an id
// prefix among users owning at least one public calendar.
func (r *ProfileRepo) SearchCreators(ctx context.Context, q profiles.SearchQuery) ([]model.Profile, error) {
	if r.pool == nil {
		return nil, fmt.Errorf("postgres pool is nil")
	}

	text := strings.TrimSpace(q.Text)
	rows, err := r.pool.Query(ctx, `
SELECT `+profileColumns+`
FROM profiles p
WHERE EXISTS (
	SELECT 1 FROM calendars c WHERE c.creator_id = p.id AND c.is_public
)
AND (
	$1::text = ''
	OR p.username ILIKE '%' || $2::text || '%'
	OR LOWER(p.email) = LOWER($1::text)
	OR p.id::text LIKE LOWER($2::text) || '%'
)
ORDER BY p.username ASC
LIMIT $3
`, text, escapeLike(text), q.Limit)
	if err != nil {
		return nil, fmt.Errorf("search creators: %w", err)
	}
	defer rows.Close()

	out := make([]model.Profile, 0, q.Limit)
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, fmt.Errorf("scan creator: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate creators: %w", err)
	}
	return out, nil
}

func derefString(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}

func escapeLike(v string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(v)
}
