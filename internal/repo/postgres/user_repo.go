package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/keito-ux/advent-calendar-bolt/internal/domain/enums"
	"github.com/keito-ux/advent-calendar-bolt/internal/domain/model"
	authsvc "github.com/keito-ux/advent-calendar-bolt/internal/services/auth"
)

type UserRepo struct {
	pool *pgxpool.Pool
}

func NewUserRepo(pool *pgxpool.Pool) *UserRepo {
	return &UserRepo{pool: pool}
}

// CreateAccount inserts the user and their profile in one transaction.
func (r *UserRepo) CreateAccount(ctx context.Context, user model.User, profile model.Profile) error {
	if r.pool == nil {
		return fmt.Errorf("postgres pool is nil")
	}

	err := WithTx(ctx, r.pool, func(ctx context.Context, tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `
INSERT INTO users (id, email, password_hash, role, created_at)
VALUES ($1, $2, $3, $4, $5)
`, user.ID, user.Email, user.PasswordHash, string(user.Role), user.CreatedAt); err != nil {
			return err
		}

		if _, err := tx.Exec(ctx, `
INSERT INTO profiles (id, username, email, avatar_url, created_at, updated_at)
VALUES ($1, $2, $3, NULLIF($4, ''), $5, $5)
`, profile.ID, profile.Username, profile.Email, profile.AvatarURL, profile.CreatedAt); err != nil {
			return err
		}
		return nil
	})
	switch {
	case err == nil:
		return nil
	case isUniqueViolation(err, "users_email_key"), isUniqueViolation(err, "profiles_email_lower_idx"):
		return authsvc.ErrEmailTaken
	case isUniqueViolation(err, "profiles_username_lower_idx"):
		return authsvc.ErrUsernameTaken
	default:
		return fmt.Errorf("create account: %w", err)
	}
}

func (r *UserRepo) FindUserByEmail(ctx context.Context, email string) (model.User, error) {
	if r.pool == nil {
		return model.User{}, fmt.Errorf("postgres pool is nil")
	}

	var (
		user model.User
		role string
	)
	err := r.pool.QueryRow(ctx, `
SELECT id, email, password_hash, role, created_at
FROM users
WHERE email = $1
`, strings.ToLower(strings.TrimSpace(email))).Scan(&user.ID, &user.Email, &user.PasswordHash, &role, &user.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.User{}, authsvc.ErrUserNotFound
		}
		return model.User{}, fmt.Errorf("find user by email: %w", err)
	}

	user.Role = enums.Role(role)
	if user.Role == "" {
		user.Role = enums.RoleUser
	}
	return user, nil
}

func (r *UserRepo) GetTOTPSecret(ctx context.Context, userID uuid.UUID) (string, error) {
	if r.pool == nil {
		return "", fmt.Errorf("postgres pool is nil")
	}

	var secret *string
	err := r.pool.QueryRow(ctx, `SELECT totp_secret FROM users WHERE id = $1`, userID).Scan(&secret)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", authsvc.ErrUserNotFound
		}
		return "", fmt.Errorf("get totp secret: %w", err)
	}
	if secret == nil {
		return "", nil
	}
	return *secret, nil
}

func (r *UserRepo) SetTOTPSecret(ctx context.Context, userID uuid.UUID, secret string) error {
	if r.pool == nil {
		return fmt.Errorf("postgres pool is nil")
	}

	tag, err := r.pool.Exec(ctx, `UPDATE users SET totp_secret = NULLIF($2, '') WHERE id = $1`, userID, secret)
	if err != nil {
		return fmt.Errorf("set totp secret: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return authsvc.ErrUserNotFound
	}
	return nil
}
