package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
)

const pendingTOTPPrefix = "advent:totp_pending:"

// TOTPRepo keeps unconfirmed admin TOTP secrets until they expire.
type TOTPRepo struct {
	client *goredis.Client
}

func NewTOTPRepo(client *goredis.Client) *TOTPRepo {
	return &TOTPRepo{client: client}
}

func (r *TOTPRepo) SetPendingTOTP(ctx context.Context, userID uuid.UUID, secret string, ttl time.Duration) error {
	if r.client == nil {
		return fmt.Errorf("redis client is nil")
	}
	if err := r.client.Set(ctx, pendingTOTPKey(userID), secret, ttl).Err(); err != nil {
		return fmt.Errorf("set pending totp: %w", err)
	}
	return nil
}

func (r *TOTPRepo) GetPendingTOTP(ctx context.Context, userID uuid.UUID) (string, bool, error) {
	if r.client == nil {
		return "", false, fmt.Errorf("redis client is nil")
	}
	secret, err := r.client.Get(ctx, pendingTOTPKey(userID)).Result()
	if err != nil {
		if err == goredis.Nil {
			return "", false, nil
		}
		return "", false, fmt.Errorf("get pending totp: %w", err)
	}
	return secret, true, nil
}

func (r *TOTPRepo) DeletePendingTOTP(ctx context.Context, userID uuid.UUID) error {
	if r.client == nil {
		return fmt.Errorf("redis client is nil")
	}
	if err := r.client.Del(ctx, pendingTOTPKey(userID)).Err(); err != nil {
		return fmt.Errorf("delete pending totp: %w", err)
	}
	return nil
}

func pendingTOTPKey(userID uuid.UUID) string {
	return pendingTOTPPrefix + userID.String()
}
