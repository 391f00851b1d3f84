package redis

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/keito-ux/advent-calendar-bolt/internal/domain/enums"
	authsvc "github.com/keito-ux/advent-calendar-bolt/internal/services/auth"
)

const (
	sessionPrefix      = "advent:session:"
	refreshPrefix      = "advent:refresh:"
	userSessionsPrefix = "advent:user_sessions:"
)

// SessionRepo stores login sessions. Refresh tokens are only kept as SHA-256
// digests; a leaked keyspace does not yield usable tokens.
type SessionRepo struct {
	client *goredis.Client
}

type storedSession struct {
	UserID      uuid.UUID  `json:"user_id"`
	Role        enums.Role `json:"role"`
	ExpiresAt   int64      `json:"expires_at"`
	RefreshHash string     `json:"refresh_hash"`
}

func NewSessionRepo(client *goredis.Client) *SessionRepo {
	return &SessionRepo{client: client}
}

func (r *SessionRepo) Create(ctx context.Context, session authsvc.SessionRecord, refreshToken string) error {
	if r.client == nil {
		return fmt.Errorf("redis client is nil")
	}
	if strings.TrimSpace(session.SID) == "" || strings.TrimSpace(refreshToken) == "" || session.UserID == uuid.Nil {
		return authsvc.ErrInvalidInput
	}

	hash := hashRefresh(refreshToken)
	raw, err := encodeSession(session, hash)
	if err != nil {
		return err
	}

	ttl := ttlFor(session.ExpiresAt)
	_, err = r.client.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		pipe.Set(ctx, sessionPrefix+session.SID, raw, ttl)
		pipe.Set(ctx, refreshPrefix+hash, session.SID, ttl)
		pipe.SAdd(ctx, userSessionsKey(session.UserID), session.SID)
		pipe.Expire(ctx, userSessionsKey(session.UserID), ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("create redis session: %w", err)
	}
	return nil
}

func (r *SessionRepo) GetSession(ctx context.Context, sid string) (authsvc.SessionRecord, error) {
	if r.client == nil {
		return authsvc.SessionRecord{}, fmt.Errorf("redis client is nil")
	}
	stored, err := r.loadSession(ctx, r.client, sid)
	if err != nil {
		return authsvc.SessionRecord{}, err
	}
	return stored.record(sid), nil
}

func (r *SessionRepo) GetByRefreshToken(ctx context.Context, refreshToken string) (authsvc.SessionRecord, error) {
	if r.client == nil {
		return authsvc.SessionRecord{}, fmt.Errorf("redis client is nil")
	}
	sid, stored, err := r.resolveRefresh(ctx, r.client, hashRefresh(refreshToken))
	if err != nil {
		return authsvc.SessionRecord{}, err
	}
	return stored.record(sid), nil
}

// RotateRefresh swaps the refresh token of a session. Concurrent rotations of
// the same token race on WATCH and only one of them wins.
func (r *SessionRepo) RotateRefresh(ctx context.Context, sid, oldRefreshToken, newRefreshToken string, expiresAt time.Time) error {
	if r.client == nil {
		return fmt.Errorf("redis client is nil")
	}
	if strings.TrimSpace(newRefreshToken) == "" {
		return authsvc.ErrInvalidInput
	}

	oldHash := hashRefresh(oldRefreshToken)
	newHash := hashRefresh(newRefreshToken)

	err := r.client.Watch(ctx, func(tx *goredis.Tx) error {
		currentSID, stored, err := r.resolveRefresh(ctx, tx, oldHash)
		if err != nil {
			return err
		}
		if sid != "" && sid != currentSID {
			return authsvc.ErrRefreshNotFound
		}

		stored.ExpiresAt = expiresAt.Unix()
		stored.RefreshHash = newHash
		raw, err := json.Marshal(stored)
		if err != nil {
			return fmt.Errorf("encode session: %w", err)
		}

		ttl := ttlFor(expiresAt)
		_, err = tx.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
			pipe.Del(ctx, refreshPrefix+oldHash)
			pipe.Set(ctx, refreshPrefix+newHash, currentSID, ttl)
			pipe.Set(ctx, sessionPrefix+currentSID, raw, ttl)
			pipe.Expire(ctx, userSessionsKey(stored.UserID), ttl)
			return nil
		})
		return err
	}, refreshPrefix+oldHash)

	switch {
	case err == nil:
		return nil
	case errors.Is(err, goredis.TxFailedErr):
		return authsvc.ErrRefreshNotFound
	case errors.Is(err, authsvc.ErrRefreshNotFound):
		return err
	default:
		return fmt.Errorf("rotate refresh token: %w", err)
	}
}

func (r *SessionRepo) DeleteSession(ctx context.Context, sid string) error {
	if r.client == nil {
		return fmt.Errorf("redis client is nil")
	}
	sid = strings.TrimSpace(sid)
	if sid == "" {
		return nil
	}

	stored, err := r.loadSession(ctx, r.client, sid)
	if errors.Is(err, authsvc.ErrSessionNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	_, err = r.client.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		pipe.Del(ctx, sessionPrefix+sid)
		if stored.RefreshHash != "" {
			pipe.Del(ctx, refreshPrefix+stored.RefreshHash)
		}
		pipe.SRem(ctx, userSessionsKey(stored.UserID), sid)
		return nil
	})
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

func (r *SessionRepo) DeleteAllForUser(ctx context.Context, userID uuid.UUID) error {
	if r.client == nil {
		return fmt.Errorf("redis client is nil")
	}
	if userID == uuid.Nil {
		return authsvc.ErrInvalidInput
	}

	sids, err := r.client.SMembers(ctx, userSessionsKey(userID)).Result()
	if err != nil {
		return fmt.Errorf("list user sessions: %w", err)
	}
	for _, sid := range sids {
		if err := r.DeleteSession(ctx, sid); err != nil {
			return err
		}
	}

	if err := r.client.Del(ctx, userSessionsKey(userID)).Err(); err != nil {
		return fmt.Errorf("delete user sessions key: %w", err)
	}
	return nil
}

func (r *SessionRepo) loadSession(ctx context.Context, c goredis.Cmdable, sid string) (storedSession, error) {
	raw, err := c.Get(ctx, sessionPrefix+sid).Bytes()
	if errors.Is(err, goredis.Nil) {
		return storedSession{}, authsvc.ErrSessionNotFound
	}
	if err != nil {
		return storedSession{}, fmt.Errorf("get session: %w", err)
	}

	var stored storedSession
	if err := json.Unmarshal(raw, &stored); err != nil || stored.UserID == uuid.Nil {
		return storedSession{}, authsvc.ErrUnauthorized
	}
	return stored, nil
}

func (r *SessionRepo) resolveRefresh(ctx context.Context, c goredis.Cmdable, hash string) (string, storedSession, error) {
	sid, err := c.Get(ctx, refreshPrefix+hash).Result()
	if errors.Is(err, goredis.Nil) {
		return "", storedSession{}, authsvc.ErrRefreshNotFound
	}
	if err != nil {
		return "", storedSession{}, fmt.Errorf("get refresh token: %w", err)
	}

	stored, err := r.loadSession(ctx, c, sid)
	if errors.Is(err, authsvc.ErrSessionNotFound) {
		return "", storedSession{}, authsvc.ErrRefreshNotFound
	}
	if err != nil {
		return "", storedSession{}, err
	}
	if stored.RefreshHash != hash {
		return "", storedSession{}, authsvc.ErrRefreshNotFound
	}
	return sid, stored, nil
}

func encodeSession(session authsvc.SessionRecord, refreshHash string) ([]byte, error) {
	raw, err := json.Marshal(storedSession{
		UserID:      session.UserID,
		Role:        session.Role,
		ExpiresAt:   session.ExpiresAt.Unix(),
		RefreshHash: refreshHash,
	})
	if err != nil {
		return nil, fmt.Errorf("encode session: %w", err)
	}
	return raw, nil
}

func (s storedSession) record(sid string) authsvc.SessionRecord {
	return authsvc.SessionRecord{
		SID:       sid,
		UserID:    s.UserID,
		Role:      s.Role,
		ExpiresAt: time.Unix(s.ExpiresAt, 0).UTC(),
	}
}

func hashRefresh(token string) string {
	sum := sha256.Sum256([]byte(strings.TrimSpace(token)))
	return hex.EncodeToString(sum[:])
}

func ttlFor(expiresAt time.Time) time.Duration {
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return time.Second
	}
	return ttl
}

func userSessionsKey(userID uuid.UUID) string {
	return userSessionsPrefix + userID.String()
}
