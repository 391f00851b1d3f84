package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/keito-ux/advent-calendar-bolt/internal/domain/model"
)

const sharedCalendarPrefix = "advent:calendar:share:"

// CacheRepo keeps calendar headers keyed by share code. Days and purchases
// are never cached because they drive access decisions.
type CacheRepo struct {
	client *goredis.Client
}

func NewCacheRepo(client *goredis.Client) *CacheRepo {
	return &CacheRepo{client: client}
}

func (r *CacheRepo) GetCalendar(ctx context.Context, shareCode string) (model.Calendar, bool, error) {
	if r.client == nil {
		return model.Calendar{}, false, nil
	}

	raw, err := r.client.Get(ctx, sharedCalendarKey(shareCode)).Bytes()
	if err != nil {
		if err == goredis.Nil {
			return model.Calendar{}, false, nil
		}
		return model.Calendar{}, false, fmt.Errorf("get cached calendar: %w", err)
	}

	var cal model.Calendar
	if err := json.Unmarshal(raw, &cal); err != nil {
		_ = r.client.Del(ctx, sharedCalendarKey(shareCode)).Err()
		return model.Calendar{}, false, nil
	}
	return cal, true, nil
}

func (r *CacheRepo) SetCalendar(ctx context.Context, cal model.Calendar, ttl time.Duration) error {
	if r.client == nil || ttl <= 0 {
		return nil
	}
	if strings.TrimSpace(cal.ShareCode) == "" {
		return fmt.Errorf("calendar share code is empty")
	}

	raw, err := json.Marshal(cal)
	if err != nil {
		return fmt.Errorf("marshal calendar: %w", err)
	}
	if err := r.client.Set(ctx, sharedCalendarKey(cal.ShareCode), raw, ttl).Err(); err != nil {
		return fmt.Errorf("set cached calendar: %w", err)
	}
	return nil
}

func (r *CacheRepo) DeleteCalendar(ctx context.Context, shareCode string) error {
	if r.client == nil {
		return nil
	}
	if err := r.client.Del(ctx, sharedCalendarKey(shareCode)).Err(); err != nil {
		return fmt.Errorf("delete cached calendar: %w", err)
	}
	return nil
}

func sharedCalendarKey(shareCode string) string {
	return sharedCalendarPrefix + strings.TrimSpace(shareCode)
}
