package analytics

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	defaultMaxBatchSize = 100
	maxNameLength       = 64
)

const (
	EventPurchaseCompleted = "purchase_completed"
	EventTipSent           = "tip_sent"
	EventCalendarCreated   = "calendar_created"
	EventSceneUnlocked     = "scene_unlocked"
)

var ErrValidation = errors.New("validation error")

// Event is one analytics row ready for storage.
type Event struct {
	Name       string
	OccurredAt time.Time
	Props      map[string]any
}

type Store interface {
	InsertBatch(ctx context.Context, userID *uuid.UUID, events []Event) error
}

type Config struct {
	MaxBatchSize int
}

type Service struct {
	store  Store
	logger *zap.Logger
	cfg    Config
	now    func() time.Time
}

type BatchEvent struct {
	Name  string
	TS    int64
	Props map[string]any
}

func NewService(store Store, logger *zap.Logger, cfg Config) *Service {
	if cfg.MaxBatchSize <= 0 {
		cfg.MaxBatchSize = defaultMaxBatchSize
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Service{
		store:  store,
		logger: logger,
		cfg:    cfg,
		now:    time.Now,
	}
}

// IngestBatch stores client-reported events. Timestamps may be in seconds or
// milliseconds; missing ones default to the receive time.
func (s *Service) IngestBatch(ctx context.Context, userID *uuid.UUID, events []BatchEvent) error {
	if s.store == nil {
		return fmt.Errorf("analytics store is nil")
	}
	if len(events) == 0 || len(events) > s.cfg.MaxBatchSize {
		return ErrValidation
	}

	now := s.now().UTC()
	rows := make([]Event, 0, len(events))
	for _, event := range events {
		name := strings.TrimSpace(event.Name)
		if name == "" || len(name) > maxNameLength {
			return ErrValidation
		}

		rows = append(rows, Event{
			Name:       name,
			OccurredAt: parseTS(event.TS, now),
			Props:      cloneProps(event.Props),
		})
	}

	if err := s.store.InsertBatch(ctx, userID, rows); err != nil {
		return fmt.Errorf("insert events batch: %w", err)
	}

	return nil
}

// Track records a server-side event. Failures are logged and never surface to
// the caller.
func (s *Service) Track(ctx context.Context, userID *uuid.UUID, name string, props map[string]any) {
	if s == nil || s.store == nil {
		return
	}

	event := Event{Name: name, OccurredAt: s.now().UTC(), Props: cloneProps(props)}
	if err := s.store.InsertBatch(ctx, userID, []Event{event}); err != nil {
		s.logger.Warn("track event failed", zap.String("event", name), zap.Error(err))
	}
}

func parseTS(ts int64, fallback time.Time) time.Time {
	if ts <= 0 {
		return fallback
	}
	if ts >= 1_000_000_000_000 {
		return time.UnixMilli(ts).UTC()
	}
	return time.Unix(ts, 0).UTC()
}

func cloneProps(props map[string]any) map[string]any {
	if len(props) == 0 {
		return map[string]any{}
	}
	out := make(map[string]any, len(props))
	for key, value := range props {
		out[key] = value
	}
	return out
}
