package tips

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/keito-ux/advent-calendar-bolt/internal/domain/model"
	"github.com/keito-ux/advent-calendar-bolt/internal/pkg/validate"
)

var (
	ErrInvalidAmount   = errors.New("tip amount must be positive")
	ErrValidation      = errors.New("validation error")
	ErrArtistNotFound  = errors.New("artist not found")
	ErrDependenciesNil = errors.New("tip dependencies are not configured")
)

const (
	maxNameRunes    = 80
	maxMessageRunes = 500
)

type Store interface {
	InsertTip(ctx context.Context, tip model.Tip) (model.Tip, error)
	ListTipsByArtist(ctx context.Context, artistID uuid.UUID) ([]model.Tip, error)
}

type RateLimiter interface {
	Check(ctx context.Context, subject string) error
}

type Observer interface {
	ObserveTip(currency string)
}

type Tracker interface {
	Track(ctx context.Context, userID *uuid.UUID, name string, props map[string]any)
}

type Config struct {
	DefaultCurrency string
	MaxAmountCents  int64
	PresetAmounts   []int64
}

type SendInput struct {
	ArtistID    uuid.UUID
	SceneID     *uuid.UUID
	AmountCents int64
	Currency    string
	TipperName  string
	Message     string
	// ClientKey identifies the sender for rate limiting: a user id when signed
	// in, the client address otherwise.
	ClientKey string
	UserID    *uuid.UUID
}

type Service struct {
	store    Store
	limiter  RateLimiter
	observer Observer
	tracker  Tracker
	cfg      Config
	now      func() time.Time
}

func NewService(store Store, cfg Config) *Service {
	cfg.DefaultCurrency = model.NormalizeCurrency(cfg.DefaultCurrency)
	return &Service{
		store: store,
		cfg:   cfg,
		now:   time.Now,
	}
}

func (s *Service) AttachRateLimiter(limiter RateLimiter) {
	s.limiter = limiter
}

func (s *Service) AttachObserver(observer Observer) {
	s.observer = observer
}

func (s *Service) AttachTracker(tracker Tracker) {
	s.tracker = tracker
}

// Presets returns the suggested tip amounts in minor units.
func (s *Service) Presets() []int64 {
	return append([]int64(nil), s.cfg.PresetAmounts...)
}

func (s *Service) Send(ctx context.Context, in SendInput) (model.Tip, error) {
	if in.AmountCents <= 0 {
		return model.Tip{}, ErrInvalidAmount
	}
	if s.cfg.MaxAmountCents > 0 && in.AmountCents > s.cfg.MaxAmountCents {
		return model.Tip{}, fmt.Errorf("amount above %d: %w", s.cfg.MaxAmountCents, ErrInvalidAmount)
	}
	if in.ArtistID == uuid.Nil {
		return model.Tip{}, ErrArtistNotFound
	}

	name := strings.TrimSpace(in.TipperName)
	message := strings.TrimSpace(in.Message)
	if !validate.MaxRunes(name, maxNameRunes) || !validate.MaxRunes(message, maxMessageRunes) {
		return model.Tip{}, ErrValidation
	}
	if s.store == nil {
		return model.Tip{}, ErrDependenciesNil
	}

	if s.limiter != nil {
		key := strings.TrimSpace(in.ClientKey)
		if key == "" {
			key = "anonymous"
		}
		if err := s.limiter.Check(ctx, key); err != nil {
			return model.Tip{}, err
		}
	}

	currency := s.cfg.DefaultCurrency
	if strings.TrimSpace(in.Currency) != "" {
		currency = model.NormalizeCurrency(in.Currency)
	}

	tip, err := s.store.InsertTip(ctx, model.Tip{
		ID:         uuid.New(),
		ArtistID:   in.ArtistID,
		SceneID:    in.SceneID,
		Amount:     model.NewPrice(in.AmountCents, currency),
		TipperName: optional(name),
		Message:    optional(message),
		CreatedAt:  s.now().UTC(),
	})
	if err != nil {
		if errors.Is(err, ErrArtistNotFound) {
			return model.Tip{}, err
		}
		return model.Tip{}, fmt.Errorf("insert tip: %w", err)
	}

	if s.observer != nil {
		s.observer.ObserveTip(tip.Amount.Currency)
	}
	if s.tracker != nil {
		s.tracker.Track(ctx, in.UserID, "tip_sent", map[string]any{
			"artist_id":    tip.ArtistID.String(),
			"amount_cents": tip.Amount.AmountCents,
			"currency":     tip.Amount.Currency,
		})
	}
	return tip, nil
}

func (s *Service) ListForArtist(ctx context.Context, artistID uuid.UUID) ([]model.Tip, error) {
	if artistID == uuid.Nil {
		return nil, ErrArtistNotFound
	}
	if s.store == nil {
		return nil, ErrDependenciesNil
	}

	tips, err := s.store.ListTipsByArtist(ctx, artistID)
	if err != nil {
		return nil, fmt.Errorf("list tips: %w", err)
	}
	return tips, nil
}

func optional(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}
