package purchases

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/keito-ux/advent-calendar-bolt/internal/domain/enums"
	"github.com/keito-ux/advent-calendar-bolt/internal/domain/model"
	"github.com/keito-ux/advent-calendar-bolt/internal/domain/rules"
)

const (
	ScopeCalendar = "calendar"
	ScopeDay      = "day"

	resultCompleted = "completed"
	resultRejected  = "rejected"
	resultFailed    = "failed"
)

var (
	ErrValidation      = errors.New("validation error")
	ErrUnauthorized    = errors.New("purchase requires a signed-in viewer")
	ErrSelfPurchase    = errors.New("creators cannot buy their own calendar")
	ErrDayNotFound     = errors.New("calendar day not found")
	ErrDayLocked       = errors.New("calendar day has not opened yet")
	ErrPersistence     = errors.New("purchase was not recorded")
	ErrDependenciesNil = errors.New("purchase dependencies are not configured")
)

type Store interface {
	InsertPurchase(ctx context.Context, rec model.PurchaseRecord) (model.PurchaseRecord, error)
	ListCompletedByUser(ctx context.Context, userID uuid.UUID) ([]model.PurchaseRecord, error)
}

type CalendarSource interface {
	GetByShareCode(ctx context.Context, shareCode string) (model.Calendar, error)
	Day(ctx context.Context, calendarID uuid.UUID, dayNumber int) (*model.CalendarDay, error)
}

type RateLimiter interface {
	Check(ctx context.Context, subject string) error
}

type Observer interface {
	ObservePurchase(scope, result, currency string, amountCents int64)
}

type Tracker interface {
	Track(ctx context.Context, userID *uuid.UUID, name string, props map[string]any)
}

type Service struct {
	store     Store
	calendars CalendarSource
	limiter   RateLimiter
	observer  Observer
	tracker   Tracker
	policy    rules.UnlockPolicy
	now       func() time.Time
}

// NewService evaluates day purchases against policy, the same temporal gate
// the shared calendar view applies.
func NewService(store Store, calendars CalendarSource, policy rules.UnlockPolicy) *Service {
	return &Service{
		store:     store,
		calendars: calendars,
		policy:    policy,
		now:       time.Now,
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

// RecordPurchase appends one completed record. Nothing is granted unless the
// write succeeds, and repeat purchases of the same target are allowed.
func (s *Service) RecordPurchase(ctx context.Context, viewerID uuid.UUID, cal model.Calendar, dayNumber *int, amount model.Price) (model.PurchaseRecord, error) {
	scope := scopeOf(dayNumber)
	if viewerID == uuid.Nil {
		return model.PurchaseRecord{}, ErrUnauthorized
	}
	if err := rules.ValidatePurchaseAmount(amount); err != nil {
		s.observe(scope, resultRejected, amount)
		return model.PurchaseRecord{}, err
	}
	if dayNumber != nil {
		if err := rules.ValidateDayNumber(*dayNumber); err != nil {
			return model.PurchaseRecord{}, err
		}
	}
	if s.store == nil {
		return model.PurchaseRecord{}, ErrDependenciesNil
	}

	rec := model.PurchaseRecord{
		ID:            uuid.New(),
		UserID:        viewerID,
		CalendarID:    cal.ID,
		DayNumber:     copyDay(dayNumber),
		Amount:        model.NewPrice(amount.AmountCents, amount.Currency),
		Status:        enums.PurchaseStatusCompleted,
		PaymentMethod: enums.PaymentMethodSimulated,
		CreatedAt:     s.now().UTC(),
	}

	saved, err := s.store.InsertPurchase(ctx, rec)
	if err != nil {
		s.observe(scope, resultFailed, rec.Amount)
		return model.PurchaseRecord{}, fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	s.observe(scope, resultCompleted, saved.Amount)
	if s.tracker != nil {
		props := map[string]any{
			"calendar_id":  saved.CalendarID.String(),
			"amount_cents": saved.Amount.AmountCents,
			"currency":     saved.Amount.Currency,
		}
		if saved.DayNumber != nil {
			props["day_number"] = *saved.DayNumber
		}
		s.tracker.Track(ctx, &viewerID, "purchase_completed", props)
	}

	return saved, nil
}

// Purchase buys a whole calendar (nil dayNumber) or one day at the price
// stored server-side. A whole calendar can be bought at any time; a single
// day only once it has opened.
func (s *Service) Purchase(ctx context.Context, viewerID uuid.UUID, shareCode string, dayNumber *int) (model.PurchaseRecord, error) {
	if viewerID == uuid.Nil {
		return model.PurchaseRecord{}, ErrUnauthorized
	}
	if s.calendars == nil {
		return model.PurchaseRecord{}, ErrDependenciesNil
	}
	if s.limiter != nil {
		if err := s.limiter.Check(ctx, viewerID.String()); err != nil {
			return model.PurchaseRecord{}, err
		}
	}

	cal, err := s.calendars.GetByShareCode(ctx, shareCode)
	if err != nil {
		return model.PurchaseRecord{}, err
	}
	if cal.IsOwnedBy(&viewerID) {
		return model.PurchaseRecord{}, ErrSelfPurchase
	}

	price := cal.Price
	if dayNumber != nil {
		if err := rules.ValidateDayNumber(*dayNumber); err != nil {
			return model.PurchaseRecord{}, fmt.Errorf("%w: %v", ErrValidation, err)
		}
		now := s.now()
		if !s.policy.DayUnlocked(*dayNumber, s.policy.SeasonOf(cal, now), now) {
			return model.PurchaseRecord{}, ErrDayLocked
		}
		day, err := s.calendars.Day(ctx, cal.ID, *dayNumber)
		if err != nil {
			return model.PurchaseRecord{}, err
		}
		if day == nil {
			return model.PurchaseRecord{}, ErrDayNotFound
		}
		price = day.Price
	}

	return s.RecordPurchase(ctx, viewerID, cal, dayNumber, price)
}

func (s *Service) ListCompleted(ctx context.Context, viewerID uuid.UUID) ([]model.PurchaseRecord, error) {
	if viewerID == uuid.Nil {
		return nil, ErrUnauthorized
	}
	if s.store == nil {
		return nil, ErrDependenciesNil
	}

	records, err := s.store.ListCompletedByUser(ctx, viewerID)
	if err != nil {
		return nil, fmt.Errorf("list purchases: %w", err)
	}
	return records, nil
}

func (s *Service) observe(scope, result string, amount model.Price) {
	if s.observer == nil {
		return
	}
	s.observer.ObservePurchase(scope, result, model.NormalizeCurrency(amount.Currency), amount.AmountCents)
}

func scopeOf(dayNumber *int) string {
	if dayNumber == nil {
		return ScopeCalendar
	}
	return ScopeDay
}

func copyDay(dayNumber *int) *int {
	if dayNumber == nil {
		return nil
	}
	v := *dayNumber
	return &v
}
