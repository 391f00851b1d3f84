package rules

import (
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/keito-ux/advent-calendar-bolt/internal/domain/model"
)

var (
	ErrInvalidPrice      = errors.New("invalid price")
	ErrInconsistentInput = errors.New("inconsistent input")
)

type AccessState string

const (
	AccessLockedTemporal  AccessState = "locked_temporal"
	AccessPaymentRequired AccessState = "payment_required"
	AccessUnlocked        AccessState = "unlocked"
)

// CanAccessDay decides whether the viewer may see a day's content, ignoring
// the temporal gate. A nil day means nothing has been published for it yet.
// The day must pass CheckDay against cal; a malformed or foreign day is
// never accessible.
func CanAccessDay(cal model.Calendar, day *model.CalendarDay, viewerID *uuid.UUID, purchases []model.PurchaseRecord) bool {
	if CheckDay(cal, day) != nil {
		return false
	}
	if cal.IsOwnedBy(viewerID) {
		return true
	}
	if HasWholeCalendarPurchase(cal, viewerID, purchases) {
		return true
	}
	if day == nil || day.Price.IsFree() {
		return true
	}

	for _, p := range completedFor(cal, viewerID, purchases) {
		if p.CoversDay(day.DayNumber) {
			return true
		}
	}
	return false
}

func NeedsWholeCalendarPayment(cal model.Calendar, viewerID *uuid.UUID, hasWholeCalendarPurchase bool) bool {
	if cal.IsOwnedBy(viewerID) || hasWholeCalendarPurchase {
		return false
	}
	return !cal.Price.IsFree()
}

func HasWholeCalendarPurchase(cal model.Calendar, viewerID *uuid.UUID, purchases []model.PurchaseRecord) bool {
	for _, p := range completedFor(cal, viewerID, purchases) {
		if p.IsWholeCalendar() {
			return true
		}
	}
	return false
}

// DayState combines both gates. The temporal gate is checked first, so a day
// that has not opened yet never reports payment_required.
func DayState(temporallyUnlocked, canAccess bool) AccessState {
	switch {
	case !temporallyUnlocked:
		return AccessLockedTemporal
	case !canAccess:
		return AccessPaymentRequired
	default:
		return AccessUnlocked
	}
}

func ValidatePurchaseAmount(amount model.Price) error {
	if amount.AmountCents <= 0 {
		return fmt.Errorf("amount %d: %w", amount.AmountCents, ErrInvalidPrice)
	}
	return nil
}

func ValidatePrice(amount model.Price) error {
	if amount.AmountCents < 0 {
		return fmt.Errorf("amount %d: %w", amount.AmountCents, ErrInvalidPrice)
	}
	return nil
}

func ValidateDayNumber(day int) error {
	if day < model.FirstDay || day > model.LastDay {
		return fmt.Errorf("day %d outside [%d,%d]: %w", day, model.FirstDay, model.LastDay, ErrInconsistentInput)
	}
	return nil
}

// CheckDay verifies that a day record is well-formed and belongs to cal.
func CheckDay(cal model.Calendar, day *model.CalendarDay) error {
	if day == nil {
		return nil
	}
	if err := ValidateDayNumber(day.DayNumber); err != nil {
		return err
	}
	if day.CalendarID != cal.ID {
		return fmt.Errorf("day %d belongs to calendar %s, not %s: %w", day.DayNumber, day.CalendarID, cal.ID, ErrInconsistentInput)
	}
	return nil
}

func completedFor(cal model.Calendar, viewerID *uuid.UUID, purchases []model.PurchaseRecord) []model.PurchaseRecord {
	if viewerID == nil || *viewerID == uuid.Nil {
		return nil
	}

	out := make([]model.PurchaseRecord, 0, len(purchases))
	for _, p := range purchases {
		if !p.Status.GrantsAccess() || p.UserID != *viewerID || p.CalendarID != cal.ID {
			continue
		}
		out = append(out, p)
	}
	return out
}
