package model

import (
	"time"

	"github.com/google/uuid"

	"github.com/keito-ux/advent-calendar-bolt/internal/domain/enums"
)

// PurchaseRecord is immutable once written. A nil DayNumber covers the whole
// calendar.
type PurchaseRecord struct {
	ID            uuid.UUID            `json:"id"`
	UserID        uuid.UUID            `json:"user_id"`
	CalendarID    uuid.UUID            `json:"calendar_id"`
	DayNumber     *int                 `json:"day_number"`
	Amount        Price                `json:"amount"`
	Status        enums.PurchaseStatus `json:"status"`
	PaymentMethod enums.PaymentMethod  `json:"payment_method"`
	CreatedAt     time.Time            `json:"created_at"`
}

func (p PurchaseRecord) IsWholeCalendar() bool {
	return p.DayNumber == nil
}

func (p PurchaseRecord) CoversDay(day int) bool {
	return p.DayNumber != nil && *p.DayNumber == day
}
