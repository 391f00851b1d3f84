package dto

import (
	"time"

	"github.com/google/uuid"
)

// SharedDayResponse never carries content unless State is "unlocked".
type SharedDayResponse struct {
	DayNumber          int          `json:"day_number"`
	State              string       `json:"state"`
	TemporallyUnlocked bool         `json:"temporally_unlocked"`
	CanAccess          bool         `json:"can_access"`
	Price              PriceDTO     `json:"price"`
	UnlockAt           time.Time    `json:"unlock_at"`
	Content            *DayResponse `json:"content,omitempty"`
}

type SharedCalendarResponse struct {
	Calendar     CalendarResponse    `json:"calendar"`
	IsOwner      bool                `json:"is_owner"`
	NeedsPayment bool                `json:"needs_payment"`
	Days         []SharedDayResponse `json:"days"`
}

type PurchaseRequest struct {
	// DayNumber nil buys the whole calendar.
	DayNumber *int `json:"day_number"`
}

type PurchaseResponse struct {
	ID            uuid.UUID `json:"id"`
	CalendarID    uuid.UUID `json:"calendar_id"`
	DayNumber     *int      `json:"day_number"`
	Amount        PriceDTO  `json:"amount"`
	Status        string    `json:"status"`
	PaymentMethod string    `json:"payment_method"`
	CreatedAt     time.Time `json:"created_at"`
}

type PurchaseListResponse struct {
	Items []PurchaseResponse `json:"items"`
}
