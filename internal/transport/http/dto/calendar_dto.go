package dto

import (
	"time"

	"github.com/google/uuid"
)

type PriceDTO struct {
	AmountCents int64  `json:"amount_cents"`
	Currency    string `json:"currency"`
}

type CalendarResponse struct {
	ID              uuid.UUID `json:"id"`
	CreatorID       uuid.UUID `json:"creator_id"`
	Title           string    `json:"title"`
	Description     string    `json:"description"`
	Username        string    `json:"username"`
	Theme           string    `json:"theme"`
	BackgroundImage string    `json:"background_image"`
	IsPublic        bool      `json:"is_public"`
	Price           PriceDTO  `json:"price"`
	ShareCode       string    `json:"share_code"`
	Season          int       `json:"season"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

type DayResponse struct {
	DayNumber int       `json:"day_number"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	ImageURL  string    `json:"image_url"`
	Price     PriceDTO  `json:"price"`
	UpdatedAt time.Time `json:"updated_at"`
}

type CreateCalendarRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Username    string `json:"username"`
	Theme       string `json:"theme"`
	IsPublic    *bool  `json:"is_public"`
	PriceCents  int64  `json:"price_cents"`
	Currency    string `json:"currency"`
}

type UpdateCalendarRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Theme       *string `json:"theme"`
	IsPublic    *bool   `json:"is_public"`
	PriceCents  *int64  `json:"price_cents"`
	Currency    *string `json:"currency"`
}

type UpsertDayRequest struct {
	Title      *string `json:"title"`
	Message    *string `json:"message"`
	PriceCents *int64  `json:"price_cents"`
	Currency   *string `json:"currency"`
}

type EarningsResponse struct {
	TotalCents    int64  `json:"total_cents"`
	Currency      string `json:"currency"`
	PurchaseCount int    `json:"purchase_count"`
}

type OwnedCalendarResponse struct {
	Calendar CalendarResponse `json:"calendar"`
	Earnings EarningsResponse `json:"earnings"`
}

type MyCalendarsResponse struct {
	Items []OwnedCalendarResponse `json:"items"`
}

type CalendarEditorResponse struct {
	Calendar CalendarResponse `json:"calendar"`
	Days     []DayResponse    `json:"days"`
}

type CalendarListResponse struct {
	Items []CalendarResponse `json:"items"`
}

type ShareLinkResponse struct {
	URL       string `json:"url"`
	ShareCode string `json:"share_code"`
	QRCodeURL string `json:"qr_code_url"`
}
