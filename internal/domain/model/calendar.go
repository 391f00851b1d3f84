package model

import (
	"time"

	"github.com/google/uuid"

	"github.com/keito-ux/advent-calendar-bolt/internal/domain/enums"
)

const (
	FirstDay = 1
	LastDay  = 25
)

type Calendar struct {
	ID              uuid.UUID   `json:"id"`
	CreatorID       uuid.UUID   `json:"creator_id"`
	Title           string      `json:"title"`
	Description     string      `json:"description"`
	Username        string      `json:"username"`
	Theme           enums.Theme `json:"theme"`
	BackgroundImage string      `json:"background_image"`
	IsPublic        bool        `json:"is_public"`
	Price           Price       `json:"price"`
	ShareCode       string      `json:"share_code"`
	Season          int         `json:"season"`
	CreatedAt       time.Time   `json:"created_at"`
	UpdatedAt       time.Time   `json:"updated_at"`
}

func (c Calendar) IsOwnedBy(viewerID *uuid.UUID) bool {
	return viewerID != nil && *viewerID != uuid.Nil && *viewerID == c.CreatorID
}

type CalendarDay struct {
	ID         uuid.UUID `json:"id"`
	CalendarID uuid.UUID `json:"calendar_id"`
	DayNumber  int       `json:"day_number"`
	Title      string    `json:"title"`
	Message    string    `json:"message"`
	ImageURL   string    `json:"image_url"`
	Price      Price     `json:"price"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

type CalendarEarnings struct {
	CalendarID    uuid.UUID `json:"calendar_id"`
	TotalCents    int64     `json:"total_cents"`
	Currency      string    `json:"currency"`
	PurchaseCount int       `json:"purchase_count"`
}
