package dto

import (
	"time"

	"github.com/google/uuid"
)

type ProfileResponse struct {
	ID        uuid.UUID `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email,omitempty"`
	AvatarURL string    `json:"avatar_url"`
	CreatedAt time.Time `json:"created_at"`
}

type MeResponse struct {
	Profile ProfileResponse `json:"profile"`
	Role    string          `json:"role"`
}

type UpdateMeRequest struct {
	Username string `json:"username"`
}

type CreatorResponse struct {
	Profile   ProfileResponse    `json:"profile"`
	Calendars []CalendarResponse `json:"calendars"`
}

type CreatorSearchResponse struct {
	Items []CreatorResponse `json:"items"`
}
