package dto

import (
	"time"

	"github.com/google/uuid"
)

type SceneResponse struct {
	ID         uuid.UUID  `json:"id"`
	DayNumber  int        `json:"day_number"`
	Title      string     `json:"title"`
	ImageURL   string     `json:"image_url,omitempty"`
	ArtistID   *uuid.UUID `json:"artist_id"`
	UnlockDate time.Time  `json:"unlock_date"`
	IsUnlocked bool       `json:"is_unlocked"`
}

type SceneListResponse struct {
	Items []SceneResponse `json:"items"`
}

type ArtistResponse struct {
	ID              uuid.UUID `json:"id"`
	Name            string    `json:"name"`
	Bio             string    `json:"bio"`
	ProfileImageURL string    `json:"profile_image_url"`
	Country         string    `json:"country"`
}

type TranslationResponse struct {
	Language    string  `json:"language_code"`
	TextContent string  `json:"text_content"`
	AudioURL    *string `json:"audio_url"`
}

type SceneDetailResponse struct {
	Scene        SceneResponse         `json:"scene"`
	Artist       *ArtistResponse       `json:"artist"`
	Translation  *TranslationResponse  `json:"translation"`
	Translations []TranslationResponse `json:"translations"`
}

type ArtistProfileResponse struct {
	Artist ArtistResponse  `json:"artist"`
	Scenes []SceneResponse `json:"scenes"`
	Tips   []TipResponse   `json:"tips"`
	Totals []PriceDTO      `json:"totals"`
}

type TipRequest struct {
	SceneID     *uuid.UUID `json:"scene_id"`
	AmountCents int64      `json:"amount_cents"`
	Currency    string     `json:"currency"`
	TipperName  string     `json:"tipper_name"`
	Message     string     `json:"message"`
}

type TipResponse struct {
	ID         uuid.UUID  `json:"id"`
	ArtistID   uuid.UUID  `json:"artist_id"`
	SceneID    *uuid.UUID `json:"scene_id"`
	Amount     PriceDTO   `json:"amount"`
	TipperName *string    `json:"tipper_name"`
	Message    *string    `json:"message"`
	CreatedAt  time.Time  `json:"created_at"`
}

type TipPresetsResponse struct {
	AmountsCents []int64 `json:"amounts_cents"`
}
