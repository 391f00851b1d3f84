package model

import (
	"time"

	"github.com/google/uuid"

	"github.com/keito-ux/advent-calendar-bolt/internal/domain/enums"
)

type Scene struct {
	ID         uuid.UUID  `json:"id"`
	DayNumber  int        `json:"day_number"`
	Title      string     `json:"title"`
	ImageURL   string     `json:"image_url"`
	ArtistID   *uuid.UUID `json:"artist_id"`
	UnlockDate time.Time  `json:"unlock_date"`
	IsUnlocked bool       `json:"is_unlocked"`
	CreatedAt  time.Time  `json:"created_at"`
}

type Artist struct {
	ID              uuid.UUID `json:"id"`
	Name            string    `json:"name"`
	Bio             string    `json:"bio"`
	ProfileImageURL string    `json:"profile_image_url"`
	Country         string    `json:"country"`
	CreatedAt       time.Time `json:"created_at"`
}

type Translation struct {
	ID          uuid.UUID      `json:"id"`
	SceneID     uuid.UUID      `json:"scene_id"`
	Language    enums.Language `json:"language_code"`
	TextContent string         `json:"text_content"`
	AudioURL    *string        `json:"audio_url"`
	CreatedAt   time.Time      `json:"created_at"`
}
