package model

import (
	"time"

	"github.com/google/uuid"
)

type Tip struct {
	ID              uuid.UUID  `json:"id"`
	ArtistID        uuid.UUID  `json:"artist_id"`
	SceneID         *uuid.UUID `json:"scene_id"`
	Amount          Price      `json:"amount"`
	TipperName      *string    `json:"tipper_name"`
	Message         *string    `json:"message"`
	ExternalPayment *string    `json:"external_payment_id"`
	CreatedAt       time.Time  `json:"created_at"`
}
