package model

import (
	"time"

	"github.com/google/uuid"

	"github.com/keito-ux/advent-calendar-bolt/internal/domain/enums"
)

type Media struct {
	ID        uuid.UUID       `json:"id"`
	OwnerID   uuid.UUID       `json:"owner_id"`
	Kind      enums.MediaKind `json:"kind"`
	ObjectKey string          `json:"object_key"`
	URL       string          `json:"url"`
	CreatedAt time.Time       `json:"created_at"`
}
