package model

import (
	"time"

	"github.com/google/uuid"

	"github.com/keito-ux/advent-calendar-bolt/internal/domain/enums"
)

type User struct {
	ID           uuid.UUID  `json:"id"`
	Email        string     `json:"email"`
	PasswordHash string     `json:"-"`
	Role         enums.Role `json:"role"`
	CreatedAt    time.Time  `json:"created_at"`
}
