package models

import (
	"time"

	"github.com/google/uuid"
)

// Platform represents an external gaming platform in the immutable catalog.
type Platform struct {
	ID           uuid.UUID `json:"id" db:"platform_id"`
	Code         string    `json:"code" db:"code"` // unique, lowercase (e.g. "steam")
	Name         string    `json:"name" db:"name"`
	APIAvailable bool      `json:"api_available" db:"api_available"`
	IconURL      *string   `json:"icon_url,omitempty" db:"icon_url"`
	BaseURL      *string   `json:"base_url,omitempty" db:"base_url"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}
