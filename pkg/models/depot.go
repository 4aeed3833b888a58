package models

import (
	"time"

	"github.com/google/uuid"
)

// Depot is the home base trucks leave from and return to. Jobs and API keys belong to a depot.
type Depot struct {
	ID        uuid.UUID `db:"id"         json:"id"`
	Name      string    `db:"name"       json:"name"`
	Code      string    `db:"code"       json:"code"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}
