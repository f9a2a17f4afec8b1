package domain

import "time"

// Idempotency records the outcome of a completed create request, keyed by the
// client-supplied Idempotency-Key. A retry carrying the same key within the
// TTL replays the stored outcome instead of hitting the duplicate checks.
type Idempotency struct {
	ID        string    `gorm:"type:TEXT NOT NULL;primaryKey"`
	Key       string    `gorm:"type:TEXT NOT NULL;uniqueIndex:ux_idempotency_key"`
	ControlID string    `gorm:"type:TEXT NOT NULL"`
	Status    int       `gorm:"type:INTEGER NOT NULL"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
	ExpiresAt time.Time `gorm:"index"`
}

// TableName implements the GORM tabler interface.
func (Idempotency) TableName() string { return "idempotency" }
