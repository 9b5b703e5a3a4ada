package model

import (
	"time"
)

// RedemptionCode grants a fixed number of uses of the sentence generator.
// Exhaustion is represented by Quota == 0; rows are never deleted.
type RedemptionCode struct {
	ID        string
	Code      string
	Quota     int
	CreatedAt time.Time
}

// Exhausted reports whether the code has no remaining uses.
func (c *RedemptionCode) Exhausted() bool { return c.Quota <= 0 }
