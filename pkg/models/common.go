package models

import (
	"math"

	"github.com/google/uuid"
)

// NewUUID generates a new UUID string
func NewUUID() string {
	return uuid.New().String()
}

// Round2 rounds to two decimal places, the precision used in persisted
// documents and cost figures.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}
