// Package queries provides repositories for persisting advisor history
// to PostgreSQL.
package queries

import "errors"

// ErrNotFound is returned when a lookup matches no rows.
var ErrNotFound = errors.New("record not found")
