package repositories

import "errors"

// ErrNotFound is returned when a requested record does not exist.
// Callers should test with errors.Is so handlers can map it to a 404.
var ErrNotFound = errors.New("record not found")
