package storage

import "errors"

// ErrNotFound is returned when a lookup by id yields nothing
var ErrNotFound = errors.New("record not found")
