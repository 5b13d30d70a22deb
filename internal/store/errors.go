package store

import "errors"

// ErrNotFound is returned when a record does not exist, or exists under a
// different owner. The two cases are indistinguishable on purpose.
var ErrNotFound = errors.New("not found")

// ErrDuplicate is returned when a unique constraint rejects an insert.
var ErrDuplicate = errors.New("duplicate record")
