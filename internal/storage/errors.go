package storage

import "errors"

// ErrNotFound signals a missing record, distinct from an empty result
// list.
var ErrNotFound = errors.New("record not found")
