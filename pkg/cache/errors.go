package cache

import "errors"

// ErrCorruptEntry is returned when a stored value cannot be decoded. Callers
// treat it as a miss.
var ErrCorruptEntry = errors.New("corrupt cache entry")
