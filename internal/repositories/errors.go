package repositories

import "errors"

// ErrNotFound is returned when an entity id does not resolve to a stored record
var ErrNotFound = errors.New("not found")

// ErrInvalidArgument is returned for malformed requests that reach the core,
// such as an unknown relation kind or a non-positive limit
var ErrInvalidArgument = errors.New("invalid argument")
