package main

import "errors"

// Outcome taxonomy shared across the registry, admission, and broker layers.
// ErrStoreUnavailable is deliberately distinct from ErrRoomNotFound: a store
// that cannot be reached must never be reported as an absent room.
var (
	ErrRoomNotFound     = errors.New("room not found or expired")
	ErrRoomFull         = errors.New("room full")
	ErrBadPassword      = errors.New("password required")
	ErrRateLimited      = errors.New("rate limited")
	ErrStoreUnavailable = errors.New("store unavailable")
)
