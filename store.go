package main

import (
	"context"
	"time"
)

// AppendOutcome reports the result of Store.BoundedAppend.
type AppendOutcome int

const (
	AppendNotFound AppendOutcome = iota // key absent or expired
	AppendFull                          // list already at max
	AppendMember                        // value already in the list
	Appended                            // value added
)

// Store is the single piece of shared mutable state: hash-shaped records with
// a whole-key TTL, plus the two atomic primitives the core needs. The TTL set
// at creation is never extended by any other operation.
type Store interface {
	// CreateRecord atomically writes fields under key with the given TTL if
	// and only if the key does not exist. Returns false when the key is taken.
	CreateRecord(ctx context.Context, key string, fields map[string]string, ttl time.Duration) (bool, error)

	// Record returns all fields of key, or nil when the key is absent or
	// expired.
	Record(ctx context.Context, key string) (map[string]string, error)

	// RecordTTL returns the live remaining TTL of key, 0 when absent.
	RecordTTL(ctx context.Context, key string) (time.Duration, error)

	// Delete removes key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error

	// BoundedAppend appends value to the JSON string list stored in field,
	// atomically with respect to the existence check, the membership check,
	// and the max-length check.
	BoundedAppend(ctx context.Context, key, field, value string, max int) (AppendOutcome, error)

	// IncrWindow increments the counter at key. The first increment of a
	// window sets the key expiry to window, atomically with the increment.
	// Returns the new count and the remaining window.
	IncrWindow(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error)

	Ping(ctx context.Context) error
	Close() error
}
