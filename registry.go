package main

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
)

const (
	roomKeyPrefix = "meta:"

	fieldCreatedAt        = "createdAt"
	fieldPasswordRequired = "passwordRequired"
	fieldPassword         = "password"
	fieldConnected        = "connected"
)

// RoomRecord is the persisted metadata of one room. TTL is read live from the
// store at lookup time, never stored as an absolute deadline.
type RoomRecord struct {
	ID               string
	CreatedAt        time.Time
	TTL              time.Duration
	PasswordRequired bool
	Members          []string

	password string
}

// PasswordMatches compares the supplied password byte-for-byte against the
// stored secret. Rooms without a password accept anything.
func (r *RoomRecord) PasswordMatches(supplied string) bool {
	if !r.PasswordRequired {
		return true
	}
	return supplied != "" && supplied == r.password
}

func (r *RoomRecord) HasMember(token string) bool {
	for _, m := range r.Members {
		if m == token {
			return true
		}
	}
	return false
}

// Registry owns room metadata records. All shared state flows through the
// Store; the broker never touches the store directly.
type Registry struct {
	store    Store
	ttl      time.Duration
	capacity int
}

func NewRegistry(store Store, ttl time.Duration, capacity int) *Registry {
	return &Registry{store: store, ttl: ttl, capacity: capacity}
}

// newRoomID mints an id with a "-s"/"-p" suffix. The suffix is a client UI
// hint only; the authoritative security flag is the stored passwordRequired
// field.
func newRoomID(secured bool) string {
	if secured {
		return uuid.NewString() + "-s"
	}
	return uuid.NewString() + "-p"
}

func roomKey(id string) string { return roomKeyPrefix + id }

// Create persists a new room with the fixed TTL. An existing id is never
// overwritten; on the (negligible) uuid collision a fresh id is minted.
func (g *Registry) Create(ctx context.Context, password string) (*RoomRecord, error) {
	now := time.Now()
	fields := map[string]string{
		fieldCreatedAt:        strconv.FormatInt(now.UnixMilli(), 10),
		fieldPasswordRequired: strconv.FormatBool(password != ""),
		fieldConnected:        "[]",
	}
	if password != "" {
		fields[fieldPassword] = password
	}

	for attempt := 0; attempt < 3; attempt++ {
		id := newRoomID(password != "")
		created, err := g.store.CreateRecord(ctx, roomKey(id), fields, g.ttl)
		if err != nil {
			return nil, fmt.Errorf("create room: %w", err)
		}
		if !created {
			continue
		}
		return &RoomRecord{
			ID:               id,
			CreatedAt:        now,
			TTL:              g.ttl,
			PasswordRequired: password != "",
			password:         password,
		}, nil
	}
	return nil, fmt.Errorf("create room: id collision")
}

// Get reads a room record. Absent and expired rooms are indistinguishable and
// both yield ErrRoomNotFound; store failures never do.
func (g *Registry) Get(ctx context.Context, id string) (*RoomRecord, error) {
	fields, err := g.store.Record(ctx, roomKey(id))
	if err != nil {
		return nil, fmt.Errorf("get room %s: %w", id, err)
	}
	if len(fields) == 0 {
		return nil, ErrRoomNotFound
	}

	ttl, err := g.store.RecordTTL(ctx, roomKey(id))
	if err != nil {
		return nil, fmt.Errorf("get room %s: %w", id, err)
	}

	createdMilli, _ := strconv.ParseInt(fields[fieldCreatedAt], 10, 64)

	var members []string
	if raw := fields[fieldConnected]; raw != "" {
		_ = json.Unmarshal([]byte(raw), &members)
	}

	return &RoomRecord{
		ID:               id,
		CreatedAt:        time.UnixMilli(createdMilli),
		TTL:              ttl,
		PasswordRequired: fields[fieldPasswordRequired] == "true",
		Members:          members,
		password:         fields[fieldPassword],
	}, nil
}

// Destroy removes a room. Destroying an absent room is not an error.
func (g *Registry) Destroy(ctx context.Context, id string) error {
	if err := g.store.Delete(ctx, roomKey(id)); err != nil {
		return fmt.Errorf("destroy room %s: %w", id, err)
	}
	return nil
}

// AddMember appends a membership token under the capacity cap. The append is
// atomic with the capacity and existence checks, so the cap holds under
// concurrent admission attempts. A token already in the list is a no-op.
func (g *Registry) AddMember(ctx context.Context, id, token string) error {
	outcome, err := g.store.BoundedAppend(ctx, roomKey(id), fieldConnected, token, g.capacity)
	if err != nil {
		return fmt.Errorf("add member to %s: %w", id, err)
	}
	switch outcome {
	case Appended, AppendMember:
		return nil
	case AppendFull:
		return ErrRoomFull
	default:
		return ErrRoomNotFound
	}
}
