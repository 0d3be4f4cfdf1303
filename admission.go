package main

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Decision is the result of an admission attempt. Token is the caller's
// effective membership credential; Issued reports whether it was minted by
// this attempt.
type Decision struct {
	Token  string
	Issued bool
}

// Admission gates entry to a room's address before any realtime connection is
// attempted. It is the only place membership slots are consumed.
type Admission struct {
	registry *Registry
	log      zerolog.Logger
}

func NewAdmission(registry *Registry, log zerolog.Logger) *Admission {
	return &Admission{
		registry: registry,
		log:      log.With().Str("component", "admission").Logger(),
	}
}

// Admit decides whether the caller may enter roomID. A presented token that
// already holds a slot is re-admitted before any capacity check, so returning
// members are never blocked by a room they themselves filled. First-time
// callers get a freshly minted token appended under the cap; the append is
// atomic, which keeps |members| within capacity under concurrent attempts.
func (a *Admission) Admit(ctx context.Context, roomID, presented string) (Decision, error) {
	rec, err := a.registry.Get(ctx, roomID)
	if err != nil {
		return Decision{}, err
	}

	if presented != "" && rec.HasMember(presented) {
		a.log.Debug().Str("room", roomID).Msg("member rejoined")
		return Decision{Token: presented}, nil
	}

	token := uuid.NewString()
	if err := a.registry.AddMember(ctx, roomID, token); err != nil {
		return Decision{}, err
	}

	a.log.Info().Str("room", roomID).Msg("member admitted")
	return Decision{Token: token, Issued: true}, nil
}
