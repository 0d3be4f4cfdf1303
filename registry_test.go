package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"
)

func testRegistry(ttl time.Duration) *Registry {
	return NewRegistry(NewMemStore(), ttl, 2)
}

// downStore fails every operation the way an unreachable Redis would.
type downStore struct{}

func errStoreDown() error {
	return fmt.Errorf("%w: connection refused", ErrStoreUnavailable)
}

func (downStore) CreateRecord(ctx context.Context, key string, fields map[string]string, ttl time.Duration) (bool, error) {
	return false, errStoreDown()
}

func (downStore) Record(ctx context.Context, key string) (map[string]string, error) {
	return nil, errStoreDown()
}

func (downStore) RecordTTL(ctx context.Context, key string) (time.Duration, error) {
	return 0, errStoreDown()
}

func (downStore) Delete(ctx context.Context, key string) error { return errStoreDown() }

func (downStore) BoundedAppend(ctx context.Context, key, field, value string, max int) (AppendOutcome, error) {
	return AppendNotFound, errStoreDown()
}

func (downStore) IncrWindow(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	return 0, 0, errStoreDown()
}

func (downStore) Ping(ctx context.Context) error { return errStoreDown() }
func (downStore) Close() error                   { return nil }

func TestRegistry_CreatePublic(t *testing.T) {
	reg := testRegistry(time.Minute)
	ctx := context.Background()

	rec, err := reg.Create(ctx, "")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasSuffix(rec.ID, "-p") {
		t.Errorf("public room id %q should carry the -p hint suffix", rec.ID)
	}
	if rec.PasswordRequired {
		t.Error("public room should not require a password")
	}

	got, err := reg.Get(ctx, rec.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.PasswordRequired {
		t.Error("stored record should not require a password")
	}
	if !got.PasswordMatches("") || !got.PasswordMatches("anything") {
		t.Error("public room should accept any or no password")
	}
	if len(got.Members) != 0 {
		t.Errorf("fresh room members = %v, want empty", got.Members)
	}
}

func TestRegistry_CreateProtected(t *testing.T) {
	reg := testRegistry(time.Minute)
	ctx := context.Background()

	rec, err := reg.Create(ctx, "hunter2")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasSuffix(rec.ID, "-s") {
		t.Errorf("protected room id %q should carry the -s hint suffix", rec.ID)
	}

	got, err := reg.Get(ctx, rec.ID)
	if err != nil {
		t.Fatal(err)
	}
	if !got.PasswordRequired {
		t.Error("protected room should require a password")
	}
	if !got.PasswordMatches("hunter2") {
		t.Error("exact password should match")
	}
	if got.PasswordMatches("hunter") || got.PasswordMatches("") {
		t.Error("wrong or empty password should not match")
	}
}

func TestRegistry_GetNotFound(t *testing.T) {
	reg := testRegistry(time.Minute)

	_, err := reg.Get(context.Background(), "nope-p")
	if !errors.Is(err, ErrRoomNotFound) {
		t.Errorf("err = %v, want ErrRoomNotFound", err)
	}
}

func TestRegistry_StoreOutageIsNotNotFound(t *testing.T) {
	reg := NewRegistry(downStore{}, time.Minute, 2)
	ctx := context.Background()

	_, err := reg.Get(ctx, "some-room-p")
	if !errors.Is(err, ErrStoreUnavailable) {
		t.Errorf("Get err = %v, want ErrStoreUnavailable", err)
	}
	if errors.Is(err, ErrRoomNotFound) {
		t.Error("an unreachable store must never read as an absent room")
	}

	if _, err := reg.Create(ctx, ""); !errors.Is(err, ErrStoreUnavailable) {
		t.Errorf("Create err = %v, want ErrStoreUnavailable", err)
	}
	if err := reg.AddMember(ctx, "some-room-p", "t1"); !errors.Is(err, ErrStoreUnavailable) {
		t.Errorf("AddMember err = %v, want ErrStoreUnavailable", err)
	}
}

func TestRegistry_TTLDecreasesAndExpires(t *testing.T) {
	reg := testRegistry(150 * time.Millisecond)
	ctx := context.Background()

	rec, err := reg.Create(ctx, "")
	if err != nil {
		t.Fatal(err)
	}

	first, err := reg.Get(ctx, rec.ID)
	if err != nil {
		t.Fatal(err)
	}
	time.Sleep(50 * time.Millisecond)
	second, err := reg.Get(ctx, rec.ID)
	if err != nil {
		t.Fatal(err)
	}
	if second.TTL >= first.TTL {
		t.Errorf("ttl did not decrease: %v then %v", first.TTL, second.TTL)
	}

	time.Sleep(150 * time.Millisecond)
	if _, err := reg.Get(ctx, rec.ID); !errors.Is(err, ErrRoomNotFound) {
		t.Errorf("expired room err = %v, want ErrRoomNotFound", err)
	}
}

func TestRegistry_AddMemberNeverExtendsTTL(t *testing.T) {
	reg := testRegistry(time.Minute)
	ctx := context.Background()

	rec, _ := reg.Create(ctx, "")
	before, _ := reg.Get(ctx, rec.ID)

	time.Sleep(30 * time.Millisecond)
	if err := reg.AddMember(ctx, rec.ID, "token-1"); err != nil {
		t.Fatal(err)
	}

	after, _ := reg.Get(ctx, rec.ID)
	if after.TTL >= before.TTL {
		t.Errorf("AddMember extended the TTL: %v then %v", before.TTL, after.TTL)
	}
}

func TestRegistry_AddMemberCap(t *testing.T) {
	reg := testRegistry(time.Minute)
	ctx := context.Background()

	rec, _ := reg.Create(ctx, "")

	if err := reg.AddMember(ctx, rec.ID, "t1"); err != nil {
		t.Fatal(err)
	}
	if err := reg.AddMember(ctx, rec.ID, "t2"); err != nil {
		t.Fatal(err)
	}
	if err := reg.AddMember(ctx, rec.ID, "t3"); !errors.Is(err, ErrRoomFull) {
		t.Errorf("third member err = %v, want ErrRoomFull", err)
	}
	// Re-adding a held token is a no-op, even when full.
	if err := reg.AddMember(ctx, rec.ID, "t1"); err != nil {
		t.Errorf("existing member err = %v, want nil", err)
	}

	got, _ := reg.Get(ctx, rec.ID)
	if len(got.Members) != 2 {
		t.Errorf("members = %v, want 2 entries", got.Members)
	}
	if !got.HasMember("t1") || !got.HasMember("t2") {
		t.Errorf("members = %v, want t1 and t2", got.Members)
	}
}

func TestRegistry_AddMemberNotFound(t *testing.T) {
	reg := testRegistry(time.Minute)

	err := reg.AddMember(context.Background(), "gone-p", "t1")
	if !errors.Is(err, ErrRoomNotFound) {
		t.Errorf("err = %v, want ErrRoomNotFound", err)
	}
}

func TestRegistry_DestroyIdempotent(t *testing.T) {
	reg := testRegistry(time.Minute)
	ctx := context.Background()

	rec, _ := reg.Create(ctx, "")

	if err := reg.Destroy(ctx, rec.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := reg.Get(ctx, rec.ID); !errors.Is(err, ErrRoomNotFound) {
		t.Errorf("destroyed room err = %v, want ErrRoomNotFound", err)
	}
	if err := reg.Destroy(ctx, rec.ID); err != nil {
		t.Errorf("second destroy err = %v, want nil", err)
	}
}
