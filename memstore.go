package main

import (
	"context"
	"encoding/json"
	"sync"
	"time"
)

type memRecord struct {
	fields    map[string]string
	expiresAt time.Time
}

type memCounter struct {
	count     int64
	expiresAt time.Time
}

// MemStore is a mutex-based in-memory Store. It backs single-process
// development mode and the test suite; expired entries are evicted lazily on
// access.
type MemStore struct {
	mu       sync.Mutex
	records  map[string]*memRecord
	counters map[string]*memCounter
}

func NewMemStore() *MemStore {
	return &MemStore{
		records:  make(map[string]*memRecord),
		counters: make(map[string]*memCounter),
	}
}

// live returns the record at key, evicting it first if expired.
// Callers must hold mu.
func (s *MemStore) live(key string) *memRecord {
	rec, ok := s.records[key]
	if !ok {
		return nil
	}
	if time.Now().After(rec.expiresAt) {
		delete(s.records, key)
		return nil
	}
	return rec
}

func (s *MemStore) CreateRecord(ctx context.Context, key string, fields map[string]string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.live(key) != nil {
		return false, nil
	}

	copied := make(map[string]string, len(fields))
	for k, v := range fields {
		copied[k] = v
	}
	s.records[key] = &memRecord{fields: copied, expiresAt: time.Now().Add(ttl)}
	return true, nil
}

func (s *MemStore) Record(ctx context.Context, key string) (map[string]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec := s.live(key)
	if rec == nil {
		return nil, nil
	}
	copied := make(map[string]string, len(rec.fields))
	for k, v := range rec.fields {
		copied[k] = v
	}
	return copied, nil
}

func (s *MemStore) RecordTTL(ctx context.Context, key string) (time.Duration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec := s.live(key)
	if rec == nil {
		return 0, nil
	}
	return time.Until(rec.expiresAt), nil
}

func (s *MemStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.records, key)
	return nil
}

func (s *MemStore) BoundedAppend(ctx context.Context, key, field, value string, max int) (AppendOutcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec := s.live(key)
	if rec == nil {
		return AppendNotFound, nil
	}

	var list []string
	if raw := rec.fields[field]; raw != "" {
		if err := json.Unmarshal([]byte(raw), &list); err != nil {
			list = nil
		}
	}

	for _, v := range list {
		if v == value {
			return AppendMember, nil
		}
	}
	if len(list) >= max {
		return AppendFull, nil
	}

	list = append(list, value)
	encoded, err := json.Marshal(list)
	if err != nil {
		return AppendNotFound, err
	}
	rec.fields[field] = string(encoded)
	return Appended, nil
}

func (s *MemStore) IncrWindow(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	c, ok := s.counters[key]
	if !ok || now.After(c.expiresAt) {
		c = &memCounter{expiresAt: now.Add(window)}
		s.counters[key] = c
	}
	c.count++
	return c.count, time.Until(c.expiresAt), nil
}

func (s *MemStore) Ping(ctx context.Context) error { return nil }

func (s *MemStore) Close() error { return nil }
