package main

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// createRecordScript writes the record only when the key is absent, and binds
// the TTL to the whole key in the same atomic step.
var createRecordScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 1 then
  return 0
end
for i = 2, #ARGV, 2 do
  redis.call('HSET', KEYS[1], ARGV[i], ARGV[i+1])
end
redis.call('EXPIRE', KEYS[1], ARGV[1])
return 1
`)

// boundedAppendScript: -1 key absent, 0 list full, 1 value already present,
// 2 appended. The existence, membership, and capacity checks run atomically
// with the append, which is what keeps the member cap intact under
// concurrent admission attempts.
var boundedAppendScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then
  return -1
end
local raw = redis.call('HGET', KEYS[1], ARGV[1])
local list = {}
if raw and raw ~= '' and raw ~= '[]' then
  list = cjson.decode(raw)
end
for _, v in ipairs(list) do
  if v == ARGV[2] then
    return 1
  end
end
if #list >= tonumber(ARGV[3]) then
  return 0
end
table.insert(list, ARGV[2])
redis.call('HSET', KEYS[1], ARGV[1], cjson.encode(list))
return 2
`)

// incrWindowScript establishes the window expiry together with the first
// increment, so no counter can exist without a TTL.
var incrWindowScript = redis.NewScript(`
local count = redis.call('INCR', KEYS[1])
if count == 1 then
  redis.call('PEXPIRE', KEYS[1], ARGV[1])
end
return {count, redis.call('PTTL', KEYS[1])}
`)

type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(ctx context.Context, redisURL string) (*RedisStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	return &RedisStore{client: client}, nil
}

func (s *RedisStore) CreateRecord(ctx context.Context, key string, fields map[string]string, ttl time.Duration) (bool, error) {
	args := make([]interface{}, 0, 1+2*len(fields))
	args = append(args, strconv.Itoa(int(ttl.Seconds())))
	for k, v := range fields {
		args = append(args, k, v)
	}

	created, err := createRecordScript.Run(ctx, s.client, []string{key}, args...).Int64()
	if err != nil {
		return false, unavailable(err)
	}
	return created == 1, nil
}

func (s *RedisStore) Record(ctx context.Context, key string) (map[string]string, error) {
	fields, err := s.client.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, unavailable(err)
	}
	if len(fields) == 0 {
		return nil, nil
	}
	return fields, nil
}

func (s *RedisStore) RecordTTL(ctx context.Context, key string) (time.Duration, error) {
	ttl, err := s.client.TTL(ctx, key).Result()
	if err != nil {
		return 0, unavailable(err)
	}
	if ttl < 0 {
		return 0, nil
	}
	return ttl, nil
}

func (s *RedisStore) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, key).Err(); err != nil {
		return unavailable(err)
	}
	return nil
}

func (s *RedisStore) BoundedAppend(ctx context.Context, key, field, value string, max int) (AppendOutcome, error) {
	res, err := boundedAppendScript.Run(ctx, s.client, []string{key}, field, value, max).Int64()
	if err != nil {
		return AppendNotFound, unavailable(err)
	}
	switch res {
	case 0:
		return AppendFull, nil
	case 1:
		return AppendMember, nil
	case 2:
		return Appended, nil
	default:
		return AppendNotFound, nil
	}
}

func (s *RedisStore) IncrWindow(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	res, err := incrWindowScript.Run(ctx, s.client, []string{key}, window.Milliseconds()).Slice()
	if err != nil {
		return 0, 0, unavailable(err)
	}
	if len(res) != 2 {
		return 0, 0, unavailable(fmt.Errorf("unexpected script reply %v", res))
	}
	count, _ := res[0].(int64)
	remainingMS, _ := res[1].(int64)
	return count, time.Duration(remainingMS) * time.Millisecond, nil
}

func (s *RedisStore) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return unavailable(err)
	}
	return nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}

func unavailable(err error) error {
	return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
}
