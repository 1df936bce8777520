// Package redis keeps OTP records in Redis. Each record is a hash under
// {prefix}:otp:{id}; a sorted set per (type, email) indexes the ids by
// creation time. Records expire on their own via key TTLs.
package redis

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/aussiebroadwan/fastlink/internal/auth/domain"
	"github.com/aussiebroadwan/fastlink/internal/auth/store"
	"github.com/redis/go-redis/v9"
)

// DefaultGrace is how long a record outlives its expiry before Redis reaps it,
// so late verify calls still see an Expired record rather than nothing.
const DefaultGrace = 5 * time.Minute

// KEYS[1] = record key, ARGV[1] = max attempts.
// Returns the new count, -1 when missing, -2 when the guard fails.
var incrementAttemptsLua = redis.NewScript(`
local a = redis.call('HGET', KEYS[1], 'attempts')
if not a then
  return -1
end
if tonumber(a) >= tonumber(ARGV[1]) then
  return -2
end
return redis.call('HINCRBY', KEYS[1], 'attempts', 1)
`)

// KEYS[1] = record key. Returns 1 when flipped, 0 when already used, -1 when missing.
var markUsedLua = redis.NewScript(`
local u = redis.call('HGET', KEYS[1], 'used')
if not u then
  return -1
end
if u == '1' then
  return 0
end
redis.call('HSET', KEYS[1], 'used', '1')
return 1
`)

type OTPStore struct {
	redis  redis.UniversalClient
	prefix string
	grace  time.Duration
}

func NewOTPStore(client redis.UniversalClient, prefix string) *OTPStore {
	if prefix == "" {
		prefix = "fastlink"
	}
	return &OTPStore{redis: client, prefix: prefix, grace: DefaultGrace}
}

// Ping checks the Redis connection.
func (s *OTPStore) Ping(ctx context.Context) error {
	return s.redis.Ping(ctx).Err()
}

func (s *OTPStore) recordKey(id string) string {
	return s.prefix + ":otp:" + id
}

func (s *OTPStore) indexKey(email string, typ domain.OTPType) string {
	return s.prefix + ":otp:idx:" + string(typ) + ":" + email
}

func (s *OTPStore) CreateOTP(ctx context.Context, o domain.OTP) error {
	key := s.recordKey(o.ID)
	idx := s.indexKey(o.Email, o.Type)
	expireAt := o.ExpiresAt.Add(s.grace)

	_, err := s.redis.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.HSet(ctx, key, map[string]any{
			"email":      o.Email,
			"code":       o.Code,
			"type":       string(o.Type),
			"attempts":   o.Attempts,
			"used":       boolField(o.Used),
			"expires_at": o.ExpiresAt.UnixMilli(),
			"created_at": o.CreatedAt.UnixMilli(),
		})
		p.ExpireAt(ctx, key, expireAt)
		p.ZAdd(ctx, idx, redis.Z{Score: float64(o.CreatedAt.UnixMilli()), Member: o.ID})
		p.ExpireAt(ctx, idx, expireAt)
		return nil
	})
	return err
}

func (s *OTPStore) load(ctx context.Context, id string) (domain.OTP, error) {
	fields, err := s.redis.HGetAll(ctx, s.recordKey(id)).Result()
	if err != nil {
		return domain.OTP{}, err
	}
	if len(fields) == 0 {
		return domain.OTP{}, store.ErrNotFound
	}
	return decodeOTP(id, fields)
}

// FindActiveOTP walks the index newest first. Ids whose record has expired
// out of Redis are pruned from the index on the way.
func (s *OTPStore) FindActiveOTP(ctx context.Context, email string, typ domain.OTPType) (domain.OTP, error) {
	idx := s.indexKey(email, typ)
	ids, err := s.redis.ZRevRange(ctx, idx, 0, -1).Result()
	if err != nil {
		return domain.OTP{}, err
	}
	for _, id := range ids {
		o, err := s.load(ctx, id)
		if errors.Is(err, store.ErrNotFound) {
			s.redis.ZRem(ctx, idx, id)
			continue
		}
		if err != nil {
			return domain.OTP{}, err
		}
		if !o.Used {
			return o, nil
		}
	}
	return domain.OTP{}, store.ErrNotFound
}

func (s *OTPStore) DeleteUnusedOTPs(ctx context.Context, email string, typ domain.OTPType) error {
	idx := s.indexKey(email, typ)
	ids, err := s.redis.ZRange(ctx, idx, 0, -1).Result()
	if err != nil {
		return err
	}
	for _, id := range ids {
		used, err := s.redis.HGet(ctx, s.recordKey(id), "used").Result()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if used == "1" {
			continue
		}
		if _, err := s.redis.TxPipelined(ctx, func(p redis.Pipeliner) error {
			p.Del(ctx, s.recordKey(id))
			p.ZRem(ctx, idx, id)
			return nil
		}); err != nil {
			return err
		}
	}
	return nil
}

func (s *OTPStore) IncrementOTPAttempts(ctx context.Context, id string, max int) (int, error) {
	n, err := incrementAttemptsLua.Run(ctx, s.redis, []string{s.recordKey(id)}, max).Int()
	if err != nil {
		return 0, err
	}
	switch n {
	case -1:
		return 0, store.ErrNotFound
	case -2:
		return 0, store.ErrConflict
	}
	return n, nil
}

func (s *OTPStore) MarkOTPUsed(ctx context.Context, id string) error {
	n, err := markUsedLua.Run(ctx, s.redis, []string{s.recordKey(id)}).Int()
	if err != nil {
		return err
	}
	switch n {
	case -1:
		return store.ErrNotFound
	case 0:
		return store.ErrConflict
	}
	return nil
}

func (s *OTPStore) DeleteOTP(ctx context.Context, id string) error {
	key := s.recordKey(id)
	vals, err := s.redis.HMGet(ctx, key, "email", "type").Result()
	if err != nil {
		return err
	}
	email, _ := vals[0].(string)
	typ, _ := vals[1].(string)

	_, err = s.redis.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Del(ctx, key)
		if email != "" && typ != "" {
			p.ZRem(ctx, s.indexKey(email, domain.OTPType(typ)), id)
		}
		return nil
	})
	return err
}

// DeleteExpiredOTPs is a no-op; key TTLs reap records.
func (s *OTPStore) DeleteExpiredOTPs(ctx context.Context, now time.Time) (int64, error) {
	return 0, nil
}

func boolField(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

func decodeOTP(id string, f map[string]string) (domain.OTP, error) {
	attempts, err := strconv.Atoi(f["attempts"])
	if err != nil {
		return domain.OTP{}, err
	}
	expires, err := strconv.ParseInt(f["expires_at"], 10, 64)
	if err != nil {
		return domain.OTP{}, err
	}
	created, err := strconv.ParseInt(f["created_at"], 10, 64)
	if err != nil {
		return domain.OTP{}, err
	}
	return domain.OTP{
		ID:        id,
		Email:     f["email"],
		Code:      f["code"],
		Type:      domain.OTPType(f["type"]),
		Attempts:  attempts,
		Used:      f["used"] == "1",
		ExpiresAt: time.UnixMilli(expires).UTC(),
		CreatedAt: time.UnixMilli(created).UTC(),
	}, nil
}
