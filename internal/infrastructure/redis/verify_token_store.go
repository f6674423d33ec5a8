package redis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/okravchuk/contacts-api/internal/application/auth"
	"github.com/okravchuk/contacts-api/internal/domain"
)

// VerifyTokenStore holds single-use verification tokens.
//
// Key layout:
//   - vt:<purpose>:<token>   -> "<uid>|<expUnix>|<used 0/1>"
//   - vtcur:<purpose>:<uid>  -> <token>   (latest outstanding token)
//
// The record's Redis TTL is the logical TTL plus a retention window, so a
// lapsed token still reads back as expired (410) instead of unknown (404)
// until retention runs out. Consume is a Lua compare-and-set on the used
// marker: atomic under concurrent attempts, exactly one caller wins.
type VerifyTokenStore struct {
	rdb       *goredis.Client
	prefix    string
	curPrefix string
	retention time.Duration
	nowFn     func() time.Time
}

const defaultRetention = 24 * time.Hour

func NewVerifyTokenStore(c *Client) *VerifyTokenStore {
	var rdb *goredis.Client
	if c != nil {
		rdb = c.rdb
	}
	return &VerifyTokenStore{
		rdb:       rdb,
		prefix:    "vt:",
		curPrefix: "vtcur:",
		retention: defaultRetention,
		nowFn:     time.Now,
	}
}

// WithClock overrides the time source. Test hook.
func (s *VerifyTokenStore) WithClock(now func() time.Time) *VerifyTokenStore {
	if now != nil {
		s.nowFn = now
	}
	return s
}

func (s *VerifyTokenStore) key(purpose auth.VerifyTokenPurpose, token string) string {
	return s.prefix + string(purpose) + ":" + token
}

func (s *VerifyTokenStore) curKey(purpose auth.VerifyTokenPurpose, userID string) string {
	return s.curPrefix + string(purpose) + ":" + userID
}

func (s *VerifyTokenStore) Save(ctx context.Context, purpose auth.VerifyTokenPurpose, token string, userID string, ttl time.Duration) error {
	token = strings.TrimSpace(token)
	userID = strings.TrimSpace(userID)
	if token == "" {
		return domain.ErrMissingField("token")
	}
	if userID == "" {
		return domain.ErrMissingField("user_id")
	}
	if ttl <= 0 {
		return domain.ErrMissingField("ttl")
	}
	if s.rdb == nil {
		return errors.New("redis verify-token store not configured")
	}

	// a new token supersedes any outstanding one for this subject+purpose
	cur := s.curKey(purpose, userID)
	if old, err := s.rdb.Get(ctx, cur).Result(); err == nil && old != "" {
		_ = s.rdb.Del(ctx, s.key(purpose, old)).Err()
	}

	exp := s.nowFn().Add(ttl).Unix()
	val := fmt.Sprintf("%s|%d|0", userID, exp)
	keep := ttl + s.retention

	if err := s.rdb.Set(ctx, s.key(purpose, token), val, keep).Err(); err != nil {
		return domain.ErrStoreUnavailable(err)
	}
	if err := s.rdb.Set(ctx, cur, token, keep).Err(); err != nil {
		return domain.ErrStoreUnavailable(err)
	}
	return nil
}

// consumeScript flips the used marker exactly once. Returns:
//
//	nil       -> unknown token (never issued or past retention)
//	"USED"    -> already consumed
//	"EXPIRED" -> logically expired, still within retention
//	uid       -> consumed now, caller owns the success path
const consumeScript = `
local v = redis.call("GET", KEYS[1])
if not v then
  return nil
end
local uid, exp, used = string.match(v, "^([^|]+)|(%d+)|(%d)$")
if not uid then
  return nil
end
if used == "1" then
  return "USED"
end
if tonumber(exp) < tonumber(ARGV[1]) then
  return "EXPIRED"
end
local ttl = redis.call("PTTL", KEYS[1])
if ttl > 0 then
  redis.call("SET", KEYS[1], uid .. "|" .. exp .. "|1", "PX", ttl)
else
  redis.call("SET", KEYS[1], uid .. "|" .. exp .. "|1")
end
return uid
`

func (s *VerifyTokenStore) Consume(ctx context.Context, purpose auth.VerifyTokenPurpose, token string) (string, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return "", domain.ErrVerifyTokenInvalid()
	}
	if s.rdb == nil {
		return "", errors.New("redis verify-token store not configured")
	}

	now := s.nowFn().Unix()
	res, err := s.rdb.Eval(ctx, consumeScript, []string{s.key(purpose, token)}, now).Result()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return "", domain.ErrVerifyTokenInvalid()
		}
		return "", domain.ErrStoreUnavailable(err)
	}
	if res == nil {
		return "", domain.ErrVerifyTokenInvalid()
	}

	out, ok := res.(string)
	if !ok || out == "" {
		return "", domain.ErrVerifyTokenInvalid()
	}
	switch out {
	case "USED":
		return "", domain.ErrVerifyTokenUsed()
	case "EXPIRED":
		return "", domain.ErrVerifyTokenExpired()
	}
	return out, nil
}
