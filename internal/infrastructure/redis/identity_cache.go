package redis

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/okravchuk/contacts-api/internal/application/auth"
	"github.com/okravchuk/contacts-api/internal/domain"
)

// CachedUserRepo decorates an auth.UserRepo with a read-through Redis cache:
// - identity snapshots keyed by lowercased email ("idc:<email>"), JSON, TTL
// - token generation keyed by user id ("gen:<uid>"), write-through on bump
// Every identity mutation evicts the email key after the store write and
// before the method returns, so the next resolve observes post-mutation
// state. Redis failures are absorbed: the cache is an optimization and must
// never fail the authentication path.
type CachedUserRepo struct {
	inner auth.UserRepo
	rdb   *goredis.Client
	ttl   time.Duration

	idPref  string
	genPref string
}

func NewCachedUserRepo(inner auth.UserRepo, client *Client, ttl time.Duration) *CachedUserRepo {
	var rdb *goredis.Client
	if client != nil {
		rdb = client.rdb
	}
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &CachedUserRepo{
		inner:   inner,
		rdb:     rdb,
		ttl:     ttl,
		idPref:  "idc:",
		genPref: "gen:",
	}
}

// snapshot is the cached wire form of a domain.User.
type snapshot struct {
	ID              string `json:"id"`
	Email           string `json:"email"`
	PasswordHash    string `json:"password_hash"`
	Role            string `json:"role"`
	EmailVerified   bool   `json:"email_verified"`
	AvatarURL       string `json:"avatar_url,omitempty"`
	TokenGeneration int64  `json:"token_generation"`
}

func toSnapshot(u domain.User) snapshot {
	return snapshot{
		ID:              u.ID,
		Email:           u.Email,
		PasswordHash:    u.PasswordHash,
		Role:            u.Role,
		EmailVerified:   u.EmailVerified,
		AvatarURL:       u.AvatarURL,
		TokenGeneration: u.TokenGeneration,
	}
}

func (s snapshot) toUser() domain.User {
	return domain.User{
		ID:              s.ID,
		Email:           s.Email,
		PasswordHash:    s.PasswordHash,
		Role:            s.Role,
		EmailVerified:   s.EmailVerified,
		AvatarURL:       s.AvatarURL,
		TokenGeneration: s.TokenGeneration,
	}
}

func (c *CachedUserRepo) emailKey(email string) string {
	return c.idPref + strings.ToLower(strings.TrimSpace(email))
}

func (c *CachedUserRepo) genKey(userID string) string {
	return c.genPref + userID
}

// GetByEmail is the read-through resolve path: cache hit returns the
// snapshot, a miss loads from the store and populates with TTL.
func (c *CachedUserRepo) GetByEmail(ctx context.Context, email string) (domain.User, error) {
	key := c.emailKey(email)

	if c.rdb != nil {
		raw, err := c.rdb.Get(ctx, key).Result()
		if err == nil {
			var snap snapshot
			if jerr := json.Unmarshal([]byte(raw), &snap); jerr == nil && snap.ID != "" {
				return snap.toUser(), nil
			}
			// corrupt entry: drop it and fall through to the store
			_ = c.rdb.Del(ctx, key).Err()
		}
		// goredis.Nil and transport errors both fall back to the store
	}

	u, err := c.inner.GetByEmail(ctx, email)
	if err != nil {
		return domain.User{}, err
	}

	if c.rdb != nil {
		if raw, jerr := json.Marshal(toSnapshot(u)); jerr == nil {
			_ = c.rdb.Set(ctx, key, raw, c.ttl).Err()
		}
	}

	return u, nil
}

func (c *CachedUserRepo) GetByID(ctx context.Context, id string) (domain.User, error) {
	return c.inner.GetByID(ctx, id)
}

func (c *CachedUserRepo) Create(ctx context.Context, u domain.User) (domain.User, error) {
	// writes are never cached speculatively; the first resolve populates
	return c.inner.Create(ctx, u)
}

func (c *CachedUserRepo) UpdatePasswordHash(ctx context.Context, userID string, newHash string) error {
	email := c.lookupEmail(ctx, userID)
	if err := c.inner.UpdatePasswordHash(ctx, userID, newHash); err != nil {
		return err
	}
	c.evict(ctx, userID, email)
	return nil
}

func (c *CachedUserRepo) SetEmailVerified(ctx context.Context, userID string) error {
	email := c.lookupEmail(ctx, userID)
	if err := c.inner.SetEmailVerified(ctx, userID); err != nil {
		return err
	}
	c.evict(ctx, userID, email)
	return nil
}

func (c *CachedUserRepo) SetRole(ctx context.Context, userID string, role string) error {
	email := c.lookupEmail(ctx, userID)
	if err := c.inner.SetRole(ctx, userID, role); err != nil {
		return err
	}
	c.evict(ctx, userID, email)
	return nil
}

func (c *CachedUserRepo) SetAvatarURL(ctx context.Context, userID string, url string) error {
	email := c.lookupEmail(ctx, userID)
	if err := c.inner.SetAvatarURL(ctx, userID, url); err != nil {
		return err
	}
	c.evict(ctx, userID, email)
	return nil
}

func (c *CachedUserRepo) GetGeneration(ctx context.Context, userID string) (int64, error) {
	if c.rdb != nil {
		raw, err := c.rdb.Get(ctx, c.genKey(userID)).Result()
		if err == nil {
			if v, perr := strconv.ParseInt(raw, 10, 64); perr == nil {
				return v, nil
			}
		}
	}

	v, err := c.inner.GetGeneration(ctx, userID)
	if err != nil {
		return 0, err
	}

	if c.rdb != nil {
		_ = c.rdb.Set(ctx, c.genKey(userID), strconv.FormatInt(v, 10), c.ttl).Err()
	}
	return v, nil
}

func (c *CachedUserRepo) BumpGeneration(ctx context.Context, userID string) (int64, error) {
	email := c.lookupEmail(ctx, userID)
	v, err := c.inner.BumpGeneration(ctx, userID)
	if err != nil {
		return 0, err
	}

	if c.rdb != nil {
		// write-through: SET beats DEL here, a concurrent refresh must see
		// the new generation immediately
		_ = c.rdb.Set(ctx, c.genKey(userID), strconv.FormatInt(v, 10), c.ttl).Err()
	}
	c.evict(ctx, userID, email)
	return v, nil
}

// lookupEmail resolves the email key ahead of a mutation, so eviction never
// depends on a read issued after the write. Emails are immutable here, which
// is what makes the pre-captured key safe to use.
func (c *CachedUserRepo) lookupEmail(ctx context.Context, userID string) string {
	if c.rdb == nil {
		return ""
	}
	u, err := c.inner.GetByID(ctx, userID)
	if err != nil {
		return ""
	}
	return u.Email
}

// evict drops the email-keyed snapshot using the pre-captured email, falling
// back to a store read only when the capture came up empty. Failures are
// ignored - TTL bounds the staleness window either way.
func (c *CachedUserRepo) evict(ctx context.Context, userID string, email string) {
	if c.rdb == nil {
		return
	}
	if email == "" {
		email = c.lookupEmail(ctx, userID)
	}
	if email == "" {
		return
	}
	_ = c.rdb.Del(ctx, c.emailKey(email)).Err()
}
