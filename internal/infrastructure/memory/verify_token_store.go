package memory

import (
	"context"
	"sync"
	"time"

	"github.com/okravchuk/contacts-api/internal/application/auth"
	"github.com/okravchuk/contacts-api/internal/domain"
)

type tokenRecord struct {
	userID    string
	expiresAt time.Time
	used      bool
}

// VerifyTokenStore keeps single-use verification tokens in process memory.
// Mirrors the Redis store's semantics: a consumed or lapsed token reports
// used/expired rather than unknown, and reissuing invalidates the prior
// token for the same subject.
type VerifyTokenStore struct {
	mu      sync.Mutex
	data    map[string]*tokenRecord
	current map[string]string // purpose|userID -> latest token
	nowFn   func() time.Time
}

func NewVerifyTokenStore() *VerifyTokenStore {
	return &VerifyTokenStore{
		data:    make(map[string]*tokenRecord),
		current: make(map[string]string),
		nowFn:   time.Now,
	}
}

// WithClock overrides the time source. Test hook.
func (s *VerifyTokenStore) WithClock(now func() time.Time) *VerifyTokenStore {
	if now != nil {
		s.nowFn = now
	}
	return s
}

func key(purpose auth.VerifyTokenPurpose, token string) string {
	return string(purpose) + "|" + token
}

func (s *VerifyTokenStore) Save(ctx context.Context, purpose auth.VerifyTokenPurpose, token string, userID string, ttl time.Duration) error {
	if token == "" {
		return domain.ErrMissingField("token")
	}
	if userID == "" {
		return domain.ErrMissingField("user_id")
	}
	if ttl <= 0 {
		return domain.ErrMissingField("ttl")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cur := string(purpose) + "|" + userID
	if old, ok := s.current[cur]; ok {
		delete(s.data, key(purpose, old))
	}

	s.data[key(purpose, token)] = &tokenRecord{
		userID:    userID,
		expiresAt: s.nowFn().Add(ttl),
	}
	s.current[cur] = token
	return nil
}

func (s *VerifyTokenStore) Consume(ctx context.Context, purpose auth.VerifyTokenPurpose, token string) (string, error) {
	if token == "" {
		return "", domain.ErrVerifyTokenInvalid()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.data[key(purpose, token)]
	if !ok {
		return "", domain.ErrVerifyTokenInvalid()
	}
	if rec.used {
		return "", domain.ErrVerifyTokenUsed()
	}
	if s.nowFn().After(rec.expiresAt) {
		return "", domain.ErrVerifyTokenExpired()
	}
	rec.used = true
	return rec.userID, nil
}
