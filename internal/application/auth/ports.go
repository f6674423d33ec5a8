package auth

import (
	"context"
	"time"

	"github.com/okravchuk/contacts-api/internal/domain"
)

/*
UserRepo
--------
Persistence port for identities.
Only describes WHAT the auth service needs, not HOW it's stored.
The repo is the sole source of truth; callers never cache writes speculatively.
*/
type UserRepo interface {
	GetByEmail(ctx context.Context, email string) (domain.User, error)
	GetByID(ctx context.Context, id string) (domain.User, error)
	Create(ctx context.Context, u domain.User) (domain.User, error)

	// Updates needed by business flows
	UpdatePasswordHash(ctx context.Context, userID string, newHash string) error
	SetEmailVerified(ctx context.Context, userID string) error
	SetRole(ctx context.Context, userID string, role string) error
	SetAvatarURL(ctx context.Context, userID string, url string) error

	// Refresh-token generation. Bump is atomic with respect to concurrent
	// refresh attempts: a racing reader observes the old or the new value,
	// never a torn one.
	GetGeneration(ctx context.Context, userID string) (int64, error)
	BumpGeneration(ctx context.Context, userID string) (int64, error)
}

/*
PasswordHasher
--------------
Abstracts bcrypt. Compare returns nil on match; a mismatch is a normal
outcome, not an infrastructure error.
*/
type PasswordHasher interface {
	Hash(password string) (string, error)
	Compare(hash string, password string) error
}

/*
TokenSigner
-----------
Issues and verifies the two stateless token classes.
Verification is pure computation: signature + expiry only, no store access.
*/
type AccessClaims struct {
	UserID     string
	Email      string
	Role       string
	Generation int64
	Exp        time.Time
}

type RefreshClaims struct {
	UserID     string
	Generation int64
	Exp        time.Time
}

type TokenSigner interface {
	SignAccessToken(u domain.User, ttl time.Duration) (string, error)
	SignRefreshToken(u domain.User, ttl time.Duration) (string, error)
	VerifyAccessToken(token string) (AccessClaims, error)
	VerifyRefreshToken(token string) (RefreshClaims, error)
}

/*
VerifyTokenStore
----------------
Single-use, time-boxed tokens delivered out-of-band (emailed links).
Consume is atomic across concurrent attempts on the same token: exactly one
caller succeeds, the rest see verify_token_used. Saving a new token for a
subject+purpose invalidates any prior outstanding token.
*/
type VerifyTokenPurpose string

const PurposeVerifyEmail VerifyTokenPurpose = "verify_email"

type VerifyTokenStore interface {
	Save(ctx context.Context, purpose VerifyTokenPurpose, token string, userID string, ttl time.Duration) error
	Consume(ctx context.Context, purpose VerifyTokenPurpose, token string) (userID string, err error)
}

/*
EventPublisher
--------------
Publishes events to the broker. The email-service consumes these and talks
SMTP; auth never blocks on mail delivery.
*/
type EventPublisher interface {
	PublishVerifyEmail(ctx context.Context, evt VerifyEmailEvent) error
}

type VerifyEmailEvent struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	URL    string `json:"url"`
}

/*
AvatarStore
-----------
Opaque object storage for avatar images. Upload returns a public reference;
the auth core stores only that string.
*/
type AvatarStore interface {
	Upload(ctx context.Context, data []byte, contentType string) (string, error)
}
