package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"time"

	"github.com/okravchuk/contacts-api/internal/domain"
)

type Service struct {
	users        UserRepo
	hasher       PasswordHasher
	signer       TokenSigner
	verifyTokens VerifyTokenStore
	pub          EventPublisher
	avatars      AvatarStore

	accessTTL  time.Duration
	refreshTTL time.Duration

	// URL used to build links sent via the email-service
	verifyEmailBaseURL string // e.g. https://frontend/verify-email?token=
	verifyEmailTTL     time.Duration

	avatarJobs chan avatarJob

	audit func(action string, fields map[string]string)
}

type Config struct {
	AccessTTL           time.Duration
	RefreshTTL          time.Duration
	VerifyEmailBaseURL  string
	VerifyEmailTokenTTL time.Duration
	AvatarQueueSize     int
}

func NewService(
	users UserRepo,
	hasher PasswordHasher,
	signer TokenSigner,
	verifyTokens VerifyTokenStore,
	pub EventPublisher,
	avatars AvatarStore,
	cfg Config,
) *Service {
	verifyTTL := cfg.VerifyEmailTokenTTL
	if verifyTTL <= 0 {
		verifyTTL = 24 * time.Hour
	}
	queueSize := cfg.AvatarQueueSize
	if queueSize <= 0 {
		queueSize = 64
	}
	return &Service{
		users:        users,
		hasher:       hasher,
		signer:       signer,
		verifyTokens: verifyTokens,
		pub:          pub,
		avatars:      avatars,

		accessTTL:  cfg.AccessTTL,
		refreshTTL: cfg.RefreshTTL,

		verifyEmailBaseURL: cfg.VerifyEmailBaseURL,
		verifyEmailTTL:     verifyTTL,

		avatarJobs: make(chan avatarJob, queueSize),

		audit: func(string, map[string]string) {},
	}
}

// WithAudit installs an audit sink (typically the structured logger).
func (s *Service) WithAudit(fn func(action string, fields map[string]string)) *Service {
	if fn != nil {
		s.audit = fn
	}
	return s
}

// AuthTokens is the common token output for handlers/DTO mapping.
type AuthTokens struct {
	AccessToken  string
	RefreshToken string
	ExpiresIn    int64  // seconds until the access token expires
	TokenType    string // "Bearer"
}

type LoginResult struct {
	User   domain.User
	Tokens AuthTokens
}

type RegisterResult struct {
	User   domain.User
	Tokens AuthTokens
}

// issueTokens mints an access+refresh pair for a user. Both tokens embed the
// user's current generation; refresh tokens become superseded once it bumps.
func (s *Service) issueTokens(u domain.User) (AuthTokens, error) {
	access, err := s.signer.SignAccessToken(u, s.accessTTL)
	if err != nil {
		return AuthTokens{}, domain.ErrTokenSignFailed(err)
	}

	refresh, err := s.signer.SignRefreshToken(u, s.refreshTTL)
	if err != nil {
		return AuthTokens{}, domain.ErrTokenSignFailed(err)
	}

	return AuthTokens{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "Bearer",
		ExpiresIn:    int64(s.accessTTL.Seconds()),
	}, nil
}

// newOpaqueToken returns a URL-safe opaque token.
func newOpaqueToken(bytesLen int) (string, error) {
	if bytesLen <= 0 {
		return "", errors.New("invalid token length")
	}
	b := make([]byte, bytesLen)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// GetUserByID loads an identity for display (the /me endpoint).
func (s *Service) GetUserByID(ctx context.Context, userID string) (domain.User, error) {
	if userID == "" {
		return domain.User{}, domain.ErrMissingField("user_id")
	}
	return s.users.GetByID(ctx, userID)
}
