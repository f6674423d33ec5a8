package auth

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/okravchuk/contacts-api/internal/domain"
)

// Register creates an unverified account and dispatches the verification
// email. Uniqueness is enforced at the store boundary; a duplicate surfaces
// as email_already_exists.
func (s *Service) Register(ctx context.Context, email, password string) (RegisterResult, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" {
		return RegisterResult{}, domain.ErrMissingField("email")
	}
	if password == "" {
		return RegisterResult{}, domain.ErrMissingField("password")
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return RegisterResult{}, domain.ErrHashFailed(err)
	}

	u := domain.User{
		ID:            uuid.NewString(),
		Email:         email,
		PasswordHash:  hash,
		Role:          string(domain.RoleUser),
		EmailVerified: false,
	}

	created, err := s.users.Create(ctx, u)
	if err != nil {
		return RegisterResult{}, err
	}

	toks, err := s.issueTokens(created)
	if err != nil {
		return RegisterResult{}, err
	}

	// Verification link delivery is best-effort here: the account exists
	// either way and the user can re-request from /verify-email/request.
	if err := s.dispatchVerifyEmail(ctx, created); err != nil {
		s.audit("register.verify_email_dispatch_failed", map[string]string{
			"user_id": created.ID,
			"error":   err.Error(),
		})
	}

	s.audit("register", map[string]string{"user_id": created.ID})

	return RegisterResult{User: created, Tokens: toks}, nil
}
