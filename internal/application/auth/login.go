package auth

import (
	"context"
	"strings"

	"github.com/okravchuk/contacts-api/internal/domain"
)

// Login authenticates a user and issues a token pair.
// IMPORTANT: must not leak whether the email exists (avoid user enumeration).
func (s *Service) Login(ctx context.Context, email, password string) (LoginResult, error) {
	email = strings.TrimSpace(strings.ToLower(email))

	if email == "" || password == "" {
		return LoginResult{}, domain.ErrInvalidCredentials()
	}

	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if domain.Is(err, "user_not_found") {
			// Hide not-found behind invalid credentials.
			return LoginResult{}, domain.ErrInvalidCredentials()
		}
		// Store outages stay visible as 503, not as a credentials failure.
		return LoginResult{}, err
	}

	if err := s.hasher.Compare(u.PasswordHash, password); err != nil {
		return LoginResult{}, domain.ErrInvalidCredentials()
	}

	toks, err := s.issueTokens(u)
	if err != nil {
		return LoginResult{}, err
	}

	s.audit("login", map[string]string{"user_id": u.ID})

	return LoginResult{User: u, Tokens: toks}, nil
}
