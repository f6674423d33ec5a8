package auth

import (
	"context"

	"github.com/okravchuk/contacts-api/internal/domain"
)

// Refresh exchanges a valid refresh token for a fresh access+refresh pair.
// Signature and expiry are checked statelessly; the embedded generation is
// then compared against the stored one - a mismatch means the token was
// superseded by logout-all or a password change. A simple refresh never
// advances the generation.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (AuthTokens, domain.User, error) {
	if refreshToken == "" {
		return AuthTokens{}, domain.User{}, domain.ErrTokenInvalid()
	}

	claims, err := s.signer.VerifyRefreshToken(refreshToken)
	if err != nil {
		return AuthTokens{}, domain.User{}, err
	}

	gen, err := s.users.GetGeneration(ctx, claims.UserID)
	if err != nil {
		if domain.Is(err, "user_not_found") {
			return AuthTokens{}, domain.User{}, domain.ErrTokenInvalid()
		}
		return AuthTokens{}, domain.User{}, err
	}
	if claims.Generation != gen {
		return AuthTokens{}, domain.User{}, domain.ErrTokenSuperseded()
	}

	u, err := s.users.GetByID(ctx, claims.UserID)
	if err != nil {
		if domain.Is(err, "user_not_found") {
			return AuthTokens{}, domain.User{}, domain.ErrTokenInvalid()
		}
		return AuthTokens{}, domain.User{}, err
	}

	toks, err := s.issueTokens(u)
	if err != nil {
		return AuthTokens{}, domain.User{}, err
	}

	return toks, u, nil
}
