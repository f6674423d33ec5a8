package auth

import (
	"context"
	"strconv"

	"github.com/okravchuk/contacts-api/internal/domain"
)

// LogoutAll bumps the user's token generation, atomically invalidating every
// outstanding refresh token. Access tokens stay valid until their short
// expiry; there is no per-token revocation list.
func (s *Service) LogoutAll(ctx context.Context, userID string) error {
	if userID == "" {
		return domain.ErrMissingField("user_id")
	}

	gen, err := s.users.BumpGeneration(ctx, userID)
	if err != nil {
		return err
	}

	s.audit("logout_all", map[string]string{
		"user_id":    userID,
		"generation": strconv.FormatInt(gen, 10),
	})
	return nil
}
