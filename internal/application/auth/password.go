package auth

import (
	"context"

	"github.com/okravchuk/contacts-api/internal/domain"
)

// ChangePassword verifies the old secret, stores the new hash, and bumps the
// generation so every outstanding refresh token is invalidated. The bump and
// the hash update go through the cache-evicting repo, so no stale identity
// snapshot survives the change.
func (s *Service) ChangePassword(ctx context.Context, userID, oldPassword, newPassword string) error {
	if userID == "" {
		return domain.ErrMissingField("user_id")
	}
	if oldPassword == "" {
		return domain.ErrMissingField("old_password")
	}
	if newPassword == "" {
		return domain.ErrMissingField("new_password")
	}

	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return err
	}

	if err := s.hasher.Compare(u.PasswordHash, oldPassword); err != nil {
		return domain.ErrInvalidCredentials()
	}

	newHash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return domain.ErrHashFailed(err)
	}

	if err := s.users.UpdatePasswordHash(ctx, userID, newHash); err != nil {
		return err
	}

	// Logout everywhere: refresh tokens minted before this instant now fail
	// with token_superseded.
	if _, err := s.users.BumpGeneration(ctx, userID); err != nil {
		return err
	}

	s.audit("password.changed", map[string]string{"user_id": userID})
	return nil
}
