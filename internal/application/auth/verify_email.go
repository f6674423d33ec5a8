package auth

import (
	"context"
	"strings"

	"github.com/okravchuk/contacts-api/internal/domain"
)

// RequestEmailVerification generates a single-use token and publishes an
// email event. Non-enumerating: an unknown email still reports success.
// Saving the new token invalidates any prior outstanding token for the user.
func (s *Service) RequestEmailVerification(ctx context.Context, email string) error {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" {
		return domain.ErrMissingField("email")
	}

	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if domain.Is(err, "user_not_found") {
			return nil
		}
		return err
	}
	if u.EmailVerified {
		return nil
	}

	return s.dispatchVerifyEmail(ctx, u)
}

// ConfirmEmailVerification consumes the token exactly once and flips the
// user's verified flag. The consume is a serialized compare-and-set in the
// token store, so concurrent attempts (double-click, retry) yield one
// success and verify_token_used for the rest.
func (s *Service) ConfirmEmailVerification(ctx context.Context, token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return domain.ErrVerifyTokenInvalid()
	}

	userID, err := s.verifyTokens.Consume(ctx, PurposeVerifyEmail, token)
	if err != nil {
		return err
	}

	if err := s.users.SetEmailVerified(ctx, userID); err != nil {
		// the consume already burned the token; put it back so the emailed
		// link survives a transient store failure instead of forcing the
		// user through a re-request
		if saveErr := s.verifyTokens.Save(ctx, PurposeVerifyEmail, token, userID, s.verifyEmailTTL); saveErr != nil {
			s.audit("verify_email.token_restore_failed", map[string]string{
				"user_id": userID,
			})
		}
		return err
	}

	s.audit("verify_email.confirmed", map[string]string{"user_id": userID})
	return nil
}

func (s *Service) dispatchVerifyEmail(ctx context.Context, u domain.User) error {
	token, err := newOpaqueToken(32)
	if err != nil {
		return domain.ErrRandomFailed(err)
	}

	if err := s.verifyTokens.Save(ctx, PurposeVerifyEmail, token, u.ID, s.verifyEmailTTL); err != nil {
		return err
	}

	return s.pub.PublishVerifyEmail(ctx, VerifyEmailEvent{
		UserID: u.ID,
		Email:  u.Email,
		URL:    s.verifyEmailBaseURL + token,
	})
}
