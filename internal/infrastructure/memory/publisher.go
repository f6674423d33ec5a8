package memory

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/okravchuk/contacts-api/internal/application/auth"
)

// NoopPublisher logs events instead of publishing them. Used when no
// broker is configured (local development, tests).
type NoopPublisher struct{}

func NewNoopPublisher() *NoopPublisher { return &NoopPublisher{} }

func (p *NoopPublisher) PublishVerifyEmail(ctx context.Context, evt auth.VerifyEmailEvent) error {
	log.Info().
		Str("user_id", evt.UserID).
		Str("email", evt.Email).
		Str("url", evt.URL).
		Msg("noop publisher: verify email requested")
	return nil
}
