package postgres

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/okravchuk/contacts-api/internal/domain"
)

type SeederHasher interface {
	Hash(password string) (string, error)
}

type SeederRepo interface {
	Create(ctx context.Context, u domain.User) (domain.User, error)
}

// SeedUsers inserts the default local-development accounts. Restart safe:
// duplicate emails are skipped.
func SeedUsers(ctx context.Context, repo SeederRepo, hasher SeederHasher) {
	type seedUser struct {
		Email string
		Role  string
		Pass  string
	}

	seeds := []seedUser{
		{Email: "admin@example.com", Role: string(domain.RoleAdmin), Pass: "AdminPassword123!"},
		{Email: "user@example.com", Role: string(domain.RoleUser), Pass: "UserPassword123!"},
	}

	for _, s := range seeds {
		hash, err := hasher.Hash(s.Pass)
		if err != nil {
			log.Warn().Err(err).Str("email", s.Email).Msg("seed: hash failed")
			continue
		}

		u := domain.User{
			ID:            uuid.NewString(),
			Email:         s.Email,
			PasswordHash:  hash,
			Role:          s.Role,
			EmailVerified: true,
		}

		if _, err := repo.Create(ctx, u); err != nil {
			// duplicate on restart, skip
			continue
		}
	}

	log.Info().Msg("seed: postgres users ready")
}
