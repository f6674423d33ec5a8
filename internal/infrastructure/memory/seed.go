package memory

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/okravchuk/contacts-api/internal/domain"
)

// Hasher is the minimal surface needed for seeding.
type Hasher interface {
	Hash(password string) (string, error)
}

// SeedUsers creates initial users for local development (in-memory only).
// Safe to call multiple times (duplicates ignored).
func SeedUsers(ctx context.Context, users *UserRepo, hasher Hasher) {
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

		if _, err := users.Create(ctx, u); err != nil {
			// duplicate on restart, ignore
			continue
		}
	}

	log.Info().Msg("seed: in-memory users ready")
}
