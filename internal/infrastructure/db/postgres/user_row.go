package postgres

import (
	"database/sql"
	"time"

	"github.com/okravchuk/contacts-api/internal/domain"
)

type userRow struct {
	ID              string
	Email           string
	PasswordHash    string
	Role            string
	EmailVerified   bool
	AvatarURL       sql.NullString
	TokenGeneration int64
	CreatedAt       time.Time
}

func (ur userRow) toDomain() domain.User {
	return domain.User{
		ID:              ur.ID,
		Email:           ur.Email,
		PasswordHash:    ur.PasswordHash,
		Role:            ur.Role,
		EmailVerified:   ur.EmailVerified,
		AvatarURL:       ur.AvatarURL.String,
		TokenGeneration: ur.TokenGeneration,
	}
}
