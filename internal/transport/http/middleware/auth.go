package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/okravchuk/contacts-api/internal/application/auth"
	"github.com/okravchuk/contacts-api/internal/domain"
)

type TokenVerifier interface {
	VerifyAccessToken(token string) (auth.AccessClaims, error)
}

// IdentityResolver loads the caller's current snapshot. Backed by the
// read-through cache in production wiring.
type IdentityResolver interface {
	GetByEmail(ctx context.Context, email string) (domain.User, error)
}

type WriteErrFunc func(http.ResponseWriter, *http.Request, error)

// Auth verifies Authorization: Bearer <access_token> and injects the
// resolved identity into request context. The token authenticates the
// caller; role and verification state come from the store so an admin
// demotion takes effect without waiting for token expiry.
func Auth(verifier TokenVerifier, identities IdentityResolver, writeErr WriteErrFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := r.Header.Get("Authorization")
			if h == "" {
				writeErr(w, r, domain.ErrTokenMissing())
				return
			}

			parts := strings.SplitN(h, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
				writeErr(w, r, domain.ErrTokenInvalid())
				return
			}

			raw := strings.TrimSpace(parts[1])
			if raw == "" {
				writeErr(w, r, domain.ErrTokenInvalid())
				return
			}

			claims, err := verifier.VerifyAccessToken(raw)
			if err != nil {
				writeErr(w, r, err)
				return
			}
			if strings.TrimSpace(claims.UserID) == "" || strings.TrimSpace(claims.Email) == "" {
				writeErr(w, r, domain.ErrTokenInvalid())
				return
			}

			id := Identity{
				UserID: claims.UserID,
				Email:  claims.Email,
				Role:   claims.Role,
			}

			if identities != nil {
				u, err := identities.GetByEmail(r.Context(), claims.Email)
				if err != nil {
					// A deleted user keeps a valid-looking token; treat as auth failure.
					if domain.Is(err, "user_not_found") {
						writeErr(w, r, domain.ErrTokenInvalid())
						return
					}
					writeErr(w, r, err)
					return
				}
				if u.ID != claims.UserID {
					writeErr(w, r, domain.ErrTokenInvalid())
					return
				}
				id.Role = u.Role
				id.EmailVerified = u.EmailVerified
			}

			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
		})
	}
}
