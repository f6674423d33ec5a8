package auth

import (
	"context"
	"strings"

	"github.com/okravchuk/contacts-api/internal/domain"
)

// SetUserRole is the privileged role mutation. The HTTP guard already
// requires admin; the service re-checks so the rule holds for any caller.
func (s *Service) SetUserRole(ctx context.Context, actorID, actorRole, targetID, role string) error {
	targetID = strings.TrimSpace(targetID)
	role = strings.TrimSpace(role)

	if targetID == "" {
		return domain.ErrMissingField("user_id")
	}
	if !domain.IsValidRole(role) {
		return domain.ErrInvalidRole(role)
	}
	if domain.RoleRank(actorRole) < domain.RoleRank(string(domain.RoleAdmin)) {
		return domain.ErrInsufficientRole(string(domain.RoleAdmin))
	}

	if err := s.users.SetRole(ctx, targetID, role); err != nil {
		return err
	}

	s.audit("role.set", map[string]string{
		"actor_id": actorID,
		"user_id":  targetID,
		"role":     role,
	})
	return nil
}
