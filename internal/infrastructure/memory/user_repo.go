package memory

import (
	"context"
	"strings"
	"sync"

	"github.com/okravchuk/contacts-api/internal/domain"
)

// UserRepo is the in-memory identity store used for local development and
// as a fallback when no database is configured.
type UserRepo struct {
	mu      sync.RWMutex
	byID    map[string]domain.User
	byEmail map[string]string // email -> userID
}

func NewUserRepo() *UserRepo {
	return &UserRepo{
		byID:    make(map[string]domain.User),
		byEmail: make(map[string]string),
	}
}

func (r *UserRepo) GetByEmail(ctx context.Context, email string) (domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byEmail[strings.ToLower(email)]
	if !ok {
		return domain.User{}, domain.ErrUserNotFound()
	}
	return r.byID[id], nil
}

func (r *UserRepo) GetByID(ctx context.Context, id string) (domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.byID[id]
	if !ok {
		return domain.User{}, domain.ErrUserNotFound()
	}
	return u, nil
}

func (r *UserRepo) Create(ctx context.Context, u domain.User) (domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	email := strings.ToLower(u.Email)
	if _, exists := r.byEmail[email]; exists {
		return domain.User{}, domain.ErrEmailAlreadyExists()
	}
	if u.ID == "" {
		return domain.User{}, domain.ErrInternal(nil)
	}

	u.Email = email
	r.byID[u.ID] = u
	r.byEmail[email] = u.ID
	return u, nil
}

func (r *UserRepo) UpdatePasswordHash(ctx context.Context, userID string, newHash string) error {
	return r.mutate(userID, func(u *domain.User) { u.PasswordHash = newHash })
}

func (r *UserRepo) SetEmailVerified(ctx context.Context, userID string) error {
	return r.mutate(userID, func(u *domain.User) { u.EmailVerified = true })
}

func (r *UserRepo) SetRole(ctx context.Context, userID string, role string) error {
	return r.mutate(userID, func(u *domain.User) { u.Role = role })
}

func (r *UserRepo) SetAvatarURL(ctx context.Context, userID string, url string) error {
	return r.mutate(userID, func(u *domain.User) { u.AvatarURL = url })
}

func (r *UserRepo) GetGeneration(ctx context.Context, userID string) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.byID[userID]
	if !ok {
		return 0, domain.ErrUserNotFound()
	}
	return u.TokenGeneration, nil
}

func (r *UserRepo) BumpGeneration(ctx context.Context, userID string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.byID[userID]
	if !ok {
		return 0, domain.ErrUserNotFound()
	}
	u.TokenGeneration++
	r.byID[userID] = u
	return u.TokenGeneration, nil
}

func (r *UserRepo) mutate(userID string, fn func(*domain.User)) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.byID[userID]
	if !ok {
		return domain.ErrUserNotFound()
	}
	fn(&u)
	r.byID[userID] = u
	return nil
}
