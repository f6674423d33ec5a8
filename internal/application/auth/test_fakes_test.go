package auth

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/okravchuk/contacts-api/internal/domain"
)

/*
Fakes for ports
*/

type fakeUserRepo struct {
	mu sync.Mutex

	byID    map[string]domain.User
	byEmail map[string]domain.User

	// injected errors (if set, method returns error)
	getByIDErr    error
	getByEmailErr error
	createErr     error
	setRoleErr    error
	updatePwdErr  error
	setVerErr     error
	bumpErr       error

	// record calls
	setRoles   []struct{ id, role string }
	updatedPwd []struct{ id, hash string }
	avatarURLs map[string]string
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{
		byID:       map[string]domain.User{},
		byEmail:    map[string]domain.User{},
		avatarURLs: map[string]string{},
	}
}

func (f *fakeUserRepo) put(u domain.User) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.byID[u.ID] = u
	f.byEmail[u.Email] = u
}

func (f *fakeUserRepo) GetByEmail(ctx context.Context, email string) (domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.getByEmailErr != nil {
		return domain.User{}, f.getByEmailErr
	}
	u, ok := f.byEmail[email]
	if !ok {
		return domain.User{}, domain.ErrUserNotFound()
	}
	return u, nil
}

func (f *fakeUserRepo) GetByID(ctx context.Context, id string) (domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.getByIDErr != nil {
		return domain.User{}, f.getByIDErr
	}
	u, ok := f.byID[id]
	if !ok {
		return domain.User{}, domain.ErrUserNotFound()
	}
	return u, nil
}

func (f *fakeUserRepo) Create(ctx context.Context, u domain.User) (domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.createErr != nil {
		return domain.User{}, f.createErr
	}
	if _, exists := f.byEmail[u.Email]; exists {
		return domain.User{}, domain.ErrEmailAlreadyExists()
	}
	f.byID[u.ID] = u
	f.byEmail[u.Email] = u
	return u, nil
}

func (f *fakeUserRepo) UpdatePasswordHash(ctx context.Context, userID string, newHash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.updatePwdErr != nil {
		return f.updatePwdErr
	}
	u, ok := f.byID[userID]
	if !ok {
		return domain.ErrUserNotFound()
	}
	u.PasswordHash = newHash
	f.byID[userID] = u
	f.byEmail[u.Email] = u
	f.updatedPwd = append(f.updatedPwd, struct{ id, hash string }{userID, newHash})
	return nil
}

func (f *fakeUserRepo) SetEmailVerified(ctx context.Context, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.setVerErr != nil {
		return f.setVerErr
	}
	u, ok := f.byID[userID]
	if !ok {
		return domain.ErrUserNotFound()
	}
	u.EmailVerified = true
	f.byID[userID] = u
	f.byEmail[u.Email] = u
	return nil
}

func (f *fakeUserRepo) SetRole(ctx context.Context, userID string, role string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.setRoleErr != nil {
		return f.setRoleErr
	}
	u, ok := f.byID[userID]
	if !ok {
		return domain.ErrUserNotFound()
	}
	u.Role = role
	f.byID[userID] = u
	f.byEmail[u.Email] = u
	f.setRoles = append(f.setRoles, struct{ id, role string }{userID, role})
	return nil
}

func (f *fakeUserRepo) SetAvatarURL(ctx context.Context, userID string, url string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	u, ok := f.byID[userID]
	if !ok {
		return domain.ErrUserNotFound()
	}
	u.AvatarURL = url
	f.byID[userID] = u
	f.byEmail[u.Email] = u
	f.avatarURLs[userID] = url
	return nil
}

func (f *fakeUserRepo) GetGeneration(ctx context.Context, userID string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	u, ok := f.byID[userID]
	if !ok {
		return 0, domain.ErrUserNotFound()
	}
	return u.TokenGeneration, nil
}

func (f *fakeUserRepo) BumpGeneration(ctx context.Context, userID string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.bumpErr != nil {
		return 0, f.bumpErr
	}
	u, ok := f.byID[userID]
	if !ok {
		return 0, domain.ErrUserNotFound()
	}
	u.TokenGeneration++
	f.byID[userID] = u
	f.byEmail[u.Email] = u
	return u.TokenGeneration, nil
}

/*
fakeHasher encodes the password into the "hash" so tests can verify without
real bcrypt work.
*/

type fakeHasher struct {
	hashFn    func(pw string) (string, error)
	compareFn func(hash, pw string) error
}

func (f *fakeHasher) Hash(pw string) (string, error) {
	if f.hashFn != nil {
		return f.hashFn(pw)
	}
	return "hash:" + pw, nil
}

func (f *fakeHasher) Compare(hash, pw string) error {
	if f.compareFn != nil {
		return f.compareFn(hash, pw)
	}
	if hash != "hash:"+pw {
		return fmt.Errorf("mismatch")
	}
	return nil
}

/*
fakeSigner produces parseable tokens: "access|uid|gen" / "refresh|uid|gen".
*/

type fakeSigner struct {
	signAccessErr  error
	signRefreshErr error
	verifyRefErr   error
}

func (f *fakeSigner) SignAccessToken(u domain.User, ttl time.Duration) (string, error) {
	if f.signAccessErr != nil {
		return "", f.signAccessErr
	}
	return fmt.Sprintf("access|%s|%d", u.ID, u.TokenGeneration), nil
}

func (f *fakeSigner) SignRefreshToken(u domain.User, ttl time.Duration) (string, error) {
	if f.signRefreshErr != nil {
		return "", f.signRefreshErr
	}
	return fmt.Sprintf("refresh|%s|%d", u.ID, u.TokenGeneration), nil
}

func (f *fakeSigner) VerifyAccessToken(token string) (AccessClaims, error) {
	parts := strings.Split(token, "|")
	if len(parts) != 3 || parts[0] != "access" {
		return AccessClaims{}, domain.ErrTokenInvalid()
	}
	gen, _ := strconv.ParseInt(parts[2], 10, 64)
	return AccessClaims{UserID: parts[1], Generation: gen}, nil
}

func (f *fakeSigner) VerifyRefreshToken(token string) (RefreshClaims, error) {
	if f.verifyRefErr != nil {
		return RefreshClaims{}, f.verifyRefErr
	}
	parts := strings.Split(token, "|")
	if len(parts) != 3 || parts[0] != "refresh" {
		return RefreshClaims{}, domain.ErrTokenInvalid()
	}
	gen, _ := strconv.ParseInt(parts[2], 10, 64)
	return RefreshClaims{UserID: parts[1], Generation: gen}, nil
}

/*
fakeVerifyTokenStore is a mutexed map with a used marker, mirroring the
compare-and-set semantics of the real stores.
*/

type tokenRec struct {
	userID    string
	expiresAt time.Time
	used      bool
}

type fakeVerifyTokenStore struct {
	mu      sync.Mutex
	saveErr error

	byToken  map[string]*tokenRec
	current  map[string]string // purpose+userID -> token
	consumed int
}

func newFakeVerifyTokenStore() *fakeVerifyTokenStore {
	return &fakeVerifyTokenStore{
		byToken: map[string]*tokenRec{},
		current: map[string]string{},
	}
}

func (f *fakeVerifyTokenStore) Save(ctx context.Context, purpose VerifyTokenPurpose, token, userID string, ttl time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.saveErr != nil {
		return f.saveErr
	}
	curKey := string(purpose) + ":" + userID
	if old, ok := f.current[curKey]; ok {
		delete(f.byToken, old)
	}
	f.byToken[token] = &tokenRec{userID: userID, expiresAt: time.Now().Add(ttl)}
	f.current[curKey] = token
	return nil
}

func (f *fakeVerifyTokenStore) Consume(ctx context.Context, purpose VerifyTokenPurpose, token string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	rec, ok := f.byToken[token]
	if !ok {
		return "", domain.ErrVerifyTokenInvalid()
	}
	if rec.used {
		return "", domain.ErrVerifyTokenUsed()
	}
	if time.Now().After(rec.expiresAt) {
		return "", domain.ErrVerifyTokenExpired()
	}
	rec.used = true
	f.consumed++
	return rec.userID, nil
}

/*
fakePublisher records published events.
*/

type fakePublisher struct {
	mu         sync.Mutex
	publishErr error
	events     []VerifyEmailEvent
}

func (f *fakePublisher) PublishVerifyEmail(ctx context.Context, evt VerifyEmailEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.publishErr != nil {
		return f.publishErr
	}
	f.events = append(f.events, evt)
	return nil
}

func (f *fakePublisher) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.events)
}

/*
fakeAvatarStore records uploads.
*/

type fakeAvatarStore struct {
	mu        sync.Mutex
	uploadErr error
	uploads   int
}

func (f *fakeAvatarStore) Upload(ctx context.Context, data []byte, contentType string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.uploadErr != nil {
		return "", f.uploadErr
	}
	f.uploads++
	return fmt.Sprintf("https://cdn.example/avatars/%d", f.uploads), nil
}

/*
Service under test with all fakes.
*/

func newSvcForTest(t *testing.T) (*Service, *fakeUserRepo, *fakeHasher, *fakeSigner, *fakeVerifyTokenStore, *fakePublisher, *fakeAvatarStore) {
	t.Helper()

	users := newFakeUserRepo()
	hasher := &fakeHasher{}
	signer := &fakeSigner{}
	tokens := newFakeVerifyTokenStore()
	pub := &fakePublisher{}
	avatars := &fakeAvatarStore{}

	svc := NewService(users, hasher, signer, tokens, pub, avatars, Config{
		AccessTTL:           15 * time.Minute,
		RefreshTTL:          7 * 24 * time.Hour,
		VerifyEmailBaseURL:  "https://app.example/verify-email?token=",
		VerifyEmailTokenTTL: time.Hour,
	})
	return svc, users, hasher, signer, tokens, pub, avatars
}
