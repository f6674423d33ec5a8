package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/okravchuk/contacts-api/internal/domain"
)

type avatarObject struct {
	data        []byte
	contentType string
}

// AvatarStore keeps uploaded avatars in process memory and hands back
// stable pseudo-URLs. Stand-in for object storage in local development.
type AvatarStore struct {
	mu      sync.RWMutex
	objects map[string]avatarObject
	baseURL string
}

func NewAvatarStore(baseURL string) *AvatarStore {
	if baseURL == "" {
		baseURL = "/static/avatars/"
	}
	return &AvatarStore{
		objects: make(map[string]avatarObject),
		baseURL: baseURL,
	}
}

func (s *AvatarStore) Upload(ctx context.Context, data []byte, contentType string) (string, error) {
	if len(data) == 0 {
		return "", domain.ErrMissingField("avatar")
	}

	id := uuid.NewString()

	s.mu.Lock()
	buf := make([]byte, len(data))
	copy(buf, data)
	s.objects[id] = avatarObject{data: buf, contentType: contentType}
	s.mu.Unlock()

	return s.baseURL + id, nil
}

// Get returns a stored avatar by object ID. Serving helper for dev mode.
func (s *AvatarStore) Get(id string) ([]byte, string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	obj, ok := s.objects[id]
	if !ok {
		return nil, "", false
	}
	return obj.data, obj.contentType, true
}
