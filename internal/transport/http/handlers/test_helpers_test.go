package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/okravchuk/contacts-api/internal/application/auth"
	"github.com/okravchuk/contacts-api/internal/domain"
	"github.com/okravchuk/contacts-api/internal/infrastructure/memory"
	"github.com/okravchuk/contacts-api/internal/infrastructure/security"
	"github.com/okravchuk/contacts-api/internal/transport/http/middleware"
	"github.com/okravchuk/contacts-api/internal/transport/http/response"
	"github.com/okravchuk/contacts-api/internal/transport/http/router"
)

// capturingPublisher records verify-email events so tests can pull out the
// token from the mailed link.
type capturingPublisher struct {
	mu     sync.Mutex
	events []auth.VerifyEmailEvent
}

func (p *capturingPublisher) PublishVerifyEmail(ctx context.Context, evt auth.VerifyEmailEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, evt)
	return nil
}

func (p *capturingPublisher) lastToken(t *testing.T) string {
	t.Helper()
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.events) == 0 {
		t.Fatalf("no verify-email events published")
	}
	url := p.events[len(p.events)-1].URL
	i := strings.LastIndex(url, "token=")
	if i < 0 {
		t.Fatalf("no token in url %q", url)
	}
	return url[i+len("token="):]
}

type testEnv struct {
	srv   *httptest.Server
	users *memory.UserRepo
	pub   *capturingPublisher
	svc   *auth.Service
}

// newTestEnv wires the real service, signer and router over in-memory
// adapters, so tests exercise the same stack production runs.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	users := memory.NewUserRepo()
	hasher := security.NewBcryptHasher(4) // low cost keeps the suite fast
	signer := security.NewJWTSigner("test-secret", "contacts-api-test", 30*time.Second)
	tokens := memory.NewVerifyTokenStore()
	pub := &capturingPublisher{}
	avatars := memory.NewAvatarStore("")

	svc := auth.NewService(users, hasher, signer, tokens, pub, avatars, auth.Config{
		AccessTTL:           15 * time.Minute,
		RefreshTTL:          7 * 24 * time.Hour,
		VerifyEmailBaseURL:  "https://app.example/verify-email?token=",
		VerifyEmailTokenTTL: time.Hour,
	})

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go svc.RunAvatarWorker(ctx)

	h, err := router.New(router.Deps{
		Health:         NewHealthHandler(nil),
		Auth:           NewAuthHandler(svc),
		AuthMW:         middleware.Auth(signer, users, response.WriteError),
		VerifiedMW:     middleware.RequireVerified(response.WriteError),
		AdminMW:        middleware.RequireAtLeast(string(domain.RoleAdmin), response.WriteError),
		RequestTimeout: 5 * time.Second,
	})
	if err != nil {
		t.Fatalf("router: %v", err)
	}

	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	return &testEnv{srv: srv, users: users, pub: pub, svc: svc}
}

func (e *testEnv) do(t *testing.T, method, path, bearer string, body any) *http.Response {
	t.Helper()

	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		rd = bytes.NewReader(b)
	}

	req, err := http.NewRequest(method, e.srv.URL+path, rd)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	res, err := e.srv.Client().Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	return res
}

// decodeData unwraps the {"data": ...} envelope.
func decodeData(t *testing.T, res *http.Response, out any) {
	t.Helper()
	defer res.Body.Close()

	raw, err := io.ReadAll(res.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}

	wrapped := struct {
		Data json.RawMessage `json:"data"`
	}{}
	if err := json.Unmarshal(raw, &wrapped); err != nil || len(wrapped.Data) == 0 {
		t.Fatalf("decode envelope failed; body=%s", string(raw))
	}
	if err := json.Unmarshal(wrapped.Data, out); err != nil {
		t.Fatalf("decode data failed; body=%s err=%v", string(raw), err)
	}
}

func decodeErrCode(t *testing.T, res *http.Response) string {
	t.Helper()
	defer res.Body.Close()

	var body response.ErrorBody
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	return body.Error.Code
}

type authView struct {
	User struct {
		ID            string `json:"id"`
		Email         string `json:"email"`
		Role          string `json:"role"`
		EmailVerified bool   `json:"email_verified"`
		AvatarURL     string `json:"avatar_url"`
	} `json:"user"`
	Tokens struct {
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token"`
		TokenType    string `json:"token_type"`
		ExpiresIn    int64  `json:"expires_in"`
	} `json:"tokens"`
}

func (e *testEnv) register(t *testing.T, email, password string) authView {
	t.Helper()

	res := e.do(t, http.MethodPost, "/auth/v1/register", "", map[string]string{
		"email": email, "password": password,
	})
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("register: expected 201, got %d", res.StatusCode)
	}
	var out authView
	decodeData(t, res, &out)
	return out
}
