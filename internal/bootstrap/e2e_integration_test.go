//go:build integration

package bootstrap

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	pgcontainer "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/okravchuk/contacts-api/internal/infrastructure/redis"
	"github.com/okravchuk/contacts-api/internal/transport/http/router"
)

// Assembles the full server against real Postgres (testcontainers) and
// miniredis, then walks the register / login / me journey over HTTP.
func TestServer_EndToEnd(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping e2e in short mode")
	}

	ctx := context.Background()

	pg, err := pgcontainer.RunContainer(ctx,
		testcontainers.WithImage("postgres:17"),
		pgcontainer.WithDatabase("contacts"),
		pgcontainer.WithUsername("contacts"),
		pgcontainer.WithPassword("contacts"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).WithStartupTimeout(30*time.Second)),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = pg.Terminate(ctx) })

	dsn, err := pg.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	mr := miniredis.RunT(t)

	t.Setenv("ENV", "dev")
	t.Setenv("HTTP_ADDR", ":0")
	t.Setenv("JWT_SECRET", "e2e-secret")
	t.Setenv("VERIFY_EMAIL_BASE_URL", "http://example.com/verify?token=")
	t.Setenv("DB_ADDR", dsn)
	t.Setenv("REDIS_ADDR", mr.Addr())
	t.Setenv("RABBIT_URL", "")

	deps := defaultDeps()
	deps.NewRedis = func(addr string) *redis.Client {
		return redis.NewFromRedisClient(goredis.NewClient(&goredis.Options{Addr: addr}))
	}
	deps.NewRouter = router.New

	srv, cleanup, err := NewServerWithDeps(deps)
	require.NoError(t, err)
	t.Cleanup(cleanup)

	ts := httptest.NewServer(srv.Handler)
	t.Cleanup(ts.Close)

	post := func(path string, body map[string]string) *http.Response {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		res, err := http.Post(ts.URL+path, "application/json", bytes.NewReader(b))
		require.NoError(t, err)
		return res
	}

	// register
	res := post("/auth/v1/register", map[string]string{
		"email": "e2e@example.com", "password": "EndToEndPass123",
	})
	require.Equal(t, http.StatusCreated, res.StatusCode)
	res.Body.Close()

	// login
	res = post("/auth/v1/login", map[string]string{
		"email": "e2e@example.com", "password": "EndToEndPass123",
	})
	require.Equal(t, http.StatusOK, res.StatusCode)

	var loginBody struct {
		Data struct {
			Tokens struct {
				AccessToken string `json:"access_token"`
			} `json:"tokens"`
		} `json:"data"`
	}
	require.NoError(t, json.NewDecoder(res.Body).Decode(&loginBody))
	res.Body.Close()
	require.NotEmpty(t, loginBody.Data.Tokens.AccessToken)

	// authenticated profile read, backed by the redis identity cache
	req, err := http.NewRequest(http.MethodGet, ts.URL+"/auth/v1/me", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+loginBody.Data.Tokens.AccessToken)

	res, err = ts.Client().Do(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, res.StatusCode)
	res.Body.Close()

	// cache key materialized in redis after the first resolve
	require.NotEmpty(t, mr.Keys())

	// missing token rejected
	res, err = http.Get(ts.URL + "/auth/v1/me")
	require.NoError(t, err)
	require.Equal(t, http.StatusUnauthorized, res.StatusCode)
	res.Body.Close()
}
