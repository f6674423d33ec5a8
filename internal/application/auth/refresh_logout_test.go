package auth

import (
	"context"
	"sync"
	"testing"

	"github.com/okravchuk/contacts-api/internal/domain"
)

func TestRefresh_EmptyToken_Invalid(t *testing.T) {
	t.Parallel()

	svc, _, _, _, _, _, _ := newSvcForTest(t)

	_, _, err := svc.Refresh(context.Background(), "")
	requireDomainCode(t, err, "token_invalid")
}

func TestRefresh_VerifierError_Propagates(t *testing.T) {
	t.Parallel()

	svc, _, _, signer, _, _, _ := newSvcForTest(t)
	signer.verifyRefErr = domain.ErrTokenExpired()

	_, _, err := svc.Refresh(context.Background(), "refresh|u1|0")
	requireDomainCode(t, err, "token_expired")
}

func TestRefresh_UnknownUser_Invalid(t *testing.T) {
	t.Parallel()

	svc, _, _, _, _, _, _ := newSvcForTest(t)

	_, _, err := svc.Refresh(context.Background(), "refresh|ghost|0")
	requireDomainCode(t, err, "token_invalid")
}

func TestRefresh_SameGeneration_ReissuesWithoutBump(t *testing.T) {
	t.Parallel()

	svc, users, _, _, _, _, _ := newSvcForTest(t)
	users.put(domain.User{ID: "u1", Email: "e@x.com", PasswordHash: "hash:pw", Role: "user", TokenGeneration: 2})

	toks, u, err := svc.Refresh(context.Background(), "refresh|u1|2")
	if err != nil {
		t.Fatalf("expected nil, got %v", err)
	}
	if u.ID != "u1" {
		t.Fatalf("expected user u1")
	}
	// rotation must NOT advance the generation
	if got := users.byID["u1"].TokenGeneration; got != 2 {
		t.Fatalf("generation changed by refresh: %d", got)
	}
	if toks.RefreshToken != "refresh|u1|2" {
		t.Fatalf("new refresh must carry the same generation, got %q", toks.RefreshToken)
	}
}

func TestRefresh_StaleGeneration_Superseded(t *testing.T) {
	t.Parallel()

	svc, users, _, _, _, _, _ := newSvcForTest(t)
	users.put(domain.User{ID: "u1", Email: "e@x.com", PasswordHash: "hash:pw", Role: "user", TokenGeneration: 5})

	_, _, err := svc.Refresh(context.Background(), "refresh|u1|4")
	requireDomainCode(t, err, "token_superseded")
}

func TestLogoutAll_BumpsGeneration_AndOldRefreshFails(t *testing.T) {
	t.Parallel()

	svc, users, _, _, _, _, _ := newSvcForTest(t)
	users.put(domain.User{ID: "u1", Email: "e@x.com", PasswordHash: "hash:pw", Role: "user", TokenGeneration: 1})

	res, err := svc.Login(context.Background(), "e@x.com", "pw")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	oldRefresh := res.Tokens.RefreshToken

	if err := svc.LogoutAll(context.Background(), "u1"); err != nil {
		t.Fatalf("logout-all: %v", err)
	}
	if got := users.byID["u1"].TokenGeneration; got != 2 {
		t.Fatalf("expected generation 2 after bump, got %d", got)
	}

	_, _, err = svc.Refresh(context.Background(), oldRefresh)
	requireDomainCode(t, err, "token_superseded")
}

func TestLogoutAll_RacingRefresh_ObservesOldOrNew_NeverTorn(t *testing.T) {
	t.Parallel()

	svc, users, _, _, _, _, _ := newSvcForTest(t)
	users.put(domain.User{ID: "u1", Email: "e@x.com", PasswordHash: "hash:pw", Role: "user", TokenGeneration: 0})

	var wg sync.WaitGroup
	wg.Add(2)

	var refreshErr error
	go func() {
		defer wg.Done()
		_, _, refreshErr = svc.Refresh(context.Background(), "refresh|u1|0")
	}()
	go func() {
		defer wg.Done()
		_ = svc.LogoutAll(context.Background(), "u1")
	}()
	wg.Wait()

	// either outcome is consistent: the refresh saw generation 0 (success)
	// or generation 1 (superseded); anything else is a bug
	if refreshErr != nil {
		requireDomainCode(t, refreshErr, "token_superseded")
	}
	if got := users.byID["u1"].TokenGeneration; got != 1 {
		t.Fatalf("expected generation 1 after bump, got %d", got)
	}
}
