package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/okravchuk/contacts-api/internal/application/auth"
	"github.com/okravchuk/contacts-api/internal/domain"
)

func TestVerifyTokenStore_LifeCycle(t *testing.T) {
	t.Parallel()

	store := NewVerifyTokenStore()
	ctx := context.Background()

	if err := store.Save(ctx, auth.PurposeVerifyEmail, "tok", "u1", time.Hour); err != nil {
		t.Fatalf("save: %v", err)
	}

	uid, err := store.Consume(ctx, auth.PurposeVerifyEmail, "tok")
	if err != nil || uid != "u1" {
		t.Fatalf("consume: %v %q", err, uid)
	}

	if _, err := store.Consume(ctx, auth.PurposeVerifyEmail, "tok"); !domain.Is(err, "verify_token_used") {
		t.Fatalf("second consume: %v", err)
	}
	if _, err := store.Consume(ctx, auth.PurposeVerifyEmail, "nope"); !domain.Is(err, "verify_token_invalid") {
		t.Fatalf("unknown token: %v", err)
	}
}

func TestVerifyTokenStore_Expiry(t *testing.T) {
	t.Parallel()

	base := time.Now()
	now := base
	var mu sync.Mutex
	store := NewVerifyTokenStore().WithClock(func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return now
	})
	ctx := context.Background()

	if err := store.Save(ctx, auth.PurposeVerifyEmail, "tok", "u1", time.Minute); err != nil {
		t.Fatalf("save: %v", err)
	}

	mu.Lock()
	now = base.Add(2 * time.Minute)
	mu.Unlock()

	if _, err := store.Consume(ctx, auth.PurposeVerifyEmail, "tok"); !domain.Is(err, "verify_token_expired") {
		t.Fatalf("expected expired, got %v", err)
	}
}

func TestVerifyTokenStore_ReissueInvalidatesPrior(t *testing.T) {
	t.Parallel()

	store := NewVerifyTokenStore()
	ctx := context.Background()

	_ = store.Save(ctx, auth.PurposeVerifyEmail, "old", "u1", time.Hour)
	_ = store.Save(ctx, auth.PurposeVerifyEmail, "new", "u1", time.Hour)

	if _, err := store.Consume(ctx, auth.PurposeVerifyEmail, "old"); !domain.Is(err, "verify_token_invalid") {
		t.Fatalf("prior token must be invalid: %v", err)
	}
	if uid, err := store.Consume(ctx, auth.PurposeVerifyEmail, "new"); err != nil || uid != "u1" {
		t.Fatalf("latest token: %v %q", err, uid)
	}
}

func TestVerifyTokenStore_ConcurrentConsume(t *testing.T) {
	t.Parallel()

	store := NewVerifyTokenStore()
	ctx := context.Background()
	_ = store.Save(ctx, auth.PurposeVerifyEmail, "tok", "u1", time.Hour)

	const attempts = 32
	var wg sync.WaitGroup
	var wins int32
	var winMu sync.Mutex
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := store.Consume(ctx, auth.PurposeVerifyEmail, "tok"); err == nil {
				winMu.Lock()
				wins++
				winMu.Unlock()
			}
		}()
	}
	wg.Wait()

	if wins != 1 {
		t.Fatalf("expected exactly one winner, got %d", wins)
	}
}
