package auth

import (
	"errors"
	"testing"

	"github.com/okravchuk/contacts-api/internal/domain"
)

func requireDomainCode(t *testing.T, err error, code string) {
	t.Helper()

	var de *domain.Error
	if !errors.As(err, &de) {
		t.Fatalf("expected *domain.Error, got %T: %v", err, err)
	}
	if de.Code != code {
		t.Fatalf("expected code %q, got %q (%v)", code, de.Code, err)
	}
}
