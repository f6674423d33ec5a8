// Command tool generates signed access tokens for synthetic users, one per
// line, for feeding load-test drivers. The secret and issuer must match the
// target deployment or every request will come back 401.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/okravchuk/contacts-api/internal/domain"
	"github.com/okravchuk/contacts-api/internal/infrastructure/security"
)

func main() {
	var (
		count  = flag.Int("n", 1000, "number of tokens to generate")
		out    = flag.String("out", "tokens.csv", "output file, one token per line")
		issuer = flag.String("issuer", "contacts-api", "JWT issuer claim")
		role   = flag.String("role", string(domain.RoleUser), "role claim (user or admin)")
		ttl    = flag.Duration("ttl", time.Hour, "token lifetime")
	)
	flag.Parse()

	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		fmt.Fprintln(os.Stderr, "JWT_SECRET is required")
		os.Exit(1)
	}
	if !domain.IsValidRole(*role) {
		fmt.Fprintf(os.Stderr, "invalid role %q\n", *role)
		os.Exit(1)
	}

	f, err := os.Create(*out)
	if err != nil {
		fmt.Fprintf(os.Stderr, "create %s: %v\n", *out, err)
		os.Exit(1)
	}
	defer f.Close()

	signer := security.NewJWTSigner(secret, *issuer, 0)

	for i := 0; i < *count; i++ {
		u := domain.User{
			ID:            uuid.NewString(),
			Email:         fmt.Sprintf("loadtest-%d@example.com", i),
			Role:          *role,
			EmailVerified: true,
		}
		tok, err := signer.SignAccessToken(u, *ttl)
		if err != nil {
			fmt.Fprintf(os.Stderr, "sign token %d: %v\n", i, err)
			os.Exit(1)
		}
		fmt.Fprintln(f, tok)
	}

	fmt.Printf("wrote %d tokens to %s\n", *count, *out)
}
