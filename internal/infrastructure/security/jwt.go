package security

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/okravchuk/contacts-api/internal/application/auth"
	"github.com/okravchuk/contacts-api/internal/domain"
)

const (
	typAccess  = "access"
	typRefresh = "refresh"
)

// JWTSigner issues and verifies both token classes with HS256.
// The leeway is a clock-skew grace applied to expiry checks only; signature
// verification never gets any slack. nowFn is swappable for boundary tests.
type JWTSigner struct {
	secret []byte
	issuer string
	leeway time.Duration
	nowFn  func() time.Time
}

func NewJWTSigner(secret string, issuer string, leeway time.Duration) *JWTSigner {
	if leeway < 0 {
		leeway = 0
	}
	return &JWTSigner{
		secret: []byte(secret),
		issuer: issuer,
		leeway: leeway,
		nowFn:  time.Now,
	}
}

// WithClock overrides the time source. Test hook.
func (s *JWTSigner) WithClock(now func() time.Time) *JWTSigner {
	if now != nil {
		s.nowFn = now
	}
	return s
}

type accessClaims struct {
	UserID     string `json:"uid"`
	Email      string `json:"email"`
	Role       string `json:"role"`
	Generation int64  `json:"gen"`
	TokenType  string `json:"typ"`
	jwt.RegisteredClaims
}

type refreshClaims struct {
	UserID     string `json:"uid"`
	Generation int64  `json:"gen"`
	TokenType  string `json:"typ"`
	jwt.RegisteredClaims
}

func (s *JWTSigner) SignAccessToken(u domain.User, ttl time.Duration) (string, error) {
	now := s.nowFn()
	claims := accessClaims{
		UserID:     u.ID,
		Email:      u.Email,
		Role:       u.Role,
		Generation: u.TokenGeneration,
		TokenType:  typAccess,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			Subject:   u.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return s.sign(claims)
}

func (s *JWTSigner) SignRefreshToken(u domain.User, ttl time.Duration) (string, error) {
	now := s.nowFn()
	claims := refreshClaims{
		UserID:     u.ID,
		Generation: u.TokenGeneration,
		TokenType:  typRefresh,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			Subject:   u.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return s.sign(claims)
}

func (s *JWTSigner) sign(claims jwt.Claims) (string, error) {
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := tok.SignedString(s.secret)
	if err != nil {
		return "", domain.ErrTokenSignFailed(err)
	}
	return signed, nil
}

func (s *JWTSigner) VerifyAccessToken(token string) (auth.AccessClaims, error) {
	var claims accessClaims
	if err := s.parse(token, &claims); err != nil {
		return auth.AccessClaims{}, err
	}
	if claims.TokenType != typAccess || claims.UserID == "" {
		return auth.AccessClaims{}, domain.ErrTokenInvalid()
	}

	exp := time.Time{}
	if claims.ExpiresAt != nil {
		exp = claims.ExpiresAt.Time
	}

	return auth.AccessClaims{
		UserID:     claims.UserID,
		Email:      claims.Email,
		Role:       claims.Role,
		Generation: claims.Generation,
		Exp:        exp,
	}, nil
}

func (s *JWTSigner) VerifyRefreshToken(token string) (auth.RefreshClaims, error) {
	var claims refreshClaims
	if err := s.parse(token, &claims); err != nil {
		return auth.RefreshClaims{}, err
	}
	if claims.TokenType != typRefresh || claims.UserID == "" {
		return auth.RefreshClaims{}, domain.ErrTokenInvalid()
	}

	exp := time.Time{}
	if claims.ExpiresAt != nil {
		exp = claims.ExpiresAt.Time
	}

	return auth.RefreshClaims{
		UserID:     claims.UserID,
		Generation: claims.Generation,
		Exp:        exp,
	}, nil
}

func (s *JWTSigner) parse(token string, claims jwt.Claims) error {
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		// prevent alg confusion
		if t.Method != jwt.SigningMethodHS256 {
			return nil, domain.ErrTokenInvalid()
		}
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.nowFn),
		jwt.WithLeeway(s.leeway),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return domain.ErrTokenExpired()
		}
		return domain.ErrTokenInvalid()
	}
	if !parsed.Valid {
		return domain.ErrTokenInvalid()
	}
	return nil
}
