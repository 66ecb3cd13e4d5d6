package jwt

import (
	"errors"
	"strings"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Token classes carried in the typ claim.
const (
	TypeAccess  = "access"
	TypeRefresh = "refresh"
)

const defaultIssuer = "real-estate-api"

var (
	ErrMissingSecret = errors.New("jwt: access and refresh secrets are required")
	ErrSharedSecret  = errors.New("jwt: access and refresh secrets must differ")
	ErrInvalidTTL    = errors.New("jwt: token lifetimes must be positive")
	ErrWrongType     = errors.New("jwt: unexpected token type")
)

// Claims defines JWT payload.
type Claims struct {
	Role string `json:"role"`
	Type string `json:"typ"`
	jwtlib.RegisteredClaims
}

// Pair holds a freshly issued access and refresh token.
type Pair struct {
	AccessToken      string
	RefreshToken     string
	AccessExpiresAt  time.Time
	RefreshExpiresAt time.Time
}

// IssuerConfig configures an Issuer.
type IssuerConfig struct {
	AccessSecret  string
	RefreshSecret string
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	Issuer        string
}

// Issuer signs and verifies access/refresh tokens, each class with its own secret.
type Issuer struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
	issuer        string
	now           func() time.Time
}

// NewIssuer validates cfg and returns an Issuer.
func NewIssuer(cfg IssuerConfig) (*Issuer, error) {
	if strings.TrimSpace(cfg.AccessSecret) == "" || strings.TrimSpace(cfg.RefreshSecret) == "" {
		return nil, ErrMissingSecret
	}
	if cfg.AccessSecret == cfg.RefreshSecret {
		return nil, ErrSharedSecret
	}
	if cfg.AccessTTL <= 0 || cfg.RefreshTTL <= 0 {
		return nil, ErrInvalidTTL
	}
	issuer := strings.TrimSpace(cfg.Issuer)
	if issuer == "" {
		issuer = defaultIssuer
	}
	return &Issuer{
		accessSecret:  []byte(cfg.AccessSecret),
		refreshSecret: []byte(cfg.RefreshSecret),
		accessTTL:     cfg.AccessTTL,
		refreshTTL:    cfg.RefreshTTL,
		issuer:        issuer,
		now:           time.Now,
	}, nil
}

// AccessTTL returns the access token lifetime.
func (i *Issuer) AccessTTL() time.Duration { return i.accessTTL }

// RefreshTTL returns the refresh token lifetime.
func (i *Issuer) RefreshTTL() time.Duration { return i.refreshTTL }

// Issue mints a new access/refresh pair for subject and role.
func (i *Issuer) Issue(subject, role string) (Pair, error) {
	now := i.now()
	access, err := GenerateToken(subject, role, TypeAccess, i.issuer, i.accessSecret, now, i.accessTTL)
	if err != nil {
		return Pair{}, err
	}
	refresh, err := GenerateToken(subject, role, TypeRefresh, i.issuer, i.refreshSecret, now, i.refreshTTL)
	if err != nil {
		return Pair{}, err
	}
	return Pair{
		AccessToken:      access,
		RefreshToken:     refresh,
		AccessExpiresAt:  now.Add(i.accessTTL),
		RefreshExpiresAt: now.Add(i.refreshTTL),
	}, nil
}

// VerifyAccess returns the claims of a valid access token or nil.
func (i *Issuer) VerifyAccess(token string) *Claims {
	claims, err := Parse(token, TypeAccess, i.issuer, i.accessSecret, i.now)
	if err != nil {
		return nil
	}
	return claims
}

// VerifyRefresh returns the claims of a valid refresh token or nil.
func (i *Issuer) VerifyRefresh(token string) *Claims {
	claims, err := Parse(token, TypeRefresh, i.issuer, i.refreshSecret, i.now)
	if err != nil {
		return nil
	}
	return claims
}

// GenerateToken issues a signed JWT of the given class.
func GenerateToken(subject, role, typ, issuer string, secret []byte, now time.Time, ttl time.Duration) (string, error) {
	claims := Claims{
		Role: role,
		Type: typ,
		RegisteredClaims: jwtlib.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   subject,
			Issuer:    issuer,
			IssuedAt:  jwtlib.NewNumericDate(now),
			ExpiresAt: jwtlib.NewNumericDate(now.Add(ttl)),
		},
	}
	token := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims)
	return token.SignedString(secret)
}

// Parse validates and extracts claims from token. Expiry is evaluated against now.
func Parse(token, typ, issuer string, secret []byte, now func() time.Time) (*Claims, error) {
	if now == nil {
		now = time.Now
	}
	parsed, err := jwtlib.ParseWithClaims(strings.TrimSpace(token), &Claims{}, func(t *jwtlib.Token) (interface{}, error) {
		return secret, nil
	},
		jwtlib.WithValidMethods([]string{jwtlib.SigningMethodHS256.Name}),
		jwtlib.WithExpirationRequired(),
		jwtlib.WithIssuer(issuer),
		jwtlib.WithTimeFunc(now),
	)
	if err != nil {
		return nil, err
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, jwtlib.ErrTokenInvalidClaims
	}
	if claims.Type != typ {
		return nil, ErrWrongType
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return nil, jwtlib.ErrTokenInvalidClaims
	}
	return claims, nil
}
