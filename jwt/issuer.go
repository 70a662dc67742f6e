package jwt

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Kind distinguishes access tokens from refresh tokens.
type Kind string

const (
	// KindAccess marks a short-lived access token.
	KindAccess Kind = "access"
	// KindRefresh marks a long-lived refresh token.
	KindRefresh Kind = "refresh"
)

// MinSecretBytes is the shortest HMAC secret NewIssuer accepts.
const MinSecretBytes = 32

var (
	// ErrInvalidSignature covers tampered tokens, tokens signed with another secret and
	// tokens issued for another purpose.
	ErrInvalidSignature = errors.New("token signature invalid")
	// ErrExpired is returned for tokens past their expiry.
	ErrExpired = errors.New("token expired")
	// ErrMalformed is returned for tokens that cannot be parsed.
	ErrMalformed = errors.New("token malformed")
)

// Config holds the signing secrets and lifetimes. Clock defaults to time.Now.
type Config struct {
	AccessSecret  []byte
	RefreshSecret []byte
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	Issuer        string
	Audience      string
	Leeway        time.Duration
	MaxFutureIAT  time.Duration
	Clock         func() time.Time
}

// Claims is the payload of both token kinds. Role is empty on refresh tokens.
type Claims struct {
	Role string `json:"role,omitempty"`
	Kind Kind   `json:"typ"`
	jwt.RegisteredClaims
}

// Issuer signs and verifies session tokens. It is safe for concurrent use.
type Issuer struct {
	config Config
}

// NewIssuer validates cfg and returns an Issuer.
func NewIssuer(cfg Config) (*Issuer, error) {
	if cfg.AccessTTL <= 0 || cfg.RefreshTTL <= 0 {
		return nil, errors.New("invalid TTL configuration")
	}
	if len(cfg.AccessSecret) < MinSecretBytes || len(cfg.RefreshSecret) < MinSecretBytes {
		return nil, fmt.Errorf("signing secrets must be at least %d bytes", MinSecretBytes)
	}
	if string(cfg.AccessSecret) == string(cfg.RefreshSecret) {
		return nil, errors.New("access and refresh secrets must differ")
	}
	if cfg.Leeway < 0 || cfg.Leeway > 2*time.Minute {
		return nil, errors.New("invalid leeway configuration")
	}
	if cfg.MaxFutureIAT == 0 {
		cfg.MaxFutureIAT = 10 * time.Minute
	}
	if cfg.MaxFutureIAT < 0 || cfg.MaxFutureIAT > 24*time.Hour {
		return nil, errors.New("invalid MaxFutureIAT configuration")
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	cfg.Issuer = strings.TrimSpace(cfg.Issuer)
	cfg.Audience = strings.TrimSpace(cfg.Audience)
	cfg.AccessSecret = append([]byte(nil), cfg.AccessSecret...)
	cfg.RefreshSecret = append([]byte(nil), cfg.RefreshSecret...)

	return &Issuer{config: cfg}, nil
}

// AccessTTL returns the configured access token lifetime.
func (i *Issuer) AccessTTL() time.Duration {
	return i.config.AccessTTL
}

// RefreshTTL returns the configured refresh token lifetime.
func (i *Issuer) RefreshTTL() time.Duration {
	return i.config.RefreshTTL
}

// IssueAccess signs an access token for userID carrying role.
func (i *Issuer) IssueAccess(userID, role string) (string, time.Time, error) {
	return i.issue(KindAccess, userID, role)
}

// IssueRefresh signs a refresh token for userID.
func (i *Issuer) IssueRefresh(userID string) (string, time.Time, error) {
	return i.issue(KindRefresh, userID, "")
}

func (i *Issuer) issue(kind Kind, userID, role string) (string, time.Time, error) {
	if userID == "" {
		return "", time.Time{}, errors.New("empty subject")
	}

	now := i.config.Clock()
	expiresAt := now.Add(i.ttl(kind))
	claims := Claims{
		Role: role,
		Kind: kind,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Issuer:    i.config.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	if i.config.Audience != "" {
		claims.Audience = jwt.ClaimStrings{i.config.Audience}
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret(kind))
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

// Verify parses token, checks its signature against the secret for kind and validates the
// registered claims.
func (i *Issuer) Verify(token string, kind Kind) (*Claims, error) {
	if kind != KindAccess && kind != KindRefresh {
		return nil, fmt.Errorf("unknown token kind %q", kind)
	}

	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(i.config.Clock),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
	}
	if i.config.Leeway > 0 {
		options = append(options, jwt.WithLeeway(i.config.Leeway))
	}
	if i.config.Issuer != "" {
		options = append(options, jwt.WithIssuer(i.config.Issuer))
	}
	if i.config.Audience != "" {
		options = append(options, jwt.WithAudience(i.config.Audience))
	}

	parsed, err := jwt.NewParser(options...).ParseWithClaims(token, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, fmt.Errorf("unexpected signing algorithm: %s", t.Method.Alg())
		}
		return i.secret(kind), nil
	})
	if err != nil {
		return nil, classify(err)
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, ErrMalformed
	}
	if claims.Kind != kind {
		return nil, fmt.Errorf("%w: token issued as %q", ErrInvalidSignature, claims.Kind)
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrMalformed)
	}
	if claims.IssuedAt != nil && claims.IssuedAt.Time.After(i.config.Clock().Add(i.config.MaxFutureIAT)) {
		return nil, fmt.Errorf("%w: iat too far in the future", ErrMalformed)
	}

	return claims, nil
}

func (i *Issuer) ttl(kind Kind) time.Duration {
	if kind == KindRefresh {
		return i.config.RefreshTTL
	}
	return i.config.AccessTTL
}

func (i *Issuer) secret(kind Kind) []byte {
	if kind == KindRefresh {
		return i.config.RefreshSecret
	}
	return i.config.AccessSecret
}

func classify(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return fmt.Errorf("%w: %v", ErrExpired, err)
	case errors.Is(err, jwt.ErrTokenMalformed),
		errors.Is(err, jwt.ErrTokenRequiredClaimMissing),
		errors.Is(err, jwt.ErrTokenUsedBeforeIssued):
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	case errors.Is(err, jwt.ErrTokenSignatureInvalid),
		errors.Is(err, jwt.ErrTokenUnverifiable),
		errors.Is(err, jwt.ErrTokenInvalidIssuer),
		errors.Is(err, jwt.ErrTokenInvalidAudience):
		return fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	default:
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
}
