package authcore

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/MrEthical07/authcore/jwt"
	"github.com/MrEthical07/authcore/password"
	"golang.org/x/crypto/bcrypt"
)

// Config is the engine configuration. It is built once at startup, validated by
// [Builder.Build] and treated as immutable afterwards.
type Config struct {
	JWT               JWTConfig
	Password          PasswordConfig
	EmailVerification EmailVerificationConfig
	PasswordReset     PasswordResetConfig
	Links             LinksConfig
	Metrics           MetricsConfig
}

/*
====================================
JWT CONFIG
====================================
*/

// JWTConfig holds the HS256 secrets and token lifetimes. Access and refresh tokens are
// signed with different secrets.
type JWTConfig struct {
	AccessSecret  []byte
	RefreshSecret []byte
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	Issuer        string
	Audience      string
	Leeway        time.Duration
}

/*
====================================
PASSWORD CONFIG
====================================
*/

// PasswordAlgorithm selects the digest format for new hashes.
type PasswordAlgorithm string

const (
	PasswordBcrypt PasswordAlgorithm = "bcrypt"
	PasswordArgon2 PasswordAlgorithm = "argon2id"
)

// PasswordConfig selects the hashing algorithm and the size of the hashing pool.
//
// PoolSize bounds the number of concurrent hash and verify calls; 0 means GOMAXPROCS.
// When UpgradeOnLogin is set a successful login rehashes digests produced with weaker
// parameters.
type PasswordConfig struct {
	Algorithm      PasswordAlgorithm
	BcryptCost     int
	Argon2         password.Config
	PoolSize       int
	UpgradeOnLogin bool
}

/*
====================================
EMAIL VERIFICATION CONFIG
====================================
*/

// EmailVerificationConfig controls the verification flow. With Enabled false new accounts
// are created already verified and no verification token is issued.
type EmailVerificationConfig struct {
	Enabled         bool
	VerificationTTL time.Duration
}

/*
====================================
PASSWORD RESET CONFIG
====================================
*/

type PasswordResetConfig struct {
	ResetTTL time.Duration
}

/*
====================================
LINKS CONFIG
====================================
*/

// LinksConfig builds the links placed in notifications:
// ClientURL + VerifyEmailPath + token and ClientURL + ResetPasswordPath + token.
type LinksConfig struct {
	ClientURL         string
	VerifyEmailPath   string
	ResetPasswordPath string
}

/*
====================================
METRICS CONFIG
====================================
*/

type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

/*
====================================
DEFAULT CONFIG
====================================
*/

// DefaultConfig returns a Config with production defaults. Secrets are left empty and
// must be provided by the caller.
func DefaultConfig() Config {
	return Config{
		JWT: JWTConfig{
			AccessTTL:  15 * time.Minute,
			RefreshTTL: 7 * 24 * time.Hour,
			Issuer:     "authcore",
			Leeway:     5 * time.Second,
		},
		Password: PasswordConfig{
			Algorithm:      PasswordBcrypt,
			BcryptCost:     password.DefaultBcryptCost,
			Argon2:         password.DefaultArgon2Config(),
			UpgradeOnLogin: true,
		},
		EmailVerification: EmailVerificationConfig{
			Enabled:         true,
			VerificationTTL: 24 * time.Hour,
		},
		PasswordReset: PasswordResetConfig{
			ResetTTL: time.Hour,
		},
		Links: LinksConfig{
			ClientURL:         "http://localhost:3000",
			VerifyEmailPath:   "/verify-email/",
			ResetPasswordPath: "/reset-password/",
		},
		Metrics: MetricsConfig{
			Enabled:                 true,
			EnableLatencyHistograms: true,
		},
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.JWT.AccessSecret = cloneBytes(cfg.JWT.AccessSecret)
	out.JWT.RefreshSecret = cloneBytes(cfg.JWT.RefreshSecret)
	return out
}

func cloneBytes(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

/*
====================================
VALIDATION
====================================
*/

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	// JWT
	if c.JWT.AccessTTL <= 0 {
		return errors.New("JWT AccessTTL must be > 0")
	}
	if c.JWT.RefreshTTL <= c.JWT.AccessTTL {
		return errors.New("JWT RefreshTTL must be > AccessTTL")
	}
	if len(c.JWT.AccessSecret) < jwt.MinSecretBytes {
		return fmt.Errorf("JWT AccessSecret must be at least %d bytes", jwt.MinSecretBytes)
	}
	if len(c.JWT.RefreshSecret) < jwt.MinSecretBytes {
		return fmt.Errorf("JWT RefreshSecret must be at least %d bytes", jwt.MinSecretBytes)
	}
	if string(c.JWT.AccessSecret) == string(c.JWT.RefreshSecret) {
		return errors.New("JWT AccessSecret and RefreshSecret must differ")
	}
	if c.JWT.Leeway < 0 || c.JWT.Leeway > 2*time.Minute {
		return errors.New("JWT Leeway must be between 0 and 2m")
	}

	// Password
	switch c.Password.Algorithm {
	case PasswordBcrypt:
		if c.Password.BcryptCost < bcrypt.MinCost || c.Password.BcryptCost > bcrypt.MaxCost {
			return fmt.Errorf("Password BcryptCost must be between %d and %d", bcrypt.MinCost, bcrypt.MaxCost)
		}
	case PasswordArgon2:
		if err := c.Password.Argon2.Validate(); err != nil {
			return fmt.Errorf("Password Argon2: %w", err)
		}
	default:
		return errors.New("Password Algorithm must be 'bcrypt' or 'argon2id'")
	}
	if c.Password.PoolSize < 0 {
		return errors.New("Password PoolSize must be >= 0")
	}

	// Email Verification
	if c.EmailVerification.Enabled && c.EmailVerification.VerificationTTL <= 0 {
		return errors.New("EmailVerification VerificationTTL must be > 0")
	}

	// Password Reset
	if c.PasswordReset.ResetTTL <= 0 {
		return errors.New("PasswordReset ResetTTL must be > 0")
	}

	// Links
	u, err := url.Parse(c.Links.ClientURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return errors.New("Links ClientURL must be an absolute URL")
	}
	if !strings.HasPrefix(c.Links.VerifyEmailPath, "/") || !strings.HasPrefix(c.Links.ResetPasswordPath, "/") {
		return errors.New("Links paths must start with '/'")
	}

	return nil
}

func (c LinksConfig) verifyEmailLink(token string) string {
	return strings.TrimRight(c.ClientURL, "/") + c.VerifyEmailPath + token
}

func (c LinksConfig) resetPasswordLink(token string) string {
	return strings.TrimRight(c.ClientURL, "/") + c.ResetPasswordPath + token
}
