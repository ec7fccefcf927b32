package auth

import (
	"crypto/rsa"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrMissingToken = errors.New("missing token")
	ErrInvalidToken = errors.New("invalid token")
	ErrForbidden    = errors.New("token lacks required role")
)

// Claims carried by tokens issued to backend services that push display signals.
type Claims struct {
	Roles []string `json:"roles"`
	jwt.RegisteredClaims
}

type TokenValidator interface {
	Validate(token string) (*Claims, error)
}

type JWTValidator struct {
	secret       []byte
	publicKey    *rsa.PublicKey
	allowedRoles []string
	now          func() time.Time
}

// NewJWTValidator creates a validator that uses HMAC (HS256) with the provided secret.
// When allowedRoles is not empty the token must carry at least one of them.
func NewJWTValidator(secret string, allowedRoles ...string) *JWTValidator {
	return &JWTValidator{secret: []byte(strings.TrimSpace(secret)), allowedRoles: normalizeRoles(allowedRoles), now: time.Now}
}

// NewJWTValidatorWithPublicKey prefers RS256 when publicKeyPEM parses, falling back to HMAC with secret.
func NewJWTValidatorWithPublicKey(secret, publicKeyPEM string, allowedRoles ...string) (*JWTValidator, error) {
	v := NewJWTValidator(secret, allowedRoles...)
	if strings.TrimSpace(publicKeyPEM) != "" {
		key, err := jwt.ParseRSAPublicKeyFromPEM([]byte(publicKeyPEM))
		if err != nil {
			return nil, fmt.Errorf("parse jwt public key: %w", err)
		}
		v.publicKey = key
	}
	return v, nil
}

func (v *JWTValidator) Validate(token string) (*Claims, error) {
	if strings.TrimSpace(token) == "" {
		return nil, ErrMissingToken
	}
	if v.publicKey == nil && len(v.secret) == 0 {
		return nil, fmt.Errorf("%w: jwt key not configured", ErrInvalidToken)
	}

	claims := &Claims{}
	parsedToken, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if v.publicKey != nil {
			if _, ok := t.Method.(*jwt.SigningMethodRSA); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v, expected RS256", t.Header["alg"])
			}
			return v.publicKey, nil
		}
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return v.secret, nil
	}, jwt.WithLeeway(5*time.Second), jwt.WithTimeFunc(v.now))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !parsedToken.Valid {
		return nil, ErrInvalidToken
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}

	if len(v.allowedRoles) > 0 {
		if !slices.ContainsFunc(normalizeRoles(claims.Roles), func(role string) bool {
			return slices.Contains(v.allowedRoles, role)
		}) {
			return nil, fmt.Errorf("%w: subject %s", ErrForbidden, claims.Subject)
		}
	}
	return claims, nil
}

func normalizeRoles(roles []string) []string {
	out := make([]string, 0, len(roles))
	for _, role := range roles {
		if trimmed := strings.ToLower(strings.TrimSpace(role)); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
