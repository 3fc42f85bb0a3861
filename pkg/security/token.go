package security

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// Actions a verification token can be issued for.
const (
	ActionSettings     = "sso_settings"
	ActionApplyPreset  = "sso_apply_preset"
	ActionCheckUpdates = "sso_check_updates"
)

const issuer = "az-speed-admin"

var ErrInvalidToken = errors.New("invalid token")

type ActionClaims struct {
	Action string `json:"act"`
	jwt.RegisteredClaims
}

// Signer issues and verifies short-lived tokens bound to one action and
// one admin user.
type Signer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewSigner(secret string, ttl time.Duration) *Signer {
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	return &Signer{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Issue creates a token for action on behalf of user.
func (s *Signer) Issue(action, user string) (string, error) {
	now := s.now()
	claims := &ActionClaims{
		Action: action,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   user,
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// Verify checks the signature, expiry, action and user of a token.
func (s *Signer) Verify(tokenString, action, user string) error {
	if strings.TrimSpace(tokenString) == "" {
		return ErrInvalidToken
	}

	claims := &ActionClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid || claims.Action != action || claims.Subject != user {
		return ErrInvalidToken
	}
	return nil
}

// HashPassword encrypts the password using bcrypt
func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(bytes), err
}

// CheckPassword compares a basic-auth password with the configured one,
// which may be a bcrypt hash or plain text.
func CheckPassword(password, configured string) bool {
	if strings.HasPrefix(configured, "$2a$") || strings.HasPrefix(configured, "$2b$") || strings.HasPrefix(configured, "$2y$") {
		return bcrypt.CompareHashAndPassword([]byte(configured), []byte(password)) == nil
	}
	return subtle.ConstantTimeCompare([]byte(password), []byte(configured)) == 1
}
