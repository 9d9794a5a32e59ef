// Package auth issues and checks the bearer token that guards the local bridge.
//
// The token itself is shown to the user once, by "tabvana token", and only its
// bcrypt hash is written to the config file.
package auth

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/kspeckhals01/browser-tab-manager/internal/logging"
)

// ErrInvalidToken is returned when a token does not match the configured hash.
var ErrInvalidToken = errors.New("invalid bridge token")

// tokenBytes is the amount of entropy in a generated token.
const tokenBytes = 32

// GenerateToken returns a new random hex token and its bcrypt hash.
func GenerateToken() (token, hash string, err error) {
	b := make([]byte, tokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", "", fmt.Errorf("failed to generate random token: %w", err)
	}
	token = hex.EncodeToString(b)

	hash, err = HashToken(token)
	if err != nil {
		return "", "", err
	}
	return token, hash, nil
}

// HashToken returns the bcrypt hash stored for token.
func HashToken(token string) (string, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(token), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash token: %w", err)
	}
	return string(h), nil
}

// TokenValidator checks bearer tokens against one configured hash.
// A validator without a hash accepts every request.
type TokenValidator struct {
	hash   []byte
	logger *zap.Logger
}

// NewTokenValidator creates a validator for hash. An empty hash disables auth.
func NewTokenValidator(hash string, logger *zap.Logger) *TokenValidator {
	return &TokenValidator{
		hash:   []byte(strings.TrimSpace(hash)),
		logger: logging.OrNop(logger).Named("auth"),
	}
}

// Enabled reports whether a token is required.
func (tv *TokenValidator) Enabled() bool {
	return len(tv.hash) > 0
}

// Validate checks token. bcrypt does the comparison in constant time.
func (tv *TokenValidator) Validate(token string) error {
	if !tv.Enabled() {
		return nil
	}
	if token == "" {
		return ErrInvalidToken
	}
	if err := bcrypt.CompareHashAndPassword(tv.hash, []byte(token)); err != nil {
		tv.logger.Warn("token validation failed")
		return ErrInvalidToken
	}
	return nil
}

// BearerToken extracts the token from an "Authorization: Bearer" header,
// falling back to the "token" query parameter for WebSocket clients that
// cannot set headers. Returns "" when neither is present.
func BearerToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		const prefix = "bearer "
		if len(h) > len(prefix) && strings.EqualFold(h[:len(prefix)], prefix) {
			return strings.TrimSpace(h[len(prefix):])
		}
	}
	return r.URL.Query().Get("token")
}
