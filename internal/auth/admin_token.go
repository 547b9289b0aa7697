package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// AdminTokenSigner issues and validates the signed cookie of the
// username/password admin login.
type AdminTokenSigner struct {
	secretKey    []byte
	username     string
	passwordHash []byte
}

func NewAdminTokenSigner(secret, username, passwordHash string) *AdminTokenSigner {
	return &AdminTokenSigner{
		secretKey:    []byte(secret),
		username:     username,
		passwordHash: []byte(passwordHash),
	}
}

// Enabled is false when no credentials are configured.
func (s *AdminTokenSigner) Enabled() bool {
	return len(s.secretKey) > 0 && s.username != "" && len(s.passwordHash) > 0
}

// CheckCredentials compares against the configured bcrypt hash.
func (s *AdminTokenSigner) CheckCredentials(username, password string) bool {
	if !s.Enabled() || username != s.username {
		return false
	}
	return bcrypt.CompareHashAndPassword(s.passwordHash, []byte(password)) == nil
}

func (s *AdminTokenSigner) Sign(username string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub": username,
		"jti": uuid.NewString(),
		"exp": now.Add(ttl).Unix(),
		"iat": now.Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(s.secretKey)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return tokenString, nil
}

// Validate returns the username carried by a valid, unexpired token.
func (s *AdminTokenSigner) Validate(tokenString string) (string, error) {
	if len(s.secretKey) == 0 {
		return "", errors.New("admin login disabled")
	}
	token, err := jwt.ParseWithClaims(tokenString, &jwt.MapClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secretKey, nil
	})
	if err != nil {
		return "", fmt.Errorf("failed to parse token: %w", err)
	}

	claims, ok := token.Claims.(*jwt.MapClaims)
	if !ok || !token.Valid {
		return "", errors.New("invalid token")
	}
	sub, ok := (*claims)["sub"].(string)
	if !ok || sub != s.username {
		return "", errors.New("missing or invalid sub claim")
	}
	return sub, nil
}
