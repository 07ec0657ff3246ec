package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/atom-todo-api/internal/config"
)

// TestSecret is a signing secret long enough for NewJWTService.
const TestSecret = "test-jwt-secret-that-is-32-chars-long"

// DefaultJWTConfig returns a standard configuration for JWT authentication suitable for testing.
func DefaultJWTConfig() config.AuthConfig {
	return config.AuthConfig{
		JWTSecret:            TestSecret,
		TokenLifetimeMinutes: 60,
	}
}

// NewTestJWTService creates a JWT service with an injectable clock.
// It panics on an invalid secret or lifetime.
func NewTestJWTService(secret string, lifetime time.Duration, timeFunc func() time.Time) JWTService {
	svc, err := newHMACJWTService(secret, lifetime, timeFunc)
	if err != nil {
		// ALLOW-PANIC
		panic(fmt.Sprintf("failed to create test JWT service: %v", err))
	}
	return svc
}

// GenerateTokenWithExpiry signs an access token with an arbitrary expiry,
// including one in the past. svc must come from NewJWTService or NewTestJWTService.
func GenerateTokenWithExpiry(
	svc JWTService,
	userID uuid.UUID,
	email string,
	expiresAt time.Time,
) (string, error) {
	impl, ok := svc.(*hmacJWTService)
	if !ok {
		return "", fmt.Errorf("unsupported JWTService implementation %T", svc)
	}
	token, _, err := impl.generateToken(context.Background(), userID, email, expiresAt)
	return token, err
}

// GenerateAuthHeaderForTesting returns a "Bearer <token>" header value signed
// with DefaultJWTConfig.
func GenerateAuthHeaderForTesting(userID uuid.UUID, email string) (string, error) {
	svc, err := NewJWTService(DefaultJWTConfig())
	if err != nil {
		return "", fmt.Errorf("failed to create JWT service: %w", err)
	}
	token, _, err := svc.GenerateToken(context.Background(), userID, email)
	if err != nil {
		return "", err
	}
	return "Bearer " + token, nil
}
