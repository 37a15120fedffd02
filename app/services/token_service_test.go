// Package services provides external service integrations and technical concerns like notifications and tokens
package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// createTestTokenService creates a token service for testing with symmetric key
func createTestTokenService() (TokenService, error) {
	return NewTokenService(
		15*time.Minute,
		"test-issuer",
		"test-audience",
		false, // useRSAKeys
		"",    // privateKeyPEM
		"",    // publicKeyPEM
		"test-secret-key-for-jwt-signing-32-chars", // secretKey
		nil, // cache
	)
}

func TestNewTokenService(t *testing.T) {
	tests := []struct {
		name           string
		accessTokenTTL time.Duration
		issuer         string
		audience       string
		useRSAKeys     bool
		privateKeyPEM  string
		publicKeyPEM   string
		secretKey      string
		expectError    bool
	}{
		{
			name:           "valid symmetric key configuration",
			accessTokenTTL: 15 * time.Minute,
			issuer:         "test-issuer",
			audience:       "test-audience",
			useRSAKeys:     false,
			secretKey:      "test-secret-key-for-jwt-signing-32-chars",
			expectError:    false,
		},
		{
			name:           "missing secret key",
			accessTokenTTL: 15 * time.Minute,
			issuer:         "test-issuer",
			audience:       "test-audience",
			useRSAKeys:     false,
			secretKey:      "",
			expectError:    true,
		},
		{
			name:           "RSA requested without keys",
			accessTokenTTL: 15 * time.Minute,
			issuer:         "test-issuer",
			audience:       "test-audience",
			useRSAKeys:     true,
			expectError:    true,
		},
		{
			name:           "empty issuer and audience",
			accessTokenTTL: 15 * time.Minute,
			issuer:         "",
			audience:       "",
			useRSAKeys:     false,
			secretKey:      "test-secret-key-for-jwt-signing-32-chars",
			expectError:    false, // Should not error, just use empty strings
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service, err := NewTokenService(
				tt.accessTokenTTL,
				tt.issuer,
				tt.audience,
				tt.useRSAKeys,
				tt.privateKeyPEM,
				tt.publicKeyPEM,
				tt.secretKey,
				nil,
			)

			if tt.expectError {
				assert.Error(t, err)
				assert.Nil(t, service)
			} else {
				assert.NoError(t, err)
				assert.NotNil(t, service)
			}
		})
	}
}

func TestGenerateToken(t *testing.T) {
	service, err := createTestTokenService()
	require.NoError(t, err)

	tests := []struct {
		name   string
		userID uint
		role   string
	}{
		{
			name:   "admin token",
			userID: 1,
			role:   "admin",
		},
		{
			name:   "ict staff token",
			userID: 123,
			role:   "ict_staff",
		},
		{
			name:   "other staff token",
			userID: 999999999,
			role:   "other_staff",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token, tokenID, err := service.GenerateToken(tt.userID, tt.role)
			require.NoError(t, err)
			assert.NotEmpty(t, token)
			assert.NotEmpty(t, tokenID)

			// Verify token is valid JWT format (should start with "eyJ")
			assert.Contains(t, token, "eyJ")
		})
	}
}

func TestValidateToken(t *testing.T) {
	service, err := createTestTokenService()
	require.NoError(t, err)
	ctx := context.Background()

	token, tokenID, err := service.GenerateToken(123, "ict_staff")
	require.NoError(t, err)

	tests := []struct {
		name        string
		token       string
		expectError bool
	}{
		{
			name:        "valid token",
			token:       token,
			expectError: false,
		},
		{
			name:        "empty token",
			token:       "",
			expectError: true,
		},
		{
			name:        "invalid token format",
			token:       "invalid.token.format",
			expectError: true,
		},
		{
			name:        "malformed token",
			token:       "eyJhbGciOiJIUzI1NiIsInR5cCI6IkpXVCJ9.invalid.signature",
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			claims, err := service.ValidateToken(ctx, tt.token)

			if tt.expectError {
				assert.Error(t, err)
				assert.Nil(t, claims)
			} else {
				assert.NoError(t, err)
				require.NotNil(t, claims)
				assert.Equal(t, uint(123), claims.UserID)
				assert.Equal(t, "ict_staff", claims.Role)
				assert.Equal(t, "access", claims.TokenType)
				assert.Equal(t, tokenID, claims.TokenID)
				assert.False(t, claims.IssuedAt.IsZero())
				assert.True(t, claims.ExpiresAt.After(claims.IssuedAt))
			}
		})
	}
}

func TestRevokeToken(t *testing.T) {
	service, err := createTestTokenService()
	require.NoError(t, err)
	ctx := context.Background()

	token, tokenID, err := service.GenerateToken(123, "admin")
	require.NoError(t, err)

	// Token validates before revocation
	claims, err := service.ValidateToken(ctx, token)
	require.NoError(t, err)
	require.NotNil(t, claims)

	require.NoError(t, service.RevokeToken(ctx, token))
	assert.True(t, service.IsTokenRevoked(ctx, tokenID))

	// Validation rejects the revoked token
	claims, err = service.ValidateToken(ctx, token)
	assert.ErrorIs(t, err, ErrTokenRevoked)
	assert.Nil(t, claims)

	// Revoking twice is a no-op
	assert.NoError(t, service.RevokeToken(ctx, token))

	t.Run("invalid token", func(t *testing.T) {
		assert.Error(t, service.RevokeToken(ctx, "invalid.token"))
	})

	t.Run("unknown token id is not revoked", func(t *testing.T) {
		assert.False(t, service.IsTokenRevoked(ctx, "deadbeefdeadbeefdeadbeefdeadbeef"))
	})
}

func TestTokenExpiration(t *testing.T) {
	// Create service with very short TTL for testing expiration
	service, err := NewTokenService(1*time.Second, "test-issuer", "test-audience", false, "", "", "test-secret-key-for-jwt-signing-32-chars", nil)
	require.NoError(t, err)
	ctx := context.Background()

	token, _, err := service.GenerateToken(123, "admin")
	require.NoError(t, err)

	claims, err := service.ValidateToken(ctx, token)
	assert.NoError(t, err)
	assert.NotNil(t, claims)

	time.Sleep(2 * time.Second)

	claims, err = service.ValidateToken(ctx, token)
	assert.ErrorIs(t, err, ErrTokenExpired)
	assert.Nil(t, claims)
}

func TestTokenSecurity(t *testing.T) {
	// Create services with different keys
	service1, err := NewTokenService(15*time.Minute, "issuer1", "audience1", false, "", "", "test-secret-key-1-for-jwt-signing-32-chars", nil)
	require.NoError(t, err)

	service2, err := NewTokenService(15*time.Minute, "issuer2", "audience2", false, "", "", "test-secret-key-2-for-jwt-signing-32-chars", nil)
	require.NoError(t, err)

	ctx := context.Background()

	token1, _, err := service1.GenerateToken(123, "admin")
	require.NoError(t, err)

	token2, _, err := service2.GenerateToken(123, "admin")
	require.NoError(t, err)

	// Tokens should differ even with the same user ID
	assert.NotEqual(t, token1, token2)

	// Tokens from one service should not be valid in another service
	claims, err := service1.ValidateToken(ctx, token2)
	assert.Error(t, err)
	assert.Nil(t, claims)

	claims, err = service2.ValidateToken(ctx, token1)
	assert.Error(t, err)
	assert.Nil(t, claims)
}

func TestConcurrentTokenGeneration(t *testing.T) {
	service, err := createTestTokenService()
	require.NoError(t, err)

	const numGoroutines = 10
	tokens := make(chan string, numGoroutines)
	errors := make(chan error, numGoroutines)

	for i := 0; i < numGoroutines; i++ {
		go func(userID uint) {
			token, _, err := service.GenerateToken(userID, "other_staff")
			if err != nil {
				errors <- err
				return
			}
			tokens <- token
		}(uint(i + 1))
	}

	generatedTokens := make(map[string]bool)
	for i := 0; i < numGoroutines; i++ {
		select {
		case token := <-tokens:
			assert.NotEmpty(t, token)
			assert.False(t, generatedTokens[token], "Duplicate token generated")
			generatedTokens[token] = true
		case err := <-errors:
			t.Errorf("Error generating token: %v", err)
		}
	}

	assert.Equal(t, numGoroutines, len(generatedTokens))
}

func TestTokenValidationEdgeCases(t *testing.T) {
	service, err := createTestTokenService()
	require.NoError(t, err)
	ctx := context.Background()

	tests := []struct {
		name  string
		token string
	}{
		{
			name:  "empty token",
			token: "",
		},
		{
			name:  "single character",
			token: "a",
		},
		{
			name:  "non-JWT string",
			token: "this is not a jwt token",
		},
		{
			name:  "JWT with wrong number of parts",
			token: "eyJhbGciOiJIUzI1NiIsInR5cCI6IkpXVCJ9.eyJ1c2VyX2lkIjoxMjN9",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			claims, err := service.ValidateToken(ctx, tt.token)
			assert.Error(t, err)
			assert.Nil(t, claims)
		})
	}
}

func BenchmarkGenerateToken(b *testing.B) {
	service, err := createTestTokenService()
	require.NoError(b, err)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _, err := service.GenerateToken(uint(i), "other_staff")
		require.NoError(b, err)
	}
}

func BenchmarkValidateToken(b *testing.B) {
	service, err := createTestTokenService()
	require.NoError(b, err)

	token, _, err := service.GenerateToken(123, "admin")
	require.NoError(b, err)

	ctx := context.Background()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, err := service.ValidateToken(ctx, token)
		require.NoError(b, err)
	}
}
