package businessflow_test

import (
	"context"
	"testing"
	"time"

	"github.com/amirphl/Kusanagi/app/dto"
	"github.com/amirphl/Kusanagi/app/services"
	businessflow "github.com/amirphl/Kusanagi/business_flow"
	"github.com/amirphl/Kusanagi/models"
	"github.com/amirphl/Kusanagi/repository"
	testingutil "github.com/amirphl/Kusanagi/testing"
	"github.com/amirphl/Kusanagi/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func newTestLoginFlow(t *testing.T, testDB *testingutil.TestDB) (businessflow.LoginFlow, services.TokenService, repository.UserSessionRepository, repository.PasswordResetTokenRepository) {
	t.Helper()

	userRepo := repository.NewUserRepository(testDB.DB)
	sessionRepo := repository.NewUserSessionRepository(testDB.DB)
	resetTokenRepo := repository.NewPasswordResetTokenRepository(testDB.DB)
	auditRepo := repository.NewAuditLogRepository(testDB.DB)

	tokenService, err := services.NewTokenService(
		time.Hour, "test-issuer", "test-audience",
		false, "", "", "test-secret-key-for-jwt-signing-32-chars", nil,
	)
	require.NoError(t, err)

	notificationSvc := services.NewNotificationService(services.NewMockEmailProvider(), "http://localhost:3000/reset-password")

	flow := businessflow.NewLoginFlow(userRepo, sessionRepo, resetTokenRepo, auditRepo, tokenService, notificationSvc, testDB.DB)
	return flow, tokenService, sessionRepo, resetTokenRepo
}

func TestLogin(t *testing.T) {
	withTestDB(t, func(testDB *testingutil.TestDB, fixtures *testingutil.TestFixtures) {
		loginFlow, tokenService, sessionRepo, _ := newTestLoginFlow(t, testDB)
		ctx := context.Background()

		user, err := fixtures.CreateTestUser(models.RoleOtherStaff)
		require.NoError(t, err)

		t.Run("SuccessfulLogin", func(t *testing.T) {
			result, err := loginFlow.Login(ctx, &dto.LoginRequest{
				Email:    user.Email,
				Password: "TestPass123!",
			}, testMetadata())
			require.NoError(t, err)
			require.NotNil(t, result)
			assert.NotEmpty(t, result.AccessToken)
			assert.Equal(t, "Bearer", result.TokenType)
			assert.Equal(t, user.ID, result.User.ID)

			claims, err := tokenService.ValidateToken(ctx, result.AccessToken)
			require.NoError(t, err)
			assert.Equal(t, user.ID, claims.UserID)
			assert.Equal(t, user.Role, claims.Role)
		})

		t.Run("SecondLoginRevokesPreviousSession", func(t *testing.T) {
			first, err := loginFlow.Login(ctx, &dto.LoginRequest{Email: user.Email, Password: "TestPass123!"}, testMetadata())
			require.NoError(t, err)

			second, err := loginFlow.Login(ctx, &dto.LoginRequest{Email: user.Email, Password: "TestPass123!"}, testMetadata())
			require.NoError(t, err)
			assert.NotEqual(t, first.AccessToken, second.AccessToken)

			sessions, err := sessionRepo.ByFilter(ctx, models.UserSessionFilter{
				UserID:   &user.ID,
				IsActive: utils.ToPtr(true),
			}, "", 0, 0)
			require.NoError(t, err)
			assert.Len(t, sessions, 1)
		})

		t.Run("UnknownEmail", func(t *testing.T) {
			result, err := loginFlow.Login(ctx, &dto.LoginRequest{
				Email:    "nobody@example.com",
				Password: "TestPass123!",
			}, testMetadata())
			require.Error(t, err)
			assert.Nil(t, result)
			assert.True(t, businessflow.IsUserNotFound(err))
		})

		t.Run("IncorrectPassword", func(t *testing.T) {
			result, err := loginFlow.Login(ctx, &dto.LoginRequest{
				Email:    user.Email,
				Password: "WrongPass123!",
			}, testMetadata())
			require.Error(t, err)
			assert.Nil(t, result)
			assert.True(t, businessflow.IsIncorrectPassword(err))
		})

		t.Run("InactiveAccount", func(t *testing.T) {
			inactive, err := fixtures.CreateInactiveTestUser(models.RoleOtherStaff)
			require.NoError(t, err)

			result, err := loginFlow.Login(ctx, &dto.LoginRequest{
				Email:    inactive.Email,
				Password: "TestPass123!",
			}, testMetadata())
			require.Error(t, err)
			assert.Nil(t, result)
			assert.True(t, businessflow.IsAccountInactive(err))
		})
	})
}

func TestLogout(t *testing.T) {
	withTestDB(t, func(testDB *testingutil.TestDB, fixtures *testingutil.TestFixtures) {
		loginFlow, tokenService, sessionRepo, _ := newTestLoginFlow(t, testDB)
		ctx := context.Background()

		user, err := fixtures.CreateTestUser(models.RoleICTStaff)
		require.NoError(t, err)

		result, err := loginFlow.Login(ctx, &dto.LoginRequest{Email: user.Email, Password: "TestPass123!"}, testMetadata())
		require.NoError(t, err)

		claims, err := tokenService.ValidateToken(ctx, result.AccessToken)
		require.NoError(t, err)

		require.NoError(t, loginFlow.Logout(ctx, result.AccessToken, claims.TokenID, user.ID, testMetadata()))

		// Token rejected after logout
		_, err = tokenService.ValidateToken(ctx, result.AccessToken)
		assert.ErrorIs(t, err, services.ErrTokenRevoked)

		// Session row revoked
		sessions, err := sessionRepo.ByFilter(ctx, models.UserSessionFilter{
			UserID:   &user.ID,
			IsActive: utils.ToPtr(true),
		}, "", 0, 0)
		require.NoError(t, err)
		assert.Empty(t, sessions)
	})
}

func TestPasswordReset(t *testing.T) {
	withTestDB(t, func(testDB *testingutil.TestDB, fixtures *testingutil.TestFixtures) {
		loginFlow, _, sessionRepo, resetTokenRepo := newTestLoginFlow(t, testDB)
		userRepo := repository.NewUserRepository(testDB.DB)
		ctx := context.Background()

		user, err := fixtures.CreateTestUser(models.RoleOtherStaff)
		require.NoError(t, err)

		t.Run("ForgotPasswordIssuesToken", func(t *testing.T) {
			require.NoError(t, loginFlow.ForgotPassword(ctx, &dto.ForgotPasswordRequest{Email: user.Email}, testMetadata()))

			tokens, err := resetTokenRepo.ByFilter(ctx, models.PasswordResetTokenFilter{UserID: &user.ID}, "", 0, 0)
			require.NoError(t, err)
			require.Len(t, tokens, 1)
			assert.Nil(t, tokens[0].UsedAt)
			assert.True(t, tokens[0].ExpiresAt.After(time.Now()))
		})

		t.Run("ForgotPasswordUnknownEmail", func(t *testing.T) {
			err := loginFlow.ForgotPassword(ctx, &dto.ForgotPasswordRequest{Email: "nobody@example.com"}, testMetadata())
			require.Error(t, err)
			assert.True(t, businessflow.IsUserNotFound(err))
		})

		t.Run("ResetPasswordConsumesToken", func(t *testing.T) {
			// Active session that the reset must revoke
			_, err := loginFlow.Login(ctx, &dto.LoginRequest{Email: user.Email, Password: "TestPass123!"}, testMetadata())
			require.NoError(t, err)

			tokens, err := resetTokenRepo.ByFilter(ctx, models.PasswordResetTokenFilter{UserID: &user.ID}, "", 0, 0)
			require.NoError(t, err)
			require.Len(t, tokens, 1)

			req := &dto.ResetPasswordRequest{
				Token:           tokens[0].Token,
				NewPassword:     "BrandNewPass456!",
				ConfirmPassword: "BrandNewPass456!",
			}
			require.NoError(t, loginFlow.ResetPassword(ctx, req, testMetadata()))

			// New password is in effect
			updated, err := userRepo.ByID(ctx, user.ID)
			require.NoError(t, err)
			assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(updated.PasswordHash), []byte("BrandNewPass456!")))

			// Sessions revoked
			sessions, err := sessionRepo.ByFilter(ctx, models.UserSessionFilter{
				UserID:   &user.ID,
				IsActive: utils.ToPtr(true),
			}, "", 0, 0)
			require.NoError(t, err)
			assert.Empty(t, sessions)

			// Token is single use
			err = loginFlow.ResetPassword(ctx, req, testMetadata())
			require.Error(t, err)
			assert.True(t, businessflow.IsResetTokenInvalid(err))
		})

		t.Run("ResetPasswordExpiredToken", func(t *testing.T) {
			expired, err := fixtures.CreateExpiredResetToken(user.ID)
			require.NoError(t, err)

			err = loginFlow.ResetPassword(ctx, &dto.ResetPasswordRequest{
				Token:           expired.Token,
				NewPassword:     "AnotherPass789!",
				ConfirmPassword: "AnotherPass789!",
			}, testMetadata())
			require.Error(t, err)
			assert.True(t, businessflow.IsResetTokenExpired(err))
		})

		t.Run("ResetPasswordUnknownToken", func(t *testing.T) {
			err := loginFlow.ResetPassword(ctx, &dto.ResetPasswordRequest{
				Token:           "definitely-not-a-real-token-value",
				NewPassword:     "AnotherPass789!",
				ConfirmPassword: "AnotherPass789!",
			}, testMetadata())
			require.Error(t, err)
			assert.True(t, businessflow.IsResetTokenInvalid(err))
		})
	})
}
