package businessflow_test

import (
	"context"
	"testing"

	"github.com/amirphl/Kusanagi/app/dto"
	businessflow "github.com/amirphl/Kusanagi/business_flow"
	"github.com/amirphl/Kusanagi/models"
	"github.com/amirphl/Kusanagi/repository"
	testingutil "github.com/amirphl/Kusanagi/testing"
	"github.com/amirphl/Kusanagi/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestRegister(t *testing.T) {
	withTestDB(t, func(testDB *testingutil.TestDB, fixtures *testingutil.TestFixtures) {
		userRepo := repository.NewUserRepository(testDB.DB)
		auditRepo := repository.NewAuditLogRepository(testDB.DB)
		signupFlow := businessflow.NewSignupFlow(userRepo, auditRepo, testDB.DB)
		ctx := context.Background()

		t.Run("SuccessfulRegistration", func(t *testing.T) {
			department := "Finance"
			req := &dto.RegisterRequest{
				FirstName:  "John",
				LastName:   "Doe",
				Email:      "john.doe@example.com",
				Password:   "SecurePass123!",
				Department: &department,
			}

			result, err := signupFlow.Register(ctx, req, testMetadata())
			require.NoError(t, err)
			require.NotNil(t, result)
			assert.Equal(t, "John", result.FirstName)
			assert.Equal(t, "john.doe@example.com", result.Email)
			assert.Equal(t, models.RoleOtherStaff, result.Role)

			// Verify the stored row
			user, err := userRepo.ByEmail(ctx, "john.doe@example.com")
			require.NoError(t, err)
			require.NotNil(t, user)
			assert.Equal(t, models.RoleOtherStaff, user.Role)
			assert.True(t, utils.IsTrue(user.IsActive))
			assert.NotEmpty(t, user.UUID)

			// Password is stored hashed
			assert.NotEqual(t, "SecurePass123!", user.PasswordHash)
			assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("SecurePass123!")))

			// Audit trail
			logs, err := auditRepo.ByFilter(ctx, models.AuditLogFilter{
				UserID: &user.ID,
				Action: utils.ToPtr(models.AuditActionSignupCompleted),
			}, "", 0, 0)
			require.NoError(t, err)
			require.Len(t, logs, 1)
			assert.True(t, utils.IsTrue(logs[0].Success))
		})

		t.Run("DuplicateEmail", func(t *testing.T) {
			req := &dto.RegisterRequest{
				FirstName: "John",
				LastName:  "Doe",
				Email:     "john.doe@example.com",
				Password:  "SecurePass123!",
			}

			result, err := signupFlow.Register(ctx, req, testMetadata())
			require.Error(t, err)
			assert.Nil(t, result)
			assert.True(t, businessflow.IsEmailAlreadyExists(err))
		})

		t.Run("StaffRegistration", func(t *testing.T) {
			req := &dto.StaffRegisterRequest{
				FirstName: "Jane",
				LastName:  "Smith",
				Email:     "jane.smith@example.com",
				Password:  "SecurePass123!",
				Role:      models.RoleICTStaff,
			}

			result, err := signupFlow.RegisterStaff(ctx, req, testMetadata())
			require.NoError(t, err)
			require.NotNil(t, result)
			assert.Equal(t, models.RoleICTStaff, result.Role)
		})

		t.Run("StaffRegistrationAdmin", func(t *testing.T) {
			req := &dto.StaffRegisterRequest{
				FirstName: "Amy",
				LastName:  "Admin",
				Email:     "amy.admin@example.com",
				Password:  "SecurePass123!",
				Role:      models.RoleAdmin,
			}

			result, err := signupFlow.RegisterStaff(ctx, req, testMetadata())
			require.NoError(t, err)
			require.NotNil(t, result)
			assert.Equal(t, models.RoleAdmin, result.Role)
		})

		t.Run("StaffRegistrationRejectsOtherStaff", func(t *testing.T) {
			req := &dto.StaffRegisterRequest{
				FirstName: "Bob",
				LastName:  "Builder",
				Email:     "bob.builder@example.com",
				Password:  "SecurePass123!",
				Role:      models.RoleOtherStaff,
			}

			result, err := signupFlow.RegisterStaff(ctx, req, testMetadata())
			require.Error(t, err)
			assert.Nil(t, result)
			assert.True(t, businessflow.IsInvalidRole(err))
		})
	})
}
