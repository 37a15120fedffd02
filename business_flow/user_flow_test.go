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
)

func newTestUserFlow(testDB *testingutil.TestDB) businessflow.UserFlow {
	userRepo := repository.NewUserRepository(testDB.DB)
	auditRepo := repository.NewAuditLogRepository(testDB.DB)
	return businessflow.NewUserFlow(userRepo, auditRepo, testDB.DB)
}

func TestUserAdministration(t *testing.T) {
	withTestDB(t, func(testDB *testingutil.TestDB, fixtures *testingutil.TestFixtures) {
		userFlow := newTestUserFlow(testDB)
		ctx := context.Background()

		admin, err := fixtures.CreateTestUser(models.RoleAdmin)
		require.NoError(t, err)
		staff, err := fixtures.CreateTestUser(models.RoleICTStaff)
		require.NoError(t, err)
		regular, err := fixtures.CreateTestUser(models.RoleOtherStaff)
		require.NoError(t, err)

		t.Run("ListUsersAdminOnly", func(t *testing.T) {
			users, err := userFlow.ListUsers(ctx, actorFor(admin))
			require.NoError(t, err)
			assert.Len(t, users, 3)

			_, err = userFlow.ListUsers(ctx, actorFor(regular))
			require.Error(t, err)
			assert.True(t, businessflow.IsAccessDenied(err))
		})

		t.Run("GetUserAdminOnly", func(t *testing.T) {
			result, err := userFlow.GetUser(ctx, actorFor(admin), staff.ID)
			require.NoError(t, err)
			assert.Equal(t, staff.Email, result.Email)

			_, err = userFlow.GetUser(ctx, actorFor(staff), regular.ID)
			require.Error(t, err)
			assert.True(t, businessflow.IsAccessDenied(err))
		})

		t.Run("AdminUpdatesRole", func(t *testing.T) {
			result, err := userFlow.UpdateUser(ctx, actorFor(admin), regular.ID, &dto.UpdateUserRequest{
				Role: utils.ToPtr(models.RoleICTStaff),
			}, testMetadata())
			require.NoError(t, err)
			assert.Equal(t, models.RoleICTStaff, result.Role)

			// revert for the remaining subtests
			_, err = userFlow.UpdateUser(ctx, actorFor(admin), regular.ID, &dto.UpdateUserRequest{
				Role: utils.ToPtr(models.RoleOtherStaff),
			}, testMetadata())
			require.NoError(t, err)
		})

		t.Run("ListICTStaff", func(t *testing.T) {
			result, err := userFlow.ListICTStaff(ctx)
			require.NoError(t, err)
			require.Len(t, result, 1)
			assert.Equal(t, staff.ID, result[0].ID)
		})

		t.Run("DeleteUserAdminOnly", func(t *testing.T) {
			doomed, err := fixtures.CreateTestUser(models.RoleOtherStaff)
			require.NoError(t, err)

			err = userFlow.DeleteUser(ctx, actorFor(regular), doomed.ID, testMetadata())
			require.Error(t, err)
			assert.True(t, businessflow.IsAccessDenied(err))

			require.NoError(t, userFlow.DeleteUser(ctx, actorFor(admin), doomed.ID, testMetadata()))

			_, err = userFlow.GetUser(ctx, actorFor(admin), doomed.ID)
			require.Error(t, err)
			assert.True(t, businessflow.IsUserNotFound(err))
		})
	})
}

func TestProfile(t *testing.T) {
	withTestDB(t, func(testDB *testingutil.TestDB, fixtures *testingutil.TestFixtures) {
		userFlow := newTestUserFlow(testDB)
		ctx := context.Background()

		user, err := fixtures.CreateTestUser(models.RoleOtherStaff)
		require.NoError(t, err)

		t.Run("GetProfile", func(t *testing.T) {
			profile, err := userFlow.GetProfile(ctx, user.ID)
			require.NoError(t, err)
			assert.Equal(t, user.Email, profile.Email)
		})

		t.Run("UpdateProfile", func(t *testing.T) {
			designation := "Senior Accountant"
			profile, err := userFlow.UpdateProfile(ctx, user.ID, &dto.UpdateProfileRequest{
				FirstName:   utils.ToPtr("Johnny"),
				Designation: &designation,
			}, testMetadata())
			require.NoError(t, err)
			assert.Equal(t, "Johnny", profile.FirstName)
			require.NotNil(t, profile.Designation)
			assert.Equal(t, designation, *profile.Designation)

			// Untouched fields survive a partial update
			assert.Equal(t, user.LastName, profile.LastName)
			assert.Equal(t, user.Role, profile.Role)
		})

		t.Run("UnknownUser", func(t *testing.T) {
			_, err := userFlow.GetProfile(ctx, 999999)
			require.Error(t, err)
			assert.True(t, businessflow.IsUserNotFound(err))
		})
	})
}
