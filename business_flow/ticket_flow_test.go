package businessflow_test

import (
	"bytes"
	"context"
	"testing"

	"github.com/amirphl/Kusanagi/app/dto"
	"github.com/amirphl/Kusanagi/app/services"
	businessflow "github.com/amirphl/Kusanagi/business_flow"
	"github.com/amirphl/Kusanagi/models"
	"github.com/amirphl/Kusanagi/repository"
	testingutil "github.com/amirphl/Kusanagi/testing"
	"github.com/amirphl/Kusanagi/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func newTestTicketFlow(testDB *testingutil.TestDB) businessflow.TicketFlow {
	ticketRepo := repository.NewTicketRepository(testDB.DB)
	userRepo := repository.NewUserRepository(testDB.DB)
	auditRepo := repository.NewAuditLogRepository(testDB.DB)
	notificationSvc := services.NewNotificationService(services.NewMockEmailProvider(), "http://localhost:3000/reset-password")
	return businessflow.NewTicketFlow(ticketRepo, userRepo, auditRepo, notificationSvc, testDB.DB)
}

func TestCreateTicket(t *testing.T) {
	withTestDB(t, func(testDB *testingutil.TestDB, fixtures *testingutil.TestFixtures) {
		ticketFlow := newTestTicketFlow(testDB)
		ctx := context.Background()

		reporter, err := fixtures.CreateTestUser(models.RoleOtherStaff)
		require.NoError(t, err)

		t.Run("SnapshotsReporterDetails", func(t *testing.T) {
			result, err := ticketFlow.CreateTicket(ctx, actorFor(reporter), &dto.CreateTicketRequest{
				Phone:       "555-1234",
				Room:        "B-204",
				Description: "  printer jam  ",
			}, testMetadata())
			require.NoError(t, err)
			require.NotNil(t, result)
			assert.Equal(t, models.TicketStatusOpen, result.Status)
			assert.Equal(t, reporter.FirstName, result.FirstName)
			assert.Equal(t, reporter.LastName, result.LastName)
			require.NotNil(t, result.Department)
			assert.Equal(t, *reporter.Department, *result.Department)

			// Description arrives trimmed
			assert.Equal(t, "printer jam", result.Description)
		})

		t.Run("RejectsBlankDescription", func(t *testing.T) {
			result, err := ticketFlow.CreateTicket(ctx, actorFor(reporter), &dto.CreateTicketRequest{
				Phone:       "555-1234",
				Room:        "B-204",
				Description: "   ",
			}, testMetadata())
			require.Error(t, err)
			assert.Nil(t, result)
		})
	})
}

func TestTicketVisibility(t *testing.T) {
	withTestDB(t, func(testDB *testingutil.TestDB, fixtures *testingutil.TestFixtures) {
		ticketFlow := newTestTicketFlow(testDB)
		ctx := context.Background()

		admin, err := fixtures.CreateTestUser(models.RoleAdmin)
		require.NoError(t, err)
		reporter, err := fixtures.CreateTestUser(models.RoleOtherStaff)
		require.NoError(t, err)
		stranger, err := fixtures.CreateTestUser(models.RoleOtherStaff)
		require.NoError(t, err)

		ticket, err := fixtures.CreateTestTicket(reporter)
		require.NoError(t, err)

		t.Run("OwnerSeesOwnTicket", func(t *testing.T) {
			result, err := ticketFlow.GetTicket(ctx, actorFor(reporter), ticket.ID)
			require.NoError(t, err)
			assert.Equal(t, ticket.ID, result.ID)
		})

		t.Run("AdminSeesAnyTicket", func(t *testing.T) {
			result, err := ticketFlow.GetTicket(ctx, actorFor(admin), ticket.ID)
			require.NoError(t, err)
			assert.Equal(t, ticket.ID, result.ID)
		})

		t.Run("StrangerDenied", func(t *testing.T) {
			result, err := ticketFlow.GetTicket(ctx, actorFor(stranger), ticket.ID)
			require.Error(t, err)
			assert.Nil(t, result)
			assert.True(t, businessflow.IsAccessDenied(err))
		})

		t.Run("ListTicketsAdminOnly", func(t *testing.T) {
			tickets, err := ticketFlow.ListTickets(ctx, actorFor(admin))
			require.NoError(t, err)
			assert.Len(t, tickets, 1)

			_, err = ticketFlow.ListTickets(ctx, actorFor(reporter))
			require.Error(t, err)
			assert.True(t, businessflow.IsAccessDenied(err))
		})

		t.Run("ListMyTicketsScopedToCaller", func(t *testing.T) {
			mine, err := ticketFlow.ListMyTickets(ctx, actorFor(reporter))
			require.NoError(t, err)
			assert.Len(t, mine, 1)

			others, err := ticketFlow.ListMyTickets(ctx, actorFor(stranger))
			require.NoError(t, err)
			assert.Empty(t, others)
		})

		t.Run("UnknownTicket", func(t *testing.T) {
			result, err := ticketFlow.GetTicket(ctx, actorFor(admin), 999999)
			require.Error(t, err)
			assert.Nil(t, result)
			assert.True(t, businessflow.IsTicketNotFound(err))
		})
	})
}

func TestUpdateTicket(t *testing.T) {
	withTestDB(t, func(testDB *testingutil.TestDB, fixtures *testingutil.TestFixtures) {
		ticketFlow := newTestTicketFlow(testDB)
		ctx := context.Background()

		admin, err := fixtures.CreateTestUser(models.RoleAdmin)
		require.NoError(t, err)
		reporter, err := fixtures.CreateTestUser(models.RoleOtherStaff)
		require.NoError(t, err)
		staff, err := fixtures.CreateTestUser(models.RoleICTStaff)
		require.NoError(t, err)

		t.Run("AssignToICTStaff", func(t *testing.T) {
			ticket, err := fixtures.CreateTestTicket(reporter)
			require.NoError(t, err)

			result, err := ticketFlow.UpdateTicket(ctx, actorFor(admin), ticket.ID, &dto.UpdateTicketRequest{
				AssignedTo: &staff.ID,
				Status:     utils.ToPtr(models.TicketStatusInProgress),
			}, testMetadata())
			require.NoError(t, err)
			require.NotNil(t, result.AssignedTo)
			assert.Equal(t, staff.ID, *result.AssignedTo)
			assert.Equal(t, models.TicketStatusInProgress, result.Status)
		})

		t.Run("AssigneeMustBeICTStaff", func(t *testing.T) {
			ticket, err := fixtures.CreateTestTicket(reporter)
			require.NoError(t, err)

			_, err = ticketFlow.UpdateTicket(ctx, actorFor(admin), ticket.ID, &dto.UpdateTicketRequest{
				AssignedTo: &reporter.ID,
			}, testMetadata())
			require.Error(t, err)
			assert.True(t, businessflow.IsAssigneeNotICTStaff(err))
		})

		t.Run("AssignedStaffCanUpdate", func(t *testing.T) {
			ticket, err := fixtures.CreateTestTicket(reporter)
			require.NoError(t, err)

			_, err = ticketFlow.UpdateTicket(ctx, actorFor(admin), ticket.ID, &dto.UpdateTicketRequest{
				AssignedTo: &staff.ID,
			}, testMetadata())
			require.NoError(t, err)

			result, err := ticketFlow.UpdateTicket(ctx, actorFor(staff), ticket.ID, &dto.UpdateTicketRequest{
				Status: utils.ToPtr(models.TicketStatusInProgress),
			}, testMetadata())
			require.NoError(t, err)
			assert.Equal(t, models.TicketStatusInProgress, result.Status)
		})

		t.Run("UnassignedStaffDenied", func(t *testing.T) {
			ticket, err := fixtures.CreateTestTicket(reporter)
			require.NoError(t, err)

			_, err = ticketFlow.UpdateTicket(ctx, actorFor(staff), ticket.ID, &dto.UpdateTicketRequest{
				Status: utils.ToPtr(models.TicketStatusInProgress),
			}, testMetadata())
			require.Error(t, err)
			assert.True(t, businessflow.IsAccessDenied(err))
		})

		t.Run("ActionWinsOverStatus", func(t *testing.T) {
			ticket, err := fixtures.CreateTestTicket(reporter)
			require.NoError(t, err)

			result, err := ticketFlow.UpdateTicket(ctx, actorFor(admin), ticket.ID, &dto.UpdateTicketRequest{
				Action: utils.ToPtr(businessflow.TicketActionComplete),
				Status: utils.ToPtr(models.TicketStatusClosed),
			}, testMetadata())
			require.NoError(t, err)
			assert.Equal(t, models.TicketStatusCompleted, result.Status)
		})

		t.Run("EscalateAction", func(t *testing.T) {
			ticket, err := fixtures.CreateTestTicket(reporter)
			require.NoError(t, err)

			result, err := ticketFlow.UpdateTicket(ctx, actorFor(admin), ticket.ID, &dto.UpdateTicketRequest{
				Action: utils.ToPtr(businessflow.TicketActionEscalate),
			}, testMetadata())
			require.NoError(t, err)
			assert.Equal(t, models.TicketStatusEscalated, result.Status)
		})

		t.Run("IllegalTransitionRejected", func(t *testing.T) {
			ticket, err := fixtures.CreateTestTicket(reporter)
			require.NoError(t, err)

			_, err = ticketFlow.UpdateTicket(ctx, actorFor(admin), ticket.ID, &dto.UpdateTicketRequest{
				Action: utils.ToPtr(businessflow.TicketActionComplete),
			}, testMetadata())
			require.NoError(t, err)

			// Completed tickets can only close
			_, err = ticketFlow.UpdateTicket(ctx, actorFor(admin), ticket.ID, &dto.UpdateTicketRequest{
				Status: utils.ToPtr(models.TicketStatusInProgress),
			}, testMetadata())
			require.Error(t, err)
			assert.True(t, businessflow.IsInvalidStatusTransition(err))
		})

		t.Run("EchoingCurrentStatusAllowed", func(t *testing.T) {
			ticket, err := fixtures.CreateTestTicket(reporter)
			require.NoError(t, err)

			result, err := ticketFlow.UpdateTicket(ctx, actorFor(reporter), ticket.ID, &dto.UpdateTicketRequest{
				Status:      utils.ToPtr(models.TicketStatusOpen),
				Description: utils.ToPtr("monitor still flickering"),
			}, testMetadata())
			require.NoError(t, err)
			assert.Equal(t, models.TicketStatusOpen, result.Status)
			assert.Equal(t, "monitor still flickering", result.Description)
		})
	})
}

func TestDeleteTicket(t *testing.T) {
	withTestDB(t, func(testDB *testingutil.TestDB, fixtures *testingutil.TestFixtures) {
		ticketFlow := newTestTicketFlow(testDB)
		ctx := context.Background()

		reporter, err := fixtures.CreateTestUser(models.RoleOtherStaff)
		require.NoError(t, err)
		staff, err := fixtures.CreateTestUser(models.RoleICTStaff)
		require.NoError(t, err)

		ticket, err := fixtures.CreateTestTicket(reporter)
		require.NoError(t, err)

		t.Run("StaffCannotDelete", func(t *testing.T) {
			err := ticketFlow.DeleteTicket(ctx, actorFor(staff), ticket.ID, testMetadata())
			require.Error(t, err)
			assert.True(t, businessflow.IsAccessDenied(err))
		})

		t.Run("OwnerDeletes", func(t *testing.T) {
			require.NoError(t, ticketFlow.DeleteTicket(ctx, actorFor(reporter), ticket.ID, testMetadata()))

			_, err := ticketFlow.GetTicket(ctx, actorFor(reporter), ticket.ID)
			require.Error(t, err)
			assert.True(t, businessflow.IsTicketNotFound(err))
		})
	})
}

func TestExportTickets(t *testing.T) {
	withTestDB(t, func(testDB *testingutil.TestDB, fixtures *testingutil.TestFixtures) {
		ticketFlow := newTestTicketFlow(testDB)
		ctx := context.Background()

		admin, err := fixtures.CreateTestUser(models.RoleAdmin)
		require.NoError(t, err)
		reporter, err := fixtures.CreateTestUser(models.RoleOtherStaff)
		require.NoError(t, err)

		_, err = fixtures.CreateTestTicket(reporter)
		require.NoError(t, err)
		_, err = fixtures.CreateTestTicket(reporter)
		require.NoError(t, err)

		t.Run("AdminOnly", func(t *testing.T) {
			_, err := ticketFlow.ExportTickets(ctx, actorFor(reporter))
			require.Error(t, err)
			assert.True(t, businessflow.IsAccessDenied(err))
		})

		t.Run("WorkbookContainsAllTickets", func(t *testing.T) {
			data, err := ticketFlow.ExportTickets(ctx, actorFor(admin))
			require.NoError(t, err)
			require.NotEmpty(t, data)

			f, err := excelize.OpenReader(bytes.NewReader(data))
			require.NoError(t, err)
			defer f.Close()

			rows, err := f.GetRows("Tickets")
			require.NoError(t, err)
			// Header plus two ticket rows
			require.Len(t, rows, 3)
			assert.Equal(t, "ID", rows[0][0])
			assert.Equal(t, "Status", rows[0][6])
		})
	})
}
