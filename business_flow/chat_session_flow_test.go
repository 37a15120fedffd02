package businessflow_test

import (
	"context"
	"testing"

	"github.com/amirphl/Kusanagi/app/dto"
	businessflow "github.com/amirphl/Kusanagi/business_flow"
	"github.com/amirphl/Kusanagi/models"
	"github.com/amirphl/Kusanagi/repository"
	testingutil "github.com/amirphl/Kusanagi/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestChatFlow(testDB *testingutil.TestDB) businessflow.ChatSessionFlow {
	sessionRepo := repository.NewChatSessionRepository(testDB.DB)
	ticketRepo := repository.NewTicketRepository(testDB.DB)
	userRepo := repository.NewUserRepository(testDB.DB)
	auditRepo := repository.NewAuditLogRepository(testDB.DB)
	return businessflow.NewChatSessionFlow(sessionRepo, ticketRepo, userRepo, auditRepo, testDB.DB)
}

func TestGetAvailableStaff(t *testing.T) {
	withTestDB(t, func(testDB *testingutil.TestDB, fixtures *testingutil.TestFixtures) {
		chatFlow := newTestChatFlow(testDB)
		ctx := context.Background()

		reporter, err := fixtures.CreateTestUser(models.RoleOtherStaff)
		require.NoError(t, err)
		freeStaff, err := fixtures.CreateTestUser(models.RoleICTStaff)
		require.NoError(t, err)
		busyStaff, err := fixtures.CreateTestUser(models.RoleICTStaff)
		require.NoError(t, err)
		_, err = fixtures.CreateInactiveTestUser(models.RoleICTStaff)
		require.NoError(t, err)

		ticket, err := fixtures.CreateTestTicket(reporter)
		require.NoError(t, err)
		_, err = fixtures.CreateTestChatSession(ticket, &busyStaff.ID)
		require.NoError(t, err)

		available, err := chatFlow.GetAvailableStaff(ctx, actorFor(reporter))
		require.NoError(t, err)
		require.Len(t, available, 1)
		assert.Equal(t, freeStaff.ID, available[0].ID)
	})
}

func TestStartChat(t *testing.T) {
	withTestDB(t, func(testDB *testingutil.TestDB, fixtures *testingutil.TestFixtures) {
		chatFlow := newTestChatFlow(testDB)
		ctx := context.Background()

		reporter, err := fixtures.CreateTestUser(models.RoleOtherStaff)
		require.NoError(t, err)
		stranger, err := fixtures.CreateTestUser(models.RoleOtherStaff)
		require.NoError(t, err)
		staff, err := fixtures.CreateTestUser(models.RoleICTStaff)
		require.NoError(t, err)

		ticket, err := fixtures.CreateTestTicket(reporter)
		require.NoError(t, err)

		t.Run("OwnerStartsUnassignedSession", func(t *testing.T) {
			session, err := chatFlow.StartChat(ctx, actorFor(reporter), &dto.StartChatRequest{
				TicketID: ticket.ID,
			}, testMetadata())
			require.NoError(t, err)
			require.NotNil(t, session)
			assert.Equal(t, models.ChatSessionStatusActive, session.Status)
			assert.Equal(t, ticket.ID, session.TicketID)
			assert.Nil(t, session.ICTStaffID)
		})

		t.Run("SecondStartReturnsExistingSession", func(t *testing.T) {
			first, err := chatFlow.GetActiveSession(ctx, actorFor(reporter), ticket.ID)
			require.NoError(t, err)

			again, err := chatFlow.StartChat(ctx, actorFor(reporter), &dto.StartChatRequest{
				TicketID: ticket.ID,
			}, testMetadata())
			require.NoError(t, err)
			assert.Equal(t, first.ID, again.ID)
		})

		t.Run("StrangerDenied", func(t *testing.T) {
			otherTicket, err := fixtures.CreateTestTicket(reporter)
			require.NoError(t, err)

			session, err := chatFlow.StartChat(ctx, actorFor(stranger), &dto.StartChatRequest{
				TicketID: otherTicket.ID,
			}, testMetadata())
			require.Error(t, err)
			assert.Nil(t, session)
			assert.True(t, businessflow.IsAccessDenied(err))
		})

		t.Run("RequestedStaffMustBeICTStaff", func(t *testing.T) {
			otherTicket, err := fixtures.CreateTestTicket(reporter)
			require.NoError(t, err)

			session, err := chatFlow.StartChat(ctx, actorFor(reporter), &dto.StartChatRequest{
				TicketID:   otherTicket.ID,
				ICTStaffID: &stranger.ID,
			}, testMetadata())
			require.Error(t, err)
			assert.Nil(t, session)
			assert.True(t, businessflow.IsStaffNotICTStaff(err))
		})

		t.Run("BusyStaffRejected", func(t *testing.T) {
			firstTicket, err := fixtures.CreateTestTicket(stranger)
			require.NoError(t, err)
			_, err = chatFlow.StartChat(ctx, actorFor(stranger), &dto.StartChatRequest{
				TicketID:   firstTicket.ID,
				ICTStaffID: &staff.ID,
			}, testMetadata())
			require.NoError(t, err)

			secondTicket, err := fixtures.CreateTestTicket(reporter)
			require.NoError(t, err)
			session, err := chatFlow.StartChat(ctx, actorFor(reporter), &dto.StartChatRequest{
				TicketID:   secondTicket.ID,
				ICTStaffID: &staff.ID,
			}, testMetadata())
			require.Error(t, err)
			assert.Nil(t, session)
			assert.True(t, businessflow.IsStaffUnavailable(err))
		})

		t.Run("UnknownTicket", func(t *testing.T) {
			session, err := chatFlow.StartChat(ctx, actorFor(reporter), &dto.StartChatRequest{
				TicketID: 999999,
			}, testMetadata())
			require.Error(t, err)
			assert.Nil(t, session)
			assert.True(t, businessflow.IsTicketNotFound(err))
		})
	})
}

func TestAssignAndTransferChat(t *testing.T) {
	withTestDB(t, func(testDB *testingutil.TestDB, fixtures *testingutil.TestFixtures) {
		chatFlow := newTestChatFlow(testDB)
		ctx := context.Background()

		admin, err := fixtures.CreateTestUser(models.RoleAdmin)
		require.NoError(t, err)
		reporter, err := fixtures.CreateTestUser(models.RoleOtherStaff)
		require.NoError(t, err)
		staffA, err := fixtures.CreateTestUser(models.RoleICTStaff)
		require.NoError(t, err)
		staffB, err := fixtures.CreateTestUser(models.RoleICTStaff)
		require.NoError(t, err)

		ticket, err := fixtures.CreateTestTicket(reporter)
		require.NoError(t, err)
		session, err := fixtures.CreateTestChatSession(ticket, nil)
		require.NoError(t, err)

		t.Run("NonAdminCannotAssign", func(t *testing.T) {
			result, err := chatFlow.AssignStaff(ctx, actorFor(reporter), session.ID, &dto.AssignStaffRequest{
				ICTStaffID: staffA.ID,
			}, testMetadata())
			require.Error(t, err)
			assert.Nil(t, result)
			assert.True(t, businessflow.IsAccessDenied(err))
		})

		t.Run("AdminAssignsStaff", func(t *testing.T) {
			result, err := chatFlow.AssignStaff(ctx, actorFor(admin), session.ID, &dto.AssignStaffRequest{
				ICTStaffID: staffA.ID,
			}, testMetadata())
			require.NoError(t, err)
			require.NotNil(t, result.ICTStaffID)
			assert.Equal(t, staffA.ID, *result.ICTStaffID)

			// Plain assignment records no transfer
			assert.Nil(t, result.TransferredBy)
			assert.Empty(t, result.AdminParticipants)
		})

		t.Run("ReassignToSameStaffRejected", func(t *testing.T) {
			result, err := chatFlow.AssignStaff(ctx, actorFor(admin), session.ID, &dto.AssignStaffRequest{
				ICTStaffID: staffA.ID,
			}, testMetadata())
			require.Error(t, err)
			assert.Nil(t, result)
			assert.True(t, businessflow.IsStaffUnavailable(err))
		})

		t.Run("TransferRecordsAdminParticipant", func(t *testing.T) {
			result, err := chatFlow.TransferChat(ctx, actorFor(admin), session.ID, &dto.TransferChatRequest{
				ICTStaffID: staffB.ID,
			}, testMetadata())
			require.NoError(t, err)
			require.NotNil(t, result.ICTStaffID)
			assert.Equal(t, staffB.ID, *result.ICTStaffID)
			require.NotNil(t, result.TransferredTo)
			assert.Equal(t, staffB.ID, *result.TransferredTo)
			require.NotNil(t, result.TransferredBy)
			assert.Equal(t, admin.ID, *result.TransferredBy)
			assert.NotEmpty(t, result.TransferredAt)
			assert.Contains(t, result.AdminParticipants, admin.ID)
		})

		t.Run("RepeatedTransferKeepsParticipantSetDeduplicated", func(t *testing.T) {
			result, err := chatFlow.TransferChat(ctx, actorFor(admin), session.ID, &dto.TransferChatRequest{
				ICTStaffID: staffA.ID,
			}, testMetadata())
			require.NoError(t, err)

			count := 0
			for _, id := range result.AdminParticipants {
				if id == admin.ID {
					count++
				}
			}
			assert.Equal(t, 1, count)
		})

		t.Run("TransferToBusyStaffRejected", func(t *testing.T) {
			otherTicket, err := fixtures.CreateTestTicket(reporter)
			require.NoError(t, err)
			_, err = fixtures.CreateTestChatSession(otherTicket, &staffB.ID)
			require.NoError(t, err)

			result, err := chatFlow.TransferChat(ctx, actorFor(admin), session.ID, &dto.TransferChatRequest{
				ICTStaffID: staffB.ID,
			}, testMetadata())
			require.Error(t, err)
			assert.Nil(t, result)
			assert.True(t, businessflow.IsStaffUnavailable(err))
		})
	})
}

func TestEndSession(t *testing.T) {
	withTestDB(t, func(testDB *testingutil.TestDB, fixtures *testingutil.TestFixtures) {
		chatFlow := newTestChatFlow(testDB)
		ctx := context.Background()

		admin, err := fixtures.CreateTestUser(models.RoleAdmin)
		require.NoError(t, err)
		reporter, err := fixtures.CreateTestUser(models.RoleOtherStaff)
		require.NoError(t, err)
		staff, err := fixtures.CreateTestUser(models.RoleICTStaff)
		require.NoError(t, err)

		ticket, err := fixtures.CreateTestTicket(reporter)
		require.NoError(t, err)
		session, err := fixtures.CreateTestChatSession(ticket, &staff.ID)
		require.NoError(t, err)

		t.Run("UninvolvedAdminCannotEnd", func(t *testing.T) {
			result, err := chatFlow.EndSession(ctx, actorFor(admin), session.ID, testMetadata())
			require.Error(t, err)
			assert.Nil(t, result)
			assert.True(t, businessflow.IsAccessDenied(err))
		})

		t.Run("ParticipantEndsSession", func(t *testing.T) {
			result, err := chatFlow.EndSession(ctx, actorFor(staff), session.ID, testMetadata())
			require.NoError(t, err)
			assert.Equal(t, models.ChatSessionStatusClosed, result.Status)
			assert.NotEmpty(t, result.EndedAt)
		})

		t.Run("ClosedSessionStaysClosed", func(t *testing.T) {
			result, err := chatFlow.EndSession(ctx, actorFor(reporter), session.ID, testMetadata())
			require.Error(t, err)
			assert.Nil(t, result)
			assert.True(t, businessflow.IsChatSessionNotActive(err))
		})

		t.Run("NewSessionAfterClose", func(t *testing.T) {
			fresh, err := chatFlow.StartChat(ctx, actorFor(reporter), &dto.StartChatRequest{
				TicketID: ticket.ID,
			}, testMetadata())
			require.NoError(t, err)
			assert.NotEqual(t, session.ID, fresh.ID)
			assert.Equal(t, models.ChatSessionStatusActive, fresh.Status)

			history, err := chatFlow.GetChatHistory(ctx, actorFor(reporter), ticket.ID)
			require.NoError(t, err)
			assert.Len(t, history, 2)
		})
	})
}

func TestSessionDashboards(t *testing.T) {
	withTestDB(t, func(testDB *testingutil.TestDB, fixtures *testingutil.TestFixtures) {
		chatFlow := newTestChatFlow(testDB)
		ctx := context.Background()

		admin, err := fixtures.CreateTestUser(models.RoleAdmin)
		require.NoError(t, err)
		reporter, err := fixtures.CreateTestUser(models.RoleOtherStaff)
		require.NoError(t, err)
		staff, err := fixtures.CreateTestUser(models.RoleICTStaff)
		require.NoError(t, err)

		ticketA, err := fixtures.CreateTestTicket(reporter)
		require.NoError(t, err)
		ticketB, err := fixtures.CreateTestTicket(reporter)
		require.NoError(t, err)

		_, err = fixtures.CreateTestChatSession(ticketA, &staff.ID)
		require.NoError(t, err)
		_, err = fixtures.CreateTestChatSession(ticketB, nil)
		require.NoError(t, err)

		t.Run("ActiveSessionsAdminOnly", func(t *testing.T) {
			sessions, err := chatFlow.ListActiveSessions(ctx, actorFor(admin))
			require.NoError(t, err)
			assert.Len(t, sessions, 2)

			_, err = chatFlow.ListActiveSessions(ctx, actorFor(staff))
			require.Error(t, err)
			assert.True(t, businessflow.IsAccessDenied(err))
		})

		t.Run("StaffSessionsScopedToCaller", func(t *testing.T) {
			sessions, err := chatFlow.ListStaffSessions(ctx, actorFor(staff))
			require.NoError(t, err)
			require.Len(t, sessions, 1)
			assert.Equal(t, ticketA.ID, sessions[0].TicketID)

			_, err = chatFlow.ListStaffSessions(ctx, actorFor(reporter))
			require.Error(t, err)
			assert.True(t, businessflow.IsAccessDenied(err))
		})
	})
}
