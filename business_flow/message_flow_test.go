package businessflow_test

import (
	"context"
	"strings"
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

func newTestMessageFlow(testDB *testingutil.TestDB) businessflow.MessageFlow {
	messageRepo := repository.NewMessageRepository(testDB.DB)
	sessionRepo := repository.NewChatSessionRepository(testDB.DB)
	ticketRepo := repository.NewTicketRepository(testDB.DB)
	auditRepo := repository.NewAuditLogRepository(testDB.DB)
	return businessflow.NewMessageFlow(messageRepo, sessionRepo, ticketRepo, auditRepo, testDB.DB)
}

func TestSendSessionMessage(t *testing.T) {
	withTestDB(t, func(testDB *testingutil.TestDB, fixtures *testingutil.TestFixtures) {
		messageFlow := newTestMessageFlow(testDB)
		ctx := context.Background()

		reporter, err := fixtures.CreateTestUser(models.RoleOtherStaff)
		require.NoError(t, err)
		staff, err := fixtures.CreateTestUser(models.RoleICTStaff)
		require.NoError(t, err)
		stranger, err := fixtures.CreateTestUser(models.RoleOtherStaff)
		require.NoError(t, err)

		ticket, err := fixtures.CreateTestTicket(reporter)
		require.NoError(t, err)
		session, err := fixtures.CreateTestChatSession(ticket, &staff.ID)
		require.NoError(t, err)

		t.Run("ParticipantSendsMessage", func(t *testing.T) {
			result, err := messageFlow.SendSessionMessage(ctx, actorFor(reporter), session.ID, &dto.SendMessageRequest{
				Message: "  my monitor is flickering  ",
			}, testMetadata())
			require.NoError(t, err)
			require.NotNil(t, result)
			assert.Equal(t, "my monitor is flickering", result.Body)
			assert.False(t, utils.IsTrue(result.IsRead))
			require.NotNil(t, result.ChatSessionID)
			assert.Equal(t, session.ID, *result.ChatSessionID)
			assert.Nil(t, result.TicketID)
		})

		t.Run("StrangerDenied", func(t *testing.T) {
			result, err := messageFlow.SendSessionMessage(ctx, actorFor(stranger), session.ID, &dto.SendMessageRequest{
				Message: "let me in",
			}, testMetadata())
			require.Error(t, err)
			assert.Nil(t, result)
			assert.True(t, businessflow.IsAccessDenied(err))
		})

		t.Run("WhitespaceOnlyBodyRejected", func(t *testing.T) {
			result, err := messageFlow.SendSessionMessage(ctx, actorFor(reporter), session.ID, &dto.SendMessageRequest{
				Message: "   ",
			}, testMetadata())
			require.Error(t, err)
			assert.Nil(t, result)
			assert.True(t, businessflow.IsMessageBodyInvalid(err))
		})

		t.Run("MultibyteBodyCountedInCharacters", func(t *testing.T) {
			// 600 runes but 1200 bytes; only the rune count matters
			body := strings.Repeat("é", 600)
			result, err := messageFlow.SendSessionMessage(ctx, actorFor(reporter), session.ID, &dto.SendMessageRequest{
				Message: body,
			}, testMetadata())
			require.NoError(t, err)
			require.NotNil(t, result)
			assert.Equal(t, body, result.Body)
		})

		t.Run("OverlongMultibyteBodyRejected", func(t *testing.T) {
			result, err := messageFlow.SendSessionMessage(ctx, actorFor(reporter), session.ID, &dto.SendMessageRequest{
				Message: strings.Repeat("é", models.MaxMessageLen+1),
			}, testMetadata())
			require.Error(t, err)
			assert.Nil(t, result)
			assert.True(t, businessflow.IsMessageBodyInvalid(err))
		})

		t.Run("OverlongBodyRejected", func(t *testing.T) {
			result, err := messageFlow.SendSessionMessage(ctx, actorFor(reporter), session.ID, &dto.SendMessageRequest{
				Message: strings.Repeat("a", models.MaxMessageLen+1),
			}, testMetadata())
			require.Error(t, err)
			assert.Nil(t, result)
			assert.True(t, businessflow.IsMessageBodyInvalid(err))
		})

		t.Run("ClosedSessionRejected", func(t *testing.T) {
			otherTicket, err := fixtures.CreateTestTicket(reporter)
			require.NoError(t, err)
			closed, err := fixtures.CreateTestChatSession(otherTicket, nil)
			require.NoError(t, err)

			closed.Status = models.ChatSessionStatusClosed
			require.NoError(t, testDB.DB.Save(closed).Error)

			result, err := messageFlow.SendSessionMessage(ctx, actorFor(reporter), closed.ID, &dto.SendMessageRequest{
				Message: "anyone there?",
			}, testMetadata())
			require.Error(t, err)
			assert.Nil(t, result)
			assert.True(t, businessflow.IsChatSessionNotActive(err))
		})
	})
}

func TestListSessionMessagesMarksRead(t *testing.T) {
	withTestDB(t, func(testDB *testingutil.TestDB, fixtures *testingutil.TestFixtures) {
		messageFlow := newTestMessageFlow(testDB)
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

		_, err = fixtures.CreateTestMessage(session, reporter.ID, "it broke again")
		require.NoError(t, err)
		_, err = fixtures.CreateTestMessage(session, staff.ID, "on my way")
		require.NoError(t, err)

		t.Run("AdminReadDoesNotConsumeUnread", func(t *testing.T) {
			messages, err := messageFlow.ListSessionMessages(ctx, actorFor(admin), session.ID)
			require.NoError(t, err)
			require.Len(t, messages, 2)
			for _, msg := range messages {
				assert.False(t, utils.IsTrue(msg.IsRead))
			}
		})

		t.Run("ParticipantReadMarksOthersOnly", func(t *testing.T) {
			messages, err := messageFlow.ListSessionMessages(ctx, actorFor(staff), session.ID)
			require.NoError(t, err)
			require.Len(t, messages, 2)

			for _, msg := range messages {
				if msg.UserID == reporter.ID {
					assert.True(t, utils.IsTrue(msg.IsRead))
				} else {
					// The reader's own messages stay unread
					assert.False(t, utils.IsTrue(msg.IsRead))
				}
			}
		})

		t.Run("MessagesOrderedOldestFirst", func(t *testing.T) {
			messages, err := messageFlow.ListSessionMessages(ctx, actorFor(reporter), session.ID)
			require.NoError(t, err)
			require.Len(t, messages, 2)
			assert.Equal(t, "it broke again", messages[0].Body)
			assert.Equal(t, "on my way", messages[1].Body)
		})
	})
}

func TestTicketMessages(t *testing.T) {
	withTestDB(t, func(testDB *testingutil.TestDB, fixtures *testingutil.TestFixtures) {
		messageFlow := newTestMessageFlow(testDB)
		ctx := context.Background()

		reporter, err := fixtures.CreateTestUser(models.RoleOtherStaff)
		require.NoError(t, err)
		staff, err := fixtures.CreateTestUser(models.RoleICTStaff)
		require.NoError(t, err)
		stranger, err := fixtures.CreateTestUser(models.RoleOtherStaff)
		require.NoError(t, err)

		ticket, err := fixtures.CreateTestTicket(reporter)
		require.NoError(t, err)
		ticket.AssignedTo = &staff.ID
		require.NoError(t, testDB.DB.Save(ticket).Error)

		t.Run("OwnerSendsTicketMessage", func(t *testing.T) {
			result, err := messageFlow.SendTicketMessage(ctx, actorFor(reporter), ticket.ID, &dto.SendMessageRequest{
				Message: "any update?",
			}, testMetadata())
			require.NoError(t, err)
			require.NotNil(t, result.TicketID)
			assert.Equal(t, ticket.ID, *result.TicketID)
			assert.Nil(t, result.ChatSessionID)
		})

		t.Run("AssignedStaffCanMessage", func(t *testing.T) {
			_, err := messageFlow.SendTicketMessage(ctx, actorFor(staff), ticket.ID, &dto.SendMessageRequest{
				Message: "checking now",
			}, testMetadata())
			require.NoError(t, err)
		})

		t.Run("StrangerDenied", func(t *testing.T) {
			_, err := messageFlow.SendTicketMessage(ctx, actorFor(stranger), ticket.ID, &dto.SendMessageRequest{
				Message: "hello",
			}, testMetadata())
			require.Error(t, err)
			assert.True(t, businessflow.IsAccessDenied(err))
		})

		t.Run("ListingMarksOtherSideRead", func(t *testing.T) {
			messages, err := messageFlow.ListTicketMessages(ctx, actorFor(reporter), ticket.ID)
			require.NoError(t, err)
			require.Len(t, messages, 2)

			for _, msg := range messages {
				if msg.UserID == staff.ID {
					assert.True(t, utils.IsTrue(msg.IsRead))
				}
			}
		})
	})
}

func TestMarkMessageRead(t *testing.T) {
	withTestDB(t, func(testDB *testingutil.TestDB, fixtures *testingutil.TestFixtures) {
		messageFlow := newTestMessageFlow(testDB)
		ctx := context.Background()

		reporter, err := fixtures.CreateTestUser(models.RoleOtherStaff)
		require.NoError(t, err)
		staff, err := fixtures.CreateTestUser(models.RoleICTStaff)
		require.NoError(t, err)
		stranger, err := fixtures.CreateTestUser(models.RoleOtherStaff)
		require.NoError(t, err)

		ticket, err := fixtures.CreateTestTicket(reporter)
		require.NoError(t, err)
		session, err := fixtures.CreateTestChatSession(ticket, &staff.ID)
		require.NoError(t, err)

		message, err := fixtures.CreateTestMessage(session, reporter.ID, "hello")
		require.NoError(t, err)

		t.Run("AuthorCannotMarkOwn", func(t *testing.T) {
			err := messageFlow.MarkMessageRead(ctx, actorFor(reporter), message.ID)
			require.Error(t, err)
			assert.True(t, businessflow.IsCannotMarkOwnRead(err))
		})

		t.Run("OutsiderDenied", func(t *testing.T) {
			err := messageFlow.MarkMessageRead(ctx, actorFor(stranger), message.ID)
			require.Error(t, err)
			assert.True(t, businessflow.IsAccessDenied(err))
		})

		t.Run("RecipientMarksRead", func(t *testing.T) {
			require.NoError(t, messageFlow.MarkMessageRead(ctx, actorFor(staff), message.ID))

			var stored models.Message
			require.NoError(t, testDB.DB.First(&stored, message.ID).Error)
			assert.True(t, utils.IsTrue(stored.IsRead))
		})

		t.Run("MarkingReadTwiceIsIdempotent", func(t *testing.T) {
			require.NoError(t, messageFlow.MarkMessageRead(ctx, actorFor(staff), message.ID))
		})

		t.Run("UnknownMessage", func(t *testing.T) {
			err := messageFlow.MarkMessageRead(ctx, actorFor(staff), 999999)
			require.Error(t, err)
			assert.True(t, businessflow.IsMessageNotFound(err))
		})
	})
}

func TestUnreadCounts(t *testing.T) {
	withTestDB(t, func(testDB *testingutil.TestDB, fixtures *testingutil.TestFixtures) {
		messageFlow := newTestMessageFlow(testDB)
		ctx := context.Background()

		admin, err := fixtures.CreateTestUser(models.RoleAdmin)
		require.NoError(t, err)
		reporter, err := fixtures.CreateTestUser(models.RoleOtherStaff)
		require.NoError(t, err)
		staff, err := fixtures.CreateTestUser(models.RoleICTStaff)
		require.NoError(t, err)

		ticket, err := fixtures.CreateTestTicket(reporter)
		require.NoError(t, err)
		ticket.AssignedTo = &staff.ID
		require.NoError(t, testDB.DB.Save(ticket).Error)

		session, err := fixtures.CreateTestChatSession(ticket, &staff.ID)
		require.NoError(t, err)

		// Two unread from staff, one from the reporter
		_, err = fixtures.CreateTestMessage(session, staff.ID, "looking into it")
		require.NoError(t, err)
		_, err = fixtures.CreateTestMessage(session, staff.ID, "found the cable")
		require.NoError(t, err)
		_, err = fixtures.CreateTestTicketMessage(ticket, reporter.ID, "thanks")
		require.NoError(t, err)

		t.Run("PerTicketCountExcludesOwnMessages", func(t *testing.T) {
			count, err := messageFlow.UnreadCount(ctx, actorFor(reporter), ticket.ID)
			require.NoError(t, err)
			assert.Equal(t, int64(2), count.Count)

			staffCount, err := messageFlow.UnreadCount(ctx, actorFor(staff), ticket.ID)
			require.NoError(t, err)
			assert.Equal(t, int64(1), staffCount.Count)
		})

		t.Run("TotalUnreadScopedByRole", func(t *testing.T) {
			reporterTotal, err := messageFlow.TotalUnread(ctx, actorFor(reporter))
			require.NoError(t, err)
			assert.Equal(t, int64(2), reporterTotal.Total)

			staffTotal, err := messageFlow.TotalUnread(ctx, actorFor(staff))
			require.NoError(t, err)
			assert.Equal(t, int64(1), staffTotal.Total)

			adminTotal, err := messageFlow.TotalUnread(ctx, actorFor(admin))
			require.NoError(t, err)
			assert.Equal(t, int64(3), adminTotal.Total)
		})
	})
}

func TestDeleteMessage(t *testing.T) {
	withTestDB(t, func(testDB *testingutil.TestDB, fixtures *testingutil.TestFixtures) {
		messageFlow := newTestMessageFlow(testDB)
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

		t.Run("NonAuthorDenied", func(t *testing.T) {
			message, err := fixtures.CreateTestMessage(session, reporter.ID, "typo msg")
			require.NoError(t, err)

			err = messageFlow.DeleteMessage(ctx, actorFor(staff), message.ID, testMetadata())
			require.Error(t, err)
			assert.True(t, businessflow.IsAccessDenied(err))
		})

		t.Run("AuthorDeletes", func(t *testing.T) {
			message, err := fixtures.CreateTestMessage(session, reporter.ID, "typo msg")
			require.NoError(t, err)

			require.NoError(t, messageFlow.DeleteMessage(ctx, actorFor(reporter), message.ID, testMetadata()))

			err = messageFlow.MarkMessageRead(ctx, actorFor(staff), message.ID)
			require.Error(t, err)
			assert.True(t, businessflow.IsMessageNotFound(err))
		})

		t.Run("AdminDeletesAnyMessage", func(t *testing.T) {
			message, err := fixtures.CreateTestMessage(session, staff.ID, "internal note")
			require.NoError(t, err)

			require.NoError(t, messageFlow.DeleteMessage(ctx, actorFor(admin), message.ID, testMetadata()))
		})
	})
}
