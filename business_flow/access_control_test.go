package businessflow

import (
	"testing"

	"github.com/amirphl/Kusanagi/models"
	"github.com/amirphl/Kusanagi/utils"
	"github.com/stretchr/testify/assert"
)

var (
	adminActor = Actor{ID: 1, Role: models.RoleAdmin}
	staffActor = Actor{ID: 2, Role: models.RoleICTStaff}
	ownerActor = Actor{ID: 3, Role: models.RoleOtherStaff}
	otherActor = Actor{ID: 4, Role: models.RoleOtherStaff}
)

func TestActorFromUser(t *testing.T) {
	user := &models.User{ID: 42, Role: models.RoleICTStaff}
	actor := ActorFromUser(user)
	assert.Equal(t, uint(42), actor.ID)
	assert.True(t, actor.IsICTStaff())
	assert.False(t, actor.IsAdmin())
}

func TestCanAccessTicket(t *testing.T) {
	ticket := &models.Ticket{ID: 10, UserID: ownerActor.ID, AssignedTo: utils.ToPtr(staffActor.ID)}

	tests := []struct {
		name    string
		actor   Actor
		action  Action
		allowed bool
	}{
		{"owner view", ownerActor, ActionView, true},
		{"owner modify", ownerActor, ActionModify, true},
		{"owner delete", ownerActor, ActionDelete, true},
		{"admin view", adminActor, ActionView, true},
		{"admin delete", adminActor, ActionDelete, true},
		{"stranger view", otherActor, ActionView, false},
		{"stranger modify", otherActor, ActionModify, false},
		{"assigned staff view", staffActor, ActionView, false},
		{"assigned staff delete", staffActor, ActionDelete, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.allowed, CanAccessTicket(tt.actor, ticket, tt.action))
		})
	}

	t.Run("nil ticket", func(t *testing.T) {
		assert.False(t, CanAccessTicket(adminActor, nil, ActionView))
	})
}

func TestCanAccessTicketMessages(t *testing.T) {
	ticket := &models.Ticket{ID: 10, UserID: ownerActor.ID, AssignedTo: utils.ToPtr(staffActor.ID)}

	assert.True(t, CanAccessTicketMessages(ownerActor, ticket))
	assert.True(t, CanAccessTicketMessages(adminActor, ticket))
	assert.True(t, CanAccessTicketMessages(staffActor, ticket))
	assert.False(t, CanAccessTicketMessages(otherActor, ticket))

	t.Run("unassigned staff", func(t *testing.T) {
		unassigned := &models.Ticket{ID: 11, UserID: ownerActor.ID}
		assert.False(t, CanAccessTicketMessages(staffActor, unassigned))
	})

	t.Run("nil ticket", func(t *testing.T) {
		assert.False(t, CanAccessTicketMessages(adminActor, nil))
	})
}

func TestCanAccessChatSession(t *testing.T) {
	session := &models.ChatSession{
		ID:         5,
		UserID:     ownerActor.ID,
		ICTStaffID: utils.ToPtr(staffActor.ID),
	}

	tests := []struct {
		name    string
		actor   Actor
		action  Action
		allowed bool
	}{
		{"owner view", ownerActor, ActionView, true},
		{"staff view", staffActor, ActionView, true},
		{"admin view", adminActor, ActionView, true},
		{"stranger view", otherActor, ActionView, false},
		{"owner message", ownerActor, ActionMessage, true},
		{"staff message", staffActor, ActionMessage, true},
		{"owner end", ownerActor, ActionEnd, true},
		{"staff end", staffActor, ActionEnd, true},
		{"uninvolved admin end", adminActor, ActionEnd, false},
		{"admin transfer", adminActor, ActionTransfer, true},
		{"staff transfer", staffActor, ActionTransfer, false},
		{"admin assign", adminActor, ActionAssign, true},
		{"owner assign", ownerActor, ActionAssign, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.allowed, CanAccessChatSession(tt.actor, session, tt.action))
		})
	}

	t.Run("participant admin can end", func(t *testing.T) {
		transferred := &models.ChatSession{
			ID:         6,
			UserID:     ownerActor.ID,
			ICTStaffID: utils.ToPtr(staffActor.ID),
		}
		transferred.AddAdminParticipant(adminActor.ID)

		assert.True(t, CanAccessChatSession(adminActor, transferred, ActionEnd))
	})

	t.Run("nil session", func(t *testing.T) {
		assert.False(t, CanAccessChatSession(adminActor, nil, ActionView))
	})
}

func TestCanDeleteMessage(t *testing.T) {
	message := &models.Message{ID: 100, UserID: ownerActor.ID}

	assert.True(t, CanDeleteMessage(ownerActor, message))
	assert.True(t, CanDeleteMessage(adminActor, message))
	assert.False(t, CanDeleteMessage(otherActor, message))
	assert.False(t, CanDeleteMessage(staffActor, message))
	assert.False(t, CanDeleteMessage(adminActor, nil))
}
