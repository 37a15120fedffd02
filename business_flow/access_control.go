package businessflow

import (
	"github.com/amirphl/Kusanagi/models"
)

// Action identifies what an actor is trying to do to a resource.
type Action string

const (
	ActionView     Action = "view"
	ActionModify   Action = "modify"
	ActionDelete   Action = "delete"
	ActionMessage  Action = "message"
	ActionEnd      Action = "end"
	ActionTransfer Action = "transfer"
	ActionAssign   Action = "assign"
)

// Actor is the authenticated caller as seen by the access predicate. It is
// passed explicitly into every check so the rules stay testable without an
// HTTP or token layer.
type Actor struct {
	ID   uint
	Role string
}

// ActorFromUser derives an Actor from a loaded user row.
func ActorFromUser(user *models.User) Actor {
	return Actor{ID: user.ID, Role: user.Role}
}

func (a Actor) IsAdmin() bool {
	return a.Role == models.RoleAdmin
}

func (a Actor) IsICTStaff() bool {
	return a.Role == models.RoleICTStaff
}

// CanAccessTicket decides ticket CRUD access: owner or admin, regardless
// of action. Assigned staff do not get ticket CRUD through assignment;
// their access is limited to the ticket's messages.
func CanAccessTicket(actor Actor, ticket *models.Ticket, action Action) bool {
	if ticket == nil {
		return false
	}
	if actor.IsAdmin() {
		return true
	}
	switch action {
	case ActionView, ActionModify, ActionDelete, ActionMessage:
		return ticket.UserID == actor.ID
	}
	return false
}

// CanAccessTicketMessages decides access to the legacy per-ticket message
// channel: ticket owner, the currently assigned ICT staff, or admin.
func CanAccessTicketMessages(actor Actor, ticket *models.Ticket) bool {
	if ticket == nil {
		return false
	}
	if actor.IsAdmin() {
		return true
	}
	if ticket.UserID == actor.ID {
		return true
	}
	if actor.IsICTStaff() && ticket.AssignedTo != nil && *ticket.AssignedTo == actor.ID {
		return true
	}
	return false
}

// CanAccessChatSession decides chat session access. The session is open to
// its initiating user, the currently assigned staff, any admin recorded in
// the participant set, and admins in general. Ending is stricter: only the
// participants themselves may end a session, so an uninvolved admin cannot
// close a conversation they never touched.
func CanAccessChatSession(actor Actor, session *models.ChatSession, action Action) bool {
	if session == nil {
		return false
	}

	isParticipant := session.UserID == actor.ID ||
		(session.ICTStaffID != nil && *session.ICTStaffID == actor.ID) ||
		session.HasAdminParticipant(actor.ID)

	switch action {
	case ActionEnd:
		return isParticipant
	case ActionTransfer, ActionAssign:
		return actor.IsAdmin()
	default:
		return isParticipant || actor.IsAdmin()
	}
}

// CanDeleteMessage decides message deletion: author or admin.
func CanDeleteMessage(actor Actor, message *models.Message) bool {
	if message == nil {
		return false
	}
	return actor.IsAdmin() || message.UserID == actor.ID
}
