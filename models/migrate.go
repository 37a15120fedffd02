package models

import (
	"fmt"
	"strings"

	"gorm.io/gorm"
)

// enumTypes maps postgres enum type names to their value sets. The column
// tags on the models reference these types, so they must exist before
// AutoMigrate runs.
var enumTypes = map[string][]string{
	"user_role_enum": {
		RoleAdmin,
		RoleICTStaff,
		RoleOtherStaff,
	},
	"ticket_status_enum": {
		TicketStatusOpen,
		TicketStatusInProgress,
		TicketStatusCompleted,
		TicketStatusEscalated,
		TicketStatusClosed,
	},
	"chat_session_status_enum": {
		ChatSessionStatusActive,
		ChatSessionStatusClosed,
	},
	"audit_action_enum": {
		AuditActionSignupCompleted,
		AuditActionLoginSuccessful,
		AuditActionLoginFailed,
		AuditActionLogout,
		AuditActionPasswordResetRequested,
		AuditActionPasswordResetCompleted,
		AuditActionPasswordResetFailed,
		AuditActionProfileUpdated,
		AuditActionUserUpdated,
		AuditActionUserDeleted,
		AuditActionTicketCreated,
		AuditActionTicketUpdated,
		AuditActionTicketDeleted,
		AuditActionChatStarted,
		AuditActionChatStaffAssigned,
		AuditActionChatTransferred,
		AuditActionChatEnded,
		AuditActionMessageDeleted,
	},
}

// Migrate creates the enum types and applies the schema for all persisted models.
func Migrate(db *gorm.DB) error {
	for typeName, values := range enumTypes {
		stmt := fmt.Sprintf(
			"DO $$ BEGIN CREATE TYPE %s AS ENUM ('%s'); EXCEPTION WHEN duplicate_object THEN NULL; END $$",
			typeName, strings.Join(values, "','"),
		)
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("failed to create enum type %s: %w", typeName, err)
		}
	}

	return db.AutoMigrate(
		&User{},
		&UserSession{},
		&PasswordResetToken{},
		&Ticket{},
		&ChatSession{},
		&Message{},
		&AuditLog{},
	)
}
