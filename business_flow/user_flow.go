package businessflow

import (
	"context"
	"fmt"

	"github.com/amirphl/Kusanagi/app/dto"
	"github.com/amirphl/Kusanagi/models"
	"github.com/amirphl/Kusanagi/repository"
	"github.com/amirphl/Kusanagi/utils"
	"gorm.io/gorm"
)

// UserFlow handles user administration, the ICT staff directory, and profiles
type UserFlow interface {
	ListUsers(ctx context.Context, actor Actor) ([]dto.UserDTO, error)
	GetUser(ctx context.Context, actor Actor, userID uint) (*dto.UserDTO, error)
	UpdateUser(ctx context.Context, actor Actor, userID uint, req *dto.UpdateUserRequest, metadata *ClientMetadata) (*dto.UserDTO, error)
	DeleteUser(ctx context.Context, actor Actor, userID uint, metadata *ClientMetadata) error
	ListICTStaff(ctx context.Context) ([]dto.UserSummaryDTO, error)
	GetProfile(ctx context.Context, userID uint) (*dto.UserDTO, error)
	UpdateProfile(ctx context.Context, userID uint, req *dto.UpdateProfileRequest, metadata *ClientMetadata) (*dto.UserDTO, error)
}

// UserFlowImpl implements the user administration flow
type UserFlowImpl struct {
	userRepo  repository.UserRepository
	auditRepo repository.AuditLogRepository
	db        *gorm.DB
}

// NewUserFlow creates a new user flow instance
func NewUserFlow(
	userRepo repository.UserRepository,
	auditRepo repository.AuditLogRepository,
	db *gorm.DB,
) UserFlow {
	return &UserFlowImpl{
		userRepo:  userRepo,
		auditRepo: auditRepo,
		db:        db,
	}
}

// ListUsers returns every user. Admin only.
func (u *UserFlowImpl) ListUsers(ctx context.Context, actor Actor) ([]dto.UserDTO, error) {
	if !actor.IsAdmin() {
		return nil, NewBusinessError("ACCESS_DENIED", "Access denied", ErrAccessDenied)
	}

	users, err := u.userRepo.ByFilter(ctx, models.UserFilter{}, "id ASC", 0, 0)
	if err != nil {
		return nil, NewBusinessError("USER_LIST_FAILED", "Failed to list users", err)
	}

	out := make([]dto.UserDTO, 0, len(users))
	for _, user := range users {
		out = append(out, ToUserDTO(*user))
	}
	return out, nil
}

// GetUser returns a single user. Admin or the user themselves.
func (u *UserFlowImpl) GetUser(ctx context.Context, actor Actor, userID uint) (*dto.UserDTO, error) {
	if !actor.IsAdmin() && actor.ID != userID {
		return nil, NewBusinessError("ACCESS_DENIED", "Access denied", ErrAccessDenied)
	}

	user, err := u.userRepo.ByID(ctx, userID)
	if err != nil {
		return nil, NewBusinessError("USER_FETCH_FAILED", "Failed to fetch user", err)
	}
	if user == nil {
		return nil, NewBusinessError("USER_NOT_FOUND", "User not found", ErrUserNotFound)
	}

	out := ToUserDTO(*user)
	return &out, nil
}

// UpdateUser mutates any user including their role. Admin only.
func (u *UserFlowImpl) UpdateUser(ctx context.Context, actor Actor, userID uint, req *dto.UpdateUserRequest, metadata *ClientMetadata) (*dto.UserDTO, error) {
	if !actor.IsAdmin() {
		return nil, NewBusinessError("ACCESS_DENIED", "Access denied", ErrAccessDenied)
	}

	user, err := u.userRepo.ByID(ctx, userID)
	if err != nil {
		return nil, NewBusinessError("USER_FETCH_FAILED", "Failed to fetch user", err)
	}
	if user == nil {
		return nil, NewBusinessError("USER_NOT_FOUND", "User not found", ErrUserNotFound)
	}

	if req.Role != nil {
		if !models.IsValidRole(*req.Role) {
			return nil, NewBusinessError("INVALID_ROLE", "Invalid role", ErrInvalidRole)
		}
		user.Role = *req.Role
	}
	applyProfileFields(user, req.FirstName, req.LastName, req.Department, req.Designation, req.Extension, req.Phone)
	if req.IsActive != nil {
		user.IsActive = req.IsActive
	}

	err = repository.WithTransaction(ctx, u.db, func(txCtx context.Context) error {
		return u.userRepo.Update(txCtx, user)
	})
	if err != nil {
		return nil, NewBusinessError("USER_UPDATE_FAILED", "Failed to update user", err)
	}

	msg := fmt.Sprintf("user %d updated by admin %d", user.ID, actor.ID)
	_ = u.createAuditLog(ctx, user, models.AuditActionUserUpdated, msg, true, nil, metadata)

	out := ToUserDTO(*user)
	return &out, nil
}

// DeleteUser removes a user. Admin only. Their tickets and sessions
// cascade; assignment references are nulled by the schema.
func (u *UserFlowImpl) DeleteUser(ctx context.Context, actor Actor, userID uint, metadata *ClientMetadata) error {
	if !actor.IsAdmin() {
		return NewBusinessError("ACCESS_DENIED", "Access denied", ErrAccessDenied)
	}

	user, err := u.userRepo.ByID(ctx, userID)
	if err != nil {
		return NewBusinessError("USER_FETCH_FAILED", "Failed to fetch user", err)
	}
	if user == nil {
		return NewBusinessError("USER_NOT_FOUND", "User not found", ErrUserNotFound)
	}

	err = repository.WithTransaction(ctx, u.db, func(txCtx context.Context) error {
		return u.userRepo.Delete(txCtx, userID)
	})
	if err != nil {
		return NewBusinessError("USER_DELETE_FAILED", "Failed to delete user", err)
	}

	msg := fmt.Sprintf("user %d deleted by admin %d", userID, actor.ID)
	_ = u.createAuditLog(ctx, nil, models.AuditActionUserDeleted, msg, true, nil, metadata)
	return nil
}

// ListICTStaff returns the ICT staff directory. Any authenticated caller.
func (u *UserFlowImpl) ListICTStaff(ctx context.Context) ([]dto.UserSummaryDTO, error) {
	staff, err := u.userRepo.ListByRole(ctx, models.RoleICTStaff)
	if err != nil {
		return nil, NewBusinessError("USER_LIST_FAILED", "Failed to list ICT staff", err)
	}

	out := make([]dto.UserSummaryDTO, 0, len(staff))
	for _, member := range staff {
		out = append(out, *ToUserSummaryDTO(member))
	}
	return out, nil
}

// GetProfile returns the caller's own profile
func (u *UserFlowImpl) GetProfile(ctx context.Context, userID uint) (*dto.UserDTO, error) {
	user, err := u.userRepo.ByID(ctx, userID)
	if err != nil {
		return nil, NewBusinessError("USER_FETCH_FAILED", "Failed to fetch profile", err)
	}
	if user == nil {
		return nil, NewBusinessError("USER_NOT_FOUND", "User not found", ErrUserNotFound)
	}

	out := ToUserDTO(*user)
	return &out, nil
}

// UpdateProfile mutates the caller's own profile fields. Role and active
// status are not reachable from here.
func (u *UserFlowImpl) UpdateProfile(ctx context.Context, userID uint, req *dto.UpdateProfileRequest, metadata *ClientMetadata) (*dto.UserDTO, error) {
	user, err := u.userRepo.ByID(ctx, userID)
	if err != nil {
		return nil, NewBusinessError("USER_FETCH_FAILED", "Failed to fetch profile", err)
	}
	if user == nil {
		return nil, NewBusinessError("USER_NOT_FOUND", "User not found", ErrUserNotFound)
	}

	applyProfileFields(user, req.FirstName, req.LastName, req.Department, req.Designation, req.Extension, req.Phone)

	err = repository.WithTransaction(ctx, u.db, func(txCtx context.Context) error {
		return u.userRepo.Update(txCtx, user)
	})
	if err != nil {
		return nil, NewBusinessError("PROFILE_UPDATE_FAILED", "Failed to update profile", err)
	}

	_ = u.createAuditLog(ctx, user, models.AuditActionProfileUpdated, "profile updated", true, nil, metadata)

	out := ToUserDTO(*user)
	return &out, nil
}

func applyProfileFields(user *models.User, firstName, lastName, department, designation, extension, phone *string) {
	if firstName != nil {
		user.FirstName = *firstName
	}
	if lastName != nil {
		user.LastName = *lastName
	}
	if department != nil {
		user.Department = department
	}
	if designation != nil {
		user.Designation = designation
	}
	if extension != nil {
		user.Extension = extension
	}
	if phone != nil {
		user.Phone = phone
	}
}

func (u *UserFlowImpl) createAuditLog(ctx context.Context, user *models.User, action, description string, success bool, errorMsg *string, metadata *ClientMetadata) error {
	entry := &models.AuditLog{
		Action:       action,
		Description:  &description,
		Success:      &success,
		ErrorMessage: errorMsg,
		CreatedAt:    utils.UTCNow(),
	}
	if user != nil {
		entry.UserID = &user.ID
	}
	if metadata != nil {
		if metadata.IPAddress != "" {
			entry.IPAddress = &metadata.IPAddress
		}
		if metadata.UserAgent != "" {
			entry.UserAgent = &metadata.UserAgent
		}
		if metadata.RequestID != "" {
			entry.RequestID = &metadata.RequestID
		}
	}
	return u.auditRepo.Save(ctx, entry)
}
