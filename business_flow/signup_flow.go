// Package businessflow contains the core business logic and use cases for helpdesk workflows
package businessflow

import (
	"context"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"github.com/amirphl/Kusanagi/app/dto"
	"github.com/amirphl/Kusanagi/models"
	"github.com/amirphl/Kusanagi/repository"
	"github.com/amirphl/Kusanagi/utils"
	"gorm.io/gorm"
)

// SignupFlow handles account registration
type SignupFlow interface {
	Register(ctx context.Context, req *dto.RegisterRequest, metadata *ClientMetadata) (*dto.UserDTO, error)
	RegisterStaff(ctx context.Context, req *dto.StaffRegisterRequest, metadata *ClientMetadata) (*dto.UserDTO, error)
}

// SignupFlowImpl implements the signup business flow
type SignupFlowImpl struct {
	userRepo  repository.UserRepository
	auditRepo repository.AuditLogRepository
	db        *gorm.DB
}

// NewSignupFlow creates a new signup flow instance
func NewSignupFlow(
	userRepo repository.UserRepository,
	auditRepo repository.AuditLogRepository,
	db *gorm.DB,
) SignupFlow {
	return &SignupFlowImpl{
		userRepo:  userRepo,
		auditRepo: auditRepo,
		db:        db,
	}
}

// Register creates an account through the public path. The created user is
// always other_staff no matter what the request carried.
func (s *SignupFlowImpl) Register(ctx context.Context, req *dto.RegisterRequest, metadata *ClientMetadata) (*dto.UserDTO, error) {
	user, err := s.createUser(ctx, &userDraft{
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		Email:       req.Email,
		Password:    req.Password,
		Role:        models.RoleOtherStaff,
		Department:  req.Department,
		Designation: req.Designation,
		Extension:   req.Extension,
		Phone:       req.Phone,
	}, metadata)
	if err != nil {
		return nil, err
	}

	out := ToUserDTO(*user)
	return &out, nil
}

// RegisterStaff creates an ICT staff or admin account through the
// administratively gated path.
func (s *SignupFlowImpl) RegisterStaff(ctx context.Context, req *dto.StaffRegisterRequest, metadata *ClientMetadata) (*dto.UserDTO, error) {
	if req.Role != models.RoleICTStaff && req.Role != models.RoleAdmin {
		return nil, NewBusinessError("INVALID_ROLE", "Role must be ict_staff or admin", ErrInvalidRole)
	}

	user, err := s.createUser(ctx, &userDraft{
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		Email:       req.Email,
		Password:    req.Password,
		Role:        req.Role,
		Department:  req.Department,
		Designation: req.Designation,
		Extension:   req.Extension,
		Phone:       req.Phone,
	}, metadata)
	if err != nil {
		return nil, err
	}

	out := ToUserDTO(*user)
	return &out, nil
}

type userDraft struct {
	FirstName   string
	LastName    string
	Email       string
	Password    string
	Role        string
	Department  *string
	Designation *string
	Extension   *string
	Phone       *string
}

func (s *SignupFlowImpl) createUser(ctx context.Context, draft *userDraft, metadata *ClientMetadata) (*models.User, error) {
	existing, err := s.userRepo.ByEmail(ctx, draft.Email)
	if err != nil {
		return nil, NewBusinessError("SIGNUP_FAILED", "Signup failed", err)
	}
	if existing != nil {
		return nil, NewBusinessError("EMAIL_ALREADY_EXISTS", "Email already exists", ErrEmailAlreadyExists)
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(draft.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, NewBusinessError("SIGNUP_FAILED", "Signup failed", err)
	}

	user := &models.User{
		FirstName:    draft.FirstName,
		LastName:     draft.LastName,
		Email:        draft.Email,
		PasswordHash: string(hashedPassword),
		Role:         draft.Role,
		Department:   draft.Department,
		Designation:  draft.Designation,
		Extension:    draft.Extension,
		Phone:        draft.Phone,
		IsActive:     utils.ToPtr(true),
	}

	err = repository.WithTransaction(ctx, s.db, func(txCtx context.Context) error {
		return s.userRepo.Save(txCtx, user)
	})
	if err != nil {
		errMsg := fmt.Sprintf("Signup failed: %s", err.Error())
		_ = s.createAuditLog(ctx, nil, models.AuditActionSignupCompleted, errMsg, false, &errMsg, metadata)
		return nil, NewBusinessError("SIGNUP_FAILED", "Signup failed", err)
	}

	msg := fmt.Sprintf("User registered: %d (%s)", user.ID, user.Role)
	_ = s.createAuditLog(ctx, user, models.AuditActionSignupCompleted, msg, true, nil, metadata)

	return user, nil
}

func (s *SignupFlowImpl) createAuditLog(ctx context.Context, user *models.User, action, description string, success bool, errorMsg *string, metadata *ClientMetadata) error {
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
	return s.auditRepo.Save(ctx, entry)
}
