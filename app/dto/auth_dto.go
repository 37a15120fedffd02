package dto

// RegisterRequest represents the public self-registration payload. Any
// role supplied by the client is ignored; the created account is always
// other_staff.
type RegisterRequest struct {
	FirstName   string  `json:"first_name" validate:"required,min=1,max=100" example:"John"`
	LastName    string  `json:"last_name" validate:"required,min=1,max=100" example:"Doe"`
	Email       string  `json:"email" validate:"required,email,max=255" example:"john.doe@example.com"`
	Password    string  `json:"password" validate:"required,min=8,max=100" example:"SecurePass123!"`
	Department  *string `json:"department,omitempty" validate:"omitempty,max=100" example:"Finance"`
	Designation *string `json:"designation,omitempty" validate:"omitempty,max=100" example:"Accountant"`
	Extension   *string `json:"extension,omitempty" validate:"omitempty,max=20" example:"1042"`
	Phone       *string `json:"phone,omitempty" validate:"omitempty,max=20" example:"555-1234"`
}

// StaffRegisterRequest represents the privileged registration payload used
// to create ICT staff and admin accounts.
type StaffRegisterRequest struct {
	FirstName   string  `json:"first_name" validate:"required,min=1,max=100" example:"Jane"`
	LastName    string  `json:"last_name" validate:"required,min=1,max=100" example:"Smith"`
	Email       string  `json:"email" validate:"required,email,max=255" example:"jane.smith@example.com"`
	Password    string  `json:"password" validate:"required,min=8,max=100" example:"SecurePass123!"`
	Role        string  `json:"role" validate:"required,oneof=ict_staff admin" example:"ict_staff"`
	Department  *string `json:"department,omitempty" validate:"omitempty,max=100" example:"ICT"`
	Designation *string `json:"designation,omitempty" validate:"omitempty,max=100" example:"Network Engineer"`
	Extension   *string `json:"extension,omitempty" validate:"omitempty,max=20" example:"2001"`
	Phone       *string `json:"phone,omitempty" validate:"omitempty,max=20" example:"555-9876"`
}

// LoginRequest represents the request payload for user login
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email,max=255" example:"john.doe@example.com"`
	Password string `json:"password" validate:"required,min=8,max=100" example:"SecurePass123!"`
}

// LoginResponseData carries the issued token and the authenticated user
type LoginResponseData struct {
	AccessToken string  `json:"access_token" example:"eyJhbGciOiJIUzI1NiIsInR5cCI6IkpXVCJ9..."`
	TokenType   string  `json:"token_type" example:"Bearer"`
	ExpiresIn   int     `json:"expires_in" example:"86400"`
	User        UserDTO `json:"user"`
}

// ForgotPasswordRequest represents the request to initiate password reset
type ForgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email,max=255" example:"john.doe@example.com"`
}

// ResetPasswordRequest represents the request to reset password with an emailed token
type ResetPasswordRequest struct {
	Token           string `json:"token" validate:"required,min=16,max=255"`
	NewPassword     string `json:"new_password" validate:"required,min=8,max=100" example:"NewSecurePass123!"`
	ConfirmPassword string `json:"confirm_password" validate:"required,eqfield=NewPassword" example:"NewSecurePass123!"`
}

// Common error codes for auth operations
const (
	ErrorUserNotFound      = "USER_NOT_FOUND"
	ErrorIncorrectPassword = "INCORRECT_PASSWORD"
	ErrorAccountInactive   = "ACCOUNT_INACTIVE"
	ErrorEmailExists       = "EMAIL_ALREADY_EXISTS"
	ErrorResetTokenInvalid = "RESET_TOKEN_INVALID"
	ErrorResetTokenExpired = "RESET_TOKEN_EXPIRED"
)
