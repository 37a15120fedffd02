package dto

// UserDTO is the full user shape returned to the owning user or an admin
type UserDTO struct {
	ID          uint    `json:"id" example:"123"`
	UUID        string  `json:"uuid" example:"550e8400-e29b-41d4-a716-446655440000"`
	FirstName   string  `json:"first_name" example:"John"`
	LastName    string  `json:"last_name" example:"Doe"`
	Email       string  `json:"email" example:"john.doe@example.com"`
	Role        string  `json:"role" example:"other_staff"`
	Department  *string `json:"department,omitempty" example:"Finance"`
	Designation *string `json:"designation,omitempty" example:"Accountant"`
	Extension   *string `json:"extension,omitempty" example:"1042"`
	Phone       *string `json:"phone,omitempty" example:"555-1234"`
	IsActive    *bool   `json:"is_active" example:"true"`
	CreatedAt   string  `json:"created_at" example:"2024-01-15T10:30:00Z"`
}

// UpdateUserRequest is the admin payload for mutating any user
type UpdateUserRequest struct {
	FirstName   *string `json:"first_name,omitempty" validate:"omitempty,min=1,max=100"`
	LastName    *string `json:"last_name,omitempty" validate:"omitempty,min=1,max=100"`
	Role        *string `json:"role,omitempty" validate:"omitempty,oneof=admin ict_staff other_staff"`
	Department  *string `json:"department,omitempty" validate:"omitempty,max=100"`
	Designation *string `json:"designation,omitempty" validate:"omitempty,max=100"`
	Extension   *string `json:"extension,omitempty" validate:"omitempty,max=20"`
	Phone       *string `json:"phone,omitempty" validate:"omitempty,max=20"`
	IsActive    *bool   `json:"is_active,omitempty"`
}

// UpdateProfileRequest is the payload for a user mutating their own
// profile. Role is deliberately absent.
type UpdateProfileRequest struct {
	FirstName   *string `json:"first_name,omitempty" validate:"omitempty,min=1,max=100"`
	LastName    *string `json:"last_name,omitempty" validate:"omitempty,min=1,max=100"`
	Department  *string `json:"department,omitempty" validate:"omitempty,max=100"`
	Designation *string `json:"designation,omitempty" validate:"omitempty,max=100"`
	Extension   *string `json:"extension,omitempty" validate:"omitempty,max=20"`
	Phone       *string `json:"phone,omitempty" validate:"omitempty,max=20"`
}
