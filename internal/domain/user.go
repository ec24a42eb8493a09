package domain

import "time"

// Role is the single authorization axis of a user.
type Role string

// Roles.
const (
	RoleAdmin              Role = "admin"
	RoleMonev              Role = "monev"
	RoleViewer             Role = "viewer"
	RoleCarbonSpecialist   Role = "carbon_specialist"
	RoleProgramPlanner     Role = "program_planner"
	RoleProgramImplementer Role = "program_implementer"
	RoleFinanceManager     Role = "finance_manager"
	RoleFinanceApprover    Role = "finance_approver"
)

// AllRoles lists every known role.
func AllRoles() []Role {
	return []Role{
		RoleAdmin,
		RoleMonev,
		RoleViewer,
		RoleCarbonSpecialist,
		RoleProgramPlanner,
		RoleProgramImplementer,
		RoleFinanceManager,
		RoleFinanceApprover,
	}
}

// IsValid checks if the role is one of the known roles.
func (r Role) IsValid() bool {
	switch r {
	case RoleAdmin, RoleMonev, RoleViewer, RoleCarbonSpecialist,
		RoleProgramPlanner, RoleProgramImplementer,
		RoleFinanceManager, RoleFinanceApprover:
		return true
	}
	return false
}

// User represents an account of the dashboard.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	FullName     string    `json:"full_name"`
	Role         Role      `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// RefreshToken is a persisted refresh token.
type RefreshToken struct {
	ID        string
	UserID    string
	Token     string
	ExpiresAt time.Time
	CreatedAt time.Time
}
