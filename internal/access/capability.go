// Package access decides whether a user may perform an action, based on the
// user's role and a static role to capability table.
package access

import (
	"slices"

	"github.com/lestari-foundation/forestgate/internal/domain"
)

// Capability is a named permission token.
type Capability string

// Capabilities.
const (
	PSView   Capability = "PS_VIEW"
	PSManage Capability = "PS_MANAGE"

	DataImport Capability = "DATA_IMPORT"

	CarbonProjectView   Capability = "CARBON_PROJECT_VIEW"
	CarbonProjectManage Capability = "CARBON_PROJECT_MANAGE"
	CarbonProjectSubmit Capability = "CARBON_PROJECT_SUBMIT"
	CarbonProjectReview Capability = "CARBON_PROJECT_REVIEW"

	ProgramView       Capability = "PROGRAM_VIEW"
	ProgramManagement Capability = "PROGRAM_MANAGEMENT"
	ProgramSubmit     Capability = "PROGRAM_SUBMIT"
	ProgramReview     Capability = "PROGRAM_REVIEW"

	FinancialView               Capability = "FINANCIAL_VIEW"
	FinancialBudgetManage       Capability = "FINANCIAL_BUDGET_MANAGE"
	FinancialTransactionCreate  Capability = "FINANCIAL_TRANSACTION_CREATE"
	FinancialTransactionApprove Capability = "FINANCIAL_TRANSACTION_APPROVE"

	ActivityLogView Capability = "ACTIVITY_LOG_VIEW"
	UserManage      Capability = "USER_MANAGE"
)

var allCapabilities = []Capability{
	PSView, PSManage, DataImport,
	CarbonProjectView, CarbonProjectManage, CarbonProjectSubmit, CarbonProjectReview,
	ProgramView, ProgramManagement, ProgramSubmit, ProgramReview,
	FinancialView, FinancialBudgetManage, FinancialTransactionCreate, FinancialTransactionApprove,
	ActivityLogView, UserManage,
}

// AllCapabilities returns every capability in declaration order.
func AllCapabilities() []Capability {
	return slices.Clone(allCapabilities)
}

// IsValid checks if the capability is part of the closed set.
func (c Capability) IsValid() bool {
	return slices.Contains(allCapabilities, c)
}

// grants is the single source of truth for authorization.
// Roles missing from this table hold no capabilities.
var grants = map[domain.Role][]Capability{
	domain.RoleAdmin: allCapabilities,
	domain.RoleMonev: {
		PSView, CarbonProjectView, CarbonProjectReview,
		ProgramView, ProgramReview,
		FinancialView, ActivityLogView,
	},
	domain.RoleViewer: {
		PSView, CarbonProjectView, ProgramView,
	},
	domain.RoleCarbonSpecialist: {
		PSView, DataImport,
		CarbonProjectView, CarbonProjectManage, CarbonProjectSubmit,
		ProgramView,
	},
	domain.RoleProgramPlanner: {
		PSView, CarbonProjectView,
		ProgramView, ProgramManagement, ProgramSubmit,
		FinancialView,
	},
	domain.RoleProgramImplementer: {
		PSView, PSManage, DataImport,
		CarbonProjectView, ProgramView,
	},
	domain.RoleFinanceManager: {
		ProgramView,
		FinancialView, FinancialBudgetManage, FinancialTransactionCreate,
	},
	domain.RoleFinanceApprover: {
		ProgramView,
		FinancialView, FinancialTransactionApprove,
	},
}

// Granted reports whether role holds capability c.
func Granted(role domain.Role, c Capability) bool {
	return slices.Contains(grants[role], c)
}

// CapabilitiesOf returns the capabilities granted to role, in declaration order.
func CapabilitiesOf(role domain.Role) []Capability {
	out := make([]Capability, 0, len(grants[role]))
	for _, c := range allCapabilities {
		if Granted(role, c) {
			out = append(out, c)
		}
	}
	return out
}

// RolesWith returns the known roles that hold capability c.
func RolesWith(c Capability) []domain.Role {
	var out []domain.Role
	for _, role := range domain.AllRoles() {
		if Granted(role, c) {
			out = append(out, role)
		}
	}
	return out
}
