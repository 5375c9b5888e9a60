package domain

import "time"

// User roles. An email owned by a vendor or admin account can never be
// repurposed as an employee identity through verification.
const (
	RoleEmployee = "EMPLOYEE"
	RoleVendor   = "VENDOR"
	RoleAdmin    = "ADMIN"
)

// User is a durable identity. Employee identities are created lazily by the
// first successful employment verification and carry no settable password:
// CredentialHash holds a random, never-disclosed secret, so the account is
// reachable only through re-verification.
type User struct {
	UserID               string     `json:"id" dynamodbav:"user_id"`
	Email                string     `json:"email" dynamodbav:"email"`
	Name                 *string    `json:"name" dynamodbav:"name"`
	Role                 string     `json:"role" dynamodbav:"role"`
	CredentialHash       string     `json:"-" dynamodbav:"credential_hash"`
	EmployeeCompanyID    *string    `json:"employee_company_id" dynamodbav:"employee_company_id"`
	EmploymentVerifiedAt *time.Time `json:"employment_verified_at" dynamodbav:"employment_verified_at"`
	CreatedAt            time.Time  `json:"created" dynamodbav:"created_at"`
	UpdatedAt            time.Time  `json:"updated" dynamodbav:"updated_at"`
}

// IdentitySummary is the safe projection returned after a successful verification.
type IdentitySummary struct {
	UserID               string          `json:"id"`
	Email                string          `json:"email"`
	Name                 *string         `json:"name"`
	Role                 string          `json:"role"`
	EmploymentVerifiedAt *time.Time      `json:"employment_verified_at"`
	EmployeeCompany      *CompanySummary `json:"employee_company,omitempty"`
}
