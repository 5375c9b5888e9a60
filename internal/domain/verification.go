package domain

import "time"

// Verification statuses. Transitions are one-directional:
// PENDING -> VERIFIED or PENDING -> EXPIRED; both targets are terminal.
const (
	VerificationPending  = "PENDING"
	VerificationVerified = "VERIFIED"
	VerificationExpired  = "EXPIRED"
)

// EmployeeVerification is one employment-verification attempt-session.
// PK: verification_id. The plaintext code is never persisted — only its
// bcrypt hash. CodeExpiresAt doubles as the DynamoDB TTL attribute.
type EmployeeVerification struct {
	VerificationID string     `json:"id" dynamodbav:"verification_id"`
	CompanyID      string     `json:"company_id" dynamodbav:"company_id"`
	Email          string     `json:"email" dynamodbav:"email"`
	CodeHash       string     `json:"-" dynamodbav:"code_hash"`
	CodeExpiresAt  int64      `json:"code_expires_at" dynamodbav:"code_expires_at"` // TTL (Unix seconds)
	Attempts       int        `json:"attempts" dynamodbav:"attempts"`
	Status         string     `json:"status" dynamodbav:"status"`
	Method         string     `json:"method" dynamodbav:"method"` // "EMAIL"
	VerifiedAt     *time.Time `json:"verified_at,omitempty" dynamodbav:"verified_at"`
	BoundUserID    *string    `json:"user_id,omitempty" dynamodbav:"bound_user_id"`
	CreatedAt      time.Time  `json:"created" dynamodbav:"created_at"`
	UpdatedAt      time.Time  `json:"updated" dynamodbav:"updated_at"`
}

// Pending reports whether the request can still be evaluated at the given instant.
func (v *EmployeeVerification) Pending(now time.Time) bool {
	return v.Status == VerificationPending && now.Unix() < v.CodeExpiresAt
}

type StartVerificationRequest struct {
	Company string `json:"company" validate:"required"` // company id or slug
	Email   string `json:"email" validate:"required"`
}

type SubmitCodeRequest struct {
	VerificationID string  `json:"verification_id" validate:"required"`
	Code           string  `json:"code" validate:"required,len=6,numeric"`
	Name           *string `json:"name"`
}
