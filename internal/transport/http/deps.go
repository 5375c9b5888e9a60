package http

import (
	"context"
	"io"
	"time"

	"github.com/corpdeals-api/internal/domain"
)

// VerificationRepository is the minimal interface the router requires from the
// verification ledger. All mutations are atomic conditional transitions.
type VerificationRepository interface {
	Create(ctx context.Context, v *domain.EmployeeVerification) error
	Get(ctx context.Context, verificationID string) (*domain.EmployeeVerification, error)
	FindPending(ctx context.Context, companyID, email string, now time.Time) (*domain.EmployeeVerification, error)
	SupersedeCode(ctx context.Context, verificationID, codeHash string, expiresAt, now time.Time) error
	IncrementAttempts(ctx context.Context, verificationID string, maxAttempts int) (int, error)
	MarkExpired(ctx context.Context, verificationID string) error
	Finalize(ctx context.Context, verificationID string, verifiedAt time.Time) error
	BindUser(ctx context.Context, verificationID, userID string) error
}

// UserRepository is the minimal interface the router requires from a user store.
type UserRepository interface {
	Put(ctx context.Context, u *domain.User) error
	Get(ctx context.Context, userID string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	Update(ctx context.Context, userID string, updates map[string]interface{}) error
}

// CompanyRepository is the minimal interface the router requires from a company store.
type CompanyRepository interface {
	Put(ctx context.Context, c *domain.Company) error
	Get(ctx context.Context, companyID string) (*domain.Company, error)
	GetBySlug(ctx context.Context, slug string) (*domain.Company, error)
	Scan(ctx context.Context, verified *bool) ([]domain.Company, error)
	Update(ctx context.Context, companyID string, updates map[string]interface{}) error
}

// ObjectStore is the minimal interface the router requires from an object storage backend.
type ObjectStore interface {
	Upload(ctx context.Context, key string, r io.Reader, contentType string) (string, error)
	Delete(ctx context.Context, key string) error
}
