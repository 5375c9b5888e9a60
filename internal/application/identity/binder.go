package identity

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/corpdeals-api/internal/domain"
	"github.com/corpdeals-api/internal/pkg/id"
	"github.com/corpdeals-api/internal/pkg/token"
	"golang.org/x/crypto/bcrypt"
)

// UserStore is the minimal user persistence the binder needs.
type UserStore interface {
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	Put(ctx context.Context, u *domain.User) error
	Update(ctx context.Context, userID string, updates map[string]interface{}) error
}

// Binder links a verified email to a durable identity, creating one on first
// verification. An email owned by a vendor or admin account fails closed —
// it is never silently repurposed as an employee identity.
type Binder struct {
	users UserStore
}

func NewBinder(users UserStore) *Binder {
	return &Binder{users: users}
}

// Lookup returns the existing identity for email, domain.ErrRoleConflict if
// that identity is not an employee, or domain.ErrNotFound if none exists.
// Callers use it to fail before consuming a matched code.
func (b *Binder) Lookup(ctx context.Context, email string) (*domain.User, error) {
	u, err := b.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if u.Role != domain.RoleEmployee {
		return nil, fmt.Errorf("email belongs to a %s account: %w", u.Role, domain.ErrRoleConflict)
	}
	return u, nil
}

// Bind creates or refreshes the employee identity for email and stamps it as
// employment-verified for companyID. displayName is applied only when the
// identity has no name yet.
func (b *Binder) Bind(ctx context.Context, email, companyID string, displayName *string) (*domain.User, error) {
	now := time.Now().UTC()

	existing, err := b.users.GetByEmail(ctx, email)
	switch {
	case err == nil:
		if existing.Role != domain.RoleEmployee {
			return nil, fmt.Errorf("email belongs to a %s account: %w", existing.Role, domain.ErrRoleConflict)
		}
		updates := map[string]interface{}{
			"employee_company_id":    companyID,
			"employment_verified_at": now.Format(time.RFC3339),
		}
		if displayName != nil && existing.Name == nil {
			updates["name"] = *displayName
			existing.Name = displayName
		}
		if err := b.users.Update(ctx, existing.UserID, updates); err != nil {
			return nil, err
		}
		existing.EmployeeCompanyID = &companyID
		existing.EmploymentVerifiedAt = &now
		return existing, nil

	case errors.Is(err, domain.ErrNotFound):
		secret, err := token.NewCredentialSecret()
		if err != nil {
			return nil, err
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
		if err != nil {
			return nil, err
		}
		u := &domain.User{
			UserID:               id.New(),
			Email:                email,
			Name:                 displayName,
			Role:                 domain.RoleEmployee,
			CredentialHash:       string(hash),
			EmployeeCompanyID:    &companyID,
			EmploymentVerifiedAt: &now,
			CreatedAt:            now,
			UpdatedAt:            now,
		}
		if err := b.users.Put(ctx, u); err != nil {
			return nil, err
		}
		return u, nil

	default:
		return nil, err
	}
}
