package identity

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/corpdeals-api/internal/domain"
)

type mockUserStore struct{ mock.Mock }

func (m *mockUserStore) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	args := m.Called(ctx, email)
	if u, _ := args.Get(0).(*domain.User); u != nil {
		return u, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockUserStore) Put(ctx context.Context, u *domain.User) error {
	return m.Called(ctx, u).Error(0)
}
func (m *mockUserStore) Update(ctx context.Context, userID string, updates map[string]interface{}) error {
	return m.Called(ctx, userID, updates).Error(0)
}

func strPtr(s string) *string { return &s }

// --- Lookup ---

func TestLookup_NoIdentity(t *testing.T) {
	us := &mockUserStore{}
	us.On("GetByEmail", mock.Anything, "a@b.com").Return(nil, domain.ErrNotFound)

	_, err := NewBinder(us).Lookup(context.Background(), "a@b.com")

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestLookup_VendorAccount_RoleConflict(t *testing.T) {
	us := &mockUserStore{}
	us.On("GetByEmail", mock.Anything, "a@b.com").Return(&domain.User{UserID: "u1", Role: domain.RoleVendor}, nil)

	_, err := NewBinder(us).Lookup(context.Background(), "a@b.com")

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrRoleConflict))
}

func TestLookup_Employee(t *testing.T) {
	us := &mockUserStore{}
	us.On("GetByEmail", mock.Anything, "a@b.com").Return(&domain.User{UserID: "u1", Role: domain.RoleEmployee}, nil)

	u, err := NewBinder(us).Lookup(context.Background(), "a@b.com")

	require.NoError(t, err)
	assert.Equal(t, "u1", u.UserID)
}

// --- Bind ---

func TestBind_CreatesIdentityOnFirstVerification(t *testing.T) {
	us := &mockUserStore{}
	us.On("GetByEmail", mock.Anything, "a@b.com").Return(nil, domain.ErrNotFound)
	us.On("Put", mock.Anything, mock.MatchedBy(func(u *domain.User) bool {
		return u.Email == "a@b.com" &&
			u.Role == domain.RoleEmployee &&
			u.CredentialHash != "" &&
			u.EmployeeCompanyID != nil && *u.EmployeeCompanyID == "c1" &&
			u.EmploymentVerifiedAt != nil
	})).Return(nil)

	u, err := NewBinder(us).Bind(context.Background(), "a@b.com", "c1", strPtr("Jane"))

	require.NoError(t, err)
	require.NotNil(t, u.Name)
	assert.Equal(t, "Jane", *u.Name)
	us.AssertExpectations(t)
}

func TestBind_RefreshesExistingEmployee(t *testing.T) {
	us := &mockUserStore{}
	existingName := "Jane"
	us.On("GetByEmail", mock.Anything, "a@b.com").Return(&domain.User{
		UserID: "u1", Email: "a@b.com", Name: &existingName, Role: domain.RoleEmployee,
	}, nil)
	us.On("Update", mock.Anything, "u1", mock.MatchedBy(func(m map[string]interface{}) bool {
		_, hasName := m["name"]
		return m["employee_company_id"] == "c1" && !hasName
	})).Return(nil)

	u, err := NewBinder(us).Bind(context.Background(), "a@b.com", "c1", strPtr("Someone Else"))

	require.NoError(t, err)
	// An existing display name is never overwritten.
	assert.Equal(t, "Jane", *u.Name)
	assert.Equal(t, "c1", *u.EmployeeCompanyID)
	us.AssertExpectations(t)
}

func TestBind_BackfillsMissingName(t *testing.T) {
	us := &mockUserStore{}
	us.On("GetByEmail", mock.Anything, "a@b.com").Return(&domain.User{
		UserID: "u1", Email: "a@b.com", Role: domain.RoleEmployee,
	}, nil)
	us.On("Update", mock.Anything, "u1", mock.MatchedBy(func(m map[string]interface{}) bool {
		return m["name"] == "Jane"
	})).Return(nil)

	u, err := NewBinder(us).Bind(context.Background(), "a@b.com", "c1", strPtr("Jane"))

	require.NoError(t, err)
	assert.Equal(t, "Jane", *u.Name)
}

func TestBind_AdminAccount_FailsClosed(t *testing.T) {
	us := &mockUserStore{}
	us.On("GetByEmail", mock.Anything, "a@b.com").Return(&domain.User{UserID: "u1", Role: domain.RoleAdmin}, nil)

	_, err := NewBinder(us).Bind(context.Background(), "a@b.com", "c1", nil)

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrRoleConflict))
	us.AssertNotCalled(t, "Update", mock.Anything, mock.Anything, mock.Anything)
	us.AssertNotCalled(t, "Put", mock.Anything, mock.Anything)
}
