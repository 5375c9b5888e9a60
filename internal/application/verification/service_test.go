package verification

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/corpdeals-api/internal/domain"
)

// --- mocks ---

type mockVerificationStore struct{ mock.Mock }

func (m *mockVerificationStore) Create(ctx context.Context, v *domain.EmployeeVerification) error {
	return m.Called(ctx, v).Error(0)
}
func (m *mockVerificationStore) Get(ctx context.Context, verificationID string) (*domain.EmployeeVerification, error) {
	args := m.Called(ctx, verificationID)
	if v, _ := args.Get(0).(*domain.EmployeeVerification); v != nil {
		return v, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockVerificationStore) FindPending(ctx context.Context, companyID, email string, now time.Time) (*domain.EmployeeVerification, error) {
	args := m.Called(ctx, companyID, email, now)
	if v, _ := args.Get(0).(*domain.EmployeeVerification); v != nil {
		return v, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockVerificationStore) SupersedeCode(ctx context.Context, verificationID, codeHash string, expiresAt, now time.Time) error {
	return m.Called(ctx, verificationID, codeHash, expiresAt, now).Error(0)
}
func (m *mockVerificationStore) IncrementAttempts(ctx context.Context, verificationID string, maxAttempts int) (int, error) {
	args := m.Called(ctx, verificationID, maxAttempts)
	return args.Int(0), args.Error(1)
}
func (m *mockVerificationStore) MarkExpired(ctx context.Context, verificationID string) error {
	return m.Called(ctx, verificationID).Error(0)
}
func (m *mockVerificationStore) Finalize(ctx context.Context, verificationID string, verifiedAt time.Time) error {
	return m.Called(ctx, verificationID, verifiedAt).Error(0)
}
func (m *mockVerificationStore) BindUser(ctx context.Context, verificationID, userID string) error {
	return m.Called(ctx, verificationID, userID).Error(0)
}

type mockCompanyStore struct{ mock.Mock }

func (m *mockCompanyStore) Get(ctx context.Context, companyID string) (*domain.Company, error) {
	args := m.Called(ctx, companyID)
	if c, _ := args.Get(0).(*domain.Company); c != nil {
		return c, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockCompanyStore) GetBySlug(ctx context.Context, slug string) (*domain.Company, error) {
	args := m.Called(ctx, slug)
	if c, _ := args.Get(0).(*domain.Company); c != nil {
		return c, args.Error(1)
	}
	return nil, args.Error(1)
}

type mockUserStore struct{ mock.Mock }

func (m *mockUserStore) Get(ctx context.Context, userID string) (*domain.User, error) {
	args := m.Called(ctx, userID)
	if u, _ := args.Get(0).(*domain.User); u != nil {
		return u, args.Error(1)
	}
	return nil, args.Error(1)
}

type mockBinder struct{ mock.Mock }

func (m *mockBinder) Lookup(ctx context.Context, email string) (*domain.User, error) {
	args := m.Called(ctx, email)
	if u, _ := args.Get(0).(*domain.User); u != nil {
		return u, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockBinder) Bind(ctx context.Context, email, companyID string, displayName *string) (*domain.User, error) {
	args := m.Called(ctx, email, companyID, displayName)
	if u, _ := args.Get(0).(*domain.User); u != nil {
		return u, args.Error(1)
	}
	return nil, args.Error(1)
}

type mockMailer struct{ mock.Mock }

func (m *mockMailer) SendVerificationCode(to, companyName, plaintextCode string, expiresAt time.Time) error {
	return m.Called(to, companyName, plaintextCode, expiresAt).Error(0)
}

type mockSigner struct{ mock.Mock }

func (m *mockSigner) Sign(userID, email, role string) (string, error) {
	args := m.Called(userID, email, role)
	return args.String(0), args.Error(1)
}

type mockAlerts struct{ mock.Mock }

func (m *mockAlerts) PublishAlert(ctx context.Context, subject, message string) error {
	return m.Called(ctx, subject, message).Error(0)
}

// --- builder ---

func defaultOptions() Options {
	return Options{
		CodeTTL:       15 * time.Minute,
		MaxAttempts:   5,
		ReturnDevCode: true,
	}
}

func newTestService(vs *mockVerificationStore, cs *mockCompanyStore, us *mockUserStore, b *mockBinder, ml *mockMailer, sg *mockSigner, al *mockAlerts, opts Options) Service {
	return NewService(ServiceDeps{
		VerificationRepo: vs,
		CompanyRepo:      cs,
		UserRepo:         us,
		Binder:           b,
		Mailer:           ml,
		Signer:           sg,
		Alerts:           al,
		Options:          opts,
	})
}

func testCompany() *domain.Company {
	d := "acme.com"
	return &domain.Company{CompanyID: "c1", Name: "Acme", Slug: "acme", Domain: &d, Verified: true}
}

func hashOf(t *testing.T, code string) string {
	t.Helper()
	h, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.MinCost)
	require.NoError(t, err)
	return string(h)
}

func pendingRecord(t *testing.T, code string) *domain.EmployeeVerification {
	t.Helper()
	return &domain.EmployeeVerification{
		VerificationID: "v1",
		CompanyID:      "c1",
		Email:          "jane@acme.com",
		CodeHash:       hashOf(t, code),
		CodeExpiresAt:  time.Now().Add(10 * time.Minute).Unix(),
		Status:         domain.VerificationPending,
	}
}

// --- Start ---

func TestStart_CompanyNotFound(t *testing.T) {
	cs := &mockCompanyStore{}
	cs.On("Get", mock.Anything, "ghost").Return(nil, domain.ErrNotFound)
	cs.On("GetBySlug", mock.Anything, "ghost").Return(nil, domain.ErrNotFound)

	svc := newTestService(nil, cs, nil, nil, nil, nil, nil, defaultOptions())
	_, err := svc.Start(context.Background(), domain.StartVerificationRequest{Company: "ghost", Email: "jane@acme.com"})

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestStart_DomainMismatch_NothingPersisted(t *testing.T) {
	vs := &mockVerificationStore{}
	cs := &mockCompanyStore{}
	cs.On("Get", mock.Anything, "c1").Return(testCompany(), nil)

	svc := newTestService(vs, cs, nil, nil, nil, nil, nil, defaultOptions())
	_, err := svc.Start(context.Background(), domain.StartVerificationRequest{Company: "c1", Email: "jane@rival.com"})

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrDomainMismatch))
	vs.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	vs.AssertNotCalled(t, "FindPending", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestStart_PersonalEmailRejected(t *testing.T) {
	cs := &mockCompanyStore{}
	cs.On("Get", mock.Anything, "c1").Return(testCompany(), nil)

	svc := newTestService(nil, cs, nil, nil, nil, nil, nil, defaultOptions())
	_, err := svc.Start(context.Background(), domain.StartVerificationRequest{Company: "c1", Email: "jane@gmail.com"})

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrPersonalEmail))
}

func TestStart_HappyPath_FreshRecord(t *testing.T) {
	vs := &mockVerificationStore{}
	cs := &mockCompanyStore{}
	ml := &mockMailer{}

	cs.On("Get", mock.Anything, "c1").Return(testCompany(), nil)
	vs.On("FindPending", mock.Anything, "c1", "jane@acme.com", mock.Anything).Return(nil, domain.ErrNotFound)
	vs.On("Create", mock.Anything, mock.MatchedBy(func(v *domain.EmployeeVerification) bool {
		return v.Status == domain.VerificationPending && v.Email == "jane@acme.com" && v.Attempts == 0
	})).Return(nil)
	ml.On("SendVerificationCode", "jane@acme.com", "Acme", mock.Anything, mock.Anything).Return(nil)

	svc := newTestService(vs, cs, nil, nil, ml, nil, nil, defaultOptions())
	res, err := svc.Start(context.Background(), domain.StartVerificationRequest{Company: "c1", Email: "Jane@Acme.com "})

	require.NoError(t, err)
	assert.NotEmpty(t, res.VerificationID)
	assert.Equal(t, DeliveryEmail, res.Delivery)
	require.NotNil(t, res.DevCode)
	assert.Len(t, *res.DevCode, 6)
	vs.AssertExpectations(t)
	ml.AssertExpectations(t)
}

func TestStart_SupersedesExistingPending(t *testing.T) {
	vs := &mockVerificationStore{}
	cs := &mockCompanyStore{}
	ml := &mockMailer{}

	existing := pendingRecord(t, "111111")
	existing.Attempts = 3
	cs.On("Get", mock.Anything, "c1").Return(testCompany(), nil)
	vs.On("FindPending", mock.Anything, "c1", "jane@acme.com", mock.Anything).Return(existing, nil)
	vs.On("SupersedeCode", mock.Anything, "v1", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	ml.On("SendVerificationCode", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)

	svc := newTestService(vs, cs, nil, nil, ml, nil, nil, defaultOptions())
	res, err := svc.Start(context.Background(), domain.StartVerificationRequest{Company: "c1", Email: "jane@acme.com"})

	require.NoError(t, err)
	assert.Equal(t, "v1", res.VerificationID)
	vs.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestStart_SupersedeLostRace_CreatesFreshRecord(t *testing.T) {
	vs := &mockVerificationStore{}
	cs := &mockCompanyStore{}
	ml := &mockMailer{}

	existing := pendingRecord(t, "111111")
	cs.On("Get", mock.Anything, "c1").Return(testCompany(), nil)
	vs.On("FindPending", mock.Anything, "c1", "jane@acme.com", mock.Anything).Return(existing, nil)
	vs.On("SupersedeCode", mock.Anything, "v1", mock.Anything, mock.Anything, mock.Anything).Return(domain.ErrConflict)
	vs.On("Create", mock.Anything, mock.AnythingOfType("*domain.EmployeeVerification")).Return(nil)
	ml.On("SendVerificationCode", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)

	svc := newTestService(vs, cs, nil, nil, ml, nil, nil, defaultOptions())
	res, err := svc.Start(context.Background(), domain.StartVerificationRequest{Company: "c1", Email: "jane@acme.com"})

	require.NoError(t, err)
	assert.NotEqual(t, "v1", res.VerificationID)
	vs.AssertExpectations(t)
}

func TestStart_MailFailureOutsideProduction_FallsBackToConsole(t *testing.T) {
	vs := &mockVerificationStore{}
	cs := &mockCompanyStore{}
	ml := &mockMailer{}

	cs.On("Get", mock.Anything, "c1").Return(testCompany(), nil)
	vs.On("FindPending", mock.Anything, "c1", "jane@acme.com", mock.Anything).Return(nil, domain.ErrNotFound)
	vs.On("Create", mock.Anything, mock.Anything).Return(nil)
	ml.On("SendVerificationCode", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(errors.New("smtp down"))

	svc := newTestService(vs, cs, nil, nil, ml, nil, nil, defaultOptions())
	res, err := svc.Start(context.Background(), domain.StartVerificationRequest{Company: "c1", Email: "jane@acme.com"})

	require.NoError(t, err)
	assert.Equal(t, DeliveryConsole, res.Delivery)
}

func TestStart_MailFailureInProduction_Fails(t *testing.T) {
	vs := &mockVerificationStore{}
	cs := &mockCompanyStore{}
	ml := &mockMailer{}

	cs.On("Get", mock.Anything, "c1").Return(testCompany(), nil)
	vs.On("FindPending", mock.Anything, "c1", "jane@acme.com", mock.Anything).Return(nil, domain.ErrNotFound)
	vs.On("Create", mock.Anything, mock.Anything).Return(nil)
	ml.On("SendVerificationCode", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(errors.New("smtp down"))

	opts := defaultOptions()
	opts.Production = true
	opts.ReturnDevCode = false
	svc := newTestService(vs, cs, nil, nil, ml, nil, nil, opts)
	_, err := svc.Start(context.Background(), domain.StartVerificationRequest{Company: "c1", Email: "jane@acme.com"})

	require.Error(t, err)
}

func TestStart_ProductionNeverReturnsDevCode(t *testing.T) {
	vs := &mockVerificationStore{}
	cs := &mockCompanyStore{}
	ml := &mockMailer{}

	cs.On("Get", mock.Anything, "c1").Return(testCompany(), nil)
	vs.On("FindPending", mock.Anything, "c1", "jane@acme.com", mock.Anything).Return(nil, domain.ErrNotFound)
	vs.On("Create", mock.Anything, mock.Anything).Return(nil)
	ml.On("SendVerificationCode", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)

	opts := defaultOptions()
	opts.Production = true
	opts.ReturnDevCode = false
	svc := newTestService(vs, cs, nil, nil, ml, nil, nil, opts)
	res, err := svc.Start(context.Background(), domain.StartVerificationRequest{Company: "c1", Email: "jane@acme.com"})

	require.NoError(t, err)
	assert.Nil(t, res.DevCode)
}

// --- Verify ---

func TestVerify_UnknownID(t *testing.T) {
	vs := &mockVerificationStore{}
	vs.On("Get", mock.Anything, "ghost").Return(nil, domain.ErrNotFound)

	svc := newTestService(vs, nil, nil, nil, nil, nil, nil, defaultOptions())
	_, err := svc.Verify(context.Background(), domain.SubmitCodeRequest{VerificationID: "ghost", Code: "123456"})

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestVerify_AlreadyFinalized(t *testing.T) {
	vs := &mockVerificationStore{}
	v := pendingRecord(t, "123456")
	v.Status = domain.VerificationVerified
	vs.On("Get", mock.Anything, "v1").Return(v, nil)

	svc := newTestService(vs, nil, nil, nil, nil, nil, nil, defaultOptions())
	_, err := svc.Verify(context.Background(), domain.SubmitCodeRequest{VerificationID: "v1", Code: "123456"})

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrAlreadyFinalized))
}

func TestVerify_ExpiredCode_MarksExpired(t *testing.T) {
	vs := &mockVerificationStore{}
	v := pendingRecord(t, "123456")
	v.CodeExpiresAt = time.Now().Add(-1 * time.Minute).Unix()
	vs.On("Get", mock.Anything, "v1").Return(v, nil)
	vs.On("MarkExpired", mock.Anything, "v1").Return(nil)

	svc := newTestService(vs, nil, nil, nil, nil, nil, nil, defaultOptions())
	_, err := svc.Verify(context.Background(), domain.SubmitCodeRequest{VerificationID: "v1", Code: "123456"})

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrCodeExpired))
	vs.AssertExpectations(t)
}

func TestVerify_ExpiredCode_LostTransitionRace_SameError(t *testing.T) {
	vs := &mockVerificationStore{}
	v := pendingRecord(t, "123456")
	v.CodeExpiresAt = time.Now().Add(-1 * time.Minute).Unix()
	vs.On("Get", mock.Anything, "v1").Return(v, nil)
	vs.On("MarkExpired", mock.Anything, "v1").Return(domain.ErrConflict)

	svc := newTestService(vs, nil, nil, nil, nil, nil, nil, defaultOptions())
	_, err := svc.Verify(context.Background(), domain.SubmitCodeRequest{VerificationID: "v1", Code: "123456"})

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrCodeExpired))
}

func TestVerify_AttemptCeiling_BeatsCodeCheck(t *testing.T) {
	vs := &mockVerificationStore{}
	v := pendingRecord(t, "123456")
	v.Attempts = 5
	vs.On("Get", mock.Anything, "v1").Return(v, nil)

	svc := newTestService(vs, nil, nil, nil, nil, nil, nil, defaultOptions())
	// Correct code is irrelevant once the ceiling is reached.
	_, err := svc.Verify(context.Background(), domain.SubmitCodeRequest{VerificationID: "v1", Code: "123456"})

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrTooManyAttempts))
	vs.AssertNotCalled(t, "IncrementAttempts", mock.Anything, mock.Anything, mock.Anything)
}

func TestVerify_WrongCode_IncrementsAttempts(t *testing.T) {
	vs := &mockVerificationStore{}
	v := pendingRecord(t, "123456")
	vs.On("Get", mock.Anything, "v1").Return(v, nil)
	vs.On("IncrementAttempts", mock.Anything, "v1", 5).Return(1, nil)

	svc := newTestService(vs, nil, nil, nil, nil, nil, nil, defaultOptions())
	_, err := svc.Verify(context.Background(), domain.SubmitCodeRequest{VerificationID: "v1", Code: "654321"})

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrInvalidCode))
	vs.AssertExpectations(t)
}

func TestVerify_WrongCode_CeilingReached_PublishesAlert(t *testing.T) {
	vs := &mockVerificationStore{}
	al := &mockAlerts{}
	v := pendingRecord(t, "123456")
	v.Attempts = 4
	vs.On("Get", mock.Anything, "v1").Return(v, nil)
	vs.On("IncrementAttempts", mock.Anything, "v1", 5).Return(5, nil)
	al.On("PublishAlert", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	svc := newTestService(vs, nil, nil, nil, nil, nil, al, defaultOptions())
	_, err := svc.Verify(context.Background(), domain.SubmitCodeRequest{VerificationID: "v1", Code: "654321"})

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrInvalidCode))
	al.AssertExpectations(t)
}

func TestVerify_RoleConflict_LeavesRequestPending(t *testing.T) {
	vs := &mockVerificationStore{}
	b := &mockBinder{}
	v := pendingRecord(t, "123456")
	vs.On("Get", mock.Anything, "v1").Return(v, nil)
	b.On("Lookup", mock.Anything, "jane@acme.com").Return(nil, domain.ErrRoleConflict)

	svc := newTestService(vs, nil, nil, b, nil, nil, nil, defaultOptions())
	_, err := svc.Verify(context.Background(), domain.SubmitCodeRequest{VerificationID: "v1", Code: "123456"})

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrRoleConflict))
	vs.AssertNotCalled(t, "Finalize", mock.Anything, mock.Anything, mock.Anything)
}

func TestVerify_FinalizeLostRace_ReportsAlreadyFinalized(t *testing.T) {
	vs := &mockVerificationStore{}
	b := &mockBinder{}
	v := pendingRecord(t, "123456")
	vs.On("Get", mock.Anything, "v1").Return(v, nil)
	b.On("Lookup", mock.Anything, "jane@acme.com").Return(nil, domain.ErrNotFound)
	vs.On("Finalize", mock.Anything, "v1", mock.Anything).Return(domain.ErrConflict)

	svc := newTestService(vs, nil, nil, b, nil, nil, nil, defaultOptions())
	_, err := svc.Verify(context.Background(), domain.SubmitCodeRequest{VerificationID: "v1", Code: "123456"})

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrAlreadyFinalized))
	b.AssertNotCalled(t, "Bind", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestVerify_HappyPath(t *testing.T) {
	vs := &mockVerificationStore{}
	cs := &mockCompanyStore{}
	b := &mockBinder{}
	sg := &mockSigner{}

	v := pendingRecord(t, "123456")
	verifiedAt := time.Now().UTC()
	user := &domain.User{
		UserID:               "u1",
		Email:                "jane@acme.com",
		Role:                 domain.RoleEmployee,
		EmploymentVerifiedAt: &verifiedAt,
	}

	vs.On("Get", mock.Anything, "v1").Return(v, nil)
	b.On("Lookup", mock.Anything, "jane@acme.com").Return(nil, domain.ErrNotFound)
	vs.On("Finalize", mock.Anything, "v1", mock.Anything).Return(nil)
	b.On("Bind", mock.Anything, "jane@acme.com", "c1", mock.MatchedBy(func(n *string) bool {
		return n != nil && *n == "Jane Doe"
	})).Return(user, nil)
	vs.On("BindUser", mock.Anything, "v1", "u1").Return(nil)
	sg.On("Sign", "u1", "jane@acme.com", domain.RoleEmployee).Return("bearer-token", nil)
	cs.On("Get", mock.Anything, "c1").Return(testCompany(), nil)

	svc := newTestService(vs, cs, nil, b, nil, sg, nil, defaultOptions())
	name := "  Jane Doe  "
	res, err := svc.Verify(context.Background(), domain.SubmitCodeRequest{VerificationID: "v1", Code: "123456", Name: &name})

	require.NoError(t, err)
	assert.Equal(t, "bearer-token", res.Token)
	assert.Equal(t, "u1", res.Identity.UserID)
	require.NotNil(t, res.Identity.EmployeeCompany)
	assert.Equal(t, "acme", res.Identity.EmployeeCompany.Slug)
	vs.AssertExpectations(t)
	b.AssertExpectations(t)
}

// --- Status ---

func TestStatus_VerifiedEmployee(t *testing.T) {
	us := &mockUserStore{}
	cs := &mockCompanyStore{}

	verifiedAt := time.Now().UTC()
	companyID := "c1"
	us.On("Get", mock.Anything, "u1").Return(&domain.User{
		UserID:               "u1",
		Role:                 domain.RoleEmployee,
		EmployeeCompanyID:    &companyID,
		EmploymentVerifiedAt: &verifiedAt,
	}, nil)
	cs.On("Get", mock.Anything, "c1").Return(testCompany(), nil)

	svc := newTestService(nil, cs, us, nil, nil, nil, nil, defaultOptions())
	res, err := svc.Status(context.Background(), "u1")

	require.NoError(t, err)
	assert.True(t, res.Verified)
	require.NotNil(t, res.Company)
	assert.Equal(t, "acme", res.Company.Slug)
}

func TestStatus_UnverifiedUser(t *testing.T) {
	us := &mockUserStore{}
	us.On("Get", mock.Anything, "u1").Return(&domain.User{UserID: "u1", Role: domain.RoleEmployee}, nil)

	svc := newTestService(nil, nil, us, nil, nil, nil, nil, defaultOptions())
	res, err := svc.Status(context.Background(), "u1")

	require.NoError(t, err)
	assert.False(t, res.Verified)
	assert.Nil(t, res.Company)
	assert.Nil(t, res.VerifiedAt)
}
