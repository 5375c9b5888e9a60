package verification

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/corpdeals-api/internal/domain"
	"github.com/corpdeals-api/internal/pkg/code"
	"github.com/corpdeals-api/internal/pkg/emaildomain"
	"github.com/corpdeals-api/internal/pkg/id"
)

// Delivery channels reported to the client. "console" means the mail provider
// was unavailable and the code was logged instead (never in production).
const (
	DeliveryEmail   = "email"
	DeliveryConsole = "console"
)

// Options is the immutable verification policy, resolved once from config at
// construction so tests can run several policies side by side.
type Options struct {
	CodeTTL             time.Duration
	MaxAttempts         int
	AllowPersonalEmails bool
	ReturnDevCode       bool
	Production          bool
}

type StartResult struct {
	VerificationID string                `json:"verification_id"`
	ExpiresAt      time.Time             `json:"expires_at"`
	Company        domain.CompanySummary `json:"company"`
	Delivery       string                `json:"delivery"`
	DevCode        *string               `json:"dev_code,omitempty"`
}

type VerifyResult struct {
	Token    string                 `json:"token"`
	Identity domain.IdentitySummary `json:"user"`
}

type StatusResult struct {
	Verified   bool                   `json:"verified"`
	VerifiedAt *time.Time             `json:"employment_verified_at,omitempty"`
	Company    *domain.CompanySummary `json:"company,omitempty"`
}

type Service interface {
	Start(ctx context.Context, req domain.StartVerificationRequest) (*StartResult, error)
	Verify(ctx context.Context, req domain.SubmitCodeRequest) (*VerifyResult, error)
	Status(ctx context.Context, userID string) (*StatusResult, error)
}

// VerificationStore is the ledger persistence contract. Every mutation is an
// atomic conditional transition; domain.ErrConflict signals a lost race or a
// violated precondition, and the service re-reads to report the terminal
// state it lost to.
type VerificationStore interface {
	Create(ctx context.Context, v *domain.EmployeeVerification) error
	Get(ctx context.Context, verificationID string) (*domain.EmployeeVerification, error)
	FindPending(ctx context.Context, companyID, email string, now time.Time) (*domain.EmployeeVerification, error)
	SupersedeCode(ctx context.Context, verificationID, codeHash string, expiresAt, now time.Time) error
	IncrementAttempts(ctx context.Context, verificationID string, maxAttempts int) (int, error)
	MarkExpired(ctx context.Context, verificationID string) error
	Finalize(ctx context.Context, verificationID string, verifiedAt time.Time) error
	BindUser(ctx context.Context, verificationID, userID string) error
}

type CompanyStore interface {
	Get(ctx context.Context, companyID string) (*domain.Company, error)
	GetBySlug(ctx context.Context, slug string) (*domain.Company, error)
}

type UserStore interface {
	Get(ctx context.Context, userID string) (*domain.User, error)
}

// IdentityBinder is the binding contract; see identity.Binder.
type IdentityBinder interface {
	Lookup(ctx context.Context, email string) (*domain.User, error)
	Bind(ctx context.Context, email, companyID string, displayName *string) (*domain.User, error)
}

// Mailer delivers the plaintext code out-of-band.
type Mailer interface {
	SendVerificationCode(to, companyName, plaintextCode string, expiresAt time.Time) error
}

// TokenSigner mints the session token for a bound identity.
type TokenSigner interface {
	Sign(userID, email, role string) (string, error)
}

// AlertPublisher receives security events; may be nil.
type AlertPublisher interface {
	PublishAlert(ctx context.Context, subject, message string) error
}

type service struct {
	verifications VerificationStore
	companies     CompanyStore
	users         UserStore
	binder        IdentityBinder
	mailer        Mailer
	signer        TokenSigner
	alerts        AlertPublisher
	opts          Options
	matcher       emaildomain.Matcher
	issuer        code.Issuer
}

type ServiceDeps struct {
	VerificationRepo VerificationStore
	CompanyRepo      CompanyStore
	UserRepo         UserStore
	Binder           IdentityBinder
	Mailer           Mailer
	Signer           TokenSigner
	Alerts           AlertPublisher // optional
	Options          Options
}

func NewService(deps ServiceDeps) Service {
	return &service{
		verifications: deps.VerificationRepo,
		companies:     deps.CompanyRepo,
		users:         deps.UserRepo,
		binder:        deps.Binder,
		mailer:        deps.Mailer,
		signer:        deps.Signer,
		alerts:        deps.Alerts,
		opts:          deps.Options,
		matcher:       emaildomain.Matcher{AllowPersonal: deps.Options.AllowPersonalEmails},
		issuer:        code.Issuer{TTL: deps.Options.CodeTTL},
	}
}

// Start begins (or refreshes) a verification for (company, email): domain
// policy check, fresh code, one live ledger record, delivery.
func (s *service) Start(ctx context.Context, req domain.StartVerificationRequest) (*StartResult, error) {
	company, err := s.lookupCompany(ctx, req.Company)
	if err != nil {
		return nil, err
	}

	email := emaildomain.Normalize(req.Email)
	if _, err := s.matcher.Validate(email, company); err != nil {
		return nil, err
	}

	issued, err := s.issuer.Issue()
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	v, err := s.verifications.FindPending(ctx, company.CompanyID, email, now)
	switch {
	case err == nil:
		// Supersede: the old code stops matching and attempts reset, still
		// exactly one live record for this (company, email).
		if err := s.verifications.SupersedeCode(ctx, v.VerificationID, issued.Hash, issued.ExpiresAt, now); err != nil {
			if !errors.Is(err, domain.ErrConflict) {
				return nil, err
			}
			// Finalized or expired between lookup and update; fall through to
			// a fresh record.
			v = nil
		} else {
			v.CodeExpiresAt = issued.ExpiresAt.Unix()
		}
	case errors.Is(err, domain.ErrNotFound):
		v = nil
	default:
		return nil, err
	}

	if v == nil {
		v = &domain.EmployeeVerification{
			VerificationID: id.New(),
			CompanyID:      company.CompanyID,
			Email:          email,
			CodeHash:       issued.Hash,
			CodeExpiresAt:  issued.ExpiresAt.Unix(),
			Status:         domain.VerificationPending,
			Method:         "EMAIL",
			CreatedAt:      now,
			UpdatedAt:      now,
		}
		if err := s.verifications.Create(ctx, v); err != nil {
			return nil, err
		}
	}

	delivery := DeliveryEmail
	if err := s.mailer.SendVerificationCode(email, company.Name, issued.Plaintext, issued.ExpiresAt); err != nil {
		if s.opts.Production {
			return nil, fmt.Errorf("send verification email: %w", err)
		}
		// The record stands; the client can retry Start at any time.
		slog.Warn("verification email not sent, falling back to console",
			"verification_id", v.VerificationID, "err", err)
		delivery = DeliveryConsole
	}

	if !s.opts.Production {
		slog.Info("verification code issued",
			"verification_id", v.VerificationID, "company", company.Slug, "code", issued.Plaintext)
	}

	res := &StartResult{
		VerificationID: v.VerificationID,
		ExpiresAt:      issued.ExpiresAt,
		Company:        company.Summary(),
		Delivery:       delivery,
	}
	if s.opts.ReturnDevCode {
		res.DevCode = &issued.Plaintext
	}
	return res, nil
}

// Verify evaluates a submitted code against the ledger and, on match, binds
// the identity and mints a session token.
func (s *service) Verify(ctx context.Context, req domain.SubmitCodeRequest) (*VerifyResult, error) {
	v, err := s.verifications.Get(ctx, req.VerificationID)
	if err != nil {
		return nil, err
	}

	if v.Status != domain.VerificationPending {
		return nil, domain.ErrAlreadyFinalized
	}

	now := time.Now().UTC()
	if now.Unix() >= v.CodeExpiresAt {
		// Winner and losers of this transition report the same failure.
		if err := s.verifications.MarkExpired(ctx, v.VerificationID); err != nil && !errors.Is(err, domain.ErrConflict) {
			return nil, err
		}
		return nil, domain.ErrCodeExpired
	}

	if v.Attempts >= s.opts.MaxAttempts {
		return nil, domain.ErrTooManyAttempts
	}

	if !code.Verify(v.CodeHash, req.Code) {
		attempts, err := s.verifications.IncrementAttempts(ctx, v.VerificationID, s.opts.MaxAttempts)
		if err != nil && !errors.Is(err, domain.ErrConflict) {
			return nil, err
		}
		if attempts == s.opts.MaxAttempts {
			s.publishAttemptCeiling(ctx, v)
		}
		return nil, domain.ErrInvalidCode
	}

	// Fail before consuming the code when the email belongs to a vendor or
	// admin account; the request stays PENDING.
	if _, err := s.binder.Lookup(ctx, v.Email); err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	// Single point of consumption: exactly one concurrent correct submission
	// passes, the rest see the finalized state.
	if err := s.verifications.Finalize(ctx, v.VerificationID, now); err != nil {
		if errors.Is(err, domain.ErrConflict) {
			return nil, domain.ErrAlreadyFinalized
		}
		return nil, err
	}

	user, err := s.binder.Bind(ctx, v.Email, v.CompanyID, trimName(req.Name))
	if err != nil {
		return nil, err
	}
	if err := s.verifications.BindUser(ctx, v.VerificationID, user.UserID); err != nil {
		slog.Warn("failed to record bound user on verification",
			"verification_id", v.VerificationID, "user_id", user.UserID, "err", err)
	}

	if s.signer == nil {
		return nil, fmt.Errorf("token signer not configured")
	}
	bearer, err := s.signer.Sign(user.UserID, user.Email, user.Role)
	if err != nil {
		return nil, err
	}

	summary := domain.IdentitySummary{
		UserID:               user.UserID,
		Email:                user.Email,
		Name:                 user.Name,
		Role:                 user.Role,
		EmploymentVerifiedAt: user.EmploymentVerifiedAt,
	}
	if company, err := s.companies.Get(ctx, v.CompanyID); err == nil {
		cs := company.Summary()
		summary.EmployeeCompany = &cs
	}

	return &VerifyResult{Token: bearer, Identity: summary}, nil
}

// Status is a pure read projection of the identity's verification fields.
func (s *service) Status(ctx context.Context, userID string) (*StatusResult, error) {
	u, err := s.users.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	res := &StatusResult{
		Verified:   u.EmploymentVerifiedAt != nil,
		VerifiedAt: u.EmploymentVerifiedAt,
	}
	if u.EmployeeCompanyID != nil {
		if company, err := s.companies.Get(ctx, *u.EmployeeCompanyID); err == nil {
			cs := company.Summary()
			res.Company = &cs
		}
	}
	return res, nil
}

// lookupCompany resolves a company by id first, then by slug, mirroring the
// public identifier accepted by the marketplace.
func (s *service) lookupCompany(ctx context.Context, idOrSlug string) (*domain.Company, error) {
	c, err := s.companies.Get(ctx, idOrSlug)
	if err == nil {
		return c, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}
	return s.companies.GetBySlug(ctx, idOrSlug)
}

func (s *service) publishAttemptCeiling(ctx context.Context, v *domain.EmployeeVerification) {
	if s.alerts == nil {
		return
	}
	msg := fmt.Sprintf("verification %s for company %s reached the attempt ceiling", v.VerificationID, v.CompanyID)
	if err := s.alerts.PublishAlert(ctx, "verification attempt ceiling reached", msg); err != nil {
		slog.Warn("failed to publish attempt-ceiling alert", "verification_id", v.VerificationID, "err", err)
	}
}

func trimName(name *string) *string {
	if name == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*name)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
