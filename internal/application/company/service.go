package company

import (
	"context"
	"fmt"
	"io"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/corpdeals-api/internal/domain"
	"github.com/corpdeals-api/internal/pkg/id"
)

// CompanyStore is the persistence contract for the company directory.
type CompanyStore interface {
	Put(ctx context.Context, c *domain.Company) error
	Get(ctx context.Context, companyID string) (*domain.Company, error)
	GetBySlug(ctx context.Context, slug string) (*domain.Company, error)
	Scan(ctx context.Context, verified *bool) ([]domain.Company, error)
	Update(ctx context.Context, companyID string, updates map[string]interface{}) error
}

// AssetStore holds brand assets (logos, banners).
type AssetStore interface {
	Upload(ctx context.Context, key string, r io.Reader, contentType string) (string, error)
}

type Service interface {
	List(ctx context.Context, search string, verified *bool) ([]domain.Company, error)
	Get(ctx context.Context, idOrSlug string) (*domain.Company, error)
	Create(ctx context.Context, req domain.CreateCompanyRequest) (*domain.Company, error)
	Update(ctx context.Context, companyID string, req domain.UpdateCompanyRequest) (*domain.Company, error)
	UploadLogo(ctx context.Context, companyID, filename, contentType string, r io.Reader) (*domain.Company, error)
}

type service struct {
	companies CompanyStore
	assets    AssetStore
}

func NewService(companies CompanyStore, assets AssetStore) Service {
	return &service{companies: companies, assets: assets}
}

func (s *service) List(ctx context.Context, search string, verified *bool) ([]domain.Company, error) {
	companies, err := s.companies.Scan(ctx, verified)
	if err != nil {
		return nil, err
	}
	if search != "" {
		needle := strings.ToLower(search)
		filtered := companies[:0]
		for _, c := range companies {
			if strings.Contains(strings.ToLower(c.Name), needle) ||
				(c.Domain != nil && strings.Contains(strings.ToLower(*c.Domain), needle)) {
				filtered = append(filtered, c)
			}
		}
		companies = filtered
	}
	sort.Slice(companies, func(i, j int) bool { return companies[i].Name < companies[j].Name })
	return companies, nil
}

func (s *service) Get(ctx context.Context, idOrSlug string) (*domain.Company, error) {
	c, err := s.companies.Get(ctx, idOrSlug)
	if err == nil {
		return c, nil
	}
	return s.companies.GetBySlug(ctx, idOrSlug)
}

func (s *service) Create(ctx context.Context, req domain.CreateCompanyRequest) (*domain.Company, error) {
	slug := Slugify(req.Name)
	if req.Slug != nil && *req.Slug != "" {
		slug = *req.Slug
	}
	if _, err := s.companies.GetBySlug(ctx, slug); err == nil {
		return nil, fmt.Errorf("company with slug %q already exists: %w", slug, domain.ErrConflict)
	}

	now := time.Now().UTC()
	c := &domain.Company{
		CompanyID:     id.New(),
		Name:          req.Name,
		Slug:          slug,
		Domain:        normalizeDomain(req.Domain),
		Logo:          req.Logo,
		BannerImage:   req.BannerImage,
		EmployeeCount: req.EmployeeCount,
		Headquarters:  req.Headquarters,
		Description:   req.Description,
		BrandColor:    req.BrandColor,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if req.Verified != nil {
		c.Verified = *req.Verified
	}
	if err := s.companies.Put(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *service) Update(ctx context.Context, companyID string, req domain.UpdateCompanyRequest) (*domain.Company, error) {
	updates := map[string]interface{}{}
	setIf(updates, "name", req.Name)
	setIf(updates, "slug", req.Slug)
	setIf(updates, "domain", normalizeDomain(req.Domain))
	setIf(updates, "logo", req.Logo)
	setIf(updates, "banner_image", req.BannerImage)
	setIf(updates, "employee_count", req.EmployeeCount)
	setIf(updates, "headquarters", req.Headquarters)
	setIf(updates, "description", req.Description)
	setIf(updates, "brand_color", req.BrandColor)
	if req.Verified != nil {
		updates["verified"] = *req.Verified
	}
	if len(updates) == 0 {
		return s.companies.Get(ctx, companyID)
	}
	if err := s.companies.Update(ctx, companyID, updates); err != nil {
		return nil, err
	}
	return s.companies.Get(ctx, companyID)
}

// UploadLogo stores the logo in the asset store and records its URL.
func (s *service) UploadLogo(ctx context.Context, companyID, filename, contentType string, r io.Reader) (*domain.Company, error) {
	c, err := s.companies.Get(ctx, companyID)
	if err != nil {
		return nil, err
	}
	key := fmt.Sprintf("companies/%s/logo/%s", c.CompanyID, filename)
	url, err := s.assets.Upload(ctx, key, r, contentType)
	if err != nil {
		return nil, err
	}
	if err := s.companies.Update(ctx, c.CompanyID, map[string]interface{}{"logo": url}); err != nil {
		return nil, err
	}
	c.Logo = &url
	return c, nil
}

var slugPattern = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify derives a URL slug from a company name.
func Slugify(name string) string {
	return strings.Trim(slugPattern.ReplaceAllString(strings.ToLower(name), "-"), "-")
}

func normalizeDomain(d *string) *string {
	if d == nil {
		return nil
	}
	n := strings.ToLower(strings.TrimSpace(*d))
	return &n
}

func setIf(updates map[string]interface{}, field string, v *string) {
	if v != nil {
		updates[field] = *v
	}
}
