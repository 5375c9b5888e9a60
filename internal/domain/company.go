package domain

import "time"

// Company is an employer whose staff can verify employment.
// Domain is nullable: a company without a registered domain skips domain
// enforcement entirely.
type Company struct {
	CompanyID     string    `json:"id" dynamodbav:"company_id"`
	Name          string    `json:"name" dynamodbav:"name"`
	Slug          string    `json:"slug" dynamodbav:"slug"`
	Domain        *string   `json:"domain" dynamodbav:"domain"`
	Logo          *string   `json:"logo" dynamodbav:"logo"`
	BannerImage   *string   `json:"banner_image" dynamodbav:"banner_image"`
	EmployeeCount *string   `json:"employee_count" dynamodbav:"employee_count"`
	Headquarters  *string   `json:"headquarters" dynamodbav:"headquarters"`
	Description   *string   `json:"description" dynamodbav:"description"`
	BrandColor    *string   `json:"brand_color" dynamodbav:"brand_color"`
	Verified      bool      `json:"verified" dynamodbav:"verified"`
	CreatedAt     time.Time `json:"created" dynamodbav:"created_at"`
	UpdatedAt     time.Time `json:"updated" dynamodbav:"updated_at"`
}

// CompanySummary is the public projection embedded in verification responses.
type CompanySummary struct {
	CompanyID string  `json:"id"`
	Slug      string  `json:"slug"`
	Name      string  `json:"name"`
	Domain    *string `json:"domain"`
}

func (c *Company) Summary() CompanySummary {
	return CompanySummary{CompanyID: c.CompanyID, Slug: c.Slug, Name: c.Name, Domain: c.Domain}
}

type CreateCompanyRequest struct {
	Name          string  `json:"name" validate:"required"`
	Slug          *string `json:"slug" validate:"omitempty,slug"`
	Domain        *string `json:"domain"`
	Logo          *string `json:"logo"`
	BannerImage   *string `json:"banner_image"`
	EmployeeCount *string `json:"employee_count"`
	Headquarters  *string `json:"headquarters"`
	Description   *string `json:"description"`
	BrandColor    *string `json:"brand_color"`
	Verified      *bool   `json:"verified"`
}

type UpdateCompanyRequest struct {
	Name          *string `json:"name"`
	Slug          *string `json:"slug"`
	Domain        *string `json:"domain"`
	Logo          *string `json:"logo"`
	BannerImage   *string `json:"banner_image"`
	EmployeeCount *string `json:"employee_count"`
	Headquarters  *string `json:"headquarters"`
	Description   *string `json:"description"`
	BrandColor    *string `json:"brand_color"`
	Verified      *bool   `json:"verified"`
}
