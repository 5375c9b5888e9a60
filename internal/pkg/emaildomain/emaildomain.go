package emaildomain

import (
	"fmt"
	"strings"

	"github.com/corpdeals-api/internal/domain"
)

// personalDomains are consumer mail providers rejected for employment
// verification unless the non-production override is enabled.
var personalDomains = map[string]struct{}{
	"gmail.com":      {},
	"yahoo.com":      {},
	"hotmail.com":    {},
	"outlook.com":    {},
	"live.com":       {},
	"icloud.com":     {},
	"aol.com":        {},
	"proton.me":      {},
	"protonmail.com": {},
	"pm.me":          {},
	"gmx.com":        {},
}

// Matcher validates candidate email addresses against a company's registered
// domain. AllowPersonal must come from config.Load, which forces it off in
// production.
type Matcher struct {
	AllowPersonal bool
}

// Normalize trims and lower-cases an email address.
func Normalize(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Domain extracts the part after the last '@'. Empty string means the
// address has no domain.
func Domain(email string) string {
	at := strings.LastIndex(email, "@")
	if at == -1 || at == len(email)-1 {
		return ""
	}
	return strings.ToLower(email[at+1:])
}

// Validate checks a normalized email against company policy. It returns the
// extracted domain on success.
func (m Matcher) Validate(email string, company *domain.Company) (string, error) {
	d := Domain(email)
	if d == "" {
		return "", domain.ErrInvalidEmail
	}

	if _, personal := personalDomains[d]; personal && !m.AllowPersonal {
		return "", domain.ErrPersonalEmail
	}

	if company.Domain != nil && !m.AllowPersonal {
		registered := strings.ToLower(*company.Domain)
		if registered != "" && d != registered && !strings.HasSuffix(d, "."+registered) {
			return "", fmt.Errorf("email domain must match %s: %w", registered, domain.ErrDomainMismatch)
		}
	}

	return d, nil
}
