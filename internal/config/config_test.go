package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoad_Defaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, "development", cfg.AppEnv)
	assert.Equal(t, 15*time.Minute, cfg.VerificationCodeTTL)
	assert.Equal(t, 5, cfg.VerificationMaxAttempts)
	assert.Equal(t, "employee_verifications", cfg.DynamoTables.Verifications)
}

func TestLoad_DevToggles_OutsideProduction(t *testing.T) {
	t.Setenv("APP_ENV", "development")
	t.Setenv("ALLOW_PERSONAL_EMAIL_VERIFICATION", "true")

	cfg := Load()

	assert.False(t, cfg.IsProduction())
	assert.True(t, cfg.AllowPersonalEmails)
	// Non-production always surfaces the code, even when unset.
	assert.True(t, cfg.ReturnDevCode)
}

func TestLoad_Production_ForcesTogglesOff(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("ALLOW_PERSONAL_EMAIL_VERIFICATION", "true")
	t.Setenv("RETURN_VERIFICATION_CODE", "true")

	cfg := Load()

	assert.True(t, cfg.IsProduction())
	assert.False(t, cfg.AllowPersonalEmails)
	assert.False(t, cfg.ReturnDevCode)
}

func TestLoad_TTLAndAttemptsOverride(t *testing.T) {
	t.Setenv("VERIFICATION_CODE_TTL_MINUTES", "5")
	t.Setenv("VERIFICATION_CODE_MAX_ATTEMPTS", "3")

	cfg := Load()

	assert.Equal(t, 5*time.Minute, cfg.VerificationCodeTTL)
	assert.Equal(t, 3, cfg.VerificationMaxAttempts)
}
