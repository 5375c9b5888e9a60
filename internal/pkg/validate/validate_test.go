package validate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type slugged struct {
	Slug string `validate:"slug"`
}

func TestStruct_SlugRule(t *testing.T) {
	require.NoError(t, Struct(slugged{Slug: "acme-corp"}))
	require.NoError(t, Struct(slugged{Slug: "acme"}))

	assert.Error(t, Struct(slugged{Slug: "Acme"}))
	assert.Error(t, Struct(slugged{Slug: "acme--corp"}))
	assert.Error(t, Struct(slugged{Slug: "-acme"}))
	assert.Error(t, Struct(slugged{Slug: ""}))
}

func TestStruct_ReportsFieldAndTag(t *testing.T) {
	type req struct {
		Email string `validate:"required"`
	}
	err := Struct(req{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Email")
	assert.Contains(t, err.Error(), "required")
}
