package schema

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alexisbeaulieu97/stepwise/internal/config"
	"github.com/alexisbeaulieu97/stepwise/internal/domain/wizard"
)

func TestBuildCatalog(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "onboarding.openapi.yaml"), []byte(onboardingDocument), 0o600))

	flow := &config.Flow{
		Schemas: config.Schemas{
			OpenAPI: "onboarding.openapi.yaml",
			Rules: map[string]config.RuleSet{
				"contact": {Fields: map[string]string{"email": "required,email"}},
			},
		},
	}

	catalog, err := BuildCatalog(context.Background(), flow, dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"contact", "openapi:Business", "openapi:Owners"}, catalog.Refs())

	contact, err := catalog.Schema("contact")
	require.NoError(t, err)
	result := contact.Validate(wizard.FormData{"email": "not-an-email"})
	assert.Equal(t, map[string][]string{"email": {"must be a valid email address"}}, result.FieldErrors)

	_, err = catalog.Schema("openapi:Missing")
	assert.True(t, wizard.IsCode(err, wizard.ErrCodeUnknownSchema))
}

func TestBuildCatalogMissingDocument(t *testing.T) {
	t.Parallel()

	flow := &config.Flow{Schemas: config.Schemas{OpenAPI: "absent.yaml"}}
	_, err := BuildCatalog(context.Background(), flow, t.TempDir())
	require.Error(t, err)
}

func TestCatalogAddRejectsDuplicates(t *testing.T) {
	t.Parallel()

	catalog := NewCatalog()
	compiled, err := CompileRules("contact", config.RuleSet{Fields: map[string]string{"email": "required"}})
	require.NoError(t, err)

	require.NoError(t, catalog.Add("contact", compiled))
	assert.Error(t, catalog.Add("contact", compiled))
	assert.Error(t, catalog.Add("", compiled))
}
