package registry

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wealthdesk/internal/models"
)

func testModules() []models.Module {
	return []models.Module{
		{Code: "clients", Name: "Clients"},
		{Code: "tasks", Name: "Tasks"},
		{Code: "accounts", Name: "Accounts", Requires: []string{"clients"}},
		{Code: "reports", Name: "Reports", Requires: []string{"accounts"}},
	}
}

func TestNew_ValidCatalog(t *testing.T) {
	reg, err := New(testModules(), nil)
	require.NoError(t, err)

	m, ok := reg.Module("accounts")
	require.True(t, ok)
	assert.Equal(t, []string{"clients"}, m.Requires)

	_, ok = reg.Module("billing")
	assert.False(t, ok)

	assert.Equal(t, []string{"clients"}, reg.Prerequisites("accounts"))
	assert.Equal(t, []string{"reports"}, reg.Dependents("accounts"))
	assert.Len(t, reg.Modules(), 4)
}

func TestNew_ModuleCycle(t *testing.T) {
	modules := []models.Module{
		{Code: "a", Requires: []string{"b"}},
		{Code: "b", Requires: []string{"c"}},
		{Code: "c", Requires: []string{"a"}},
	}

	_, err := New(modules, nil)
	require.Error(t, err)

	var cycleErr *CycleError
	require.ErrorAs(t, err, &cycleErr)
	assert.Equal(t, "module", cycleErr.Scope)
	assert.NotEmpty(t, cycleErr.Path)
}

func TestNew_UnknownRequirement(t *testing.T) {
	modules := []models.Module{
		{Code: "a", Requires: []string{"missing"}},
	}

	_, err := New(modules, nil)
	assert.ErrorContains(t, err, "unknown module")
}

func TestNew_DuplicateModuleCode(t *testing.T) {
	modules := []models.Module{
		{Code: "a"},
		{Code: "a"},
	}

	_, err := New(modules, nil)
	assert.ErrorContains(t, err, "duplicate module code")
}

func TestNew_ValidTemplate(t *testing.T) {
	templates := []models.WorkflowTemplate{
		{
			Code:   "onboarding",
			Module: "clients",
			Tasks: []models.TemplateTaskSpec{
				{Key: "collect", Title: "Collect documents"},
				{Key: "review", Title: "Review", Requires: []string{"collect"}},
				{Key: "open", Title: "Open account", Module: "accounts", Requires: []string{"review"}},
			},
		},
	}

	reg, err := New(testModules(), templates)
	require.NoError(t, err)

	tpl, ok := reg.Template("onboarding")
	require.True(t, ok)
	assert.Len(t, tpl.Tasks, 3)
	assert.Len(t, reg.Templates(), 1)
}

func TestNew_TemplateTaskCycle(t *testing.T) {
	templates := []models.WorkflowTemplate{
		{
			Code:   "looped",
			Module: "clients",
			Tasks: []models.TemplateTaskSpec{
				{Key: "a", Requires: []string{"b"}},
				{Key: "b", Requires: []string{"a"}},
			},
		},
	}

	_, err := New(testModules(), templates)
	require.Error(t, err)

	var cycleErr *CycleError
	require.ErrorAs(t, err, &cycleErr)
	assert.Equal(t, "workflow looped", cycleErr.Scope)
}

func TestNew_TemplateUnknownModule(t *testing.T) {
	templates := []models.WorkflowTemplate{
		{Code: "bad", Module: "missing", Tasks: []models.TemplateTaskSpec{{Key: "a"}}},
	}

	_, err := New(testModules(), templates)
	assert.ErrorContains(t, err, "unknown module")
}

func TestNew_TemplateDuplicateTaskKey(t *testing.T) {
	templates := []models.WorkflowTemplate{
		{
			Code:   "dup",
			Module: "clients",
			Tasks: []models.TemplateTaskSpec{
				{Key: "a"},
				{Key: "a"},
			},
		},
	}

	_, err := New(testModules(), templates)
	assert.ErrorContains(t, err, "duplicate task key")
}

func TestNew_TemplateUnknownRequirement(t *testing.T) {
	templates := []models.WorkflowTemplate{
		{
			Code:   "dangling",
			Module: "clients",
			Tasks: []models.TemplateTaskSpec{
				{Key: "a", Requires: []string{"ghost"}},
			},
		},
	}

	_, err := New(testModules(), templates)
	assert.ErrorContains(t, err, "unknown task")
}

func TestLoad_FromFile(t *testing.T) {
	catalog := `
[[module]]
code = "clients"
name = "Clients"
requires = []

[[module]]
code = "accounts"
name = "Accounts"
requires = ["clients"]

[[workflow]]
code = "onboarding"
name = "Onboarding"
module = "clients"

  [[workflow.task]]
  key = "collect"
  title = "Collect documents"
  requires = []

  [[workflow.task]]
  key = "open"
  title = "Open account"
  module = "accounts"
  requires = ["collect"]
`
	path := filepath.Join(t.TempDir(), "catalog.toml")
	require.NoError(t, os.WriteFile(path, []byte(catalog), 0o600))

	reg, err := Load(path)
	require.NoError(t, err)

	assert.Len(t, reg.Modules(), 2)
	tpl, ok := reg.Template("onboarding")
	require.True(t, ok)
	assert.Equal(t, "accounts", tpl.Tasks[1].Module)
	assert.Equal(t, []string{"collect"}, tpl.Tasks[1].Requires)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	assert.Error(t, err)
}
