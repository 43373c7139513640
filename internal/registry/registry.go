// Package registry holds the static catalog of capability modules and
// workflow templates. The catalog is loaded once at startup; an invalid
// dependency graph is a fatal configuration error, never a runtime one.
package registry

import (
	"fmt"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"

	"wealthdesk/internal/models"
)

// CycleError reports a dependency cycle found while validating the
// catalog. Startup must abort when it is returned.
type CycleError struct {
	Scope string
	Path  []string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("%s dependency cycle: %s", e.Scope, strings.Join(e.Path, " -> "))
}

type catalogFile struct {
	Modules   []models.Module           `toml:"module"`
	Workflows []models.WorkflowTemplate `toml:"workflow"`
}

type Registry struct {
	modules    map[string]models.Module
	dependents map[string][]string
	templates  map[string]models.WorkflowTemplate
}

// Load reads the catalog TOML file and validates it.
func Load(path string) (*Registry, error) {
	var file catalogFile
	if _, err := toml.DecodeFile(path, &file); err != nil {
		return nil, fmt.Errorf("decode catalog %s: %w", path, err)
	}
	return New(file.Modules, file.Workflows)
}

// New builds a validated registry from already-decoded catalog entries.
func New(modules []models.Module, templates []models.WorkflowTemplate) (*Registry, error) {
	r := &Registry{
		modules:    make(map[string]models.Module, len(modules)),
		dependents: make(map[string][]string),
		templates:  make(map[string]models.WorkflowTemplate, len(templates)),
	}

	for _, m := range modules {
		if m.Code == "" {
			return nil, fmt.Errorf("module with empty code in catalog")
		}
		if _, dup := r.modules[m.Code]; dup {
			return nil, fmt.Errorf("duplicate module code %q", m.Code)
		}
		r.modules[m.Code] = m
	}

	for _, m := range modules {
		for _, req := range m.Requires {
			if _, ok := r.modules[req]; !ok {
				return nil, fmt.Errorf("module %q requires unknown module %q", m.Code, req)
			}
			r.dependents[req] = append(r.dependents[req], m.Code)
		}
	}

	if err := checkAcyclic("module", keys(r.modules), func(code string) []string {
		return r.modules[code].Requires
	}); err != nil {
		return nil, err
	}

	for _, tpl := range templates {
		if tpl.Code == "" {
			return nil, fmt.Errorf("workflow template with empty code in catalog")
		}
		if _, dup := r.templates[tpl.Code]; dup {
			return nil, fmt.Errorf("duplicate workflow template code %q", tpl.Code)
		}
		if err := r.validateTemplate(tpl); err != nil {
			return nil, err
		}
		r.templates[tpl.Code] = tpl
	}

	return r, nil
}

func (r *Registry) validateTemplate(tpl models.WorkflowTemplate) error {
	if _, ok := r.modules[tpl.Module]; !ok {
		return fmt.Errorf("workflow template %q references unknown module %q", tpl.Code, tpl.Module)
	}
	if len(tpl.Tasks) == 0 {
		return fmt.Errorf("workflow template %q has no tasks", tpl.Code)
	}

	specs := make(map[string]models.TemplateTaskSpec, len(tpl.Tasks))
	for _, t := range tpl.Tasks {
		if t.Key == "" {
			return fmt.Errorf("workflow template %q has a task with empty key", tpl.Code)
		}
		if _, dup := specs[t.Key]; dup {
			return fmt.Errorf("workflow template %q has duplicate task key %q", tpl.Code, t.Key)
		}
		if t.Module != "" {
			if _, ok := r.modules[t.Module]; !ok {
				return fmt.Errorf("workflow template %q task %q references unknown module %q", tpl.Code, t.Key, t.Module)
			}
		}
		specs[t.Key] = t
	}
	for _, t := range tpl.Tasks {
		for _, req := range t.Requires {
			if _, ok := specs[req]; !ok {
				return fmt.Errorf("workflow template %q task %q requires unknown task %q", tpl.Code, t.Key, req)
			}
		}
	}

	return checkAcyclic("workflow "+tpl.Code, keys(specs), func(key string) []string {
		return specs[key].Requires
	})
}

// Module returns the catalog entry for a code.
func (r *Registry) Module(code string) (models.Module, bool) {
	m, ok := r.modules[code]
	return m, ok
}

// Modules lists all catalog modules sorted by code.
func (r *Registry) Modules() []models.Module {
	out := make([]models.Module, 0, len(r.modules))
	for _, m := range r.modules {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out
}

// Prerequisites returns the modules that must be enabled before code.
func (r *Registry) Prerequisites(code string) []string {
	return r.modules[code].Requires
}

// Dependents returns the modules that declare code as a prerequisite.
func (r *Registry) Dependents(code string) []string {
	return r.dependents[code]
}

func (r *Registry) Template(code string) (models.WorkflowTemplate, bool) {
	tpl, ok := r.templates[code]
	return tpl, ok
}

func (r *Registry) Templates() []models.WorkflowTemplate {
	out := make([]models.WorkflowTemplate, 0, len(r.templates))
	for _, tpl := range r.templates {
		out = append(out, tpl)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out
}

func keys[V any](m map[string]V) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// checkAcyclic runs a three-color depth-first search over the graph.
func checkAcyclic(scope string, nodes []string, edges func(string) []string) error {
	const (
		white = 0
		grey  = 1
		black = 2
	)
	color := make(map[string]int, len(nodes))

	var visit func(node string, path []string) error
	visit = func(node string, path []string) error {
		color[node] = grey
		path = append(path, node)
		for _, next := range edges(node) {
			switch color[next] {
			case grey:
				return &CycleError{Scope: scope, Path: append(path, next)}
			case white:
				if err := visit(next, path); err != nil {
					return err
				}
			}
		}
		color[node] = black
		return nil
	}

	for _, node := range nodes {
		if color[node] == white {
			if err := visit(node, nil); err != nil {
				return err
			}
		}
	}
	return nil
}
