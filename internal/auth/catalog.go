package auth

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"slices"

	"github.com/papeesearch/portal/internal/models"
	"gopkg.in/yaml.v3"
)

//go:embed permissions.yaml
var defaultCatalog []byte

// ErrUnknownPermission is returned when a permission set names a module or
// action the catalog does not define.
var ErrUnknownPermission = errors.New("unknown permission")

// CatalogModule is one grantable back-office area.
type CatalogModule struct {
	Name    models.Module   `yaml:"name" json:"name"`
	Label   string          `yaml:"label" json:"label"`
	Actions []models.Action `yaml:"actions" json:"actions"`
}

// Catalog lists every module and action that can appear in a PermissionSet.
type Catalog struct {
	Modules []CatalogModule `yaml:"modules" json:"modules"`
}

// DefaultCatalog returns the built-in catalog.
func DefaultCatalog() *Catalog {
	c, err := parseCatalog(defaultCatalog)
	if err != nil {
		panic(fmt.Sprintf("embedded permission catalog: %v", err))
	}
	return c
}

// LoadCatalog reads a catalog from path, or returns the built-in one when path is empty.
func LoadCatalog(path string) (*Catalog, error) {
	if path == "" {
		return DefaultCatalog(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading permission catalog: %w", err)
	}
	c, err := parseCatalog(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

func parseCatalog(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parsing permission catalog: %w", err)
	}
	if len(c.Modules) == 0 {
		return nil, errors.New("permission catalog defines no modules")
	}

	seen := make(map[models.Module]bool, len(c.Modules))
	for _, m := range c.Modules {
		if m.Name == "" {
			return nil, errors.New("permission catalog module without a name")
		}
		if seen[m.Name] {
			return nil, fmt.Errorf("permission catalog module %q defined twice", m.Name)
		}
		seen[m.Name] = true
		for _, a := range m.Actions {
			switch a {
			case models.ActionView, models.ActionCreate, models.ActionUpdate, models.ActionDelete:
			default:
				return nil, fmt.Errorf("permission catalog module %q: unknown action %q", m.Name, a)
			}
		}
	}
	return &c, nil
}

// Module returns the catalog entry for name.
func (c *Catalog) Module(name models.Module) (CatalogModule, bool) {
	for _, m := range c.Modules {
		if m.Name == name {
			return m, true
		}
	}
	return CatalogModule{}, false
}

// Validate rejects permission sets naming modules or actions outside the catalog.
func (c *Catalog) Validate(p models.PermissionSet) error {
	for module, actions := range p {
		m, ok := c.Module(module)
		if !ok {
			return fmt.Errorf("%w: module %q", ErrUnknownPermission, module)
		}
		for _, a := range actions {
			if !slices.Contains(m.Actions, a) {
				return fmt.Errorf("%w: %s:%s", ErrUnknownPermission, module, a)
			}
		}
	}
	return nil
}
