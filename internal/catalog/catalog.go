// Package catalog enumerates the layer variants available in a project folder.
package catalog

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/urban-performance/internal/model"
)

// Catalog resolves project folders below a media root.
type Catalog struct {
	root       string
	extensions []string
}

// New creates a catalog rooted at mediaRoot accepting files with the given
// extensions (case-insensitive, leading dot). Defaults to .geojson.
func New(mediaRoot string, extensions ...string) *Catalog {
	if len(extensions) == 0 {
		extensions = []string{".geojson"}
	}
	exts := make([]string, len(extensions))
	for i, e := range extensions {
		e = strings.ToLower(strings.TrimSpace(e))
		if !strings.HasPrefix(e, ".") {
			e = "." + e
		}
		exts[i] = e
	}
	return &Catalog{root: mediaRoot, extensions: exts}
}

// ProjectDir returns the folder holding a project's layers.
func (c *Catalog) ProjectDir(projectID string) string {
	return filepath.Join(c.root, "projects", projectID)
}

// VariantPath returns the path of one category variant file.
func (c *Catalog) VariantPath(projectID string, category model.Category, filename string) string {
	return filepath.Join(c.ProjectDir(projectID), category.Folder(), filename)
}

// BasePath returns the path of a fixed base or hazard layer.
func (c *Catalog) BasePath(projectID string, layer model.BaseLayer) string {
	return filepath.Join(c.ProjectDir(projectID), filepath.FromSlash(string(layer)))
}

// AssumptionsPath returns the path of the project's assumptions CSV.
func (c *Catalog) AssumptionsPath(projectID string) string {
	return filepath.Join(c.ProjectDir(projectID), filepath.FromSlash(model.AssumptionsFile))
}

// Variants lists the variant filenames of a category in lexical order.
// A missing category folder yields an empty list.
func (c *Catalog) Variants(projectID string, category model.Category) ([]string, error) {
	if !category.Valid() {
		return nil, eris.Errorf("catalog: unknown category %q", category)
	}

	dir := filepath.Join(c.ProjectDir(projectID), category.Folder())
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []string{}, nil
		}
		return nil, eris.Wrapf(err, "catalog: list %s", dir)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !c.accepts(e.Name()) {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names, nil
}

// Snapshot lists the variants of every category.
func (c *Catalog) Snapshot(projectID string) (Snapshot, error) {
	snap := make(Snapshot, len(model.Categories))
	for _, cat := range model.Categories {
		names, err := c.Variants(projectID, cat)
		if err != nil {
			return nil, err
		}
		snap[cat] = names
	}
	return snap, nil
}

// MissingBaseLayers returns the base and hazard files absent from a project.
func (c *Catalog) MissingBaseLayers(projectID string) []model.BaseLayer {
	var missing []model.BaseLayer
	for _, layer := range model.BaseLayers {
		if _, err := os.Stat(c.BasePath(projectID, layer)); err != nil {
			missing = append(missing, layer)
		}
	}
	return missing
}

func (c *Catalog) accepts(name string) bool {
	if strings.HasPrefix(name, ".") {
		return false
	}
	ext := strings.ToLower(filepath.Ext(name))
	for _, e := range c.extensions {
		if ext == e {
			return true
		}
	}
	return false
}

// Snapshot is the variant listing of every category at one point in time.
type Snapshot map[model.Category][]string
