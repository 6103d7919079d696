package catalog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/urban-performance/internal/model"
)

func touch(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("{}"), 0o644))
}

func TestVariants_SortedAndFiltered(t *testing.T) {
	root := t.TempDir()
	c := New(root)

	dir := filepath.Join(root, "projects", "p1", "green areas")
	touch(t, filepath.Join(dir, "b.geojson"))
	touch(t, filepath.Join(dir, "a.GEOJSON"))
	touch(t, filepath.Join(dir, "notes.txt"))
	touch(t, filepath.Join(dir, ".hidden.geojson"))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "sub.geojson"), 0o755))

	names, err := c.Variants("p1", model.CategoryGreenAreas)
	require.NoError(t, err)
	assert.Equal(t, []string{"a.GEOJSON", "b.geojson"}, names)
}

func TestVariants_MissingFolderIsEmpty(t *testing.T) {
	c := New(t.TempDir())

	names, err := c.Variants("p1", model.CategorySchools)
	require.NoError(t, err)
	assert.NotNil(t, names)
	assert.Empty(t, names)
}

func TestVariants_UnknownCategory(t *testing.T) {
	c := New(t.TempDir())
	_, err := c.Variants("p1", model.Category("roads"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown category")
}

func TestVariants_Extensions(t *testing.T) {
	root := t.TempDir()
	c := New(root, "geojson", ".SHP")

	dir := filepath.Join(root, "projects", "p1", "transit")
	touch(t, filepath.Join(dir, "lines.shp"))
	touch(t, filepath.Join(dir, "lines.dbf"))
	touch(t, filepath.Join(dir, "metro.geojson"))

	names, err := c.Variants("p1", model.CategoryTransit)
	require.NoError(t, err)
	assert.Equal(t, []string{"lines.shp", "metro.geojson"}, names)
}

func TestPaths(t *testing.T) {
	c := New("/media")

	assert.Equal(t, filepath.FromSlash("/media/projects/p1"), c.ProjectDir("p1"))
	assert.Equal(t, filepath.FromSlash("/media/projects/p1/permeable areas/x.geojson"),
		c.VariantPath("p1", model.CategoryPermeable, "x.geojson"))
	assert.Equal(t, filepath.FromSlash("/media/projects/p1/hazard/HZ_inundaciones_disuelta.geojson"),
		c.BasePath("p1", model.HazardFlooding))
	assert.Equal(t, filepath.FromSlash("/media/projects/p1/assumptions/assumptions_SP.csv"),
		c.AssumptionsPath("p1"))
}

func TestSnapshotAndMissingBaseLayers(t *testing.T) {
	root := t.TempDir()
	c := New(root)

	touch(t, c.VariantPath("p1", model.CategoryPopulation, "pop_v1.geojson"))
	touch(t, c.BasePath("p1", model.BasePopulation))

	snap, err := c.Snapshot("p1")
	require.NoError(t, err)
	assert.Len(t, snap, len(model.Categories))
	assert.Equal(t, []string{"pop_v1.geojson"}, snap[model.CategoryPopulation])
	assert.Empty(t, snap[model.CategoryJobs])

	missing := c.MissingBaseLayers("p1")
	assert.Len(t, missing, len(model.BaseLayers)-1)
	assert.NotContains(t, missing, model.BasePopulation)
}
