// Package scenario enumerates the scenario space and aggregates one indicator
// row per scenario from a project's partial results.
package scenario

import (
	"github.com/rotisserie/eris"

	"github.com/sells-group/urban-performance/internal/catalog"
	"github.com/sells-group/urban-performance/internal/model"
)

// Axis is one dimension of the scenario space. Exactly one of Variants and
// Levels is used.
type Axis struct {
	Name     string
	Variants []string
	Levels   []float64
	numeric  bool
}

// Len returns the number of values on the axis.
func (a Axis) Len() int {
	if a.numeric {
		return len(a.Levels)
	}
	return len(a.Variants)
}

func variantAxis(name string, values []string) Axis {
	return Axis{Name: name, Variants: values}
}

func levelAxis(name string, values []float64) Axis {
	return Axis{Name: name, Levels: values, numeric: true}
}

// Space is the Cartesian product of the 16 scenario axes.
type Space struct {
	axes []Axis
	size int
}

// NewSpace builds the scenario space from a catalog snapshot and the level
// sets in constants. Axes follow model.ScenarioColumns order.
func NewSpace(snap catalog.Snapshot, constants *model.Constants) *Space {
	axes := []Axis{
		variantAxis("population_", snap[model.CategoryPopulation]),
		variantAxis("footprint", snap[model.CategoryFootprint]),
		variantAxis("transit", snap[model.CategoryTransit]),
		variantAxis("nbs", snap[model.CategoryNBS]),
		levelAxis("energy_efficiency", constants.Levels.EnergyEfficiency),
		levelAxis("solar_energy", constants.Levels.Solar),
		levelAxis("rwh", constants.Levels.RWH),
		variantAxis("hospitals", snap[model.CategoryHospitals]),
		variantAxis("schools", snap[model.CategorySchools]),
		variantAxis("sport_centers", snap[model.CategorySports]),
		variantAxis("clinics", snap[model.CategoryClinics]),
		variantAxis("daycare", snap[model.CategoryDaycare]),
		variantAxis("green_areas", snap[model.CategoryGreenAreas]),
		variantAxis("infrastructure", snap[model.CategoryInfrastructure]),
		variantAxis("jobs", snap[model.CategoryJobs]),
		variantAxis("permeable_areas", snap[model.CategoryPermeable]),
	}
	size := 1
	for _, a := range axes {
		size *= a.Len()
	}
	return &Space{axes: axes, size: size}
}

// Axes returns the axes in scenario column order.
func (s *Space) Axes() []Axis { return s.axes }

// Size returns the number of scenarios. Any empty axis makes it zero.
func (s *Space) Size() int { return s.size }

// At returns scenario i in Cartesian-product order: the last axis varies
// fastest.
func (s *Space) At(i int) (model.Scenario, error) {
	if i < 0 || i >= s.size {
		return model.Scenario{}, eris.Errorf("scenario: index %d out of range [0,%d)", i, s.size)
	}

	var sc model.Scenario
	targets := sc.Pointers()
	for a := len(s.axes) - 1; a >= 0; a-- {
		axis := s.axes[a]
		n := axis.Len()
		digit := i % n
		i /= n
		switch p := targets[a].(type) {
		case *string:
			*p = axis.Variants[digit]
		case *float64:
			*p = axis.Levels[digit]
		}
	}
	return sc, nil
}

// Chunk is a half-open index range [Start, End) of the scenario space.
type Chunk struct {
	Index int
	Start int
	End   int
}

// Len returns the number of scenarios in the chunk.
func (c Chunk) Len() int { return c.End - c.Start }

// Chunks splits the space into consecutive ranges of at most size scenarios.
func (s *Space) Chunks(size int) []Chunk {
	if size <= 0 {
		size = 1
	}
	n := (s.size + size - 1) / size
	chunks := make([]Chunk, n)
	for i := range chunks {
		start := i * size
		end := start + size
		if end > s.size {
			end = s.size
		}
		chunks[i] = Chunk{Index: i, Start: start, End: end}
	}
	return chunks
}
