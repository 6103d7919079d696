// Package partial builds and stores the per-variant geometric aggregates that
// scenario aggregation combines without touching geometry again.
package partial

import (
	"encoding/json"

	"github.com/rotisserie/eris"

	"github.com/sells-group/urban-performance/internal/catalog"
	"github.com/sells-group/urban-performance/internal/model"
)

// Pair keys a value depending on two variants, e.g. (population, nbs).
type Pair struct {
	A string `json:"a"`
	B string `json:"b"`
}

// Level keys a value depending on one variant and a policy level.
type Level struct {
	Variant string  `json:"variant"`
	Level   float64 `json:"level"`
}

// Asset keys the share of one exposed asset variant under a
// (population, nbs) hazard footprint.
type Asset struct {
	Population string         `json:"population"`
	NBS        string         `json:"nbs"`
	Category   model.Category `json:"category"`
	Variant    string         `json:"variant"`
}

// Access keys population accessibility to one amenity variant.
type Access struct {
	Population string         `json:"population"`
	Category   model.Category `json:"category"`
	Variant    string         `json:"variant"`
}

// AmenityKey keys construction figures of one amenity variant.
type AmenityKey struct {
	Category model.Category `json:"category"`
	Variant  string         `json:"variant"`
}

// Base holds aggregates independent of every variant.
type Base struct {
	Population        float64                    `json:"pop_base"`
	FootprintArea     float64                    `json:"fp_base_area"`
	Density           float64                    `json:"density_base"`
	TransitBufferArea float64                    `json:"tr_base_buffer_area"`
	GreenArea         float64                    `json:"ga_base_area"`
	VegetationArea    float64                    `json:"vg_base_area"`
	RoadsLength       float64                    `json:"roads_length_base"`
	RoadsDensity      float64                    `json:"roads_density_base"`
	AmenityBufferArea map[model.Category]float64 `json:"amenity_buffer_area"`
	AmenityCount      map[model.Category]int     `json:"amenity_count"`
}

// Population holds aggregates of one population variant.
type Population struct {
	Pop2050          float64 `json:"pop_2050"`
	MediaShare       float64 `json:"pc_media_hu"`
	PopularShare     float64 `json:"pc_popular_hu"`
	ResidentialShare float64 `json:"pc_residencial_hu"`
}

// Hazard holds residual hazard exposure of a population variant once an
// nbs variant's footprint is removed.
type Hazard struct {
	ExposedArea    float64 `json:"exposed_area"`
	ExposedPop     float64 `json:"exposed_pop"`
	PcExposedPop   float64 `json:"pc_exposed_pop"`
	NBSCapital     float64 `json:"nbs_c_cost"`
	NBSMaintenance float64 `json:"nbs_m_cost"`
	Reconstruction float64 `json:"reconstruction_cost"`
}

// GreenArea holds the figures of one green-area variant for a population
// variant.
type GreenArea struct {
	Area        float64 `json:"uga_area"`
	PerCapita   float64 `json:"uga_per_capita"`
	PcAccess    float64 `json:"pc_pop_uga"`
	Capital     float64 `json:"ga_c_cost"`
	Maintenance float64 `json:"ga_m_cost"`
}

// Water holds water demand for a population variant at one RWH level.
type Water struct {
	Consumption float64 `json:"water_consumption"`
	Energy      float64 `json:"energy_consumption_water_supply"`
}

// Footprint holds aggregates of one footprint variant.
type Footprint struct {
	Area                float64 `json:"fp_area"`
	UrbanExpansion      float64 `json:"urban_expansion_area"`
	VegetationLoss      float64 `json:"vg_area_loss"`
	LightingConsumption float64 `json:"public_lighting_energy_consumption"`
	LightingCost        float64 `json:"cost_public_lighting"`
	Maintenance         float64 `json:"maintenance_fp"`
	Capital             float64 `json:"capital_fp"`
}

// Solar holds generation and cost for a footprint at one coverage level.
type Solar struct {
	Generation   float64 `json:"solar_energy_generation"`
	CapitalGross float64 `json:"capital_solar_1"`
	Capital      float64 `json:"capital_solar"`
}

// Amenity holds construction figures of one amenity variant.
type Amenity struct {
	Total       int     `json:"total"`
	New         int     `json:"new"`
	Capital     float64 `json:"c_cost"`
	Maintenance float64 `json:"m_cost"`
}

// Transit holds aggregates of one transit variant.
type Transit struct {
	BufferArea    float64 `json:"tr_buffer_area"`
	NewBufferArea float64 `json:"dif_tr_buffer_area"`
	Maintenance   float64 `json:"maintenance_tr"`
	Capital       float64 `json:"capital_tr"`
}

// Omission records a variant left out of the cache and why.
type Omission struct {
	Category model.Category `json:"category"`
	Variant  string         `json:"variant"`
	Reason   string         `json:"reason"`
}

// Cache is the complete partial-results state of one project run.
type Cache struct {
	ConstantsVersion string     `json:"constants_version"`
	Generation       string     `json:"generation"`
	Base             Base       `json:"base"`
	Omitted          []Omission `json:"omitted,omitempty"`

	// Variants is the catalog listing the cache was built from. The
	// scenario space of the run is derived from it.
	Variants catalog.Snapshot `json:"variants"`

	Population *Table[string, Population]  `json:"population"`
	Hazard     *Table[Pair, Hazard]        `json:"hazard"`
	Exposure   *Table[Asset, float64]      `json:"exposure"`
	Access     *Table[Access, float64]     `json:"access"`
	GreenAreas *Table[Pair, GreenArea]     `json:"green_areas"`
	Water      *Table[Level, Water]        `json:"water"`
	Footprint  *Table[string, Footprint]   `json:"footprint"`
	Jobs       *Table[Pair, float64]       `json:"jobs"`
	Solar      *Table[Level, Solar]        `json:"solar"`
	Amenities  *Table[AmenityKey, Amenity] `json:"amenities"`
	Transit    *Table[string, Transit]     `json:"transit"`
	Permeable  *Table[string, float64]     `json:"permeable"`
}

// NewCache creates an empty cache stamped with a constants version and run
// generation.
func NewCache(constantsVersion, generation string) *Cache {
	return &Cache{
		ConstantsVersion: constantsVersion,
		Generation:       generation,
		Base: Base{
			AmenityBufferArea: map[model.Category]float64{},
			AmenityCount:      map[model.Category]int{},
		},
		Population: NewTable[string, Population]("population"),
		Hazard:     NewTable[Pair, Hazard]("hazard"),
		Exposure:   NewTable[Asset, float64]("exposure"),
		Access:     NewTable[Access, float64]("access"),
		GreenAreas: NewTable[Pair, GreenArea]("green_areas"),
		Water:      NewTable[Level, Water]("water"),
		Footprint:  NewTable[string, Footprint]("footprint"),
		Jobs:       NewTable[Pair, float64]("jobs"),
		Solar:      NewTable[Level, Solar]("solar"),
		Amenities:  NewTable[AmenityKey, Amenity]("amenities"),
		Transit:    NewTable[string, Transit]("transit"),
		Permeable:  NewTable[string, float64]("permeable"),
	}
}

// Encode serialises the cache as the project's partial_results blob.
func (c *Cache) Encode() ([]byte, error) {
	data, err := json.Marshal(c)
	if err != nil {
		return nil, eris.Wrap(err, "partial: encode cache")
	}
	return data, nil
}

// Decode parses a partial_results blob.
func Decode(data []byte) (*Cache, error) {
	if len(data) == 0 {
		return nil, eris.New("partial: empty cache blob")
	}
	c := NewCache("", "")
	if err := json.Unmarshal(data, c); err != nil {
		return nil, eris.Wrap(err, "partial: decode cache")
	}
	if c.ConstantsVersion == "" {
		return nil, eris.New("partial: cache has no constants version")
	}
	return c, nil
}

// Entries returns the total number of cached values.
func (c *Cache) Entries() int {
	return c.Population.Len() + c.Hazard.Len() + c.Exposure.Len() + c.Access.Len() +
		c.GreenAreas.Len() + c.Water.Len() + c.Footprint.Len() + c.Jobs.Len() +
		c.Solar.Len() + c.Amenities.Len() + c.Transit.Len() + c.Permeable.Len()
}
