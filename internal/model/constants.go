package model

import (
	_ "embed"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

//go:embed constants.yaml
var constantsYAML []byte

// Constants are the fixed model parameters. Both pipeline phases read the
// same value so buffers, levels and horizons cannot drift between them.
type Constants struct {
	Version    string  `yaml:"version"`
	Projection string  `yaml:"projection"`
	PercentCap float64 `yaml:"percent_cap"`

	Horizon struct {
		BaseYear   int `yaml:"base_year"`
		TargetYear int `yaml:"target_year"`
	} `yaml:"horizon"`

	Buffers struct {
		BaseTransit   float64 `yaml:"base_transit"`
		BaseAmenity   float64 `yaml:"base_amenity"`
		Accessibility float64 `yaml:"accessibility"`
		LinearAsset   float64 `yaml:"linear_asset"`
		NewTransit    float64 `yaml:"new_transit"`
	} `yaml:"buffers"`

	Levels struct {
		EnergyEfficiency []float64 `yaml:"energy_efficiency"`
		Solar            []float64 `yaml:"solar"`
		RWH              []float64 `yaml:"rwh"`
	} `yaml:"levels"`

	Emissions struct {
		TransportDivisor float64 `yaml:"transport_divisor"`
		TransitWeight    float64 `yaml:"transit_weight"`
		OtherWeight      float64 `yaml:"other_weight"`
	} `yaml:"emissions"`

	Units struct {
		SquareKM float64 `yaml:"square_km"`
		KM       float64 `yaml:"km"`
		Hectare  float64 `yaml:"hectare"`
		Millions float64 `yaml:"millions"`
	} `yaml:"units"`

	Water struct {
		PeriodsPerYear float64 `yaml:"periods_per_year"`
		LitersPerM3    float64 `yaml:"liters_per_m3"`
		DaysPerYear    float64 `yaml:"days_per_year"`
	} `yaml:"water"`
}

// HorizonYears is the cost amortization horizon.
func (c *Constants) HorizonYears() float64 {
	return float64(c.Horizon.TargetYear - c.Horizon.BaseYear)
}

// DefaultConstants parses the embedded constants file.
func DefaultConstants() (*Constants, error) {
	return ParseConstants(constantsYAML)
}

// MustDefaultConstants is DefaultConstants for package init and tests.
func MustDefaultConstants() *Constants {
	c, err := DefaultConstants()
	if err != nil {
		panic(err)
	}
	return c
}

// ParseConstants decodes and validates a constants document.
func ParseConstants(data []byte) (*Constants, error) {
	var c Constants
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, eris.Wrap(err, "model: parse constants")
	}
	if err := c.validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Constants) validate() error {
	switch {
	case c.Version == "":
		return eris.New("model: constants: version is required")
	case c.Projection == "":
		return eris.New("model: constants: projection is required")
	case c.Horizon.TargetYear <= c.Horizon.BaseYear:
		return eris.Errorf("model: constants: horizon %d..%d is empty", c.Horizon.BaseYear, c.Horizon.TargetYear)
	case c.PercentCap <= 0:
		return eris.New("model: constants: percent_cap must be positive")
	case c.Emissions.TransportDivisor == 0:
		return eris.New("model: constants: emissions.transport_divisor must be non-zero")
	case c.Units.SquareKM <= 0 || c.Units.KM <= 0 || c.Units.Hectare <= 0 || c.Units.Millions <= 0:
		return eris.New("model: constants: unit scales must be positive")
	case c.Water.DaysPerYear <= 0:
		return eris.New("model: constants: water.days_per_year must be positive")
	}
	for name, levels := range map[string][]float64{
		"energy_efficiency": c.Levels.EnergyEfficiency,
		"solar":             c.Levels.Solar,
		"rwh":               c.Levels.RWH,
	} {
		for _, l := range levels {
			if l < 0 || l > 100 {
				return eris.Errorf("model: constants: %s level %v outside [0,100]", name, l)
			}
		}
	}
	return nil
}
