package model

// Category is one family of selectable layer variants in a project folder.
type Category string

const (
	CategoryPopulation     Category = "population"
	CategoryFootprint      Category = "footprint"
	CategoryTransit        Category = "transit"
	CategoryNBS            Category = "nbs"
	CategoryHospitals      Category = "hospitals"
	CategorySchools        Category = "schools"
	CategorySports         Category = "sports"
	CategoryClinics        Category = "clinics"
	CategoryDaycare        Category = "daycare"
	CategoryGreenAreas     Category = "green_areas"
	CategoryInfrastructure Category = "infrastructure"
	CategoryJobs           Category = "jobs"
	CategoryPermeable      Category = "permeable_areas"
)

// Categories lists every variant category in folder order.
var Categories = []Category{
	CategoryPopulation,
	CategoryFootprint,
	CategoryTransit,
	CategoryNBS,
	CategoryHospitals,
	CategorySchools,
	CategorySports,
	CategoryClinics,
	CategoryDaycare,
	CategoryGreenAreas,
	CategoryInfrastructure,
	CategoryJobs,
	CategoryPermeable,
}

// AmenityCategories are the point-amenity categories with accessibility and
// construction cost partials. Green areas are handled separately.
var AmenityCategories = []Category{
	CategoryHospitals,
	CategorySchools,
	CategorySports,
	CategoryClinics,
	CategoryDaycare,
}

var categoryFolders = map[Category]string{
	CategoryPopulation:     "population",
	CategoryFootprint:      "footprints",
	CategoryTransit:        "transit",
	CategoryNBS:            "nbs",
	CategoryHospitals:      "hospitals",
	CategorySchools:        "schools",
	CategorySports:         "sports",
	CategoryClinics:        "clinics",
	CategoryDaycare:        "daycare",
	CategoryGreenAreas:     "green areas",
	CategoryInfrastructure: "infraestructure",
	CategoryJobs:           "employment",
	CategoryPermeable:      "permeable areas",
}

// Folder returns the project subfolder holding this category's variants.
func (c Category) Folder() string {
	return categoryFolders[c]
}

// Valid reports whether c is a known category.
func (c Category) Valid() bool {
	_, ok := categoryFolders[c]
	return ok
}

// BaseLayer names one of the fixed base or hazard files of a project.
type BaseLayer string

const (
	BasePopulation BaseLayer = "base/PB_poblacion_base.geojson"
	BaseFootprint  BaseLayer = "base/BF_area_urbana_base.geojson"
	BaseTransit    BaseLayer = "base/BT_lineas_transporte_base.geojson"
	BaseGreenAreas BaseLayer = "base/GA_areas_verdes_base.geojson"
	BaseSports     BaseLayer = "base/SP_centros_deportivos_base.geojson"
	BaseHospitals  BaseLayer = "base/HO_hospitales_base.geojson"
	BaseSchools    BaseLayer = "base/SC_escuelas_base.geojson"
	BaseClinics    BaseLayer = "base/CL_centro_salud_base.geojson"
	BaseDaycare    BaseLayer = "base/DC_guarderia_base.geojson"
	BaseVegetation BaseLayer = "base/VB_cobertura_vegetal.geojson"
	BaseRoads      BaseLayer = "base/RB_roads_base.geojson"
	HazardFlooding BaseLayer = "hazard/HZ_inundaciones_disuelta.geojson"
)

// AssumptionsFile is the project-relative path of the assumptions CSV.
const AssumptionsFile = "assumptions/assumptions_SP.csv"

// BaseLayers lists every base and hazard file a project must provide.
var BaseLayers = []BaseLayer{
	BasePopulation,
	BaseFootprint,
	BaseTransit,
	BaseGreenAreas,
	BaseSports,
	BaseHospitals,
	BaseSchools,
	BaseClinics,
	BaseDaycare,
	BaseVegetation,
	BaseRoads,
	HazardFlooding,
}

// AmenityBaseLayer returns the base file counting existing amenities of c.
func AmenityBaseLayer(c Category) (BaseLayer, bool) {
	switch c {
	case CategoryHospitals:
		return BaseHospitals, true
	case CategorySchools:
		return BaseSchools, true
	case CategorySports:
		return BaseSports, true
	case CategoryClinics:
		return BaseClinics, true
	case CategoryDaycare:
		return BaseDaycare, true
	default:
		return "", false
	}
}
