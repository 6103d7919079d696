package model

// IndicatorColumns are the result-table indicator columns in row order.
var IndicatorColumns = []string{
	"fp_area",
	"fp_base_area",
	"pop_2050",
	"pop_base",
	"exposed_area",
	"pc_exposed_tr",
	"pc_exposed_hp",
	"pc_exposed_sc",
	"pc_exposed_infra",
	"inter_pop",
	"pc_exposed_pop",
	"pc_pop_hp",
	"pc_pop_sc",
	"pc_pop_sp",
	"pc_pop_cl",
	"pc_pop_dc",
	"pc_pop_uga",
	"pop_density",
	"urban_expansion_area",
	"jobs_density",
	"vg_area_loss",
	"permeable_area",
	"change_electricity_consumption",
	"electricity_consumption",
	"electricity_consumption_buildings",
	"electricity_consumption_ee",
	"electricity_consumption_ee_per_capita",
	"emissions_tot_tr",
	"transport_emissions_per_capita",
	"solar_energy_generation",
	"public_lighting_energy_consumption",
	"maintenance_fp",
	"maintenance_tr",
	"maintenance_cost",
	"school_c_cost",
	"new_sc",
	"hospital_c_cost",
	"new_hp",
	"sp_c_cost",
	"new_sp",
	"clinic_c_cost",
	"new_cl",
	"daycare_c_cost",
	"new_dc",
	"ga_c_cost",
	"capital_cost",
	"capital_solar_1",
	"capital_solar",
	"uga_area",
	"uga_per_capita",
	"increased_kvr",
	"expected_vmt",
	"increase_bicycle",
	"increase_private",
	"increase_public_transport",
	"pc_media_hu",
	"pc_popular_hu",
	"pc_residencial_hu",
	"water_consumption",
	"energy_consumption_water_supply",
}

// Indicators holds the computed values of one scenario.
type Indicators struct {
	FPArea                      float64 `json:"fp_area"`                               // footprint area (km²)
	FPBaseArea                  float64 `json:"fp_base_area"`                          // base footprint area (km²)
	Pop2050                     float64 `json:"pop_2050"`                              // projected population
	PopBase                     float64 `json:"pop_base"`                              // base population
	ExposedArea                 float64 `json:"exposed_area"`                          // area exposed to the hazard (ha)
	PcExposedTransit            float64 `json:"pc_exposed_tr"`                         // % of transit buffer exposed
	PcExposedHospitals          float64 `json:"pc_exposed_hp"`                         // % of hospitals exposed
	PcExposedSchools            float64 `json:"pc_exposed_sc"`                         // % of schools exposed
	PcExposedInfra              float64 `json:"pc_exposed_infra"`                      // % of infrastructure buffer exposed
	ExposedPop                  float64 `json:"inter_pop"`                             // population exposed to the hazard
	PcExposedPop                float64 `json:"pc_exposed_pop"`                        // % of population exposed
	PcPopHospitals              float64 `json:"pc_pop_hp"`                             // % of population near a hospital
	PcPopSchools                float64 `json:"pc_pop_sc"`                             // % of population near a school
	PcPopSports                 float64 `json:"pc_pop_sp"`                             // % of population near a sport center
	PcPopClinics                float64 `json:"pc_pop_cl"`                             // % of population near a clinic
	PcPopDaycare                float64 `json:"pc_pop_dc"`                             // % of population near a daycare
	PcPopGreenAreas             float64 `json:"pc_pop_uga"`                            // % of population near a green area
	PopDensity                  float64 `json:"pop_density"`                           // inhabitants per km²
	UrbanExpansionArea          float64 `json:"urban_expansion_area"`                  // km² outside the base footprint
	JobsDensity                 float64 `json:"jobs_density"`                          // jobs per km²
	VegetationLoss              float64 `json:"vg_area_loss"`                          // vegetal cover lost (km²)
	PermeableArea               float64 `json:"permeable_area"`                        // permeable area (km²)
	ChangeElectricity           float64 `json:"change_electricity_consumption"`        // % change in electricity consumption
	Electricity                 float64 `json:"electricity_consumption"`               // electricity consumption
	ElectricityBuildings        float64 `json:"electricity_consumption_buildings"`     // buildings share of electricity
	ElectricityEE               float64 `json:"electricity_consumption_ee"`            // electricity after efficiency savings
	ElectricityEEPerCapita      float64 `json:"electricity_consumption_ee_per_capita"` // per-capita electricity after savings
	EmissionsTransport          float64 `json:"emissions_tot_tr"`                      // transport GHG emissions
	EmissionsTransportPerCapita float64 `json:"transport_emissions_per_capita"`        // per-capita transport emissions
	SolarGeneration             float64 `json:"solar_energy_generation"`               // solar generation (millions)
	PublicLighting              float64 `json:"public_lighting_energy_consumption"`    // public lighting consumption (millions)
	MaintenanceFootprint        float64 `json:"maintenance_fp"`                        // footprint maintenance (millions)
	MaintenanceTransit          float64 `json:"maintenance_tr"`                        // transit maintenance (millions)
	MaintenanceCost             float64 `json:"maintenance_cost"`                      // total maintenance (millions)
	SchoolCapital               float64 `json:"school_c_cost"`                         // school capital cost (millions)
	NewSchools                  float64 `json:"new_sc"`                                // new schools
	HospitalCapital             float64 `json:"hospital_c_cost"`                       // hospital capital cost (millions)
	NewHospitals                float64 `json:"new_hp"`                                // new hospitals
	SportCapital                float64 `json:"sp_c_cost"`                             // sport center capital cost (millions)
	NewSports                   float64 `json:"new_sp"`                                // new sport centers
	ClinicCapital               float64 `json:"clinic_c_cost"`                         // clinic capital cost (millions)
	NewClinics                  float64 `json:"new_cl"`                                // new clinics
	DaycareCapital              float64 `json:"daycare_c_cost"`                        // daycare capital cost (millions)
	NewDaycare                  float64 `json:"new_dc"`                                // new daycare centers
	GreenAreaCapital            float64 `json:"ga_c_cost"`                             // green area capital cost (millions)
	CapitalCost                 float64 `json:"capital_cost"`                          // total capital cost (millions)
	SolarCapitalGross           float64 `json:"capital_solar_1"`                       // solar capital before incentive
	SolarCapital                float64 `json:"capital_solar"`                         // solar capital after incentive
	GreenArea                   float64 `json:"uga_area"`                              // green area (km²)
	GreenAreaPerCapita          float64 `json:"uga_per_capita"`                        // green area per inhabitant (m²)
	IncreasedKVR                float64 `json:"increased_kvr"`                         // expected kilometres per vehicle
	ExpectedVMT                 float64 `json:"expected_vmt"`                          // expected vehicle kilometres travelled
	ModalBicycle                float64 `json:"increase_bicycle"`                      // bicycle modal share
	ModalPrivate                float64 `json:"increase_private"`                      // private vehicle modal share
	ModalPublic                 float64 `json:"increase_public_transport"`             // public transport modal share
	PcMediaHousing              float64 `json:"pc_media_hu"`                           // % medium housing units
	PcPopularHousing            float64 `json:"pc_popular_hu"`                         // % popular housing units
	PcResidentialHousing        float64 `json:"pc_residencial_hu"`                     // % residential housing units
	WaterConsumption            float64 `json:"water_consumption"`                     // water consumption per capita
	WaterSupplyEnergy           float64 `json:"energy_consumption_water_supply"`       // energy for non-rainwater supply
}

// Values returns the indicator values in IndicatorColumns order.
func (in *Indicators) Values() []float64 {
	return []float64{
		in.FPArea,
		in.FPBaseArea,
		in.Pop2050,
		in.PopBase,
		in.ExposedArea,
		in.PcExposedTransit,
		in.PcExposedHospitals,
		in.PcExposedSchools,
		in.PcExposedInfra,
		in.ExposedPop,
		in.PcExposedPop,
		in.PcPopHospitals,
		in.PcPopSchools,
		in.PcPopSports,
		in.PcPopClinics,
		in.PcPopDaycare,
		in.PcPopGreenAreas,
		in.PopDensity,
		in.UrbanExpansionArea,
		in.JobsDensity,
		in.VegetationLoss,
		in.PermeableArea,
		in.ChangeElectricity,
		in.Electricity,
		in.ElectricityBuildings,
		in.ElectricityEE,
		in.ElectricityEEPerCapita,
		in.EmissionsTransport,
		in.EmissionsTransportPerCapita,
		in.SolarGeneration,
		in.PublicLighting,
		in.MaintenanceFootprint,
		in.MaintenanceTransit,
		in.MaintenanceCost,
		in.SchoolCapital,
		in.NewSchools,
		in.HospitalCapital,
		in.NewHospitals,
		in.SportCapital,
		in.NewSports,
		in.ClinicCapital,
		in.NewClinics,
		in.DaycareCapital,
		in.NewDaycare,
		in.GreenAreaCapital,
		in.CapitalCost,
		in.SolarCapitalGross,
		in.SolarCapital,
		in.GreenArea,
		in.GreenAreaPerCapita,
		in.IncreasedKVR,
		in.ExpectedVMT,
		in.ModalBicycle,
		in.ModalPrivate,
		in.ModalPublic,
		in.PcMediaHousing,
		in.PcPopularHousing,
		in.PcResidentialHousing,
		in.WaterConsumption,
		in.WaterSupplyEnergy,
	}
}

// Pointers returns scan targets in IndicatorColumns order.
func (in *Indicators) Pointers() []*float64 {
	return []*float64{
		&in.FPArea,
		&in.FPBaseArea,
		&in.Pop2050,
		&in.PopBase,
		&in.ExposedArea,
		&in.PcExposedTransit,
		&in.PcExposedHospitals,
		&in.PcExposedSchools,
		&in.PcExposedInfra,
		&in.ExposedPop,
		&in.PcExposedPop,
		&in.PcPopHospitals,
		&in.PcPopSchools,
		&in.PcPopSports,
		&in.PcPopClinics,
		&in.PcPopDaycare,
		&in.PcPopGreenAreas,
		&in.PopDensity,
		&in.UrbanExpansionArea,
		&in.JobsDensity,
		&in.VegetationLoss,
		&in.PermeableArea,
		&in.ChangeElectricity,
		&in.Electricity,
		&in.ElectricityBuildings,
		&in.ElectricityEE,
		&in.ElectricityEEPerCapita,
		&in.EmissionsTransport,
		&in.EmissionsTransportPerCapita,
		&in.SolarGeneration,
		&in.PublicLighting,
		&in.MaintenanceFootprint,
		&in.MaintenanceTransit,
		&in.MaintenanceCost,
		&in.SchoolCapital,
		&in.NewSchools,
		&in.HospitalCapital,
		&in.NewHospitals,
		&in.SportCapital,
		&in.NewSports,
		&in.ClinicCapital,
		&in.NewClinics,
		&in.DaycareCapital,
		&in.NewDaycare,
		&in.GreenAreaCapital,
		&in.CapitalCost,
		&in.SolarCapitalGross,
		&in.SolarCapital,
		&in.GreenArea,
		&in.GreenAreaPerCapita,
		&in.IncreasedKVR,
		&in.ExpectedVMT,
		&in.ModalBicycle,
		&in.ModalPrivate,
		&in.ModalPublic,
		&in.PcMediaHousing,
		&in.PcPopularHousing,
		&in.PcResidentialHousing,
		&in.WaterConsumption,
		&in.WaterSupplyEnergy,
	}
}

// PercentColumns are the indicators reported as a share of 100.
var PercentColumns = []string{
	"pc_exposed_tr",
	"pc_exposed_hp",
	"pc_exposed_sc",
	"pc_exposed_infra",
	"pc_exposed_pop",
	"pc_pop_hp",
	"pc_pop_sc",
	"pc_pop_sp",
	"pc_pop_cl",
	"pc_pop_dc",
	"pc_pop_uga",
	"pc_media_hu",
	"pc_popular_hu",
	"pc_residencial_hu",
}

// Percents returns pointers to every percentage indicator.
func (in *Indicators) Percents() []*float64 {
	return []*float64{
		&in.PcExposedTransit,
		&in.PcExposedHospitals,
		&in.PcExposedSchools,
		&in.PcExposedInfra,
		&in.PcExposedPop,
		&in.PcPopHospitals,
		&in.PcPopSchools,
		&in.PcPopSports,
		&in.PcPopClinics,
		&in.PcPopDaycare,
		&in.PcPopGreenAreas,
		&in.PcMediaHousing,
		&in.PcPopularHousing,
		&in.PcResidentialHousing,
	}
}
