package assumptions

// Assumption codes read by the pipeline.
const (
	ExpansionCost             = "expansion_cost_a"
	NBSCapitalCost            = "nbs_c_cost"
	TransitCost               = "transit_cost_a"
	ExpansionMaintenanceCost  = "mantainance_expansion_cost_a"
	NBSMaintenanceCost        = "nbs_m_cost"
	TransitMaintenanceCost    = "mantainance_transit_cost_a"
	ReconstructionCost        = "recontruction_cost"
	ReturnPeriod              = "return_period"
	ElasticityEnergy          = "elasticity_energy"
	ElasticityEmissions       = "elasticity_emissions"
	EnergyConsumptionBase     = "energy_consumption_base"
	EmissionsFactor           = "emissions_factor"
	EmissionsTransportPercent = "emissions_transport_percentage"
	SolarPanelFactor          = "solar_panel_factor"
	SolarEnergy               = "solar_energy"
	MWCost                    = "mw_cost"
	MWCapacity                = "mw_capacity"
	EnergyBuildingsPercent    = "energy_buildings_percentage"
	SchoolCapitalCost         = "sc_c_cost"
	HospitalCapitalCost       = "hp_c_cost"
	ParkCapitalCost           = "pk_c_cost"
	SchoolMaintenanceCost     = "sc_m_cost"
	HospitalMaintenanceCost   = "hp_m_cost"
	ParkMaintenanceCost       = "pk_m_cost"
	PVIncentive               = "pv_incentive"
	DaycareCapitalCost        = "dc_c_cost"
	DaycareMaintenanceCost    = "dc_m_cost"
	KVR                       = "kvr"
	VMT                       = "vmt"
	ModalElasticity           = "md_elasticity"
	ModalPrivate              = "md_tr"
	ModalPublic               = "md_w"
	ModalBicycle              = "md_b"
	GreenAreaCapitalCost      = "ga_c_cost"
	GreenAreaMaintenanceCost  = "ga_m_cost"
	MediaHousingWater         = "media_hu_water_cons"
	PopularHousingWater       = "popular_hu_water_cons"
	ResidentialHousingWater   = "residencial_hu_water_cons"
	WaterEnergy               = "water_energy"
	ConsumptionPerLamp        = "consumption_per_lamp"
	CostPerKW                 = "cost_per_kW"
	DistanceBetweenLamps      = "distance_between_lamps"
)

// Required is the vocabulary every assumptions file must define.
var Required = []string{
	ExpansionCost,
	NBSCapitalCost,
	TransitCost,
	ExpansionMaintenanceCost,
	NBSMaintenanceCost,
	TransitMaintenanceCost,
	ReconstructionCost,
	ReturnPeriod,
	ElasticityEnergy,
	ElasticityEmissions,
	EnergyConsumptionBase,
	EmissionsFactor,
	EmissionsTransportPercent,
	SolarPanelFactor,
	SolarEnergy,
	MWCost,
	MWCapacity,
	EnergyBuildingsPercent,
	SchoolCapitalCost,
	HospitalCapitalCost,
	ParkCapitalCost,
	SchoolMaintenanceCost,
	HospitalMaintenanceCost,
	ParkMaintenanceCost,
	PVIncentive,
	DaycareCapitalCost,
	DaycareMaintenanceCost,
	KVR,
	VMT,
	ModalElasticity,
	ModalPrivate,
	ModalPublic,
	ModalBicycle,
	GreenAreaCapitalCost,
	GreenAreaMaintenanceCost,
	MediaHousingWater,
	PopularHousingWater,
	ResidentialHousingWater,
	WaterEnergy,
	ConsumptionPerLamp,
	CostPerKW,
	DistanceBetweenLamps,
}

// Divisors are the codes used as denominators; zero is rejected up front.
var Divisors = []string{
	ReturnPeriod,
	MWCapacity,
	DistanceBetweenLamps,
}
