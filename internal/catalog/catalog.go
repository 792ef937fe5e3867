package catalog

import "fmt"

// LevelType distinguishes pressure-level fields from surface fields. The
// values match the level-type path segments used by the RDA archive.
type LevelType string

const (
	PressureLevels LevelType = "pl"
	SingleLevel    LevelType = "sfc"
)

// GridKind is the horizontal grid naming convention of a field. It only
// affects filename construction, never retrieval.
type GridKind string

const (
	GridScalar GridKind = "sc"
	GridVector GridKind = "uv"
)

// Variable is one entry of the static variable tables: a short mnemonic,
// the ECMWF numeric parameter code and the level class it lives on.
type Variable struct {
	Mnemonic    string
	Code        int
	LevelType   LevelType
	Description string
}

// PressureLevelVars are the pressure-level fields fetched from the RDA
// archive, one daily file per variable.
var PressureLevelVars = []Variable{
	{"Z", 129, PressureLevels, "Geopotential"},
	{"Q", 133, PressureLevels, "Specific humidity"},
	{"T", 130, PressureLevels, "Temperature"},
	{"U", 131, PressureLevels, "U component of wind"},
	{"V", 132, PressureLevels, "V component of wind"},
}

// SingleLevelVars are the surface fields fetched from the RDA archive,
// one monthly file per variable.
var SingleLevelVars = []Variable{
	{"SP", 134, SingleLevel, "Surface pressure"},
	{"MSL", 151, SingleLevel, "Mean sea level pressure"},
	{"2T", 167, SingleLevel, "2m temperature"},
	{"2D", 168, SingleLevel, "2m dewpoint temperature"},
	{"10U", 165, SingleLevel, "10m U wind component"},
	{"10V", 166, SingleLevel, "10m V wind component"},
	{"SSTK", 34, SingleLevel, "Sea surface temperature"},
	{"SKT", 235, SingleLevel, "Skin temperature"},
	{"LSM", 172, SingleLevel, "Land-sea mask"},
	{"CI", 31, SingleLevel, "Sea ice cover"},
	{"SD", 141, SingleLevel, "Snow depth"},
	{"RSN", 33, SingleLevel, "Snow density"},
	{"SWVL1", 39, SingleLevel, "Volumetric soil water layer 1"},
	{"SWVL2", 40, SingleLevel, "Volumetric soil water layer 2"},
	{"SWVL3", 41, SingleLevel, "Volumetric soil water layer 3"},
	{"SWVL4", 42, SingleLevel, "Volumetric soil water layer 4"},
	{"STL1", 139, SingleLevel, "Soil temperature level 1"},
	{"STL2", 170, SingleLevel, "Soil temperature level 2"},
	{"STL3", 183, SingleLevel, "Soil temperature level 3"},
	{"STL4", 236, SingleLevel, "Soil temperature level 4"},
}

// ShortName is the archive-internal (name, grid) pair a parameter code maps
// to in RDA filenames.
type ShortName struct {
	Name string
	Grid GridKind
}

// shortNames maps ECMWF parameter codes to their RDA filename identity.
// This table is maintained by hand; Verify checks it covers every variable
// table entry so a gap is caught at startup instead of producing a dead URL.
var shortNames = map[int]ShortName{
	129: {"z", GridScalar},
	130: {"t", GridScalar},
	131: {"u", GridVector},
	132: {"v", GridVector},
	133: {"q", GridScalar},
	134: {"sp", GridScalar},
	151: {"msl", GridScalar},
	167: {"2t", GridScalar},
	168: {"2d", GridScalar},
	165: {"10u", GridVector},
	166: {"10v", GridVector},
	34:  {"sst", GridScalar},
	235: {"skt", GridScalar},
	172: {"lsm", GridScalar},
	31:  {"ci", GridScalar},
	141: {"sd", GridScalar},
	33:  {"rsn", GridScalar},
	39:  {"swvl1", GridScalar},
	40:  {"swvl2", GridScalar},
	41:  {"swvl3", GridScalar},
	42:  {"swvl4", GridScalar},
	139: {"stl1", GridScalar},
	170: {"stl2", GridScalar},
	183: {"stl3", GridScalar},
	236: {"stl4", GridScalar},
}

// ShortNameFor resolves the RDA filename identity for a parameter code.
// Unknown codes fail loudly rather than producing a placeholder URL.
func ShortNameFor(code int) (ShortName, error) {
	sn, ok := shortNames[code]
	if !ok {
		return ShortName{}, fmt.Errorf("no short name mapping for parameter code %d", code)
	}

	return sn, nil
}

// Verify checks that every entry of both variable tables has a short-name
// mapping. Called once at startup; a failure is a configuration error.
func Verify() error {
	for _, table := range [][]Variable{PressureLevelVars, SingleLevelVars} {
		for _, v := range table {
			if _, err := ShortNameFor(v.Code); err != nil {
				return fmt.Errorf("variable table entry %s: %w", v.Mnemonic, err)
			}
		}
	}

	return nil
}

// CDSPressureLevels is the canonical 32-level set requested from the CDS
// archive for pressure-level retrievals.
var CDSPressureLevels = []string{
	"10", "20", "30", "50", "70",
	"100", "125", "150", "175", "200",
	"225", "250", "300", "350", "400",
	"450", "500", "550", "600", "650",
	"700", "750", "775", "800", "825",
	"850", "875", "900", "925", "950",
	"975", "1000",
}

// CDSPressureVariables is the fixed variable list of a CDS pressure-level
// bulk request.
var CDSPressureVariables = []string{
	"divergence",
	"fraction_of_cloud_cover",
	"geopotential",
	"ozone_mass_mixing_ratio",
	"potential_vorticity",
	"relative_humidity",
	"specific_cloud_ice_water_content",
	"specific_cloud_liquid_water_content",
	"specific_humidity",
	"specific_rain_water_content",
	"specific_snow_water_content",
	"temperature",
	"u_component_of_wind",
	"v_component_of_wind",
	"vertical_velocity",
	"vorticity",
}

// CDSSingleVariables is the fixed variable list of a CDS single-level bulk
// request.
var CDSSingleVariables = []string{
	"10m_u_component_of_wind",
	"10m_v_component_of_wind",
	"2m_dewpoint_temperature",
	"2m_temperature",
	"land_sea_mask",
	"mean_sea_level_pressure",
	"sea_ice_cover",
	"sea_surface_temperature",
	"skin_temperature",
	"snow_density",
	"snow_depth",
	"soil_temperature_level_1",
	"soil_temperature_level_2",
	"soil_temperature_level_3",
	"soil_temperature_level_4",
	"surface_pressure",
	"volumetric_soil_water_layer_1",
	"volumetric_soil_water_layer_2",
	"volumetric_soil_water_layer_3",
	"volumetric_soil_water_layer_4",
}

// Filter returns the subset of table whose mnemonics appear in wanted,
// preserving table order. An unknown mnemonic is a configuration error, not
// a silent drop.
func Filter(table []Variable, wanted []string) ([]Variable, error) {
	if len(wanted) == 0 {
		return table, nil
	}

	known := make(map[string]bool, len(PressureLevelVars)+len(SingleLevelVars))
	for _, v := range PressureLevelVars {
		known[v.Mnemonic] = true
	}

	for _, v := range SingleLevelVars {
		known[v.Mnemonic] = true
	}

	for _, m := range wanted {
		if !known[m] {
			return nil, fmt.Errorf("unknown variable mnemonic %q", m)
		}
	}

	keep := make(map[string]bool, len(wanted))
	for _, m := range wanted {
		keep[m] = true
	}

	var out []Variable

	for _, v := range table {
		if keep[v.Mnemonic] {
			out = append(out, v)
		}
	}

	return out, nil
}
