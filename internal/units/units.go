// Package units provides shared constants and validation for area units
package units

// Unit constants
const (
	KM2 = "km2"
	HA  = "ha"
	M2  = "m2"
)

// ValidUnits contains all valid unit values
var ValidUnits = []string{KM2, HA, M2}

// IsValid checks if the given unit is in the list of valid units
func IsValid(unit string) bool {
	for _, validUnit := range ValidUnits {
		if unit == validUnit {
			return true
		}
	}
	return false
}

// GetValidUnitsString returns a comma-separated string of valid units for error messages
func GetValidUnitsString() string {
	return "km2, ha, m2"
}

// ConvertArea converts an area from square kilometres to the target units.
// The pipeline stores areas in km².
func ConvertArea(areaKm2 float64, targetUnits string) float64 {
	switch targetUnits {
	case HA:
		return areaKm2 * 100 // km² to hectares
	case M2:
		return areaKm2 * 1e6 // km² to m²
	case KM2:
		return areaKm2 // no conversion needed
	default:
		return areaKm2 // default to km² if unknown unit
	}
}
