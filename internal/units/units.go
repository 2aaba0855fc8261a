// Package units provides shared constants and conversions for the physical
// quantities of a crash pulse: acceleration, speed and displacement.
package units

// StandardGravity is the conventional value of g in m/s^2.
const StandardGravity = 9.80665

// Speed unit constants
const (
	MPS  = "mps"
	MPH  = "mph"
	KMPH = "kmph"
	KPH  = "kph"
)

// ValidSpeedUnits contains all valid speed unit values
var ValidSpeedUnits = []string{MPS, MPH, KMPH, KPH}

// IsValidSpeedUnit checks if the given unit is in the list of valid units
func IsValidSpeedUnit(unit string) bool {
	for _, validUnit := range ValidSpeedUnits {
		if unit == validUnit {
			return true
		}
	}
	return false
}

// ConvertSpeed converts a speed from meters per second to the target units.
// The pipeline computes every speed in m/s.
func ConvertSpeed(speedMPS float64, targetUnits string) float64 {
	switch targetUnits {
	case MPH:
		return speedMPS * 2.23694 // m/s to mph
	case KMPH, KPH:
		return speedMPS * 3.6 // m/s to km/h
	case MPS:
		return speedMPS // no conversion needed
	default:
		return speedMPS // default to m/s if unknown unit
	}
}

// GToMps2 converts an acceleration in G to m/s^2.
func GToMps2(g float64) float64 {
	return g * StandardGravity
}

// Mps2ToG converts an acceleration in m/s^2 to G.
func Mps2ToG(mps2 float64) float64 {
	return mps2 / StandardGravity
}

// MetersToMillimeters converts a displacement in meters to millimeters.
func MetersToMillimeters(m float64) float64 {
	return m * 1000
}

// KphToMps converts a speed in km/h to m/s.
func KphToMps(kph float64) float64 {
	return kph / 3.6
}
