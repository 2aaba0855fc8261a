package pipeline

import (
	"math"
	"strings"
)

// Category is the test configuration class derived from crash-type metadata
// and impact angle.
type Category string

const (
	CategoryFrontal  Category = "frontal"
	CategorySide     Category = "side"
	CategoryRear     Category = "rear"
	CategoryRollover Category = "rollover"
	CategoryOther    Category = "other"
)

// Categorize classifies a test from its crash-type description and impact
// angle in degrees. Angles are normalised to [0, 360); frontal covers
// barrier and vehicle-to-vehicle impacts within 30 degrees of head-on, side
// covers pole impacts and movable-barrier impacts near 90/270, rear covers
// movable-barrier impacts near 180.
func Categorize(crashType string, impactAngleDeg float64) Category {
	ct := strings.ToUpper(crashType)

	angle := math.Mod(impactAngleDeg, 360)
	if angle < 0 {
		angle += 360
	}

	if strings.Contains(ct, "ROLLOVER") {
		return CategoryRollover
	}

	frontalAngle := angle >= 330 || angle <= 30
	if (strings.Contains(ct, "BARRIER") || strings.Contains(ct, "VEHICLE INTO VEHICLE")) && frontalAngle {
		return CategoryFrontal
	}

	if strings.Contains(ct, "POLE") {
		return CategorySide
	}

	sideAngle := (angle >= 60 && angle <= 120) || (angle >= 240 && angle <= 300)
	if strings.Contains(ct, "IMPACTOR") && sideAngle {
		return CategorySide
	}

	rearAngle := angle >= 150 && angle <= 210
	if strings.Contains(ct, "IMPACTOR") && rearAngle {
		return CategoryRear
	}

	return CategoryOther
}
