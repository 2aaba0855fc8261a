// Package channel parses 16-character crash-test channel codes into their
// semantic fields: sensed object, broad location, specific location, sensor
// type, measurement axis and sensor rank.
//
// The code layout is positional and fixed-width:
//
//	object[0:2] location[2:6] specific[6:10] reserved[10:12] sensor[12:14] axis[14] rank[15]
//
// Several fields have documented variant spellings that mean the same
// physical channel (e.g. FLOR, FORA and FLPA all mean the floor pan).
// Variant and standard spellings parse to equal Parsed values.
package channel

import (
	"fmt"
)

// CodeLength is the required length of a channel code.
const CodeLength = 16

// ObjectKind identifies what the sensor is mounted on.
type ObjectKind string

const (
	ObjectVehicle ObjectKind = "vehicle"
	ObjectBarrier ObjectKind = "barrier"
	ObjectUnknown ObjectKind = "unknown"
)

// Axis is the measurement axis of a directional sensor.
type Axis string

const (
	AxisX Axis = "X"
	AxisY Axis = "Y"
	AxisZ Axis = "Z"
)

// Rank distinguishes the authoritative sensor from its redundant twin.
type Rank string

const (
	RankPrimary   Rank = "primary"
	RankRedundant Rank = "redundant"
	RankUnknown   Rank = "unknown"
)

// Tag is the canonical form of a spelled field. For recognised spellings only
// Canonical is set, so two variant spellings of the same field compare equal.
// For unrecognised spellings Canonical is empty and Raw preserves the field
// text for audit.
type Tag struct {
	Canonical string
	Raw       string
}

// Known reports whether the field spelling was recognised.
func (t Tag) Known() bool { return t.Canonical != "" }

func (t Tag) String() string {
	if t.Known() {
		return t.Canonical
	}
	return fmt.Sprintf("Unknown(%s)", t.Raw)
}

// Parsed is the decoded form of a channel code. It is immutable once parsed;
// codes differing only in variant spellings decode to equal Parsed values.
type Parsed struct {
	Object     ObjectKind
	Location   Tag
	Specific   Tag
	SensorType Tag
	Axis       Axis
	Rank       Rank
}

// MalformedCodeError reports a channel code that is structurally invalid and
// cannot be classified by field.
type MalformedCodeError struct {
	Code   string
	Reason string
}

func (e *MalformedCodeError) Error() string {
	return fmt.Sprintf("malformed channel code %q: %s", e.Code, e.Reason)
}

// UnknownFieldSpelling records a field spelling that parsed to an Unknown
// tag. It is not a failure: processing continues and the spelling is kept
// for audit.
type UnknownFieldSpelling struct {
	Code  string
	Field string
	Raw   string
}

func (e *UnknownFieldSpelling) Error() string {
	return fmt.Sprintf("channel code %q: unrecognised %s spelling %q", e.Code, e.Field, e.Raw)
}

// objectSpellings maps the two-character object field. Codes 1x are the test
// vehicle, 2x the partner vehicle or moving deformable barrier.
var objectSpellings = map[string]ObjectKind{
	"10": ObjectVehicle,
	"11": ObjectVehicle,
	"12": ObjectVehicle,
	"20": ObjectBarrier,
	"21": ObjectBarrier,
	"MB": ObjectBarrier,
}

// locationSpellings maps broad-location spellings, standard first then the
// documented variants.
var locationSpellings = map[string]string{
	"ENGN": "engine",
	"ENGI": "engine",
	"FLOR": "floor",
	"FORA": "floor",
	"FLPA": "floor",
	"SILL": "sill",
	"ROCK": "sill",
	// DOOR-named channels on the body side are sill mounts in practice;
	// keep them distinct here and let rules group them with sills.
	"DOOR": "door",
	"BPLL": "b-pillar",
	"BPIL": "b-pillar",
	"APLL": "a-pillar",
	"APIL": "a-pillar",
	"XMEM": "crossmember",
	"CRSM": "crossmember",
	"SEAT": "seat",
	"DASH": "dash",
	"INPA": "dash",
	"ROOF": "roof",
	"BUMP": "bumper",
	"VEHC": "vehicle-cg",
	"CGLO": "vehicle-cg",
	"BARR": "barrier",
	"BARI": "barrier",
}

// specificSpellings maps specific-location spellings.
var specificSpellings = map[string]string{
	"LERE": "left-rear",
	"RIRE": "right-rear",
	"LEFR": "left-front",
	"RIFR": "right-front",
	"CENT": "center",
	"CNTR": "center",
	"MIDL": "middle",
	"LEFT": "left",
	"RIGH": "right",
	"TOPP": "top",
	"BOTT": "bottom",
}

// sensorSpellings maps the two-character sensor-type field.
var sensorSpellings = map[string]string{
	"AC": "accelerometer",
	"LC": "load-cell",
	"FO": "load-cell",
	"DS": "displacement",
	"DC": "displacement",
	"VE": "velocity",
	"PR": "pressure",
	"SG": "strain-gauge",
}

// Parse decodes a channel code. It fails with *MalformedCodeError when the
// code is not exactly 16 characters or carries an axis character outside
// '1'..'3' (axis is safety-relevant and must never default). Unrecognised
// location, specific-location and sensor-type spellings decode to Unknown
// tags rather than failing.
func Parse(code string) (Parsed, error) {
	if len(code) != CodeLength {
		return Parsed{}, &MalformedCodeError{
			Code:   code,
			Reason: fmt.Sprintf("length %d, want %d", len(code), CodeLength),
		}
	}
	for i := 0; i < CodeLength; i++ {
		c := code[i]
		if (c < '0' || c > '9') && (c < 'A' || c > 'Z') {
			return Parsed{}, &MalformedCodeError{
				Code:   code,
				Reason: fmt.Sprintf("character %q at position %d outside field alphabet", c, i),
			}
		}
	}

	var p Parsed

	objField := code[0:2]
	if kind, ok := objectSpellings[objField]; ok {
		p.Object = kind
	} else {
		p.Object = ObjectUnknown
	}

	p.Location = lookupTag(locationSpellings, code[2:6])
	p.Specific = lookupSpecific(code[6:10])
	p.SensorType = lookupTag(sensorSpellings, code[12:14])

	switch code[14] {
	case '1':
		p.Axis = AxisX
	case '2':
		p.Axis = AxisY
	case '3':
		p.Axis = AxisZ
	default:
		return Parsed{}, &MalformedCodeError{
			Code:   code,
			Reason: fmt.Sprintf("axis character %q, want '1', '2' or '3'", code[14]),
		}
	}

	switch code[15] {
	case 'P':
		p.Rank = RankPrimary
	case 'R':
		p.Rank = RankRedundant
	default:
		p.Rank = RankUnknown
	}

	return p, nil
}

// UnknownSpellings lists the Unknown-tagged fields of a parsed code for
// audit reporting.
func UnknownSpellings(code string, p Parsed) []*UnknownFieldSpelling {
	var out []*UnknownFieldSpelling
	if !p.Location.Known() {
		out = append(out, &UnknownFieldSpelling{Code: code, Field: "location", Raw: p.Location.Raw})
	}
	if !p.Specific.Known() {
		out = append(out, &UnknownFieldSpelling{Code: code, Field: "specific-location", Raw: p.Specific.Raw})
	}
	if !p.SensorType.Known() {
		out = append(out, &UnknownFieldSpelling{Code: code, Field: "sensor-type", Raw: p.SensorType.Raw})
	}
	return out
}

func lookupTag(table map[string]string, raw string) Tag {
	if canonical, ok := table[raw]; ok {
		return Tag{Canonical: canonical}
	}
	return Tag{Raw: raw}
}

// lookupSpecific resolves the specific-location field. An all-digit field is
// a sensor-matrix coordinate rather than a named position.
func lookupSpecific(raw string) Tag {
	if canonical, ok := specificSpellings[raw]; ok {
		return Tag{Canonical: canonical}
	}
	if isDigits(raw) {
		return Tag{Canonical: "matrix-" + raw}
	}
	return Tag{Raw: raw}
}

func isDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return len(s) > 0
}
