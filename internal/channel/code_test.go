package channel

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestParse_EngineAccelerometer(t *testing.T) {
	p, err := Parse("10ENGNLERE00AC1P")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := Parsed{
		Object:     ObjectVehicle,
		Location:   Tag{Canonical: "engine"},
		Specific:   Tag{Canonical: "left-rear"},
		SensorType: Tag{Canonical: "accelerometer"},
		Axis:       AxisX,
		Rank:       RankPrimary,
	}
	if diff := cmp.Diff(want, p); diff != "" {
		t.Errorf("Parse mismatch (-want +got):\n%s", diff)
	}
}

func TestParse_VariantSpellingsEqual(t *testing.T) {
	// FORA, FLOR and FLPA are documented spellings of the floor pan. Codes
	// differing only in that field must decode to equal Parsed values.
	variants := []string{
		"10FORALERE00AC1P",
		"10FLORLERE00AC1P",
		"10FLPALERE00AC1P",
	}

	base, err := Parse(variants[0])
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, code := range variants[1:] {
		p, err := Parse(code)
		if err != nil {
			t.Fatalf("Parse(%q): unexpected error: %v", code, err)
		}
		if p != base {
			t.Errorf("Parse(%q) = %+v, want equal to %+v", code, p, base)
		}
	}
	if base.Location.Canonical != "floor" {
		t.Errorf("Location = %q, want floor", base.Location)
	}
}

func TestParse_AxisMapping(t *testing.T) {
	cases := []struct {
		axisChar byte
		want     Axis
	}{
		{'1', AxisX},
		{'2', AxisY},
		{'3', AxisZ},
	}
	for _, tc := range cases {
		code := "10SILLLEFR00AC" + string(tc.axisChar) + "P"
		p, err := Parse(code)
		if err != nil {
			t.Fatalf("Parse(%q): unexpected error: %v", code, err)
		}
		if p.Axis != tc.want {
			t.Errorf("axis %q = %s, want %s", tc.axisChar, p.Axis, tc.want)
		}
	}
}

func TestParse_BadAxisNeverDefaults(t *testing.T) {
	// Axis is safety-relevant: anything outside '1'..'3' is a hard failure,
	// never a silent default to X.
	for _, axisChar := range []string{"0", "4", "9", "X", "A"} {
		code := "10SILLLEFR00AC" + axisChar + "P"
		_, err := Parse(code)
		var malformed *MalformedCodeError
		if !errors.As(err, &malformed) {
			t.Fatalf("Parse(%q) error = %v, want *MalformedCodeError", code, err)
		}
		if malformed.Code != code {
			t.Errorf("error code = %q, want %q", malformed.Code, code)
		}
	}
}

func TestParse_LengthChecked(t *testing.T) {
	for _, code := range []string{"", "10ENGN", "10ENGNLEREP1AC1", "10ENGNLERE00AC1PX"} {
		_, err := Parse(code)
		var malformed *MalformedCodeError
		if !errors.As(err, &malformed) {
			t.Errorf("Parse(%q) error = %v, want *MalformedCodeError", code, err)
		}
	}
}

func TestParse_UnknownSpellingsSurvive(t *testing.T) {
	// Undocumented spellings degrade to Unknown tags for audit; the parse
	// itself succeeds so forward-compatible codes keep flowing.
	code := "10QQZZWWXX00YY2R"
	p, err := Parse(code)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Location.Known() || p.Specific.Known() || p.SensorType.Known() {
		t.Errorf("expected unknown tags, got %+v", p)
	}
	if got := p.Location.String(); got != "Unknown(QQZZ)" {
		t.Errorf("Location.String() = %q, want Unknown(QQZZ)", got)
	}
	if p.Rank != RankRedundant {
		t.Errorf("Rank = %s, want redundant", p.Rank)
	}

	unknowns := UnknownSpellings(code, p)
	if len(unknowns) != 3 {
		t.Fatalf("UnknownSpellings returned %d entries, want 3", len(unknowns))
	}
	for _, u := range unknowns {
		if u.Code != code {
			t.Errorf("unknown spelling code = %q, want %q", u.Code, code)
		}
	}
}

func TestParse_MatrixCoordinate(t *testing.T) {
	p, err := Parse("10FLOR040200AC1P")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !p.Specific.Known() {
		t.Fatalf("numeric specific location should be a known matrix tag, got %+v", p.Specific)
	}
	if p.Specific.Canonical != "matrix-0402" {
		t.Errorf("Specific = %q, want matrix-0402", p.Specific.Canonical)
	}
}

func TestParse_RankFallsBackToUnknown(t *testing.T) {
	p, err := Parse("20BARRCENT00LC1Q")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Rank != RankUnknown {
		t.Errorf("Rank = %s, want unknown", p.Rank)
	}
	if p.Object != ObjectBarrier {
		t.Errorf("Object = %s, want barrier", p.Object)
	}
}

func TestParse_RejectsLowercase(t *testing.T) {
	_, err := Parse("10engnlere00ac1p")
	var malformed *MalformedCodeError
	if !errors.As(err, &malformed) {
		t.Errorf("lowercase code error = %v, want *MalformedCodeError", err)
	}
}
