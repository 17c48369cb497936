package rules

import "testing"

func TestLerp(t *testing.T) {
	tests := []struct {
		min, max int
		t        float64
		want     int
	}{
		{5, 20, 0.0, 5},
		{5, 20, 1.0, 20},
		{5, 20, 0.5, 13},
		{3, 1, 0.5, 2},
		{3, 1, 1.0, 1},
	}
	for _, tc := range tests {
		got := lerp(tc.min, tc.max, tc.t)
		if got != tc.want {
			t.Errorf("lerp(%d, %d, %.1f) = %d, want %d", tc.min, tc.max, tc.t, got, tc.want)
		}
	}
}

func TestClamp(t *testing.T) {
	tests := []struct {
		v, min, max, want float64
	}{
		{0.5, 0, 1, 0.5},
		{-0.5, 0, 1, 0.0},
		{1.5, 0, 1, 1.0},
	}
	for _, tc := range tests {
		got := clamp(tc.v, tc.min, tc.max)
		if got != tc.want {
			t.Errorf("clamp(%f, %f, %f) = %f, want %f", tc.v, tc.min, tc.max, got, tc.want)
		}
	}
	if clampInt(7, 1, 3) != 3 || clampInt(-2, 1, 3) != 1 {
		t.Error("clampInt out of range")
	}
}

func TestDoctrineValidate(t *testing.T) {
	d := Doctrine{Aggression: 2, FocusFire: -1, Support: 0.4}
	d.Validate()
	if d.Aggression != 1 || d.FocusFire != 0 || d.Support != 0.4 {
		t.Errorf("Validate = %+v", d)
	}
}

func TestDefaultDoctrine(t *testing.T) {
	d := DefaultDoctrine()
	if d.Name != "Balanced" {
		t.Errorf("DefaultDoctrine().Name = %q, want %q", d.Name, "Balanced")
	}
	before := d
	d.Validate()
	if d != before {
		t.Error("default doctrine should already be valid")
	}
}

func TestParseDoctrine(t *testing.T) {
	d, err := ParseDoctrine([]byte("name: Berserker\naggression: 1.7\nself_preservation: 0.1\n"))
	if err != nil {
		t.Fatal(err)
	}
	if d.Name != "Berserker" || d.Aggression != 1 || d.SelfPreservation != 0.1 {
		t.Errorf("doctrine = %+v", d)
	}
	if d.Support != DefaultDoctrine().Support {
		t.Errorf("support = %v, want the default", d.Support)
	}
	if _, err := ParseDoctrine([]byte("aggression: [1")); err == nil {
		t.Error("malformed yaml accepted")
	}
}
