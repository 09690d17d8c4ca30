package units

import (
	"math"
	"testing"
)

func TestLengthConstants(t *testing.T) {
	if Cm != 10.0 {
		t.Errorf("expected Cm=10mm, got %v", Cm)
	}
	if M != 1000.0 {
		t.Errorf("expected M=1000mm, got %v", M)
	}
}

func TestEnergyConstants(t *testing.T) {
	// 50 keV is the default seed threshold; make sure it lands where the
	// original configuration expects it in GeV.
	if got := 50 * KeV; got != 50e-6 {
		t.Errorf("expected 50 keV = 5e-5 GeV, got %v", got)
	}
	if got := 100 * MeV; got != 0.1 {
		t.Errorf("expected 100 MeV = 0.1 GeV, got %v", got)
	}
}

func TestAngleConstants(t *testing.T) {
	if got := 180 * Deg; math.Abs(got-math.Pi) > 1e-12 {
		t.Errorf("expected 180 deg = pi rad, got %v", got)
	}
	if got := 10 * MRad; got != 0.01 {
		t.Errorf("expected 10 mrad = 0.01 rad, got %v", got)
	}
}

func TestIsValidEnergyUnit(t *testing.T) {
	for _, unit := range ValidEnergyUnits {
		if !IsValidEnergyUnit(unit) {
			t.Errorf("expected %q to be valid", unit)
		}
	}
	if IsValidEnergyUnit("joule") {
		t.Error("expected joule to be invalid")
	}
}

func TestConvertEnergy(t *testing.T) {
	tests := []struct {
		name   string
		energy float64
		unit   string
		want   float64
	}{
		{"GeV passthrough", 1.5, UnitGeV, 1.5},
		{"GeV to MeV", 0.1, UnitMeV, 100},
		{"GeV to keV", 5e-5, UnitKeV, 50},
		{"unknown unit defaults to GeV", 2.0, "joule", 2.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ConvertEnergy(tt.energy, tt.unit)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("ConvertEnergy(%v, %q) = %v, want %v", tt.energy, tt.unit, got, tt.want)
			}
		})
	}
}
