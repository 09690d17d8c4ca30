// Package units provides shared physics unit constants and conversions.
//
// Base units follow the convention used throughout the reconstruction
// chain: lengths in millimeters, energies in GeV, times in nanoseconds
// and angles in radians. All stored and computed quantities are in base
// units; the constants here exist so configuration values can be written
// in their natural units (50 * units.KeV, 1 * units.Cm).
package units

import "math"

// Length units (base: millimeter)
const (
	Mm = 1.0
	Cm = 10.0 * Mm
	M  = 1000.0 * Mm
	Um = 1e-3 * Mm
)

// Energy units (base: GeV)
const (
	GeV = 1.0
	MeV = 1e-3 * GeV
	KeV = 1e-6 * GeV
	EV  = 1e-9 * GeV
)

// Time units (base: nanosecond)
const (
	Ns = 1.0
	Us = 1000.0 * Ns
	Ms = 1e6 * Ns
)

// Angle units (base: radian)
const (
	Rad  = 1.0
	MRad = 1e-3 * Rad
	Deg  = math.Pi / 180.0 * Rad
)

// Energy unit names accepted by ConvertEnergy
const (
	UnitGeV = "GeV"
	UnitMeV = "MeV"
	UnitKeV = "keV"
)

// ValidEnergyUnits contains all valid energy unit names
var ValidEnergyUnits = []string{UnitGeV, UnitMeV, UnitKeV}

// IsValidEnergyUnit checks if the given unit name is recognized
func IsValidEnergyUnit(unit string) bool {
	for _, valid := range ValidEnergyUnits {
		if unit == valid {
			return true
		}
	}
	return false
}

// ConvertEnergy converts an energy from base units (GeV) to the target unit
func ConvertEnergy(energyGeV float64, targetUnit string) float64 {
	switch targetUnit {
	case UnitMeV:
		return energyGeV / MeV
	case UnitKeV:
		return energyGeV / KeV
	case UnitGeV:
		return energyGeV
	default:
		return energyGeV // default to GeV if unknown unit
	}
}
