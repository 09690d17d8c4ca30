// Package calo implements the calorimeter reconstruction chain: hit
// digitization, raw-hit reconstruction, topological cell grouping and
// cluster center-of-gravity position reconstruction.
package calo

import (
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/wdconinc/calorec/internal/geometry"
)

// SimDeposit is a simulated energy deposit in one cell, the input to
// digitization. Energy is in GeV, time in ns.
type SimDeposit struct {
	CellID geometry.CellID `json:"cell_id"`
	Energy float64         `json:"energy"`
	Time   float64         `json:"time"`
}

// RawHit is a digitized calorimeter hit: an ADC amplitude with a
// timestamp, before any calibration.
type RawHit struct {
	CellID    geometry.CellID `json:"cell_id"`
	Amplitude int32           `json:"amplitude"`
	Time      float64         `json:"time"`
}

// Hit is a reconstructed calorimeter hit. It is read-only to the
// clustering stages. Positions are in mm, energy in GeV, time in ns.
// Layer and Sector are the decoded readout fields, or -1 when no
// readout was configured at hit reconstruction time; the clustering
// stages decode sector and layer from CellID themselves and do not
// rely on these fields.
type Hit struct {
	CellID    geometry.CellID `json:"cell_id"`
	Layer     int32           `json:"layer"`
	Sector    int32           `json:"sector"`
	Energy    float64         `json:"energy"`
	Time      float64         `json:"time"`
	Position  r3.Vec          `json:"position"`
	Local     r3.Vec          `json:"local"`
	Dimension [3]float64      `json:"dimension"`
}
