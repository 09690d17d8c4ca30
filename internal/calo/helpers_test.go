package calo

import (
	"testing"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/wdconinc/calorec/internal/geometry"
)

const testReadout = "EcalBarrelHits"

// newTestDetector builds a small 4-sector, 20-layer box-cell detector
// shared by the clustering tests.
func newTestDetector(t *testing.T) *geometry.Detector {
	t.Helper()
	det, err := geometry.NewDetector(geometry.Descriptor{
		Readout: testReadout,
		Fields: []geometry.FieldSpec{
			{Name: "sector", Offset: 0, Width: 6},
			{Name: "layer", Offset: 6, Width: 6},
			{Name: "x", Offset: 12, Width: 12},
			{Name: "y", Offset: 24, Width: 12},
		},
		SectorField: "sector",
		LayerField:  "layer",
		XField:      "x",
		YField:      "y",
		Sectors:     4,
		Layers:      20,
		CellsX:      100,
		CellsY:      100,
		CellSize:    [3]float64{20, 20, 10},
		FrontFaceZ:  2000,
	})
	if err != nil {
		t.Fatalf("NewDetector: %v", err)
	}
	return det
}

func newTestClusterer(t *testing.T, det *geometry.Detector, params TopoParams) *TopoClusterer {
	t.Helper()
	params.Readout = testReadout
	tc, err := NewTopoClusterer(det, params)
	if err != nil {
		t.Fatalf("NewTopoClusterer: %v", err)
	}
	return tc
}

// testHit builds a hit in the given cell with explicit local and global
// positions. The positions are free-form so tests can exercise the
// adjacency windows directly.
func testHit(t *testing.T, det *geometry.Detector, sector, layer, ix, iy int64, energy float64, local, pos r3.Vec) Hit {
	t.Helper()
	id, err := det.CellID(sector, layer, ix, iy)
	if err != nil {
		t.Fatalf("CellID(%d,%d,%d,%d): %v", sector, layer, ix, iy, err)
	}
	return Hit{
		CellID:    id,
		Layer:     int32(layer),
		Sector:    int32(sector),
		Energy:    energy,
		Position:  pos,
		Local:     local,
		Dimension: [3]float64{20, 20, 10},
	}
}
