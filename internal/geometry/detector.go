package geometry

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"

	"gonum.org/v1/gonum/spatial/r3"
)

// Descriptor is the JSON description of a layered sampling calorimeter:
// identical sector wedges rotated about the beam (z) axis, each holding
// a stack of layers of identical box cells. Lengths are in mm.
type Descriptor struct {
	Readout     string      `json:"readout"`
	Fields      []FieldSpec `json:"fields"`
	SectorField string      `json:"sector_field"`
	LayerField  string      `json:"layer_field"`
	XField      string      `json:"x_field,omitempty"`
	YField      string      `json:"y_field,omitempty"`
	Sectors     int         `json:"sectors"`
	Layers      int         `json:"layers"`
	CellsX      int         `json:"cells_x,omitempty"`
	CellsY      int         `json:"cells_y,omitempty"`
	CellSize    [3]float64  `json:"cell_size_mm"`
	FrontFaceZ  float64     `json:"front_face_z_mm"`
}

// Detector implements Provider for a Descriptor. It is immutable after
// construction and safe for concurrent queries from many event workers.
type Detector struct {
	desc      Descriptor
	dec       *Decoder
	sectorIdx int
	layerIdx  int
	xIdx      int // -1 when no x field configured
	yIdx      int // -1 when no y field configured
}

// NewDetector validates a descriptor and builds the detector. All schema
// problems surface here, before any event is processed.
func NewDetector(desc Descriptor) (*Detector, error) {
	if desc.Readout == "" {
		return nil, fmt.Errorf("geometry: descriptor has no readout name")
	}
	if desc.Sectors <= 0 || desc.Layers <= 0 {
		return nil, fmt.Errorf("geometry: need positive sector and layer counts, have %d sectors, %d layers",
			desc.Sectors, desc.Layers)
	}
	for i, s := range desc.CellSize {
		if s <= 0 {
			return nil, fmt.Errorf("geometry: cell size component %d must be positive, got %v", i, s)
		}
	}

	dec, err := NewDecoder(desc.Fields)
	if err != nil {
		return nil, err
	}

	d := &Detector{desc: desc, dec: dec, xIdx: -1, yIdx: -1}
	if d.sectorIdx, err = dec.Index(desc.SectorField); err != nil {
		return nil, fmt.Errorf("geometry: sector field: %w", err)
	}
	if d.layerIdx, err = dec.Index(desc.LayerField); err != nil {
		return nil, fmt.Errorf("geometry: layer field: %w", err)
	}
	if desc.XField != "" {
		if d.xIdx, err = dec.Index(desc.XField); err != nil {
			return nil, fmt.Errorf("geometry: x field: %w", err)
		}
		if desc.CellsX <= 0 {
			return nil, fmt.Errorf("geometry: x field %q configured but cells_x is %d", desc.XField, desc.CellsX)
		}
	}
	if desc.YField != "" {
		if d.yIdx, err = dec.Index(desc.YField); err != nil {
			return nil, fmt.Errorf("geometry: y field: %w", err)
		}
		if desc.CellsY <= 0 {
			return nil, fmt.Errorf("geometry: y field %q configured but cells_y is %d", desc.YField, desc.CellsY)
		}
	}

	return d, nil
}

// LoadDetector reads a JSON descriptor file and builds the detector.
func LoadDetector(path string) (*Detector, error) {
	cleanPath := filepath.Clean(path)
	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read geometry file: %w", err)
	}
	var desc Descriptor
	if err := json.Unmarshal(data, &desc); err != nil {
		return nil, fmt.Errorf("failed to parse geometry JSON: %w", err)
	}
	return NewDetector(desc)
}

// Descriptor returns a copy of the detector description.
func (d *Detector) Descriptor() Descriptor { return d.desc }

// Decoder returns the cell-ID decoder for the named readout.
func (d *Detector) Decoder(readout string) (*Decoder, error) {
	if readout != d.desc.Readout {
		return nil, fmt.Errorf("geometry: unknown readout %q (detector provides %q)", readout, d.desc.Readout)
	}
	return d.dec, nil
}

// cellIndices decodes and bounds-checks the sector/layer (and optional
// grid) indices of a cell ID.
func (d *Detector) cellIndices(id CellID) (sector, layer, ix, iy int64, err error) {
	sector = d.dec.Get(id, d.sectorIdx)
	layer = d.dec.Get(id, d.layerIdx)
	if sector >= int64(d.desc.Sectors) {
		return 0, 0, 0, 0, fmt.Errorf("geometry: cell %#x: sector %d outside detector (%d sectors)", uint64(id), sector, d.desc.Sectors)
	}
	if layer >= int64(d.desc.Layers) {
		return 0, 0, 0, 0, fmt.Errorf("geometry: cell %#x: layer %d outside detector (%d layers)", uint64(id), layer, d.desc.Layers)
	}
	if d.xIdx >= 0 {
		ix = d.dec.Get(id, d.xIdx)
		if ix >= int64(d.desc.CellsX) {
			return 0, 0, 0, 0, fmt.Errorf("geometry: cell %#x: x index %d outside grid (%d cells)", uint64(id), ix, d.desc.CellsX)
		}
	}
	if d.yIdx >= 0 {
		iy = d.dec.Get(id, d.yIdx)
		if iy >= int64(d.desc.CellsY) {
			return 0, 0, 0, 0, fmt.Errorf("geometry: cell %#x: y index %d outside grid (%d cells)", uint64(id), iy, d.desc.CellsY)
		}
	}
	return sector, layer, ix, iy, nil
}

// CellAlignment returns the nominal local-to-world transform anchored at
// the cell's (sector, layer) volume: a rotation of the sector wedge
// about z and a translation to the layer mid-plane.
func (d *Detector) CellAlignment(id CellID) (Transform, error) {
	sector, layer, _, _, err := d.cellIndices(id)
	if err != nil {
		return Transform{}, err
	}
	phi := 2 * math.Pi * float64(sector) / float64(d.desc.Sectors)
	z := d.desc.FrontFaceZ + (float64(layer)+0.5)*d.desc.CellSize[2]
	return NewRotZTranslation(phi, r3.Vec{Z: z}), nil
}

// CellDimensions returns the cell extents (dx, dy, dz) in mm.
func (d *Detector) CellDimensions(id CellID) ([3]float64, error) {
	if _, _, _, _, err := d.cellIndices(id); err != nil {
		return [3]float64{}, err
	}
	return d.desc.CellSize, nil
}

// CellPosition returns the global position of the cell center. Without
// configured x/y grid fields the cell center coincides with the layer
// volume origin.
func (d *Detector) CellPosition(id CellID) (r3.Vec, error) {
	_, _, ix, iy, err := d.cellIndices(id)
	if err != nil {
		return r3.Vec{}, err
	}
	align, err := d.CellAlignment(id)
	if err != nil {
		return r3.Vec{}, err
	}

	var local r3.Vec
	if d.xIdx >= 0 {
		local.X = (float64(ix) + 0.5 - float64(d.desc.CellsX)/2) * d.desc.CellSize[0]
	}
	if d.yIdx >= 0 {
		local.Y = (float64(iy) + 0.5 - float64(d.desc.CellsY)/2) * d.desc.CellSize[1]
	}
	return align.LocalToWorld(local), nil
}

// CellID packs sector/layer/grid indices into a cell identifier. It is
// the inverse of cellIndices and is used by digitization and tests.
func (d *Detector) CellID(sector, layer, ix, iy int64) (CellID, error) {
	values := map[string]int64{
		d.desc.SectorField: sector,
		d.desc.LayerField:  layer,
	}
	if d.xIdx >= 0 {
		values[d.desc.XField] = ix
	}
	if d.yIdx >= 0 {
		values[d.desc.YField] = iy
	}
	id, err := d.dec.Pack(values)
	if err != nil {
		return 0, err
	}
	if _, _, _, _, err := d.cellIndices(id); err != nil {
		return 0, err
	}
	return id, nil
}

// Verify at compile time that *Detector implements Provider.
var _ Provider = (*Detector)(nil)
