// Package geometry provides the detector-geometry capability used by the
// reconstruction algorithms: packed cell-ID decoding, nominal cell
// alignment transforms and cell dimension lookups.
package geometry

import (
	"fmt"

	"gonum.org/v1/gonum/spatial/r3"
)

// CellID is a packed 64-bit detector cell identifier. The bit layout is
// not assumed anywhere in the reconstruction code; named sub-fields are
// extracted through a Decoder built from the readout description.
type CellID uint64

// FieldSpec describes one named bit field inside a packed cell ID.
type FieldSpec struct {
	Name   string `json:"name"`
	Offset uint   `json:"offset"`
	Width  uint   `json:"width"`
}

// Decoder extracts named fields from packed cell IDs. It is immutable
// after construction and safe for concurrent use.
type Decoder struct {
	fields []FieldSpec
	byName map[string]int
}

// NewDecoder builds a Decoder from a field schema. It fails if the
// schema is empty, a field is degenerate, names collide, or any two
// fields overlap in bit space.
func NewDecoder(fields []FieldSpec) (*Decoder, error) {
	if len(fields) == 0 {
		return nil, fmt.Errorf("geometry: decoder needs at least one field")
	}

	byName := make(map[string]int, len(fields))
	var used uint64
	for i, f := range fields {
		if f.Name == "" {
			return nil, fmt.Errorf("geometry: field %d has empty name", i)
		}
		if f.Width == 0 || f.Width > 64 {
			return nil, fmt.Errorf("geometry: field %q has invalid width %d", f.Name, f.Width)
		}
		if f.Offset+f.Width > 64 {
			return nil, fmt.Errorf("geometry: field %q exceeds 64 bits (offset %d, width %d)", f.Name, f.Offset, f.Width)
		}
		if _, dup := byName[f.Name]; dup {
			return nil, fmt.Errorf("geometry: duplicate field name %q", f.Name)
		}
		mask := fieldMask(f)
		if used&mask != 0 {
			return nil, fmt.Errorf("geometry: field %q overlaps a previous field", f.Name)
		}
		used |= mask
		byName[f.Name] = i
	}

	return &Decoder{fields: fields, byName: byName}, nil
}

func fieldMask(f FieldSpec) uint64 {
	if f.Width == 64 {
		return ^uint64(0)
	}
	return ((uint64(1) << f.Width) - 1) << f.Offset
}

// Index returns the positional index of the named field, for repeated
// Get calls without per-hit name lookups.
func (d *Decoder) Index(name string) (int, error) {
	idx, ok := d.byName[name]
	if !ok {
		return 0, fmt.Errorf("geometry: no field %q in readout schema", name)
	}
	return idx, nil
}

// Get extracts the field at the given index from a cell ID.
func (d *Decoder) Get(id CellID, idx int) int64 {
	f := d.fields[idx]
	return int64((uint64(id) >> f.Offset) & (fieldMask(f) >> f.Offset))
}

// GetByName extracts a named field from a cell ID.
func (d *Decoder) GetByName(id CellID, name string) (int64, error) {
	idx, err := d.Index(name)
	if err != nil {
		return 0, err
	}
	return d.Get(id, idx), nil
}

// Pack assembles a cell ID from named field values. Values must fit in
// their field widths; unknown names are rejected.
func (d *Decoder) Pack(values map[string]int64) (CellID, error) {
	var id uint64
	for name, v := range values {
		idx, ok := d.byName[name]
		if !ok {
			return 0, fmt.Errorf("geometry: no field %q in readout schema", name)
		}
		f := d.fields[idx]
		limit := fieldMask(f) >> f.Offset
		if v < 0 || uint64(v) > limit {
			return 0, fmt.Errorf("geometry: value %d does not fit in field %q (width %d)", v, name, f.Width)
		}
		id |= uint64(v) << f.Offset
	}
	return CellID(id), nil
}

// Provider is the read-only geometry capability injected into the
// reconstruction components. Implementations must be safe for
// concurrent use after construction.
type Provider interface {
	// Decoder returns the cell-ID decoder for the named readout.
	Decoder(readout string) (*Decoder, error)
	// CellAlignment returns the nominal local-to-world transform of the
	// cell's sensitive volume.
	CellAlignment(id CellID) (Transform, error)
	// CellDimensions returns the cell extents (dx, dy, dz) in mm.
	CellDimensions(id CellID) ([3]float64, error)
	// CellPosition returns the global position of the cell center in mm.
	CellPosition(id CellID) (r3.Vec, error)
}
