package geometry

import (
	"strings"
	"testing"
)

func testFields() []FieldSpec {
	return []FieldSpec{
		{Name: "system", Offset: 0, Width: 8},
		{Name: "sector", Offset: 8, Width: 6},
		{Name: "layer", Offset: 14, Width: 6},
		{Name: "x", Offset: 20, Width: 12},
		{Name: "y", Offset: 32, Width: 12},
	}
}

func TestNewDecoder_Valid(t *testing.T) {
	dec, err := NewDecoder(testFields())
	if err != nil {
		t.Fatalf("NewDecoder: %v", err)
	}
	if dec == nil {
		t.Fatal("expected non-nil decoder")
	}
}

func TestNewDecoder_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		fields  []FieldSpec
		wantErr string
	}{
		{"empty schema", nil, "at least one field"},
		{"empty name", []FieldSpec{{Name: "", Offset: 0, Width: 4}}, "empty name"},
		{"zero width", []FieldSpec{{Name: "layer", Offset: 0, Width: 0}}, "invalid width"},
		{"past 64 bits", []FieldSpec{{Name: "layer", Offset: 60, Width: 8}}, "exceeds 64 bits"},
		{"duplicate name", []FieldSpec{
			{Name: "layer", Offset: 0, Width: 4},
			{Name: "layer", Offset: 4, Width: 4},
		}, "duplicate"},
		{"overlap", []FieldSpec{
			{Name: "sector", Offset: 0, Width: 8},
			{Name: "layer", Offset: 4, Width: 8},
		}, "overlaps"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewDecoder(tt.fields)
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not mention %q", err, tt.wantErr)
			}
		})
	}
}

func TestDecoder_PackGetRoundTrip(t *testing.T) {
	dec, err := NewDecoder(testFields())
	if err != nil {
		t.Fatalf("NewDecoder: %v", err)
	}

	values := map[string]int64{
		"system": 3,
		"sector": 11,
		"layer":  42,
		"x":      1023,
		"y":      7,
	}
	id, err := dec.Pack(values)
	if err != nil {
		t.Fatalf("Pack: %v", err)
	}

	for name, want := range values {
		got, err := dec.GetByName(id, name)
		if err != nil {
			t.Fatalf("GetByName(%q): %v", name, err)
		}
		if got != want {
			t.Errorf("field %q = %d, want %d", name, got, want)
		}
	}
}

func TestDecoder_PackRejectsOverflow(t *testing.T) {
	dec, err := NewDecoder(testFields())
	if err != nil {
		t.Fatalf("NewDecoder: %v", err)
	}

	if _, err := dec.Pack(map[string]int64{"sector": 64}); err == nil {
		t.Error("expected overflow error for sector=64 in 6-bit field")
	}
	if _, err := dec.Pack(map[string]int64{"sector": -1}); err == nil {
		t.Error("expected error for negative value")
	}
	if _, err := dec.Pack(map[string]int64{"nonexistent": 1}); err == nil {
		t.Error("expected error for unknown field")
	}
}

func TestDecoder_IndexUnknownField(t *testing.T) {
	dec, err := NewDecoder(testFields())
	if err != nil {
		t.Fatalf("NewDecoder: %v", err)
	}
	if _, err := dec.Index("module"); err == nil {
		t.Error("expected error for unknown field name")
	}
}
