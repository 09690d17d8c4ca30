package calo

import (
	"fmt"
	"math/rand"
	"sort"
	"testing"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/wdconinc/calorec/internal/geometry"
	"github.com/wdconinc/calorec/internal/units"
)

func TestNewTopoClusterer_SetupFailures(t *testing.T) {
	det := newTestDetector(t)

	tests := []struct {
		name   string
		geo    geometry.Provider
		mutate func(*TopoParams)
	}{
		{"nil geometry", nil, func(p *TopoParams) {}},
		{"missing readout", det, func(p *TopoParams) { p.Readout = "" }},
		{"unknown readout", det, func(p *TopoParams) { p.Readout = "HcalHits" }},
		{"short local ranges", det, func(p *TopoParams) { p.LocalRanges = []float64{1.0} }},
		{"short adjacent-layer ranges", det, func(p *TopoParams) { p.AdjLayerRanges = []float64{0.01} }},
		{"negative local range", det, func(p *TopoParams) { p.LocalRanges = []float64{-1, 1} }},
		{"unknown sector field", det, func(p *TopoParams) { p.SectorField = "wedge" }},
		{"unknown layer field", det, func(p *TopoParams) { p.LayerField = "slice" }},
		{"negative sector distance", det, func(p *TopoParams) { p.AdjSectorDist = -1 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			params := DefaultTopoParams()
			params.Readout = testReadout
			tt.mutate(&params)
			if _, err := NewTopoClusterer(tt.geo, params); err == nil {
				t.Error("expected setup error, got nil")
			}
		})
	}
}

func TestGroup_Empty(t *testing.T) {
	det := newTestDetector(t)
	tc := newTestClusterer(t, det, DefaultTopoParams())
	if groups := tc.Group(nil); groups != nil {
		t.Errorf("expected nil groups for no hits, got %d", len(groups))
	}
}

func TestGroup_SingletonSeed(t *testing.T) {
	det := newTestDetector(t)
	tc := newTestClusterer(t, det, DefaultTopoParams())

	hits := []Hit{
		testHit(t, det, 0, 0, 10, 10, 1*units.MeV, r3.Vec{}, r3.Vec{X: 1000}),
	}
	groups := tc.Group(hits)
	if len(groups) != 1 || len(groups[0]) != 1 {
		t.Fatalf("expected one singleton group, got %v", groups)
	}
}

func TestGroup_SeedThreshold(t *testing.T) {
	det := newTestDetector(t)
	tc := newTestClusterer(t, det, DefaultTopoParams())

	// All hits below the 50 keV seed threshold: nothing is grouped.
	hits := []Hit{
		testHit(t, det, 0, 0, 10, 10, 5*units.KeV, r3.Vec{}, r3.Vec{X: 1000}),
		testHit(t, det, 0, 0, 11, 10, 40*units.KeV, r3.Vec{X: 0.5}, r3.Vec{X: 1000}),
	}
	if groups := tc.Group(hits); len(groups) != 0 {
		t.Errorf("expected no groups below seed threshold, got %d", len(groups))
	}
}

func TestGroup_SubThresholdMemberAbsorbed(t *testing.T) {
	det := newTestDetector(t)
	tc := newTestClusterer(t, det, DefaultTopoParams())

	// The 5 keV hit cannot seed but is adjacent to the seed, so it is
	// absorbed as a member.
	hits := []Hit{
		testHit(t, det, 0, 0, 10, 10, 100*units.KeV, r3.Vec{}, r3.Vec{X: 1000}),
		testHit(t, det, 0, 0, 11, 10, 5*units.KeV, r3.Vec{X: 0.5, Y: 0.5}, r3.Vec{X: 1000}),
	}
	groups := tc.Group(hits)
	if len(groups) != 1 {
		t.Fatalf("expected one group, got %d", len(groups))
	}
	if len(groups[0]) != 2 {
		t.Errorf("expected sub-threshold hit absorbed, group size = %d", len(groups[0]))
	}
}

func TestGroup_TransitiveChain(t *testing.T) {
	det := newTestDetector(t)
	tc := newTestClusterer(t, det, DefaultTopoParams())

	// A chain of same-layer hits each within the local window of the
	// next, with only the first above the seed threshold. The whole
	// chain must end up in one group.
	var hits []Hit
	for i := 0; i < 5; i++ {
		energy := 5 * units.KeV
		if i == 0 {
			energy = 100 * units.KeV
		}
		hits = append(hits, testHit(t, det, 0, 0, int64(10+i), 10, energy,
			r3.Vec{X: 0.8 * float64(i)}, r3.Vec{X: 1000}))
	}

	groups := tc.Group(hits)
	if len(groups) != 1 {
		t.Fatalf("expected one group, got %d", len(groups))
	}
	if len(groups[0]) != 5 {
		t.Errorf("expected chain of 5 hits in one group, got %d", len(groups[0]))
	}
}

func TestGroup_PartitionDisjoint(t *testing.T) {
	det := newTestDetector(t)
	tc := newTestClusterer(t, det, DefaultTopoParams())

	// Two well-separated islands plus one unreachable sub-threshold hit.
	hits := []Hit{
		testHit(t, det, 0, 0, 10, 10, 100*units.KeV, r3.Vec{}, r3.Vec{X: 1000}),
		testHit(t, det, 0, 0, 11, 10, 20*units.KeV, r3.Vec{X: 0.5}, r3.Vec{X: 1000}),
		testHit(t, det, 0, 10, 50, 50, 200*units.KeV, r3.Vec{X: 500}, r3.Vec{Y: 1000}),
		testHit(t, det, 0, 10, 51, 50, 80*units.KeV, r3.Vec{X: 500.5}, r3.Vec{Y: 1000}),
		testHit(t, det, 0, 5, 80, 80, 5*units.KeV, r3.Vec{X: -900}, r3.Vec{Z: 3000}),
	}

	groups := tc.Group(hits)
	if len(groups) != 2 {
		t.Fatalf("expected 2 groups, got %d", len(groups))
	}

	seen := make(map[geometry.CellID]int)
	total := 0
	for _, group := range groups {
		if len(group) == 0 {
			t.Error("groups must be non-empty by construction")
		}
		for _, h := range group {
			seen[h.CellID]++
			total++
		}
	}
	for id, n := range seen {
		if n > 1 {
			t.Errorf("hit %#x appears in %d groups", uint64(id), n)
		}
	}
	if total != 4 {
		t.Errorf("expected 4 grouped hits, got %d", total)
	}
	if _, ok := seen[hits[4].CellID]; ok {
		t.Error("unreachable sub-threshold hit must not be grouped")
	}
}

func TestGroup_GroupedHitNeverReseeds(t *testing.T) {
	det := newTestDetector(t)
	tc := newTestClusterer(t, det, DefaultTopoParams())

	// Both hits clear the seed threshold and are adjacent: the second
	// is consumed as a member and must not start a second group.
	hits := []Hit{
		testHit(t, det, 0, 0, 10, 10, 100*units.KeV, r3.Vec{}, r3.Vec{X: 1000}),
		testHit(t, det, 0, 0, 11, 10, 90*units.KeV, r3.Vec{X: 0.5}, r3.Vec{X: 1000}),
	}
	groups := tc.Group(hits)
	if len(groups) != 1 {
		t.Fatalf("expected 1 group, got %d", len(groups))
	}
	if len(groups[0]) != 2 {
		t.Errorf("expected 2 member hits, got %d", len(groups[0]))
	}
}

func TestGroup_CrossSectorMerge(t *testing.T) {
	det := newTestDetector(t)
	tc := newTestClusterer(t, det, DefaultTopoParams())

	// Hits in different sectors merge through the global-distance
	// fallback.
	hits := []Hit{
		testHit(t, det, 0, 0, 99, 10, 100*units.KeV, r3.Vec{}, r3.Vec{X: 1000}),
		testHit(t, det, 1, 0, 0, 10, 20*units.KeV, r3.Vec{X: 500}, r3.Vec{X: 1000 + 0.5*units.Cm}),
	}
	groups := tc.Group(hits)
	if len(groups) != 1 || len(groups[0]) != 2 {
		t.Fatalf("expected one merged cross-sector group, got %v group sizes", len(groups))
	}
}

func TestGroup_MembershipIsOrderIndependent(t *testing.T) {
	det := newTestDetector(t)
	tc := newTestClusterer(t, det, DefaultTopoParams())

	var hits []Hit
	// Island A: layer 0 chain.
	for i := 0; i < 4; i++ {
		hits = append(hits, testHit(t, det, 0, 0, int64(10+i), 10, 100*units.KeV,
			r3.Vec{X: 0.9 * float64(i)}, r3.Vec{X: 1000}))
	}
	// Island B: far away in layer 10.
	for i := 0; i < 3; i++ {
		hits = append(hits, testHit(t, det, 0, 10, int64(70+i), 70, 100*units.KeV,
			r3.Vec{X: 600 + 0.9*float64(i)}, r3.Vec{Y: 1000}))
	}

	partition := func(hs []Hit) []string {
		var keys []string
		for _, group := range tc.Group(hs) {
			ids := make([]uint64, len(group))
			for i, h := range group {
				ids[i] = uint64(h.CellID)
			}
			sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
			key := ""
			for _, id := range ids {
				key += fmt.Sprintf("%d,", id)
			}
			keys = append(keys, key)
		}
		sort.Strings(keys)
		return keys
	}

	want := partition(hits)
	rng := rand.New(rand.NewSource(7))
	for trial := 0; trial < 10; trial++ {
		shuffled := append([]Hit(nil), hits...)
		rng.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })
		got := partition(shuffled)
		if len(got) != len(want) {
			t.Fatalf("trial %d: %d groups, want %d", trial, len(got), len(want))
		}
		for i := range got {
			if got[i] != want[i] {
				t.Fatalf("trial %d: partition differs from input-order partition", trial)
			}
		}
	}
}

func TestLayerIndex_Candidates(t *testing.T) {
	refs := []cellRef{
		{sector: 0, layer: 0}, // 0
		{sector: 0, layer: 1}, // 1
		{sector: 0, layer: 5}, // 2
		{sector: 1, layer: 9}, // 3
	}
	li := newLayerIndex(refs)

	got := li.candidates(refs[0], 1, nil)
	want := map[int]bool{0: true, 1: true, 3: true}
	if len(got) != len(want) {
		t.Fatalf("candidates = %v, want indices %v", got, want)
	}
	for _, idx := range got {
		if !want[idx] {
			t.Errorf("unexpected candidate %d", idx)
		}
	}
}
