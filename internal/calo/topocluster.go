package calo

import (
	"fmt"

	"github.com/wdconinc/calorec/internal/geometry"
)

// TopoClusterer partitions calorimeter hits into topologically
// connected groups: connected components of the adjacency relation,
// seeded from hits above the minimum center energy.
//
// Reference: https://arxiv.org/pdf/1603.02934.pdf
//
// Splitting of merged local maxima is not performed; with fine
// transverse granularity a merged group is handed downstream as one
// cluster.
type TopoClusterer struct {
	params    TopoParams
	dec       *geometry.Decoder
	sectorIdx int
	layerIdx  int
}

// NewTopoClusterer validates the parameters and resolves the cell-ID
// decode fields. Configuration problems fail here, before any event is
// processed.
func NewTopoClusterer(geo geometry.Provider, params TopoParams) (*TopoClusterer, error) {
	if geo == nil {
		return nil, fmt.Errorf("calo: no geometry provider")
	}
	if err := params.Validate(); err != nil {
		return nil, err
	}

	dec, err := geo.Decoder(params.Readout)
	if err != nil {
		return nil, fmt.Errorf("calo: failed to load ID decoder for %q: %w", params.Readout, err)
	}
	sectorIdx, err := dec.Index(params.SectorField)
	if err != nil {
		return nil, fmt.Errorf("calo: failed to load ID decoder for %q: %w", params.Readout, err)
	}
	layerIdx, err := dec.Index(params.LayerField)
	if err != nil {
		return nil, fmt.Errorf("calo: failed to load ID decoder for %q: %w", params.Readout, err)
	}

	return &TopoClusterer{
		params:    params,
		dec:       dec,
		sectorIdx: sectorIdx,
		layerIdx:  layerIdx,
	}, nil
}

// Params returns the clustering parameters.
func (tc *TopoClusterer) Params() TopoParams { return tc.params }

// Group partitions the hits of one event into connected groups. Groups
// are disjoint: every hit joins at most one group. A hit below the seed
// threshold never starts a group but can still be absorbed as a member
// of a group seeded elsewhere. Group membership is a set; the order of
// hits within a group reflects discovery order and carries no meaning.
//
// All state is local to the call, so independent events may be grouped
// concurrently by separate goroutines.
func (tc *TopoClusterer) Group(hits []Hit) [][]Hit {
	if len(hits) == 0 {
		return nil
	}

	refs := make([]cellRef, len(hits))
	for i := range hits {
		refs[i] = tc.ref(hits[i].CellID)
	}
	index := newLayerIndex(refs)

	visited := make([]bool, len(hits))
	scratch := make([]int, 0, len(hits))
	var groups [][]Hit
	for i := range hits {
		// already in a group, or not energetic enough to seed a cluster
		if visited[i] || hits[i].Energy < tc.params.MinClusterCenterEdep {
			continue
		}
		groups = append(groups, tc.expandGroup(i, hits, refs, index, visited, scratch))
	}

	return groups
}

// expandGroup collects the connected component containing the seed
// using an explicit worklist. Hits are marked visited when pushed, so a
// hit can never be claimed by two groups even while still on the stack.
// The stack depth is bounded by the component size; anomalously large
// merged showers cannot overflow the call stack.
func (tc *TopoClusterer) expandGroup(seed int, hits []Hit, refs []cellRef, index *layerIndex, visited []bool, scratch []int) []Hit {
	group := make([]Hit, 0, 8)
	stack := []int{seed}
	visited[seed] = true

	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		group = append(group, hits[cur])

		scratch = index.candidates(refs[cur], tc.params.AdjLayerDiff, scratch)
		for _, j := range scratch {
			// visited, or not a neighbor
			if visited[j] || !tc.isNeighbor(&hits[cur], refs[cur], &hits[j], refs[j]) {
				continue
			}
			visited[j] = true
			stack = append(stack, j)
		}
	}

	return group
}
