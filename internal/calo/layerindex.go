package calo

// layerIndex buckets hit indices by decoded (sector, layer) so the DFS
// expansion only scans plausible neighbor candidates: same-sector hits
// within the adjacent-layer span, plus every hit in other sectors for
// the cross-sector distance fallback. The cross-sector path keeps the
// worst case quadratic, but the common same-sector scan is bounded by
// the occupancy of a few layers.
type layerIndex struct {
	byLayer  map[int64]map[int64][]int // sector -> layer -> hit indices
	bySector map[int64][]int           // sector -> hit indices
	sectors  []int64
}

func newLayerIndex(refs []cellRef) *layerIndex {
	li := &layerIndex{
		byLayer:  make(map[int64]map[int64][]int),
		bySector: make(map[int64][]int),
	}
	for i, r := range refs {
		layers, ok := li.byLayer[r.sector]
		if !ok {
			layers = make(map[int64][]int)
			li.byLayer[r.sector] = layers
			li.sectors = append(li.sectors, r.sector)
		}
		layers[r.layer] = append(layers[r.layer], i)
		li.bySector[r.sector] = append(li.bySector[r.sector], i)
	}
	return li
}

// candidates appends to out the indices that can possibly be adjacent
// to a hit with the given decoded sector/layer, and returns the slice.
func (li *layerIndex) candidates(ref cellRef, adjLayerDiff int, out []int) []int {
	out = out[:0]

	layers := li.byLayer[ref.sector]
	for l := ref.layer - int64(adjLayerDiff); l <= ref.layer+int64(adjLayerDiff); l++ {
		out = append(out, layers[l]...)
	}
	for _, s := range li.sectors {
		if s == ref.sector {
			continue
		}
		out = append(out, li.bySector[s]...)
	}

	return out
}
