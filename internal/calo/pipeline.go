package calo

import (
	"fmt"
	"log"
	"sync"

	"github.com/google/uuid"
)

// Pipeline composes the per-event reconstruction chain:
// raw hits -> hit reconstruction -> topological grouping -> cluster
// materialization -> center-of-gravity reconstruction.
//
// The pipeline itself is stateless between events; every event gets its
// own visited set and cluster list, so independent events can be
// processed concurrently. The shared geometry provider is read-only.
type Pipeline struct {
	hitreco *HitReconstructor
	topo    *TopoClusterer
	cog     *CoGReconstructor
}

// NewPipeline wires the three stages together.
func NewPipeline(hitreco *HitReconstructor, topo *TopoClusterer, cog *CoGReconstructor) (*Pipeline, error) {
	if hitreco == nil || topo == nil || cog == nil {
		return nil, fmt.Errorf("calo: pipeline needs all three stages")
	}
	return &Pipeline{hitreco: hitreco, topo: topo, cog: cog}, nil
}

// ProcessHits clusters and reconstructs already-calibrated hits.
func (p *Pipeline) ProcessHits(hits []Hit) ([]*Cluster, error) {
	groups := p.topo.Group(hits)

	clusters := make([]*Cluster, 0, len(groups))
	for _, group := range groups {
		clusters = append(clusters, NewCluster(group))
	}
	if err := p.cog.ReconstructAll(clusters); err != nil {
		return nil, err
	}
	return clusters, nil
}

// ProcessRaw runs the full chain on one event's raw hits.
func (p *Pipeline) ProcessRaw(raws []RawHit) ([]*Cluster, error) {
	hits, err := p.hitreco.Reconstruct(raws)
	if err != nil {
		return nil, err
	}
	return p.ProcessHits(hits)
}

// RunResult is the outcome of a batch run: one cluster list per input
// event, in input order, tagged with a unique run identifier.
type RunResult struct {
	RunID  string
	Events [][]*Cluster
}

// NClusters returns the total cluster count across all events.
func (r *RunResult) NClusters() int {
	n := 0
	for _, clusters := range r.Events {
		n += len(clusters)
	}
	return n
}

// Run processes a batch of events, fanning out across at most workers
// goroutines. Event results keep their input positions regardless of
// completion order. The first per-event error aborts the run.
func (p *Pipeline) Run(events [][]RawHit, workers int) (*RunResult, error) {
	result := &RunResult{
		RunID:  uuid.New().String(),
		Events: make([][]*Cluster, len(events)),
	}
	if len(events) == 0 {
		return result, nil
	}
	if workers < 1 {
		workers = 1
	}
	if workers > len(events) {
		workers = len(events)
	}

	jobs := make(chan int)
	errs := make([]error, len(events))
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				clusters, err := p.ProcessRaw(events[i])
				if err != nil {
					errs[i] = fmt.Errorf("event %d: %w", i, err)
					continue
				}
				result.Events[i] = clusters
			}
		}()
	}
	for i := range events {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}

	log.Printf("run %s: %d events, %d clusters", result.RunID, len(events), result.NClusters())
	return result, nil
}
