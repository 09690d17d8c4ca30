// Command calorec runs the calorimeter reconstruction chain over a
// batch of events: raw ADC hits (or simulated deposits digitized on the
// fly) are calibrated, topologically grouped and reconstructed into
// clusters with log-weighted centroid positions. Results can be written
// as JSON, persisted to sqlite and rendered as monitoring plots.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/wdconinc/calorec/internal/calo"
	"github.com/wdconinc/calorec/internal/calo/monitor"
	"github.com/wdconinc/calorec/internal/calodb"
	"github.com/wdconinc/calorec/internal/config"
	"github.com/wdconinc/calorec/internal/geometry"
)

var (
	geometryPath = flag.String("geometry", "", "Detector descriptor JSON file (required)")
	configPath   = flag.String("config", "", "Tuning config JSON file (optional)")
	inputPath    = flag.String("input", "", "Input events JSON file (required)")
	outputPath   = flag.String("output", "", "Write clusters as JSON to this file, or - for stdout")
	dbPath       = flag.String("db", "", "Persist run results to this sqlite database")
	plotDir      = flag.String("plots", "", "Write monitoring plots under this directory")
	workers      = flag.Int("workers", 0, "Worker goroutines (0 = take from config)")
	seed         = flag.Int64("seed", 1, "Random seed for digitization")
)

// inputEvent carries one event's input in exactly one of two forms:
// simulated deposits that still need digitization, or raw ADC hits.
type inputEvent struct {
	Deposits []calo.SimDeposit `json:"deposits,omitempty"`
	RawHits  []calo.RawHit     `json:"raw_hits,omitempty"`
}

type inputFile struct {
	Events []inputEvent `json:"events"`
}

type outputFile struct {
	RunID  string            `json:"run_id"`
	Events [][]*calo.Cluster `json:"events"`
}

func main() {
	flag.Parse()
	if *geometryPath == "" || *inputPath == "" {
		flag.Usage()
		os.Exit(2)
	}
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	det, err := geometry.LoadDetector(*geometryPath)
	if err != nil {
		return err
	}
	readout := det.Descriptor().Readout

	cfg := config.EmptyTuningConfig()
	if *configPath != "" {
		if cfg, err = config.LoadTuningConfig(*configPath); err != nil {
			return err
		}
	}

	pipeline, err := buildPipeline(det, cfg, readout)
	if err != nil {
		return err
	}

	events, err := loadEvents(*inputPath, cfg)
	if err != nil {
		return err
	}

	nWorkers := cfg.GetWorkers()
	if *workers > 0 {
		nWorkers = *workers
	}
	result, err := pipeline.Run(events, nWorkers)
	if err != nil {
		return err
	}

	if *dbPath != "" {
		if err := persist(*dbPath, result); err != nil {
			return err
		}
	}
	if *plotDir != "" {
		if err := plot(*plotDir, result); err != nil {
			return err
		}
	}
	if *outputPath != "" {
		if err := writeClusters(*outputPath, result); err != nil {
			return err
		}
	}
	return nil
}

func buildPipeline(det *geometry.Detector, cfg *config.TuningConfig, readout string) (*calo.Pipeline, error) {
	hitreco, err := calo.NewHitReconstructor(det, cfg.HitRecoParams(readout))
	if err != nil {
		return nil, err
	}
	topo, err := calo.NewTopoClusterer(det, cfg.TopoParams(readout))
	if err != nil {
		return nil, err
	}
	cog, err := calo.NewCoGReconstructor(det, cfg.GetLogWeightBase())
	if err != nil {
		return nil, err
	}
	return calo.NewPipeline(hitreco, topo, cog)
}

// loadEvents reads the input file and digitizes any events given as
// simulated deposits. One event may not mix the two forms.
func loadEvents(path string, cfg *config.TuningConfig) ([][]calo.RawHit, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read input file: %w", err)
	}
	var in inputFile
	if err := json.Unmarshal(data, &in); err != nil {
		return nil, fmt.Errorf("failed to parse input JSON: %w", err)
	}

	var digi *calo.Digitizer
	events := make([][]calo.RawHit, 0, len(in.Events))
	for i, ev := range in.Events {
		switch {
		case len(ev.Deposits) > 0 && len(ev.RawHits) > 0:
			return nil, fmt.Errorf("event %d mixes deposits and raw hits", i)
		case len(ev.Deposits) > 0:
			if digi == nil {
				if digi, err = calo.NewDigitizer(cfg.DigiParams(), *seed); err != nil {
					return nil, err
				}
			}
			events = append(events, digi.Digitize(ev.Deposits))
		default:
			events = append(events, ev.RawHits)
		}
	}
	return events, nil
}

func persist(path string, result *calo.RunResult) error {
	db, err := calodb.NewDB(path)
	if err != nil {
		return err
	}
	defer db.Close()
	if err := db.MigrateUp(); err != nil {
		return err
	}
	if err := db.InsertRun(result); err != nil {
		return err
	}
	log.Printf("persisted run %s to %s", result.RunID, path)
	return nil
}

func plot(baseDir string, result *calo.RunResult) error {
	rp := monitor.NewRunPlotter()
	outDir := monitor.MakePlotOutputDir(baseDir, result.RunID)
	if err := rp.Start(outDir); err != nil {
		return err
	}
	for _, clusters := range result.Events {
		rp.Sample(clusters)
	}
	rp.Stop()

	n, err := rp.GeneratePlots()
	if err != nil {
		return err
	}
	log.Printf("wrote %d plots to %s", n, outDir)
	return nil
}

func writeClusters(path string, result *calo.RunResult) error {
	out := outputFile{RunID: result.RunID, Events: result.Events}
	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode clusters: %w", err)
	}
	data = append(data, '\n')

	if path == "-" {
		_, err = os.Stdout.Write(data)
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write output file: %w", err)
	}
	return nil
}
