// Command cluster-display renders the clusters of a stored run as an
// interactive HTML scatter chart: transverse (x, y) cluster positions
// colored by energy. It is a quick-look tool for inspecting a run
// without any plotting environment.
package main

import (
	"flag"
	"fmt"
	"log"
	"math"
	"os"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/wdconinc/calorec/internal/calodb"
	"github.com/wdconinc/calorec/internal/units"
)

var (
	dbPath  = flag.String("db", "calorec.db", "Sqlite database with stored runs")
	runID   = flag.String("run", "", "Run to display (default: most recent)")
	outPath = flag.String("out", "clusters.html", "Output HTML file")
)

func main() {
	flag.Parse()
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	db, err := calodb.NewDB(*dbPath)
	if err != nil {
		return err
	}
	defer db.Close()

	id := *runID
	if id == "" {
		runs, err := db.ListRuns()
		if err != nil {
			return err
		}
		if len(runs) == 0 {
			return fmt.Errorf("no runs stored in %s", *dbPath)
		}
		id = runs[0]
	}

	records, err := db.ListClusters(id)
	if err != nil {
		return err
	}
	summary, err := db.Summary(id)
	if err != nil {
		return err
	}

	pts := make([]opts.ScatterData, 0, len(records))
	maxAbs := 0.0
	maxEnergy := 0.0
	for _, rec := range records {
		if !rec.PositionValid {
			continue
		}
		if math.Abs(rec.PosX) > maxAbs {
			maxAbs = math.Abs(rec.PosX)
		}
		if math.Abs(rec.PosY) > maxAbs {
			maxAbs = math.Abs(rec.PosY)
		}
		energyMeV := rec.Energy / units.MeV
		if energyMeV > maxEnergy {
			maxEnergy = energyMeV
		}
		pts = append(pts, opts.ScatterData{Value: []interface{}{rec.PosX, rec.PosY, energyMeV}})
	}

	// Pad so edge points stay visible, and force a square frame.
	pad := maxAbs * 1.05
	if pad == 0 {
		pad = 1.0
	}
	if maxEnergy == 0 {
		maxEnergy = 1.0
	}

	subtitle := fmt.Sprintf("run=%s clusters=%d mean=%.3f MeV positioned=%.0f%%",
		id, summary.NClusters, summary.MeanEnergy/units.MeV, summary.PositionedFrac*100)

	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Calorimeter Clusters", Theme: "dark", Width: "900px", Height: "900px"}),
		charts.WithTitleOpts(opts.Title{Title: "Cluster Positions", Subtitle: subtitle}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Min: -pad, Max: pad, Name: "X (mm)", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Min: -pad, Max: pad, Name: "Y (mm)", NameLocation: "middle", NameGap: 30}),
		charts.WithVisualMapOpts(opts.VisualMap{
			Show:       opts.Bool(true),
			Calculable: opts.Bool(true),
			Min:        0,
			Max:        float32(maxEnergy),
			Dimension:  "2",
			InRange:    &opts.VisualMapInRange{Color: []string{"#440154", "#482777", "#3e4989", "#31688e", "#26828e", "#1f9e89", "#35b779", "#6ece58", "#b5de2b", "#fde725"}},
		}),
	)
	scatter.AddSeries("clusters", pts, charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 8}))

	f, err := os.Create(*outPath)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer f.Close()
	if err := scatter.Render(f); err != nil {
		return fmt.Errorf("failed to render chart: %w", err)
	}

	log.Printf("wrote %d clusters from run %s to %s", len(pts), id, *outPath)
	return nil
}
