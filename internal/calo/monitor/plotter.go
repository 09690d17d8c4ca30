package monitor

import (
	"fmt"
	"image/color"
	"math"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/wdconinc/calorec/internal/calo"
	"github.com/wdconinc/calorec/internal/units"
)

// RunPlotter accumulates per-cluster summaries over a run and renders
// them as PNG files afterwards. Sample() is safe to call from the
// worker goroutines of a batch run.
type RunPlotter struct {
	mu        sync.Mutex
	enabled   bool
	outputDir string

	samples []ClusterSample
	eventID int
}

// ClusterSample is one reconstructed cluster flattened for plotting.
type ClusterSample struct {
	EventID int
	// Energy in MeV, hit count and the pseudorapidity/azimuth of the
	// reconstructed position. Eta and Phi are only meaningful when
	// HasPosition is set.
	EnergyMeV   float64
	NHits       int
	Eta         float64
	Phi         float64
	HasPosition bool
	// Per-layer energy split of the member hits, keyed by layer index.
	LayerEnergyMeV map[int32]float64
}

// NewRunPlotter creates an idle plotter. Call Start before sampling.
func NewRunPlotter() *RunPlotter {
	return &RunPlotter{}
}

// Start clears accumulated samples and begins recording into outputDir.
func (rp *RunPlotter) Start(outputDir string) error {
	rp.mu.Lock()
	defer rp.mu.Unlock()

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output dir: %w", err)
	}

	rp.outputDir = outputDir
	rp.enabled = true
	rp.samples = nil
	rp.eventID = 0
	return nil
}

// Stop disables sampling. Call GeneratePlots() to produce output files.
func (rp *RunPlotter) Stop() {
	rp.mu.Lock()
	defer rp.mu.Unlock()
	rp.enabled = false
}

// IsEnabled returns true if the plotter is currently recording.
func (rp *RunPlotter) IsEnabled() bool {
	rp.mu.Lock()
	defer rp.mu.Unlock()
	return rp.enabled
}

// Sample records one event's clusters.
func (rp *RunPlotter) Sample(clusters []*calo.Cluster) {
	rp.mu.Lock()
	defer rp.mu.Unlock()

	if !rp.enabled {
		return
	}
	rp.eventID++

	for _, cl := range clusters {
		if cl == nil || cl.NHits() == 0 {
			continue
		}

		s := ClusterSample{
			EventID:        rp.eventID,
			EnergyMeV:      cl.Energy / units.MeV,
			NHits:          cl.NHits(),
			LayerEnergyMeV: make(map[int32]float64),
		}
		for _, h := range cl.Hits {
			s.LayerEnergyMeV[h.Layer] += h.Energy / units.MeV
		}
		if cl.PositionValid {
			s.Eta, s.Phi = etaPhi(cl.Position.X, cl.Position.Y, cl.Position.Z)
			s.HasPosition = true
		}
		rp.samples = append(rp.samples, s)
	}
}

// SampleCount returns the number of clusters recorded so far.
func (rp *RunPlotter) SampleCount() int {
	rp.mu.Lock()
	defer rp.mu.Unlock()
	return len(rp.samples)
}

// OutputDir returns the directory plots are written to.
func (rp *RunPlotter) OutputDir() string {
	rp.mu.Lock()
	defer rp.mu.Unlock()
	return rp.outputDir
}

// GeneratePlots renders the accumulated samples. Returns the number of
// plot files written.
func (rp *RunPlotter) GeneratePlots() (int, error) {
	rp.mu.Lock()
	defer rp.mu.Unlock()

	if rp.outputDir == "" {
		return 0, fmt.Errorf("no output directory configured")
	}
	if len(rp.samples) == 0 {
		return 0, nil
	}

	count := 0
	for _, gen := range []struct {
		name string
		fn   func() error
	}{
		{"cluster_etaphi.png", rp.plotEtaPhi},
		{"cluster_energy.png", rp.plotEnergy},
		{"cluster_size.png", rp.plotSize},
		{"layer_profile.png", rp.plotLayerProfile},
	} {
		if err := gen.fn(); err != nil {
			return count, fmt.Errorf("%s: %w", gen.name, err)
		}
		count++
	}
	return count, nil
}

// plotEtaPhi draws one marker per positioned cluster, marker area
// scaled with cluster energy.
func (rp *RunPlotter) plotEtaPhi() error {
	p := plot.New()
	p.Title.Text = "Cluster Positions"
	p.X.Label.Text = "eta"
	p.Y.Label.Text = "phi (rad)"

	pts := make(plotter.XYs, 0, len(rp.samples))
	energies := make([]float64, 0, len(rp.samples))
	maxEnergy := 0.0
	for _, s := range rp.samples {
		if !s.HasPosition {
			continue
		}
		pts = append(pts, plotter.XY{X: s.Eta, Y: s.Phi})
		energies = append(energies, s.EnergyMeV)
		if s.EnergyMeV > maxEnergy {
			maxEnergy = s.EnergyMeV
		}
	}
	if len(pts) > 0 {
		scatter, err := plotter.NewScatter(pts)
		if err != nil {
			return err
		}
		scatter.GlyphStyle.Color = color.RGBA{R: 31, G: 119, B: 180, A: 255}
		scatter.GlyphStyleFunc = func(i int) draw.GlyphStyle {
			style := scatter.GlyphStyle
			radius := 2.0
			if maxEnergy > 0 {
				// area proportional to energy
				radius = 1 + 5*math.Sqrt(energies[i]/maxEnergy)
			}
			style.Radius = vg.Points(radius)
			return style
		}
		p.Add(scatter)
	}

	return p.Save(8*vg.Inch, 6*vg.Inch, filepath.Join(rp.outputDir, "cluster_etaphi.png"))
}

// plotEnergy draws the cluster energy spectrum.
func (rp *RunPlotter) plotEnergy() error {
	p := plot.New()
	p.Title.Text = "Cluster Energy"
	p.X.Label.Text = "Energy (MeV)"
	p.Y.Label.Text = "Clusters"

	vals := make(plotter.Values, 0, len(rp.samples))
	for _, s := range rp.samples {
		vals = append(vals, s.EnergyMeV)
	}
	hist, err := plotter.NewHist(vals, 50)
	if err != nil {
		return err
	}
	p.Add(hist)

	return p.Save(8*vg.Inch, 6*vg.Inch, filepath.Join(rp.outputDir, "cluster_energy.png"))
}

// plotSize draws the hit-multiplicity distribution.
func (rp *RunPlotter) plotSize() error {
	p := plot.New()
	p.Title.Text = "Cluster Size"
	p.X.Label.Text = "Hits per cluster"
	p.Y.Label.Text = "Clusters"

	vals := make(plotter.Values, 0, len(rp.samples))
	maxHits := 1
	for _, s := range rp.samples {
		vals = append(vals, float64(s.NHits))
		if s.NHits > maxHits {
			maxHits = s.NHits
		}
	}
	hist, err := plotter.NewHist(vals, maxHits)
	if err != nil {
		return err
	}
	p.Add(hist)

	return p.Save(8*vg.Inch, 6*vg.Inch, filepath.Join(rp.outputDir, "cluster_size.png"))
}

// plotLayerProfile draws the summed energy per layer across the run,
// a quick longitudinal shower profile.
func (rp *RunPlotter) plotLayerProfile() error {
	p := plot.New()
	p.Title.Text = "Longitudinal Profile"
	p.X.Label.Text = "Layer"
	p.Y.Label.Text = "Energy (MeV)"

	byLayer := make(map[int32]float64)
	for _, s := range rp.samples {
		for layer, e := range s.LayerEnergyMeV {
			byLayer[layer] += e
		}
	}

	var layers []int32
	for layer := range byLayer {
		layers = append(layers, layer)
	}
	sort.Slice(layers, func(i, j int) bool { return layers[i] < layers[j] })

	pts := make(plotter.XYs, 0, len(layers))
	for _, layer := range layers {
		pts = append(pts, plotter.XY{X: float64(layer), Y: byLayer[layer]})
	}
	if len(pts) > 0 {
		line, err := plotter.NewLine(pts)
		if err != nil {
			return err
		}
		line.Color = color.RGBA{R: 214, G: 39, B: 40, A: 255}
		line.Width = vg.Points(1)
		p.Add(line)
		p.Legend.Add("all sectors", line)
		p.Legend.Top = true
	}

	return p.Save(8*vg.Inch, 6*vg.Inch, filepath.Join(rp.outputDir, "layer_profile.png"))
}

func etaPhi(x, y, z float64) (eta, phi float64) {
	r := math.Sqrt(x*x + y*y + z*z)
	if r == 0 {
		return 0, 0
	}
	theta := math.Acos(z / r)
	return -math.Log(math.Tan(theta / 2)), math.Atan2(y, x)
}

// FormatTimestamp generates a timestamp string for directory naming.
func FormatTimestamp(t time.Time) string {
	return t.Format("20060102_150405")
}

// MakePlotOutputDir builds a per-run output directory under baseDir,
// plots/<runID>/<timestamp>.
func MakePlotOutputDir(baseDir, runID string) string {
	ts := FormatTimestamp(time.Now())
	if runID != "" {
		return filepath.Join(baseDir, runID, ts)
	}
	return filepath.Join(baseDir, "run_"+ts)
}
