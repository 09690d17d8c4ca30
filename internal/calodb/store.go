package calodb

import (
	"database/sql"
	"fmt"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/wdconinc/calorec/internal/calo"
	"github.com/wdconinc/calorec/internal/geometry"
)

// ClusterRecord is one persisted cluster row.
type ClusterRecord struct {
	RunID         string
	EventID       int
	Energy        float64
	NHits         int
	CenterID      geometry.CellID
	PosX          float64
	PosY          float64
	PosZ          float64
	PositionValid bool
}

// RunSummary aggregates the cluster energies of one run.
type RunSummary struct {
	RunID          string
	NClusters      int
	MeanEnergy     float64
	MedianEnergy   float64
	Quartile1      float64
	Quartile3      float64
	TotalEnergy    float64
	PositionedFrac float64
}

// InsertRun stores a batch result and all its clusters in one
// transaction.
func (db *DB) InsertRun(result *calo.RunResult) error {
	if result == nil {
		return fmt.Errorf("calodb: nil run result")
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(
		`INSERT INTO reco_runs (run_id, n_events, n_clusters) VALUES (?, ?, ?)`,
		result.RunID, len(result.Events), result.NClusters(),
	); err != nil {
		return fmt.Errorf("failed to insert run %s: %w", result.RunID, err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO reco_clusters
			(run_id, event_id, energy_gev, n_hits, center_cell,
			 pos_x_mm, pos_y_mm, pos_z_mm, position_valid)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare cluster insert: %w", err)
	}
	defer stmt.Close()

	for eventID, clusters := range result.Events {
		for _, cl := range clusters {
			valid := 0
			if cl.PositionValid {
				valid = 1
			}
			if _, err := stmt.Exec(
				result.RunID, eventID, cl.Energy, cl.NHits(), int64(cl.CenterID),
				cl.Position.X, cl.Position.Y, cl.Position.Z, valid,
			); err != nil {
				return fmt.Errorf("failed to insert cluster (event %d): %w", eventID, err)
			}
		}
	}

	return tx.Commit()
}

// ListClusters returns the clusters of a run ordered by event.
func (db *DB) ListClusters(runID string) ([]ClusterRecord, error) {
	rows, err := db.Query(`
		SELECT run_id, event_id, energy_gev, n_hits, center_cell,
		       pos_x_mm, pos_y_mm, pos_z_mm, position_valid
		FROM reco_clusters
		WHERE run_id = ?
		ORDER BY event_id, cluster_id
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query clusters for run %s: %w", runID, err)
	}
	defer rows.Close()

	var records []ClusterRecord
	for rows.Next() {
		var rec ClusterRecord
		var center int64
		var valid int
		if err := rows.Scan(
			&rec.RunID, &rec.EventID, &rec.Energy, &rec.NHits, &center,
			&rec.PosX, &rec.PosY, &rec.PosZ, &valid,
		); err != nil {
			return nil, fmt.Errorf("failed to scan cluster row: %w", err)
		}
		rec.CenterID = geometry.CellID(center)
		rec.PositionValid = valid != 0
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Summary computes energy statistics over one run's clusters.
func (db *DB) Summary(runID string) (*RunSummary, error) {
	var exists int
	err := db.QueryRow(`SELECT COUNT(*) FROM reco_runs WHERE run_id = ?`, runID).Scan(&exists)
	if err != nil {
		return nil, fmt.Errorf("failed to look up run %s: %w", runID, err)
	}
	if exists == 0 {
		return nil, sql.ErrNoRows
	}

	records, err := db.ListClusters(runID)
	if err != nil {
		return nil, err
	}

	summary := &RunSummary{RunID: runID, NClusters: len(records)}
	if len(records) == 0 {
		return summary, nil
	}

	energies := make([]float64, 0, len(records))
	positioned := 0
	for _, rec := range records {
		energies = append(energies, rec.Energy)
		summary.TotalEnergy += rec.Energy
		if rec.PositionValid {
			positioned++
		}
	}
	sort.Float64s(energies)

	summary.MeanEnergy = stat.Mean(energies, nil)
	summary.MedianEnergy = stat.Quantile(0.5, stat.Empirical, energies, nil)
	summary.Quartile1 = stat.Quantile(0.25, stat.Empirical, energies, nil)
	summary.Quartile3 = stat.Quantile(0.75, stat.Empirical, energies, nil)
	summary.PositionedFrac = float64(positioned) / float64(len(records))
	return summary, nil
}

// ListRuns returns all stored run IDs, newest first.
func (db *DB) ListRuns() ([]string, error) {
	rows, err := db.Query(`SELECT run_id FROM reco_runs ORDER BY created_at DESC, run_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan run id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
