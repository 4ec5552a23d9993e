package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/banshee-data/eeg.report/internal/eeg"
	"github.com/banshee-data/eeg.report/internal/monitoring"
)

// ErrDatasetNotFound is returned when no dataset has the requested ID.
var ErrDatasetNotFound = errors.New("dataset not found")

// DatasetInfo describes a stored dataset.
type DatasetInfo struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Source       string    `json:"source"`
	LoadedAt     time.Time `json:"loaded_at"`
	SubjectCount int       `json:"subject_count"`
	TrialCount   int       `json:"trial_count"`
	HasSlope     bool      `json:"has_slope"`
	HasBSI       bool      `json:"has_bsi"`
}

// SaveDataset stores ds under a new ID in a single transaction.
func (db *DB) SaveDataset(ctx context.Context, name, source string, ds *eeg.Dataset) (DatasetInfo, error) {
	if ds == nil {
		ds = &eeg.Dataset{}
	}
	info := DatasetInfo{
		ID:           uuid.NewString(),
		Name:         name,
		Source:       source,
		LoadedAt:     time.Now().UTC().Truncate(time.Second),
		SubjectCount: ds.SubjectCount(),
		TrialCount:   ds.TrialCount(),
		HasSlope:     ds.HasSlope,
		HasBSI:       ds.HasBSI,
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return DatasetInfo{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO datasets (id, name, source, loaded_at, subject_count, trial_count, has_slope, has_bsi)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		info.ID, info.Name, info.Source, info.LoadedAt.Unix(),
		info.SubjectCount, info.TrialCount, info.HasSlope, info.HasBSI,
	)
	if err != nil {
		return DatasetInfo{}, fmt.Errorf("failed to insert dataset: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO trials (
			dataset_id, subject, subject_order, trial_order, trial_index,
			alpha, beta, theta, delta, aperiodic_slope, bsi
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return DatasetInfo{}, fmt.Errorf("failed to prepare trial insert: %w", err)
	}
	defer stmt.Close()

	for si, s := range ds.Subjects {
		for ti, t := range s.Trials {
			if _, err := stmt.ExecContext(ctx,
				info.ID, s.Subject, si, ti, t.TrialIndex,
				nullFloat(t.Alpha), nullFloat(t.Beta), nullFloat(t.Theta), nullFloat(t.Delta),
				nullFloat(t.Slope), nullFloat(t.BSI),
			); err != nil {
				return DatasetInfo{}, fmt.Errorf("failed to insert trial %s/%d: %w", s.Subject, t.TrialIndex, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return DatasetInfo{}, fmt.Errorf("failed to commit dataset: %w", err)
	}
	monitoring.Logf("[DB] saved dataset %s (%s): %d subjects, %d trials",
		info.ID, info.Name, info.SubjectCount, info.TrialCount)
	return info, nil
}

// LoadDataset reads a stored dataset back in its original subject and trial
// order. NULL values come back as NaN.
func (db *DB) LoadDataset(ctx context.Context, id string) (*eeg.Dataset, DatasetInfo, error) {
	info, err := db.Dataset(ctx, id)
	if err != nil {
		return nil, DatasetInfo{}, err
	}

	rows, err := db.QueryContext(ctx,
		`SELECT subject, trial_index, alpha, beta, theta, delta, aperiodic_slope, bsi
		FROM trials WHERE dataset_id = ?
		ORDER BY subject_order, trial_order`, id)
	if err != nil {
		return nil, DatasetInfo{}, fmt.Errorf("failed to query trials: %w", err)
	}
	defer rows.Close()

	samples := make([]eeg.TrialSample, 0, info.TrialCount)
	for rows.Next() {
		var (
			s                                     eeg.TrialSample
			alpha, beta, theta, delta, slope, bsi sql.NullFloat64
		)
		if err := rows.Scan(&s.Subject, &s.TrialIndex, &alpha, &beta, &theta, &delta, &slope, &bsi); err != nil {
			return nil, DatasetInfo{}, fmt.Errorf("failed to scan trial: %w", err)
		}
		s.Alpha, s.Beta, s.Theta, s.Delta = floatOrNaN(alpha), floatOrNaN(beta), floatOrNaN(theta), floatOrNaN(delta)
		s.Slope, s.BSI = floatOrNaN(slope), floatOrNaN(bsi)
		samples = append(samples, s)
	}
	if err := rows.Err(); err != nil {
		return nil, DatasetInfo{}, err
	}

	return eeg.Group(samples, info.HasSlope, info.HasBSI), info, nil
}

// Dataset returns the metadata of one stored dataset.
func (db *DB) Dataset(ctx context.Context, id string) (DatasetInfo, error) {
	row := db.QueryRowContext(ctx,
		`SELECT id, name, source, loaded_at, subject_count, trial_count, has_slope, has_bsi
		FROM datasets WHERE id = ?`, id)
	info, err := scanDatasetInfo(row)
	if errors.Is(err, sql.ErrNoRows) {
		return DatasetInfo{}, fmt.Errorf("%w: %s", ErrDatasetNotFound, id)
	}
	if err != nil {
		return DatasetInfo{}, fmt.Errorf("failed to query dataset: %w", err)
	}
	return info, nil
}

// ListDatasets returns every stored dataset, newest first.
func (db *DB) ListDatasets(ctx context.Context) ([]DatasetInfo, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT id, name, source, loaded_at, subject_count, trial_count, has_slope, has_bsi
		FROM datasets ORDER BY loaded_at DESC, rowid DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query datasets: %w", err)
	}
	defer rows.Close()

	var out []DatasetInfo
	for rows.Next() {
		info, err := scanDatasetInfo(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan dataset: %w", err)
		}
		out = append(out, info)
	}
	return out, rows.Err()
}

// DeleteDataset removes a dataset together with its trials and summaries.
func (db *DB) DeleteDataset(ctx context.Context, id string) error {
	res, err := db.ExecContext(ctx, `DELETE FROM datasets WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete dataset: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrDatasetNotFound, id)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanDatasetInfo(sc scanner) (DatasetInfo, error) {
	var (
		info     DatasetInfo
		loadedAt int64
	)
	if err := sc.Scan(&info.ID, &info.Name, &info.Source, &loadedAt,
		&info.SubjectCount, &info.TrialCount, &info.HasSlope, &info.HasBSI); err != nil {
		return DatasetInfo{}, err
	}
	info.LoadedAt = time.Unix(loadedAt, 0).UTC()
	return info, nil
}

func nullFloat(v float64) sql.NullFloat64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: v, Valid: true}
}

func floatOrNaN(v sql.NullFloat64) float64 {
	if !v.Valid {
		return math.NaN()
	}
	return v.Float64
}
