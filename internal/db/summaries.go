package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/banshee-data/eeg.report/internal/bands"
	"github.com/banshee-data/eeg.report/internal/report"
)

// SaveSummaries replaces the stored summaries of a dataset.
func (db *DB) SaveSummaries(ctx context.Context, datasetID string, sums []report.SubjectSummary) error {
	if _, err := db.Dataset(ctx, datasetID); err != nil {
		return err
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM subject_summaries WHERE dataset_id = ?`, datasetID); err != nil {
		return fmt.Errorf("failed to clear summaries: %w", err)
	}

	now := time.Now().Unix()
	for i, s := range sums {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO subject_summaries (
				dataset_id, subject_order, subject, trials, mean_severity, max_severity,
				peak_trial, mean_adr, mean_tar, final_alert, peak_alert, asymmetric_trials, created_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			datasetID, i, s.Subject, s.Trials, nullFloat(s.MeanSeverity), nullFloat(s.MaxSeverity),
			s.PeakTrial, nullFloat(s.MeanADR), nullFloat(s.MeanTAR), string(s.FinalAlert), string(s.PeakAlert), s.AsymmetricTrials, now,
		)
		if err != nil {
			return fmt.Errorf("failed to insert summary for %s: %w", s.Subject, err)
		}
	}
	return tx.Commit()
}

// Summaries returns the stored summaries of a dataset in subject order.
func (db *DB) Summaries(ctx context.Context, datasetID string) ([]report.SubjectSummary, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT subject, trials, mean_severity, max_severity, peak_trial, mean_adr, mean_tar,
			final_alert, peak_alert, asymmetric_trials
		FROM subject_summaries WHERE dataset_id = ? ORDER BY subject_order`, datasetID)
	if err != nil {
		return nil, fmt.Errorf("failed to query summaries: %w", err)
	}
	defer rows.Close()

	var out []report.SubjectSummary
	for rows.Next() {
		var (
			s                             report.SubjectSummary
			finalAlert, peak              string
			meanSev, maxSev, meanADR, tar sql.NullFloat64
		)
		if err := rows.Scan(&s.Subject, &s.Trials, &meanSev, &maxSev, &s.PeakTrial,
			&meanADR, &tar, &finalAlert, &peak, &s.AsymmetricTrials); err != nil {
			return nil, fmt.Errorf("failed to scan summary: %w", err)
		}
		s.MeanSeverity, s.MaxSeverity = floatOrNaN(meanSev), floatOrNaN(maxSev)
		s.MeanADR, s.MeanTAR = floatOrNaN(meanADR), floatOrNaN(tar)
		s.FinalAlert, s.PeakAlert = bands.AlertLevel(finalAlert), bands.AlertLevel(peak)
		out = append(out, s)
	}
	return out, rows.Err()
}
