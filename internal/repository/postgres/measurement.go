package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/oncotrack/response-api/internal/model"
	"github.com/oncotrack/response-api/internal/repository"
	"github.com/oncotrack/response-api/pkg/metrics"
)

type measurementRepository struct {
	db      *sqlx.DB
	metrics *metrics.Metrics
}

// NewMeasurementRepository creates the postgres-backed record store.
// Metrics may be nil (tests).
func NewMeasurementRepository(db *sqlx.DB, m *metrics.Metrics) repository.MeasurementRepository {
	return &measurementRepository{db: db, metrics: m}
}

func (r *measurementRepository) ReplaceDataset(ctx context.Context, datasetID uuid.UUID, records []*model.MeasurementRecord) error {
	done := r.observe("replace_dataset")

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		done(err)
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM measurement_records WHERE dataset_id = $1`, datasetID); err != nil {
		done(err)
		return fmt.Errorf("failed to clear dataset: %w", err)
	}

	query := `
		INSERT INTO measurement_records (
			dataset_id, patient_id, timepoint, study_date,
			baseline_sld_mm, current_sld_mm, nadir_sld_mm,
			overall_response, lesions, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	now := time.Now()
	for _, rec := range records {
		if err := marshalLesions(rec); err != nil {
			done(err)
			return fmt.Errorf("failed to marshal lesions for patient %s: %w", rec.PatientID, err)
		}
		if _, err := tx.ExecContext(ctx, query,
			datasetID,
			rec.PatientID,
			rec.Timepoint,
			rec.StudyDate,
			rec.BaselineSLD,
			rec.CurrentSLD,
			rec.NadirSLD,
			rec.OverallResponse,
			rec.LesionsJSON,
			now,
		); err != nil {
			done(err)
			return fmt.Errorf("failed to insert record: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		done(err)
		return fmt.Errorf("failed to commit dataset replacement: %w", err)
	}
	done(nil)
	return nil
}

func (r *measurementRepository) ListRecords(ctx context.Context, datasetID uuid.UUID) ([]*model.MeasurementRecord, error) {
	done := r.observe("list_records")

	query := `
		SELECT patient_id, timepoint, study_date,
		       baseline_sld_mm, current_sld_mm, nadir_sld_mm,
		       overall_response, lesions
		FROM measurement_records
		WHERE dataset_id = $1
		ORDER BY patient_id, study_date
	`
	var records []*model.MeasurementRecord
	if err := r.db.SelectContext(ctx, &records, query, datasetID); err != nil {
		done(err)
		return nil, fmt.Errorf("failed to list records: %w", err)
	}

	for _, rec := range records {
		if err := unmarshalLesions(rec); err != nil {
			done(err)
			return nil, fmt.Errorf("failed to unmarshal lesions for patient %s: %w", rec.PatientID, err)
		}
	}
	done(nil)
	return records, nil
}

func (r *measurementRepository) DeleteDataset(ctx context.Context, datasetID uuid.UUID) error {
	done := r.observe("delete_dataset")
	_, err := r.db.ExecContext(ctx, `DELETE FROM measurement_records WHERE dataset_id = $1`, datasetID)
	done(err)
	if err != nil {
		return fmt.Errorf("failed to delete dataset: %w", err)
	}
	return nil
}

func marshalLesions(rec *model.MeasurementRecord) error {
	if rec.Lesions == nil {
		rec.LesionsJSON = "[]"
		return nil
	}
	data, err := json.Marshal(rec.Lesions)
	if err != nil {
		return err
	}
	rec.LesionsJSON = string(data)
	return nil
}

func unmarshalLesions(rec *model.MeasurementRecord) error {
	if rec.LesionsJSON == "" || rec.LesionsJSON == "[]" {
		return nil
	}
	return json.Unmarshal([]byte(rec.LesionsJSON), &rec.Lesions)
}

// observe times one repository operation and records its outcome.
func (r *measurementRepository) observe(operation string) func(error) {
	if r.metrics == nil {
		return func(error) {}
	}
	start := time.Now()
	return func(err error) {
		status := "ok"
		if err != nil {
			status = "error"
		}
		r.metrics.DatabaseOperations.WithLabelValues(operation, status).Inc()
		r.metrics.DatabaseLatency.WithLabelValues(operation).Observe(time.Since(start).Seconds())
	}
}
