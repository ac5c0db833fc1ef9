package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/oncotrack/response-api/internal/model"
)

// MeasurementRepository persists the raw measurement records per dataset.
// Derived structures are never stored; they are recomputed from these
// records on every input change.
type MeasurementRepository interface {
	// ReplaceDataset swaps the dataset's records wholesale.
	ReplaceDataset(ctx context.Context, datasetID uuid.UUID, records []*model.MeasurementRecord) error
	ListRecords(ctx context.Context, datasetID uuid.UUID) ([]*model.MeasurementRecord, error)
	DeleteDataset(ctx context.Context, datasetID uuid.UUID) error
}
