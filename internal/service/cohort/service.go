package cohort

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"

	"github.com/oncotrack/response-api/internal/ingest"
	"github.com/oncotrack/response-api/internal/model"
	"github.com/oncotrack/response-api/internal/recist"
	"github.com/oncotrack/response-api/internal/repository"
	apperrors "github.com/oncotrack/response-api/pkg/errors"
	"github.com/oncotrack/response-api/pkg/metrics"
)

// Service orchestrates ingest, persistence and derivation for cohort
// datasets. Derived series are memoized per dataset and discarded
// wholesale whenever the dataset's records change; nothing derived is
// ever patched incrementally.
type Service struct {
	repo    repository.MeasurementRepository
	cache   *cache.Cache
	metrics *metrics.Metrics
}

// NewService wires the cohort service. Metrics may be nil (tests).
func NewService(repo repository.MeasurementRepository, m *metrics.Metrics, ttl, cleanup time.Duration) *Service {
	return &Service{
		repo:    repo,
		cache:   cache.New(ttl, cleanup),
		metrics: m,
	}
}

// ImportNDJSON parses the newline-delimited records, replaces the
// dataset's stored records and invalidates the derived-series cache.
func (s *Service) ImportNDJSON(ctx context.Context, datasetID uuid.UUID, r io.Reader) (*model.ImportResult, error) {
	start := time.Now()

	parsed, err := ingest.ReadRecords(r)
	if err != nil {
		return nil, apperrors.BadRequest("unreadable import payload", err)
	}

	if err := s.repo.ReplaceDataset(ctx, datasetID, parsed.Records); err != nil {
		return nil, fmt.Errorf("failed to replace dataset: %w", err)
	}
	s.cache.Delete(datasetID.String())

	if s.metrics != nil {
		s.metrics.RecordsImported.Add(float64(len(parsed.Records)))
		s.metrics.LinesSkipped.Add(float64(parsed.Skipped))
		s.metrics.ImportLatency.Observe(time.Since(start).Seconds())
	}

	patients := make(map[string]struct{}, len(parsed.Records))
	for _, rec := range parsed.Records {
		patients[rec.PatientID] = struct{}{}
	}

	return &model.ImportResult{
		Imported: len(parsed.Records),
		Skipped:  parsed.Skipped,
		Patients: len(patients),
	}, nil
}

// ListPatientSeries returns the derived series for every patient in the
// dataset, rebuilding from the stored records on cache miss.
func (s *Service) ListPatientSeries(ctx context.Context, datasetID uuid.UUID) ([]*model.PatientSeries, error) {
	key := datasetID.String()
	if cached, ok := s.cache.Get(key); ok {
		s.countCache("hit")
		return cached.([]*model.PatientSeries), nil
	}
	s.countCache("miss")

	records, err := s.repo.ListRecords(ctx, datasetID)
	if err != nil {
		return nil, fmt.Errorf("failed to load dataset records: %w", err)
	}

	start := time.Now()
	series := recist.BuildPatientSeries(records)
	if s.metrics != nil {
		s.metrics.SeriesRebuilds.Inc()
		s.metrics.RebuildLatency.Observe(time.Since(start).Seconds())
	}

	s.cache.SetDefault(key, series)
	return series, nil
}

// GetPatientSeries returns one patient's derived series.
func (s *Service) GetPatientSeries(ctx context.Context, datasetID uuid.UUID, patientID string) (*model.PatientSeries, error) {
	all, err := s.ListPatientSeries(ctx, datasetID)
	if err != nil {
		return nil, err
	}
	for _, series := range all {
		if series.PatientID == patientID {
			return series, nil
		}
	}
	return nil, apperrors.NotFound("patient series", nil)
}

// GetLesionMatrix returns the (lesion x date) view for one patient.
func (s *Service) GetLesionMatrix(ctx context.Context, datasetID uuid.UUID, patientID string) (*model.LesionMatrix, error) {
	series, err := s.GetPatientSeries(ctx, datasetID, patientID)
	if err != nil {
		return nil, err
	}
	return recist.BuildLesionMatrix(series), nil
}

// DeleteDataset removes the dataset's records and derived state.
func (s *Service) DeleteDataset(ctx context.Context, datasetID uuid.UUID) error {
	if err := s.repo.DeleteDataset(ctx, datasetID); err != nil {
		return fmt.Errorf("failed to delete dataset: %w", err)
	}
	s.cache.Delete(datasetID.String())
	return nil
}

func (s *Service) countCache(outcome string) {
	if s.metrics != nil {
		s.metrics.SeriesCacheHits.WithLabelValues(outcome).Inc()
	}
}
