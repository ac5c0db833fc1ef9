package cohort

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oncotrack/response-api/internal/model"
	servicecohort "github.com/oncotrack/response-api/internal/service/cohort"
)

type memoryRepo struct {
	datasets map[uuid.UUID][]*model.MeasurementRecord
}

func (m *memoryRepo) ReplaceDataset(_ context.Context, id uuid.UUID, records []*model.MeasurementRecord) error {
	m.datasets[id] = records
	return nil
}

func (m *memoryRepo) ListRecords(_ context.Context, id uuid.UUID) ([]*model.MeasurementRecord, error) {
	return m.datasets[id], nil
}

func (m *memoryRepo) DeleteDataset(_ context.Context, id uuid.UUID) error {
	delete(m.datasets, id)
	return nil
}

func setupRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	repo := &memoryRepo{datasets: make(map[uuid.UUID][]*model.MeasurementRecord)}
	svc := servicecohort.NewService(repo, nil, time.Minute, time.Minute)
	h := NewHandler(svc)

	engine := gin.New()
	h.RegisterRoutes(engine.Group("/api/v1"))
	return engine
}

func doRequest(t *testing.T, engine *gin.Engine, method, path string, body io.Reader) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, body)
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	return w
}

func importSample(t *testing.T, engine *gin.Engine, datasetID uuid.UUID) {
	t.Helper()
	ndjson := `{"patient_id":"PID000001","timepoint":0,"study_date":"2023-01-10","baseline_sld_mm":50,"lesions":[{"lesion_id":"L-1","kind":"primary","site":"lung","measure_mm":50,"current_mm":50,"target":true}]}
{"patient_id":"PID000001","timepoint":1,"study_date":"2023-03-07","baseline_sld_mm":50,"current_sld_mm":30,"lesions":[{"lesion_id":"L-1","kind":"primary","site":"lung","follow_mm":30,"current_mm":30,"target":true}]}
`
	w := doRequest(t, engine, http.MethodPost, "/api/v1/datasets/"+datasetID.String()+"/records", strings.NewReader(ndjson))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
}

func TestImportRecords(t *testing.T) {
	engine := setupRouter()
	datasetID := uuid.New()

	ndjson := `{"patient_id":"P1","study_date":"2023-01-10"}
garbage line
`
	w := doRequest(t, engine, http.MethodPost, "/api/v1/datasets/"+datasetID.String()+"/records", strings.NewReader(ndjson))
	require.Equal(t, http.StatusCreated, w.Code)

	var resp struct {
		Status string             `json:"status"`
		Data   model.ImportResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "success", resp.Status)
	assert.Equal(t, 1, resp.Data.Imported)
	assert.Equal(t, 1, resp.Data.Skipped)
}

func TestImportRecords_InvalidDatasetID(t *testing.T) {
	engine := setupRouter()
	w := doRequest(t, engine, http.MethodPost, "/api/v1/datasets/not-a-uuid/records", strings.NewReader(""))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestListSeries(t *testing.T) {
	engine := setupRouter()
	datasetID := uuid.New()
	importSample(t, engine, datasetID)

	w := doRequest(t, engine, http.MethodGet, "/api/v1/datasets/"+datasetID.String()+"/series", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Data []*model.PatientSeries `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Data, 1)
	require.Len(t, resp.Data[0].Timepoints, 2)

	tp := resp.Data[0].Timepoints[1]
	require.NotNil(t, tp.PctFromBaseline)
	assert.InDelta(t, -40.0, *tp.PctFromBaseline, 1e-9)
}

func TestGetSeries_NotFound(t *testing.T) {
	engine := setupRouter()
	datasetID := uuid.New()
	importSample(t, engine, datasetID)

	w := doRequest(t, engine, http.MethodGet, "/api/v1/datasets/"+datasetID.String()+"/patients/NOPE/series", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetLesionMatrix(t *testing.T) {
	engine := setupRouter()
	datasetID := uuid.New()
	importSample(t, engine, datasetID)

	w := doRequest(t, engine, http.MethodGet, "/api/v1/datasets/"+datasetID.String()+"/patients/PID000001/lesions", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Data model.LesionMatrix `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, []string{"2023-01-10", "2023-03-07"}, resp.Data.Dates)
	require.Len(t, resp.Data.Rows, 1)
	assert.Equal(t, "L1", resp.Data.Rows[0].Label)
	assert.Equal(t, 30.0, resp.Data.Rows[0].Contributions["2023-03-07"])
}

func TestDeleteDataset(t *testing.T) {
	engine := setupRouter()
	datasetID := uuid.New()
	importSample(t, engine, datasetID)

	w := doRequest(t, engine, http.MethodDelete, "/api/v1/datasets/"+datasetID.String(), nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = doRequest(t, engine, http.MethodGet, "/api/v1/datasets/"+datasetID.String()+"/series", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Data []*model.PatientSeries `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Empty(t, resp.Data)
}
