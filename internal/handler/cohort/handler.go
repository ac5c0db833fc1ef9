package cohort

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/oncotrack/response-api/internal/handler"
	"github.com/oncotrack/response-api/internal/model"
	apperrors "github.com/oncotrack/response-api/pkg/errors"
)

// Service is the cohort operations the handler depends on.
type Service interface {
	ImportNDJSON(ctx context.Context, datasetID uuid.UUID, r io.Reader) (*model.ImportResult, error)
	ListPatientSeries(ctx context.Context, datasetID uuid.UUID) ([]*model.PatientSeries, error)
	GetPatientSeries(ctx context.Context, datasetID uuid.UUID, patientID string) (*model.PatientSeries, error)
	GetLesionMatrix(ctx context.Context, datasetID uuid.UUID, patientID string) (*model.LesionMatrix, error)
	DeleteDataset(ctx context.Context, datasetID uuid.UUID) error
}

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	datasets := r.Group("/datasets")
	{
		datasets.POST("/:id/records", h.ImportRecords)
		datasets.DELETE("/:id", h.DeleteDataset)

		datasets.GET("/:id/series", h.ListSeries)
		datasets.GET("/:id/patients/:patientId/series", h.GetSeries)
		datasets.GET("/:id/patients/:patientId/lesions", h.GetLesionMatrix)
	}
}

// ImportRecords ingests an NDJSON request body, replacing the dataset.
func (h *Handler) ImportRecords(c *gin.Context) {
	datasetID, ok := h.datasetID(c)
	if !ok {
		return
	}

	result, err := h.service.ImportNDJSON(c.Request.Context(), datasetID, c.Request.Body)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, handler.NewSuccessResponse(result))
}

func (h *Handler) ListSeries(c *gin.Context) {
	datasetID, ok := h.datasetID(c)
	if !ok {
		return
	}

	series, err := h.service.ListPatientSeries(c.Request.Context(), datasetID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(series))
}

func (h *Handler) GetSeries(c *gin.Context) {
	datasetID, ok := h.datasetID(c)
	if !ok {
		return
	}

	series, err := h.service.GetPatientSeries(c.Request.Context(), datasetID, c.Param("patientId"))
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(series))
}

func (h *Handler) GetLesionMatrix(c *gin.Context) {
	datasetID, ok := h.datasetID(c)
	if !ok {
		return
	}

	matrix, err := h.service.GetLesionMatrix(c.Request.Context(), datasetID, c.Param("patientId"))
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(matrix))
}

func (h *Handler) DeleteDataset(c *gin.Context) {
	datasetID, ok := h.datasetID(c)
	if !ok {
		return
	}

	if err := h.service.DeleteDataset(c.Request.Context(), datasetID); err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(gin.H{"deleted": datasetID}))
}

func (h *Handler) datasetID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid dataset ID"))
		return uuid.Nil, false
	}
	return id, true
}

func (h *Handler) respondError(c *gin.Context, err error) {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		c.JSON(appErr.StatusCode(), handler.NewErrorResponse(appErr.Message))
		return
	}
	_ = c.Error(err)
	c.JSON(http.StatusInternalServerError, handler.NewErrorResponse("internal server error"))
}
