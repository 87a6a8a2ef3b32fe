package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/ksy070822/petmily-backend/internal/diagnosis"
	"github.com/ksy070822/petmily-backend/internal/service"
	"github.com/ksy070822/petmily-backend/pkg/model"
	"go.uber.org/zap"
)

// DiagnosisHandler implements diagnosis API endpoints
type DiagnosisHandler struct {
	service *service.DiagnosisService
	logger  *zap.Logger
}

// NewDiagnosisHandler creates a new DiagnosisHandler
func NewDiagnosisHandler(service *service.DiagnosisService, logger *zap.Logger) *DiagnosisHandler {
	return &DiagnosisHandler{
		service: service,
		logger:  logger,
	}
}

// RunDiagnosis runs the full pipeline synchronously and returns the record
func (h *DiagnosisHandler) RunDiagnosis(c *gin.Context) {
	gID, ok := guardianID(c)
	if !ok {
		return
	}

	var report model.SymptomReport
	if err := c.ShouldBindJSON(&report); err != nil {
		h.logger.Error("invalid request body", zap.Error(err))
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Code:    "VALIDATION_ERROR",
			Message: "Invalid request body",
			Details: stringPtr(err.Error()),
		})
		return
	}

	record, err := h.service.RunDiagnosis(c.Request.Context(), gID, c.Param("petId"), report, nil, requestMeta(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, record)
}

// StreamDiagnosis runs the pipeline while streaming progress events to the
// client as server-sent events. The final event carries the stored record.
func (h *DiagnosisHandler) StreamDiagnosis(c *gin.Context) {
	gID, ok := guardianID(c)
	if !ok {
		return
	}

	var report model.SymptomReport
	if err := c.ShouldBindJSON(&report); err != nil {
		h.logger.Error("invalid request body", zap.Error(err))
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Code:    "VALIDATION_ERROR",
			Message: "Invalid request body",
			Details: stringPtr(err.Error()),
		})
		return
	}

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.Flush()

	events := make(chan diagnosis.ProgressEvent, 32)
	done := make(chan struct{})

	type outcome struct {
		record *model.DiagnosisRecord
		err    error
	}
	result := make(chan outcome, 1)

	go func() {
		defer close(events)
		record, err := h.service.RunDiagnosis(c.Request.Context(), gID, c.Param("petId"), report, func(ev diagnosis.ProgressEvent) {
			select {
			case events <- ev:
			case <-done:
			}
		}, requestMeta(c))
		result <- outcome{record: record, err: err}
	}()
	defer close(done)

	for ev := range events {
		writeSSE(c, string(ev.Kind), ev)
	}

	out := <-result
	if out.err != nil {
		h.logger.Error("streamed diagnosis failed",
			zap.Error(out.err),
			zap.String("guardian_id", gID),
		)
		writeSSE(c, "error", gin.H{"message": out.err.Error()})
		return
	}

	writeSSE(c, "result", out.record)
}

// GetDiagnosis retrieves one diagnosis record
func (h *DiagnosisHandler) GetDiagnosis(c *gin.Context) {
	gID, ok := guardianID(c)
	if !ok {
		return
	}

	record, err := h.service.GetDiagnosis(c.Request.Context(), gID, c.Param("diagnosisId"), requestMeta(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, record)
}

// History lists a pet's recent diagnosis records
func (h *DiagnosisHandler) History(c *gin.Context) {
	gID, ok := guardianID(c)
	if !ok {
		return
	}

	limit := 10
	if v := c.Query("limit"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{
				Code:    "VALIDATION_ERROR",
				Message: "Invalid limit",
			})
			return
		}
		limit = parsed
	}

	records, err := h.service.History(c.Request.Context(), gID, c.Param("petId"), limit)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"diagnoses": records})
}

// ShareRequest is the body of the share flags update
type ShareRequest struct {
	SharedToClinic   bool `json:"shared_to_clinic"`
	SharedToGuardian bool `json:"shared_to_guardian"`
}

// Share updates the share flags of a diagnosis record
func (h *DiagnosisHandler) Share(c *gin.Context) {
	gID, ok := guardianID(c)
	if !ok {
		return
	}

	var req ShareRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("invalid request body", zap.Error(err))
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Code:    "VALIDATION_ERROR",
			Message: "Invalid request body",
			Details: stringPtr(err.Error()),
		})
		return
	}

	if err := h.service.Share(c.Request.Context(), gID, c.Param("diagnosisId"), req.SharedToClinic, req.SharedToGuardian, requestMeta(c)); err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "updated"})
}

// PacketPDF serves the previsit packet of a diagnosis as a PDF download
func (h *DiagnosisHandler) PacketPDF(c *gin.Context) {
	gID, ok := guardianID(c)
	if !ok {
		return
	}

	diagnosisID := c.Param("diagnosisId")
	data, err := h.service.PacketPDF(c.Request.Context(), gID, diagnosisID, requestMeta(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="previsit-%s.pdf"`, diagnosisID))
	c.Data(http.StatusOK, "application/pdf", data)
}

// UploadSymptomImage stores a symptom photo for a pet. The returned path
// goes into the image_urls field of a later symptom report.
func (h *DiagnosisHandler) UploadSymptomImage(c *gin.Context) {
	gID, ok := guardianID(c)
	if !ok {
		return
	}

	file, header, err := c.Request.FormFile("image")
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Code:    "VALIDATION_ERROR",
			Message: "Missing image file",
			Details: stringPtr(err.Error()),
		})
		return
	}
	defer file.Close()

	path, err := h.service.AttachSymptomImage(c.Request.Context(), gID, c.Param("petId"), header.Filename, file)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"image_url": path})
}

// writeSSE writes one server-sent event and flushes it to the client
func writeSSE(c *gin.Context, event string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	fmt.Fprintf(c.Writer, "event: %s\ndata: %s\n\n", event, data)
	c.Writer.Flush()
}
