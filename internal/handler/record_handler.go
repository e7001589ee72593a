package handler

import (
	"net/http"

	"clinic_backend/internal/middleware"
	"clinic_backend/internal/model"
	"clinic_backend/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// RecordHandler handles medical record requests
type RecordHandler struct {
	service service.RecordService
	logger  *zap.Logger
}

// NewRecordHandler creates a new RecordHandler
func NewRecordHandler(s service.RecordService, logger *zap.Logger) *RecordHandler {
	return &RecordHandler{service: s, logger: logger}
}

// recordID parses the :id path parameter. Malformed ids cannot match any
// record, so they are answered with 404.
func recordID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Medical record not found", "code": "not_found"})
		return uuid.Nil, false
	}
	return id, true
}

func (h *RecordHandler) ListRecords(c *gin.Context) {
	identity, _ := middleware.IdentityFrom(c)

	var q model.RecordQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		badRequest(c, "Invalid query: "+err.Error())
		return
	}

	records, err := h.service.ListRecords(c.Request.Context(), identity, q)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, records)
}

func (h *RecordHandler) GetRecord(c *gin.Context) {
	id, ok := recordID(c)
	if !ok {
		return
	}
	record, err := h.service.GetRecord(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, record)
}

func (h *RecordHandler) CreateRecord(c *gin.Context) {
	identity, _ := middleware.IdentityFrom(c)

	var req model.CreateMedicalRecordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request: "+err.Error())
		return
	}

	record, err := h.service.CreateRecord(c.Request.Context(), identity, req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"message":         "Medical record created",
		"medicalRecordId": record.ID,
		"medicalRecord":   record,
	})
}

// UpdateRecord changes symptoms, diagnosis, prescription, notes or
// attachments. Other fields in the body are ignored.
func (h *RecordHandler) UpdateRecord(c *gin.Context) {
	id, ok := recordID(c)
	if !ok {
		return
	}

	var req model.UpdateMedicalRecordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request: "+err.Error())
		return
	}

	record, err := h.service.UpdateRecord(c.Request.Context(), id, req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Medical record updated", "medicalRecord": record})
}

func (h *RecordHandler) DeleteRecord(c *gin.Context) {
	id, ok := recordID(c)
	if !ok {
		return
	}
	if err := h.service.DeleteRecord(c.Request.Context(), id); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Medical record deleted", "deletedId": id})
}

// RegisterRecordRoutes registers medical record routes
func (h *RecordHandler) RegisterRecordRoutes(rg *gin.RouterGroup, guard *middleware.Guard) {
	records := rg.Group("/medical-records")
	{
		records.GET("", guard.For(middleware.OpListRecords), h.ListRecords)
		records.POST("", guard.For(middleware.OpCreateRecord), h.CreateRecord)
		records.GET("/:id", guard.For(middleware.OpGetRecord), h.GetRecord)
		records.PATCH("/:id", guard.For(middleware.OpUpdateRecord), h.UpdateRecord)
		records.DELETE("/:id", guard.For(middleware.OpDeleteRecord), h.DeleteRecord)
	}
}
