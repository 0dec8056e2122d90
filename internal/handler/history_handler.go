package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/coursewatch/coursewatch-api/internal/models"
	"github.com/coursewatch/coursewatch-api/internal/service"
	"github.com/coursewatch/coursewatch-api/pkg/response"
)

type historyService interface {
	MonitorHistory(ctx context.Context, monitorID string, limit int) ([]models.Snapshot, error)
	CourseHistory(ctx context.Context, subject, courseNumber string, limit int) ([]models.Snapshot, error)
	Notifications(ctx context.Context, monitorID string, limit int) ([]models.NotificationRecord, error)
	Export(ctx context.Context, monitorID, format string, limit int) (*service.ExportResult, error)
}

// HistoryHandler serves snapshot time-series and audit endpoints.
type HistoryHandler struct {
	history historyService
}

// NewHistoryHandler constructs HistoryHandler.
func NewHistoryHandler(history historyService) *HistoryHandler {
	return &HistoryHandler{history: history}
}

func queryLimit(c *gin.Context) int {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "100"))
	if err != nil {
		return 100
	}
	return limit
}

// MonitorHistory godoc
// @Summary Get a monitor's snapshot history
// @Tags History
// @Produce json
// @Param id path string true "Monitor ID"
// @Param limit query int false "Max rows"
// @Success 200 {object} response.Envelope
// @Router /monitors/{id}/history [get]
func (h *HistoryHandler) MonitorHistory(c *gin.Context) {
	snapshots, err := h.history.MonitorHistory(c.Request.Context(), c.Param("id"), queryLimit(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, snapshots, nil)
}

// CourseHistory godoc
// @Summary Get snapshot history for a course across monitors
// @Tags History
// @Produce json
// @Param term path string true "Term code"
// @Param subject path string true "Subject"
// @Param courseNumber path string true "Course number"
// @Param limit query int false "Max rows"
// @Success 200 {object} response.Envelope
// @Router /terms/{term}/courses/{subject}/{courseNumber}/history [get]
func (h *HistoryHandler) CourseHistory(c *gin.Context) {
	snapshots, err := h.history.CourseHistory(c.Request.Context(), c.Param("subject"), c.Param("courseNumber"), queryLimit(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, snapshots, nil)
}

// Export godoc
// @Summary Export a monitor's history as CSV or PDF
// @Tags History
// @Produce text/csv
// @Produce application/pdf
// @Param id path string true "Monitor ID"
// @Param format query string false "csv or pdf" default(csv)
// @Param limit query int false "Max rows"
// @Success 200 {file} file
// @Router /monitors/{id}/history/export [get]
func (h *HistoryHandler) Export(c *gin.Context) {
	result, err := h.history.Export(c.Request.Context(), c.Param("id"), c.Query("format"), queryLimit(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+result.Filename+`"`)
	c.Data(http.StatusOK, result.ContentType, result.Data)
}

// Notifications godoc
// @Summary List a monitor's notification audit trail
// @Tags History
// @Produce json
// @Param id path string true "Monitor ID"
// @Param limit query int false "Max rows"
// @Success 200 {object} response.Envelope
// @Router /monitors/{id}/notifications [get]
func (h *HistoryHandler) Notifications(c *gin.Context) {
	records, err := h.history.Notifications(c.Request.Context(), c.Param("id"), queryLimit(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, records, nil)
}
