package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/coursewatch/coursewatch-api/internal/models"
	"github.com/coursewatch/coursewatch-api/internal/service"
	appErrors "github.com/coursewatch/coursewatch-api/pkg/errors"
	"github.com/coursewatch/coursewatch-api/pkg/response"
)

type monitorService interface {
	Create(ctx context.Context, req service.CreateMonitorRequest) (*models.Monitor, error)
	Get(ctx context.Context, id string) (*models.Monitor, error)
	List(ctx context.Context, filter models.MonitorFilter) ([]models.Monitor, *models.Pagination, error)
	Update(ctx context.Context, id string, req service.UpdateMonitorRequest) (*models.Monitor, error)
	Delete(ctx context.Context, id string) error
	Purge(ctx context.Context, id string) error
}

// MonitorHandler exposes monitor CRUD endpoints.
type MonitorHandler struct {
	monitors monitorService
}

// NewMonitorHandler constructs MonitorHandler.
func NewMonitorHandler(monitors monitorService) *MonitorHandler {
	return &MonitorHandler{monitors: monitors}
}

// List godoc
// @Summary List monitors
// @Tags Monitors
// @Produce json
// @Param term query string false "Filter by term"
// @Param subject query string false "Filter by subject"
// @Param courseNumber query string false "Filter by course number"
// @Param active query bool false "Filter by active state"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /monitors [get]
func (h *MonitorHandler) List(c *gin.Context) {
	var filter models.MonitorFilter
	filter.Term = strings.TrimSpace(c.Query("term"))
	filter.Subject = c.Query("subject")
	filter.CourseNumber = c.Query("courseNumber")
	if active := c.Query("active"); active != "" {
		if active == "true" {
			v := true
			filter.Active = &v
		} else if active == "false" {
			v := false
			filter.Active = &v
		}
	}
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = size
	}

	monitors, pagination, err := h.monitors.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, monitors, pagination)
}

// Create godoc
// @Summary Register a course monitor
// @Tags Monitors
// @Accept json
// @Produce json
// @Param payload body service.CreateMonitorRequest true "Monitor payload"
// @Success 201 {object} response.Envelope
// @Router /monitors [post]
func (h *MonitorHandler) Create(c *gin.Context) {
	var req service.CreateMonitorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	monitor, err := h.monitors.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, monitor)
}

// Get godoc
// @Summary Get monitor detail
// @Tags Monitors
// @Produce json
// @Param id path string true "Monitor ID"
// @Success 200 {object} response.Envelope
// @Router /monitors/{id} [get]
func (h *MonitorHandler) Get(c *gin.Context) {
	monitor, err := h.monitors.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, monitor, nil)
}

// Update godoc
// @Summary Update monitor preferences
// @Tags Monitors
// @Accept json
// @Produce json
// @Param id path string true "Monitor ID"
// @Param payload body service.UpdateMonitorRequest true "Preference payload"
// @Success 200 {object} response.Envelope
// @Router /monitors/{id} [patch]
func (h *MonitorHandler) Update(c *gin.Context) {
	var req service.UpdateMonitorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	monitor, err := h.monitors.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, monitor, nil)
}

// Delete godoc
// @Summary Stop and soft-delete a monitor
// @Tags Monitors
// @Param id path string true "Monitor ID"
// @Success 204
// @Router /monitors/{id} [delete]
func (h *MonitorHandler) Delete(c *gin.Context) {
	if err := h.monitors.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Purge godoc
// @Summary Hard-delete a monitor and its history
// @Tags Monitors
// @Security BearerAuth
// @Param id path string true "Monitor ID"
// @Success 204
// @Router /monitors/{id}/purge [delete]
func (h *MonitorHandler) Purge(c *gin.Context) {
	if err := h.monitors.Purge(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
