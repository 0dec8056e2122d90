package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/coursewatch/coursewatch-api/internal/models"
	appErrors "github.com/coursewatch/coursewatch-api/pkg/errors"
	"github.com/coursewatch/coursewatch-api/pkg/response"
)

type courseChecker interface {
	CheckOnce(ctx context.Context, term, subject, courseNumber string) (*models.CourseDocument, error)
}

// CourseHandler serves ad-hoc course lookups. Lookups go straight to
// the upstream client and never touch snapshot history.
type CourseHandler struct {
	engine courseChecker
}

// NewCourseHandler constructs CourseHandler.
func NewCourseHandler(engine courseChecker) *CourseHandler {
	return &CourseHandler{engine: engine}
}

// Search godoc
// @Summary Look up a course by query parameters
// @Tags Courses
// @Produce json
// @Param term query string true "Term code"
// @Param subject query string true "Subject"
// @Param courseNumber query string true "Course number"
// @Success 200 {object} response.Envelope
// @Router /courses/search [get]
func (h *CourseHandler) Search(c *gin.Context) {
	term := strings.TrimSpace(c.Query("term"))
	subject := strings.TrimSpace(c.Query("subject"))
	courseNumber := strings.TrimSpace(c.Query("courseNumber"))
	if term == "" || subject == "" || courseNumber == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "term, subject and courseNumber are required"))
		return
	}

	doc, err := h.engine.CheckOnce(c.Request.Context(), term, subject, courseNumber)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, doc, nil)
}

// Get godoc
// @Summary Get live course availability
// @Tags Courses
// @Produce json
// @Param term path string true "Term code"
// @Param subject path string true "Subject"
// @Param courseNumber path string true "Course number"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /terms/{term}/courses/{subject}/{courseNumber} [get]
func (h *CourseHandler) Get(c *gin.Context) {
	doc, err := h.engine.CheckOnce(c.Request.Context(), c.Param("term"), c.Param("subject"), c.Param("courseNumber"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, doc, nil)
}
