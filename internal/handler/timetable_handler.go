package handler

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/college-timetable-api/internal/dto"
	"github.com/noah-isme/college-timetable-api/internal/service"
	appErrors "github.com/noah-isme/college-timetable-api/pkg/errors"
	"github.com/noah-isme/college-timetable-api/pkg/response"
)

// TimetableHandler wires timetable generation and retrieval to HTTP routes.
type TimetableHandler struct {
	timetables     *service.TimetableService
	exportsEnabled bool
}

// NewTimetableHandler constructs a new TimetableHandler.
func NewTimetableHandler(timetables *service.TimetableService, exportsEnabled bool) *TimetableHandler {
	return &TimetableHandler{timetables: timetables, exportsEnabled: exportsEnabled}
}

// Generate godoc
// @Summary Generate a timetable
// @Description Build the weekly grid for a branch semester and replace any stored one
// @Tags Timetables
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body dto.GenerateTimetableRequest true "Generation payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /timetables/generate [post]
func (h *TimetableHandler) Generate(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req dto.GenerateTimetableRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid generation payload"))
		return
	}

	res, err := h.timetables.Generate(c.Request.Context(), claims.CollegeID, claims.CollegeID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, res)
}

// GetByKey godoc
// @Summary Get the timetable for a branch semester
// @Tags Timetables
// @Produce json
// @Security BearerAuth
// @Param branchId path string true "Branch ID"
// @Param semester path int true "Semester"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /timetables/branch/{branchId}/semester/{semester} [get]
func (h *TimetableHandler) GetByKey(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	semester, err := strconv.Atoi(c.Param("semester"))
	if err != nil || semester < 1 {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "semester must be a positive integer"))
		return
	}

	view, err := h.timetables.GetByKey(c.Request.Context(), claims.CollegeID, c.Param("branchId"), semester)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, view, nil)
}

// Get godoc
// @Summary Get timetable detail
// @Tags Timetables
// @Produce json
// @Security BearerAuth
// @Param id path string true "Timetable ID"
// @Success 200 {object} response.Envelope
// @Router /timetables/{id} [get]
func (h *TimetableHandler) Get(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	view, err := h.timetables.Get(c.Request.Context(), claims.CollegeID, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, view, nil)
}

// Update godoc
// @Summary Replace a timetable's schedule
// @Tags Timetables
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Timetable ID"
// @Param payload body dto.UpdateTimetableRequest true "Schedule payload"
// @Success 200 {object} response.Envelope
// @Router /timetables/{id} [put]
func (h *TimetableHandler) Update(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req dto.UpdateTimetableRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid schedule payload"))
		return
	}

	view, err := h.timetables.Update(c.Request.Context(), claims.CollegeID, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, view, nil)
}

// Delete godoc
// @Summary Delete timetable
// @Tags Timetables
// @Produce json
// @Security BearerAuth
// @Param id path string true "Timetable ID"
// @Success 204 "No Content"
// @Router /timetables/{id} [delete]
func (h *TimetableHandler) Delete(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	if err := h.timetables.Delete(c.Request.Context(), claims.CollegeID, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Export godoc
// @Summary Export a timetable
// @Description Download the timetable as CSV or PDF
// @Tags Timetables
// @Produce octet-stream
// @Security BearerAuth
// @Param id path string true "Timetable ID"
// @Param format query string false "Export format (csv,pdf)" default(csv)
// @Success 200 {file} binary
// @Router /timetables/{id}/export [get]
func (h *TimetableHandler) Export(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	if !h.exportsEnabled {
		response.Error(c, appErrors.Clone(appErrors.ErrForbidden, "timetable exports are disabled"))
		return
	}

	format := service.ExportFormat(strings.ToLower(c.DefaultQuery("format", string(service.ExportFormatCSV))))
	result, err := h.timetables.Export(c.Request.Context(), claims.CollegeID, c.Param("id"), format)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", result.FileName))
	c.Data(http.StatusOK, result.ContentType, result.Content)
}
