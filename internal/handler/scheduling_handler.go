package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/opencampus/campus-api/internal/dto"
	"github.com/opencampus/campus-api/internal/models"
	"github.com/opencampus/campus-api/internal/service"
	appErrors "github.com/opencampus/campus-api/pkg/errors"
	"github.com/opencampus/campus-api/pkg/response"
)

type schedulingAPI interface {
	Generate(ctx context.Context, req dto.GenerateScheduleRequest) (*dto.GenerateScheduleResponse, error)
	Proposal(ctx context.Context, id string) (*dto.ProposalView, error)
	Save(ctx context.Context, req dto.SaveScheduleRequest) (*dto.SaveScheduleResponse, error)
	ListSchedule(ctx context.Context, semester string) ([]models.Schedule, error)
}

type timetableExporter interface {
	ExportTimetable(ctx context.Context, semester, format string) (*service.ExportResult, error)
}

// SchedulingHandler exposes the timetable generator endpoints.
type SchedulingHandler struct {
	service  schedulingAPI
	exporter timetableExporter
}

// NewSchedulingHandler constructs the handler.
func NewSchedulingHandler(svc *service.SchedulingService, exporter *service.ExportService) *SchedulingHandler {
	return &SchedulingHandler{service: svc, exporter: exporter}
}

// Routes registers the scheduler endpoints on the given group.
func (h *SchedulingHandler) Routes(r *gin.RouterGroup) {
	r.POST("/schedules/generate", h.Generate)
	r.GET("/schedules/proposals/:id", h.Proposal)
	r.POST("/schedules/save", h.Save)
	r.GET("/schedules", h.List)
	r.GET("/schedules/export", h.Export)
}

// Generate queues a timetable solve for the semester.
func (h *SchedulingHandler) Generate(c *gin.Context) {
	var req dto.GenerateScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid generate payload"))
		return
	}
	result, err := h.service.Generate(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusAccepted, result)
}

// Proposal returns the state of one generated proposal.
func (h *SchedulingHandler) Proposal(c *gin.Context) {
	view, err := h.service.Proposal(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, view)
}

// Save persists a solved proposal as the semester timetable.
func (h *SchedulingHandler) Save(c *gin.Context) {
	var req dto.SaveScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid save payload"))
		return
	}
	result, err := h.service.Save(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, result)
}

// List returns the persisted timetable rows for a semester.
func (h *SchedulingHandler) List(c *gin.Context) {
	rows, err := h.service.ListSchedule(c.Request.Context(), c.Query("semester"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rows)
}

// Export streams the saved timetable as PDF or CSV.
func (h *SchedulingHandler) Export(c *gin.Context) {
	result, err := h.exporter.ExportTimetable(c.Request.Context(), c.Query("semester"), c.Query("format"))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+result.Filename+`"`)
	c.Data(http.StatusOK, result.ContentType, result.Content)
}
