package service

import (
	"context"
	"fmt"

	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/opencampus/campus-api/internal/models"
	appErrors "github.com/opencampus/campus-api/pkg/errors"
	"github.com/opencampus/campus-api/pkg/export"
)

type scheduleLister interface {
	ListBySemester(ctx context.Context, semester string) ([]models.Schedule, error)
}

// ExportService renders the persisted semester timetable as a download.
type ExportService struct {
	schedules scheduleLister
	pdf       *export.PDFExporter
	csv       *export.CSVExporter
	logger    *zap.Logger
}

// NewExportService constructs the exporter.
func NewExportService(schedules scheduleLister, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{
		schedules: schedules,
		pdf:       export.NewPDFExporter(),
		csv:       export.NewCSVExporter(),
		logger:    logger,
	}
}

// ExportResult is a rendered timetable ready to serve.
type ExportResult struct {
	Content     []byte
	ContentType string
	Filename    string
}

var timetableHeaders = []string{"Section", "Classroom", "Day", "Start", "End"}

// ExportTimetable renders the semester's saved schedule as "pdf" or "csv".
func (s *ExportService) ExportTimetable(ctx context.Context, semester, format string) (*ExportResult, error) {
	if semester == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "semester is required")
	}

	rows, err := s.schedules.ListBySemester(ctx, semester)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load schedule")
	}
	if len(rows) == 0 {
		return nil, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("no saved schedule for semester %s", semester))
	}

	dataset := export.Dataset{
		Headers: timetableHeaders,
		Rows: lo.Map(rows, func(row models.Schedule, _ int) map[string]string {
			return map[string]string{
				"Section":   row.SectionID,
				"Classroom": row.ClassroomID,
				"Day":       models.DayName(row.DayOfWeek),
				"Start":     row.StartTime,
				"End":       row.EndTime,
			}
		}),
	}

	switch format {
	case "csv":
		content, err := s.csv.Render(dataset)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv")
		}
		return &ExportResult{
			Content:     content,
			ContentType: "text/csv",
			Filename:    fmt.Sprintf("timetable-%s.csv", semester),
		}, nil
	case "", "pdf":
		content, err := s.pdf.Render(dataset, fmt.Sprintf("Timetable %s", semester))
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf")
		}
		return &ExportResult{
			Content:     content,
			ContentType: "application/pdf",
			Filename:    fmt.Sprintf("timetable-%s.pdf", semester),
		}, nil
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported export format %q", format))
	}
}
