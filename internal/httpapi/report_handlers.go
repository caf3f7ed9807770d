package httpapi

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"horse.fit/webnovels/internal/db"
	"horse.fit/webnovels/internal/moderation"
	payloadschema "horse.fit/webnovels/internal/schema"
)

type reportService interface {
	CreateReport(ctx context.Context, params moderation.CreateParams) (*db.ReportRecord, error)
	ListReports(ctx context.Context, status string) ([]db.ReportRecord, error)
	GetReportWithTarget(ctx context.Context, reportID string) (*moderation.ReportWithTarget, error)
	ProcessReport(ctx context.Context, reportID, adminID string, params moderation.ProcessParams) (*db.ReportRecord, error)
}

func (s *Server) handleCreateReport(c echo.Context) error {
	principal, ok := principalFromContext(c)
	if !ok {
		return unauthorizedResponse(c)
	}

	raw, err := readBody(c)
	if err != nil {
		return failValidation(c, map[string]string{"body": err.Error()})
	}
	req, err := payloadschema.DecodeReportCreate(raw)
	if err != nil {
		return failValidation(c, map[string]string{"body": err.Error()})
	}

	report, err := s.svc.Reports.CreateReport(requestContext(c), moderation.CreateParams{
		TargetType:  req.TargetType,
		TargetID:    req.TargetID,
		Reason:      req.Reason,
		Description: req.Description,
		ReporterID:  principal.UserID,
	})
	if err != nil {
		return s.serviceError(c, err, "Failed to create report")
	}
	return successWithStatus(c, http.StatusCreated, report)
}

func (s *Server) handleListReports(c echo.Context) error {
	reports, err := s.svc.Reports.ListReports(requestContext(c), c.QueryParam("status"))
	if err != nil {
		return s.serviceError(c, err, "Failed to load reports")
	}
	return success(c, map[string]any{"items": reports})
}

func (s *Server) handleReportDetail(c echo.Context) error {
	report, err := s.svc.Reports.GetReportWithTarget(requestContext(c), c.Param("id"))
	if err != nil {
		return s.serviceError(c, err, "Failed to load report")
	}
	return success(c, report)
}

func (s *Server) handleProcessReport(c echo.Context) error {
	principal, ok := principalFromContext(c)
	if !ok {
		return unauthorizedResponse(c)
	}

	raw, err := readBody(c)
	if err != nil {
		return failValidation(c, map[string]string{"body": err.Error()})
	}
	req, err := payloadschema.DecodeReportProcess(raw)
	if err != nil {
		return failValidation(c, map[string]string{"body": err.Error()})
	}

	report, err := s.svc.Reports.ProcessReport(requestContext(c), c.Param("id"), principal.UserID, moderation.ProcessParams{
		Status:    req.Status,
		Action:    req.Action,
		AdminNote: req.AdminNote,
	})
	if err != nil {
		return s.serviceError(c, err, "Failed to process report")
	}
	return success(c, report)
}
