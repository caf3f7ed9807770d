package moderation

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"horse.fit/webnovels/internal/db"
)

var (
	ErrReportNotFound    = errors.New("report not found")
	ErrContentNotFound   = errors.New("reported content not found")
	ErrInvalidAction     = errors.New("action must be one of none, delete_content, ban_user")
	ErrInvalidStatus     = errors.New("status must be one of OPEN, IN_REVIEW, RESOLVED, REJECTED")
	ErrInvalidReason     = errors.New("reason must be one of SPAM, ABUSE, INAPPROPRIATE, COPYRIGHT, OTHER")
	ErrInvalidTarget     = errors.New("targetType and targetId are required")
	ErrDescriptionLength = errors.New("description must be at least 3 characters")
)

const NotificationReportResolved = "REPORT_RESOLVED"

type Store interface {
	TargetStore
	CreateReport(ctx context.Context, params db.CreateReportParams) (*db.ReportRecord, error)
	GetReport(ctx context.Context, reportID string) (*db.ReportRecord, error)
	ListReports(ctx context.Context, status string) ([]db.ReportRecord, error)
	ResolveReport(ctx context.Context, reportID string, params db.ResolveReportParams) (*db.ReportRecord, error)
	DeleteComment(ctx context.Context, commentID string) error
	DeleteChapter(ctx context.Context, chapterID string) error
}

// Notifier delivers a notification to one user.
type Notifier interface {
	Notify(ctx context.Context, userID, kind string, payload any) error
}

type CreateParams struct {
	TargetType  string
	TargetID    string
	Reason      string
	Description *string
	ReporterID  string
}

// ProcessParams is an admin decision. Blank Status means RESOLVED, blank Action means none.
type ProcessParams struct {
	Status    string
	Action    string
	AdminNote *string
}

type Service struct {
	store    Store
	resolver *Resolver
	notifier Notifier
	log      zerolog.Logger
}

func NewService(store Store, notifier Notifier, log zerolog.Logger) *Service {
	return &Service{
		store:    store,
		resolver: NewResolver(store),
		notifier: notifier,
		log:      log.With().Str("component", "moderation").Logger(),
	}
}

func (s *Service) CreateReport(ctx context.Context, params CreateParams) (*db.ReportRecord, error) {
	targetType := NormalizeTargetType(params.TargetType)
	targetID := strings.TrimSpace(params.TargetID)
	if targetType == "" || targetID == "" {
		return nil, ErrInvalidTarget
	}
	reason, ok := ParseReason(params.Reason)
	if !ok {
		return nil, ErrInvalidReason
	}
	var description *string
	if params.Description != nil {
		trimmed := strings.TrimSpace(*params.Description)
		if len([]rune(trimmed)) < 3 {
			return nil, ErrDescriptionLength
		}
		description = &trimmed
	}

	report, err := s.store.CreateReport(ctx, db.CreateReportParams{
		TargetType:  string(targetType),
		TargetID:    targetID,
		Reason:      string(reason),
		Description: description,
		ReporterID:  params.ReporterID,
	})
	if err != nil {
		return nil, fmt.Errorf("create report: %w", err)
	}
	return report, nil
}

// ListReports lists reports newest first. A blank status lists all.
func (s *Service) ListReports(ctx context.Context, status string) ([]db.ReportRecord, error) {
	filter := ""
	if strings.TrimSpace(status) != "" {
		parsed, ok := ParseStatus(status)
		if !ok {
			return nil, ErrInvalidStatus
		}
		filter = string(parsed)
	}
	reports, err := s.store.ListReports(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}
	return reports, nil
}

func (s *Service) GetReportWithTarget(ctx context.Context, reportID string) (*ReportWithTarget, error) {
	report, err := s.loadReport(ctx, reportID)
	if err != nil {
		return nil, err
	}
	target, err := s.resolver.ResolveTarget(ctx, report)
	if err != nil {
		return nil, err
	}
	return &ReportWithTarget{Report: report, Target: target}, nil
}

// ProcessReport applies the admin action, then records the decision.
// Failed actions leave the report unchanged.
func (s *Service) ProcessReport(ctx context.Context, reportID, adminID string, params ProcessParams) (*db.ReportRecord, error) {
	report, err := s.loadReport(ctx, reportID)
	if err != nil {
		return nil, err
	}

	action, ok := ParseAction(params.Action)
	if !ok {
		return nil, ErrInvalidAction
	}
	status := StatusResolved
	if strings.TrimSpace(params.Status) != "" {
		if status, ok = ParseStatus(params.Status); !ok {
			return nil, ErrInvalidStatus
		}
	}

	switch action {
	case ActionDeleteContent:
		if err := s.deleteContent(ctx, report); err != nil {
			return nil, err
		}
	case ActionBanUser:
		if err := s.flagAuthor(ctx, report); err != nil {
			return nil, err
		}
	}

	updated, err := s.store.ResolveReport(ctx, report.ID, db.ResolveReportParams{
		Status:    string(status),
		AdminID:   adminID,
		AdminNote: params.AdminNote,
	})
	if err != nil {
		if db.IsNoRows(err) {
			return nil, ErrReportNotFound
		}
		return nil, fmt.Errorf("resolve report: %w", err)
	}

	s.log.Info().
		Str("report_id", updated.ID).
		Str("admin_id", adminID).
		Str("action", string(action)).
		Str("status", updated.Status).
		Msg("report processed")

	if status.Terminal() {
		s.notifyReporter(ctx, updated)
	}
	return updated, nil
}

func (s *Service) loadReport(ctx context.Context, reportID string) (*db.ReportRecord, error) {
	if _, err := uuid.Parse(strings.TrimSpace(reportID)); err != nil {
		return nil, ErrReportNotFound
	}
	report, err := s.store.GetReport(ctx, strings.TrimSpace(reportID))
	if err != nil {
		if db.IsNoRows(err) {
			return nil, ErrReportNotFound
		}
		return nil, fmt.Errorf("load report: %w", err)
	}
	return report, nil
}

func (s *Service) deleteContent(ctx context.Context, report *db.ReportRecord) error {
	var del func(context.Context, string) error
	switch NormalizeTargetType(report.TargetType) {
	case TargetComment:
		del = s.store.DeleteComment
	case TargetChapter:
		del = s.store.DeleteChapter
	default:
		s.log.Warn().Str("report_id", report.ID).Str("target_type", report.TargetType).Msg("delete_content has no handler for target type")
		return nil
	}

	if _, err := uuid.Parse(report.TargetID); err != nil {
		return ErrContentNotFound
	}
	if err := del(ctx, report.TargetID); err != nil {
		if db.IsNoRows(err) {
			return ErrContentNotFound
		}
		return fmt.Errorf("delete reported content: %w", err)
	}
	s.log.Info().Str("report_id", report.ID).Str("target_type", report.TargetType).Str("target_id", report.TargetID).Msg("reported content deleted")
	return nil
}

// flagAuthor identifies the accountable user. Account suspension is not implemented.
func (s *Service) flagAuthor(ctx context.Context, report *db.ReportRecord) error {
	target, err := s.resolver.ResolveTarget(ctx, report)
	if err != nil {
		return err
	}
	if target == nil || target.AuthorID() == "" {
		s.log.Warn().Str("report_id", report.ID).Msg("ban_user requested but the reported content has no resolvable author")
		return nil
	}
	s.log.Warn().
		Str("report_id", report.ID).
		Str("author_id", target.AuthorID()).
		Str("target_type", string(target.Type())).
		Msg("ban_user requested for author")
	return nil
}

func (s *Service) notifyReporter(ctx context.Context, report *db.ReportRecord) {
	if s.notifier == nil || report.ReporterID == "" {
		return
	}
	payload := map[string]any{
		"reportId":   report.ID,
		"status":     report.Status,
		"targetType": report.TargetType,
		"targetId":   report.TargetID,
	}
	if err := s.notifier.Notify(ctx, report.ReporterID, NotificationReportResolved, payload); err != nil {
		s.log.Warn().Err(err).Str("report_id", report.ID).Msg("failed to notify reporter")
	}
}
