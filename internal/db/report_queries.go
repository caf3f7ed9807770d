package db

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// ReportRecord is a moderation report with reporter and admin identities.
type ReportRecord struct {
	ID          string       `json:"id"`
	TargetType  string       `json:"target_type"`
	TargetID    string       `json:"target_id"`
	Reason      string       `json:"reason"`
	Description *string      `json:"description,omitempty"`
	Status      string       `json:"status"`
	ReporterID  string       `json:"reporter_id"`
	Reporter    *UserSummary `json:"reporter,omitempty"`
	AdminID     *string      `json:"admin_id,omitempty"`
	Admin       *UserSummary `json:"admin,omitempty"`
	AdminNote   *string      `json:"admin_note,omitempty"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

// CreateReportParams describes a new report. Status always starts OPEN.
type CreateReportParams struct {
	TargetType  string
	TargetID    string
	Reason      string
	Description *string
	ReporterID  string
}

// ResolveReportParams records an admin decision.
type ResolveReportParams struct {
	Status    string
	AdminID   string
	AdminNote *string
}

const reportSelect = `
SELECT
	r.id::text,
	r.target_type,
	r.target_id,
	r.reason,
	r.description,
	r.status,
	r.reporter_id::text,
	rep.id::text,
	rep.email,
	rep.display_name,
	r.admin_id::text,
	adm.id::text,
	adm.email,
	adm.display_name,
	r.admin_note,
	r.created_at,
	r.updated_at
FROM webnovels.reports r
LEFT JOIN webnovels.users rep ON rep.id = r.reporter_id
LEFT JOIN webnovels.users adm ON adm.id = r.admin_id
`

func scanReport(row interface{ Scan(dest ...any) error }) (*ReportRecord, error) {
	var rec ReportRecord
	var reporterID, reporterEmail, reporterName *string
	var adminID, adminEmail, adminName *string
	if err := row.Scan(
		&rec.ID,
		&rec.TargetType,
		&rec.TargetID,
		&rec.Reason,
		&rec.Description,
		&rec.Status,
		&rec.ReporterID,
		&reporterID,
		&reporterEmail,
		&reporterName,
		&rec.AdminID,
		&adminID,
		&adminEmail,
		&adminName,
		&rec.AdminNote,
		&rec.CreatedAt,
		&rec.UpdatedAt,
	); err != nil {
		return nil, err
	}
	rec.Reporter = optionalSummary(reporterID, reporterEmail, reporterName)
	rec.Admin = optionalSummary(adminID, adminEmail, adminName)
	return &rec, nil
}

func optionalSummary(id, email, displayName *string) *UserSummary {
	if id == nil {
		return nil
	}
	summary := &UserSummary{ID: *id}
	if email != nil {
		summary.Email = *email
	}
	if displayName != nil {
		summary.DisplayName = *displayName
	}
	return summary
}

func (p *Pool) CreateReport(ctx context.Context, params CreateReportParams) (*ReportRecord, error) {
	const q = `
INSERT INTO webnovels.reports (
	target_type,
	target_id,
	reason,
	description,
	status,
	reporter_id,
	created_at,
	updated_at
)
VALUES ($1, $2, $3, $4, 'OPEN', $5::uuid, now(), now())
RETURNING id::text
`

	var reportID string
	if err := p.QueryRow(ctx, q,
		strings.TrimSpace(params.TargetType),
		strings.TrimSpace(params.TargetID),
		strings.TrimSpace(params.Reason),
		params.Description,
		params.ReporterID,
	).Scan(&reportID); err != nil {
		return nil, fmt.Errorf("insert report: %w", err)
	}
	return p.GetReport(ctx, reportID)
}

func (p *Pool) GetReport(ctx context.Context, reportID string) (*ReportRecord, error) {
	q := reportSelect + `WHERE r.id = $1::uuid LIMIT 1`

	rec, err := scanReport(p.QueryRow(ctx, q, reportID))
	if err != nil {
		if IsNoRows(err) {
			return nil, ErrNoRows
		}
		return nil, fmt.Errorf("query report: %w", err)
	}
	return rec, nil
}

// ListReports lists reports newest first, optionally filtered by status.
func (p *Pool) ListReports(ctx context.Context, status string) ([]ReportRecord, error) {
	q := reportSelect + `
WHERE ($1 = '' OR r.status = $1)
ORDER BY r.created_at DESC, r.id
`

	rows, err := p.Query(ctx, q, strings.TrimSpace(status))
	if err != nil {
		return nil, fmt.Errorf("query reports: %w", err)
	}
	defer rows.Close()

	out := make([]ReportRecord, 0, 32)
	for rows.Next() {
		rec, err := scanReport(rows)
		if err != nil {
			return nil, fmt.Errorf("scan report row: %w", err)
		}
		out = append(out, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate report rows: %w", err)
	}
	return out, nil
}

// ResolveReport stores the admin decision and returns the updated report.
func (p *Pool) ResolveReport(ctx context.Context, reportID string, params ResolveReportParams) (*ReportRecord, error) {
	const q = `
UPDATE webnovels.reports
SET
	status = $2,
	admin_id = $3::uuid,
	admin_note = COALESCE($4, admin_note),
	updated_at = now()
WHERE id = $1::uuid
`

	if err := requireAffected(p.Exec(ctx, q, reportID, params.Status, params.AdminID, params.AdminNote)); err != nil {
		if IsNoRows(err) {
			return nil, ErrNoRows
		}
		return nil, fmt.Errorf("update report: %w", err)
	}
	return p.GetReport(ctx, reportID)
}
