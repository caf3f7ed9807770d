package moderation

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/rs/zerolog"

	"horse.fit/webnovels/internal/db"
)

const (
	reportID  = "6a0f6f8e-63f2-4b8d-9c1e-0d3a4b5c6d7e"
	commentID = "1c2d3e4f-5a6b-4c7d-8e9f-0a1b2c3d4e5f"
	chapterID = "2d3e4f5a-6b7c-4d8e-9f0a-1b2c3d4e5f6a"
	novelID   = "3e4f5a6b-7c8d-4e9f-8a1b-2c3d4e5f6a7b"
	adminID   = "4f5a6b7c-8d9e-4f0a-9b2c-3d4e5f6a7b8c"
)

type fakeStore struct {
	reports  map[string]*db.ReportRecord
	comments map[string]*db.CommentRecord
	chapters map[string]*db.ChapterRecord
	novels   map[string]*db.NovelRecord

	deletedComments []string
	deletedChapters []string
	resolved        []db.ResolveReportParams
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		reports:  map[string]*db.ReportRecord{},
		comments: map[string]*db.CommentRecord{},
		chapters: map[string]*db.ChapterRecord{},
		novels:   map[string]*db.NovelRecord{},
	}
}

func (s *fakeStore) GetComment(_ context.Context, id string) (*db.CommentRecord, error) {
	if c, ok := s.comments[id]; ok {
		return c, nil
	}
	return nil, db.ErrNoRows
}

func (s *fakeStore) GetChapter(_ context.Context, id string) (*db.ChapterRecord, error) {
	if c, ok := s.chapters[id]; ok {
		return c, nil
	}
	return nil, db.ErrNoRows
}

func (s *fakeStore) GetNovel(_ context.Context, id string) (*db.NovelRecord, error) {
	if n, ok := s.novels[id]; ok {
		return n, nil
	}
	return nil, db.ErrNoRows
}

func (s *fakeStore) CreateReport(_ context.Context, params db.CreateReportParams) (*db.ReportRecord, error) {
	rec := &db.ReportRecord{
		ID:          reportID,
		TargetType:  params.TargetType,
		TargetID:    params.TargetID,
		Reason:      params.Reason,
		Description: params.Description,
		Status:      string(StatusOpen),
		ReporterID:  params.ReporterID,
	}
	s.reports[rec.ID] = rec
	return rec, nil
}

func (s *fakeStore) GetReport(_ context.Context, id string) (*db.ReportRecord, error) {
	if r, ok := s.reports[id]; ok {
		copied := *r
		return &copied, nil
	}
	return nil, db.ErrNoRows
}

func (s *fakeStore) ListReports(_ context.Context, status string) ([]db.ReportRecord, error) {
	out := []db.ReportRecord{}
	for _, r := range s.reports {
		if status == "" || r.Status == status {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (s *fakeStore) ResolveReport(_ context.Context, id string, params db.ResolveReportParams) (*db.ReportRecord, error) {
	r, ok := s.reports[id]
	if !ok {
		return nil, db.ErrNoRows
	}
	s.resolved = append(s.resolved, params)
	r.Status = params.Status
	admin := params.AdminID
	r.AdminID = &admin
	r.Admin = &db.UserSummary{ID: admin, Email: "admin@example.com", DisplayName: "Admin"}
	if params.AdminNote != nil {
		r.AdminNote = params.AdminNote
	}
	copied := *r
	return &copied, nil
}

func (s *fakeStore) DeleteComment(_ context.Context, id string) error {
	if _, ok := s.comments[id]; !ok {
		return db.ErrNoRows
	}
	delete(s.comments, id)
	s.deletedComments = append(s.deletedComments, id)
	return nil
}

func (s *fakeStore) DeleteChapter(_ context.Context, id string) error {
	if _, ok := s.chapters[id]; !ok {
		return db.ErrNoRows
	}
	delete(s.chapters, id)
	s.deletedChapters = append(s.deletedChapters, id)
	return nil
}

type recordingNotifier struct {
	userIDs []string
	kinds   []string
	err     error
}

func (n *recordingNotifier) Notify(_ context.Context, userID, kind string, _ any) error {
	n.userIDs = append(n.userIDs, userID)
	n.kinds = append(n.kinds, kind)
	return n.err
}

func seedCommentReport(store *fakeStore) {
	store.comments[commentID] = &db.CommentRecord{ID: commentID, AuthorID: "comment-author", Content: "spam link"}
	store.reports[reportID] = &db.ReportRecord{
		ID:         reportID,
		TargetType: string(TargetComment),
		TargetID:   commentID,
		Reason:     string(ReasonSpam),
		Status:     string(StatusOpen),
		ReporterID: "reporter-1",
	}
}

func seedChapterReport(store *fakeStore) {
	store.novels[novelID] = &db.NovelRecord{ID: novelID, AuthorID: "novel-author", Title: "Novel"}
	store.chapters[chapterID] = &db.ChapterRecord{ID: chapterID, NovelID: novelID, Title: "Ch 1"}
	store.reports[reportID] = &db.ReportRecord{
		ID:         reportID,
		TargetType: string(TargetChapter),
		TargetID:   chapterID,
		Reason:     string(ReasonCopyright),
		Status:     string(StatusOpen),
		ReporterID: "reporter-1",
	}
}

func TestProcessReportDeleteContentOnComment(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	seedCommentReport(store)
	notifier := &recordingNotifier{}
	svc := NewService(store, notifier, zerolog.Nop())

	note := "spam removed"
	updated, err := svc.ProcessReport(context.Background(), reportID, adminID, ProcessParams{
		Action:    "delete_content",
		AdminNote: &note,
	})
	if err != nil {
		t.Fatalf("ProcessReport: %v", err)
	}
	if updated.Status != string(StatusResolved) {
		t.Fatalf("expected default RESOLVED, got %s", updated.Status)
	}
	if updated.AdminID == nil || *updated.AdminID != adminID || updated.Admin == nil {
		t.Fatalf("expected admin recorded, got %+v", updated)
	}
	if updated.AdminNote == nil || *updated.AdminNote != note {
		t.Fatalf("expected admin note, got %v", updated.AdminNote)
	}
	if len(store.deletedComments) != 1 || store.deletedComments[0] != commentID {
		t.Fatalf("expected comment deleted once, got %v", store.deletedComments)
	}
	if len(notifier.kinds) != 1 || notifier.kinds[0] != NotificationReportResolved || notifier.userIDs[0] != "reporter-1" {
		t.Fatalf("expected reporter notification, got %v %v", notifier.userIDs, notifier.kinds)
	}

	// The comment is gone; a second delete fails and leaves the report untouched.
	_, err = svc.ProcessReport(context.Background(), reportID, adminID, ProcessParams{Action: "delete_content", Status: "REJECTED"})
	if !errors.Is(err, ErrContentNotFound) {
		t.Fatalf("expected ErrContentNotFound on second delete, got %v", err)
	}
	if len(store.resolved) != 1 {
		t.Fatalf("failed action must not update the report, got %d updates", len(store.resolved))
	}
	if store.reports[reportID].Status != string(StatusResolved) {
		t.Fatalf("status changed after failed action: %s", store.reports[reportID].Status)
	}
}

func TestProcessReportDeleteContentOnChapter(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	seedChapterReport(store)
	svc := NewService(store, nil, zerolog.Nop())

	if _, err := svc.ProcessReport(context.Background(), reportID, adminID, ProcessParams{Action: "delete_content"}); err != nil {
		t.Fatalf("ProcessReport: %v", err)
	}
	if len(store.deletedChapters) != 1 || store.deletedChapters[0] != chapterID {
		t.Fatalf("expected chapter deleted, got %v", store.deletedChapters)
	}
}

func TestProcessReportNoneNeverDeletes(t *testing.T) {
	t.Parallel()

	for _, action := range []string{"", "none", " NONE "} {
		store := newFakeStore()
		seedCommentReport(store)
		svc := NewService(store, nil, zerolog.Nop())

		updated, err := svc.ProcessReport(context.Background(), reportID, adminID, ProcessParams{Action: action, Status: "in_review"})
		if err != nil {
			t.Fatalf("ProcessReport(%q): %v", action, err)
		}
		if updated.Status != string(StatusInReview) {
			t.Fatalf("expected IN_REVIEW, got %s", updated.Status)
		}
		if len(store.deletedComments) != 0 || len(store.deletedChapters) != 0 {
			t.Fatalf("action %q must not delete content", action)
		}
	}
}

func TestProcessReportBanUserOnlyTransitionsStatus(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	seedChapterReport(store)
	svc := NewService(store, nil, zerolog.Nop())

	updated, err := svc.ProcessReport(context.Background(), reportID, adminID, ProcessParams{Action: "ban_user"})
	if err != nil {
		t.Fatalf("ProcessReport: %v", err)
	}
	if updated.Status != string(StatusResolved) {
		t.Fatalf("expected RESOLVED, got %s", updated.Status)
	}
	if len(store.deletedChapters) != 0 || len(store.chapters) != 1 {
		t.Fatalf("ban_user must not delete content")
	}
}

func TestProcessReportBanUserWithMissingTarget(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	seedCommentReport(store)
	delete(store.comments, commentID)
	svc := NewService(store, nil, zerolog.Nop())

	if _, err := svc.ProcessReport(context.Background(), reportID, adminID, ProcessParams{Action: "ban_user"}); err != nil {
		t.Fatalf("missing target must not fail ban_user: %v", err)
	}
}

func TestProcessReportValidation(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	seedCommentReport(store)
	svc := NewService(store, nil, zerolog.Nop())

	if _, err := svc.ProcessReport(context.Background(), reportID, adminID, ProcessParams{Action: "suspend"}); !errors.Is(err, ErrInvalidAction) {
		t.Fatalf("expected ErrInvalidAction, got %v", err)
	}
	if _, err := svc.ProcessReport(context.Background(), reportID, adminID, ProcessParams{Status: "CLOSED"}); !errors.Is(err, ErrInvalidStatus) {
		t.Fatalf("expected ErrInvalidStatus, got %v", err)
	}
	if len(store.resolved) != 0 || len(store.deletedComments) != 0 {
		t.Fatalf("validation failures must not mutate anything")
	}

	missing := "9f9f9f9f-9f9f-4f9f-9f9f-9f9f9f9f9f9f"
	if _, err := svc.ProcessReport(context.Background(), missing, adminID, ProcessParams{}); !errors.Is(err, ErrReportNotFound) {
		t.Fatalf("expected ErrReportNotFound, got %v", err)
	}
	if _, err := svc.ProcessReport(context.Background(), "not-a-uuid", adminID, ProcessParams{}); !errors.Is(err, ErrReportNotFound) {
		t.Fatalf("expected ErrReportNotFound for malformed id, got %v", err)
	}
	if _, err := svc.ProcessReport(context.Background(), missing, adminID, ProcessParams{Action: "suspend"}); !errors.Is(err, ErrReportNotFound) {
		t.Fatalf("missing report must win over an invalid action, got %v", err)
	}
}

func TestProcessReportNotificationFailureIsNotReturned(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	seedCommentReport(store)
	svc := NewService(store, &recordingNotifier{err: errors.New("db down")}, zerolog.Nop())

	if _, err := svc.ProcessReport(context.Background(), reportID, adminID, ProcessParams{}); err != nil {
		t.Fatalf("notification failure must be swallowed: %v", err)
	}
}

func TestGetReportWithTargetVariants(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	seedChapterReport(store)
	svc := NewService(store, nil, zerolog.Nop())

	detail, err := svc.GetReportWithTarget(context.Background(), reportID)
	if err != nil {
		t.Fatalf("GetReportWithTarget: %v", err)
	}
	chapter, ok := detail.Target.(*ChapterTarget)
	if !ok {
		t.Fatalf("expected *ChapterTarget, got %T", detail.Target)
	}
	if chapter.Novel == nil || chapter.AuthorID() != "novel-author" {
		t.Fatalf("expected chapter novel expanded, got %+v", chapter.Novel)
	}

	encoded, err := json.Marshal(detail)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var decoded struct {
		Target struct {
			ID    string `json:"id"`
			Novel struct {
				ID string `json:"id"`
			} `json:"novel"`
		} `json:"target"`
	}
	if err := json.Unmarshal(encoded, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded.Target.ID != chapterID || decoded.Target.Novel.ID != novelID {
		t.Fatalf("unexpected encoded target: %s", encoded)
	}
}

func TestResolveTargetDegradesToNil(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	resolver := NewResolver(store)

	cases := []db.ReportRecord{
		{TargetType: "COMMENT", TargetID: commentID},
		{TargetType: "CHAPTER", TargetID: chapterID},
		{TargetType: "USER", TargetID: novelID},
		{TargetType: "COMMENT", TargetID: "legacy-id"},
	}
	for _, report := range cases {
		target, err := resolver.ResolveTarget(context.Background(), &report)
		if err != nil {
			t.Fatalf("ResolveTarget(%s): %v", report.TargetType, err)
		}
		if target != nil {
			t.Fatalf("ResolveTarget(%s %s) = %T, want nil", report.TargetType, report.TargetID, target)
		}
	}

	store.comments[commentID] = &db.CommentRecord{ID: commentID, AuthorID: "a"}
	target, err := resolver.ResolveTarget(context.Background(), &db.ReportRecord{TargetType: "comment", TargetID: commentID})
	if err != nil {
		t.Fatalf("ResolveTarget: %v", err)
	}
	if _, ok := target.(*CommentTarget); !ok || target.AuthorID() != "a" {
		t.Fatalf("expected comment target, got %T", target)
	}
}

func TestCreateReportValidation(t *testing.T) {
	t.Parallel()

	svc := NewService(newFakeStore(), nil, zerolog.Nop())
	short := " x "

	cases := []struct {
		params CreateParams
		want   error
	}{
		{CreateParams{TargetType: "", TargetID: commentID, Reason: "SPAM"}, ErrInvalidTarget},
		{CreateParams{TargetType: "COMMENT", TargetID: commentID, Reason: "BORING"}, ErrInvalidReason},
		{CreateParams{TargetType: "COMMENT", TargetID: commentID, Reason: "SPAM", Description: &short}, ErrDescriptionLength},
	}
	for _, tc := range cases {
		if _, err := svc.CreateReport(context.Background(), tc.params); !errors.Is(err, tc.want) {
			t.Fatalf("CreateReport(%+v) err = %v, want %v", tc.params, err, tc.want)
		}
	}

	report, err := svc.CreateReport(context.Background(), CreateParams{
		TargetType: "comment",
		TargetID:   commentID,
		Reason:     "abuse",
		ReporterID: "reporter-1",
	})
	if err != nil {
		t.Fatalf("CreateReport: %v", err)
	}
	if report.Status != string(StatusOpen) || report.TargetType != "COMMENT" || report.Reason != "ABUSE" {
		t.Fatalf("unexpected report %+v", report)
	}
}

func TestListReportsRejectsUnknownStatus(t *testing.T) {
	t.Parallel()

	svc := NewService(newFakeStore(), nil, zerolog.Nop())
	if _, err := svc.ListReports(context.Background(), "ARCHIVED"); !errors.Is(err, ErrInvalidStatus) {
		t.Fatalf("expected ErrInvalidStatus, got %v", err)
	}
	if _, err := svc.ListReports(context.Background(), ""); err != nil {
		t.Fatalf("blank status lists all: %v", err)
	}
}
