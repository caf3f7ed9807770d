package comments

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"

	"horse.fit/webnovels/internal/auth"
	"horse.fit/webnovels/internal/db"
)

const (
	novelID  = "3e4f5a6b-7c8d-4e9f-8a1b-2c3d4e5f6a7b"
	rootID   = "1c2d3e4f-5a6b-4c7d-8e9f-0a1b2c3d4e5f"
	replyID  = "6b7c8d9e-0f1a-4b2c-9d4e-5f6a7b8c9d0e"
	authorID = "7c8d9e0f-1a2b-4c3d-9e5f-6a7b8c9d0e1f"
	readerID = "8d9e0f1a-2b3c-4d4e-8f6a-7b8c9d0e1f2a"
)

type fakeStore struct {
	comments map[string]*db.CommentRecord
	deleted  []string
}

func newFakeStore() *fakeStore {
	novel := novelID
	return &fakeStore{comments: map[string]*db.CommentRecord{
		rootID: {ID: rootID, AuthorID: authorID, NovelID: &novel, Content: "first"},
	}}
}

func (s *fakeStore) GetComment(_ context.Context, id string) (*db.CommentRecord, error) {
	if c, ok := s.comments[id]; ok {
		copied := *c
		return &copied, nil
	}
	return nil, db.ErrNoRows
}

func (s *fakeStore) ListCommentThreads(_ context.Context, _ db.CommentScope, _ string) ([]db.CommentRecord, error) {
	return []db.CommentRecord{*s.comments[rootID]}, nil
}

func (s *fakeStore) CreateComment(_ context.Context, params db.CreateCommentParams) (*db.CommentRecord, error) {
	rec := &db.CommentRecord{
		ID:        replyID,
		AuthorID:  params.AuthorID,
		NovelID:   params.NovelID,
		ChapterID: params.ChapterID,
		ParentID:  params.ParentID,
		Content:   params.Content,
	}
	s.comments[rec.ID] = rec
	return rec, nil
}

func (s *fakeStore) DeleteComment(_ context.Context, id string) error {
	if _, ok := s.comments[id]; !ok {
		return db.ErrNoRows
	}
	delete(s.comments, id)
	s.deleted = append(s.deleted, id)
	return nil
}

type recordingNotifier struct {
	sent []string
}

func (n *recordingNotifier) Notify(_ context.Context, userID, kind string, _ any) error {
	n.sent = append(n.sent, kind+":"+userID)
	return errors.New("mailbox full")
}

func strPtr(v string) *string { return &v }

func TestCreateValidation(t *testing.T) {
	t.Parallel()

	svc := NewService(newFakeStore(), nil, zerolog.Nop())
	reader := auth.Principal{UserID: readerID}

	cases := []struct {
		name   string
		params CreateParams
		want   error
	}{
		{name: "blank content", params: CreateParams{Content: "  ", NovelID: strPtr(novelID)}, want: ErrEmptyContent},
		{name: "no target", params: CreateParams{Content: "hi", NovelID: strPtr(" ")}, want: ErrMissingTarget},
		{name: "malformed novel", params: CreateParams{Content: "hi", NovelID: strPtr("x")}, want: ErrTargetNotFound},
		{name: "missing parent", params: CreateParams{Content: "hi", NovelID: strPtr(novelID), ParentID: strPtr(readerID)}, want: ErrParentNotFound},
	}
	for _, tc := range cases {
		if _, err := svc.Create(context.Background(), reader, tc.params); !errors.Is(err, tc.want) {
			t.Fatalf("%s: expected %v, got %v", tc.name, tc.want, err)
		}
	}
}

func TestReplyNotifiesParentAuthor(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	notifier := &recordingNotifier{}
	svc := NewService(store, notifier, zerolog.Nop())

	reply, err := svc.Create(context.Background(), auth.Principal{UserID: readerID}, CreateParams{
		Content:  " nice ",
		NovelID:  strPtr(novelID),
		ParentID: strPtr(rootID),
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if reply.Content != "nice" || reply.ParentID == nil || *reply.ParentID != rootID {
		t.Fatalf("unexpected reply: %#v", reply)
	}
	if len(notifier.sent) != 1 || notifier.sent[0] != NotificationCommentReply+":"+authorID {
		t.Fatalf("notifications = %#v", notifier.sent)
	}

	// self replies stay silent
	if _, err := svc.Create(context.Background(), auth.Principal{UserID: authorID}, CreateParams{
		Content:  "thanks",
		NovelID:  strPtr(novelID),
		ParentID: strPtr(rootID),
	}); err != nil {
		t.Fatalf("Create(self) error = %v", err)
	}
	if len(notifier.sent) != 1 {
		t.Fatalf("self reply should not notify, got %#v", notifier.sent)
	}
}

func TestDeleteRequiresAuthor(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	svc := NewService(store, nil, zerolog.Nop())

	if err := svc.Delete(context.Background(), auth.Principal{UserID: readerID, Role: auth.RoleAdmin}, rootID); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
	if err := svc.Delete(context.Background(), auth.Principal{UserID: authorID}, rootID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if err := svc.Delete(context.Background(), auth.Principal{UserID: authorID}, rootID); !errors.Is(err, ErrCommentNotFound) {
		t.Fatalf("expected ErrCommentNotFound, got %v", err)
	}
}

func TestThreadsIgnoresMalformedID(t *testing.T) {
	t.Parallel()

	svc := NewService(newFakeStore(), nil, zerolog.Nop())
	threads, err := svc.Threads(context.Background(), db.CommentScopeNovel, "abc")
	if err != nil || len(threads) != 0 {
		t.Fatalf("Threads() = %#v, %v", threads, err)
	}
	threads, err = svc.Threads(context.Background(), db.CommentScopeNovel, novelID)
	if err != nil || len(threads) != 1 {
		t.Fatalf("Threads() = %d, %v", len(threads), err)
	}
}
