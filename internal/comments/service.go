package comments

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"horse.fit/webnovels/internal/auth"
	"horse.fit/webnovels/internal/db"
)

var (
	ErrCommentNotFound = errors.New("comment not found")
	ErrParentNotFound  = errors.New("parent comment not found")
	ErrTargetNotFound  = errors.New("novel or chapter not found")
	ErrForbidden       = errors.New("only the author can delete this comment")
	ErrEmptyContent    = errors.New("content is required")
	ErrContentTooLong  = errors.New("content must be at most 2000 characters")
	ErrMissingTarget   = errors.New("novelId or chapterId is required")
)

const (
	MaxContentLength = 2000

	NotificationCommentReply = "COMMENT_REPLY"
)

type Store interface {
	GetComment(ctx context.Context, commentID string) (*db.CommentRecord, error)
	ListCommentThreads(ctx context.Context, scope db.CommentScope, targetID string) ([]db.CommentRecord, error)
	CreateComment(ctx context.Context, params db.CreateCommentParams) (*db.CommentRecord, error)
	DeleteComment(ctx context.Context, commentID string) error
}

type Notifier interface {
	Notify(ctx context.Context, userID, kind string, payload any) error
}

type CreateParams struct {
	Content   string
	NovelID   *string
	ChapterID *string
	ParentID  *string
}

type Service struct {
	store    Store
	notifier Notifier
	log      zerolog.Logger
}

func NewService(store Store, notifier Notifier, log zerolog.Logger) *Service {
	return &Service{
		store:    store,
		notifier: notifier,
		log:      log.With().Str("component", "comments").Logger(),
	}
}

// Threads lists top-level comments with their replies. Unknown ids yield an empty list.
func (s *Service) Threads(ctx context.Context, scope db.CommentScope, targetID string) ([]db.CommentRecord, error) {
	if !validID(targetID) {
		return []db.CommentRecord{}, nil
	}
	threads, err := s.store.ListCommentThreads(ctx, scope, targetID)
	if err != nil {
		return nil, fmt.Errorf("list comment threads: %w", err)
	}
	return threads, nil
}

func (s *Service) Create(ctx context.Context, actor auth.Principal, params CreateParams) (*db.CommentRecord, error) {
	content := strings.TrimSpace(params.Content)
	if content == "" {
		return nil, ErrEmptyContent
	}
	if utf8.RuneCountInString(content) > MaxContentLength {
		return nil, ErrContentTooLong
	}

	novelID, chapterID, parentID := blankToNil(params.NovelID), blankToNil(params.ChapterID), blankToNil(params.ParentID)
	if novelID == nil && chapterID == nil {
		return nil, ErrMissingTarget
	}
	if (novelID != nil && !validID(*novelID)) || (chapterID != nil && !validID(*chapterID)) {
		return nil, ErrTargetNotFound
	}

	var parent *db.CommentRecord
	if parentID != nil {
		if !validID(*parentID) {
			return nil, ErrParentNotFound
		}
		var err error
		parent, err = s.store.GetComment(ctx, *parentID)
		if err != nil {
			if db.IsNoRows(err) {
				return nil, ErrParentNotFound
			}
			return nil, fmt.Errorf("load parent comment: %w", err)
		}
	}

	comment, err := s.store.CreateComment(ctx, db.CreateCommentParams{
		AuthorID:  actor.UserID,
		Content:   content,
		NovelID:   novelID,
		ChapterID: chapterID,
		ParentID:  parentID,
	})
	if err != nil {
		if db.IsForeignKeyViolation(err) {
			return nil, ErrTargetNotFound
		}
		return nil, fmt.Errorf("create comment: %w", err)
	}

	if parent != nil && parent.AuthorID != actor.UserID {
		s.notifyReply(ctx, parent, comment)
	}
	return comment, nil
}

// Delete removes a comment written by actor, along with its replies.
func (s *Service) Delete(ctx context.Context, actor auth.Principal, commentID string) error {
	if !validID(commentID) {
		return ErrCommentNotFound
	}
	comment, err := s.store.GetComment(ctx, commentID)
	if err != nil {
		if db.IsNoRows(err) {
			return ErrCommentNotFound
		}
		return fmt.Errorf("load comment: %w", err)
	}
	if comment.AuthorID != actor.UserID {
		return ErrForbidden
	}
	if err := s.store.DeleteComment(ctx, commentID); err != nil {
		if db.IsNoRows(err) {
			return ErrCommentNotFound
		}
		return fmt.Errorf("delete comment: %w", err)
	}
	return nil
}

func (s *Service) notifyReply(ctx context.Context, parent, reply *db.CommentRecord) {
	if s.notifier == nil {
		return
	}
	payload := map[string]any{
		"commentId": reply.ID,
		"parentId":  parent.ID,
		"novelId":   reply.NovelID,
		"chapterId": reply.ChapterID,
	}
	if err := s.notifier.Notify(ctx, parent.AuthorID, NotificationCommentReply, payload); err != nil {
		s.log.Warn().Err(err).Str("comment_id", reply.ID).Msg("reply notification failed")
	}
}

func blankToNil(raw *string) *string {
	if raw == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*raw)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func validID(raw string) bool {
	_, err := uuid.Parse(raw)
	return err == nil
}
