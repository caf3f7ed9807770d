package httpapi

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"horse.fit/webnovels/internal/auth"
	"horse.fit/webnovels/internal/comments"
	"horse.fit/webnovels/internal/db"
	"horse.fit/webnovels/internal/library"
	"horse.fit/webnovels/internal/ratings"
)

type commentService interface {
	Threads(ctx context.Context, scope db.CommentScope, targetID string) ([]db.CommentRecord, error)
	Create(ctx context.Context, actor auth.Principal, params comments.CreateParams) (*db.CommentRecord, error)
	Delete(ctx context.Context, actor auth.Principal, commentID string) error
}

type libraryService interface {
	List(ctx context.Context, userID, status string) ([]db.LibraryEntryRecord, error)
	Upsert(ctx context.Context, userID, novelID string, params library.UpsertParams) (*db.LibraryEntryRecord, error)
	Remove(ctx context.Context, userID, novelID string) error
}

type ratingService interface {
	Rate(ctx context.Context, userID, novelID string, value int) (*ratings.Summary, error)
	Average(ctx context.Context, novelID string) (*ratings.Summary, error)
	Mine(ctx context.Context, userID, novelID string) (*int, error)
}

type createCommentRequest struct {
	Content   string  `json:"content"`
	NovelID   *string `json:"novelId"`
	ChapterID *string `json:"chapterId"`
	ParentID  *string `json:"parentId"`
}

type libraryRequest struct {
	Status   string `json:"status"`
	Favorite bool   `json:"favorite"`
	Progress *int   `json:"progress"`
}

type ratingRequest struct {
	Value *int `json:"value"`
}

func (s *Server) handleNovelComments(c echo.Context) error {
	return s.listComments(c, db.CommentScopeNovel)
}

func (s *Server) handleChapterComments(c echo.Context) error {
	return s.listComments(c, db.CommentScopeChapter)
}

func (s *Server) listComments(c echo.Context, scope db.CommentScope) error {
	threads, err := s.svc.Comments.Threads(requestContext(c), scope, c.Param("id"))
	if err != nil {
		return s.serviceError(c, err, "Failed to load comments")
	}
	return success(c, map[string]any{"items": threads})
}

func (s *Server) handleCreateComment(c echo.Context) error {
	principal, ok := principalFromContext(c)
	if !ok {
		return unauthorizedResponse(c)
	}

	var req createCommentRequest
	if err := decodeJSONBody(c, &req); err != nil {
		return failValidation(c, map[string]string{"body": err.Error()})
	}

	comment, err := s.svc.Comments.Create(requestContext(c), principal, comments.CreateParams{
		Content:   req.Content,
		NovelID:   req.NovelID,
		ChapterID: req.ChapterID,
		ParentID:  req.ParentID,
	})
	if err != nil {
		return s.serviceError(c, err, "Failed to create comment")
	}
	return successWithStatus(c, http.StatusCreated, comment)
}

func (s *Server) handleDeleteComment(c echo.Context) error {
	principal, ok := principalFromContext(c)
	if !ok {
		return unauthorizedResponse(c)
	}

	if err := s.svc.Comments.Delete(requestContext(c), principal, c.Param("id")); err != nil {
		return s.serviceError(c, err, "Failed to delete comment")
	}
	return success(c, map[string]any{"deleted": true})
}

func (s *Server) handleListLibrary(c echo.Context) error {
	principal, ok := principalFromContext(c)
	if !ok {
		return unauthorizedResponse(c)
	}

	entries, err := s.svc.Library.List(requestContext(c), principal.UserID, c.QueryParam("status"))
	if err != nil {
		return s.serviceError(c, err, "Failed to load library")
	}
	return success(c, map[string]any{"items": entries})
}

func (s *Server) handleUpsertLibrary(c echo.Context) error {
	principal, ok := principalFromContext(c)
	if !ok {
		return unauthorizedResponse(c)
	}

	var req libraryRequest
	if err := decodeJSONBody(c, &req); err != nil {
		return failValidation(c, map[string]string{"body": err.Error()})
	}

	entry, err := s.svc.Library.Upsert(requestContext(c), principal.UserID, c.Param("novelId"), library.UpsertParams{
		Status:   req.Status,
		Favorite: req.Favorite,
		Progress: req.Progress,
	})
	if err != nil {
		return s.serviceError(c, err, "Failed to update library")
	}
	return success(c, entry)
}

func (s *Server) handleRemoveLibrary(c echo.Context) error {
	principal, ok := principalFromContext(c)
	if !ok {
		return unauthorizedResponse(c)
	}

	if err := s.svc.Library.Remove(requestContext(c), principal.UserID, c.Param("novelId")); err != nil {
		return s.serviceError(c, err, "Failed to remove library entry")
	}
	return success(c, map[string]any{"deleted": true})
}

func (s *Server) handleRate(c echo.Context) error {
	principal, ok := principalFromContext(c)
	if !ok {
		return unauthorizedResponse(c)
	}

	var req ratingRequest
	if err := decodeJSONBody(c, &req); err != nil {
		return failValidation(c, map[string]string{"body": err.Error()})
	}
	if req.Value == nil {
		return failValidation(c, map[string]string{"value": "is required"})
	}

	summary, err := s.svc.Ratings.Rate(requestContext(c), principal.UserID, c.Param("novelId"), *req.Value)
	if err != nil {
		return s.serviceError(c, err, "Failed to save rating")
	}
	return success(c, summary)
}

func (s *Server) handleAverageRating(c echo.Context) error {
	summary, err := s.svc.Ratings.Average(requestContext(c), c.Param("novelId"))
	if err != nil {
		return s.serviceError(c, err, "Failed to load rating")
	}
	return success(c, summary)
}

func (s *Server) handleMyRating(c echo.Context) error {
	principal, ok := principalFromContext(c)
	if !ok {
		return unauthorizedResponse(c)
	}

	value, err := s.svc.Ratings.Mine(requestContext(c), principal.UserID, c.Param("novelId"))
	if err != nil {
		return s.serviceError(c, err, "Failed to load rating")
	}
	return success(c, map[string]any{"value": value})
}
