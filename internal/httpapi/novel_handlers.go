package httpapi

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"horse.fit/webnovels/internal/auth"
	"horse.fit/webnovels/internal/db"
	"horse.fit/webnovels/internal/novels"
)

type novelService interface {
	List(ctx context.Context, limit, offset int) ([]db.NovelRecord, error)
	Search(ctx context.Context, params novels.SearchParams) ([]db.NovelRecord, error)
	Tags(ctx context.Context) ([]string, error)
	Popular(ctx context.Context, days, limit int) ([]db.NovelRecord, error)
	TopRated(ctx context.Context, limit int) ([]db.NovelRecord, error)
	Home(ctx context.Context) (*novels.Home, error)
	Get(ctx context.Context, novelID, viewerID string) (*novels.Detail, error)
	Create(ctx context.Context, actor auth.Principal, params novels.CreateParams) (*db.NovelRecord, error)
	Update(ctx context.Context, actor auth.Principal, novelID string, params novels.UpdateParams) (*db.NovelRecord, error)
	Delete(ctx context.Context, actor auth.Principal, novelID string) error
	RecordView(ctx context.Context, novelID string, viewerID *string) error
	GetChapter(ctx context.Context, novelID, chapterID string) (*db.ChapterRecord, error)
	AddChapter(ctx context.Context, actor auth.Principal, novelID string, params novels.ChapterParams) (*db.ChapterRecord, error)
	UpdateChapter(ctx context.Context, actor auth.Principal, novelID, chapterID string, params novels.ChapterUpdateParams) (*db.ChapterRecord, error)
	DeleteChapter(ctx context.Context, actor auth.Principal, novelID, chapterID string) error
}

type novelRequest struct {
	Title       *string  `json:"title"`
	Description *string  `json:"description"`
	CoverURL    *string  `json:"coverUrl"`
	Tags        []string `json:"tags"`
}

type chapterRequest struct {
	Title   *string `json:"title"`
	Content *string `json:"content"`
}

type pageParams struct {
	Limit  int
	Offset int
}

func parsePage(c echo.Context) (pageParams, map[string]string) {
	fieldErrors := map[string]string{}
	limit, err := parsePositiveInt(c.QueryParam("limit"), novels.DefaultListLimit, 1, novels.MaxListLimit)
	if err != nil {
		fieldErrors["limit"] = err.Error()
	}
	offset, err := parsePositiveInt(c.QueryParam("offset"), 0, 0, 1_000_000)
	if err != nil {
		fieldErrors["offset"] = err.Error()
	}
	return pageParams{Limit: limit, Offset: offset}, fieldErrors
}

func (s *Server) handleListNovels(c echo.Context) error {
	page, fieldErrors := parsePage(c)
	if len(fieldErrors) > 0 {
		return failValidation(c, fieldErrors)
	}

	items, err := s.svc.Novels.List(requestContext(c), page.Limit, page.Offset)
	if err != nil {
		return s.serviceError(c, err, "Failed to load novels")
	}
	return success(c, map[string]any{
		"items":  items,
		"limit":  page.Limit,
		"offset": page.Offset,
	})
}

func (s *Server) handleSearchNovels(c echo.Context) error {
	page, fieldErrors := parsePage(c)
	if len(fieldErrors) > 0 {
		return failValidation(c, fieldErrors)
	}

	items, err := s.svc.Novels.Search(requestContext(c), novels.SearchParams{
		Query:  c.QueryParam("q"),
		Tags:   c.QueryParam("tags"),
		Mode:   c.QueryParam("mode"),
		Limit:  page.Limit,
		Offset: page.Offset,
	})
	if err != nil {
		return s.serviceError(c, err, "Failed to search novels")
	}
	return success(c, map[string]any{
		"items":  items,
		"limit":  page.Limit,
		"offset": page.Offset,
	})
}

func (s *Server) handleNovelTags(c echo.Context) error {
	tags, err := s.svc.Novels.Tags(requestContext(c))
	if err != nil {
		return s.serviceError(c, err, "Failed to load tags")
	}
	return success(c, map[string]any{"items": tags})
}

func (s *Server) handlePopularNovels(c echo.Context) error {
	days, err := parsePositiveInt(c.QueryParam("days"), novels.DefaultPopularDays, 1, novels.MaxPopularDays)
	if err != nil {
		return failValidation(c, map[string]string{"days": err.Error()})
	}
	limit, err := parsePositiveInt(c.QueryParam("limit"), novels.DefaultListLimit, 1, novels.MaxListLimit)
	if err != nil {
		return failValidation(c, map[string]string{"limit": err.Error()})
	}

	items, err := s.svc.Novels.Popular(requestContext(c), days, limit)
	if err != nil {
		return s.serviceError(c, err, "Failed to load popular novels")
	}
	return success(c, map[string]any{"items": items, "days": days})
}

func (s *Server) handleTopRatedNovels(c echo.Context) error {
	limit, err := parsePositiveInt(c.QueryParam("limit"), novels.DefaultListLimit, 1, novels.MaxListLimit)
	if err != nil {
		return failValidation(c, map[string]string{"limit": err.Error()})
	}

	items, err := s.svc.Novels.TopRated(requestContext(c), limit)
	if err != nil {
		return s.serviceError(c, err, "Failed to load top rated novels")
	}
	return success(c, map[string]any{"items": items})
}

func (s *Server) handleNovelHome(c echo.Context) error {
	home, err := s.svc.Novels.Home(requestContext(c))
	if err != nil {
		return s.serviceError(c, err, "Failed to load home page")
	}
	return success(c, home)
}

func (s *Server) handleNovelDetail(c echo.Context) error {
	detail, err := s.svc.Novels.Get(requestContext(c), c.Param("id"), viewerID(c))
	if err != nil {
		return s.serviceError(c, err, "Failed to load novel")
	}
	return success(c, detail)
}

func (s *Server) handleCreateNovel(c echo.Context) error {
	principal, ok := principalFromContext(c)
	if !ok {
		return unauthorizedResponse(c)
	}

	var req novelRequest
	if err := decodeJSONBody(c, &req); err != nil {
		return failValidation(c, map[string]string{"body": err.Error()})
	}

	params := novels.CreateParams{CoverURL: req.CoverURL, Tags: req.Tags}
	if req.Title != nil {
		params.Title = *req.Title
	}
	if req.Description != nil {
		params.Description = *req.Description
	}

	novel, err := s.svc.Novels.Create(requestContext(c), principal, params)
	if err != nil {
		return s.serviceError(c, err, "Failed to create novel")
	}
	return successWithStatus(c, http.StatusCreated, novel)
}

func (s *Server) handleUpdateNovel(c echo.Context) error {
	principal, ok := principalFromContext(c)
	if !ok {
		return unauthorizedResponse(c)
	}

	var req novelRequest
	if err := decodeJSONBody(c, &req); err != nil {
		return failValidation(c, map[string]string{"body": err.Error()})
	}

	novel, err := s.svc.Novels.Update(requestContext(c), principal, c.Param("id"), novels.UpdateParams{
		Title:       req.Title,
		Description: req.Description,
		CoverURL:    req.CoverURL,
		Tags:        req.Tags,
	})
	if err != nil {
		return s.serviceError(c, err, "Failed to update novel")
	}
	return success(c, novel)
}

func (s *Server) handleDeleteNovel(c echo.Context) error {
	principal, ok := principalFromContext(c)
	if !ok {
		return unauthorizedResponse(c)
	}

	if err := s.svc.Novels.Delete(requestContext(c), principal, c.Param("id")); err != nil {
		return s.serviceError(c, err, "Failed to delete novel")
	}
	return success(c, map[string]any{"deleted": true})
}

func (s *Server) handleRecordView(c echo.Context) error {
	var viewer *string
	if id := viewerID(c); id != "" {
		viewer = &id
	}

	if err := s.svc.Novels.RecordView(requestContext(c), c.Param("id"), viewer); err != nil {
		return s.serviceError(c, err, "Failed to record view")
	}
	return successWithStatus(c, http.StatusCreated, map[string]any{"recorded": true})
}

func (s *Server) handleChapterDetail(c echo.Context) error {
	chapter, err := s.svc.Novels.GetChapter(requestContext(c), c.Param("id"), c.Param("chapterId"))
	if err != nil {
		return s.serviceError(c, err, "Failed to load chapter")
	}
	return success(c, chapter)
}

func (s *Server) handleAddChapter(c echo.Context) error {
	principal, ok := principalFromContext(c)
	if !ok {
		return unauthorizedResponse(c)
	}

	var req chapterRequest
	if err := decodeJSONBody(c, &req); err != nil {
		return failValidation(c, map[string]string{"body": err.Error()})
	}

	var params novels.ChapterParams
	if req.Title != nil {
		params.Title = *req.Title
	}
	if req.Content != nil {
		params.Content = *req.Content
	}

	chapter, err := s.svc.Novels.AddChapter(requestContext(c), principal, c.Param("id"), params)
	if err != nil {
		return s.serviceError(c, err, "Failed to add chapter")
	}
	return successWithStatus(c, http.StatusCreated, chapter)
}

func (s *Server) handleUpdateChapter(c echo.Context) error {
	principal, ok := principalFromContext(c)
	if !ok {
		return unauthorizedResponse(c)
	}

	var req chapterRequest
	if err := decodeJSONBody(c, &req); err != nil {
		return failValidation(c, map[string]string{"body": err.Error()})
	}

	chapter, err := s.svc.Novels.UpdateChapter(requestContext(c), principal, c.Param("id"), c.Param("chapterId"), novels.ChapterUpdateParams{
		Title:   req.Title,
		Content: req.Content,
	})
	if err != nil {
		return s.serviceError(c, err, "Failed to update chapter")
	}
	return success(c, chapter)
}

func (s *Server) handleDeleteChapter(c echo.Context) error {
	principal, ok := principalFromContext(c)
	if !ok {
		return unauthorizedResponse(c)
	}

	if err := s.svc.Novels.DeleteChapter(requestContext(c), principal, c.Param("id"), c.Param("chapterId")); err != nil {
		return s.serviceError(c, err, "Failed to delete chapter")
	}
	return success(c, map[string]any{"deleted": true})
}
