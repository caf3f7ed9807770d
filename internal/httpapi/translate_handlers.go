package httpapi

import (
	"context"

	"github.com/labstack/echo/v4"

	payloadschema "horse.fit/webnovels/internal/schema"
	"horse.fit/webnovels/internal/translation"
)

type translationService interface {
	TranslateText(ctx context.Context, text, targetLang string) (string, error)
	TranslateChapter(ctx context.Context, chapterID, targetLang string) (string, error)
	CachedLanguages(ctx context.Context, chapterID string) ([]translation.CachedLanguage, error)
	ProviderName() string
	ModelName() string
}

func (s *Server) handleTranslateText(c echo.Context) error {
	raw, err := readBody(c)
	if err != nil {
		return failValidation(c, map[string]string{"body": err.Error()})
	}
	req, err := payloadschema.DecodeTranslateText(raw)
	if err != nil {
		return failValidation(c, map[string]string{"body": err.Error()})
	}

	text, err := s.svc.Translation.TranslateText(requestContext(c), req.Text, req.TargetLang)
	if err != nil {
		return s.serviceError(c, err, "Failed to translate text")
	}
	return success(c, map[string]any{"text": text})
}

func (s *Server) handleTranslateChapter(c echo.Context) error {
	raw, err := readBody(c)
	if err != nil {
		return failValidation(c, map[string]string{"body": err.Error()})
	}
	req, err := payloadschema.DecodeTranslateChapter(raw)
	if err != nil {
		return failValidation(c, map[string]string{"body": err.Error()})
	}

	text, err := s.svc.Translation.TranslateChapter(requestContext(c), req.ChapterID, req.TargetLang)
	if err != nil {
		return s.serviceError(c, err, "Failed to translate chapter")
	}
	return success(c, map[string]any{"text": text})
}

func (s *Server) handleChapterLanguages(c echo.Context) error {
	langs, err := s.svc.Translation.CachedLanguages(requestContext(c), c.Param("chapterId"))
	if err != nil {
		return s.serviceError(c, err, "Failed to list chapter translations")
	}
	return success(c, map[string]any{"languages": langs})
}

func (s *Server) handleTranslateProviders(c echo.Context) error {
	data := map[string]any{
		"provider":  s.svc.Translation.ProviderName(),
		"languages": translation.TranslationLanguageOptions(),
	}
	if model := s.svc.Translation.ModelName(); model != "" {
		data["model"] = model
	}
	return success(c, data)
}
