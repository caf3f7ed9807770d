package translation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"horse.fit/webnovels/internal/db"
	"horse.fit/webnovels/internal/language"
	"horse.fit/webnovels/internal/metrics"
)

var (
	ErrEmptyText         = errors.New("text is required")
	ErrInvalidTargetLang = errors.New("target language is invalid")
	ErrChapterNotFound   = errors.New("chapter not found")
	ErrProviderFailed    = errors.New("translation provider failed")
)

// Store is the persistence the service needs for the chapter translation cache.
type Store interface {
	GetChapterTranslation(ctx context.Context, chapterID, targetLang string) (*db.ChapterTranslationRecord, error)
	GetChapterContent(ctx context.Context, chapterID string) (string, error)
	InsertChapterTranslation(ctx context.Context, params db.InsertChapterTranslationParams) (bool, error)
	ListChapterTranslations(ctx context.Context, chapterID string) ([]db.ChapterTranslationRecord, error)
}

// CachedLanguage describes one stored chapter translation without its text.
type CachedLanguage struct {
	TargetLang   string    `json:"target_lang"`
	SourceLang   string    `json:"source_lang"`
	ProviderName string    `json:"provider_name"`
	CreatedAt    time.Time `json:"created_at"`
}

type ServiceOptions struct {
	// Locker serializes first-time translations of one (chapter, language) key.
	// Nil disables locking; the cache insert still tolerates races.
	Locker KeyLocker
	// DetectLanguage returns an ISO 639-1 code for the chapter text, or "".
	DetectLanguage func(text string) string
	Logger         zerolog.Logger
}

// Service translates free text and caches whole-chapter translations.
type Service struct {
	store    Store
	provider Provider
	locker   KeyLocker
	detect   func(string) string
	log      zerolog.Logger
}

func NewService(store Store, provider Provider, opts ServiceOptions) *Service {
	detect := opts.DetectLanguage
	if detect == nil {
		detect = func(string) string { return "" }
	}
	return &Service{
		store:    store,
		provider: provider,
		locker:   opts.Locker,
		detect:   detect,
		log:      opts.Logger.With().Str("component", "translation").Logger(),
	}
}

func (s *Service) ProviderName() string {
	if s == nil || s.provider == nil {
		return ""
	}
	return s.provider.Name()
}

// ModelName returns the model behind the configured provider, or "" for
// providers that are not model based.
func (s *Service) ModelName() string {
	if s == nil || s.provider == nil {
		return ""
	}
	p := s.provider
	if limited, ok := p.(*RateLimitedProvider); ok {
		p = limited.Provider
	}
	if named, ok := p.(interface{ ModelName() string }); ok {
		return named.ModelName()
	}
	return ""
}

// TranslateText translates text without caching.
func (s *Service) TranslateText(ctx context.Context, text, targetLang string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", ErrEmptyText
	}
	target, ok := language.NormalizeTarget(targetLang)
	if !ok {
		return "", ErrInvalidTargetLang
	}
	return s.callProvider(ctx, text, target)
}

// TranslateChapter returns the cached translation for the chapter, translating
// and caching it on first request. Concurrent first requests for the same key
// all observe the single stored row.
func (s *Service) TranslateChapter(ctx context.Context, chapterID, targetLang string) (string, error) {
	target, ok := language.NormalizeTarget(targetLang)
	if !ok {
		return "", ErrInvalidTargetLang
	}
	chapterID = strings.TrimSpace(chapterID)
	if _, err := uuid.Parse(chapterID); err != nil {
		return "", ErrChapterNotFound
	}

	if text, hit, err := s.lookup(ctx, chapterID, target); err != nil || hit {
		return text, err
	}

	if s.locker != nil {
		unlock, err := s.locker.Lock(ctx, cacheKey(chapterID, target))
		if err != nil {
			s.log.Warn().Err(err).Str("chapter_id", chapterID).Str("target_lang", target).Msg("translation lock unavailable; continuing unlocked")
		} else {
			defer unlock()
			if text, hit, err := s.lookup(ctx, chapterID, target); err != nil || hit {
				return text, err
			}
		}
	}

	content, err := s.store.GetChapterContent(ctx, chapterID)
	if err != nil {
		if db.IsNoRows(err) {
			return "", ErrChapterNotFound
		}
		return "", fmt.Errorf("load chapter content: %w", err)
	}

	translated, err := s.callProvider(ctx, content, target)
	if err != nil {
		return "", err
	}

	inserted, err := s.store.InsertChapterTranslation(ctx, db.InsertChapterTranslationParams{
		ChapterID:    chapterID,
		TargetLang:   target,
		Text:         translated,
		SourceLang:   s.detect(content),
		ProviderName: s.provider.Name(),
	})
	if err != nil {
		return "", fmt.Errorf("store chapter translation: %w", err)
	}
	if inserted {
		return translated, nil
	}

	// Lost the insert race: return the row that won.
	stored, err := s.store.GetChapterTranslation(ctx, chapterID, target)
	if err != nil {
		if db.IsNoRows(err) {
			return translated, nil
		}
		return "", fmt.Errorf("reload chapter translation: %w", err)
	}
	s.log.Debug().Str("chapter_id", chapterID).Str("target_lang", target).Msg("chapter translation already cached by a concurrent request")
	return stored.Text, nil
}

// CachedLanguages lists the languages a chapter is already translated into.
func (s *Service) CachedLanguages(ctx context.Context, chapterID string) ([]CachedLanguage, error) {
	chapterID = strings.TrimSpace(chapterID)
	if _, err := uuid.Parse(chapterID); err != nil {
		return nil, ErrChapterNotFound
	}
	rows, err := s.store.ListChapterTranslations(ctx, chapterID)
	if err != nil {
		return nil, fmt.Errorf("list chapter translations: %w", err)
	}
	out := make([]CachedLanguage, 0, len(rows))
	for _, row := range rows {
		out = append(out, CachedLanguage{
			TargetLang:   row.TargetLang,
			SourceLang:   row.SourceLang,
			ProviderName: row.ProviderName,
			CreatedAt:    row.CreatedAt,
		})
	}
	return out, nil
}

func (s *Service) lookup(ctx context.Context, chapterID, target string) (string, bool, error) {
	cached, err := s.store.GetChapterTranslation(ctx, chapterID, target)
	if err == nil {
		metrics.RecordCacheLookup(true)
		return cached.Text, true, nil
	}
	if db.IsNoRows(err) {
		metrics.RecordCacheLookup(false)
		return "", false, nil
	}
	return "", false, fmt.Errorf("lookup chapter translation: %w", err)
}

func (s *Service) callProvider(ctx context.Context, text, target string) (string, error) {
	if s.provider == nil {
		return "", fmt.Errorf("%w: no provider configured", ErrProviderFailed)
	}

	started := time.Now()
	translated, err := s.provider.TranslateText(ctx, text, target)
	metrics.RecordProviderCall(s.provider.Name(), time.Since(started), err)
	if err != nil {
		s.log.Error().Err(err).Str("provider", s.provider.Name()).Str("target_lang", target).Msg("translation provider call failed")
		return "", fmt.Errorf("%w: %s: %w", ErrProviderFailed, s.provider.Name(), err)
	}
	return translated, nil
}

func cacheKey(chapterID, target string) string {
	return "webnovels:translation:" + chapterID + ":" + target
}
