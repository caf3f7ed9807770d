package novels

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"horse.fit/webnovels/internal/auth"
	"horse.fit/webnovels/internal/db"
	"horse.fit/webnovels/internal/globaltime"
)

var (
	ErrNovelNotFound   = errors.New("novel not found")
	ErrChapterNotFound = errors.New("chapter not found")
	ErrForbidden       = errors.New("only the author or an admin can modify this novel")
	ErrInvalidTitle    = errors.New("title is required and must be at most 200 characters")
	ErrTooManyTags     = errors.New("a novel can have at most 20 tags")
	ErrInvalidMode     = errors.New("mode must be any or all")
	ErrEmptyContent    = errors.New("content is required")
)

const (
	DefaultListLimit   = 20
	MaxListLimit       = 100
	DefaultPopularDays = 14
	MaxPopularDays     = 365
	RecommendedCount   = 12
	MaxTitleLength     = 200
	MaxTags            = 20

	NotificationNewChapter = "NEW_CHAPTER"
)

type Store interface {
	ListNovels(ctx context.Context, limit, offset int) ([]db.NovelRecord, error)
	SearchNovels(ctx context.Context, params db.NovelSearchParams) ([]db.NovelRecord, error)
	ListTagNames(ctx context.Context) ([]string, error)
	ListPopularNovels(ctx context.Context, since time.Time, limit int) ([]db.NovelRecord, error)
	ListTopRatedNovels(ctx context.Context, limit int) ([]db.NovelRecord, error)
	GetNovel(ctx context.Context, novelID string) (*db.NovelRecord, error)
	GetNovelAuthorID(ctx context.Context, novelID string) (string, error)
	CreateNovel(ctx context.Context, params db.CreateNovelParams) (string, error)
	UpdateNovel(ctx context.Context, novelID string, params db.UpdateNovelParams) error
	DeleteNovel(ctx context.Context, novelID string) error
	RecordNovelView(ctx context.Context, novelID string, userID *string) error
	ListChapterSummaries(ctx context.Context, novelID string) ([]db.ChapterSummary, error)
	GetChapter(ctx context.Context, chapterID string) (*db.ChapterRecord, error)
	CreateChapter(ctx context.Context, novelID, title, content string) (*db.ChapterRecord, error)
	UpdateChapter(ctx context.Context, chapterID string, params db.UpdateChapterParams) (*db.ChapterRecord, error)
	DeleteChapter(ctx context.Context, chapterID string) error
	GetUserRating(ctx context.Context, userID, novelID string) (int, error)
	ListLibraryUserIDs(ctx context.Context, novelID, excludeUserID string) ([]string, error)
}

// Notifier delivers a notification to one user.
type Notifier interface {
	Notify(ctx context.Context, userID, kind string, payload any) error
}

// Detail is a novel with its chapter list and the viewer's own rating.
type Detail struct {
	*db.NovelRecord
	Chapters []db.ChapterSummary `json:"chapters"`
	MyRating *int                `json:"my_rating"`
}

type Home struct {
	Popular     []db.NovelRecord `json:"popular"`
	TopRated    []db.NovelRecord `json:"top_rated"`
	Recommended []db.NovelRecord `json:"recommended"`
}

// SearchParams is a raw search request. Tags is a comma separated list.
type SearchParams struct {
	Query  string
	Tags   string
	Mode   string
	Limit  int
	Offset int
}

type CreateParams struct {
	Title       string
	Description string
	CoverURL    *string
	Tags        []string
}

// UpdateParams carries optional changes. A nil Tags keeps the current tags.
type UpdateParams struct {
	Title       *string
	Description *string
	CoverURL    *string
	Tags        []string
}

type ChapterParams struct {
	Title   string
	Content string
}

type ChapterUpdateParams struct {
	Title   *string
	Content *string
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
		log:      log.With().Str("component", "novels").Logger(),
	}
}

func (s *Service) List(ctx context.Context, limit, offset int) ([]db.NovelRecord, error) {
	novels, err := s.store.ListNovels(ctx, clampLimit(limit), max(offset, 0))
	if err != nil {
		return nil, fmt.Errorf("list novels: %w", err)
	}
	return novels, nil
}

func (s *Service) Search(ctx context.Context, params SearchParams) ([]db.NovelRecord, error) {
	mode := db.TagMatchAny
	switch strings.ToLower(strings.TrimSpace(params.Mode)) {
	case "", string(db.TagMatchAny):
	case string(db.TagMatchAll):
		mode = db.TagMatchAll
	default:
		return nil, ErrInvalidMode
	}

	novels, err := s.store.SearchNovels(ctx, db.NovelSearchParams{
		Query:  strings.TrimSpace(params.Query),
		Tags:   ParseTagList(params.Tags),
		Mode:   mode,
		Limit:  clampLimit(params.Limit),
		Offset: max(params.Offset, 0),
	})
	if err != nil {
		return nil, fmt.Errorf("search novels: %w", err)
	}
	return novels, nil
}

func (s *Service) Tags(ctx context.Context) ([]string, error) {
	tags, err := s.store.ListTagNames(ctx)
	if err != nil {
		return nil, fmt.Errorf("list tags: %w", err)
	}
	return tags, nil
}

// Popular ranks novels by views in the last days days.
func (s *Service) Popular(ctx context.Context, days, limit int) ([]db.NovelRecord, error) {
	if days <= 0 {
		days = DefaultPopularDays
	}
	if days > MaxPopularDays {
		days = MaxPopularDays
	}
	novels, err := s.store.ListPopularNovels(ctx, globaltime.DaysAgo(days), clampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("list popular novels: %w", err)
	}
	return novels, nil
}

func (s *Service) TopRated(ctx context.Context, limit int) ([]db.NovelRecord, error) {
	novels, err := s.store.ListTopRatedNovels(ctx, clampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("list top rated novels: %w", err)
	}
	return novels, nil
}

func (s *Service) Home(ctx context.Context) (*Home, error) {
	popular, err := s.Popular(ctx, DefaultPopularDays, DefaultListLimit)
	if err != nil {
		return nil, err
	}
	topRated, err := s.TopRated(ctx, DefaultListLimit)
	if err != nil {
		return nil, err
	}
	recommended := topRated
	if len(recommended) > RecommendedCount {
		recommended = recommended[:RecommendedCount]
	}
	return &Home{Popular: popular, TopRated: topRated, Recommended: recommended}, nil
}

// Get loads a novel with its chapters. viewerID may be blank for anonymous callers.
func (s *Service) Get(ctx context.Context, novelID, viewerID string) (*Detail, error) {
	novel, err := s.loadNovel(ctx, novelID)
	if err != nil {
		return nil, err
	}
	chapters, err := s.store.ListChapterSummaries(ctx, novel.ID)
	if err != nil {
		return nil, fmt.Errorf("list chapters: %w", err)
	}

	detail := &Detail{NovelRecord: novel, Chapters: chapters}
	if viewerID != "" {
		value, err := s.store.GetUserRating(ctx, viewerID, novel.ID)
		switch {
		case err == nil:
			detail.MyRating = &value
		case !db.IsNoRows(err):
			return nil, fmt.Errorf("load viewer rating: %w", err)
		}
	}
	return detail, nil
}

func (s *Service) Create(ctx context.Context, actor auth.Principal, params CreateParams) (*db.NovelRecord, error) {
	title, err := validateTitle(params.Title)
	if err != nil {
		return nil, err
	}
	tags := NormalizeTags(params.Tags)
	if len(tags) > MaxTags {
		return nil, ErrTooManyTags
	}

	novelID, err := s.store.CreateNovel(ctx, db.CreateNovelParams{
		Title:       title,
		Description: strings.TrimSpace(params.Description),
		CoverURL:    trimOptional(params.CoverURL),
		AuthorID:    actor.UserID,
		Tags:        tags,
	})
	if err != nil {
		return nil, fmt.Errorf("create novel: %w", err)
	}
	s.log.Info().Str("novel_id", novelID).Str("author_id", actor.UserID).Msg("novel created")
	return s.loadNovel(ctx, novelID)
}

func (s *Service) Update(ctx context.Context, actor auth.Principal, novelID string, params UpdateParams) (*db.NovelRecord, error) {
	if err := s.authorize(ctx, actor, novelID); err != nil {
		return nil, err
	}

	update := db.UpdateNovelParams{
		Description: trimOptional(params.Description),
		CoverURL:    trimOptional(params.CoverURL),
	}
	if params.Title != nil {
		title, err := validateTitle(*params.Title)
		if err != nil {
			return nil, err
		}
		update.Title = &title
	}
	if params.Tags != nil {
		update.Tags = NormalizeTags(params.Tags)
		if len(update.Tags) > MaxTags {
			return nil, ErrTooManyTags
		}
	}

	if err := s.store.UpdateNovel(ctx, novelID, update); err != nil {
		if db.IsNoRows(err) {
			return nil, ErrNovelNotFound
		}
		return nil, fmt.Errorf("update novel: %w", err)
	}
	return s.loadNovel(ctx, novelID)
}

func (s *Service) Delete(ctx context.Context, actor auth.Principal, novelID string) error {
	if err := s.authorize(ctx, actor, novelID); err != nil {
		return err
	}
	if err := s.store.DeleteNovel(ctx, novelID); err != nil {
		if db.IsNoRows(err) {
			return ErrNovelNotFound
		}
		return fmt.Errorf("delete novel: %w", err)
	}
	s.log.Info().Str("novel_id", novelID).Str("actor_id", actor.UserID).Msg("novel deleted")
	return nil
}

// RecordView counts one view. viewerID is nil for anonymous readers.
func (s *Service) RecordView(ctx context.Context, novelID string, viewerID *string) error {
	if !validID(novelID) {
		return ErrNovelNotFound
	}
	if err := s.store.RecordNovelView(ctx, novelID, viewerID); err != nil {
		if db.IsForeignKeyViolation(err) {
			return ErrNovelNotFound
		}
		return fmt.Errorf("record view: %w", err)
	}
	return nil
}

func (s *Service) GetChapter(ctx context.Context, novelID, chapterID string) (*db.ChapterRecord, error) {
	return s.loadChapter(ctx, novelID, chapterID)
}

func (s *Service) AddChapter(ctx context.Context, actor auth.Principal, novelID string, params ChapterParams) (*db.ChapterRecord, error) {
	if err := s.authorize(ctx, actor, novelID); err != nil {
		return nil, err
	}
	title, err := validateTitle(params.Title)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(params.Content) == "" {
		return nil, ErrEmptyContent
	}

	chapter, err := s.store.CreateChapter(ctx, novelID, title, params.Content)
	if err != nil {
		return nil, fmt.Errorf("create chapter: %w", err)
	}
	s.notifyFollowers(ctx, actor.UserID, chapter)
	return chapter, nil
}

func (s *Service) UpdateChapter(ctx context.Context, actor auth.Principal, novelID, chapterID string, params ChapterUpdateParams) (*db.ChapterRecord, error) {
	if err := s.authorize(ctx, actor, novelID); err != nil {
		return nil, err
	}
	if _, err := s.loadChapter(ctx, novelID, chapterID); err != nil {
		return nil, err
	}

	var update db.UpdateChapterParams
	if params.Title != nil {
		title, err := validateTitle(*params.Title)
		if err != nil {
			return nil, err
		}
		update.Title = &title
	}
	if params.Content != nil {
		if strings.TrimSpace(*params.Content) == "" {
			return nil, ErrEmptyContent
		}
		update.Content = params.Content
	}

	chapter, err := s.store.UpdateChapter(ctx, chapterID, update)
	if err != nil {
		if db.IsNoRows(err) {
			return nil, ErrChapterNotFound
		}
		return nil, fmt.Errorf("update chapter: %w", err)
	}
	return chapter, nil
}

func (s *Service) DeleteChapter(ctx context.Context, actor auth.Principal, novelID, chapterID string) error {
	if err := s.authorize(ctx, actor, novelID); err != nil {
		return err
	}
	if _, err := s.loadChapter(ctx, novelID, chapterID); err != nil {
		return err
	}
	if err := s.store.DeleteChapter(ctx, chapterID); err != nil {
		if db.IsNoRows(err) {
			return ErrChapterNotFound
		}
		return fmt.Errorf("delete chapter: %w", err)
	}
	return nil
}

// authorize allows the novel's author and admins.
func (s *Service) authorize(ctx context.Context, actor auth.Principal, novelID string) error {
	if !validID(novelID) {
		return ErrNovelNotFound
	}
	authorID, err := s.store.GetNovelAuthorID(ctx, novelID)
	if err != nil {
		if db.IsNoRows(err) {
			return ErrNovelNotFound
		}
		return fmt.Errorf("load novel author: %w", err)
	}
	if authorID != actor.UserID && !actor.IsAdmin() {
		return ErrForbidden
	}
	return nil
}

func (s *Service) loadNovel(ctx context.Context, novelID string) (*db.NovelRecord, error) {
	if !validID(novelID) {
		return nil, ErrNovelNotFound
	}
	novel, err := s.store.GetNovel(ctx, novelID)
	if err != nil {
		if db.IsNoRows(err) {
			return nil, ErrNovelNotFound
		}
		return nil, fmt.Errorf("load novel: %w", err)
	}
	return novel, nil
}

// loadChapter returns the chapter only when it belongs to novelID.
func (s *Service) loadChapter(ctx context.Context, novelID, chapterID string) (*db.ChapterRecord, error) {
	if !validID(novelID) || !validID(chapterID) {
		return nil, ErrChapterNotFound
	}
	chapter, err := s.store.GetChapter(ctx, chapterID)
	if err != nil {
		if db.IsNoRows(err) {
			return nil, ErrChapterNotFound
		}
		return nil, fmt.Errorf("load chapter: %w", err)
	}
	if chapter.NovelID != novelID {
		return nil, ErrChapterNotFound
	}
	return chapter, nil
}

func (s *Service) notifyFollowers(ctx context.Context, authorID string, chapter *db.ChapterRecord) {
	if s.notifier == nil {
		return
	}
	userIDs, err := s.store.ListLibraryUserIDs(ctx, chapter.NovelID, authorID)
	if err != nil {
		s.log.Warn().Err(err).Str("novel_id", chapter.NovelID).Msg("list library followers failed")
		return
	}

	payload := map[string]string{
		"novelId":      chapter.NovelID,
		"chapterId":    chapter.ID,
		"chapterTitle": chapter.Title,
	}
	for _, userID := range userIDs {
		if err := s.notifier.Notify(ctx, userID, NotificationNewChapter, payload); err != nil {
			s.log.Warn().Err(err).Str("user_id", userID).Str("chapter_id", chapter.ID).Msg("new chapter notification failed")
		}
	}
}

// NormalizeTags lowercases and trims tags, dropping blanks and duplicates while keeping order.
func NormalizeTags(raw []string) []string {
	out := make([]string, 0, len(raw))
	seen := make(map[string]struct{}, len(raw))
	for _, tag := range raw {
		normalized := strings.ToLower(strings.TrimSpace(tag))
		if normalized == "" {
			continue
		}
		if _, exists := seen[normalized]; exists {
			continue
		}
		seen[normalized] = struct{}{}
		out = append(out, normalized)
	}
	return out
}

// ParseTagList splits a comma separated tag filter.
func ParseTagList(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	return NormalizeTags(strings.Split(raw, ","))
}

func validateTitle(raw string) (string, error) {
	title := strings.TrimSpace(raw)
	if title == "" || utf8.RuneCountInString(title) > MaxTitleLength {
		return "", ErrInvalidTitle
	}
	return title, nil
}

func trimOptional(raw *string) *string {
	if raw == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*raw)
	return &trimmed
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return DefaultListLimit
	}
	if limit > MaxListLimit {
		return MaxListLimit
	}
	return limit
}

func validID(raw string) bool {
	_, err := uuid.Parse(raw)
	return err == nil
}
