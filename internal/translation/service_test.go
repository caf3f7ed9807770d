package translation

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"horse.fit/webnovels/internal/db"
)

const testChapterID = "0b8f3c52-0d5e-4c58-9a37-5f3d2d7c1a10"

type fakeProvider struct {
	name  string
	reply string
	err   error
	delay time.Duration
	calls atomic.Int32

	mu      sync.Mutex
	targets []string
}

func (p *fakeProvider) Name() string { return p.name }

func (p *fakeProvider) TranslateText(_ context.Context, text, targetLang string) (string, error) {
	p.calls.Add(1)
	p.mu.Lock()
	p.targets = append(p.targets, targetLang)
	p.mu.Unlock()
	if p.delay > 0 {
		time.Sleep(p.delay)
	}
	if p.err != nil {
		return "", p.err
	}
	if p.reply != "" {
		return p.reply, nil
	}
	return "[" + targetLang + "] " + text, nil
}

type fakeStore struct {
	mu       sync.Mutex
	chapters map[string]string
	cache    map[string]db.ChapterTranslationRecord
	inserts  []db.InsertChapterTranslationParams

	// forceConflict makes the next insert lose to a pre-staged winner.
	forceConflict *db.ChapterTranslationRecord
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		chapters: map[string]string{},
		cache:    map[string]db.ChapterTranslationRecord{},
	}
}

func (s *fakeStore) GetChapterTranslation(_ context.Context, chapterID, targetLang string) (*db.ChapterTranslationRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.cache[chapterID+"|"+targetLang]
	if !ok {
		return nil, db.ErrNoRows
	}
	return &rec, nil
}

func (s *fakeStore) GetChapterContent(_ context.Context, chapterID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	content, ok := s.chapters[chapterID]
	if !ok {
		return "", db.ErrNoRows
	}
	return content, nil
}

func (s *fakeStore) ListChapterTranslations(_ context.Context, chapterID string) ([]db.ChapterTranslationRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []db.ChapterTranslationRecord
	for _, rec := range s.cache {
		if rec.ChapterID == chapterID {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (s *fakeStore) InsertChapterTranslation(_ context.Context, params db.InsertChapterTranslationParams) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inserts = append(s.inserts, params)
	key := params.ChapterID + "|" + params.TargetLang
	if s.forceConflict != nil {
		s.cache[key] = *s.forceConflict
		s.forceConflict = nil
		return false, nil
	}
	if _, exists := s.cache[key]; exists {
		return false, nil
	}
	s.cache[key] = db.ChapterTranslationRecord{
		ChapterID:    params.ChapterID,
		TargetLang:   params.TargetLang,
		Text:         params.Text,
		SourceLang:   params.SourceLang,
		ProviderName: params.ProviderName,
	}
	return true, nil
}

func TestTranslateTextRejectsBlankBeforeProvider(t *testing.T) {
	t.Parallel()

	provider := &fakeProvider{name: "fake"}
	svc := NewService(newFakeStore(), provider, ServiceOptions{Logger: zerolog.Nop()})

	for _, text := range []string{"", "   ", "\n\t"} {
		if _, err := svc.TranslateText(context.Background(), text, "fr"); !errors.Is(err, ErrEmptyText) {
			t.Fatalf("TranslateText(%q) err = %v, want ErrEmptyText", text, err)
		}
	}
	if provider.calls.Load() != 0 {
		t.Fatalf("provider must not be called, got %d calls", provider.calls.Load())
	}
}

func TestTranslateTextDefaultsTargetToEnglish(t *testing.T) {
	t.Parallel()

	provider := &fakeProvider{name: "fake"}
	svc := NewService(newFakeStore(), provider, ServiceOptions{Logger: zerolog.Nop()})

	text, err := svc.TranslateText(context.Background(), "안녕", "")
	if err != nil {
		t.Fatalf("TranslateText: %v", err)
	}
	if text != "[en] 안녕" {
		t.Fatalf("unexpected text %q", text)
	}
	if _, err := svc.TranslateText(context.Background(), "hi", "f r!"); !errors.Is(err, ErrInvalidTargetLang) {
		t.Fatalf("expected ErrInvalidTargetLang, got %v", err)
	}
}

func TestTranslateAcceptsNumericRegionTarget(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	store.chapters[testChapterID] = "Capítulo"
	provider := &fakeProvider{name: "fake"}
	svc := NewService(store, provider, ServiceOptions{Logger: zerolog.Nop()})

	text, err := svc.TranslateText(context.Background(), "Hello", "es-419")
	if err != nil {
		t.Fatalf("TranslateText: %v", err)
	}
	if text != "[es-419] Hello" {
		t.Fatalf("unexpected text %q", text)
	}

	chapter, err := svc.TranslateChapter(context.Background(), testChapterID, "ES_419")
	if err != nil {
		t.Fatalf("TranslateChapter: %v", err)
	}
	if chapter != "[es-419] Capítulo" {
		t.Fatalf("unexpected chapter text %q", chapter)
	}
	if len(store.inserts) != 1 || store.inserts[0].TargetLang != "es-419" {
		t.Fatalf("unexpected inserts %+v", store.inserts)
	}
	if provider.calls.Load() != 2 {
		t.Fatalf("expected two provider calls, got %d", provider.calls.Load())
	}
}

func TestTranslateTextWrapsProviderFailure(t *testing.T) {
	t.Parallel()

	transport := errors.New("connection refused")
	svc := NewService(newFakeStore(), &fakeProvider{name: "fake", err: transport}, ServiceOptions{Logger: zerolog.Nop()})

	_, err := svc.TranslateText(context.Background(), "hello", "de")
	if !errors.Is(err, ErrProviderFailed) || !errors.Is(err, transport) {
		t.Fatalf("expected provider failure wrapping transport error, got %v", err)
	}
}

func TestTranslateChapterCacheHitSkipsProvider(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	store.cache[testChapterID+"|fr"] = db.ChapterTranslationRecord{Text: "déjà traduit"}
	provider := &fakeProvider{name: "fake"}
	svc := NewService(store, provider, ServiceOptions{Logger: zerolog.Nop()})

	text, err := svc.TranslateChapter(context.Background(), testChapterID, "FR")
	if err != nil {
		t.Fatalf("TranslateChapter: %v", err)
	}
	if text != "déjà traduit" {
		t.Fatalf("unexpected text %q", text)
	}
	if provider.calls.Load() != 0 {
		t.Fatalf("cache hit must not call provider")
	}
}

func TestTranslateChapterMissTranslatesAndCaches(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	store.chapters[testChapterID] = "Chapter one text"
	provider := &fakeProvider{name: "fake"}
	svc := NewService(store, provider, ServiceOptions{
		Logger:         zerolog.Nop(),
		DetectLanguage: func(string) string { return "en" },
	})

	first, err := svc.TranslateChapter(context.Background(), testChapterID, "de")
	if err != nil {
		t.Fatalf("TranslateChapter: %v", err)
	}
	second, err := svc.TranslateChapter(context.Background(), testChapterID, "de")
	if err != nil {
		t.Fatalf("TranslateChapter (cached): %v", err)
	}
	if first != "[de] Chapter one text" || second != first {
		t.Fatalf("unexpected texts %q %q", first, second)
	}
	if provider.calls.Load() != 1 {
		t.Fatalf("expected exactly one provider call, got %d", provider.calls.Load())
	}
	if len(store.inserts) != 1 {
		t.Fatalf("expected one cache insert, got %d", len(store.inserts))
	}
	insert := store.inserts[0]
	if insert.SourceLang != "en" || insert.ProviderName != "fake" || insert.TargetLang != "de" {
		t.Fatalf("unexpected insert %+v", insert)
	}
}

func TestTranslateChapterMissingChapter(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	provider := &fakeProvider{name: "fake"}
	svc := NewService(store, provider, ServiceOptions{Logger: zerolog.Nop()})

	for _, id := range []string{testChapterID, "not-a-uuid", ""} {
		if _, err := svc.TranslateChapter(context.Background(), id, "en"); !errors.Is(err, ErrChapterNotFound) {
			t.Fatalf("TranslateChapter(%q) err = %v, want ErrChapterNotFound", id, err)
		}
	}
	if provider.calls.Load() != 0 || len(store.inserts) != 0 {
		t.Fatalf("missing chapter must not call provider or write cache")
	}
}

func TestTranslateChapterPersistsEmptyProviderOutput(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	store.chapters[testChapterID] = "text"
	svc := NewService(store, emptyProvider{}, ServiceOptions{Logger: zerolog.Nop()})

	text, err := svc.TranslateChapter(context.Background(), testChapterID, "ja")
	if err != nil {
		t.Fatalf("TranslateChapter: %v", err)
	}
	if text != "" {
		t.Fatalf("expected empty text, got %q", text)
	}
	if rec, ok := store.cache[testChapterID+"|ja"]; !ok || rec.Text != "" {
		t.Fatalf("expected empty translation cached, got %+v %v", rec, ok)
	}
}

type emptyProvider struct{}

func (emptyProvider) Name() string { return "empty" }

func (emptyProvider) TranslateText(context.Context, string, string) (string, error) { return "", nil }

func TestTranslateChapterLosingInsertReturnsStoredWinner(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	store.chapters[testChapterID] = "text"
	store.forceConflict = &db.ChapterTranslationRecord{Text: "winner"}
	svc := NewService(store, &fakeProvider{name: "fake"}, ServiceOptions{Logger: zerolog.Nop()})

	text, err := svc.TranslateChapter(context.Background(), testChapterID, "ko")
	if err != nil {
		t.Fatalf("TranslateChapter: %v", err)
	}
	if text != "winner" {
		t.Fatalf("expected stored winner, got %q", text)
	}
}

func TestTranslateChapterConcurrentCallersShareOneTranslation(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	store.chapters[testChapterID] = "shared"
	provider := &fakeProvider{name: "fake", delay: 20 * time.Millisecond}
	svc := NewService(store, provider, ServiceOptions{
		Logger: zerolog.Nop(),
		Locker: NewLocalLocker(),
	})

	const callers = 8
	results := make([]string, callers)
	errs := make([]error, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = svc.TranslateChapter(context.Background(), testChapterID, "es")
		}(i)
	}
	wg.Wait()

	for i := 0; i < callers; i++ {
		if errs[i] != nil {
			t.Fatalf("caller %d: %v", i, errs[i])
		}
		if results[i] != results[0] {
			t.Fatalf("caller %d observed %q, caller 0 observed %q", i, results[i], results[0])
		}
	}
	if provider.calls.Load() != 1 {
		t.Fatalf("expected one provider call with locking, got %d", provider.calls.Load())
	}
}

type failingLocker struct{}

func (failingLocker) Lock(context.Context, string) (func(), error) {
	return nil, errors.New("redis down")
}

func TestTranslateChapterLockFailureDegradesToUnlocked(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	store.chapters[testChapterID] = "text"
	svc := NewService(store, &fakeProvider{name: "fake"}, ServiceOptions{
		Logger: zerolog.Nop(),
		Locker: failingLocker{},
	})

	text, err := svc.TranslateChapter(context.Background(), testChapterID, "fr")
	if err != nil {
		t.Fatalf("lock failure must not fail translation: %v", err)
	}
	if text != "[fr] text" {
		t.Fatalf("unexpected text %q", text)
	}
}

func TestCachedLanguagesListsStoredTranslations(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	store.chapters[testChapterID] = "Chapter one text"
	svc := NewService(store, &fakeProvider{name: "fake"}, ServiceOptions{
		Logger:         zerolog.Nop(),
		DetectLanguage: func(string) string { return "en" },
	})

	if _, err := svc.TranslateChapter(context.Background(), testChapterID, "de"); err != nil {
		t.Fatalf("TranslateChapter: %v", err)
	}
	langs, err := svc.CachedLanguages(context.Background(), testChapterID)
	if err != nil {
		t.Fatalf("CachedLanguages: %v", err)
	}
	if len(langs) != 1 || langs[0].TargetLang != "de" || langs[0].SourceLang != "en" || langs[0].ProviderName != "fake" {
		t.Fatalf("unexpected cached languages %+v", langs)
	}
	if _, err := svc.CachedLanguages(context.Background(), "not-a-uuid"); !errors.Is(err, ErrChapterNotFound) {
		t.Fatalf("expected ErrChapterNotFound, got %v", err)
	}
}

func TestModelNameUnwrapsRateLimitedProvider(t *testing.T) {
	t.Parallel()

	openai := NewOpenAIProvider("http://openai.invalid/v1", "key", "gpt-4o-mini", time.Second)
	svc := NewService(newFakeStore(), NewRateLimitedProvider(openai, 2), ServiceOptions{Logger: zerolog.Nop()})
	if got := svc.ModelName(); got != "gpt-4o-mini" {
		t.Fatalf("ModelName() = %q, want gpt-4o-mini", got)
	}

	plain := NewService(newFakeStore(), &fakeProvider{name: "fake"}, ServiceOptions{Logger: zerolog.Nop()})
	if got := plain.ModelName(); got != "" {
		t.Fatalf("expected empty model for non-model provider, got %q", got)
	}
}
