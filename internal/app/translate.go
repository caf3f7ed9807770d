package app

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"
	"unicode/utf8"

	"horse.fit/webnovels/internal/cli"
	"horse.fit/webnovels/internal/language"
	"horse.fit/webnovels/internal/translation"
)

func runTranslateChapter(args []string) int {
	if len(args) == 0 {
		printTranslateUsage()
		return 2
	}

	fs := flag.NewFlagSet("translate-chapter", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	timeout := fs.Duration("timeout", 2*time.Minute, "Command timeout")
	lang := fs.String("lang", "en", "Target language (ISO 639-1, for example: en, es)")
	preview := fs.Int("preview", 200, "Characters of the translation to print (0 prints everything)")

	// The chapter id comes first so flags may follow it.
	chapterID := strings.TrimSpace(args[0])
	flagArgs := args[1:]
	if strings.HasPrefix(chapterID, "-") {
		chapterID = ""
		flagArgs = args
	}
	if err := fs.Parse(flagArgs); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	if chapterID == "" && fs.NArg() == 1 {
		chapterID = strings.TrimSpace(fs.Arg(0))
	}
	if chapterID == "" {
		fmt.Fprintln(os.Stderr, "translate-chapter requires a chapter id")
		printTranslateUsage()
		return 2
	}

	targetLang := normalizeLanguageFlag(*lang)
	if targetLang == "" {
		fmt.Fprintln(os.Stderr, "--lang must be a valid language code")
		return 2
	}

	cfg, logger, err := loadRuntime(envLoader)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Translate failed: %v\n", err)
		return 1
	}

	pool, err := connectPool(cfg, logger, 30*time.Second)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Translate failed: %v\n", err)
		return 1
	}
	defer pool.Close()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	svc, closeTranslator, err := newTranslationService(ctx, cfg, pool, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Translate failed: %v\n", err)
		return 1
	}
	defer closeTranslator()

	started := time.Now()
	text, err := svc.TranslateChapter(ctx, chapterID, targetLang)
	if err != nil {
		if errors.Is(err, translation.ErrChapterNotFound) {
			fmt.Fprintf(os.Stderr, "Chapter not found: %s\n", chapterID)
			return 1
		}
		fmt.Fprintf(os.Stderr, "Translate chapter failed: %v\n", err)
		return 1
	}

	fmt.Printf(
		"translate-chapter id=%s lang=%s provider=%s chars=%d elapsed=%s\n",
		chapterID,
		targetLang,
		svc.ProviderName(),
		utf8.RuneCountInString(text),
		time.Since(started).Round(time.Millisecond),
	)
	if *preview != 0 {
		fmt.Println(truncateRunes(text, *preview))
	}
	return 0
}

func normalizeLanguageFlag(raw string) string {
	return language.NormalizeTag(raw)
}

func truncateRunes(s string, n int) string {
	if n <= 0 || utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n]) + "..."
}

func printTranslateUsage() {
	fmt.Fprintln(os.Stderr, "Usage:")
	fmt.Fprintln(os.Stderr, "  webnovels translate-chapter <chapter_id> [--lang en] [--preview 200] [--env .env] [--timeout 2m]")
}
