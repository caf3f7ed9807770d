package moderation

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"horse.fit/webnovels/internal/db"
)

// TargetStore loads the entities a report can point at.
type TargetStore interface {
	GetComment(ctx context.Context, commentID string) (*db.CommentRecord, error)
	GetChapter(ctx context.Context, chapterID string) (*db.ChapterRecord, error)
	GetNovel(ctx context.Context, novelID string) (*db.NovelRecord, error)
}

type Resolver struct {
	store TargetStore
}

func NewResolver(store TargetStore) *Resolver {
	return &Resolver{store: store}
}

// ResolveTarget loads the entity a report refers to. A missing entity or an
// unrecognized target type yields a nil Target and no error.
func (r *Resolver) ResolveTarget(ctx context.Context, report *db.ReportRecord) (Target, error) {
	if report == nil {
		return nil, nil
	}
	if _, err := uuid.Parse(report.TargetID); err != nil {
		return nil, nil
	}

	switch NormalizeTargetType(report.TargetType) {
	case TargetComment:
		comment, err := r.store.GetComment(ctx, report.TargetID)
		if err != nil {
			if db.IsNoRows(err) {
				return nil, nil
			}
			return nil, fmt.Errorf("load reported comment: %w", err)
		}
		return &CommentTarget{CommentRecord: comment}, nil

	case TargetChapter:
		chapter, err := r.store.GetChapter(ctx, report.TargetID)
		if err != nil {
			if db.IsNoRows(err) {
				return nil, nil
			}
			return nil, fmt.Errorf("load reported chapter: %w", err)
		}
		novel, err := r.store.GetNovel(ctx, chapter.NovelID)
		if err != nil && !db.IsNoRows(err) {
			return nil, fmt.Errorf("load reported chapter novel: %w", err)
		}
		return &ChapterTarget{ChapterRecord: chapter, Novel: novel}, nil

	default:
		return nil, nil
	}
}
