// Package moderation handles user reports and the admin actions taken on them.
package moderation

import (
	"strings"

	"horse.fit/webnovels/internal/db"
)

type TargetType string

const (
	TargetComment TargetType = "COMMENT"
	TargetChapter TargetType = "CHAPTER"
)

type Reason string

const (
	ReasonSpam          Reason = "SPAM"
	ReasonAbuse         Reason = "ABUSE"
	ReasonInappropriate Reason = "INAPPROPRIATE"
	ReasonCopyright     Reason = "COPYRIGHT"
	ReasonOther         Reason = "OTHER"
)

type Status string

const (
	StatusOpen     Status = "OPEN"
	StatusInReview Status = "IN_REVIEW"
	StatusResolved Status = "RESOLVED"
	StatusRejected Status = "REJECTED"
)

// Action is the moderation step an admin attaches to a decision.
type Action string

const (
	ActionNone          Action = "none"
	ActionDeleteContent Action = "delete_content"
	ActionBanUser       Action = "ban_user"
)

func ParseReason(raw string) (Reason, bool) {
	switch r := Reason(strings.ToUpper(strings.TrimSpace(raw))); r {
	case ReasonSpam, ReasonAbuse, ReasonInappropriate, ReasonCopyright, ReasonOther:
		return r, true
	}
	return "", false
}

// ParseStatus accepts a known status; blank input is not a status.
func ParseStatus(raw string) (Status, bool) {
	switch s := Status(strings.ToUpper(strings.TrimSpace(raw))); s {
	case StatusOpen, StatusInReview, StatusResolved, StatusRejected:
		return s, true
	}
	return "", false
}

// ParseAction maps blank input to ActionNone.
func ParseAction(raw string) (Action, bool) {
	switch a := Action(strings.ToLower(strings.TrimSpace(raw))); a {
	case "":
		return ActionNone, true
	case ActionNone, ActionDeleteContent, ActionBanUser:
		return a, true
	}
	return "", false
}

// NormalizeTargetType upper-cases the stored type. Unknown types are kept; they resolve to no target.
func NormalizeTargetType(raw string) TargetType {
	return TargetType(strings.ToUpper(strings.TrimSpace(raw)))
}

func (s Status) Terminal() bool {
	return s == StatusResolved || s == StatusRejected
}

// Target is the reported entity: *CommentTarget or *ChapterTarget.
type Target interface {
	Type() TargetType
	// AuthorID is the user accountable for the content.
	AuthorID() string
}

type CommentTarget struct {
	*db.CommentRecord
}

func (t *CommentTarget) Type() TargetType { return TargetComment }

func (t *CommentTarget) AuthorID() string {
	if t == nil || t.CommentRecord == nil {
		return ""
	}
	return t.CommentRecord.AuthorID
}

// ChapterTarget carries the chapter with its owning novel expanded.
type ChapterTarget struct {
	*db.ChapterRecord
	Novel *db.NovelRecord `json:"novel"`
}

func (t *ChapterTarget) Type() TargetType { return TargetChapter }

func (t *ChapterTarget) AuthorID() string {
	if t == nil || t.Novel == nil {
		return ""
	}
	return t.Novel.AuthorID
}

// ReportWithTarget pairs a report with its resolved target; Target is nil when
// the type is unknown or the content no longer exists.
type ReportWithTarget struct {
	Report *db.ReportRecord `json:"report"`
	Target Target           `json:"target"`
}
