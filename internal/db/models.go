package db

import (
	"encoding/json"
	"time"
)

// User maps webnovels.users.
type User struct {
	ID           string          `gorm:"column:id;type:uuid;primaryKey;default:gen_random_uuid()"`
	Email        string          `gorm:"column:email;type:text;not null;uniqueIndex:users_email_key"`
	PasswordHash string          `gorm:"column:password_hash;type:text;not null"`
	DisplayName  string          `gorm:"column:display_name;type:text;not null;default:''"`
	AvatarURL    *string         `gorm:"column:avatar_url;type:text"`
	Bio          *string         `gorm:"column:bio;type:text"`
	Preferences  json.RawMessage `gorm:"column:preferences;type:jsonb;not null;default:'{}'::jsonb"`
	Role         string          `gorm:"column:role;type:text;not null;default:user"`
	CreatedAt    time.Time       `gorm:"column:created_at;type:timestamptz;not null;default:now()"`
	UpdatedAt    time.Time       `gorm:"column:updated_at;type:timestamptz;not null;default:now()"`
}

func (User) TableName() string { return "webnovels.users" }

// Novel maps webnovels.novels.
type Novel struct {
	ID          string    `gorm:"column:id;type:uuid;primaryKey;default:gen_random_uuid()"`
	Title       string    `gorm:"column:title;type:text;not null"`
	Description string    `gorm:"column:description;type:text;not null;default:''"`
	CoverURL    *string   `gorm:"column:cover_url;type:text"`
	AuthorID    string    `gorm:"column:author_id;type:uuid;not null;index:novels_author_id_idx"`
	Rating      float64   `gorm:"column:rating;type:numeric(4,2);not null;default:0"`
	CreatedAt   time.Time `gorm:"column:created_at;type:timestamptz;not null;default:now()"`
	UpdatedAt   time.Time `gorm:"column:updated_at;type:timestamptz;not null;default:now()"`
}

func (Novel) TableName() string { return "webnovels.novels" }

// Tag maps webnovels.tags.
type Tag struct {
	ID   string `gorm:"column:id;type:uuid;primaryKey;default:gen_random_uuid()"`
	Name string `gorm:"column:name;type:text;not null;uniqueIndex:tags_name_key"`
}

func (Tag) TableName() string { return "webnovels.tags" }

// NovelTag maps webnovels.novel_tags.
type NovelTag struct {
	NovelID string `gorm:"column:novel_id;type:uuid;primaryKey"`
	TagID   string `gorm:"column:tag_id;type:uuid;primaryKey;index:novel_tags_tag_id_idx"`
}

func (NovelTag) TableName() string { return "webnovels.novel_tags" }

// Chapter maps webnovels.chapters.
type Chapter struct {
	ID        string    `gorm:"column:id;type:uuid;primaryKey;default:gen_random_uuid()"`
	NovelID   string    `gorm:"column:novel_id;type:uuid;not null;index:chapters_novel_id_idx"`
	Title     string    `gorm:"column:title;type:text;not null"`
	Content   string    `gorm:"column:content;type:text;not null;default:''"`
	CreatedAt time.Time `gorm:"column:created_at;type:timestamptz;not null;default:now()"`
	UpdatedAt time.Time `gorm:"column:updated_at;type:timestamptz;not null;default:now()"`
}

func (Chapter) TableName() string { return "webnovels.chapters" }

// ChapterTranslation maps webnovels.chapter_translations.
type ChapterTranslation struct {
	ID           string    `gorm:"column:id;type:uuid;primaryKey;default:gen_random_uuid()"`
	ChapterID    string    `gorm:"column:chapter_id;type:uuid;not null;uniqueIndex:chapter_translations_chapter_lang_key,priority:1"`
	TargetLang   string    `gorm:"column:target_lang;type:text;not null;uniqueIndex:chapter_translations_chapter_lang_key,priority:2"`
	Text         string    `gorm:"column:text;type:text;not null"`
	SourceLang   string    `gorm:"column:source_lang;type:text;not null;default:''"`
	ProviderName string    `gorm:"column:provider_name;type:text;not null;default:''"`
	CreatedAt    time.Time `gorm:"column:created_at;type:timestamptz;not null;default:now()"`
}

func (ChapterTranslation) TableName() string { return "webnovels.chapter_translations" }

// Comment maps webnovels.comments.
type Comment struct {
	ID        string    `gorm:"column:id;type:uuid;primaryKey;default:gen_random_uuid()"`
	AuthorID  string    `gorm:"column:author_id;type:uuid;not null"`
	NovelID   *string   `gorm:"column:novel_id;type:uuid;index:comments_novel_id_idx"`
	ChapterID *string   `gorm:"column:chapter_id;type:uuid;index:comments_chapter_id_idx"`
	ParentID  *string   `gorm:"column:parent_id;type:uuid;index:comments_parent_id_idx"`
	Content   string    `gorm:"column:content;type:text;not null"`
	CreatedAt time.Time `gorm:"column:created_at;type:timestamptz;not null;default:now()"`
}

func (Comment) TableName() string { return "webnovels.comments" }

// Report maps webnovels.reports.
type Report struct {
	ID          string    `gorm:"column:id;type:uuid;primaryKey;default:gen_random_uuid()"`
	TargetType  string    `gorm:"column:target_type;type:text;not null"`
	TargetID    string    `gorm:"column:target_id;type:text;not null"`
	Reason      string    `gorm:"column:reason;type:text;not null"`
	Description *string   `gorm:"column:description;type:text"`
	Status      string    `gorm:"column:status;type:text;not null;default:OPEN;index:reports_status_created_idx,priority:1"`
	ReporterID  string    `gorm:"column:reporter_id;type:uuid;not null"`
	AdminID     *string   `gorm:"column:admin_id;type:uuid"`
	AdminNote   *string   `gorm:"column:admin_note;type:text"`
	CreatedAt   time.Time `gorm:"column:created_at;type:timestamptz;not null;default:now();index:reports_status_created_idx,priority:2"`
	UpdatedAt   time.Time `gorm:"column:updated_at;type:timestamptz;not null;default:now()"`
}

func (Report) TableName() string { return "webnovels.reports" }

// LibraryEntry maps webnovels.library_entries.
type LibraryEntry struct {
	ID        string    `gorm:"column:id;type:uuid;primaryKey;default:gen_random_uuid()"`
	UserID    string    `gorm:"column:user_id;type:uuid;not null;uniqueIndex:library_entries_user_novel_key,priority:1"`
	NovelID   string    `gorm:"column:novel_id;type:uuid;not null;uniqueIndex:library_entries_user_novel_key,priority:2"`
	Status    string    `gorm:"column:status;type:text;not null;default:READING"`
	Favorite  bool      `gorm:"column:favorite;type:boolean;not null;default:false"`
	Progress  int       `gorm:"column:progress;type:integer;not null;default:0"`
	UpdatedAt time.Time `gorm:"column:updated_at;type:timestamptz;not null;default:now()"`
}

func (LibraryEntry) TableName() string { return "webnovels.library_entries" }

// UserRating maps webnovels.user_ratings.
type UserRating struct {
	ID        string    `gorm:"column:id;type:uuid;primaryKey;default:gen_random_uuid()"`
	UserID    string    `gorm:"column:user_id;type:uuid;not null;uniqueIndex:user_ratings_user_novel_key,priority:1"`
	NovelID   string    `gorm:"column:novel_id;type:uuid;not null;uniqueIndex:user_ratings_user_novel_key,priority:2"`
	Value     int       `gorm:"column:value;type:smallint;not null"`
	UpdatedAt time.Time `gorm:"column:updated_at;type:timestamptz;not null;default:now()"`
}

func (UserRating) TableName() string { return "webnovels.user_ratings" }

// NovelView maps webnovels.novel_views.
type NovelView struct {
	ID        int64     `gorm:"column:id;primaryKey;autoIncrement"`
	NovelID   string    `gorm:"column:novel_id;type:uuid;not null;index:novel_views_novel_created_idx,priority:1"`
	UserID    *string   `gorm:"column:user_id;type:uuid"`
	CreatedAt time.Time `gorm:"column:created_at;type:timestamptz;not null;default:now();index:novel_views_novel_created_idx,priority:2"`
}

func (NovelView) TableName() string { return "webnovels.novel_views" }

// Notification maps webnovels.notifications.
type Notification struct {
	ID        string          `gorm:"column:id;type:uuid;primaryKey;default:gen_random_uuid()"`
	UserID    string          `gorm:"column:user_id;type:uuid;not null;index:notifications_user_created_idx,priority:1"`
	Type      string          `gorm:"column:type;type:text;not null"`
	Payload   json.RawMessage `gorm:"column:payload;type:jsonb;not null;default:'{}'::jsonb"`
	IsRead    bool            `gorm:"column:is_read;type:boolean;not null;default:false"`
	CreatedAt time.Time       `gorm:"column:created_at;type:timestamptz;not null;default:now();index:notifications_user_created_idx,priority:2"`
}

func (Notification) TableName() string { return "webnovels.notifications" }

// Achievement maps webnovels.achievements.
type Achievement struct {
	ID          string `gorm:"column:id;type:uuid;primaryKey;default:gen_random_uuid()"`
	Code        string `gorm:"column:code;type:text;not null;uniqueIndex:achievements_code_key"`
	Title       string `gorm:"column:title;type:text;not null"`
	Description string `gorm:"column:description;type:text;not null;default:''"`
	Points      int    `gorm:"column:points;type:integer;not null;default:0"`
}

func (Achievement) TableName() string { return "webnovels.achievements" }

// UserAchievement maps webnovels.user_achievements.
type UserAchievement struct {
	ID            string    `gorm:"column:id;type:uuid;primaryKey;default:gen_random_uuid()"`
	UserID        string    `gorm:"column:user_id;type:uuid;not null;uniqueIndex:user_achievements_user_achievement_key,priority:1"`
	AchievementID string    `gorm:"column:achievement_id;type:uuid;not null;uniqueIndex:user_achievements_user_achievement_key,priority:2"`
	EarnedAt      time.Time `gorm:"column:earned_at;type:timestamptz;not null;default:now()"`
}

func (UserAchievement) TableName() string { return "webnovels.user_achievements" }

func autoMigrateModels() []any {
	return []any{
		&User{},
		&Novel{},
		&Tag{},
		&NovelTag{},
		&Chapter{},
		&ChapterTranslation{},
		&Comment{},
		&Report{},
		&LibraryEntry{},
		&UserRating{},
		&NovelView{},
		&Notification{},
		&Achievement{},
		&UserAchievement{},
	}
}
