package httpapi

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"horse.fit/webnovels/internal/achievements"
	"horse.fit/webnovels/internal/comments"
	"horse.fit/webnovels/internal/library"
	"horse.fit/webnovels/internal/moderation"
	"horse.fit/webnovels/internal/notifications"
	"horse.fit/webnovels/internal/novels"
	"horse.fit/webnovels/internal/ratings"
	"horse.fit/webnovels/internal/translation"
	"horse.fit/webnovels/internal/uploads"
	"horse.fit/webnovels/internal/users"
)

type errorStatus struct {
	err    error
	status int
}

// serviceErrors maps sentinel errors to response codes. Order matters only
// for errors that wrap each other.
var serviceErrors = []errorStatus{
	{users.ErrInvalidEmail, http.StatusBadRequest},
	{users.ErrPasswordTooShort, http.StatusBadRequest},
	{users.ErrDisplayName, http.StatusBadRequest},
	{users.ErrBioTooLong, http.StatusBadRequest},
	{users.ErrInvalidAvatarURL, http.StatusBadRequest},
	{users.ErrInvalidPreferences, http.StatusBadRequest},
	{users.ErrEmailTaken, http.StatusConflict},
	{users.ErrInvalidCredentials, http.StatusUnauthorized},
	{users.ErrUserNotFound, http.StatusNotFound},

	{novels.ErrInvalidTitle, http.StatusBadRequest},
	{novels.ErrTooManyTags, http.StatusBadRequest},
	{novels.ErrInvalidMode, http.StatusBadRequest},
	{novels.ErrEmptyContent, http.StatusBadRequest},
	{novels.ErrNovelNotFound, http.StatusNotFound},
	{novels.ErrChapterNotFound, http.StatusNotFound},
	{novels.ErrForbidden, http.StatusForbidden},

	{comments.ErrEmptyContent, http.StatusBadRequest},
	{comments.ErrContentTooLong, http.StatusBadRequest},
	{comments.ErrMissingTarget, http.StatusBadRequest},
	{comments.ErrParentNotFound, http.StatusNotFound},
	{comments.ErrTargetNotFound, http.StatusNotFound},
	{comments.ErrCommentNotFound, http.StatusNotFound},
	{comments.ErrForbidden, http.StatusForbidden},

	{library.ErrInvalidStatus, http.StatusBadRequest},
	{library.ErrNegativeProgress, http.StatusBadRequest},
	{library.ErrEntryNotFound, http.StatusNotFound},
	{library.ErrNovelNotFound, http.StatusNotFound},

	{ratings.ErrInvalidValue, http.StatusBadRequest},
	{ratings.ErrNovelNotFound, http.StatusNotFound},

	{achievements.ErrAchievementNotFound, http.StatusNotFound},
	{notifications.ErrNotificationNotFound, http.StatusNotFound},

	{translation.ErrEmptyText, http.StatusBadRequest},
	{translation.ErrInvalidTargetLang, http.StatusBadRequest},
	{translation.ErrChapterNotFound, http.StatusBadRequest},
	{translation.ErrProviderFailed, http.StatusBadGateway},

	{moderation.ErrInvalidAction, http.StatusBadRequest},
	{moderation.ErrInvalidStatus, http.StatusBadRequest},
	{moderation.ErrInvalidReason, http.StatusBadRequest},
	{moderation.ErrInvalidTarget, http.StatusBadRequest},
	{moderation.ErrDescriptionLength, http.StatusBadRequest},
	{moderation.ErrReportNotFound, http.StatusNotFound},
	{moderation.ErrContentNotFound, http.StatusNotFound},

	{uploads.ErrNotImage, http.StatusBadRequest},
	{uploads.ErrEmptyFile, http.StatusBadRequest},
	{uploads.ErrFileTooLarge, http.StatusRequestEntityTooLarge},
	{uploads.ErrDisabled, http.StatusServiceUnavailable},
}

func statusForError(err error) (errorStatus, bool) {
	for _, entry := range serviceErrors {
		if errors.Is(err, entry.err) {
			return entry, true
		}
	}
	return errorStatus{}, false
}

// serviceError writes the response for a failed service call. Known sentinel
// errors become fail responses carrying the sentinel message; anything else is
// logged and reported as an internal error with the given message.
func (s *Server) serviceError(c echo.Context, err error, message string) error {
	known, ok := statusForError(err)
	if !ok {
		s.logger.Error().Err(err).Str("uri", c.Request().RequestURI).Msg(message)
		return internalError(c, message)
	}
	if known.status >= http.StatusInternalServerError {
		s.logger.Warn().Err(err).Str("uri", c.Request().RequestURI).Msg(message)
	}
	return fail(c, known.status, capitalize(known.err.Error()), nil)
}

func capitalize(msg string) string {
	if msg == "" {
		return msg
	}
	if msg[0] >= 'a' && msg[0] <= 'z' {
		return string(msg[0]-'a'+'A') + msg[1:]
	}
	return msg
}
