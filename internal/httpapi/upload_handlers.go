package httpapi

import (
	"context"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"

	"horse.fit/webnovels/internal/uploads"
)

type uploadService interface {
	Put(ctx context.Context, filename, contentType string, size int64, body io.Reader) (*uploads.Object, error)
}

func (s *Server) handleUpload(c echo.Context) error {
	if _, ok := principalFromContext(c); !ok {
		return unauthorizedResponse(c)
	}
	if s.svc.Uploads == nil {
		return s.serviceError(c, uploads.ErrDisabled, "Uploads are not configured")
	}

	header, err := c.FormFile("file")
	if err != nil {
		if he, ok := err.(*echo.HTTPError); ok && he.Code == http.StatusRequestEntityTooLarge {
			return s.serviceError(c, uploads.ErrFileTooLarge, "Upload too large")
		}
		return failValidation(c, map[string]string{"file": "is required"})
	}
	if header.Size > uploads.MaxFileSize {
		return s.serviceError(c, uploads.ErrFileTooLarge, "Upload too large")
	}

	file, err := header.Open()
	if err != nil {
		s.logger.Error().Err(err).Msg("open upload failed")
		return internalError(c, "Failed to read upload")
	}
	defer file.Close()

	object, err := s.svc.Uploads.Put(
		requestContext(c),
		header.Filename,
		header.Header.Get(echo.HeaderContentType),
		header.Size,
		file,
	)
	if err != nil {
		return s.serviceError(c, err, "Failed to store upload")
	}
	return successWithStatus(c, http.StatusCreated, object)
}
