package uploads

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"horse.fit/webnovels/internal/config"
)

const (
	MaxFileSize = 5 << 20
	keyPrefix   = "uploads/"
)

var (
	ErrNotImage     = errors.New("only image uploads are allowed")
	ErrFileTooLarge = errors.New("file exceeds the 5MB limit")
	ErrEmptyFile    = errors.New("file is empty")
	ErrDisabled     = errors.New("uploads are not configured")
)

// ObjectPutter is the slice of *s3.Client the uploader needs.
type ObjectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

type Object struct {
	Key         string `json:"key"`
	URL         string `json:"url"`
	ContentType string `json:"content_type"`
	Size        int64  `json:"size"`
}

type Uploader struct {
	client        ObjectPutter
	bucket        string
	publicBaseURL string
	log           zerolog.Logger
}

func NewUploader(client ObjectPutter, bucket, publicBaseURL string, log zerolog.Logger) *Uploader {
	return &Uploader{
		client:        client,
		bucket:        strings.TrimSpace(bucket),
		publicBaseURL: strings.TrimRight(strings.TrimSpace(publicBaseURL), "/"),
		log:           log.With().Str("component", "uploads").Logger(),
	}
}

// NewS3Client builds a client for any S3-compatible endpoint (AWS, R2, MinIO).
func NewS3Client(cfg *config.Config) *s3.Client {
	opts := s3.Options{
		Credentials: credentials.NewStaticCredentialsProvider(
			cfg.UploadAccessKeyID,
			cfg.UploadSecretAccessKey,
			"",
		),
		Region: cfg.UploadRegion,
	}
	if endpoint := strings.TrimSpace(cfg.UploadEndpoint); endpoint != "" {
		opts.BaseEndpoint = aws.String(endpoint)
		opts.UsePathStyle = true
	}
	return s3.New(opts)
}

// Put stores an image under uploads/<uuid><ext> and returns its public URL.
func (u *Uploader) Put(ctx context.Context, filename, contentType string, size int64, body io.Reader) (*Object, error) {
	if u == nil || u.client == nil {
		return nil, ErrDisabled
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil || !strings.HasPrefix(mediaType, "image/") {
		return nil, ErrNotImage
	}
	if size <= 0 {
		return nil, ErrEmptyFile
	}
	if size > MaxFileSize {
		return nil, ErrFileTooLarge
	}

	key := objectKey(filename, mediaType)
	if _, err := u.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(u.bucket),
		Key:           aws.String(key),
		Body:          body,
		ContentType:   aws.String(mediaType),
		ContentLength: aws.Int64(size),
	}); err != nil {
		return nil, fmt.Errorf("put object %s: %w", key, err)
	}

	u.log.Info().Str("key", key).Int64("size", size).Msg("upload stored")
	return &Object{
		Key:         key,
		URL:         u.publicBaseURL + "/" + key,
		ContentType: mediaType,
		Size:        size,
	}, nil
}

func objectKey(filename, mediaType string) string {
	ext := strings.ToLower(filepath.Ext(filepath.Base(filename)))
	if ext == "" || len(ext) > 8 {
		ext = ""
		if exts, err := mime.ExtensionsByType(mediaType); err == nil && len(exts) > 0 {
			ext = exts[0]
		}
	}
	return keyPrefix + uuid.NewString() + ext
}
