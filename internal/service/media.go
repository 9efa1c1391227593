package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/disintegration/imaging"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"beomusic_backend/internal/config"
	"beomusic_backend/internal/logger"
	"beomusic_backend/internal/model"
)

const avatarJPEGQuality = 85

// AvatarUpload is an avatar image received from a client.
type AvatarUpload struct {
	Body        io.Reader
	Size        int64
	ContentType string
}

// AvatarStorage stores avatar images. Comments keep the URL they were posted
// with, so replaced avatars are never deleted; DeleteObject only cleans up
// uploads whose account was never created.
type AvatarStorage interface {
	UploadAvatar(ctx context.Context, upload AvatarUpload) (*model.UploadResult, error)
	DeleteObject(ctx context.Context, key string) error
}

// MediaService uploads avatars to Cloudflare R2 through the S3 API.
type MediaService struct {
	s3Client  *s3.Client
	bucket    string
	publicURL string
	log       *logrus.Entry
}

// NewMediaService returns model.ErrMediaDisabled when R2 is not configured.
func NewMediaService(ctx context.Context, cfg *config.Config, log *logrus.Logger) (*MediaService, error) {
	if !cfg.R2Configured() {
		return nil, model.ErrMediaDisabled
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(
		ctx,
		awsconfig.WithRegion("auto"),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.R2AccessKeyID, cfg.R2SecretAccessKey, "")),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config for R2: %w", err)
	}

	endpoint := fmt.Sprintf("https://%s.r2.cloudflarestorage.com", cfg.R2AccountID)
	s3Client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(endpoint)
		o.UsePathStyle = true
	})

	return &MediaService{
		s3Client:  s3Client,
		bucket:    cfg.R2BucketName,
		publicURL: strings.TrimSuffix(cfg.R2PublicURL, "/"),
		log:       logger.Component(log, "MediaService"),
	}, nil
}

// UploadAvatar validates the image, crops it to a square JPEG and uploads it.
func (s *MediaService) UploadAvatar(ctx context.Context, upload AvatarUpload) (*model.UploadResult, error) {
	jpegBytes, err := NormalizeAvatar(upload)
	if err != nil {
		return nil, err
	}

	key := fmt.Sprintf("%s/%s%s", model.AvatarFolder, uuid.NewString(), model.AvatarExt)
	_, err = s.s3Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:       aws.String(s.bucket),
		Key:          aws.String(key),
		Body:         bytes.NewReader(jpegBytes),
		ContentType:  aws.String(model.ContentTypeJPEG),
		CacheControl: aws.String(model.AvatarCacheControl),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to upload to r2: %w", err)
	}

	s.log.WithFields(logrus.Fields{"key": key, "bytes": len(jpegBytes)}).Info("avatar uploaded")
	return &model.UploadResult{URL: s.publicURL + "/" + key, Key: key}, nil
}

// DeleteObject removes an object by key. An empty key is a no-op.
func (s *MediaService) DeleteObject(ctx context.Context, key string) error {
	if key == "" {
		return nil
	}
	_, err := s.s3Client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete from r2: %w", err)
	}
	return nil
}

// NormalizeAvatar enforces size and type limits and returns a center-cropped
// AvatarWidth x AvatarHeight JPEG.
func NormalizeAvatar(upload AvatarUpload) ([]byte, error) {
	if upload.Size > model.MaxAvatarSizeBytes {
		return nil, model.ErrFileTooLarge
	}

	data, err := io.ReadAll(io.LimitReader(upload.Body, model.MaxAvatarSizeBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read upload: %w", err)
	}
	if int64(len(data)) > model.MaxAvatarSizeBytes {
		return nil, model.ErrFileTooLarge
	}

	contentType := upload.ContentType
	if contentType == "" && len(data) > 0 {
		contentType = http.DetectContentType(data[:min(len(data), 512)])
	}
	if idx := strings.Index(contentType, ";"); idx != -1 {
		contentType = strings.TrimSpace(contentType[:idx])
	}
	if !model.IsAllowedImageType(contentType) {
		return nil, model.ErrInvalidImageType
	}

	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, model.ErrInvalidImageType
	}
	resized := imaging.Fill(img, model.AvatarWidth, model.AvatarHeight, imaging.Center, imaging.Lanczos)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, resized, imaging.JPEG, imaging.JPEGQuality(avatarJPEGQuality)); err != nil {
		return nil, fmt.Errorf("failed to encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}
