package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"regexp"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	aws_config "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"yuva/server/internal/config"
)

// ErrObjectNotFound is returned by GetObject for a missing key.
var ErrObjectNotFound = errors.New("object not found")

// ImageUpload is a pre-signed slot for one listing photo.
type ImageUpload struct {
	UploadURL string    `json:"upload_url"`
	Key       string    `json:"key"`
	ImageURL  string    `json:"image_url"`
	ExpiresAt time.Time `json:"expires_at"`
}

// IImageStorage stores listing photos in S3.
type IImageStorage interface {
	PresignImageUpload(ctx context.Context, userID, filename, contentType string) (*ImageUpload, error)
	GetObject(ctx context.Context, key string) ([]byte, string, error)
	PutObject(ctx context.Context, key string, data []byte, contentType string) error
}

type s3Storage struct {
	cfg           *config.Config
	s3Client      *s3.Client
	presignClient *s3.PresignClient
	logger        *zap.Logger
}

// NewS3Storage creates a new S3 storage service using the static credentials from cfg.
func NewS3Storage(cfg *config.Config, logger *zap.Logger) (IImageStorage, error) {
	awsCfg, err := aws_config.LoadDefaultConfig(context.TODO(),
		aws_config.WithRegion(cfg.AwsRegion),
		aws_config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AwsAccessKeyID,
			cfg.AwsSecretAccessKey,
			"",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	s3Client := s3.NewFromConfig(awsCfg)
	return &s3Storage{
		cfg:           cfg,
		s3Client:      s3Client,
		presignClient: s3.NewPresignClient(s3Client),
		logger:        logger,
	}, nil
}

var unsafeFilenameChars = regexp.MustCompile(`[^a-zA-Z0-9._-]+`)

// ImageKey builds the object key for a photo uploaded by userID.
func ImageKey(userID, filename string) string {
	name := unsafeFilenameChars.ReplaceAllString(path.Base(filename), "_")
	if name == "" || name == "." || name == "_" {
		name = "image"
	}
	if userID == "" {
		userID = "anonymous"
	}
	return fmt.Sprintf("listings/%s/%s_%s", userID, uuid.NewString(), name)
}

// ImageURL is the public URL of key under baseURL.
func ImageURL(baseURL, key string) string {
	return strings.TrimRight(baseURL, "/") + "/" + key
}

// KeyFromImageURL returns the object key when imageURL points into baseURL.
func KeyFromImageURL(baseURL, imageURL string) (string, bool) {
	if baseURL == "" {
		return "", false
	}
	prefix := strings.TrimRight(baseURL, "/") + "/"
	if !strings.HasPrefix(imageURL, prefix) || len(imageURL) == len(prefix) {
		return "", false
	}
	return strings.TrimPrefix(imageURL, prefix), true
}

func (s *s3Storage) PresignImageUpload(ctx context.Context, userID, filename, contentType string) (*ImageUpload, error) {
	key := ImageKey(userID, filename)
	expiration := s.cfg.ImageUploadTTL

	req, err := s.presignClient.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.cfg.AwsS3Bucket),
		Key:         aws.String(key),
		ContentType: aws.String(contentType),
	}, s3.WithPresignExpires(expiration))
	if err != nil {
		return nil, fmt.Errorf("failed to generate presigned PUT URL for key %s: %w", key, err)
	}

	s.logger.Debug("Presigned image upload", zap.String("key", key))
	return &ImageUpload{
		UploadURL: req.URL,
		Key:       key,
		ImageURL:  ImageURL(s.cfg.ImageBaseS3URL, key),
		ExpiresAt: time.Now().Add(expiration).UTC(),
	}, nil
}

func (s *s3Storage) GetObject(ctx context.Context, key string) ([]byte, string, error) {
	out, err := s.s3Client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.cfg.AwsS3Bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var nsk *types.NoSuchKey
		if errors.As(err, &nsk) {
			return nil, "", ErrObjectNotFound
		}
		return nil, "", fmt.Errorf("failed to get object %s: %w", key, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read object %s: %w", key, err)
	}
	return data, aws.ToString(out.ContentType), nil
}

func (s *s3Storage) PutObject(ctx context.Context, key string, data []byte, contentType string) error {
	_, err := s.s3Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.cfg.AwsS3Bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return fmt.Errorf("failed to put object %s: %w", key, err)
	}
	return nil
}
