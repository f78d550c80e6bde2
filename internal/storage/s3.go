package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/arkplatform/user-service/internal/models"
	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// S3Config carries the object-store connection settings. BaseEndpoint is set
// for minio deployments and left empty for AWS.
type S3Config struct {
	Region       string
	Bucket       string
	AccessKey    string
	SecretKey    string
	BaseEndpoint string
}

// S3AttachmentStore keeps attachments in an S3-compatible bucket under
// users/<id>/<name>. Locations recorded on the user document point straight
// at the bucket.
type S3AttachmentStore struct {
	client *s3.Client
	cfg    S3Config
}

func NewS3AttachmentStore(ctx context.Context, cfg S3Config) (*S3AttachmentStore, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load s3 config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.BaseEndpoint != "" {
			o.BaseEndpoint = aws.String(cfg.BaseEndpoint)
			o.UsePathStyle = true
		}
	})

	return &S3AttachmentStore{client: client, cfg: cfg}, nil
}

func (s *S3AttachmentStore) Save(ctx context.Context, userID, name, contentType string, data []byte) (string, error) {
	key := objectKey(userID, name)
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.cfg.Bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("failed to save attachment %s: %w", name, err)
	}

	if s.cfg.BaseEndpoint != "" {
		return fmt.Sprintf("%s/%s/%s", s.cfg.BaseEndpoint, s.cfg.Bucket, key), nil
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.cfg.Bucket, s.cfg.Region, key), nil
}

func (s *S3AttachmentStore) Get(ctx context.Context, userID, name string) (*Attachment, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.cfg.Bucket),
		Key:    aws.String(objectKey(userID, name)),
	})
	if err != nil {
		var noSuchKey *types.NoSuchKey
		if errors.As(err, &noSuchKey) {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get attachment %s: %w", name, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read attachment %s: %w", name, err)
	}

	att := &Attachment{Name: name, Data: data}
	if out.ContentType != nil {
		att.ContentType = *out.ContentType
	}
	return att, nil
}

func objectKey(userID, name string) string {
	return fmt.Sprintf("users/%s/%s", userID, name)
}
