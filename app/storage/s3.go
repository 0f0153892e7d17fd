package storage

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/vibast-solutions/ms-go-shop/config"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/sirupsen/logrus"
)

type uploader interface {
	Upload(ctx context.Context, input *s3.PutObjectInput, opts ...func(*manager.Uploader)) (*manager.UploadOutput, error)
}

// S3ImageStore writes product images to a public-read S3 bucket.
type S3ImageStore struct {
	cfg      config.StorageConfig
	uploader uploader
}

// NewS3ImageStore resolves AWS credentials through the default provider chain
// (env vars locally, IAM role in production).
func NewS3ImageStore(ctx context.Context, cfg config.StorageConfig) (*S3ImageStore, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	logrus.WithField("bucket", cfg.Bucket).Info("S3 image store initialized")
	return newS3ImageStore(cfg, manager.NewUploader(s3.NewFromConfig(awsCfg))), nil
}

func newS3ImageStore(cfg config.StorageConfig, up uploader) *S3ImageStore {
	return &S3ImageStore{cfg: cfg, uploader: up}
}

func (s *S3ImageStore) Put(ctx context.Context, key, contentType string, body io.Reader) (string, error) {
	out, err := s.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.cfg.Bucket),
		Key:         aws.String(key),
		Body:        body,
		ContentType: aws.String(contentType),
		ACL:         types.ObjectCannedACLPublicRead,
	})
	if err != nil {
		return "", fmt.Errorf("upload %s to s3: %w", key, err)
	}

	if s.cfg.PublicBaseURL != "" {
		return strings.TrimRight(s.cfg.PublicBaseURL, "/") + "/" + key, nil
	}
	return out.Location, nil
}
