// Package s3 archives exported warehouse layouts to an S3-compatible bucket.
package s3

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/neomorfeo/grainvault/internal/domain"
)

// objectPutter is the part of the S3 client the archive needs.
type objectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

var _ domain.LayoutArchive = (*Archive)(nil)

// Archive writes each layout document to layouts/<warehouse>/<timestamp>.json.
type Archive struct {
	client objectPutter
	bucket string
	now    func() time.Time
}

// Config holds construction parameters. Credentials fall back to the default
// AWS chain when no access key is given.
type Config struct {
	Bucket          string
	Region          string
	Endpoint        string // optional, for MinIO and other S3-compatible stores
	AccessKeyID     string
	SecretAccessKey string
	PathStyle       bool
}

// ConfigFromEnv reads GRAINVAULT_ARCHIVE_* variables. An empty Bucket means no
// archive is configured.
func ConfigFromEnv() Config {
	return Config{
		Bucket:          os.Getenv("GRAINVAULT_ARCHIVE_BUCKET"),
		Region:          os.Getenv("GRAINVAULT_ARCHIVE_REGION"),
		Endpoint:        os.Getenv("GRAINVAULT_ARCHIVE_ENDPOINT"),
		AccessKeyID:     os.Getenv("AWS_ACCESS_KEY_ID"),
		SecretAccessKey: os.Getenv("AWS_SECRET_ACCESS_KEY"),
		PathStyle:       strings.EqualFold(os.Getenv("GRAINVAULT_ARCHIVE_PATH_STYLE"), "true"),
	}
}

// New builds an archive backed by a real S3 client.
func New(ctx context.Context, cfg Config) (*Archive, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("s3 bucket required")
	}
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}

	loadOpts := []func(*config.LoadOptions) error{config.WithRegion(region)}
	if cfg.AccessKeyID != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("loading aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.PathStyle
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})
	return newArchive(client, cfg.Bucket), nil
}

func newArchive(client objectPutter, bucket string) *Archive {
	return &Archive{
		client: client,
		bucket: bucket,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (a *Archive) Store(ctx context.Context, warehouseID string, document []byte) (string, error) {
	key := fmt.Sprintf("layouts/%s/%s.json", warehouseID, a.now().Format("20060102T150405.000000000Z"))
	_, err := a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(document),
		ContentType: aws.String("application/json"),
		Metadata:    map[string]string{"warehouse-id": warehouseID},
	})
	if err != nil {
		return "", fmt.Errorf("archiving layout of warehouse %s: %w", warehouseID, err)
	}
	return key, nil
}
