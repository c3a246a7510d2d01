package upload

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.uber.org/zap"
)

// S3Config describes an S3 compatible bucket.
type S3Config struct {
	Bucket    string
	Region    string
	Endpoint  string
	AccessKey string
	SecretKey string
	// Prefix is prepended to every object key, e.g. "products/".
	Prefix string
	// PublicURL is the base URL objects are reachable from. When empty it is
	// derived from Endpoint and Bucket using path-style addressing.
	PublicURL    string
	UsePathStyle bool
}

// objectPutter is the subset of *s3.Client used by S3Store.
type objectPutter interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, opts ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Store uploads files to an S3 compatible object storage.
type S3Store struct {
	client    objectPutter
	bucket    string
	prefix    string
	publicURL string
	log       *zap.Logger
}

// NewS3Store validates cfg and builds a client for it.
func NewS3Store(ctx context.Context, cfg S3Config, log *zap.Logger) (*S3Store, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("s3 bucket is required")
	}
	if cfg.AccessKey == "" || cfg.SecretKey == "" {
		return nil, errors.New("s3 access key and secret key are required")
	}
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}

	awsCfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")),
	)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	endpoint := cfg.Endpoint
	if endpoint != "" {
		if _, err := url.Parse(endpoint); err != nil {
			return nil, fmt.Errorf("invalid s3 endpoint: %w", err)
		}
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.UsePathStyle
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
	})

	return newS3Store(client, cfg, region, log), nil
}

func newS3Store(client objectPutter, cfg S3Config, region string, log *zap.Logger) *S3Store {
	if log == nil {
		log = zap.NewNop()
	}
	public := strings.TrimRight(cfg.PublicURL, "/")
	if public == "" {
		switch {
		case cfg.Endpoint != "":
			public = strings.TrimRight(cfg.Endpoint, "/") + "/" + cfg.Bucket
		default:
			public = fmt.Sprintf("https://%s.s3.%s.amazonaws.com", cfg.Bucket, region)
		}
	}
	return &S3Store{
		client:    client,
		bucket:    cfg.Bucket,
		prefix:    cfg.Prefix,
		publicURL: public,
		log:       log,
	}
}

// Save uploads data under Prefix+name and returns the public object URL.
func (s *S3Store) Save(ctx context.Context, name, contentType string, data []byte) (string, error) {
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	key := s.prefix + name
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentType:   aws.String(contentType),
		ContentLength: aws.Int64(int64(len(data))),
	})
	if err != nil {
		return "", fmt.Errorf("put object %s: %w", key, err)
	}
	s.log.Debug("object uploaded", zap.String("bucket", s.bucket), zap.String("key", key), zap.Int("size", len(data)))
	return s.publicURL + "/" + key, nil
}
