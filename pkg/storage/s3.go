package storage

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	pkglogger "github.com/livepoll/livepoll-backend/pkg/logger"
)

// S3Config holds S3-compatible storage configuration
type S3Config struct {
	Endpoint        string // e.g. https://xxx.r2.cloudflarestorage.com
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	Bucket          string
	BasePath        string        // prefix for all objects (e.g. "livepoll/")
	ForcePathStyle  bool          // true for MinIO/R2
	LinkExpiry      time.Duration // lifetime of presigned download links
}

// ObjectAPI is the subset of the S3 client used here
type ObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Client stores exported files in S3/R2/MinIO compatible storage
type S3Client struct {
	api        ObjectAPI
	presign    *s3.PresignClient
	bucket     string
	basePath   string
	linkExpiry time.Duration
}

// Object describes an uploaded file
type Object struct {
	Key         string    `json:"key"`
	URL         string    `json:"url"`
	ContentType string    `json:"contentType"`
	Size        int64     `json:"size"`
	ExpiresAt   time.Time `json:"expiresAt,omitempty"`
}

// NewS3Client creates a new S3-compatible storage client
func NewS3Client(cfg S3Config) *S3Client {
	client := s3.New(s3.Options{
		Region:       cfg.Region,
		Credentials:  credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		UsePathStyle: cfg.ForcePathStyle,
	}, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})

	expiry := cfg.LinkExpiry
	if expiry <= 0 {
		expiry = 24 * time.Hour
	}

	pkglogger.GetLogger().Info().
		Str("bucket", cfg.Bucket).
		Str("endpoint", cfg.Endpoint).
		Msg("S3 storage client initialized")

	return &S3Client{
		api:        client,
		presign:    s3.NewPresignClient(client),
		bucket:     cfg.Bucket,
		basePath:   normalizeBasePath(cfg.BasePath),
		linkExpiry: expiry,
	}
}

func normalizeBasePath(p string) string {
	p = strings.Trim(p, "/")
	if p == "" {
		return ""
	}
	return p + "/"
}

// Put uploads data under key and returns a presigned download link
func (c *S3Client) Put(ctx context.Context, key string, data []byte, contentType string) (*Object, error) {
	fullKey := c.basePath + key

	_, err := c.api.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(c.bucket),
		Key:           aws.String(fullKey),
		Body:          bytes.NewReader(data),
		ContentType:   aws.String(contentType),
		ContentLength: aws.Int64(int64(len(data))),
	})
	if err != nil {
		return nil, fmt.Errorf("s3 upload failed: %w", err)
	}

	obj := &Object{
		Key:         fullKey,
		ContentType: contentType,
		Size:        int64(len(data)),
	}

	req, err := c.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(fullKey),
	}, s3.WithPresignExpires(c.linkExpiry))
	if err != nil {
		return nil, fmt.Errorf("presign failed: %w", err)
	}
	obj.URL = req.URL
	obj.ExpiresAt = time.Now().Add(c.linkExpiry)
	return obj, nil
}
