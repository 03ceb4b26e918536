package storage

import (
	"context"
	"fmt"
	"io"
	"log"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	"github.com/novrh/platform/internal/pkg/env"
)

// CVStore wraps the S3 client for candidate CV documents. The bucket is an
// S3-compatible endpoint (AWS or self-hosted MinIO).
type CVStore struct {
	s3Client *s3.Client
	bucket   string
}

// NewCVStoreFromEnv builds the store from CV_S3_* environment variables.
func NewCVStoreFromEnv(ctx context.Context) (*CVStore, error) {
	bucket := strings.TrimSpace(env.GetEnv("CV_S3_BUCKET", ""))
	if bucket == "" {
		return nil, fmt.Errorf("CV_S3_BUCKET is not configured")
	}

	awsConfig, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(env.GetEnv("CV_S3_REGION", "eu-west-3")),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			env.GetEnv("CV_S3_ACCESS_KEY_ID", ""),
			env.GetEnv("CV_S3_SECRET_ACCESS_KEY", ""),
			"",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	endpoint := strings.TrimSpace(env.GetEnv("CV_S3_ENDPOINT_URL", ""))
	s3Client := s3.NewFromConfig(awsConfig, func(o *s3.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
			// Self-hosted endpoints need path-style URLs.
			o.UsePathStyle = true
		}
	})

	store := &CVStore{s3Client: s3Client, bucket: bucket}

	if _, err := s3Client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(bucket)}); err != nil {
		return nil, fmt.Errorf("bucket %s not accessible: %w", bucket, err)
	}

	log.Printf("[CVStore] Successfully initialized S3 client for bucket: %s", bucket)
	return store, nil
}

// NewObjectKey returns a collision-free object key for a user's CV file.
func NewObjectKey(userID uint, fileName string) string {
	ext := strings.ToLower(path.Ext(fileName))
	return fmt.Sprintf("cv/%d/%s%s", userID, uuid.NewString(), ext)
}

// Upload streams a CV document into the bucket.
func (s *CVStore) Upload(ctx context.Context, objectKey, contentType string, body io.Reader) error {
	_, err := s.s3Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(objectKey),
		ContentType: aws.String(contentType),
		Body:        body,
	})
	if err != nil {
		return fmt.Errorf("failed to upload %s: %w", objectKey, err)
	}
	return nil
}

// Download returns the object's content stream. Callers must Close it.
func (s *CVStore) Download(ctx context.Context, objectKey string) (io.ReadCloser, error) {
	out, err := s.s3Client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(objectKey),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to download %s: %w", objectKey, err)
	}
	return out.Body, nil
}

// Delete removes a CV object, used when a candidate replaces their CV.
func (s *CVStore) Delete(ctx context.Context, objectKey string) error {
	_, err := s.s3Client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(objectKey),
	})
	if err != nil {
		return fmt.Errorf("failed to delete %s: %w", objectKey, err)
	}
	return nil
}
