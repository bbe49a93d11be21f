package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"nabook/config"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awscredentials "github.com/aws/aws-sdk-go-v2/credentials"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// Archive stores raw uploads in an S3-compatible bucket (MinIO locally) so the
// source document survives even though only its extracted text is indexed.
type Archive struct {
	client *awss3.Client
	bucket string
}

// NewArchive builds the S3 client from config. Returns (nil, nil) when no
// bucket is configured: archiving is optional.
func NewArchive(ctx context.Context) (*Archive, error) {
	s3cfg := config.Cfg.S3
	if s3cfg.Bucket == "" {
		return nil, nil
	}

	region := s3cfg.Region
	if region == "" {
		region = "us-east-1"
	}

	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(region),
	}
	if s3cfg.AccessKey != "" && s3cfg.SecretKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			awscredentials.NewStaticCredentialsProvider(s3cfg.AccessKey, s3cfg.SecretKey, ""),
		))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, err
	}

	endpoint := s3cfg.Endpoint
	client := awss3.NewFromConfig(cfg, func(o *awss3.Options) {
		o.UsePathStyle = true
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint) // e.g. http://localhost:9000
		}
	})
	return &Archive{client: client, bucket: s3cfg.Bucket}, nil
}

// EnsureBucket creates the bucket when missing; owning it already is fine.
func (a *Archive) EnsureBucket(ctx context.Context) error {
	if _, err := a.client.HeadBucket(ctx, &awss3.HeadBucketInput{Bucket: aws.String(a.bucket)}); err == nil {
		return nil
	}
	_, err := a.client.CreateBucket(ctx, &awss3.CreateBucketInput{Bucket: aws.String(a.bucket)})
	if err != nil {
		var owned *s3types.BucketAlreadyOwnedByYou
		if errors.As(err, &owned) {
			return nil
		}
		return fmt.Errorf("create bucket: %w", err)
	}
	return nil
}

// Store uploads data under documents/<key> and returns the s3:// URI.
func (a *Archive) Store(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	if err := a.EnsureBucket(ctx); err != nil {
		return "", err
	}
	objectKey := fmt.Sprintf("documents/%s", key)
	_, err := a.client.PutObject(ctx, &awss3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(objectKey),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("put object: %w", err)
	}
	return fmt.Sprintf("s3://%s/%s", a.bucket, objectKey), nil
}
