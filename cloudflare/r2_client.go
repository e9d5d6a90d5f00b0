// Package cloudflare provides an R2 client used to mirror finished
// analysis artifacts to a bucket
package cloudflare

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
	"github.com/gabriel-vasile/mimetype"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// Objects above this size go through the multipart uploader
const multipartThreshold = 12 << 20

type R2Client struct {
	C      *s3.Client
	Bucket *string
}

// NewR2 builds the archive client, or returns nil when archiving is
// disabled in the config
func NewR2() (*R2Client, error) {
	if !viper.GetBool("archive.enabled") {
		return nil, nil
	}

	cfg, err := awsconfig.LoadDefaultConfig(context.TODO(),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			viper.GetString("archive.access_key_id"),
			viper.GetString("archive.secret_access_key"),
			"",
		)),
	)
	if err != nil {
		return nil, err
	}

	bucket := aws.String(viper.GetString("archive.bucket"))

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(fmt.Sprintf("https://%s.r2.cloudflarestorage.com", viper.GetString("archive.account_id")))
		o.Region = "auto"
	})

	_, err = client.HeadBucket(context.TODO(), &s3.HeadBucketInput{
		Bucket: bucket,
	})
	if err != nil {
		var apiErr smithy.APIError
		if errors.As(err, &apiErr) && apiErr.ErrorCode() == "NotFound" {
			return nil, fmt.Errorf("bucket '%s' does not exist", *bucket)
		}

		return nil, fmt.Errorf("failed to check if bucket exists, %w", err)
	}

	return &R2Client{
		C:      client,
		Bucket: bucket,
	}, nil
}

// ArchiveAnalysis mirrors analysis artifacts from dir to the bucket.
// Best effort: a failed mirror is logged, the analysis itself already
// succeeded and must stay usable from local storage.
func (r *R2Client) ArchiveAnalysis(ctx context.Context, dir string, names ...string) {
	for _, name := range names {
		if err := r.putFile(ctx, filepath.Join(dir, name), name); err != nil {
			zap.L().Error("Failed to archive analysis artifact",
				zap.String("key", name), zap.Error(err))
		}
	}
}

func (r *R2Client) putFile(ctx context.Context, path, key string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open artifact, %w", err)
	}
	defer f.Close()

	stat, err := f.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat artifact, %w", err)
	}

	contentType := "application/octet-stream"
	if mime, err := mimetype.DetectFile(path); err == nil {
		contentType = mime.String()
	}

	input := &s3.PutObjectInput{
		Bucket:        r.Bucket,
		Key:           aws.String(key),
		Body:          f,
		ContentLength: aws.Int64(stat.Size()),
		ContentType:   aws.String(contentType),
		CacheControl:  aws.String("public, max-age=31536000, immutable"),
	}

	if stat.Size() > multipartThreshold {
		uploader := manager.NewUploader(r.C, func(u *manager.Uploader) {
			u.Concurrency = 5
			u.PartSize = 6 << 20
		})

		_, err = uploader.Upload(ctx, input)
	} else {
		_, err = r.C.PutObject(ctx, input)
	}
	if err != nil {
		return fmt.Errorf("failed to upload artifact to R2, %w", err)
	}

	zap.L().Debug("Archived analysis artifact", zap.String("key", key))
	return nil
}

// DeleteObjects removes archived artifacts, used when an analysis is
// deleted. Best effort.
func (r *R2Client) DeleteObjects(ctx context.Context, keys ...string) {
	for _, key := range keys {
		_, err := r.C.DeleteObject(ctx, &s3.DeleteObjectInput{
			Bucket: r.Bucket,
			Key:    aws.String(key),
		})
		if err != nil {
			zap.L().Error("Failed to delete archived artifact",
				zap.String("key", key), zap.Error(err))
		}
	}
}
