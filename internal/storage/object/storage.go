// Package object publishes finished runs to an S3-compatible bucket.
package object

import (
	"context"
	"fmt"
	"path"
	"path/filepath"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/wb-go/wbf/retry"
	"github.com/wb-go/wbf/zlog"
)

// Storage uploads run outputs to a MinIO bucket under <prefix>/<run id>/.
type Storage struct {
	client     *minio.Client
	bucketName string
	prefix     string
	strategy   retry.Strategy
}

// NewStorage creates a new Storage instance connected to the specified MinIO server.
// If the bucket does not exist, it will be created automatically.
func NewStorage(
	ctx context.Context,
	endpoint, accessKey, secretKey, bucketName, prefix string,
	useSSL bool,
	s retry.Strategy,
) (*Storage, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize minio client: %w", err)
	}

	exists, err := client.BucketExists(ctx, bucketName)
	if err != nil {
		return nil, fmt.Errorf("failed to check if bucket exists: %w", err)
	}

	if !exists {
		if err := client.MakeBucket(ctx, bucketName, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("failed to create bucket: %w", err)
		}
	}

	return &Storage{
		client:     client,
		bucketName: bucketName,
		prefix:     prefix,
		strategy:   s,
	}, nil
}

// Upload copies each named file in dir to the bucket. It keeps going after a
// failed file and returns the first error once every file has been tried.
func (s *Storage) Upload(ctx context.Context, runID, dir string, names []string) error {
	var firstErr error
	uploaded := 0

	for _, name := range names {
		objectName := ObjectName(s.prefix, runID, name)
		src := filepath.Join(dir, name)

		err := retry.Do(func() error {
			_, err := s.client.FPutObject(ctx, s.bucketName, objectName, src, minio.PutObjectOptions{
				ContentType: ContentType(name),
			})
			return err
		}, s.strategy)
		if err != nil {
			zlog.Logger.Error().
				Err(err).
				Str("run_id", runID).
				Str("object", objectName).
				Msg("failed to upload file")
			if firstErr == nil {
				firstErr = fmt.Errorf("failed to upload %s: %w", name, err)
			}
			continue
		}
		uploaded++
	}

	zlog.Logger.Info().
		Str("run_id", runID).
		Str("bucket", s.bucketName).
		Int("uploaded", uploaded).
		Int("total", len(names)).
		Msg("run outputs published")

	return firstErr
}

// ObjectName returns the bucket key for a run output.
func ObjectName(prefix, runID, name string) string {
	return path.Join(prefix, runID, filepath.Base(name))
}

// ContentType picks the upload content type from the file extension.
func ContentType(name string) string {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".csv":
		return "text/csv"
	default:
		return "application/octet-stream"
	}
}
