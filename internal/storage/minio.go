package storage

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/rs/zerolog"
)

type MinioConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
	URLPrefix string
}

// MinioStore keeps artifacts as objects in a MinIO (or any S3 compatible)
// bucket and streams them back through the catalog service.
type MinioStore struct {
	client *minio.Client
	bucket string
	prefix string
	logger zerolog.Logger
}

// NewMinioStore connects to MinIO and creates the bucket if it does not
// exist yet.
func NewMinioStore(ctx context.Context, cfg MinioConfig, logger zerolog.Logger) (*MinioStore, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("failed to create bucket: %w", err)
		}
		logger.Info().Str("bucket", cfg.Bucket).Msg("Bucket created")
	}

	return &MinioStore{client: client, bucket: cfg.Bucket, prefix: cfg.URLPrefix, logger: logger}, nil
}

func (s *MinioStore) Save(ctx context.Context, name string, r io.Reader, size int64) (string, error) {
	if !validObjectName(name) {
		return "", fmt.Errorf("invalid artifact name %q", name)
	}
	_, err := s.client.PutObject(ctx, s.bucket, name, r, size, minio.PutObjectOptions{
		ContentType: ContentTypeFor(name),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload file: %w", err)
	}
	return refFor(s.prefix, name), nil
}

func (s *MinioStore) Delete(ctx context.Context, ref string) error {
	name, ok := nameFromRef(s.prefix, ref)
	if !ok {
		return ErrNotFound
	}
	if err := s.client.RemoveObject(ctx, s.bucket, name, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}

func (s *MinioStore) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		name, ok := requestedName(r)
		if !ok {
			http.NotFound(w, r)
			return
		}

		info, err := s.client.StatObject(r.Context(), s.bucket, name, minio.StatObjectOptions{})
		if err != nil {
			if minio.ToErrorResponse(err).Code == "NoSuchKey" {
				http.NotFound(w, r)
				return
			}
			s.logger.Error().Err(err).Str("object", name).Msg("Failed to stat object")
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}

		obj, err := s.client.GetObject(r.Context(), s.bucket, name, minio.GetObjectOptions{})
		if err != nil {
			s.logger.Error().Err(err).Str("object", name).Msg("Failed to get object")
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}
		defer obj.Close()

		w.Header().Set("Content-Type", info.ContentType)
		w.Header().Set("Content-Length", strconv.FormatInt(info.Size, 10))
		w.Header().Set("ETag", info.ETag)
		if _, err := io.Copy(w, obj); err != nil {
			s.logger.Warn().Err(err).Str("object", name).Msg("Artifact stream interrupted")
		}
	})
}
