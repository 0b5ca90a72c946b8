package attachments

import (
	"bytes"
	"context"
	"net/http"
	"path"
	"strings"

	"github.com/mbolis/quick-forms/model"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/pkg/errors"
)

const referenceScheme = "s3://"

type MinioConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

type MinioStore struct {
	client *minio.Client
	bucket string
}

func NewMinioStore(cfg MinioConfig) (*MinioStore, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, errors.Wrap(err, "attachments: minio client")
	}
	return &MinioStore{client: client, bucket: cfg.Bucket}, nil
}

// EnsureBucket creates the attachment bucket when missing.
func (s *MinioStore) EnsureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return errors.Wrap(err, "attachments: bucket exists")
	}
	if exists {
		return nil
	}
	err = s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{Region: "us-east-1"})
	if err != nil {
		return errors.Wrap(err, "attachments: make bucket")
	}
	return nil
}

// Upload stores data under pathHint with a fresh object name and returns
// an s3://bucket/object reference.
func (s *MinioStore) Upload(ctx context.Context, data []byte, pathHint string) (string, error) {
	if len(data) == 0 {
		return "", errors.New("attachments: empty file")
	}
	object := path.Join(strings.Trim(pathHint, "/"), model.NewID())
	_, err := s.client.PutObject(ctx, s.bucket, object, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: http.DetectContentType(data),
	})
	if err != nil {
		return "", errors.Wrapf(err, "attachments: put %s", object)
	}
	return referenceScheme + s.bucket + "/" + object, nil
}

func (s *MinioStore) DisplayURL(reference string) string {
	if strings.HasPrefix(reference, referenceScheme) {
		u := *s.client.EndpointURL()
		u.Path = "/" + strings.TrimPrefix(reference, referenceScheme)
		return u.String()
	}
	if url, ok := inlineURL(reference); ok {
		return url
	}
	return reference
}
