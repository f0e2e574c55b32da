package app

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

type ClientMinio interface {
	BucketExists(ctx context.Context, bucketName string) (bool, error)
	MakeBucket(ctx context.Context, bucketName string, opts minio.MakeBucketOptions) error
	ListObjects(ctx context.Context, bucketName string, opts minio.ListObjectsOptions) <-chan minio.ObjectInfo
	PresignedGetObject(ctx context.Context, bucketName, objectName string, expires time.Duration, reqParams url.Values) (*url.URL, error)
	PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (info minio.UploadInfo, err error)
	RemoveObject(ctx context.Context, bucketName, objectName string, opts minio.RemoveObjectOptions) error
}

// MinioS3Client stores post photos and avatars in S3-compatible buckets.
type MinioS3Client struct {
	publicURL string
	client    ClientMinio
}

const (
	defaultContentType = "application/octet-stream"
	imageCacheControl  = "max-age=3600"
	presignExpiry      = 7 * 24 * time.Hour
)

// NewMinioS3Client creates a new MinioS3Client instance. publicURL is the
// base under which buckets are readable by browsers.
func NewMinioS3Client(endpoint, accessKeyID, secretAccessKey, publicURL string, useSSL bool) (*MinioS3Client, error) {
	minioClient, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKeyID, secretAccessKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio s3 client for %s: %w", endpoint, err)
	}
	return NewMinioS3ClientWith(minioClient, publicURL), nil
}

// NewMinioS3ClientWith wraps an existing client, used by tests.
func NewMinioS3ClientWith(client ClientMinio, publicURL string) *MinioS3Client {
	return &MinioS3Client{
		publicURL: strings.TrimRight(publicURL, "/"),
		client:    client,
	}
}

// EnsureBucket creates bucketName when it does not exist yet.
func (s3 *MinioS3Client) EnsureBucket(ctx context.Context, bucketName string) error {
	exists, err := s3.client.BucketExists(ctx, bucketName)
	if err != nil {
		return fmt.Errorf("check bucket %s: %w", bucketName, err)
	}
	if exists {
		return nil
	}
	if err := s3.client.MakeBucket(ctx, bucketName, minio.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("create bucket %s: %w", bucketName, err)
	}
	return nil
}

// ListObjects returns presigned download URLs for objects under prefix whose
// extension is one of filters. An empty filter list keeps everything.
func (s3 *MinioS3Client) ListObjects(ctx context.Context, bucketName, prefix string, filters []string) ([]*url.URL, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	result := make([]*url.URL, 0)

	objectCh := s3.client.ListObjects(ctx, bucketName, minio.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: true,
	})
	for object := range objectCh {
		if object.Err != nil {
			return result, fmt.Errorf("list %s/%s: %w", bucketName, prefix, object.Err)
		}
		if len(filters) > 0 && !hasExtension(object.Key, filters) {
			continue
		}
		reqParams := make(url.Values)
		reqParams.Set("response-content-disposition", fmt.Sprintf("attachment; filename=\"%s\"", path.Base(object.Key)))
		presignedURL, err := s3.client.PresignedGetObject(ctx, bucketName, object.Key, presignExpiry, reqParams)
		if err != nil {
			return result, fmt.Errorf("presign %s: %w", object.Key, err)
		}
		result = append(result, presignedURL)
	}
	return result, nil
}

// UploadFile stores object at uploadPath and returns its public URL.
func (s3 *MinioS3Client) UploadFile(ctx context.Context, bucketName, uploadPath string, object io.Reader, size int64, contentType string) (string, error) {
	if contentType == "" {
		contentType = defaultContentType
	}
	_, err := s3.client.PutObject(ctx,
		bucketName,
		uploadPath,
		object,
		size,
		minio.PutObjectOptions{ContentType: contentType, CacheControl: imageCacheControl})
	if err != nil {
		return "", fmt.Errorf("upload %s/%s: %w", bucketName, uploadPath, err)
	}
	return s3.PublicURL(bucketName, uploadPath), nil
}

func (s3 *MinioS3Client) DeleteFile(ctx context.Context, bucketName, fileName string) error {
	if err := s3.client.RemoveObject(ctx, bucketName, fileName, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("remove %s/%s: %w", bucketName, fileName, err)
	}
	return nil
}

// PublicURL is the browser-facing address of an object.
func (s3 *MinioS3Client) PublicURL(bucketName, objectName string) string {
	return fmt.Sprintf("%s/%s/%s", s3.publicURL, bucketName, objectName)
}

// ObjectName recovers the object key from a URL produced by PublicURL.
func (s3 *MinioS3Client) ObjectName(bucketName, publicURL string) (string, bool) {
	prefix := fmt.Sprintf("%s/%s/", s3.publicURL, bucketName)
	if !strings.HasPrefix(publicURL, prefix) {
		return "", false
	}
	return strings.TrimPrefix(publicURL, prefix), true
}

func hasExtension(key string, filters []string) bool {
	parsed := strings.Split(key, ".")
	if len(parsed) > 1 {
		return checkIn(strings.ToLower(parsed[len(parsed)-1]), filters)
	}
	return false
}
