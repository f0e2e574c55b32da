package app

import (
	"bytes"
	"context"
	"errors"
	"net/url"
	"testing"

	minio_mock "spotserv/src/app/mock"

	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestMinioS3Client(t *testing.T) {
	ctx := context.Background()

	t.Run("ListObjects", func(t *testing.T) {
		client := new(minio_mock.MockClient)
		s3 := NewMinioS3ClientWith(client, "https://cdn.test")
		client.On("ListObjects", mock.Anything, "post-images", mock.Anything).
			Return([]minio.ObjectInfo{{Key: "posts/a.jpg"}, {Key: "posts/b.txt"}, {Key: "posts/c.PNG"}})
		client.On("PresignedGetObject", mock.Anything, "post-images", mock.Anything, presignExpiry, mock.Anything).
			Return(&url.URL{Scheme: "https", Host: "s3.test", Path: "/signed"}, nil)

		objects, err := s3.ListObjects(ctx, "post-images", "posts/", []string{"jpg", "png"})
		require.NoError(t, err)
		assert.Len(t, objects, 2)
		client.AssertNumberOfCalls(t, "PresignedGetObject", 2)
	})

	t.Run("ListObjectsError", func(t *testing.T) {
		client := new(minio_mock.MockClient)
		s3 := NewMinioS3ClientWith(client, "https://cdn.test")
		client.On("ListObjects", mock.Anything, "post-images", mock.Anything).
			Return([]minio.ObjectInfo{{Err: errors.New("denied")}})

		_, err := s3.ListObjects(ctx, "post-images", "", nil)
		assert.ErrorContains(t, err, "denied")
	})

	t.Run("UploadFile", func(t *testing.T) {
		client := new(minio_mock.MockClient)
		s3 := NewMinioS3ClientWith(client, "https://cdn.test/")
		content := []byte("Hello, World!")
		client.On("PutObject", mock.Anything, "post-images", "posts/x.jpg", mock.Anything, int64(len(content)),
			minio.PutObjectOptions{ContentType: "image/jpeg", CacheControl: imageCacheControl}).
			Return(minio.UploadInfo{}, nil)

		publicURL, err := s3.UploadFile(ctx, "post-images", "posts/x.jpg", bytes.NewReader(content), int64(len(content)), "image/jpeg")
		require.NoError(t, err)
		assert.Equal(t, "https://cdn.test/post-images/posts/x.jpg", publicURL)
		client.AssertExpectations(t)
	})

	t.Run("UploadFileError", func(t *testing.T) {
		client := new(minio_mock.MockClient)
		s3 := NewMinioS3ClientWith(client, "https://cdn.test")
		client.On("PutObject", mock.Anything, "avatars", "u/u-1.png", mock.Anything, int64(1), mock.Anything).
			Return(minio.UploadInfo{}, errors.New("quota"))

		_, err := s3.UploadFile(ctx, "avatars", "u/u-1.png", bytes.NewReader([]byte{1}), 1, "")
		assert.ErrorContains(t, err, "quota")
	})

	t.Run("DeleteFile", func(t *testing.T) {
		client := new(minio_mock.MockClient)
		s3 := NewMinioS3ClientWith(client, "https://cdn.test")
		client.On("RemoveObject", mock.Anything, "post-images", "posts/x.jpg", minio.RemoveObjectOptions{}).Return(nil)

		assert.NoError(t, s3.DeleteFile(ctx, "post-images", "posts/x.jpg"))
		client.AssertExpectations(t)
	})

	t.Run("EnsureBucket", func(t *testing.T) {
		client := new(minio_mock.MockClient)
		s3 := NewMinioS3ClientWith(client, "https://cdn.test")
		client.On("BucketExists", mock.Anything, "avatars").Return(false, nil)
		client.On("MakeBucket", mock.Anything, "avatars", minio.MakeBucketOptions{}).Return(nil)
		client.On("BucketExists", mock.Anything, "post-images").Return(true, nil)

		require.NoError(t, s3.EnsureBucket(ctx, "avatars"))
		require.NoError(t, s3.EnsureBucket(ctx, "post-images"))
		client.AssertNumberOfCalls(t, "MakeBucket", 1)
	})

	t.Run("ObjectName", func(t *testing.T) {
		s3 := NewMinioS3ClientWith(new(minio_mock.MockClient), "https://cdn.test")
		name, ok := s3.ObjectName("post-images", "https://cdn.test/post-images/posts/x.jpg")
		assert.True(t, ok)
		assert.Equal(t, "posts/x.jpg", name)

		_, ok = s3.ObjectName("post-images", "https://elsewhere.test/x.jpg")
		assert.False(t, ok)
	})

	t.Run("hasExtension", func(t *testing.T) {
		assert.True(t, hasExtension("file.jpg", []string{"jpg", "png", "gif"}))
		assert.True(t, hasExtension("dir/file.JPG", []string{"jpg"}))
		assert.False(t, hasExtension("jpg", []string{"jpg"}))
		assert.False(t, hasExtension("file.tiff", []string{"jpg"}))
	})
}
