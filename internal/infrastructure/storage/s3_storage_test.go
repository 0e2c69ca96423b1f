package storage

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/donation/backend/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func testStorageConfig() *config.StorageConfig {
	return &config.StorageConfig{
		Enabled:         true,
		Endpoint:        "http://localhost:9000",
		Region:          "us-east-1",
		Bucket:          "campaign-media",
		AccessKeyID:     "test-key",
		SecretAccessKey: "test-secret",
		UsePathStyle:    true,
		PresignExpiry:   10 * time.Minute,
	}
}

func TestNewS3ObjectStorage_Validation(t *testing.T) {
	t.Run("nil config", func(t *testing.T) {
		_, err := NewS3ObjectStorage(nil)
		assert.ErrorContains(t, err, "configuration is required")
	})

	t.Run("missing bucket", func(t *testing.T) {
		cfg := testStorageConfig()
		cfg.Bucket = ""
		_, err := NewS3ObjectStorage(cfg)
		assert.ErrorContains(t, err, "bucket is required")
	})

	t.Run("missing access key", func(t *testing.T) {
		cfg := testStorageConfig()
		cfg.AccessKeyID = ""
		_, err := NewS3ObjectStorage(cfg)
		assert.ErrorContains(t, err, "access key is required")
	})

	t.Run("missing secret key", func(t *testing.T) {
		cfg := testStorageConfig()
		cfg.SecretAccessKey = ""
		_, err := NewS3ObjectStorage(cfg)
		assert.ErrorContains(t, err, "secret key is required")
	})

	t.Run("valid config", func(t *testing.T) {
		storage, err := NewS3ObjectStorage(testStorageConfig())
		require.NoError(t, err)
		assert.Equal(t, "campaign-media", storage.Bucket())
		assert.Equal(t, 10*time.Minute, storage.presignExpiry)
	})

	t.Run("defaults", func(t *testing.T) {
		cfg := testStorageConfig()
		cfg.Endpoint = ""
		cfg.Region = ""
		cfg.PresignExpiry = 0
		storage, err := NewS3ObjectStorage(cfg)
		require.NoError(t, err)
		assert.Equal(t, defaultPresignExpiry, storage.presignExpiry)
	})

	t.Run("endpoint without scheme", func(t *testing.T) {
		cfg := testStorageConfig()
		cfg.Endpoint = "s3.example.com"
		storage, err := NewS3ObjectStorage(cfg)
		require.NoError(t, err)

		url, _, err := storage.GenerateDownloadURL(context.Background(), "a.png", time.Minute)
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(url, "https://s3.example.com"))
	})

	t.Run("options", func(t *testing.T) {
		storage, err := NewS3ObjectStorage(testStorageConfig(),
			WithLogger(zaptest.NewLogger(t)),
			WithPresignExpiry(time.Hour),
		)
		require.NoError(t, err)
		assert.Equal(t, time.Hour, storage.presignExpiry)
	})
}

func TestS3ObjectStorage_GenerateUploadURL(t *testing.T) {
	storage, err := NewS3ObjectStorage(testStorageConfig())
	require.NoError(t, err)
	fixed := time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)
	storage.now = func() time.Time { return fixed }
	ctx := context.Background()

	t.Run("empty key", func(t *testing.T) {
		url, _, err := storage.GenerateUploadURL(ctx, "", "image/png", time.Minute)
		assert.ErrorIs(t, err, errKeyRequired)
		assert.Empty(t, url)
	})

	t.Run("presigned put", func(t *testing.T) {
		url, expiresAt, err := storage.GenerateUploadURL(ctx, "campaigns/abc/image/cover.png", "image/png", 5*time.Minute)
		require.NoError(t, err)
		assert.Contains(t, url, "localhost:9000/campaign-media/")
		assert.Contains(t, url, "X-Amz-Signature=")
		assert.Contains(t, url, "X-Amz-Expires=300")
		assert.Equal(t, fixed.Add(5*time.Minute), expiresAt)
	})

	t.Run("default expiry", func(t *testing.T) {
		url, expiresAt, err := storage.GenerateUploadURL(ctx, "k.png", "image/png", 0)
		require.NoError(t, err)
		assert.Contains(t, url, "X-Amz-Expires=600")
		assert.Equal(t, fixed.Add(10*time.Minute), expiresAt)
	})
}

func TestS3ObjectStorage_GenerateDownloadURL(t *testing.T) {
	ctx := context.Background()

	t.Run("presigned get", func(t *testing.T) {
		storage, err := NewS3ObjectStorage(testStorageConfig())
		require.NoError(t, err)

		url, expiresAt, err := storage.GenerateDownloadURL(ctx, "campaigns/abc/document/report.pdf", time.Hour)
		require.NoError(t, err)
		assert.Contains(t, url, "campaign-media")
		assert.Contains(t, url, "X-Amz-Signature=")
		assert.True(t, expiresAt.After(time.Now()))
	})

	t.Run("public base url", func(t *testing.T) {
		cfg := testStorageConfig()
		cfg.PublicBaseURL = "https://cdn.example.org/media/"
		storage, err := NewS3ObjectStorage(cfg)
		require.NoError(t, err)

		url, _, err := storage.GenerateDownloadURL(ctx, "campaigns/abc/image/cover.png", 0)
		require.NoError(t, err)
		assert.Equal(t, "https://cdn.example.org/media/campaigns/abc/image/cover.png", url)
	})

	t.Run("empty key", func(t *testing.T) {
		storage, err := NewS3ObjectStorage(testStorageConfig())
		require.NoError(t, err)
		_, _, err = storage.GenerateDownloadURL(ctx, "", time.Minute)
		assert.ErrorIs(t, err, errKeyRequired)
	})
}

func TestS3ObjectStorage_ObjectExists_EmptyKey(t *testing.T) {
	storage, err := NewS3ObjectStorage(testStorageConfig())
	require.NoError(t, err)

	exists, err := storage.ObjectExists(context.Background(), "")
	assert.ErrorIs(t, err, errKeyRequired)
	assert.False(t, exists)
}
