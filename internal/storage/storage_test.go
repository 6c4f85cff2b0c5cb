package storage

import (
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/talent-hunters/bookportal/config"
)

type memoryBackend struct {
	objects map[string][]byte
	ensured bool
}

func (m *memoryBackend) EnsureBucket(context.Context) error {
	m.ensured = true
	return nil
}

func (m *memoryBackend) Put(_ context.Context, key string, r io.Reader, _ int64, _ string) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	m.objects[key] = data
	return nil
}

func (m *memoryBackend) Delete(_ context.Context, key string) error {
	delete(m.objects, key)
	return nil
}

func (m *memoryBackend) Bucket() string { return "covers" }

func TestOpenWithoutBackendDisablesStorage(t *testing.T) {
	s, err := Open(context.Background(), config.StorageConfig{})
	require.NoError(t, err)
	assert.Nil(t, s)
}

func TestOpenRejectsIncompleteConfig(t *testing.T) {
	_, err := Open(context.Background(), config.StorageConfig{Backend: "s3"})
	assert.Error(t, err)

	_, err = Open(context.Background(), config.StorageConfig{
		Backend: config.StorageBackendMinio,
		Minio:   config.MinioConfig{Endpoint: "localhost:9000", Bucket: "covers"},
	})
	assert.ErrorContains(t, err, "access key")

	_, err = Open(context.Background(), config.StorageConfig{Backend: config.StorageBackendGCS})
	assert.ErrorContains(t, err, "bucket is required")
}

func TestOpenMinioDoesNotDial(t *testing.T) {
	s, err := Open(context.Background(), config.StorageConfig{
		Backend: config.StorageBackendMinio,
		Minio: config.MinioConfig{
			Endpoint:  "localhost:9000",
			AccessKey: "access",
			SecretKey: "secret",
			Bucket:    "covers",
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "covers", s.Bucket())
}

func TestStorageDelegates(t *testing.T) {
	backend := &memoryBackend{objects: map[string][]byte{}}
	s := New(backend)
	ctx := context.Background()

	require.NoError(t, s.EnsureBucket(ctx))
	assert.True(t, backend.ensured)

	require.NoError(t, s.Put(ctx, "images/a.png", bytes.NewReader([]byte("png")), 3, "image/png"))
	assert.Equal(t, []byte("png"), backend.objects["images/a.png"])

	require.NoError(t, s.Delete(ctx, "images/a.png"))
	assert.NotContains(t, backend.objects, "images/a.png")
}

func TestPublicReadPolicy(t *testing.T) {
	policy := publicReadPolicy("covers", PublicPrefix)
	assert.Contains(t, policy, `"Action":["s3:GetObject"]`)
	assert.Contains(t, policy, `"arn:aws:s3:::covers/images/*"`)
}
