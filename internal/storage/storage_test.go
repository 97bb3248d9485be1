package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/andresuchdata/costbook/backend-go/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryStorage struct {
	objects map[string][]byte
}

func (m *memoryStorage) ListObjects(ctx context.Context, prefix string) ([]ObjectInfo, error) {
	var out []ObjectInfo
	for key, data := range m.objects {
		if len(key) >= len(prefix) && key[:len(prefix)] == prefix {
			out = append(out, ObjectInfo{Key: key, Size: int64(len(data))})
		}
	}
	return out, nil
}

func (m *memoryStorage) DownloadObject(ctx context.Context, key, destPath string) error {
	if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
		return err
	}
	return os.WriteFile(destPath, m.objects[key], 0o644)
}

func (m *memoryStorage) UploadObject(ctx context.Context, key string, data []byte) error {
	m.objects[key] = data
	return nil
}

func TestResolveObjectKey(t *testing.T) {
	assert.Equal(t, "imports/records/a.csv", ResolveObjectKey("imports/", "records/a.csv"))
	assert.Equal(t, "imports/records/a.csv", ResolveObjectKey("imports", "/imports/records/a.csv"))
	assert.Equal(t, "a.csv", ResolveObjectKey("", "/a.csv"))
	assert.Equal(t, "imports", ResolveObjectKey(" imports ", ""))
}

func TestObjectRelativePath(t *testing.T) {
	assert.Equal(t, "records/a.csv", ObjectRelativePath("imports/", "imports/records/a.csv"))
	assert.Equal(t, "x/records/a.csv", ObjectRelativePath("", "x/records/a.csv"))
}

func TestNormalizeEndpoint(t *testing.T) {
	endpoint, secure := normalizeEndpoint("https://s3.example.com/", false)
	assert.Equal(t, "s3.example.com", endpoint)
	assert.True(t, secure)

	endpoint, secure = normalizeEndpoint("localhost:9000", false)
	assert.Equal(t, "localhost:9000", endpoint)
	assert.False(t, secure)
}

func TestNewS3ClientValidatesConfig(t *testing.T) {
	_, err := NewS3Client(config.StorageConfig{})
	assert.ErrorContains(t, err, "endpoint")

	_, err = NewS3Client(config.StorageConfig{Endpoint: "localhost:9000", AccessKey: "a", SecretKey: "b"})
	assert.ErrorContains(t, err, "bucket")

	client, err := NewS3Client(config.StorageConfig{Endpoint: "http://localhost:9000", AccessKey: "a", SecretKey: "b", Bucket: "imports"})
	require.NoError(t, err)
	assert.Equal(t, "imports", client.bucket)
}

func TestDownloaderKeepsLayout(t *testing.T) {
	store := &memoryStorage{objects: map[string][]byte{
		"imports/records/2024-01.csv": []byte("date\n"),
		"imports/recipes/menu.csv":    []byte("recipe_id\n"),
		"imports/readme.txt":          []byte("skip"),
	}}
	dir := t.TempDir()

	d, err := NewDownloader(store, dir)
	require.NoError(t, err)

	paths, err := d.Download(context.Background(), "imports/", "")
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "recipes", "menu.csv"),
		filepath.Join(dir, "records", "2024-01.csv"),
	}, paths)

	data, err := os.ReadFile(paths[1])
	require.NoError(t, err)
	assert.Equal(t, "date\n", string(data))
}

func TestDownloaderNoFiles(t *testing.T) {
	d, err := NewDownloader(&memoryStorage{objects: map[string][]byte{}}, t.TempDir())
	require.NoError(t, err)

	_, err = d.Download(context.Background(), "empty/", "")
	assert.ErrorContains(t, err, "no CSV files found")
}

func TestDownloaderArchivesImportedFiles(t *testing.T) {
	store := &memoryStorage{objects: map[string][]byte{
		"imports/records/2024-01.csv": []byte("date\n"),
	}}
	d, err := NewDownloader(store, t.TempDir())
	require.NoError(t, err)

	paths, err := d.Download(context.Background(), "imports/", "")
	require.NoError(t, err)

	keys, err := d.Archive(context.Background(), "archive/2024-03-15/", paths)
	require.NoError(t, err)
	assert.Equal(t, []string{"archive/2024-03-15/records/2024-01.csv"}, keys)
	assert.Equal(t, "date\n", string(store.objects["archive/2024-03-15/records/2024-01.csv"]))
}
