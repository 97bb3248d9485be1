package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Downloader copies CSV objects under a prefix into a local directory,
// keeping their relative layout so the parent directory still names the
// file type.
type Downloader struct {
	client  ObjectStorage
	baseDir string
}

func NewDownloader(client ObjectStorage, baseDir string) (*Downloader, error) {
	if baseDir == "" {
		baseDir = "./data/tmp/s3"
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to ensure download dir %s: %w", baseDir, err)
	}
	return &Downloader{client: client, baseDir: baseDir}, nil
}

// Download fetches every CSV under prefix, or only override when set, and
// returns the local paths sorted.
func (d *Downloader) Download(ctx context.Context, prefix, override string) ([]string, error) {
	var keys []string

	if override != "" {
		keys = []string{ResolveObjectKey(prefix, override)}
	} else {
		listPrefix := strings.TrimSpace(prefix)
		objects, err := d.client.ListObjects(ctx, listPrefix)
		if err != nil {
			return nil, fmt.Errorf("failed to list objects for prefix %s: %w", listPrefix, err)
		}
		for _, obj := range objects {
			if strings.HasSuffix(strings.ToLower(obj.Key), ".csv") {
				keys = append(keys, obj.Key)
			}
		}
	}

	if len(keys) == 0 {
		return nil, fmt.Errorf("no CSV files found for prefix %s", prefix)
	}

	localPaths := make([]string, 0, len(keys))
	for _, key := range keys {
		localPath := filepath.Join(d.baseDir, filepath.FromSlash(ObjectRelativePath(prefix, key)))
		if err := d.client.DownloadObject(ctx, key, localPath); err != nil {
			return nil, err
		}
		localPaths = append(localPaths, localPath)
	}

	sort.Strings(localPaths)
	return localPaths, nil
}

// ResolveObjectKey joins a single object name onto prefix unless it already
// carries it.
func ResolveObjectKey(prefix, override string) string {
	if override == "" {
		return strings.TrimSpace(prefix)
	}
	if prefix == "" {
		return strings.TrimPrefix(override, "/")
	}

	prefixTrimmed := strings.TrimSuffix(strings.TrimSpace(prefix), "/")
	overrideTrimmed := strings.TrimPrefix(strings.TrimSpace(override), "/")

	if strings.HasPrefix(overrideTrimmed, prefixTrimmed) {
		return overrideTrimmed
	}
	return fmt.Sprintf("%s/%s", prefixTrimmed, overrideTrimmed)
}

// ObjectRelativePath strips prefix from key.
func ObjectRelativePath(prefix, key string) string {
	if prefix == "" {
		return key
	}
	prefixTrimmed := strings.TrimSuffix(strings.TrimSpace(prefix), "/")
	rel := strings.TrimPrefix(key, prefixTrimmed+"/")
	if rel == "" {
		return filepath.Base(key)
	}
	return rel
}

// Archive uploads already imported local files under archivePrefix, keyed by
// their path below the download directory, and returns the keys written.
func (d *Downloader) Archive(ctx context.Context, archivePrefix string, localPaths []string) ([]string, error) {
	prefix := strings.TrimSuffix(strings.TrimSpace(archivePrefix), "/")
	keys := make([]string, 0, len(localPaths))
	for _, path := range localPaths {
		rel, err := filepath.Rel(d.baseDir, path)
		if err != nil || strings.HasPrefix(rel, "..") {
			rel = filepath.Base(path)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return keys, fmt.Errorf("failed to read %s for archiving: %w", path, err)
		}

		key := filepath.ToSlash(rel)
		if prefix != "" {
			key = prefix + "/" + key
		}
		if err := d.client.UploadObject(ctx, key, data); err != nil {
			return keys, err
		}
		keys = append(keys, key)
	}
	return keys, nil
}
