package storage

import (
	"context"
	"fmt"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// ingestExtensions are the object suffixes the ingest pipeline understands.
var ingestExtensions = []string{".csv", ".xlsx"}

// Downloader mirrors a bucket prefix into a local directory, keeping the
// key layout below the prefix so directory based routing still works.
type Downloader struct {
	client  ObjectStorage
	baseDir string
}

func NewDownloader(client ObjectStorage, baseDir string) *Downloader {
	if baseDir == "" {
		baseDir = "./data/tmp/storage"
	}
	return &Downloader{client: client, baseDir: baseDir}
}

// DownloadPrefix fetches every CSV/XLSX object under prefix and returns the
// sorted local paths.
func (d *Downloader) DownloadPrefix(ctx context.Context, prefix string) ([]string, error) {
	listPrefix := strings.TrimSpace(prefix)
	objects, err := d.client.ListObjects(ctx, listPrefix)
	if err != nil {
		return nil, fmt.Errorf("failed to list objects for prefix %s: %w", listPrefix, err)
	}

	var keys []string
	for _, obj := range objects {
		if hasIngestExtension(obj.Key) {
			keys = append(keys, obj.Key)
		}
	}
	if len(keys) == 0 {
		return nil, fmt.Errorf("no CSV or XLSX files found for prefix %s", prefix)
	}

	localPaths := make([]string, 0, len(keys))
	for _, key := range keys {
		localPath := filepath.Join(d.baseDir, filepath.FromSlash(objectRelativePath(listPrefix, key)))
		if err := d.client.DownloadObject(ctx, key, localPath); err != nil {
			return nil, err
		}
		localPaths = append(localPaths, localPath)
	}

	sort.Strings(localPaths)
	return localPaths, nil
}

func hasIngestExtension(key string) bool {
	ext := strings.ToLower(path.Ext(key))
	for _, allowed := range ingestExtensions {
		if ext == allowed {
			return true
		}
	}
	return false
}

func objectRelativePath(prefix, key string) string {
	if prefix == "" {
		return key
	}
	prefixTrimmed := strings.TrimSuffix(strings.TrimSpace(prefix), "/")
	rel := strings.TrimPrefix(key, prefixTrimmed+"/")
	if rel == "" || rel == key {
		return path.Base(key)
	}
	return rel
}

// ReportKey builds the object key of an exported accuracy report.
func ReportKey(prefix string, from, to time.Time, marketID string, generatedAt time.Time) string {
	scope := marketID
	if scope == "" {
		scope = "all"
	}
	name := fmt.Sprintf("accuracy_%s_%s_%s_%s.json",
		from.Format("20060102"), to.Format("20060102"), scope, generatedAt.UTC().Format("20060102T150405Z"))
	prefix = strings.Trim(strings.TrimSpace(prefix), "/")
	if prefix == "" {
		return name
	}
	return prefix + "/" + name
}
