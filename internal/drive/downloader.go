package drive

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/andresuchdata/bakeplan/internal/ingest"
)

// FileSource is the part of Service the Downloader needs.
type FileSource interface {
	ListFiles(ctx context.Context, folderID string) ([]*File, error)
	DownloadFile(ctx context.Context, fileID string, w io.Writer) error
	ExportCSV(ctx context.Context, fileID string, w io.Writer) error
}

// DownloadOptions controls how files are pulled from Google Drive.
type DownloadOptions struct {
	FolderID    string
	DownloadDir string
}

// Downloader pulls ingest files out of a Drive folder.
type Downloader struct {
	source FileSource
}

// NewDownloader creates a new Downloader.
func NewDownloader(source FileSource) *Downloader {
	return &Downloader{source: source}
}

// DownloadFolderCSV downloads the CSV, XLSX and Google Sheets files of the
// folder and of its direct subfolders into DownloadDir, keeping the
// subfolder name so ingest can route by directory. It returns local CSV
// paths: XLSX is converted and removed, Sheets are exported as CSV.
func (d *Downloader) DownloadFolderCSV(ctx context.Context, opts DownloadOptions) ([]string, error) {
	if opts.DownloadDir == "" {
		return nil, fmt.Errorf("download dir is required")
	}

	files, err := d.source.ListFiles(ctx, opts.FolderID)
	if err != nil {
		return nil, err
	}

	var localPaths []string
	for _, f := range files {
		if !f.IsFolder() {
			continue
		}
		children, err := d.source.ListFiles(ctx, f.ID)
		if err != nil {
			return nil, err
		}
		paths, err := d.downloadFiles(ctx, children, filepath.Join(opts.DownloadDir, filepath.Base(f.Name)))
		if err != nil {
			return nil, err
		}
		localPaths = append(localPaths, paths...)
	}

	paths, err := d.downloadFiles(ctx, files, opts.DownloadDir)
	if err != nil {
		return nil, err
	}
	return append(localPaths, paths...), nil
}

func (d *Downloader) downloadFiles(ctx context.Context, files []*File, dir string) ([]string, error) {
	var localPaths []string
	for _, f := range files {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		if f.IsFolder() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(f.Name))
		if !f.IsSpreadsheet() && ext != ".csv" && ext != ".xlsx" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create download dir %s: %w", dir, err)
		}

		if f.IsSpreadsheet() {
			csvPath := filepath.Join(dir, filepath.Base(f.Name)+".csv")
			if err := d.writeTo(ctx, d.source.ExportCSV, f, csvPath); err != nil {
				return nil, err
			}
			localPaths = append(localPaths, csvPath)
			continue
		}

		localPath := filepath.Join(dir, filepath.Base(f.Name))
		if err := d.writeTo(ctx, d.source.DownloadFile, f, localPath); err != nil {
			return nil, err
		}
		if ext == ".csv" {
			localPaths = append(localPaths, localPath)
			continue
		}

		csvPath := strings.TrimSuffix(localPath, filepath.Ext(localPath)) + ".csv"
		if err := ingest.ConvertXLSXToCSV(localPath, csvPath); err != nil {
			return nil, fmt.Errorf("convert %s to csv: %w", f.Name, err)
		}
		_ = os.Remove(localPath)
		localPaths = append(localPaths, csvPath)
	}
	return localPaths, nil
}

type fetchFunc func(ctx context.Context, fileID string, w io.Writer) error

func (d *Downloader) writeTo(ctx context.Context, fetch fetchFunc, f *File, localPath string) error {
	out, err := os.Create(localPath)
	if err != nil {
		return fmt.Errorf("create %s: %w", localPath, err)
	}
	if err := fetch(ctx, f.ID, out); err != nil {
		out.Close()
		return fmt.Errorf("fetch %s: %w", f.Name, err)
	}
	return out.Close()
}
