package service

import (
	"context"
	"fmt"
	"os"

	"github.com/andresuchdata/bakeplan/internal/domain"
	"github.com/andresuchdata/bakeplan/internal/drive"
	"github.com/andresuchdata/bakeplan/internal/ingest"
	"github.com/andresuchdata/bakeplan/internal/storage"
	"github.com/rs/zerolog/log"
)

// DriveClient is the Google Drive surface ingest relies on.
type DriveClient interface {
	drive.FileSource
	FindFolderByPath(ctx context.Context, path string) (string, error)
}

// IngestSources are the optional remote inputs. A nil source makes the
// matching operation fail with domain.ErrSourceNotConfigured.
type IngestSources struct {
	Storage storage.ObjectStorage
	Drive   DriveClient
}

type IngestOptions struct {
	// WorkDir holds scratch downloads; they are removed after each run.
	WorkDir string
	// DriveFolder is used when a Drive ingest names no folder.
	DriveFolder string
}

// IngestService loads sales, inventory, weather and catalog files from a
// local directory, a bucket prefix or a Drive folder.
type IngestService struct {
	processor *ingest.Processor
	sources   IngestSources
	opts      IngestOptions
}

func NewIngestService(processor *ingest.Processor, sources IngestSources, opts IngestOptions) *IngestService {
	if opts.WorkDir == "" {
		opts.WorkDir = os.TempDir()
	}
	return &IngestService{processor: processor, sources: sources, opts: opts}
}

// IngestDir loads every supported file below dir.
func (s *IngestService) IngestDir(ctx context.Context, dir string) (*ingest.Summary, error) {
	return s.processor.ProcessDir(ctx, dir)
}

// IngestPrefix mirrors an object storage prefix locally and loads it.
func (s *IngestService) IngestPrefix(ctx context.Context, prefix string) (*ingest.Summary, error) {
	if s.sources.Storage == nil {
		return nil, fmt.Errorf("object storage: %w", domain.ErrSourceNotConfigured)
	}
	return s.withScratchDir("storage-*", func(dir string) (*ingest.Summary, error) {
		paths, err := storage.NewDownloader(s.sources.Storage, dir).DownloadPrefix(ctx, prefix)
		if err != nil {
			return nil, err
		}
		log.Info().Str("prefix", prefix).Int("files", len(paths)).Msg("ingest: objects downloaded")
		return s.processor.ProcessFiles(ctx, paths)
	})
}

// IngestDrive downloads the folder at folderPath (and its direct subfolders)
// and loads it.
func (s *IngestService) IngestDrive(ctx context.Context, folderPath string) (*ingest.Summary, error) {
	if s.sources.Drive == nil {
		return nil, fmt.Errorf("google drive: %w", domain.ErrSourceNotConfigured)
	}
	if folderPath == "" {
		folderPath = s.opts.DriveFolder
	}
	folderID, err := s.sources.Drive.FindFolderByPath(ctx, folderPath)
	if err != nil {
		return nil, err
	}
	return s.withScratchDir("drive-*", func(dir string) (*ingest.Summary, error) {
		paths, err := drive.NewDownloader(s.sources.Drive).DownloadFolderCSV(ctx, drive.DownloadOptions{
			FolderID:    folderID,
			DownloadDir: dir,
		})
		if err != nil {
			return nil, err
		}
		if len(paths) == 0 {
			return nil, fmt.Errorf("no CSV or XLSX files found in drive folder %q", folderPath)
		}
		log.Info().Str("folder", folderPath).Int("files", len(paths)).Msg("ingest: drive files downloaded")
		return s.processor.ProcessFiles(ctx, paths)
	})
}

// ListDriveFiles lists the files of a Drive folder without loading them.
func (s *IngestService) ListDriveFiles(ctx context.Context, folderPath string) ([]*drive.File, error) {
	if s.sources.Drive == nil {
		return nil, fmt.Errorf("google drive: %w", domain.ErrSourceNotConfigured)
	}
	if folderPath == "" {
		folderPath = s.opts.DriveFolder
	}
	folderID, err := s.sources.Drive.FindFolderByPath(ctx, folderPath)
	if err != nil {
		return nil, err
	}
	return s.sources.Drive.ListFiles(ctx, folderID)
}

func (s *IngestService) withScratchDir(pattern string, fn func(dir string) (*ingest.Summary, error)) (*ingest.Summary, error) {
	if err := os.MkdirAll(s.opts.WorkDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to prepare work dir: %w", err)
	}
	dir, err := os.MkdirTemp(s.opts.WorkDir, pattern)
	if err != nil {
		return nil, fmt.Errorf("failed to create scratch dir: %w", err)
	}
	defer os.RemoveAll(dir)
	return fn(dir)
}
