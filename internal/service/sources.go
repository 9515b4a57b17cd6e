package service

import (
	"context"

	"github.com/andresuchdata/bakeplan/internal/config"
	"github.com/andresuchdata/bakeplan/internal/drive"
	"github.com/andresuchdata/bakeplan/internal/storage"
)

// OpenIngestSources builds the remote sources that have configuration.
// Unconfigured sources stay nil.
func OpenIngestSources(ctx context.Context, storageCfg config.StorageConfig, driveCfg config.DriveConfig) (IngestSources, error) {
	var sources IngestSources

	if storageCfg.Configured() {
		client, err := storage.NewMinioClient(storageCfg.ClientConfig())
		if err != nil {
			return sources, err
		}
		sources.Storage = client
	}

	if driveCfg.CredentialsJSON != "" {
		srv, err := drive.NewService(ctx, driveCfg.CredentialsJSON)
		if err != nil {
			return sources, err
		}
		sources.Drive = srv
	}

	return sources, nil
}
