package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/andresuchdata/bakeplan/internal/domain"
	"github.com/andresuchdata/bakeplan/internal/storage"
	"github.com/rs/zerolog/log"
)

// Analyzer produces accuracy reports.
type Analyzer interface {
	Analyze(ctx context.Context, filter domain.AnalysisFilter) (*domain.AccuracyAnalysisResult, error)
}

// ReportExporter uploads accuracy reports as JSON objects.
type ReportExporter struct {
	analyzer Analyzer
	store    storage.ObjectStorage
	prefix   string
	now      func() time.Time
}

func NewReportExporter(analyzer Analyzer, store storage.ObjectStorage, prefix string) *ReportExporter {
	return &ReportExporter{analyzer: analyzer, store: store, prefix: prefix, now: time.Now}
}

// Export computes the report for filter and returns it with the object key
// it was stored under.
func (e *ReportExporter) Export(ctx context.Context, filter domain.AnalysisFilter) (*domain.AccuracyAnalysisResult, string, error) {
	result, err := e.analyzer.Analyze(ctx, filter)
	if err != nil {
		return nil, "", err
	}

	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return nil, "", fmt.Errorf("failed to encode report: %w", err)
	}

	key := storage.ReportKey(e.prefix, filter.From, filter.To, filter.MarketID, e.now())
	if err := e.store.UploadObject(ctx, key, data, "application/json"); err != nil {
		return nil, "", err
	}

	log.Info().Str("key", key).Int("bytes", len(data)).Msg("accuracy: report exported")
	return result, key, nil
}
