package ingest

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/andresuchdata/bakeplan/internal/cache"
	"github.com/andresuchdata/bakeplan/internal/domain"
	"github.com/andresuchdata/bakeplan/internal/repository"
	"github.com/rs/zerolog/log"
)

const defaultBatchSize = 500

// Repositories are the stores a Processor loads into.
type Repositories struct {
	Catalog   repository.CatalogRepository
	Sales     repository.SalesRepository
	Weather   repository.WeatherRepository
	Inventory repository.InventoryRepository
}

// FileResult reports what one file contributed.
type FileResult struct {
	Path    string     `json:"path"`
	Kind    Kind       `json:"kind"`
	Rows    int        `json:"rows"`
	Skipped []RowError `json:"-"`
}

// Summary aggregates a multi-file run.
type Summary struct {
	Files   []FileResult `json:"files"`
	Rows    map[Kind]int `json:"rows"`
	Skipped int          `json:"skipped"`
}

// Processor routes CSV/XLSX files to the matching repository.
type Processor struct {
	repos     Repositories
	cache     cache.AccuracyCache
	batchSize int
}

func NewProcessor(repos Repositories, cacheImpl cache.AccuracyCache) *Processor {
	if cacheImpl == nil {
		cacheImpl = cache.NewNoopAccuracyCache()
	}
	return &Processor{repos: repos, cache: cacheImpl, batchSize: defaultBatchSize}
}

// ProcessFiles loads files grouped by kind in catalog, weather, sales,
// inventory order. It stops at the first file that cannot be loaded. Rows
// committed before a failure stay loaded, so the accuracy cache is cleared
// whenever any sales or inventory row was written.
func (p *Processor) ProcessFiles(ctx context.Context, paths []string) (*Summary, error) {
	byKind := make(map[Kind][]string)
	for _, path := range paths {
		kind, err := DetectKind(path)
		if err != nil {
			return nil, err
		}
		byKind[kind] = append(byKind[kind], path)
	}

	summary := &Summary{Rows: make(map[Kind]int)}
	defer p.invalidateAfter(ctx, summary)

	for _, kind := range kindOrder {
		files := byKind[kind]
		sort.Strings(files)
		for _, path := range files {
			if err := ctx.Err(); err != nil {
				return summary, err
			}
			res, err := p.processKind(ctx, kind, path)
			if res != nil {
				summary.Files = append(summary.Files, *res)
				summary.Rows[kind] += res.Rows
				summary.Skipped += len(res.Skipped)
			}
			if err != nil {
				return summary, err
			}
		}
	}
	return summary, nil
}

// invalidateAfter clears cached reports once actuals have changed. It runs
// even when ctx was cancelled mid-run.
func (p *Processor) invalidateAfter(ctx context.Context, summary *Summary) {
	if summary.Rows[KindSales]+summary.Rows[KindInventory] == 0 {
		return
	}
	if err := p.cache.InvalidateAll(context.WithoutCancel(ctx)); err != nil {
		log.Warn().Err(err).Msg("ingest: failed to invalidate accuracy cache")
	}
}

// ProcessDir walks dir and loads every CSV/XLSX file found.
func (p *Processor) ProcessDir(ctx context.Context, dir string) (*Summary, error) {
	var paths []string
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		switch strings.ToLower(filepath.Ext(path)) {
		case ".csv", ".xlsx":
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan %s: %w", dir, err)
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no CSV or XLSX files found in %s", dir)
	}
	return p.ProcessFiles(ctx, paths)
}

// ProcessFile loads a single file, detecting its kind from the path.
func (p *Processor) ProcessFile(ctx context.Context, path string) (*FileResult, error) {
	kind, err := DetectKind(path)
	if err != nil {
		return nil, err
	}
	return p.processKind(ctx, kind, path)
}

func (p *Processor) processKind(ctx context.Context, kind Kind, path string) (*FileResult, error) {
	csvPath, cleanup, err := asCSV(path)
	if err != nil {
		return nil, err
	}
	defer cleanup()

	file, err := os.Open(csvPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	res, err := p.load(ctx, kind, file)
	if res != nil {
		res.Path = path
	}
	if err != nil {
		// res carries the rows committed before the failure, if any.
		return res, fmt.Errorf("%s: %w", path, err)
	}

	for _, skipped := range res.Skipped {
		log.Warn().Str("file", path).Int("line", skipped.Line).Err(skipped.Err).Msg("ingest: row skipped")
	}
	log.Info().
		Str("file", path).
		Str("kind", string(kind)).
		Int("rows", res.Rows).
		Int("skipped", len(res.Skipped)).
		Msg("ingest: file processed")

	return res, nil
}

func (p *Processor) load(ctx context.Context, kind Kind, r io.Reader) (*FileResult, error) {
	res := &FileResult{Kind: kind}

	switch kind {
	case KindCatalog:
		rows, skipped, err := ParseCatalog(r)
		if err != nil {
			return nil, err
		}
		res.Skipped = skipped
		res.Rows, err = inBatches(rows, p.batchSize, func(batch []domain.SKU) error {
			return p.repos.Catalog.UpsertSKUs(ctx, batch)
		})
		return res, err
	case KindWeather:
		rows, skipped, err := ParseWeather(r)
		if err != nil {
			return nil, err
		}
		res.Skipped = skipped
		res.Rows, err = inBatches(rows, p.batchSize, func(batch []domain.WeatherForecast) error {
			return p.repos.Weather.UpsertWeather(ctx, batch)
		})
		return res, err
	case KindSales:
		rows, skipped, err := ParseSales(r)
		if err != nil {
			return nil, err
		}
		res.Skipped = skipped
		res.Rows, err = inBatches(rows, p.batchSize, func(batch []domain.SaleRecord) error {
			return p.repos.Sales.InsertSales(ctx, batch)
		})
		return res, err
	case KindInventory:
		rows, skipped, err := ParseInventory(r)
		if err != nil {
			return nil, err
		}
		res.Skipped = skipped
		res.Rows, err = inBatches(rows, p.batchSize, func(batch []domain.DailyInventory) error {
			return p.repos.Inventory.UpsertInventory(ctx, batch)
		})
		return res, err
	}
	return nil, fmt.Errorf("unsupported kind %q", kind)
}

// inBatches feeds rows to fn in chunks and reports how many rows were
// accepted before the first failing chunk.
func inBatches[T any](rows []T, size int, fn func([]T) error) (int, error) {
	if size <= 0 {
		size = defaultBatchSize
	}
	done := 0
	for start := 0; start < len(rows); start += size {
		end := min(start+size, len(rows))
		if err := fn(rows[start:end]); err != nil {
			return done, err
		}
		done = end
	}
	return done, nil
}

// asCSV converts XLSX input to a temporary CSV next to it.
func asCSV(path string) (string, func(), error) {
	if !strings.EqualFold(filepath.Ext(path), ".xlsx") {
		return path, func() {}, nil
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), "ingest-*.csv")
	if err != nil {
		return "", nil, fmt.Errorf("failed to create temp csv for %s: %w", path, err)
	}
	tmp.Close()
	if err := ConvertXLSXToCSV(path, tmp.Name()); err != nil {
		os.Remove(tmp.Name())
		return "", nil, err
	}
	return tmp.Name(), func() { os.Remove(tmp.Name()) }, nil
}
