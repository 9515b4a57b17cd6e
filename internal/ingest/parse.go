package ingest

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/andresuchdata/bakeplan/internal/domain"
)

// RowError describes a record that was skipped. Line is 1-based and counts
// the header.
type RowError struct {
	Line int
	Err  error
}

func (e RowError) Error() string {
	return fmt.Sprintf("line %d: %v", e.Line, e.Err)
}

// newCSVReader sniffs the header line and switches to ';' when the export
// uses semicolons.
func newCSVReader(r io.Reader) *csv.Reader {
	br := bufio.NewReader(r)
	peek, _ := br.Peek(4096)
	if i := bytes.IndexByte(peek, '\n'); i >= 0 {
		peek = peek[:i]
	}

	reader := csv.NewReader(br)
	if bytes.Count(peek, []byte{';'}) > bytes.Count(peek, []byte{','}) {
		reader.Comma = ';'
	}
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	return reader
}

// parseRecords reads the header, resolves columns and converts every data
// row with build. Bad rows are collected, not fatal; a bad header is.
func parseRecords[T any](r io.Reader, columns []column, build func(row) (T, error)) ([]T, []RowError, error) {
	reader := newCSVReader(r)

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil, fmt.Errorf("empty file")
		}
		return nil, nil, fmt.Errorf("failed to read CSV header: %w", err)
	}

	cols, err := newColMap(header, columns...)
	if err != nil {
		return nil, nil, err
	}

	var (
		out     []T
		skipped []RowError
		line    = 1
	)
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, nil, fmt.Errorf("error reading record at line %d: %w", line, err)
		}
		if blank(record) {
			continue
		}

		item, err := build(row{cols: cols, record: record})
		if err != nil {
			skipped = append(skipped, RowError{Line: line, Err: err})
			continue
		}
		out = append(out, item)
	}

	return out, skipped, nil
}

func blank(record []string) bool {
	for _, v := range record {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// ParseSales reads sales log rows.
func ParseSales(r io.Reader) ([]domain.SaleRecord, []RowError, error) {
	columns := []column{colProductID, colVariantID, colMarketID, colSaleDate, colQuantitySold, colPrice, colCost}
	return parseRecords(r, columns, func(rw row) (domain.SaleRecord, error) {
		var (
			rec domain.SaleRecord
			err error
		)
		if rec.ProductID, err = rw.required(colProductID); err != nil {
			return rec, err
		}
		if rec.MarketID, err = rw.required(colMarketID); err != nil {
			return rec, err
		}
		rec.VariantID = rw.str(colVariantID)
		if rec.SaleDate, err = rw.date(colSaleDate); err != nil {
			return rec, err
		}
		if _, err = rw.required(colQuantitySold); err != nil {
			return rec, err
		}
		if rec.QuantitySold, err = rw.nonNegativeInt(colQuantitySold); err != nil {
			return rec, err
		}
		if rec.PricePerUnit, err = rw.number(colPrice); err != nil {
			return rec, err
		}
		if rec.CostPerUnit, err = rw.number(colCost); err != nil {
			return rec, err
		}
		return rec, nil
	})
}

// ParseInventory reads end-of-day inventory rows.
func ParseInventory(r io.Reader) ([]domain.DailyInventory, []RowError, error) {
	columns := []column{colProductID, colVariantID, colMarketID, colInventoryDate,
		colProduced, colToShop, colSold, colWaste, colLeftover}
	return parseRecords(r, columns, func(rw row) (domain.DailyInventory, error) {
		var (
			rec domain.DailyInventory
			err error
		)
		if rec.ProductID, err = rw.required(colProductID); err != nil {
			return rec, err
		}
		if rec.MarketID, err = rw.required(colMarketID); err != nil {
			return rec, err
		}
		rec.VariantID = rw.str(colVariantID)
		if rec.InventoryDate, err = rw.date(colInventoryDate); err != nil {
			return rec, err
		}
		quantities := []struct {
			col column
			dst *int
		}{
			{colProduced, &rec.ProducedQty},
			{colToShop, &rec.ToShopQty},
			{colSold, &rec.SoldQty},
			{colWaste, &rec.WasteQty},
			{colLeftover, &rec.LeftoverQty},
		}
		for _, q := range quantities {
			if *q.dst, err = rw.nonNegativeInt(q.col); err != nil {
				return rec, err
			}
		}
		return rec, nil
	})
}

// ParseWeather reads per-market weather forecasts. Unknown conditions are
// stored as "none" so they never scale demand.
func ParseWeather(r io.Reader) ([]domain.WeatherForecast, []RowError, error) {
	columns := []column{colMarketID, colForecastDate, colCondition}
	return parseRecords(r, columns, func(rw row) (domain.WeatherForecast, error) {
		var (
			rec domain.WeatherForecast
			err error
		)
		if rec.MarketID, err = rw.required(colMarketID); err != nil {
			return rec, err
		}
		if rec.ForecastDate, err = rw.date(colForecastDate); err != nil {
			return rec, err
		}
		rec.Condition = domain.ParseWeather(rw.str(colCondition))
		return rec, nil
	})
}

// ParseCatalog reads SKU master data.
func ParseCatalog(r io.Reader) ([]domain.SKU, []RowError, error) {
	columns := []column{colProductID, colVariantID, colMarketID, colProductName, colVariantName,
		colMarketName, colCategory, colOutdoor, colPrice, colCost}
	return parseRecords(r, columns, func(rw row) (domain.SKU, error) {
		var (
			sku domain.SKU
			err error
		)
		if sku.ProductID, err = rw.required(colProductID); err != nil {
			return sku, err
		}
		if sku.MarketID, err = rw.required(colMarketID); err != nil {
			return sku, err
		}
		sku.VariantID = rw.str(colVariantID)
		sku.ProductName = rw.str(colProductName)
		if sku.ProductName == "" {
			sku.ProductName = sku.ProductID
		}
		sku.VariantName = rw.str(colVariantName)
		sku.MarketName = rw.str(colMarketName)
		sku.Category = strings.ToLower(rw.str(colCategory))
		if sku.Category == "" {
			sku.Category = domain.CategoryBakery
		}
		sku.Outdoor = rw.flag(colOutdoor)
		if sku.DefaultPrice, err = rw.number(colPrice); err != nil {
			return sku, err
		}
		if sku.DefaultCost, err = rw.number(colCost); err != nil {
			return sku, err
		}
		return sku, nil
	})
}
