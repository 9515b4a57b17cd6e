package ingest

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Kind names the dataset a file carries.
type Kind string

const (
	KindCatalog   Kind = "catalog"
	KindWeather   Kind = "weather"
	KindSales     Kind = "sales"
	KindInventory Kind = "inventory"
)

// kindOrder is the load order: catalog rows first so later datasets can be
// inspected against known SKUs.
var kindOrder = []Kind{KindCatalog, KindWeather, KindSales, KindInventory}

var kindAliases = map[string]Kind{
	"catalog":           KindCatalog,
	"skus":              KindCatalog,
	"products":          KindCatalog,
	"weather":           KindWeather,
	"weather_forecasts": KindWeather,
	"sales":             KindSales,
	"sales_log":         KindSales,
	"inventory":         KindInventory,
	"daily_inventory":   KindInventory,
}

// DetectKind resolves the dataset of a file from its parent directory,
// falling back to the file name prefix (e.g. sales_202405.csv).
func DetectKind(path string) (Kind, error) {
	dir := strings.ToLower(filepath.Base(filepath.Dir(path)))
	if kind, ok := kindAliases[dir]; ok {
		return kind, nil
	}

	name := strings.ToLower(strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)))
	var best Kind
	bestLen := 0
	for alias, kind := range kindAliases {
		if strings.HasPrefix(name, alias) && len(alias) > bestLen {
			best, bestLen = kind, len(alias)
		}
	}
	if bestLen > 0 {
		return best, nil
	}
	return "", fmt.Errorf("unknown file type for %s: expected a catalog, weather, sales or inventory directory or prefix", path)
}
