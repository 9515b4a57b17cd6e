package ingest

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/andresuchdata/bakeplan/internal/domain"
)

// column is a logical field with the header spellings accepted for it.
type column struct {
	name     string
	aliases  []string
	required bool
}

var (
	colProductID   = column{name: "product_id", aliases: []string{"product", "sku"}, required: true}
	colVariantID   = column{name: "variant_id", aliases: []string{"variant"}}
	colMarketID    = column{name: "market_id", aliases: []string{"market", "store"}, required: true}
	colProductName = column{name: "product_name", aliases: []string{"name"}}
	colVariantName = column{name: "variant_name"}
	colMarketName  = column{name: "market_name"}
	colCategory    = column{name: "category"}
	colOutdoor     = column{name: "outdoor", aliases: []string{"is_outdoor"}}
	colPrice       = column{name: "price_per_unit", aliases: []string{"default_price", "price", "unit_price"}}
	colCost        = column{name: "cost_per_unit", aliases: []string{"default_cost", "cost", "unit_cost"}}

	colSaleDate     = column{name: "sale_date", aliases: []string{"date"}, required: true}
	colQuantitySold = column{name: "quantity_sold", aliases: []string{"quantity", "qty"}, required: true}

	colInventoryDate = column{name: "inventory_date", aliases: []string{"date"}, required: true}
	colProduced      = column{name: "produced_qty", aliases: []string{"produced"}}
	colToShop        = column{name: "to_shop_qty", aliases: []string{"to_shop"}}
	colSold          = column{name: "sold_qty", aliases: []string{"sold"}}
	colWaste         = column{name: "waste_qty", aliases: []string{"waste"}}
	colLeftover      = column{name: "leftover_qty", aliases: []string{"leftover"}}

	colForecastDate = column{name: "forecast_date", aliases: []string{"date"}, required: true}
	colCondition    = column{name: "condition", aliases: []string{"weather"}, required: true}
)

var dateLayouts = []string{
	domain.DateLayout,
	"2006-01-02 15:04:05",
	time.RFC3339,
	"02/01/2006",
	"2/1/2006",
	"2/1/06",
	"20060102",
}

// normalizeHeader folds "Quantity Sold", "quantity-sold" and "QUANTITY_SOLD"
// onto the same key.
func normalizeHeader(h string) string {
	h = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
	return strings.NewReplacer(" ", "_", "-", "_", ".", "").Replace(h)
}

// colMap maps logical column names to their index in a header row.
type colMap map[string]int

func newColMap(header []string, columns ...column) (colMap, error) {
	index := make(map[string]int, len(header))
	for i, h := range header {
		key := normalizeHeader(h)
		if _, dup := index[key]; !dup {
			index[key] = i
		}
	}

	m := make(colMap, len(columns))
	var missing []string
	for _, col := range columns {
		found := false
		for _, candidate := range append([]string{col.name}, col.aliases...) {
			if idx, ok := index[candidate]; ok {
				m[col.name] = idx
				found = true
				break
			}
		}
		if !found && col.required {
			missing = append(missing, col.name)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("missing required column(s): %s", strings.Join(missing, ", "))
	}
	return m, nil
}

// row reads typed values from one record through a colMap.
type row struct {
	cols   colMap
	record []string
}

func (r row) str(col column) string {
	if idx, ok := r.cols[col.name]; ok && idx < len(r.record) {
		return strings.TrimSpace(r.record[idx])
	}
	return ""
}

func (r row) required(col column) (string, error) {
	v := r.str(col)
	if v == "" {
		return "", fmt.Errorf("%s is empty", col.name)
	}
	return v, nil
}

// integer accepts "12" and "12.0"; empty is zero.
func (r row) integer(col column) (int, error) {
	v := r.str(col)
	if v == "" {
		return 0, nil
	}
	if n, err := strconv.Atoi(v); err == nil {
		return n, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid number %q", col.name, v)
	}
	return int(f), nil
}

func (r row) nonNegativeInt(col column) (int, error) {
	n, err := r.integer(col)
	if err != nil {
		return 0, err
	}
	if n < 0 {
		return 0, fmt.Errorf("%s: negative value %d", col.name, n)
	}
	return n, nil
}

// number reads a single comma as a decimal separator ("4,50") and drops
// commas otherwise ("1,250.00").
func (r row) number(col column) (float64, error) {
	v := r.str(col)
	if strings.Count(v, ",") == 1 && !strings.Contains(v, ".") {
		v = strings.Replace(v, ",", ".", 1)
	} else {
		v = strings.ReplaceAll(v, ",", "")
	}
	if v == "" {
		return 0, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid number %q", col.name, v)
	}
	return f, nil
}

func (r row) flag(col column) bool {
	switch strings.ToLower(r.str(col)) {
	case "1", "true", "yes", "y", "t":
		return true
	}
	return false
}

func (r row) date(col column) (time.Time, error) {
	v, err := r.required(col)
	if err != nil {
		return time.Time{}, err
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			return domain.DateOf(t), nil
		}
	}
	return time.Time{}, fmt.Errorf("%s: unrecognised date %q", col.name, v)
}
