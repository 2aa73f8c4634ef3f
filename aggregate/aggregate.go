package aggregate

import (
	"sort"

	"github.com/sartorproj/salesforecast/dataset"
	"github.com/sartorproj/salesforecast/timeseries"
)

// StoreTotalName is the series name of whole-store aggregates.
const StoreTotalName = "store-total"

// SubcategoryCounts maps sub-category and month to the number of order lines.
type SubcategoryCounts struct {
	Counts map[string]map[timeseries.Period]float64
	// Order lists sub-categories in order of first appearance.
	Order []string
}

// Total is the count of sub over all months.
func (c *SubcategoryCounts) Total(sub string) float64 {
	var total float64
	for _, v := range c.Counts[sub] {
		total += v
	}
	return total
}

// Window returns the counts of months in [start, end]. Sub-categories with no
// order line in the window are dropped; Order is otherwise preserved.
func (c *SubcategoryCounts) Window(start, end timeseries.Period) *SubcategoryCounts {
	out := &SubcategoryCounts{Counts: make(map[string]map[timeseries.Period]float64)}
	for _, sub := range c.Order {
		var months map[timeseries.Period]float64
		for p, v := range c.Counts[sub] {
			if p.Before(start) || end.Before(p) {
				continue
			}
			if months == nil {
				months = make(map[timeseries.Period]float64)
			}
			months[p] = v
		}
		if months != nil {
			out.Counts[sub] = months
			out.Order = append(out.Order, sub)
		}
	}
	return out
}

// BySubcategoryMonth counts order lines per (Sub_Category, month of
// Order_Date). Rows with a null sub-category or order date are skipped.
func BySubcategoryMonth(ds *dataset.Dataset) (*SubcategoryCounts, error) {
	if err := ds.RequireColumns("Order_Date", "Sub_Category"); err != nil {
		return nil, err
	}
	dates, _ := ds.Column("Order_Date")
	subs, _ := ds.Column("Sub_Category")

	out := &SubcategoryCounts{Counts: make(map[string]map[timeseries.Period]float64)}
	for i := 0; i < ds.Len(); i++ {
		d, s := dates.Cells[i], subs.Cells[i]
		if d.Null || s.Null {
			continue
		}
		months, ok := out.Counts[s.Text]
		if !ok {
			months = make(map[timeseries.Period]float64)
			out.Counts[s.Text] = months
			out.Order = append(out.Order, s.Text)
		}
		months[timeseries.PeriodOf(d.Date)]++
	}
	return out, nil
}

// StoreTotals are the whole-store sums for one month.
type StoreTotals struct {
	Sales    float64 `json:"sales"`
	Profit   float64 `json:"profit"`
	Quantity float64 `json:"quantity"`
	Orders   int     `json:"orders"`
}

// StoreMonth sums Sales, Profit and Quantity per month of Order_Date. Null
// amounts contribute zero.
func StoreMonth(ds *dataset.Dataset) (map[timeseries.Period]StoreTotals, error) {
	if err := ds.RequireColumns("Order_Date", "Sales", "Profit", "Quantity"); err != nil {
		return nil, err
	}
	dates, _ := ds.Column("Order_Date")
	sales, _ := ds.Column("Sales")
	profit, _ := ds.Column("Profit")
	quantity, _ := ds.Column("Quantity")

	out := make(map[timeseries.Period]StoreTotals)
	for i := 0; i < ds.Len(); i++ {
		if dates.Cells[i].Null {
			continue
		}
		p := timeseries.PeriodOf(dates.Cells[i].Date)
		t := out[p]
		t.Sales += sales.Cells[i].Number
		t.Profit += profit.Cells[i].Number
		t.Quantity += quantity.Cells[i].Number
		t.Orders++
		out[p] = t
	}
	return out, nil
}

// Ranked is a sub-category with its total order count.
type Ranked struct {
	SubCategory string  `json:"sub_category"`
	Total       float64 `json:"total"`
}

// TopN ranks sub-categories by total count over every month in counts, descending, keeping first-seen
// order among ties, and returns the first n. n <= 0 returns all.
func TopN(counts *SubcategoryCounts, n int) []Ranked {
	ranked := make([]Ranked, len(counts.Order))
	for i, sub := range counts.Order {
		ranked[i] = Ranked{SubCategory: sub, Total: counts.Total(sub)}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Total > ranked[j].Total
	})
	if n > 0 && n < len(ranked) {
		ranked = ranked[:n]
	}
	return ranked
}

// SubcategorySeries builds one zero-filled "orders" series per name over
// [start, end].
func SubcategorySeries(counts *SubcategoryCounts, names []string, start, end timeseries.Period) ([]*timeseries.Series, error) {
	out := make([]*timeseries.Series, 0, len(names))
	for _, name := range names {
		s, err := timeseries.Build(counts.Counts[name], start, end, name, "orders")
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

// StoreSeries builds the store-total sales, profit, quantity and orders
// series over [start, end], keyed by metric.
func StoreSeries(totals map[timeseries.Period]StoreTotals, start, end timeseries.Period) (map[string]*timeseries.Series, error) {
	metrics := map[string]func(StoreTotals) float64{
		"sales":    func(t StoreTotals) float64 { return t.Sales },
		"profit":   func(t StoreTotals) float64 { return t.Profit },
		"quantity": func(t StoreTotals) float64 { return t.Quantity },
		"orders":   func(t StoreTotals) float64 { return float64(t.Orders) },
	}

	out := make(map[string]*timeseries.Series, len(metrics))
	for metric, get := range metrics {
		values := make(map[timeseries.Period]float64, len(totals))
		for p, t := range totals {
			values[p] = get(t)
		}
		s, err := timeseries.Build(values, start, end, StoreTotalName, metric)
		if err != nil {
			return nil, err
		}
		out[metric] = s
	}
	return out, nil
}

// StoreMetrics lists the StoreSeries keys in report order.
var StoreMetrics = []string{"sales", "profit", "quantity", "orders"}
