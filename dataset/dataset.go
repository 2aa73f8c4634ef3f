// Package dataset loads the supermarket orders table and cleans it into
// typed columns with a missing-value report.
package dataset

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Kind is the coerced type of a column.
type Kind string

const (
	KindText    Kind = "text"
	KindDate    Kind = "date"
	KindNumeric Kind = "numeric"
)

// Value is one typed cell. Text keeps the value as read.
type Value struct {
	Null   bool
	Text   string
	Number float64
	Date   time.Time
}

// Column is a named, typed column of the cleaned dataset.
type Column struct {
	Name  string
	Kind  Kind
	Cells []Value
}

// missing counts nulls, and for text columns empty or whitespace values.
func (c *Column) missing() int {
	var n int
	for _, v := range c.Cells {
		if v.Null || (c.Kind == KindText && strings.TrimSpace(v.Text) == "") {
			n++
		}
	}
	return n
}

// Distinct counts distinct values, null counting as one value.
func (c *Column) Distinct() int {
	seen := make(map[string]bool)
	for _, v := range c.Cells {
		key := "v:" + v.Text
		if v.Null {
			key = "null"
		}
		seen[key] = true
	}
	return len(seen)
}

// DroppedColumn records a pruned column. Constant holds the single value of
// a single-valued column.
type DroppedColumn struct {
	Name     string `json:"name"`
	Reason   string `json:"reason"`
	Constant Value  `json:"-"`
}

// MissingCount is the number of missing values in one column.
type MissingCount struct {
	Column string `json:"column"`
	Count  int    `json:"count"`
}

// MissingReport lists missing counts in column order.
type MissingReport []MissingCount

// Get returns the missing count of column name.
func (r MissingReport) Get(name string) (int, bool) {
	for _, m := range r {
		if m.Column == name {
			return m.Count, true
		}
	}
	return 0, false
}

// Total sums the missing counts.
func (r MissingReport) Total() int {
	var n int
	for _, m := range r {
		n += m.Count
	}
	return n
}

// Dataset is the cleaned table. It is immutable once built.
type Dataset struct {
	columns []Column
	index   map[string]int
	dropped []DroppedColumn
	rows    int
}

// Len returns the number of rows.
func (d *Dataset) Len() int {
	return d.rows
}

// Columns returns the retained column names in input order.
func (d *Dataset) Columns() []string {
	out := make([]string, len(d.columns))
	for i, c := range d.columns {
		out[i] = c.Name
	}
	return out
}

// Column returns the retained column name.
func (d *Dataset) Column(name string) (*Column, bool) {
	i, ok := d.index[name]
	if !ok {
		return nil, false
	}
	return &d.columns[i], true
}

// RequireColumns returns an ErrMissingColumn error naming the first absent
// column.
func (d *Dataset) RequireColumns(names ...string) error {
	for _, n := range names {
		if _, ok := d.index[n]; !ok {
			return fmt.Errorf("%w: %s", ErrMissingColumn, n)
		}
	}
	return nil
}

// DroppedColumns lists what was pruned and why.
func (d *Dataset) DroppedColumns() []DroppedColumn {
	out := make([]DroppedColumn, len(d.dropped))
	copy(out, d.dropped)
	return out
}

// Order is one cleaned order line.
type Order struct {
	OrderID      string    `json:"order_id"`
	OrderDate    time.Time `json:"order_date"`
	ShipDate     time.Time `json:"ship_date"`
	ShipMode     string    `json:"ship_mode"`
	CustomerID   string    `json:"customer_id"`
	CustomerName string    `json:"customer_name"`
	Segment      string    `json:"segment"`
	Country      string    `json:"country"`
	City         string    `json:"city"`
	State        string    `json:"state"`
	PostalCode   string    `json:"postal_code"`
	Region       string    `json:"region"`
	ProductID    string    `json:"product_id"`
	Category     string    `json:"category"`
	SubCategory  string    `json:"sub_category"`
	ProductName  string    `json:"product_name"`
	Sales        float64   `json:"sales"`
	Quantity     float64   `json:"quantity"`
	Discount     float64   `json:"discount"`
	Profit       float64   `json:"profit"`
}

// Orders projects the rows onto Order. Single-valued columns that were
// dropped contribute their constant; absent columns leave zero values.
func (d *Dataset) Orders() []Order {
	out := make([]Order, d.rows)
	text := func(name string, set func(o *Order, v string)) {
		if c, ok := d.Column(name); ok {
			for i, v := range c.Cells {
				if !v.Null {
					set(&out[i], v.Text)
				}
			}
			return
		}
		for _, dc := range d.dropped {
			if dc.Name == name && !dc.Constant.Null && dc.Constant.Text != "" {
				for i := range out {
					set(&out[i], dc.Constant.Text)
				}
			}
		}
	}
	number := func(name string, set func(o *Order, v float64)) {
		if c, ok := d.Column(name); ok && c.Kind == KindNumeric {
			for i, v := range c.Cells {
				if !v.Null {
					set(&out[i], v.Number)
				}
			}
		}
	}
	date := func(name string, set func(o *Order, v time.Time)) {
		if c, ok := d.Column(name); ok && c.Kind == KindDate {
			for i, v := range c.Cells {
				if !v.Null {
					set(&out[i], v.Date)
				}
			}
		}
	}

	text("Order_ID", func(o *Order, v string) { o.OrderID = v })
	date("Order_Date", func(o *Order, v time.Time) { o.OrderDate = v })
	date("Ship_Date", func(o *Order, v time.Time) { o.ShipDate = v })
	text("Ship_Mode", func(o *Order, v string) { o.ShipMode = v })
	text("Customer_ID", func(o *Order, v string) { o.CustomerID = v })
	text("Customer_Name", func(o *Order, v string) { o.CustomerName = v })
	text("Segment", func(o *Order, v string) { o.Segment = v })
	text("Country", func(o *Order, v string) { o.Country = v })
	text("City", func(o *Order, v string) { o.City = v })
	text("State", func(o *Order, v string) { o.State = v })
	text("Postal_Code", func(o *Order, v string) { o.PostalCode = v })
	text("Region", func(o *Order, v string) { o.Region = v })
	text("Product_ID", func(o *Order, v string) { o.ProductID = v })
	text("Category", func(o *Order, v string) { o.Category = v })
	text("Sub_Category", func(o *Order, v string) { o.SubCategory = v })
	text("Product_Name", func(o *Order, v string) { o.ProductName = v })
	number("Sales", func(o *Order, v float64) { o.Sales = v })
	number("Quantity", func(o *Order, v float64) { o.Quantity = v })
	number("Discount", func(o *Order, v float64) { o.Discount = v })
	number("Profit", func(o *Order, v float64) { o.Profit = v })
	return out
}

// Summary is the JSON view of a cleaned dataset.
type Summary struct {
	Rows    int             `json:"rows"`
	Columns []ColumnSummary `json:"columns"`
	Dropped []DroppedColumn `json:"dropped"`
}

// ColumnSummary describes one retained column.
type ColumnSummary struct {
	Name     string `json:"name"`
	Kind     Kind   `json:"kind"`
	Distinct int    `json:"distinct"`
}

// Summary describes the retained and dropped columns.
func (d *Dataset) Summary() Summary {
	s := Summary{Rows: d.rows, Dropped: d.DroppedColumns()}
	for i := range d.columns {
		c := &d.columns[i]
		s.Columns = append(s.Columns, ColumnSummary{Name: c.Name, Kind: c.Kind, Distinct: c.Distinct()})
	}
	return s
}

// MarshalJSON encodes the dataset as its summary.
func (d *Dataset) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.Summary())
}
