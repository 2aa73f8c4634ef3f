package dataset

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/xuri/excelize/v2"
)

var (
	// ErrDateParse is wrapped by DateParseError.
	ErrDateParse = errors.New("unparseable date")
	// ErrNumericParse is wrapped by NumericParseError.
	ErrNumericParse = errors.New("unparseable number")
	// ErrDuplicateColumn is returned when two headers normalise to the same
	// name.
	ErrDuplicateColumn = errors.New("duplicate column")
	// ErrMissingColumn is returned when a required column is absent.
	ErrMissingColumn = errors.New("missing column")
)

// DateParseError reports the first value of a date column that could not be
// parsed. Row is 1-based over data rows.
type DateParseError struct {
	Column string
	Row    int
	Value  string
}

func (e *DateParseError) Error() string {
	return fmt.Sprintf("column %s row %d: %v %q", e.Column, e.Row, ErrDateParse, e.Value)
}

func (e *DateParseError) Unwrap() error {
	return ErrDateParse
}

// NumericParseError reports the first value of a numeric column that could
// not be parsed.
type NumericParseError struct {
	Column string
	Row    int
	Value  string
}

func (e *NumericParseError) Error() string {
	return fmt.Sprintf("column %s row %d: %v %q", e.Column, e.Row, ErrNumericParse, e.Value)
}

func (e *NumericParseError) Unwrap() error {
	return ErrNumericParse
}

// Schema names the identity, date and numeric columns after normalisation.
type Schema struct {
	Identity string
	Dates    []string
	Numeric  []string
	// DayFirst reads ambiguous slash dates as day/month/year.
	DayFirst bool
}

// DefaultSchema describes the supermarket orders sheet.
func DefaultSchema() Schema {
	return Schema{
		Identity: "Row_ID",
		Dates:    []string{"Order_Date", "Ship_Date"},
		Numeric:  []string{"Sales", "Quantity", "Discount", "Profit"},
	}
}

// NormalizeName trims name and replaces spaces and hyphens with
// underscores. It is idempotent.
func NormalizeName(name string) string {
	name = strings.TrimSpace(name)
	return strings.NewReplacer(" ", "_", "-", "_").Replace(name)
}

// Cleaner prunes and types a RawTable.
type Cleaner struct {
	schema Schema
	log    zerolog.Logger
}

// NewCleaner creates a cleaner for schema.
func NewCleaner(schema Schema, log zerolog.Logger) *Cleaner {
	return &Cleaner{
		schema: schema,
		log:    log.With().Str("component", "cleaner").Logger(),
	}
}

// Clean normalises column names, drops the identity column and every column
// with at most one distinct value (null counting as a value), parses date and
// numeric columns and counts missing values. Any unparseable date or number
// aborts the load. Values are otherwise kept as read: no outlier removal and
// no imputation.
func (c *Cleaner) Clean(raw *RawTable) (*Dataset, MissingReport, error) {
	if raw == nil || len(raw.Header) == 0 {
		return nil, nil, ErrEmptyTable
	}

	names := make([]string, len(raw.Header))
	seen := make(map[string]bool, len(names))
	for i, h := range raw.Header {
		names[i] = NormalizeName(h)
		if seen[names[i]] {
			return nil, nil, fmt.Errorf("%w: %q", ErrDuplicateColumn, names[i])
		}
		seen[names[i]] = true
	}

	kinds := make(map[string]Kind)
	for _, n := range c.schema.Dates {
		kinds[NormalizeName(n)] = KindDate
	}
	for _, n := range c.schema.Numeric {
		kinds[NormalizeName(n)] = KindNumeric
	}
	identity := NormalizeName(c.schema.Identity)

	ds := &Dataset{rows: len(raw.Rows), index: make(map[string]int)}
	var missing MissingReport
	for col, name := range names {
		if identity != "" && name == identity {
			ds.dropped = append(ds.dropped, DroppedColumn{Name: name, Reason: "identity"})
			c.log.Debug().Str("column", name).Msg("Dropped identity column")
			continue
		}
		if constant, ok := singleValued(raw, col); ok {
			ds.dropped = append(ds.dropped, DroppedColumn{Name: name, Reason: "single-valued", Constant: constant})
			c.log.Debug().Str("column", name).Str("value", constant.Text).Msg("Dropped single-valued column")
			continue
		}

		kind := kinds[name]
		if kind == "" {
			kind = KindText
		}
		column, err := c.coerce(raw, col, name, kind)
		if err != nil {
			return nil, nil, err
		}
		ds.index[name] = len(ds.columns)
		ds.columns = append(ds.columns, column)
		missing = append(missing, MissingCount{Column: name, Count: column.missing()})
	}

	c.log.Debug().
		Int("rows", ds.rows).
		Int("columns", len(ds.columns)).
		Int("dropped", len(ds.dropped)).
		Msg("Cleaned dataset")
	return ds, missing, nil
}

// singleValued reports whether column col has at most one distinct value and
// returns it.
func singleValued(raw *RawTable, col int) (Value, bool) {
	if len(raw.Rows) == 0 {
		return Value{Null: true}, true
	}
	first := raw.Rows[0][col]
	for _, row := range raw.Rows[1:] {
		cell := row[col]
		if cell.Null != first.Null || (!cell.Null && cell.Value != first.Value) {
			return Value{}, false
		}
	}
	if first.Null {
		return Value{Null: true}, true
	}
	return Value{Text: first.Value}, true
}

func (c *Cleaner) coerce(raw *RawTable, col int, name string, kind Kind) (Column, error) {
	column := Column{Name: name, Kind: kind, Cells: make([]Value, len(raw.Rows))}
	for r, row := range raw.Rows {
		cell := row[col]
		if cell.Null {
			column.Cells[r] = Value{Null: true}
			continue
		}
		switch kind {
		case KindDate:
			d, err := ParseDate(cell.Value, c.schema.DayFirst)
			if err != nil {
				return Column{}, &DateParseError{Column: name, Row: r + 1, Value: cell.Value}
			}
			column.Cells[r] = Value{Text: cell.Value, Date: d}
		case KindNumeric:
			v, err := parseNumber(cell.Value)
			if err != nil {
				return Column{}, &NumericParseError{Column: name, Row: r + 1, Value: cell.Value}
			}
			column.Cells[r] = Value{Text: cell.Value, Number: v}
		default:
			column.Cells[r] = Value{Text: cell.Value}
		}
	}
	return column, nil
}

var (
	monthFirstLayouts = []string{"1/2/2006", "01/02/2006", "1/2/06", "01-02-06", "1-2-06", "01-02-2006"}
	dayFirstLayouts   = []string{"2/1/2006", "02/01/2006", "2/1/06", "02-01-06", "2-1-06", "02.01.2006"}
	isoLayouts        = []string{"2006-01-02", "2006-01-02 15:04:05", time.RFC3339, "2006/01/02"}
)

// Excel serial day numbers accepted as dates (1900-01-01 to 9999-12-31).
const (
	minExcelSerial = 1
	maxExcelSerial = 2958465
)

// ParseDate parses a spreadsheet date to a UTC calendar date. It accepts ISO
// dates, month-first (or day-first) slash and dash dates with two- or
// four-digit years, and Excel serial day numbers.
func ParseDate(s string, dayFirst bool) (time.Time, error) {
	s = strings.TrimSpace(s)
	layouts := append(append([]string{}, isoLayouts...), monthFirstLayouts...)
	if dayFirst {
		layouts = append(append([]string{}, isoLayouts...), dayFirstLayouts...)
	}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return calendarDate(t), nil
		}
	}

	if serial, err := strconv.ParseFloat(s, 64); err == nil && serial >= minExcelSerial && serial <= maxExcelSerial {
		t, err := excelize.ExcelDateToTime(serial, false)
		if err == nil {
			return calendarDate(t), nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrDateParse, s)
}

func calendarDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func parseNumber(s string) (float64, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "$")
	s = strings.ReplaceAll(s, ",", "")
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("non-finite number %q", s)
	}
	return v, nil
}
