package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

// ErrEmptyTable is returned when the input has no header row.
var ErrEmptyTable = errors.New("table has no header row")

// Cell is one raw input value. Null marks an empty cell or an NA marker.
type Cell struct {
	Value string
	Null  bool
}

// RawTable is the input as read, one Cell per header column per row.
type RawTable struct {
	Header []string
	Rows   [][]Cell
}

// Column returns the index of a header, or -1.
func (t *RawTable) Column(name string) int {
	for i, h := range t.Header {
		if h == name {
			return i
		}
	}
	return -1
}

var naValues = map[string]bool{
	"":     true,
	"NA":   true,
	"N/A":  true,
	"NaN":  true,
	"nan":  true,
	"null": true,
	"NULL": true,
}

// NewCell classifies v as null when it is empty or an NA marker.
// Whitespace-only values are kept as text.
func NewCell(v string) Cell {
	return Cell{Value: v, Null: naValues[v]}
}

// FromRows builds a table from string rows, the first being the header.
// Short rows are padded with nulls and extra cells are ignored.
func FromRows(rows [][]string) (*RawTable, error) {
	if len(rows) == 0 || len(rows[0]) == 0 {
		return nil, ErrEmptyTable
	}

	header := make([]string, len(rows[0]))
	copy(header, rows[0])
	t := &RawTable{Header: header, Rows: make([][]Cell, 0, len(rows)-1)}
	for _, row := range rows[1:] {
		if isBlank(row) {
			continue
		}
		cells := make([]Cell, len(header))
		for i := range cells {
			if i < len(row) {
				cells[i] = NewCell(row[i])
			} else {
				cells[i] = Cell{Null: true}
			}
		}
		t.Rows = append(t.Rows, cells)
	}
	return t, nil
}

func isBlank(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// Load reads path as a spreadsheet (.xlsx, .xlsm) or CSV by extension.
// sheet selects the worksheet; empty means the first one.
func Load(path, sheet string) (*RawTable, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm", ".xltx":
		return LoadExcel(path, sheet)
	case ".csv":
		return LoadCSV(path)
	default:
		return nil, fmt.Errorf("unsupported input %q: want .xlsx or .csv", path)
	}
}

// LoadExcel reads one worksheet of a spreadsheet file.
func LoadExcel(path, sheet string) (*RawTable, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()
	return readWorkbook(f, sheet)
}

// ReadExcel reads one worksheet of a spreadsheet stream.
func ReadExcel(r io.Reader, sheet string) (*RawTable, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()
	return readWorkbook(f, sheet)
}

func readWorkbook(f *excelize.File, sheet string) (*RawTable, error) {
	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, ErrEmptyTable
		}
		sheet = sheets[0]
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheet, err)
	}
	return FromRows(rows)
}

// LoadCSV reads a comma-separated file with a header row.
func LoadCSV(path string) (*RawTable, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return ReadCSV(file)
}

// ReadCSV reads comma-separated data with a header row.
func ReadCSV(r io.Reader) (*RawTable, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read csv: %w", err)
	}
	return FromRows(rows)
}
