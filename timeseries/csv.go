package timeseries

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"
)

var csvHeader = []string{"ds", "name", "metric", "y"}

// SaveCSV writes a series to filename as "ds,name,metric,y" with ISO dates.
func SaveCSV(series *Series, filename string) error {
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	if err := WriteCSV(file, series); err != nil {
		return fmt.Errorf("write %s: %w", filename, err)
	}
	return nil
}

// WriteCSV writes a series to w in the SaveCSV layout.
func WriteCSV(w io.Writer, series *Series) error {
	if len(series.Timestamps) != len(series.Values) {
		return errors.New("series has mismatched timestamps and values")
	}

	writer := csv.NewWriter(w)
	if err := writer.Write(csvHeader); err != nil {
		return err
	}
	for i, v := range series.Values {
		record := []string{
			series.Timestamps[i].Format("2006-01-02"),
			series.Name,
			series.Metric,
			strconv.FormatFloat(v, 'f', -1, 64),
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// LoadCSV reads a series previously written by SaveCSV.
func LoadCSV(filename string) (*Series, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	return ReadCSV(file)
}

// ReadCSV reads a series in the SaveCSV layout from r.
func ReadCSV(r io.Reader) (*Series, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	idx := map[string]int{}
	for i, h := range header {
		idx[strings.TrimSpace(h)] = i
	}
	dsIdx, okDs := idx["ds"]
	yIdx, okY := idx["y"]
	if !okDs || !okY {
		return nil, errors.New("csv must have ds and y columns")
	}

	var (
		timestamps []time.Time
		values     []float64
		name       string
		metric     string
	)
	for line := 2; ; line++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}

		ts, err := time.Parse("2006-01-02", strings.TrimSpace(record[dsIdx]))
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(record[yIdx]), 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		timestamps = append(timestamps, ts)
		values = append(values, v)

		if i, ok := idx["name"]; ok && name == "" {
			name = record[i]
		}
		if i, ok := idx["metric"]; ok && metric == "" {
			metric = record[i]
		}
	}

	if len(values) == 0 {
		return nil, errors.New("no valid data found in CSV")
	}

	s, err := NewWithTimestamps(timestamps, values)
	if err != nil {
		return nil, err
	}
	s.Name = name
	s.Metric = metric
	return s, nil
}
