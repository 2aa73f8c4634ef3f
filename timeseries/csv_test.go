package timeseries

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteCSV(t *testing.T) {
	s := NewMonthly(Period{Year: 2014, Month: 1}, []float64{3, 0, 4.5})
	s.Name = "Binders"
	s.Metric = "orders"

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, s))

	want := "ds,name,metric,y\n" +
		"2014-01-01,Binders,orders,3\n" +
		"2014-02-01,Binders,orders,0\n" +
		"2014-03-01,Binders,orders,4.5\n"
	assert.Equal(t, want, buf.String())
}

func TestReadCSV(t *testing.T) {
	data := `ds,name,metric,y
2016-11-01,store-total,sales,100.25
2016-12-01,store-total,sales,101
2017-01-01,store-total,sales,99`

	s, err := ReadCSV(strings.NewReader(data))
	require.NoError(t, err)

	assert.Equal(t, "store-total", s.Name)
	assert.Equal(t, "sales", s.Metric)
	assert.Equal(t, []float64{100.25, 101, 99}, s.Values)
	assert.Equal(t, Period{Year: 2016, Month: 11}, s.Start())
	assert.Equal(t, Period{Year: 2017, Month: 1}, s.End())
}

func TestReadCSVErrors(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"missing y column", "ds,value\n2014-01-01,1\n"},
		{"bad date", "ds,y\n01/2014,1\n"},
		{"bad value", "ds,y\n2014-01-01,abc\n"},
		{"no rows", "ds,y\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadCSV(strings.NewReader(tt.data))
			assert.Error(t, err)
		})
	}
}

func TestSaveLoadCSV(t *testing.T) {
	s := New([]float64{1, 2, 3, 4})
	s.Name = "Paper"
	s.Metric = "orders"

	path := filepath.Join(t.TempDir(), "paper.csv")
	require.NoError(t, SaveCSV(s, path))

	loaded, err := LoadCSV(path)
	require.NoError(t, err)
	assert.Equal(t, s.Values, loaded.Values)
	assert.Equal(t, s.Timestamps, loaded.Timestamps)
	assert.Equal(t, s.Key(), loaded.Key())
}
