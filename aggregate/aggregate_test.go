package aggregate

import (
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sartorproj/salesforecast/dataset"
	"github.com/sartorproj/salesforecast/timeseries"
)

const orders = `Row ID,Order Date,Sub-Category,Sales,Quantity,Profit
1,1/3/2014,Paper,10,2,3
2,1/20/2014,Binders,20,1,-5
3,2/2/2014,Paper,30,4,6
4,2/9/2014,Paper,5,1,1
5,3/15/2014,Chairs,100,2,20
6,3/16/2014,Binders,8,3,2
`

func load(t *testing.T, data string) *dataset.Dataset {
	t.Helper()
	raw, err := dataset.ReadCSV(strings.NewReader(data))
	require.NoError(t, err)
	ds, _, err := dataset.NewCleaner(dataset.DefaultSchema(), zerolog.Nop()).Clean(raw)
	require.NoError(t, err)
	return ds
}

func period(t *testing.T, s string) timeseries.Period {
	t.Helper()
	p, err := timeseries.ParsePeriod(s)
	require.NoError(t, err)
	return p
}

func TestBySubcategoryMonth(t *testing.T) {
	counts, err := BySubcategoryMonth(load(t, orders))
	require.NoError(t, err)

	assert.Equal(t, []string{"Paper", "Binders", "Chairs"}, counts.Order)
	assert.InDelta(t, 1, counts.Counts["Paper"][period(t, "2014-01")], 0)
	assert.InDelta(t, 2, counts.Counts["Paper"][period(t, "2014-02")], 0)
	assert.InDelta(t, 3, counts.Total("Paper"), 0)
	assert.InDelta(t, 2, counts.Total("Binders"), 0)
	assert.Zero(t, counts.Total("Tables"))
}

func TestBySubcategoryMonthMissingColumn(t *testing.T) {
	ds := load(t, "Order Date,Sales\n1/3/2014,1\n2/3/2014,2\n")
	_, err := BySubcategoryMonth(ds)
	assert.ErrorIs(t, err, dataset.ErrMissingColumn)

	_, err = StoreMonth(ds)
	assert.ErrorIs(t, err, dataset.ErrMissingColumn)
}

func TestStoreMonth(t *testing.T) {
	totals, err := StoreMonth(load(t, orders))
	require.NoError(t, err)
	require.Len(t, totals, 3)

	jan := totals[period(t, "2014-01")]
	assert.InDelta(t, 30, jan.Sales, 1e-12)
	assert.InDelta(t, -2, jan.Profit, 1e-12)
	assert.InDelta(t, 3, jan.Quantity, 1e-12)
	assert.Equal(t, 2, jan.Orders)

	mar := totals[period(t, "2014-03")]
	assert.InDelta(t, 108, mar.Sales, 1e-12)
}

func TestTopN(t *testing.T) {
	counts := &SubcategoryCounts{
		Counts: map[string]map[timeseries.Period]float64{
			"a": {{Year: 2014, Month: 1}: 2},
			"b": {{Year: 2014, Month: 1}: 5},
			"c": {{Year: 2014, Month: 1}: 2},
			"d": {{Year: 2014, Month: 2}: 1},
		},
		Order: []string{"a", "b", "c", "d"},
	}

	top := TopN(counts, 3)
	require.Len(t, top, 3)
	assert.Equal(t, Ranked{SubCategory: "b", Total: 5}, top[0])
	// ties keep first-seen order
	assert.Equal(t, "a", top[1].SubCategory)
	assert.Equal(t, "c", top[2].SubCategory)

	assert.Len(t, TopN(counts, 0), 4)
	assert.Len(t, TopN(counts, 10), 4)
}

func TestWindowRanking(t *testing.T) {
	counts := &SubcategoryCounts{
		Counts: map[string]map[timeseries.Period]float64{
			"a": {{Year: 2013, Month: 12}: 50, {Year: 2014, Month: 1}: 1},
			"b": {{Year: 2014, Month: 2}: 3},
			"c": {{Year: 2019, Month: 1}: 9},
		},
		Order: []string{"a", "b", "c"},
	}

	window := counts.Window(period(t, "2014-01"), period(t, "2017-12"))
	assert.Equal(t, []string{"a", "b"}, window.Order)
	assert.InDelta(t, 1, window.Total("a"), 0)
	assert.NotContains(t, window.Counts, "c")

	top := TopN(window, 2)
	require.Len(t, top, 2)
	assert.Equal(t, Ranked{SubCategory: "b", Total: 3}, top[0])
	assert.Equal(t, Ranked{SubCategory: "a", Total: 1}, top[1])

	// the source counts are untouched
	assert.InDelta(t, 51, counts.Total("a"), 0)
}

func TestSubcategorySeries(t *testing.T) {
	counts, err := BySubcategoryMonth(load(t, orders))
	require.NoError(t, err)

	series, err := SubcategorySeries(counts, []string{"Paper", "Chairs"}, period(t, "2013-12"), period(t, "2014-04"))
	require.NoError(t, err)
	require.Len(t, series, 2)
	assert.Equal(t, []float64{0, 1, 2, 0, 0}, series[0].Values)
	assert.Equal(t, "Paper", series[0].Name)
	assert.Equal(t, "orders", series[0].Metric)
	assert.Equal(t, []float64{0, 0, 0, 1, 0}, series[1].Values)

	_, err = SubcategorySeries(counts, []string{"Paper"}, period(t, "2014-04"), period(t, "2014-01"))
	assert.ErrorIs(t, err, timeseries.ErrEmptyRange)
}

func TestStoreSeries(t *testing.T) {
	totals, err := StoreMonth(load(t, orders))
	require.NoError(t, err)

	series, err := StoreSeries(totals, period(t, "2014-01"), period(t, "2014-03"))
	require.NoError(t, err)
	require.Len(t, series, len(StoreMetrics))
	for _, metric := range StoreMetrics {
		s := series[metric]
		require.NotNil(t, s, metric)
		assert.Equal(t, StoreTotalName, s.Name)
		assert.Equal(t, metric, s.Metric)
	}
	assert.Equal(t, []float64{30, 35, 108}, series["sales"].Values)
	assert.Equal(t, []float64{2, 2, 2}, series["orders"].Values)
}
