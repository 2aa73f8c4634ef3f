package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats"

	"github.com/sartorproj/salesforecast/config"
	"github.com/sartorproj/salesforecast/dataset"
	"github.com/sartorproj/salesforecast/forecast"
	"github.com/sartorproj/salesforecast/timeseries"
)

var (
	subcategories = []string{"Paper", "Binders", "Chairs", "Tables"}
	seasonal      = []int{-4, -3, 0, 1, 2, 3, 2, 1, 0, -1, 4, 6}
)

// ordersTable generates order lines for months of history starting at
// 2014-01: each sub-category has its own level, growth and share of a
// common seasonal pattern.
func ordersTable(t *testing.T, months int) *dataset.RawTable {
	t.Helper()
	rows := [][]string{{"Row ID", "Order Date", "Sub-Category", "Sales", "Quantity", "Profit"}}
	id := 1
	for m := 0; m < months; m++ {
		date := timeseries.CanonicalStart.Add(m)
		for i, sub := range subcategories {
			level := 40 - 10*i
			count := level + m*(4-i)/8 + seasonal[m%12]*(i+1)/2
			for j := 0; j < count; j++ {
				day := 1 + (j*7+i)%28
				rows = append(rows, []string{
					fmt.Sprint(id),
					fmt.Sprintf("%d/%d/%d", int(date.Month), day, date.Year),
					sub,
					fmt.Sprintf("%.2f", 10+float64((j*13+i*7)%90)),
					fmt.Sprint(1 + (j+i)%5),
					fmt.Sprintf("%.2f", float64((j*11)%40)-8),
				})
				id++
			}
		}
	}
	raw, err := dataset.FromRows(rows)
	require.NoError(t, err)
	return raw
}

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Workers = 4
	cfg.FitTimeout = time.Minute
	return cfg
}

type progressLog struct {
	mu   sync.Mutex
	last map[string][2]int
}

func (p *progressLog) record(stage string, done, total int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.last == nil {
		p.last = make(map[string][2]int)
	}
	if done > p.last[stage][0] {
		p.last[stage] = [2]int{done, total}
	}
}

func TestRun(t *testing.T) {
	runner := NewRunner(testConfig(), forecast.DefaultPolicy(), zerolog.Nop())
	var progress progressLog
	runner.OnProgress(progress.record)

	rep, err := runner.Run(context.Background(), ordersTable(t, 48))
	require.NoError(t, err)

	_, err = uuid.Parse(rep.RunID)
	assert.NoError(t, err)

	assert.Len(t, rep.TopSubcategories, 4)
	assert.Equal(t, []string{"Paper", "Binders", "Chairs"}, rep.Evaluated)
	require.NotEmpty(t, rep.Dataset.Dropped)
	assert.Equal(t, "Row_ID", rep.Dataset.Dropped[0].Name)
	assert.Zero(t, rep.Missing.Total())

	// three sub-categories plus the four store-total metrics
	require.Len(t, rep.Series, 7)
	for _, s := range rep.Series {
		assert.Equal(t, 48, s.Len(), s.Key())
	}
	assert.Len(t, rep.Stationarity, 7)
	assert.NotNil(t, rep.StationarityOf("store-total/sales"))

	require.Len(t, rep.Evaluations, 3)
	for _, name := range rep.Evaluated {
		evals := rep.Evaluations[name]
		require.Len(t, evals, len(forecast.Methods), name)
		arima := evals[forecast.ARIMA]
		require.True(t, arima.Computed(), "%s: %s", name, arima.Reason)
		assert.Len(t, arima.Forecast.Values, 15)

		method, ok := rep.Chosen[name]
		require.True(t, ok, name)
		require.Contains(t, rep.SeriesForecasts, name)
		assert.Equal(t, method, rep.SeriesForecasts[name].Method)
		assert.Len(t, rep.SeriesForecasts[name].Values, 12)
	}

	assert.Len(t, rep.Features, 3)
	require.NotNil(t, rep.Clusters)
	assert.Equal(t, 3, rep.Clusters.K)
	assert.Empty(t, rep.ClusterError)
	require.Len(t, rep.ClusterForecasts, 3)
	for _, fc := range rep.ClusterForecasts {
		// three clusterable series make three singletons
		assert.Len(t, fc.Members, 1)
		assert.Equal(t, 12, fc.Horizon)
		assert.Equal(t, timeseries.Period{Year: 2018, Month: time.January}, fc.Start)
		assert.Len(t, fc.Mean, 12)
	}
	assert.Len(t, rep.Summaries, 3)
	assert.Len(t, rep.ClusterMethods, 3)

	assert.Equal(t, [2]int{3, 3}, progress.last[StageEvaluate])
	assert.Equal(t, [2]int{7, 7}, progress.last[StageStationarity])
	assert.Equal(t, [2]int{3, 3}, progress.last[StageForecast])

	data, err := json.Marshal(rep)
	require.NoError(t, err)
	assert.Contains(t, string(data), rep.RunID)
}

func TestRunResidualDiagnostics(t *testing.T) {
	runner := NewRunner(testConfig(), forecast.DefaultPolicy(), zerolog.Nop())
	rep, err := runner.Run(context.Background(), ordersTable(t, 48))
	require.NoError(t, err)

	for _, name := range rep.Evaluated {
		arima := rep.Evaluations[name][forecast.ARIMA]
		require.True(t, arima.Computed(), name)
		require.NotNil(t, arima.Diagnostics, name)
		assert.Positive(t, arima.Diagnostics.Lags)
		assert.InDelta(t, 0.5, arima.Diagnostics.PValue, 0.5)
	}

	data, err := json.Marshal(rep)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"ljung_box":{"statistic":`)
}

func TestRunSeriesForecastsWorkers(t *testing.T) {
	forecasts := make(map[int]map[string]*forecast.Forecast)
	for _, workers := range []int{1, 4} {
		cfg := testConfig()
		cfg.Workers = workers
		rep, err := NewRunner(cfg, forecast.DefaultPolicy(), zerolog.Nop()).Run(context.Background(), ordersTable(t, 48))
		require.NoError(t, err)

		require.Len(t, rep.SeriesForecasts, len(rep.Evaluated), "workers=%d", workers)
		assert.Empty(t, rep.ForecastErrors)
		forecasts[workers] = rep.SeriesForecasts
	}

	for name, serial := range forecasts[1] {
		parallel := forecasts[4][name]
		require.NotNil(t, parallel, name)
		assert.Equal(t, serial.Method, parallel.Method, name)
		assert.InDeltaSlice(t, serial.Values, parallel.Values, 1e-9, name)
	}
}

func TestRunRanksWithinWindow(t *testing.T) {
	cfg := testConfig()
	cfg.WindowStart = timeseries.Period{Year: 2015, Month: time.January}

	rep, err := NewRunner(cfg, forecast.DefaultPolicy(), zerolog.Nop()).Run(context.Background(), ordersTable(t, 48))
	require.NoError(t, err)

	totals := make(map[string]float64)
	for _, s := range rep.Series {
		assert.Equal(t, 36, s.Len(), s.Key())
		if s.Metric == "orders" && s.Name != "store-total" {
			totals[s.Name] = floats.Sum(s.Values)
		}
	}
	require.Len(t, totals, 3)
	for _, ranked := range rep.TopSubcategories {
		if want, ok := totals[ranked.SubCategory]; ok {
			assert.InDelta(t, want, ranked.Total, 1e-9, ranked.SubCategory)
		}
	}
}

func TestRunShortWindow(t *testing.T) {
	cfg := testConfig()
	cfg.WindowEnd = timeseries.Period{Year: 2015, Month: time.June}

	rep, err := NewRunner(cfg, forecast.DefaultPolicy(), zerolog.Nop()).Run(context.Background(), ordersTable(t, 48))
	require.NoError(t, err)

	for _, name := range rep.Evaluated {
		evals := rep.Evaluations[name]
		assert.Equal(t, forecast.StatusUnavailable, evals[forecast.HoltWinters].Status, name)
		assert.Equal(t, forecast.StatusUnavailable, evals[forecast.ETS].Status, name)
		assert.Equal(t, forecast.ARIMA, rep.Chosen[name])
	}

	// 18 months cannot be decomposed, so nothing is clusterable
	assert.Len(t, rep.FeatureErrors, 3)
	assert.Nil(t, rep.Clusters)
	assert.NotEmpty(t, rep.ClusterError)
	assert.Len(t, rep.SeriesForecasts, 3)
}

func TestRunUnifyDifferencing(t *testing.T) {
	cfg := testConfig()
	cfg.UnifyDifferencing = true
	cfg.TopEvaluate = 1

	rep, err := NewRunner(cfg, forecast.DefaultPolicy(), zerolog.Nop()).Run(context.Background(), ordersTable(t, 48))
	require.NoError(t, err)

	res := rep.StationarityOf("Paper/orders")
	require.NotNil(t, res)
	arima := rep.Evaluations["Paper"][forecast.ARIMA]
	require.True(t, arima.Computed(), arima.Reason)
	assert.InDelta(t, float64(res.D()), arima.Params["d"], 0)

	// one series cannot be clustered
	assert.NotEmpty(t, rep.ClusterError)
}

func TestRunOverrides(t *testing.T) {
	cfg := testConfig()
	cfg.TopEvaluate = 2
	policy := forecast.DefaultPolicy()
	policy.Overrides = map[string]forecast.Method{"Paper": forecast.HoltWinters}
	policy.ClusterOverrides = map[int]forecast.Method{1: forecast.ETS, 2: forecast.ETS}

	rep, err := NewRunner(cfg, policy, zerolog.Nop()).Run(context.Background(), ordersTable(t, 48))
	require.NoError(t, err)

	if rep.Evaluations["Paper"][forecast.HoltWinters].Computed() {
		assert.Equal(t, forecast.HoltWinters, rep.Chosen["Paper"])
	}
	require.NotNil(t, rep.Clusters)
	for _, m := range rep.ClusterMethods {
		assert.Equal(t, forecast.ETS, m)
	}
}

func TestRunErrors(t *testing.T) {
	runner := NewRunner(testConfig(), forecast.DefaultPolicy(), zerolog.Nop())

	raw, err := dataset.FromRows([][]string{
		{"Order Date", "Sales", "Quantity", "Profit"},
		{"1/3/2014", "1", "1", "1"},
		{"2/3/2014", "2", "2", "2"},
	})
	require.NoError(t, err)
	_, err = runner.Run(context.Background(), raw)
	assert.ErrorIs(t, err, dataset.ErrMissingColumn)

	raw, err = dataset.FromRows([][]string{
		{"Order Date", "Sub-Category"},
		{"1/3/2014", "Paper"},
		{"someday", "Chairs"},
	})
	require.NoError(t, err)
	_, err = runner.Run(context.Background(), raw)
	assert.ErrorIs(t, err, dataset.ErrDateParse)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = runner.Run(ctx, ordersTable(t, 24))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRunLoadsOverrides(t *testing.T) {
	cfg := testConfig()
	cfg.OverridesPath = t.TempDir() + "/missing.toml"
	_, err := Run(context.Background(), cfg, ordersTable(t, 24), zerolog.Nop())
	assert.Error(t, err)
}
