package pipeline

import (
	"time"

	"github.com/sartorproj/salesforecast/aggregate"
	"github.com/sartorproj/salesforecast/cluster"
	"github.com/sartorproj/salesforecast/dataset"
	"github.com/sartorproj/salesforecast/forecast"
	"github.com/sartorproj/salesforecast/selection"
	"github.com/sartorproj/salesforecast/stats"
	"github.com/sartorproj/salesforecast/timeseries"
)

// Report holds every artifact of one run. Stages that could not run leave
// their fields empty and record why in the matching *Errors field.
type Report struct {
	RunID       string    `json:"run_id"`
	GeneratedAt time.Time `json:"generated_at"`
	Window      Window    `json:"window"`

	Dataset dataset.Summary       `json:"dataset"`
	Missing dataset.MissingReport `json:"missing"`

	// TopSubcategories is the exploratory ranking; Evaluated lists the
	// sub-categories that were forecast.
	TopSubcategories []aggregate.Ranked `json:"top_subcategories"`
	Evaluated        []string           `json:"evaluated"`

	Series             []*timeseries.Series        `json:"-"`
	MonthlySeries      []SeriesView                `json:"series"`
	Stationarity       []*stats.StationarityResult `json:"stationarity"`
	StationarityErrors map[string]string           `json:"stationarity_errors,omitempty"`
	SplitErrors        map[string]string           `json:"split_errors,omitempty"`

	// Evaluations are keyed by sub-category name.
	Evaluations     map[string]map[forecast.Method]*forecast.Evaluation `json:"evaluations"`
	Chosen          map[string]forecast.Method                          `json:"chosen"`
	SeriesForecasts map[string]*forecast.Forecast                       `json:"series_forecasts"`
	ForecastErrors  map[string]string                                   `json:"forecast_errors,omitempty"`

	Features      []cluster.Features `json:"features"`
	FeatureErrors map[string]string  `json:"feature_errors,omitempty"`

	Clusters         *cluster.Assignment          `json:"clusters,omitempty"`
	ClusterError     string                       `json:"cluster_error,omitempty"`
	Summaries        map[int]selection.Summary    `json:"summaries,omitempty"`
	ClusterMethods   map[int]forecast.Method      `json:"cluster_methods,omitempty"`
	ClusterForecasts []*selection.ClusterForecast `json:"cluster_forecasts,omitempty"`

	Elapsed time.Duration `json:"elapsed_ns"`
}

// Window is the calendar span of every monthly series.
type Window struct {
	Start timeseries.Period `json:"start"`
	End   timeseries.Period `json:"end"`
}

// SeriesView is the JSON form of a monthly series.
type SeriesView struct {
	Name   string            `json:"name"`
	Metric string            `json:"metric"`
	Start  timeseries.Period `json:"start"`
	Values []float64         `json:"values"`
}

func viewOf(s *timeseries.Series) SeriesView {
	return SeriesView{Name: s.Name, Metric: s.Metric, Start: s.Start(), Values: s.Values}
}

// StationarityOf returns the stationarity result of the series with key.
func (r *Report) StationarityOf(key string) *stats.StationarityResult {
	for _, res := range r.Stationarity {
		if res.Series+"/"+res.Metric == key {
			return res
		}
	}
	return nil
}
