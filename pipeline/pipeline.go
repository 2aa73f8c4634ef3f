package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/sartorproj/salesforecast/aggregate"
	"github.com/sartorproj/salesforecast/cluster"
	"github.com/sartorproj/salesforecast/config"
	"github.com/sartorproj/salesforecast/dataset"
	"github.com/sartorproj/salesforecast/forecast"
	"github.com/sartorproj/salesforecast/logger"
	"github.com/sartorproj/salesforecast/selection"
	"github.com/sartorproj/salesforecast/stats"
	"github.com/sartorproj/salesforecast/timeseries"
)

// Stage names reported to the progress hook.
const (
	StageClean        = "clean"
	StageAggregate    = "aggregate"
	StageStationarity = "stationarity"
	StageEvaluate     = "evaluate"
	StageCluster      = "cluster"
	StageForecast     = "forecast"
)

// ProgressFunc is called as units of work finish within a stage. It may be
// called from several goroutines at once.
type ProgressFunc func(stage string, done, total int)

// Runner executes pipeline runs with one configuration and policy.
type Runner struct {
	cfg      *config.Config
	policy   forecast.Policy
	log      zerolog.Logger
	progress ProgressFunc
	engine   forecast.Config
}

// NewRunner creates a runner. cfg must have passed Validate.
func NewRunner(cfg *config.Config, policy forecast.Policy, log zerolog.Logger) *Runner {
	engine := forecast.DefaultConfig()
	engine.Workers = cfg.Workers
	engine.FitTimeout = cfg.FitTimeout
	return &Runner{
		cfg:    cfg,
		policy: policy,
		log:    log,
		engine: engine,
	}
}

// OnProgress installs a progress hook.
func (r *Runner) OnProgress(fn ProgressFunc) {
	r.progress = fn
}

func (r *Runner) report(stage string, done, total int) {
	if r.progress != nil {
		r.progress(stage, done, total)
	}
}

// Run loads the override table named by cfg and runs the pipeline over raw.
func Run(ctx context.Context, cfg *config.Config, raw *dataset.RawTable, log zerolog.Logger) (*Report, error) {
	policy, err := config.LoadOverrides(cfg.OverridesPath)
	if err != nil {
		return nil, err
	}
	return NewRunner(cfg, policy, log).Run(ctx, raw)
}

// Run executes every stage over raw. Only structural problems with the input
// (parse errors, missing columns, an empty window) and cancellation abort the
// run; per-series and per-method failures are recorded in the report.
func (r *Runner) Run(ctx context.Context, raw *dataset.RawTable) (*Report, error) {
	started := time.Now()
	rep := &Report{
		RunID:       uuid.NewString(),
		GeneratedAt: started.UTC(),
		Window:      Window{Start: r.cfg.WindowStart, End: r.cfg.WindowEnd},
	}
	runLog := logger.WithRun(r.log, rep.RunID)
	log := runLog.With().Str("component", "pipeline").Logger()
	log.Info().Str("start", rep.Window.Start.String()).Str("end", rep.Window.End.String()).Msg("Pipeline started")

	ds, err := r.clean(raw, rep, runLog)
	if err != nil {
		return nil, err
	}

	subSeries, storeSeries, err := r.buildSeries(ds, rep)
	if err != nil {
		return nil, err
	}
	log.Info().
		Int("subcategories", len(subSeries)).
		Strs("evaluated", rep.Evaluated).
		Msg("Series built")

	stationarity := r.testStationarity(append(append([]*timeseries.Series{}, subSeries...), storeSeries...), rep, runLog)

	engine := forecast.NewEngine(r.engine, runLog)
	opts := r.fitOptions(stationarity)
	if err := r.evaluate(ctx, engine, subSeries, opts, rep); err != nil {
		return nil, err
	}
	r.forecastSeries(ctx, engine, subSeries, opts, rep, log)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.clusterAndForecast(ctx, engine, subSeries, opts, rep, runLog)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	rep.Elapsed = time.Since(started)
	log.Info().
		Dur("elapsed", rep.Elapsed).
		Int("cached_models", engine.CachedModels()).
		Msg("Pipeline finished")
	return rep, nil
}

func (r *Runner) clean(raw *dataset.RawTable, rep *Report, log zerolog.Logger) (*dataset.Dataset, error) {
	schema := dataset.DefaultSchema()
	schema.DayFirst = r.cfg.DayFirst
	ds, missing, err := dataset.NewCleaner(schema, log).Clean(raw)
	if err != nil {
		return nil, fmt.Errorf("clean: %w", err)
	}
	rep.Dataset = ds.Summary()
	rep.Missing = missing
	r.report(StageClean, 1, 1)
	log.Info().
		Int("rows", ds.Len()).
		Int("dropped_columns", len(rep.Dataset.Dropped)).
		Int("missing", missing.Total()).
		Msg("Dataset cleaned")
	return ds, nil
}

// buildSeries returns the order-count series of the top sub-categories and
// the store-total series, both over the configured window.
func (r *Runner) buildSeries(ds *dataset.Dataset, rep *Report) ([]*timeseries.Series, []*timeseries.Series, error) {
	counts, err := aggregate.BySubcategoryMonth(ds)
	if err != nil {
		return nil, nil, fmt.Errorf("aggregate: %w", err)
	}
	totals, err := aggregate.StoreMonth(ds)
	if err != nil {
		return nil, nil, fmt.Errorf("aggregate: %w", err)
	}

	counts = counts.Window(r.cfg.WindowStart, r.cfg.WindowEnd)
	rep.TopSubcategories = aggregate.TopN(counts, r.cfg.TopExplore)
	for _, ranked := range aggregate.TopN(counts, r.cfg.TopEvaluate) {
		rep.Evaluated = append(rep.Evaluated, ranked.SubCategory)
	}

	subSeries, err := aggregate.SubcategorySeries(counts, rep.Evaluated, r.cfg.WindowStart, r.cfg.WindowEnd)
	if err != nil {
		return nil, nil, fmt.Errorf("series: %w", err)
	}
	byMetric, err := aggregate.StoreSeries(totals, r.cfg.WindowStart, r.cfg.WindowEnd)
	if err != nil {
		return nil, nil, fmt.Errorf("series: %w", err)
	}
	storeSeries := make([]*timeseries.Series, 0, len(aggregate.StoreMetrics))
	for _, metric := range aggregate.StoreMetrics {
		storeSeries = append(storeSeries, byMetric[metric])
	}

	for _, s := range append(append([]*timeseries.Series{}, subSeries...), storeSeries...) {
		rep.Series = append(rep.Series, s)
		rep.MonthlySeries = append(rep.MonthlySeries, viewOf(s))
	}
	r.report(StageAggregate, 1, 1)
	return subSeries, storeSeries, nil
}

// testStationarity returns the results of the sub-category series by name.
func (r *Runner) testStationarity(series []*timeseries.Series, rep *Report, log zerolog.Logger) map[string]*stats.StationarityResult {
	analyzer := stats.NewAnalyzer(r.cfg.Alpha, log)
	byName := make(map[string]*stats.StationarityResult)
	for i, s := range series {
		res, err := analyzer.TestAndDifference(s)
		r.report(StageStationarity, i+1, len(series))
		if err != nil {
			if rep.StationarityErrors == nil {
				rep.StationarityErrors = make(map[string]string)
			}
			rep.StationarityErrors[s.Key()] = err.Error()
			log.Warn().Err(err).Str("series", s.Key()).Msg("Stationarity test skipped")
			continue
		}
		rep.Stationarity = append(rep.Stationarity, res)
		if s.Name != aggregate.StoreTotalName {
			byName[s.Name] = res
		}
	}
	return byName
}

// fitOptions pins ARIMA's differencing to the analyzer's decision when
// UnifyDifferencing is set; otherwise ARIMA chooses d itself.
func (r *Runner) fitOptions(stationarity map[string]*stats.StationarityResult) func(string) []forecast.FitOption {
	return func(name string) []forecast.FitOption {
		if !r.cfg.UnifyDifferencing {
			return nil
		}
		res, ok := stationarity[name]
		if !ok {
			return nil
		}
		return []forecast.FitOption{forecast.WithDifferencing(res.D())}
	}
}

func (r *Runner) evaluate(ctx context.Context, engine *forecast.Engine, series []*timeseries.Series, opts func(string) []forecast.FitOption, rep *Report) error {
	var jobs []forecast.Job
	for _, s := range series {
		split, err := timeseries.Split(s, r.cfg.SplitFraction)
		if err != nil {
			if rep.SplitErrors == nil {
				rep.SplitErrors = make(map[string]string)
			}
			rep.SplitErrors[s.Name] = err.Error()
			continue
		}
		jobs = append(jobs, forecast.Job{Split: split, Options: opts(s.Name)})
	}

	var done atomic.Int64
	results := engine.EvaluateAll(ctx, jobs, func(string) {
		r.report(StageEvaluate, int(done.Add(1)), len(jobs))
	})
	if err := ctx.Err(); err != nil {
		return err
	}

	rep.Evaluations = make(map[string]map[forecast.Method]*forecast.Evaluation, len(jobs))
	rep.Chosen = make(map[string]forecast.Method, len(jobs))
	for _, job := range jobs {
		name := job.Split.Name()
		evals := results[job.Split.Train.Key()]
		rep.Evaluations[name] = evals
		if m, err := r.policy.ChooseBest(name, evals); err == nil {
			rep.Chosen[name] = m
		}
	}
	return nil
}

// forecastSeries projects each evaluated series with its own chosen method.
// At most Workers series are refitted at once.
func (r *Runner) forecastSeries(ctx context.Context, engine *forecast.Engine, series []*timeseries.Series, opts func(string) []forecast.FitOption, rep *Report, log zerolog.Logger) {
	rep.SeriesForecasts = make(map[string]*forecast.Forecast)

	var (
		mu sync.Mutex
		g  errgroup.Group
	)
	g.SetLimit(max(r.cfg.Workers, 1))
	for _, s := range series {
		method, ok := rep.Chosen[s.Name]
		if !ok {
			continue
		}
		g.Go(func() error {
			fc, _, err := engine.Refit(ctx, method, s, r.cfg.Horizon, opts(s.Name)...)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if rep.ForecastErrors == nil {
					rep.ForecastErrors = make(map[string]string)
				}
				rep.ForecastErrors[s.Name] = err.Error()
				log.Warn().Err(err).Str("series", s.Name).Str("method", string(method)).Msg("Series forecast failed")
				return nil
			}
			rep.SeriesForecasts[s.Name] = fc
			return nil
		})
	}
	_ = g.Wait()
}

// clusterAndForecast groups the sub-categories by component strengths and
// forecasts each cluster. Too few clusterable series ends the stage without
// failing the run.
func (r *Runner) clusterAndForecast(ctx context.Context, engine *forecast.Engine, series []*timeseries.Series, opts func(string) []forecast.FitOption, rep *Report, log zerolog.Logger) {
	features, skipped := cluster.ExtractAll(ctx, series, r.cfg.Workers)
	rep.Features = features
	for name, err := range skipped {
		if rep.FeatureErrors == nil {
			rep.FeatureErrors = make(map[string]string)
		}
		rep.FeatureErrors[name] = err.Error()
	}

	k := r.cfg.ClusterK
	if k <= 0 {
		k = cluster.DefaultK(len(features))
	}
	assign, err := cluster.Cluster(features, k)
	if err != nil {
		rep.ClusterError = err.Error()
		if errors.Is(err, cluster.ErrInsufficientSeries) {
			log.Warn().Err(err).Int("clusterable", len(features)).Msg("Clustering skipped")
		} else {
			log.Error().Err(err).Msg("Clustering failed")
		}
		return
	}
	rep.Clusters = assign
	r.report(StageCluster, 1, 1)

	chosen := make(map[string]*forecast.Evaluation, len(rep.Chosen))
	for name, evals := range rep.Evaluations {
		chosen[name] = r.policy.Chosen(name, evals)
	}
	rep.Summaries = selection.Summarize(assign, chosen)

	byName := make(map[string]*timeseries.Series, len(series))
	for _, s := range series {
		byName[s.Name] = s
	}
	selector := selection.NewSelector(engine, r.policy, log)
	selector.MemberOptions = opts

	ids := assign.IDs()
	rep.ClusterMethods = make(map[int]forecast.Method, len(ids))
	for i, id := range ids {
		method := selector.ChooseClusterMethod(id, assign, rep.Evaluations)
		rep.ClusterMethods[id] = method
		fc, err := selector.ForecastCluster(ctx, id, method, r.cfg.Horizon, assign, byName)
		r.report(StageForecast, i+1, len(ids))
		if err != nil {
			log.Warn().Err(err).Int("cluster", id).Msg("Cluster forecast failed")
			continue
		}
		rep.ClusterForecasts = append(rep.ClusterForecasts, fc)
		log.Info().
			Int("cluster", id).
			Str("method", string(method)).
			Strs("members", assign.Members(id)).
			Int("skipped", len(fc.Skipped)).
			Msg("Cluster forecast")
	}
}
