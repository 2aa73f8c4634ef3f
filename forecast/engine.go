package forecast

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/sartorproj/salesforecast/autoarima"
	"github.com/sartorproj/salesforecast/ets"
	"github.com/sartorproj/salesforecast/stats"
	"github.com/sartorproj/salesforecast/timeseries"
)

// Status separates "not computed" from "computed with poor accuracy".
type Status string

const (
	StatusComputed    Status = "computed"
	StatusUnavailable Status = "unavailable"
	StatusFailed      Status = "failed"
)

// Evaluation is the outcome of fitting one method on one train/test split.
type Evaluation struct {
	Series   string             `json:"series"`
	Method   Method             `json:"method"`
	Status   Status             `json:"status"`
	Reason   string             `json:"reason,omitempty"`
	Spec     string             `json:"spec,omitempty"`
	Params   map[string]float64 `json:"params,omitempty"`
	Model    Model              `json:"-"`
	Forecast *Forecast          `json:"forecast,omitempty"`
	Accuracy *Accuracy          `json:"accuracy,omitempty"`

	Diagnostics *stats.LjungBoxResult `json:"ljung_box,omitempty"`
}

// Computed reports whether the evaluation produced a scored forecast.
func (e *Evaluation) Computed() bool {
	return e != nil && e.Status == StatusComputed && e.Accuracy != nil
}

// Config controls the engine.
type Config struct {
	// Workers bounds concurrent series in EvaluateAll.
	Workers    int
	FitTimeout time.Duration
	Confidence float64
	Period     int
	Methods    []Method
	ARIMA      *autoarima.Config
	ETS        ets.Config
}

// DefaultConfig returns the engine settings for monthly sales series.
func DefaultConfig() Config {
	return Config{
		Workers:    4,
		FitTimeout: 2 * time.Minute,
		Confidence: 0.95,
		Period:     timeseries.MonthlyFrequency,
		Methods:    Methods,
		ARIMA:      autoarima.DefaultConfig(),
		ETS:        ets.DefaultConfig(),
	}
}

// FitOption adjusts a single fit.
type FitOption func(*fitSettings)

// WithDifferencing pins the ARIMA differencing order d.
func WithDifferencing(d int) FitOption {
	return func(s *fitSettings) {
		s.fixedD = &d
	}
}

type cacheKey struct {
	series string
	method Method
	train  int
	test   int
	fixedD int
	full   bool
}

// Engine fits and scores the competing methods. Fitted models are cached so
// repeated requests for the same series, method and split never refit.
type Engine struct {
	config Config
	log    zerolog.Logger
	fits   map[Method]fitFunc

	cache *modelCache
	group singleflight.Group
}

// NewEngine creates an engine; zero config fields take their defaults.
func NewEngine(config Config, log zerolog.Logger) *Engine {
	def := DefaultConfig()
	if config.Workers <= 0 {
		config.Workers = def.Workers
	}
	if config.FitTimeout <= 0 {
		config.FitTimeout = def.FitTimeout
	}
	if config.Confidence <= 0 || config.Confidence >= 1 {
		config.Confidence = def.Confidence
	}
	if config.Period <= 0 {
		config.Period = def.Period
	}
	if len(config.Methods) == 0 {
		config.Methods = def.Methods
	}
	if config.ARIMA == nil {
		config.ARIMA = def.ARIMA
	}
	if config.ETS.Period == 0 && !config.ETS.Seasonal && !config.ETS.AllowMultiplicative {
		config.ETS = def.ETS
	}

	return &Engine{
		config: config,
		log:    log.With().Str("component", "forecast").Logger(),
		fits:   fitters,
		cache:  newModelCache(),
	}
}

func (e *Engine) settings(opts []FitOption) fitSettings {
	s := fitSettings{
		arima:      e.config.ARIMA,
		ets:        e.config.ETS,
		period:     e.config.Period,
		confidence: e.config.Confidence,
	}
	for _, opt := range opts {
		opt(&s)
	}
	return s
}

// FitAndEvaluate fits every configured method on split.Train, forecasts
// len(split.Test) periods and scores them. Each method runs as its own task
// under the fit timeout; failures are recorded per method and never affect
// the others.
func (e *Engine) FitAndEvaluate(ctx context.Context, split *timeseries.TrainTest, opts ...FitOption) map[Method]*Evaluation {
	settings := e.settings(opts)
	results := make([]*Evaluation, len(e.config.Methods))

	var g errgroup.Group
	for i, method := range e.config.Methods {
		g.Go(func() error {
			results[i] = e.evaluate(ctx, method, split, settings)
			return nil
		})
	}
	_ = g.Wait()

	out := make(map[Method]*Evaluation, len(results))
	for _, ev := range results {
		out[ev.Method] = ev
	}
	return out
}

func (e *Engine) evaluate(ctx context.Context, method Method, split *timeseries.TrainTest, settings fitSettings) *Evaluation {
	name := split.Train.Key()
	ev := &Evaluation{Series: name, Method: method}
	horizon := split.Test.Len()
	start := time.Now()

	key := e.key(split.Train, method, horizon, settings)
	model, err := e.fit(ctx, key, method, split.Train, settings)
	if err == nil {
		ev.Forecast, err = model.Forecast(horizon)
	}
	if err == nil {
		var acc Accuracy
		acc, err = Score(split.Test.Values, ev.Forecast.Values)
		ev.Accuracy = &acc
	}
	if err != nil {
		ev.Status, ev.Reason = classify(err)
		ev.Forecast, ev.Accuracy = nil, nil
		e.log.Debug().Err(err).
			Str("series", name).
			Str("method", string(method)).
			Str("status", string(ev.Status)).
			Msg("Evaluation not computed")
		return ev
	}

	ev.Status = StatusComputed
	ev.Model = model
	ev.Spec = model.Spec()
	ev.Params = model.Params()
	ev.Diagnostics = model.Diagnostics()
	e.log.Debug().
		Str("series", name).
		Str("method", string(method)).
		Str("spec", ev.Spec).
		Float64("rmse", ev.Accuracy.RMSE).
		Dur("elapsed", time.Since(start)).
		Msg("Evaluation computed")
	return ev
}

func classify(err error) (Status, string) {
	if errors.Is(err, timeseries.ErrInsufficientHistory) {
		return StatusUnavailable, err.Error()
	}
	return StatusFailed, err.Error()
}

// Job is one series to evaluate in EvaluateAll.
type Job struct {
	Split   *timeseries.TrainTest
	Options []FitOption
}

// EvaluateAll runs FitAndEvaluate over jobs on a bounded worker pool and
// returns the evaluations keyed by series key. onDone, if set, is called
// after each series completes.
func (e *Engine) EvaluateAll(ctx context.Context, jobs []Job, onDone func(series string)) map[string]map[Method]*Evaluation {
	results := make([]map[Method]*Evaluation, len(jobs))

	g := new(errgroup.Group)
	g.SetLimit(e.config.Workers)
	for i, job := range jobs {
		g.Go(func() error {
			results[i] = e.FitAndEvaluate(ctx, job.Split, job.Options...)
			if onDone != nil {
				onDone(job.Split.Train.Key())
			}
			return nil
		})
	}
	_ = g.Wait()

	out := make(map[string]map[Method]*Evaluation, len(jobs))
	for i, job := range jobs {
		out[job.Split.Train.Key()] = results[i]
	}
	return out
}

// Refit fits method on the full series and projects horizon periods past its
// end. The fitted model is cached like evaluation fits.
func (e *Engine) Refit(ctx context.Context, method Method, series *timeseries.Series, horizon int, opts ...FitOption) (*Forecast, Model, error) {
	if _, ok := e.fits[method]; !ok {
		return nil, nil, fmt.Errorf("refit: unknown method %q", method)
	}
	settings := e.settings(opts)
	key := e.key(series, method, 0, settings)
	key.full = true

	model, err := e.fit(ctx, key, method, series, settings)
	if err != nil {
		return nil, nil, err
	}
	fc, err := model.Forecast(horizon)
	if err != nil {
		return nil, nil, err
	}
	return fc, model, nil
}

func (e *Engine) key(series *timeseries.Series, method Method, test int, settings fitSettings) cacheKey {
	k := cacheKey{series: series.Key(), method: method, train: series.Len(), test: test, fixedD: -1}
	if method == ARIMA && settings.fixedD != nil {
		k.fixedD = *settings.fixedD
	}
	return k
}

// fit returns the cached model for key or fits one under the fit timeout.
// Concurrent requests for the same key share one fit. A fit whose context
// expires is abandoned and reported as failed.
func (e *Engine) fit(ctx context.Context, key cacheKey, method Method, series *timeseries.Series, settings fitSettings) (Model, error) {
	if m, ok := e.cache.get(key); ok {
		return m, nil
	}
	fn, ok := e.fits[method]
	if !ok {
		return nil, fmt.Errorf("unknown method %q", method)
	}

	v, err, _ := e.group.Do(fmt.Sprintf("%+v", key), func() (any, error) {
		if m, ok := e.cache.get(key); ok {
			return m, nil
		}

		fitCtx, cancel := context.WithTimeout(ctx, e.config.FitTimeout)
		defer cancel()

		type outcome struct {
			model Model
			err   error
		}
		done := make(chan outcome, 1)
		go func() {
			m, err := fn(fitCtx, series, settings)
			done <- outcome{m, err}
		}()

		select {
		case o := <-done:
			if o.err != nil {
				return nil, fmt.Errorf("%s on %s: %w", method, series.Key(), o.err)
			}
			e.cache.put(key, o.model)
			return o.model, nil
		case <-fitCtx.Done():
			return nil, fmt.Errorf("%s on %s abandoned: %w", method, series.Key(), fitCtx.Err())
		}
	})
	if err != nil {
		return nil, err
	}
	return v.(Model), nil
}

// CachedModels reports how many fitted models the engine holds.
func (e *Engine) CachedModels() int {
	return e.cache.len()
}
