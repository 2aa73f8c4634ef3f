package forecast

import (
	"context"
	"fmt"
	"math"

	"github.com/sartorproj/salesforecast/autoarima"
	"github.com/sartorproj/salesforecast/ets"
	"github.com/sartorproj/salesforecast/holtwinters"
	"github.com/sartorproj/salesforecast/stats"
	"github.com/sartorproj/salesforecast/timeseries"
)

// Model is a fitted model bound to the series it was trained on.
type Model interface {
	Method() Method
	// Spec describes the fitted structure, e.g. "ARIMA(1,1,0)(0,1,0)[12]"
	// or "ETS(A,A,N)".
	Spec() string
	Params() map[string]float64
	// Forecast projects h periods past the end of the training series.
	Forecast(h int) (*Forecast, error)
	AIC() float64
	// Diagnostics is the Ljung-Box test on the training residuals, nil when
	// the residuals are too short to test.
	Diagnostics() *stats.LjungBoxResult
}

// Forecast is a point forecast with prediction intervals, starting at the
// period after the training series ends.
type Forecast struct {
	Method Method            `json:"method"`
	Spec   string            `json:"spec"`
	Start  timeseries.Period `json:"start"`
	Values []float64         `json:"values"`
	Lower  []float64         `json:"lower"`
	Upper  []float64         `json:"upper"`
}

// Series returns the point forecast as a monthly series.
func (f *Forecast) Series(name string) *timeseries.Series {
	s := timeseries.NewMonthly(f.Start, f.Values)
	s.Name = name
	s.Metric = "forecast_" + string(f.Method)
	return s
}

type predictor interface {
	PredictWithInterval(steps int, confidence float64) (point, lower, upper []float64, err error)
	String() string
}

type fittedModel struct {
	method     Method
	predictor  predictor
	params     map[string]float64
	aic        float64
	next       timeseries.Period
	confidence float64
	ljungBox   *stats.LjungBoxResult
}

func (f *fittedModel) Method() Method { return f.method }

func (f *fittedModel) Spec() string { return f.predictor.String() }

// Params omits non-finite values so evaluations always encode as JSON.
func (f *fittedModel) Params() map[string]float64 {
	out := make(map[string]float64, len(f.params))
	for k, v := range f.params {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		out[k] = v
	}
	return out
}

func (f *fittedModel) AIC() float64 { return f.aic }

func (f *fittedModel) Diagnostics() *stats.LjungBoxResult { return f.ljungBox }

// diagnosticLags is the Ljung-Box lag count used for every method.
const diagnosticLags = 10

// residualTest runs Ljung-Box on residuals; too few residuals yield nil.
func residualTest(residuals []float64, fitdf int) *stats.LjungBoxResult {
	lb, err := stats.LjungBox(residuals, diagnosticLags, fitdf)
	if err != nil {
		return nil
	}
	return lb
}

func (f *fittedModel) Forecast(h int) (*Forecast, error) {
	point, lower, upper, err := f.predictor.PredictWithInterval(h, f.confidence)
	if err != nil {
		return nil, fmt.Errorf("%s forecast: %w", f.method, err)
	}
	return &Forecast{
		Method: f.method,
		Spec:   f.predictor.String(),
		Start:  f.next,
		Values: point,
		Lower:  lower,
		Upper:  upper,
	}, nil
}

// fitSettings carries the per-fit choices that are not part of the series.
type fitSettings struct {
	arima      *autoarima.Config
	ets        ets.Config
	period     int
	confidence float64
	fixedD     *int
}

type fitFunc func(ctx context.Context, series *timeseries.Series, s fitSettings) (Model, error)

var fitters = map[Method]fitFunc{
	ARIMA:       fitARIMA,
	HoltWinters: fitHoltWinters,
	ETS:         fitETS,
}

func fitARIMA(ctx context.Context, series *timeseries.Series, s fitSettings) (Model, error) {
	config := *s.arima
	if s.fixedD != nil {
		d := *s.fixedD
		config.FixedD = &d
	}
	res, err := autoarima.AutoARIMA(ctx, series, &config)
	if err != nil {
		return nil, err
	}

	params := map[string]float64{
		"p": float64(res.P), "d": float64(res.D), "q": float64(res.Q),
	}
	var ar, ma, sar, sma []float64
	if res.IsSeasonal {
		sm := res.SeasonalModel
		params["P"], params["D"], params["Q"], params["m"] = float64(res.SP), float64(res.SD), float64(res.SQ), float64(res.M)
		params["intercept"], params["sigma2"] = sm.Intercept, sm.Variance
		ar, ma, sar, sma = sm.ARCoeffs, sm.MACoeffs, sm.SARCoeffs, sm.SMACoeffs
	} else {
		params["intercept"], params["sigma2"] = res.Model.Intercept, res.Model.Variance
		ar, ma = res.Model.ARCoeffs, res.Model.MACoeffs
	}
	addCoeffs(params, "ar", ar)
	addCoeffs(params, "ma", ma)
	addCoeffs(params, "sar", sar)
	addCoeffs(params, "sma", sma)

	return &fittedModel{
		method:     ARIMA,
		predictor:  res,
		params:     params,
		aic:        res.AIC,
		next:       series.End().Next(),
		confidence: s.confidence,
		ljungBox:   res.Diagnostics(),
	}, nil
}

func addCoeffs(params map[string]float64, prefix string, coeffs []float64) {
	for i, c := range coeffs {
		params[fmt.Sprintf("%s%d", prefix, i+1)] = c
	}
}

func fitHoltWinters(_ context.Context, series *timeseries.Series, s fitSettings) (Model, error) {
	model := holtwinters.New(s.period)
	if err := model.Fit(series); err != nil {
		return nil, err
	}
	return &fittedModel{
		method:    HoltWinters,
		predictor: model,
		params: map[string]float64{
			"alpha":  model.Alpha,
			"beta":   model.Beta,
			"gamma":  model.Gamma,
			"level":  model.Level,
			"trend":  model.Trend,
			"sigma2": model.Sigma2,
		},
		aic:        model.IC.AIC,
		next:       series.End().Next(),
		confidence: s.confidence,
		ljungBox:   residualTest(model.Residuals(), 3),
	}, nil
}

func fitETS(ctx context.Context, series *timeseries.Series, s fitSettings) (Model, error) {
	config := s.ets
	if config.Period <= 0 {
		config.Period = s.period
	}
	model, err := ets.Auto(ctx, series, config)
	if err != nil {
		return nil, err
	}

	params := map[string]float64{
		"alpha":  model.Alpha,
		"level":  model.Level,
		"sigma2": model.Sigma2,
		"aicc":   model.IC.AICc,
	}
	smoothing := 1
	if model.Spec.Trend != ets.None {
		params["beta"] = model.Beta
		params["trend"] = model.Trend
		smoothing++
	}
	if model.Spec.Season != ets.None {
		params["gamma"] = model.Gamma
		smoothing++
	}
	return &fittedModel{
		method:     ETS,
		predictor:  model,
		params:     params,
		aic:        model.IC.AIC,
		next:       series.End().Next(),
		confidence: s.confidence,
		ljungBox:   residualTest(model.Residuals(), smoothing),
	}, nil
}
