package selection

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/sartorproj/salesforecast/cluster"
	"github.com/sartorproj/salesforecast/forecast"
	"github.com/sartorproj/salesforecast/timeseries"
)

// DefaultHorizon is the number of months projected past the history.
const DefaultHorizon = 12

// Summary is the mean accuracy of a cluster's members under each member's
// chosen model. Members without a computed model count in Members only.
type Summary struct {
	ClusterID   int
	Members     int
	Evaluated   int
	MeanRMSE    float64
	MeanMAPE    float64
	MAPEDefined bool
}

// MarshalJSON writes undefined means as null.
func (s Summary) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		ClusterID   int      `json:"cluster_id"`
		Members     int      `json:"members"`
		Evaluated   int      `json:"evaluated"`
		MeanRMSE    *float64 `json:"mean_rmse"`
		MeanMAPE    *float64 `json:"mean_mape"`
		MAPEDefined bool     `json:"mape_defined"`
	}{s.ClusterID, s.Members, s.Evaluated, finite(s.MeanRMSE), finite(s.MeanMAPE), s.MAPEDefined})
}

func finite(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

// Summarize averages RMSE and MAPE over each cluster's members. chosen maps
// series name to that series' chosen evaluation (nil or uncomputed when
// none). MeanMAPE is NaN when any evaluated member's MAPE is undefined, and
// both means are NaN when no member was evaluated.
func Summarize(assign *cluster.Assignment, chosen map[string]*forecast.Evaluation) map[int]Summary {
	out := make(map[int]Summary, assign.K)
	for _, id := range assign.IDs() {
		s := Summary{ClusterID: id, MAPEDefined: true}
		var rmse, mape float64
		for _, name := range assign.Members(id) {
			s.Members++
			ev := chosen[name]
			if !ev.Computed() {
				continue
			}
			s.Evaluated++
			rmse += ev.Accuracy.RMSE
			if !ev.Accuracy.MAPEDefined {
				s.MAPEDefined = false
			}
			mape += ev.Accuracy.MAPE
		}

		if s.Evaluated == 0 {
			s.MeanRMSE, s.MeanMAPE, s.MAPEDefined = math.NaN(), math.NaN(), false
		} else {
			s.MeanRMSE = rmse / float64(s.Evaluated)
			s.MeanMAPE = mape / float64(s.Evaluated)
			if !s.MAPEDefined {
				s.MeanMAPE = math.NaN()
			}
		}
		out[id] = s
	}
	return out
}

// ClusterForecast holds the final forecasts of one cluster's members.
type ClusterForecast struct {
	ClusterID int                           `json:"cluster_id"`
	Method    forecast.Method               `json:"method"`
	Horizon   int                           `json:"horizon"`
	Start     timeseries.Period             `json:"start"`
	Members   map[string]*forecast.Forecast `json:"members"`
	Skipped   map[string]string             `json:"skipped,omitempty"`
	// Mean is the point-wise mean of the member forecasts.
	Mean []float64 `json:"mean"`
}

// Selector picks a method per cluster and refits it on member histories.
type Selector struct {
	engine *forecast.Engine
	policy forecast.Policy
	log    zerolog.Logger

	// MemberOptions, if set, supplies per-series fit options for refits.
	MemberOptions func(series string) []forecast.FitOption
}

// NewSelector creates a selector backed by engine's model cache.
func NewSelector(engine *forecast.Engine, policy forecast.Policy, log zerolog.Logger) *Selector {
	return &Selector{
		engine: engine,
		policy: policy,
		log:    log.With().Str("component", "selection").Logger(),
	}
}

// ChooseClusterMethod returns the cluster override if one exists, else the
// method with the lowest mean test RMSE over the members where it was
// computed, else the policy default. evals maps series name to its
// evaluations.
func (s *Selector) ChooseClusterMethod(id int, assign *cluster.Assignment, evals map[string]map[forecast.Method]*forecast.Evaluation) forecast.Method {
	if m, ok := s.policy.ClusterOverrides[id]; ok {
		return m
	}

	best, bestRMSE := forecast.Method(""), math.Inf(1)
	for _, m := range forecast.Methods {
		var sum float64
		var count int
		for _, name := range assign.Members(id) {
			if ev := evals[name][m]; ev.Computed() {
				sum += ev.Accuracy.RMSE
				count++
			}
		}
		if count == 0 {
			continue
		}
		if mean := sum / float64(count); mean < bestRMSE {
			best, bestRMSE = m, mean
		}
	}
	if best != "" {
		return best
	}
	if s.policy.Default != "" {
		return s.policy.Default
	}
	return forecast.ARIMA
}

// ForecastCluster refits method on each member's full history and projects
// horizon months. A member that cannot be fitted is recorded in Skipped and
// excluded from Mean. series maps member names to their full histories.
func (s *Selector) ForecastCluster(ctx context.Context, id int, method forecast.Method, horizon int, assign *cluster.Assignment, series map[string]*timeseries.Series) (*ClusterForecast, error) {
	if horizon <= 0 {
		horizon = DefaultHorizon
	}
	members := assign.Members(id)
	if len(members) == 0 {
		return nil, fmt.Errorf("cluster %d has no members", id)
	}

	out := &ClusterForecast{
		ClusterID: id,
		Method:    method,
		Horizon:   horizon,
		Members:   make(map[string]*forecast.Forecast, len(members)),
		Skipped:   make(map[string]string),
	}

	var mu sync.Mutex
	var g errgroup.Group
	for _, name := range members {
		g.Go(func() error {
			fc, err := s.refit(ctx, method, horizon, name, series[name])
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				out.Skipped[name] = err.Error()
				s.log.Warn().Err(err).Int("cluster", id).Str("series", name).Msg("Member forecast skipped")
				return nil
			}
			out.Members[name] = fc
			return nil
		})
	}
	_ = g.Wait()

	if len(out.Members) == 0 {
		return out, nil
	}
	out.Mean = make([]float64, horizon)
	for _, name := range members {
		fc, ok := out.Members[name]
		if !ok {
			continue
		}
		out.Start = fc.Start
		for i, v := range fc.Values {
			out.Mean[i] += v / float64(len(out.Members))
		}
	}
	return out, nil
}

func (s *Selector) refit(ctx context.Context, method forecast.Method, horizon int, name string, history *timeseries.Series) (*forecast.Forecast, error) {
	if history == nil {
		return nil, fmt.Errorf("no history for %q", name)
	}
	var opts []forecast.FitOption
	if s.MemberOptions != nil {
		opts = s.MemberOptions(name)
	}
	fc, _, err := s.engine.Refit(ctx, method, history, horizon, opts...)
	return fc, err
}
