package forecast

import (
	"encoding/json"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

// Accuracy compares point forecasts with held-out actuals. MAPE is a
// fraction, and NaN with MAPEDefined false when any actual is zero.
type Accuracy struct {
	RMSE        float64
	MAE         float64
	MAPE        float64
	MAPEDefined bool
	N           int
}

// Score computes RMSE, MAE and MAPE over equal-length slices.
func Score(actual, predicted []float64) (Accuracy, error) {
	if len(actual) != len(predicted) {
		return Accuracy{}, fmt.Errorf("accuracy: %d actuals vs %d forecasts", len(actual), len(predicted))
	}
	if len(actual) == 0 {
		return Accuracy{}, fmt.Errorf("accuracy: empty test segment")
	}

	n := float64(len(actual))
	acc := Accuracy{
		RMSE:        floats.Distance(actual, predicted, 2) / math.Sqrt(n),
		MAE:         floats.Distance(actual, predicted, 1) / n,
		MAPEDefined: true,
		N:           len(actual),
	}

	var ape float64
	for i, a := range actual {
		if a == 0 {
			acc.MAPE = math.NaN()
			acc.MAPEDefined = false
			return acc, nil
		}
		ape += math.Abs(a-predicted[i]) / math.Abs(a)
	}
	acc.MAPE = ape / n
	return acc, nil
}

type accuracyJSON struct {
	RMSE        float64  `json:"rmse"`
	MAE         float64  `json:"mae"`
	MAPE        *float64 `json:"mape"`
	MAPEDefined bool     `json:"mape_defined"`
	N           int      `json:"n"`
}

// MarshalJSON writes an undefined MAPE as null.
func (a Accuracy) MarshalJSON() ([]byte, error) {
	out := accuracyJSON{RMSE: a.RMSE, MAE: a.MAE, MAPEDefined: a.MAPEDefined, N: a.N}
	if a.MAPEDefined && !math.IsNaN(a.MAPE) {
		out.MAPE = &a.MAPE
	}
	return json.Marshal(out)
}

func (a *Accuracy) UnmarshalJSON(data []byte) error {
	var in accuracyJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	*a = Accuracy{RMSE: in.RMSE, MAE: in.MAE, MAPE: math.NaN(), MAPEDefined: in.MAPEDefined, N: in.N}
	if in.MAPE != nil {
		a.MAPE = *in.MAPE
	}
	return nil
}
