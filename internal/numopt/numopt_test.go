package numopt

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMinimizeQuadratic(t *testing.T) {
	f := func(x []float64) float64 {
		return (x[0]-3)*(x[0]-3) + (x[1]+1)*(x[1]+1)
	}
	x, fx := Minimize(f, []float64{0, 0}, 0)
	assert.InDelta(t, 3, x[0], 1e-3)
	assert.InDelta(t, -1, x[1], 1e-3)
	assert.Less(t, fx, 1e-5)
}

func TestMinimizeNeverWorseThanStart(t *testing.T) {
	f := func(x []float64) float64 {
		if x[0] != 0 {
			return math.NaN()
		}
		return 1
	}
	x, fx := Minimize(f, []float64{0}, 50)
	assert.Equal(t, []float64{0}, x)
	assert.Equal(t, 1.0, fx)
}

func TestMinimizeEmpty(t *testing.T) {
	x, fx := Minimize(func([]float64) float64 { return 7 }, nil, 0)
	assert.Empty(t, x)
	assert.Equal(t, 7.0, fx)
}

func TestLogisticRoundTrip(t *testing.T) {
	for _, p := range []float64{0.01, 0.3, 0.5, 0.9} {
		assert.InDelta(t, p, Logistic(Logit(p)), 1e-12)
	}
}
