package score

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/ppiankov/gradelens/internal/model"
)

// Correlation holds a coefficient and its two-sided p-value
type Correlation struct {
	R model.Value
	P model.Value
}

func undefinedCorrelation() Correlation {
	return Correlation{R: model.Undefined(), P: model.Undefined()}
}

// Pearson computes the Pearson correlation of x and y. It is undefined for
// fewer than two pairs or when either series has zero variance.
func Pearson(x, y []float64) Correlation {
	if len(x) != len(y) || len(x) < 2 || constant(x) || constant(y) {
		return undefinedCorrelation()
	}
	r := clampUnit(stat.Correlation(x, y, nil))
	return Correlation{R: model.Value(r), P: pValue(r, len(x))}
}

// Spearman computes the Spearman rank correlation: Pearson over average
// ranks, so tied values share the mean of their ranks.
func Spearman(x, y []float64) Correlation {
	if len(x) != len(y) || len(x) < 2 || constant(x) || constant(y) {
		return undefinedCorrelation()
	}
	rx, ry := Ranks(x), Ranks(y)
	r := clampUnit(stat.Correlation(rx, ry, nil))
	return Correlation{R: model.Value(r), P: pValue(r, len(x))}
}

// Ranks returns 1-based ranks of xs with ties averaged.
func Ranks(xs []float64) []float64 {
	idx := make([]int, len(xs))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool { return xs[idx[a]] < xs[idx[b]] })

	ranks := make([]float64, len(xs))
	for i := 0; i < len(idx); {
		j := i
		for j+1 < len(idx) && xs[idx[j+1]] == xs[idx[i]] {
			j++
		}
		avg := float64(i+j)/2 + 1
		for k := i; k <= j; k++ {
			ranks[idx[k]] = avg
		}
		i = j + 1
	}
	return ranks
}

// pValue is the two-sided p-value of r under H0: rho = 0, using a
// Student t distribution with n-2 degrees of freedom.
func pValue(r float64, n int) model.Value {
	if n < 3 || math.IsNaN(r) {
		return model.Undefined()
	}
	if math.Abs(r) >= 1 {
		return 0
	}
	df := float64(n - 2)
	t := r * math.Sqrt(df/(1-r*r))
	dist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: df}
	return model.Value(2 * (1 - dist.CDF(math.Abs(t))))
}

func constant(xs []float64) bool {
	for _, x := range xs[1:] {
		if x != xs[0] {
			return false
		}
	}
	return true
}

func clampUnit(r float64) float64 {
	return math.Max(-1, math.Min(1, r))
}
