package impute

import (
	"math"
	"math/rand"
	"sort"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

type donor struct {
	pred  float64
	value float64
}

// linearModel predicts a row from standardized predictor columns.
type linearModel struct {
	columns [][]float64
	means   []float64
	scales  []float64
	beta    []float64
}

// fitLinear solves ridge-stabilized least squares of target on predictors over
// the given rows. Predictors are standardized over all rows; constant
// predictors are dropped. If the system cannot be solved the model falls back
// to the observed mean.
func fitLinear(predictors [][]float64, target []float64, rows []int, ridge float64) linearModel {
	m := linearModel{}
	for _, col := range predictors {
		mean, std := stat.MeanStdDev(col, nil)
		if std == 0 || math.IsNaN(std) {
			continue
		}
		m.columns = append(m.columns, col)
		m.means = append(m.means, mean)
		m.scales = append(m.scales, std)
	}

	p := len(m.columns) + 1
	y := make([]float64, len(rows))
	for n, i := range rows {
		y[n] = target[i]
	}
	yMean := stat.Mean(y, nil)

	x := mat.NewDense(len(rows), p, nil)
	for n, i := range rows {
		x.Set(n, 0, 1)
		for k := range m.columns {
			x.Set(n, k+1, m.standardized(k, i))
		}
	}

	var xtx mat.Dense
	xtx.Mul(x.T(), x)
	for k := 1; k < p; k++ {
		xtx.Set(k, k, xtx.At(k, k)+ridge*float64(len(rows)))
	}
	var xty mat.Dense
	xty.Mul(x.T(), mat.NewDense(len(rows), 1, y))

	var beta mat.Dense
	if err := beta.Solve(&xtx, &xty); err != nil {
		m.columns, m.means, m.scales = nil, nil, nil
		m.beta = []float64{yMean}
		return m
	}
	m.beta = make([]float64, p)
	for k := 0; k < p; k++ {
		m.beta[k] = beta.At(k, 0)
	}
	return m
}

func (m linearModel) standardized(k, row int) float64 {
	return (m.columns[k][row] - m.means[k]) / m.scales[k]
}

func (m linearModel) predict(row int) float64 {
	y := m.beta[0]
	for k := range m.columns {
		y += m.beta[k+1] * m.standardized(k, row)
	}
	return y
}

// matchDonor picks one of the k donors whose predictions are closest to pred.
// donors must be sorted by pred.
func matchDonor(donors []donor, pred float64, k int, rng *rand.Rand) float64 {
	if k > len(donors) {
		k = len(donors)
	}
	hi := sort.Search(len(donors), func(i int) bool { return donors[i].pred >= pred })
	lo := hi - 1

	picked := make([]float64, 0, k)
	for len(picked) < k {
		switch {
		case lo < 0:
			picked = append(picked, donors[hi].value)
			hi++
		case hi >= len(donors):
			picked = append(picked, donors[lo].value)
			lo--
		case pred-donors[lo].pred <= donors[hi].pred-pred:
			picked = append(picked, donors[lo].value)
			lo--
		default:
			picked = append(picked, donors[hi].value)
			hi++
		}
	}
	return picked[rng.Intn(len(picked))]
}
