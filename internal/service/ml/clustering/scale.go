package clustering

import (
	"gonum.org/v1/gonum/stat"
)

// Standardize rescales every column to zero mean and unit population
// variance. Constant columns become zero.
func Standardize(x [][]float64) [][]float64 {
	if len(x) == 0 {
		return nil
	}
	dim := len(x[0])
	out := make([][]float64, len(x))
	for i := range out {
		out[i] = make([]float64, dim)
	}

	col := make([]float64, len(x))
	for j := 0; j < dim; j++ {
		for i := range x {
			col[i] = x[i][j]
		}
		mean, std := stat.PopMeanStdDev(col, nil)
		if std == 0 {
			continue
		}
		for i := range x {
			out[i][j] = (x[i][j] - mean) / std
		}
	}
	return out
}
