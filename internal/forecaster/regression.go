package forecaster

import (
	"errors"
	"math"
)

var errSingularSystem = errors.New("normal equations are singular")

// minMaxScaler holds per-column normalization statistics captured at train
// time. They are reused verbatim at inference; refitting during prediction
// would silently shift the feature distribution under the model.
type minMaxScaler struct {
	mins   []float64
	ranges []float64
}

func fitScaler(features [][]float64) *minMaxScaler {
	cols := len(features[0])
	mins := make([]float64, cols)
	maxs := make([]float64, cols)
	for j := 0; j < cols; j++ {
		mins[j] = math.Inf(1)
		maxs[j] = math.Inf(-1)
	}

	for _, row := range features {
		for j, v := range row {
			if v < mins[j] {
				mins[j] = v
			}
			if v > maxs[j] {
				maxs[j] = v
			}
		}
	}

	ranges := make([]float64, cols)
	for j := 0; j < cols; j++ {
		ranges[j] = maxs[j] - mins[j]
	}

	return &minMaxScaler{mins: mins, ranges: ranges}
}

// transform scales a row to [0,1] per column; a zero-range column maps
// to 0.
func (s *minMaxScaler) transform(row []float64) []float64 {
	scaled := make([]float64, len(row))
	for j, v := range row {
		if s.ranges[j] == 0 {
			scaled[j] = 0
			continue
		}
		scaled[j] = (v - s.mins[j]) / s.ranges[j]
	}
	return scaled
}

// linearModel is an ordinary least squares fit with intercept.
type linearModel struct {
	intercept    float64
	coefficients []float64
}

// ridgeLambda keeps the normal equations solvable when a feature column
// is constant over the training window or collinear with another.
const ridgeLambda = 1e-8

// fitLinear solves the normal equations (X'X)w = X'y over the scaled
// feature matrix via Gaussian elimination with partial pivoting. Returns
// errSingularSystem when the system has no unique solution.
func fitLinear(features [][]float64, targets []float64) (*linearModel, error) {
	rows := len(features)
	cols := len(features[0]) + 1 // leading intercept column

	// Build X'X and X'y directly; the design matrix is small.
	xtx := make([][]float64, cols)
	for i := range xtx {
		xtx[i] = make([]float64, cols)
	}
	xty := make([]float64, cols)

	for r := 0; r < rows; r++ {
		row := make([]float64, cols)
		row[0] = 1
		copy(row[1:], features[r])
		for i := 0; i < cols; i++ {
			for j := 0; j < cols; j++ {
				xtx[i][j] += row[i] * row[j]
			}
			xty[i] += row[i] * targets[r]
		}
	}

	for i := 1; i < cols; i++ {
		xtx[i][i] += ridgeLambda
	}

	weights, err := solve(xtx, xty)
	if err != nil {
		return nil, err
	}

	return &linearModel{intercept: weights[0], coefficients: weights[1:]}, nil
}

func (m *linearModel) predict(scaled []float64) float64 {
	value := m.intercept
	for j, c := range m.coefficients {
		value += c * scaled[j]
	}
	return value
}

func solve(a [][]float64, b []float64) ([]float64, error) {
	n := len(b)
	// Augment in place on copies.
	m := make([][]float64, n)
	for i := range m {
		m[i] = make([]float64, n+1)
		copy(m[i], a[i])
		m[i][n] = b[i]
	}

	for col := 0; col < n; col++ {
		pivot := col
		for r := col + 1; r < n; r++ {
			if math.Abs(m[r][col]) > math.Abs(m[pivot][col]) {
				pivot = r
			}
		}
		if math.Abs(m[pivot][col]) < 1e-12 {
			return nil, errSingularSystem
		}
		m[col], m[pivot] = m[pivot], m[col]

		for r := col + 1; r < n; r++ {
			factor := m[r][col] / m[col][col]
			for c := col; c <= n; c++ {
				m[r][c] -= factor * m[col][c]
			}
		}
	}

	x := make([]float64, n)
	for i := n - 1; i >= 0; i-- {
		sum := m[i][n]
		for j := i + 1; j < n; j++ {
			sum -= m[i][j] * x[j]
		}
		x[i] = sum / m[i][i]
	}

	for _, v := range x {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, errSingularSystem
		}
	}

	return x, nil
}
