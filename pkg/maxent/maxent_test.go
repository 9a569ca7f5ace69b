package maxent

import (
	"math"
	"path/filepath"
	"testing"

	"github.com/james-bowman/sparse"
	"github.com/stretchr/testify/require"

	"seqtag/internal/logging"
)

// problem builds a tiny separable training set: feature 0 marks label
// 0, feature 1 marks label 1, feature 2 fires everywhere.
func problem() (*sparse.CSR, []int) {
	var rows, cols []int
	var data []float64
	var labels []int
	add := func(row int, feats ...int) {
		for _, f := range feats {
			rows = append(rows, row)
			cols = append(cols, f)
			data = append(data, 1)
		}
	}
	row := 0
	for i := 0; i < 8; i++ {
		add(row, 0, 2)
		labels = append(labels, 0)
		row++
		add(row, 1, 2)
		labels = append(labels, 1)
		row++
	}
	return sparse.NewCOO(row, 3, rows, cols, data).ToCSR(), labels
}

func fitModel(t *testing.T) *Model {
	t.Helper()
	x, y := problem()
	m := New(logging.Discard())
	require.NoError(t, m.Fit(x, y, Config{L2: 0.01, MaxIter: 500, Tol: 1e-8}))
	return m
}

func TestFitSeparatesClasses(t *testing.T) {
	m := fitModel(t)
	x, y := problem()
	probs := m.PredictProba(x)

	for i, dist := range probs {
		sum := 0.0
		argmax := 0
		for label, p := range dist {
			sum += p
			if p > dist[argmax] {
				argmax = label
			}
		}
		if math.Abs(sum-1) > 1e-9 {
			t.Fatalf("row %d probabilities sum to %g", i, sum)
		}
		if argmax != y[i] {
			t.Errorf("row %d predicted %d, want %d (%v)", i, argmax, y[i], dist)
		}
		if dist[y[i]] < 0.7 {
			t.Errorf("row %d is barely confident: %v", i, dist)
		}
	}
}

func TestEmptyRowGetsPrior(t *testing.T) {
	m := fitModel(t)
	empty := sparse.NewCOO(1, 3, nil, nil, nil).ToCSR()
	probs := m.PredictProba(empty)
	require.Len(t, probs, 1)

	sum := 0.0
	for _, p := range probs[0] {
		sum += p
		if math.IsNaN(p) {
			t.Fatal("prior distribution contains NaN")
		}
	}
	if math.Abs(sum-1) > 1e-9 {
		t.Errorf("prior sums to %g", sum)
	}
}

func TestFitRejectsDegenerateProblems(t *testing.T) {
	m := New(logging.Discard())
	x, _ := problem()
	rows, _ := x.Dims()
	oneClass := make([]int, rows)
	if err := m.Fit(x, oneClass, DefaultConfig()); err == nil {
		t.Fatal("single-label training must fail")
	}
	if err := m.Fit(x, []int{0}, DefaultConfig()); err == nil {
		t.Fatal("label/row mismatch must fail")
	}
}

func TestSaveLoadPreservesPredictions(t *testing.T) {
	m := fitModel(t)
	path := filepath.Join(t.TempDir(), "clf.model")
	require.NoError(t, m.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)

	x, _ := problem()
	want := m.PredictProba(x)
	got := loaded.PredictProba(x)
	for i := range want {
		for j := range want[i] {
			if want[i][j] != got[i][j] {
				t.Fatalf("prediction changed after round trip at [%d][%d]", i, j)
			}
		}
	}
}
