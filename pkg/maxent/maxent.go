// Package maxent fits and applies the multinomial logistic-regression
// observation model. The fit minimizes L2-regularized softmax
// cross-entropy with L-BFGS; inference yields one calibrated
// probability distribution over labels per matrix row.
package maxent

import (
	"fmt"
	"math"
	"sort"

	"github.com/james-bowman/sparse"
	"gonum.org/v1/gonum/optimize"

	"seqtag/internal/logging"
)

// Config carries the fit hyperparameters.
type Config struct {
	L2      float64
	MaxIter int
	Tol     float64
}

// DefaultConfig mirrors the common defaults of linear maxent trainers.
func DefaultConfig() Config {
	return Config{L2: 1.0, MaxIter: 200, Tol: 1e-6}
}

// Model is the trained classifier: a weight row and an intercept per
// label. Weights are row-major, one row of NumFeatures per label.
type Model struct {
	NumFeatures int
	NumLabels   int
	Weights     []float64
	Intercepts  []float64

	log *logging.Logger
}

func New(log *logging.Logger) *Model {
	if log == nil {
		log = logging.Discard()
	}
	return &Model{log: log}
}

// SetLogger attaches a logger, e.g. after loading a persisted model.
func (m *Model) SetLogger(log *logging.Logger) {
	if log == nil {
		log = logging.Discard()
	}
	m.log = log
}

// Fit trains the model on the binary event matrix and its label
// vector. Labels must be dense ids in [0, L).
func (m *Model) Fit(x *sparse.CSR, y []int, cfg Config) error {
	rows, cols := x.Dims()
	if rows == 0 || cols == 0 {
		return fmt.Errorf("cannot fit on an empty %dx%d problem", rows, cols)
	}
	if len(y) != rows {
		return fmt.Errorf("label vector length %d does not match %d rows", len(y), rows)
	}
	numLabels := 0
	for _, label := range y {
		if label < 0 {
			return fmt.Errorf("negative label id %d", label)
		}
		if label+1 > numLabels {
			numLabels = label + 1
		}
	}
	if numLabels < 2 {
		return fmt.Errorf("need at least two distinct labels, got %d", numLabels)
	}

	m.NumFeatures = cols
	m.NumLabels = numLabels
	stride := cols + 1 // weights plus intercept per label

	m.log.Info("training maxent model (%d events, %d features, %d labels)...", rows, cols, numLabels)

	problem := optimize.Problem{
		Func: func(params []float64) float64 {
			loss, _ := m.lossGrad(x, y, params, cfg.L2, nil)
			return loss
		},
		Grad: func(grad, params []float64) {
			m.lossGrad(x, y, params, cfg.L2, grad)
		},
	}

	settings := &optimize.Settings{
		GradientThreshold: cfg.Tol,
		MajorIterations:   cfg.MaxIter,
	}
	init := make([]float64, numLabels*stride)
	result, err := optimize.Minimize(problem, init, settings, &optimize.LBFGS{})
	if err != nil {
		if result == nil {
			return fmt.Errorf("maxent fit failed: %w", err)
		}
		// Iteration-limit style statuses still carry usable weights.
		m.log.Warn("maxent fit stopped early: %v", err)
	}

	m.Weights = make([]float64, numLabels*cols)
	m.Intercepts = make([]float64, numLabels)
	for label := 0; label < numLabels; label++ {
		copy(m.Weights[label*cols:(label+1)*cols], result.X[label*stride:label*stride+cols])
		m.Intercepts[label] = result.X[label*stride+cols]
	}
	m.log.Info("training done (loss %.6f)", result.F)
	return nil
}

// lossGrad computes the regularized negative log-likelihood and, when
// grad is non-nil, its gradient. The parameter layout is
// [w_label0..., b_label0, w_label1..., b_label1, ...].
func (m *Model) lossGrad(x *sparse.CSR, y []int, params []float64, l2 float64, grad []float64) (float64, []float64) {
	rows, cols := x.Dims()
	numLabels := m.NumLabels
	stride := cols + 1

	if grad != nil {
		for i := range grad {
			grad[i] = 0
		}
	}

	loss := 0.0
	scores := make([]float64, numLabels)
	for i := 0; i < rows; i++ {
		for label := 0; label < numLabels; label++ {
			scores[label] = params[label*stride+cols] // intercept
		}
		x.DoRowNonZero(i, func(_, j int, v float64) {
			for label := 0; label < numLabels; label++ {
				scores[label] += params[label*stride+j] * v
			}
		})

		maxScore := scores[0]
		for _, s := range scores[1:] {
			if s > maxScore {
				maxScore = s
			}
		}
		sum := 0.0
		for label := range scores {
			scores[label] = math.Exp(scores[label] - maxScore)
			sum += scores[label]
		}
		loss -= math.Log(scores[y[i]] / sum)

		if grad != nil {
			for label := 0; label < numLabels; label++ {
				p := scores[label] / sum
				if label == y[i] {
					p -= 1
				}
				grad[label*stride+cols] += p
				base := label * stride
				x.DoRowNonZero(i, func(_, j int, v float64) {
					grad[base+j] += p * v
				})
			}
		}
	}

	// L2 penalty on the weights, not the intercepts.
	if l2 > 0 {
		for label := 0; label < numLabels; label++ {
			base := label * stride
			for j := 0; j < cols; j++ {
				w := params[base+j]
				loss += 0.5 * l2 * w * w
				if grad != nil {
					grad[base+j] += l2 * w
				}
			}
		}
	}
	return loss, grad
}

// PredictProba returns one probability distribution over labels per
// matrix row. Rows with no active features yield the model's prior
// (intercept-only) distribution.
func (m *Model) PredictProba(x *sparse.CSR) [][]float64 {
	rows, _ := x.Dims()
	out := make([][]float64, rows)
	for i := 0; i < rows; i++ {
		scores := make([]float64, m.NumLabels)
		copy(scores, m.Intercepts)
		x.DoRowNonZero(i, func(_, j int, v float64) {
			if j >= m.NumFeatures {
				return
			}
			for label := 0; label < m.NumLabels; label++ {
				scores[label] += m.Weights[label*m.NumFeatures+j] * v
			}
		})
		out[i] = softmax(scores)
	}
	return out
}

func softmax(scores []float64) []float64 {
	maxScore := scores[0]
	for _, s := range scores[1:] {
		if s > maxScore {
			maxScore = s
		}
	}
	sum := 0.0
	for i, s := range scores {
		scores[i] = math.Exp(s - maxScore)
		sum += scores[i]
	}
	for i := range scores {
		scores[i] /= sum
	}
	return scores
}

// WeightEntry is one feature name with its coefficient for a label.
type WeightEntry struct {
	Feature string
	Weight  float64
}

// topWeights returns, for one label, the n highest and n lowest
// weighted feature names with their coefficients.
func (m *Model) topWeights(label, n int, featNames []string) (best, worst []WeightEntry) {
	entries := make([]WeightEntry, 0, m.NumFeatures)
	for j := 0; j < m.NumFeatures; j++ {
		name := ""
		if j < len(featNames) {
			name = featNames[j]
		}
		entries = append(entries, WeightEntry{Feature: name, Weight: m.Weights[label*m.NumFeatures+j]})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Weight != entries[j].Weight {
			return entries[i].Weight > entries[j].Weight
		}
		return entries[i].Feature > entries[j].Feature
	})
	if n > len(entries) {
		n = len(entries)
	}
	best = entries[:n]
	worst = entries[len(entries)-n:]
	return best, worst
}
