// Package viterbi searches the best label sequence through the
// lattice spanned by the classifier emissions and the transition
// model, bigram or trigram depending on the model order.
package viterbi

import (
	"fmt"
	"math"

	"seqtag/pkg/transmodel"
)

// Decoder combines emission log-probabilities with transition scores
// weighted by the language-model weight. Emission weight is 1.
type Decoder struct {
	model *transmodel.Model
	lmw   float64
}

func NewDecoder(model *transmodel.Model, lmw float64) (*Decoder, error) {
	if model == nil {
		return nil, fmt.Errorf("decoder needs a transition model")
	}
	if lmw < 0 {
		return nil, fmt.Errorf("language model weight must be non-negative, got %g", lmw)
	}
	return &Decoder{model: model, lmw: lmw}, nil
}

// Decode returns the best-scoring tag path for the per-position label
// distributions, which arrive in linear probability space. Ties are
// broken by the deterministic order of the model's tag inventory.
func (d *Decoder) Decode(tagProbsByPos []map[string]float64) (float64, []string, error) {
	if len(tagProbsByPos) == 0 {
		return 0, nil, fmt.Errorf("cannot decode an empty sentence")
	}
	states := d.model.Tags()
	if len(states) == 0 {
		return 0, nil, fmt.Errorf("transition model has an empty tag inventory")
	}

	emission := make([][]float64, len(tagProbsByPos))
	for t, dist := range tagProbsByPos {
		emission[t] = make([]float64, len(states))
		for s, tag := range states {
			if p, ok := dist[tag]; ok && p > 0 {
				emission[t][s] = math.Log(p)
			} else {
				emission[t][s] = math.Inf(-1)
			}
		}
	}

	if d.model.Order == 3 {
		return d.decodeTrigram(states, emission)
	}
	return d.decodeBigram(states, emission)
}

func (d *Decoder) decodeBigram(states []string, emission [][]float64) (float64, []string, error) {
	n := len(states)
	T := len(emission)
	boundary := d.model.Boundary

	v := make([]float64, n)
	for y := 0; y < n; y++ {
		v[y] = d.lmw*d.model.LogProb2(boundary, states[y]) + emission[0][y]
	}

	back := make([][]int, T)
	for t := 1; t < T; t++ {
		next := make([]float64, n)
		back[t] = make([]int, n)
		for y := 0; y < n; y++ {
			best := math.Inf(-1)
			bestPrev := 0
			for y0 := 0; y0 < n; y0++ {
				score := v[y0] + d.lmw*d.model.LogProb2(states[y0], states[y])
				if score > best {
					best = score
					bestPrev = y0
				}
			}
			next[y] = best + emission[t][y]
			back[t][y] = bestPrev
		}
		v = next
	}

	bestScore := math.Inf(-1)
	bestLast := 0
	for y := 0; y < n; y++ {
		score := v[y] + d.lmw*d.model.LogProb2(states[y], boundary)
		if score > bestScore {
			bestScore = score
			bestLast = y
		}
	}

	path := make([]string, T)
	cur := bestLast
	for t := T - 1; t >= 0; t-- {
		path[t] = states[cur]
		if t > 0 {
			cur = back[t][cur]
		}
	}
	return bestScore, path, nil
}

// decodeTrigram keys the lattice by the (previous, current) tag pair.
// The terminal step backs off to the bigram P(S|y); keeping the
// cheaper form matches the reference decoding.
func (d *Decoder) decodeTrigram(states []string, emission [][]float64) (float64, []string, error) {
	n := len(states)
	T := len(emission)
	boundary := d.model.Boundary
	cell := func(z, y int) int { return z*n + y }

	v := make([]float64, n*n)
	for z := 0; z < n; z++ {
		for y := 0; y < n; y++ {
			v[cell(z, y)] = d.lmw*d.model.LogProb(boundary, boundary, states[y]) + emission[0][y]
		}
	}

	back := make([][]int, T)
	if T > 1 {
		// At t = 1 the oldest context is still the boundary.
		next := make([]float64, n*n)
		back[1] = make([]int, n*n)
		for z := 0; z < n; z++ {
			for y := 0; y < n; y++ {
				best := math.Inf(-1)
				bestPrev := 0
				for y0 := 0; y0 < n; y0++ {
					score := v[cell(y0, z)] + d.lmw*d.model.LogProb(boundary, states[z], states[y])
					if score > best {
						best = score
						bestPrev = y0
					}
				}
				next[cell(z, y)] = best + emission[1][y]
				back[1][cell(z, y)] = bestPrev
			}
		}
		v = next
	}

	for t := 2; t < T; t++ {
		next := make([]float64, n*n)
		back[t] = make([]int, n*n)
		for z := 0; z < n; z++ {
			for y := 0; y < n; y++ {
				best := math.Inf(-1)
				bestPrev := 0
				for y0 := 0; y0 < n; y0++ {
					score := v[cell(y0, z)] + d.lmw*d.model.LogProb(states[y0], states[z], states[y])
					if score > best {
						best = score
						bestPrev = y0
					}
				}
				next[cell(z, y)] = best + emission[t][y]
				back[t][cell(z, y)] = bestPrev
			}
		}
		v = next
	}

	bestScore := math.Inf(-1)
	bestZ, bestY := 0, 0
	for z := 0; z < n; z++ {
		for y := 0; y < n; y++ {
			score := v[cell(z, y)] + d.lmw*d.model.LogProb2(states[y], boundary)
			if score > bestScore {
				bestScore = score
				bestZ, bestY = z, y
			}
		}
	}

	path := make([]string, T)
	z, y := bestZ, bestY
	for t := T - 1; t >= 0; t-- {
		path[t] = states[y]
		if t > 0 {
			prev := back[t][cell(z, y)]
			y = z
			z = prev
		}
	}
	return bestScore, path, nil
}
