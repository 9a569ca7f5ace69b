// Package transmodel holds the n-gram transition model over label
// sequences: raw counts gathered from training, conditional
// log-probabilities and Brants-style deleted-interpolation weights
// computed at compile time.
package transmodel

import (
	"fmt"
	"math"
	"sort"

	"seqtag/internal/logging"
)

// DefaultBoundary bookends every training sequence. It is not part of
// the label inventory.
const DefaultBoundary = "S"

// DefaultSmooth is the probability floor for unseen n-grams.
const DefaultSmooth = 1e-15

// Bigram and Trigram are history+tag keys, oldest first.
type Bigram struct{ A, B string }
type Trigram struct{ A, B, C string }

// Model is built incrementally by ObsSequence, frozen by Compile and
// read-only afterwards.
type Model struct {
	Order     int
	Boundary  string
	LogSmooth float64

	Lambda1 float64
	Lambda2 float64
	Lambda3 float64

	UnigramLogProb map[string]float64
	BigramLogProb  map[Bigram]float64
	TrigramLogProb map[Trigram]float64

	// TagList is the label inventory in deterministic (sorted)
	// order, with the boundary symbol removed.
	TagList []string

	unigramCount map[string]float64
	bigramCount  map[Bigram]float64
	trigramCount map[Trigram]float64
	obsCount     float64
	sentCount    float64
	compiled     bool

	log *logging.Logger
}

func New(order int, smooth float64, log *logging.Logger) (*Model, error) {
	if order != 2 && order != 3 {
		return nil, fmt.Errorf("transition model order should be 2 or 3, got %d", order)
	}
	if smooth <= 0 {
		smooth = DefaultSmooth
	}
	if log == nil {
		log = logging.Discard()
	}
	return &Model{
		Order:          order,
		Boundary:       DefaultBoundary,
		LogSmooth:      math.Log(smooth),
		UnigramLogProb: map[string]float64{},
		BigramLogProb:  map[Bigram]float64{},
		TrigramLogProb: map[Trigram]float64{},
		unigramCount:   map[string]float64{},
		bigramCount:    map[Bigram]float64{},
		trigramCount:   map[Trigram]float64{},
		log:            log,
	}, nil
}

// SetLogger attaches a logger, e.g. after loading a persisted model.
func (m *Model) SetLogger(log *logging.Logger) {
	if log == nil {
		log = logging.Discard()
	}
	m.log = log
}

// ObsSequence counts one sentence's tag sequence, bookended by the
// boundary symbol: S,S,t1,...,tn,S. Trigrams are always counted; a
// bigram-order model ignores them later.
func (m *Model) ObsSequence(tags []string) {
	// The (S,S) initial context of the trigram chain; the closing
	// boundary observation below adds the second unigram of S.
	m.bigramCount[Bigram{m.Boundary, m.Boundary}]++
	m.unigramCount[m.Boundary]++
	m.obsCount++
	m.sentCount++

	lastBefore, last := m.Boundary, m.Boundary
	for _, tag := range tags {
		m.obs(lastBefore, last, tag)
		lastBefore, last = last, tag
	}
	m.obs(lastBefore, last, m.Boundary)
	m.compiled = false
}

func (m *Model) obs(nMinusTwo, nMinusOne, nth string) {
	m.trigramCount[Trigram{nMinusTwo, nMinusOne, nth}]++
	m.bigramCount[Bigram{nMinusOne, nth}]++
	m.unigramCount[nth]++
	m.obsCount++
}

// Counts exposes the raw counters, mainly for tests and reports.
func (m *Model) Counts() (uni map[string]float64, bi map[Bigram]float64, tri map[Trigram]float64) {
	return m.unigramCount, m.bigramCount, m.trigramCount
}

// Compile closes (possibly incremental) training: it turns counts into
// conditional log-probabilities and estimates the interpolation
// lambdas. In bigram mode the (S,S) contexts added per sentence are
// retracted first so the bigram conditionals stay well-formed.
func (m *Model) Compile() error {
	if m.obsCount == 0 {
		return fmt.Errorf("cannot compile an empty transition model")
	}

	if m.Order == 2 {
		delete(m.bigramCount, Bigram{m.Boundary, m.Boundary})
		m.unigramCount[m.Boundary] -= m.sentCount
		m.obsCount -= m.sentCount
		// Incremental training, if any, continues from here.
		m.sentCount = 0
	}

	m.UnigramLogProb = make(map[string]float64, len(m.unigramCount))
	m.BigramLogProb = make(map[Bigram]float64, len(m.bigramCount))
	m.TrigramLogProb = make(map[Trigram]float64, len(m.trigramCount))

	tags := make([]string, 0, len(m.unigramCount))
	for tag, count := range m.unigramCount {
		if tag != m.Boundary {
			tags = append(tags, tag)
		}
		m.UnigramLogProb[tag] = math.Log(count) - math.Log(m.obsCount)
	}
	sort.Strings(tags)
	m.TagList = tags

	bigramJoint := make(map[Bigram]float64, len(m.bigramCount))
	for pair, count := range m.bigramCount {
		bigramJoint[pair] = math.Log(count) - math.Log(m.unigramCount[pair.A])
		m.BigramLogProb[pair] = bigramJoint[pair] - m.UnigramLogProb[pair.A]
	}

	if m.Order == 3 {
		for tri, count := range m.trigramCount {
			history := Bigram{tri.A, tri.B}
			joint := math.Log(count) - math.Log(m.bigramCount[history])
			m.TrigramLogProb[tri] = joint - bigramJoint[history]
		}
	}

	m.computeLambdas()
	m.compiled = true
	return nil
}

// computeLambdas runs the deleted-interpolation estimation of Brants
// (2000, figure 1): every trigram's count is attributed to the lambda
// whose held-out estimate is largest, ties split the mass.
func (m *Model) computeLambdas() {
	var tl1, tl2, tl3 float64
	for tri, count := range m.trigramCount {
		h1, h2, tag := tri.A, tri.B, tri.C
		if m.unigramCount[tag] <= 1 {
			// A single occurrence says nothing about the tag.
			continue
		}
		c3 := -2.0
		if m.Order == 3 {
			c3 = safeDiv(m.trigramCount[tri]-1, m.bigramCount[Bigram{h1, h2}]-1)
		}
		c2 := safeDiv(m.bigramCount[Bigram{h2, tag}]-1, m.unigramCount[h2]-1)
		c1 := safeDiv(m.unigramCount[tag]-1, m.obsCount-1)

		switch {
		case c1 > c3 && c1 > c2:
			tl1 += count
		case c2 > c3 && c2 > c1:
			tl2 += count
		case c3 > c2 && c3 > c1:
			tl3 += count
		case c3 == c2 && c3 > c1:
			tl2 += count / 2
			tl3 += count / 2
		case c2 == c1 && c1 > c3:
			tl1 += count / 2
			tl2 += count / 2
		}
	}

	total := tl1 + tl2 + tl3
	if total == 0 {
		m.log.Warn("no trigram had enough mass for lambda estimation, falling back to unigrams")
		m.Lambda1, m.Lambda2, m.Lambda3 = 1, 0, 0
	} else {
		m.Lambda1 = tl1 / total
		m.Lambda2 = tl2 / total
		m.Lambda3 = tl3 / total
	}
	m.log.Info("lambda1: %g", m.Lambda1)
	m.log.Info("lambda2: %g", m.Lambda2)
	m.log.Info("lambda3: %g", m.Lambda3)
}

// safeDiv returns -1 on a zero denominator so that branch never wins
// the maximum comparison.
func safeDiv(v1, v2 float64) float64 {
	if v2 == 0 {
		return -1.0
	}
	return v1 / v2
}

// LogProb scores log P(nth | nMinusTwo, nMinusOne) as the lambda
// mixture of the unigram, bigram and trigram conditionals, each
// falling back to the smoothing floor when unseen.
func (m *Model) LogProb(nMinusTwo, nMinusOne, nth string) float64 {
	if !m.compiled {
		m.log.Warn("probabilities have not been recalculated since last input")
	}

	tri, ok := m.TrigramLogProb[Trigram{nMinusTwo, nMinusOne, nth}]
	if !ok {
		tri = m.LogSmooth
	}
	bi, ok := m.BigramLogProb[Bigram{nMinusOne, nth}]
	if !ok {
		bi = m.LogSmooth
	}
	uni, ok := m.UnigramLogProb[nth]
	if !ok {
		uni = m.LogSmooth
	}
	return m.Lambda1*uni + m.Lambda2*bi + m.Lambda3*tri
}

// LogProb2 scores log P(nth | nMinusOne) with no trigram context; the
// missing trigram component falls back to the smoothing floor, which
// in bigram mode carries zero weight anyway.
func (m *Model) LogProb2(nMinusOne, nth string) float64 {
	return m.LogProb("", nMinusOne, nth)
}

// Prob is the linear-space convenience wrapper around LogProb.
func (m *Model) Prob(nMinusTwo, nMinusOne, nth string) float64 {
	return math.Exp(m.LogProb(nMinusTwo, nMinusOne, nth))
}

// Tags returns the label inventory in deterministic order.
func (m *Model) Tags() []string { return m.TagList }

// Compiled reports whether probabilities reflect all observations.
func (m *Model) Compiled() bool { return m.compiled }
