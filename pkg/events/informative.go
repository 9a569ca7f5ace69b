package events

import (
	"fmt"
	"io"
	"sort"
	"strings"
)

type featVal struct {
	col int
	val float64
}

// MostInformativeFeatures prints every observed (feature, value) pair
// ranked by how unevenly it distributes over the labels: the pair's
// informativeness is max_label P(feature=value|label) divided by the
// minimum over labels, estimated from the raw event counts. Pairs are
// printed in ascending min/max order; n < 0 prints everything.
func (e *Events) MostInformativeFeatures(w io.Writer, n int) error {
	counts := make(map[featVal]map[LabelID]int)
	e.Matrix.DoNonZero(func(row, col int, val float64) {
		key := featVal{col, val}
		byLabel, ok := counts[key]
		if !ok {
			byLabel = make(map[LabelID]int)
			counts[key] = byLabel
		}
		byLabel[e.Labels[row]]++
	})

	labelCounts := make(map[LabelID]int)
	for _, label := range e.Labels {
		labelCounts[label]++
	}
	numLabels := len(labelCounts)

	type ranked struct {
		key     featVal
		minProb float64
		maxProb float64
	}
	pairs := make([]ranked, 0, len(counts))
	for key, byLabel := range counts {
		r := ranked{key: key, minProb: 1.0, maxProb: 0.0}
		for label, count := range byLabel {
			prob := float64(count) / float64(labelCounts[label])
			if prob > r.maxProb {
				r.maxProb = prob
			}
			if prob < r.minProb {
				r.minProb = prob
			}
		}
		if len(byLabel) < numLabels {
			// Labels the pair never occurred with have probability 0.
			r.minProb = 0
		}
		pairs = append(pairs, r)
	}
	sort.Slice(pairs, func(i, j int) bool {
		ri := pairs[i].minProb / pairs[i].maxProb
		rj := pairs[j].minProb / pairs[j].maxProb
		if ri != rj {
			return ri < rj
		}
		if pairs[i].key.col != pairs[j].key.col {
			return pairs[i].key.col < pairs[j].key.col
		}
		return pairs[i].key.val < pairs[j].key.val
	})

	if _, err := fmt.Fprintln(w, strings.Join([]string{
		`"Feature name"=Value (True/False)`,
		"Sum of occurences",
		"Counts per label",
		"Probability per label",
		"Max prob.:Min prob.=Ratio:1.0",
	}, "\t")); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}

	if n < 0 || n > len(pairs) {
		n = len(pairs)
	}
	for _, p := range pairs[:n] {
		byLabel := counts[p.key]
		sum := 0
		labels := make([]LabelID, 0, len(byLabel))
		for label, count := range byLabel {
			sum += count
			labels = append(labels, label)
		}
		sort.Slice(labels, func(i, j int) bool { return labels[i] < labels[j] })

		countCols := make([]string, 0, len(labels))
		probCols := make([]string, 0, len(labels))
		for _, label := range labels {
			name, _ := e.LabelBook.NameOf(int(label))
			countCols = append(countCols, fmt.Sprintf("%s:%d", name, byLabel[label]))
			probCols = append(probCols,
				fmt.Sprintf("%s:%.8f", name, float64(byLabel[label])/float64(labelCounts[label])))
		}

		ratio := "INF"
		if len(byLabel) == numLabels {
			ratio = fmt.Sprintf("%g", p.maxProb/p.minProb)
		}
		featName, _ := e.FeatBook.NameOf(p.key.col)
		if _, err := fmt.Fprintf(w, "%q=%t\t%d\t%s\t%s\t%6g:%6g=%s:1.0\n",
			featName, p.key.val != 0, sum,
			strings.Join(countCols, "/"), strings.Join(probCols, "/"),
			p.maxProb, p.minProb, ratio); err != nil {
			return fmt.Errorf("failed to write report: %w", err)
		}
	}
	return nil
}
