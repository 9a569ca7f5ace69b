// Package events folds featurized sentences into the sparse training
// problem: a binary CSR matrix over feature columns, a label vector
// and the sentence boundary markers.
package events

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/james-bowman/sparse"

	"seqtag/internal/logging"
	"seqtag/pkg/bookkeeper"
)

// Typed index spaces. Keeping them distinct stops the cutoff
// compaction pass from mixing row, column and label ranges.
type (
	TokenRow    uint64
	FeatureID   uint64
	LabelID     uint16
	SentenceEnd uint64
)

// Builder accumulates training events as (row, col, 1) triples.
type Builder struct {
	log *logging.Logger

	featBook  *bookkeeper.Book
	labelBook *bookkeeper.Book
	usedFeats map[string]struct{}
	cutoff    int

	rows    []TokenRow
	cols    []FeatureID
	data    []uint8
	labels  []LabelID
	sentEnd []SentenceEnd

	tokCount int
}

// Events is the frozen training problem after cutoff.
type Events struct {
	Matrix    *sparse.CSR
	Labels    []LabelID
	SentEnd   []SentenceEnd
	FeatBook  *bookkeeper.Book
	LabelBook *bookkeeper.Book
}

func NewBuilder(cutoff int, usedFeats map[string]struct{}, log *logging.Logger) *Builder {
	if log == nil {
		log = logging.Discard()
	}
	return &Builder{
		log:       log,
		featBook:  bookkeeper.New(),
		labelBook: bookkeeper.New(),
		usedFeats: usedFeats,
		cutoff:    cutoff,
	}
}

// AddSentence adds one featurized sentence with its gold labels.
// Features of each token are deduplicated and sorted before indexing
// so the event stream is identical no matter where it came from.
func (b *Builder) AddSentence(sentenceFeats [][]string, golds []string) error {
	if len(sentenceFeats) != len(golds) {
		return fmt.Errorf("featurized sentence length %d does not match gold label count %d",
			len(sentenceFeats), len(golds))
	}
	for c, tokFeats := range sentenceFeats {
		row := TokenRow(b.tokCount)
		b.tokCount++

		distinct := make(map[string]struct{}, len(tokFeats))
		for _, feat := range tokFeats {
			if b.usedFeats != nil {
				if _, ok := b.usedFeats[feat]; !ok {
					continue
				}
			}
			distinct[feat] = struct{}{}
		}
		ordered := make([]string, 0, len(distinct))
		for feat := range distinct {
			ordered = append(ordered, feat)
		}
		sort.Strings(ordered)

		for _, feat := range ordered {
			b.rows = append(b.rows, row)
			b.cols = append(b.cols, FeatureID(b.featBook.GetOrAssign(feat)))
			b.data = append(b.data, 1)
		}
		b.labels = append(b.labels, LabelID(b.labelBook.GetOrAssign(golds[c])))
	}
	if len(golds) > 0 {
		b.sentEnd = append(b.sentEnd, SentenceEnd(b.tokCount-1))
	}
	return nil
}

// TokenCount returns the number of tokens added so far.
func (b *Builder) TokenCount() int { return b.tokCount }

// Build applies the feature cutoff and freezes the training problem.
func (b *Builder) Build() (*Events, error) {
	if b.tokCount == 0 {
		return nil, fmt.Errorf("no training events collected")
	}

	if b.cutoff < 2 {
		matrix, err := b.makeCSR(b.tokCount, b.featBook.Size(), b.rows, b.cols, b.data)
		if err != nil {
			return nil, err
		}
		return &Events{
			Matrix:    matrix,
			Labels:    b.labels,
			SentEnd:   b.sentEnd,
			FeatBook:  b.featBook,
			LabelBook: b.labelBook,
		}, nil
	}

	b.log.Info("discarding features with less than %d occurrences...", b.cutoff)
	oldColNum := b.featBook.Size()
	toDelete := b.featBook.Cutoff(b.cutoff)
	b.log.Info("reducing training events by %d features...", len(toDelete))

	if b.featBook.Size() == 0 {
		return nil, fmt.Errorf("cutoff %d removed every feature, nothing left to train on", b.cutoff)
	}

	// Renumber surviving columns exactly the way the book-keeper
	// compacted its own ids: ascending old id order.
	colRemap := make([]int, oldColNum)
	next := 0
	for old := 0; old < oldColNum; old++ {
		if _, deleted := toDelete[old]; deleted {
			colRemap[old] = -1
			continue
		}
		colRemap[old] = next
		next++
	}

	keptRows := make([]TokenRow, 0, len(b.rows))
	keptCols := make([]FeatureID, 0, len(b.cols))
	keptData := make([]uint8, 0, len(b.data))
	rowAlive := make([]bool, b.tokCount)
	for i, col := range b.cols {
		newCol := colRemap[col]
		if newCol < 0 {
			continue
		}
		keptRows = append(keptRows, b.rows[i])
		keptCols = append(keptCols, FeatureID(newCol))
		keptData = append(keptData, b.data[i])
		rowAlive[b.rows[i]] = true
	}

	// Rows whose every feature fell below the cutoff are dropped
	// together with their labels; the survivors are renumbered in
	// order and the sentence ends follow them.
	rowRemap := make([]int, b.tokCount)
	newLabels := make([]LabelID, 0, b.tokCount)
	aliveRows := make([]TokenRow, 0, b.tokCount)
	next = 0
	for row := 0; row < b.tokCount; row++ {
		if !rowAlive[row] {
			rowRemap[row] = -1
			continue
		}
		rowRemap[row] = next
		newLabels = append(newLabels, b.labels[row])
		aliveRows = append(aliveRows, TokenRow(row))
		next++
	}
	for i, row := range keptRows {
		keptRows[i] = TokenRow(rowRemap[row])
	}
	newSentEnd := updateSentEnd(b.sentEnd, aliveRows)

	matrix, err := b.makeCSR(next, b.featBook.Size(), keptRows, keptCols, keptData)
	if err != nil {
		return nil, err
	}
	return &Events{
		Matrix:    matrix,
		Labels:    newLabels,
		SentEnd:   newSentEnd,
		FeatBook:  b.featBook,
		LabelBook: b.labelBook,
	}, nil
}

func (b *Builder) makeCSR(rowNum, colNum int, rows []TokenRow, cols []FeatureID, data []uint8) (*sparse.CSR, error) {
	if colNum == 0 {
		return nil, fmt.Errorf("training matrix has zero feature columns")
	}
	b.log.Info("creating training problem (%d x %d, %d nonzeros)...", rowNum, colNum, len(data))
	ri := make([]int, len(rows))
	ci := make([]int, len(cols))
	dv := make([]float64, len(data))
	for i := range rows {
		ri[i] = int(rows[i])
		ci[i] = int(cols[i])
		dv[i] = float64(data[i])
	}
	return sparse.NewCOO(rowNum, colNum, ri, ci, dv).ToCSR(), nil
}

// updateSentEnd rewrites sentence end markers after rows were dropped:
// each marker moves to the last surviving row at or before it.
// Sentences that lost every row disappear.
func updateSentEnd(sentEnds []SentenceEnd, aliveRows []TokenRow) []SentenceEnd {
	newEnds := make([]SentenceEnd, 0, len(sentEnds))
	vbeg := 0
	for _, end := range sentEnds {
		vend := -1
		for i := vbeg; i < len(aliveRows); i++ {
			if SentenceEnd(aliveRows[i]) <= end {
				vend = i
			} else {
				break
			}
		}
		if vend >= vbeg && vend >= 0 {
			newEnds = append(newEnds, SentenceEnd(vend))
			vbeg = vend + 1
		}
	}
	return newEnds
}

// WriteFeaturized emits the frozen events one token per line: the
// label first, then the feature names, tab separated, with a blank
// line after each sentence. Colons in feature names are replaced so
// downstream tools can use ":" freely.
func (e *Events) WriteFeaturized(w io.Writer) error {
	beg := 0
	for _, end := range e.SentEnd {
		for row := beg; row <= int(end); row++ {
			labelName, _ := e.LabelBook.NameOf(int(e.Labels[row]))
			names := e.RowFeatureNames(row)
			parts := make([]string, 0, len(names)+1)
			parts = append(parts, labelName)
			parts = append(parts, names...)
			if _, err := fmt.Fprintln(w, strings.Join(parts, "\t")); err != nil {
				return fmt.Errorf("failed to write featurized events: %w", err)
			}
		}
		if _, err := fmt.Fprintln(w); err != nil {
			return fmt.Errorf("failed to write featurized events: %w", err)
		}
		beg = int(end) + 1
	}
	return nil
}

// RowFeatureNames returns the colon-escaped feature names of one
// event row in column order.
func (e *Events) RowFeatureNames(row int) []string {
	var cols []int
	e.Matrix.DoRowNonZero(row, func(_, j int, _ float64) {
		cols = append(cols, j)
	})
	sort.Ints(cols)
	names := make([]string, 0, len(cols))
	for _, col := range cols {
		name, _ := e.FeatBook.NameOf(col)
		names = append(names, strings.ReplaceAll(name, ":", "colon"))
	}
	return names
}
