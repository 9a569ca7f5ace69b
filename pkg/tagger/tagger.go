// Package tagger orchestrates tagging: it binds the feature
// declarations to the input columns, runs the classifier per sentence
// and decodes the best label path through the transition model.
package tagger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/james-bowman/sparse"

	"seqtag/internal/logging"
	"seqtag/internal/progress"
	"seqtag/pkg/bookkeeper"
	"seqtag/pkg/corpus"
	"seqtag/pkg/feats"
	"seqtag/pkg/maxent"
	"seqtag/pkg/transmodel"
	"seqtag/pkg/viterbi"
)

// Mode selects what the tagger emits per sentence.
type Mode int

const (
	ModeTag Mode = iota
	ModeFeaturize
)

// Tagger holds the read-only artifacts of a trained model.
type Tagger struct {
	log *logging.Logger

	features  []*feats.Feature
	model     *maxent.Model
	trans     *transmodel.Model
	decoder   *viterbi.Decoder
	featBook  *bookkeeper.Book
	labelBook *bookkeeper.Book

	tagFieldName    string
	inputFeaturized bool
}

// Config wires a Tagger from loaded artifacts. Trans may be nil for
// modes that never decode (featurize, print-weights).
type Config struct {
	Features        []*feats.Feature
	Model           *maxent.Model
	Trans           *transmodel.Model
	FeatBook        *bookkeeper.Book
	LabelBook       *bookkeeper.Book
	LMW             float64
	TagFieldName    string
	InputFeaturized bool
	Log             *logging.Logger
}

func New(cfg Config) (*Tagger, error) {
	if cfg.Log == nil {
		cfg.Log = logging.Discard()
	}
	t := &Tagger{
		log:             cfg.Log,
		features:        cfg.Features,
		model:           cfg.Model,
		trans:           cfg.Trans,
		featBook:        cfg.FeatBook,
		labelBook:       cfg.LabelBook,
		tagFieldName:    cfg.TagFieldName,
		inputFeaturized: cfg.InputFeaturized,
	}
	if t.tagFieldName == "" {
		t.tagFieldName = "label"
	}
	if cfg.Trans != nil {
		decoder, err := viterbi.NewDecoder(cfg.Trans, cfg.LMW)
		if err != nil {
			return nil, err
		}
		t.decoder = decoder
	}
	return t, nil
}

// featNumbers translates feature strings to known training ids,
// silently dropping the unknown ones.
func (t *Tagger) featNumbers(sentenceFeats [][]string) [][]int {
	numbers := make([][]int, len(sentenceFeats))
	for c, tokFeats := range sentenceFeats {
		seen := make(map[int]struct{}, len(tokFeats))
		for _, feat := range tokFeats {
			if no, ok := t.featBook.Lookup(feat); ok {
				seen[no] = struct{}{}
			}
		}
		nums := make([]int, 0, len(seen))
		for no := range seen {
			nums = append(nums, no)
		}
		sort.Ints(nums)
		numbers[c] = nums
	}
	return numbers
}

// tagProbsByPos builds the one-sentence event matrix and asks the
// classifier for the per-position label distributions.
func (t *Tagger) tagProbsByPos(featNumbers [][]int) []map[string]float64 {
	var rows, cols []int
	var data []float64
	for rowNum, featNumberSet := range featNumbers {
		for _, featNum := range featNumberSet {
			rows = append(rows, rowNum)
			cols = append(cols, featNum)
			data = append(data, 1)
		}
	}
	contexts := sparse.NewCOO(len(featNumbers), t.featBook.Size(), rows, cols, data).ToCSR()

	probs := t.model.PredictProba(contexts)
	dists := make([]map[string]float64, len(probs))
	for i, dist := range probs {
		byName := make(map[string]float64, len(dist))
		for labelNo, p := range dist {
			if name, ok := t.labelBook.NameOf(labelNo); ok {
				byName[name] = p
			}
		}
		dists[i] = byName
	}
	return dists
}

func (t *Tagger) featurize(sen [][]string) [][]string {
	if t.inputFeaturized {
		return feats.UseFeaturizedSentence(sen, -1)
	}
	return feats.FeaturizeSentence(sen, t.features)
}

// TagSentence returns the decoded label sequence of one sentence.
func (t *Tagger) TagSentence(sen [][]string) ([]string, error) {
	if t.decoder == nil {
		return nil, fmt.Errorf("tagger has no transition model to decode with")
	}
	featNumbers := t.featNumbers(t.featurize(sen))
	_, path, err := t.decoder.Decode(t.tagProbsByPos(featNumbers))
	if err != nil {
		return nil, err
	}
	return path, nil
}

// FeaturizeSentence returns the known features of every token, colon
// escaped the way the featurized file format requires.
func (t *Tagger) FeaturizeSentence(sen [][]string) [][]string {
	featNumbers := t.featNumbers(t.featurize(sen))
	out := make([][]string, len(featNumbers))
	for c, nums := range featNumbers {
		names := make([]string, 0, len(nums))
		for _, no := range nums {
			if name, ok := t.featBook.NameOf(no); ok {
				names = append(names, strings.ReplaceAll(name, ":", "colon"))
			}
		}
		out[c] = names
	}
	return out
}

// TagStream tags every sentence of the input stream and writes the
// result, preserving sentence order, comments and token order. The
// predicted label is appended as the tag field column.
func (t *Tagger) TagStream(r io.Reader, w io.Writer, mode Mode) error {
	reader := corpus.NewReader(r, t.log)
	writer := corpus.NewWriter(w)

	// Featurized input carries no header; every column is taken as a
	// feature string.
	if !t.inputFeaturized {
		header, err := reader.ReadHeader()
		if err != nil {
			return fmt.Errorf("failed to read input header: %w", err)
		}
		if err := feats.BindFeaturesToIndices(t.features, header.Index); err != nil {
			return err
		}
		if mode == ModeTag {
			if err := writer.WriteHeader(header.WithTarget(t.tagFieldName)); err != nil {
				return err
			}
		}
	}

	reporter := progress.NewReporter(t.log, 1000)
	for {
		sen, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}

		var out *corpus.Sentence
		switch mode {
		case ModeFeaturize:
			featurized := t.FeaturizeSentence(sen.Tokens)
			out = &corpus.Sentence{Tokens: featurized, Comments: sen.Comments}
		default:
			labels, err := t.TagSentence(sen.Tokens)
			if err != nil {
				return err
			}
			tokens := make([][]string, len(sen.Tokens))
			for i, tok := range sen.Tokens {
				if t.inputFeaturized {
					// Featurized rows reduce to the label.
					tokens[i] = []string{labels[i]}
					continue
				}
				row := make([]string, 0, len(tok)+1)
				row = append(row, tok...)
				row = append(row, labels[i])
				tokens[i] = row
			}
			out = &corpus.Sentence{Tokens: tokens, Comments: sen.Comments}
		}

		if err := writer.WriteSentence(out); err != nil {
			return err
		}
		reporter.Step()
	}
	reporter.Done()
	return writer.Flush()
}

// TagDir tags every file of a directory into outDir/<name>.tagged.
func (t *Tagger) TagDir(dirName, outDir string, mode Mode) error {
	entries, err := os.ReadDir(dirName)
	if err != nil {
		return fmt.Errorf("failed to read input directory: %w", err)
	}
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	var files []string
	for _, e := range entries {
		if !e.IsDir() {
			files = append(files, e.Name())
		}
	}
	p, bar := progress.FileBar(int64(len(files)), "Tagging files")
	for _, name := range files {
		in, err := os.Open(filepath.Join(dirName, name))
		if err != nil {
			return fmt.Errorf("failed to open %s: %w", name, err)
		}
		out, err := os.Create(filepath.Join(outDir, name+".tagged"))
		if err != nil {
			in.Close()
			return fmt.Errorf("failed to create output for %s: %w", name, err)
		}
		err = t.TagStream(in, out, mode)
		in.Close()
		if cerr := out.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			return fmt.Errorf("failed to tag %s: %w", name, err)
		}
		bar.Increment()
	}
	p.Wait()
	return nil
}

// PrintWeights dumps the top-n classifier coefficients per label.
func (t *Tagger) PrintWeights(w io.Writer, n int) error {
	return t.model.PrintTopWeights(w, n, t.featBook.Names(), t.labelBook.Names())
}
