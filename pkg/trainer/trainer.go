// Package trainer orchestrates observation-model training: it streams
// the corpus through the feature engine into the event builder, fits
// the classifier and persists the artifacts.
package trainer

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"seqtag/internal/logging"
	"seqtag/internal/progress"
	"seqtag/pkg/corpus"
	"seqtag/pkg/events"
	"seqtag/pkg/feats"
	"seqtag/pkg/maxent"
)

// Options configures a training run.
type Options struct {
	Cutoff          int
	GoldField       string
	UsedFeatsFile   string
	InputFeaturized bool
}

// Trainer accumulates events and drives the fit.
type Trainer struct {
	log      *logging.Logger
	features []*feats.Feature
	builder  *events.Builder
	opts     Options

	events *events.Events
	model  *maxent.Model
}

func New(features []*feats.Feature, opts Options, log *logging.Logger) (*Trainer, error) {
	if log == nil {
		log = logging.Discard()
	}
	if opts.GoldField == "" {
		opts.GoldField = "gold"
	}
	var usedFeats map[string]struct{}
	if opts.UsedFeatsFile != "" {
		var err error
		usedFeats, err = loadUsedFeats(opts.UsedFeatsFile)
		if err != nil {
			return nil, err
		}
	}
	return &Trainer{
		log:      log,
		features: features,
		builder:  events.NewBuilder(opts.Cutoff, usedFeats, log),
		opts:     opts,
	}, nil
}

func loadUsedFeats(filename string) (map[string]struct{}, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open used-feats file: %w", err)
	}
	defer f.Close()

	used := make(map[string]struct{})
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			used[line] = struct{}{}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read used-feats file: %w", err)
	}
	return used, nil
}

// ReadEvents featurizes every sentence of the stream and folds it
// into the event buffers. Raw input carries a header naming the
// columns; featurized input puts the gold label in the first column
// and has no header.
func (t *Trainer) ReadEvents(r io.Reader) error {
	reader := corpus.NewReader(r, t.log)

	goldIdx := 0
	if !t.opts.InputFeaturized {
		header, err := reader.ReadHeader()
		if err != nil {
			return fmt.Errorf("failed to read input header: %w", err)
		}
		idx, ok := header.Index[t.opts.GoldField]
		if !ok {
			return fmt.Errorf("input has no gold label column named %q", t.opts.GoldField)
		}
		goldIdx = idx
		if err := feats.BindFeaturesToIndices(t.features, header.Index); err != nil {
			return err
		}
	}

	t.log.Info("featurizing sentences...")
	reporter := progress.NewReporter(t.log, 1000)
	for {
		sen, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}

		golds := make([]string, len(sen.Tokens))
		for i, tok := range sen.Tokens {
			if goldIdx >= len(tok) {
				return fmt.Errorf("token %q has no column %d for the gold label", strings.Join(tok, "\t"), goldIdx)
			}
			golds[i] = tok[goldIdx]
		}

		var sentenceFeats [][]string
		if t.opts.InputFeaturized {
			sentenceFeats = feats.UseFeaturizedSentence(sen.Tokens, goldIdx)
		} else {
			sentenceFeats = feats.FeaturizeSentence(sen.Tokens, t.features)
		}
		if err := t.builder.AddSentence(sentenceFeats, golds); err != nil {
			return err
		}
		reporter.Step()
	}
	reporter.Done()
	return nil
}

// BuildEvents applies the cutoff and freezes the training problem.
func (t *Trainer) BuildEvents() (*events.Events, error) {
	if t.events != nil {
		return t.events, nil
	}
	built, err := t.builder.Build()
	if err != nil {
		return nil, err
	}
	t.events = built
	return built, nil
}

// Train fits the classifier on the frozen events.
func (t *Trainer) Train() error {
	ev, err := t.BuildEvents()
	if err != nil {
		return err
	}
	labels := make([]int, len(ev.Labels))
	for i, l := range ev.Labels {
		labels[i] = int(l)
	}
	t.model = maxent.New(t.log)
	return t.model.Fit(ev.Matrix, labels, maxent.DefaultConfig())
}

// Save persists the classifier and both number tables.
func (t *Trainer) Save(modelFile, featCounterFile, labelCounterFile string) error {
	if t.model == nil {
		return fmt.Errorf("nothing to save, the model has not been trained")
	}
	t.log.Info("saving model...")
	if err := t.model.Save(modelFile); err != nil {
		return err
	}
	t.log.Info("saving feature and label lists...")
	if err := t.events.FeatBook.Save(featCounterFile); err != nil {
		return err
	}
	if err := t.events.LabelBook.Save(labelCounterFile); err != nil {
		return err
	}
	t.log.Info("done")
	return nil
}
