package tagger

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"seqtag/internal/logging"
	"seqtag/pkg/bookkeeper"
	"seqtag/pkg/feats"
	"seqtag/pkg/maxent"
	"seqtag/pkg/trainer"
	"seqtag/pkg/transmodel"
)

const testFeatureConfig = `%YAML 1.1
---
default:
  cutoff: 1
  radius: 0
features:
  - name: form
    type: token
    action_name: getForm
    fields: form
...
`

// corpusText builds a toy corpus where the surface form fully
// determines the label.
func corpusText(repeat int) string {
	var sb strings.Builder
	sb.WriteString("form\tgold\n")
	for i := 0; i < repeat; i++ {
		sb.WriteString("the\tDT\ncat\tNN\nsleeps\tVB\n\n")
		sb.WriteString("a\tDT\ndog\tNN\nbarks\tVB\n\n")
	}
	return sb.String()
}

// trainArtifacts trains the classifier and the transition model on the
// toy corpus and returns everything a tagger needs.
func trainArtifacts(t *testing.T) (*maxent.Model, *transmodel.Model, *bookkeeper.Book, *bookkeeper.Book, []*feats.Feature) {
	t.Helper()
	log := logging.Discard()

	features, err := feats.ParseFeatureSet(testFeatureConfig)
	require.NoError(t, err)

	tr, err := trainer.New(features, trainer.Options{Cutoff: 1, GoldField: "gold"}, log)
	require.NoError(t, err)
	require.NoError(t, tr.ReadEvents(strings.NewReader(corpusText(8))))
	require.NoError(t, tr.Train())

	ev, err := tr.BuildEvents()
	require.NoError(t, err)

	tm, err := transmodel.New(3, transmodel.DefaultSmooth, log)
	require.NoError(t, err)
	for i := 0; i < 8; i++ {
		tm.ObsSequence([]string{"DT", "NN", "VB"})
		tm.ObsSequence([]string{"DT", "NN", "VB"})
	}
	require.NoError(t, tm.Compile())

	// Persist and reload the classifier so the tagger sees exactly
	// what a fresh process would.
	dir := t.TempDir()
	modelFile := filepath.Join(dir, "toy.model")
	require.NoError(t, tr.Save(modelFile,
		filepath.Join(dir, "toy.featureNumbers.gz"),
		filepath.Join(dir, "toy.labelNumbers.gz")))
	model, err := maxent.Load(modelFile)
	require.NoError(t, err)
	return model, tm, ev.FeatBook, ev.LabelBook, features
}

func newTestTagger(t *testing.T) *Tagger {
	t.Helper()
	model, tm, featBook, labelBook, features := trainArtifacts(t)
	tagger, err := New(Config{
		Features:     features,
		Model:        model,
		Trans:        tm,
		FeatBook:     featBook,
		LabelBook:    labelBook,
		LMW:          1.0,
		TagFieldName: "label",
		Log:          logging.Discard(),
	})
	require.NoError(t, err)
	return tagger
}

func TestTagStreamAppendsLabels(t *testing.T) {
	tagger := newTestTagger(t)

	input := "form\tgold\nthe\tDT\ncat\tNN\nsleeps\tVB\n\n"
	var out bytes.Buffer
	require.NoError(t, tagger.TagStream(strings.NewReader(input), &out, ModeTag))

	lines := strings.Split(strings.TrimRight(out.String(), "\n"), "\n")
	require.Len(t, lines, 4)
	if lines[0] != "form\tgold\tlabel" {
		t.Fatalf("header = %q", lines[0])
	}
	wantTags := []string{"DT", "NN", "VB"}
	for i, want := range wantTags {
		cols := strings.Split(lines[i+1], "\t")
		require.Len(t, cols, 3)
		if cols[2] != want {
			t.Errorf("token %d tagged %q, want %q", i, cols[2], want)
		}
	}
}

func TestTagStreamPreservesComments(t *testing.T) {
	tagger := newTestTagger(t)

	input := "form\tgold\n# doc 42\nthe\tDT\n\n"
	var out bytes.Buffer
	require.NoError(t, tagger.TagStream(strings.NewReader(input), &out, ModeTag))
	if !strings.Contains(out.String(), "# doc 42\n") {
		t.Errorf("comment lost: %q", out.String())
	}
}

func TestUnknownFeaturesSilentlyDropped(t *testing.T) {
	tagger := newTestTagger(t)

	// "unseen" never occurred in training; the sentence still tags.
	input := "form\tgold\nunseen\tNN\n\n"
	var out bytes.Buffer
	require.NoError(t, tagger.TagStream(strings.NewReader(input), &out, ModeTag))

	lines := strings.Split(strings.TrimRight(out.String(), "\n"), "\n")
	require.Len(t, lines, 2)
	cols := strings.Split(lines[1], "\t")
	require.Len(t, cols, 3)
	inventory := map[string]bool{"DT": true, "NN": true, "VB": true}
	if !inventory[cols[2]] {
		t.Errorf("tag %q outside the model inventory", cols[2])
	}
}

func TestFeaturizeMode(t *testing.T) {
	tagger := newTestTagger(t)

	input := "form\tgold\ncat\tNN\n\n"
	var out bytes.Buffer
	require.NoError(t, tagger.TagStream(strings.NewReader(input), &out, ModeFeaturize))
	if !strings.Contains(out.String(), "form[0]=cat") {
		t.Errorf("featurized output missing features: %q", out.String())
	}
}

// TestRoundTripTagging persists every artifact, reloads in fresh
// structures and checks the tagged output is byte-identical.
func TestRoundTripTagging(t *testing.T) {
	model, tm, featBook, labelBook, features := trainArtifacts(t)

	dir := t.TempDir()
	modelFile := filepath.Join(dir, "m.model")
	transFile := filepath.Join(dir, "m.transmodel")
	featFile := filepath.Join(dir, "m.featureNumbers.gz")
	labelFile := filepath.Join(dir, "m.labelNumbers.gz")
	require.NoError(t, model.Save(modelFile))
	require.NoError(t, tm.Save(transFile))
	require.NoError(t, featBook.Save(featFile))
	require.NoError(t, labelBook.Save(labelFile))

	direct, err := New(Config{
		Features: features, Model: model, Trans: tm,
		FeatBook: featBook, LabelBook: labelBook,
		LMW: 1.0, Log: logging.Discard(),
	})
	require.NoError(t, err)

	loadedModel, err := maxent.Load(modelFile)
	require.NoError(t, err)
	loadedTrans, err := transmodel.Load(transFile)
	require.NoError(t, err)
	loadedFeat, err := bookkeeper.Load(featFile)
	require.NoError(t, err)
	loadedLabel, err := bookkeeper.Load(labelFile)
	require.NoError(t, err)

	reloaded, err := New(Config{
		Features: features, Model: loadedModel, Trans: loadedTrans,
		FeatBook: loadedFeat, LabelBook: loadedLabel,
		LMW: 1.0, Log: logging.Discard(),
	})
	require.NoError(t, err)

	input := corpusText(2)
	var a, b bytes.Buffer
	require.NoError(t, direct.TagStream(strings.NewReader(input), &a, ModeTag))
	require.NoError(t, reloaded.TagStream(strings.NewReader(input), &b, ModeTag))
	if a.String() != b.String() {
		t.Error("tagging differs between in-process and reloaded artifacts")
	}
	// Training data tags itself correctly end to end.
	for _, line := range strings.Split(a.String(), "\n") {
		cols := strings.Split(line, "\t")
		if len(cols) == 3 && cols[1] != "gold" {
			if cols[2] != cols[1] {
				t.Errorf("token %q tagged %q, gold %q", cols[0], cols[2], cols[1])
			}
		}
	}
}
