package trainer

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"seqtag/internal/logging"
	"seqtag/pkg/feats"
)

const featureConfig = `%YAML 1.1
---
default:
  cutoff: 1
  radius: 0
features:
  - name: form
    type: token
    action_name: getForm
    fields: form
  - name: suff
    type: token
    action_name: suffix
    fields: form
    options:
      n: 2
...
`

const rawCorpus = "form\tgold\n" +
	"the\tDT\ncat\tNN\n\n" +
	"a\tDT\ndog\tNN\n\n"

func newTrainer(t *testing.T, opts Options) *Trainer {
	t.Helper()
	features, err := feats.ParseFeatureSet(featureConfig)
	require.NoError(t, err)
	tr, err := New(features, opts, logging.Discard())
	require.NoError(t, err)
	return tr
}

func TestReadEventsShapes(t *testing.T) {
	tr := newTrainer(t, Options{Cutoff: 1, GoldField: "gold"})
	require.NoError(t, tr.ReadEvents(strings.NewReader(rawCorpus)))

	ev, err := tr.BuildEvents()
	require.NoError(t, err)
	rows, _ := ev.Matrix.Dims()
	if rows != 4 {
		t.Errorf("expected 4 event rows, got %d", rows)
	}
	if ev.LabelBook.Size() != 2 {
		t.Errorf("expected 2 labels, got %d", ev.LabelBook.Size())
	}
	if len(ev.SentEnd) != 2 {
		t.Errorf("expected 2 sentence ends, got %v", ev.SentEnd)
	}
}

func TestMissingGoldColumn(t *testing.T) {
	tr := newTrainer(t, Options{Cutoff: 1, GoldField: "nope"})
	if err := tr.ReadEvents(strings.NewReader(rawCorpus)); err == nil {
		t.Fatal("missing gold column must fail")
	}
}

// TestFeaturizedRoundTrip feeds the featurized emission back through a
// featurized-input trainer and expects the identical event matrix.
func TestFeaturizedRoundTrip(t *testing.T) {
	tr := newTrainer(t, Options{Cutoff: 1, GoldField: "gold"})
	require.NoError(t, tr.ReadEvents(strings.NewReader(rawCorpus)))
	ev, err := tr.BuildEvents()
	require.NoError(t, err)

	var featurized bytes.Buffer
	require.NoError(t, ev.WriteFeaturized(&featurized))

	tr2, err := New(nil, Options{Cutoff: 1, InputFeaturized: true}, logging.Discard())
	require.NoError(t, err)
	require.NoError(t, tr2.ReadEvents(strings.NewReader(featurized.String())))
	ev2, err := tr2.BuildEvents()
	require.NoError(t, err)

	r1, c1 := ev.Matrix.Dims()
	r2, c2 := ev2.Matrix.Dims()
	if r1 != r2 || c1 != c2 {
		t.Fatalf("matrix shape changed: %dx%d vs %dx%d", r1, c1, r2, c2)
	}
	if len(ev.Labels) != len(ev2.Labels) {
		t.Fatalf("label count changed")
	}
	for i := range ev.Labels {
		n1, _ := ev.LabelBook.NameOf(int(ev.Labels[i]))
		n2, _ := ev2.LabelBook.NameOf(int(ev2.Labels[i]))
		if n1 != n2 {
			t.Errorf("row %d label %q vs %q", i, n1, n2)
		}
	}
}

func TestTrainAndSave(t *testing.T) {
	tr := newTrainer(t, Options{Cutoff: 1, GoldField: "gold"})
	require.NoError(t, tr.ReadEvents(strings.NewReader(rawCorpus)))
	require.NoError(t, tr.Train())

	dir := t.TempDir()
	require.NoError(t, tr.Save(dir+"/m.model", dir+"/m.featureNumbers.gz", dir+"/m.labelNumbers.gz"))
}
