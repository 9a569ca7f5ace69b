package events

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"seqtag/internal/logging"
)

func TestBuildWithoutCutoff(t *testing.T) {
	b := NewBuilder(1, nil, logging.Discard())
	require.NoError(t, b.AddSentence([][]string{{"f=a", "f=b"}, {"f=b"}}, []string{"X", "Y"}))
	require.NoError(t, b.AddSentence([][]string{{"f=c"}}, []string{"X"}))

	ev, err := b.Build()
	require.NoError(t, err)

	rows, cols := ev.Matrix.Dims()
	if rows != 3 || cols != 3 {
		t.Fatalf("matrix %dx%d, want 3x3", rows, cols)
	}
	if len(ev.Labels) != 3 {
		t.Fatalf("labels %v", ev.Labels)
	}
	if len(ev.SentEnd) != 2 || ev.SentEnd[0] != 1 || ev.SentEnd[1] != 2 {
		t.Errorf("sentence ends %v, want [1 2]", ev.SentEnd)
	}
	// Label ids in first-seen order.
	x, _ := ev.LabelBook.Lookup("X")
	y, _ := ev.LabelBook.Lookup("Y")
	if x != 0 || y != 1 {
		t.Errorf("label ids X:%d Y:%d", x, y)
	}
}

func TestDuplicateFeaturesCollapse(t *testing.T) {
	b := NewBuilder(1, nil, logging.Discard())
	require.NoError(t, b.AddSentence([][]string{{"same", "same", "same"}}, []string{"X"}))
	ev, err := b.Build()
	require.NoError(t, err)

	nnz := 0
	ev.Matrix.DoNonZero(func(_, _ int, _ float64) { nnz++ })
	if nnz != 1 {
		t.Errorf("duplicate features must collapse to one cell, got %d", nnz)
	}
}

func TestCutoffCompaction(t *testing.T) {
	b := NewBuilder(2, nil, logging.Discard())
	// "rare" occurs once and must vanish; its token keeps "common".
	require.NoError(t, b.AddSentence([][]string{{"common", "rare"}, {"common"}}, []string{"X", "Y"}))
	require.NoError(t, b.AddSentence([][]string{{"only-rare"}}, []string{"X"}))

	ev, err := b.Build()
	require.NoError(t, err)

	rows, cols := ev.Matrix.Dims()
	if cols != 1 {
		t.Fatalf("expected 1 surviving feature column, got %d", cols)
	}
	// The only-rare token lost every feature, so its row is gone.
	if rows != 2 {
		t.Fatalf("expected 2 surviving rows, got %d", rows)
	}
	if len(ev.Labels) != 2 || ev.Labels[0] != 0 || ev.Labels[1] != 1 {
		t.Errorf("labels after compaction: %v", ev.Labels)
	}
	// The second sentence disappeared entirely.
	if len(ev.SentEnd) != 1 || ev.SentEnd[0] != 1 {
		t.Errorf("sentence ends after compaction: %v", ev.SentEnd)
	}
	no, ok := ev.FeatBook.Lookup("common")
	if !ok || no != 0 {
		t.Errorf("surviving feature should be compacted to id 0, got %d (%t)", no, ok)
	}
}

func TestCutoffEverythingFails(t *testing.T) {
	b := NewBuilder(10, nil, logging.Discard())
	require.NoError(t, b.AddSentence([][]string{{"f"}}, []string{"X"}))
	if _, err := b.Build(); err == nil {
		t.Fatal("cutoff above every count must fail with a clear error")
	}
}

func TestUsedFeatsFilter(t *testing.T) {
	used := map[string]struct{}{"keep": {}}
	b := NewBuilder(1, used, logging.Discard())
	require.NoError(t, b.AddSentence([][]string{{"keep", "drop"}}, []string{"X"}))
	ev, err := b.Build()
	require.NoError(t, err)

	if _, ok := ev.FeatBook.Lookup("drop"); ok {
		t.Error("filtered feature leaked into the book-keeper")
	}
	if _, ok := ev.FeatBook.Lookup("keep"); !ok {
		t.Error("whitelisted feature missing")
	}
}

func TestWriteFeaturized(t *testing.T) {
	b := NewBuilder(1, nil, logging.Discard())
	require.NoError(t, b.AddSentence([][]string{{"a:b", "plain"}}, []string{"X"}))
	require.NoError(t, b.AddSentence([][]string{{"plain"}}, []string{"Y"}))
	ev, err := b.Build()
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, ev.WriteFeaturized(&buf))

	lines := strings.Split(buf.String(), "\n")
	// token, blank, token, blank, trailing empty
	if len(lines) != 5 {
		t.Fatalf("unexpected shape: %q", buf.String())
	}
	if !strings.HasPrefix(lines[0], "X\t") {
		t.Errorf("label must come first: %q", lines[0])
	}
	if strings.Contains(buf.String(), "a:b") {
		t.Error("colons must be escaped")
	}
	if !strings.Contains(buf.String(), "acolonb") {
		t.Errorf("escaped feature missing: %q", buf.String())
	}
	if lines[1] != "" || lines[3] != "" {
		t.Errorf("sentences must be blank-line separated: %q", buf.String())
	}
}

func TestMostInformativeFeatures(t *testing.T) {
	b := NewBuilder(1, nil, logging.Discard())
	// "xish" only occurs with label X, "shared" with both.
	require.NoError(t, b.AddSentence([][]string{{"xish", "shared"}, {"shared"}}, []string{"X", "Y"}))
	require.NoError(t, b.AddSentence([][]string{{"xish"}}, []string{"X"}))
	ev, err := b.Build()
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, ev.MostInformativeFeatures(&buf, -1))
	out := buf.String()

	if !strings.Contains(out, "INF") {
		t.Errorf("single-label pair must report INF: %q", out)
	}
	if !strings.Contains(out, "xish") || !strings.Contains(out, "shared") {
		t.Errorf("report misses features: %q", out)
	}
	// The header line plus one line per (feature, value) pair.
	if got := len(strings.Split(strings.TrimRight(out, "\n"), "\n")); got != 3 {
		t.Errorf("expected header + 2 pairs, got %d lines", got)
	}
}
