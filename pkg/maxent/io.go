package maxent

import (
	"encoding/gob"
	"fmt"
	"io"
	"os"
)

type modelBlob struct {
	NumFeatures int
	NumLabels   int
	Weights     []float64
	Intercepts  []float64
}

// Save writes the trained model as a gob blob.
func (m *Model) Save(filename string) error {
	f, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", filename, err)
	}
	defer f.Close()

	blob := modelBlob{
		NumFeatures: m.NumFeatures,
		NumLabels:   m.NumLabels,
		Weights:     m.Weights,
		Intercepts:  m.Intercepts,
	}
	if err := gob.NewEncoder(f).Encode(&blob); err != nil {
		return fmt.Errorf("failed to encode model %s: %w", filename, err)
	}
	return nil
}

// Load reads a model written by Save.
func Load(filename string) (*Model, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", filename, err)
	}
	defer f.Close()

	var blob modelBlob
	if err := gob.NewDecoder(f).Decode(&blob); err != nil {
		return nil, fmt.Errorf("failed to decode model %s: %w", filename, err)
	}
	m := New(nil)
	m.NumFeatures = blob.NumFeatures
	m.NumLabels = blob.NumLabels
	m.Weights = blob.Weights
	m.Intercepts = blob.Intercepts
	return m, nil
}

// PrintTopWeights emits, per label, the n highest and n lowest
// weighted features with their human-readable names.
func (m *Model) PrintTopWeights(w io.Writer, n int, featNames, labelNames []string) error {
	for label := 0; label < m.NumLabels; label++ {
		name := ""
		if label < len(labelNames) {
			name = labelNames[label]
		}
		best, worst := m.topWeights(label, n, featNames)
		if err := printWeightRow(w, name, best); err != nil {
			return err
		}
		if err := printWeightRow(w, name, worst); err != nil {
			return err
		}
	}
	return nil
}

func printWeightRow(w io.Writer, label string, entries []WeightEntry) error {
	if _, err := fmt.Fprintf(w, "%s", label); err != nil {
		return fmt.Errorf("failed to print weights: %w", err)
	}
	for _, e := range entries {
		if _, err := fmt.Fprintf(w, "\t%g:%s", e.Weight, e.Feature); err != nil {
			return fmt.Errorf("failed to print weights: %w", err)
		}
	}
	if _, err := fmt.Fprintln(w); err != nil {
		return fmt.Errorf("failed to print weights: %w", err)
	}
	return nil
}
