package transmodel

import (
	"encoding/gob"
	"fmt"
	"os"
)

type modelBlob struct {
	Order     int
	Boundary  string
	LogSmooth float64

	Lambda1 float64
	Lambda2 float64
	Lambda3 float64

	UnigramLogProb map[string]float64
	BigramLogProb  map[Bigram]float64
	TrigramLogProb map[Trigram]float64
	TagList        []string
}

// Save serializes the compiled model. Raw counts are not persisted;
// the log-probabilities and lambdas carry everything tagging needs.
func (m *Model) Save(filename string) error {
	if !m.compiled {
		return fmt.Errorf("refusing to save an uncompiled transition model")
	}
	f, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", filename, err)
	}
	defer f.Close()

	blob := modelBlob{
		Order:          m.Order,
		Boundary:       m.Boundary,
		LogSmooth:      m.LogSmooth,
		Lambda1:        m.Lambda1,
		Lambda2:        m.Lambda2,
		Lambda3:        m.Lambda3,
		UnigramLogProb: m.UnigramLogProb,
		BigramLogProb:  m.BigramLogProb,
		TrigramLogProb: m.TrigramLogProb,
		TagList:        m.TagList,
	}
	if err := gob.NewEncoder(f).Encode(&blob); err != nil {
		return fmt.Errorf("failed to encode transition model %s: %w", filename, err)
	}
	return nil
}

// Load reads a model written by Save. The result is read-only: it can
// score and decode but not observe further sequences.
func Load(filename string) (*Model, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", filename, err)
	}
	defer f.Close()

	var blob modelBlob
	if err := gob.NewDecoder(f).Decode(&blob); err != nil {
		return nil, fmt.Errorf("failed to decode transition model %s: %w", filename, err)
	}

	m, err := New(blob.Order, 1, nil)
	if err != nil {
		return nil, err
	}
	m.Boundary = blob.Boundary
	m.LogSmooth = blob.LogSmooth
	m.Lambda1 = blob.Lambda1
	m.Lambda2 = blob.Lambda2
	m.Lambda3 = blob.Lambda3
	m.UnigramLogProb = blob.UnigramLogProb
	m.BigramLogProb = blob.BigramLogProb
	m.TrigramLogProb = blob.TrigramLogProb
	m.TagList = blob.TagList
	m.compiled = true
	return m, nil
}
