package feats

import (
	"fmt"
	"strconv"
	"strings"
)

// Feature kinds.
const (
	KindToken    = "token"
	KindSentence = "sentence"
	KindLex      = "lex"
)

// Feature is one bound declaration of the configuration: a function
// (or lexicon) applied to named columns, expanded around each position
// by a context radius. A negative radius means unbounded.
type Feature struct {
	Kind       string
	Name       string
	ActionName string
	Fields     []string
	Radius     int
	Cutoff     int
	Options    Options

	fieldIndices []int
	tokenFn      TokenFunc
	sentenceFn   SentenceFunc
	lexicon      *Lexicon
}

// NewFeature validates a declaration and resolves its action. Unknown
// action names are rejected here, at configuration load.
func NewFeature(kind, name, actionName string, fields []string, radius, cutoff int, options Options) (*Feature, error) {
	f := &Feature{
		Kind:       kind,
		Name:       name,
		ActionName: actionName,
		Fields:     fields,
		Radius:     radius,
		Cutoff:     cutoff,
		Options:    options,
	}
	if options == nil {
		f.Options = Options{}
	}

	if (kind == KindToken || kind == KindLex) && len(fields) != 1 {
		return nil, fmt.Errorf("feature %q: %s field count must be one, not %d", name, kind, len(fields))
	}

	switch kind {
	case KindLex:
		if len(f.Options) > 0 {
			return nil, fmt.Errorf("feature %q: lexicon features do not support options", name)
		}
		lex, err := LoadLexicon(actionName)
		if err != nil {
			return nil, fmt.Errorf("feature %q: %w", name, err)
		}
		f.lexicon = lex
	case KindToken:
		fn, ok := LookupToken(actionName)
		if !ok {
			return nil, fmt.Errorf("feature %q: unknown token action %q", name, actionName)
		}
		f.tokenFn = fn
	case KindSentence:
		fn, ok := LookupSentence(actionName)
		if !ok {
			return nil, fmt.Errorf("feature %q: unknown sentence action %q", name, actionName)
		}
		f.sentenceFn = fn
	default:
		return nil, fmt.Errorf("feature %q: unknown kind %q", name, kind)
	}
	return f, nil
}

// BindIndices resolves the declared field names against the input
// header. Must be called before EvalSentence.
func (f *Feature) BindIndices(index map[string]int) error {
	f.fieldIndices = make([]int, len(f.Fields))
	for i, name := range f.Fields {
		// Numeric fields address columns directly.
		if n, err := strconv.Atoi(name); err == nil {
			f.fieldIndices[i] = n
			continue
		}
		idx, ok := index[name]
		if !ok {
			return fmt.Errorf("feature %q: input has no column named %q", f.Name, name)
		}
		f.fieldIndices[i] = idx
	}
	return nil
}

// EvalSentence computes the expanded feature strings of every
// position: the raw per-position values of the action, copied over the
// radius window with the positional offset baked into the name.
func (f *Feature) EvalSentence(sen [][]string) [][]string {
	var featVec [][]string
	switch f.Kind {
	case KindToken:
		featVec = make([][]string, len(sen))
		for i, tok := range sen {
			featVec[i] = f.tokenFn(tok[f.fieldIndices[0]], f.Options)
		}
	case KindLex:
		words := make([]string, len(sen))
		for i, tok := range sen {
			words[i] = tok[f.fieldIndices[0]]
		}
		featVec = f.lexicon.EvalSentence(words)
	case KindSentence:
		featVec = f.sentenceFn(sen, f.fieldIndices, f.Options)
	}
	return f.expand(len(sen), featVec)
}

// expand copies each position's raw features over the radius window,
// tagging every copy with its offset: name[offset]=value. Empty values
// are dropped.
func (f *Feature) expand(senLen int, featVec [][]string) [][]string {
	radius := f.Radius
	if radius < 0 {
		radius = senLen
	}
	expanded := make([][]string, senLen)
	for c := 0; c < senLen; c++ {
		lo := max(c-radius, 0)
		hi := min(c+radius+1, senLen)
		for pos := lo; pos < hi; pos++ {
			for _, feat := range featVec[pos] {
				if feat == "" {
					continue
				}
				expanded[c] = append(expanded[c],
					f.Name+"["+strconv.Itoa(pos-c)+"]="+feat)
			}
		}
	}
	return expanded
}

// FeaturizeSentence runs every feature over the sentence and
// concatenates the per-position outputs in declaration order.
func FeaturizeSentence(sen [][]string, features []*Feature) [][]string {
	sentenceFeats := make([][]string, len(sen))
	for _, feature := range features {
		for c, feats := range feature.EvalSentence(sen) {
			sentenceFeats[c] = append(sentenceFeats[c], feats...)
		}
	}
	return sentenceFeats
}

// BindFeaturesToIndices binds every declaration to the header columns.
func BindFeaturesToIndices(features []*Feature, index map[string]int) error {
	for _, f := range features {
		if err := f.BindIndices(index); err != nil {
			return err
		}
	}
	return nil
}

// UseFeaturizedSentence treats the input sentence as already
// featurized: each token's columns are its feature strings. The label
// column, if given (labelField >= 0), is skipped.
func UseFeaturizedSentence(sen [][]string, labelField int) [][]string {
	sentenceFeats := make([][]string, len(sen))
	for c, feats := range sen {
		kept := make([]string, 0, len(feats))
		for i, feat := range feats {
			if i == labelField || strings.TrimSpace(feat) == "" {
				continue
			}
			kept = append(kept, feat)
		}
		sentenceFeats[c] = kept
	}
	return sentenceFeats
}
