package feats

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// Lexicon generates phrase-membership features from a phrase list
// file, one phrase per line. A token is tagged "lone" when it is a
// whole phrase, and "start"/"mid"/"end" when it occurs in those
// positions of a multi-word phrase.
type Lexicon struct {
	phrases    map[string]struct{}
	startParts map[string]struct{}
	midParts   map[string]struct{}
	endParts   map[string]struct{}
}

// LoadLexicon reads and indexes a phrase list file.
func LoadLexicon(filename string) (*Lexicon, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open lexicon %s: %w", filename, err)
	}
	defer f.Close()

	lex := &Lexicon{
		phrases:    make(map[string]struct{}),
		startParts: make(map[string]struct{}),
		midParts:   make(map[string]struct{}),
		endParts:   make(map[string]struct{}),
	}
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		phrase := strings.TrimSpace(scanner.Text())
		if phrase == "" {
			continue
		}
		lex.phrases[phrase] = struct{}{}
		words := strings.Fields(phrase)
		if len(words) > 1 {
			lex.startParts[words[0]] = struct{}{}
			lex.endParts[words[len(words)-1]] = struct{}{}
			for _, w := range words[1 : len(words)-1] {
				lex.midParts[w] = struct{}{}
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read lexicon %s: %w", filename, err)
	}
	return lex, nil
}

func (l *Lexicon) wordFeats(word string) []string {
	var feats []string
	if _, ok := l.phrases[word]; ok {
		feats = append(feats, "lone")
	}
	if _, ok := l.endParts[word]; ok {
		feats = append(feats, "end")
	}
	if _, ok := l.startParts[word]; ok {
		feats = append(feats, "start")
	}
	if _, ok := l.midParts[word]; ok {
		feats = append(feats, "mid")
	}
	return feats
}

// EvalSentence returns the membership tags of every token.
func (l *Lexicon) EvalSentence(words []string) [][]string {
	featVec := make([][]string, len(words))
	for i, w := range words {
		featVec[i] = l.wordFeats(w)
	}
	return featVec
}
