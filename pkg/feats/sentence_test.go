package feats

import (
	"reflect"
	"testing"
)

func TestNewSentenceStartEnd(t *testing.T) {
	sen := sentenceOf("a", "b", "c")

	start := sentenceNewSentenceStart(sen, nil, nil)
	if len(start[0]) != 1 || len(start[1]) != 0 || len(start[2]) != 0 {
		t.Errorf("start one-hot broken: %v", start)
	}
	end := sentenceNewSentenceEnd(sen, nil, nil)
	if len(end[0]) != 0 || len(end[1]) != 0 || len(end[2]) != 1 {
		t.Errorf("end one-hot broken: %v", end)
	}
}

func TestLemmaLoweredTruthTable(t *testing.T) {
	tests := []struct {
		name  string
		token string
		lemma string
		want  []string
	}{
		{"raised", "budapest", "Budapest", []string{"raised"}},
		{"lowered", "Budapest", "budapest", []string{"1"}},
		{"same", "Budapest", "Budapest", nil},
		{"both lower", "alma", "alma", []string{"N/A"}},
		{"unrelated", "Alma", "korte", []string{"N/A"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sen := [][]string{{tt.token, tt.lemma}}
			got := sentenceLemmaLowered(sen, []int{0, 1}, nil)
			if len(got) != 1 {
				t.Fatalf("one token in, %d out", len(got))
			}
			if !reflect.DeepEqual(got[0], tt.want) {
				t.Errorf("lemmaLowered(%q,%q) = %v, want %v", tt.token, tt.lemma, got[0], tt.want)
			}
			if len(got[0]) > 1 {
				t.Errorf("never more than one entry per token, got %v", got[0])
			}
		})
	}
}

func TestIsBetweenSameCases(t *testing.T) {
	sen := [][]string{
		{"NOUN<CAS<ACC>>"},
		{"ADJ"},
		{"NOUN<CAS<ACC>>"},
		{"NOUN<CAS<DAT>>"},
	}
	got := sentenceIsBetweenSameCases(sen, []int{0}, Options{"max_dist": "6"})
	if len(got[1]) != 1 {
		t.Errorf("position between two ACC nouns should fire: %v", got[1])
	}
	if len(got[0]) != 0 || len(got[2]) != 0 {
		t.Errorf("case-marked positions themselves should not fire: %v", got)
	}
}

func TestIsBetweenSameCasesDistance(t *testing.T) {
	sen := [][]string{
		{"NOUN<CAS<ACC>>"},
		{"X"}, {"X"}, {"X"},
		{"NOUN<CAS<ACC>>"},
	}
	near := sentenceIsBetweenSameCases(sen, []int{0}, Options{"max_dist": "6"})
	if len(near[2]) != 1 {
		t.Errorf("within max_dist should fire: %v", near[2])
	}
	far := sentenceIsBetweenSameCases(sen, []int{0}, Options{"max_dist": "2"})
	if len(far[2]) != 0 {
		t.Errorf("beyond max_dist should not fire: %v", far[2])
	}
}

func TestCapsPattern(t *testing.T) {
	sen := sentenceOf("A", "certain", "Ratio", "Of", "GDP")
	got := sentenceCapsPattern(sen, []int{0}, nil)

	if !reflect.DeepEqual(got[0], []string{"p0", "l1", "p0l1"}) {
		t.Errorf("lone capital run: %v", got[0])
	}
	if len(got[1]) != 0 {
		t.Errorf("lowercase token should have no caps features: %v", got[1])
	}
	// Ratio Of GDP is one run of three.
	if !reflect.DeepEqual(got[3], []string{"p1", "l3", "p1l3"}) {
		t.Errorf("middle of run: %v", got[3])
	}
}

func TestKrPattsNgramFamily(t *testing.T) {
	sen := [][]string{{"NOUN"}, {"VERB"}, {"DET"}}
	got := sentenceKrPatts(sen, []int{0}, Options{
		"lang": "hu", "full_kr": "1", "min_length": "2", "max_length": "3", "rad": "2",
	})

	// Position 0 must see the bigram starting at itself: k=0, j=2.
	if !contains(got[0], "0_2_NOUN+VERB") {
		t.Errorf("missing 0_2 bigram at position 0: %v", got[0])
	}
	// And the full trigram.
	if !contains(got[0], "0_3_NOUN+VERB+DET") {
		t.Errorf("missing 0_3 trigram at position 0: %v", got[0])
	}
	// Position 1 sees the bigram one to the left.
	if !contains(got[1], "-1_1_NOUN+VERB") {
		t.Errorf("missing -1_1 bigram at position 1: %v", got[1])
	}
	// Every emitted feature is non-empty.
	for c, feats := range got {
		for _, f := range feats {
			if len(f) == 0 {
				t.Errorf("empty feature at %d", c)
			}
		}
	}
}

func TestKrPattsExtras(t *testing.T) {
	sen := [][]string{{"DET"}, {"ADJ"}, {"NOUN<CAS<ACC>>"}}
	got := sentenceKrPatts(sen, []int{0}, Options{
		"lang": "hu", "full_kr": "1", "min_length": "2", "max_length": "2", "rad": "1",
		"since_dt": "1",
	})
	if !contains(got[2], "since_dt_DET+ADJ+NOUN<CAS<ACC>>") {
		t.Errorf("since_dt run missing: %v", got[2])
	}

	casSen := [][]string{{"NOUN<CAS<ACC>>"}, {"NOUN<CAS<DAT>>"}}
	casGot := sentenceKrPatts(casSen, []int{0}, Options{
		"lang": "hu", "full_kr": "1", "min_length": "2", "max_length": "2", "rad": "1",
		"cas_diff": "1",
	})
	if !contains(casGot[1], "cas_diff") {
		t.Errorf("cas_diff marker missing: %v", casGot[1])
	}

	possSen := [][]string{{"NOUN<POSS>"}, {"ADJ"}, {"NOUN<CAS<NOM>>"}}
	possGot := sentenceKrPatts(possSen, []int{0}, Options{
		"lang": "hu", "full_kr": "1", "min_length": "2", "max_length": "2", "rad": "1",
		"poss_connect": "1",
	})
	found := false
	for _, f := range possGot[0] {
		if len(f) > len("possession_") && f[:len("possession_")] == "possession_" {
			found = true
		}
	}
	if !found {
		t.Errorf("possession link missing: %v", possGot[0])
	}
}
