package feats

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"
)

var casCodeRe = regexp.MustCompile(`CAS<(...)>`)

func init() {
	registerSentence("newSentenceStart", sentenceNewSentenceStart)
	registerSentence("newSentenceEnd", sentenceNewSentenceEnd)
	registerSentence("isBetweenSameCases", sentenceIsBetweenSameCases)
	registerSentence("capsPattern", sentenceCapsPattern)
	registerSentence("krPatts", sentenceKrPatts)
	registerSentence("lemmaLowered", sentenceLemmaLowered)
}

// sentenceNewSentenceStart fires on the first token only.
func sentenceNewSentenceStart(sen [][]string, _ []int, _ Options) [][]string {
	featVec := make([][]string, len(sen))
	if len(sen) > 0 {
		featVec[0] = one()
	}
	return featVec
}

// sentenceNewSentenceEnd fires on the last token only.
func sentenceNewSentenceEnd(sen [][]string, _ []int, _ Options) [][]string {
	featVec := make([][]string, len(sen))
	if len(sen) > 0 {
		featVec[len(sen)-1] = one()
	}
	return featVec
}

func caseOf(kr string) (string, bool) {
	if !strings.Contains(kr, "CAS") {
		return "", false
	}
	m := casCodeRe.FindStringSubmatch(kr)
	if m == nil {
		return "NO_CASE", true
	}
	return m[1], true
}

// sentenceIsBetweenSameCases marks tokens lying between two
// case-marked nouns that share their grammatical case within max_dist
// positions. Option max_dist defaults to 6.
func sentenceIsBetweenSameCases(sen [][]string, fields []int, opts Options) [][]string {
	maxDist := opts.Int("max_dist", 6)
	f := fields[0]
	featVec := make([][]string, len(sen))

	nounCases := make([]string, len(sen))
	hasCase := make([]bool, len(sen))
	for c, tok := range sen {
		nounCases[c], hasCase[c] = caseOf(tok[f])
	}

	type anchor struct {
		cas string
		pos int
		ok  bool
	}
	left := make([]anchor, len(sen))
	cur := anchor{}
	for j := range sen {
		if hasCase[j] {
			cur = anchor{nounCases[j], j, true}
			left[j] = anchor{}
		} else {
			left[j] = cur
		}
	}
	right := make([]anchor, len(sen))
	cur = anchor{}
	for j := len(sen) - 1; j >= 0; j-- {
		if hasCase[j] {
			right[j] = anchor{}
			cur = anchor{nounCases[j], j, true}
		} else {
			right[j] = cur
		}
	}

	for j := range sen {
		if left[j].ok && right[j].ok && left[j].cas == right[j].cas {
			if abs(right[j].pos-left[j].pos) <= maxDist {
				featVec[j] = one()
			}
		}
	}
	return featVec
}

// sentenceCapsPattern describes runs of capitalized tokens: position
// inside the run, run length, and the pair of the two.
func sentenceCapsPattern(sen [][]string, fields []int, _ Options) [][]string {
	f := fields[0]
	featVec := make([][]string, len(sen))

	upper := make([]bool, len(sen))
	for c, tok := range sen {
		form := tok[f]
		upper[c] = strings.ToLower(form) != form
	}

	runLen := make(map[int]int)
	start := -1
	for pos := 0; pos <= len(sen); pos++ {
		flagged := pos < len(sen) && upper[pos]
		if !flagged {
			if start != -1 {
				runLen[start] = pos - start
			}
			start = -1
			continue
		}
		if start == -1 {
			start = pos
		}
	}

	start = -1
	for pos := range sen {
		if !upper[pos] {
			start = -1
			continue
		}
		if start == -1 {
			start = pos
		}
		p := strconv.Itoa(pos - start)
		l := strconv.Itoa(runLen[start])
		featVec[pos] = []string{"p" + p, "l" + l, "p" + p + "l" + l}
	}
	return featVec
}

// getPosTag extracts the POS prefix of a KR analysis.
func getPosTag(kr string) string {
	if i := strings.LastIndex(kr, "/"); i != -1 {
		kr = kr[i+1:]
	}
	pieces := nonAlnum.Split(kr, -1)
	if len(pieces) == 0 {
		return ""
	}
	return pieces[0]
}

func isDetTag(tag, lang string) bool {
	if lang == "en" {
		return strings.HasPrefix(tag, "D")
	}
	return strings.Contains(tag, "DET")
}

func isNounTag(tag, lang string) bool {
	if lang == "en" {
		return strings.HasPrefix(tag, "N")
	}
	return strings.Contains(tag, "NOUN")
}

// sentenceKrPatts emits joined POS-run n-grams around each position,
// plus optional determiner-run, case-difference and possessive-link
// families. Options: min_length (2), max_length (4), rad (3),
// lang (hu), full_kr (false), msd (false), since_dt (false),
// cas_diff (false), poss_connect (false).
func sentenceKrPatts(sen [][]string, fields []int, opts Options) [][]string {
	lang := opts.String("lang", "hu")
	minLength := opts.Int("min_length", 2)
	maxLength := opts.Int("max_length", 4)
	rad := opts.Int("rad", 3)
	fullKr := opts.Bool("full_kr", false)
	msd := opts.Bool("msd", false)
	sinceDt := opts.Bool("since_dt", false)
	casDiff := opts.Bool("cas_diff", false)
	possConnect := opts.Bool("poss_connect", false)

	f := fields[0]
	senLen := len(sen)
	featVec := make([][]string, senLen)

	krVec := make([]string, senLen)
	for c, tok := range sen {
		switch {
		case lang != "hu":
			if tok[f] != "" {
				krVec[c] = tok[f][:1]
			}
		case msd:
			if v := tokenMsdPos(tok[f], nil); v != nil {
				krVec[c] = v[0]
			}
		case fullKr:
			krVec[c] = tok[f]
		default:
			krVec[c] = getPosTag(tok[f])
		}
	}

	for c := 0; c < senLen; c++ {
		if sinceDt {
			if run, ok := runSinceDeterminer(krVec, c, lang); ok {
				featVec[c] = append(featVec[c], "since_dt_"+run)
			}
		}
		for k := max(-rad, -c); k < rad; k++ {
			jLow := max(-rad+1, minLength+k)
			jHigh := min(rad+2, min(maxLength+k+1, senLen-c+1))
			for j := jLow; j < jHigh; j++ {
				a, b := c+k, c+j
				if a < 0 || b > senLen || b-a < minLength || b-a > maxLength {
					continue
				}
				value := strings.Join(krVec[a:b], "+")
				featVec[c] = append(featVec[c], strconv.Itoa(k)+"_"+strconv.Itoa(j)+"_"+value)
			}
		}
	}

	if casDiff {
		for c := 1; c < senLen; c++ {
			prevCas, prevOK := caseOf(sen[c-1][f])
			curCas, curOK := caseOf(sen[c][f])
			if prevOK && curOK && isNounTag(sen[c-1][f], lang) && isNounTag(sen[c][f], lang) && prevCas != curCas {
				featVec[c] = append(featVec[c], "cas_diff")
			}
		}
	}

	if possConnect {
		for c := 0; c < senLen; c++ {
			if !strings.Contains(sen[c][f], "POSS") {
				continue
			}
			for j := c + 1; j < senLen; j++ {
				if isNounTag(sen[j][f], lang) {
					featVec[c] = append(featVec[c], "possession_"+strings.Join(krVec[c:j+1], "+"))
					break
				}
			}
		}
	}

	return featVec
}

// runSinceDeterminer joins the POS run from the last determiner at or
// before position c up to c.
func runSinceDeterminer(krVec []string, c int, lang string) (string, bool) {
	for d := c; d >= 0; d-- {
		if isDetTag(krVec[d], lang) {
			return strings.Join(krVec[d:c+1], "+"), true
		}
	}
	return "", false
}

// sentenceLemmaLowered compares the casing of the token and its lemma.
// The declaration names the token field first and the lemma field
// second. At most one value is produced per token. For a token with an
// uppercase initial: nothing when the lemma has the same initial, "1"
// when the lemma's initial is its lowercase form, "N/A" otherwise. For
// any other token: "raised" when the lemma's initial is the uppercase
// form of the token's, "N/A" otherwise (also for empty fields).
func sentenceLemmaLowered(sen [][]string, fields []int, _ Options) [][]string {
	tokenField, lemmaField := fields[0], fields[1]
	featVec := make([][]string, len(sen))
	for c, tok := range sen {
		word := firstRune(tok[tokenField])
		lemma := firstRune(tok[lemmaField])
		if word == 0 || lemma == 0 {
			featVec[c] = []string{"N/A"}
			continue
		}
		if !unicode.IsUpper(word) {
			if unicode.IsUpper(lemma) && unicode.ToLower(lemma) == word {
				featVec[c] = []string{"raised"}
			} else {
				featVec[c] = []string{"N/A"}
			}
			continue
		}
		switch {
		case word == lemma:
			// Same initial: the zero outcome, nothing is emitted.
		case unicode.ToLower(word) == lemma:
			featVec[c] = one()
		default:
			featVec[c] = []string{"N/A"}
		}
	}
	return featVec
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
