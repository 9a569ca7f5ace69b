package feats

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"
)

// Process-wide immutable patterns, compiled once at start.
var (
	nonAlnum         = regexp.MustCompile(`\W+`)
	capPeriodRe      = regexp.MustCompile(`^[A-Z]\.$`)
	digitDashRe      = regexp.MustCompile(`^[0-9]+-[0-9]+`)
	digitSlashRe     = regexp.MustCompile(`^[0-9]+/[0-9]+`)
	digitCommaRe     = regexp.MustCompile(`^[0-9]+[,.][0-9]+`)
	yearDecadeRe     = regexp.MustCompile(`^([0-9][0-9]|[0-9][0-9][0-9][0-9])s$`)
	hfstTagRe        = regexp.MustCompile(`\[([^\]]+)\]`)
	punctuationChars = `,.!"'():?<>[];{}`
	numberChars      = "0123456789,.-%"
)

func one() []string { return []string{"1"} }

// flag encodes a predicate outcome; false predicates emit nothing,
// which is what the radius expansion drop of zero values amounts to.
func flag(b bool) []string {
	if b {
		return one()
	}
	return nil
}

// stupidStem cuts the token at its last hyphen.
func stupidStem(form string) string {
	if r := strings.LastIndex(form, "-"); r != -1 {
		return form[:r]
	}
	return form
}

// isUpperString reports whether s has at least one cased rune and all
// its cased runes are uppercase.
func isUpperString(s string) bool {
	cased := false
	for _, r := range s {
		if unicode.IsLower(r) {
			return false
		}
		if unicode.IsUpper(r) {
			cased = true
		}
	}
	return cased
}

// isLowerString is the lowercase counterpart of isUpperString.
func isLowerString(s string) bool {
	cased := false
	for _, r := range s {
		if unicode.IsUpper(r) {
			return false
		}
		if unicode.IsLower(r) {
			cased = true
		}
	}
	return cased
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func firstRune(s string) rune {
	for _, r := range s {
		return r
	}
	return 0
}

func init() {
	registerToken("hasCap", tokenHasCap)
	registerToken("lowerCase", tokenLowerCase)
	registerToken("isCap", tokenIsCap)
	registerToken("notCapitalized", tokenNotCapitalized)
	registerToken("isAllCaps", tokenIsAllCaps)
	registerToken("isCamel", tokenIsCamel)
	registerToken("threeCaps", tokenThreeCaps)
	registerToken("startsWithNumber", tokenStartsWithNumber)
	registerToken("isNumber", tokenIsNumber)
	registerToken("hasNumber", tokenHasNumber)
	registerToken("hasDash", tokenHasDash)
	registerToken("hasUnderscore", tokenHasUnderscore)
	registerToken("hasPeriod", tokenHasPeriod)
	registerToken("capPeriod", tokenCapPeriod)
	registerToken("isDigit", tokenIsDigit)
	registerToken("oneDigitNum", digitNum(1))
	registerToken("twoDigitNum", digitNum(2))
	registerToken("threeDigitNum", digitNum(3))
	registerToken("fourDigitNum", digitNum(4))
	registerToken("isPunctuation", tokenIsPunctuation)
	registerToken("containsDigitAndDash", matchFlag(digitDashRe))
	registerToken("containsDigitAndSlash", matchFlag(digitSlashRe))
	registerToken("containsDigitAndComma", matchFlag(digitCommaRe))
	registerToken("yearDecade", matchFlag(yearDecadeRe))
	registerToken("stupidStem", tokenStupidStem)
	registerToken("longPattern", tokenLongPattern)
	registerToken("shortPattern", tokenShortPattern)
	registerToken("prefix", tokenPrefix)
	registerToken("suffix", tokenSuffix)
	registerToken("ngrams", tokenNgrams)
	registerToken("firstChar", tokenFirstChar)
	registerToken("getForm", tokenGetForm)
	registerToken("chunkTag", tokenChunkTag)
	registerToken("chunkType", tokenChunkType)
	registerToken("chunkPart", tokenChunkPart)
	registerToken("getNpPart", tokenGetNpPart)
	registerToken("posStart", tokenPosStart)
	registerToken("posEnd", tokenPosEnd)
	registerToken("getTagType", tokenGetTagType)
	registerToken("OOV", tokenOOV)
	registerToken("getKrLemma", tokenGetKrLemma)
	registerToken("getKrPos", tokenGetKrPos)
	registerToken("krPieces", tokenKrPieces)
	registerToken("fullKrPieces", tokenFullKrPieces)
	registerToken("krFeats", tokenKrFeats)
	registerToken("krConjs", tokenKrConjs)
	registerToken("msdPos", tokenMsdPos)
	registerToken("msdPosAndChar", tokenMsdPosAndChar)
	registerToken("humorPieces", tokenHumorPieces)
	registerToken("hfstPieces", tokenHfstPieces)
	registerToken("udPieces", tokenUdPieces)
	registerToken("udPos", tokenUdPos)
	registerToken("mmoPieces", tokenMmoPieces)
	registerToken("wordNetPos", tokenWordNetPos)
	registerToken("getPennTags", tokenGetPennTags)
	registerToken("plural", tokenPlural)
	registerToken("getBNCtag", tokenGetBNCtag)
}

// Orthographic shape predicates.

func tokenHasCap(form string, _ Options) []string {
	return flag(strings.ToLower(form) != form)
}

func tokenLowerCase(form string, _ Options) []string {
	return flag(strings.ToLower(form) == form)
}

func tokenIsCap(form string, _ Options) []string {
	r := firstRune(form)
	return flag(r != 0 && r != unicode.ToLower(r))
}

func tokenNotCapitalized(form string, _ Options) []string {
	r := firstRune(form)
	return flag(r != 0 && r == unicode.ToLower(r))
}

func tokenIsAllCaps(form string, _ Options) []string {
	return flag(isUpperString(stupidStem(form)))
}

func tokenIsCamel(form string, _ Options) []string {
	runes := []rune(form)
	if len(runes) < 2 {
		return nil
	}
	tail := string(runes[1:])
	return flag(unicode.IsLower(runes[1]) && !isUpperString(tail) && !isLowerString(tail))
}

func tokenThreeCaps(form string, _ Options) []string {
	return flag(len([]rune(form)) == 3 && isUpperString(stupidStem(form)))
}

func tokenStartsWithNumber(form string, _ Options) []string {
	r := firstRune(form)
	return flag(r >= '0' && r <= '9')
}

func tokenIsNumber(form string, _ Options) []string {
	stem := stupidStem(form)
	if stem == "" {
		return nil
	}
	for _, r := range stem {
		if !strings.ContainsRune(numberChars, r) {
			return nil
		}
	}
	return one()
}

func tokenHasNumber(form string, _ Options) []string {
	return flag(strings.ContainsAny(form, "0123456789"))
}

func tokenHasDash(form string, _ Options) []string {
	return flag(strings.Contains(form, "-"))
}

func tokenHasUnderscore(form string, _ Options) []string {
	return flag(strings.Contains(form, "_"))
}

func tokenHasPeriod(form string, _ Options) []string {
	return flag(strings.Contains(form, "."))
}

func tokenCapPeriod(form string, _ Options) []string {
	return flag(capPeriodRe.MatchString(form))
}

func tokenIsDigit(form string, _ Options) []string {
	return flag(isDigits(form))
}

func digitNum(n int) TokenFunc {
	return func(form string, _ Options) []string {
		return flag(len(form) == n && isDigits(form))
	}
}

func tokenIsPunctuation(form string, _ Options) []string {
	if form == "" {
		return nil
	}
	for _, r := range form {
		if !strings.ContainsRune(punctuationChars, r) {
			return nil
		}
	}
	return one()
}

func matchFlag(re *regexp.Regexp) TokenFunc {
	return func(form string, _ Options) []string {
		return flag(re.MatchString(form))
	}
}

// Pattern folding.

func tokenStupidStem(form string, _ Options) []string {
	return []string{stupidStem(form)}
}

func tokenLongPattern(form string, _ Options) []string {
	var pattern strings.Builder
	for _, r := range form {
		switch {
		case unicode.IsLower(r):
			pattern.WriteByte('a')
		case unicode.IsUpper(r):
			pattern.WriteByte('A')
		default:
			pattern.WriteByte('_')
		}
	}
	return []string{pattern.String()}
}

func tokenShortPattern(form string, _ Options) []string {
	var pattern strings.Builder
	prev := byte(0)
	for _, r := range form {
		var cur byte
		switch {
		case unicode.IsLower(r):
			cur = 'a'
		case unicode.IsUpper(r):
			cur = 'A'
		default:
			cur = '_'
		}
		if cur != prev {
			pattern.WriteByte(cur)
			prev = cur
		}
	}
	return []string{pattern.String()}
}

// Affix and substring features.

// tokenPrefix returns the first n characters. Option n defaults to 3.
func tokenPrefix(form string, opts Options) []string {
	n := opts.Int("n", 3)
	runes := []rune(form)
	if n > len(runes) {
		n = len(runes)
	}
	return []string{string(runes[:n])}
}

// tokenSuffix returns the last n characters. Option n defaults to 3.
func tokenSuffix(form string, opts Options) []string {
	n := opts.Int("n", 3)
	runes := []rune(form)
	if n > len(runes) {
		n = len(runes)
	}
	return []string{string(runes[len(runes)-n:])}
}

// tokenNgrams emits the character n-grams of the token with @ marking
// the token edges. Option n defaults to 3.
func tokenNgrams(form string, opts Options) []string {
	n := opts.Int("n", 3)
	runes := []rune(form)
	var f []string
	for c := 0; c <= len(runes)-n; c++ {
		gram := string(runes[c : c+n])
		switch {
		case c == 0:
			f = append(f, "@"+gram)
		case c+n == len(runes):
			f = append(f, gram+"@")
		default:
			f = append(f, gram)
		}
	}
	return f
}

func tokenFirstChar(form string, _ Options) []string {
	if form == "" {
		return nil
	}
	return []string{string(firstRune(form))}
}

func tokenGetForm(form string, _ Options) []string {
	if !strings.Contains(form, "_") {
		return []string{form}
	}
	return []string{"MERGED"}
}

// Chunk tag helpers.

func tokenChunkTag(tag string, _ Options) []string {
	return []string{tag}
}

func tokenChunkType(tag string, _ Options) []string {
	if len(tag) < 2 {
		return []string{""}
	}
	return []string{tag[2:]}
}

func tokenChunkPart(tag string, _ Options) []string {
	if tag == "" {
		return nil
	}
	return []string{tag[:1]}
}

func tokenGetNpPart(tag string, _ Options) []string {
	if tag == "O" || len(tag) < 2 || tag[2:] != "NP" {
		return []string{"O"}
	}
	return []string{tag[:1]}
}

func tokenPosStart(tag string, _ Options) []string {
	if tag == "" {
		return nil
	}
	return []string{tag[:1]}
}

func tokenPosEnd(tag string, _ Options) []string {
	if tag == "" {
		return nil
	}
	return []string{tag[len(tag)-1:]}
}

func tokenGetTagType(tag string, _ Options) []string {
	if len(tag) < 2 {
		return []string{""}
	}
	return []string{tag[2:]}
}

// Morphological tag decomposition. Each tagset convention keeps its
// dedicated splitter so configurations stay portable.

func tokenOOV(lemma string, _ Options) []string {
	return flag(strings.Contains(lemma, "OOV"))
}

func tokenGetKrLemma(lemma string, _ Options) []string {
	return []string{strings.SplitN(lemma, "/", 2)[0]}
}

func tokenGetKrPos(kr string, _ Options) []string {
	if i := strings.Index(kr, "<"); i != -1 {
		return []string{kr[:i]}
	}
	return []string{kr}
}

func krPieces(kr string) []string {
	parts := strings.Split(kr, "/")
	pieces := nonAlnum.Split(parts[len(parts)-1], -1)
	pos := ""
	if len(pieces) > 0 {
		pos = pieces[0]
	}
	var feats []string
	last := ""
	for _, piece := range pieces {
		var processed string
		switch {
		case piece == "PLUR":
			processed = pos + "_PLUR"
		case piece == "1" || piece == "2" || last == "CAS":
			processed = last + "_" + piece
		default:
			processed = piece
		}
		if processed != "CAS" && processed != "" {
			feats = append(feats, processed)
		}
		last = piece
	}
	return feats
}

func tokenKrPieces(kr string, _ Options) []string {
	return krPieces(kr)
}

func tokenFullKrPieces(kr string, _ Options) []string {
	parts := strings.Split(kr, "/")
	if len(parts) > 1 {
		return krPieces(strings.Join(parts[1:], "/"))
	}
	return krPieces("")
}

func tokenKrFeats(kr string, _ Options) []string {
	pieces := nonAlnum.Split(kr, -1)
	if len(pieces) > 0 {
		pieces = pieces[1:]
	}
	var feats []string
	last := ""
	for _, piece := range pieces {
		processed := piece
		if piece == "1" || piece == "2" {
			processed = last + "_" + piece
		}
		if processed != "" {
			feats = append(feats, processed)
		}
		last = piece
	}
	return feats
}

func tokenKrConjs(kr string, _ Options) []string {
	pieces := nonAlnum.Split(kr, -1)
	var conjs []string
	for i, e1 := range pieces {
		for _, e2 := range pieces[i+1:] {
			if e2 == "" || e1 == "" {
				continue
			}
			conjs = append(conjs, e1+"+"+e2)
		}
	}
	return conjs
}

func tokenMsdPos(msd string, _ Options) []string {
	runes := []rune(msd)
	if len(runes) < 2 {
		return nil
	}
	return []string{string(runes[1])}
}

func tokenMsdPosAndChar(msd string, _ Options) []string {
	runes := []rune(msd)
	if len(runes) < 3 {
		return nil
	}
	pos := string(runes[1])
	var f []string
	for c, ch := range runes[2 : len(runes)-1] {
		if ch == '-' {
			continue
		}
		f = append(f, pos+strconv.Itoa(c)+string(ch))
	}
	return f
}

// tokenHumorPieces splits Humor analyses like "FN+PSe3+ACC".
func tokenHumorPieces(ana string, _ Options) []string {
	var pieces []string
	for _, p := range strings.Split(ana, "+") {
		if p != "" {
			pieces = append(pieces, p)
		}
	}
	return pieces
}

// tokenHfstPieces splits eM-morph/HFST analyses like "[/N][Acc]".
func tokenHfstPieces(ana string, _ Options) []string {
	var pieces []string
	for _, m := range hfstTagRe.FindAllStringSubmatch(ana, -1) {
		pieces = append(pieces, m[1])
	}
	return pieces
}

// tokenUdPieces splits Universal Dependencies feature strings like
// "Case=Acc|Number=Sing". The empty analysis "_" yields nothing.
func tokenUdPieces(feats string, _ Options) []string {
	if feats == "" || feats == "_" {
		return nil
	}
	var pieces []string
	for _, p := range strings.Split(feats, "|") {
		if p != "" {
			pieces = append(pieces, p)
		}
	}
	return pieces
}

func tokenUdPos(upos string, _ Options) []string {
	if upos == "" || upos == "_" {
		return nil
	}
	return []string{upos}
}

// tokenMmoPieces splits MetaMorpho analyses on non-word characters.
func tokenMmoPieces(ana string, _ Options) []string {
	var pieces []string
	for _, p := range nonAlnum.Split(ana, -1) {
		if p != "" {
			pieces = append(pieces, p)
		}
	}
	return pieces
}

// tokenWordNetPos extracts the POS piece of synset names like "dog.n.01".
func tokenWordNetPos(synset string, _ Options) []string {
	parts := strings.Split(synset, ".")
	if len(parts) < 2 || parts[1] == "" {
		return nil
	}
	return []string{parts[1]}
}

func tokenGetPennTags(tag string, _ Options) []string {
	switch {
	case strings.HasPrefix(tag, "N") || strings.HasPrefix(tag, "PRP"):
		return []string{"noun"}
	case tag == "IN" || tag == "TO" || tag == "RP":
		return []string{"prep"}
	case tag == "DT":
		return []string{"det"}
	case strings.HasPrefix(tag, "VB") || tag == "MD":
		return []string{"verb"}
	}
	return []string{"0"}
}

func tokenPlural(tag string, _ Options) []string {
	return flag(tag == "NNS" || tag == "NNPS")
}

func tokenGetBNCtag(tag string, _ Options) []string {
	return []string{tag}
}
