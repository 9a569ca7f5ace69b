package feats

import "fmt"

// TokenFunc computes the features of a single column value.
type TokenFunc func(value string, opts Options) []string

// SentenceFunc computes per-position feature lists over a whole
// sentence; it receives the bound column indices of its declaration.
type SentenceFunc func(sen [][]string, fields []int, opts Options) [][]string

// The registries map action names to implementations. They are
// populated at init time and read-only afterwards, so configuration
// loading can reject unknown action names up front.
var (
	tokenFuncs    = map[string]TokenFunc{}
	sentenceFuncs = map[string]SentenceFunc{}
)

func registerToken(name string, fn TokenFunc) {
	if _, dup := tokenFuncs[name]; dup {
		panic(fmt.Sprintf("duplicate token feature %q", name))
	}
	tokenFuncs[name] = fn
}

func registerSentence(name string, fn SentenceFunc) {
	if _, dup := sentenceFuncs[name]; dup {
		panic(fmt.Sprintf("duplicate sentence feature %q", name))
	}
	sentenceFuncs[name] = fn
}

// LookupToken returns the token-kind function registered under name.
func LookupToken(name string) (TokenFunc, bool) {
	fn, ok := tokenFuncs[name]
	return fn, ok
}

// LookupSentence returns the sentence-kind function registered under name.
func LookupSentence(name string) (SentenceFunc, bool) {
	fn, ok := sentenceFuncs[name]
	return fn, ok
}
