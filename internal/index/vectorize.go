package index

import "strings"

// punctuation is the ASCII punctuation set removed before splitting.
const punctuation = "!\"#$%&'()*+,-./:;<=>?@[\\]^_`{|}~"

// stripPunctuation deletes every ASCII punctuation character. Non-ASCII
// characters, including typographic dashes and quotes, are kept.
var stripPunctuation = strings.NewReplacer(replacerPairs()...)

func replacerPairs() []string {
	pairs := make([]string, 0, len(punctuation)*2)
	for _, c := range punctuation {
		pairs = append(pairs, string(c), "")
	}
	return pairs
}

// Vectorize turns text into the term list used for indexing and querying.
// Punctuation is deleted and the rest is split on single spaces, so runs of
// spaces yield empty terms and newlines stay inside terms.
func Vectorize(text string) []string {
	return strings.Split(stripPunctuation.Replace(text), " ")
}
