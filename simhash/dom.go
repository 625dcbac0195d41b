package simhash

import (
	"strings"

	"golang.org/x/net/html"
)

const shingleSize = 3

// FingerprintDOM fingerprints the structure of an HTML document: the
// sequence of opening tag names, taken in overlapping triples. Text,
// attributes and script bodies do not contribute, so a static fetch and a
// rendered copy of the same template land close together.
func FingerprintDOM(doc string) uint64 {
	tags := tagSequence(doc)
	if len(tags) == 0 {
		return 0
	}
	if sh := shingles(tags, shingleSize); len(sh) > 0 {
		return FingerprintFeatures(sh)
	}
	return FingerprintFeatures(tags)
}

func tagSequence(doc string) []string {
	z := html.NewTokenizer(strings.NewReader(doc))
	var tags []string
	for {
		switch z.Next() {
		case html.ErrorToken:
			return tags
		case html.StartTagToken, html.SelfClosingTagToken:
			name, _ := z.TagName()
			tags = append(tags, string(name))
		}
	}
}

func shingles(tokens []string, n int) []string {
	if len(tokens) < n {
		return nil
	}
	out := make([]string, 0, len(tokens)-n+1)
	for i := 0; i+n <= len(tokens); i++ {
		out = append(out, strings.Join(tokens[i:i+n], ">"))
	}
	return out
}
