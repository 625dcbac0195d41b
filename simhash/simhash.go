// Package simhash fingerprints text and DOM structure so that outcomes from
// different strategies can be checked for agreement without comparing whole
// payloads.
package simhash

import (
	"hash/fnv"
	"math/bits"
	"strings"
	"unicode"
)

// Bits is the fingerprint width.
const Bits = 64

// Fingerprint computes a 64-bit SimHash over the lower-cased words of text.
// Punctuation at word edges is ignored, so "Fox," and "fox" count as the same
// feature. Empty or whitespace-only input yields 0.
func Fingerprint(text string) uint64 {
	return FingerprintFeatures(words(text))
}

// FingerprintFeatures computes a SimHash over pre-tokenized features. Each
// feature votes once per occurrence.
func FingerprintFeatures(features []string) uint64 {
	if len(features) == 0 {
		return 0
	}

	var votes [Bits]int
	h := fnv.New64a()
	for _, f := range features {
		h.Reset()
		h.Write([]byte(f))
		sum := h.Sum64()
		for i := range Bits {
			if sum&(1<<i) != 0 {
				votes[i]++
			} else {
				votes[i]--
			}
		}
	}

	var fp uint64
	for i, v := range votes {
		if v > 0 {
			fp |= 1 << i
		}
	}
	return fp
}

// Distance returns the Hamming distance between two fingerprints.
func Distance(a, b uint64) int {
	return bits.OnesCount64(a ^ b)
}

// Similar reports whether two fingerprints are within threshold bits.
func Similar(a, b uint64, threshold int) bool {
	return Distance(a, b) <= threshold
}

// Similarity maps the distance onto [0, 1], where 1 means identical.
func Similarity(a, b uint64) float64 {
	return 1 - float64(Distance(a, b))/Bits
}

func words(text string) []string {
	fields := strings.Fields(text)
	out := fields[:0]
	for _, f := range fields {
		f = strings.TrimFunc(f, func(r rune) bool {
			return unicode.IsPunct(r) || unicode.IsSymbol(r)
		})
		if f != "" {
			out = append(out, strings.ToLower(f))
		}
	}
	return out
}
