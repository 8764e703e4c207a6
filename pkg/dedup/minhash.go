package dedup

import (
	"hash/fnv"
	"math/rand"
)

const mersennePrime = (1 << 61) - 1

// permutation is one (a, b) pair of a universal hash family member,
// used to simulate one MinHash permutation without re-hashing the whole
// shingle set per permutation.
type permutation struct {
	a, b uint64
}

var permutations = buildPermutations(128)

// buildPermutations derives n permutations from a fixed seed so the
// signature is stable across process restarts — any two instances of
// this service must agree on the same hash family to compare signatures.
func buildPermutations(n int) []permutation {
	rng := rand.New(rand.NewSource(0xC0FFEE))
	perms := make([]permutation, n)
	for i := range perms {
		perms[i] = permutation{
			a: rng.Uint64()%(mersennePrime-1) + 1,
			b: rng.Uint64() % mersennePrime,
		}
	}
	return perms
}

// shingles splits normalized text into overlapping 3-character windows.
func shingles(normalized string) []string {
	runes := []rune(normalized)
	if len(runes) < 3 {
		return nil
	}
	out := make([]string, 0, len(runes)-2)
	for i := 0; i <= len(runes)-3; i++ {
		out = append(out, string(runes[i:i+3]))
	}
	return out
}

// Signature computes a 128-permutation MinHash signature over the
// 3-character shingles of the normalized title+message (spec.md §4.1).
func Signature(title, message string) []uint64 {
	text := normalize(title + " " + message)
	grams := shingles(text)

	sig := make([]uint64, len(permutations))
	for i := range sig {
		sig[i] = ^uint64(0)
	}
	if len(grams) == 0 {
		return sig
	}

	for _, g := range grams {
		h := fnv.New64a()
		h.Write([]byte(g))
		x := h.Sum64() % mersennePrime
		for i, p := range permutations {
			v := (p.a*x + p.b) % mersennePrime
			if v < sig[i] {
				sig[i] = v
			}
		}
	}
	return sig
}

// EstimateJaccard returns the fraction of matching positions between two
// equal-length MinHash signatures — the Jaccard estimator spec.md §4.1
// and §8 require.
func EstimateJaccard(a, b []uint64) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	matches := 0
	for i := range a {
		if a[i] == b[i] {
			matches++
		}
	}
	return float64(matches) / float64(len(a))
}
