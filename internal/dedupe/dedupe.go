// Package dedupe derives stable story fingerprints and filters out
// candidates already seen in earlier runs.
package dedupe

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"
	"unicode"

	"newsreel/internal/domain"
)

const undatedBucket = "undated"

// Fingerprint returns the derived identity of a candidate: a sha256 over the
// normalized headline, the source id, and the publish-date day bucket.
// Two items with the same fingerprint are the same story; superficial
// whitespace, case, or punctuation differences do not change it.
// Fingerprinting never fails — malformed text degrades to whatever the
// normalization leaves behind.
func Fingerprint(c domain.Candidate) string {
	bucket := undatedBucket
	if !c.PublishedAt.IsZero() {
		bucket = c.PublishedAt.UTC().Format("2006-01-02")
	}

	key := normalize(c.Headline) + "|" + strings.ToLower(strings.TrimSpace(c.SourceID)) + "|" + bucket
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])[:16]
}

// normalize lowercases the headline, replaces every non-letter/digit rune
// with a space, and collapses runs of whitespace.
func normalize(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		} else {
			b.WriteRune(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// FilterNew drops candidates whose fingerprint is already in seen, and
// resolves in-batch collisions by keeping the item from the highest-priority
// source (earlier in priority wins; unknown sources rank last). The inputs
// are never mutated; the returned fingerprints parallel the fresh items.
func FilterNew(items []domain.Candidate, seen map[string]struct{}, priority []string) ([]domain.Candidate, []string) {
	rank := make(map[string]int, len(priority))
	for i, name := range priority {
		rank[name] = i
	}
	rankOf := func(sourceID string) int {
		if r, ok := rank[sourceID]; ok {
			return r
		}
		return len(priority)
	}

	ordered := make([]domain.Candidate, len(items))
	copy(ordered, items)
	sort.SliceStable(ordered, func(i, j int) bool {
		return rankOf(ordered[i].SourceID) < rankOf(ordered[j].SourceID)
	})

	var (
		fresh  []domain.Candidate
		prints []string
	)
	batch := make(map[string]struct{}, len(ordered))
	for _, item := range ordered {
		fp := Fingerprint(item)
		if _, ok := seen[fp]; ok {
			continue
		}
		if _, ok := batch[fp]; ok {
			continue
		}
		batch[fp] = struct{}{}
		fresh = append(fresh, item)
		prints = append(prints, fp)
	}

	return fresh, prints
}
