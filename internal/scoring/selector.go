package scoring

import (
	"sort"

	"newsreel/internal/domain"
)

// Select picks at most n accepted items for rendering, ordered by quality
// score descending. Ties break by earliest publish time (undated items
// last), then by source priority. Returning fewer than n is not an error.
func Select(items []domain.Scored, n int, priority []string) []domain.Selected {
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

	accepted := make([]domain.Scored, 0, len(items))
	for _, s := range items {
		if s.Accepted {
			accepted = append(accepted, s)
		}
	}

	sort.SliceStable(accepted, func(i, j int) bool {
		a, b := accepted[i], accepted[j]
		if a.QualityScore != b.QualityScore {
			return a.QualityScore > b.QualityScore
		}
		switch {
		case a.PublishedAt.IsZero() && !b.PublishedAt.IsZero():
			return false
		case !a.PublishedAt.IsZero() && b.PublishedAt.IsZero():
			return true
		case !a.PublishedAt.Equal(b.PublishedAt):
			return a.PublishedAt.Before(b.PublishedAt)
		}
		return rankOf(a.SourceID) < rankOf(b.SourceID)
	})

	if n >= 0 && len(accepted) > n {
		accepted = accepted[:n]
	}

	selected := make([]domain.Selected, 0, len(accepted))
	for _, s := range accepted {
		selected = append(selected, domain.Selected{Scored: s, Status: domain.RenderPending})
	}
	return selected
}
