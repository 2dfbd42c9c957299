// Package scoring evaluates candidates against configured rules and ranks
// the accepted ones. Scoring is two-tier: a weighted soft score plus hard
// rules that veto acceptance regardless of the aggregate.
package scoring

import (
	"strings"

	"newsreel/internal/config"
	"newsreel/internal/domain"
)

// Rule pairs a predicate with the tag recorded when it fails.
type Rule struct {
	Tag    string
	Weight float64
	Hard   bool
	Check  func(domain.Candidate) bool
}

// Engine applies the configured rule set to candidates.
type Engine struct {
	threshold float64
	rules     []Rule
}

// NewEngine builds the rule set from configuration. Unknown rule names are
// ignored; a config with no recognizable rules yields an engine that accepts
// everything at threshold zero.
func NewEngine(cfg config.ScoringConfig) *Engine {
	banned := make([]string, 0, len(cfg.BannedKeywords))
	for _, kw := range cfg.BannedKeywords {
		banned = append(banned, strings.ToLower(kw))
	}
	allowed := make(map[string]struct{}, len(cfg.AllowedSources))
	for _, src := range cfg.AllowedSources {
		allowed[src] = struct{}{}
	}

	checks := map[string]func(domain.Candidate) bool{
		"has_image": func(c domain.Candidate) bool {
			return strings.TrimSpace(c.ImageURL) != ""
		},
		"headline_length": func(c domain.Candidate) bool {
			n := len([]rune(clean(c.Headline)))
			return n >= cfg.HeadlineMin && n <= cfg.HeadlineMax
		},
		"summary_length": func(c domain.Candidate) bool {
			n := len([]rune(clean(c.Summary)))
			return n >= cfg.SummaryMin && n <= cfg.SummaryMax
		},
		"no_banned_keywords": func(c domain.Candidate) bool {
			text := strings.ToLower(clean(c.Headline) + " " + clean(c.Summary))
			for _, kw := range banned {
				if kw != "" && strings.Contains(text, kw) {
					return false
				}
			}
			return true
		},
		"source_allowed": func(c domain.Candidate) bool {
			if len(allowed) == 0 {
				return true
			}
			_, ok := allowed[c.SourceID]
			return ok
		},
	}

	rules := make([]Rule, 0, len(cfg.Rules))
	for _, rc := range cfg.Rules {
		check, ok := checks[rc.Name]
		if !ok {
			continue
		}
		weight := rc.Weight
		if weight <= 0 {
			weight = 1
		}
		rules = append(rules, Rule{Tag: rc.Name, Weight: weight, Hard: rc.Hard, Check: check})
	}

	return &Engine{threshold: cfg.Threshold, rules: rules}
}

// Score evaluates every rule against the candidate and returns the scored
// item. The quality score is the weighted fraction of rules passed; an item
// is accepted iff the score meets the threshold and no hard rule failed.
func (e *Engine) Score(c domain.Candidate) domain.Scored {
	scored := domain.Scored{Candidate: c}

	var total, passed float64
	hardVeto := false
	for _, rule := range e.rules {
		total += rule.Weight
		if rule.Check(c) {
			passed += rule.Weight
			continue
		}
		scored.Rejections = append(scored.Rejections, rule.Tag)
		if rule.Hard {
			hardVeto = true
		}
	}

	if total > 0 {
		scored.QualityScore = passed / total
	} else {
		scored.QualityScore = 1
	}
	scored.Accepted = !hardVeto && scored.QualityScore >= e.threshold

	return scored
}

// ScoreAll scores a batch in input order.
func (e *Engine) ScoreAll(items []domain.Candidate) []domain.Scored {
	scored := make([]domain.Scored, 0, len(items))
	for _, c := range items {
		scored = append(scored, e.Score(c))
	}
	return scored
}

// clean collapses whitespace before length and keyword checks so that
// sloppy markup in a source does not skew rule outcomes.
func clean(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
