package respondersdk

import (
	"sort"
	"time"
)

// ──────────────────────────────────────────────
// Memory Relevance — keyword overlap + type bonus + recency scoring
// ──────────────────────────────────────────────

// memoryTypeBonus weights memory types; relationship memories count more.
var memoryTypeBonus = map[string]float64{
	"relationship": 0.3,
	"preference":   0.2,
	"event":        0.1,
	"fact":         0.05,
}

// ScoreMemories computes per-record relevance against the current message,
// sorts descending and drops records below minRelevance.
// The input slice is not mutated.
func ScoreMemories(records []MemoryRecord, message string, now time.Time, minRelevance float64) []MemoryRecord {
	if len(records) == 0 {
		return nil
	}
	queryTokens := tokenSet(message)

	scored := make([]MemoryRecord, 0, len(records))
	for _, rec := range records {
		rec.Relevance = relevanceScore(rec, queryTokens, now)
		if rec.Relevance >= minRelevance {
			scored = append(scored, rec)
		}
	}
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Relevance > scored[j].Relevance
	})
	return scored
}

func relevanceScore(rec MemoryRecord, queryTokens map[string]bool, now time.Time) float64 {
	overlap := 0
	memTokens := tokenize(rec.Content)
	seen := make(map[string]bool, len(memTokens))
	for _, tok := range memTokens {
		if len(tok) < 3 || seen[tok] {
			continue
		}
		seen[tok] = true
		if queryTokens[tok] {
			overlap++
		}
	}
	denom := len(queryTokens)
	if denom == 0 {
		denom = 1
	}
	overlapScore := clamp01(float64(overlap) / float64(denom) * 2)

	score := overlapScore * 0.6
	score += memoryTypeBonus[rec.Type]
	score += recencyBonus(now.Sub(rec.CreatedAt))
	return clamp01(score)
}

func recencyBonus(age time.Duration) float64 {
	switch {
	case age <= 24*time.Hour:
		return 0.2
	case age <= 7*24*time.Hour:
		return 0.1
	case age <= 30*24*time.Hour:
		return 0.05
	default:
		return 0
	}
}

func tokenSet(message string) map[string]bool {
	set := make(map[string]bool)
	for _, tok := range tokenize(message) {
		if len(tok) >= 3 {
			set[tok] = true
		}
	}
	return set
}
