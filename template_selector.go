package respondersdk

import "math/rand"

// ──────────────────────────────────────────────
// Template Selector — multi-factor scoring with weighted-random tie break
// ──────────────────────────────────────────────

// SelectionCriteria is the input to template selection.
type SelectionCriteria struct {
	UserID           string
	Emotion          Emotion
	Confidence       float64
	ConversationType ConversationType
	PreferredTone    PersonalityTone
	AvailableContext map[string]bool // personalization inputs the context can satisfy
	TurnIndex        int
}

// SelectedTemplate is the selection result including the rotated variation.
type SelectedTemplate struct {
	Template       *Template
	VariationIndex int
	Text           string
	Score          float64
}

// Selection scoring weights; they sum to 1.0.
const (
	weightEmotionMatch   = 0.35
	weightContextMatch   = 0.25
	weightAntiRepetition = 0.25
	weightPersonality    = 0.10
	weightFlowBonus      = 0.05
	minCandidatePoolSize = 3
	selectionScoreBand   = 0.8 // pick among candidates within 80% of the top score
)

// TemplateSelector scores catalog templates against the criteria and picks
// weighted-random among near-top candidates to avoid deterministic repeats.
type TemplateSelector struct {
	catalog  *Catalog
	rotation *RotationEngine
	rng      *rand.Rand
}

// NewTemplateSelector creates a selector. rng may be nil (time-seeded).
func NewTemplateSelector(catalog *Catalog, rotation *RotationEngine, rng *rand.Rand) *TemplateSelector {
	if rng == nil {
		rng = newLockedRand(0)
	}
	return &TemplateSelector{catalog: catalog, rotation: rotation, rng: rng}
}

// SelectTemplate returns the best template with a rotated variation, or
// nil when no candidate survives filtering.
func (s *TemplateSelector) SelectTemplate(criteria SelectionCriteria) *SelectedTemplate {
	candidates := s.gatherCandidates(criteria)
	if len(candidates) == 0 {
		return nil
	}

	type scored struct {
		t     *Template
		score float64
	}
	all := make([]scored, 0, len(candidates))
	top := 0.0
	for _, t := range candidates {
		sc := s.scoreTemplate(t, criteria)
		all = append(all, scored{t: t, score: sc})
		if sc > top {
			top = sc
		}
	}

	// Weighted-random among candidates within the score band of the top.
	pool := all[:0]
	for _, c := range all {
		if c.score >= top*selectionScoreBand {
			pool = append(pool, c)
		}
	}
	chosen := pool[0]
	if len(pool) > 1 {
		total := 0.0
		for _, c := range pool {
			total += c.score * c.t.UsageWeight
		}
		roll := s.rng.Float64() * total
		cumulative := 0.0
		for _, c := range pool {
			cumulative += c.score * c.t.UsageWeight
			if roll <= cumulative {
				chosen = c
				break
			}
		}
	}

	idx, text := s.rotation.NextVariation(criteria.UserID, chosen.t)
	return &SelectedTemplate{
		Template:       chosen.t,
		VariationIndex: idx,
		Text:           text,
		Score:          chosen.score,
	}
}

// gatherCandidates prefers templates matching both emotion and type, then
// widens to emotion-only and type-only matches while the pool is small.
// Candidates demanding more confidence than supplied are discarded.
func (s *TemplateSelector) gatherCandidates(criteria SelectionCriteria) []*Template {
	seen := make(map[string]bool)
	var pool []*Template

	add := func(ts []*Template, requireEmotion, requireType bool) {
		for _, t := range ts {
			if seen[t.ID] {
				continue
			}
			if requireEmotion && !t.HasEmotionTag(criteria.Emotion) {
				continue
			}
			if requireType && t.ConversationType != criteria.ConversationType {
				continue
			}
			seen[t.ID] = true
			pool = append(pool, t)
		}
	}

	add(s.catalog.ByType(criteria.ConversationType), true, true)
	if len(pool) < minCandidatePoolSize {
		add(s.catalog.ByEmotion(criteria.Emotion), false, false)
	}
	if len(pool) < minCandidatePoolSize {
		add(s.catalog.ByType(criteria.ConversationType), false, false)
	}

	filtered := pool[:0]
	for _, t := range pool {
		if t.MinConfidence <= criteria.Confidence {
			filtered = append(filtered, t)
		}
	}
	return filtered
}

func (s *TemplateSelector) scoreTemplate(t *Template, criteria SelectionCriteria) float64 {
	score := weightEmotionMatch * emotionMatchScore(t, criteria)
	score += weightContextMatch * contextMatchScore(t, criteria.AvailableContext)
	score += weightAntiRepetition * s.antiRepetitionScore(criteria.UserID, t.ID)
	score += weightPersonality * personalityMatchScore(t.PersonalityTone, criteria.PreferredTone)
	score += weightFlowBonus * flowBonus(t, criteria)
	return score
}

// emotionMatchScore is 1.0 scaled by confidence for an exact tag match,
// otherwise the best fixed-affinity score across the template's tags.
func emotionMatchScore(t *Template, criteria SelectionCriteria) float64 {
	if t.HasEmotionTag(criteria.Emotion) {
		return criteria.Confidence
	}
	best := 0.0
	for _, tag := range t.EmotionTags {
		if a := AffinityBetween(criteria.Emotion, tag); a > best {
			best = a
		}
	}
	return best
}

// contextMatchScore is the fraction of context requirements satisfied.
func contextMatchScore(t *Template, available map[string]bool) float64 {
	if len(t.ContextRequirements) == 0 {
		return 1.0
	}
	met := 0
	for _, req := range t.ContextRequirements {
		if available[req] {
			met++
		}
	}
	return float64(met) / float64(len(t.ContextRequirements))
}

// antiRepetitionScore decays with recent uses of the same template:
// 1.0 unused, then 0.8 / 0.5 / 0.2 for 1 / 2 / 3+ uses.
func (s *TemplateSelector) antiRepetitionScore(userID, templateID string) float64 {
	switch s.rotation.RecentUseCount(userID, templateID) {
	case 0:
		return 1.0
	case 1:
		return 0.8
	case 2:
		return 0.5
	default:
		return 0.2
	}
}

// personalityMatchScore is 1.0 for an exact tone match, 0.7 for a
// compatible tone, 0.3 otherwise.
func personalityMatchScore(have, want PersonalityTone) float64 {
	if want == "" || have == want {
		return 1.0
	}
	if toneCompatibility[want][have] {
		return 0.7
	}
	return 0.3
}

// flowBonus rewards templates that fit the conversation position.
func flowBonus(t *Template, criteria SelectionCriteria) float64 {
	bonus := 0.0
	if t.ConversationType == ConversationGreeting && criteria.TurnIndex == 0 {
		bonus += 0.5
	}
	if t.ConversationType == criteria.ConversationType {
		bonus += 0.3
	}
	return clamp01(bonus)
}
