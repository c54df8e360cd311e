package respondersdk

import (
	"math/rand"
	"sync"
	"time"
)

// ──────────────────────────────────────────────
// Rotation Engine — per-(user, template) variation anti-repetition state
// ──────────────────────────────────────────────

// RotationState is the bookkeeping for one (user, template) pair.
// Owned exclusively by the RotationEngine.
type RotationState struct {
	UserID               string       `json:"user_id"`
	TemplateID           string       `json:"template_id"`
	UsedVariationIndices map[int]bool `json:"used_variation_indices"`
	LastUsedIndex        int          `json:"last_used_index"` // -1 before first use
	RotationCount        int          `json:"rotation_count"`
	LastReset            time.Time    `json:"last_reset"`

	recentUses []time.Time
}

// RotationConfig controls reset windows and ceilings.
type RotationConfig struct {
	ResetWindow     time.Duration // used-set lifetime, default 24 h
	MaxRotations    int           // rotation-count ceiling, default 20
	RecentUseWindow time.Duration // window for anti-repetition counting, default 24 h
}

// DefaultRotationConfig returns production defaults.
func DefaultRotationConfig() RotationConfig {
	return RotationConfig{
		ResetWindow:     24 * time.Hour,
		MaxRotations:    20,
		RecentUseWindow: 24 * time.Hour,
	}
}

// RotationEngine tracks used variation indices per (user, template) and
// never repeats the immediately-previous variation when an alternative
// exists. Safe for concurrent use.
type RotationEngine struct {
	config RotationConfig
	rng    *rand.Rand
	now    func() time.Time

	mu     sync.Mutex
	states map[string]*RotationState
}

// NewRotationEngine creates an engine. rng may be nil, in which case a
// time-seeded locked source is used; inject a seeded one for reproducible
// tests.
func NewRotationEngine(rng *rand.Rand, config ...RotationConfig) *RotationEngine {
	cfg := DefaultRotationConfig()
	if len(config) > 0 {
		cfg = config[0]
	}
	if rng == nil {
		rng = newLockedRand(0)
	}
	return &RotationEngine{
		config: cfg,
		rng:    rng,
		now:    time.Now,
		states: make(map[string]*RotationState),
	}
}

// NextVariation picks the variation index to use for the template and
// records it. Index 0 is the base text.
func (e *RotationEngine) NextVariation(userID string, t *Template) (int, string) {
	texts := t.Texts()
	n := len(texts)

	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.now()
	state := e.stateLocked(userID, t.ID, now)

	// Reset after the time window, the rotation ceiling, or exhaustion.
	if now.Sub(state.LastReset) >= e.config.ResetWindow ||
		state.RotationCount >= e.config.MaxRotations ||
		len(state.UsedVariationIndices) >= n {
		last := state.LastUsedIndex
		state.UsedVariationIndices = make(map[int]bool)
		state.RotationCount = 0
		state.LastReset = now
		state.LastUsedIndex = last // still avoid immediate repeats across resets
	}

	idx := e.pickLocked(state, n)

	state.UsedVariationIndices[idx] = true
	state.LastUsedIndex = idx
	state.RotationCount++
	state.recentUses = append(state.recentUses, now)
	state.recentUses = trimUses(state.recentUses, now, e.config.RecentUseWindow)

	return idx, texts[idx]
}

// RecentUseCount returns how many times the (user, template) pair was used
// within the recent-use window.
func (e *RotationEngine) RecentUseCount(userID, templateID string) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	state, ok := e.states[rotationKey(userID, templateID)]
	if !ok {
		return 0
	}
	now := e.now()
	state.recentUses = trimUses(state.recentUses, now, e.config.RecentUseWindow)
	return len(state.recentUses)
}

// State returns a snapshot of the rotation state, or nil if none exists.
func (e *RotationEngine) State(userID, templateID string) *RotationState {
	e.mu.Lock()
	defer e.mu.Unlock()
	state, ok := e.states[rotationKey(userID, templateID)]
	if !ok {
		return nil
	}
	cp := *state
	cp.UsedVariationIndices = make(map[int]bool, len(state.UsedVariationIndices))
	for k, v := range state.UsedVariationIndices {
		cp.UsedVariationIndices[k] = v
	}
	cp.recentUses = nil
	return &cp
}

func (e *RotationEngine) stateLocked(userID, templateID string, now time.Time) *RotationState {
	key := rotationKey(userID, templateID)
	state, ok := e.states[key]
	if !ok {
		state = &RotationState{
			UserID:               userID,
			TemplateID:           templateID,
			UsedVariationIndices: make(map[int]bool),
			LastUsedIndex:        -1,
			LastReset:            now,
		}
		e.states[key] = state
	}
	return state
}

// pickLocked chooses a random unused index, excluding the previous one
// whenever another candidate is available.
func (e *RotationEngine) pickLocked(state *RotationState, n int) int {
	candidates := make([]int, 0, n)
	for i := 0; i < n; i++ {
		if !state.UsedVariationIndices[i] {
			candidates = append(candidates, i)
		}
	}
	if len(candidates) == 0 {
		// Exhausted between resets; fall back to any index but the last.
		for i := 0; i < n; i++ {
			if i != state.LastUsedIndex {
				candidates = append(candidates, i)
			}
		}
		if len(candidates) == 0 {
			return 0
		}
		return candidates[e.rng.Intn(len(candidates))]
	}
	if len(candidates) > 1 {
		filtered := candidates[:0]
		for _, i := range candidates {
			if i != state.LastUsedIndex {
				filtered = append(filtered, i)
			}
		}
		candidates = filtered
	}
	return candidates[e.rng.Intn(len(candidates))]
}

func rotationKey(userID, templateID string) string {
	return userID + "|" + templateID
}

func trimUses(uses []time.Time, now time.Time, window time.Duration) []time.Time {
	cutoff := now.Add(-window)
	kept := uses[:0]
	for _, u := range uses {
		if u.After(cutoff) {
			kept = append(kept, u)
		}
	}
	return kept
}
