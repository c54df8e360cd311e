package respondersdk

import (
	"context"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// ──────────────────────────────────────────────
// Context Cache — per-user session cache over the external memory store
// ──────────────────────────────────────────────

// UserContext is the aggregate of a user's relationships, memories,
// preferences and recent mood/conversation history. Owned by the cache;
// callers receive copies and must not share them across requests.
type UserContext struct {
	UserID              string             `json:"user_id"`
	PreferredName       string             `json:"preferred_name"`
	RecentEmotions      []Emotion          `json:"recent_emotions,omitempty"`
	KeyRelationships    map[string]string  `json:"key_relationships,omitempty"` // name → relationship type
	RecentMemories      []MemoryRecord     `json:"recent_memories,omitempty"`
	Preferences         Preferences        `json:"preferences"`
	ConversationHistory []ConversationTurn `json:"conversation_history,omitempty"`
	TurnIndex           int                `json:"turn_index"`
	LastUpdated         time.Time          `json:"last_updated"`
}

// HasContext reports whether any enrichment beyond defaults was gathered.
func (c *UserContext) HasContext() bool {
	return len(c.KeyRelationships) > 0 || len(c.RecentMemories) > 0 ||
		len(c.ConversationHistory) > 0 || len(c.RecentEmotions) > 0
}

// AvailableFields lists which personalization inputs the context can satisfy.
func (c *UserContext) AvailableFields() map[string]bool {
	fields := map[string]bool{"name": c.PreferredName != ""}
	if len(c.KeyRelationships) > 0 {
		fields["relationship"] = true
	}
	if len(c.RecentMemories) > 0 {
		fields["memory"] = true
	}
	if len(c.RecentEmotions) > 0 {
		fields["emotion"] = true
	}
	if len(c.Preferences.TopicsOfInterest) > 0 {
		fields["topic"] = true
	}
	return fields
}

// ContextCacheConfig controls TTL, query budgeting and eviction.
type ContextCacheConfig struct {
	TTL                  time.Duration // default 30 min
	MaxQueriesPerRequest int           // enrichment steps per miss, default 3
	MaxEntries           int           // cache pool bound, default 100
	EvictTargetSize      int           // shrink-to size on overflow, default 80
	MemoryLimit          int           // memories fetched per refresh, default 20
	HistoryLimit         int           // turns fetched per refresh, default 10
	MoodDays             int           // mood history window, default 7
	MaxRelationships     int           // relationship map cap, default 10
	MaxRecentEmotions    int           // bounded mood list, default 10
	MinRelevance         float64       // memory attach threshold, default 0.3
	DefaultName          string        // fallback preferred name, default "friend"
}

// DefaultContextCacheConfig returns production defaults.
func DefaultContextCacheConfig() ContextCacheConfig {
	return ContextCacheConfig{
		TTL:                  30 * time.Minute,
		MaxQueriesPerRequest: 3,
		MaxEntries:           100,
		EvictTargetSize:      80,
		MemoryLimit:          20,
		HistoryLimit:         10,
		MoodDays:             7,
		MaxRelationships:     10,
		MaxRecentEmotions:    10,
		MinRelevance:         0.3,
		DefaultName:          "friend",
	}
}

type cacheEntry struct {
	ctx       *UserContext
	fetchedAt time.Time
}

// ContextCache wraps the external MemoryStore with a TTL'd, query-budgeted
// per-user cache. GetContext never fails: any unreachable enrichment step
// leaves its field at the default.
type ContextCache struct {
	store   MemoryStore
	breaker *CircuitBreaker
	config  ContextCacheConfig
	logger  *zap.Logger
	now     func() time.Time

	mu      sync.Mutex
	entries map[string]*cacheEntry
	group   singleflight.Group
}

// NewContextCache creates a cache over the given store. breaker, when not
// nil, receives a failure for every store call that errors or times out
// and a success for every one that completes; pass the strategy selector's
// context breaker so repeated store trouble disables rich templating.
// logger may be nil; store may be nil, in which case every lookup yields
// the default context.
func NewContextCache(store MemoryStore, breaker *CircuitBreaker, logger *zap.Logger, config ...ContextCacheConfig) *ContextCache {
	cfg := DefaultContextCacheConfig()
	if len(config) > 0 {
		cfg = config[0]
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ContextCache{
		store:   store,
		breaker: breaker,
		config:  cfg,
		logger:  logger.Named("context_cache"),
		now:     time.Now,
		entries: make(map[string]*cacheEntry),
	}
}

// GetContext returns the user's context, refreshing from the store on a
// cache miss. messageHint drives memory relevance scoring. Concurrent
// misses for the same user share one refresh.
func (c *ContextCache) GetContext(ctx context.Context, userID, messageHint string) *UserContext {
	now := c.now()

	c.mu.Lock()
	entry, ok := c.entries[userID]
	c.mu.Unlock()

	if ok && now.Sub(entry.fetchedAt) < c.config.TTL {
		return c.view(entry.ctx, messageHint, now)
	}

	result, _, _ := c.group.Do(userID, func() (interface{}, error) {
		fresh := c.refresh(ctx, userID)
		// Partial updates are not committed on cancellation.
		if ctx.Err() == nil {
			c.commit(userID, fresh)
		}
		return fresh, nil
	})

	uctx, _ := result.(*UserContext)
	if uctx == nil {
		uctx = c.defaultContext(userID)
	}
	return c.view(uctx, messageHint, now)
}

// InvalidateContext drops the cached entry so the next lookup refreshes.
// Call after a profile or memory write.
func (c *ContextCache) InvalidateContext(userID string) {
	c.mu.Lock()
	delete(c.entries, userID)
	c.mu.Unlock()
}

// Len returns the number of cached entries.
func (c *ContextCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// refresh gathers context within the query budget: base profile first,
// then memories, then conversation+mood. Failed steps leave defaults.
// Memory relevance is applied per-view, not at refresh time.
func (c *ContextCache) refresh(ctx context.Context, userID string) *UserContext {
	uctx := c.defaultContext(userID)
	if c.store == nil {
		return uctx
	}

	budget := c.config.MaxQueriesPerRequest
	step := 0

	// Step 1: base profile.
	if step < budget {
		step++
		profile, err := c.store.GetProfile(ctx, userID)
		c.recordOutcome(err)
		if err != nil {
			c.logger.Warn("profile fetch failed", zap.String("user_id", userID), zap.Error(err))
		} else if profile != nil {
			if profile.PreferredName != "" {
				uctx.PreferredName = profile.PreferredName
			}
			uctx.Preferences = profile.Preferences
			uctx.KeyRelationships = capRelationships(profile.Relationships, c.config.MaxRelationships)
		}
	}

	// Step 2: memories.
	if step < budget {
		step++
		records, err := c.store.GetMemories(ctx, userID, c.config.MemoryLimit)
		c.recordOutcome(err)
		if err != nil {
			c.logger.Warn("memory fetch failed", zap.String("user_id", userID), zap.Error(err))
		} else {
			uctx.RecentMemories = records
		}
	}

	// Step 3: conversation history + mood.
	if step < budget {
		step++
		turns, err := c.store.GetConversationHistory(ctx, userID, c.config.HistoryLimit)
		c.recordOutcome(err)
		if err != nil {
			c.logger.Warn("history fetch failed", zap.String("user_id", userID), zap.Error(err))
		} else {
			uctx.ConversationHistory = turns
			uctx.TurnIndex = len(turns)
		}
		moods, err := c.store.GetMoodHistory(ctx, userID, c.config.MoodDays)
		c.recordOutcome(err)
		if err != nil {
			c.logger.Warn("mood fetch failed", zap.String("user_id", userID), zap.Error(err))
		} else {
			uctx.RecentEmotions = capEmotions(moods, c.config.MaxRecentEmotions)
		}
	}

	uctx.LastUpdated = c.now()
	return uctx
}

// recordOutcome reports one store call to the context-fetch breaker.
// Timeouts arrive as errors and count the same as failures.
func (c *ContextCache) recordOutcome(err error) {
	if c.breaker == nil {
		return
	}
	if err != nil {
		c.breaker.RecordFailure(c.now())
		return
	}
	c.breaker.RecordSuccess()
}

func (c *ContextCache) commit(userID string, uctx *UserContext) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[userID] = &cacheEntry{ctx: uctx, fetchedAt: c.now()}
	c.evictLocked()
}

// evictLocked removes the oldest entries (approximate LRU by LastUpdated)
// until the pool shrinks to the target size.
func (c *ContextCache) evictLocked() {
	if len(c.entries) <= c.config.MaxEntries {
		return
	}
	type aged struct {
		id string
		at time.Time
	}
	all := make([]aged, 0, len(c.entries))
	for id, e := range c.entries {
		all = append(all, aged{id: id, at: e.fetchedAt})
	}
	sort.Slice(all, func(i, j int) bool { return all[i].at.Before(all[j].at) })
	target := c.config.EvictTargetSize
	if target <= 0 || target > c.config.MaxEntries {
		target = c.config.MaxEntries
	}
	for _, a := range all {
		if len(c.entries) <= target {
			break
		}
		delete(c.entries, a.id)
	}
}

// view returns a request-scoped copy with memories scored against the
// message. The cached value itself is never handed out.
func (c *ContextCache) view(uctx *UserContext, messageHint string, now time.Time) *UserContext {
	cp := *uctx
	cp.KeyRelationships = copyStringMap(uctx.KeyRelationships)
	cp.RecentEmotions = append([]Emotion(nil), uctx.RecentEmotions...)
	cp.ConversationHistory = append([]ConversationTurn(nil), uctx.ConversationHistory...)
	cp.RecentMemories = ScoreMemories(uctx.RecentMemories, messageHint, now, c.config.MinRelevance)
	return &cp
}

func (c *ContextCache) defaultContext(userID string) *UserContext {
	return &UserContext{
		UserID:        userID,
		PreferredName: c.config.DefaultName,
		LastUpdated:   c.now(),
	}
}

func capRelationships(in map[string]string, max int) map[string]string {
	if len(in) == 0 {
		return nil
	}
	if max <= 0 || len(in) <= max {
		return copyStringMap(in)
	}
	names := make([]string, 0, len(in))
	for name := range in {
		names = append(names, name)
	}
	sort.Strings(names)
	out := make(map[string]string, max)
	for _, name := range names[:max] {
		out[name] = in[name]
	}
	return out
}

func capEmotions(moods []MoodRecord, max int) []Emotion {
	sort.Slice(moods, func(i, j int) bool { return moods[i].RecordedAt.After(moods[j].RecordedAt) })
	if max > 0 && len(moods) > max {
		moods = moods[:max]
	}
	out := make([]Emotion, 0, len(moods))
	for _, m := range moods {
		out = append(out, m.Emotion)
	}
	return out
}
