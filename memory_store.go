package respondersdk

import (
	"context"
	"sort"
	"sync"
	"time"
)

// ──────────────────────────────────────────────
// Memory Store — pluggable backend for profiles, memories and history
// ──────────────────────────────────────────────

// MemoryRecord is a single stored memory about a user.
type MemoryRecord struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"` // relationship/preference/event/fact
	Content   string    `json:"content"`
	Relevance float64   `json:"relevance"` // scored per request, not persisted
	CreatedAt time.Time `json:"created_at"`
}

// MoodRecord is one entry of a user's mood history.
type MoodRecord struct {
	Emotion    Emotion   `json:"emotion"`
	RecordedAt time.Time `json:"recorded_at"`
}

// ConversationTurn is one stored message/response exchange.
type ConversationTurn struct {
	Message  string    `json:"message"`
	Response string    `json:"response"`
	At       time.Time `json:"at"`
}

// Preferences holds a user's stable interaction preferences.
type Preferences struct {
	CommunicationStyle string   `json:"communication_style,omitempty"` // warm/direct/playful
	ResponseLength     string   `json:"response_length,omitempty"`     // short/medium/long
	TopicsOfInterest   []string `json:"topics_of_interest,omitempty"`
}

// UserProfile is the base record returned by the external store.
type UserProfile struct {
	UserID        string            `json:"user_id"`
	PreferredName string            `json:"preferred_name"`
	Preferences   Preferences       `json:"preferences"`
	Relationships map[string]string `json:"relationships"` // name → relationship type
}

// MemoryStore is the external persistence collaborator consumed by the
// ContextCache. Implementations live outside the core (see store/ for a
// Redis-backed one); InMemoryStore below is for development and tests.
type MemoryStore interface {
	GetProfile(ctx context.Context, userID string) (*UserProfile, error)
	GetMemories(ctx context.Context, userID string, limit int) ([]MemoryRecord, error)
	GetConversationHistory(ctx context.Context, userID string, limit int) ([]ConversationTurn, error)
	GetMoodHistory(ctx context.Context, userID string, days int) ([]MoodRecord, error)
}

// InMemoryStore is a thread-safe in-memory MemoryStore.
// Data is lost on restart.
type InMemoryStore struct {
	mu       sync.RWMutex
	profiles map[string]*UserProfile
	memories map[string][]MemoryRecord
	history  map[string][]ConversationTurn
	moods    map[string][]MoodRecord
}

// NewInMemoryStore creates an empty in-memory store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		profiles: make(map[string]*UserProfile),
		memories: make(map[string][]MemoryRecord),
		history:  make(map[string][]ConversationTurn),
		moods:    make(map[string][]MoodRecord),
	}
}

func (s *InMemoryStore) GetProfile(_ context.Context, userID string) (*UserProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if p, ok := s.profiles[userID]; ok {
		cp := *p
		cp.Relationships = copyStringMap(p.Relationships)
		return &cp, nil
	}
	return nil, nil
}

func (s *InMemoryStore) GetMemories(_ context.Context, userID string, limit int) ([]MemoryRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	records := s.memories[userID]
	out := make([]MemoryRecord, len(records))
	copy(out, records)
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *InMemoryStore) GetConversationHistory(_ context.Context, userID string, limit int) ([]ConversationTurn, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	turns := s.history[userID]
	start := 0
	if limit > 0 && len(turns) > limit {
		start = len(turns) - limit
	}
	out := make([]ConversationTurn, len(turns)-start)
	copy(out, turns[start:])
	return out, nil
}

func (s *InMemoryStore) GetMoodHistory(_ context.Context, userID string, days int) ([]MoodRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cutoff := time.Now().AddDate(0, 0, -days)
	var out []MoodRecord
	for _, m := range s.moods[userID] {
		if days <= 0 || m.RecordedAt.After(cutoff) {
			out = append(out, m)
		}
	}
	return out, nil
}

// SetProfile stores or replaces a user profile.
func (s *InMemoryStore) SetProfile(p *UserProfile) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profiles[p.UserID] = p
}

// AddMemory appends a memory record for the user.
func (s *InMemoryStore) AddMemory(userID string, m MemoryRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.memories[userID] = append(s.memories[userID], m)
}

// AddTurn appends a conversation turn for the user.
func (s *InMemoryStore) AddTurn(userID string, turn ConversationTurn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history[userID] = append(s.history[userID], turn)
}

// AddMood appends a mood record for the user.
func (s *InMemoryStore) AddMood(userID string, m MoodRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.moods[userID] = append(s.moods[userID], m)
}

func copyStringMap(in map[string]string) map[string]string {
	if in == nil {
		return nil
	}
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
