// Package store provides persistence backends for the responder SDK.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"

	respondersdk "github.com/conversekit/responder-sdk-go"
)

// RedisStoreConfig configures the Redis-backed store.
type RedisStoreConfig struct {
	Prefix        string        // key prefix, default "responder"
	ProfileTTL    time.Duration // expiry for profile keys, 0 = no expiry
	MaxListLength int           // cap on memory/history/mood lists, default 200
}

// DefaultRedisStoreConfig returns production defaults.
func DefaultRedisStoreConfig() RedisStoreConfig {
	return RedisStoreConfig{Prefix: "responder", MaxListLength: 200}
}

// RedisMemoryStore implements respondersdk.MemoryStore on Redis, plus the
// write side used by the conversation sink. Profiles are JSON strings,
// memories/history/moods are JSON lists trimmed to MaxListLength.
//
// Keys: "{prefix}:profile:{user}", "{prefix}:memories:{user}",
// "{prefix}:history:{user}", "{prefix}:mood:{user}".
type RedisMemoryStore struct {
	client redis.UniversalClient
	config RedisStoreConfig
}

// NewRedisMemoryStore creates a store over an existing client.
// Works with Client, ClusterClient and Ring.
func NewRedisMemoryStore(client redis.UniversalClient, config ...RedisStoreConfig) *RedisMemoryStore {
	cfg := DefaultRedisStoreConfig()
	if len(config) > 0 {
		cfg = config[0]
	}
	if cfg.Prefix == "" {
		cfg.Prefix = "responder"
	}
	if cfg.MaxListLength <= 0 {
		cfg.MaxListLength = 200
	}
	return &RedisMemoryStore{client: client, config: cfg}
}

func (r *RedisMemoryStore) profileKey(userID string) string {
	return fmt.Sprintf("%s:profile:%s", r.config.Prefix, userID)
}

func (r *RedisMemoryStore) memoriesKey(userID string) string {
	return fmt.Sprintf("%s:memories:%s", r.config.Prefix, userID)
}

func (r *RedisMemoryStore) historyKey(userID string) string {
	return fmt.Sprintf("%s:history:%s", r.config.Prefix, userID)
}

func (r *RedisMemoryStore) moodKey(userID string) string {
	return fmt.Sprintf("%s:mood:%s", r.config.Prefix, userID)
}

// GetProfile returns the stored profile, or (nil, nil) when absent.
func (r *RedisMemoryStore) GetProfile(ctx context.Context, userID string) (*respondersdk.UserProfile, error) {
	raw, err := r.client.Get(ctx, r.profileKey(userID)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get profile: %w", err)
	}
	var profile respondersdk.UserProfile
	if err := json.Unmarshal([]byte(raw), &profile); err != nil {
		return nil, fmt.Errorf("decode profile: %w", err)
	}
	return &profile, nil
}

// GetMemories returns up to limit memories, newest first.
// Corrupt list entries are skipped, not fatal.
func (r *RedisMemoryStore) GetMemories(ctx context.Context, userID string, limit int) ([]respondersdk.MemoryRecord, error) {
	start := int64(0)
	if limit > 0 {
		start = int64(-limit)
	}
	items, err := r.client.LRange(ctx, r.memoriesKey(userID), start, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("get memories: %w", err)
	}
	out := make([]respondersdk.MemoryRecord, 0, len(items))
	for _, item := range items {
		var rec respondersdk.MemoryRecord
		if json.Unmarshal([]byte(item), &rec) != nil {
			continue
		}
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// GetConversationHistory returns the last limit turns in order.
func (r *RedisMemoryStore) GetConversationHistory(ctx context.Context, userID string, limit int) ([]respondersdk.ConversationTurn, error) {
	start := int64(0)
	if limit > 0 {
		start = int64(-limit)
	}
	items, err := r.client.LRange(ctx, r.historyKey(userID), start, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("get history: %w", err)
	}
	out := make([]respondersdk.ConversationTurn, 0, len(items))
	for _, item := range items {
		var turn respondersdk.ConversationTurn
		if json.Unmarshal([]byte(item), &turn) != nil {
			continue
		}
		out = append(out, turn)
	}
	return out, nil
}

// GetMoodHistory returns mood records within the last days.
func (r *RedisMemoryStore) GetMoodHistory(ctx context.Context, userID string, days int) ([]respondersdk.MoodRecord, error) {
	items, err := r.client.LRange(ctx, r.moodKey(userID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("get moods: %w", err)
	}
	cutoff := time.Now().AddDate(0, 0, -days)
	out := make([]respondersdk.MoodRecord, 0, len(items))
	for _, item := range items {
		var rec respondersdk.MoodRecord
		if json.Unmarshal([]byte(item), &rec) != nil {
			continue
		}
		if days <= 0 || rec.RecordedAt.After(cutoff) {
			out = append(out, rec)
		}
	}
	return out, nil
}

// SaveProfile stores or replaces a profile.
func (r *RedisMemoryStore) SaveProfile(ctx context.Context, profile *respondersdk.UserProfile) error {
	raw, err := json.Marshal(profile)
	if err != nil {
		return fmt.Errorf("encode profile: %w", err)
	}
	return r.client.Set(ctx, r.profileKey(profile.UserID), raw, r.config.ProfileTTL).Err()
}

// AddMemory appends a memory record, trimming to the list cap.
func (r *RedisMemoryStore) AddMemory(ctx context.Context, userID string, rec respondersdk.MemoryRecord) error {
	return r.pushJSON(ctx, r.memoriesKey(userID), rec)
}

// RecordMood appends a mood record, trimming to the list cap.
func (r *RedisMemoryStore) RecordMood(ctx context.Context, userID string, rec respondersdk.MoodRecord) error {
	return r.pushJSON(ctx, r.moodKey(userID), rec)
}

// Save implements respondersdk.ConversationSink: it appends the exchange
// as a conversation turn and records the detected mood alongside.
func (r *RedisMemoryStore) Save(ctx context.Context, userID, message, response string, meta *respondersdk.ResponseMetadata) error {
	turn := respondersdk.ConversationTurn{Message: message, Response: response, At: time.Now()}
	if err := r.pushJSON(ctx, r.historyKey(userID), turn); err != nil {
		return err
	}
	if meta != nil && meta.Emotion != "" && meta.Emotion != respondersdk.EmotionNeutral {
		return r.RecordMood(ctx, userID, respondersdk.MoodRecord{Emotion: meta.Emotion, RecordedAt: time.Now()})
	}
	return nil
}

func (r *RedisMemoryStore) pushJSON(ctx context.Context, key string, v interface{}) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode record: %w", err)
	}
	pipe := r.client.TxPipeline()
	pipe.RPush(ctx, key, raw)
	pipe.LTrim(ctx, key, int64(-r.config.MaxListLength), -1)
	_, err = pipe.Exec(ctx)
	return err
}

// Close releases the underlying client.
func (r *RedisMemoryStore) Close() error {
	return r.client.Close()
}

// Compile-time interface checks.
var (
	_ respondersdk.MemoryStore      = (*RedisMemoryStore)(nil)
	_ respondersdk.ConversationSink = (*RedisMemoryStore)(nil)
)
