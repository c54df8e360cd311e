package store

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	respondersdk "github.com/conversekit/responder-sdk-go"
)

func newTestStore(t *testing.T) *RedisMemoryStore {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedisMemoryStore(client)
}

func TestProfileRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	profile := &respondersdk.UserProfile{
		UserID:        "u1",
		PreferredName: "Sam",
		Preferences:   respondersdk.Preferences{CommunicationStyle: "warm"},
		Relationships: map[string]string{"Maya": "sister"},
	}
	if err := s.SaveProfile(ctx, profile); err != nil {
		t.Fatalf("SaveProfile: %v", err)
	}

	got, err := s.GetProfile(ctx, "u1")
	if err != nil {
		t.Fatalf("GetProfile: %v", err)
	}
	if got == nil || got.PreferredName != "Sam" {
		t.Fatalf("expected profile for Sam, got %+v", got)
	}
	if got.Relationships["Maya"] != "sister" {
		t.Fatalf("expected relationship preserved, got %+v", got.Relationships)
	}
}

func TestGetProfile_Missing(t *testing.T) {
	s := newTestStore(t)
	got, err := s.GetProfile(context.Background(), "nobody")
	if err != nil {
		t.Fatalf("missing profile should not error, got %v", err)
	}
	if got != nil {
		t.Fatalf("expected nil profile, got %+v", got)
	}
}

func TestMemories_LimitAndOrder(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	base := time.Now().Add(-time.Hour)
	for i := 0; i < 5; i++ {
		rec := respondersdk.MemoryRecord{
			ID:        string(rune('a' + i)),
			Type:      "event",
			Content:   "memory",
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}
		if err := s.AddMemory(ctx, "u1", rec); err != nil {
			t.Fatalf("AddMemory: %v", err)
		}
	}

	got, err := s.GetMemories(ctx, "u1", 3)
	if err != nil {
		t.Fatalf("GetMemories: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 memories, got %d", len(got))
	}
	for i := 1; i < len(got); i++ {
		if got[i].CreatedAt.After(got[i-1].CreatedAt) {
			t.Fatalf("memories not newest-first: %v", got)
		}
	}
}

func TestHistory_LastN(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		err := s.Save(ctx, "u1", "msg", "resp", nil)
		if err != nil {
			t.Fatalf("Save: %v", err)
		}
	}

	got, err := s.GetConversationHistory(ctx, "u1", 2)
	if err != nil {
		t.Fatalf("GetConversationHistory: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 turns, got %d", len(got))
	}
}

func TestMoodHistory_WindowFilter(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	old := respondersdk.MoodRecord{Emotion: respondersdk.EmotionSad, RecordedAt: time.Now().AddDate(0, 0, -30)}
	recent := respondersdk.MoodRecord{Emotion: respondersdk.EmotionHappy, RecordedAt: time.Now().Add(-time.Hour)}
	if err := s.RecordMood(ctx, "u1", old); err != nil {
		t.Fatalf("RecordMood: %v", err)
	}
	if err := s.RecordMood(ctx, "u1", recent); err != nil {
		t.Fatalf("RecordMood: %v", err)
	}

	got, err := s.GetMoodHistory(ctx, "u1", 7)
	if err != nil {
		t.Fatalf("GetMoodHistory: %v", err)
	}
	if len(got) != 1 || got[0].Emotion != respondersdk.EmotionHappy {
		t.Fatalf("expected only the recent mood, got %+v", got)
	}
}

func TestSave_RecordsMoodFromMetadata(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	meta := &respondersdk.ResponseMetadata{Emotion: respondersdk.EmotionAnxious}
	if err := s.Save(ctx, "u1", "exam tomorrow", "you've got this", meta); err != nil {
		t.Fatalf("Save: %v", err)
	}

	moods, err := s.GetMoodHistory(ctx, "u1", 1)
	if err != nil {
		t.Fatalf("GetMoodHistory: %v", err)
	}
	if len(moods) != 1 || moods[0].Emotion != respondersdk.EmotionAnxious {
		t.Fatalf("expected anxious mood recorded, got %+v", moods)
	}
}

func TestListTrimming(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	s := NewRedisMemoryStore(client, RedisStoreConfig{MaxListLength: 3})

	ctx := context.Background()
	for i := 0; i < 10; i++ {
		if err := s.Save(ctx, "u1", "m", "r", nil); err != nil {
			t.Fatalf("Save: %v", err)
		}
	}

	got, err := s.GetConversationHistory(ctx, "u1", 0)
	if err != nil {
		t.Fatalf("GetConversationHistory: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected list trimmed to 3, got %d", len(got))
	}
}
