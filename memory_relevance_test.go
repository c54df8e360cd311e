package respondersdk

import (
	"testing"
	"time"
)

func TestScoreMemories_OverlapAndFilter(t *testing.T) {
	now := time.Now()
	records := []MemoryRecord{
		{ID: "exam", Type: "event", Content: "has a big exam coming up", CreatedAt: now.Add(-time.Hour)},
		{ID: "turtles", Type: "fact", Content: "likes turtles", CreatedAt: now.AddDate(0, 0, -60)},
	}

	got := ScoreMemories(records, "my exam is tomorrow and I'm stressed", now, 0.3)
	if len(got) != 1 {
		t.Fatalf("expected only the relevant memory to survive, got %v", got)
	}
	if got[0].ID != "exam" {
		t.Fatalf("expected exam memory first, got %s", got[0].ID)
	}
	if got[0].Relevance < 0.5 {
		t.Fatalf("expected a solid relevance score, got %.2f", got[0].Relevance)
	}
}

func TestScoreMemories_SortedDescending(t *testing.T) {
	now := time.Now()
	records := []MemoryRecord{
		{ID: "old", Type: "fact", Content: "talked about the exam once", CreatedAt: now.AddDate(0, 0, -20)},
		{ID: "fresh", Type: "relationship", Content: "exam stress with her sister", CreatedAt: now.Add(-2 * time.Hour)},
	}

	got := ScoreMemories(records, "the exam is stressing me out", now, 0.0)
	if len(got) != 2 {
		t.Fatalf("expected both records with zero threshold, got %d", len(got))
	}
	if got[0].Relevance < got[1].Relevance {
		t.Fatalf("records not sorted by relevance: %.2f before %.2f", got[0].Relevance, got[1].Relevance)
	}
	if got[0].ID != "fresh" {
		t.Fatalf("recent relationship memory should rank first, got %s", got[0].ID)
	}
}

func TestScoreMemories_InputNotMutated(t *testing.T) {
	now := time.Now()
	records := []MemoryRecord{
		{ID: "a", Type: "event", Content: "went hiking", CreatedAt: now},
	}
	ScoreMemories(records, "hiking again soon", now, 0.0)
	if records[0].Relevance != 0 {
		t.Fatalf("input slice must not be mutated, relevance became %.2f", records[0].Relevance)
	}
}

func TestScoreMemories_Empty(t *testing.T) {
	if got := ScoreMemories(nil, "anything", time.Now(), 0.3); got != nil {
		t.Fatalf("expected nil for empty input, got %v", got)
	}
}
