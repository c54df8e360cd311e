package respondersdk

import (
	"math/rand"
	"strings"
	"testing"
	"unicode/utf8"
)

func quietPersonalizer() *Personalizer {
	cfg := DefaultPersonalizerConfig()
	cfg.MinLength = 0
	cfg.MemoryOdds = 0
	cfg.RelationshipOdds = 0
	cfg.EmotionAckOdds = 0
	return NewPersonalizer(rand.New(rand.NewSource(1)), cfg)
}

func TestPersonalize_FillsPlaceholders(t *testing.T) {
	p := quietPersonalizer()
	uctx := &UserContext{
		PreferredName:  "Sam",
		RecentMemories: []MemoryRecord{{Content: "the job interview", Relevance: 0.8}},
	}
	analysis := &AnalysisResult{PrimaryEmotion: EmotionAnxious}

	got := p.Personalize("Hey {name}, how did {memory} go? You sounded {emotion} about it.", analysis, uctx)
	if strings.Contains(got, "{") {
		t.Fatalf("unfilled placeholder in %q", got)
	}
	if !strings.Contains(got, "Sam") || !strings.Contains(got, "the job interview") {
		t.Fatalf("placeholders not filled from context: %q", got)
	}
}

func TestPersonalize_DefaultName(t *testing.T) {
	p := quietPersonalizer()
	got := p.Personalize("I'm here for you, {name}. Take whatever time you need today.", nil, nil)
	if !strings.Contains(got, "friend") {
		t.Fatalf("missing name should fall back to friend: %q", got)
	}
}

func TestFillName(t *testing.T) {
	p := quietPersonalizer()
	if got := p.FillName("Hey {name}, good to see you around here!", ""); !strings.Contains(got, "friend") {
		t.Fatalf("expected default name, got %q", got)
	}
	if got := p.FillName("Hey {name}, good to see you around here!", "Sam"); !strings.Contains(got, "Sam") {
		t.Fatalf("expected Sam, got %q", got)
	}
}

func TestFinalize_TerminalPunctuation(t *testing.T) {
	p := quietPersonalizer()
	if got := p.Finalize("thanks for telling me"); !strings.HasSuffix(got, ".") {
		t.Fatalf("expected terminal period, got %q", got)
	}
	if got := p.Finalize("really glad you came by!"); !strings.HasSuffix(got, "!") {
		t.Fatalf("exclamation should be preserved, got %q", got)
	}
	if got := p.Finalize("well, I was thinking,"); strings.HasSuffix(got, ",") {
		t.Fatalf("trailing comma should be replaced, got %q", got)
	}
}

func TestFinalize_PadsShortResponses(t *testing.T) {
	p := NewPersonalizer(rand.New(rand.NewSource(1)))
	got := p.Finalize("Okay.")
	if utf8.RuneCountInString(got) < DefaultPersonalizerConfig().MinLength {
		t.Fatalf("short response should be padded, got %q", got)
	}
}

func TestFinalize_TruncatesAtSentence(t *testing.T) {
	cfg := DefaultPersonalizerConfig()
	cfg.MinLength = 0
	cfg.MaxLength = 60
	p := NewPersonalizer(rand.New(rand.NewSource(1)), cfg)

	long := "This is the first sentence which is fairly long. And here is a second one that pushes past the limit entirely."
	got := p.Finalize(long)
	if utf8.RuneCountInString(got) > 60 {
		t.Fatalf("expected truncation to %d runes, got %d: %q", 60, utf8.RuneCountInString(got), got)
	}
	if !strings.HasSuffix(got, ".") {
		t.Fatalf("truncation should land on a sentence boundary, got %q", got)
	}
}

func TestEmbellish_MemoryReference(t *testing.T) {
	cfg := DefaultPersonalizerConfig()
	cfg.MinLength = 0
	cfg.MemoryOdds = 1.0
	p := NewPersonalizer(rand.New(rand.NewSource(1)), cfg)

	uctx := &UserContext{
		PreferredName:  "Sam",
		RecentMemories: []MemoryRecord{{Content: "your big exam this week", Relevance: 0.9}},
	}
	got := p.Personalize("That sounds like a lot to carry, {name}. I'm right here with you.", nil, uctx)
	if !strings.Contains(got, "I remember you mentioned") {
		t.Fatalf("expected memory embellishment, got %q", got)
	}
}

func TestEmbellish_SkipsLowRelevanceMemory(t *testing.T) {
	cfg := DefaultPersonalizerConfig()
	cfg.MinLength = 0
	cfg.MemoryOdds = 1.0
	cfg.RelationshipOdds = 0
	cfg.EmotionAckOdds = 0
	p := NewPersonalizer(rand.New(rand.NewSource(1)), cfg)

	uctx := &UserContext{
		PreferredName:  "Sam",
		RecentMemories: []MemoryRecord{{Content: "something unrelated", Relevance: 0.2}},
	}
	got := p.Personalize("That sounds like a lot to carry, {name}. I'm right here with you.", nil, uctx)
	if strings.Contains(got, "I remember you mentioned") {
		t.Fatalf("low-relevance memory must not be referenced: %q", got)
	}
}

func TestEmbellish_SkipsShortText(t *testing.T) {
	cfg := DefaultPersonalizerConfig()
	cfg.MinLength = 0
	cfg.MemoryOdds = 1.0
	p := NewPersonalizer(rand.New(rand.NewSource(1)), cfg)

	uctx := &UserContext{RecentMemories: []MemoryRecord{{Content: "the exam", Relevance: 0.9}}}
	got := p.Personalize("Okay, {name}.", nil, uctx)
	if strings.Contains(got, "I remember") {
		t.Fatalf("short responses should stay terse: %q", got)
	}
}
