package respondersdk

import (
	"testing"
	"time"
)

func richUserContext() *UserContext {
	return &UserContext{
		UserID:           "u1",
		PreferredName:    "Sam",
		KeyRelationships: map[string]string{"Maya": "sister"},
		RecentMemories:   []MemoryRecord{{ID: "m1", Content: "exam stress", Relevance: 0.8}},
		ConversationHistory: []ConversationTurn{
			{Message: "hi", Response: "hey Sam"},
		},
		RecentEmotions: []Emotion{EmotionSad},
	}
}

func sadAnalysis() *AnalysisResult {
	return &AnalysisResult{
		PrimaryEmotion:   EmotionSad,
		Confidence:       0.8,
		Intensity:        IntensityHigh,
		ConversationType: ConversationEmotional,
		UserIntent:       IntentSeekingSupport,
	}
}

func TestSelectStrategy_RichWithFullContext(t *testing.T) {
	s := NewStrategySelector(nil, nil)
	decision := s.SelectStrategy(StrategyCriteria{
		Message:  "I've been feeling really low since the exam",
		Analysis: sadAnalysis(),
		Context:  richUserContext(),
	}, SystemMetrics{})

	if decision.SelectedStrategy != StrategyRichTemplate {
		t.Fatalf("expected rich_template, got %s (scores %v)", decision.SelectedStrategy, decision.Scores)
	}
	if decision.Scores[StrategyGenerativeAssisted] != 0 {
		t.Fatalf("unavailable generative assist must score zero, got %v", decision.Scores)
	}
	if decision.LoadLevel != LoadLow {
		t.Fatalf("expected low load, got %s", decision.LoadLevel)
	}
}

func TestSelectStrategy_CriticalLoadForcesEmergency(t *testing.T) {
	s := NewStrategySelector(nil, nil)
	decision := s.SelectStrategy(StrategyCriteria{
		Message:  "I've been feeling really low since the exam",
		Analysis: sadAnalysis(),
		Context:  richUserContext(),
	}, SystemMetrics{CPUUsage: 0.96})

	if decision.SelectedStrategy != StrategyEmergencyFallback {
		t.Fatalf("critical load must force emergency fallback, got %s (scores %v)",
			decision.SelectedStrategy, decision.Scores)
	}
	if decision.LoadLevel != LoadCritical {
		t.Fatalf("expected critical load, got %s", decision.LoadLevel)
	}
}

func TestSelectStrategy_CrisisOverridesCriticalLoad(t *testing.T) {
	s := NewStrategySelector(nil, nil)
	analysis := sadAnalysis()
	analysis.IsCrisis = true
	analysis.Confidence = 0.9
	analysis.Intensity = IntensityVeryHigh

	decision := s.SelectStrategy(StrategyCriteria{
		Message:  "I can't do this anymore",
		Analysis: analysis,
		Context:  richUserContext(),
	}, SystemMetrics{CPUUsage: 0.96})

	if decision.SelectedStrategy == StrategyEmergencyFallback {
		t.Fatalf("crisis must bypass critical-load forcing, scores %v", decision.Scores)
	}
	if decision.SelectedStrategy != StrategyRichTemplate {
		t.Fatalf("crisis should boost rich_template, got %s", decision.SelectedStrategy)
	}
}

func TestSelectStrategy_GenerativeBreakerOpen(t *testing.T) {
	s := NewStrategySelector(nil, nil)
	now := time.Now()
	for i := 0; i < 3; i++ {
		s.GenerativeBreaker().RecordFailure(now)
	}

	decision := s.SelectStrategy(StrategyCriteria{
		Message:             "long complicated question about everything going on?",
		Analysis:            sadAnalysis(),
		Context:             richUserContext(),
		GenerativeAvailable: true,
	}, SystemMetrics{})

	if decision.Scores[StrategyGenerativeAssisted] != 0 {
		t.Fatalf("open breaker must zero generative score, got %v", decision.Scores)
	}
}

func TestSelectStrategy_ContextBreakerOpenZeroesRich(t *testing.T) {
	s := NewStrategySelector(nil, nil)
	now := time.Now()
	for i := 0; i < 5; i++ {
		s.ContextBreaker().RecordFailure(now)
	}

	decision := s.SelectStrategy(StrategyCriteria{
		Message:  "I've been feeling really low since the exam",
		Analysis: sadAnalysis(),
		Context:  richUserContext(),
	}, SystemMetrics{})

	if decision.Scores[StrategyRichTemplate] != 0 {
		t.Fatalf("open context breaker must zero rich score, got %v", decision.Scores)
	}
	if decision.SelectedStrategy == StrategyRichTemplate {
		t.Fatal("rich_template must not be selected with an open context breaker")
	}
}

func TestSelectStrategy_ChainAlwaysEndsInEmergency(t *testing.T) {
	s := NewStrategySelector(nil, nil)
	decision := s.SelectStrategy(StrategyCriteria{
		Message: "hello",
	}, SystemMetrics{})

	if len(decision.FallbackChain) == 0 {
		t.Fatal("fallback chain must never be empty")
	}
	if decision.FallbackChain[len(decision.FallbackChain)-1] != StrategyEmergencyFallback {
		t.Fatalf("chain must end in emergency fallback: %v", decision.FallbackChain)
	}
}
