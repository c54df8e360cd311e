package respondersdk

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"
)

type fixedMetrics struct{ m SystemMetrics }

func (f fixedMetrics) Snapshot() SystemMetrics { return f.m }

type fakeGenerative struct {
	available bool
	reply     string
	err       error
}

func (f *fakeGenerative) IsAvailable() bool { return f.available }
func (f *fakeGenerative) Generate(context.Context, string) (string, error) {
	return f.reply, f.err
}

type savedExchange struct {
	userID   string
	message  string
	response string
	meta     *ResponseMetadata
}

type recordingSink struct{ ch chan savedExchange }

func (s *recordingSink) Save(_ context.Context, userID, message, response string, meta *ResponseMetadata) error {
	s.ch <- savedExchange{userID: userID, message: message, response: response, meta: meta}
	return nil
}

func newTestOrchestrator(opts OrchestratorOptions) *Orchestrator {
	cfg := DefaultOrchestratorConfig()
	cfg.Seed = 42
	return NewOrchestrator(opts, cfg)
}

func TestRespond_AnxiousMessageEndToEnd(t *testing.T) {
	o := newTestOrchestrator(OrchestratorOptions{Store: seededInMemoryStore()})

	text, meta := o.Respond(context.Background(), "u1", "I'm so anxious about my exam tomorrow")
	if strings.TrimSpace(text) == "" {
		t.Fatal("response must not be empty")
	}
	if strings.Contains(text, "{") {
		t.Fatalf("unfilled placeholder in %q", text)
	}
	if strings.Contains(strings.ToLower(text), "don't worry") {
		t.Fatalf("dismissive phrase in %q", text)
	}
	if meta.Emotion != EmotionAnxious {
		t.Fatalf("expected anxious metadata, got %s", meta.Emotion)
	}
	if meta.IsCrisis {
		t.Fatal("exam anxiety must not be flagged as crisis")
	}
	if meta.Strategy != StrategyRichTemplate {
		t.Fatalf("full context should select rich_template, got %s", meta.Strategy)
	}
	if meta.TemplateID == "" {
		t.Fatal("rich template response should carry a template id")
	}
	if !meta.QualityPassed {
		t.Fatalf("expected the gate to pass, score %.2f", meta.QualityScore)
	}
}

func TestRespond_CrisisBypassesLoadForcing(t *testing.T) {
	o := newTestOrchestrator(OrchestratorOptions{
		Store:   seededInMemoryStore(),
		Metrics: fixedMetrics{SystemMetrics{CPUUsage: 0.96}},
	})

	text, meta := o.Respond(context.Background(), "u1", "I just want to die")
	if !meta.IsCrisis {
		t.Fatal("expected crisis detection")
	}
	if meta.FallbackLevel != FallbackCrisisSupport {
		t.Fatalf("crisis must produce the crisis-support tier, got %s", meta.FallbackLevel)
	}
	if meta.Strategy == StrategyEmergencyFallback {
		t.Fatal("critical load must not downgrade a crisis decision")
	}
	if strings.TrimSpace(text) == "" || strings.Contains(text, "{name}") {
		t.Fatalf("bad crisis text: %q", text)
	}
}

func TestRespond_CriticalLoadForcesEmergency(t *testing.T) {
	o := newTestOrchestrator(OrchestratorOptions{
		Store:   seededInMemoryStore(),
		Metrics: fixedMetrics{SystemMetrics{MemoryUsage: 0.95}},
	})

	text, meta := o.Respond(context.Background(), "u1", "I'm so anxious about my exam tomorrow")
	if meta.Strategy != StrategyEmergencyFallback {
		t.Fatalf("critical load should force emergency fallback, got %s", meta.Strategy)
	}
	if meta.FallbackLevel == "" {
		t.Fatal("fallback responses must report their level")
	}
	if strings.TrimSpace(text) == "" {
		t.Fatal("response must not be empty")
	}
}

func TestRespond_StoreFullyDown(t *testing.T) {
	o := newTestOrchestrator(OrchestratorOptions{Store: failingStore{}})

	text, meta := o.Respond(context.Background(), "u1", "I'm so anxious about my exam tomorrow")
	if strings.TrimSpace(text) == "" {
		t.Fatal("response must not be empty when the store is down")
	}
	if strings.Contains(text, "{") {
		t.Fatalf("unfilled placeholder in %q", text)
	}
	if meta.Elapsed <= 0 {
		t.Fatal("metadata should record elapsed time")
	}
	if got := o.StrategySelector().ContextBreaker().ConsecutiveFailures(); got < 4 {
		t.Fatalf("failed store calls should count against the context breaker, got %d", got)
	}
}

func TestRespond_ConcurrentRequests(t *testing.T) {
	o := newTestOrchestrator(OrchestratorOptions{Store: seededInMemoryStore()})

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 25; i++ {
				userID := fmt.Sprintf("user-%d", g%4)
				text, meta := o.Respond(context.Background(), userID, "I'm so anxious about my exam tomorrow")
				if strings.TrimSpace(text) == "" {
					t.Errorf("empty response on goroutine %d call %d", g, i)
				}
				if meta.TraceID == "" {
					t.Errorf("missing trace id on goroutine %d call %d", g, i)
				}
			}
		}(g)
	}
	wg.Wait()
}

func TestRespond_NoCollaboratorsAtAll(t *testing.T) {
	o := newTestOrchestrator(OrchestratorOptions{})

	for _, msg := range []string{"", "hello!", "what do you think?"} {
		text, meta := o.Respond(context.Background(), "u1", msg)
		if strings.TrimSpace(text) == "" {
			t.Fatalf("empty response for %q", msg)
		}
		if meta.TraceID == "" {
			t.Fatal("every response needs a trace id")
		}
	}
}

func TestRespond_QualityFailureSubstitutesFallback(t *testing.T) {
	cat, err := NewCatalog([]Template{{
		ID:                  "dismissive",
		EmotionTags:         []Emotion{EmotionAnxious, EmotionWorried, EmotionSad},
		ConversationType:    ConversationEmotional,
		BaseText:            "Don't worry {name}, these things always sort themselves out fine!",
		ContextRequirements: []string{"name"},
		PersonalityTone:     ToneWarm,
	}})
	if err != nil {
		t.Fatalf("catalog: %v", err)
	}

	o := newTestOrchestrator(OrchestratorOptions{Store: seededInMemoryStore(), Catalog: cat})
	text, meta := o.Respond(context.Background(), "u1", "I'm so anxious about my exam tomorrow")

	if meta.QualityPassed {
		t.Fatal("blacklisted template text should fail the gate")
	}
	if !meta.QualityForced {
		t.Fatal("gate failure should force a fallback substitution")
	}
	if strings.Contains(strings.ToLower(text), "don't worry") {
		t.Fatalf("final text must be the substituted fallback, got %q", text)
	}
	if meta.FallbackLevel == "" {
		t.Fatal("substitution should record the fallback level")
	}
}

func TestRespond_SinkReceivesExchange(t *testing.T) {
	sink := &recordingSink{ch: make(chan savedExchange, 1)}
	o := newTestOrchestrator(OrchestratorOptions{Store: seededInMemoryStore(), Sink: sink})

	text, _ := o.Respond(context.Background(), "u1", "hello there")

	select {
	case got := <-sink.ch:
		if got.userID != "u1" || got.message != "hello there" {
			t.Fatalf("wrong exchange saved: %+v", got)
		}
		if got.response != text {
			t.Fatalf("saved response %q differs from returned %q", got.response, text)
		}
		if got.meta == nil || got.meta.TraceID == "" {
			t.Fatal("sink should receive metadata with a trace id")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("sink was never called")
	}
}

func TestRunGenerative_ErrorCountsAgainstBreaker(t *testing.T) {
	o := newTestOrchestrator(OrchestratorOptions{
		Generative: &fakeGenerative{available: true, err: errors.New("upstream 500")},
	})

	_, err := o.runGenerative(context.Background(), sadAnalysis(), richUserContext())
	if err == nil {
		t.Fatal("expected an error")
	}
	if got := o.strategies.GenerativeBreaker().ConsecutiveFailures(); got != 1 {
		t.Fatalf("error should count against the breaker, failures = %d", got)
	}
}

func TestRunGenerative_EmptyReplyIsNotAFailure(t *testing.T) {
	o := newTestOrchestrator(OrchestratorOptions{
		Generative: &fakeGenerative{available: true, reply: ""},
	})

	_, err := o.runGenerative(context.Background(), sadAnalysis(), richUserContext())
	if !errors.Is(err, errGenerativeUnavailable) {
		t.Fatalf("empty reply should signal unavailability, got %v", err)
	}
	if got := o.strategies.GenerativeBreaker().ConsecutiveFailures(); got != 0 {
		t.Fatalf("unavailability must not count as failure, failures = %d", got)
	}
}

func TestRunGenerative_SuccessResetsBreakerAndFinalizes(t *testing.T) {
	o := newTestOrchestrator(OrchestratorOptions{
		Generative: &fakeGenerative{available: true, reply: "i hear you and i am right here with you"},
	})
	o.strategies.GenerativeBreaker().RecordFailure(time.Now())

	text, err := o.runGenerative(context.Background(), sadAnalysis(), richUserContext())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.HasSuffix(text, ".") {
		t.Fatalf("generative output should be finalized, got %q", text)
	}
	if got := o.strategies.GenerativeBreaker().ConsecutiveFailures(); got != 0 {
		t.Fatalf("success should reset the breaker, failures = %d", got)
	}
}
