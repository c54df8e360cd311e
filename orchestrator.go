package respondersdk

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ──────────────────────────────────────────────
// Orchestrator — the full adaptive response pipeline behind one call
// ──────────────────────────────────────────────

// GenerativeAssistClient is the optional external generation collaborator.
// A nil client or IsAvailable()==false simply removes the strategy.
type GenerativeAssistClient interface {
	IsAvailable() bool
	// Generate returns the reply text. An empty string signals
	// unavailability, not an error; errors and timeouts count against
	// the generative circuit breaker.
	Generate(ctx context.Context, prompt string) (string, error)
}

// ConversationSink persists finished exchanges. Saving is fire-and-forget
// from the orchestrator's perspective: failures are logged, never block.
type ConversationSink interface {
	Save(ctx context.Context, userID, message, response string, meta *ResponseMetadata) error
}

// ResponseMetadata describes how a response was produced. Always populated.
type ResponseMetadata struct {
	TraceID         string                  `json:"trace_id"`
	Strategy        Strategy                `json:"strategy"`
	StrategiesTried []Strategy              `json:"strategies_tried,omitempty"`
	TemplateID      string                  `json:"template_id,omitempty"`
	VariationIndex  int                     `json:"variation_index"`
	FallbackLevel   FallbackLevel           `json:"fallback_level,omitempty"`
	QualityScore    float64                 `json:"quality_score"`
	QualityLevel    QualityLevel            `json:"quality_level"`
	QualityPassed   bool                    `json:"quality_passed"`
	QualityForced   bool                    `json:"quality_forced"` // gate substituted a fallback
	LoadLevel       LoadLevel               `json:"load_level"`
	Emotion         Emotion                 `json:"emotion"`
	IsCrisis        bool                    `json:"is_crisis"`
	Reasoning       []string                `json:"reasoning,omitempty"`
	BreakerStates   map[string]BreakerState `json:"breaker_states,omitempty"`
	Elapsed         time.Duration           `json:"elapsed"`
}

// OrchestratorConfig holds tunables; collaborators go in OrchestratorOptions.
type OrchestratorConfig struct {
	GenerativeTimeout time.Duration // bound on the assist call, default 3 s
	FollowUpOdds      float64       // chance to append a template follow-up, default 0.3
	Seed              int64         // rng seed, 0 = time-based
	Cache             ContextCacheConfig
	Rotation          RotationConfig
	Personalizer      PersonalizerConfig
	QualityGate       QualityGateConfig
}

// DefaultOrchestratorConfig returns production defaults.
func DefaultOrchestratorConfig() OrchestratorConfig {
	return OrchestratorConfig{
		GenerativeTimeout: 3 * time.Second,
		FollowUpOdds:      0.3,
		Cache:             DefaultContextCacheConfig(),
		Rotation:          DefaultRotationConfig(),
		Personalizer:      DefaultPersonalizerConfig(),
		QualityGate:       DefaultQualityGateConfig(),
	}
}

// OrchestratorOptions groups the injected collaborators.
// Only Catalog is required; everything else degrades gracefully when nil.
type OrchestratorOptions struct {
	Catalog    *Catalog
	Store      MemoryStore            // nil → default context only
	Generative GenerativeAssistClient // nil → strategy removed
	Metrics    MetricsProvider        // nil → zero metrics (low load)
	Sink       ConversationSink       // nil → exchanges not persisted
	Logger     *zap.Logger            // nil → no-op
}

// Orchestrator wires the full pipeline: analysis → context → strategy →
// execution → quality gate. Respond never panics outward, never returns
// an empty string.
type Orchestrator struct {
	config       OrchestratorConfig
	analyzer     *MessageAnalyzer
	cache        *ContextCache
	rotation     *RotationEngine
	templates    *TemplateSelector
	personalizer *Personalizer
	strategies   *StrategySelector
	fallback     *FallbackSystem
	gate         *QualityGate
	generative   GenerativeAssistClient
	metrics      MetricsProvider
	sink         ConversationSink
	logger       *zap.Logger
	rng          *rand.Rand
}

// NewOrchestrator constructs the pipeline. A nil or empty catalog falls
// back to the built-in one — the system never starts with zero templates.
func NewOrchestrator(opts OrchestratorOptions, config ...OrchestratorConfig) *Orchestrator {
	cfg := DefaultOrchestratorConfig()
	if len(config) > 0 {
		cfg = config[0]
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("orchestrator")

	catalog := opts.Catalog
	if catalog == nil || catalog.Len() == 0 {
		catalog = BuiltinCatalog()
	}

	// One locked source backs every component, so parallel Respond calls
	// never race on rng state.
	rng := newLockedRand(cfg.Seed)

	strategies := NewStrategySelector(nil, nil)
	rotation := NewRotationEngine(rng, cfg.Rotation)
	return &Orchestrator{
		config:       cfg,
		analyzer:     NewMessageAnalyzer(),
		cache:        NewContextCache(opts.Store, strategies.ContextBreaker(), logger, cfg.Cache),
		rotation:     rotation,
		templates:    NewTemplateSelector(catalog, rotation, rng),
		personalizer: NewPersonalizer(rng, cfg.Personalizer),
		strategies:   strategies,
		fallback:     NewFallbackSystem(rng),
		gate:         NewQualityGate(cfg.QualityGate),
		generative:   opts.Generative,
		metrics:      opts.Metrics,
		sink:         opts.Sink,
		logger:       logger,
		rng:          rng,
	}
}

// Cache exposes the context cache, e.g. for InvalidateContext after writes.
func (o *Orchestrator) Cache() *ContextCache { return o.cache }

// StrategySelector exposes the selector and its circuit breakers.
func (o *Orchestrator) StrategySelector() *StrategySelector { return o.strategies }

// errGenerativeUnavailable signals that the assist client produced
// nothing; it advances the chain without a breaker failure.
var errGenerativeUnavailable = errors.New("generative assist unavailable")

// Respond produces one reply for the incoming message. It always returns
// non-empty, validated text; internal failures surface only in metadata
// and logs.
func (o *Orchestrator) Respond(ctx context.Context, userID, message string) (text string, meta *ResponseMetadata) {
	start := time.Now()
	meta = &ResponseMetadata{TraceID: uuid.NewString()}

	defer func() {
		if r := recover(); r != nil {
			o.logger.Error("pipeline panic recovered", zap.Any("panic", r), zap.String("trace_id", meta.TraceID))
			fb := o.fallback.GenerateFallback(FallbackContext{})
			text = fb.Text
			meta.Strategy = StrategyEmergencyFallback
			meta.FallbackLevel = fb.Level
		}
		if strings.TrimSpace(text) == "" {
			fb := o.fallback.GenerateFallback(FallbackContext{})
			text = fb.Text
			meta.FallbackLevel = fb.Level
		}
		meta.Elapsed = time.Since(start)
	}()

	uctx := o.cache.GetContext(ctx, userID, message)
	analysis := o.analyzer.Analyze(message, priorUserMessages(uctx))
	meta.Emotion = analysis.PrimaryEmotion
	meta.IsCrisis = analysis.IsCrisis

	var metrics SystemMetrics
	if o.metrics != nil {
		metrics = o.metrics.Snapshot()
	}

	decision := o.strategies.SelectStrategy(StrategyCriteria{
		Message:             message,
		Analysis:            analysis,
		Context:             uctx,
		GenerativeAvailable: o.generative != nil && o.generative.IsAvailable(),
	}, metrics)
	meta.Strategy = decision.SelectedStrategy
	meta.LoadLevel = decision.LoadLevel
	meta.Reasoning = decision.Reasoning
	defer func() { meta.BreakerStates = o.breakerStates() }()

	if analysis.IsCrisis {
		// Crisis overrides every strategy: the reply must be the
		// crisis-support tier, full stop.
		fb := o.fallback.GenerateFallback(o.fallbackContext(analysis, uctx))
		text = fb.Text
		meta.FallbackLevel = fb.Level
		o.assess(&text, meta, analysis, uctx)
		o.persist(userID, message, text, meta)
		return text, meta
	}

	text = o.executeChain(ctx, decision, analysis, uctx, meta)
	o.assess(&text, meta, analysis, uctx)
	o.persist(userID, message, text, meta)
	return text, meta
}

// executeChain runs the selected strategy and walks the fallback chain on
// failure, recording circuit breaker outcomes along the way.
func (o *Orchestrator) executeChain(ctx context.Context, decision *StrategyDecision, analysis *AnalysisResult, uctx *UserContext, meta *ResponseMetadata) string {
	chain := append([]Strategy{decision.SelectedStrategy}, decision.FallbackChain...)
	tried := make(map[Strategy]bool)

	for _, st := range chain {
		if tried[st] {
			continue
		}
		tried[st] = true
		meta.StrategiesTried = append(meta.StrategiesTried, st)

		text, err := o.executeStrategy(ctx, st, analysis, uctx, meta)
		if err == nil && strings.TrimSpace(text) != "" {
			meta.Strategy = st
			return text
		}
		if err != nil && !errors.Is(err, errGenerativeUnavailable) {
			o.logger.Warn("strategy failed, advancing chain",
				zap.String("strategy", string(st)), zap.Error(err), zap.String("trace_id", meta.TraceID))
		}
	}

	// The chain always ends in emergency fallback, so this is unreachable
	// unless every tier misbehaved; answer safely anyway.
	fb := o.fallback.GenerateFallback(o.fallbackContext(analysis, uctx))
	meta.Strategy = StrategyEmergencyFallback
	meta.FallbackLevel = fb.Level
	return fb.Text
}

func (o *Orchestrator) executeStrategy(ctx context.Context, st Strategy, analysis *AnalysisResult, uctx *UserContext, meta *ResponseMetadata) (string, error) {
	switch st {
	case StrategyRichTemplate:
		return o.runRichTemplate(analysis, uctx, meta)
	case StrategyBasicTemplate:
		return o.runBasicTemplate(analysis, uctx, meta)
	case StrategyGenerativeAssisted:
		return o.runGenerative(ctx, analysis, uctx)
	case StrategyEmergencyFallback:
		fb := o.fallback.GenerateFallback(o.fallbackContext(analysis, uctx))
		meta.FallbackLevel = fb.Level
		return fb.Text, nil
	default:
		return "", fmt.Errorf("unknown strategy %q", st)
	}
}

func (o *Orchestrator) runRichTemplate(analysis *AnalysisResult, uctx *UserContext, meta *ResponseMetadata) (string, error) {
	sel := o.templates.SelectTemplate(SelectionCriteria{
		UserID:           uctx.UserID,
		Emotion:          analysis.PrimaryEmotion,
		Confidence:       analysis.Confidence,
		ConversationType: analysis.ConversationType,
		PreferredTone:    preferredTone(uctx),
		AvailableContext: uctx.AvailableFields(),
		TurnIndex:        uctx.TurnIndex,
	})
	if sel == nil {
		return "", errors.New("no template candidate")
	}

	text := o.personalizer.Personalize(sel.Text, analysis, uctx)
	if len(sel.Template.FollowUps) > 0 && o.rng.Float64() < o.config.FollowUpOdds {
		text = text + " " + sel.Template.FollowUps[o.rng.Intn(len(sel.Template.FollowUps))]
	}
	meta.TemplateID = sel.Template.ID
	meta.VariationIndex = sel.VariationIndex
	return text, nil
}

func (o *Orchestrator) runBasicTemplate(analysis *AnalysisResult, uctx *UserContext, meta *ResponseMetadata) (string, error) {
	sel := o.templates.SelectTemplate(SelectionCriteria{
		UserID:           uctx.UserID,
		Emotion:          analysis.PrimaryEmotion,
		Confidence:       analysis.Confidence,
		ConversationType: analysis.ConversationType,
		AvailableContext: map[string]bool{"name": true},
		TurnIndex:        uctx.TurnIndex,
	})
	if sel == nil {
		return "", errors.New("no template candidate")
	}
	meta.TemplateID = sel.Template.ID
	meta.VariationIndex = sel.VariationIndex
	return o.personalizer.FillName(sel.Text, uctx.PreferredName), nil
}

func (o *Orchestrator) runGenerative(ctx context.Context, analysis *AnalysisResult, uctx *UserContext) (string, error) {
	if o.generative == nil || !o.generative.IsAvailable() {
		return "", errGenerativeUnavailable
	}
	breaker := o.strategies.GenerativeBreaker()

	callCtx, cancel := context.WithTimeout(ctx, o.config.GenerativeTimeout)
	defer cancel()

	out, err := o.generative.Generate(callCtx, buildGenerativePrompt(analysis, uctx))
	if err != nil {
		breaker.RecordFailure(time.Now())
		return "", fmt.Errorf("generative assist: %w", err)
	}
	if strings.TrimSpace(out) == "" {
		return "", errGenerativeUnavailable
	}
	breaker.RecordSuccess()
	return o.personalizer.Finalize(out), nil
}

// assess runs the quality gate; a hard failure substitutes fallback output.
func (o *Orchestrator) assess(text *string, meta *ResponseMetadata, analysis *AnalysisResult, uctx *UserContext) {
	qa := o.gate.Assess(*text, analysis, uctx)
	meta.QualityScore = qa.OverallScore
	meta.QualityLevel = qa.Level
	meta.QualityPassed = qa.Passed
	if qa.Passed {
		return
	}
	o.logger.Warn("quality gate failed, substituting fallback",
		zap.Strings("issues", qa.Issues), zap.String("trace_id", meta.TraceID))
	fb := o.fallback.GenerateFallback(o.fallbackContext(analysis, uctx))
	*text = fb.Text
	meta.FallbackLevel = fb.Level
	meta.QualityForced = true
}

// persist hands the exchange to the sink without ever blocking delivery.
func (o *Orchestrator) persist(userID, message, response string, meta *ResponseMetadata) {
	if o.sink == nil {
		return
	}
	metaCopy := *meta
	go func() {
		defer func() {
			if r := recover(); r != nil {
				o.logger.Warn("conversation sink panic", zap.Any("panic", r))
			}
		}()
		saveCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := o.sink.Save(saveCtx, userID, message, response, &metaCopy); err != nil {
			o.logger.Warn("conversation save failed", zap.Error(err), zap.String("trace_id", metaCopy.TraceID))
		}
	}()
}

func (o *Orchestrator) fallbackContext(analysis *AnalysisResult, uctx *UserContext) FallbackContext {
	fc := FallbackContext{}
	if analysis != nil {
		fc.Emotion = analysis.PrimaryEmotion
		fc.Confidence = analysis.Confidence
		fc.IsCrisis = analysis.IsCrisis
	}
	if uctx != nil {
		fc.UserName = uctx.PreferredName
		fc.HasContext = uctx.HasContext()
		fc.HasHistory = len(uctx.ConversationHistory) > 0
	}
	return fc
}

func (o *Orchestrator) breakerStates() map[string]BreakerState {
	now := time.Now()
	return map[string]BreakerState{
		BreakerGenerativeAssist: o.strategies.GenerativeBreaker().State(now),
		BreakerContextFetch:     o.strategies.ContextBreaker().State(now),
	}
}

// preferredTone maps the stored communication style onto a template tone.
func preferredTone(uctx *UserContext) PersonalityTone {
	if uctx == nil {
		return ""
	}
	switch uctx.Preferences.CommunicationStyle {
	case "warm":
		return ToneWarm
	case "direct":
		return ToneCalm
	case "playful":
		return TonePlayful
	default:
		return ""
	}
}

func priorUserMessages(uctx *UserContext) []string {
	if uctx == nil || len(uctx.ConversationHistory) == 0 {
		return nil
	}
	out := make([]string, 0, len(uctx.ConversationHistory))
	for _, turn := range uctx.ConversationHistory {
		if turn.Message != "" {
			out = append(out, turn.Message)
		}
	}
	return out
}

// buildGenerativePrompt assembles a compact instruction for the assist
// collaborator from the analysis and user context.
func buildGenerativePrompt(analysis *AnalysisResult, uctx *UserContext) string {
	var lines []string
	lines = append(lines, "Write a short, warm, personal reply to the user.")
	if uctx != nil && uctx.PreferredName != "" {
		lines = append(lines, "The user goes by "+uctx.PreferredName+".")
	}
	if analysis != nil && analysis.PrimaryEmotion != EmotionNeutral {
		lines = append(lines, fmt.Sprintf("They sound %s (confidence %.2f, intensity %s); acknowledge it gently.",
			analysis.PrimaryEmotion, analysis.Confidence, analysis.Intensity))
	}
	if uctx != nil && len(uctx.RecentMemories) > 0 && uctx.RecentMemories[0].Relevance >= 0.6 {
		lines = append(lines, "Relevant memory: "+uctx.RecentMemories[0].Content+".")
	}
	lines = append(lines, "Never minimize their feelings. No assistant boilerplate.")
	return strings.Join(lines, "\n")
}
