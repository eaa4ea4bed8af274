// Package pipeline orchestrates a full credit application evaluation:
// sanitization, validation, scoring, rule application and the final
// decision, plus persistence and event publication when configured.
package pipeline

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/opensource-finance/harrier/internal/domain"
	"github.com/opensource-finance/harrier/internal/score"
	"github.com/opensource-finance/harrier/internal/validate"
)

// Pipeline evaluates credit applications end to end. Repository, bus and
// cache are optional; a nil dependency skips that stage.
type Pipeline struct {
	validator *validate.Validator
	engine    *score.Engine

	repo  domain.Repository
	bus   domain.EventBus
	cache domain.Cache

	evalLogPath string
	cacheTTL    time.Duration
	workers     int

	mu    sync.Mutex
	stats sessionCounters
}

type sessionCounters struct {
	total        int
	valid        int
	approved     int
	rejected     int
	manualReview int
	scoreSum     float64
	dtiSum       float64
}

// Option configures optional pipeline dependencies.
type Option func(*Pipeline)

// WithRepository persists every valid evaluation result.
func WithRepository(repo domain.Repository) Option {
	return func(p *Pipeline) { p.repo = repo }
}

// WithEventBus publishes decisions to the event bus.
func WithEventBus(bus domain.EventBus) Option {
	return func(p *Pipeline) { p.bus = bus }
}

// WithCache memoizes results keyed by the input fingerprint.
func WithCache(cache domain.Cache, ttl time.Duration) Option {
	return func(p *Pipeline) {
		p.cache = cache
		p.cacheTTL = ttl
	}
}

// WithEvalLog appends a JSON line per evaluation to the given file.
func WithEvalLog(path string) Option {
	return func(p *Pipeline) { p.evalLogPath = path }
}

// WithBatchWorkers bounds the concurrency used by EvaluateBatch.
func WithBatchWorkers(n int) Option {
	return func(p *Pipeline) {
		if n > 0 {
			p.workers = n
		}
	}
}

// New builds a pipeline around a validator and a scoring engine.
func New(v *validate.Validator, e *score.Engine, opts ...Option) *Pipeline {
	p := &Pipeline{
		validator: v,
		engine:    e,
		workers:   1,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Evaluate runs one raw application through the full pipeline. It never
// returns an error to the caller: malformed input yields a rejected
// result carrying the validation errors, and a panic in any stage is
// recovered into a synthetic rejection.
func (p *Pipeline) Evaluate(ctx context.Context, raw map[string]any) (res *domain.EvaluationResult) {
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			slog.Error("evaluation panicked", "panic", fmt.Sprint(r))
			res = p.errorResult(start, []string{fmt.Sprintf("internal error: %v", r)})
		}
		p.record(res)
		p.appendEvalLog(res)
	}()

	cleaned := p.validator.Sanitize(raw)

	if p.cache != nil {
		if hit := p.cacheLookup(ctx, cleaned); hit != nil {
			hit.ProcessMs = time.Since(start).Milliseconds()
			return hit
		}
	}

	outcome := p.validator.Validate(cleaned)
	if !outcome.Valid {
		return p.errorResult(start, outcome.Errors)
	}

	in := p.validator.Applicant(cleaned)

	dti, dtiClass := p.engine.CalculateDTI(in.MonthlyIncome, in.CurrentDebt)
	sub := p.engine.CalculateSubScores(in, dti)
	fired := p.engine.ApplyRules(in, dti)
	final, threshold := p.engine.FinalScore(sub, fired, in.RequestedAmount)
	decision := p.engine.Decide(final, threshold, dtiClass)

	res = &domain.EvaluationResult{
		ID:         uuid.New().String(),
		Timestamp:  time.Now().UTC(),
		FinalScore: final,
		DTIRatio:   dti,
		DTIClass:   dtiClass,
		SubScores:  sub,
		Threshold:  threshold,
		Decision:   decision,
		Applicant:  in,
		ProcessMs:  time.Since(start).Milliseconds(),
	}
	res.FiredRules = fired
	for _, f := range fired {
		if f.Kind == domain.RuleCompensation {
			res.Compensations = append(res.Compensations, f)
		}
	}

	p.publish(ctx, res)

	if p.repo != nil {
		if err := p.repo.SaveEvaluation(ctx, res); err != nil {
			slog.Error("failed to save evaluation", "evaluation_id", res.ID, "error", err)
		}
	}
	if p.cache != nil {
		p.cacheStore(ctx, cleaned, res)
	}

	slog.Debug("application evaluated",
		"evaluation_id", res.ID,
		"decision", res.Decision,
		"score", res.FinalScore,
		"duration_ms", res.ProcessMs,
	)

	return res
}

// EvaluateBatch evaluates a slice of raw applications with bounded
// concurrency. Results are returned in input order and tagged with the
// input index.
func (p *Pipeline) EvaluateBatch(ctx context.Context, raws []map[string]any) []*domain.EvaluationResult {
	results := make([]*domain.EvaluationResult, len(raws))

	sem := make(chan struct{}, p.workers)
	var wg sync.WaitGroup
	for i, raw := range raws {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, raw map[string]any) {
			defer wg.Done()
			defer func() { <-sem }()
			r := p.Evaluate(ctx, raw)
			r.Index = i
			results[i] = r
		}(i, raw)
	}
	wg.Wait()

	return results
}

// SessionStats summarizes every evaluation seen by this pipeline
// instance since construction.
func (p *Pipeline) SessionStats() domain.SessionStats {
	p.mu.Lock()
	defer p.mu.Unlock()

	s := domain.SessionStats{
		Total:        p.stats.total,
		Approved:     p.stats.approved,
		Rejected:     p.stats.rejected,
		ManualReview: p.stats.manualReview,
	}
	if s.Total > 0 {
		s.ApprovalRate = float64(s.Approved) / float64(s.Total) * 100
	}
	// score and DTI averages only make sense over valid evaluations
	if p.stats.valid > 0 {
		s.AvgScore = p.stats.scoreSum / float64(p.stats.valid)
		s.AvgDTI = p.stats.dtiSum / float64(p.stats.valid)
	}
	return s
}

// errorResult builds the rejection returned for invalid or failed input.
func (p *Pipeline) errorResult(start time.Time, errs []string) *domain.EvaluationResult {
	return &domain.EvaluationResult{
		ID:        uuid.New().String(),
		Timestamp: time.Now().UTC(),
		Threshold: score.BaseThreshold,
		Decision:  domain.DecisionRejected,
		Errors:    errs,
		ProcessMs: time.Since(start).Milliseconds(),
	}
}

func (p *Pipeline) record(res *domain.EvaluationResult) {
	if res == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	p.stats.total++
	switch res.Decision {
	case domain.DecisionApproved:
		p.stats.approved++
	case domain.DecisionManualReview:
		p.stats.manualReview++
	default:
		p.stats.rejected++
	}
	if res.IsValid() {
		p.stats.valid++
		p.stats.scoreSum += float64(res.FinalScore)
		p.stats.dtiSum += res.DTIRatio
	}
}

// appendEvalLog writes one JSON line per evaluation. Log failures are
// logged and swallowed; they never affect the evaluation outcome.
func (p *Pipeline) appendEvalLog(res *domain.EvaluationResult) {
	if p.evalLogPath == "" || res == nil {
		return
	}
	f, err := os.OpenFile(p.evalLogPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		slog.Warn("failed to open evaluation log", "path", p.evalLogPath, "error", err)
		return
	}
	defer f.Close()

	line, err := json.Marshal(res)
	if err != nil {
		slog.Warn("failed to encode evaluation log entry", "error", err)
		return
	}
	if _, err := f.Write(append(line, '\n')); err != nil {
		slog.Warn("failed to append evaluation log entry", "error", err)
	}
}

func (p *Pipeline) publish(ctx context.Context, res *domain.EvaluationResult) {
	if p.bus == nil {
		return
	}
	payload, err := json.Marshal(res)
	if err != nil {
		slog.Error("failed to encode decision event", "evaluation_id", res.ID, "error", err)
		return
	}
	if err := p.bus.Publish(ctx, domain.TopicDecision, payload); err != nil {
		slog.Error("failed to publish decision", "evaluation_id", res.ID, "error", err)
	}
	if res.Decision == domain.DecisionManualReview {
		if err := p.bus.Publish(ctx, domain.TopicReview, payload); err != nil {
			slog.Error("failed to publish review request", "evaluation_id", res.ID, "error", err)
		}
	}
}

// cacheKey fingerprints the sanitized input. Evaluation is deterministic
// for a fixed rule set, so identical inputs share a result.
func cacheKey(cleaned map[string]any) string {
	blob, err := json.Marshal(cleaned)
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(blob)
	return "eval:" + hex.EncodeToString(sum[:])
}

func (p *Pipeline) cacheLookup(ctx context.Context, cleaned map[string]any) *domain.EvaluationResult {
	key := cacheKey(cleaned)
	if key == "" {
		return nil
	}
	blob, err := p.cache.Get(ctx, key)
	if err != nil || blob == nil {
		return nil
	}
	var res domain.EvaluationResult
	if err := json.Unmarshal(blob, &res); err != nil {
		return nil
	}
	return &res
}

func (p *Pipeline) cacheStore(ctx context.Context, cleaned map[string]any, res *domain.EvaluationResult) {
	key := cacheKey(cleaned)
	if key == "" {
		return
	}
	blob, err := json.Marshal(res)
	if err != nil {
		return
	}
	if err := p.cache.Set(ctx, key, blob, p.cacheTTL); err != nil {
		slog.Warn("failed to cache evaluation", "evaluation_id", res.ID, "error", err)
	}
}
