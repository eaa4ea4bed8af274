package pipeline

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/opensource-finance/harrier/internal/bus"
	"github.com/opensource-finance/harrier/internal/cache"
	"github.com/opensource-finance/harrier/internal/domain"
	"github.com/opensource-finance/harrier/internal/score"
	"github.com/opensource-finance/harrier/internal/validate"
)

func newPipeline(opts ...Option) *Pipeline {
	return New(validate.New(), score.NewEngine(score.DefaultRules()), opts...)
}

func strongApplication() map[string]any {
	return map[string]any{
		"age":              35,
		"monthly_income":   25000.0,
		"current_debt":     3000.0,
		"credit_history":   2,
		"years_at_job":     6,
		"dependents":       1,
		"housing_type":     "Owned",
		"loan_purpose":     "Business",
		"requested_amount": 15000.0,
	}
}

func borderlineApplication() map[string]any {
	return map[string]any{
		"age":              29,
		"monthly_income":   12000.0,
		"current_debt":     4000.0,
		"credit_history":   2,
		"years_at_job":     3,
		"dependents":       2,
		"housing_type":     "Family",
		"loan_purpose":     "Consumption",
		"requested_amount": 10000.0,
	}
}

func TestEvaluate(t *testing.T) {
	ctx := context.Background()

	t.Run("StrongApplicantApproved", func(t *testing.T) {
		p := newPipeline()
		res := p.Evaluate(ctx, strongApplication())

		if res.ID == "" {
			t.Error("expected evaluation id")
		}
		if res.Decision != domain.DecisionApproved {
			t.Errorf("decision = %v, want approved", res.Decision)
		}
		if res.FinalScore != 100 {
			t.Errorf("score = %d, want 100", res.FinalScore)
		}
		if !res.IsValid() {
			t.Errorf("expected valid result, got errors %v", res.Errors)
		}
		if res.Applicant == nil || res.Applicant.Age != 35 {
			t.Error("expected applicant snapshot in result")
		}
	})

	t.Run("FiredRulesAndCompensations", func(t *testing.T) {
		p := newPipeline()
		res := p.Evaluate(ctx, strongApplication())

		wantFired := []string{"R001", "R002", "R003", "R005", "R010"}
		if len(res.FiredRules) != len(wantFired) {
			t.Fatalf("fired %d rules, want %d", len(res.FiredRules), len(wantFired))
		}
		for i, id := range wantFired {
			if res.FiredRules[i].ID != id {
				t.Errorf("fired[%d] = %s, want %s", i, res.FiredRules[i].ID, id)
			}
		}
		// R010 is the only compensation-kind rule that fires
		if len(res.Compensations) != 1 || res.Compensations[0].ID != "R010" {
			t.Errorf("compensations = %+v, want [R010]", res.Compensations)
		}
	})

	t.Run("InvalidInputRejectedWithErrors", func(t *testing.T) {
		p := newPipeline()
		in := strongApplication()
		in["age"] = 15
		delete(in, "loan_purpose")

		res := p.Evaluate(ctx, in)

		if res.Decision != domain.DecisionRejected {
			t.Errorf("decision = %v, want rejected", res.Decision)
		}
		if res.IsValid() {
			t.Error("expected invalid result")
		}
		if len(res.Errors) == 0 {
			t.Error("expected validation errors")
		}
		if res.FinalScore != 0 {
			t.Errorf("score = %d, want 0 for invalid input", res.FinalScore)
		}
	})

	t.Run("Deterministic", func(t *testing.T) {
		p := newPipeline()
		a := p.Evaluate(ctx, borderlineApplication())
		b := p.Evaluate(ctx, borderlineApplication())

		if a.FinalScore != b.FinalScore || a.Decision != b.Decision || a.DTIRatio != b.DTIRatio {
			t.Errorf("identical inputs diverged: %d/%v vs %d/%v",
				a.FinalScore, a.Decision, b.FinalScore, b.Decision)
		}
	})

	t.Run("PanicRecoveredIntoRejection", func(t *testing.T) {
		// a nil engine panics inside rule application
		p := New(validate.New(), nil)
		res := p.Evaluate(ctx, strongApplication())

		if res == nil {
			t.Fatal("expected synthetic result after panic")
		}
		if res.Decision != domain.DecisionRejected {
			t.Errorf("decision = %v, want rejected", res.Decision)
		}
		if len(res.Errors) == 0 {
			t.Error("expected internal error in result")
		}
	})
}

func TestEvaluateBatch(t *testing.T) {
	ctx := context.Background()
	p := newPipeline(WithBatchWorkers(4))

	bad := strongApplication()
	bad["credit_history"] = 0
	bad["current_debt"] = 16000.0

	raws := []map[string]any{
		strongApplication(), bad, borderlineApplication(), strongApplication(),
	}
	results := p.EvaluateBatch(ctx, raws)

	if len(results) != len(raws) {
		t.Fatalf("got %d results, want %d", len(results), len(raws))
	}
	for i, r := range results {
		if r == nil {
			t.Fatalf("result %d is nil", i)
		}
		if r.Index != i {
			t.Errorf("result %d carries index %d", i, r.Index)
		}
	}
	if results[0].Decision != domain.DecisionApproved {
		t.Errorf("first result = %v, want approved", results[0].Decision)
	}
	if results[2].Decision != domain.DecisionManualReview {
		t.Errorf("third result = %v, want manual review", results[2].Decision)
	}
}

func TestSessionStats(t *testing.T) {
	ctx := context.Background()
	p := newPipeline()

	p.Evaluate(ctx, strongApplication())
	p.Evaluate(ctx, strongApplication())
	p.Evaluate(ctx, borderlineApplication())

	invalid := strongApplication()
	invalid["age"] = 15
	p.Evaluate(ctx, invalid)

	s := p.SessionStats()

	if s.Total != 4 {
		t.Errorf("total = %d, want 4", s.Total)
	}
	if s.Approved != 2 {
		t.Errorf("approved = %d, want 2", s.Approved)
	}
	if s.ManualReview != 1 {
		t.Errorf("manual review = %d, want 1", s.ManualReview)
	}
	if s.Rejected != 1 {
		t.Errorf("rejected = %d, want 1", s.Rejected)
	}
	if s.ApprovalRate != 50.0 {
		t.Errorf("approval rate = %v, want 50.0", s.ApprovalRate)
	}
	// averages cover the 3 valid evaluations only
	wantAvg := float64(100+100+71) / 3
	if s.AvgScore != wantAvg {
		t.Errorf("avg score = %v, want %v", s.AvgScore, wantAvg)
	}
}

func TestCaching(t *testing.T) {
	ctx := context.Background()

	c, err := cache.New(domain.CacheConfig{
		Type:         "memory",
		LocalMaxSize: 100,
		LocalTTL:     time.Minute,
	})
	if err != nil {
		t.Fatalf("failed to create cache: %v", err)
	}
	defer c.Close()

	p := newPipeline(WithCache(c, time.Minute))

	first := p.Evaluate(ctx, strongApplication())
	second := p.Evaluate(ctx, strongApplication())

	if first.ID != second.ID {
		t.Errorf("expected cache hit to replay the stored result, ids %s vs %s", first.ID, second.ID)
	}

	// a different input must miss
	third := p.Evaluate(ctx, borderlineApplication())
	if third.ID == first.ID {
		t.Error("distinct inputs shared a cache entry")
	}
}

func TestEventPublication(t *testing.T) {
	ctx := context.Background()

	b := bus.NewChannelBus(16)
	defer b.Close()

	decisions := make(chan *domain.Message, 4)
	reviews := make(chan *domain.Message, 4)
	b.Subscribe(ctx, domain.TopicDecision, func(ctx context.Context, msg *domain.Message) error {
		decisions <- msg
		return nil
	})
	b.Subscribe(ctx, domain.TopicReview, func(ctx context.Context, msg *domain.Message) error {
		reviews <- msg
		return nil
	})

	p := newPipeline(WithEventBus(b))

	t.Run("DecisionPublished", func(t *testing.T) {
		res := p.Evaluate(ctx, strongApplication())

		select {
		case msg := <-decisions:
			var got domain.EvaluationResult
			if err := json.Unmarshal(msg.Payload, &got); err != nil {
				t.Fatalf("failed to decode event: %v", err)
			}
			if got.ID != res.ID {
				t.Errorf("event id = %s, want %s", got.ID, res.ID)
			}
		case <-time.After(2 * time.Second):
			t.Fatal("no decision event received")
		}
	})

	t.Run("ManualReviewAlsoRouted", func(t *testing.T) {
		p.Evaluate(ctx, borderlineApplication())

		select {
		case <-decisions:
		case <-time.After(2 * time.Second):
			t.Fatal("no decision event received")
		}
		select {
		case msg := <-reviews:
			var got domain.EvaluationResult
			json.Unmarshal(msg.Payload, &got)
			if got.Decision != domain.DecisionManualReview {
				t.Errorf("review event decision = %v", got.Decision)
			}
		case <-time.After(2 * time.Second):
			t.Fatal("no review event received")
		}
	})
}

func TestEvalLog(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "evaluations.log")

	p := newPipeline(WithEvalLog(path))
	p.Evaluate(ctx, strongApplication())

	invalid := strongApplication()
	invalid["age"] = 15
	p.Evaluate(ctx, invalid)

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("evaluation log not written: %v", err)
	}
	defer f.Close()

	var lines int
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var res domain.EvaluationResult
		if err := json.Unmarshal(scanner.Bytes(), &res); err != nil {
			t.Errorf("line %d is not valid JSON: %v", lines+1, err)
		}
		lines++
	}
	if lines != 2 {
		t.Errorf("expected 2 log lines, got %d", lines)
	}
}
