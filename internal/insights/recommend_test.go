package insights

import (
	"context"
	"testing"
)

func TestDeterministicRecommenderPicksHighestImpact(t *testing.T) {
	r := DeterministicRecommender{}
	signals := []Signal{
		{Name: SignalEveningSlump, Impact: ImpactEveningSlump, Magnitude: 40},
		{Name: SignalOverload, Impact: ImpactOverload, Magnitude: 1.5},
	}

	insight, err := r.Recommend(context.Background(), signals)
	if err != nil {
		t.Fatalf("Recommend() error = %v", err)
	}
	if insight.Signal != SignalOverload {
		t.Errorf("Recommend() picked %q, want %q", insight.Signal, SignalOverload)
	}
	if insight.Impact != ImpactOverload {
		t.Errorf("Recommend() impact = %d, want %d", insight.Impact, ImpactOverload)
	}
}

func TestDeterministicRecommenderTieBreaksByDetectionOrder(t *testing.T) {
	r := DeterministicRecommender{}
	signals := []Signal{
		{Name: SignalApprovalDrag, Impact: 30, Magnitude: 75},
		{Name: SignalEveningSlump, Impact: 30, Magnitude: 30},
	}

	insight, err := r.Recommend(context.Background(), signals)
	if err != nil {
		t.Fatalf("Recommend() error = %v", err)
	}
	if insight.Signal != SignalApprovalDrag {
		t.Errorf("Recommend() tie resolved to %q, want first signal %q", insight.Signal, SignalApprovalDrag)
	}
}

func TestDeterministicRecommenderAllNormal(t *testing.T) {
	r := DeterministicRecommender{}

	insight, err := r.Recommend(context.Background(), nil)
	if err != nil {
		t.Fatalf("Recommend() error = %v", err)
	}
	if insight.Signal != "all_normal" {
		t.Errorf("Recommend() signal = %q, want all_normal", insight.Signal)
	}
	if insight.Impact != 0 {
		t.Errorf("Recommend() impact = %d, want 0", insight.Impact)
	}
}

func TestRenderInsightFillsAllFields(t *testing.T) {
	signals := []Signal{
		{Name: SignalEveningSlump, Impact: ImpactEveningSlump, Magnitude: 30},
		{Name: SignalApprovalDrag, Impact: ImpactApprovalDrag, Magnitude: 95},
		{Name: SignalOverload, Impact: ImpactOverload, Magnitude: 1.4},
		{Name: SignalWeekendRegression, Impact: ImpactWeekendRegression, Magnitude: 25},
	}

	for _, s := range signals {
		t.Run(s.Name, func(t *testing.T) {
			insight := renderInsight(s)
			if insight.Observation == "" || insight.Diagnosis == "" || insight.Recommendation == "" ||
				insight.ExpectedResult == "" || insight.NextCheck == "" {
				t.Errorf("renderInsight(%s) left a field empty: %+v", s.Name, insight)
			}
		})
	}
}
