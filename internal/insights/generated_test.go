package insights

import (
	"context"
	"errors"
	"strings"
	"testing"
)

type stubCompleter struct {
	response string
	err      error
	prompt   string
}

func (s *stubCompleter) Complete(_ context.Context, prompt string) (string, error) {
	s.prompt = prompt
	return s.response, s.err
}

const wellFormedResponse = `Observation: Evening tasks are finished far less often.
Diagnosis: They collide with bedtime.
Recommendation: move task assignments earlier in the day
Expected Result: Evening completion catches up.
Next Check: Re-measure in one week.`

func TestGeneratedRecommenderUsesParsedResponse(t *testing.T) {
	stub := &stubCompleter{response: wellFormedResponse}
	r := &GeneratedRecommender{client: stub}
	signals := []Signal{{Name: SignalEveningSlump, Impact: ImpactEveningSlump, Magnitude: 30}}

	insight, err := r.Recommend(context.Background(), signals)
	if err != nil {
		t.Fatalf("Recommend() error = %v", err)
	}
	if insight.Observation != "Evening tasks are finished far less often." {
		t.Errorf("Recommend() observation = %q", insight.Observation)
	}
	// Signal selection stays deterministic regardless of the generated text
	if insight.Signal != SignalEveningSlump || insight.Impact != ImpactEveningSlump {
		t.Errorf("Recommend() signal/impact = %q/%d, want %q/%d", insight.Signal, insight.Impact, SignalEveningSlump, ImpactEveningSlump)
	}
	if !strings.Contains(stub.prompt, SignalEveningSlump) {
		t.Errorf("prompt does not mention the detected signal:\n%s", stub.prompt)
	}
	for _, action := range recommendationActions {
		if !strings.Contains(stub.prompt, action) {
			t.Errorf("prompt is missing allowed action %q", action)
		}
	}
}

func TestGeneratedRecommenderFallsBackOnError(t *testing.T) {
	stub := &stubCompleter{err: errors.New("backend down")}
	r := &GeneratedRecommender{client: stub}
	signals := []Signal{{Name: SignalOverload, Impact: ImpactOverload, Magnitude: 1.5}}

	insight, err := r.Recommend(context.Background(), signals)
	if err != nil {
		t.Fatalf("Recommend() error = %v, want fallback instead", err)
	}
	if insight.Signal != SignalOverload {
		t.Errorf("fallback insight signal = %q, want %q", insight.Signal, SignalOverload)
	}
	if insight.Recommendation == "" {
		t.Error("fallback insight has no recommendation")
	}
}

func TestGeneratedRecommenderFallsBackOnUnparseableResponse(t *testing.T) {
	stub := &stubCompleter{response: "I think things look fine overall."}
	r := &GeneratedRecommender{client: stub}
	signals := []Signal{{Name: SignalApprovalDrag, Impact: ImpactApprovalDrag, Magnitude: 90}}

	insight, err := r.Recommend(context.Background(), signals)
	if err != nil {
		t.Fatalf("Recommend() error = %v, want fallback instead", err)
	}
	if insight.Signal != SignalApprovalDrag {
		t.Errorf("fallback insight signal = %q, want %q", insight.Signal, SignalApprovalDrag)
	}
}

func TestGeneratedRecommenderSkipsBackendWhenAllNormal(t *testing.T) {
	stub := &stubCompleter{err: errors.New("should not be called")}
	r := &GeneratedRecommender{client: stub}

	insight, err := r.Recommend(context.Background(), nil)
	if err != nil {
		t.Fatalf("Recommend() error = %v", err)
	}
	if insight.Signal != "all_normal" {
		t.Errorf("Recommend() signal = %q, want all_normal", insight.Signal)
	}
	if stub.prompt != "" {
		t.Error("completion backend was called for an empty signal bundle")
	}
}

func TestParseInsight(t *testing.T) {
	tests := []struct {
		name string
		text string
		ok   bool
	}{
		{name: "plain template", text: wellFormedResponse, ok: true},
		{
			name: "markdown decorations stripped",
			text: "**Observation**: a\n- Diagnosis: b\n# Recommendation: c\nExpected Result: d\nNext Check: e",
			ok:   false, // bold markers break the "Header:" shape
		},
		{
			name: "case insensitive headers",
			text: "observation: a\ndiagnosis: b\nrecommendation: c\nexpected result: d\nnext check: e",
			ok:   true,
		},
		{
			name: "missing field rejected",
			text: "Observation: a\nDiagnosis: b\nRecommendation: c\nExpected Result: d",
			ok:   false,
		},
		{name: "free text rejected", text: "everything looks good", ok: false},
		{
			name: "continuation lines folded in",
			text: "Observation: first part\nsecond part\nDiagnosis: b\nRecommendation: c\nExpected Result: d\nNext Check: e",
			ok:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			insight, ok := parseInsight(tt.text)
			if ok != tt.ok {
				t.Fatalf("parseInsight() ok = %v, want %v", ok, tt.ok)
			}
			if ok && insight.Observation == "" {
				t.Error("parseInsight() accepted a response with an empty observation")
			}
		})
	}
}

func TestParseInsightContinuation(t *testing.T) {
	text := "Observation: first part\nsecond part\nDiagnosis: b\nRecommendation: c\nExpected Result: d\nNext Check: e"
	insight, ok := parseInsight(text)
	if !ok {
		t.Fatal("parseInsight() rejected a valid response")
	}
	if insight.Observation != "first part second part" {
		t.Errorf("parseInsight() observation = %q, want continuation folded in", insight.Observation)
	}
}
