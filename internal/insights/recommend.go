package insights

import (
	"context"
	"fmt"
	"sort"
)

// Insight is the five-field coaching recommendation shown to parents
type Insight struct {
	Signal         string `json:"signal"`
	Impact         int    `json:"impact"`
	Observation    string `json:"observation"`
	Diagnosis      string `json:"diagnosis"`
	Recommendation string `json:"recommendation"`
	ExpectedResult string `json:"expected_result"`
	NextCheck      string `json:"next_check"`
}

// Recommender turns a signal bundle into exactly one insight
type Recommender interface {
	Recommend(ctx context.Context, signals []Signal) (*Insight, error)
}

// recommendationActions is the closed set of actions any recommendation
// may suggest. The generated variant constrains its prompt to this list
// so both paths stay within the same vocabulary.
var recommendationActions = []string{
	"reduce the number of tasks assigned per day",
	"move task assignments earlier in the day",
	"review submitted tasks within the hour",
	"schedule a short weekend task check-in",
	"keep the current routine unchanged",
}

// DeterministicRecommender phrases insights from fixed templates with no
// external dependencies. It is the correctness baseline, not a fallback
// convenience.
type DeterministicRecommender struct{}

// Recommend selects the firing signal with the highest impact and renders
// its template. The sort is stable so an exact impact tie resolves to the
// first-detected signal. Zero signals yield the fixed all-normal insight.
func (DeterministicRecommender) Recommend(_ context.Context, signals []Signal) (*Insight, error) {
	if len(signals) == 0 {
		return allNormalInsight(), nil
	}
	ranked := make([]Signal, len(signals))
	copy(ranked, signals)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Impact > ranked[j].Impact
	})
	return renderInsight(ranked[0]), nil
}

func allNormalInsight() *Insight {
	return &Insight{
		Signal:         "all_normal",
		Impact:         0,
		Observation:    "Task completion patterns look steady across the lookback window.",
		Diagnosis:      "No behavioral signal crossed its threshold.",
		Recommendation: "Keep the current routine unchanged.",
		ExpectedResult: "Completion rates and approval latency stay in their current range.",
		NextCheck:      "Review again after the next lookback window.",
	}
}

func renderInsight(s Signal) *Insight {
	out := &Insight{Signal: s.Name, Impact: s.Impact}
	switch s.Name {
	case SignalEveningSlump:
		out.Observation = fmt.Sprintf("Tasks assigned after 18:00 are completed %.0f percentage points less often than daytime tasks.", s.Magnitude)
		out.Diagnosis = "Evening tasks compete with wind-down time and get dropped."
		out.Recommendation = "Move task assignments earlier in the day."
		out.ExpectedResult = "Evening and daytime completion rates converge."
		out.NextCheck = "Compare evening completion rate after one week."
	case SignalApprovalDrag:
		out.Observation = fmt.Sprintf("Submitted tasks wait a median of %.0f minutes for review.", s.Magnitude)
		out.Diagnosis = "Slow approvals weaken the link between finishing a task and earning time."
		out.Recommendation = "Review submitted tasks within the hour."
		out.ExpectedResult = "Median approval latency drops below 60 minutes."
		out.NextCheck = "Check median approval latency after one week."
	case SignalOverload:
		out.Observation = fmt.Sprintf("Daily task load is %.1fx the historical median.", s.Magnitude)
		out.Diagnosis = "More tasks per day than usual is crowding out completions."
		out.Recommendation = "Reduce the number of tasks assigned per day."
		out.ExpectedResult = "Daily load returns toward the historical median and completion rate recovers."
		out.NextCheck = "Compare daily task counts against the median after one week."
	case SignalWeekendRegression:
		out.Observation = fmt.Sprintf("Weekend completion rate runs %.0f percentage points below weekdays.", s.Magnitude)
		out.Diagnosis = "The weekday routine is not carrying over to weekends."
		out.Recommendation = "Schedule a short weekend task check-in."
		out.ExpectedResult = "Weekend completion rate closes most of the gap to weekdays."
		out.NextCheck = "Compare weekend and weekday rates after two weekends."
	default:
		return allNormalInsight()
	}
	return out
}
