package insights

import (
	"sort"
	"time"

	"taskfortime/internal/models"
)

// Signal names. Detection always emits them in this order, which is the
// stable ordering the selection rule relies on for exact impact ties.
const (
	SignalEveningSlump      = "evening_slump"
	SignalApprovalDrag      = "approval_drag"
	SignalOverload          = "overload"
	SignalWeekendRegression = "weekend_regression"
)

// Fixed impact weights per signal. Individual impacts rank insights;
// the sum is only used for the capped combined score.
const (
	ImpactEveningSlump      = 30
	ImpactApprovalDrag      = 25
	ImpactOverload          = 35
	ImpactWeekendRegression = 20

	maxCombinedScore = 100
)

const (
	// DefaultWindowDays is the lookback window when none is configured
	DefaultWindowDays = 14

	// eveningCutoffHour splits daytime from evening task buckets
	eveningCutoffHour = 18

	eveningSlumpGapPoints      = 25.0
	weekendRegressionGapPoints = 20.0
	overloadRatio              = 1.3
	approvalDragThreshold      = 60 * time.Minute
)

// Signal is one detected behavioral pattern. Magnitude is in
// signal-specific units: percentage points for the completion-rate
// signals, minutes for approval_drag, and a load ratio for overload.
type Signal struct {
	Name      string
	Impact    int
	Magnitude float64
}

// Telemetry is the task-timing input for signal detection. Window holds
// the tasks created inside the lookback window; BaselineDailyMedian is
// the median tasks-per-day from the window preceding the lookback, used
// as the historical load reference.
type Telemetry struct {
	Window              []models.AssignedTask
	WindowDays          int
	BaselineDailyMedian float64
}

// BuildTelemetry derives the telemetry bundle from the current window and
// the preceding baseline window. Soft-deleted tasks are excluded from
// both.
func BuildTelemetry(window, baseline []models.AssignedTask, windowDays int) Telemetry {
	if windowDays <= 0 {
		windowDays = DefaultWindowDays
	}
	t := Telemetry{WindowDays: windowDays}
	for _, task := range window {
		if !task.IsDeleted() {
			t.Window = append(t.Window, task)
		}
	}

	perDay := map[string]int{}
	for _, task := range baseline {
		if task.IsDeleted() {
			continue
		}
		perDay[task.CreatedAt.Format("2006-01-02")]++
	}
	counts := make([]float64, 0, len(perDay))
	for _, n := range perDay {
		counts = append(counts, float64(n))
	}
	t.BaselineDailyMedian = median(counts)
	return t
}

// DetectSignals evaluates the four independent signals against the
// telemetry. Each is a pure function of the input; identical telemetry
// always yields identical signals in identical order.
func DetectSignals(t Telemetry) []Signal {
	var signals []Signal

	if gap, ok := eveningSlump(t.Window); ok {
		signals = append(signals, Signal{Name: SignalEveningSlump, Impact: ImpactEveningSlump, Magnitude: gap})
	}
	if latency, ok := approvalDrag(t.Window); ok {
		signals = append(signals, Signal{Name: SignalApprovalDrag, Impact: ImpactApprovalDrag, Magnitude: latency.Minutes()})
	}
	if ratio, ok := overload(t); ok {
		signals = append(signals, Signal{Name: SignalOverload, Impact: ImpactOverload, Magnitude: ratio})
	}
	if gap, ok := weekendRegression(t.Window); ok {
		signals = append(signals, Signal{Name: SignalWeekendRegression, Impact: ImpactWeekendRegression, Magnitude: gap})
	}
	return signals
}

// CombinedScore sums the firing signals' impacts, capped at 100
func CombinedScore(signals []Signal) int {
	total := 0
	for _, s := range signals {
		total += s.Impact
	}
	if total > maxCombinedScore {
		return maxCombinedScore
	}
	return total
}

// eveningSlump fires when the completion rate of tasks assigned after the
// cutoff hour sits at least 25 percentage points below the daytime rate
func eveningSlump(tasks []models.AssignedTask) (float64, bool) {
	var dayDone, dayTotal, eveDone, eveTotal int
	for _, t := range tasks {
		if t.CreatedAt.Hour() >= eveningCutoffHour {
			eveTotal++
			if t.CompletedAt != nil {
				eveDone++
			}
		} else {
			dayTotal++
			if t.CompletedAt != nil {
				dayDone++
			}
		}
	}
	if dayTotal == 0 || eveTotal == 0 {
		return 0, false
	}
	gap := rate(dayDone, dayTotal) - rate(eveDone, eveTotal)
	return gap, gap >= eveningSlumpGapPoints
}

// approvalDrag fires when the median submit-to-approve latency exceeds
// the 60 minute threshold. Magnitude is the latency itself.
func approvalDrag(tasks []models.AssignedTask) (time.Duration, bool) {
	var latencies []float64
	for _, t := range tasks {
		if d, ok := t.ApprovalLatency(); ok {
			latencies = append(latencies, d.Minutes())
		}
	}
	if len(latencies) == 0 {
		return 0, false
	}
	m := time.Duration(median(latencies) * float64(time.Minute))
	return m, m > approvalDragThreshold
}

// overload fires when the window's daily task load is at least 30% above
// the historical median. No baseline means no signal.
func overload(t Telemetry) (float64, bool) {
	if t.BaselineDailyMedian <= 0 || t.WindowDays <= 0 {
		return 0, false
	}
	daily := float64(len(t.Window)) / float64(t.WindowDays)
	ratio := daily / t.BaselineDailyMedian
	return ratio, ratio >= overloadRatio
}

// weekendRegression fires when the weekend completion rate sits at least
// 20 percentage points below the weekday rate
func weekendRegression(tasks []models.AssignedTask) (float64, bool) {
	var weekDone, weekTotal, wkndDone, wkndTotal int
	for _, t := range tasks {
		switch t.CreatedAt.Weekday() {
		case time.Saturday, time.Sunday:
			wkndTotal++
			if t.CompletedAt != nil {
				wkndDone++
			}
		default:
			weekTotal++
			if t.CompletedAt != nil {
				weekDone++
			}
		}
	}
	if weekTotal == 0 || wkndTotal == 0 {
		return 0, false
	}
	gap := rate(weekDone, weekTotal) - rate(wkndDone, wkndTotal)
	return gap, gap >= weekendRegressionGapPoints
}

// rate returns done/total as percentage points
func rate(done, total int) float64 {
	return float64(done) / float64(total) * 100
}

func median(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		return (sorted[mid-1] + sorted[mid]) / 2
	}
	return sorted[mid]
}
