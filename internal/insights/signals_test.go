package insights

import (
	"testing"
	"time"

	"taskfortime/internal/models"
)

// Monday, so weekday fixtures default to non-weekend days
var baseDay = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

func taskAt(created time.Time, completed bool) models.AssignedTask {
	t := models.AssignedTask{CreatedAt: created}
	if completed {
		done := created.Add(time.Hour)
		t.CompletedAt = &done
	}
	return t
}

func repeatTasks(created time.Time, n int, completed bool) []models.AssignedTask {
	tasks := make([]models.AssignedTask, 0, n)
	for i := 0; i < n; i++ {
		tasks = append(tasks, taskAt(created, completed))
	}
	return tasks
}

func TestEveningSlump(t *testing.T) {
	day := baseDay.Truncate(24 * time.Hour)
	morning := day.Add(10 * time.Hour)
	evening := day.Add(19 * time.Hour)

	tests := []struct {
		name    string
		tasks   []models.AssignedTask
		wantGap float64
		want    bool
	}{
		{
			name: "evening rate 25 points lower fires",
			tasks: append(
				repeatTasks(morning, 4, true),
				taskAt(evening, true), taskAt(evening, true), taskAt(evening, true), taskAt(evening, false),
			),
			wantGap: 25,
			want:    true,
		},
		{
			name: "gap below threshold does not fire",
			tasks: append(
				repeatTasks(morning, 4, true),
				taskAt(evening, true), taskAt(evening, true), taskAt(evening, true),
			),
			wantGap: 0,
			want:    false,
		},
		{
			name:  "no evening tasks never fires",
			tasks: repeatTasks(morning, 5, false),
			want:  false,
		},
		{
			name:  "no daytime tasks never fires",
			tasks: repeatTasks(evening, 5, false),
			want:  false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gap, fired := eveningSlump(tt.tasks)
			if fired != tt.want {
				t.Fatalf("eveningSlump() fired = %v, want %v", fired, tt.want)
			}
			if fired && gap != tt.wantGap {
				t.Errorf("eveningSlump() gap = %v, want %v", gap, tt.wantGap)
			}
		})
	}
}

func TestApprovalDrag(t *testing.T) {
	withLatency := func(minutes int) models.AssignedTask {
		created := baseDay
		completed := created.Add(time.Hour)
		approved := completed.Add(time.Duration(minutes) * time.Minute)
		return models.AssignedTask{CreatedAt: created, CompletedAt: &completed, ApprovedAt: &approved}
	}

	tests := []struct {
		name  string
		tasks []models.AssignedTask
		want  bool
	}{
		{
			name:  "median above one hour fires",
			tasks: []models.AssignedTask{withLatency(30), withLatency(90), withLatency(120)},
			want:  true,
		},
		{
			name:  "median exactly one hour does not fire",
			tasks: []models.AssignedTask{withLatency(30), withLatency(60), withLatency(90)},
			want:  false,
		},
		{
			name:  "no approved tasks never fires",
			tasks: []models.AssignedTask{taskAt(baseDay, true), taskAt(baseDay, false)},
			want:  false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, fired := approvalDrag(tt.tasks); fired != tt.want {
				t.Errorf("approvalDrag() fired = %v, want %v", fired, tt.want)
			}
		})
	}
}

func TestOverload(t *testing.T) {
	tests := []struct {
		name      string
		telemetry Telemetry
		wantRatio float64
		want      bool
	}{
		{
			name: "load at 1.3x the baseline fires",
			telemetry: Telemetry{
				Window:              repeatTasks(baseDay, 26, false),
				WindowDays:          10,
				BaselineDailyMedian: 2,
			},
			wantRatio: 1.3,
			want:      true,
		},
		{
			name: "load just under the ratio does not fire",
			telemetry: Telemetry{
				Window:              repeatTasks(baseDay, 25, false),
				WindowDays:          10,
				BaselineDailyMedian: 2,
			},
			want: false,
		},
		{
			name: "no baseline means no signal",
			telemetry: Telemetry{
				Window:     repeatTasks(baseDay, 40, false),
				WindowDays: 10,
			},
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ratio, fired := overload(tt.telemetry)
			if fired != tt.want {
				t.Fatalf("overload() fired = %v, want %v", fired, tt.want)
			}
			if fired && ratio != tt.wantRatio {
				t.Errorf("overload() ratio = %v, want %v", ratio, tt.wantRatio)
			}
		})
	}
}

func TestWeekendRegression(t *testing.T) {
	monday := baseDay
	saturday := time.Date(2026, 3, 7, 9, 0, 0, 0, time.UTC)

	tests := []struct {
		name  string
		tasks []models.AssignedTask
		want  bool
	}{
		{
			name: "weekend 50 points behind fires",
			tasks: append(
				repeatTasks(monday, 4, true),
				taskAt(saturday, true), taskAt(saturday, false),
			),
			want: true,
		},
		{
			name: "weekend on par does not fire",
			tasks: append(
				repeatTasks(monday, 4, true),
				taskAt(saturday, true), taskAt(saturday, true),
			),
			want: false,
		},
		{
			name:  "no weekend tasks never fires",
			tasks: repeatTasks(monday, 6, false),
			want:  false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, fired := weekendRegression(tt.tasks); fired != tt.want {
				t.Errorf("weekendRegression() fired = %v, want %v", fired, tt.want)
			}
		})
	}
}

func TestDetectSignalsOrderIsStable(t *testing.T) {
	day := baseDay.Truncate(24 * time.Hour)
	morning := day.Add(10 * time.Hour)
	evening := day.Add(20 * time.Hour)

	// Enough volume to trip evening_slump and overload together
	telemetry := Telemetry{
		Window: append(
			repeatTasks(morning, 10, true),
			repeatTasks(evening, 10, false)...,
		),
		WindowDays:          10,
		BaselineDailyMedian: 1,
	}

	first := DetectSignals(telemetry)
	second := DetectSignals(telemetry)

	if len(first) != 2 {
		t.Fatalf("DetectSignals() returned %d signals, want 2", len(first))
	}
	if first[0].Name != SignalEveningSlump || first[1].Name != SignalOverload {
		t.Errorf("DetectSignals() order = [%s, %s], want [evening_slump, overload]", first[0].Name, first[1].Name)
	}
	for i := range first {
		if first[i] != second[i] {
			t.Errorf("DetectSignals() is not deterministic at index %d: %+v vs %+v", i, first[i], second[i])
		}
	}
}

func TestCombinedScore(t *testing.T) {
	tests := []struct {
		name    string
		signals []Signal
		want    int
	}{
		{name: "no signals", signals: nil, want: 0},
		{
			name:    "two signals sum",
			signals: []Signal{{Impact: ImpactOverload}, {Impact: ImpactApprovalDrag}},
			want:    60,
		},
		{
			name: "all four capped at 100",
			signals: []Signal{
				{Impact: ImpactEveningSlump},
				{Impact: ImpactApprovalDrag},
				{Impact: ImpactOverload},
				{Impact: ImpactWeekendRegression},
			},
			want: 100,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CombinedScore(tt.signals); got != tt.want {
				t.Errorf("CombinedScore() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestBuildTelemetry(t *testing.T) {
	now := baseDay
	deleted := taskAt(now, false)
	deletedAt := now
	deleted.DeletedAt = &deletedAt

	window := []models.AssignedTask{taskAt(now, true), deleted}
	// Baseline spread over three days: 1, 2 and 3 tasks
	baseline := append(
		repeatTasks(now.AddDate(0, 0, -20), 1, false),
		append(
			repeatTasks(now.AddDate(0, 0, -19), 2, false),
			repeatTasks(now.AddDate(0, 0, -18), 3, false)...,
		)...,
	)

	telemetry := BuildTelemetry(window, baseline, 14)

	if len(telemetry.Window) != 1 {
		t.Errorf("BuildTelemetry() kept %d window tasks, want 1 (deleted excluded)", len(telemetry.Window))
	}
	if telemetry.BaselineDailyMedian != 2 {
		t.Errorf("BuildTelemetry() baseline median = %v, want 2", telemetry.BaselineDailyMedian)
	}
	if telemetry.WindowDays != 14 {
		t.Errorf("BuildTelemetry() window days = %d, want 14", telemetry.WindowDays)
	}

	if got := BuildTelemetry(nil, nil, 0); got.WindowDays != DefaultWindowDays {
		t.Errorf("BuildTelemetry() default window days = %d, want %d", got.WindowDays, DefaultWindowDays)
	}
}

func TestMedian(t *testing.T) {
	tests := []struct {
		name   string
		values []float64
		want   float64
	}{
		{name: "empty", values: nil, want: 0},
		{name: "single", values: []float64{5}, want: 5},
		{name: "odd count", values: []float64{3, 1, 2}, want: 2},
		{name: "even count averages middle pair", values: []float64{4, 1, 3, 2}, want: 2.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := median(tt.values); got != tt.want {
				t.Errorf("median(%v) = %v, want %v", tt.values, got, tt.want)
			}
		})
	}
}
