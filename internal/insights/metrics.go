package insights

import (
	"time"

	"taskfortime/internal/models"
)

// Metrics are deterministic outcome aggregates over a date range
type Metrics struct {
	From                  time.Time     `json:"from"`
	To                    time.Time     `json:"to"`
	TotalAssigned         int           `json:"total_assigned"`
	TotalCompleted        int           `json:"total_completed"`
	TotalApproved         int           `json:"total_approved"`
	CompletionRate        float64       `json:"completion_rate"`
	MedianApprovalLatency time.Duration `json:"median_approval_latency"`
	MinutesEarned         int           `json:"minutes_earned"`
}

// OutcomeMetrics aggregates tasks created within [from, to). Soft-deleted
// tasks are excluded, and a task counts as completed only while it sits
// in ready_for_review or approved. Pure function of its inputs.
func OutcomeMetrics(tasks []models.AssignedTask, from, to time.Time) Metrics {
	m := Metrics{From: from, To: to}
	var latencies []float64
	for _, t := range tasks {
		if t.IsDeleted() || t.CreatedAt.Before(from) || !t.CreatedAt.Before(to) {
			continue
		}
		m.TotalAssigned++
		if t.IsSettled() {
			m.TotalCompleted++
		}
		if t.Status == models.TaskStatusApproved {
			m.TotalApproved++
			m.MinutesEarned += t.RewardMinutes
		}
		if d, ok := t.ApprovalLatency(); ok {
			latencies = append(latencies, d.Minutes())
		}
	}
	if m.TotalAssigned > 0 {
		m.CompletionRate = float64(m.TotalCompleted) / float64(m.TotalAssigned)
	}
	m.MedianApprovalLatency = time.Duration(median(latencies) * float64(time.Minute))
	return m
}
