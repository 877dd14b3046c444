package service

import (
	"context"
	"fmt"
	"time"

	"taskfortime/internal/insights"
	"taskfortime/internal/repository"
)

// InsightReport bundles the selected recommendation with the raw signals
// behind it
type InsightReport struct {
	Insight       *insights.Insight `json:"insight"`
	Signals       []insights.Signal `json:"signals"`
	CombinedScore int               `json:"combined_score"`
	WindowDays    int               `json:"window_days"`
}

// InsightService derives coaching recommendations from task telemetry.
// Detection and selection are deterministic; only the phrasing may go
// through a configured text-generation backend, which degrades to the
// deterministic templates on any failure.
type InsightService struct {
	taskRepo    *repository.TaskRepository
	childRepo   *repository.ChildRepository
	recommender insights.Recommender
	windowDays  int
}

// NewInsightService creates a new insight service
func NewInsightService(taskRepo *repository.TaskRepository, childRepo *repository.ChildRepository, recommender insights.Recommender, windowDays int) *InsightService {
	if windowDays <= 0 {
		windowDays = insights.DefaultWindowDays
	}
	return &InsightService{
		taskRepo:    taskRepo,
		childRepo:   childRepo,
		recommender: recommender,
		windowDays:  windowDays,
	}
}

// GetChildInsight analyzes one child's lookback window. The window
// preceding the lookback supplies the historical load baseline.
func (s *InsightService) GetChildInsight(ctx context.Context, childID, familyID int64) (*InsightReport, error) {
	child, err := s.childRepo.GetChildByID(childID)
	if err != nil {
		return nil, fmt.Errorf("failed to get child: %w", err)
	}
	if child == nil || child.IsDeleted() || child.FamilyID != familyID {
		return nil, ErrChildNotFound
	}

	now := time.Now()
	windowStart := now.AddDate(0, 0, -s.windowDays)
	baselineStart := now.AddDate(0, 0, -2*s.windowDays)

	window, err := s.taskRepo.GetTasksForChildBetween(childID, windowStart, now)
	if err != nil {
		return nil, fmt.Errorf("failed to get window tasks: %w", err)
	}
	baseline, err := s.taskRepo.GetTasksForChildBetween(childID, baselineStart, windowStart)
	if err != nil {
		return nil, fmt.Errorf("failed to get baseline tasks: %w", err)
	}

	telemetry := insights.BuildTelemetry(window, baseline, s.windowDays)
	signals := insights.DetectSignals(telemetry)

	insight, err := s.recommender.Recommend(ctx, signals)
	if err != nil {
		return nil, fmt.Errorf("failed to build recommendation: %w", err)
	}

	return &InsightReport{
		Insight:       insight,
		Signals:       signals,
		CombinedScore: insights.CombinedScore(signals),
		WindowDays:    s.windowDays,
	}, nil
}

// GetOutcomeMetrics aggregates the family's task outcomes over a date
// range. Deterministic for identical stored data.
func (s *InsightService) GetOutcomeMetrics(familyID int64, from, to time.Time) (*insights.Metrics, error) {
	if !to.After(from) {
		return nil, fmt.Errorf("invalid date range")
	}
	tasks, err := s.taskRepo.GetTasksInWindow(familyID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to get tasks: %w", err)
	}
	metrics := insights.OutcomeMetrics(tasks, from, to)
	return &metrics, nil
}
