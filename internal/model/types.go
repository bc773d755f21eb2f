// Package model defines shared data structures for the NeonBlue API.
package model

import "time"

// ExperimentStatus is the lifecycle state of an experiment.
type ExperimentStatus string

// Experiment lifecycle states.
const (
	StatusDraft     ExperimentStatus = "draft"
	StatusRunning   ExperimentStatus = "running"
	StatusPaused    ExperimentStatus = "paused"
	StatusCompleted ExperimentStatus = "completed"
)

// ExperimentStatuses lists all valid lifecycle states.
var ExperimentStatuses = []ExperimentStatus{StatusDraft, StatusRunning, StatusPaused, StatusCompleted}

// Valid reports whether the status is one of the known lifecycle states.
func (s ExperimentStatus) Valid() bool {
	switch s {
	case StatusDraft, StatusRunning, StatusPaused, StatusCompleted:
		return true
	}
	return false
}

// ConfidenceLevel is the backend's qualitative reliability label for results.
type ConfidenceLevel string

// Confidence levels reported by the backend.
const (
	ConfidenceLow         ConfidenceLevel = "low"
	ConfidenceMedium      ConfidenceLevel = "medium"
	ConfidenceHigh        ConfidenceLevel = "high"
	ConfidenceSignificant ConfidenceLevel = "significant"
)

// Experiment is a configured A/B test with its variants.
type Experiment struct {
	ID          int64            `json:"id"`
	Name        string           `json:"name"`
	Description string           `json:"description,omitempty"`
	Status      ExperimentStatus `json:"status"`
	CreatedAt   time.Time        `json:"created_at"`
	StartedAt   *time.Time       `json:"started_at,omitempty"`
	EndedAt     *time.Time       `json:"ended_at,omitempty"`
	Variants    []Variant        `json:"variants"`
}

// Variant is one treatment arm of an experiment. TrafficAllocation is a
// percentage in [0, 100]; allocations across an experiment are intended to
// sum to 100, but the client renders whatever it receives.
type Variant struct {
	ID                int64          `json:"id"`
	ExperimentID      int64          `json:"experiment_id"`
	Name              string         `json:"name"`
	TrafficAllocation float64        `json:"traffic_allocation"`
	Config            map[string]any `json:"config,omitempty"`
}

// Assignment records that a user was bucketed into a variant. Assignments
// are aggregated server-side; the client only ever sees their roll-up in
// VariantMetrics.
type Assignment struct {
	ID           int64     `json:"id"`
	ExperimentID int64     `json:"experiment_id"`
	VariantID    int64     `json:"variant_id"`
	UserID       string    `json:"user_id"`
	AssignedAt   time.Time `json:"assigned_at"`
}

// Event records a user action, optionally counted as a conversion.
type Event struct {
	ID         int64          `json:"id"`
	UserID     string         `json:"user_id"`
	EventType  string         `json:"event_type"`
	Timestamp  time.Time      `json:"timestamp"`
	Properties map[string]any `json:"properties,omitempty"`
}

// VariantMetrics is the per-variant aggregate computed by the backend.
// ConversionRate is a percentage in [0, 100], not a fraction.
type VariantMetrics struct {
	VariantID             int64          `json:"variant_id"`
	VariantName           string         `json:"variant_name"`
	TotalAssignments      int            `json:"total_assignments"`
	TotalEvents           int            `json:"total_events"`
	UniqueUsersWithEvents int            `json:"unique_users_with_events"`
	ConversionRate        float64        `json:"conversion_rate"`
	EventsByType          map[string]int `json:"events_by_type"`
	EventsPerUser         float64        `json:"events_per_user"`
}

// TimeSeriesPoint is one (timestamp, variant) bucket. The backend returns
// points sorted ascending by timestamp; the client does not re-sort.
type TimeSeriesPoint struct {
	Timestamp       time.Time `json:"timestamp"`
	VariantID       int64     `json:"variant_id"`
	VariantName     string    `json:"variant_name"`
	AssignmentCount int       `json:"assignment_count"`
	EventCount      int       `json:"event_count"`
	ConversionRate  float64   `json:"conversion_rate"`
}

// ResultsSummary is the experiment-wide roll-up. LeadingVariant is nil
// when no variant leads.
type ResultsSummary struct {
	TotalAssignments      int             `json:"total_assignments"`
	TotalEvents           int             `json:"total_events"`
	OverallConversionRate float64         `json:"overall_conversion_rate"`
	LeadingVariant        *string         `json:"leading_variant"`
	ConfidenceLevel       ConfidenceLevel `json:"confidence_level"`
}

// ExperimentResults is the full results payload for one experiment. It is
// treated as an immutable snapshot: every successful fetch wholly replaces
// the previous one.
type ExperimentResults struct {
	ExperimentID   int64             `json:"experiment_id"`
	ExperimentName string            `json:"experiment_name"`
	Status         ExperimentStatus  `json:"status"`
	PeriodStart    *time.Time        `json:"period_start,omitempty"`
	PeriodEnd      *time.Time        `json:"period_end,omitempty"`
	Summary        ResultsSummary    `json:"summary"`
	VariantMetrics []VariantMetrics  `json:"variant_metrics"`
	TimeSeries     []TimeSeriesPoint `json:"time_series"`
	EventsByType   map[string]int    `json:"events_by_type"`
	GeneratedAt    time.Time         `json:"generated_at"`
}

// ExperimentList is one page of experiments with pagination bookkeeping.
type ExperimentList struct {
	Experiments []Experiment `json:"experiments"`
	Total       int          `json:"total"`
	Limit       int          `json:"limit"`
	Offset      int          `json:"offset"`
}

// EventTypeCount pairs an event type with its total occurrence count.
type EventTypeCount struct {
	Type  string `json:"type"`
	Count int    `json:"count"`
}

// Health is the liveness probe response.
type Health struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}
