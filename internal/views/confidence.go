package views

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/ishannjr/neonblue/internal/model"
)

// ConfidenceRule is one row of the confidence legend. MinUsers and MinLift
// document the thresholds the backend is assumed to apply when it labels
// results; they are never enforced against live metrics here.
type ConfidenceRule struct {
	Level     model.ConfidenceLevel
	Label     string
	Threshold string
	MinUsers  int
	MinLift   float64
	Color     lipgloss.Color
}

var confidenceRules = []ConfidenceRule{
	{
		Level:     model.ConfidenceLow,
		Label:     "Low",
		Threshold: "any lift, fewer than 30 users",
		Color:     lipgloss.Color("#FF4D4F"),
	},
	{
		Level:     model.ConfidenceMedium,
		Label:     "Medium",
		Threshold: "20%+ lift with 100+ users",
		MinUsers:  100,
		MinLift:   20,
		Color:     lipgloss.Color("#C89A3A"),
	},
	{
		Level:     model.ConfidenceHigh,
		Label:     "High",
		Threshold: "15%+ lift with 500+ users",
		MinUsers:  500,
		MinLift:   15,
		Color:     lipgloss.Color("#73D13D"),
	},
	{
		Level:     model.ConfidenceSignificant,
		Label:     "Significant",
		Threshold: "10%+ lift with 1000+ users",
		MinUsers:  1000,
		MinLift:   10,
		Color:     lipgloss.Color("#36CFC9"),
	},
}

// ConfidenceRules returns the legend rows in ascending confidence order.
func ConfidenceRules() []ConfidenceRule {
	out := make([]ConfidenceRule, len(confidenceRules))
	copy(out, confidenceRules)
	return out
}

// LookupConfidence picks the legend row for a backend-reported level.
// Unknown levels get a neutral row so an unexpected label still renders.
func LookupConfidence(level model.ConfidenceLevel) ConfidenceRule {
	for _, rule := range confidenceRules {
		if rule.Level == level {
			return rule
		}
	}
	return ConfidenceRule{
		Level:     level,
		Label:     Capitalize(string(level)),
		Threshold: "unrecognized level",
		Color:     lipgloss.Color("#8C8C8C"),
	}
}
