package safecheck

import (
	"math"
	"time"
)

// Stats summarizes the ratings of one checklist. Compliant, Poor, Critical
// and NotApplicable partition Completed.
type Stats struct {
	Total               int `json:"total"`
	Completed           int `json:"completed"`
	CompliantCount      int `json:"compliantCount"`
	PoorCount           int `json:"poorCount"`
	CriticalCount       int `json:"criticalCount"`
	NotApplicableCount  int `json:"notApplicableCount"`
	RequiresActionCount int `json:"requiresActionCount"`

	// ComplianceRate is round(100 * compliant / completed), 0 when nothing is rated.
	ComplianceRate int `json:"complianceRate"`

	// CompletionRate is round(100 * completed / total), 0 for an empty checklist.
	CompletionRate int `json:"completionRate"`
}

// ComputeStats classifies every item of a checklist. Whether an item
// requires action is judged as of now, so expiry dates that have passed
// since the last edit are counted.
func ComputeStats(kind Kind, items []ChecklistItem, now time.Time) Stats {
	var s Stats
	s.Total = len(items)
	for _, item := range items {
		if RequiresAction(kind, item, now) {
			s.RequiresActionCount++
		}
		switch Classify(kind, item.Rating) {
		case ClassCompliant:
			s.CompliantCount++
		case ClassPoor:
			s.PoorCount++
		case ClassCritical:
			s.CriticalCount++
		case ClassNotApplicable:
			s.NotApplicableCount++
		default:
			continue
		}
		s.Completed++
	}
	s.ComplianceRate = percent(s.CompliantCount, s.Completed)
	s.CompletionRate = percent(s.Completed, s.Total)
	return s
}

// Stats computes the statistics of the record's checklist as of now.
func (i *Inspection) Stats(now time.Time) Stats {
	return ComputeStats(i.Kind, i.Items, now)
}

// CategoryStats counts the ratings within one checklist category.
type CategoryStats struct {
	Total      int `json:"total"`
	Good       int `json:"good"`
	Acceptable int `json:"acceptable"`
	Poor       int `json:"poor"`
	Issues     int `json:"issues"`
}

// CategoryBreakdown groups items by their exact category string.
func CategoryBreakdown(kind Kind, items []ChecklistItem) map[string]CategoryStats {
	out := make(map[string]CategoryStats)
	for _, item := range items {
		c := out[item.Category]
		c.Total++
		switch Classify(kind, item.Rating) {
		case ClassCompliant:
			if item.Rating == RatingAcceptable {
				c.Acceptable++
			} else {
				c.Good++
			}
		case ClassPoor:
			c.Poor++
		case ClassCritical:
			c.Issues++
		}
		out[item.Category] = c
	}
	return out
}

// Condition is the overall verdict shown on a record.
type Condition string

const (
	ConditionNeedsAttention Condition = "NEEDS ATTENTION"
	ConditionPassed         Condition = "PASSED"
	ConditionInProgress     Condition = "IN PROGRESS"
)

// ConditionOf derives the verdict: any critical item needs attention
// regardless of completion.
func ConditionOf(s Stats) Condition {
	switch {
	case s.CriticalCount > 0:
		return ConditionNeedsAttention
	case s.Total > 0 && s.Completed == s.Total:
		return ConditionPassed
	default:
		return ConditionInProgress
	}
}

func percent(n, d int) int {
	if d == 0 {
		return 0
	}
	return int(math.Round(100 * float64(n) / float64(d)))
}
