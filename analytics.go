package safecheck

import (
	"sort"
	"strconv"
	"time"
)

// Supported analytics windows, in days.
var AnalyticsWindows = []int{7, 30, 90}

// DefaultAnalyticsWindow is used when no window is requested.
const DefaultAnalyticsWindow = 30

// ParseWindow parses a window in days. An empty string yields the default.
func ParseWindow(s string) (int, error) {
	if s == "" {
		return DefaultAnalyticsWindow, nil
	}
	days, err := strconv.Atoi(s)
	if err != nil || !validWindow(days) {
		return 0, Invalid("Window must be one of 7, 30 or 90 days")
	}
	return days, nil
}

func validWindow(days int) bool {
	for _, w := range AnalyticsWindows {
		if w == days {
			return true
		}
	}
	return false
}

// AnalyticsFilter selects the records an analytics summary covers.
type AnalyticsFilter struct {
	// Window is the number of calendar days, ending with the day of Now,
	// that records' createdAt must fall into.
	Window int
	Kind   *Kind
	Now    time.Time
}

// Cutoff returns the first instant included by the window.
func (f AnalyticsFilter) Cutoff() time.Time {
	return startOfDay(f.Now).AddDate(0, 0, -(f.Window - 1))
}

// KindTotals aggregates one kind.
type KindTotals struct {
	Inspections    int `json:"inspections"`
	Items          int `json:"items"`
	Completed      int `json:"completed"`
	Compliant      int `json:"compliant"`
	Critical       int `json:"critical"`
	ComplianceRate int `json:"complianceRate"`
}

// TrendPoint is one calendar day of the trend series.
type TrendPoint struct {
	Date           string `json:"date"`
	Inspections    int    `json:"inspections"`
	CriticalIssues int    `json:"criticalIssues"`
	ComplianceRate int    `json:"complianceRate"`

	compliant int
	completed int
}

// CategoryIssues counts critical items per checklist category.
type CategoryIssues struct {
	Kind     Kind   `json:"kind"`
	Category string `json:"category"`
	Issues   int    `json:"issues"`
}

// AnalyticsSummary aggregates records of all kinds for dashboards.
type AnalyticsSummary struct {
	Window int       `json:"window"`
	From   time.Time `json:"from"`
	To     time.Time `json:"to"`

	TotalInspections int                      `json:"totalInspections"`
	PendingApprovals int                      `json:"pendingApprovals"`
	ByKind           map[Kind]KindTotals      `json:"byKind"`
	ByStatus         map[InspectionStatus]int `json:"byStatus"`

	TotalItems         int `json:"totalItems"`
	CompletedItems     int `json:"completedItems"`
	CompliantItems     int `json:"compliantItems"`
	PoorItems          int `json:"poorItems"`
	CriticalItems      int `json:"criticalItems"`
	NotApplicableItems int `json:"notApplicableItems"`
	ComplianceRate     int `json:"complianceRate"`
	CompletionRate     int `json:"completionRate"`

	Trend     []TrendPoint     `json:"trend"`
	TopIssues []CategoryIssues `json:"topIssues"`
}

// AggregateStats sums the statistics of every record inside the window
// (and of the requested kind) and buckets them into a daily trend that has
// one point per calendar day, including days without records.
func AggregateStats(records []*Inspection, f AnalyticsFilter) (*AnalyticsSummary, error) {
	if !validWindow(f.Window) {
		return nil, Invalid("Window must be one of 7, 30 or 90 days")
	}
	if f.Now.IsZero() {
		f.Now = time.Now()
	}
	loc := f.Now.Location()
	cutoff := f.Cutoff()

	sum := &AnalyticsSummary{
		Window:   f.Window,
		From:     cutoff,
		To:       f.Now,
		ByKind:   make(map[Kind]KindTotals),
		ByStatus: make(map[InspectionStatus]int),
		Trend:    make([]TrendPoint, f.Window),
	}
	index := make(map[string]int, f.Window)
	for d := 0; d < f.Window; d++ {
		day := cutoff.AddDate(0, 0, d).Format(DateLayout)
		sum.Trend[d] = TrendPoint{Date: day}
		index[day] = d
	}

	issues := make(map[CategoryIssues]int)
	for _, rec := range records {
		if f.Kind != nil && rec.Kind != *f.Kind {
			continue
		}
		created := rec.CreatedAt.In(loc)
		if created.Before(cutoff) || created.After(f.Now) {
			continue
		}
		s := rec.Stats(f.Now)

		sum.TotalInspections++
		sum.ByStatus[rec.Status]++
		if rec.Status == InspectionStatusSubmitted || rec.Status == InspectionStatusSupervisorApproved {
			sum.PendingApprovals++
		}

		kt := sum.ByKind[rec.Kind]
		kt.Inspections++
		kt.Items += s.Total
		kt.Completed += s.Completed
		kt.Compliant += s.CompliantCount
		kt.Critical += s.CriticalCount
		kt.ComplianceRate = percent(kt.Compliant, kt.Completed)
		sum.ByKind[rec.Kind] = kt

		sum.TotalItems += s.Total
		sum.CompletedItems += s.Completed
		sum.CompliantItems += s.CompliantCount
		sum.PoorItems += s.PoorCount
		sum.CriticalItems += s.CriticalCount
		sum.NotApplicableItems += s.NotApplicableCount

		if d, ok := index[created.Format(DateLayout)]; ok {
			p := &sum.Trend[d]
			p.Inspections++
			p.CriticalIssues += s.CriticalCount
			p.compliant += s.CompliantCount
			p.completed += s.Completed
			p.ComplianceRate = percent(p.compliant, p.completed)
		}

		for _, item := range rec.Items {
			if Classify(rec.Kind, item.Rating) == ClassCritical {
				issues[CategoryIssues{Kind: rec.Kind, Category: item.Category}]++
			}
		}
	}

	sum.ComplianceRate = percent(sum.CompliantItems, sum.CompletedItems)
	sum.CompletionRate = percent(sum.CompletedItems, sum.TotalItems)

	for k, n := range issues {
		k.Issues = n
		sum.TopIssues = append(sum.TopIssues, k)
	}
	sort.Slice(sum.TopIssues, func(a, b int) bool {
		x, y := sum.TopIssues[a], sum.TopIssues[b]
		if x.Issues != y.Issues {
			return x.Issues > y.Issues
		}
		if x.Kind != y.Kind {
			return x.Kind < y.Kind
		}
		return x.Category < y.Category
	})
	return sum, nil
}
