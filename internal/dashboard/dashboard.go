// Package dashboard computes the headline counts shown on the console's
// home page from the record store.
package dashboard

import (
	"fmt"
	"strings"
	"time"

	"github.com/mesh-intelligence/wasteledger/pkg/types"
)

// Status and quality values the dashboard counts.
const (
	StatusActive    = "active"
	StatusCompleted = "completed"
	StatusPending   = "pending"

	QualityGood = "good"
	QualityPoor = "poor"
)

// Stats is the dashboard summary.
type Stats struct {
	Families           int         `json:"families"`
	ActiveWorkers      int         `json:"active_workers"`
	CollectionsToday   int         `json:"collections_today"`
	CommunityReports   int         `json:"community_reports"`
	TrainingCompletion Training    `json:"training_completion"`
	SegregationQuality Segregation `json:"segregation_quality"`
	RecentAlerts       []string    `json:"recent_alerts"`
	GeneratedAt        string      `json:"generated_at"`
}

// Training counts training records by status.
type Training struct {
	Completed int `json:"completed"`
	Pending   int `json:"pending"`
}

// Segregation counts collections by segregation_quality.
type Segregation struct {
	Good int `json:"good"`
	Poor int `json:"poor"`
}

// Compute builds Stats from s. A collection counts as today's when its
// date field starts with now's calendar date (YYYY-MM-DD) in now's
// location.
func Compute(s types.Store, now time.Time) (Stats, error) {
	st := Stats{
		RecentAlerts: []string{},
		GeneratedAt:  now.Format(types.TimeFormat),
	}

	counts := []struct {
		table  string
		filter types.Filter
		dst    *int
	}{
		{types.FamiliesTable, nil, &st.Families},
		{types.WorkersTable, types.Filter{types.FieldStatus: StatusActive}, &st.ActiveWorkers},
		{types.CommunityReportsTable, nil, &st.CommunityReports},
		{types.TrainingRecordsTable, types.Filter{types.FieldStatus: StatusCompleted}, &st.TrainingCompletion.Completed},
		{types.TrainingRecordsTable, types.Filter{types.FieldStatus: StatusPending}, &st.TrainingCompletion.Pending},
	}
	for _, c := range counts {
		recs, err := s.Query(c.table, c.filter)
		if err != nil {
			return Stats{}, fmt.Errorf("count %s: %w", c.table, err)
		}
		*c.dst = len(recs)
	}

	collections, err := s.Query(types.CollectionsTable, nil)
	if err != nil {
		return Stats{}, fmt.Errorf("count %s: %w", types.CollectionsTable, err)
	}
	today := now.Format(time.DateOnly)
	for _, c := range collections {
		if strings.HasPrefix(c.Text("date"), today) {
			st.CollectionsToday++
		}
		switch c.Text("segregation_quality") {
		case QualityGood:
			st.SegregationQuality.Good++
		case QualityPoor:
			st.SegregationQuality.Poor++
		}
	}
	return st, nil
}
