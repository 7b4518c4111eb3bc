package calendar

import (
	"fmt"
	"slices"
)

// ConflictType classifies a scheduling conflict.
type ConflictType string

const (
	ConflictOverlap    ConflictType = "overlap"
	ConflictTravelTime ConflictType = "travel_time"
	ConflictGap        ConflictType = "gap"
)

// Severity grades a conflict.
type Severity string

const (
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Conflict describes a problem between jobs of one driver.
type Conflict struct {
	Type     ConflictType `json:"type"`
	Severity Severity     `json:"severity"`
	Message  string       `json:"message"`
	DriverID string       `json:"driver_id"`
	JobIDs   []string     `json:"job_ids"`
}

// Involves reports whether jobID takes part in the conflict.
func (c Conflict) Involves(jobID string) bool {
	return slices.Contains(c.JobIDs, jobID)
}

// DetectConflicts finds overlapping jobs of driverID. Jobs are ordered by
// effective start and only neighbours are compared: any overlap implies an
// overlap between some adjacent pair, so none is missed, but a three-way
// overlap is reported pair by pair.
func DetectConflicts(jobs []CalendarJob, driverID string, policy StatusPolicy) []Conflict {
	var own []CalendarJob
	for _, j := range jobs {
		if driverID != "" && j.AssignedTo(driverID) {
			own = append(own, j)
		}
	}
	slices.SortStableFunc(own, func(a, b CalendarJob) int {
		return a.StartMinutes - b.StartMinutes
	})

	var conflicts []Conflict
	for i := 0; i+1 < len(own); i++ {
		cur, next := own[i], own[i+1]
		if cur.EndMinutes <= next.StartMinutes {
			continue
		}
		severity := SeverityWarning
		if policy.IsUnconfirmed(cur.Status) || policy.IsUnconfirmed(next.Status) {
			severity = SeverityError
		}
		conflicts = append(conflicts, Conflict{
			Type:     ConflictOverlap,
			Severity: severity,
			Message:  fmt.Sprintf("Jobs overlap by %d minutes", cur.EndMinutes-next.StartMinutes),
			DriverID: driverID,
			JobIDs:   []string{cur.ID, next.ID},
		})
	}
	return conflicts
}

// DetectAll runs DetectConflicts for every driver and concatenates the
// results in driver order.
func DetectAll(jobs []CalendarJob, driverIDs []string, policy StatusPolicy) []Conflict {
	var all []Conflict
	for _, id := range driverIDs {
		all = append(all, DetectConflicts(jobs, id, policy)...)
	}
	return all
}

// CountBySeverity tallies conflicts per severity.
func CountBySeverity(conflicts []Conflict) map[Severity]int {
	counts := map[Severity]int{SeverityWarning: 0, SeverityError: 0}
	for _, c := range conflicts {
		counts[c.Severity]++
	}
	return counts
}
