package calendar

import (
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/sumire/pumpplanner/internal/domain"
)

// DefaultEndFallbackMinutes is the placeholder duration of a job without an
// end time.
const DefaultEndFallbackMinutes = 60

// CalendarJob is a job positioned on the day grid. It is derived from a
// domain.Job and never mutated; a changed job yields a new CalendarJob.
type CalendarJob struct {
	domain.Job

	EffectiveStart  string `json:"effective_start"`
	StartMinutes    int    `json:"start_minutes"`
	EndMinutes      int    `json:"end_minutes"`
	DurationMinutes int    `json:"duration_minutes"`
	TravelMinutes   int    `json:"travel_minutes"`
	WorkMinutes     int    `json:"work_minutes"`
	GridRow         int    `json:"grid_row"`
	GridSpan        int    `json:"grid_span"`
}

// ToCalendarJob derives the grid view model of job.
func ToCalendarJob(job domain.Job, g Grid) CalendarJob {
	travel := job.Travel()
	effective := DepartureTime(job.StartTime, travel)

	start := TimeToMinutes(effective)
	end := start + DefaultEndFallbackMinutes
	if job.EndTime != nil && *job.EndTime != "" {
		end = TimeToMinutes(*job.EndTime)
	}
	duration := end - start

	return CalendarJob{
		Job:             job,
		EffectiveStart:  effective,
		StartMinutes:    start,
		EndMinutes:      end,
		DurationMinutes: duration,
		TravelMinutes:   travel,
		WorkMinutes:     duration - travel,
		GridRow:         g.Row(start),
		GridSpan:        g.Span(duration),
	}
}

// ToCalendarJobs converts a fetched job set.
func ToCalendarJobs(jobs []domain.Job, g Grid) []CalendarJob {
	out := make([]CalendarJob, 0, len(jobs))
	for _, j := range jobs {
		out = append(out, ToCalendarJob(j, g))
	}
	return out
}

// ValidRange reports whether the job ends after its effective start.
func (c CalendarJob) ValidRange() bool {
	return c.EndMinutes > c.StartMinutes
}

// Covers reports whether the slot starting at minute lies inside the job.
func (c CalendarJob) Covers(minute int) bool {
	return c.StartMinutes <= minute && minute < c.EndMinutes
}

// TimeLabel renders "start - end" using the effective start.
func (c CalendarJob) TimeLabel() string {
	switch {
	case c.EffectiveStart != "" && c.EndTime != nil && *c.EndTime != "":
		return c.EffectiveStart + " - " + *c.EndTime
	case c.EffectiveStart != "":
		return c.EffectiveStart
	}
	return "No time set"
}

// StatusPolicy names the statuses that count as not yet confirmed. They put
// a job in the planned lane and escalate its overlaps to errors.
type StatusPolicy struct {
	Unconfirmed map[domain.JobStatus]bool
}

// DefaultStatusPolicy treats both initial vocabularies as unconfirmed.
var DefaultStatusPolicy = NewStatusPolicy(domain.JobStatusToPlan, domain.JobStatusPlanning)

// NewStatusPolicy builds a policy from the given unconfirmed statuses.
func NewStatusPolicy(unconfirmed ...domain.JobStatus) StatusPolicy {
	p := StatusPolicy{Unconfirmed: make(map[domain.JobStatus]bool, len(unconfirmed))}
	for _, s := range unconfirmed {
		p.Unconfirmed[s] = true
	}
	return p
}

// ParseStatusPolicy reads a comma-separated status list.
func ParseStatusPolicy(list string) (StatusPolicy, error) {
	var statuses []domain.JobStatus
	for _, raw := range strings.Split(list, ",") {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		s, ok := domain.ParseJobStatus(raw)
		if !ok {
			return StatusPolicy{}, errors.Newf("unknown job status %q", raw)
		}
		statuses = append(statuses, s)
	}
	if len(statuses) == 0 {
		return StatusPolicy{}, errors.New("at least one unconfirmed status is required")
	}
	return NewStatusPolicy(statuses...), nil
}

// IsUnconfirmed reports whether status belongs to the planned lane.
func (p StatusPolicy) IsUnconfirmed(status domain.JobStatus) bool {
	return p.Unconfirmed[status]
}

// MovedRange computes the clock times of job after dropping its card at
// newStart. The drop point becomes the new effective start. The on-site
// start keeps its offset from the effective start, which is shorter than the
// travel time when the departure was floored at midnight, and the original
// duration (end minus effective start) is preserved.
func MovedRange(job domain.Job, newStart string) (start, end string, err error) {
	dropAt, err := ParseClock(newStart)
	if err != nil {
		return "", "", errors.Mark(errors.Wrap(err, "move target"), domain.ErrInvalidInput)
	}
	effective := TimeToMinutes(DepartureTime(job.StartTime, job.Travel()))
	onSite := dropAt + TimeToMinutes(job.StartTime) - effective
	if onSite >= MinutesPerDay {
		return "", "", errors.WithHint(errors.Mark(errors.Newf("start %d past midnight", onSite), domain.ErrInvalidInput),
			"The job would start after midnight")
	}
	start = MinutesToTime(onSite)
	if job.EndTime == nil || *job.EndTime == "" {
		return start, "", nil
	}

	duration := TimeToMinutes(*job.EndTime) - effective
	endMinutes := dropAt + duration
	if endMinutes >= MinutesPerDay {
		return "", "", errors.WithHint(errors.Mark(errors.Newf("end %d past midnight", endMinutes), domain.ErrInvalidInput),
			"The job would end after midnight")
	}
	return start, MinutesToTime(endMinutes), nil
}
