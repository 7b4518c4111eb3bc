package service

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"github.com/sumire/pumpplanner/internal/calendar"
	"github.com/sumire/pumpplanner/internal/domain"
	"github.com/sumire/pumpplanner/internal/metrics"
	"github.com/sumire/pumpplanner/internal/validation"
)

// JobStore defines the job data access interface consumed by CalendarService.
type JobStore interface {
	ListByDate(ctx context.Context, orgID, date string) ([]domain.Job, error)
	FindByID(ctx context.Context, orgID, id string) (*domain.Job, error)
	Create(ctx context.Context, orgID string, draft domain.JobDraft) (*domain.Job, error)
	Update(ctx context.Context, orgID, id string, patch domain.JobPatch) (*domain.Job, error)
	Delete(ctx context.Context, orgID, id string) error
}

// DriverStore lists the drivers of an organization.
type DriverStore interface {
	ListActive(ctx context.Context, orgID string) ([]domain.Driver, error)
}

// CalendarService is the job store seen by boards and the HTTP API. Every
// call is checked against the identity carried by ctx.
type CalendarService struct {
	jobs      JobStore
	drivers   DriverStore
	validator *validation.Validator
	metrics   metrics.Sink
	logger    *zap.Logger
}

// NewCalendarService creates a new CalendarService.
func NewCalendarService(jobs JobStore, drivers DriverStore, v *validation.Validator, sink metrics.Sink, logger *zap.Logger) *CalendarService {
	if v == nil {
		v = validation.New()
	}
	if sink == nil {
		sink = metrics.NewNoopSink()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CalendarService{jobs: jobs, drivers: drivers, validator: v, metrics: sink, logger: logger}
}

// FetchJobsForDate lists the organization's jobs on date.
func (s *CalendarService) FetchJobsForDate(ctx context.Context, orgID, date string) (jobs []domain.Job, err error) {
	defer s.observe("fetch_jobs", time.Now(), &err)

	if err = s.authorize(ctx, orgID, false); err != nil {
		return nil, err
	}
	if _, perr := time.Parse("2006-01-02", date); perr != nil {
		return nil, errors.WithHint(errors.Mark(errors.Wrapf(perr, "date %q", date), domain.ErrInvalidInput),
			"Invalid date")
	}
	jobs, err = s.jobs.ListByDate(ctx, orgID, date)
	if err != nil {
		return nil, errors.WithHint(err, "Failed to fetch jobs for selected date")
	}
	return jobs, nil
}

// FetchActiveDrivers lists the drivers jobs can be assigned to.
func (s *CalendarService) FetchActiveDrivers(ctx context.Context, orgID string) (drivers []domain.Driver, err error) {
	defer s.observe("fetch_drivers", time.Now(), &err)

	if err = s.authorize(ctx, orgID, false); err != nil {
		return nil, err
	}
	drivers, err = s.drivers.ListActive(ctx, orgID)
	if err != nil {
		return nil, errors.WithHint(err, "Failed to load drivers")
	}
	return drivers, nil
}

// CreateJob validates and inserts a job. A missing status defaults to to_plan.
func (s *CalendarService) CreateJob(ctx context.Context, orgID string, draft domain.JobDraft) (job *domain.Job, err error) {
	defer s.observe("create_job", time.Now(), &err)

	if err = s.authorize(ctx, orgID, true); err != nil {
		return nil, err
	}
	if draft.Status == "" {
		draft.Status = domain.JobStatusToPlan
	}
	if err = s.validator.Struct(draft); err != nil {
		return nil, err
	}
	if err = checkRange(draft.StartTime, draft.EndTime); err != nil {
		return nil, err
	}
	job, err = s.jobs.Create(ctx, orgID, draft)
	if err != nil {
		return nil, errors.WithHint(err, "Failed to create job")
	}
	return job, nil
}

// UpdateJob applies a partial update.
func (s *CalendarService) UpdateJob(ctx context.Context, orgID, jobID string, patch domain.JobPatch) (job *domain.Job, err error) {
	defer s.observe("update_job", time.Now(), &err)

	if err = s.authorize(ctx, orgID, true); err != nil {
		return nil, err
	}
	if err = s.validator.Struct(patch); err != nil {
		return nil, err
	}
	if patch.StartTime != nil {
		if err = checkRange(*patch.StartTime, patch.EndTime); err != nil {
			return nil, err
		}
	}
	job, err = s.jobs.Update(ctx, orgID, jobID, patch)
	if err != nil {
		return nil, errors.WithHint(err, "Failed to update job")
	}
	return job, nil
}

// MoveJob re-times a job dropped at newStart, keeping the duration of the
// stored record. A nil newDriverID keeps the current driver; an empty one
// unassigns the job.
func (s *CalendarService) MoveJob(ctx context.Context, orgID, jobID, newStart string, newDriverID *string) (job *domain.Job, err error) {
	defer s.observe("move_job", time.Now(), &err)

	if err = s.authorize(ctx, orgID, true); err != nil {
		return nil, err
	}
	current, err := s.jobs.FindByID(ctx, orgID, jobID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, errors.WithHint(err, "Job not found")
	}
	if err != nil {
		return nil, errors.WithHint(err, "Failed to move job")
	}
	start, end, err := calendar.MovedRange(*current, newStart)
	if err != nil {
		return nil, err
	}

	patch := domain.JobPatch{StartTime: &start, DriverID: newDriverID}
	if end != "" {
		patch.EndTime = &end
	}
	job, err = s.jobs.Update(ctx, orgID, jobID, patch)
	if err != nil {
		return nil, errors.WithHint(err, "Failed to move job")
	}
	return job, nil
}

// UpdateJobStatus changes only the status of a job.
func (s *CalendarService) UpdateJobStatus(ctx context.Context, orgID, jobID string, status domain.JobStatus) (job *domain.Job, err error) {
	defer s.observe("update_job_status", time.Now(), &err)

	if err = s.authorize(ctx, orgID, true); err != nil {
		return nil, err
	}
	if !status.Valid() {
		return nil, errors.WithHint(&domain.ValidationError{Field: "status", Message: "unknown status " + string(status)},
			"Unknown job status")
	}
	job, err = s.jobs.Update(ctx, orgID, jobID, domain.JobPatch{Status: &status})
	if err != nil {
		return nil, errors.WithHint(err, "Failed to update job status")
	}
	return job, nil
}

// DeleteJob removes a job.
func (s *CalendarService) DeleteJob(ctx context.Context, orgID, jobID string) (err error) {
	defer s.observe("delete_job", time.Now(), &err)

	if err = s.authorize(ctx, orgID, true); err != nil {
		return err
	}
	if err = s.jobs.Delete(ctx, orgID, jobID); err != nil {
		return errors.WithHint(err, "Failed to delete job")
	}
	return nil
}

func (s *CalendarService) authorize(ctx context.Context, orgID string, manage bool) error {
	id, ok := IdentityFrom(ctx)
	if !ok {
		return domain.ErrUnauthorized
	}
	if id.OrganizationID != orgID {
		return errors.WithHint(errors.Mark(errors.Newf("organization %s not granted", orgID), domain.ErrForbidden),
			"Insufficient permissions to access calendar")
	}
	if manage && !id.CanManageJobs() {
		return errors.WithHint(errors.Mark(errors.Newf("user %s cannot manage jobs", id.UserID), domain.ErrForbidden),
			"Insufficient permissions to access calendar")
	}
	return nil
}

func (s *CalendarService) observe(op string, start time.Time, errp *error) {
	outcome := metrics.OutcomeSuccess
	if err := *errp; err != nil {
		if rejected(err) {
			outcome = metrics.OutcomeRejected
		} else {
			outcome = metrics.OutcomeFailed
			s.logger.Error("job store operation failed", zap.String("operation", op), zap.Error(err))
		}
	}
	s.metrics.StoreOperation(op, outcome, time.Since(start))
}

// rejected reports whether err was caused by the caller rather than the store.
func rejected(err error) bool {
	var verr *domain.ValidationError
	return errors.As(err, &verr) ||
		errors.Is(err, domain.ErrUnauthorized) ||
		errors.Is(err, domain.ErrForbidden) ||
		errors.Is(err, domain.ErrInvalidInput) ||
		errors.Is(err, domain.ErrNotFound)
}

func checkRange(start string, end *string) error {
	if end == nil || *end == "" {
		return nil
	}
	if calendar.TimeToMinutes(*end) <= calendar.TimeToMinutes(start) {
		return errors.WithHint(&domain.ValidationError{Field: "end_time", Message: "must be after start_time"},
			"End time must be after start time")
	}
	return nil
}
