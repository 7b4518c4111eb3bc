package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/sumire/pumpplanner/internal/domain"
)

// JobRepository handles job data access operations.
type JobRepository struct {
	db *sqlx.DB
}

// NewJobRepository creates a new JobRepository.
func NewJobRepository(db *sqlx.DB) *JobRepository {
	return &JobRepository{db: db}
}

// ListByDate returns the organization's jobs on date, ordered by start time.
func (r *JobRepository) ListByDate(ctx context.Context, orgID, date string) ([]domain.Job, error) {
	jobs := []domain.Job{}
	if err := r.db.SelectContext(ctx, &jobs, queryJobsForDate, orgID, date); err != nil {
		return nil, errors.Wrapf(err, "list jobs for %s", date)
	}
	return jobs, nil
}

// FindByID retrieves a job with its joined display fields.
func (r *JobRepository) FindByID(ctx context.Context, orgID, id string) (*domain.Job, error) {
	var job domain.Job
	err := r.db.GetContext(ctx, &job, queryJobByID, orgID, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, errors.Wrapf(err, "find job %s", id)
	}
	return &job, nil
}

// Create inserts a job under a fresh id and returns the hydrated row.
func (r *JobRepository) Create(ctx context.Context, orgID string, d domain.JobDraft) (*domain.Job, error) {
	id := uuid.NewString()
	_, err := r.db.ExecContext(ctx, queryInsertJob,
		id, orgID, d.JobDate, d.StartTime, nullable(d.EndTime), d.TravelTimeMinutes,
		nullable(d.DriverID), nullable(d.PumpTypeID), nullable(d.ClientID), nullable(d.PriceListID), string(d.Status),
		nullable(d.AddressStreet), nullable(d.AddressCity), nullable(d.AddressPostalCode),
		d.VolumeM3, d.PipeLengthM, nullable(d.Notes), nullable(d.DriverNotes), d.ProprietaryConcrete,
	)
	if err != nil {
		return nil, errors.Wrap(err, "insert job")
	}
	return r.FindByID(ctx, orgID, id)
}

// Update applies the non-nil fields of patch and returns the hydrated row.
// Empty strings clear nullable columns.
func (r *JobRepository) Update(ctx context.Context, orgID, id string, p domain.JobPatch) (*domain.Job, error) {
	if p.Empty() {
		return r.FindByID(ctx, orgID, id)
	}

	var set setList
	if p.StartTime != nil {
		set.add("start_time", *p.StartTime)
	}
	if p.EndTime != nil {
		set.add("end_time", nullable(p.EndTime))
	}
	if p.TravelTimeMinutes != nil {
		set.add("travel_time_minutes", *p.TravelTimeMinutes)
	}
	if p.DriverID != nil {
		set.add("pumpist_id", nullable(p.DriverID))
	}
	if p.PumpTypeID != nil {
		set.add("pump_type_id", nullable(p.PumpTypeID))
	}
	if p.ClientID != nil {
		set.add("client_id", nullable(p.ClientID))
	}
	if p.PriceListID != nil {
		set.add("price_list_id", nullable(p.PriceListID))
	}
	if p.Status != nil {
		set.add("status", string(*p.Status))
	}
	if p.AddressStreet != nil {
		set.add("address_street", nullable(p.AddressStreet))
	}
	if p.AddressCity != nil {
		set.add("address_city", nullable(p.AddressCity))
	}
	if p.AddressPostalCode != nil {
		set.add("address_postal_code", nullable(p.AddressPostalCode))
	}
	if p.VolumeM3 != nil {
		set.add("expected_volume", *p.VolumeM3)
	}
	if p.PipeLengthM != nil {
		set.add("pipe_length", *p.PipeLengthM)
	}
	if p.Notes != nil {
		set.add("dispatcher_notes", nullable(p.Notes))
	}
	if p.DriverNotes != nil {
		set.add("pumpist_notes", nullable(p.DriverNotes))
	}
	if p.ProprietaryConcrete != nil {
		set.add("proprietary_concrete", *p.ProprietaryConcrete)
	}

	query := fmt.Sprintf(`UPDATE jobs SET %s, updated_at = NOW() WHERE organization_id = $%d AND id = $%d`,
		strings.Join(set.clauses, ", "), len(set.args)+1, len(set.args)+2)
	result, err := r.db.ExecContext(ctx, query, append(set.args, orgID, id)...)
	if err != nil {
		return nil, errors.Wrapf(err, "update job %s", id)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return nil, domain.ErrNotFound
	}
	return r.FindByID(ctx, orgID, id)
}

// Delete removes a job.
func (r *JobRepository) Delete(ctx context.Context, orgID, id string) error {
	result, err := r.db.ExecContext(ctx, queryDeleteJob, orgID, id)
	if err != nil {
		return errors.Wrapf(err, "delete job %s", id)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return errors.Wrapf(err, "delete job %s", id)
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

type setList struct {
	clauses []string
	args    []any
}

func (s *setList) add(column string, value any) {
	s.args = append(s.args, value)
	s.clauses = append(s.clauses, fmt.Sprintf("%s = $%d", column, len(s.args)))
}

// nullable maps nil and blank strings to SQL NULL.
func nullable(s *string) any {
	if s == nil || strings.TrimSpace(*s) == "" {
		return nil
	}
	return *s
}
