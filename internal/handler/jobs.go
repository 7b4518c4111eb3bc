package handler

import (
	"net/http"

	"github.com/cockroachdb/errors"
	"github.com/labstack/echo/v4"

	"github.com/sumire/pumpplanner/internal/board"
	"github.com/sumire/pumpplanner/internal/domain"
)

// CalendarService is the job store and driver directory behind the API.
type CalendarService interface {
	board.JobStore
	board.DriverDirectory
}

// JobHandler exposes the job store verbs.
type JobHandler struct {
	calendar CalendarService
}

// NewJobHandler creates a new JobHandler.
func NewJobHandler(calendar CalendarService) *JobHandler {
	return &JobHandler{calendar: calendar}
}

type moveRequest struct {
	StartTime string  `json:"start_time" validate:"required,clock"`
	DriverID  *string `json:"driver_id"`
}

type statusRequest struct {
	Status domain.JobStatus `json:"status" validate:"required,job_status"`
}

// List returns the jobs of ?date=YYYY-MM-DD.
func (h *JobHandler) List(c echo.Context) error {
	id, err := mustIdentity(c)
	if err != nil {
		return err
	}
	date := c.QueryParam("date")
	if date == "" {
		return &domain.ValidationError{Field: "date", Message: "is required"}
	}

	jobs, err := h.calendar.FetchJobsForDate(c.Request().Context(), id.OrganizationID, date)
	if err != nil {
		return err
	}
	return JSON(c, http.StatusOK, jobs)
}

// Create inserts a job.
func (h *JobHandler) Create(c echo.Context) error {
	id, err := mustIdentity(c)
	if err != nil {
		return err
	}
	var draft domain.JobDraft
	if err := bind(c, &draft); err != nil {
		return err
	}

	job, err := h.calendar.CreateJob(c.Request().Context(), id.OrganizationID, draft)
	if err != nil {
		return err
	}
	return JSON(c, http.StatusCreated, job)
}

// Update applies a partial update.
func (h *JobHandler) Update(c echo.Context) error {
	id, err := mustIdentity(c)
	if err != nil {
		return err
	}
	var patch domain.JobPatch
	if err := bind(c, &patch); err != nil {
		return err
	}

	job, err := h.calendar.UpdateJob(c.Request().Context(), id.OrganizationID, c.Param("id"), patch)
	if err != nil {
		return err
	}
	return JSON(c, http.StatusOK, job)
}

// Move re-times a job and optionally reassigns it.
func (h *JobHandler) Move(c echo.Context) error {
	id, err := mustIdentity(c)
	if err != nil {
		return err
	}
	var req moveRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	job, err := h.calendar.MoveJob(c.Request().Context(), id.OrganizationID, c.Param("id"), req.StartTime, req.DriverID)
	if err != nil {
		return err
	}
	return JSON(c, http.StatusOK, job)
}

// UpdateStatus changes the status of a job.
func (h *JobHandler) UpdateStatus(c echo.Context) error {
	id, err := mustIdentity(c)
	if err != nil {
		return err
	}
	var req statusRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	job, err := h.calendar.UpdateJobStatus(c.Request().Context(), id.OrganizationID, c.Param("id"), req.Status)
	if err != nil {
		return err
	}
	return JSON(c, http.StatusOK, job)
}

// Delete removes a job.
func (h *JobHandler) Delete(c echo.Context) error {
	id, err := mustIdentity(c)
	if err != nil {
		return err
	}
	if err := h.calendar.DeleteJob(c.Request().Context(), id.OrganizationID, c.Param("id")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// Drivers lists the active drivers.
func (h *JobHandler) Drivers(c echo.Context) error {
	id, err := mustIdentity(c)
	if err != nil {
		return err
	}
	drivers, err := h.calendar.FetchActiveDrivers(c.Request().Context(), id.OrganizationID)
	if err != nil {
		return err
	}
	return JSON(c, http.StatusOK, drivers)
}

// bind decodes the request body into dst and validates it.
func bind(c echo.Context, dst any) error {
	if err := c.Bind(dst); err != nil {
		return errors.Mark(errors.Wrap(err, "decode body"), domain.ErrInvalidInput)
	}
	return c.Validate(dst)
}
