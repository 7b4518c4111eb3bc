package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/sumire/pumpplanner/internal/board"
	"github.com/sumire/pumpplanner/internal/calendar"
	"github.com/sumire/pumpplanner/internal/domain"
	"github.com/sumire/pumpplanner/internal/layout"
	"github.com/sumire/pumpplanner/internal/metrics"
	"github.com/sumire/pumpplanner/internal/session"
	"github.com/sumire/pumpplanner/internal/validation"
)

// BoardSettings are the grid and policy every new board starts with.
type BoardSettings struct {
	Grid           calendar.Grid
	Policy         calendar.StatusPolicy
	Location       *time.Location
	HighlightGrace time.Duration
	Clock          board.Clock
	Notifier       board.Notifier
}

// BoardHandler drives server-side scheduling boards.
type BoardHandler struct {
	sessions  *session.Registry
	calendar  CalendarService
	settings  BoardSettings
	metrics   metrics.Sink
	validator *validation.Validator
	logger    *zap.Logger
}

// NewBoardHandler creates a new BoardHandler.
func NewBoardHandler(
	sessions *session.Registry,
	calendar CalendarService,
	settings BoardSettings,
	sink metrics.Sink,
	v *validation.Validator,
	logger *zap.Logger,
) *BoardHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BoardHandler{
		sessions:  sessions,
		calendar:  calendar,
		settings:  settings,
		metrics:   sink,
		validator: v,
		logger:    logger,
	}
}

type openBoardRequest struct {
	Date string     `json:"date" validate:"omitempty,datetime=2006-01-02"`
	View board.View `json:"view" validate:"omitempty,oneof=planned assigned split"`
}

// Intent types accepted by Apply.
const (
	IntentSelectDate     = "select_date"
	IntentRefresh        = "refresh"
	IntentPreviousDay    = "previous_day"
	IntentNextDay        = "next_day"
	IntentToday          = "today"
	IntentSetView        = "set_view"
	IntentSelectJob      = "select_job"
	IntentPointerDown    = "pointer_down"
	IntentPointerEnter   = "pointer_enter"
	IntentPointerUp      = "pointer_up"
	IntentDoubleClick    = "double_click"
	IntentOpenJob        = "open_job"
	IntentSaveDialog     = "save_dialog"
	IntentCancelDialog   = "cancel_dialog"
	IntentMoveJob        = "move_job"
	IntentBeginResize    = "begin_resize"
	IntentEndResize      = "end_resize"
	IntentCancelResize   = "cancel_resize"
	IntentChangeStatus   = "change_status"
	IntentRequestDelete  = "request_delete"
	IntentConfirmDelete  = "confirm_delete"
	IntentCancelDelete   = "cancel_delete"
	IntentResetSelection = "reset_selection"
)

type intentRequest struct {
	Type       string           `json:"type" validate:"required,oneof=select_date refresh previous_day next_day today set_view select_job pointer_down pointer_enter pointer_up double_click open_job save_dialog cancel_dialog move_job begin_resize end_resize cancel_resize change_status request_delete confirm_delete cancel_delete reset_selection"`
	Date       string           `json:"date"`
	View       board.View       `json:"view"`
	JobID      string           `json:"job_id"`
	Time       string           `json:"time"`
	DriverID   *string          `json:"driver_id"`
	Lane       board.Lane       `json:"lane" validate:"omitempty,oneof=assigned planned"`
	Edge       board.Edge       `json:"edge"`
	DeltaPx    float64          `json:"delta_px"`
	Status     domain.JobStatus `json:"status"`
	Form       *board.JobForm   `json:"form" validate:"-"`
	Suggestion *domain.Address  `json:"suggestion"`
}

type boardResponse struct {
	ID      string        `json:"id"`
	Layout  layout.Layout `json:"layout"`
	Error   string        `json:"error,omitempty"`
	Ignored string        `json:"ignored,omitempty"`
}

// Open starts a board session for the caller and loads its first day.
func (h *BoardHandler) Open(c echo.Context) error {
	id, err := mustIdentity(c)
	if err != nil {
		return err
	}
	var req openBoardRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	b, err := board.New(board.Options{
		OrgID:          id.OrganizationID,
		Store:          h.calendar,
		Drivers:        h.calendar,
		Grid:           h.settings.Grid,
		Policy:         h.settings.Policy,
		Clock:          h.settings.Clock,
		Notifier:       h.settings.Notifier,
		Location:       h.settings.Location,
		Metrics:        h.metrics,
		Validator:      h.validator,
		CanManageJobs:  id.CanManageJobs(),
		HighlightGrace: h.settings.HighlightGrace,
		Logger:         h.logger.With(zap.String("organization_id", id.OrganizationID)),
	}, req.Date, req.View)
	if err != nil {
		return err
	}

	sid := h.sessions.Open(id, b)
	openErr := b.Open(c.Request().Context())
	return h.respond(c, http.StatusCreated, sid, b, openErr)
}

// Get returns the current layout of a board.
func (h *BoardHandler) Get(c echo.Context) error {
	b, sid, err := h.lookup(c)
	if err != nil {
		return err
	}
	return h.respond(c, http.StatusOK, sid, b, nil)
}

// Close ends a board session.
func (h *BoardHandler) Close(c echo.Context) error {
	id, err := mustIdentity(c)
	if err != nil {
		return err
	}
	if err := h.sessions.Close(id, c.Param("id")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// Apply feeds one intent to a board and returns the resulting layout.
func (h *BoardHandler) Apply(c echo.Context) error {
	b, sid, err := h.lookup(c)
	if err != nil {
		return err
	}
	var req intentRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	if req.Type == IntentSaveDialog && req.Form == nil {
		return &domain.ValidationError{Field: "form", Message: "is required"}
	}

	return h.respond(c, http.StatusOK, sid, b, apply(c.Request().Context(), b, req))
}

// apply runs req against b and returns the board's verdict.
func apply(ctx context.Context, b *board.Board, req intentRequest) error {
	driverID := ""
	if req.DriverID != nil {
		driverID = *req.DriverID
	}

	switch req.Type {
	case IntentSelectDate:
		return b.SelectDate(ctx, req.Date)
	case IntentRefresh:
		return b.Refresh(ctx)
	case IntentPreviousDay:
		return b.PreviousDay(ctx)
	case IntentNextDay:
		return b.NextDay(ctx)
	case IntentToday:
		return b.Today(ctx)
	case IntentSetView:
		return b.SetView(req.View)
	case IntentSelectJob:
		return b.SelectJob(req.JobID)
	case IntentPointerDown:
		return b.PointerDown(req.Time, driverID, req.Lane)
	case IntentPointerEnter:
		return b.PointerEnter(req.Time, driverID)
	case IntentPointerUp:
		return b.PointerUp()
	case IntentDoubleClick:
		return b.DoubleClickCell(req.Time, driverID, req.Lane)
	case IntentOpenJob:
		return b.OpenJob(req.JobID)
	case IntentSaveDialog:
		form := *req.Form
		if req.Suggestion != nil {
			form.ApplySuggestion(*req.Suggestion)
		}
		return b.SaveDialog(ctx, form)
	case IntentCancelDialog:
		return b.CancelDialog()
	case IntentMoveJob:
		return b.MoveJob(ctx, req.JobID, req.Time, req.DriverID)
	case IntentBeginResize:
		return b.BeginResize(req.JobID, req.Edge)
	case IntentEndResize:
		return b.EndResize(ctx, req.DeltaPx)
	case IntentCancelResize:
		b.CancelResize()
		return nil
	case IntentChangeStatus:
		return b.ChangeStatus(ctx, req.JobID, req.Status)
	case IntentRequestDelete:
		return b.RequestDelete(req.JobID)
	case IntentConfirmDelete:
		return b.ConfirmDelete(ctx)
	case IntentCancelDelete:
		return b.CancelDelete()
	case IntentResetSelection:
		b.ResetDragSelection()
		return nil
	}
	return errors.Mark(errors.Newf("unknown intent %q", req.Type), domain.ErrIgnored)
}

func (h *BoardHandler) lookup(c echo.Context) (*board.Board, string, error) {
	id, err := mustIdentity(c)
	if err != nil {
		return nil, "", err
	}
	sid := c.Param("id")
	b, err := h.sessions.Get(id, sid)
	if err != nil {
		return nil, "", err
	}
	return b, sid, nil
}

// respond renders b. Errors the board already surfaced as notifications or
// dialog errors are reported beside the layout; permission errors are not.
func (h *BoardHandler) respond(c echo.Context, status int, sid string, b *board.Board, boardErr error) error {
	res := boardResponse{ID: sid}
	switch {
	case boardErr == nil:
	case errors.Is(boardErr, domain.ErrForbidden), errors.Is(boardErr, domain.ErrUnauthorized):
		return boardErr
	case errors.Is(boardErr, domain.ErrIgnored), errors.Is(boardErr, domain.ErrStaleResponse):
		res.Ignored = boardErr.Error()
		h.logger.Debug("board intent ignored", zap.String("session_id", sid), zap.String("reason", res.Ignored))
	default:
		res.Error = domain.UserMessage(boardErr, "Request failed")
	}

	b.Tick()
	snap := b.Snapshot()
	res.Layout = layout.Render(snap, snap.Drivers, b.Grid(), b.Policy(), snap.Now)
	return JSON(c, status, res)
}
