package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/fx"

	"lexcourt/internal/delivery/api/middleware"
	"lexcourt/internal/delivery/api/response"
	"lexcourt/internal/domain/entity"
	"lexcourt/internal/usecase"
)

const (
	defaultRecentLimit = 10
	maxRecentLimit     = 50
)

// CaseHandlerParams holds dependencies for CaseHandler, injected by Fx.
type CaseHandlerParams struct {
	fx.In

	CaseUC usecase.CaseUsecase
	Logger *slog.Logger
}

// CaseHandler serves the role-scoped case access layer. Every call runs on
// behalf of the current session and is discarded if that session changes
// before it returns.
type CaseHandler struct {
	caseUC usecase.CaseUsecase
	logger *slog.Logger
}

// NewCaseHandler is the constructor for CaseHandler
func NewCaseHandler(params CaseHandlerParams) *CaseHandler {
	return &CaseHandler{
		caseUC: params.CaseUC,
		logger: params.Logger,
	}
}

// UpdateStatusRequest represents the request body for changing case status
type UpdateStatusRequest struct {
	Status entity.CaseStatus `json:"status" validate:"required"`
}

// AssignJudgeRequest represents the request body for assigning a judge
type AssignJudgeRequest struct {
	JudgeID uuid.UUID `json:"judge_id" validate:"required"`
}

// Search looks a case up by its exact case number. A miss is an ordinary
// empty result, not an error.
func (h *CaseHandler) Search(c echo.Context) error {
	caseNumber := c.QueryParam("case_number")
	if caseNumber == "" {
		return response.BadRequest(c, "INVALID_INPUT", "case_number is required")
	}

	type result struct {
		view  *entity.CaseView
		found bool
	}
	res, err := usecase.InSession(c.Request().Context(), middleware.Sessions(c),
		func(ctx context.Context, requester entity.Requester) (result, error) {
			view, found, err := h.caseUC.SearchByCaseNumber(ctx, requester, caseNumber)

			return result{view: view, found: found}, err
		})
	if err != nil {
		return response.HandleAppError(c, err)
	}

	return response.Success(c, http.StatusOK, &CaseSearchView{Found: res.found, Case: res.view})
}

// Recent lists the newest cases the caller takes part in.
func (h *CaseHandler) Recent(c echo.Context) error {
	limit, err := parseLimit(c.QueryParam("limit"))
	if err != nil {
		return response.BadRequest(c, "INVALID_INPUT", "limit must be a positive integer")
	}

	views, err := usecase.InSession(c.Request().Context(), middleware.Sessions(c),
		func(ctx context.Context, requester entity.Requester) ([]*entity.CaseView, error) {
			return h.caseUC.ListRecentCases(ctx, requester, limit)
		})
	if err != nil {
		return response.HandleAppError(c, err)
	}

	return response.Success(c, http.StatusOK, views)
}

// Detail returns the full view of one case.
func (h *CaseHandler) Detail(c echo.Context) error {
	caseID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return response.BadRequest(c, "INVALID_ID", "Invalid case ID")
	}

	view, err := usecase.InSession(c.Request().Context(), middleware.Sessions(c),
		func(ctx context.Context, requester entity.Requester) (*entity.CaseView, error) {
			return h.caseUC.CaseDetail(ctx, requester, caseID)
		})
	if err != nil {
		return response.HandleAppError(c, err)
	}

	return response.Success(c, http.StatusOK, view)
}

// Create files a new case owned by the calling lawyer.
func (h *CaseHandler) Create(c echo.Context) error {
	var req usecase.CreateCaseInput
	if err := c.Bind(&req); err != nil {
		return response.BadRequest(c, "INVALID_INPUT", "Invalid case input")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	view, err := usecase.InSession(c.Request().Context(), middleware.Sessions(c),
		func(ctx context.Context, requester entity.Requester) (*entity.CaseView, error) {
			return h.caseUC.CreateCase(ctx, requester, &req)
		})
	if err != nil {
		return response.HandleAppError(c, err)
	}

	return response.Success(c, http.StatusCreated, view)
}

// AddParticipant links another identity to a case.
func (h *CaseHandler) AddParticipant(c echo.Context) error {
	caseID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return response.BadRequest(c, "INVALID_ID", "Invalid case ID")
	}

	var req usecase.AddParticipantInput
	if err := c.Bind(&req); err != nil {
		return response.BadRequest(c, "INVALID_INPUT", "Invalid participant input")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	if err := h.inSession(c, func(ctx context.Context, requester entity.Requester) error {
		return h.caseUC.AddParticipant(ctx, requester, caseID, &req)
	}); err != nil {
		return response.HandleAppError(c, err)
	}

	return response.Success(c, http.StatusCreated, map[string]string{"message": "Participant added"})
}

// UpdateStatus changes the status of a managed case.
func (h *CaseHandler) UpdateStatus(c echo.Context) error {
	caseID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return response.BadRequest(c, "INVALID_ID", "Invalid case ID")
	}

	var req UpdateStatusRequest
	if err := c.Bind(&req); err != nil {
		return response.BadRequest(c, "INVALID_INPUT", "Invalid status input")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	if err := h.inSession(c, func(ctx context.Context, requester entity.Requester) error {
		return h.caseUC.UpdateCaseStatus(ctx, requester, caseID, req.Status)
	}); err != nil {
		return response.HandleAppError(c, err)
	}

	return response.Success(c, http.StatusOK, map[string]string{"message": "Case status updated"})
}

// AssignJudge assigns a judge to a managed case.
func (h *CaseHandler) AssignJudge(c echo.Context) error {
	caseID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return response.BadRequest(c, "INVALID_ID", "Invalid case ID")
	}

	var req AssignJudgeRequest
	if err := c.Bind(&req); err != nil {
		return response.BadRequest(c, "INVALID_INPUT", "Invalid judge input")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	if err := h.inSession(c, func(ctx context.Context, requester entity.Requester) error {
		return h.caseUC.AssignJudge(ctx, requester, caseID, req.JudgeID)
	}); err != nil {
		return response.HandleAppError(c, err)
	}

	return response.Success(c, http.StatusOK, map[string]string{"message": "Judge assigned"})
}

// ScheduleHearing adds a hearing to a case.
func (h *CaseHandler) ScheduleHearing(c echo.Context) error {
	caseID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return response.BadRequest(c, "INVALID_ID", "Invalid case ID")
	}

	var req usecase.ScheduleHearingInput
	if err := c.Bind(&req); err != nil {
		return response.BadRequest(c, "INVALID_INPUT", "Invalid hearing input")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	hearing, err := usecase.InSession(c.Request().Context(), middleware.Sessions(c),
		func(ctx context.Context, requester entity.Requester) (*entity.Hearing, error) {
			return h.caseUC.ScheduleHearing(ctx, requester, caseID, &req)
		})
	if err != nil {
		return response.HandleAppError(c, err)
	}

	return response.Success(c, http.StatusCreated, hearing)
}

// PostCommunication posts a message on a case.
func (h *CaseHandler) PostCommunication(c echo.Context) error {
	caseID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return response.BadRequest(c, "INVALID_ID", "Invalid case ID")
	}

	var req usecase.PostCommunicationInput
	if err := c.Bind(&req); err != nil {
		return response.BadRequest(c, "INVALID_INPUT", "Invalid communication input")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	comm, err := usecase.InSession(c.Request().Context(), middleware.Sessions(c),
		func(ctx context.Context, requester entity.Requester) (*entity.Communication, error) {
			return h.caseUC.PostCommunication(ctx, requester, caseID, &req)
		})
	if err != nil {
		return response.HandleAppError(c, err)
	}

	return response.Success(c, http.StatusCreated, comm)
}

func (h *CaseHandler) inSession(c echo.Context, fn func(ctx context.Context, requester entity.Requester) error) error {
	_, err := usecase.InSession(c.Request().Context(), middleware.Sessions(c),
		func(ctx context.Context, requester entity.Requester) (struct{}, error) {
			return struct{}{}, fn(ctx, requester)
		})

	return err
}

func parseLimit(raw string) (int, error) {
	if raw == "" {
		return defaultRecentLimit, nil
	}

	limit, err := strconv.Atoi(raw)
	if err != nil || limit <= 0 {
		return 0, strconv.ErrSyntax
	}

	return min(limit, maxRecentLimit), nil
}
