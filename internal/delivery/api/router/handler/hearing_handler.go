package handler

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/fx"

	"lexcourt/internal/delivery/api/middleware"
	"lexcourt/internal/delivery/api/response"
	"lexcourt/internal/domain/entity"
	"lexcourt/internal/domain/service"
	"lexcourt/internal/usecase"
)

// HearingHandlerParams holds dependencies for HearingHandler, injected by Fx.
type HearingHandlerParams struct {
	fx.In

	CaseUC usecase.CaseUsecase
	QRCode service.QRCodeService
}

// HearingHandler lets participants join hearings, directly or from a scanned code.
type HearingHandler struct {
	caseUC usecase.CaseUsecase
	qrSvc  service.QRCodeService
}

// NewHearingHandler is the constructor for HearingHandler
func NewHearingHandler(params HearingHandlerParams) *HearingHandler {
	return &HearingHandler{
		caseUC: params.CaseUC,
		qrSvc:  params.QRCode,
	}
}

// ScanRequest represents the request body for joining from a scanned code
type ScanRequest struct {
	QRData string `json:"qr_data" validate:"required"`
}

// Join returns the hearing, including its meeting link, to a participant.
func (h *HearingHandler) Join(c echo.Context) error {
	hearingID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return response.BadRequest(c, "INVALID_ID", "Invalid hearing ID")
	}

	hearing, err := h.join(c, hearingID)
	if err != nil {
		return response.HandleAppError(c, err)
	}

	return response.Success(c, http.StatusOK, hearing)
}

// QRCode renders the join code of a hearing as a PNG.
func (h *HearingHandler) QRCode(c echo.Context) error {
	hearingID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return response.BadRequest(c, "INVALID_ID", "Invalid hearing ID")
	}

	hearing, err := h.join(c, hearingID)
	if err != nil {
		return response.HandleAppError(c, err)
	}
	if hearing.MeetingLink == "" {
		return response.NotFound(c, "NO_MEETING_LINK", "This hearing has no virtual room")
	}

	png, err := h.qrSvc.GenerateHearingQR(hearing)
	if err != nil {
		return err
	}

	return c.Blob(http.StatusOK, "image/png", png)
}

// Scan joins the hearing encoded in a scanned join code.
func (h *HearingHandler) Scan(c echo.Context) error {
	var req ScanRequest
	if err := c.Bind(&req); err != nil {
		return response.BadRequest(c, "INVALID_INPUT", "Invalid scan input")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	hearingID, err := h.qrSvc.ParseHearingQR(req.QRData)
	if err != nil {
		return response.BadRequest(c, "INVALID_QR", "Unrecognised join code")
	}

	hearing, err := h.join(c, hearingID)
	if err != nil {
		return response.HandleAppError(c, err)
	}

	return response.Success(c, http.StatusOK, hearing)
}

func (h *HearingHandler) join(c echo.Context, hearingID uuid.UUID) (*entity.Hearing, error) {
	return usecase.InSession(c.Request().Context(), middleware.Sessions(c),
		func(ctx context.Context, requester entity.Requester) (*entity.Hearing, error) {
			return h.caseUC.JoinHearing(ctx, requester, hearingID)
		})
}
