package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/fx"

	"lexcourt/internal/delivery/api/middleware"
	"lexcourt/internal/delivery/api/response"
	"lexcourt/internal/domain/entity"
	"lexcourt/internal/usecase"
)

// DashboardHandlerParams holds dependencies for DashboardHandler, injected by Fx.
type DashboardHandlerParams struct {
	fx.In

	CaseUC usecase.CaseUsecase
	Guard  usecase.RouteGuard
}

// DashboardHandler renders the role home pages. The route guard has already
// admitted the caller when these run.
type DashboardHandler struct {
	caseUC usecase.CaseUsecase
	guard  usecase.RouteGuard
}

// Dashboard is the payload of both role home pages.
type Dashboard struct {
	Session     *SessionView       `json:"session"`
	RecentCases []*entity.CaseView `json:"recent_cases"`
}

// NewDashboardHandler is the constructor for DashboardHandler
func NewDashboardHandler(params DashboardHandlerParams) *DashboardHandler {
	return &DashboardHandler{
		caseUC: params.CaseUC,
		guard:  params.Guard,
	}
}

// Lawyer renders the lawyer dashboard.
func (h *DashboardHandler) Lawyer(c echo.Context) error {
	return h.render(c)
}

// Judge renders the judge dashboard.
func (h *DashboardHandler) Judge(c echo.Context) error {
	return h.render(c)
}

func (h *DashboardHandler) render(c echo.Context) error {
	sessions := middleware.Sessions(c)

	recent, err := usecase.InSession(c.Request().Context(), sessions,
		func(ctx context.Context, requester entity.Requester) ([]*entity.CaseView, error) {
			return h.caseUC.ListRecentCases(ctx, requester, defaultRecentLimit)
		})
	if err != nil {
		return response.HandleAppError(c, err)
	}

	return response.Success(c, http.StatusOK, &Dashboard{
		Session:     newSessionView(sessions.Snapshot(), h.guard),
		RecentCases: recent,
	})
}
