package handler

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/fx"

	"lexcourt/internal/delivery/api/middleware"
	"lexcourt/internal/delivery/api/response"
	"lexcourt/internal/domain/entity"
	"lexcourt/internal/errors"
	"lexcourt/internal/usecase"
)

const (
	eventBuffer       = 64
	keepAliveInterval = 15 * time.Second
)

// SessionHandlerParams holds dependencies for SessionHandler, injected by Fx.
type SessionHandlerParams struct {
	fx.In

	Guard  usecase.RouteGuard
	Logger *slog.Logger
}

// SessionHandler exposes the session snapshot, the transition stream and
// guard decisions.
type SessionHandler struct {
	guard     usecase.RouteGuard
	logger    *slog.Logger
	keepAlive time.Duration
}

// NewSessionHandler is the constructor for SessionHandler
func NewSessionHandler(params SessionHandlerParams) *SessionHandler {
	return &SessionHandler{
		guard:     params.Guard,
		logger:    params.Logger,
		keepAlive: keepAliveInterval,
	}
}

// Snapshot returns the current session, profile and loading flag.
func (h *SessionHandler) Snapshot(c echo.Context) error {
	return response.Success(c, http.StatusOK, newSessionView(middleware.Sessions(c).Snapshot(), h.guard))
}

// Evaluate returns the guard decision for the path query parameter.
func (h *SessionHandler) Evaluate(c echo.Context) error {
	path := c.QueryParam("path")
	if path == "" {
		return response.BadRequest(c, "INVALID_INPUT", "path is required")
	}

	dest, ok := h.guard.Resolve(path)
	if !ok {
		dest = entity.Destination{Path: path}
	}

	return response.Success(c, http.StatusOK, h.guard.Evaluate(dest, middleware.Sessions(c).Snapshot()))
}

// Events streams transitions as server-sent events. The stream opens with a
// snapshot event; every later transition is sent once, in order.
func (h *SessionHandler) Events(c echo.Context) error {
	ctx := c.Request().Context()
	sessions := middleware.Sessions(c)

	events := make(chan entity.Transition, eventBuffer)
	overflow := make(chan struct{})
	unsubscribe := sessions.Subscribe(func(t entity.Transition) {
		select {
		case events <- t:
		case <-ctx.Done():
		default:
			// A reader this far behind cannot be caught up without gaps.
			select {
			case <-overflow:
			default:
				close(overflow)
			}
		}
	})
	defer unsubscribe()

	res := c.Response()
	res.Header().Set(echo.HeaderContentType, "text/event-stream")
	res.Header().Set(echo.HeaderCacheControl, "no-cache")
	res.Header().Set(echo.HeaderConnection, "keep-alive")
	res.WriteHeader(http.StatusOK)

	if err := writeEvent(res, "snapshot", newSessionView(sessions.Snapshot(), h.guard)); err != nil {
		return err
	}

	ticker := time.NewTicker(h.keepAlive)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-overflow:
			// The client reconnects and starts again from a fresh snapshot.
			return writeEvent(res, "reset", nil)
		case t := <-events:
			if err := writeEvent(res, "transition", newTransitionView(t)); err != nil {
				return err
			}
		case <-ticker.C:
			if _, err := fmt.Fprint(res, ": keep-alive\n\n"); err != nil {
				return errors.WithStack(err)
			}
			res.Flush()
		}
	}
}

func writeEvent(res *echo.Response, name string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return errors.WithStack(err)
	}
	if _, err := fmt.Fprintf(res, "event: %s\ndata: %s\n\n", name, payload); err != nil {
		return errors.WithStack(err)
	}
	res.Flush()

	return nil
}
