package wizard

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

// StepDecoder is the step form collaborator: it decodes and validates the request body
// for the given step. Validation failures are returned as errors and never reach the
// controller.
type StepDecoder[P any] func(key StepKey, body []byte) (P, error)

// Handler exposes a Registry over HTTP. Every response carries the session snapshot.
type Handler[P any] struct {
	sessions      *Registry[P]
	decode        StepDecoder[P]
	commitTimeout time.Duration
	logger        zerolog.Logger
}

// NewHandler creates a Handler. commitTimeout bounds each commit call; zero means no
// bound beyond the collaborator's own.
func NewHandler[P any](sessions *Registry[P], decode StepDecoder[P], commitTimeout time.Duration, logger zerolog.Logger) *Handler[P] {
	return &Handler[P]{
		sessions:      sessions,
		decode:        decode,
		commitTimeout: commitTimeout,
		logger:        logger,
	}
}

// RegisterRoutes mounts the session endpoints under g.
func (h *Handler[P]) RegisterRoutes(g *echo.Group) {
	g.GET("/steps", h.ListSteps)
	g.POST("/sessions", h.Open)
	g.GET("/sessions/:id", h.Get)
	g.POST("/sessions/:id/advance", h.Advance)
	g.POST("/sessions/:id/retreat", h.Retreat)
	g.POST("/sessions/:id/reset", h.Reset)
	g.POST("/sessions/:id/restart", h.Restart)
	g.POST("/sessions/:id/finalize", h.Finalize)
	g.DELETE("/sessions/:id", h.Close)
}

func (h *Handler[P]) ListSteps(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"wizard": h.sessions.Name(),
		"steps":  h.sessions.Steps(),
	})
}

func (h *Handler[P]) Open(c echo.Context) error {
	ctrl, err := h.sessions.Open()
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusCreated, ctrl.Snapshot())
}

func (h *Handler[P]) Get(c echo.Context) error {
	ctrl, err := h.session(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, ctrl.Snapshot())
}

func (h *Handler[P]) Advance(c echo.Context) error {
	ctrl, err := h.session(c)
	if err != nil {
		return err
	}
	snap := ctrl.Snapshot()
	if snap.IsComplete {
		return c.JSON(http.StatusOK, snap)
	}

	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		var he *echo.HTTPError
		if errors.As(err, &he) {
			return he
		}
		return echo.NewHTTPError(http.StatusBadRequest, "unreadable body")
	}
	payload, err := h.decode(snap.StepKey, body)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	snap, err = ctrl.AdvanceAt(snap.StepKey, payload)
	if err != nil {
		return h.httpError(err)
	}
	return c.JSON(http.StatusOK, snap)
}

func (h *Handler[P]) Retreat(c echo.Context) error {
	ctrl, err := h.session(c)
	if err != nil {
		return err
	}
	snap, err := ctrl.Retreat()
	if err != nil {
		return h.httpError(err)
	}
	return c.JSON(http.StatusOK, snap)
}

func (h *Handler[P]) Reset(c echo.Context) error {
	ctrl, err := h.session(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, ctrl.Reset())
}

func (h *Handler[P]) Restart(c echo.Context) error {
	ctrl, err := h.session(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, ctrl.Restart())
}

// Finalize runs the commit detached from the request context: a client that goes away
// does not cancel a commit that has already started.
func (h *Handler[P]) Finalize(c echo.Context) error {
	ctrl, err := h.session(c)
	if err != nil {
		return err
	}

	ctx := context.WithoutCancel(c.Request().Context())
	if h.commitTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.commitTimeout)
		defer cancel()
	}

	snap, err := ctrl.Finalize(ctx)
	var commitErr *CommitError
	switch {
	case errors.As(err, &commitErr):
		return c.JSON(http.StatusBadGateway, snap)
	case err != nil:
		return h.httpError(err)
	case snap.IsSubmitting:
		return c.JSON(http.StatusAccepted, snap)
	}
	return c.JSON(http.StatusOK, snap)
}

func (h *Handler[P]) Close(c echo.Context) error {
	if err := h.sessions.Close(c.Param("id")); err != nil {
		return h.httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler[P]) session(c echo.Context) (*Controller[P], error) {
	ctrl, err := h.sessions.Get(c.Param("id"))
	if err != nil {
		return nil, h.httpError(err)
	}
	return ctrl, nil
}

func (h *Handler[P]) httpError(err error) *echo.HTTPError {
	switch {
	case errors.Is(err, ErrSessionNotFound), errors.Is(err, ErrClosed):
		return echo.NewHTTPError(http.StatusNotFound, "wizard session not found")
	case errors.Is(err, ErrMissingPayload):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrLocked), errors.Is(err, ErrIncompleteDraft),
		errors.Is(err, ErrStepMismatch), errors.Is(err, ErrDiscarded):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	}
	h.logger.Error().Err(err).Msg("wizard request failed")
	return echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
}
