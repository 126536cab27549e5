package reportbuilder

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/clinicdesk/clinicdesk/internal/wizard"
)

// Handler adds the preview endpoint on top of the generic wizard session routes.
type Handler struct {
	sessions *wizard.Registry[Payload]
}

func NewHandler(sessions *wizard.Registry[Payload]) *Handler {
	return &Handler{sessions: sessions}
}

func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.GET("/sessions/:id/preview", h.Preview)
}

// Preview renders the report as it will be saved. Only available on the Complete step.
func (h *Handler) Preview(c echo.Context) error {
	ctrl, err := h.sessions.Get(c.Param("id"))
	if errors.Is(err, wizard.ErrSessionNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "wizard session not found")
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	snap := ctrl.Snapshot()
	if !snap.IsComplete {
		return echo.NewHTTPError(http.StatusConflict, "preview is available once every step is submitted")
	}
	p, err := NewPreview(snap.Draft)
	if err != nil {
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	}
	return c.JSON(http.StatusOK, p)
}
