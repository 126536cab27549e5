package analytics

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/clinicdesk/clinicdesk/internal/platform/auth"
)

// Handler provides HTTP handlers for the analytics API.
type Handler struct {
	engine *Engine
}

func NewHandler(engine *Engine) *Handler {
	return &Handler{engine: engine}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group("/analytics", auth.RequireRole("physician", "analyst"))
	g.GET("/measures", h.ListMeasures)
	g.GET("/measures/:id", h.EvaluateMeasure)
}

func (h *Handler) ListMeasures(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{"data": PredefinedMeasures})
}

// EvaluateMeasure runs a measure with parameters taken from the query string.
func (h *Handler) EvaluateMeasure(c echo.Context) error {
	raw := map[string]string{}
	for name, values := range c.QueryParams() {
		if len(values) > 0 {
			raw[name] = values[0]
		}
	}
	report, err := h.engine.Evaluate(c.Request().Context(), c.Param("id"), raw)
	switch {
	case errors.Is(err, ErrUnknownMeasure):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, ErrInvalidParameter):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case err != nil:
		return echo.NewHTTPError(http.StatusInternalServerError, "query failed")
	}
	return c.JSON(http.StatusOK, report)
}
