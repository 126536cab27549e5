package assistant

import (
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/clinicdesk/clinicdesk/internal/domain/patient"
	"github.com/clinicdesk/clinicdesk/internal/platform/auth"
)

type Handler struct {
	responder  Responder
	summarizer Summarizer
	now        func() time.Time
}

func NewHandler(responder Responder, summarizer Summarizer) *Handler {
	return &Handler{responder: responder, summarizer: summarizer, now: time.Now}
}

// RegisterRoutes mounts the assistant endpoints for clinical staff. chat middleware
// applies to the chat endpoint only.
func (h *Handler) RegisterRoutes(api *echo.Group, chat ...echo.MiddlewareFunc) {
	g := api.Group("/assistant", auth.RequireRole("physician", "nurse"))
	g.POST("/chat", h.Chat, chat...)
	g.GET("/patients/:id/summary", h.PatientSummary)
}

type chatRequest struct {
	Message string `json:"message"`
}

type chatResponse struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

func (h *Handler) Chat(c echo.Context) error {
	var req chatRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	reply, err := h.responder.Reply(c.Request().Context(), req.Message)
	if err != nil {
		if errors.Is(err, ErrEmptyPrompt) {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		return echo.NewHTTPError(http.StatusBadGateway, "assistant unavailable")
	}
	return c.JSON(http.StatusOK, chatResponse{Role: "assistant", Content: reply, Timestamp: h.now()})
}

func (h *Handler) PatientSummary(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	sum, err := h.summarizer.Summarize(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, patient.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "patient not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, sum)
}
