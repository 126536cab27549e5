package scheduling

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/clinicdesk/clinicdesk/internal/domain/patient"
	"github.com/clinicdesk/clinicdesk/internal/platform/auth"
	"github.com/clinicdesk/clinicdesk/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	// Appointments – front desk and clinical staff
	apptGroup := api.Group("", auth.RequireRole("physician", "nurse", "receptionist"))
	apptGroup.GET("/patients/:id/appointments", h.ListAppointments)
	apptGroup.POST("/patients/:id/appointments", h.CreateAppointment)
	apptGroup.POST("/patients/:id/appointments/:appointmentId/status", h.UpdateAppointmentStatus)

	// Visits – clinical staff only
	visitGroup := api.Group("", auth.RequireRole("physician", "nurse"))
	visitGroup.GET("/patients/:id/visits", h.ListVisits)
	visitGroup.POST("/patients/:id/visits", h.RecordVisit)
}

func (h *Handler) ListAppointments(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListAppointmentsByPatient(c.Request().Context(), id, pg.Limit, pg.Offset)
	if err != nil {
		return httpError(err, http.StatusInternalServerError)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) CreateAppointment(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var a Appointment
	if err := c.Bind(&a); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	a.PatientID = id
	if err := h.svc.CreateAppointment(c.Request().Context(), &a); err != nil {
		return httpError(err, http.StatusBadRequest)
	}
	return c.JSON(http.StatusCreated, a)
}

type statusRequest struct {
	Status string `json:"status"`
}

func (h *Handler) UpdateAppointmentStatus(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	apptID, err := uuid.Parse(c.Param("appointmentId"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid appointment id")
	}
	var req statusRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	a, err := h.svc.UpdateAppointmentStatus(c.Request().Context(), id, apptID, req.Status)
	if err != nil {
		return httpError(err, http.StatusBadRequest)
	}
	return c.JSON(http.StatusOK, a)
}

func (h *Handler) ListVisits(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListVisitsByPatient(c.Request().Context(), id, pg.Limit, pg.Offset)
	if err != nil {
		return httpError(err, http.StatusInternalServerError)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) RecordVisit(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var v Visit
	if err := c.Bind(&v); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	v.PatientID = id
	if err := h.svc.RecordVisit(c.Request().Context(), &v); err != nil {
		return httpError(err, http.StatusBadRequest)
	}
	return c.JSON(http.StatusCreated, v)
}

// httpError maps domain errors to statuses; anything else is reported with fallback.
func httpError(err error, fallback int) *echo.HTTPError {
	switch {
	case errors.Is(err, patient.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "patient not found")
	case errors.Is(err, ErrAppointmentNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, ErrNotScheduled):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	}
	return echo.NewHTTPError(fallback, err.Error())
}
