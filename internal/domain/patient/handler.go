package patient

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

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
	// Read endpoints – clinical staff and front desk
	readGroup := api.Group("", auth.RequireRole("physician", "nurse", "receptionist"))
	readGroup.GET("/patients", h.ListPatients)
	readGroup.GET("/patients/:id", h.GetPatient)

	// Clinical data – physician, nurse
	clinicalGroup := api.Group("", auth.RequireRole("physician", "nurse"))
	clinicalGroup.GET("/patients/:id/medical-history", h.GetMedicalHistory)
	clinicalGroup.GET("/patients/:id/symptoms", h.ListSymptoms)
	clinicalGroup.POST("/patients/:id/symptoms", h.RecordSymptom)
}

func (h *Handler) ListPatients(c echo.Context) error {
	pg := pagination.FromContext(c)
	patients, total, err := h.svc.ListPatients(c.Request().Context(), pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(patients, total, pg.Limit, pg.Offset))
}

func (h *Handler) GetPatient(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	p, err := h.svc.GetPatient(c.Request().Context(), id)
	if err != nil {
		return readError(err)
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) GetMedicalHistory(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	history, err := h.svc.GetMedicalHistory(c.Request().Context(), id)
	if err != nil {
		return readError(err)
	}
	return c.JSON(http.StatusOK, history)
}

func (h *Handler) ListSymptoms(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	symptoms, err := h.svc.ListSymptoms(c.Request().Context(), id)
	if err != nil {
		return readError(err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"data": symptoms, "total": len(symptoms)})
}

func (h *Handler) RecordSymptom(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var sym Symptom
	if err := c.Bind(&sym); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	sym.PatientID = id
	if err := h.svc.RecordSymptom(c.Request().Context(), &sym); err != nil {
		if errors.Is(err, ErrNotFound) {
			return readError(err)
		}
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, sym)
}

func readError(err error) *echo.HTTPError {
	if errors.Is(err, ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "patient not found")
	}
	return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
}
