package report

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/medlink/medlink/internal/platform/auth"
	"github.com/medlink/medlink/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.POST("/reports", h.CreateReport, auth.RequireRole(auth.RolePatient))
	api.GET("/reports", h.ListReports, auth.RequireRole(auth.RoleDoctor))
	api.GET("/reports/:id", h.GetReport)
	api.PATCH("/reports/:id", h.UpdateReportStatus, auth.RequireRole(auth.RoleDoctor))
	api.GET("/patients/:id/reports", h.ListPatientReports, auth.RequireRole(auth.RolePatient))
}

func httpError(err error) *echo.HTTPError {
	switch {
	case errors.Is(err, ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, ErrForbidden):
		return echo.NewHTTPError(http.StatusForbidden, err.Error())
	case errors.Is(err, ErrConflict):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
}

type createReportInput struct {
	DoctorID string `json:"doctor_id"`
	Body     string `json:"body"`
}

func (h *Handler) CreateReport(c echo.Context) error {
	var in createReportInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	patientID := auth.UserIDFromContext(c.Request().Context())

	rep, err := h.svc.Create(c.Request().Context(), patientID, in.DoctorID, in.Body)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, rep)
}

func (h *Handler) GetReport(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	callerID := auth.UserIDFromContext(c.Request().Context())

	d, err := h.svc.Open(c.Request().Context(), id, callerID)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, d)
}

type updateStatusInput struct {
	Status string `json:"status"`
}

func (h *Handler) UpdateReportStatus(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var in updateStatusInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	doctorID := auth.UserIDFromContext(c.Request().Context())

	d, err := h.svc.UpdateStatus(c.Request().Context(), id, doctorID, in.Status)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, d)
}

func (h *Handler) ListReports(c echo.Context) error {
	pg := pagination.FromContext(c)
	doctorID := auth.UserIDFromContext(c.Request().Context())

	items, total, err := h.svc.ListByDoctor(c.Request().Context(), doctorID, pg.Limit, pg.Offset)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) ListPatientReports(c echo.Context) error {
	patientID := c.Param("id")
	if auth.UserIDFromContext(c.Request().Context()) != patientID {
		return echo.NewHTTPError(http.StatusForbidden, "patients may only list their own reports")
	}
	pg := pagination.FromContext(c)

	items, total, err := h.svc.ListByPatient(c.Request().Context(), patientID, pg.Limit, pg.Offset)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}
