package consent

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/medlink/medlink/internal/platform/auth"
	"github.com/medlink/medlink/pkg/pagination"
)

type Handler struct {
	svc          *Service
	poll         *PollTracker
	pollInterval int // seconds, returned to the inbox UI
}

func NewHandler(svc *Service, poll *PollTracker, pollIntervalSeconds int) *Handler {
	return &Handler{svc: svc, poll: poll, pollInterval: pollIntervalSeconds}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.POST("/data-requests", h.CreateDataRequest, auth.RequireRole(auth.RoleDoctor))
	api.GET("/data-requests", h.ListDataRequests, auth.RequireRole(auth.RolePatient))
	api.POST("/data-requests/:id/approve", h.ApproveDataRequest, auth.RequireRole(auth.RolePatient))
	api.POST("/data-requests/:id/deny", h.DenyDataRequest, auth.RequireRole(auth.RolePatient))
	api.GET("/patients/:id/fields/:field", h.GetPatientField)
}

func httpError(err error) *echo.HTTPError {
	switch {
	case errors.Is(err, ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, ErrForbidden):
		return echo.NewHTTPError(http.StatusForbidden, err.Error())
	case errors.Is(err, ErrConflict):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case errors.Is(err, ErrInvalidField):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
}

type createDataRequestInput struct {
	ReportID  uuid.UUID `json:"report_id"`
	PatientID string    `json:"patient_id"`
	Field     string    `json:"field"`
}

type dataRequestResponse struct {
	Request        *DataRequest `json:"request"`
	AlreadyExisted bool         `json:"already_existed"`
}

func (h *Handler) CreateDataRequest(c echo.Context) error {
	var in createDataRequestInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	doctorID := auth.UserIDFromContext(c.Request().Context())

	dr, existed, err := h.svc.CreateDataRequest(c.Request().Context(), in.ReportID, doctorID, in.PatientID, in.Field)
	if err != nil {
		if errors.Is(err, ErrInvalidField) {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	status := http.StatusCreated
	if existed {
		status = http.StatusOK
	}
	return c.JSON(status, dataRequestResponse{Request: dr, AlreadyExisted: existed})
}

func (h *Handler) ListDataRequests(c echo.Context) error {
	ctx := c.Request().Context()
	patientID := auth.UserIDFromContext(ctx)
	pg := pagination.FromContext(c)

	items, total, err := h.svc.ListRequestsForPatient(ctx, patientID, pg.Limit, pg.Offset)
	if err != nil {
		return httpError(err)
	}

	pending, err := h.svc.CountPendingForPatient(ctx, patientID)
	if err != nil {
		return httpError(err)
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"data":          items,
		"total":         total,
		"limit":         pg.Limit,
		"offset":        pg.Offset,
		"pending":       pending,
		"new_requests":  h.poll.Check(patientID, pending),
		"poll_interval": h.pollInterval,
	})
}

func (h *Handler) ApproveDataRequest(c echo.Context) error {
	return h.resolve(c, true)
}

func (h *Handler) DenyDataRequest(c echo.Context) error {
	return h.resolve(c, false)
}

func (h *Handler) resolve(c echo.Context, approve bool) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	patientID := auth.UserIDFromContext(c.Request().Context())

	dr, err := h.svc.ResolveRequest(c.Request().Context(), id, patientID, approve)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, dr)
}

func (h *Handler) GetPatientField(c echo.Context) error {
	ctx := c.Request().Context()
	patientID := c.Param("id")
	field := c.Param("field")
	callerID := auth.UserIDFromContext(ctx)
	callerRole := auth.RoleFromContext(ctx)

	value, err := h.svc.FieldValue(ctx, callerID, callerRole, patientID, field)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"field": field,
		"value": value,
	})
}
