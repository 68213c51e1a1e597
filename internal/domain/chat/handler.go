package chat

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
	api.POST("/chats", h.CreateConversation, auth.RequireRole(auth.RolePatient))
	api.GET("/chats", h.ListConversations)
	api.GET("/chats/:id", h.GetConversation)
	api.DELETE("/chats/:id", h.DeleteConversation, auth.RequireRole(auth.RolePatient))
	api.POST("/chats/:id/archive", h.ArchiveConversation)
	api.POST("/chats/:id/messages", h.PostMessage)
}

func httpError(err error) *echo.HTTPError {
	switch {
	case errors.Is(err, ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, ErrForbidden):
		return echo.NewHTTPError(http.StatusForbidden, err.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
}

type createConversationInput struct {
	DoctorID    *string `json:"doctor_id,omitempty"`
	IsAnonymous bool    `json:"is_anonymous"`
	Message     string  `json:"message"`
}

func (h *Handler) CreateConversation(c echo.Context) error {
	var in createConversationInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	patientID := auth.UserIDFromContext(c.Request().Context())

	conv, err := h.svc.CreateConversation(c.Request().Context(), patientID, in.DoctorID, in.IsAnonymous, in.Message)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, conv)
}

func (h *Handler) ListConversations(c echo.Context) error {
	pg := pagination.FromContext(c)
	userID := auth.UserIDFromContext(c.Request().Context())

	items, total, err := h.svc.ListConversations(c.Request().Context(), userID, pg.Limit, pg.Offset)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) GetConversation(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	callerID := auth.UserIDFromContext(c.Request().Context())

	d, err := h.svc.GetConversation(c.Request().Context(), id, callerID)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, d)
}

type sendMessageInput struct {
	Content string `json:"content"`
}

func (h *Handler) PostMessage(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var in sendMessageInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	callerID := auth.UserIDFromContext(c.Request().Context())

	msg, err := h.svc.PostMessage(c.Request().Context(), id, callerID, in.Content)
	if err != nil {
		if errors.Is(err, ErrNotFound) || errors.Is(err, ErrForbidden) {
			return httpError(err)
		}
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, msg)
}

func (h *Handler) ArchiveConversation(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	callerID := auth.UserIDFromContext(c.Request().Context())

	if err := h.svc.ArchiveConversation(c.Request().Context(), id, callerID); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) DeleteConversation(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	callerID := auth.UserIDFromContext(c.Request().Context())

	if err := h.svc.DeleteConversation(c.Request().Context(), id, callerID); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}
