package qa

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/medicase/medicase/internal/platform/auth"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	read := api.Group("", auth.RequireRole("physician", "medical_assistant"))
	read.GET("/cases/:caseId/qa", h.Overview)

	// Workflow decisions are physician-only.
	write := api.Group("", auth.RequireRole("physician"))
	write.POST("/cases/:caseId/qa/advance", h.Advance)
	write.POST("/cases/:caseId/qa/reject", h.Reject)
	write.POST("/cases/:caseId/qa/issues", h.AddIssue)
	write.POST("/qa/issues/:id/resolve", h.ResolveIssue)
}

func (h *Handler) Overview(c echo.Context) error {
	caseID, err := uuid.Parse(c.Param("caseId"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid case id")
	}
	ov, err := h.svc.Overview(c.Request().Context(), caseID)
	if err != nil {
		return qaError(err)
	}
	return c.JSON(http.StatusOK, ov)
}

func (h *Handler) Advance(c echo.Context) error {
	caseID, err := uuid.Parse(c.Param("caseId"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid case id")
	}
	status, err := h.svc.Advance(c.Request().Context(), caseID)
	if err != nil {
		return qaError(err)
	}
	return c.JSON(http.StatusOK, status)
}

func (h *Handler) Reject(c echo.Context) error {
	caseID, err := uuid.Parse(c.Param("caseId"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid case id")
	}
	var body struct {
		Reason string `json:"reason"`
	}
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	status, err := h.svc.Reject(c.Request().Context(), caseID, body.Reason)
	if err != nil {
		return qaError(err)
	}
	return c.JSON(http.StatusOK, status)
}

func (h *Handler) AddIssue(c echo.Context) error {
	caseID, err := uuid.Parse(c.Param("caseId"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid case id")
	}
	var issue Issue
	if err := c.Bind(&issue); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.AddIssue(c.Request().Context(), caseID, &issue); err != nil {
		return qaError(err)
	}
	return c.JSON(http.StatusCreated, issue)
}

func (h *Handler) ResolveIssue(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid issue id")
	}
	issue, err := h.svc.ResolveIssue(c.Request().Context(), id)
	if err != nil {
		return qaError(err)
	}
	return c.JSON(http.StatusOK, issue)
}

func qaError(err error) error {
	switch {
	case errors.Is(err, ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, ErrStageBlocked), errors.Is(err, ErrTerminal):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	default:
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
}
