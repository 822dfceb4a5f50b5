package reports

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
	read.GET("/cases/:caseId/reports", h.ListByCase)
	read.GET("/reports/:id", h.GetDetail)

	write := api.Group("", auth.RequireRole("physician"))
	write.POST("/cases/:caseId/reports", h.Create)
	write.POST("/reports/:id/status", h.ChangeStatus)
	write.POST("/reports/:id/finalize", h.Finalize)
	write.POST("/reports/:id/sections", h.AddSection)
	write.POST("/reports/:id/sections/generate", h.GenerateSections)
}

func (h *Handler) Create(c echo.Context) error {
	caseID, err := uuid.Parse(c.Param("caseId"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid case id")
	}
	var r Report
	if err := c.Bind(&r); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	r.CaseID = caseID
	if err := h.svc.CreateReport(c.Request().Context(), &r); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, r)
}

func (h *Handler) ListByCase(c echo.Context) error {
	caseID, err := uuid.Parse(c.Param("caseId"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid case id")
	}
	items, err := h.svc.ListByCase(c.Request().Context(), caseID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, items)
}

func (h *Handler) GetDetail(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	detail, err := h.svc.GetDetail(c.Request().Context(), id)
	if err != nil {
		return reportError(err)
	}
	return c.JSON(http.StatusOK, detail)
}

func (h *Handler) ChangeStatus(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var body struct {
		Status string `json:"status"`
	}
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	r, err := h.svc.ChangeStatus(c.Request().Context(), id, body.Status)
	if err != nil {
		return reportError(err)
	}
	return c.JSON(http.StatusOK, r)
}

func (h *Handler) Finalize(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	r, err := h.svc.Finalize(c.Request().Context(), id)
	if err != nil {
		return reportError(err)
	}
	return c.JSON(http.StatusOK, r)
}

func (h *Handler) AddSection(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var sec Section
	if err := c.Bind(&sec); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.AddSection(c.Request().Context(), id, &sec); err != nil {
		return reportError(err)
	}
	return c.JSON(http.StatusCreated, sec)
}

func (h *Handler) GenerateSections(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	sections, err := h.svc.GenerateSections(c.Request().Context(), id)
	if err != nil {
		return reportError(err)
	}
	return c.JSON(http.StatusOK, sections)
}

func reportError(err error) error {
	switch {
	case errors.Is(err, ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, ErrInvalidTransition):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	default:
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
}
