package patient

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/clinic/dashboard/internal/platform/auth"
	"github.com/clinic/dashboard/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	readGroup := api.Group("", auth.RequireRole(auth.ClinicalStaff...))
	readGroup.GET("/patients", h.ListPatients)
	readGroup.GET("/patients/:id", h.GetPatient)

	writeGroup := api.Group("", auth.RequireRole(auth.RoleRegistrar))
	writeGroup.DELETE("/patients/cache", h.ClearCache)
}

func (h *Handler) ListPatients(c echo.Context) error {
	refresh, _ := strconv.ParseBool(c.QueryParam("refresh"))
	pg := pagination.FromContext(c)

	all := h.svc.GetAll(c.Request().Context(), refresh)
	return c.JSON(http.StatusOK, pagination.NewResponse(pagination.Page(all, pg), len(all), pg.Limit, pg.Offset))
}

func (h *Handler) GetPatient(c echo.Context) error {
	id := c.Param("id")
	if id == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	rec := h.svc.GetByID(c.Request().Context(), id)
	if rec == nil {
		return echo.NewHTTPError(http.StatusNotFound, "patient not found")
	}
	return c.JSON(http.StatusOK, rec)
}

func (h *Handler) ClearCache(c echo.Context) error {
	h.svc.ClearCache(c.QueryParam("patient_id"))
	return c.NoContent(http.StatusNoContent)
}
