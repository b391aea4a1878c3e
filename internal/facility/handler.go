package facility

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/open-osp/integrator/internal/identity"
	"github.com/open-osp/integrator/internal/platform/auth"
	"github.com/open-osp/integrator/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	readGroup := api.Group("", auth.RequireRole("operator", "viewer"))
	readGroup.GET("/facilities", h.ListFacilities)
	readGroup.GET("/facilities/:id", h.GetFacility)

	writeGroup := api.Group("", auth.RequireRole("operator"))
	writeGroup.POST("/facilities", h.RegisterFacility)
	writeGroup.POST("/facilities/:id/disable", h.DisableFacility)
	writeGroup.POST("/facilities/:id/enable", h.EnableFacility)
}

func facilityIDParam(c echo.Context) (identity.FacilityID, error) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "invalid facility id")
	}
	return identity.FacilityID(id), nil
}

func (h *Handler) RegisterFacility(c echo.Context) error {
	var f Facility
	if err := c.Bind(&f); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.Register(c.Request().Context(), &f); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, f)
}

func (h *Handler) GetFacility(c echo.Context) error {
	id, err := facilityIDParam(c)
	if err != nil {
		return err
	}
	f, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "facility not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, f)
}

func (h *Handler) ListFacilities(c echo.Context) error {
	pg := pagination.FromContext(c)
	items, total, err := h.svc.List(c.Request().Context(), pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) DisableFacility(c echo.Context) error {
	return h.setDisabled(c, true)
}

func (h *Handler) EnableFacility(c echo.Context) error {
	return h.setDisabled(c, false)
}

func (h *Handler) setDisabled(c echo.Context, disabled bool) error {
	id, err := facilityIDParam(c)
	if err != nil {
		return err
	}
	ctx := c.Request().Context()
	var opErr error
	if disabled {
		opErr = h.svc.Disable(ctx, id)
	} else {
		opErr = h.svc.Enable(ctx, id)
	}
	if opErr != nil {
		if errors.Is(opErr, ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "facility not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, opErr.Error())
	}
	f, err := h.svc.Get(ctx, id)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, f)
}
