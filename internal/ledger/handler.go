package ledger

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/google/uuid"
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

// RegisterRoutes exposes the ledger. Batch submission lives with the
// importer; here the ledger can only be read. The DELETE route exists
// solely to refuse.
func (h *Handler) RegisterRoutes(api *echo.Group) {
	readGroup := api.Group("", auth.RequireRole("operator", "viewer"))
	readGroup.GET("/imports", h.ListEntries)
	readGroup.GET("/imports/:id", h.GetEntry)

	writeGroup := api.Group("", auth.RequireRole("operator"))
	writeGroup.DELETE("/imports/:id", h.RemoveEntry)
}

func entryIDParam(c echo.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, echo.NewHTTPError(http.StatusBadRequest, "invalid entry id")
	}
	return id, nil
}

func (h *Handler) GetEntry(c echo.Context) error {
	id, err := entryIDParam(c)
	if err != nil {
		return err
	}
	e, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "ledger entry not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, e)
}

func (h *Handler) ListEntries(c echo.Context) error {
	var filter ListFilter
	if raw := c.QueryParam("facility"); raw != "" {
		id, err := strconv.Atoi(raw)
		if err != nil || id <= 0 {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid facility id")
		}
		filter.Facility = identity.FacilityID(id)
	}
	if raw := c.QueryParam("status"); raw != "" {
		switch Status(raw) {
		case StatusPending, StatusRunning, StatusCompleted, StatusFailed:
			filter.Status = Status(raw)
		default:
			return echo.NewHTTPError(http.StatusBadRequest, "invalid status")
		}
	}
	pg := pagination.FromContext(c)
	items, total, err := h.svc.List(c.Request().Context(), filter, pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

// RemoveEntry always answers 409. Ledger entries are immutable history.
func (h *Handler) RemoveEntry(c echo.Context) error {
	id, err := entryIDParam(c)
	if err != nil {
		return err
	}
	if err := h.svc.Remove(c.Request().Context(), id); err != nil {
		if errors.Is(err, ErrImmutableLedger) {
			return echo.NewHTTPError(http.StatusConflict, ErrImmutableLedger.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}
