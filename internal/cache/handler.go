package cache

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

// RegisterRoutes exposes read-only access to the cached records. The
// import pipeline is the only writer, so there are no mutating routes.
func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group("/records", auth.RequireRole("operator", "viewer"))
	g.GET("/allergies", h.ListAllergies)
	g.GET("/allergies/:facility/:localId", h.GetAllergy)
	g.GET("/issues", h.ListIssues)
	g.GET("/notes", h.ListNotes)
	g.GET("/notes/:facility/:localId", h.GetNote)
	g.GET("/preventions", h.ListPreventions)
	g.GET("/preventions/:facility/:localId", h.GetPrevention)
	g.GET("/forms", h.ListForms)
	g.GET("/forms/:facility/:localId", h.GetForm)
	g.GET("/providers", h.ListProviders)
	g.GET("/providers/:facility/:localId", h.GetProvider)
	g.GET("/measurement-types", h.ListMeasurementTypes)
	g.GET("/measurement-types/:facility/:localId", h.GetMeasurementType)
}

func facilityParam(c echo.Context, name string) (identity.FacilityID, error) {
	id, err := strconv.Atoi(c.Param(name))
	if err != nil || id <= 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "invalid facility id")
	}
	return identity.FacilityID(id), nil
}

func facilityQuery(c echo.Context) (identity.FacilityID, error) {
	id, err := strconv.Atoi(c.QueryParam("facility"))
	if err != nil || id <= 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "facility query parameter is required")
	}
	return identity.FacilityID(id), nil
}

func patientQuery(c echo.Context) (*int, error) {
	raw := c.QueryParam("patient")
	if raw == "" {
		return nil, nil
	}
	p, err := strconv.Atoi(raw)
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "invalid patient id")
	}
	return &p, nil
}

func recordKeyParams(c echo.Context) (identity.RecordKey, error) {
	facility, err := facilityParam(c, "facility")
	if err != nil {
		return identity.RecordKey{}, err
	}
	localID, err := strconv.Atoi(c.Param("localId"))
	if err != nil {
		return identity.RecordKey{}, echo.NewHTTPError(http.StatusBadRequest, "invalid local id")
	}
	key, err := identity.NewRecordKey(facility, localID)
	if err != nil {
		return identity.RecordKey{}, echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return key, nil
}

func stringKeyParams(c echo.Context) (identity.StringKey, error) {
	facility, err := facilityParam(c, "facility")
	if err != nil {
		return identity.StringKey{}, err
	}
	key, err := identity.NewStringKey(facility, c.Param("localId"))
	if err != nil {
		return identity.StringKey{}, echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return key, nil
}

func respondGet(c echo.Context, rec any, err error) error {
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "record not found")
		}
		if errors.Is(err, identity.ErrInvalidFacilityID) {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, rec)
}

func respondList(c echo.Context, items any, total int, pg pagination.Params, err error) error {
	if err != nil {
		if errors.Is(err, identity.ErrInvalidFacilityID) {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) GetAllergy(c echo.Context) error {
	key, err := recordKeyParams(c)
	if err != nil {
		return err
	}
	rec, err := h.svc.GetAllergy(c.Request().Context(), key)
	return respondGet(c, rec, err)
}

func (h *Handler) ListAllergies(c echo.Context) error {
	facility, err := facilityQuery(c)
	if err != nil {
		return err
	}
	patient, err := patientQuery(c)
	if err != nil {
		return err
	}
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListAllergies(c.Request().Context(), facility, patient, pg.Limit, pg.Offset)
	return respondList(c, items, total, pg, err)
}

func (h *Handler) ListIssues(c echo.Context) error {
	facility, err := facilityQuery(c)
	if err != nil {
		return err
	}
	patient, err := patientQuery(c)
	if err != nil {
		return err
	}
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListIssues(c.Request().Context(), facility, patient, pg.Limit, pg.Offset)
	return respondList(c, items, total, pg, err)
}

func (h *Handler) GetNote(c echo.Context) error {
	key, err := stringKeyParams(c)
	if err != nil {
		return err
	}
	rec, err := h.svc.GetNote(c.Request().Context(), key)
	return respondGet(c, rec, err)
}

func (h *Handler) ListNotes(c echo.Context) error {
	facility, err := facilityQuery(c)
	if err != nil {
		return err
	}
	patient, err := patientQuery(c)
	if err != nil {
		return err
	}
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListNotes(c.Request().Context(), facility, patient, pg.Limit, pg.Offset)
	return respondList(c, items, total, pg, err)
}

func (h *Handler) GetPrevention(c echo.Context) error {
	key, err := recordKeyParams(c)
	if err != nil {
		return err
	}
	rec, err := h.svc.GetPrevention(c.Request().Context(), key)
	return respondGet(c, rec, err)
}

func (h *Handler) ListPreventions(c echo.Context) error {
	facility, err := facilityQuery(c)
	if err != nil {
		return err
	}
	patient, err := patientQuery(c)
	if err != nil {
		return err
	}
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListPreventions(c.Request().Context(), facility, patient, pg.Limit, pg.Offset)
	return respondList(c, items, total, pg, err)
}

func (h *Handler) GetForm(c echo.Context) error {
	key, err := recordKeyParams(c)
	if err != nil {
		return err
	}
	rec, err := h.svc.GetForm(c.Request().Context(), key)
	return respondGet(c, rec, err)
}

func (h *Handler) ListForms(c echo.Context) error {
	facility, err := facilityQuery(c)
	if err != nil {
		return err
	}
	patient, err := patientQuery(c)
	if err != nil {
		return err
	}
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListForms(c.Request().Context(), facility, patient, pg.Limit, pg.Offset)
	return respondList(c, items, total, pg, err)
}

func (h *Handler) GetProvider(c echo.Context) error {
	key, err := stringKeyParams(c)
	if err != nil {
		return err
	}
	rec, err := h.svc.GetProvider(c.Request().Context(), key)
	return respondGet(c, rec, err)
}

func (h *Handler) ListProviders(c echo.Context) error {
	facility, err := facilityQuery(c)
	if err != nil {
		return err
	}
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListProviders(c.Request().Context(), facility, pg.Limit, pg.Offset)
	return respondList(c, items, total, pg, err)
}

func (h *Handler) GetMeasurementType(c echo.Context) error {
	key, err := recordKeyParams(c)
	if err != nil {
		return err
	}
	rec, err := h.svc.GetMeasurementType(c.Request().Context(), key)
	return respondGet(c, rec, err)
}

func (h *Handler) ListMeasurementTypes(c echo.Context) error {
	facility, err := facilityQuery(c)
	if err != nil {
		return err
	}
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListMeasurementTypes(c.Request().Context(), facility, pg.Limit, pg.Offset)
	return respondList(c, items, total, pg, err)
}
