package messaging

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

// RegisterRoutes wires the message routes. DELETE archives: messages
// are soft-deleted only.
func (h *Handler) RegisterRoutes(api *echo.Group) {
	readGroup := api.Group("", auth.RequireRole("operator", "viewer"))
	readGroup.GET("/messages", h.Inbox)
	readGroup.GET("/messages/:id", h.GetMessage)

	writeGroup := api.Group("", auth.RequireRole("operator"))
	writeGroup.POST("/messages", h.SendMessage)
	writeGroup.DELETE("/messages/:id", h.ArchiveMessage)
	writeGroup.POST("/messages/:id/archive", h.ArchiveMessage)
	writeGroup.POST("/messages/:id/restore", h.RestoreMessage)
}

func messageIDParam(c echo.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, echo.NewHTTPError(http.StatusBadRequest, "invalid message id")
	}
	return id, nil
}

type sendPayload struct {
	SourceFacility   int    `json:"source_facility"`
	SourceProviderNo string `json:"source_provider_no"`
	DestFacility     int    `json:"dest_facility"`
	DestProviderNo   string `json:"dest_provider_no"`
	Type             string `json:"type"`
	Subject          string `json:"subject"`
	Body             string `json:"body"`
}

func (h *Handler) SendMessage(c echo.Context) error {
	var p sendPayload
	if err := c.Bind(&p); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	m := &Message{
		SourceFacility:   identity.FacilityID(p.SourceFacility),
		SourceProviderNo: p.SourceProviderNo,
		DestFacility:     identity.FacilityID(p.DestFacility),
		DestProviderNo:   p.DestProviderNo,
		Type:             p.Type,
		Subject:          p.Subject,
		Body:             p.Body,
	}
	if err := h.svc.Send(c.Request().Context(), m); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, m)
}

func (h *Handler) GetMessage(c echo.Context) error {
	id, err := messageIDParam(c)
	if err != nil {
		return err
	}
	m, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "message not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, m)
}

func (h *Handler) Inbox(c echo.Context) error {
	facilityRaw, err := strconv.Atoi(c.QueryParam("facility"))
	if err != nil || facilityRaw <= 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "facility query parameter is required")
	}
	providerNo := c.QueryParam("provider")
	if providerNo == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "provider query parameter is required")
	}
	includeArchived := c.QueryParam("include_archived") == "true"

	pg := pagination.FromContext(c)
	items, total, err := h.svc.Inbox(c.Request().Context(),
		identity.FacilityID(facilityRaw), providerNo, includeArchived, pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) ArchiveMessage(c echo.Context) error {
	id, err := messageIDParam(c)
	if err != nil {
		return err
	}
	if err := h.svc.Archive(c.Request().Context(), id); err != nil {
		if errors.Is(err, ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "message not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) RestoreMessage(c echo.Context) error {
	id, err := messageIDParam(c)
	if err != nil {
		return err
	}
	if err := h.svc.Restore(c.Request().Context(), id); err != nil {
		if errors.Is(err, ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "message not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	m, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, m)
}
