package importer

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/open-osp/integrator/internal/identity"
	"github.com/open-osp/integrator/internal/ledger"
	"github.com/open-osp/integrator/internal/platform/auth"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group("", auth.RequireRole("operator"))
	g.POST("/imports", h.SubmitBatch)
}

type submitPayload struct {
	FacilityID    int        `json:"facility_id"`
	Filename      string     `json:"filename"`
	DependsOn     *string    `json:"depends_on,omitempty"`
	IntervalStart *time.Time `json:"interval_start,omitempty"`
	IntervalEnd   *time.Time `json:"interval_end,omitempty"`
	// Content is base64 in the JSON body.
	Content []byte `json:"content"`
}

func (h *Handler) SubmitBatch(c echo.Context) error {
	var p submitPayload
	if err := c.Bind(&p); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	res, err := h.svc.Submit(c.Request().Context(), SubmitRequest{
		FacilityID:    identity.FacilityID(p.FacilityID),
		Filename:      p.Filename,
		DependsOn:     p.DependsOn,
		IntervalStart: p.IntervalStart,
		IntervalEnd:   p.IntervalEnd,
		Content:       p.Content,
	})
	if err != nil {
		switch {
		case errors.Is(err, ledger.ErrCyclicDependency):
			return echo.NewHTTPError(http.StatusConflict, err.Error())
		case errors.Is(err, identity.ErrInvalidFacilityID):
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		default:
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
	}
	if res.AlreadyImported {
		return c.JSON(http.StatusOK, res)
	}
	return c.JSON(http.StatusAccepted, res)
}
