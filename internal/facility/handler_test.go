package facility

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/open-osp/integrator/internal/identity"
)

func setupHandler(t *testing.T) (*Handler, *Service, *echo.Echo) {
	t.Helper()
	svc := NewService(newMockFacilityRepo())
	return NewHandler(svc), svc, echo.New()
}

func TestRegisterFacility_Created(t *testing.T) {
	h, _, e := setupHandler(t)

	body := `{"facility_id": 7, "name": "North Clinic"}`
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.RegisterFacility(c); err != nil {
		t.Fatalf("RegisterFacility: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}
	var got Facility
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if got.FacilityID != 7 || got.Name != "North Clinic" {
		t.Errorf("unexpected facility: %+v", got)
	}
}

func TestRegisterFacility_MissingName(t *testing.T) {
	h, _, e := setupHandler(t)

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"facility_id": 7}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	err := h.RegisterFacility(c)
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %v", err)
	}
}

func TestGetFacility_NotFound(t *testing.T) {
	h, _, e := setupHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("99")

	err := h.GetFacility(c)
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %v", err)
	}
}

func TestDisableFacility_ReturnsUpdatedProfile(t *testing.T) {
	h, svc, e := setupHandler(t)

	f := &Facility{FacilityID: identity.FacilityID(3), Name: "East Clinic"}
	if err := svc.Register(context.Background(), f); err != nil {
		t.Fatalf("Register: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("3")

	if err := h.DisableFacility(c); err != nil {
		t.Fatalf("DisableFacility: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var got Facility
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatal(err)
	}
	if !got.Disabled {
		t.Error("profile not flagged disabled")
	}
	if got.Name != "East Clinic" {
		t.Error("disabling must not touch the profile")
	}
}

func TestFacilityIDParam_Invalid(t *testing.T) {
	h, _, e := setupHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("zero")

	err := h.GetFacility(c)
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %v", err)
	}
}
