package ledger

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

func setupHandler(t *testing.T) (*Handler, *mockEntryRepo, *echo.Echo) {
	t.Helper()
	repo := newMockEntryRepo()
	return NewHandler(NewService(repo)), repo, echo.New()
}

func TestRemoveEntry_AlwaysConflict(t *testing.T) {
	h, repo, e := setupHandler(t)

	entry, _, err := NewService(repo).Admit(context.Background(), newEntry(1, "a.zip", "sum-a"))
	if err != nil {
		t.Fatalf("Admit: %v", err)
	}

	req := httptest.NewRequest(http.MethodDelete, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(entry.ID.String())

	err = h.RemoveEntry(c)
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %v", err)
	}
	if len(repo.entries) != 1 {
		t.Error("entry must survive the delete attempt")
	}
}

func TestRemoveEntry_UnknownIDStillConflict(t *testing.T) {
	h, _, e := setupHandler(t)

	req := httptest.NewRequest(http.MethodDelete, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(uuid.NewString())

	err := h.RemoveEntry(c)
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %v", err)
	}
}

func TestGetEntry_NotFound(t *testing.T) {
	h, _, e := setupHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(uuid.NewString())

	err := h.GetEntry(c)
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %v", err)
	}
}

func TestListEntries_FiltersByStatus(t *testing.T) {
	h, repo, e := setupHandler(t)
	svc := NewService(repo)
	ctx := context.Background()

	a, _, err := svc.Admit(ctx, newEntry(1, "a.zip", "sum-a"))
	if err != nil {
		t.Fatal(err)
	}
	if _, _, err := svc.Admit(ctx, newEntry(1, "b.zip", "sum-b")); err != nil {
		t.Fatal(err)
	}
	if err := svc.MarkRunning(ctx, a.ID); err != nil {
		t.Fatal(err)
	}
	if err := svc.MarkCompleted(ctx, a.ID, ""); err != nil {
		t.Fatal(err)
	}

	req := httptest.NewRequest(http.MethodGet, "/?status=completed", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.ListEntries(c); err != nil {
		t.Fatalf("ListEntries: %v", err)
	}
	var resp struct {
		Total int `json:"total"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Total != 1 {
		t.Errorf("expected 1 completed entry, got %d", resp.Total)
	}
}

func TestListEntries_RejectsBadStatus(t *testing.T) {
	h, _, e := setupHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/?status=bogus", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	err := h.ListEntries(c)
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %v", err)
	}
}
