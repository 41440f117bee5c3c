package server

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/playperu/destinations/internal/api"
	"github.com/playperu/destinations/internal/app"
	"github.com/playperu/destinations/internal/geolocation"
	"github.com/playperu/destinations/internal/places"
	"github.com/playperu/destinations/internal/placestest"
	"github.com/playperu/destinations/internal/store"
)

func setupApp(t *testing.T, locatorURI string) (*app.App, *placestest.Backend, http.Handler) {
	t.Helper()
	return setupAppWith(t, locatorURI, placestest.NewBackend(placestest.Catalog()))
}

// setupAppWith activates an app against b, so failures queued on b apply
// to the initial loads.
func setupAppWith(t *testing.T, locatorURI string, b *placestest.Backend) (*app.App, *placestest.Backend, http.Handler) {
	t.Helper()

	srv := placestest.Start(t, b)

	locator, err := geolocation.NewLocator(context.Background(), locatorURI)
	if err != nil {
		t.Fatalf("locator: %v", err)
	}

	a := app.New(api.NewClient(srv.URL, 2*time.Second, slog.Default()), locator, time.Second, slog.Default())
	a.Activate(context.Background())

	s := New(":0", slog.Default(), a, "", nil)
	return a, b, s.Handler()
}

func do(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decodeState(t *testing.T, w *httptest.ResponseRecorder) store.State {
	t.Helper()
	var s store.State
	if err := json.NewDecoder(w.Body).Decode(&s); err != nil {
		t.Fatalf("decoding state: %v", err)
	}
	return s
}

func TestGetState(t *testing.T) {
	_, _, h := setupApp(t, "fixed://?lat=-12.0464&lng=-77.0428")

	w := do(t, h, http.MethodGet, "/api/state", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	s := decodeState(t, w)
	if len(s.Catalog) != 4 || s.Catalog[0].ID != "p2" {
		t.Errorf("catalog = %v, want sorted with p2 first", places.IDs(s.Catalog))
	}
	if s.Location == nil {
		t.Error("expected location")
	}
	if s.Selection == nil {
		t.Error("selection should encode as [] not null")
	}
}

func TestPick(t *testing.T) {
	_, b, h := setupApp(t, "none://")

	w := do(t, h, http.MethodPost, "/api/selection", PickRequest{ID: "p1"})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	s := decodeState(t, w)
	if len(s.Selection) != 1 || s.Selection[0].ID != "p1" {
		t.Errorf("selection = %v, want [p1]", places.IDs(s.Selection))
	}
	if s.PersistError != nil {
		t.Errorf("persist error = %+v", s.PersistError)
	}
	if got := places.IDs(b.UserPlaces()); len(got) != 1 || got[0] != "p1" {
		t.Errorf("backend = %v, want [p1]", got)
	}

	// Picking again is a no-op.
	w = do(t, h, http.MethodPost, "/api/selection", PickRequest{ID: "p1"})
	if w.Code != http.StatusOK {
		t.Fatalf("repeat pick: expected 200, got %d", w.Code)
	}
	if n := len(b.Puts()); n != 1 {
		t.Errorf("got %d PUTs, want 1", n)
	}
}

func TestPickErrors(t *testing.T) {
	_, _, h := setupApp(t, "none://")

	tests := []struct {
		name       string
		body       any
		wantStatus int
	}{
		{"unknown place", PickRequest{ID: "nope"}, http.StatusNotFound},
		{"missing id", PickRequest{}, http.StatusBadRequest},
		{"not json", "{{", http.StatusBadRequest},
		{"unknown field", `{"id":"p1","name":"Cusco"}`, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var w *httptest.ResponseRecorder
			if s, ok := tt.body.(string); ok {
				req := httptest.NewRequest(http.MethodPost, "/api/selection", bytes.NewBufferString(s))
				w = httptest.NewRecorder()
				h.ServeHTTP(w, req)
			} else {
				w = do(t, h, http.MethodPost, "/api/selection", tt.body)
			}
			if w.Code != tt.wantStatus {
				t.Errorf("expected %d, got %d: %s", tt.wantStatus, w.Code, w.Body.String())
			}
		})
	}
}

func TestPickBackendFailure(t *testing.T) {
	a, b, h := setupApp(t, "none://")
	b.Fail("PUT /user-places", placestest.Failure{Status: http.StatusInternalServerError})

	w := do(t, h, http.MethodPost, "/api/selection", PickRequest{ID: "p2"})
	if w.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", w.Code)
	}

	var resp ErrorResponse
	json.NewDecoder(w.Body).Decode(&resp)
	if resp.Error != places.MsgPersistSelectionFailed {
		t.Errorf("error = %q, want %q", resp.Error, places.MsgPersistSelectionFailed)
	}

	s := a.Store.Snapshot()
	if len(s.Selection) != 0 {
		t.Errorf("selection = %v, want rolled back to empty", places.IDs(s.Selection))
	}
	if s.PersistError == nil {
		t.Fatal("expected persist error in state")
	}

	w = do(t, h, http.MethodDelete, "/api/error", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("dismiss: expected 200, got %d", w.Code)
	}
	if s := decodeState(t, w); s.PersistError != nil {
		t.Errorf("persist error not dismissed: %+v", s.PersistError)
	}
}

func TestRemovalFlow(t *testing.T) {
	a, b, h := setupApp(t, "none://")
	ctx := context.Background()
	a.Pick(ctx, "p2")
	a.Pick(ctx, "p1")

	w := do(t, h, http.MethodPost, "/api/removal/confirm", nil)
	if w.Code != http.StatusConflict {
		t.Fatalf("confirm without request: expected 409, got %d", w.Code)
	}

	w = do(t, h, http.MethodPost, "/api/selection/p3/removal", nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("request removal of unselected: expected 404, got %d", w.Code)
	}

	w = do(t, h, http.MethodPost, "/api/selection/p1/removal", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("request removal: expected 200, got %d", w.Code)
	}
	s := decodeState(t, w)
	if !s.ConfirmOpen || s.RemovalTarget == nil || s.RemovalTarget.ID != "p1" {
		t.Fatalf("dialog not open for p1: %+v", s)
	}

	w = do(t, h, http.MethodDelete, "/api/removal", nil)
	if s := decodeState(t, w); s.ConfirmOpen {
		t.Error("cancel should close the dialog")
	}

	do(t, h, http.MethodPost, "/api/selection/p1/removal", nil)
	w = do(t, h, http.MethodPost, "/api/removal/confirm", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("confirm: expected 200, got %d: %s", w.Code, w.Body.String())
	}
	s = decodeState(t, w)
	if got := places.IDs(s.Selection); len(got) != 1 || got[0] != "p2" {
		t.Errorf("selection = %v, want [p2]", got)
	}
	if s.ConfirmOpen {
		t.Error("dialog should be closed after removal")
	}
	if got := places.IDs(b.UserPlaces()); len(got) != 1 || got[0] != "p2" {
		t.Errorf("backend = %v, want [p2]", got)
	}
}

func TestConfirmRemovalBackendFailure(t *testing.T) {
	a, b, h := setupApp(t, "none://")
	a.Pick(context.Background(), "p4")
	b.Fail("PUT /user-places", placestest.Failure{Status: http.StatusServiceUnavailable, Message: "Backend is read-only."})

	do(t, h, http.MethodPost, "/api/selection/p4/removal", nil)
	w := do(t, h, http.MethodPost, "/api/removal/confirm", nil)
	if w.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", w.Code)
	}

	var resp ErrorResponse
	json.NewDecoder(w.Body).Decode(&resp)
	if resp.Error != "Backend is read-only." {
		t.Errorf("error = %q", resp.Error)
	}
	if got := places.IDs(a.Store.Snapshot().Selection); len(got) != 1 || got[0] != "p4" {
		t.Errorf("selection = %v, want [p4] restored", got)
	}
}

func TestCatalogReload(t *testing.T) {
	a, b, h := setupApp(t, "none://")
	b.Fail("GET /places", placestest.Failure{Status: http.StatusInternalServerError})

	w := do(t, h, http.MethodPost, "/api/catalog/reload", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	s := decodeState(t, w)
	if s.CatalogError == nil || s.CatalogError.Message != places.MsgFetchCatalogFailed {
		t.Errorf("catalog error = %+v", s.CatalogError)
	}
	if len(s.Catalog) != 0 {
		t.Errorf("catalog = %v, want empty", places.IDs(s.Catalog))
	}

	do(t, h, http.MethodPost, "/api/catalog/reload", nil)
	if s := a.Store.Snapshot(); s.CatalogError != nil || len(s.Catalog) != 4 {
		t.Errorf("reload did not recover: error=%+v len=%d", s.CatalogError, len(s.Catalog))
	}
}

func TestCORSPreflight(t *testing.T) {
	_, _, h := setupApp(t, "none://")

	w := do(t, h, http.MethodOptions, "/api/selection", nil)
	if w.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", w.Code)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("allow-origin = %q", got)
	}
}

func TestPickBeforeSelectionLoaded(t *testing.T) {
	b := placestest.NewBackend(placestest.Catalog())
	b.SetUserPlaces([]places.Place{placestest.Catalog()[2]})
	b.Fail("GET /user-places", placestest.Failure{Status: http.StatusInternalServerError})
	_, _, h := setupAppWith(t, "none://", b)

	w := do(t, h, http.MethodPost, "/api/selection", PickRequest{ID: "p1"})
	if w.Code != http.StatusConflict {
		t.Fatalf("pick before load: expected 409, got %d", w.Code)
	}
	if n := len(b.Puts()); n != 0 {
		t.Fatalf("got %d PUTs, want 0", n)
	}

	w = do(t, h, http.MethodPost, "/api/selection/reload", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("reload: expected 200, got %d", w.Code)
	}
	s := decodeState(t, w)
	if s.SelectionError != nil {
		t.Errorf("selection error = %+v, want cleared", s.SelectionError)
	}

	w = do(t, h, http.MethodPost, "/api/selection", PickRequest{ID: "p1"})
	if w.Code != http.StatusOK {
		t.Fatalf("pick after reload: expected 200, got %d", w.Code)
	}
	if got := places.IDs(b.UserPlaces()); len(got) != 2 || got[0] != "p1" || got[1] != "p3" {
		t.Errorf("backend = %v, want [p1 p3]", got)
	}
}

func TestUnmatchedRoutes(t *testing.T) {
	_, _, h := setupApp(t, "none://")

	tests := []struct {
		method     string
		path       string
		wantStatus int
	}{
		{http.MethodGet, "/api/nope", http.StatusNotFound},
		{http.MethodGet, "/nope", http.StatusNotFound},
		{http.MethodGet, "/api/selection", http.StatusMethodNotAllowed},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			w := do(t, h, tt.method, tt.path, nil)
			if w.Code != tt.wantStatus {
				t.Fatalf("expected %d, got %d", tt.wantStatus, w.Code)
			}
			var resp ErrorResponse
			if err := json.NewDecoder(w.Body).Decode(&resp); err != nil || resp.Error == "" {
				t.Errorf("expected JSON error body, got %q", w.Body.String())
			}
		})
	}
}
