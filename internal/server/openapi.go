package server

import (
	"encoding/json"
	"net/http"

	openapi "github.com/swaggest/openapi-go"
	"github.com/swaggest/openapi-go/openapi3"

	"github.com/playperu/destinations/internal/store"
)

// ErrorResponse is returned for all error responses.
type ErrorResponse struct {
	Error string `json:"error"`
}

func newOpenAPISpec() *openapi3.Spec {
	r := openapi3.NewReflector()
	r.Spec.Info.Title = "Destinations API"
	r.Spec.Info.Version = "0.1.0"
	r.Spec.Info.WithDescription("Local API over the places catalog and the user's selection.")

	// GET /api/state
	getState, _ := r.NewOperationContext(http.MethodGet, "/api/state")
	getState.SetSummary("Current state")
	getState.SetDescription("Returns catalog, selection, loading flags, errors and the removal dialog state.")
	getState.AddRespStructure(store.State{}, openapi.WithHTTPStatus(http.StatusOK))
	_ = r.AddOperation(getState)

	// GET /api/events
	getEvents, _ := r.NewOperationContext(http.MethodGet, "/api/events")
	getEvents.SetSummary("SSE change stream")
	getEvents.SetDescription("Server-Sent Events stream. The first event is a snapshot, then one event per committed change.")
	getEvents.AddRespStructure(nil, openapi.WithHTTPStatus(http.StatusOK),
		openapi.WithContentType("text/event-stream"))
	_ = r.AddOperation(getEvents)

	// GET /ws/state
	getWS, _ := r.NewOperationContext(http.MethodGet, "/ws/state")
	getWS.SetSummary("WebSocket change stream")
	getWS.SetDescription("Upgrades to a WebSocket carrying the same JSON change messages as /api/events.")
	getWS.AddRespStructure(nil, openapi.WithHTTPStatus(http.StatusSwitchingProtocols),
		openapi.WithContentType("text/plain"))
	_ = r.AddOperation(getWS)

	// POST /api/catalog/reload
	reload, _ := r.NewOperationContext(http.MethodPost, "/api/catalog/reload")
	reload.SetSummary("Reload catalog")
	reload.SetDescription("Fetches the catalog again and re-sorts it by distance. Failures are reported in catalogError.")
	reload.AddRespStructure(store.State{}, openapi.WithHTTPStatus(http.StatusOK))
	_ = r.AddOperation(reload)

	// POST /api/selection
	pick, _ := r.NewOperationContext(http.MethodPost, "/api/selection")
	pick.SetSummary("Pick place")
	pick.SetDescription("Adds a catalog place to the front of the selection. Picking a selected place is a no-op.")
	pick.AddReqStructure(PickRequest{})
	pick.AddRespStructure(store.State{}, openapi.WithHTTPStatus(http.StatusOK))
	pick.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusBadRequest))
	pick.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	pick.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusConflict))
	pick.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusBadGateway))
	_ = r.AddOperation(pick)

	// POST /api/selection/reload
	reloadSelection, _ := r.NewOperationContext(http.MethodPost, "/api/selection/reload")
	reloadSelection.SetSummary("Reload selection")
	reloadSelection.SetDescription("Fetches the stored selection again. Picks and removals are refused with 409 until one fetch succeeds.")
	reloadSelection.AddRespStructure(store.State{}, openapi.WithHTTPStatus(http.StatusOK))
	_ = r.AddOperation(reloadSelection)

	// GET /api/selection.csv
	export, _ := r.NewOperationContext(http.MethodGet, "/api/selection.csv")
	export.SetSummary("Export selection")
	export.SetDescription("CSV export of the current selection with distances from the user's position.")
	export.AddRespStructure(nil, openapi.WithHTTPStatus(http.StatusOK),
		openapi.WithContentType("text/csv"))
	_ = r.AddOperation(export)

	// POST /api/selection/{id}/removal
	requestRemoval, _ := r.NewOperationContext(http.MethodPost, "/api/selection/{id}/removal")
	requestRemoval.SetSummary("Request removal")
	requestRemoval.SetDescription("Marks a selected place for removal and opens the confirmation dialog.")
	requestRemoval.AddReqStructure(RemovalRequest{})
	requestRemoval.AddRespStructure(store.State{}, openapi.WithHTTPStatus(http.StatusOK))
	requestRemoval.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	_ = r.AddOperation(requestRemoval)

	// DELETE /api/removal
	cancelRemoval, _ := r.NewOperationContext(http.MethodDelete, "/api/removal")
	cancelRemoval.SetSummary("Cancel removal")
	cancelRemoval.SetDescription("Closes the confirmation dialog without removing anything.")
	cancelRemoval.AddRespStructure(store.State{}, openapi.WithHTTPStatus(http.StatusOK))
	_ = r.AddOperation(cancelRemoval)

	// POST /api/removal/confirm
	confirmRemoval, _ := r.NewOperationContext(http.MethodPost, "/api/removal/confirm")
	confirmRemoval.SetSummary("Confirm removal")
	confirmRemoval.SetDescription("Removes the pending place. On backend failure the selection is rolled back.")
	confirmRemoval.AddRespStructure(store.State{}, openapi.WithHTTPStatus(http.StatusOK))
	confirmRemoval.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusConflict))
	confirmRemoval.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusBadGateway))
	_ = r.AddOperation(confirmRemoval)

	// DELETE /api/error
	dismiss, _ := r.NewOperationContext(http.MethodDelete, "/api/error")
	dismiss.SetSummary("Dismiss error")
	dismiss.SetDescription("Clears the persist error. The failed update is not retried.")
	dismiss.AddRespStructure(store.State{}, openapi.WithHTTPStatus(http.StatusOK))
	_ = r.AddOperation(dismiss)

	// GET /healthz
	getHealthz, _ := r.NewOperationContext(http.MethodGet, "/healthz")
	getHealthz.SetSummary("Health check")
	getHealthz.SetDescription("Reports whether the places backend is reachable.")
	getHealthz.AddRespStructure(map[string]HealthStatus{}, openapi.WithHTTPStatus(http.StatusOK))
	getHealthz.AddRespStructure(map[string]HealthStatus{}, openapi.WithHTTPStatus(http.StatusServiceUnavailable))
	_ = r.AddOperation(getHealthz)

	return r.Spec
}

// HealthStatus documents one entry of the /healthz response.
type HealthStatus struct {
	Status string `json:"status"`
}

func handleOpenAPI() http.HandlerFunc {
	spec := newOpenAPISpec()
	data, _ := json.MarshalIndent(spec, "", "  ")

	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(data)
	}
}
