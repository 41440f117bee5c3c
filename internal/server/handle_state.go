package server

import (
	"context"
	"net/http"

	"github.com/playperu/destinations/internal/app"
)

func handleState(a *app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, a.Store.Snapshot())
	}
}

// handleCatalogReload re-runs the catalog loader and returns the settled
// state. Fetch failures are part of the state, not the status code.
func handleCatalogReload(a *app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		a.Catalog.Load(context.WithoutCancel(r.Context()))
		writeJSON(w, http.StatusOK, a.Store.Snapshot())
	}
}
