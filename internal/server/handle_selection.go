package server

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/playperu/destinations/internal/api"
	"github.com/playperu/destinations/internal/app"
	"github.com/playperu/destinations/internal/places"
	"github.com/playperu/destinations/internal/selection"
)

type PickRequest struct {
	ID string `json:"id"`
}

type RemovalRequest struct {
	ID string `path:"id"`
}

// Writes run detached from the request context: a client that goes away
// must not turn a PUT the backend may already have applied into a rollback.

func handlePick(a *app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req PickRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		req.ID = strings.TrimSpace(req.ID)
		if req.ID == "" {
			writeError(w, http.StatusBadRequest, "id is required")
			return
		}

		_, err := a.Pick(context.WithoutCancel(r.Context()), req.ID)
		switch {
		case errors.Is(err, app.ErrUnknownPlace):
			writeError(w, http.StatusNotFound, "place not found")
			return
		case errors.Is(err, selection.ErrNotLoaded):
			writeError(w, http.StatusConflict, "selection not loaded yet")
			return
		case err != nil:
			writePersistError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, a.Store.Snapshot())
	}
}

// handleSelectionReload reads the stored selection again, e.g. after the
// initial fetch failed. Failures are part of the state.
func handleSelectionReload(a *app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		a.Selection.Load(context.WithoutCancel(r.Context()))
		writeJSON(w, http.StatusOK, a.Store.Snapshot())
	}
}

func handleRequestRemoval(a *app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")

		err := a.RequestRemoval(id)
		if errors.Is(err, selection.ErrNotSelected) {
			writeError(w, http.StatusNotFound, "place not selected")
			return
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		writeJSON(w, http.StatusOK, a.Store.Snapshot())
	}
}

func handleCancelRemoval(a *app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		a.Selection.CancelRemoval()
		writeJSON(w, http.StatusOK, a.Store.Snapshot())
	}
}

func handleConfirmRemoval(a *app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		err := a.Selection.ConfirmRemoval(context.WithoutCancel(r.Context()))
		switch {
		case errors.Is(err, selection.ErrNoRemovalPending):
			writeError(w, http.StatusConflict, "no removal pending")
			return
		case errors.Is(err, selection.ErrNotSelected):
			writeError(w, http.StatusConflict, "place no longer selected")
			return
		case errors.Is(err, selection.ErrNotLoaded):
			writeError(w, http.StatusConflict, "selection not loaded yet")
			return
		case err != nil:
			writePersistError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, a.Store.Snapshot())
	}
}

func handleDismissError(a *app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		a.Selection.DismissError()
		writeJSON(w, http.StatusOK, a.Store.Snapshot())
	}
}

// writePersistError reports a failed backend write. The store has already
// been rolled back by the time this runs.
func writePersistError(w http.ResponseWriter, err error) {
	failure := places.Failure(places.PersistSelectionFailed, api.Reason(err))
	writeError(w, http.StatusBadGateway, failure.Message)
}
