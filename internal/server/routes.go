package server

import (
	"log/slog"
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"
	"github.com/swaggest/swgui/v5emb"

	"github.com/playperu/destinations/internal/app"
)

func addRoutes(r chi.Router, logger *slog.Logger, a *app.App, spaDir string) {
	r.Get("/openapi.json", handleOpenAPI())
	r.Mount("/docs", v5emb.New("Destinations API", "/openapi.json", "/docs"))
	r.Get("/ws/state", handleWSState(logger, a.Store))

	r.Route("/api", func(r chi.Router) {
		r.Get("/state", handleState(a))
		r.Get("/events", handleEvents(a.Store))
		r.Post("/catalog/reload", handleCatalogReload(a))

		r.Post("/selection", handlePick(a))
		r.Post("/selection/reload", handleSelectionReload(a))
		r.Get("/selection.csv", handleSelectionCSV(a))
		r.Post("/selection/{id}/removal", handleRequestRemoval(a))

		r.Delete("/removal", handleCancelRemoval(a))
		r.Post("/removal/confirm", handleConfirmRemoval(a))

		r.Delete("/error", handleDismissError(a))
	})

	notFound := http.HandlerFunc(handleNotFound)
	if spaDir != "" {
		if info, err := os.Stat(spaDir); err == nil && info.IsDir() {
			logger.Info("serving SPA", "dir", spaDir)
			notFound = handleSPA(spaDir)
		}
	}
	r.NotFound(notFound)
	r.MethodNotAllowed(handleMethodNotAllowed)
}
