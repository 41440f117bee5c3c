// Package app wires the catalog loader and the selection manager around a
// single store. It is the only writer of application state.
package app

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/playperu/destinations/internal/api"
	"github.com/playperu/destinations/internal/catalog"
	"github.com/playperu/destinations/internal/geolocation"
	"github.com/playperu/destinations/internal/places"
	"github.com/playperu/destinations/internal/selection"
	"github.com/playperu/destinations/internal/store"
)

var ErrUnknownPlace = errors.New("place not in catalog")

type App struct {
	Store     *store.Store
	Catalog   *catalog.Loader
	Selection *selection.Manager
	logger    *slog.Logger
}

func New(client *api.Client, locator geolocation.Locator, locateTimeout time.Duration, logger *slog.Logger) *App {
	st := store.New()
	return &App{
		Store:     st,
		Catalog:   catalog.NewLoader(client, locator, locateTimeout, st, logger),
		Selection: selection.NewManager(client, st, logger),
		logger:    logger,
	}
}

// Activate loads the catalog and the stored selection concurrently and
// returns once both have settled. Failures are recorded in the store, so
// neither load cancels the other.
func (a *App) Activate(ctx context.Context) {
	var g errgroup.Group

	g.Go(func() error {
		a.Catalog.Load(ctx)
		return nil
	})
	g.Go(func() error {
		a.Selection.Load(ctx)
		return nil
	})

	g.Wait()
	a.logger.Info("activated", "version", a.Store.Snapshot().Version)
}

// Pick adds the catalog place id to the selection.
func (a *App) Pick(ctx context.Context, id string) (bool, error) {
	p, ok := a.lookup(a.Store.Snapshot().Catalog, id)
	if !ok {
		return false, ErrUnknownPlace
	}
	return a.Selection.Add(ctx, p)
}

// RequestRemoval opens the confirmation dialog for the selected place id.
func (a *App) RequestRemoval(id string) error {
	p, ok := a.lookup(a.Selection.Selection(), id)
	if !ok {
		return selection.ErrNotSelected
	}
	return a.Selection.RequestRemoval(p)
}

func (a *App) lookup(list []places.Place, id string) (places.Place, bool) {
	i := places.IndexOf(list, id)
	if i < 0 {
		return places.Place{}, false
	}
	return list[i], true
}
