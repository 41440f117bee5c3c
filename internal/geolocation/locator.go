// Package geolocation answers a single "where is the user?" query.
package geolocation

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/aaronland/go-roster"

	"github.com/playperu/destinations/internal/places"
)

// ErrUnavailable means the position cannot be obtained at all, e.g. permission denied.
var ErrUnavailable = errors.New("geolocation unavailable")

type Locator interface {
	Locate(ctx context.Context) (places.Coordinates, error)
}

// LocatorFunc adapts a function to Locator.
type LocatorFunc func(ctx context.Context) (places.Coordinates, error)

func (f LocatorFunc) Locate(ctx context.Context) (places.Coordinates, error) { return f(ctx) }

var locatorRoster roster.Roster

// LocatorInitializationFunc creates a Locator from a URI whose scheme it was registered under.
type LocatorInitializationFunc func(ctx context.Context, uri string) (Locator, error)

// RegisterLocator registers scheme as a key pointing to initFunc in the lookup
// table used by NewLocator.
func RegisterLocator(ctx context.Context, scheme string, initFunc LocatorInitializationFunc) error {
	if err := ensureLocatorRoster(); err != nil {
		return err
	}
	return locatorRoster.Register(ctx, scheme, initFunc)
}

func ensureLocatorRoster() error {
	if locatorRoster == nil {
		r, err := roster.NewDefaultRoster()
		if err != nil {
			return err
		}
		locatorRoster = r
	}
	return nil
}

// NewLocator returns the Locator configured by uri. The URI scheme selects a
// registered LocatorInitializationFunc.
func NewLocator(ctx context.Context, uri string) (Locator, error) {
	u, err := url.Parse(uri)
	if err != nil {
		return nil, fmt.Errorf("parsing locator uri: %w", err)
	}

	if err := ensureLocatorRoster(); err != nil {
		return nil, err
	}

	i, err := locatorRoster.Driver(ctx, u.Scheme)
	if err != nil {
		return nil, fmt.Errorf("unknown locator scheme %q: %w", u.Scheme, err)
	}

	initFunc := i.(LocatorInitializationFunc)
	return initFunc(ctx, uri)
}

// Schemes returns the registered schemes, e.g. "fixed://".
func Schemes() []string {
	ctx := context.Background()
	schemes := []string{}

	if err := ensureLocatorRoster(); err != nil {
		return schemes
	}

	for _, dr := range locatorRoster.Drivers(ctx) {
		schemes = append(schemes, fmt.Sprintf("%s://", strings.ToLower(dr)))
	}

	sort.Strings(schemes)
	return schemes
}

// LocateWithTimeout runs a single query against l, giving up after d.
// A zero d means no extra deadline.
func LocateWithTimeout(ctx context.Context, l Locator, d time.Duration) (places.Coordinates, error) {
	if d > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d)
		defer cancel()
	}

	type result struct {
		coords places.Coordinates
		err    error
	}
	ch := make(chan result, 1)
	go func() {
		c, err := l.Locate(ctx)
		ch <- result{c, err}
	}()

	select {
	case res := <-ch:
		if res.err != nil {
			return places.Coordinates{}, fmt.Errorf("locating: %w", res.err)
		}
		if err := validate(res.coords); err != nil {
			return places.Coordinates{}, err
		}
		return res.coords, nil
	case <-ctx.Done():
		return places.Coordinates{}, fmt.Errorf("locating: %w", ctx.Err())
	}
}

func validate(c places.Coordinates) error {
	if c.Latitude < -90 || c.Latitude > 90 || c.Longitude < -180 || c.Longitude > 180 {
		return fmt.Errorf("locating: coordinates out of range: %v,%v", c.Latitude, c.Longitude)
	}
	return nil
}
