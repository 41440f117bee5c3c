package geolocation

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/playperu/destinations/internal/places"
)

// FixedLocator always reports the same position. URI form: fixed://?lat=-12.04&lng=-77.04
type FixedLocator struct {
	coords places.Coordinates
}

func init() {
	ctx := context.Background()
	if err := RegisterLocator(ctx, "fixed", NewFixedLocator); err != nil {
		panic(err)
	}
}

func NewFixedLocator(ctx context.Context, uri string) (Locator, error) {
	u, err := url.Parse(uri)
	if err != nil {
		return nil, err
	}

	q := u.Query()

	lat, err := strconv.ParseFloat(q.Get("lat"), 64)
	if err != nil {
		return nil, fmt.Errorf("invalid lat parameter: %w", err)
	}

	lng, err := strconv.ParseFloat(q.Get("lng"), 64)
	if err != nil {
		return nil, fmt.Errorf("invalid lng parameter: %w", err)
	}

	c := places.Coordinates{Latitude: lat, Longitude: lng}
	if err := validate(c); err != nil {
		return nil, err
	}
	return &FixedLocator{coords: c}, nil
}

func (l *FixedLocator) Locate(ctx context.Context) (places.Coordinates, error) {
	if err := ctx.Err(); err != nil {
		return places.Coordinates{}, err
	}
	return l.coords, nil
}
