package geolocation

import (
	"context"

	"github.com/playperu/destinations/internal/places"
)

// NoneLocator models a device where location permission was denied.
type NoneLocator struct{}

func init() {
	ctx := context.Background()
	if err := RegisterLocator(ctx, "none", NewNoneLocator); err != nil {
		panic(err)
	}
}

func NewNoneLocator(ctx context.Context, uri string) (Locator, error) {
	return &NoneLocator{}, nil
}

func (l *NoneLocator) Locate(ctx context.Context) (places.Coordinates, error) {
	return places.Coordinates{}, ErrUnavailable
}
