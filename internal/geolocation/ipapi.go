package geolocation

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/playperu/destinations/internal/places"
)

// IPAPILocator asks an IP geolocation service for the caller's position.
// URI form: ipapi://ip-api.com/json?insecure=1 (insecure selects plain http).
type IPAPILocator struct {
	endpoint string
	client   *http.Client
}

func init() {
	ctx := context.Background()
	if err := RegisterLocator(ctx, "ipapi", NewIPAPILocator); err != nil {
		panic(err)
	}
}

func NewIPAPILocator(ctx context.Context, uri string) (Locator, error) {
	u, err := url.Parse(uri)
	if err != nil {
		return nil, err
	}
	if u.Host == "" {
		return nil, fmt.Errorf("ipapi locator requires a host")
	}

	q := u.Query()
	scheme := "https"
	if q.Get("insecure") != "" {
		scheme = "http"
	}
	q.Del("insecure")

	endpoint := url.URL{
		Scheme:   scheme,
		Host:     u.Host,
		Path:     u.Path,
		RawQuery: q.Encode(),
	}
	return &IPAPILocator{endpoint: endpoint.String(), client: http.DefaultClient}, nil
}

// ipapiResponse covers both the ip-api.com ({status, lat, lon}) and the
// ipapi.co ({latitude, longitude}) shapes.
type ipapiResponse struct {
	Status    string   `json:"status"`
	Message   string   `json:"message"`
	Lat       *float64 `json:"lat"`
	Lon       *float64 `json:"lon"`
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
}

func (l *IPAPILocator) Locate(ctx context.Context) (places.Coordinates, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.endpoint, nil)
	if err != nil {
		return places.Coordinates{}, err
	}

	resp, err := l.client.Do(req)
	if err != nil {
		return places.Coordinates{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return places.Coordinates{}, fmt.Errorf("%s %d %s", l.endpoint, resp.StatusCode, resp.Status)
	}

	var body ipapiResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return places.Coordinates{}, fmt.Errorf("decoding ipapi response: %w", err)
	}

	if body.Status == "fail" {
		return places.Coordinates{}, fmt.Errorf("%w: %s", ErrUnavailable, body.Message)
	}

	switch {
	case body.Lat != nil && body.Lon != nil:
		return places.Coordinates{Latitude: *body.Lat, Longitude: *body.Lon}, nil
	case body.Latitude != nil && body.Longitude != nil:
		return places.Coordinates{Latitude: *body.Latitude, Longitude: *body.Longitude}, nil
	}
	return places.Coordinates{}, fmt.Errorf("%w: response has no coordinates", ErrUnavailable)
}
