package geolocation_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/playperu/destinations/internal/geolocation"
	"github.com/playperu/destinations/internal/places"
)

func TestSchemes(t *testing.T) {
	got := strings.Join(geolocation.Schemes(), " ")
	for _, want := range []string{"fixed://", "ipapi://", "none://"} {
		if !strings.Contains(got, want) {
			t.Errorf("schemes %q missing %q", got, want)
		}
	}
}

func TestNewLocator(t *testing.T) {
	tests := []struct {
		name    string
		uri     string
		wantErr bool
	}{
		{"fixed", "fixed://?lat=-12.0464&lng=-77.0428", false},
		{"fixed missing lng", "fixed://?lat=1", true},
		{"fixed out of range", "fixed://?lat=91&lng=0", true},
		{"none", "none://", false},
		{"ipapi", "ipapi://ip-api.com/json", false},
		{"ipapi without host", "ipapi://", true},
		{"unknown scheme", "gps://", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := geolocation.NewLocator(context.Background(), tt.uri)
			if (err != nil) != tt.wantErr {
				t.Errorf("NewLocator(%q) error = %v, wantErr %v", tt.uri, err, tt.wantErr)
			}
		})
	}
}

func TestFixedLocator(t *testing.T) {
	l, err := geolocation.NewLocator(context.Background(), "fixed://?lat=-12.0464&lng=-77.0428")
	if err != nil {
		t.Fatalf("NewLocator: %v", err)
	}

	got, err := geolocation.LocateWithTimeout(context.Background(), l, time.Second)
	if err != nil {
		t.Fatalf("Locate: %v", err)
	}
	want := places.Coordinates{Latitude: -12.0464, Longitude: -77.0428}
	if got != want {
		t.Errorf("got %+v, want %+v", got, want)
	}
}

func TestNoneLocator(t *testing.T) {
	l, err := geolocation.NewLocator(context.Background(), "none://")
	if err != nil {
		t.Fatalf("NewLocator: %v", err)
	}

	_, err = geolocation.LocateWithTimeout(context.Background(), l, time.Second)
	if !errors.Is(err, geolocation.ErrUnavailable) {
		t.Errorf("err = %v, want ErrUnavailable", err)
	}
}

func TestLocateWithTimeout(t *testing.T) {
	hang := geolocation.LocatorFunc(func(ctx context.Context) (places.Coordinates, error) {
		// Ignores ctx, like a permission prompt nobody answers.
		time.Sleep(time.Second)
		return places.Coordinates{}, nil
	})

	start := time.Now()
	_, err := geolocation.LocateWithTimeout(context.Background(), hang, 20*time.Millisecond)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("err = %v, want deadline exceeded", err)
	}
	if elapsed := time.Since(start); elapsed > 500*time.Millisecond {
		t.Errorf("timeout not honoured, took %v", elapsed)
	}
}

func TestLocateRejectsInvalidCoordinates(t *testing.T) {
	bad := geolocation.LocatorFunc(func(ctx context.Context) (places.Coordinates, error) {
		return places.Coordinates{Latitude: 200}, nil
	})
	if _, err := geolocation.LocateWithTimeout(context.Background(), bad, 0); err == nil {
		t.Error("expected error for latitude 200")
	}
}

func TestIPAPILocator(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		status  int
		want    places.Coordinates
		wantErr bool
	}{
		{"ip-api shape", `{"status":"success","lat":-12.05,"lon":-77.04}`, 200, places.Coordinates{Latitude: -12.05, Longitude: -77.04}, false},
		{"ipapi.co shape", `{"latitude":48.85,"longitude":2.35}`, 200, places.Coordinates{Latitude: 48.85, Longitude: 2.35}, false},
		{"fail status", `{"status":"fail","message":"reserved range"}`, 200, places.Coordinates{}, true},
		{"no coordinates", `{}`, 200, places.Coordinates{}, true},
		{"rate limited", ``, 429, places.Coordinates{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			host := strings.TrimPrefix(srv.URL, "http://")
			l, err := geolocation.NewLocator(context.Background(), "ipapi://"+host+"/json?insecure=1")
			if err != nil {
				t.Fatalf("NewLocator: %v", err)
			}

			got, err := geolocation.LocateWithTimeout(context.Background(), l, time.Second)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("got %+v, want %+v", got, tt.want)
			}
		})
	}
}
