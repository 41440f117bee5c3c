// Package placestest provides an in-memory places backend for tests.
// User places are stored and returned in exactly the order they were submitted.
package placestest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/playperu/destinations/internal/places"
)

// Failure makes the next matching request answer with Status and an
// optional {"message": Message} body.
type Failure struct {
	Status  int
	Message string
}

type Backend struct {
	mu         sync.Mutex
	catalog    []places.Place
	userPlaces []places.Place
	failures   map[string][]Failure
	puts       [][]places.Place
	holds      map[string]chan struct{}
}

func NewBackend(catalog []places.Place) *Backend {
	return &Backend{
		catalog:  places.Clone(catalog),
		failures: make(map[string][]Failure),
		holds:    make(map[string]chan struct{}),
	}
}

// Start serves b on an httptest server closed at test cleanup.
func Start(t *testing.T, b *Backend) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(b.Routes())
	t.Cleanup(srv.Close)
	return srv
}

func (b *Backend) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/places", b.handleGetPlaces)
	r.Get("/user-places", b.handleGetUserPlaces)
	r.Put("/user-places", b.handlePutUserPlaces)
	return r
}

// Fail queues failures for route, e.g. "PUT /user-places". They are consumed
// one per request, in order.
func (b *Backend) Fail(route string, f ...Failure) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures[route] = append(b.failures[route], f...)
}

// SetUserPlaces replaces the stored selection without recording a PUT.
func (b *Backend) SetUserPlaces(list []places.Place) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.userPlaces = places.Clone(list)
}

func (b *Backend) UserPlaces() []places.Place {
	b.mu.Lock()
	defer b.mu.Unlock()
	return places.Clone(b.userPlaces)
}

// Puts returns every PUT body received, in arrival order, including failed ones.
func (b *Backend) Puts() [][]places.Place {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([][]places.Place, len(b.puts))
	for i, p := range b.puts {
		out[i] = places.Clone(p)
	}
	return out
}

// Hold blocks PUT handlers until the returned release func is called.
func (b *Backend) Hold() (release func()) {
	return b.HoldRoute("PUT /user-places")
}

// HoldRoute blocks requests to route, e.g. "GET /user-places", until the
// returned release func is called.
func (b *Backend) HoldRoute(route string) (release func()) {
	ch := make(chan struct{})
	b.mu.Lock()
	b.holds[route] = ch
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.holds, route)
			b.mu.Unlock()
			close(ch)
		})
	}
}

// wait blocks while route is held. It reports false if the client went away.
func (b *Backend) wait(r *http.Request, route string) bool {
	b.mu.Lock()
	hold := b.holds[route]
	b.mu.Unlock()

	if hold == nil {
		return true
	}
	select {
	case <-hold:
		return true
	case <-r.Context().Done():
		return false
	}
}

func (b *Backend) nextFailure(route string) (Failure, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	queue := b.failures[route]
	if len(queue) == 0 {
		return Failure{}, false
	}
	b.failures[route] = queue[1:]
	return queue[0], true
}

func (b *Backend) handleGetPlaces(w http.ResponseWriter, r *http.Request) {
	if !b.wait(r, "GET /places") {
		return
	}
	if f, ok := b.nextFailure("GET /places"); ok {
		writeFailure(w, f)
		return
	}
	b.mu.Lock()
	list := places.Clone(b.catalog)
	b.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]any{"places": list})
}

func (b *Backend) handleGetUserPlaces(w http.ResponseWriter, r *http.Request) {
	if !b.wait(r, "GET /user-places") {
		return
	}
	if f, ok := b.nextFailure("GET /user-places"); ok {
		writeFailure(w, f)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"places": b.UserPlaces()})
}

func (b *Backend) handlePutUserPlaces(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Places []places.Place `json:"places"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Places == nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "Places are required."})
		return
	}

	b.mu.Lock()
	b.puts = append(b.puts, places.Clone(body.Places))
	b.mu.Unlock()

	if !b.wait(r, "PUT /user-places") {
		return
	}

	if f, ok := b.nextFailure("PUT /user-places"); ok {
		writeFailure(w, f)
		return
	}

	b.SetUserPlaces(body.Places)
	writeJSON(w, http.StatusOK, map[string]string{"message": "User places updated!"})
}

func writeFailure(w http.ResponseWriter, f Failure) {
	if f.Message == "" {
		w.WriteHeader(f.Status)
		return
	}
	writeJSON(w, f.Status, map[string]string{"message": f.Message})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// Catalog returns a small fixture catalog around Lima.
func Catalog() []places.Place {
	return []places.Place{
		{ID: "p1", Name: "Cusco Main Square", Image: "cusco.jpg", Description: "Plaza de Armas.", Lat: -13.5167, Lng: -71.9781},
		{ID: "p2", Name: "Miraflores Boardwalk", Image: "miraflores.jpg", Description: "Cliffs over the Pacific.", Lat: -12.1211, Lng: -77.0297},
		{ID: "p3", Name: "Huacachina Oasis", Image: "huacachina.jpg", Description: "Desert lagoon.", Lat: -14.0875, Lng: -75.7626},
		{ID: "p4", Name: "Lake Titicaca", Image: "titicaca.jpg", Description: "Floating islands.", Lat: -15.8402, Lng: -69.3396},
	}
}
