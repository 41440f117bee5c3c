// Package places defines the core domain types shared by the catalog loader,
// the selection manager and the local HTTP surface.
// It has no external dependencies.
package places

type Place struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Image       string  `json:"image"`
	Description string  `json:"description"`
	Lat         float64 `json:"lat"`
	Lng         float64 `json:"lng"`
}

func (p Place) Coordinates() Coordinates {
	return Coordinates{Latitude: p.Lat, Longitude: p.Lng}
}

// Coordinates is a WGS 84 position in degrees.
type Coordinates struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

type ErrorKind string

const (
	FetchCatalogFailed     ErrorKind = "fetch_catalog_failed"
	FetchSelectionFailed   ErrorKind = "fetch_selection_failed"
	PersistSelectionFailed ErrorKind = "persist_selection_failed"
	GeolocationFailed      ErrorKind = "geolocation_failed"
)

// Fallback messages used when the backend gives no reason.
const (
	MsgFetchCatalogFailed     = "Could not fetch places, please try again later."
	MsgFetchSelectionFailed   = "Failed to fetch user places."
	MsgPersistSelectionFailed = "Failed to update places."
	MsgGeolocationFailed      = "Could not determine your location."
)

// ErrorState is the user-facing error shown by the UI until dismissed.
type ErrorState struct {
	Kind    ErrorKind `json:"kind"`
	Message string    `json:"message"`
}

// Failure builds the ErrorState for kind, preferring reason over the
// fallback message when reason is non-empty.
func Failure(kind ErrorKind, reason string) *ErrorState {
	if reason == "" {
		reason = fallback[kind]
	}
	return &ErrorState{Kind: kind, Message: reason}
}

var fallback = map[ErrorKind]string{
	FetchCatalogFailed:     MsgFetchCatalogFailed,
	FetchSelectionFailed:   MsgFetchSelectionFailed,
	PersistSelectionFailed: MsgPersistSelectionFailed,
	GeolocationFailed:      MsgGeolocationFailed,
}

// IndexOf returns the position of id in list, or -1.
func IndexOf(list []Place, id string) int {
	for i, p := range list {
		if p.ID == id {
			return i
		}
	}
	return -1
}

func Contains(list []Place, id string) bool {
	return IndexOf(list, id) >= 0
}

func IDs(list []Place) []string {
	ids := make([]string, len(list))
	for i, p := range list {
		ids[i] = p.ID
	}
	return ids
}

// Clone returns a copy of list that never aliases the original backing array.
// A nil list clones to an empty, non-nil slice so it encodes as [].
func Clone(list []Place) []Place {
	out := make([]Place, len(list))
	copy(out, list)
	return out
}
