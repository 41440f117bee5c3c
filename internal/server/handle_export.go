package server

import (
	"net/http"
	"strconv"

	"github.com/sfomuseum/go-csvdict/v2"

	"github.com/playperu/destinations/internal/app"
	"github.com/playperu/destinations/internal/geo"
)

// handleSelectionCSV exports the current selection, most recent first.
// distance_m is empty until the user's position is known.
func handleSelectionCSV(a *app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s := a.Store.Snapshot()

		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		w.Header().Set("Content-Disposition", `attachment; filename="selection.csv"`)

		wr, err := csvdict.NewWriter(w)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		for _, p := range s.Selection {
			row := map[string]string{
				"id":         p.ID,
				"name":       p.Name,
				"lat":        strconv.FormatFloat(p.Lat, 'f', -1, 64),
				"lng":        strconv.FormatFloat(p.Lng, 'f', -1, 64),
				"distance_m": "",
			}
			if s.Location != nil {
				d := geo.Distance(*s.Location, p.Coordinates())
				row["distance_m"] = strconv.FormatFloat(d, 'f', 0, 64)
			}

			if err := wr.WriteRow(row); err != nil {
				return
			}
		}

		wr.Flush()
	}
}
