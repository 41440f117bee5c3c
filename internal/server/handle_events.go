package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/playperu/destinations/internal/store"
)

// reasonSnapshot tags the first message of a stream, which carries the state
// as it was when the client connected.
const reasonSnapshot store.Reason = "snapshot"

func handleEvents(st *store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		flusher, ok := w.(http.Flusher)
		if !ok {
			writeError(w, http.StatusInternalServerError, "streaming not supported")
			return
		}

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.Header().Set("X-Accel-Buffering", "no")

		// Subscribe before taking the snapshot so no change falls in between.
		ch := st.Subscribe()
		defer st.Unsubscribe(ch)

		writeEvent(w, store.Change{Reason: reasonSnapshot, State: st.Snapshot()})
		flusher.Flush()

		ping := time.NewTicker(30 * time.Second)
		defer ping.Stop()

		for {
			select {
			case <-r.Context().Done():
				return
			case c := <-ch:
				writeEvent(w, c)
				flusher.Flush()
			case <-ping.C:
				fmt.Fprintf(w, ": ping\n\n")
				flusher.Flush()
			}
		}
	}
}

func writeEvent(w http.ResponseWriter, c store.Change) {
	data, _ := json.Marshal(c)
	fmt.Fprintf(w, "event: state\ndata: %s\n\n", data)
}
