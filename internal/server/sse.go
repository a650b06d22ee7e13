package server

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/glorpus-work/apkfetch/pkg/logger"
	"github.com/glorpus-work/apkfetch/pkg/orchestrator"
	"github.com/sirupsen/logrus"
)

// writeEvents streams events as `data: <json>` records until the channel is
// closed. After a failed write the remaining events are drained so the
// producer never blocks on a gone client.
func writeEvents(w http.ResponseWriter, events <-chan orchestrator.Event) {
	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	flusher, _ := w.(http.Flusher)
	if flusher != nil {
		flusher.Flush()
	}

	for e := range events {
		if err := writeEvent(w, e); err != nil {
			logger.Debug("Event stream closed by client", logrus.Fields{"error": err.Error()})
			for range events {
			}
			return
		}
		if flusher != nil {
			flusher.Flush()
		}
	}
}

func writeEvent(w http.ResponseWriter, e orchestrator.Event) error {
	data, err := json.Marshal(e)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "data: %s\n\n", data)
	return err
}
