package api

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/xraph/jobwatch/id"
	"github.com/xraph/jobwatch/stream"
)

// streamEvents relays broker events as server-sent events. Topics come
// from repeated topic query parameters and default to the firehose.
func (a *API) streamEvents(w http.ResponseWriter, r *http.Request) {
	topics := r.URL.Query()["topic"]
	if len(topics) == 0 {
		topics = []string{stream.TopicFirehose}
	}
	for _, topic := range topics {
		if err := stream.ValidateTopic(topic); err != nil {
			a.writeError(w, fmt.Errorf("%w: %w", errBadRequest, err))
			return
		}
	}

	subID := id.NewStreamID().String()
	sub := a.broker.Subscribe(subID, topics...)
	defer a.broker.RemoveSubscriber(subID)

	rc := http.NewResponseController(w)
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)
	if err := rc.Flush(); err != nil {
		a.logger.Debug("api: event stream flush failed", slog.String("error", err.Error()))
		return
	}

	a.logger.Debug("api: event stream opened",
		slog.String("subscriber_id", subID),
		slog.Any("topics", topics),
	)
	for {
		select {
		case <-r.Context().Done():
			return
		case evt, ok := <-sub.C():
			if !ok {
				return
			}
			data, err := json.Marshal(evt)
			if err != nil {
				continue
			}
			if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", evt.Type, data); err != nil {
				return
			}
			if err := rc.Flush(); err != nil {
				return
			}
		}
	}
}
