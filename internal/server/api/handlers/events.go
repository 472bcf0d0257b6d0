package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"

	"github.com/CourageResearch/imputation/internal/core/job"
	"github.com/CourageResearch/imputation/internal/core/notifier"
)

// EventsHandler streams job status over Server-Sent Events.
type EventsHandler struct {
	notifier *notifier.Notifier
}

func NewEventsHandler(n *notifier.Notifier) *EventsHandler {
	return &EventsHandler{notifier: n}
}

// Stream handles GET /api/events/:uuid. One `data:` frame per notifier
// tick carrying the full job record; the stream ends when the client
// disconnects or the notifier closes the subscription.
func (h *EventsHandler) Stream(c echo.Context) error {
	id := c.Param("uuid")

	ch, err := h.notifier.Subscribe(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, job.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "job not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	w := c.Response()
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	w.Flush()

	for j := range ch {
		payload, err := json.Marshal(newJobBody(j))
		if err != nil {
			log.Error().Err(err).Str("job_id", id).Msg("encode status frame")
			return nil
		}
		if _, err := fmt.Fprintf(w, "data: %s\n\n", payload); err != nil {
			// Client went away; our subscription context is tied to the
			// request and will cancel the notifier goroutine.
			return nil
		}
		w.Flush()
	}
	return nil
}
