package handlers

import (
	"context"
	"net/http"
	"time"
)

// RefreshAllConnections runs the connection sweep on demand, the same
// work the scheduled task performs.
func (h *Handler) RefreshAllConnections(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Minute)
	defer cancel()

	refreshed, err := h.Refresh.RefreshAll(ctx)
	if err != nil {
		h.HandleErrors(w, err)
		return
	}
	h.respond(w, r, map[string]int{"refreshed": refreshed}, http.StatusOK)
}
