package httpx

import (
	"net/http"
	"time"

	"github.com/KhushalAcharya29/real-estate-app/api/internal/ws"
)

func (r *Router) handleExpressInterest(w http.ResponseWriter, req *http.Request) {
	var payload struct {
		PropertyID string `json:"propertyId"`
		Message    string `json:"message"`
	}
	if !decodeJSON(w, req, &payload) {
		return
	}
	info, _ := authInfoFromContext(req.Context())
	it, err := r.interests.Express(req.Context(), info.UserID, payload.PropertyID, payload.Message)
	if err != nil {
		r.writeServiceError(w, req, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"data": it})
}

func (r *Router) handleMyInterests(w http.ResponseWriter, req *http.Request) {
	info, _ := authInfoFromContext(req.Context())
	items, err := r.interests.ListMine(req.Context(), info.UserID)
	if err != nil {
		r.writeServiceError(w, req, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": items})
}

func (r *Router) handleRemoveInterest(w http.ResponseWriter, req *http.Request) {
	info, _ := authInfoFromContext(req.Context())
	if err := r.interests.Remove(req.Context(), info.UserID, req.PathValue("propertyId")); err != nil {
		r.writeServiceError(w, req, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Interest removed successfully"})
}

func (r *Router) handleInterestedClients(w http.ResponseWriter, req *http.Request) {
	info, _ := authInfoFromContext(req.Context())
	items, err := r.interests.InterestedClients(req.Context(), info.UserID, req.PathValue("propertyId"))
	if err != nil {
		r.writeServiceError(w, req, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": items})
}

// handleFeedWS streams interest events for the agent's listings over a websocket.
func (r *Router) handleFeedWS(w http.ResponseWriter, req *http.Request) {
	info, ok := authInfoFromContext(req.Context())
	if !ok {
		r.logger.Error("auth context missing for interest feed", "path", req.URL.Path)
		writeError(w, http.StatusInternalServerError, "authorization context missing")
		return
	}
	if r.feed == nil {
		writeError(w, http.StatusServiceUnavailable, "interest feed unavailable")
		return
	}
	conn, err := r.upgrader.Upgrade(w, req, nil)
	if err != nil {
		r.logger.Warn("websocket upgrade failed", "error", err)
		return
	}
	client := ws.NewClient(conn, r.logger)
	done := r.metrics.feedOpened("websocket")
	defer done()

	r.feed.Register(info.UserID, client)
	defer r.feed.Unregister(info.UserID, client)
	client.Serve()
}

// handleFeedSSE streams the same events as Server-Sent Events.
func (r *Router) handleFeedSSE(w http.ResponseWriter, req *http.Request) {
	info, ok := authInfoFromContext(req.Context())
	if !ok {
		r.logger.Error("auth context missing for interest feed", "path", req.URL.Path)
		writeError(w, http.StatusInternalServerError, "authorization context missing")
		return
	}
	if r.feed == nil {
		writeError(w, http.StatusServiceUnavailable, "interest feed unavailable")
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	client := ws.NewSSEClient(w, flusher, "interest", r.logger)
	if err := client.Heartbeat(); err != nil {
		return
	}
	done := r.metrics.feedOpened("sse")
	defer done()

	r.feed.Register(info.UserID, client)
	defer r.feed.Unregister(info.UserID, client)

	ticker := time.NewTicker(r.sseHeartbeat)
	defer ticker.Stop()
	for {
		select {
		case <-req.Context().Done():
			client.Close()
			return
		case <-client.Done():
			return
		case <-ticker.C:
			if err := client.Heartbeat(); err != nil {
				return
			}
		}
	}
}
