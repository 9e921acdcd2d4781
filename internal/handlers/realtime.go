package handlers

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/quotedesk/internal/realtime"
	"github.com/charlesng35/quotedesk/pkg/errors"
	"github.com/charlesng35/quotedesk/pkg/response"
)

// RealtimeHandler upgrades authenticated requests into owner WebSocket streams.
type RealtimeHandler struct {
	hub *realtime.Hub
}

// NewRealtimeHandler constructs a realtime handler.
func NewRealtimeHandler(hub *realtime.Hub) *RealtimeHandler {
	return &RealtimeHandler{hub: hub}
}

// Stream subscribes the caller to the requested streams (?stream=a&stream=b or ?streams=a,b).
// Without a selection every default stream is subscribed.
func (h *RealtimeHandler) Stream(c *gin.Context) {
	if h.hub == nil {
		response.Error(c, errors.ErrNotFound)
		return
	}
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	streams := gatherStreams(c)
	if len(streams) == 0 {
		streams = realtime.DefaultStreams
	}
	for _, stream := range streams {
		if !h.hub.Allowed(stream) {
			response.Error(c, errors.NewBadRequest("unknown stream "+stream))
			return
		}
	}

	h.hub.Serve(userID, streams, c.Writer, c.Request)
}

func gatherStreams(c *gin.Context) []string {
	var streams []string

	for _, queryStream := range c.QueryArray("stream") {
		if normalized := normalizeStream(queryStream); normalized != "" {
			streams = append(streams, normalized)
		}
	}

	if raw := c.Query("streams"); raw != "" {
		for _, part := range strings.Split(raw, ",") {
			if normalized := normalizeStream(part); normalized != "" {
				streams = append(streams, normalized)
			}
		}
	}

	return uniqueStreams(streams)
}

func normalizeStream(value string) string {
	return strings.ToLower(strings.TrimSpace(value))
}

func uniqueStreams(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	var out []string
	for _, value := range values {
		if _, ok := seen[value]; ok {
			continue
		}
		seen[value] = struct{}{}
		out = append(out, value)
	}
	return out
}
