package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/kizunalabs/kizuna-backend/internal/identity"
	"github.com/kizunalabs/kizuna-backend/internal/requestdata"
	"github.com/kizunalabs/kizuna-backend/internal/services"
	"github.com/kizunalabs/kizuna-backend/internal/sse"
)

type SSEHandler struct {
	hub         *sse.Hub
	chatService services.ChatService
}

func NewSSEHandler(hub *sse.Hub, chatService services.ChatService) *SSEHandler {
	return &SSEHandler{hub: hub, chatService: chatService}
}

// Stream subscribes the caller to live events for one conversation and
// serves them as server-sent events until the connection drops.
func (sh *SSEHandler) Stream(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	if rd == nil || rd.UserID == uuid.Nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	conversationID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid conversation id"})
		return
	}

	// Participant check doubles as existence check.
	if _, err := sh.chatService.GetMessages(c.Request.Context(), identity.Human(rd.UserID), conversationID, 1); err != nil {
		RespondServiceError(c, err)
		return
	}

	client := sh.hub.NewClient(rd.UserID)
	sh.hub.Subscribe(client, sse.ConversationChannel(conversationID))
	defer sh.hub.RemoveClient(client)

	w := c.Writer
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	flusher, ok := w.(http.Flusher)
	if !ok {
		c.String(http.StatusInternalServerError, "streaming unsupported")
		return
	}

	ctx := c.Request.Context()
	heartbeat := time.NewTicker(15 * time.Second)
	defer heartbeat.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-heartbeat.C:
			fmt.Fprint(w, ": ping\n\n")
			flusher.Flush()
		case msg := <-client.Outbound:
			raw, mErr := json.Marshal(msg)
			if mErr != nil {
				continue
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", msg.Event, raw)
			flusher.Flush()
		}
	}
}
