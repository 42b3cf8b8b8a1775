package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/kizunalabs/kizuna-backend/internal/identity"
	"github.com/kizunalabs/kizuna-backend/internal/requestdata"
	"github.com/kizunalabs/kizuna-backend/internal/services"
)

type ChatHandler struct {
	chatService services.ChatService
}

func NewChatHandler(chatService services.ChatService) *ChatHandler {
	return &ChatHandler{chatService: chatService}
}

func (ch *ChatHandler) OpenRoom(c *gin.Context) {
	me, ok := actingIdentity(c)
	if !ok {
		return
	}
	var req struct {
		UserID string `json:"user_id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	otherID, err := uuid.Parse(req.UserID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user_id"})
		return
	}
	conv, err := ch.chatService.OpenRoom(c.Request.Context(), me, identity.FromStored(otherID))
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, conv)
}

func (ch *ChatHandler) GetRooms(c *gin.Context) {
	me, ok := actingIdentity(c)
	if !ok {
		return
	}
	rooms, err := ch.chatService.GetRooms(c.Request.Context(), me)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"conversations": rooms})
}

func (ch *ChatHandler) SendMessage(c *gin.Context) {
	me, ok := actingIdentity(c)
	if !ok {
		return
	}
	conversationID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid conversation id"})
		return
	}
	var req struct {
		Content string `json:"content"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	msg, err := ch.chatService.SendMessage(c.Request.Context(), me, conversationID, req.Content)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, msg)
}

func (ch *ChatHandler) GetMessages(c *gin.Context) {
	me, ok := actingIdentity(c)
	if !ok {
		return
	}
	conversationID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid conversation id"})
		return
	}
	limit := 0
	if v := c.Query("limit"); v != "" {
		if parsed, pErr := strconv.Atoi(v); pErr == nil && parsed > 0 {
			limit = parsed
		}
	}
	messages, err := ch.chatService.GetMessages(c.Request.Context(), me, conversationID, limit)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"messages": messages})
}

func actingIdentity(c *gin.Context) (identity.Identity, bool) {
	rd := requestdata.GetRequestData(c.Request.Context())
	if rd == nil || rd.UserID == uuid.Nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return identity.Identity{}, false
	}
	return identity.Human(rd.UserID), true
}
