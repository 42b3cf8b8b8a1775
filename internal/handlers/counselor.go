package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/kizunalabs/kizuna-backend/internal/services"
)

type CounselorHandler struct {
	counselorService services.CounselorService
}

func NewCounselorHandler(counselorService services.CounselorService) *CounselorHandler {
	return &CounselorHandler{counselorService: counselorService}
}

func (ch *CounselorHandler) Chat(c *gin.Context) {
	me, ok := actingIdentity(c)
	if !ok {
		return
	}
	var req struct {
		Content string `json:"content"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	userMsg, reply, err := ch.counselorService.Chat(c.Request.Context(), me, req.Content)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"message": userMsg, "reply": reply})
}

func (ch *CounselorHandler) GetHistory(c *gin.Context) {
	me, ok := actingIdentity(c)
	if !ok {
		return
	}
	limit := 0
	if v := c.Query("limit"); v != "" {
		if parsed, pErr := strconv.Atoi(v); pErr == nil && parsed > 0 {
			limit = parsed
		}
	}
	messages, err := ch.counselorService.GetHistory(c.Request.Context(), me, limit)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"messages": messages})
}
