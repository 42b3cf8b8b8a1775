package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/kizunalabs/kizuna-backend/internal/requestdata"
	"github.com/kizunalabs/kizuna-backend/internal/services"
)

type ValueHandler struct {
	valueService services.ValueService
}

func NewValueHandler(valueService services.ValueService) *ValueHandler {
	return &ValueHandler{valueService: valueService}
}

// SaveValue accepts a reflection from either an authenticated user or an
// anonymous visitor carrying a session token.
func (vh *ValueHandler) SaveValue(c *gin.Context) {
	var req struct {
		Nickname  string `json:"nickname"`
		Content   string `json:"content"`
		AnonToken string `json:"anon_token"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	in := services.SaveValueInput{
		Nickname: req.Nickname,
		Content:  req.Content,
	}
	if rd := requestdata.GetRequestData(c.Request.Context()); rd != nil && rd.UserID != uuid.Nil {
		id := rd.UserID
		in.UserID = &id
	} else {
		in.AnonToken = req.AnonToken
	}

	matches, err := vh.valueService.SaveValue(c.Request.Context(), in)
	if err != nil {
		RespondServiceError(c, err)
		return
	}

	out := make([]gin.H, 0, len(matches))
	for _, m := range matches {
		out = append(out, gin.H{
			"user_id": m.Identity.StorageID(),
			"score":   m.Score,
			"name":    m.Name,
			"content": m.Content,
		})
	}
	RespondOK(c, gin.H{"matches": out})
}

func (vh *ValueHandler) GetMyProfile(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	if rd == nil || rd.UserID == uuid.Nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	vp, err := vh.valueService.GetProfile(c.Request.Context(), rd.UserID)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, vp)
}
