package handler

import (
	"net/http"

	"cinelist/internal/microservices/http-api/dto"
	"cinelist/internal/microservices/http-api/service"

	"github.com/gin-gonic/gin"
)

type RecommendationHandler struct {
	recService service.RecommendationService
}

func NewRecommendationHandler(recService service.RecommendationService) *RecommendationHandler {
	return &RecommendationHandler{recService: recService}
}

// RegisterRoutes registers recommendation routes on an authenticated group
func (h *RecommendationHandler) RegisterRoutes(router *gin.RouterGroup) {
	recs := router.Group("/recommendations")
	{
		recs.GET("/sent", h.ListSent)
		recs.GET("/received", h.ListReceived)
		recs.POST("", h.Create)
		recs.POST("/read-all", h.MarkAllRead)
		recs.DELETE("/:id", h.Delete)
		recs.POST("/:id/read", h.MarkRead)
	}
}

// ListSent: GET /api/recommendations/sent
func (h *RecommendationHandler) ListSent(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	recs, err := h.recService.ListSent(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, recs)
}

// ListReceived: GET /api/recommendations/received
func (h *RecommendationHandler) ListReceived(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	recs, err := h.recService.ListReceived(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, recs)
}

// Create: POST /api/recommendations
func (h *RecommendationHandler) Create(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	var req dto.CreateRecommendationDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	rec, err := h.recService.Create(c.Request.Context(), userID, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, rec)
}

// Delete: DELETE /api/recommendations/:id. Always 200 with the outcome flag.
func (h *RecommendationHandler) Delete(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	deleted, err := h.recService.Delete(c.Request.Context(), c.Param("id"), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.DeleteRecommendationResponse{Deleted: deleted})
}

// MarkRead: POST /api/recommendations/:id/read
func (h *RecommendationHandler) MarkRead(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	if err := h.recService.MarkRead(c.Request.Context(), c.Param("id"), userID); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// MarkAllRead: POST /api/recommendations/read-all
func (h *RecommendationHandler) MarkAllRead(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	n, err := h.recService.MarkAllRead(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.MarkedReadResponse{Updated: n})
}
