package handler

import (
	"net/http"

	"cinelist/internal/microservices/http-api/dto"
	"cinelist/internal/microservices/http-api/service"

	"github.com/gin-gonic/gin"
)

type RatingHandler struct {
	ratingService service.RatingService
}

func NewRatingHandler(ratingService service.RatingService) *RatingHandler {
	return &RatingHandler{ratingService: ratingService}
}

func (h *RatingHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.PUT("/recommendations/:id/rating", h.Upsert)
}

// Upsert creates or replaces the receiver's rating
// PUT /api/recommendations/:id/rating
func (h *RatingHandler) Upsert(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	var req dto.RateRecommendationDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	rating, err := h.ratingService.Rate(c.Request.Context(), c.Param("id"), userID, *req.Score)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, rating)
}
