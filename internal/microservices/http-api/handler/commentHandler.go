package handler

import (
	"net/http"

	"cinelist/internal/microservices/http-api/dto"
	"cinelist/internal/microservices/http-api/service"

	"github.com/gin-gonic/gin"
)

type CommentHandler struct {
	commentService service.CommentService
}

func NewCommentHandler(commentService service.CommentService) *CommentHandler {
	return &CommentHandler{commentService: commentService}
}

// RegisterRoutes registers thread routes under a recommendation
func (h *CommentHandler) RegisterRoutes(router *gin.RouterGroup) {
	comments := router.Group("/recommendations/:id/comments")
	{
		comments.POST("", h.Create)
		comments.POST("/read", h.MarkRead)
		comments.DELETE("/:comment_id", h.Delete)
	}
}

// Create: POST /api/recommendations/:id/comments
func (h *CommentHandler) Create(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	var req dto.CreateCommentDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	comment, err := h.commentService.AddComment(c.Request.Context(), c.Param("id"), userID, req.Content)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, comment)
}

// Delete: DELETE /api/recommendations/:id/comments/:comment_id
func (h *CommentHandler) Delete(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	if err := h.commentService.DeleteComment(c.Request.Context(), c.Param("id"), c.Param("comment_id"), userID); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// MarkRead: POST /api/recommendations/:id/comments/read
func (h *CommentHandler) MarkRead(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	n, err := h.commentService.MarkCommentsRead(c.Request.Context(), c.Param("id"), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.MarkedReadResponse{Updated: n})
}
