package app

import (
	"net/http"

	"shopback/internal/service"
	"shopback/internal/util"

	"github.com/gin-gonic/gin"
)

type LikeHandler struct {
	likeService service.LikeService
}

func NewLikeHandler(likeService service.LikeService) *LikeHandler {
	return &LikeHandler{likeService: likeService}
}

// LikeComment handles liking a comment
// POST /api/v1/comments/:id/like
func (h *LikeHandler) LikeComment(c *gin.Context) {
	commentID, ok := commentIDParam(c)
	if !ok {
		return
	}

	like, err := h.likeService.LikeComment(c.Request.Context(), c.GetInt64("userID"), commentID)
	if err != nil {
		respondError(c, err)
		return
	}

	count, err := h.likeService.GetLikeCount(c.Request.Context(), commentID)
	if err != nil {
		respondError(c, err)
		return
	}

	util.SuccessResponse(c, http.StatusOK, "Comment liked successfully", gin.H{
		"like":       like,
		"like_count": count,
	})
}

// UnlikeComment handles removing a like
// DELETE /api/v1/comments/:id/like
func (h *LikeHandler) UnlikeComment(c *gin.Context) {
	commentID, ok := commentIDParam(c)
	if !ok {
		return
	}

	if err := h.likeService.UnlikeComment(c.Request.Context(), c.GetInt64("userID"), commentID); err != nil {
		respondError(c, err)
		return
	}

	count, err := h.likeService.GetLikeCount(c.Request.Context(), commentID)
	if err != nil {
		respondError(c, err)
		return
	}

	util.SuccessResponse(c, http.StatusOK, "Comment unliked successfully", gin.H{"like_count": count})
}
