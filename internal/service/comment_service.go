package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"shopback/internal/model"
	"shopback/internal/repository"
)

type CommentService interface {
	CreateComment(ctx context.Context, userID int64, req CreateCommentRequest) (*model.Comment, error)
	GetCommentsByItem(ctx context.Context, itemID int, limit, offset int) ([]*model.Comment, int64, error)
	DeleteComment(ctx context.Context, userID int64, role string, commentID int64) error
}

type commentService struct {
	commentRepo repository.CommentRepository
	items       ItemStore
	cascade     commentCascade
}

type CreateCommentRequest struct {
	ItemID   int    `json:"item_id" binding:"required"`
	ParentID *int64 `json:"parent_id,omitempty"` // For replies
	Rating   int    `json:"rating" binding:"gte=0,lte=5"`
	Content  string `json:"content" binding:"required,max=2000"`
}

func NewCommentService(
	commentRepo repository.CommentRepository,
	likeRepo repository.LikeRepository,
	items ItemStore,
) CommentService {
	return &commentService{
		commentRepo: commentRepo,
		items:       items,
		cascade:     commentCascade{comments: commentRepo, likes: likeRepo},
	}
}

// CreateComment stores a review or a reply. Root comments carry a 1..5
// rating. A reply to a reply is attached to that reply's root so threads
// stay one level deep.
func (s *commentService) CreateComment(ctx context.Context, userID int64, req CreateCommentRequest) (*model.Comment, error) {
	content := strings.TrimSpace(req.Content)
	if content == "" {
		return nil, fmt.Errorf("%w: content is required", ErrInvalidComment)
	}
	if req.Rating < 0 || req.Rating > 5 {
		return nil, fmt.Errorf("%w: rating must be between 1 and 5", ErrInvalidComment)
	}

	if _, err := s.items.FindByID(ctx, req.ItemID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrItemNotFound
		}
		return nil, err
	}

	parentID := req.ParentID
	if parentID != nil {
		parent, err := s.commentRepo.FindByID(ctx, *parentID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return nil, ErrCommentNotFound
			}
			return nil, err
		}
		if parent.ItemID != req.ItemID {
			return nil, fmt.Errorf("%w: parent comment belongs to another item", ErrInvalidComment)
		}
		if parent.IsReply() {
			parentID = parent.ParentID
		}
	} else if req.Rating == 0 {
		return nil, fmt.Errorf("%w: rating must be between 1 and 5", ErrInvalidComment)
	}

	comment := &model.Comment{
		ItemID:   req.ItemID,
		UserID:   userID,
		ParentID: parentID,
		Rating:   req.Rating,
		Content:  content,
	}
	if err := s.commentRepo.Create(ctx, comment); err != nil {
		return nil, fmt.Errorf("failed to create comment: %w", err)
	}
	return comment, nil
}

// GetCommentsByItem returns a page of root comments with their replies, plus
// the total number of root comments.
func (s *commentService) GetCommentsByItem(ctx context.Context, itemID int, limit, offset int) ([]*model.Comment, int64, error) {
	if limit <= 0 {
		limit = 20
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}
	if offset < 0 {
		offset = 0
	}

	comments, err := s.commentRepo.FindRootsByItem(ctx, itemID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.commentRepo.CountRootsByItem(ctx, itemID)
	if err != nil {
		return nil, 0, err
	}
	return comments, total, nil
}

// DeleteComment removes a comment with its replies and likes. Only the author
// or an admin may delete.
func (s *commentService) DeleteComment(ctx context.Context, userID int64, role string, commentID int64) error {
	comment, err := s.commentRepo.FindByID(ctx, commentID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrCommentNotFound
		}
		return err
	}
	if comment.UserID != userID && role != model.RoleAdmin {
		return ErrForbidden
	}

	failures, err := s.cascade.deleteComment(ctx, commentID)
	if failures > 0 {
		log.Printf("Comment %d: partial cascade failure, %d reply or like deletions failed", commentID, failures)
	}
	return err
}
