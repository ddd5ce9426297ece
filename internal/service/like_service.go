package service

import (
	"context"
	"errors"
	"fmt"

	"shopback/internal/model"
	"shopback/internal/repository"
)

type LikeService interface {
	LikeComment(ctx context.Context, userID, commentID int64) (*model.Like, error)
	UnlikeComment(ctx context.Context, userID, commentID int64) error
	GetLikeCount(ctx context.Context, commentID int64) (int64, error)
}

type likeService struct {
	likeRepo    repository.LikeRepository
	commentRepo repository.CommentRepository
}

func NewLikeService(likeRepo repository.LikeRepository, commentRepo repository.CommentRepository) LikeService {
	return &likeService{
		likeRepo:    likeRepo,
		commentRepo: commentRepo,
	}
}

// LikeComment is idempotent: liking twice returns the existing like.
func (s *likeService) LikeComment(ctx context.Context, userID, commentID int64) (*model.Like, error) {
	if _, err := s.commentRepo.FindByID(ctx, commentID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrCommentNotFound
		}
		return nil, err
	}

	existing, err := s.likeRepo.FindByUserAndComment(ctx, userID, commentID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	like := &model.Like{UserID: userID, CommentID: commentID}
	if err := s.likeRepo.Create(ctx, like); err != nil {
		// lost a race against a concurrent like from the same user
		if existing, findErr := s.likeRepo.FindByUserAndComment(ctx, userID, commentID); findErr == nil {
			return existing, nil
		}
		return nil, fmt.Errorf("failed to like comment %d: %w", commentID, err)
	}
	return like, nil
}

func (s *likeService) UnlikeComment(ctx context.Context, userID, commentID int64) error {
	like, err := s.likeRepo.FindByUserAndComment(ctx, userID, commentID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrLikeNotFound
		}
		return err
	}

	affected, err := s.likeRepo.DeleteByID(ctx, like.ID)
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrLikeNotFound
	}
	return nil
}

func (s *likeService) GetLikeCount(ctx context.Context, commentID int64) (int64, error) {
	return s.likeRepo.CountByComment(ctx, commentID)
}
