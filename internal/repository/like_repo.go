package repository

import (
	"context"
	"fmt"

	"shopback/internal/model"

	"gorm.io/gorm"
)

type LikeRepository interface {
	Create(ctx context.Context, like *model.Like) error
	FindByUserAndComment(ctx context.Context, userID, commentID int64) (*model.Like, error)
	CountByComment(ctx context.Context, commentID int64) (int64, error)
	DeleteByID(ctx context.Context, id int64) (int64, error)
	DeleteAllByCommentID(ctx context.Context, commentID int64) (int64, error)
	DeleteOrphaned(ctx context.Context) (int64, error)
}

type likeRepository struct {
	db *gorm.DB
}

func NewLikeRepository(db *gorm.DB) LikeRepository {
	return &likeRepository{db: db}
}

func (r *likeRepository) Create(ctx context.Context, like *model.Like) error {
	return r.db.WithContext(ctx).Create(like).Error
}

// FindByUserAndComment finds a like by user and comment (to check if user already liked)
func (r *likeRepository) FindByUserAndComment(ctx context.Context, userID, commentID int64) (*model.Like, error) {
	var like model.Like
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND comment_id = ?", userID, commentID).
		First(&like).Error
	if err != nil {
		return nil, translate(err)
	}
	return &like, nil
}

func (r *likeRepository) CountByComment(ctx context.Context, commentID int64) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.Like{}).Where("comment_id = ?", commentID).Count(&count).Error
	return count, err
}

func (r *likeRepository) DeleteByID(ctx context.Context, id int64) (int64, error) {
	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&model.Like{})
	return result.RowsAffected, result.Error
}

// DeleteAllByCommentID removes every like attached to the comment.
func (r *likeRepository) DeleteAllByCommentID(ctx context.Context, commentID int64) (int64, error) {
	result := r.db.WithContext(ctx).Where("comment_id = ?", commentID).Delete(&model.Like{})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to delete likes of comment %d: %w", commentID, result.Error)
	}
	return result.RowsAffected, nil
}

// DeleteOrphaned removes likes whose comment no longer exists.
func (r *likeRepository) DeleteOrphaned(ctx context.Context) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("comment_id NOT IN (?)", r.db.Model(&model.Comment{}).Select("id")).
		Delete(&model.Like{})
	return result.RowsAffected, result.Error
}
