package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"math"
	"strconv"
	"time"

	"shopback/internal/model"
	"shopback/internal/util"

	"gorm.io/gorm"
)

type CommentRepository interface {
	Create(ctx context.Context, comment *model.Comment) error
	FindByID(ctx context.Context, id int64) (*model.Comment, error)
	FindRootIDsByItem(ctx context.Context, itemID int) ([]int64, error)
	FindChildren(ctx context.Context, parentID int64) ([]*model.Comment, error)
	FindRootsByItem(ctx context.Context, itemID int, limit, offset int) ([]*model.Comment, error)
	CountRootsByItem(ctx context.Context, itemID int) (int64, error)
	DeleteByID(ctx context.Context, id int64) (int64, error)
	AverageRatingForItem(ctx context.Context, itemID int) (*int, error)
	DeleteOrphanedReplies(ctx context.Context) (int64, error)
	DeleteOrphanedByItem(ctx context.Context) (int64, error)
}

type commentRepository struct {
	db    *gorm.DB
	redis *util.RedisClient
}

const (
	ratingCachePrefix     = "item:rating:"
	ratingCacheExpiration = 5 * time.Minute
)

func NewCommentRepository(db *gorm.DB, redis *util.RedisClient) CommentRepository {
	return &commentRepository{
		db:    db,
		redis: redis,
	}
}

// Create creates a new comment and invalidates the item's rating cache
func (r *commentRepository) Create(ctx context.Context, comment *model.Comment) error {
	if err := r.db.WithContext(ctx).Create(comment).Error; err != nil {
		return err
	}
	r.invalidateRating(ctx, comment.ItemID)
	return nil
}

func (r *commentRepository) FindByID(ctx context.Context, id int64) (*model.Comment, error) {
	var comment model.Comment
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&comment).Error; err != nil {
		return nil, translate(err)
	}
	return &comment, nil
}

// FindRootIDsByItem returns ids of the comments attached directly to the item.
func (r *commentRepository) FindRootIDsByItem(ctx context.Context, itemID int) ([]int64, error) {
	var ids []int64
	err := r.db.WithContext(ctx).
		Model(&model.Comment{}).
		Where("item_id = ? AND parent_id IS NULL", itemID).
		Order("id ASC").
		Pluck("id", &ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}

// FindChildren returns the direct replies of a comment (one level only).
func (r *commentRepository) FindChildren(ctx context.Context, parentID int64) ([]*model.Comment, error) {
	var children []*model.Comment
	err := r.db.WithContext(ctx).
		Where("parent_id = ?", parentID).
		Order("id ASC").
		Find(&children).Error
	if err != nil {
		return nil, err
	}
	return children, nil
}

// FindRootsByItem returns a page of root comments (newest first) with their
// replies (oldest first) and like counts loaded.
func (r *commentRepository) FindRootsByItem(ctx context.Context, itemID int, limit, offset int) ([]*model.Comment, error) {
	var comments []*model.Comment
	err := r.db.WithContext(ctx).
		Preload("User").
		Preload("Replies", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC, id ASC")
		}).
		Preload("Replies.User").
		Where("item_id = ? AND parent_id IS NULL", itemID).
		Order("created_at DESC, id DESC").
		Limit(limit).Offset(offset).
		Find(&comments).Error
	if err != nil {
		return nil, err
	}

	if err := r.loadLikeCounts(ctx, comments); err != nil {
		return nil, err
	}
	return comments, nil
}

func (r *commentRepository) CountRootsByItem(ctx context.Context, itemID int) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.Comment{}).
		Where("item_id = ? AND parent_id IS NULL", itemID).
		Count(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}

// DeleteByID hard-deletes one comment row and invalidates the item's rating cache.
func (r *commentRepository) DeleteByID(ctx context.Context, id int64) (int64, error) {
	var itemIDs []int
	if r.redis != nil {
		r.db.WithContext(ctx).Model(&model.Comment{}).Where("id = ?", id).Pluck("item_id", &itemIDs)
	}

	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&model.Comment{})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to delete comment %d: %w", id, result.Error)
	}

	for _, itemID := range itemIDs {
		r.invalidateRating(ctx, itemID)
	}
	return result.RowsAffected, nil
}

// AverageRatingForItem averages the non-zero ratings of the item's comments,
// rounded half up. It returns nil when the item has no rated comment.
func (r *commentRepository) AverageRatingForItem(ctx context.Context, itemID int) (*int, error) {
	key := ratingCachePrefix + strconv.Itoa(itemID)
	if r.redis != nil {
		var cached *int
		if err := r.redis.GetJSON(ctx, key, &cached); err == nil {
			return cached, nil
		}
	}

	var avg sql.NullFloat64
	err := r.db.WithContext(ctx).
		Model(&model.Comment{}).
		Select("AVG(rating)").
		Where("item_id = ? AND rating > 0", itemID).
		Row().Scan(&avg)
	if err != nil {
		return nil, err
	}

	var rating *int
	if avg.Valid {
		v := int(math.Floor(avg.Float64 + 0.5))
		rating = &v
	}

	if r.redis != nil {
		r.redis.Set(ctx, key, rating, ratingCacheExpiration)
	}
	return rating, nil
}

// DeleteOrphanedReplies removes replies whose parent comment no longer exists.
func (r *commentRepository) DeleteOrphanedReplies(ctx context.Context) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("parent_id IS NOT NULL AND parent_id NOT IN (?)", r.db.Model(&model.Comment{}).Select("id")).
		Delete(&model.Comment{})
	if result.Error != nil {
		return 0, result.Error
	}
	if result.RowsAffected > 0 {
		r.invalidateAllRatings(ctx)
	}
	return result.RowsAffected, nil
}

// DeleteOrphanedByItem removes comments whose item no longer exists.
func (r *commentRepository) DeleteOrphanedByItem(ctx context.Context) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("item_id NOT IN (?)", r.db.Model(&model.Item{}).Select("id")).
		Delete(&model.Comment{})
	if result.Error != nil {
		return 0, result.Error
	}
	if result.RowsAffected > 0 {
		r.invalidateAllRatings(ctx)
	}
	return result.RowsAffected, nil
}

func (r *commentRepository) loadLikeCounts(ctx context.Context, comments []*model.Comment) error {
	var ids []int64
	for _, c := range comments {
		ids = append(ids, c.ID)
		for i := range c.Replies {
			ids = append(ids, c.Replies[i].ID)
		}
	}
	if len(ids) == 0 {
		return nil
	}

	var rows []struct {
		CommentID int64
		Count     int64
	}
	err := r.db.WithContext(ctx).
		Model(&model.Like{}).
		Select("comment_id, count(*) as count").
		Where("comment_id IN ?", ids).
		Group("comment_id").
		Find(&rows).Error
	if err != nil {
		return err
	}

	counts := make(map[int64]int64, len(rows))
	for _, row := range rows {
		counts[row.CommentID] = row.Count
	}
	for _, c := range comments {
		c.LikeCount = counts[c.ID]
		for i := range c.Replies {
			c.Replies[i].LikeCount = counts[c.Replies[i].ID]
		}
	}
	return nil
}

func (r *commentRepository) invalidateRating(ctx context.Context, itemID int) {
	if r.redis == nil {
		return
	}
	r.redis.Delete(ctx, ratingCachePrefix+strconv.Itoa(itemID))
}

// Bulk deletes do not report which items they touched.
func (r *commentRepository) invalidateAllRatings(ctx context.Context) {
	if r.redis == nil {
		return
	}
	if err := r.redis.DeletePattern(ctx, ratingCachePrefix+"*"); err != nil {
		log.Printf("Warning: failed to invalidate rating cache: %v", err)
	}
}
