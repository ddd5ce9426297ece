package repository

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"shopback/internal/model"
	"shopback/internal/util"

	"golang.org/x/sync/singleflight"
	"gorm.io/gorm"
)

type ItemRepository interface {
	Create(ctx context.Context, item *model.Item) error
	FindByID(ctx context.Context, id int) (*model.Item, error)
	FindPage(ctx context.Context, offset, limit int) ([]*model.Item, error)
	SearchByName(ctx context.Context, query string, offset, limit int) ([]*model.Item, error)
	Count(ctx context.Context) (int64, error)
	UpdateFullRecord(ctx context.Context, item *model.Item) (int64, error)
	DeleteByID(ctx context.Context, id int) (int64, error)
}

type itemRepository struct {
	db    *gorm.DB
	redis *util.RedisClient
	group singleflight.Group
}

const (
	itemCachePrefix     = "item:"
	itemCacheExpiration = 10 * time.Minute
)

// likeEscaper escapes LIKE wildcards so user input matches literally.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func NewItemRepository(db *gorm.DB, redis *util.RedisClient) ItemRepository {
	return &itemRepository{
		db:    db,
		redis: redis,
	}
}

// Create inserts the item; the store assigns the id.
func (r *itemRepository) Create(ctx context.Context, item *model.Item) error {
	return r.db.WithContext(ctx).Create(item).Error
}

// FindByID reads through the Redis cache. Concurrent misses for the same id
// share one database query.
func (r *itemRepository) FindByID(ctx context.Context, id int) (*model.Item, error) {
	key := itemCachePrefix + strconv.Itoa(id)

	if r.redis != nil {
		var cached model.Item
		if err := r.redis.GetJSON(ctx, key, &cached); err == nil {
			return &cached, nil
		}
	}

	v, err, _ := r.group.Do(key, func() (interface{}, error) {
		var item model.Item
		if err := r.db.WithContext(ctx).Where("id = ?", id).First(&item).Error; err != nil {
			return nil, translate(err)
		}
		if r.redis != nil {
			r.redis.Set(ctx, key, &item, itemCacheExpiration)
		}
		return &item, nil
	})
	if err != nil {
		return nil, err
	}

	item := *v.(*model.Item)
	return &item, nil
}

func (r *itemRepository) FindPage(ctx context.Context, offset, limit int) ([]*model.Item, error) {
	var items []*model.Item
	err := r.db.WithContext(ctx).
		Order("id ASC").
		Offset(offset).Limit(limit).
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

// SearchByName matches a case-insensitive substring of the name, ordered by name descending.
func (r *itemRepository) SearchByName(ctx context.Context, query string, offset, limit int) ([]*model.Item, error) {
	pattern := "%" + likeEscaper.Replace(strings.ToLower(query)) + "%"

	var items []*model.Item
	err := r.db.WithContext(ctx).
		Where(`LOWER(name) LIKE ? ESCAPE '\'`, pattern).
		Order("name DESC").
		Offset(offset).Limit(limit).
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *itemRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&model.Item{}).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// UpdateFullRecord replaces every mutable column of the row matching item.ID.
// A zero UpdatedAt is stamped with the current time.
func (r *itemRepository) UpdateFullRecord(ctx context.Context, item *model.Item) (int64, error) {
	if item.ID == 0 {
		return 0, errors.New("item id is required")
	}
	if item.UpdatedAt.IsZero() {
		item.UpdatedAt = time.Now()
	}

	result := r.db.WithContext(ctx).
		Model(&model.Item{}).
		Where("id = ?", item.ID).
		Updates(map[string]interface{}{
			"name":         item.Name,
			"description":  item.Description,
			"image_url":    item.ImageURL,
			"brand":        item.Brand,
			"category":     item.Category,
			"stock":        item.Stock,
			"sale":         item.Sale,
			"origin_price": item.OriginPrice,
			"price":        item.Price,
			"updated_at":   item.UpdatedAt,
		})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to update item %d: %w", item.ID, result.Error)
	}

	r.invalidate(ctx, item.ID)
	return result.RowsAffected, nil
}

func (r *itemRepository) DeleteByID(ctx context.Context, id int) (int64, error) {
	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&model.Item{})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to delete item %d: %w", id, result.Error)
	}

	r.invalidate(ctx, id)
	if r.redis != nil {
		r.redis.Delete(ctx, ratingCachePrefix+strconv.Itoa(id))
	}
	return result.RowsAffected, nil
}

func (r *itemRepository) invalidate(ctx context.Context, id int) {
	if r.redis == nil {
		return
	}
	r.redis.Delete(ctx, itemCachePrefix+strconv.Itoa(id))
}
