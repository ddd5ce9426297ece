package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"time"

	"shopback/internal/repository"
)

const (
	DefaultPageSize = 10
	MaxPageSize     = 100
)

type ItemService interface {
	CreateItem(ctx context.Context, form ItemForm, image []byte, filename string) (*ItemView, error)
	UpdateItem(ctx context.Context, id int, form ItemForm, image []byte, filename string) (*ItemView, error)
	GetItem(ctx context.Context, id int) (*ItemView, error)
	ListItems(ctx context.Context, page, size int) ([]*ItemView, int64, error)
	SearchItemsByName(ctx context.Context, page, size int, query string) ([]*ItemView, error)
	DeleteItem(ctx context.Context, id int, imageURL string) error
	SetNotifier(n CatalogNotifier)
	SetOrphanQueue(q OrphanAssetQueue)
}

type itemService struct {
	items    ItemStore
	comments CommentStore
	cascade  commentCascade
	images   ImageStore
	notifier CatalogNotifier
	orphans  OrphanAssetQueue
}

func NewItemService(items ItemStore, comments CommentStore, likes LikeStore, images ImageStore) ItemService {
	return &itemService{
		items:    items,
		comments: comments,
		cascade:  commentCascade{comments: comments, likes: likes},
		images:   images,
	}
}

// SetNotifier sets the catalog feed that receives item events.
func (s *itemService) SetNotifier(n CatalogNotifier) {
	s.notifier = n
}

// SetOrphanQueue sets the queue that retries failed image deletions.
func (s *itemService) SetOrphanQueue(q OrphanAssetQueue) {
	s.orphans = q
}

// CreateItem uploads the image first and stores the item with the resulting URL.
func (s *itemService) CreateItem(ctx context.Context, form ItemForm, image []byte, filename string) (*ItemView, error) {
	if err := form.Validate(); err != nil {
		return nil, err
	}
	if len(image) == 0 {
		return nil, ErrImageRequired
	}

	url, err := s.images.Upload(ctx, image, filename)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstreamAsset, err)
	}

	item := itemFromForm(form)
	item.ImageURL = url
	if err := s.items.Create(ctx, item); err != nil {
		s.discardImage(ctx, url)
		return nil, fmt.Errorf("failed to create item: %w", err)
	}

	s.notify("item_created", map[string]interface{}{"item_id": item.ID, "name": item.Name})
	return toItemView(item, nil), nil
}

// UpdateItem fully replaces the item's fields. New image bytes overwrite the
// asset behind the current URL; otherwise the URL is kept.
func (s *itemService) UpdateItem(ctx context.Context, id int, form ItemForm, image []byte, filename string) (*ItemView, error) {
	if err := form.Validate(); err != nil {
		return nil, err
	}

	current, err := s.items.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrItemNotFound
		}
		return nil, err
	}

	imageURL := current.ImageURL
	if len(image) > 0 {
		imageURL, err = s.images.Overwrite(ctx, image, current.ImageURL)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUpstreamAsset, err)
		}
	}

	item := itemFromForm(form)
	item.ID = id
	item.ImageURL = imageURL
	item.CreatedAt = current.CreatedAt
	item.UpdatedAt = time.Now()

	affected, err := s.items.UpdateFullRecord(ctx, item)
	if err != nil {
		return nil, fmt.Errorf("failed to update item %d: %w", id, err)
	}
	if affected == 0 {
		return nil, ErrItemNotFound
	}

	s.notify("item_updated", map[string]interface{}{"item_id": id, "name": item.Name})
	return toItemView(item, s.averageRating(ctx, id)), nil
}

func (s *itemService) GetItem(ctx context.Context, id int) (*ItemView, error) {
	item, err := s.items.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrItemNotFound
		}
		return nil, err
	}
	return toItemView(item, s.averageRating(ctx, id)), nil
}

// ListItems returns one page of items ordered by id together with the total count.
func (s *itemService) ListItems(ctx context.Context, page, size int) ([]*ItemView, int64, error) {
	total, err := s.items.Count(ctx)
	if err != nil {
		return nil, 0, err
	}

	offset, limit, ok := pageBounds(page, size)
	if !ok {
		return []*ItemView{}, total, nil
	}
	items, err := s.items.FindPage(ctx, offset, limit)
	if err != nil {
		return nil, 0, err
	}

	views := make([]*ItemView, 0, len(items))
	for _, item := range items {
		views = append(views, toItemView(item, s.averageRating(ctx, item.ID)))
	}
	return views, total, nil
}

// SearchItemsByName matches query as a case-insensitive substring of the name.
func (s *itemService) SearchItemsByName(ctx context.Context, page, size int, query string) ([]*ItemView, error) {
	offset, limit, ok := pageBounds(page, size)
	if !ok {
		return []*ItemView{}, nil
	}

	items, err := s.items.SearchByName(ctx, query, offset, limit)
	if err != nil {
		return nil, err
	}

	views := make([]*ItemView, 0, len(items))
	for _, item := range items {
		views = append(views, toItemView(item, s.averageRating(ctx, item.ID)))
	}
	return views, nil
}

// DeleteItem removes the item's comment trees, its image and finally the item
// row. Comment, like and image failures do not stop the deletion; only a
// missing item or a failing row delete is reported.
func (s *itemService) DeleteItem(ctx context.Context, id int, imageURL string) error {
	failures := 0

	rootIDs, err := s.comments.FindRootIDsByItem(ctx, id)
	if err != nil {
		log.Printf("Warning: failed to load comments of item %d: %v", id, err)
		failures++
	}

	for _, rootID := range rootIDs {
		n, err := s.cascade.deleteComment(ctx, rootID)
		failures += n
		if err != nil {
			log.Printf("Warning: failed to delete comment %d of item %d: %v", rootID, id, err)
			failures++
		}
	}

	if failures > 0 {
		log.Printf("Item %d: partial cascade failure, %d comment or like deletions failed", id, failures)
	}

	if imageURL != "" && !s.images.Delete(ctx, imageURL) {
		log.Printf("Warning: image %s of item %d was not deleted", imageURL, id)
		s.discardImage(ctx, imageURL)
	}

	affected, err := s.items.DeleteByID(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to delete item %d: %w", id, err)
	}
	if affected == 0 {
		return ErrItemNotFound
	}

	s.notify("item_deleted", map[string]interface{}{"item_id": id})
	return nil
}

// discardImage hands an unreferenced image to the orphan queue.
func (s *itemService) discardImage(ctx context.Context, url string) {
	if s.orphans == nil {
		return
	}
	if err := s.orphans.EnqueueOrphan(ctx, url); err != nil {
		log.Printf("Warning: failed to enqueue orphaned image %s: %v", url, err)
	}
}

func (s *itemService) averageRating(ctx context.Context, itemID int) *int {
	avg, err := s.comments.AverageRatingForItem(ctx, itemID)
	if err != nil {
		log.Printf("Warning: average rating unavailable for item %d: %v", itemID, err)
		return nil
	}
	if avg == nil {
		log.Printf("Item %d has no rating yet", itemID)
	}
	return avg
}

func (s *itemService) notify(eventType string, payload map[string]interface{}) {
	if s.notifier != nil {
		s.notifier.BroadcastCatalogEvent(eventType, payload)
	}
}

// pageBounds turns a 1-based page and a size into offset and limit. ok is
// false when the offset does not fit in an int; such a page is always empty.
func pageBounds(page, size int) (offset, limit int, ok bool) {
	if page < 1 {
		page = 1
	}
	if size < 1 {
		size = DefaultPageSize
	}
	if size > MaxPageSize {
		size = MaxPageSize
	}
	if page-1 > math.MaxInt/size {
		return 0, size, false
	}
	return (page - 1) * size, size, true
}
