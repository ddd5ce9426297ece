package service

import (
	"context"

	"shopback/internal/model"
)

// ItemStore is the catalog persistence the item flows depend on.
type ItemStore interface {
	FindByID(ctx context.Context, id int) (*model.Item, error)
	FindPage(ctx context.Context, offset, limit int) ([]*model.Item, error)
	SearchByName(ctx context.Context, query string, offset, limit int) ([]*model.Item, error)
	Count(ctx context.Context) (int64, error)
	Create(ctx context.Context, item *model.Item) error
	UpdateFullRecord(ctx context.Context, item *model.Item) (int64, error)
	DeleteByID(ctx context.Context, id int) (int64, error)
}

// CommentStore is the part of comment persistence used by the deletion
// cascade and by rating enrichment.
type CommentStore interface {
	FindRootIDsByItem(ctx context.Context, itemID int) ([]int64, error)
	FindChildren(ctx context.Context, parentID int64) ([]*model.Comment, error)
	DeleteByID(ctx context.Context, id int64) (int64, error)
	AverageRatingForItem(ctx context.Context, itemID int) (*int, error)
}

type LikeStore interface {
	DeleteAllByCommentID(ctx context.Context, commentID int64) (int64, error)
}

// ImageStore holds item image blobs keyed by URL.
type ImageStore interface {
	Upload(ctx context.Context, data []byte, filename string) (string, error)
	Delete(ctx context.Context, url string) bool
	Overwrite(ctx context.Context, data []byte, existingURL string) (string, error)
}

// CatalogNotifier receives item lifecycle events.
type CatalogNotifier interface {
	BroadcastCatalogEvent(eventType string, payload map[string]interface{})
}

// OrphanAssetQueue schedules a later retry of a failed image deletion.
type OrphanAssetQueue interface {
	EnqueueOrphan(ctx context.Context, imageURL string) error
}
