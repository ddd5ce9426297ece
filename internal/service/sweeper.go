package service

import (
	"context"
	"log"
	"sync"
	"time"
)

const maxSweepPasses = 10

// OrphanCommentStore removes comments whose owner row is gone.
type OrphanCommentStore interface {
	DeleteOrphanedByItem(ctx context.Context) (int64, error)
	DeleteOrphanedReplies(ctx context.Context) (int64, error)
}

// OrphanLikeStore removes likes whose comment is gone.
type OrphanLikeStore interface {
	DeleteOrphaned(ctx context.Context) (int64, error)
}

type SweepResult struct {
	Passes   int   `json:"passes"`
	Comments int64 `json:"comments"`
	Replies  int64 `json:"replies"`
	Likes    int64 `json:"likes"`
}

func (r SweepResult) Total() int64 {
	return r.Comments + r.Replies + r.Likes
}

// Sweeper repairs what an interrupted deletion cascade leaves behind.
type Sweeper struct {
	comments OrphanCommentStore
	likes    OrphanLikeStore

	mu       sync.Mutex
	stopChan chan struct{}
	wg       sync.WaitGroup
}

func NewSweeper(comments OrphanCommentStore, likes OrphanLikeStore) *Sweeper {
	return &Sweeper{
		comments: comments,
		likes:    likes,
	}
}

// Sweep runs passes until one removes nothing. Comments go first so likes
// orphaned by the same pass are collected before it ends.
func (s *Sweeper) Sweep(ctx context.Context) (SweepResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var result SweepResult
	for result.Passes < maxSweepPasses {
		result.Passes++

		byItem, err := s.comments.DeleteOrphanedByItem(ctx)
		if err != nil {
			return result, err
		}
		replies, err := s.comments.DeleteOrphanedReplies(ctx)
		if err != nil {
			return result, err
		}
		likes, err := s.likes.DeleteOrphaned(ctx)
		if err != nil {
			return result, err
		}

		result.Comments += byItem
		result.Replies += replies
		result.Likes += likes

		if byItem+replies+likes == 0 {
			break
		}
	}

	if result.Total() > 0 {
		log.Printf("Sweeper removed %d comments, %d replies, %d likes in %d passes",
			result.Comments, result.Replies, result.Likes, result.Passes)
	}
	return result, nil
}

// Start sweeps every interval until Stop is called. A zero interval does nothing.
func (s *Sweeper) Start(interval time.Duration) {
	if interval <= 0 {
		return
	}
	s.stopChan = make(chan struct{})

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		log.Printf("Sweeper started, interval %s", interval)
		for {
			select {
			case <-s.stopChan:
				log.Println("Sweeper stopped")
				return
			case <-ticker.C:
				ctx, cancel := context.WithTimeout(context.Background(), interval)
				if _, err := s.Sweep(ctx); err != nil {
					log.Printf("Error sweeping orphans: %v", err)
				}
				cancel()
			}
		}
	}()
}

func (s *Sweeper) Stop() {
	if s.stopChan == nil {
		return
	}
	close(s.stopChan)
	s.wg.Wait()
	s.stopChan = nil
}
