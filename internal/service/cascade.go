package service

import (
	"context"
	"log"
)

// commentCascade removes a comment together with its direct replies and all
// likes attached to either. Replies are removed before their parent and likes
// before the comment they point at.
type commentCascade struct {
	comments CommentStore
	likes    LikeStore
}

// deleteComment runs the cascade for one comment. Failures on replies and
// likes are logged and counted. The returned error concerns the comment row
// itself: ErrCommentNotFound when nothing was deleted.
func (c commentCascade) deleteComment(ctx context.Context, commentID int64) (int, error) {
	failures := 0

	children, err := c.comments.FindChildren(ctx, commentID)
	if err != nil {
		log.Printf("Warning: failed to load replies of comment %d: %v", commentID, err)
		failures++
	}

	for _, child := range children {
		if _, err := c.likes.DeleteAllByCommentID(ctx, child.ID); err != nil {
			log.Printf("Warning: failed to delete likes of reply %d: %v", child.ID, err)
			failures++
		}
		if _, err := c.comments.DeleteByID(ctx, child.ID); err != nil {
			log.Printf("Warning: failed to delete reply %d: %v", child.ID, err)
			failures++
		}
	}

	if _, err := c.likes.DeleteAllByCommentID(ctx, commentID); err != nil {
		log.Printf("Warning: failed to delete likes of comment %d: %v", commentID, err)
		failures++
	}

	affected, err := c.comments.DeleteByID(ctx, commentID)
	if err != nil {
		return failures, err
	}
	if affected == 0 {
		return failures, ErrCommentNotFound
	}
	return failures, nil
}
