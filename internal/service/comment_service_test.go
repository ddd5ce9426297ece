package service

import (
	"context"
	"testing"

	"shopback/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func int64Ptr(v int64) *int64 { return &v }

func TestCommentService_CreateComment(t *testing.T) {
	ctx := context.Background()
	st := setupTestStores(t)
	svc := NewCommentService(st.comments, st.likes, st.items)

	item := st.seedItem(t, "sneaker")
	other := st.seedItem(t, "loafer")

	root, err := svc.CreateComment(ctx, 1, CreateCommentRequest{ItemID: item.ID, Rating: 5, Content: "  great  "})
	require.NoError(t, err)
	assert.Equal(t, "great", root.Content)
	assert.Nil(t, root.ParentID)

	t.Run("reply to root", func(t *testing.T) {
		reply, err := svc.CreateComment(ctx, 2, CreateCommentRequest{ItemID: item.ID, ParentID: &root.ID, Content: "agreed"})
		require.NoError(t, err)
		require.NotNil(t, reply.ParentID)
		assert.Equal(t, root.ID, *reply.ParentID)

		t.Run("reply to reply is attached to the root", func(t *testing.T) {
			nested, err := svc.CreateComment(ctx, 3, CreateCommentRequest{ItemID: item.ID, ParentID: &reply.ID, Content: "me too"})
			require.NoError(t, err)
			require.NotNil(t, nested.ParentID)
			assert.Equal(t, root.ID, *nested.ParentID)
		})
	})

	tests := []struct {
		name    string
		req     CreateCommentRequest
		wantErr error
	}{
		{"unknown item", CreateCommentRequest{ItemID: 999, Rating: 3, Content: "x"}, ErrItemNotFound},
		{"root without rating", CreateCommentRequest{ItemID: item.ID, Content: "x"}, ErrInvalidComment},
		{"rating out of range", CreateCommentRequest{ItemID: item.ID, Rating: 6, Content: "x"}, ErrInvalidComment},
		{"blank content", CreateCommentRequest{ItemID: item.ID, Rating: 3, Content: "   "}, ErrInvalidComment},
		{"unknown parent", CreateCommentRequest{ItemID: item.ID, ParentID: int64Ptr(12345), Content: "x"}, ErrCommentNotFound},
		{"parent of another item", CreateCommentRequest{ItemID: other.ID, ParentID: &root.ID, Content: "x"}, ErrInvalidComment},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CreateComment(ctx, 1, tt.req)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestCommentService_GetCommentsByItem(t *testing.T) {
	ctx := context.Background()
	st := setupTestStores(t)
	svc := NewCommentService(st.comments, st.likes, st.items)

	item := st.seedItem(t, "bag")
	for i := 0; i < 3; i++ {
		_, err := svc.CreateComment(ctx, 1, CreateCommentRequest{ItemID: item.ID, Rating: 4, Content: "ok"})
		require.NoError(t, err)
	}

	comments, total, err := svc.GetCommentsByItem(ctx, item.ID, 2, 0)
	require.NoError(t, err)
	assert.Len(t, comments, 2)
	assert.Equal(t, int64(3), total)
}

func TestCommentService_DeleteComment(t *testing.T) {
	ctx := context.Background()
	st := setupTestStores(t)
	svc := NewCommentService(st.comments, st.likes, st.items)

	item := st.seedItem(t, "scarf")
	root, err := svc.CreateComment(ctx, 1, CreateCommentRequest{ItemID: item.ID, Rating: 2, Content: "meh"})
	require.NoError(t, err)
	reply, err := svc.CreateComment(ctx, 2, CreateCommentRequest{ItemID: item.ID, ParentID: &root.ID, Content: "why"})
	require.NoError(t, err)
	require.NoError(t, st.likes.Create(ctx, &model.Like{UserID: 2, CommentID: root.ID}))
	require.NoError(t, st.likes.Create(ctx, &model.Like{UserID: 1, CommentID: reply.ID}))

	t.Run("other users are refused", func(t *testing.T) {
		err := svc.DeleteComment(ctx, 2, model.RoleUser, root.ID)
		assert.ErrorIs(t, err, ErrForbidden)
	})

	t.Run("author removes the thread", func(t *testing.T) {
		require.NoError(t, svc.DeleteComment(ctx, 1, model.RoleUser, root.ID))
		assert.Zero(t, st.countRows(t, &model.Comment{}))
		assert.Zero(t, st.countRows(t, &model.Like{}))
	})

	t.Run("missing comment", func(t *testing.T) {
		err := svc.DeleteComment(ctx, 1, model.RoleAdmin, root.ID)
		assert.ErrorIs(t, err, ErrCommentNotFound)
	})

	t.Run("admin may delete any comment", func(t *testing.T) {
		c, err := svc.CreateComment(ctx, 5, CreateCommentRequest{ItemID: item.ID, Rating: 1, Content: "bad"})
		require.NoError(t, err)
		assert.NoError(t, svc.DeleteComment(ctx, 99, model.RoleAdmin, c.ID))
	})
}
