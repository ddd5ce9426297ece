package service

import (
	"testing"

	"shopback/internal/model"
	"shopback/internal/repository"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type testStores struct {
	db       *gorm.DB
	items    repository.ItemRepository
	comments repository.CommentRepository
	likes    repository.LikeRepository
	users    repository.UserRepository
}

func setupTestStores(t *testing.T) *testStores {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err, "failed to open test database")

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(&model.User{}, &model.Item{}, &model.Comment{}, &model.Like{}))

	return &testStores{
		db:       db,
		items:    repository.NewItemRepository(db, nil),
		comments: repository.NewCommentRepository(db, nil),
		likes:    repository.NewLikeRepository(db),
		users:    repository.NewUserRepository(db),
	}
}

func (s *testStores) seedItem(t *testing.T, name string) *model.Item {
	t.Helper()
	item := &model.Item{Name: name, ImageURL: "https://img.test/" + name, Category: model.CategoryShoes, Stock: 1}
	require.NoError(t, s.db.Create(item).Error)
	return item
}

func (s *testStores) countRows(t *testing.T, m interface{}) int64 {
	t.Helper()
	var n int64
	require.NoError(t, s.db.Model(m).Count(&n).Error)
	return n
}
