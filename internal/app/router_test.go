package app

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"shopback/internal/model"
	"shopback/internal/repository"
	"shopback/internal/service"
	"shopback/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const testJWTSecret = "router-test-secret"

type memoryImages struct {
	stored    map[string]bool
	n         int
	uploadErr error
}

func (m *memoryImages) Upload(ctx context.Context, data []byte, filename string) (string, error) {
	if m.uploadErr != nil {
		return "", m.uploadErr
	}
	m.n++
	url := fmt.Sprintf("https://img.test/items/%d-%s", m.n, filename)
	m.stored[url] = true
	return url, nil
}

func (m *memoryImages) Delete(ctx context.Context, url string) bool {
	if !m.stored[url] {
		return false
	}
	delete(m.stored, url)
	return true
}

func (m *memoryImages) Overwrite(ctx context.Context, data []byte, existingURL string) (string, error) {
	if m.uploadErr != nil {
		return "", m.uploadErr
	}
	return existingURL, nil
}

type testServer struct {
	engine *gin.Engine
	db     *gorm.DB
	images *memoryImages
	admin  string
	user   string
	other  string
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })
	require.NoError(t, db.AutoMigrate(&model.User{}, &model.Item{}, &model.Comment{}, &model.Like{}))

	userRepo := repository.NewUserRepository(db)
	itemRepo := repository.NewItemRepository(db, nil)
	commentRepo := repository.NewCommentRepository(db, nil)
	likeRepo := repository.NewLikeRepository(db)
	images := &memoryImages{stored: map[string]bool{}}

	authService := service.NewAuthService(userRepo, testJWTSecret, time.Hour, nil)
	itemService := service.NewItemService(itemRepo, commentRepo, likeRepo, images)

	r := gin.New()
	registerRoutes(r, Handlers{
		Auth:    NewAuthHandler(authService, testJWTSecret),
		Item:    NewItemHandler(itemService),
		Comment: NewCommentHandler(service.NewCommentService(commentRepo, likeRepo, itemRepo)),
		Like:    NewLikeHandler(service.NewLikeService(likeRepo, commentRepo)),
		Admin:   NewAdminHandler(service.NewSweeper(commentRepo, likeRepo)),
	})

	token := func(id int64, role string) string {
		tok, err := util.GenerateToken(id, fmt.Sprintf("u%d@shop.test", id), role, testJWTSecret, time.Hour)
		require.NoError(t, err)
		return tok
	}

	return &testServer{
		engine: r,
		db:     db,
		images: images,
		admin:  token(1, model.RoleAdmin),
		user:   token(2, model.RoleUser),
		other:  token(3, model.RoleUser),
	}
}

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func (s *testServer) do(t *testing.T, method, path, token string, body *bytes.Buffer, contentType string) (int, envelope) {
	t.Helper()
	if body == nil {
		body = &bytes.Buffer{}
	}
	req := httptest.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)

	var env envelope
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	}
	return w.Code, env
}

func (s *testServer) doJSON(t *testing.T, method, path, token string, payload interface{}) (int, envelope) {
	t.Helper()
	b, err := json.Marshal(payload)
	require.NoError(t, err)
	return s.do(t, method, path, token, bytes.NewBuffer(b), "application/json")
}

func itemForm(t *testing.T, fields map[string]string, image []byte) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	mw := multipart.NewWriter(body)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if image != nil {
		fw, err := mw.CreateFormFile("image", "photo.jpg")
		require.NoError(t, err)
		_, err = fw.Write(image)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return body, mw.FormDataContentType()
}

func jacketFields() map[string]string {
	return map[string]string{
		"name":         "Field Jacket",
		"description":  "waxed cotton",
		"brand":        "Acme",
		"category":     "OUTER",
		"stock":        "3",
		"origin_price": "150000",
		"price":        "120000",
	}
}

func decodeItem(t *testing.T, env envelope) service.ItemView {
	t.Helper()
	var data struct {
		Item service.ItemView `json:"item"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &data))
	return data.Item
}

func TestItemLifecycle(t *testing.T) {
	s := newTestServer(t)

	body, ct := itemForm(t, jacketFields(), []byte("fake-jpeg"))
	code, env := s.do(t, http.MethodPost, "/api/v1/items", s.admin, body, ct)
	require.Equal(t, http.StatusCreated, code, env.Message)
	created := decodeItem(t, env)
	assert.Equal(t, "Field Jacket", created.Name)
	assert.True(t, s.images.stored[created.ImageURL])
	itemPath := fmt.Sprintf("/api/v1/items/%d", created.ID)

	t.Run("read without rating", func(t *testing.T) {
		code, env := s.do(t, http.MethodGet, itemPath, "", nil, "")
		require.Equal(t, http.StatusOK, code)
		assert.Contains(t, string(env.Data), `"average_rating":null`)
	})

	t.Run("list and search", func(t *testing.T) {
		code, env := s.do(t, http.MethodGet, "/api/v1/items?page=0&size=5", "", nil, "")
		require.Equal(t, http.StatusOK, code)
		assert.Contains(t, string(env.Data), `"total":1`)
		assert.Contains(t, string(env.Data), `"page":1`)

		code, env = s.do(t, http.MethodGet, "/api/v1/items/search?q=JACKET", "", nil, "")
		require.Equal(t, http.StatusOK, code)
		assert.Contains(t, string(env.Data), "Field Jacket")
	})

	t.Run("update keeps the image", func(t *testing.T) {
		fields := jacketFields()
		fields["name"] = "Field Jacket II"
		body, ct := itemForm(t, fields, nil)
		code, env := s.do(t, http.MethodPut, itemPath, s.admin, body, ct)
		require.Equal(t, http.StatusOK, code, env.Message)
		updated := decodeItem(t, env)
		assert.Equal(t, "Field Jacket II", updated.Name)
		assert.Equal(t, created.ImageURL, updated.ImageURL)
	})

	var rootID int64
	t.Run("comments, replies and likes", func(t *testing.T) {
		code, env := s.doJSON(t, http.MethodPost, "/api/v1/comments", s.user, gin.H{
			"item_id": created.ID, "rating": 4, "content": "fits well",
		})
		require.Equal(t, http.StatusCreated, code, env.Message)
		var data struct {
			Comment model.Comment `json:"comment"`
		}
		require.NoError(t, json.Unmarshal(env.Data, &data))
		rootID = data.Comment.ID

		code, _ = s.doJSON(t, http.MethodPost, "/api/v1/comments", s.other, gin.H{
			"item_id": created.ID, "parent_id": rootID, "content": "agree",
		})
		require.Equal(t, http.StatusCreated, code)

		code, env = s.do(t, http.MethodPost, fmt.Sprintf("/api/v1/comments/%d/like", rootID), s.other, nil, "")
		require.Equal(t, http.StatusOK, code)
		assert.Contains(t, string(env.Data), `"like_count":1`)

		code, env = s.do(t, http.MethodGet, itemPath, "", nil, "")
		require.Equal(t, http.StatusOK, code)
		assert.Contains(t, string(env.Data), `"average_rating":4`)

		code, env = s.do(t, http.MethodGet, itemPath+"/comments", "", nil, "")
		require.Equal(t, http.StatusOK, code)
		assert.Contains(t, string(env.Data), `"total":1`)
		assert.Contains(t, string(env.Data), "agree")
	})

	t.Run("only the author or an admin deletes a comment", func(t *testing.T) {
		code, _ := s.do(t, http.MethodDelete, fmt.Sprintf("/api/v1/comments/%d", rootID), s.other, nil, "")
		assert.Equal(t, http.StatusForbidden, code)
	})

	t.Run("delete cascades", func(t *testing.T) {
		code, env := s.do(t, http.MethodDelete, itemPath, s.admin, nil, "")
		require.Equal(t, http.StatusOK, code, env.Message)

		var comments, likes int64
		require.NoError(t, s.db.Model(&model.Comment{}).Count(&comments).Error)
		require.NoError(t, s.db.Model(&model.Like{}).Count(&likes).Error)
		assert.Zero(t, comments)
		assert.Zero(t, likes)
		assert.Empty(t, s.images.stored)

		code, _ = s.do(t, http.MethodGet, itemPath, "", nil, "")
		assert.Equal(t, http.StatusNotFound, code)
		code, _ = s.do(t, http.MethodDelete, itemPath, s.admin, nil, "")
		assert.Equal(t, http.StatusNotFound, code)
	})
}

func TestItemRoutes_Errors(t *testing.T) {
	s := newTestServer(t)

	t.Run("anonymous create", func(t *testing.T) {
		body, ct := itemForm(t, jacketFields(), []byte("x"))
		code, _ := s.do(t, http.MethodPost, "/api/v1/items", "", body, ct)
		assert.Equal(t, http.StatusUnauthorized, code)
	})

	t.Run("non-admin create", func(t *testing.T) {
		body, ct := itemForm(t, jacketFields(), []byte("x"))
		code, _ := s.do(t, http.MethodPost, "/api/v1/items", s.user, body, ct)
		assert.Equal(t, http.StatusForbidden, code)
	})

	t.Run("missing image", func(t *testing.T) {
		body, ct := itemForm(t, jacketFields(), nil)
		code, env := s.do(t, http.MethodPost, "/api/v1/items", s.admin, body, ct)
		assert.Equal(t, http.StatusBadRequest, code)
		assert.Equal(t, service.ErrImageRequired.Error(), env.Message)
	})

	t.Run("missing name", func(t *testing.T) {
		fields := jacketFields()
		delete(fields, "name")
		body, ct := itemForm(t, fields, []byte("x"))
		code, env := s.do(t, http.MethodPost, "/api/v1/items", s.admin, body, ct)
		assert.Equal(t, http.StatusBadRequest, code)
		assert.Equal(t, "name is required", env.Message)
	})

	t.Run("upload failure", func(t *testing.T) {
		s.images.uploadErr = errors.New("cloud down")
		defer func() { s.images.uploadErr = nil }()

		body, ct := itemForm(t, jacketFields(), []byte("x"))
		code, _ := s.do(t, http.MethodPost, "/api/v1/items", s.admin, body, ct)
		assert.Equal(t, http.StatusBadGateway, code)
	})

	t.Run("bad id", func(t *testing.T) {
		code, _ := s.do(t, http.MethodGet, "/api/v1/items/abc", "", nil, "")
		assert.Equal(t, http.StatusBadRequest, code)
	})
}

func TestAuthRoutes(t *testing.T) {
	s := newTestServer(t)

	code, env := s.doJSON(t, http.MethodPost, "/api/v1/auth/register", "", gin.H{
		"email": "kim@shop.test", "password": "short", "username": "kim",
	})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "password must be at least 8 characters", env.Message)

	code, _ = s.doJSON(t, http.MethodPost, "/api/v1/auth/register", "", gin.H{
		"email": "kim@shop.test", "password": "long enough", "username": "kim",
	})
	require.Equal(t, http.StatusCreated, code)

	code, _ = s.doJSON(t, http.MethodPost, "/api/v1/auth/register", "", gin.H{
		"email": "kim@shop.test", "password": "long enough", "username": "kim",
	})
	assert.Equal(t, http.StatusConflict, code)

	code, _ = s.doJSON(t, http.MethodPost, "/api/v1/auth/login", "", gin.H{
		"email": "kim@shop.test", "password": "wrong password",
	})
	assert.Equal(t, http.StatusUnauthorized, code)

	code, env = s.doJSON(t, http.MethodPost, "/api/v1/auth/login", "", gin.H{
		"email": "kim@shop.test", "password": "long enough",
	})
	require.Equal(t, http.StatusOK, code)
	var login service.AuthResponse
	require.NoError(t, json.Unmarshal(env.Data, &login))

	code, env = s.do(t, http.MethodGet, "/api/v1/auth/me", login.AccessToken, nil, "")
	require.Equal(t, http.StatusOK, code)
	assert.Contains(t, string(env.Data), "kim@shop.test")

	code, _ = s.do(t, http.MethodGet, "/api/v1/auth/me", "not-a-token", nil, "")
	assert.Equal(t, http.StatusUnauthorized, code)
}

func TestAdminSweepAndHealth(t *testing.T) {
	s := newTestServer(t)

	code, _ := s.do(t, http.MethodPost, "/api/v1/admin/sweep", s.user, nil, "")
	assert.Equal(t, http.StatusForbidden, code)

	code, env := s.do(t, http.MethodPost, "/api/v1/admin/sweep", s.admin, nil, "")
	require.Equal(t, http.StatusOK, code)
	assert.Contains(t, string(env.Data), `"passes":1`)

	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}
