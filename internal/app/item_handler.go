package app

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"shopback/internal/service"
	"shopback/internal/util"

	"github.com/gin-gonic/gin"
)

const maxImageSize = 10 << 20 // 10MB

type ItemHandler struct {
	itemService service.ItemService
}

func NewItemHandler(itemService service.ItemService) *ItemHandler {
	return &ItemHandler{itemService: itemService}
}

// ListItems handles the paged catalog listing
// GET /api/v1/items?page=&size=
func (h *ItemHandler) ListItems(c *gin.Context) {
	page, size := pageQuery(c)

	items, total, err := h.itemService.ListItems(c.Request.Context(), page, size)
	if err != nil {
		respondError(c, err)
		return
	}

	util.SuccessResponse(c, http.StatusOK, "Items retrieved successfully", gin.H{
		"items": items,
		"total": total,
		"page":  page,
		"size":  size,
	})
}

// SearchItems handles name search
// GET /api/v1/items/search?q=&page=&size=
func (h *ItemHandler) SearchItems(c *gin.Context) {
	page, size := pageQuery(c)
	query := c.Query("q")

	items, err := h.itemService.SearchItemsByName(c.Request.Context(), page, size, query)
	if err != nil {
		respondError(c, err)
		return
	}

	util.SuccessResponse(c, http.StatusOK, "Items retrieved successfully", gin.H{
		"items": items,
		"query": query,
		"page":  page,
		"size":  size,
	})
}

// GetItem handles getting an item by ID
// GET /api/v1/items/:id
func (h *ItemHandler) GetItem(c *gin.Context) {
	id, ok := itemIDParam(c)
	if !ok {
		return
	}

	item, err := h.itemService.GetItem(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	util.SuccessResponse(c, http.StatusOK, "Item retrieved successfully", gin.H{"item": item})
}

// CreateItem handles item creation from a multipart form with an "image" file
// POST /api/v1/items
func (h *ItemHandler) CreateItem(c *gin.Context) {
	var form service.ItemForm
	if err := c.ShouldBind(&form); err != nil {
		bindingError(c, err)
		return
	}

	image, filename, err := readImage(c)
	if err != nil {
		util.BadRequest(c, err.Error())
		return
	}

	item, err := h.itemService.CreateItem(c.Request.Context(), form, image, filename)
	if err != nil {
		respondError(c, err)
		return
	}

	util.SuccessResponse(c, http.StatusCreated, "Item created successfully", gin.H{"item": item})
}

// UpdateItem replaces an item; the image file is optional
// PUT /api/v1/items/:id
func (h *ItemHandler) UpdateItem(c *gin.Context) {
	id, ok := itemIDParam(c)
	if !ok {
		return
	}

	var form service.ItemForm
	if err := c.ShouldBind(&form); err != nil {
		bindingError(c, err)
		return
	}

	image, filename, err := readImage(c)
	if err != nil {
		util.BadRequest(c, err.Error())
		return
	}

	item, err := h.itemService.UpdateItem(c.Request.Context(), id, form, image, filename)
	if err != nil {
		respondError(c, err)
		return
	}

	util.SuccessResponse(c, http.StatusOK, "Item updated successfully", gin.H{"item": item})
}

// DeleteItem removes an item with its comments, likes and image
// DELETE /api/v1/items/:id
func (h *ItemHandler) DeleteItem(c *gin.Context) {
	id, ok := itemIDParam(c)
	if !ok {
		return
	}

	// the image to delete is always the stored one
	item, err := h.itemService.GetItem(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	if err := h.itemService.DeleteItem(c.Request.Context(), id, item.ImageURL); err != nil {
		respondError(c, err)
		return
	}

	util.SuccessResponse(c, http.StatusOK, "Item deleted successfully", nil)
}

func itemIDParam(c *gin.Context) (int, bool) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id < 1 {
		util.BadRequest(c, "Invalid item ID")
		return 0, false
	}
	return id, true
}

// pageQuery reads page and size; the service clamps out-of-range values.
func pageQuery(c *gin.Context) (int, int) {
	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil {
		page = 1
	}
	size, err := strconv.Atoi(c.DefaultQuery("size", strconv.Itoa(service.DefaultPageSize)))
	if err != nil {
		size = service.DefaultPageSize
	}
	if page < 1 {
		page = 1
	}
	if size < 1 {
		size = service.DefaultPageSize
	}
	return page, size
}

// readImage returns the "image" form file, or nil when none was sent.
func readImage(c *gin.Context) ([]byte, string, error) {
	fileHeader, err := c.FormFile("image")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
			return nil, "", nil
		}
		return nil, "", fmt.Errorf("failed to read image: %w", err)
	}
	if fileHeader.Size > maxImageSize {
		return nil, "", fmt.Errorf("image %s exceeds 10MB limit", fileHeader.Filename)
	}

	file, err := fileHeader.Open()
	if err != nil {
		return nil, "", fmt.Errorf("failed to open image: %w", err)
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxImageSize+1))
	if err != nil {
		return nil, "", fmt.Errorf("failed to read image: %w", err)
	}
	if len(data) > maxImageSize {
		return nil, "", fmt.Errorf("image %s exceeds 10MB limit", fileHeader.Filename)
	}
	return data, fileHeader.Filename, nil
}
