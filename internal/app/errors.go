package app

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"

	"shopback/internal/service"
	"shopback/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

// respondError maps service errors onto HTTP statuses.
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrItemNotFound),
		errors.Is(err, service.ErrCommentNotFound),
		errors.Is(err, service.ErrLikeNotFound),
		errors.Is(err, service.ErrUserNotFound):
		util.NotFound(c, err.Error())
	case errors.Is(err, service.ErrUpstreamAsset):
		log.Printf("Upstream asset error: %v", err)
		util.ErrorResponse(c, http.StatusBadGateway, service.ErrUpstreamAsset.Error(), nil)
	case errors.Is(err, service.ErrInvalidItem),
		errors.Is(err, service.ErrImageRequired),
		errors.Is(err, service.ErrInvalidComment):
		util.BadRequest(c, err.Error())
	case errors.Is(err, service.ErrEmailTaken):
		util.ErrorResponse(c, http.StatusConflict, err.Error(), nil)
	case errors.Is(err, service.ErrForbidden):
		util.Forbidden(c, err.Error())
	case errors.Is(err, service.ErrInvalidCredentials):
		util.Unauthorized(c, err.Error())
	default:
		log.Printf("Internal error on %s %s: %v", c.Request.Method, c.FullPath(), err)
		util.InternalServerError(c, "Internal server error")
	}
}

// bindingError answers a failed ShouldBind with a readable 400.
func bindingError(c *gin.Context, err error) {
	var validationErr validator.ValidationErrors
	if !errors.As(err, &validationErr) {
		util.BadRequest(c, "Invalid request body")
		return
	}

	messages := make([]string, 0, len(validationErr))
	for _, fieldErr := range validationErr {
		messages = append(messages, fieldMessage(fieldErr))
	}
	util.ErrorResponse(c, http.StatusBadRequest, messages[0], messages)
}

func fieldMessage(fieldErr validator.FieldError) string {
	field := toSnake(fieldErr.Field())
	switch fieldErr.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "email":
		return fmt.Sprintf("%s must be a valid email", field)
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", field, fieldErr.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", field, fieldErr.Param())
	case "gte":
		return fmt.Sprintf("%s must be %s or greater", field, fieldErr.Param())
	case "lte":
		return fmt.Sprintf("%s must be %s or less", field, fieldErr.Param())
	case "datetime":
		return fmt.Sprintf("%s must use the format %s", field, fieldErr.Param())
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}

func toSnake(name string) string {
	var b strings.Builder
	for i, r := range name {
		if r >= 'A' && r <= 'Z' {
			if i > 0 {
				b.WriteByte('_')
			}
			r += 'a' - 'A'
		}
		b.WriteRune(r)
	}
	return b.String()
}
