package service

import "errors"

var (
	ErrItemNotFound       = errors.New("item not found")
	ErrInvalidItem        = errors.New("invalid item")
	ErrImageRequired      = errors.New("item image is required")
	ErrUpstreamAsset      = errors.New("image storage failed")
	ErrCommentNotFound    = errors.New("comment not found")
	ErrInvalidComment     = errors.New("invalid comment")
	ErrLikeNotFound       = errors.New("like not found")
	ErrForbidden          = errors.New("forbidden")
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrUserNotFound       = errors.New("user not found")
)
