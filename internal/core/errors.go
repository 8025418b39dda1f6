package core

import "errors"

var (
	ErrNotFound      = errors.New("not found")
	ErrCategoryInUse = errors.New("category is still referenced")
	ErrInvalidBackup = errors.New("invalid backup file format")
	ErrInvalidTheme  = errors.New("invalid theme")
)
