package table

import "errors"

// ErrColumnNotFound 指定列不存在
var ErrColumnNotFound = errors.New("column not found")
