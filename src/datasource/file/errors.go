package file

import "errors"

var (
	// ErrNotFound 输入路径不存在
	ErrNotFound = errors.New("file not found")
	// ErrFormat 文件内容无法解析为表格(空文件、二进制、编码错误、非分隔文本等)
	ErrFormat = errors.New("invalid file format")
)
