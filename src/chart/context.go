// context.go
package chart

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
)

// ErrClosed 在已关闭的绘图上下文上绘图
var ErrClosed = errors.New("绘图上下文已关闭")

// Options 绘图参数
type Options struct {
	Width  int // 图片宽度(像素)，默认1024
	Height int // 图片高度(像素)，默认600
}

// RenderContext 一次绘图会话：输出目录、图片尺寸及已生成的文件
// 由Begin获得，使用完毕后调用Close释放
type RenderContext struct {
	dir    string
	width  int
	height int

	mu     sync.Mutex
	closed bool
	files  []string
}

// Begin 创建绘图上下文，输出目录不存在时自动创建
func Begin(dir string, opts Options) (*RenderContext, error) {
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("创建图表目录失败: %w", err)
	}
	if opts.Width <= 0 {
		opts.Width = 1024
	}
	if opts.Height <= 0 {
		opts.Height = 600
	}
	return &RenderContext{dir: dir, width: opts.Width, height: opts.Height}, nil
}

// Dir 输出目录
func (rc *RenderContext) Dir() string { return rc.dir }

// Size 图片尺寸(像素)
func (rc *RenderContext) Size() (int, int) { return rc.width, rc.height }

// Files 本次会话已生成的文件
func (rc *RenderContext) Files() []string {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	return append([]string(nil), rc.files...)
}

// Render 把draw的输出写入输出目录下的name文件
// 先写临时文件再改名，不会留下写了一半的图片
func (rc *RenderContext) Render(name string, draw func(w io.Writer) error) (string, error) {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	if rc.closed {
		return "", ErrClosed
	}

	path := filepath.Join(rc.dir, name)
	tmp, err := os.CreateTemp(rc.dir, name+".*.tmp")
	if err != nil {
		return "", fmt.Errorf("创建图片文件失败: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := draw(tmp); err != nil {
		tmp.Close()
		return "", err
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("写入图片失败: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return "", fmt.Errorf("保存图片失败: %w", err)
	}

	rc.files = append(rc.files, path)
	return path, nil
}

// Close 结束绘图会话，之后的Render返回ErrClosed。可重复调用
func (rc *RenderContext) Close() error {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	rc.closed = true
	return nil
}
