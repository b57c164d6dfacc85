// email_handler.go
package email

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"DataInsight/src/storage"
)

// ====================== 邮件处理器实现 ======================

// AttachmentHandler 把目标邮件的数据附件保存到DataDir，并记录已处理的UID
type AttachmentHandler struct {
	TargetSubject string          // 目标邮件主题关键词
	DataDir       string          // 附件保存目录
	processedUIDs map[uint32]bool // 已处理邮件UID记录
	mu            sync.RWMutex    // 保护processedUIDs的读写锁
}

func NewAttachmentHandler(subject, dataDir string) *AttachmentHandler {
	return &AttachmentHandler{
		TargetSubject: subject,
		DataDir:       dataDir,
		processedUIDs: make(map[uint32]bool),
	}
}

// IsProcessed 检查邮件是否已处理过（线程安全）
func (h *AttachmentHandler) IsProcessed(uid uint32) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.processedUIDs[uid]
}

// markAsProcessed 标记邮件为已处理（线程安全）
func (h *AttachmentHandler) markAsProcessed(uid uint32) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.processedUIDs[uid] = true
}

// Handle 保存邮件中的第一个数据附件并返回保存路径
// 已处理过、主题不匹配或没有数据附件时返回空路径
func (h *AttachmentHandler) Handle(email *Email, logger *storage.Logger) (string, error) {
	if h.IsProcessed(email.UID) {
		return "", nil
	}

	if !strings.Contains(email.Subject, h.TargetSubject) {
		logger.Debug(fmt.Sprintf("跳过主题不匹配的邮件: %s", email.Subject))
		return "", nil
	}

	attachment := email.DataAttachment()
	if attachment == nil {
		logger.Debug(fmt.Sprintf("邮件没有数据附件: %s", email.Subject))
		return "", nil
	}

	logger.Info(fmt.Sprintf("处理邮件: %s 发件人: %s 日期: %s",
		email.Subject, email.From, email.Date.Format("2006-01-02 15:04:05")))

	if err := os.MkdirAll(h.DataDir, 0755); err != nil {
		return "", fmt.Errorf("创建目录失败: %w", err)
	}

	// 附件名只取文件名部分，不允许写到DataDir之外
	filePath := filepath.Join(h.DataDir, filepath.Base(attachment.Filename))
	if err := os.WriteFile(filePath, attachment.Content, 0644); err != nil {
		return "", fmt.Errorf("保存附件失败: %w", err)
	}

	logger.Info("附件已保存到: " + filePath)
	h.markAsProcessed(email.UID)
	return filePath, nil
}

// MailboxSource 以邮箱中最新的数据附件作为报表输入
type MailboxSource struct {
	Service MailService
	Handler *AttachmentHandler
	Logger  *storage.Logger
}

// Fetch 检查邮箱并保存新附件，返回附件路径；没有新数据时返回空路径
func (s *MailboxSource) Fetch(ctx context.Context) (string, error) {
	email, err := CheckAndProcessEmails(ctx, s.Service, s.Handler.TargetSubject, s.Logger)
	if err != nil || email == nil {
		return "", err
	}
	return s.Handler.Handle(email, s.Logger)
}

func (s *MailboxSource) String() string {
	return "mailbox:" + s.Handler.TargetSubject
}
