// mail.go
package datapush

import (
	"crypto/tls"
	"fmt"
	"net"
	"net/smtp"
	"os"
	"strings"

	"github.com/jordan-wright/email"
)

// sendFunc 实际发送邮件，测试时可替换
type sendFunc func(e *email.Email, addr string, auth smtp.Auth, cfg *tls.Config) error

// Mailer 通过SMTP(SSL)发送报表邮件
type Mailer struct {
	server   string
	username string
	password string
	send     sendFunc
}

// NewMailer 创建邮件发送器，server不带端口时使用465
func NewMailer(server, username, password string) *Mailer {
	if !strings.Contains(server, ":") {
		server += ":465" // 默认 SSL 端口
	}
	return &Mailer{
		server:   server,
		username: username,
		password: password,
		send: func(e *email.Email, addr string, auth smtp.Auth, cfg *tls.Config) error {
			return e.SendWithTLS(addr, auth, cfg)
		},
	}
}

// Compose 组装邮件，不存在的附件会导致错误
func (m *Mailer) Compose(to []string, subject, body string, attachments ...string) (*email.Email, error) {
	if len(to) == 0 {
		return nil, fmt.Errorf("收件人为空")
	}

	e := email.NewEmail()
	e.From = fmt.Sprintf("DataInsight <%s>", m.username)
	e.To = to
	e.Subject = subject
	e.Text = []byte(body)

	for _, path := range attachments {
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("附件文件不存在: %s: %w", path, err)
		}
		if _, err := e.AttachFile(path); err != nil {
			return nil, fmt.Errorf("附件添加失败: %w", err)
		}
	}
	return e, nil
}

// Send 发送带附件的邮件（显式 TLS）
func (m *Mailer) Send(to []string, subject, body string, attachments ...string) error {
	e, err := m.Compose(to, subject, body, attachments...)
	if err != nil {
		return err
	}

	host, _, err := net.SplitHostPort(m.server)
	if err != nil {
		return fmt.Errorf("SMTP服务器地址无效 %s: %w", m.server, err)
	}

	err = m.send(e, m.server,
		smtp.PlainAuth("", m.username, m.password, host),
		&tls.Config{ServerName: host},
	)
	if err != nil {
		return fmt.Errorf("邮件发送失败: %w (Server: %s)", err, m.server)
	}
	return nil
}
