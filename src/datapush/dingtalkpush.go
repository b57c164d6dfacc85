package datapush

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// 常量定义
const (
	RETRY_TIMES    = 3               // 发送失败重试次数
	RETRY_INTERVAL = 2 * time.Second // 重试间隔
)

// DingTalkResponse 钉钉接口通用响应
type DingTalkResponse struct {
	ErrCode int    `json:"errcode"`
	ErrMsg  string `json:"errmsg"`
}

type markdownMessage struct {
	MsgType  string `json:"msgtype"`
	Markdown struct {
		Title string `json:"title"`
		Text  string `json:"text"`
	} `json:"markdown"`
}

// DingTalkRobot 钉钉群自定义机器人，用于推送报表摘要
type DingTalkRobot struct {
	Webhook       string        // 机器人webhook地址(含access_token)
	Secret        string        // 加签密钥，为空不加签
	Client        *http.Client  // 为nil时使用http.DefaultClient
	RetryInterval time.Duration // 重试间隔，为0时使用RETRY_INTERVAL
}

// NewDingTalkRobot 创建机器人
func NewDingTalkRobot(webhook, secret string) *DingTalkRobot {
	return &DingTalkRobot{Webhook: webhook, Secret: secret}
}

// SendMarkdown 发送markdown消息，失败时重试
func (r *DingTalkRobot) SendMarkdown(ctx context.Context, title, text string) error {
	msg := markdownMessage{MsgType: "markdown"}
	msg.Markdown.Title = title
	msg.Markdown.Text = text

	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("序列化消息失败: %w", err)
	}

	interval := r.RetryInterval
	if interval <= 0 {
		interval = RETRY_INTERVAL
	}

	var lastErr error
	for attempt := 0; attempt < RETRY_TIMES; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(interval):
			}
		}
		if lastErr = r.post(ctx, payload); lastErr == nil {
			return nil
		}
	}
	return fmt.Errorf("推送钉钉消息失败(重试%d次): %w", RETRY_TIMES, lastErr)
}

func (r *DingTalkRobot) post(ctx context.Context, payload []byte) error {
	target, err := r.signedURL(time.Now())
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("创建请求失败: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	client := r.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("发送请求失败: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("读取响应失败: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("响应状态码 %d", resp.StatusCode)
	}

	var result DingTalkResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return fmt.Errorf("解析响应失败: %w", err)
	}
	if result.ErrCode != 0 {
		return fmt.Errorf("钉钉返回错误: %s", result.ErrMsg)
	}
	return nil
}

// signedURL 设置了Secret时在webhook上追加timestamp和sign参数
func (r *DingTalkRobot) signedURL(now time.Time) (string, error) {
	u, err := url.Parse(r.Webhook)
	if err != nil {
		return "", fmt.Errorf("webhook地址无效: %w", err)
	}
	if r.Secret == "" {
		return u.String(), nil
	}

	timestamp := strconv.FormatInt(now.UnixMilli(), 10)
	q := u.Query()
	q.Set("timestamp", timestamp)
	q.Set("sign", Sign(timestamp, r.Secret))
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// Sign 钉钉加签：HmacSHA256(timestamp+"\n"+secret)后做base64
func Sign(timestamp, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(timestamp + "\n" + secret))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}
