package datapush

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/smtp"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"github.com/jordan-wright/email"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestSaveToExcel(t *testing.T) {
	data := dataframe.New(
		series.New([]string{"Wii", "NES"}, series.String, "Platform"),
		series.New([]string{"82.74", "NaN"}, series.Float, "Global_Sales"),
	)
	stats := dataframe.New(
		series.New([]string{"count", "mean"}, series.String, "stat"),
		series.New([]float64{1, 82.74}, series.Float, "Global_Sales"),
	)

	path := filepath.Join(t.TempDir(), "report.xlsx")
	require.NoError(t, SaveToExcel(path, Sheet{Name: "data", Frame: data}, Sheet{Name: "describe", Frame: stats}))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{"data", "describe"}, f.GetSheetList())

	rows, err := f.GetRows("data")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"Platform", "Global_Sales"}, rows[0])
	assert.Equal(t, []string{"Wii", "82.74"}, rows[1])
	assert.Equal(t, []string{"NES"}, rows[2])

	rows, err = f.GetRows("describe")
	require.NoError(t, err)
	assert.Equal(t, []string{"mean", "82.74"}, rows[2])
}

func TestSaveToExcelErrors(t *testing.T) {
	dir := t.TempDir()
	assert.Error(t, SaveToExcel(filepath.Join(dir, "empty.xlsx")))

	bad := dataframe.DataFrame{Err: errors.New("broken")}
	assert.Error(t, SaveToExcel(filepath.Join(dir, "bad.xlsx"), Sheet{Name: "data", Frame: bad}))
}

func TestMailerSend(t *testing.T) {
	attachment := filepath.Join(t.TempDir(), "report.xlsx")
	require.NoError(t, os.WriteFile(attachment, []byte("xlsx"), 0644))

	m := NewMailer("smtp.example.com", "bot@example.com", "secret")
	var (
		sent     *email.Email
		sentAddr string
		sentTLS  *tls.Config
	)
	m.send = func(e *email.Email, addr string, auth smtp.Auth, cfg *tls.Config) error {
		sent, sentAddr, sentTLS = e, addr, cfg
		return nil
	}

	require.NoError(t, m.Send([]string{"boss@example.com"}, "weekly", "see attached", attachment))
	require.NotNil(t, sent)
	assert.Equal(t, "smtp.example.com:465", sentAddr)
	assert.Equal(t, "smtp.example.com", sentTLS.ServerName)
	assert.Equal(t, []string{"boss@example.com"}, sent.To)
	assert.Equal(t, "weekly", sent.Subject)
	require.Len(t, sent.Attachments, 1)
	assert.Equal(t, "report.xlsx", sent.Attachments[0].Filename)
}

func TestMailerErrors(t *testing.T) {
	m := NewMailer("smtp.example.com:587", "bot@example.com", "secret")
	m.send = func(*email.Email, string, smtp.Auth, *tls.Config) error {
		return errors.New("connection refused")
	}

	assert.ErrorContains(t, m.Send(nil, "s", "b"), "收件人为空")
	assert.ErrorContains(t, m.Send([]string{"a@example.com"}, "s", "b", "/no/such/file.png"), "附件文件不存在")
	assert.ErrorContains(t, m.Send([]string{"a@example.com"}, "s", "b"), "connection refused")
}

func TestDingTalkRobotRetries(t *testing.T) {
	var calls int32
	var got markdownMessage
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&calls, 1)
		assert.NotEmpty(t, r.URL.Query().Get("sign"))
		assert.NotEmpty(t, r.URL.Query().Get("timestamp"))
		if n == 1 {
			json.NewEncoder(w).Encode(DingTalkResponse{ErrCode: 130101, ErrMsg: "send too fast"})
			return
		}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		json.NewEncoder(w).Encode(DingTalkResponse{ErrCode: 0, ErrMsg: "ok"})
	}))
	defer srv.Close()

	robot := NewDingTalkRobot(srv.URL+"/robot/send?access_token=abc", "SECabc")
	robot.RetryInterval = time.Millisecond

	require.NoError(t, robot.SendMarkdown(context.Background(), "报表", "## done"))
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
	assert.Equal(t, "markdown", got.MsgType)
	assert.Equal(t, "报表", got.Markdown.Title)
}

func TestDingTalkRobotFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	robot := NewDingTalkRobot(srv.URL, "")
	robot.RetryInterval = time.Millisecond
	err := robot.SendMarkdown(context.Background(), "t", "x")
	assert.ErrorContains(t, err, "500")
}

func TestSign(t *testing.T) {
	// 同样的输入得到同样的签名，不同密钥签名不同
	a := Sign("1700000000000", "SECa")
	assert.Equal(t, a, Sign("1700000000000", "SECa"))
	assert.NotEqual(t, a, Sign("1700000000000", "SECb"))

	r := NewDingTalkRobot("https://oapi.dingtalk.com/robot/send?access_token=x", "")
	u, err := r.signedURL(time.Now())
	require.NoError(t, err)
	assert.Equal(t, "https://oapi.dingtalk.com/robot/send?access_token=x", u)
}
