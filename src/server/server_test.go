package server

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"DataInsight/src/config"
	"DataInsight/src/report"
	"DataInsight/src/storage"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const salesCSV = `Name,Platform,Year,Genre,NA_Sales,EU_Sales,Global_Sales
Wii Sports,Wii,2006,Sports,41.49,29.02,82.74
Super Mario Bros.,NES,1985,Platform,29.08,3.58,40.24
Mario Kart Wii,Wii,2008,Racing,15.85,12.88,35.82
Tetris,GB,1989,Puzzle,23.2,2.26,30.26
`

func newTestServer(t *testing.T) (*httptest.Server, *storage.Logger) {
	t.Helper()
	dir := t.TempDir()

	logger, err := storage.NewLogger(filepath.Join(dir, "app.log"), storage.Options{})
	require.NoError(t, err)
	t.Cleanup(func() { logger.Close() })

	input := filepath.Join(dir, "vgsales.csv")
	require.NoError(t, os.WriteFile(input, []byte(salesCSV), 0644))

	cfg := config.Default()
	cfg.Output.ChartDir = filepath.Join(dir, "charts")
	reg := prometheus.NewRegistry()
	gen := report.New(cfg, config.DefaultData(), logger, io.Discard, report.NewMetrics(reg))
	gen.ChartOptions.Width, gen.ChartOptions.Height = 480, 320

	s := &Server{
		Generator: gen,
		Source:    report.PathSource(input),
		Logger:    logger,
		Gatherer:  reg,
	}
	ts := httptest.NewServer(s.Routes())
	t.Cleanup(ts.Close)
	return ts, logger
}

func get(t *testing.T, url string) (*http.Response, []byte) {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, body
}

func TestReportAndCharts(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, _ := get(t, ts.URL+"/report")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = get(t, ts.URL+"/charts/sales_trend.png")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	runResp, err := http.Post(ts.URL+"/run", "application/json", nil)
	require.NoError(t, err)
	runResp.Body.Close()
	assert.Equal(t, http.StatusOK, runResp.StatusCode)

	resp, body := get(t, ts.URL+"/report")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var view map[string]interface{}
	require.NoError(t, json.Unmarshal(body, &view))
	assert.Equal(t, float64(4), view["rows"])
	assert.Equal(t, "Platform", view["group_by"])

	resp, body = get(t, ts.URL+"/charts/sales_trend.png")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "image/png", resp.Header.Get("Content-Type"))
	assert.True(t, strings.HasPrefix(string(body), "\x89PNG"))

	resp, _ = get(t, ts.URL+"/charts/unknown.png")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp, _ = get(t, ts.URL+"/charts/app.log")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, body = get(t, ts.URL+"/metrics")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `datainsight_report_runs_total{outcome="success"} 1`)
}

func TestStreamLogs(t *testing.T) {
	ts, logger := newTestServer(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL+"/logs", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/plain; charset=utf-8", resp.Header.Get("Content-Type"))

	lines := make(chan string, 100)
	go func() {
		scanner := bufio.NewScanner(resp.Body)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
		close(lines)
	}()

	// 订阅在处理函数中完成，持续写日志直到收到
	ticker := time.NewTicker(20 * time.Millisecond)
	defer ticker.Stop()
	deadline := time.After(5 * time.Second)
	for {
		select {
		case <-ticker.C:
			logger.Info("hello from test")
		case line, ok := <-lines:
			require.True(t, ok, "日志流提前结束")
			assert.Contains(t, line, "INFO: hello from test")
			return
		case <-deadline:
			t.Fatal("未收到日志")
		}
	}
}
