package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseArgs(t *testing.T) {
	var stderr bytes.Buffer

	opts, err := parseArgs(nil, &stderr)
	require.NoError(t, err)
	assert.Equal(t, modeReport, opts.mode)
	assert.Equal(t, "./config", opts.configDir)

	opts, err = parseArgs([]string{"report", "-input", "x.csv", "-watch", "-serve", ":9090"}, &stderr)
	require.NoError(t, err)
	assert.Equal(t, "x.csv", opts.input)
	assert.True(t, opts.watch)
	assert.Equal(t, ":9090", opts.serve)

	opts, err = parseArgs([]string{"upper"}, &stderr)
	require.NoError(t, err)
	assert.Equal(t, modeUpper, opts.mode)

	_, err = parseArgs([]string{"plot"}, &stderr)
	assert.ErrorContains(t, err, "未知模式")

	_, err = parseArgs([]string{"-watch", "extra"}, &stderr)
	assert.ErrorContains(t, err, "未知参数")
}

func TestRunHeroes(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := run(context.Background(), []string{"heroes"}, strings.NewReader(""), &stdout, &stderr)
	assert.Equal(t, 0, code)
	assert.Contains(t, stdout.String(), "=== Experience System ===")
}

func TestRunUpper(t *testing.T) {
	path := filepath.Join(t.TempDir(), "note.txt")
	require.NoError(t, os.WriteFile(path, []byte("go"), 0644))

	var stdout, stderr bytes.Buffer
	code := run(context.Background(), []string{"upper"}, strings.NewReader(path+"\n"), &stdout, &stderr)
	assert.Equal(t, 0, code)

	data, err := os.ReadFile(filepath.Join(filepath.Dir(path), "note_modified.txt"))
	require.NoError(t, err)
	assert.Equal(t, "GO", string(data))
}

func TestRunReportOnce(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "sales.csv")
	require.NoError(t, os.WriteFile(input, []byte(`Name,Platform,Year,Genre,NA_Sales,EU_Sales,Global_Sales
Wii Sports,Wii,2006,Sports,41.49,29.02,82.74
Super Mario Bros.,NES,1985,Platform,29.08,3.58,40.24
Mario Kart Wii,Wii,2008,Racing,15.85,12.88,35.82
`), 0644))

	cfg := `{
  "output": {"chart_dir": "` + filepath.ToSlash(filepath.Join(dir, "charts")) + `"},
  "log_name": "` + filepath.ToSlash(filepath.Join(dir, "app.log")) + `",
  "log_console": false
}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, configFile), []byte(cfg), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, dataConfigFile), []byte(`{"top_n": 5}`), 0644))

	var stdout, stderr bytes.Buffer
	code := run(context.Background(), []string{"-config", dir, "-input", input}, strings.NewReader(""), &stdout, &stderr)
	assert.Equal(t, 0, code, stderr.String())
	assert.Contains(t, stdout.String(), "Data loaded successfully!")
	assert.FileExists(t, filepath.Join(dir, "charts", "sales_trend.png"))
}
