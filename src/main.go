package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"math/rand"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"DataInsight/src/config"
	"DataInsight/src/datasource/email"
	"DataInsight/src/datasource/file"
	"DataInsight/src/hero"
	"DataInsight/src/report"
	"DataInsight/src/server"
	"DataInsight/src/storage"
	"DataInsight/src/textfile"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/robfig/cron"
)

// 运行模式
const (
	modeReport = "report"
	modeUpper  = "upper"
	modeHeroes = "heroes"
)

const (
	configFile     = "config.json"
	dataConfigFile = "dataconfig.json"
)

// options 命令行参数
type options struct {
	mode      string
	configDir string
	input     string
	watch     bool
	serve     string
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	os.Exit(run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

// run 解析参数并执行对应模式，返回进程退出码
func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	opts, err := parseArgs(args, stderr)
	if errors.Is(err, flag.ErrHelp) {
		return 0
	}
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 2
	}

	switch opts.mode {
	case modeUpper:
		textfile.Run(stdin, stdout)
		return 0
	case modeHeroes:
		hero.Demonstrate(stdout, rand.New(rand.NewSource(time.Now().UnixNano())))
		return 0
	}

	if err := runReport(ctx, opts, stdout, stderr); err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	return 0
}

// parseArgs 第一个非"-"开头的参数为运行模式，默认report
func parseArgs(args []string, stderr io.Writer) (*options, error) {
	opts := &options{mode: modeReport}
	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		opts.mode = args[0]
		args = args[1:]
	}

	fs := flag.NewFlagSet("datainsight", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprintln(fs.Output(), "用法: datainsight [report|upper|heroes] [flags]")
		fs.PrintDefaults()
	}
	fs.StringVar(&opts.configDir, "config", "./config", "配置目录，包含config.json和dataconfig.json")
	fs.StringVar(&opts.input, "input", "", "输入文件，覆盖配置中的input.path")
	fs.BoolVar(&opts.watch, "watch", false, "输入文件更新时重新生成报表")
	fs.StringVar(&opts.serve, "serve", "", "HTTP服务地址，覆盖配置中的http_addr")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() > 0 {
		return nil, fmt.Errorf("未知参数: %s", strings.Join(fs.Args(), " "))
	}

	switch opts.mode {
	case modeReport, modeUpper, modeHeroes:
	default:
		return nil, fmt.Errorf("未知模式: %s", opts.mode)
	}
	return opts, nil
}

// runReport 生成报表；配置了监听、定时或HTTP服务时持续运行直到ctx取消
func runReport(ctx context.Context, opts *options, stdout, stderr io.Writer) error {
	cfg, dcfg, err := config.LoadConfig(opts.configDir, configFile, dataConfigFile)
	if err != nil {
		return err
	}
	if opts.input != "" {
		cfg.Input.Path = opts.input
	}
	if opts.serve != "" {
		cfg.HTTPAddr = opts.serve
	}

	logOpts := storage.Options{MaxSize: cfg.LogMaxSize, MaxBackups: cfg.LogMaxBackups}
	if cfg.LogConsole {
		logOpts.Console = stderr
	}
	logger, err := storage.NewLogger(cfg.LogName, logOpts)
	if err != nil {
		return fmt.Errorf("初始化日志失败: %w", err)
	}
	defer logger.Close()
	defer logger.HandleSignals()()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	gen := report.New(cfg, dcfg, logger, stdout, report.NewMetrics(reg))
	src := newSource(cfg, logger)

	interval := time.Duration(cfg.Schedule)
	if interval <= 0 && cfg.Email.Enabled {
		interval = time.Duration(cfg.Email.CheckInterval)
	}

	// 没有任何触发器时只运行一次
	if !opts.watch && interval <= 0 && cfg.HTTPAddr == "" {
		_, err := gen.Run(ctx, src)
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	trigger := func(reason string) {
		logger.Info(fmt.Sprintf("开始生成报表(%s)", reason))
		if _, err := gen.Run(ctx, src); err != nil {
			logger.Error(fmt.Sprintf("报表生成失败(%s): %v", reason, err))
		}
	}
	trigger("启动")

	var wg sync.WaitGroup
	errChan := make(chan error, 2)

	if interval > 0 {
		c := cron.New()
		spec := fmt.Sprintf("@every %s", interval)
		if err := c.AddFunc(spec, func() { trigger(spec) }); err != nil {
			return fmt.Errorf("创建定时任务失败: %w", err)
		}
		c.Start()
		defer c.Stop()
		logger.Info(fmt.Sprintf("定时任务已启动(间隔: %v)", interval))
	}

	if opts.watch {
		path, ok := src.(report.PathSource)
		if !ok {
			logger.Warning("邮箱输入不支持文件监听，已忽略-watch")
		} else {
			monitor, err := file.NewFileMonitor(string(path))
			if err != nil {
				return fmt.Errorf("创建文件监听失败: %w", err)
			}
			defer monitor.Close()

			wg.Add(1)
			go func() {
				defer wg.Done()
				if err := monitor.Watch(ctx, func(string) { trigger("文件更新") }); err != nil {
					errChan <- fmt.Errorf("文件监听出错: %w", err)
				}
			}()
			logger.Info("正在监听文件: " + string(path))
		}
	}

	if cfg.HTTPAddr != "" {
		srv := &server.Server{
			Generator: gen,
			Source:    src,
			Logger:    logger,
			Gatherer:  reg,
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := srv.ListenAndServe(ctx, cfg.HTTPAddr); err != nil {
				errChan <- fmt.Errorf("HTTP服务出错: %w", err)
			}
		}()
	}

	logger.Info("服务已启动，按Ctrl+C退出")
	select {
	case <-ctx.Done():
		err = nil
	case err = <-errChan:
		logger.Error(err.Error())
	}
	cancel()
	wg.Wait()
	logger.Info("服务已退出")
	return err
}

// newSource 启用邮箱时以最新附件为输入，否则使用配置的文件路径
func newSource(cfg *config.Config, logger *storage.Logger) report.Source {
	if !cfg.Email.Enabled {
		return report.PathSource(cfg.Input.Path)
	}
	return &email.MailboxSource{
		Service: email.NewEmailClient(cfg.Email.Server, cfg.Email.Username, cfg.Email.Password),
		Handler: email.NewAttachmentHandler(cfg.Email.TargetSubject, cfg.DataDir),
		Logger:  logger,
	}
}
