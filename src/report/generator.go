// generator.go
package report

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"sync"
	"time"

	"DataInsight/src/chart"
	"DataInsight/src/config"
	"DataInsight/src/datapush"
	"DataInsight/src/datasource/file"
	"DataInsight/src/processor"
	"DataInsight/src/storage"
)

// Source 报表输入来源
type Source interface {
	// Fetch 返回本次要处理的文件路径，没有新输入时返回空路径
	Fetch(ctx context.Context) (string, error)
}

// PathSource 固定的本地文件
type PathSource string

func (p PathSource) Fetch(ctx context.Context) (string, error) {
	return string(p), ctx.Err()
}

func (p PathSource) String() string { return string(p) }

// Generator 报表生成流程：读取、填充、分析、绘图、导出、推送
// Run可被多个触发器并发调用，同一时刻只有一次运行
type Generator struct {
	Loader       *file.Loader
	Analyzer     *processor.Analyzer
	Visualizer   *chart.Visualizer
	ChartDir     string
	ChartOptions chart.Options

	Workbook    string           // 导出的xlsx路径，为空不导出
	Mailer      *datapush.Mailer // 为nil时不发邮件
	MailTo      []string
	MailSubject string
	Robot       *datapush.DingTalkRobot // 为nil时不推送钉钉
	TopN        int

	Out     io.Writer
	Logger  *storage.Logger
	Metrics *Metrics

	runMu sync.Mutex
	mu    sync.RWMutex
	last  *Result
}

// New 按配置组装Generator
func New(cfg *config.Config, dcfg *config.DataConfig, logger *storage.Logger, out io.Writer, metrics *Metrics) *Generator {
	delimiter := ','
	if d := []rune(cfg.Input.Delimiter); len(d) > 0 {
		delimiter = d[0]
	}

	vis := chart.NewVisualizer(dcfg)
	vis.Out = out
	vis.Logger = logger

	g := &Generator{
		Loader: &file.Loader{
			Encoding:    cfg.Input.Encoding,
			Delimiter:   delimiter,
			SheetName:   cfg.Input.SheetName,
			PreviewRows: dcfg.PreviewRows,
			Out:         out,
		},
		Analyzer: &processor.Analyzer{
			KeyColumn:   dcfg.GetColumn(config.ColCategory),
			ValueColumn: dcfg.GetColumn(config.ColValue),
			Out:         out,
		},
		Visualizer:  vis,
		ChartDir:    cfg.Output.ChartDir,
		Workbook:    cfg.Output.Workbook,
		MailTo:      cfg.SendEmail.To,
		MailSubject: cfg.SendEmail.Subject,
		TopN:        dcfg.TopN,
		Out:         out,
		Logger:      logger,
		Metrics:     metrics,
	}
	if cfg.SendEmail.Enabled {
		g.Mailer = datapush.NewMailer(cfg.SendEmail.Server, cfg.SendEmail.Username, cfg.SendEmail.Password)
	}
	if cfg.DingTalk.Enabled {
		g.Robot = datapush.NewDingTalkRobot(cfg.DingTalk.Webhook, cfg.DingTalk.Secret)
	}
	return g
}

// Last 最近一次成功读入数据的运行结果，没有时返回nil
func (g *Generator) Last() *Result {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.last
}

// Run 执行一次完整流程
// 只有获取输入和读取数据的错误会返回，其余阶段的错误记录在Result.Errors中
// 没有新输入时返回nil, nil
func (g *Generator) Run(ctx context.Context, src Source) (*Result, error) {
	g.runMu.Lock()
	defer g.runMu.Unlock()

	start := time.Now()
	path, err := src.Fetch(ctx)
	if err != nil {
		g.finish(OutcomeFailed, start)
		return nil, fmt.Errorf("获取输入失败: %w", err)
	}
	if path == "" {
		g.logInfo(fmt.Sprintf("%v 没有新的输入", src))
		g.finish(OutcomeSkipped, start)
		return nil, nil
	}

	g.logInfo("开始生成报表: " + path)
	t, err := g.Loader.Load(path)
	if err != nil {
		g.printf("Error loading data: %v\n", err)
		g.logError("读取数据失败: " + err.Error())
		g.stageFailed("load")
		g.finish(OutcomeFailed, start)
		return nil, err
	}

	res := &Result{Source: path, StartedAt: start}
	res.Rows, res.Cols = t.Shape()
	if g.Metrics != nil {
		g.Metrics.Rows.Set(float64(res.Rows))
	}

	g.stage(res, "impute", func() error {
		im := &processor.Imputer{Out: g.Out}
		err := im.Process(t)
		res.Missing = im.Result.Missing
		res.Fills = im.Result.Fills
		if g.Metrics != nil {
			g.Metrics.Missing.Set(float64(res.Missing.Total()))
		}
		return err
	})

	g.stage(res, "analyze", func() error {
		a, err := g.Analyzer.Analyze(t)
		if a != nil {
			res.Stats = a.Stats
			res.Aggregation = a.Aggregation
		}
		return err
	})

	g.stage(res, "visualize", func() error {
		rc, err := chart.Begin(g.ChartDir, g.ChartOptions)
		if err != nil {
			return err
		}
		defer rc.Close()
		res.Charts = g.Visualizer.Visualize(rc, t)
		return nil
	})

	if g.Workbook != "" {
		g.stage(res, "export", func() error {
			sheets := []datapush.Sheet{
				{Name: "data", Frame: t.GetDF()},
				{Name: "describe", Frame: processor.StatsFrame(res.Stats)},
			}
			if res.Aggregation != nil {
				sheets = append(sheets, datapush.Sheet{Name: "aggregation", Frame: res.Aggregation.Frame()})
			}
			if err := datapush.SaveToExcel(g.Workbook, sheets...); err != nil {
				return err
			}
			res.Workbook = g.Workbook
			g.logInfo("处理后的数据已保存到: " + g.Workbook)
			return nil
		})
	}

	if g.Mailer != nil {
		g.stage(res, "mail", func() error {
			attachments := append([]string(nil), res.Charts...)
			if res.Workbook != "" {
				attachments = append([]string{res.Workbook}, attachments...)
			}
			return g.Mailer.Send(g.MailTo, g.MailSubject, res.Summary(g.TopN), attachments...)
		})
	}

	if g.Robot != nil {
		g.stage(res, "dingtalk", func() error {
			return g.Robot.SendMarkdown(ctx, g.MailSubject, res.Summary(g.TopN))
		})
	}

	res.Duration = time.Since(start)
	g.mu.Lock()
	g.last = res
	g.mu.Unlock()

	g.logInfo(fmt.Sprintf("报表生成完成: %s，图表%d个，耗时%v", filepath.Base(path), len(res.Charts), res.Duration))
	g.observe(OutcomeSuccess, res.Duration)
	return res, nil
}

// stage 执行一个可失败的阶段，错误和panic被记录后吞掉
func (g *Generator) stage(res *Result, name string, fn func() error) {
	err := func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("panic: %v", r)
			}
		}()
		return fn()
	}()
	if err == nil {
		return
	}

	res.Errors = append(res.Errors, fmt.Sprintf("%s: %v", name, err))
	g.logError(fmt.Sprintf("%s阶段失败: %v", name, err))
	g.stageFailed(name)
}

func (g *Generator) stageFailed(name string) {
	if g.Metrics != nil {
		g.Metrics.StageFailures.WithLabelValues(name).Inc()
	}
}

func (g *Generator) finish(outcome string, start time.Time) {
	g.observe(outcome, time.Since(start))
}

// observe 记录运行结果和耗时，成功时与Result.Duration一致
func (g *Generator) observe(outcome string, elapsed time.Duration) {
	if g.Metrics == nil {
		return
	}
	g.Metrics.Runs.WithLabelValues(outcome).Inc()
	g.Metrics.RunDuration.Observe(elapsed.Seconds())
}

func (g *Generator) printf(format string, args ...interface{}) {
	if g.Out != nil {
		fmt.Fprintf(g.Out, format, args...)
	}
}

func (g *Generator) logInfo(msg string) {
	if g.Logger != nil {
		g.Logger.Info(msg)
	}
}

func (g *Generator) logError(msg string) {
	if g.Logger != nil {
		g.Logger.Error(msg)
	}
}
