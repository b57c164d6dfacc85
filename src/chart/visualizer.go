// visualizer.go
package chart

import (
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"

	"DataInsight/src/config"
	"DataInsight/src/processor"
	"DataInsight/src/storage"
	"DataInsight/src/table"

	gochart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// 生成的图表文件名
const (
	FileSalesTrend   = "sales_trend.png"
	FileTopPlatforms = "top_platforms.png"
	FileDistribution = "sales_distribution.png"
	FileScatter      = "na_vs_eu.png"
	FileGenreCounts  = "genre_counts.png"
)

// Visualizer 根据列映射绘制固定的一组图表
type Visualizer struct {
	YearColumn     string
	CategoryColumn string
	GenreColumn    string
	ValueColumn    string
	XColumn        string
	YColumn        string
	TopN           int // 柱状图的分组数
	Bins           int // 直方图分箱数

	Out    io.Writer       // 错误提示输出，nil时不输出
	Logger *storage.Logger // nil时不记录日志
}

// NewVisualizer 按数据配置创建Visualizer
func NewVisualizer(dcfg *config.DataConfig) *Visualizer {
	return &Visualizer{
		YearColumn:     dcfg.GetColumn(config.ColYear),
		CategoryColumn: dcfg.GetColumn(config.ColCategory),
		GenreColumn:    dcfg.GetColumn(config.ColGenre),
		ValueColumn:    dcfg.GetColumn(config.ColValue),
		XColumn:        dcfg.GetColumn(config.ColX),
		YColumn:        dcfg.GetColumn(config.ColY),
		TopN:           dcfg.TopN,
		Bins:           dcfg.HistBins,
	}
}

type drawFunc func(rc *RenderContext, t *table.Table) (string, error)

// Visualize 依次绘制所有图表并返回生成的文件
// 单个图表失败时输出错误并继续绘制下一个
func (v *Visualizer) Visualize(rc *RenderContext, t *table.Table) []string {
	steps := []struct {
		name string
		draw drawFunc
	}{
		{"sales trend", v.SalesTrend},
		{"top platforms", v.TopPlatforms},
		{"sales distribution", v.Distribution},
		{"scatter", v.Scatter},
		{"genre counts", v.GenreCounts},
	}

	var files []string
	for _, step := range steps {
		path, err := safeDraw(step.draw, rc, t)
		if err != nil {
			v.report(fmt.Sprintf("Error creating %s chart: %v", step.name, err))
			continue
		}
		files = append(files, path)
	}
	return files
}

// safeDraw 绘图库在异常数据上可能panic，转换为错误返回
func safeDraw(draw drawFunc, rc *RenderContext, t *table.Table) (path string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("绘图panic: %v", r)
		}
	}()
	return draw(rc, t)
}

func (v *Visualizer) report(msg string) {
	if v.Out != nil {
		fmt.Fprintln(v.Out, msg)
	}
	if v.Logger != nil {
		v.Logger.Error(msg)
	}
}

// SalesTrend 折线图：每年数值列的合计，按年份升序
func (v *Visualizer) SalesTrend(rc *RenderContext, t *table.Table) (string, error) {
	years, err := t.Floats(v.YearColumn)
	if err != nil {
		return "", err
	}
	values, err := t.Floats(v.ValueColumn)
	if err != nil {
		return "", err
	}

	xs, ys := SumByYear(years, values)
	if len(xs) < 2 {
		return "", fmt.Errorf("年份少于2个，无法绘制趋势图")
	}

	width, height := rc.Size()
	graph := gochart.Chart{
		Title:  fmt.Sprintf("%s by %s", v.ValueColumn, v.YearColumn),
		Width:  width,
		Height: height,
		XAxis: gochart.XAxis{
			Name: v.YearColumn,
			ValueFormatter: func(val interface{}) string {
				if f, ok := val.(float64); ok {
					return strconv.FormatFloat(f, 'f', 0, 64)
				}
				return ""
			},
		},
		YAxis: gochart.YAxis{Name: v.ValueColumn},
		Series: []gochart.Series{
			gochart.ContinuousSeries{
				Name:    v.ValueColumn,
				XValues: xs,
				YValues: ys,
				Style: gochart.Style{
					StrokeColor: gochart.ColorBlue,
					StrokeWidth: 2,
				},
			},
		},
	}
	return rc.Render(FileSalesTrend, func(w io.Writer) error {
		return graph.Render(gochart.PNG, w)
	})
}

// SumByYear 按年份求和，缺失的年份或数值被跳过，结果按年份升序
func SumByYear(years, values []float64) ([]float64, []float64) {
	sums := make(map[float64]float64)
	for i := range years {
		if i >= len(values) || math.IsNaN(years[i]) || math.IsNaN(values[i]) {
			continue
		}
		sums[years[i]] += values[i]
	}

	xs := make([]float64, 0, len(sums))
	for y := range sums {
		xs = append(xs, y)
	}
	sort.Float64s(xs)

	ys := make([]float64, len(xs))
	for i, y := range xs {
		ys[i] = sums[y]
	}
	return xs, ys
}

// TopPlatforms 柱状图：合计最大的前TopN个分组
func (v *Visualizer) TopPlatforms(rc *RenderContext, t *table.Table) (string, error) {
	agg, err := processor.Aggregate(t, v.CategoryColumn, v.ValueColumn)
	if err != nil {
		return "", err
	}
	top := agg.Top(v.topN())
	if len(top) == 0 {
		return "", fmt.Errorf("列 %s 没有可用的分组", v.CategoryColumn)
	}

	bars := make([]gochart.Value, len(top))
	for i, g := range top {
		bars[i] = gochart.Value{Label: g.Key, Value: g.Sum}
	}

	width, height := rc.Size()
	slot := (width - 160) / len(bars)
	if slot < 4 {
		slot = 4
	}
	graph := gochart.BarChart{
		Title:      fmt.Sprintf("Top %d %s by %s", len(bars), v.CategoryColumn, v.ValueColumn),
		Width:      width,
		Height:     height,
		BarWidth:   slot * 3 / 5,
		BarSpacing: slot - slot*3/5,
		Bars:       bars,
	}
	return rc.Render(FileTopPlatforms, func(w io.Writer) error {
		return graph.Render(gochart.PNG, w)
	})
}

// Distribution 直方图：数值列的分布
func (v *Visualizer) Distribution(rc *RenderContext, t *table.Table) (string, error) {
	values, err := t.Floats(v.ValueColumn)
	if err != nil {
		return "", err
	}
	present := dropNaN(values)
	if len(present) == 0 {
		return "", fmt.Errorf("列 %s 没有数值", v.ValueColumn)
	}

	hist, err := plotter.NewHist(plotter.Values(present), v.bins())
	if err != nil {
		return "", fmt.Errorf("计算直方图失败: %w", err)
	}

	p := plot.New()
	p.Title.Text = fmt.Sprintf("Distribution of %s", v.ValueColumn)
	p.X.Label.Text = v.ValueColumn
	p.Y.Label.Text = "Frequency"
	p.Add(hist)

	return v.savePlot(rc, FileDistribution, p)
}

// Scatter 散点图：XColumn对YColumn，只画点不连线
func (v *Visualizer) Scatter(rc *RenderContext, t *table.Table) (string, error) {
	xvals, err := t.Floats(v.XColumn)
	if err != nil {
		return "", err
	}
	yvals, err := t.Floats(v.YColumn)
	if err != nil {
		return "", err
	}

	xs := make([]float64, 0, len(xvals))
	ys := make([]float64, 0, len(yvals))
	for i := range xvals {
		if math.IsNaN(xvals[i]) || math.IsNaN(yvals[i]) {
			continue
		}
		xs = append(xs, xvals[i])
		ys = append(ys, yvals[i])
	}
	if len(xs) == 0 {
		return "", fmt.Errorf("列 %s/%s 没有成对的数值", v.XColumn, v.YColumn)
	}

	width, height := rc.Size()
	graph := gochart.Chart{
		Title:  fmt.Sprintf("%s vs %s", v.XColumn, v.YColumn),
		Width:  width,
		Height: height,
		XAxis:  gochart.XAxis{Name: v.XColumn},
		YAxis:  gochart.YAxis{Name: v.YColumn},
		Series: []gochart.Series{
			gochart.ContinuousSeries{
				Name:    v.YColumn,
				XValues: xs,
				YValues: ys,
				Style:   pointStyle(gochart.ColorBlue),
			},
		},
	}
	return rc.Render(FileScatter, func(w io.Writer) error {
		return graph.Render(gochart.PNG, w)
	})
}

// pointStyle 只画点，不画连线
func pointStyle(col drawing.Color) gochart.Style {
	return gochart.Style{
		StrokeWidth: gochart.Disabled,
		DotWidth:    3,
		DotColor:    col.WithAlpha(128),
	}
}

// GenreCounts 横向柱状图：类别列各取值的出现次数，次数多的在上
func (v *Visualizer) GenreCounts(rc *RenderContext, t *table.Table) (string, error) {
	counts, err := processor.ValueCounts(t, v.GenreColumn)
	if err != nil {
		return "", err
	}
	if len(counts) == 0 {
		return "", fmt.Errorf("列 %s 没有可统计的值", v.GenreColumn)
	}

	n := len(counts)
	values := make(plotter.Values, n)
	labels := make([]string, n)
	for i, c := range counts {
		values[n-1-i] = float64(c.Count)
		labels[n-1-i] = c.Key
	}

	bars, err := plotter.NewBarChart(values, vg.Points(12))
	if err != nil {
		return "", fmt.Errorf("创建柱状图失败: %w", err)
	}
	bars.Horizontal = true

	p := plot.New()
	p.Title.Text = fmt.Sprintf("Count of %s", v.GenreColumn)
	p.X.Label.Text = "Count"
	p.Add(bars)
	p.NominalY(labels...)

	return v.savePlot(rc, FileGenreCounts, p)
}

func (v *Visualizer) savePlot(rc *RenderContext, name string, p *plot.Plot) (string, error) {
	width, height := rc.Size()
	wt, err := p.WriterTo(pixels(width), pixels(height), "png")
	if err != nil {
		return "", fmt.Errorf("创建画布失败: %w", err)
	}
	return rc.Render(name, func(w io.Writer) error {
		_, err := wt.WriteTo(w)
		return err
	})
}

// pixels 按96dpi把像素换算为长度
func pixels(px int) vg.Length {
	return vg.Length(float64(px)/96) * vg.Inch
}

func (v *Visualizer) topN() int {
	if v.TopN <= 0 {
		return 10
	}
	return v.TopN
}

func (v *Visualizer) bins() int {
	if v.Bins <= 0 {
		return 50
	}
	return v.Bins
}

func dropNaN(vals []float64) []float64 {
	out := make([]float64, 0, len(vals))
	for _, v := range vals {
		if !math.IsNaN(v) {
			out = append(out, v)
		}
	}
	return out
}
