// imputer.go
package processor

import (
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"

	"DataInsight/src/table"

	"github.com/go-gota/gota/series"
)

// DataProcess 对Table进行原地处理的步骤
type DataProcess interface {
	Process(t *table.Table) error
}

// Fill 一列的填充结果
type Fill struct {
	Column string
	Kind   table.Kind
	Count  int    // 填充的单元格数
	Value  string // 填充值
}

// ImputeResult 一次填充的结果
type ImputeResult struct {
	Missing table.MissingReport // 填充前的缺失统计
	Fills   []Fill
}

// Imputer 缺失值填充：数值列用中位数，文本列用众数
type Imputer struct {
	Out    io.Writer // 缺失统计输出，nil时不输出
	Result ImputeResult
}

// Process 实现DataProcess接口
func (im *Imputer) Process(t *table.Table) error {
	res, err := Impute(t)
	if err != nil {
		return err
	}
	im.Result = res

	if im.Out != nil && res.Missing.Any() {
		fmt.Fprintf(im.Out, "\nMissing values found:\n%s", res.Missing.NonZero())
		fmt.Fprintln(im.Out, "\nMissing values handled.")
	}
	return nil
}

// Impute 原地填充Table中的缺失值，没有缺失值时不做任何修改
func Impute(t *table.Table) (ImputeResult, error) {
	res := ImputeResult{Missing: t.Missing()}
	if !res.Missing.Any() {
		return res, nil
	}

	df := t.GetDF()
	for _, m := range res.Missing {
		if m.Count == 0 {
			continue
		}

		col := df.Col(m.Column)
		var (
			filled series.Series
			fill   Fill
		)
		switch table.KindOf(col) {
		case table.Numeric:
			filled, fill = fillNumeric(col)
		default:
			filled, fill = fillText(col)
		}
		fill.Count = m.Count

		df = df.Mutate(filled)
		if df.Err != nil {
			return res, fmt.Errorf("填充列 %s 失败: %w", m.Column, df.Err)
		}
		res.Fills = append(res.Fills, fill)
	}

	t.SetDF(df)
	return res, nil
}

// fillNumeric 用非缺失值的中位数填充，结果列为Float类型
func fillNumeric(col series.Series) (series.Series, Fill) {
	vals := col.Float()
	isNaN := col.IsNaN()

	present := make([]float64, 0, len(vals))
	for i, v := range vals {
		if !isNaN[i] && !math.IsNaN(v) {
			present = append(present, v)
		}
	}

	median := 0.0
	if len(present) > 0 {
		median = Median(present)
	}

	out := make([]float64, len(vals))
	for i, v := range vals {
		if isNaN[i] || math.IsNaN(v) {
			out[i] = median
			continue
		}
		out[i] = v
	}

	return series.New(out, series.Float, col.Name), Fill{
		Column: col.Name,
		Kind:   table.Numeric,
		Value:  strconv.FormatFloat(median, 'f', -1, 64),
	}
}

// fillText 用出现次数最多的值填充，次数相同取最先出现的
func fillText(col series.Series) (series.Series, Fill) {
	records := col.Records()
	isNaN := col.IsNaN()

	present := make([]string, 0, len(records))
	for i, r := range records {
		if !isNaN[i] {
			present = append(present, r)
		}
	}
	mode := Mode(present)

	out := make([]string, len(records))
	for i, r := range records {
		if isNaN[i] {
			out[i] = mode
			continue
		}
		out[i] = r
	}

	typ := col.Type()
	if typ == series.Bool && mode == "" {
		typ = series.String
	}
	return series.New(out, typ, col.Name), Fill{
		Column: col.Name,
		Kind:   table.Text,
		Value:  mode,
	}
}

// Median 中位数，偶数个取中间两个的平均值
func Median(vals []float64) float64 {
	if len(vals) == 0 {
		return math.NaN()
	}
	sorted := append([]float64(nil), vals...)
	sort.Float64s(sorted)

	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

// Mode 众数，次数相同时取最先出现的值；空输入返回""
func Mode(vals []string) string {
	counts := make(map[string]int, len(vals))
	var order []string
	for _, v := range vals {
		if counts[v] == 0 {
			order = append(order, v)
		}
		counts[v]++
	}

	mode, best := "", 0
	for _, v := range order {
		if counts[v] > best {
			mode, best = v, counts[v]
		}
	}
	return mode
}
