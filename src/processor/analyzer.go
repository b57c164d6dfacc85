// analyzer.go
package processor

import (
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"
	"text/tabwriter"

	"DataInsight/src/table"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// ColumnStats 数值列的描述统计
type ColumnStats struct {
	Column string
	Count  int
	Mean   float64
	Std    float64
	Min    float64
	Q25    float64
	Q50    float64
	Q75    float64
	Max    float64
}

// statNames 描述统计的行顺序
var statNames = []string{"count", "mean", "std", "min", "25%", "50%", "75%", "max"}

func (s ColumnStats) values() []float64 {
	return []float64{float64(s.Count), s.Mean, s.Std, s.Min, s.Q25, s.Q50, s.Q75, s.Max}
}

// Describe 计算所有数值列的描述统计，缺失值不参与计算
func Describe(t *table.Table) []ColumnStats {
	var out []ColumnStats
	for _, name := range t.NumericColumns() {
		vals, err := t.Floats(name)
		if err != nil {
			continue
		}
		out = append(out, describeColumn(name, vals))
	}
	return out
}

func describeColumn(name string, vals []float64) ColumnStats {
	present := make([]float64, 0, len(vals))
	for _, v := range vals {
		if !math.IsNaN(v) {
			present = append(present, v)
		}
	}

	nan := math.NaN()
	cs := ColumnStats{Column: name, Count: len(present), Mean: nan, Std: nan, Min: nan, Q25: nan, Q50: nan, Q75: nan, Max: nan}
	if len(present) == 0 {
		return cs
	}

	sort.Float64s(present)
	cs.Mean = stat.Mean(present, nil)
	if len(present) > 1 {
		cs.Std = stat.StdDev(present, nil)
	}
	cs.Min = floats.Min(present)
	cs.Max = floats.Max(present)
	cs.Q25 = Quantile(present, 0.25)
	cs.Q50 = Quantile(present, 0.5)
	cs.Q75 = Quantile(present, 0.75)
	return cs
}

// Quantile 对已排序数据做线性插值分位数，位置为p*(n-1)
func Quantile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return math.NaN()
	}
	pos := p * float64(n-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	frac := pos - float64(lo)
	return sorted[lo] + (sorted[hi]-sorted[lo])*frac
}

// StatsFrame 把描述统计转换为DataFrame，第一列为统计量名称
func StatsFrame(stats []ColumnStats) dataframe.DataFrame {
	cols := []series.Series{series.New(statNames, series.String, "stat")}
	for _, s := range stats {
		cols = append(cols, series.New(s.values(), series.Float, s.Column))
	}
	return dataframe.New(cols...)
}

// Group 分组聚合的一组结果
type Group struct {
	Key   string
	Count int
	Mean  float64
	Sum   float64
}

// Aggregation 按KeyColumn分组对ValueColumn求count/mean/sum，按Sum降序
type Aggregation struct {
	KeyColumn   string
	ValueColumn string
	Groups      []Group
}

// Aggregate 分组聚合。key为缺失值的行不参与分组，value缺失的单元格不计数
// 排序稳定：Sum相同的组保持首次出现的顺序
func Aggregate(t *table.Table, keyCol, valueCol string) (*Aggregation, error) {
	keys, err := t.Col(keyCol)
	if err != nil {
		return nil, err
	}
	values, err := t.Floats(valueCol)
	if err != nil {
		return nil, err
	}

	index := make(map[string]int)
	var groups []Group
	keyNaN := keys.IsNaN()
	for i := 0; i < keys.Len(); i++ {
		if keyNaN[i] {
			continue
		}
		key := GroupKey(keys.Elem(i))
		idx, ok := index[key]
		if !ok {
			idx = len(groups)
			index[key] = idx
			groups = append(groups, Group{Key: key})
		}
		if math.IsNaN(values[i]) {
			continue
		}
		groups[idx].Count++
		groups[idx].Sum += values[i]
	}

	for i := range groups {
		if groups[i].Count > 0 {
			groups[i].Mean = groups[i].Sum / float64(groups[i].Count)
		} else {
			groups[i].Mean = math.NaN()
		}
	}

	sort.SliceStable(groups, func(i, j int) bool {
		return groups[i].Sum > groups[j].Sum
	})

	return &Aggregation{KeyColumn: keyCol, ValueColumn: valueCol, Groups: groups}, nil
}

// GroupKey 分组键的文本形式，数值去掉多余的小数位(2006.0 -> "2006")
func GroupKey(e series.Element) string {
	switch e.Type() {
	case series.Int, series.Float:
		return strconv.FormatFloat(e.Float(), 'f', -1, 64)
	default:
		return e.String()
	}
}

// ValueCounts 统计某列各取值出现的次数，缺失值不计。按次数降序，次数相同保持首次出现的顺序
func ValueCounts(t *table.Table, col string) ([]Group, error) {
	s, err := t.Col(col)
	if err != nil {
		return nil, err
	}

	index := make(map[string]int)
	var groups []Group
	isNaN := s.IsNaN()
	for i := 0; i < s.Len(); i++ {
		if isNaN[i] {
			continue
		}
		key := GroupKey(s.Elem(i))
		idx, ok := index[key]
		if !ok {
			idx = len(groups)
			index[key] = idx
			groups = append(groups, Group{Key: key})
		}
		groups[idx].Count++
	}

	sort.SliceStable(groups, func(i, j int) bool {
		return groups[i].Count > groups[j].Count
	})
	return groups, nil
}

// Top 返回Sum最大的前n组
func (a *Aggregation) Top(n int) []Group {
	if n > len(a.Groups) || n <= 0 {
		return a.Groups
	}
	return a.Groups[:n]
}

// Frame 把聚合结果转换为DataFrame
func (a *Aggregation) Frame() dataframe.DataFrame {
	keys := make([]string, len(a.Groups))
	counts := make([]int, len(a.Groups))
	means := make([]float64, len(a.Groups))
	sums := make([]float64, len(a.Groups))
	for i, g := range a.Groups {
		keys[i], counts[i], means[i], sums[i] = g.Key, g.Count, g.Mean, g.Sum
	}
	return dataframe.New(
		series.New(keys, series.String, a.KeyColumn),
		series.New(counts, series.Int, "count"),
		series.New(means, series.Float, "mean"),
		series.New(sums, series.Float, "sum"),
	)
}

// Analysis 分析结果
type Analysis struct {
	Stats       []ColumnStats
	Aggregation *Aggregation
}

// Analyzer 描述统计和一次分组聚合
type Analyzer struct {
	KeyColumn   string    // 分组列，如Platform
	ValueColumn string    // 聚合列，如Global_Sales
	Out         io.Writer // 统计表输出，nil时不输出
}

// Analyze 输出描述统计和分组聚合。指定列不存在时输出错误并返回，
// 已计算的描述统计仍然保留在返回值中
func (a *Analyzer) Analyze(t *table.Table) (*Analysis, error) {
	res := &Analysis{Stats: Describe(t)}
	a.printf("\nBasic Statistics:\n")
	a.writeStats(res.Stats)

	agg, err := Aggregate(t, a.KeyColumn, a.ValueColumn)
	if err != nil {
		a.printf("Error during analysis: %v\n", err)
		return res, fmt.Errorf("分组聚合失败: %w", err)
	}
	res.Aggregation = agg

	a.printf("\nSales by %s:\n", a.KeyColumn)
	a.writeAggregation(agg)
	return res, nil
}

func (a *Analyzer) printf(format string, args ...interface{}) {
	if a.Out != nil {
		fmt.Fprintf(a.Out, format, args...)
	}
}

func (a *Analyzer) writeStats(stats []ColumnStats) {
	if a.Out == nil || len(stats) == 0 {
		return
	}
	w := tabwriter.NewWriter(a.Out, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprint(w, "\t")
	for _, s := range stats {
		fmt.Fprintf(w, "%s\t", s.Column)
	}
	fmt.Fprintln(w)
	for i, name := range statNames {
		fmt.Fprintf(w, "%s\t", name)
		for _, s := range stats {
			fmt.Fprintf(w, "%.6f\t", s.values()[i])
		}
		fmt.Fprintln(w)
	}
	w.Flush()
}

func (a *Analyzer) writeAggregation(agg *Aggregation) {
	if a.Out == nil {
		return
	}
	w := tabwriter.NewWriter(a.Out, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintf(w, "%s\tcount\tmean\tsum\t\n", agg.KeyColumn)
	for _, g := range agg.Groups {
		fmt.Fprintf(w, "%s\t%d\t%.6f\t%.2f\t\n", g.Key, g.Count, g.Mean, g.Sum)
	}
	w.Flush()
}
