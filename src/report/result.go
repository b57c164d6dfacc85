// result.go
package report

import (
	"encoding/json"
	"fmt"
	"math"
	"path/filepath"
	"strings"
	"time"

	"DataInsight/src/processor"
	"DataInsight/src/table"
)

// Result 一次报表运行的结果
type Result struct {
	Source      string
	Rows        int
	Cols        int
	Missing     table.MissingReport
	Fills       []processor.Fill
	Stats       []processor.ColumnStats
	Aggregation *processor.Aggregation
	Charts      []string
	Workbook    string
	Errors      []string // 被记录但未中断运行的阶段错误
	StartedAt   time.Time
	Duration    time.Duration
}

// Float JSON中NaN/Inf输出为null
type Float float64

func (f Float) MarshalJSON() ([]byte, error) {
	v := float64(f)
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return []byte("null"), nil
	}
	return json.Marshal(v)
}

type statView struct {
	Column string `json:"column"`
	Count  int    `json:"count"`
	Mean   Float  `json:"mean"`
	Std    Float  `json:"std"`
	Min    Float  `json:"min"`
	Q25    Float  `json:"q25"`
	Q50    Float  `json:"q50"`
	Q75    Float  `json:"q75"`
	Max    Float  `json:"max"`
}

type groupView struct {
	Key   string `json:"key"`
	Count int    `json:"count"`
	Mean  Float  `json:"mean"`
	Sum   Float  `json:"sum"`
}

type fillView struct {
	Column string `json:"column"`
	Kind   string `json:"kind"`
	Count  int    `json:"count"`
	Value  string `json:"value"`
}

// View 结果的JSON视图
type View struct {
	Source     string         `json:"source"`
	Rows       int            `json:"rows"`
	Cols       int            `json:"cols"`
	Missing    map[string]int `json:"missing"`
	Fills      []fillView     `json:"fills"`
	Stats      []statView     `json:"stats"`
	GroupBy    string         `json:"group_by,omitempty"`
	Groups     []groupView    `json:"groups,omitempty"`
	Charts     []string       `json:"charts"`
	Workbook   string         `json:"workbook,omitempty"`
	Errors     []string       `json:"errors,omitempty"`
	StartedAt  time.Time      `json:"started_at"`
	DurationMS int64          `json:"duration_ms"`
}

// View 转换为可序列化的视图，图表只保留文件名
func (r *Result) View() View {
	v := View{
		Source:     r.Source,
		Rows:       r.Rows,
		Cols:       r.Cols,
		Missing:    make(map[string]int),
		Workbook:   r.Workbook,
		Errors:     r.Errors,
		StartedAt:  r.StartedAt,
		DurationMS: r.Duration.Milliseconds(),
	}
	for _, m := range r.Missing.NonZero() {
		v.Missing[m.Column] = m.Count
	}
	for _, f := range r.Fills {
		v.Fills = append(v.Fills, fillView{Column: f.Column, Kind: f.Kind.String(), Count: f.Count, Value: f.Value})
	}
	for _, s := range r.Stats {
		v.Stats = append(v.Stats, statView{
			Column: s.Column, Count: s.Count,
			Mean: Float(s.Mean), Std: Float(s.Std), Min: Float(s.Min),
			Q25: Float(s.Q25), Q50: Float(s.Q50), Q75: Float(s.Q75), Max: Float(s.Max),
		})
	}
	if r.Aggregation != nil {
		v.GroupBy = r.Aggregation.KeyColumn
		for _, g := range r.Aggregation.Groups {
			v.Groups = append(v.Groups, groupView{Key: g.Key, Count: g.Count, Mean: Float(g.Mean), Sum: Float(g.Sum)})
		}
	}
	for _, c := range r.Charts {
		v.Charts = append(v.Charts, filepath.Base(c))
	}
	return v
}

// Summary 推送用的markdown摘要
func (r *Result) Summary(topN int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "### %s\n\n", filepath.Base(r.Source))
	fmt.Fprintf(&b, "- Shape: (%d, %d)\n", r.Rows, r.Cols)
	fmt.Fprintf(&b, "- Missing values filled: %d\n", r.Missing.Total())
	fmt.Fprintf(&b, "- Charts: %d\n", len(r.Charts))

	if r.Aggregation != nil {
		fmt.Fprintf(&b, "\n**%s by %s**\n\n", r.Aggregation.ValueColumn, r.Aggregation.KeyColumn)
		for i, g := range r.Aggregation.Top(topN) {
			fmt.Fprintf(&b, "%d. %s: %.2f\n", i+1, g.Key, g.Sum)
		}
	}
	if len(r.Errors) > 0 {
		fmt.Fprintf(&b, "\n**Errors**\n\n")
		for _, e := range r.Errors {
			fmt.Fprintf(&b, "- %s\n", e)
		}
	}
	return b.String()
}
