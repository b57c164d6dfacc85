// table.go
package table

import (
	"fmt"
	"strings"
	"sync"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
)

// Kind 列的数据类别
type Kind int

const (
	Text    Kind = iota // 文本(String/Bool)
	Numeric             // 数值(Int/Float)
)

func (k Kind) String() string {
	if k == Numeric {
		return "numeric"
	}
	return "text"
}

// Table 封装DataFrame并提供线程安全访问
type Table struct {
	df dataframe.DataFrame // 存储DataFrame数据
	mu sync.RWMutex        // 读写锁保证线程安全
}

// New 用已有DataFrame创建Table
func New(df dataframe.DataFrame) *Table {
	return &Table{df: df}
}

// GetDF 获取当前DataFrame(线程安全)
func (t *Table) GetDF() dataframe.DataFrame {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.df
}

// SetDF 替换当前DataFrame(线程安全)
func (t *Table) SetDF(df dataframe.DataFrame) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.df = df
}

func (t *Table) Nrow() int       { return t.GetDF().Nrow() }
func (t *Table) Ncol() int       { return t.GetDF().Ncol() }
func (t *Table) Names() []string { return t.GetDF().Names() }

// Shape 返回(行数, 列数)
func (t *Table) Shape() (int, int) {
	df := t.GetDF()
	return df.Nrow(), df.Ncol()
}

// HasColumn 判断是否存在某列
func (t *Table) HasColumn(name string) bool {
	for _, n := range t.Names() {
		if n == name {
			return true
		}
	}
	return false
}

// Col 返回列数据，列不存在时返回错误
func (t *Table) Col(name string) (series.Series, error) {
	if !t.HasColumn(name) {
		return series.Series{}, fmt.Errorf("%w: %s", ErrColumnNotFound, name)
	}
	return t.GetDF().Col(name), nil
}

// KindOf 返回列的类别
func KindOf(s series.Series) Kind {
	switch s.Type() {
	case series.Int, series.Float:
		return Numeric
	default:
		return Text
	}
}

// Kind 返回指定列的类别
func (t *Table) Kind(name string) (Kind, error) {
	s, err := t.Col(name)
	if err != nil {
		return Text, err
	}
	return KindOf(s), nil
}

// NumericColumns 按列顺序返回所有数值列名
func (t *Table) NumericColumns() []string {
	df := t.GetDF()
	var cols []string
	for _, name := range df.Names() {
		if KindOf(df.Col(name)) == Numeric {
			cols = append(cols, name)
		}
	}
	return cols
}

// Floats 返回数值列的值，缺失值为NaN
func (t *Table) Floats(name string) ([]float64, error) {
	s, err := t.Col(name)
	if err != nil {
		return nil, err
	}
	if KindOf(s) != Numeric {
		return nil, fmt.Errorf("列 %s 不是数值类型(%s)", name, s.Type())
	}
	return s.Float(), nil
}

// Head 返回前n行的文本预览
func (t *Table) Head(n int) string {
	df := t.GetDF()
	if n > df.Nrow() {
		n = df.Nrow()
	}
	if n <= 0 {
		return strings.Join(df.Names(), "  ")
	}
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	return df.Subset(idx).String()
}

// MissingCount 单列缺失值数量
type MissingCount struct {
	Column string
	Count  int
}

// MissingReport 按列顺序记录缺失值数量
type MissingReport []MissingCount

// Any 是否存在缺失值
func (r MissingReport) Any() bool {
	return r.Total() > 0
}

// Total 缺失值总数
func (r MissingReport) Total() int {
	total := 0
	for _, m := range r {
		total += m.Count
	}
	return total
}

// NonZero 只保留有缺失值的列
func (r MissingReport) NonZero() MissingReport {
	var out MissingReport
	for _, m := range r {
		if m.Count > 0 {
			out = append(out, m)
		}
	}
	return out
}

func (r MissingReport) String() string {
	var b strings.Builder
	for _, m := range r {
		fmt.Fprintf(&b, "%-16s %d\n", m.Column, m.Count)
	}
	return b.String()
}

// Missing 统计每列缺失值数量
func (t *Table) Missing() MissingReport {
	df := t.GetDF()
	report := make(MissingReport, 0, df.Ncol())
	for _, name := range df.Names() {
		count := 0
		for _, na := range df.Col(name).IsNaN() {
			if na {
				count++
			}
		}
		report = append(report, MissingCount{Column: name, Count: count})
	}
	return report
}
