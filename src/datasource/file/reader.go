// reader.go
package file

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"DataInsight/src/table"

	"github.com/go-gota/gota/dataframe"
	"github.com/tealeg/xlsx"
)

// MissingTokens 读入时视为缺失值的单元格内容
var MissingTokens = []string{"", "NA", "N/A", "NaN", "nan", "null", "NULL", "<nil>"}

// Loader 把分隔文本或xlsx读入Table
type Loader struct {
	Encoding    string    // 文本字符集，默认UTF-8
	Delimiter   rune      // 分隔符，默认逗号
	SheetName   string    // xlsx工作表，为空取第一个
	PreviewRows int       // 预览行数，默认5
	Out         io.Writer // 预览输出，nil时不输出
}

// Load 读取文件并返回Table
// 文件不存在返回ErrNotFound，内容无法解析返回ErrFormat
func (l *Loader) Load(path string) (*table.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, fmt.Errorf("%w: 无法打开 %s: %v", ErrFormat, path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFormat, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%w: %s 是目录", ErrFormat, path)
	}

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("%w: 读取 %s 失败: %v", ErrFormat, path, err)
	}

	return l.LoadBytes(path, data)
}

// LoadBytes 从内存数据加载，name仅用于判断格式(扩展名)
func (l *Loader) LoadBytes(name string, data []byte) (*table.Table, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, fmt.Errorf("%w: %s 为空", ErrFormat, name)
	}

	var (
		df  dataframe.DataFrame
		err error
	)
	switch strings.ToLower(filepath.Ext(name)) {
	case ".xlsx":
		df, err = l.readXLSX(data)
	default:
		df, err = l.readCSV(data)
	}
	if err != nil {
		return nil, err
	}

	t := table.New(df)
	l.preview(t)
	return t, nil
}

func (l *Loader) delimiter() rune {
	if l.Delimiter == 0 {
		return ','
	}
	return l.Delimiter
}

func (l *Loader) readCSV(data []byte) (dataframe.DataFrame, error) {
	text, err := decodeText(data, l.Encoding)
	if err != nil {
		return dataframe.DataFrame{}, err
	}

	// 先单独读出表头，校验分隔符和列名
	r := csv.NewReader(bytes.NewReader(text))
	r.Comma = l.delimiter()
	header, err := r.Read()
	if err != nil {
		return dataframe.DataFrame{}, fmt.Errorf("%w: 表头解析失败: %v", ErrFormat, err)
	}
	if err := checkHeader(header); err != nil {
		return dataframe.DataFrame{}, err
	}

	df := dataframe.ReadCSV(bytes.NewReader(text),
		dataframe.HasHeader(true),
		dataframe.DetectTypes(true),
		dataframe.WithDelimiter(l.delimiter()),
		dataframe.NaNValues(MissingTokens),
	)
	if df.Err != nil {
		return dataframe.DataFrame{}, fmt.Errorf("%w: %v", ErrFormat, df.Err)
	}
	return df, nil
}

func (l *Loader) readXLSX(data []byte) (dataframe.DataFrame, error) {
	xlFile, err := xlsx.OpenBinary(data)
	if err != nil {
		return dataframe.DataFrame{}, fmt.Errorf("%w: xlsx打开失败: %v", ErrFormat, err)
	}
	if len(xlFile.Sheets) == 0 {
		return dataframe.DataFrame{}, fmt.Errorf("%w: excel文件中没有工作表", ErrFormat)
	}

	sheet := xlFile.Sheets[0]
	if l.SheetName != "" {
		s, ok := xlFile.Sheet[l.SheetName]
		if !ok {
			return dataframe.DataFrame{}, fmt.Errorf("%w: 工作表 %s 不存在", ErrFormat, l.SheetName)
		}
		sheet = s
	}

	records := sheetRecords(sheet)
	if len(records) == 0 {
		return dataframe.DataFrame{}, fmt.Errorf("%w: 工作表 %s 没有数据", ErrFormat, sheet.Name)
	}
	if err := checkHeader(records[0]); err != nil {
		return dataframe.DataFrame{}, err
	}

	df := dataframe.LoadRecords(records,
		dataframe.HasHeader(true),
		dataframe.DetectTypes(true),
		dataframe.NaNValues(MissingTokens),
	)
	if df.Err != nil {
		return dataframe.DataFrame{}, fmt.Errorf("%w: %v", ErrFormat, df.Err)
	}
	return df, nil
}

// sheetRecords 将xlsx.Sheet转换为记录，第一行是标题行，空行跳过
func sheetRecords(sheet *xlsx.Sheet) [][]string {
	if len(sheet.Rows) == 0 {
		return nil
	}

	var headers []string
	for _, cell := range sheet.Rows[0].Cells {
		headers = append(headers, strings.TrimSpace(cell.String()))
	}
	records := [][]string{headers}

	for _, row := range sheet.Rows[1:] {
		if row == nil {
			continue
		}
		record := make([]string, len(headers))
		empty := true
		for i, cell := range row.Cells {
			if i >= len(headers) { // 确保不超出列数范围
				break
			}
			record[i] = cell.String()
			if record[i] != "" {
				empty = false
			}
		}
		if !empty {
			records = append(records, record)
		}
	}
	return records
}

// checkHeader 表头至少两列且列名不重复
func checkHeader(header []string) error {
	if len(header) < 2 {
		return fmt.Errorf("%w: 表头中未找到分隔符", ErrFormat)
	}
	seen := make(map[string]bool, len(header))
	for _, name := range header {
		if seen[name] {
			return fmt.Errorf("%w: 列名重复: %q", ErrFormat, name)
		}
		seen[name] = true
	}
	return nil
}

func (l *Loader) preview(t *table.Table) {
	if l.Out == nil {
		return
	}
	n := l.PreviewRows
	if n <= 0 {
		n = 5
	}
	rows, cols := t.Shape()
	fmt.Fprintln(l.Out, "Data loaded successfully!")
	fmt.Fprintf(l.Out, "\nDataset Overview:\nShape: (%d, %d)\n", rows, cols)
	fmt.Fprintf(l.Out, "\nFirst few rows:\n%s\n", t.Head(n))
}
