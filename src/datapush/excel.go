// excel.go
package datapush

import (
	"fmt"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"github.com/xuri/excelize/v2"
)

// Sheet 导出工作簿中的一个工作表
type Sheet struct {
	Name  string
	Frame dataframe.DataFrame
}

// SaveToExcel 把多个DataFrame按顺序写入同一个xlsx文件
// 第一行为列名，缺失值写为空单元格
func SaveToExcel(filePath string, sheets ...Sheet) error {
	if len(sheets) == 0 {
		return fmt.Errorf("没有需要导出的工作表")
	}

	f := excelize.NewFile()
	defer f.Close()

	for i, sheet := range sheets {
		if i == 0 {
			if err := f.SetSheetName("Sheet1", sheet.Name); err != nil {
				return fmt.Errorf("重命名工作表失败: %w", err)
			}
		} else if _, err := f.NewSheet(sheet.Name); err != nil {
			return fmt.Errorf("创建工作表 %s 失败: %w", sheet.Name, err)
		}

		if err := writeFrame(f, sheet.Name, sheet.Frame); err != nil {
			return err
		}
	}

	if err := f.SaveAs(filePath); err != nil {
		return fmt.Errorf("保存Excel文件失败: %w", err)
	}
	return nil
}

func writeFrame(f *excelize.File, sheetName string, df dataframe.DataFrame) error {
	if df.Err != nil {
		return fmt.Errorf("工作表 %s 数据无效: %w", sheetName, df.Err)
	}

	// 写入列名
	colNames := df.Names()
	header := make([]interface{}, len(colNames))
	for i, name := range colNames {
		header[i] = name
	}
	if err := f.SetSheetRow(sheetName, "A1", &header); err != nil {
		return fmt.Errorf("写入列名失败: %w", err)
	}

	// 写入数据
	cols := make([]series.Series, len(colNames))
	for i, name := range colNames {
		cols[i] = df.Col(name)
	}
	for rowIdx := 0; rowIdx < df.Nrow(); rowIdx++ {
		row := make([]interface{}, len(cols))
		for colIdx, col := range cols {
			elem := col.Elem(rowIdx)
			if elem.IsNA() {
				continue
			}
			row[colIdx] = elem.Val()
		}

		cell, err := excelize.CoordinatesToCellName(1, rowIdx+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheetName, cell, &row); err != nil {
			return fmt.Errorf("写入第%d行失败: %w", rowIdx+1, err)
		}
	}
	return nil
}
