// textfile.go
package textfile

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var (
	// ErrNotFound 输入文件不存在
	ErrNotFound = errors.New("file not found")
	// ErrPermission 没有读取权限
	ErrPermission = errors.New("permission denied")
	// ErrNotText 内容不是UTF-8文本
	ErrNotText = errors.New("not a text file")
	// ErrWrite 输出文件写入失败
	ErrWrite = errors.New("write output failed")
)

// Result 一次转换的结果，长度按字符计
type Result struct {
	Output    string
	InputLen  int
	OutputLen int
}

// ModifiedName 生成输出文件名
// 按文件名最后一个"."拆分为 <stem>_modified.<ext>，没有"."时为 <path>_modified
// 只看路径的最后一段，目录名中的"."不参与拆分，例如 dir.v1/README -> dir.v1/README_modified
func ModifiedName(path string) string {
	dir, base := filepath.Split(path)
	i := strings.LastIndex(base, ".")
	if i < 0 {
		return path + "_modified"
	}
	return dir + base[:i] + "_modified" + base[i:]
}

// Uppercase 读取文件，转换为大写后写入ModifiedName(path)
func Uppercase(path string) (Result, error) {
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return Result{}, fmt.Errorf("%w: %s", ErrNotFound, path)
	case errors.Is(err, fs.ErrPermission):
		return Result{}, fmt.Errorf("%w: %s", ErrPermission, path)
	case err != nil:
		return Result{}, err
	}
	if !utf8.Valid(data) || bytes.IndexByte(data, 0) >= 0 {
		return Result{}, fmt.Errorf("%w: %s", ErrNotText, path)
	}

	content := string(data)
	modified := cases.Upper(language.Und).String(content)

	res := Result{
		Output:    ModifiedName(path),
		InputLen:  utf8.RuneCountInString(content),
		OutputLen: utf8.RuneCountInString(modified),
	}
	if err := os.WriteFile(res.Output, []byte(modified), 0644); err != nil {
		return Result{}, fmt.Errorf("%w: %w", ErrWrite, err)
	}
	return res, nil
}

// Run 交互式转换：循环读取文件名，失败时询问是否继续
func Run(in io.Reader, out io.Writer) {
	scanner := bufio.NewScanner(in)
	readLine := func(prompt string) (string, bool) {
		fmt.Fprint(out, prompt)
		if !scanner.Scan() {
			return "", false
		}
		return strings.TrimSpace(scanner.Text()), true
	}

	fmt.Fprintln(out, "File Processing Program")
	fmt.Fprintln(out, "======================")
	fmt.Fprintln(out, "This program reads a text file, converts its contents to uppercase,")
	fmt.Fprintln(out, "and saves the result to a new file with '_modified' added to the name.")
	fmt.Fprintln(out, "======================")
	fmt.Fprintln(out)

	for {
		name, ok := readLine("Enter the input filename: ")
		if !ok {
			fmt.Fprintln(out, "\nProgram terminated.")
			return
		}

		res, err := Uppercase(name)
		if err == nil {
			fmt.Fprintf(out, "\nSuccess! Modified content written to %s\n", res.Output)
			fmt.Fprintf(out, "Original length: %d characters\n", res.InputLen)
			fmt.Fprintf(out, "Modified length: %d characters\n", res.OutputLen)
			return
		}
		fmt.Fprintln(out, describe(name, err))

		answer, ok := readLine("\nWould you like to try another file? (y/n): ")
		if !ok || !strings.EqualFold(answer, "y") {
			fmt.Fprintln(out, "Program terminated.")
			return
		}
	}
}

// describe 把错误转换为提示信息
func describe(name string, err error) string {
	switch {
	case errors.Is(err, ErrNotFound):
		return fmt.Sprintf("Error: File '%s' not found. Please try again.", name)
	case errors.Is(err, ErrPermission):
		return "Error: Don't have permission to read the file."
	case errors.Is(err, ErrNotText):
		return "Error: File contains invalid characters or is not a text file."
	case errors.Is(err, ErrWrite) && errors.Is(err, fs.ErrPermission):
		return "Error: Don't have permission to create output file."
	case errors.Is(err, ErrWrite):
		return fmt.Sprintf("Error writing to output file: %v", err)
	default:
		return fmt.Sprintf("Error reading file: %v", err)
	}
}
