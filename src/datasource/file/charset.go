package file

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// CharsetEncoding 根据字符集名称返回编码
// 支持GBK/GB2312/GB18030以及WHATWG定义的其它标签，空值按UTF-8处理
func CharsetEncoding(charset string) (encoding.Encoding, error) {
	switch strings.ToLower(strings.TrimSpace(charset)) {
	case "", "utf-8", "utf8":
		return unicode.UTF8BOM, nil
	case "gbk", "gb2312":
		return simplifiedchinese.GBK, nil
	case "gb18030":
		return simplifiedchinese.GB18030, nil
	default:
		enc, err := htmlindex.Get(charset)
		if err != nil {
			return nil, fmt.Errorf("不支持的字符集 %q: %w", charset, err)
		}
		return enc, nil
	}
}

// CharsetReader 字符集转换器，将输入转换为UTF-8
func CharsetReader(charset string, input io.Reader) (io.Reader, error) {
	enc, err := CharsetEncoding(charset)
	if err != nil {
		return nil, err
	}
	return transform.NewReader(input, enc.NewDecoder()), nil
}

// decodeText 把原始字节解码为UTF-8文本，二进制内容返回ErrFormat
func decodeText(data []byte, charset string) ([]byte, error) {
	enc, err := CharsetEncoding(charset)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFormat, err)
	}

	// UTF-8解码器会把非法字节替换为U+FFFD，因此先校验
	if enc == unicode.UTF8BOM && !utf8.Valid(data) {
		return nil, fmt.Errorf("%w: 内容不是有效的UTF-8文本", ErrFormat)
	}

	text, _, err := transform.Bytes(enc.NewDecoder(), data)
	if err != nil {
		return nil, fmt.Errorf("%w: 字符集解码失败: %v", ErrFormat, err)
	}
	if bytes.IndexByte(text, 0) >= 0 {
		return nil, fmt.Errorf("%w: 内容包含二进制数据", ErrFormat)
	}
	return text, nil
}
