package dict

import (
	"bufio"
	"fmt"
	"io"
	"sort"
	"strings"

	"imecore/internal/diag"
)

// Row 为一行以 Tab 分隔的字段。
type Row []string

// Parser 将一行解析为键值；ok=false 表示格式错误（跳过）。
type Parser func(row Row) (key, value string, ok bool)

// Formatter 将键值格式化为一行；ok=false 表示跳过。
type Formatter func(key, value string) (Row, bool)

// Format 描述一种文本库格式。
type Format struct {
	Parse       Parser
	Format      Formatter
	Description string
}

// ReadResult 汇总一次读取。
type ReadResult struct {
	Entries int
	Skipped int
}

// ReadTSV 逐行读取：
// - "#@key\tvalue" 为元数据；
// - "#" 开头为注释，遇到 "# no comment" 后不再识别注释；
// - 空行忽略；格式错误的行跳过并记 warn。
func ReadTSV(r io.Reader, src string, parse Parser, put func(key, value string), meta func(key, value string), log *diag.Logger) (ReadResult, error) {
	var res ReadResult
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 4*1024*1024)
	comments := true
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimRight(sc.Text(), " \r\n")
		if line == "" {
			continue
		}
		if comments && line[0] == '#' {
			if strings.HasPrefix(line, "#@") {
				if k, v, ok := strings.Cut(line[2:], "\t"); ok && meta != nil {
					meta(k, v)
				}
				continue
			}
			if line == "# no comment" {
				comments = false
			}
			continue
		}
		key, value, ok := parse(Row(strings.Split(line, "\t")))
		if !ok {
			res.Skipped++
			log.Warn("dict", string(diag.CodeInput), "skip malformed row", map[string]string{
				"src":  src,
				"line": fmt.Sprintf("%d", lineNo),
			})
			continue
		}
		put(key, value)
		res.Entries++
	}
	return res, sc.Err()
}

// WriteTSV 写出描述行、元数据与数据行；返回写出的数据行数。
func WriteTSV(w io.Writer, f Format, meta map[string]string, keys []string, value func(string) string) (int, error) {
	bw := bufio.NewWriter(w)
	if f.Description != "" {
		fmt.Fprintf(bw, "# %s\n", f.Description)
	}
	mk := make([]string, 0, len(meta))
	for k := range meta {
		mk = append(mk, k)
	}
	sort.Strings(mk)
	for _, k := range mk {
		fmt.Fprintf(bw, "#@%s\t%s\n", k, meta[k])
	}
	n := 0
	for _, k := range keys {
		row, ok := f.Format(k, value(k))
		if !ok {
			continue
		}
		bw.WriteString(strings.Join(row, "\t"))
		bw.WriteByte('\n')
		n++
	}
	return n, bw.Flush()
}
