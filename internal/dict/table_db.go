package dict

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"imecore/pkg/contract"
)

// 码表行格式：text<Tab>code<Tab>weight；键为 "code \ttext"，值为权重。
func tableEntryParser(row Row) (string, string, bool) {
	return parseTableColumns(row, 0, 1, 2)
}

func parseTableColumns(row Row, textCol, codeCol, weightCol int) (string, string, bool) {
	if textCol < 0 || codeCol < 0 || len(row) <= textCol || len(row) <= codeCol {
		return "", "", false
	}
	text, code := row[textCol], strings.TrimSpace(row[codeCol])
	if text == "" || code == "" {
		return "", "", false
	}
	weight := "0"
	if weightCol >= 0 && len(row) > weightCol && row[weightCol] != "" {
		if _, err := strconv.ParseFloat(row[weightCol], 64); err != nil {
			return "", "", false
		}
		weight = row[weightCol]
	}
	return makeKey(code, text), weight, true
}

func tableEntryFormatter(key, value string) (Row, bool) {
	code, text, ok := splitKey(key)
	if !ok {
		return nil, false
	}
	return Row{text, code, value}, true
}

// TableFormat 为码表文本格式。
var TableFormat = Format{
	Parse:       tableEntryParser,
	Format:      tableEntryFormatter,
	Description: "imecore table",
}

// TableDb: 以 TableFormat 存储的文本库；.dict.yaml 源总是只读。
type TableDb struct {
	*TextDb
}

// NewTableDb 构造码表库。
func NewTableDb(path, name string) *TableDb {
	db := &TableDb{TextDb: NewTextDb(path, name, "tabledb", TableFormat)}
	if strings.HasSuffix(path, ".dict.yaml") {
		db.preamble = readDictHeader
	}
	return db
}

func (db *TableDb) Open() error {
	if db.preamble != nil {
		return db.TextDb.OpenReadOnly()
	}
	return db.TextDb.Open()
}

// StableDb: 只读码表；所有修改操作返回 ErrReadOnly。
type StableDb struct {
	*TableDb
}

// NewStableDb 构造只读码表库。
func NewStableDb(path, name string) *StableDb {
	return &StableDb{TableDb: NewTableDb(path, name)}
}

func (db *StableDb) Open() error                     { return db.TextDb.OpenReadOnly() }
func (db *StableDb) ReadOnly() bool                  { return true }
func (db *StableDb) Update(string, string) error     { return contract.ErrReadOnly }
func (db *StableDb) Erase(string) error              { return contract.ErrReadOnly }
func (db *StableDb) MetaUpdate(string, string) error { return contract.ErrReadOnly }
func (db *StableDb) Restore(string) error            { return contract.ErrReadOnly }

var (
	_ Db = (*TableDb)(nil)
	_ Db = (*StableDb)(nil)
)

// DictHeader 为 .dict.yaml 的文件头。
type DictHeader struct {
	Name    string   `yaml:"name"`
	Version string   `yaml:"version"`
	Sort    string   `yaml:"sort"`
	Columns []string `yaml:"columns"`
}

var errNoHeaderEnd = errors.New("dict header not terminated by '...'")

// readDictHeader 读取 "---" 至 "..." 之间的 YAML 头，按 columns 生成行解析器。
func readDictHeader(br *bufio.Reader, meta map[string]string) (Parser, error) {
	var head strings.Builder
	for {
		line, err := br.ReadString('\n')
		if strings.TrimRight(line, " \r\n") == "..." {
			break
		}
		head.WriteString(line)
		if err == io.EOF {
			return nil, errNoHeaderEnd
		}
		if err != nil {
			return nil, err
		}
	}
	var h DictHeader
	if err := yaml.Unmarshal([]byte(head.String()), &h); err != nil {
		return nil, fmt.Errorf("dict header: %w", err)
	}
	if h.Name != "" {
		meta["/dict_name"] = h.Name
	}
	if h.Version != "" {
		meta["/dict_version"] = h.Version
	}
	cols := h.Columns
	if len(cols) == 0 {
		cols = []string{"text", "code", "weight"}
	}
	idx := func(name string) int {
		for i, c := range cols {
			if c == name {
				return i
			}
		}
		return -1
	}
	textCol, codeCol, weightCol := idx("text"), idx("code"), idx("weight")
	if textCol < 0 || codeCol < 0 {
		return nil, fmt.Errorf("dict header: columns %v lack text or code: %w", cols, contract.ErrMalformedEntry)
	}
	return func(row Row) (string, string, bool) {
		return parseTableColumns(row, textCol, codeCol, weightCol)
	}, nil
}
