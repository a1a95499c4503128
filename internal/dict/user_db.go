package dict

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"imecore/pkg/contract"
)

// UserDbValue: 用户词条的使用统计，打包为 "c=<commits> d=<dee> t=<tick>"。
type UserDbValue struct {
	Commits int
	Dee     float64
	Tick    uint64
}

// maxDee 为 dee 的上限。
const maxDee = 10000.0

// PackValues 打包为存储值。
func PackValues(v UserDbValue) string {
	return "c=" + strconv.Itoa(v.Commits) +
		" d=" + strconv.FormatFloat(v.Dee, 'g', -1, 64) +
		" t=" + strconv.FormatUint(v.Tick, 10)
}

// UnpackValues 解析存储值；未知键忽略，数值错误返回 ErrMalformedEntry。
func UnpackValues(s string) (UserDbValue, error) {
	var v UserDbValue
	for _, kv := range strings.Fields(s) {
		k, val, ok := strings.Cut(kv, "=")
		if !ok {
			continue
		}
		var err error
		switch k {
		case "c":
			v.Commits, err = strconv.Atoi(val)
		case "d":
			v.Dee, err = strconv.ParseFloat(val, 64)
			v.Dee = math.Min(maxDee, v.Dee)
		case "t":
			v.Tick, err = strconv.ParseUint(val, 10, 64)
		}
		if err != nil {
			return UserDbValue{}, fmt.Errorf("userdb value %q: %w", kv, contract.ErrMalformedEntry)
		}
	}
	return v, nil
}

// 用户词库行格式：code<空格><Tab>text<Tab>value。
func userDbEntryParser(row Row) (string, string, bool) {
	if len(row) < 2 || strings.TrimSpace(row[0]) == "" || row[1] == "" {
		return "", "", false
	}
	value := ""
	if len(row) >= 3 {
		value = row[2]
	}
	return makeKey(row[0], row[1]), value, true
}

func userDbEntryFormatter(key, value string) (Row, bool) {
	code, text, ok := splitKey(key)
	if !ok {
		return nil, false
	}
	return Row{code + " ", text, value}, true
}

// UserDbFormat 为用户词库统一文本格式，也用作备份格式。
var UserDbFormat = Format{
	Parse:       userDbEntryParser,
	Format:      userDbEntryFormatter,
	Description: "imecore user dictionary",
}

// 用户词库后端。
const (
	BackendText   = "text"
	BackendSQLite = "sqlite"
)

// NewTextUserDb 构造文本后端的用户词库。
func NewTextUserDb(path, name string) *TextDb {
	return NewTextDb(path, name, "userdb", UserDbFormat)
}

// NewUserDb 按后端名构造用户词库。
func NewUserDb(backend, path, name string) (Db, error) {
	switch backend {
	case "", BackendText:
		return NewTextUserDb(path, name), nil
	case BackendSQLite:
		return NewSQLiteUserDb(path, name), nil
	default:
		return nil, fmt.Errorf("user db backend %q: %w", backend, contract.ErrInvalidInput)
	}
}
