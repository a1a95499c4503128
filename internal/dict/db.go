// Package dict 实现词典存储：文本键值库（TextDb/TableDb/StableDb）、用户词库（文本或 SQLite 后端）、
// 按编码查询的 Dictionary 与编译快照。
package dict

import (
	"path/filepath"
	"strings"
)

// Accessor 按键序遍历一次查询结果。
type Accessor interface {
	Next() (key, value string, ok bool)
	Exhausted() bool
	Reset()
}

// Db 为键值存储的公共接口。
type Db interface {
	Name() string
	FilePath() string

	Open() error
	OpenReadOnly() error
	Close() error
	Loaded() bool
	ReadOnly() bool

	Fetch(key string) (string, bool)
	Update(key, value string) error
	Erase(key string) error
	// Query 返回所有以 prefix 开头的键（按字典序）。
	Query(prefix string) Accessor

	MetaFetch(key string) (string, bool)
	MetaUpdate(key, value string) error

	// Backup/Restore 以统一文本格式导出或导入。
	Backup(path string) error
	Restore(path string) error
}

// sliceAccessor 基于已排序的键快照。
type sliceAccessor struct {
	keys   []string
	values []string
	i      int
}

func (a *sliceAccessor) Next() (string, string, bool) {
	if a.i >= len(a.keys) {
		return "", "", false
	}
	k, v := a.keys[a.i], a.values[a.i]
	a.i++
	return k, v, true
}

func (a *sliceAccessor) Exhausted() bool { return a.i >= len(a.keys) }
func (a *sliceAccessor) Reset()          { a.i = 0 }

// splitKey 拆分 "code \ttext"。
func splitKey(key string) (code, text string, ok bool) {
	code, text, ok = strings.Cut(key, "\t")
	if !ok || text == "" {
		return "", "", false
	}
	code = strings.TrimRight(code, " ")
	if code == "" {
		return "", "", false
	}
	return code, text, true
}

// makeKey 生成 "code \ttext"；code 末尾恰有一个空格。
func makeKey(code, text string) string {
	return strings.TrimRight(code, " ") + " \t" + text
}

// CodePrefix 返回与 code 精确匹配的键前缀。
func CodePrefix(code string) string {
	return strings.TrimRight(code, " ") + " \t"
}

func dirOf(path string) string {
	return filepath.Dir(path)
}
