package dict

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"sort"
	"strings"

	"imecore/internal/diag"
	"imecore/internal/fsx"
	"imecore/pkg/contract"
)

// TextDb: 内存键值表 + 排序键索引（前缀查询用二分）。
// 修改后标记脏，Close 时落盘（同目录临时文件 + 原子替换）。
type TextDb struct {
	name   string
	path   string
	dbType string
	format Format
	log    *diag.Logger
	// preamble 在数据行之前读取文件头（如 .dict.yaml 的 YAML 段），可替换行解析器。
	preamble func(br *bufio.Reader, meta map[string]string) (Parser, error)

	data  map[string]string
	meta  map[string]string
	keys  []string
	stale bool

	loaded   bool
	readOnly bool
	modified bool
}

// NewTextDb 构造未打开的文本库。
func NewTextDb(path, name, dbType string, format Format) *TextDb {
	return &TextDb{
		name:   name,
		path:   path,
		dbType: dbType,
		format: format,
		data:   map[string]string{},
		meta:   map[string]string{},
	}
}

// SetLogger 设置跳过行等诊断输出。
func (db *TextDb) SetLogger(l *diag.Logger) { db.log = l }

func (db *TextDb) Name() string     { return db.name }
func (db *TextDb) FilePath() string { return db.path }
func (db *TextDb) Loaded() bool     { return db.loaded }
func (db *TextDb) ReadOnly() bool   { return db.readOnly }
func (db *TextDb) Modified() bool   { return db.modified }

// Len 返回记录数。
func (db *TextDb) Len() int { return len(db.data) }

// Open 以读写方式打开；文件不存在时创建空库（Close 时写出）。
func (db *TextDb) Open() error {
	if db.loaded {
		return nil
	}
	db.readOnly = false
	if _, err := os.Stat(db.path); errors.Is(err, fs.ErrNotExist) {
		db.clear()
		db.meta["/db_name"] = db.name
		db.meta["/db_type"] = db.dbType
		db.loaded = true
		db.modified = true
		return nil
	}
	if _, err := db.LoadFromFile(db.path); err != nil {
		return fmt.Errorf("open %s: %v: %w", db.path, err, contract.ErrNotLoaded)
	}
	db.loaded = true
	db.modified = false
	return nil
}

// OpenReadOnly 只读打开；文件必须存在。
func (db *TextDb) OpenReadOnly() error {
	if db.loaded {
		return nil
	}
	if _, err := db.LoadFromFile(db.path); err != nil {
		return fmt.Errorf("open %s: %v: %w", db.path, err, contract.ErrNotLoaded)
	}
	db.loaded = true
	db.readOnly = true
	db.modified = false
	return nil
}

// Close 若有修改则先落盘。
func (db *TextDb) Close() error {
	if !db.loaded {
		return nil
	}
	var err error
	if db.modified && !db.readOnly {
		err = db.Save()
	}
	db.clear()
	db.loaded = false
	db.readOnly = false
	db.modified = false
	return err
}

func (db *TextDb) clear() {
	db.data = map[string]string{}
	db.meta = map[string]string{}
	db.keys = nil
	db.stale = false
}

func (db *TextDb) Fetch(key string) (string, bool) {
	if !db.loaded {
		return "", false
	}
	v, ok := db.data[key]
	return v, ok
}

func (db *TextDb) writable() error {
	if !db.loaded {
		return contract.ErrNotLoaded
	}
	if db.readOnly {
		return contract.ErrReadOnly
	}
	return nil
}

func (db *TextDb) Update(key, value string) error {
	if err := db.writable(); err != nil {
		return err
	}
	db.put(key, value)
	db.modified = true
	return nil
}

func (db *TextDb) put(key, value string) {
	if _, ok := db.data[key]; !ok {
		db.stale = true
	}
	db.data[key] = value
}

func (db *TextDb) Erase(key string) error {
	if err := db.writable(); err != nil {
		return err
	}
	if _, ok := db.data[key]; !ok {
		return nil
	}
	delete(db.data, key)
	db.stale = true
	db.modified = true
	return nil
}

func (db *TextDb) index() []string {
	if db.stale || db.keys == nil {
		keys := make([]string, 0, len(db.data))
		for k := range db.data {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		db.keys = keys
		db.stale = false
	}
	return db.keys
}

// Query 返回前缀匹配的键值快照；之后的修改不影响已返回的 Accessor。
func (db *TextDb) Query(prefix string) Accessor {
	if !db.loaded {
		return &sliceAccessor{}
	}
	keys := db.index()
	lo := sort.SearchStrings(keys, prefix)
	hi := lo
	for hi < len(keys) && strings.HasPrefix(keys[hi], prefix) {
		hi++
	}
	a := &sliceAccessor{keys: keys[lo:hi:hi], values: make([]string, hi-lo)}
	for i, k := range a.keys {
		a.values[i] = db.data[k]
	}
	return a
}

func (db *TextDb) MetaFetch(key string) (string, bool) {
	if !db.loaded {
		return "", false
	}
	v, ok := db.meta[key]
	return v, ok
}

func (db *TextDb) MetaUpdate(key, value string) error {
	if err := db.writable(); err != nil {
		return err
	}
	if db.meta[key] != value {
		db.meta[key] = value
		db.modified = true
	}
	return nil
}

// LoadFromFile 清空后从文件载入。
func (db *TextDb) LoadFromFile(path string) (ReadResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return ReadResult{}, err
	}
	defer f.Close()
	db.clear()
	var r io.Reader = f
	parse := db.format.Parse
	if db.preamble != nil {
		br := bufio.NewReader(f)
		p, err := db.preamble(br, db.meta)
		if err != nil {
			return ReadResult{}, err
		}
		if p != nil {
			parse = p
		}
		r = br
	}
	res, err := ReadTSV(r, path, parse, db.put,
		func(k, v string) { db.meta[k] = v }, db.log)
	if err != nil {
		return res, err
	}
	db.log.DebugStart("dict", "loaded", map[string]string{
		"db":      db.name,
		"entries": fmt.Sprintf("%d", res.Entries),
		"skipped": fmt.Sprintf("%d", res.Skipped),
	})
	return res, nil
}

// SaveToFile 写出到指定路径（原子替换）。
func (db *TextDb) SaveToFile(path string) error {
	keys := db.index()
	return fsx.WriteWith(context.Background(), path, nil, func(w io.Writer) error {
		_, err := WriteTSV(w, db.format, db.meta, keys, func(k string) string { return db.data[k] })
		return err
	})
}

// Save 写回自身文件并清除脏标记。
func (db *TextDb) Save() error {
	if err := db.writable(); err != nil {
		return err
	}
	if err := db.SaveToFile(db.path); err != nil {
		return err
	}
	db.modified = false
	return nil
}

func (db *TextDb) Backup(path string) error {
	if !db.loaded {
		return contract.ErrNotLoaded
	}
	return db.SaveToFile(path)
}

// Restore 以快照内容合并覆盖当前记录。
func (db *TextDb) Restore(path string) error {
	if err := db.writable(); err != nil {
		return err
	}
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	if _, err := ReadTSV(f, path, db.format.Parse, db.put, nil, db.log); err != nil {
		return err
	}
	db.modified = true
	return nil
}

var _ Db = (*TextDb)(nil)
