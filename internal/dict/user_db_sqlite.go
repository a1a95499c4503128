package dict

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"

	_ "modernc.org/sqlite" // 纯 Go SQLite 驱动

	"imecore/internal/diag"
	"imecore/internal/fsx"
	"imecore/pkg/contract"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS entries (key TEXT PRIMARY KEY, value TEXT NOT NULL);
CREATE TABLE IF NOT EXISTS meta (key TEXT PRIMARY KEY, value TEXT NOT NULL);
`

// SQLiteUserDb: 用户词库的 SQLite 后端；每次 Update 即持久化。
type SQLiteUserDb struct {
	name     string
	path     string
	db       *sql.DB
	readOnly bool
	log      *diag.Logger
}

// NewSQLiteUserDb 构造未打开的 SQLite 用户词库。
func NewSQLiteUserDb(path, name string) *SQLiteUserDb {
	return &SQLiteUserDb{name: name, path: path}
}

// SetLogger 设置诊断输出。
func (s *SQLiteUserDb) SetLogger(l *diag.Logger) { s.log = l }

func (s *SQLiteUserDb) Name() string     { return s.name }
func (s *SQLiteUserDb) FilePath() string { return s.path }
func (s *SQLiteUserDb) Loaded() bool     { return s.db != nil }
func (s *SQLiteUserDb) ReadOnly() bool   { return s.readOnly }

func (s *SQLiteUserDb) Open() error {
	if s.db != nil {
		return nil
	}
	if err := os.MkdirAll(dirOf(s.path), 0o755); err != nil {
		return fmt.Errorf("open %s: %v: %w", s.path, err, contract.ErrNotLoaded)
	}
	db, err := sql.Open("sqlite", s.path)
	if err != nil {
		return fmt.Errorf("open %s: %v: %w", s.path, err, contract.ErrNotLoaded)
	}
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(sqliteSchema); err != nil {
		_ = db.Close()
		return fmt.Errorf("init %s: %v: %w", s.path, err, contract.ErrNotLoaded)
	}
	s.db = db
	s.readOnly = false
	if _, ok := s.MetaFetch("/db_name"); !ok {
		_ = s.MetaUpdate("/db_name", s.name)
		_ = s.MetaUpdate("/db_type", "userdb")
	}
	return nil
}

func (s *SQLiteUserDb) OpenReadOnly() error {
	if s.db != nil {
		return nil
	}
	if _, err := os.Stat(s.path); err != nil {
		return fmt.Errorf("open %s: %v: %w", s.path, err, contract.ErrNotLoaded)
	}
	db, err := sql.Open("sqlite", "file:"+s.path+"?mode=ro")
	if err != nil {
		return fmt.Errorf("open %s: %v: %w", s.path, err, contract.ErrNotLoaded)
	}
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return fmt.Errorf("open %s: %v: %w", s.path, err, contract.ErrNotLoaded)
	}
	s.db = db
	s.readOnly = true
	return nil
}

func (s *SQLiteUserDb) Close() error {
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	s.readOnly = false
	return err
}

func (s *SQLiteUserDb) Fetch(key string) (string, bool) {
	return s.fetch("entries", key)
}

func (s *SQLiteUserDb) fetch(table, key string) (string, bool) {
	if s.db == nil {
		return "", false
	}
	var v string
	err := s.db.QueryRow("SELECT value FROM "+table+" WHERE key = ?", key).Scan(&v)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			s.log.Warn("dict", string(diag.CodeIO), "sqlite fetch failed", map[string]string{"db": s.name, "err": err.Error()})
		}
		return "", false
	}
	return v, true
}

func (s *SQLiteUserDb) writable() error {
	if s.db == nil {
		return contract.ErrNotLoaded
	}
	if s.readOnly {
		return contract.ErrReadOnly
	}
	return nil
}

func (s *SQLiteUserDb) upsert(table, key, value string) error {
	if err := s.writable(); err != nil {
		return err
	}
	_, err := s.db.Exec("INSERT INTO "+table+"(key, value) VALUES(?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value", key, value)
	return err
}

func (s *SQLiteUserDb) Update(key, value string) error { return s.upsert("entries", key, value) }

func (s *SQLiteUserDb) Erase(key string) error {
	if err := s.writable(); err != nil {
		return err
	}
	_, err := s.db.Exec("DELETE FROM entries WHERE key = ?", key)
	return err
}

// Query 以键区间 [prefix, upper) 扫描。
func (s *SQLiteUserDb) Query(prefix string) Accessor {
	a := &sliceAccessor{}
	if s.db == nil {
		return a
	}
	var (
		rows *sql.Rows
		err  error
	)
	if upper, ok := prefixUpper(prefix); ok {
		rows, err = s.db.Query("SELECT key, value FROM entries WHERE key >= ? AND key < ? ORDER BY key", prefix, upper)
	} else {
		rows, err = s.db.Query("SELECT key, value FROM entries WHERE key >= ? ORDER BY key", prefix)
	}
	if err != nil {
		s.log.Warn("dict", string(diag.CodeIO), "sqlite query failed", map[string]string{"db": s.name, "err": err.Error()})
		return a
	}
	defer rows.Close()
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			break
		}
		a.keys = append(a.keys, k)
		a.values = append(a.values, v)
	}
	return a
}

// prefixUpper 返回大于所有以 p 开头的字符串的最小上界。
func prefixUpper(p string) (string, bool) {
	b := []byte(p)
	for i := len(b) - 1; i >= 0; i-- {
		if b[i] < 0xff {
			b[i]++
			return string(b[:i+1]), true
		}
	}
	return "", false
}

func (s *SQLiteUserDb) MetaFetch(key string) (string, bool) { return s.fetch("meta", key) }

func (s *SQLiteUserDb) MetaUpdate(key, value string) error { return s.upsert("meta", key, value) }

// Backup 以 UserDbFormat 文本格式导出。
func (s *SQLiteUserDb) Backup(path string) error {
	if s.db == nil {
		return contract.ErrNotLoaded
	}
	a := s.Query("").(*sliceAccessor)
	meta := map[string]string{}
	rows, err := s.db.Query("SELECT key, value FROM meta")
	if err != nil {
		return err
	}
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err == nil {
			meta[k] = v
		}
	}
	_ = rows.Close()
	values := make(map[string]string, len(a.keys))
	for i, k := range a.keys {
		values[k] = a.values[i]
	}
	return fsx.WriteWith(context.Background(), path, nil, func(w io.Writer) error {
		_, err := WriteTSV(w, UserDbFormat, meta, a.keys, func(k string) string { return values[k] })
		return err
	})
}

// Restore 从文本快照导入（单事务）。
func (s *SQLiteUserDb) Restore(path string) error {
	if err := s.writable(); err != nil {
		return err
	}
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	var werr error
	_, err = ReadTSV(f, path, UserDbFormat.Parse, func(k, v string) {
		if werr != nil {
			return
		}
		_, werr = tx.Exec("INSERT INTO entries(key, value) VALUES(?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value", k, v)
	}, nil, s.log)
	if err == nil {
		err = werr
	}
	if err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

var _ Db = (*SQLiteUserDb)(nil)
