package dict

import (
	"fmt"
	"strconv"

	"imecore/internal/algo"
	"imecore/internal/diag"
	"imecore/pkg/contract"
)

// tickKey 为全局提交计数的元数据键。
const tickKey = "/tick"

// UserDictionary: 记录用户上屏历史并据此给出个性化权重。
type UserDictionary struct {
	name    string
	db      Db
	tick    uint64
	pending int
	log     *diag.Logger
}

// NewUserDictionary 包装用户词库；db 由调用方构造（文本或 SQLite）。
func NewUserDictionary(db Db, log *diag.Logger) *UserDictionary {
	return &UserDictionary{name: db.Name(), db: db, log: log}
}

// Open 打开底层库并读取 tick。
func (u *UserDictionary) Open() error {
	if !u.db.Loaded() {
		if err := u.db.Open(); err != nil {
			return err
		}
	}
	u.tick = 0
	if v, ok := u.db.MetaFetch(tickKey); ok {
		t, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			u.log.Warn("dict", string(diag.CodeInput), "bad tick in user db", map[string]string{"db": u.name, "tick": v})
		} else {
			u.tick = t
		}
	}
	return nil
}

func (u *UserDictionary) Name() string { return u.name }
func (u *UserDictionary) Tick() uint64 { return u.tick }
func (u *UserDictionary) Loaded() bool { return u.db.Loaded() }

// Pending 返回尚未 CommitPending 的更新数。
func (u *UserDictionary) Pending() int { return u.pending }

// Fetch 读取词条的原始统计值。
func (u *UserDictionary) Fetch(code, text string) (UserDbValue, bool) {
	s, ok := u.db.Fetch(makeKey(code, text))
	if !ok {
		return UserDbValue{}, false
	}
	v, err := UnpackValues(s)
	if err != nil {
		return UserDbValue{}, false
	}
	return v, true
}

// UpdateEntry 记录一次使用：
// commits>0 上屏（tick 递增）；commits==0 仅衰减；commits<0 标记删除。
func (u *UserDictionary) UpdateEntry(e DictEntry, commits int) error {
	if !u.db.Loaded() {
		return fmt.Errorf("user dictionary %s: %w", u.name, contract.ErrNotLoaded)
	}
	key := makeKey(e.Code, e.Text)
	var v UserDbValue
	if s, ok := u.db.Fetch(key); ok {
		if pv, err := UnpackValues(s); err == nil {
			v = pv
		} else {
			u.log.Warn("dict", string(diag.CodeInput), "reset malformed user entry", map[string]string{"db": u.name, "key": key})
		}
	}
	// 词条时刻晚于全局 tick（未持久化的 tick）时按当前 tick 计
	if v.Tick > u.tick {
		v.Tick = u.tick
	}
	switch {
	case commits > 0:
		if v.Commits < 0 {
			v.Commits = -v.Commits // 复活已删除的词条
		}
		v.Commits += commits
		u.tick++
		v.Dee = algo.FormulaD(float64(commits), float64(u.tick), v.Dee, float64(v.Tick))
	case commits == 0:
		const k = 0.1
		v.Dee = algo.FormulaD(k, float64(u.tick), v.Dee, float64(v.Tick))
	default:
		v.Commits = min(-1, -v.Commits)
		v.Dee = algo.FormulaD(0, float64(u.tick), v.Dee, float64(v.Tick))
	}
	v.Tick = u.tick
	if err := u.db.Update(key, PackValues(v)); err != nil {
		return err
	}
	u.pending++
	return nil
}

// Lookup 返回编码 code 的用户词条，降序。以 present = tick+1 为当前时刻，
// dee 先衰减到 present，权重为 FormulaP(0, commits/present, present, dee)。
// 已删除（commits<0）的词条不返回。
func (u *UserDictionary) Lookup(code string) []DictEntry {
	if !u.db.Loaded() {
		return nil
	}
	present := u.tick + 1
	var out []DictEntry
	a := u.db.Query(CodePrefix(code))
	for {
		k, s, ok := a.Next()
		if !ok {
			break
		}
		c, text, ok := splitKey(k)
		if !ok {
			continue
		}
		v, err := UnpackValues(s)
		if err != nil || v.Commits < 0 {
			continue
		}
		out = append(out, DictEntry{Text: text, Code: c, Weight: entryWeight(v, present)})
	}
	sortEntries(out)
	return out
}

// entryWeight 计算词条在时刻 present 的权重。
func entryWeight(v UserDbValue, present uint64) float64 {
	dee := v.Dee
	if v.Tick < present {
		dee = algo.FormulaD(0, float64(present), dee, float64(v.Tick))
	}
	return algo.FormulaP(0, float64(v.Commits)/float64(present), float64(present), dee)
}

// CommitPending 持久化 tick 并刷出底层库。
func (u *UserDictionary) CommitPending() error {
	if u.pending == 0 {
		return nil
	}
	if err := u.db.MetaUpdate(tickKey, strconv.FormatUint(u.tick, 10)); err != nil {
		return err
	}
	if t, ok := u.db.(interface{ Save() error }); ok {
		if err := t.Save(); err != nil {
			return err
		}
	}
	u.pending = 0
	return nil
}

// Close 刷出并关闭。
func (u *UserDictionary) Close() error {
	err := u.CommitPending()
	if cerr := u.db.Close(); err == nil {
		err = cerr
	}
	return err
}
