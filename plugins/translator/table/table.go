// Package table 为码表翻译器：按编码查词典（含前缀补全），并合入用户词典；上屏后学习。
package table

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"imecore/internal/diag"
	"imecore/internal/dict"
	"imecore/internal/resource"
	"imecore/pkg/contract"
)

const comp = "table_translator"

// Options 取自 "<ns>/*"。
type Options struct {
	Dictionary       string  `yaml:"dictionary"`
	Tag              string  `yaml:"tag"`
	EnableCompletion *bool   `yaml:"enable_completion"`
	EnableUserDict   *bool   `yaml:"enable_user_dict"`
	UserDict         string  `yaml:"user_dict"`
	InitialQuality   float64 `yaml:"initial_quality"`
}

type Translator struct {
	engine     contract.EngineHandle
	log        *diag.Logger
	tag        string
	delimiters string
	completion bool
	quality    float64

	dict   *dict.Dictionary
	user   *dict.UserDictionary
	cancel func()
}

func enabled(p *bool, def bool) bool {
	if p == nil {
		return def
	}
	return *p
}

// New 加载词典；加载失败时翻译器不可用（Query 返回 nil），不视为构造错误。
func New(t contract.Ticket, opts *Options) *Translator {
	if opts == nil {
		opts = &Options{}
	}
	dep, log := resource.FromTicket(t)
	tr := &Translator{
		engine:     t.Engine,
		log:        log,
		tag:        "abc",
		completion: enabled(opts.EnableCompletion, true),
		quality:    opts.InitialQuality,
	}
	if opts.Tag != "" {
		tr.tag = opts.Tag
	}
	if cfg := t.Config(); cfg != nil {
		tr.delimiters, _ = cfg.GetString("speller/delimiter")
	}

	d, err := loadDictionary(dep, opts.Dictionary, log)
	if err != nil {
		log.ErrorWithKV(comp, string(diag.Classify(err)), "dictionary unavailable", nil, map[string]string{"dictionary": opts.Dictionary, "err": err.Error()})
		diag.IncError(comp, string(diag.Classify(err)))
		return tr
	}
	tr.dict = d

	if enabled(opts.EnableUserDict, true) {
		name := opts.UserDict
		if name == "" {
			name = opts.Dictionary
		}
		tr.user = openUserDictionary(dep, name, log)
	}
	if tr.user != nil && t.Engine != nil {
		tr.cancel = t.Engine.Messenger().Subscribe(contract.MsgCommit, func(_, _ string) { tr.learn() })
	}
	return tr
}

// loadDictionary 依次尝试 .dict.yaml 与 .table.txt；配置了缓存目录时经编译快照加载。
func loadDictionary(dep *resource.Deployment, id string, log *diag.Logger) (*dict.Dictionary, error) {
	if id == "" {
		return nil, fmt.Errorf("no dictionary configured: %w", contract.ErrNotLoaded)
	}
	for _, r := range dep.DictSources() {
		path, err := r.ResolvePath(id)
		if err != nil {
			continue
		}
		if _, err := os.Stat(path); err != nil {
			continue
		}
		if cr := dep.CacheResolver(); cr != nil {
			if cache, err := cr.ResolvePath(id); err == nil {
				d, hit, err := dict.LoadCompiled(cache, path, log)
				if err == nil {
					log.DebugStart(comp, "dictionary loaded", map[string]string{"dictionary": id, "cache_hit": fmt.Sprint(hit)})
				}
				return d, err
			}
		}
		db := dict.NewStableDb(path, id)
		db.SetLogger(log)
		return dict.LoadDictionary(db, log)
	}
	return nil, fmt.Errorf("dictionary %q: %w", id, contract.ErrNotLoaded)
}

func openUserDictionary(dep *resource.Deployment, name string, log *diag.Logger) *dict.UserDictionary {
	path, err := dep.UserDbResolver().ResolvePath(name)
	if err != nil {
		log.Warn(comp, string(diag.Classify(err)), "user dictionary disabled", map[string]string{"name": name, "err": err.Error()})
		return nil
	}
	backend := dep.UserDbBackend
	if backend == "" {
		backend = dict.BackendText
	}
	db, err := dict.NewUserDb(backend, path, name)
	if err != nil {
		log.Warn(comp, string(diag.Classify(err)), "user dictionary disabled", map[string]string{"name": name, "err": err.Error()})
		return nil
	}
	if l, ok := db.(interface{ SetLogger(*diag.Logger) }); ok {
		l.SetLogger(log)
	}
	u := dict.NewUserDictionary(db, log)
	if err := u.Open(); err != nil {
		log.Warn(comp, string(diag.Classify(err)), "user dictionary disabled", map[string]string{"name": name, "err": err.Error()})
		return nil
	}
	return u
}

// Available 判断词典是否已加载。
func (tr *Translator) Available() bool { return tr.dict != nil }

// code 去掉分隔符后的编码。
func (tr *Translator) code(s string) string {
	if tr.delimiters == "" {
		return s
	}
	return strings.Map(func(r rune) rune {
		if strings.ContainsRune(tr.delimiters, r) {
			return -1
		}
		return r
	}, s)
}

// Query 用户词条在前，码表（或前缀补全）在后；各自按权重非增。
func (tr *Translator) Query(input string, seg *contract.Segment) contract.Translation {
	if tr.dict == nil || seg == nil || !seg.HasTag(tr.tag) || seg.End > len(input) {
		return nil
	}
	code := tr.code(input[seg.Start:seg.End])
	if code == "" {
		return nil
	}
	out := contract.NewUnionTranslation()
	if tr.user != nil {
		if entries := tr.user.Lookup(code); len(entries) > 0 {
			f := contract.NewFifoTranslation()
			for _, e := range entries {
				f.Append(contract.Candidate{
					Type: "user_table", Start: seg.Start, End: seg.End,
					Text: e.Text, Preedit: e.Code, Quality: e.Weight + tr.quality,
				})
			}
			out.Add(f)
		}
	}
	if tr.completion {
		out.Add(tr.shift(tr.dict.LookupPrefix(code, seg.Start, seg.End)))
	} else if entries := tr.dict.Lookup(code); len(entries) > 0 {
		f := contract.NewFifoTranslation()
		for _, e := range entries {
			f.Append(contract.Candidate{
				Type: "table", Start: seg.Start, End: seg.End,
				Text: e.Text, Preedit: e.Code, Quality: e.Weight + tr.quality,
			})
		}
		out.Add(f)
	}
	if out.Exhausted() {
		return nil
	}
	return out
}

func (tr *Translator) shift(up contract.Translation) contract.Translation {
	if tr.quality == 0 {
		return up
	}
	return contract.NewFuncTranslation(func() (contract.Candidate, bool) {
		c, ok := up.Peek()
		if !ok {
			return contract.Candidate{}, false
		}
		up.Next()
		return c.WithQuality(c.Quality + tr.quality), true
	})
}

// learn 把本次上屏中由本翻译器产出的候选计入用户词典：已选定段取其选定项，
// 未选定段取上屏时的高亮项。
func (tr *Translator) learn() {
	ctx := tr.engine.Context()
	input := ctx.Input()
	n := 0
	for _, seg := range ctx.Composition().Segments() {
		if seg.Status < contract.Guess || !seg.HasTag(tr.tag) || seg.End > len(input) {
			continue
		}
		c, ok := seg.SelectedCandidate()
		if !ok {
			continue
		}
		switch c.Type {
		case "table", "completion", "user_table":
		default:
			continue
		}
		code := c.Preedit
		if code == "" {
			code = tr.code(input[seg.Start:seg.End])
		}
		if err := tr.user.UpdateEntry(dict.DictEntry{Text: c.Text, Code: code}, 1); err != nil {
			tr.log.Warn(comp, string(diag.Classify(err)), "learn failed", map[string]string{"text": c.Text, "err": err.Error()})
			continue
		}
		n++
	}
	if n == 0 {
		return
	}
	if err := tr.user.CommitPending(); err != nil {
		tr.log.Warn(comp, string(diag.Classify(err)), "user dictionary flush failed", map[string]string{"err": err.Error()})
	}
	diag.IncOp(comp, "learn", "ok")
}

// Close 取消订阅并关闭词典；用户词典在关闭前刷出。
func (tr *Translator) Close() error {
	if tr.cancel != nil {
		tr.cancel()
		tr.cancel = nil
	}
	var errs []error
	if tr.user != nil {
		errs = append(errs, tr.user.Close())
		tr.user = nil
	}
	if tr.dict != nil {
		errs = append(errs, tr.dict.Close())
		tr.dict = nil
	}
	return errors.Join(errs...)
}
