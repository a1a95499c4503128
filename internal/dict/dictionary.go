package dict

import (
	"container/heap"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"imecore/internal/diag"
	"imecore/pkg/contract"
)

// DictEntry: 词条。
type DictEntry struct {
	Text   string
	Code   string
	Weight float64
}

// Dictionary: 编码 → 按权重降序的词条表，另有排序的编码索引供前缀查询。
type Dictionary struct {
	name    string
	db      Db
	entries map[string][]DictEntry
	codes   []string
	skipped int
	log     *diag.Logger
}

// LoadDictionary 打开 db（若未打开）并建立索引；db 为只读时 UpdateWeight 返回 ErrReadOnly。
func LoadDictionary(db Db, log *diag.Logger) (*Dictionary, error) {
	if !db.Loaded() {
		if err := db.Open(); err != nil {
			return nil, err
		}
	}
	d := &Dictionary{name: db.Name(), db: db, entries: map[string][]DictEntry{}, log: log}
	a := db.Query("")
	for {
		k, v, ok := a.Next()
		if !ok {
			break
		}
		code, text, ok := splitKey(k)
		if !ok {
			d.skipped++
			continue
		}
		w, err := strconv.ParseFloat(v, 64)
		if err != nil {
			d.skipped++
			log.Warn("dict", string(diag.CodeInput), "skip entry with bad weight", map[string]string{"db": d.name, "key": k})
			continue
		}
		d.entries[code] = append(d.entries[code], DictEntry{Text: text, Code: code, Weight: w})
	}
	d.reindex()
	return d, nil
}

// newDictionaryFromEntries 由已排序的编码表构造只读词典（编译快照）。
func newDictionaryFromEntries(name string, entries map[string][]DictEntry, log *diag.Logger) *Dictionary {
	d := &Dictionary{name: name, entries: entries, log: log}
	d.reindex()
	return d
}

func (d *Dictionary) reindex() {
	d.codes = make([]string, 0, len(d.entries))
	for code, list := range d.entries {
		sortEntries(list)
		d.codes = append(d.codes, code)
	}
	sort.Strings(d.codes)
}

// sortEntries 按权重降序，同权保持原序。
func sortEntries(list []DictEntry) {
	sort.SliceStable(list, func(i, j int) bool { return list[i].Weight > list[j].Weight })
}

func (d *Dictionary) Name() string { return d.name }

// Skipped 返回建索引时跳过的格式错误词条数。
func (d *Dictionary) Skipped() int { return d.skipped }

// Size 返回词条总数。
func (d *Dictionary) Size() int {
	n := 0
	for _, l := range d.entries {
		n += len(l)
	}
	return n
}

// Codes 返回排序后的编码索引（只读）。
func (d *Dictionary) Codes() []string { return d.codes }

// Lookup 精确查询；返回副本。
func (d *Dictionary) Lookup(code string) []DictEntry {
	list := d.entries[code]
	if len(list) == 0 {
		return nil
	}
	out := make([]DictEntry, len(list))
	copy(out, list)
	return out
}

// LookupPrefix 返回所有编码以 prefix 开头的词条，全局按权重非增，惰性多路归并。
// 候选区间为 [start,end)；编码长于 prefix 的为补全候选。
func (d *Dictionary) LookupPrefix(prefix string, start, end int) contract.Translation {
	lo := sort.SearchStrings(d.codes, prefix)
	h := &cursorHeap{}
	for i := lo; i < len(d.codes) && strings.HasPrefix(d.codes[i], prefix); i++ {
		if list := d.entries[d.codes[i]]; len(list) > 0 {
			*h = append(*h, cursor{list: list})
		}
	}
	heap.Init(h)
	return contract.NewFuncTranslation(func() (contract.Candidate, bool) {
		if h.Len() == 0 {
			return contract.Candidate{}, false
		}
		c := &(*h)[0]
		e := c.list[c.pos]
		c.pos++
		if c.pos == len(c.list) {
			heap.Pop(h)
		} else {
			heap.Fix(h, 0)
		}
		return entryCandidate(e, prefix, start, end), true
	})
}

func entryCandidate(e DictEntry, query string, start, end int) contract.Candidate {
	c := contract.Candidate{Type: "table", Start: start, End: end, Text: e.Text, Preedit: e.Code, Quality: e.Weight}
	if e.Code != query {
		c.Type = "completion"
		c.Comment = "~" + strings.TrimPrefix(e.Code, query)
	}
	return c
}

// UpdateWeight 更新（或新增）词条权重并写入底层库。
func (d *Dictionary) UpdateWeight(code, text string, w float64) error {
	if d.db == nil || d.db.ReadOnly() {
		return fmt.Errorf("dictionary %s: %w", d.name, contract.ErrReadOnly)
	}
	if err := d.db.Update(makeKey(code, text), strconv.FormatFloat(w, 'g', -1, 64)); err != nil {
		return err
	}
	list, known := d.entries[code]
	found := false
	for i := range list {
		if list[i].Text == text {
			list[i].Weight = w
			found = true
			break
		}
	}
	if !found {
		list = append(list, DictEntry{Text: text, Code: code, Weight: w})
	}
	sortEntries(list)
	d.entries[code] = list
	if !known {
		i := sort.SearchStrings(d.codes, code)
		d.codes = append(d.codes, "")
		copy(d.codes[i+1:], d.codes[i:])
		d.codes[i] = code
	}
	return nil
}

// Save 刷出底层库（只读或快照词典为 no-op）。
func (d *Dictionary) Save() error {
	if t, ok := d.db.(interface{ Save() error }); ok && !d.db.ReadOnly() {
		return t.Save()
	}
	return nil
}

// Close 关闭底层库。
func (d *Dictionary) Close() error {
	if d.db == nil {
		return nil
	}
	return d.db.Close()
}

type cursor struct {
	list []DictEntry
	pos  int
}

// cursorHeap: 以当前词条权重为键的大顶堆；同权按编码序。
type cursorHeap []cursor

func (h cursorHeap) Len() int { return len(h) }
func (h cursorHeap) Less(i, j int) bool {
	a, b := h[i].list[h[i].pos], h[j].list[h[j].pos]
	if a.Weight != b.Weight {
		return a.Weight > b.Weight
	}
	return a.Code < b.Code
}
func (h cursorHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }
func (h *cursorHeap) Push(x any)   { *h = append(*h, x.(cursor)) }
func (h *cursorHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}
