package contract

// Translation: 惰性、只进、不可重启的候选流。
// 约定：
// - Peek 返回当前候选但不消费（单项前瞻）；
// - Next 消费当前候选；流已耗尽时返回 false；
// - 一旦 Exhausted 为 true，永远为 true。
type Translation interface {
	Next() bool
	Peek() (Candidate, bool)
	Exhausted() bool
}

// FifoTranslation 为预先填充的有限候选列表。
type FifoTranslation struct {
	candies []Candidate
	cursor  int
}

// NewFifoTranslation 以给定候选构造（可为空，后续 Append）。
func NewFifoTranslation(cands ...Candidate) *FifoTranslation {
	return &FifoTranslation{candies: cands}
}

// Append 追加候选；对已耗尽的流追加会使其重新可读，调用方应在交付前完成填充。
func (f *FifoTranslation) Append(c Candidate) { f.candies = append(f.candies, c) }

// Size 返回剩余候选数。
func (f *FifoTranslation) Size() int { return len(f.candies) - f.cursor }

func (f *FifoTranslation) Next() bool {
	if f.Exhausted() {
		return false
	}
	f.cursor++
	return true
}

func (f *FifoTranslation) Peek() (Candidate, bool) {
	if f.Exhausted() {
		return Candidate{}, false
	}
	return f.candies[f.cursor], true
}

func (f *FifoTranslation) Exhausted() bool { return f.cursor >= len(f.candies) }

// NewUniqueTranslation 构造仅含一个候选的流。
func NewUniqueTranslation(c Candidate) *FifoTranslation {
	return NewFifoTranslation(c)
}

// FuncTranslation 将拉取函数包装为流；仅在 Peek/Exhausted 时向上游取一项。
// pull 返回 false 表示上游终止，此后不再调用。
type FuncTranslation struct {
	pull    func() (Candidate, bool)
	cur     Candidate
	fetched bool
	done    bool
}

// NewFuncTranslation 创建生成器式候选流，可用于无限或超大流。
func NewFuncTranslation(pull func() (Candidate, bool)) *FuncTranslation {
	return &FuncTranslation{pull: pull}
}

func (g *FuncTranslation) fill() {
	if g.fetched || g.done {
		return
	}
	c, ok := g.pull()
	if !ok {
		g.done = true
		g.pull = nil
		return
	}
	g.cur = c
	g.fetched = true
}

func (g *FuncTranslation) Next() bool {
	g.fill()
	if g.done {
		return false
	}
	g.fetched = false
	return true
}

func (g *FuncTranslation) Peek() (Candidate, bool) {
	g.fill()
	if g.done {
		return Candidate{}, false
	}
	return g.cur, true
}

func (g *FuncTranslation) Exhausted() bool {
	g.fill()
	return g.done
}

// UnionTranslation 顺序串接多个流：前一个耗尽后才读取下一个。
type UnionTranslation struct {
	parts []Translation
}

// NewUnionTranslation 以给定流构造；nil 项被忽略。
func NewUnionTranslation(ts ...Translation) *UnionTranslation {
	u := &UnionTranslation{}
	for _, t := range ts {
		u.Add(t)
	}
	return u
}

// Add 在末尾追加一个流。
func (u *UnionTranslation) Add(t Translation) {
	if t == nil || t.Exhausted() {
		return
	}
	u.parts = append(u.parts, t)
}

func (u *UnionTranslation) head() Translation {
	for len(u.parts) > 0 {
		if !u.parts[0].Exhausted() {
			return u.parts[0]
		}
		u.parts[0] = nil
		u.parts = u.parts[1:]
	}
	return nil
}

func (u *UnionTranslation) Next() bool {
	h := u.head()
	if h == nil {
		return false
	}
	return h.Next()
}

func (u *UnionTranslation) Peek() (Candidate, bool) {
	h := u.head()
	if h == nil {
		return Candidate{}, false
	}
	return h.Peek()
}

func (u *UnionTranslation) Exhausted() bool { return u.head() == nil }

// MergedTranslation 在多个流的当前项之间按 CompareCandidates 选出下一项。
// 相等时取较早加入的流，因此各来源内部顺序保持不变。
type MergedTranslation struct {
	parts   []Translation
	elected int
}

// NewMergedTranslation 以给定流构造；nil 项被忽略。
func NewMergedTranslation(ts ...Translation) *MergedTranslation {
	m := &MergedTranslation{elected: -1}
	for _, t := range ts {
		m.Add(t)
	}
	return m
}

// Add 加入一个来源并重新选举。
func (m *MergedTranslation) Add(t Translation) {
	if t == nil {
		return
	}
	m.parts = append(m.parts, t)
	m.elect()
}

// Size 返回来源数量。
func (m *MergedTranslation) Size() int { return len(m.parts) }

func (m *MergedTranslation) elect() {
	m.elected = -1
	var best Candidate
	for i, t := range m.parts {
		c, ok := t.Peek()
		if !ok {
			continue
		}
		if m.elected < 0 || CompareCandidates(c, best) < 0 {
			m.elected = i
			best = c
		}
	}
}

func (m *MergedTranslation) Next() bool {
	if m.elected < 0 {
		return false
	}
	m.parts[m.elected].Next()
	m.elect()
	return true
}

func (m *MergedTranslation) Peek() (Candidate, bool) {
	if m.elected < 0 {
		return Candidate{}, false
	}
	return m.parts[m.elected].Peek()
}

func (m *MergedTranslation) Exhausted() bool { return m.elected < 0 }

// CacheTranslation 缓存上游当前项，使重复 Peek 不会重复计算。
type CacheTranslation struct {
	up    Translation
	cache Candidate
	has   bool
}

// NewCacheTranslation 包装上游流。
func NewCacheTranslation(up Translation) *CacheTranslation {
	return &CacheTranslation{up: up}
}

func (c *CacheTranslation) Next() bool {
	if c.Exhausted() {
		return false
	}
	c.has = false
	return c.up.Next()
}

func (c *CacheTranslation) Peek() (Candidate, bool) {
	if c.has {
		return c.cache, true
	}
	v, ok := c.up.Peek()
	if ok {
		c.cache, c.has = v, true
	}
	return v, ok
}

func (c *CacheTranslation) Exhausted() bool {
	return !c.has && c.up.Exhausted()
}

// Drain 拉取至多 n 项（n<0 表示全部），用于测试与一次性消费场景。
func Drain(t Translation, n int) []Candidate {
	var out []Candidate
	for t != nil && (n < 0 || len(out) < n) && !t.Exhausted() {
		if c, ok := t.Peek(); ok {
			out = append(out, c)
		}
		t.Next()
	}
	return out
}
