package contract

// Page: 菜单的一页快照。
type Page struct {
	PageSize   int
	PageNo     int
	IsLastPage bool
	Candidates []Candidate
}

// Menu 将一个或多个候选流分页呈现。
// 已拉取的候选被缓存，翻回前页无需重新查询；拉取只在需要填满某页时发生。
type Menu struct {
	merged     *MergedTranslation
	result     Translation
	candidates []Candidate
	pageSize   int
	highlight  int
}

// NewMenu 以页大小构造空菜单；pageSize<=0 时取 5。
func NewMenu(pageSize int) *Menu {
	if pageSize <= 0 {
		pageSize = 5
	}
	m := &Menu{merged: NewMergedTranslation(), pageSize: pageSize}
	m.result = m.merged
	return m
}

// AddTranslation 加入一个候选来源。
func (m *Menu) AddTranslation(t Translation) {
	m.merged.Add(t)
}

// AddFilter 以过滤器包裹当前结果流。
func (m *Menu) AddFilter(f Filter) {
	if f == nil {
		return
	}
	if out := f.Apply(m.result); out != nil {
		m.result = out
	}
}

// Prepare 拉取候选直到缓存达到 n 个或流耗尽；返回缓存数量。
func (m *Menu) Prepare(n int) int {
	for len(m.candidates) < n && !m.result.Exhausted() {
		if c, ok := m.result.Peek(); ok {
			m.candidates = append(m.candidates, c)
		}
		m.result.Next()
	}
	return len(m.candidates)
}

// CreatePage 生成第 pageNo 页（自 0 起）。越过末尾时返回 (nil, false)，
// 表示没有更多候选，而非错误。
func (m *Menu) CreatePage(pageSize, pageNo int) (*Page, bool) {
	if pageSize <= 0 || pageNo < 0 {
		return nil, false
	}
	start := pageSize * pageNo
	end := start + pageSize
	if end > len(m.candidates) {
		if m.result.Exhausted() {
			if start >= len(m.candidates) {
				return nil, false
			}
			end = len(m.candidates)
		} else {
			end = m.Prepare(end)
			if start >= end {
				return nil, false
			}
		}
	}
	p := &Page{
		PageSize:   pageSize,
		PageNo:     pageNo,
		IsLastPage: m.result.Exhausted() && end == len(m.candidates),
		Candidates: make([]Candidate, end-start),
	}
	copy(p.Candidates, m.candidates[start:end])
	return p, true
}

// GetCandidateAt 返回绝对序号处的候选，必要时按需拉取。
func (m *Menu) GetCandidateAt(i int) (Candidate, bool) {
	if i < 0 {
		return Candidate{}, false
	}
	if i >= len(m.candidates) && m.Prepare(i+1) <= i {
		return Candidate{}, false
	}
	return m.candidates[i], true
}

// CandidateCount 返回已缓存的候选数量。
func (m *Menu) CandidateCount() int { return len(m.candidates) }

// Empty 判断菜单无任何候选（会尝试拉取一项）。
func (m *Menu) Empty() bool { return m.Prepare(1) == 0 }

// PageSize 返回页大小。
func (m *Menu) PageSize() int { return m.pageSize }

// Highlight 返回高亮候选的绝对序号。
func (m *Menu) Highlight() int { return m.highlight }

// PageNo 返回高亮所在页号。
func (m *Menu) PageNo() int { return m.highlight / m.pageSize }

// CurrentPage 返回高亮所在页。
func (m *Menu) CurrentPage() (*Page, bool) { return m.CreatePage(m.pageSize, m.PageNo()) }

// SetHighlight 将高亮移至绝对序号 i；i 超出可用候选时不动并返回 false。
func (m *Menu) SetHighlight(i int) bool {
	if _, ok := m.GetCandidateAt(i); !ok {
		return false
	}
	m.highlight = i
	return true
}

// NextPage 翻到下一页，高亮保持页内偏移；末页时返回 false。
// cycle 为 true 时从末页回到首页。
func (m *Menu) NextPage(cycle bool) bool {
	index := m.highlight + m.pageSize
	pageStart := (index / m.pageSize) * m.pageSize
	count := m.Prepare(pageStart + m.pageSize)
	switch {
	case count <= pageStart:
		if !cycle || m.highlight == 0 {
			return false
		}
		index = 0
	case index >= count:
		index = count - 1
	}
	m.highlight = index
	return true
}

// PrevPage 翻到上一页；已在首页时返回 false。
func (m *Menu) PrevPage() bool {
	if m.highlight < m.pageSize {
		if m.highlight == 0 {
			return false
		}
		m.highlight = 0
		return true
	}
	m.highlight -= m.pageSize
	return true
}

// NextCandidate 高亮下移一项；无更多候选时返回 false。
func (m *Menu) NextCandidate() bool { return m.SetHighlight(m.highlight + 1) }

// PrevCandidate 高亮上移一项；已在首项时返回 false。
func (m *Menu) PrevCandidate() bool {
	if m.highlight <= 0 {
		return false
	}
	m.highlight--
	return true
}

// Home 回到首项；已在首项时返回 false。
func (m *Menu) Home() bool {
	if m.highlight == 0 {
		return false
	}
	m.highlight = 0
	return true
}

// End 高亮移至当前页最后一项。
func (m *Menu) End() bool {
	p, ok := m.CurrentPage()
	if !ok || len(p.Candidates) == 0 {
		return false
	}
	last := p.PageNo*p.PageSize + len(p.Candidates) - 1
	if last == m.highlight {
		return false
	}
	m.highlight = last
	return true
}
