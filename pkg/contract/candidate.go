package contract

// Candidate: 一个可选输出文本及其元信息。产出后不可变，按值传递。
// Start/End 为其覆盖的原始输入字节区间。
type Candidate struct {
	Type    string
	Start   int
	End     int
	Text    string
	Comment string
	// Preedit: 预编辑区显示文本；为空时回退为原始输入片段。
	Preedit string
	Quality float64
	// Key: 产出方自用的标识，不参与显示、排序与去重。
	Key     string
}

// NewSimpleCandidate 构造最常见形态的候选。
func NewSimpleCandidate(typ string, start, end int, text, comment string) Candidate {
	return Candidate{Type: typ, Start: start, End: end, Text: text, Comment: comment}
}

// WithText 返回替换了文本的副本（影子候选），保留来源类型与区间。
func (c Candidate) WithText(text string) Candidate {
	c.Text = text
	return c
}

// WithQuality 返回替换了评分的副本。
func (c Candidate) WithQuality(q float64) Candidate {
	c.Quality = q
	return c
}

// CompareCandidates 给出两个候选在合并流中的先后：
// 起点靠前者优先；同起点时覆盖更长者优先；再按 Quality 降序。
// 返回 <0 表示 a 先于 b，0 表示不区分（保持来源顺序）。
func CompareCandidates(a, b Candidate) int {
	if a.Start != b.Start {
		return a.Start - b.Start
	}
	if la, lb := a.End-a.Start, b.End-b.Start; la != lb {
		return lb - la
	}
	switch {
	case a.Quality > b.Quality:
		return -1
	case a.Quality < b.Quality:
		return 1
	}
	return 0
}
