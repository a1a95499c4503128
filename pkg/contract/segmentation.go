package contract

import (
	"fmt"
	"sort"
	"strings"
)

// SegmentStatus: 段的生命周期状态，按顺序单调推进。
type SegmentStatus int

const (
	Void SegmentStatus = iota
	Guess
	Selected
	Confirmed
)

func (s SegmentStatus) String() string {
	switch s {
	case Guess:
		return "guess"
	case Selected:
		return "selected"
	case Confirmed:
		return "confirmed"
	default:
		return "void"
	}
}

// Segment: 原始输入中的一个带标签子区间 [Start, End)。
type Segment struct {
	Status SegmentStatus
	Start  int
	End    int
	Tags   map[string]struct{}
	// Menu 在翻译后挂载；Void 段为 nil。
	Menu   *Menu
	Prompt string
}

// NewSegment 构造 Void 段。
func NewSegment(start, end int, tags ...string) Segment {
	s := Segment{Start: start, End: end, Tags: map[string]struct{}{}}
	for _, t := range tags {
		s.Tags[t] = struct{}{}
	}
	return s
}

// Length 返回区间长度（字节）。
func (s *Segment) Length() int { return s.End - s.Start }

// HasTag 判断是否含指定标签。
func (s *Segment) HasTag(tag string) bool {
	_, ok := s.Tags[tag]
	return ok
}

// AddTag 追加标签。
func (s *Segment) AddTag(tag string) {
	if s.Tags == nil {
		s.Tags = map[string]struct{}{}
	}
	s.Tags[tag] = struct{}{}
}

// TagList 返回排序后的标签列表。
func (s *Segment) TagList() []string {
	out := make([]string, 0, len(s.Tags))
	for t := range s.Tags {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// Clear 丢弃候选与标签，退回 Void，等待重新翻译。
func (s *Segment) Clear() {
	s.Status = Void
	s.Tags = map[string]struct{}{}
	s.Menu = nil
	s.Prompt = ""
}

// Close 在选定后释放原菜单，只留下已选候选。
// 候选只覆盖段的前部时，段收缩到候选终点并打上 partial 标签，余下输入重新分段。
func (s *Segment) Close() {
	c, ok := s.SelectedCandidate()
	if !ok {
		return
	}
	if c.End > s.Start && c.End < s.End {
		s.End = c.End
		s.AddTag("partial")
	}
	s.Menu = NewMenu(1)
	s.Menu.AddTranslation(NewUniqueTranslation(c))
}

// Reopen 将已选定/确认段退回 Guess 以便重新选择。
func (s *Segment) Reopen() {
	if s.Status > Guess {
		s.Status = Guess
	}
}

// SelectedCandidate 返回菜单高亮项。
func (s *Segment) SelectedCandidate() (Candidate, bool) {
	if s.Menu == nil {
		return Candidate{}, false
	}
	return s.Menu.GetCandidateAt(s.Menu.Highlight())
}

// Segmentation: 当前输入的有序段序列。
// 末段为"当前段"：本轮分段器只能在其起点处添加或扩展。
type Segmentation struct {
	input    string
	segments []*Segment
}

// NewSegmentation 以输入初始化空分段。
func NewSegmentation(input string) *Segmentation {
	return &Segmentation{input: input}
}

// Input 返回当前原始输入。
func (g *Segmentation) Input() string { return g.input }

// Segments 返回段列表（只读使用）。
func (g *Segmentation) Segments() []*Segment { return g.segments }

// Len 返回段数量。
func (g *Segmentation) Len() int { return len(g.segments) }

// Empty 判断是否无段。
func (g *Segmentation) Empty() bool { return len(g.segments) == 0 }

// Back 返回末段；无段时为 nil。
func (g *Segmentation) Back() *Segment {
	if len(g.segments) == 0 {
		return nil
	}
	return g.segments[len(g.segments)-1]
}

// At 返回第 i 段。
func (g *Segmentation) At(i int) *Segment { return g.segments[i] }

// Reset 切换到新输入：仅保留位于公共前缀内且已被用户选定/确认的段，
// 其余段丢弃，待本轮重新分段与翻译。
func (g *Segmentation) Reset(input string) {
	diff := 0
	for diff < len(g.input) && diff < len(input) && g.input[diff] == input[diff] {
		diff++
	}
	for len(g.segments) > 0 {
		b := g.Back()
		if b.End <= diff && b.Status >= Selected {
			break
		}
		g.segments[len(g.segments)-1] = nil
		g.segments = g.segments[:len(g.segments)-1]
	}
	g.input = input
	g.Forward()
}

// Clear 清空全部段与输入。
func (g *Segmentation) Clear() {
	g.segments = nil
	g.input = ""
}

// GetCurrentStartPosition 返回当前段起点（即游标）。
func (g *Segmentation) GetCurrentStartPosition() int {
	if b := g.Back(); b != nil {
		return b.Start
	}
	return 0
}

// GetCurrentEndPosition 返回当前段终点。
func (g *Segmentation) GetCurrentEndPosition() int {
	if b := g.Back(); b != nil {
		return b.End
	}
	return 0
}

// GetCurrentSegmentLength 返回当前段长度。
func (g *Segmentation) GetCurrentSegmentLength() int {
	return g.GetCurrentEndPosition() - g.GetCurrentStartPosition()
}

// GetConfirmedPosition 返回首个未确认（Selected 以下）段的起点。
func (g *Segmentation) GetConfirmedPosition() int {
	k := 0
	for _, s := range g.segments {
		if s.Status < Selected {
			break
		}
		k = s.End
	}
	return k
}

// HasFinishedSegmentation 判断已覆盖全部输入。
func (g *Segmentation) HasFinishedSegmentation() bool {
	return g.GetCurrentEndPosition() >= len(g.input)
}

// AddSegment 在游标处提交一个段。规则：
// - seg.Start 必须等于游标，且 Start < End <= len(input)；
// - 当前段尚空时直接占用；
// - 当前段已被本轮先前的分段器占用：等长则合并标签，否则拒绝（先声明者胜）。
func (g *Segmentation) AddSegment(seg Segment) bool {
	start := g.GetCurrentStartPosition()
	if seg.Start != start || seg.End <= seg.Start || seg.End > len(g.input) {
		return false
	}
	if seg.Tags == nil {
		seg.Tags = map[string]struct{}{}
	}
	if g.Empty() {
		s := seg
		g.segments = append(g.segments, &s)
		return true
	}
	last := g.Back()
	switch {
	case last.Start == last.End:
		*last = seg
	case last.End == seg.End:
		for t := range seg.Tags {
			last.AddTag(t)
		}
	default:
		return false
	}
	return true
}

// ExtendLast 将末个非空段的终点延伸到 end。仅允许延伸仍为 Void 的段；
// 对已翻译/选定段的延伸视为不变量违例。延伸前会丢弃末尾空段。
func (g *Segmentation) ExtendLast(end int) error {
	g.Trim()
	last := g.Back()
	if last == nil {
		return fmt.Errorf("extend empty segmentation: %w", ErrInvariantViolation)
	}
	if last.Status != Void {
		return fmt.Errorf("extend %s segment [%d,%d): %w", last.Status, last.Start, last.End, ErrInvariantViolation)
	}
	if end <= last.End || end > len(g.input) {
		return fmt.Errorf("extend [%d,%d) to %d: %w", last.Start, last.End, end, ErrInvariantViolation)
	}
	last.End = end
	return nil
}

// Forward 在末段之后开启新的空段，作为下一轮的当前段。
func (g *Segmentation) Forward() bool {
	b := g.Back()
	if b == nil || b.Start == b.End {
		return false
	}
	s := NewSegment(b.End, b.End)
	g.segments = append(g.segments, &s)
	return true
}

// Trim 丢弃末尾空段。
func (g *Segmentation) Trim() bool {
	if b := g.Back(); b != nil && b.Start == b.End {
		g.segments[len(g.segments)-1] = nil
		g.segments = g.segments[:len(g.segments)-1]
		return true
	}
	return false
}

// Covered 校验覆盖不变量：非空段按起点有序、互不重叠、无缝覆盖 [0, len(input))。
func (g *Segmentation) Covered() error {
	pos := 0
	for i, s := range g.segments {
		if s.Start == s.End && i == len(g.segments)-1 {
			break
		}
		if s.Start != pos || s.End <= s.Start {
			return fmt.Errorf("segment %d [%d,%d) at %d: %w", i, s.Start, s.End, pos, ErrInvariantViolation)
		}
		pos = s.End
	}
	if pos != len(g.input) {
		return fmt.Errorf("covered %d of %d: %w", pos, len(g.input), ErrInvariantViolation)
	}
	return nil
}

// String 输出 "|in|put|" 形式，便于日志。
func (g *Segmentation) String() string {
	var b strings.Builder
	b.WriteByte('|')
	for _, s := range g.segments {
		if s.Start == s.End {
			continue
		}
		b.WriteString(g.input[s.Start:s.End])
		b.WriteByte('|')
	}
	return b.String()
}
