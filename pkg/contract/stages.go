package contract

// ProcessResult: 按键处理的三态结果。
type ProcessResult int

const (
	// Rejected: 与本处理器无关，继续交给后续处理器。
	Rejected ProcessResult = iota
	// Accepted: 已完全处理，停止传播。
	Accepted
	// Pending: 已处理（如翻页指示），但后续处理器仍应观察到该事件。
	Pending
)

func (r ProcessResult) String() string {
	switch r {
	case Accepted:
		return "accepted"
	case Pending:
		return "pending"
	default:
		return "rejected"
	}
}

// Processor 处理按键事件。
type Processor interface {
	ProcessKeyEvent(ev KeyEvent) ProcessResult
}

// Segmentor 在游标处识别段；返回 false 表示本轮无需再调用后续分段器。
type Segmentor interface {
	Proceed(seg *Segmentation) bool
}

// Translator 将一个段翻译为惰性候选流；无结果时返回 nil。
type Translator interface {
	Query(input string, seg *Segment) Translation
}

// Filter 包裹上游流并输出同契约的新流。
// TagsMatch 为 false 时调用方必须原样透传上游，不得丢弃。
type Filter interface {
	Apply(up Translation) Translation
	TagsMatch(seg *Segment) bool
}

// Formatter 为纯文本变换；无法应用规则时原样返回。
type Formatter interface {
	Format(text string) string
}

// Closer 由持有外部资源（词典、数据库）的阶段实现，引擎销毁或切换方案时调用。
type Closer interface {
	Close() error
}

// TagMatcher 为显式的段标签谓词：任一标签命中即适用；标签集为空时适用于所有段。
type TagMatcher struct {
	tags []string
}

// NewTagMatcher 以标签集合构造。
func NewTagMatcher(tags []string) TagMatcher {
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		if t != "" {
			out = append(out, t)
		}
	}
	return TagMatcher{tags: out}
}

// TagsMatch 判断段是否携带任一所需标签。
func (m TagMatcher) TagsMatch(seg *Segment) bool {
	if len(m.tags) == 0 {
		return true
	}
	if seg == nil {
		return false
	}
	for _, t := range m.tags {
		if seg.HasTag(t) {
			return true
		}
	}
	return false
}

// Tags 返回所需标签。
func (m TagMatcher) Tags() []string { return m.tags }

// SelectHook 由产出指令型候选（如选项开关）的阶段实现。
// 引擎选定候选后先回调；返回 true 表示已执行，不上屏并清空组合。
type SelectHook interface {
	OnSelect(c Candidate) bool
}

// Composer 由能即时重新组字的引擎实现。处理器改动输入后若需在同一按键内
// 读取新组合（如标点确认），经类型断言调用。
type Composer interface {
	Compose()
}
