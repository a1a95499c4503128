// Package switcher 为选项开关菜单：把方案的 switches 列为候选，选定即切换上下文选项。
package switcher

import (
	"strconv"

	"imecore/internal/schema"
	"imecore/pkg/contract"
)

const (
	rightArrow    = "→ "
	radioSelected = " ✓"
	// Tag: 选单段标签，由 recognizer 模式认领触发符后打上。
	Tag = "switcher"
)

type Options struct {
	Switches []schema.Switch `yaml:"-"`
	Tag      string          `yaml:"tag"`
}

type action struct {
	option string
	radio  []string
	target bool
}

type Translator struct {
	engine   contract.EngineHandle
	switches []schema.Switch
	tag      string
	// pending 以候选的 Key 索引最近一次列出的开关；标签可能重复。
	pending  map[string]action
}

// New 同时按 reset 初始化上下文选项。
func New(t contract.Ticket, opts *Options) *Translator {
	tr := &Translator{engine: t.Engine, tag: Tag}
	if opts != nil {
		tr.switches = opts.Switches
		if opts.Tag != "" {
			tr.tag = opts.Tag
		}
	}
	if ctx := tr.context(); ctx != nil {
		schema.InitializeOptions(tr.switches, ctx)
	}
	return tr
}

func (tr *Translator) context() *contract.Context {
	if tr.engine == nil {
		return nil
	}
	return tr.engine.Context()
}

// Query 开关项显示当前状态，注释指向切换后的状态；单选组逐项列出，当前项带勾。
// 无状态标签的项不显示。
func (tr *Translator) Query(input string, seg *contract.Segment) contract.Translation {
	if seg == nil || !seg.HasTag(tr.tag) || len(tr.switches) == 0 {
		return nil
	}
	ctx := tr.context()
	get := func(name string) bool { return ctx != nil && ctx.GetOption(name) }
	tr.pending = map[string]action{}
	out := contract.NewFifoTranslation()
	for _, sw := range tr.switches {
		if sw.StateLabel(0) == "" {
			continue
		}
		if !sw.Radio() {
			cur := 0
			if get(sw.Name) {
				cur = 1
			}
			c := contract.NewSimpleCandidate("switch", seg.Start, seg.End, sw.StateLabel(cur), rightArrow+sw.StateLabel(1-cur))
			out.Append(tr.track(c, action{option: sw.Name, target: cur == 0}))
			continue
		}
		selected := -1
		for j, opt := range sw.Options {
			if get(opt) {
				selected = j
				break
			}
		}
		if selected < 0 {
			selected = 0
		}
		for j, opt := range sw.Options {
			label := sw.StateLabel(j)
			if label == "" {
				label = opt
			}
			comment := ""
			if j == selected {
				comment = radioSelected
			}
			c := contract.NewSimpleCandidate("switch", seg.Start, seg.End, label, comment)
			out.Append(tr.track(c, action{option: opt, radio: sw.Options, target: true}))
		}
	}
	if out.Exhausted() {
		return nil
	}
	return out
}

// track 为候选分配序号 Key 并登记其动作。
func (tr *Translator) track(c contract.Candidate, a action) contract.Candidate {
	c.Key = strconv.Itoa(len(tr.pending))
	tr.pending[c.Key] = a
	return c
}

// OnSelect 执行最近一次列出的开关。
func (tr *Translator) OnSelect(c contract.Candidate) bool {
	if c.Type != "switch" {
		return false
	}
	a, ok := tr.pending[c.Key]
	ctx := tr.context()
	if !ok || ctx == nil {
		return true
	}
	if a.radio == nil {
		ctx.SetOption(a.option, a.target)
		return true
	}
	for _, opt := range a.radio {
		if on := opt == a.option; ctx.GetOption(opt) != on {
			ctx.SetOption(opt, on)
		}
	}
	return true
}
