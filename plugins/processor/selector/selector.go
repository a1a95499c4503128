// Package selector 为选词处理器：数字/自定义选字键选定候选，翻页键翻页，上下键（横排时左右键）移动高亮。
package selector

import (
	"strings"

	"imecore/pkg/contract"
)

type Processor struct {
	engine contract.EngineHandle
}

func New(t contract.Ticket) *Processor {
	return &Processor{engine: t.Engine}
}

func (p *Processor) schema() *contract.Schema {
	if s := p.engine.Schema(); s != nil {
		return s
	}
	return &contract.Schema{PageSize: 5}
}

// ProcessKeyEvent 仅在当前段有菜单时动作；raw 段不选词。
func (p *Processor) ProcessKeyEvent(ev contract.KeyEvent) contract.ProcessResult {
	if p.engine == nil || ev.Release() || ev.Alt() {
		return contract.Rejected
	}
	seg := p.engine.Context().Composition().Back()
	if seg == nil || seg.Menu == nil || seg.HasTag("raw") || seg.Menu.Empty() {
		return contract.Rejected
	}
	m := seg.Menu
	if !ev.Ctrl() {
		switch ev.Keycode {
		case contract.KeyPageUp, '-', ',':
			return p.boundary(m.PrevPage())
		case contract.KeyPageDown, '=', '.':
			return p.boundary(m.NextPage(p.schema().PageDownCycle))
		case contract.KeyUp:
			m.PrevCandidate()
			return contract.Accepted
		case contract.KeyDown:
			m.NextCandidate()
			return contract.Accepted
		case contract.KeyLeft, contract.KeyRight:
			// 竖排时左右键留给 navigator 移动光标
			if !p.schema().Horizontal {
				return contract.Rejected
			}
			if ev.Keycode == contract.KeyLeft {
				m.PrevCandidate()
			} else {
				m.NextCandidate()
			}
			return contract.Accepted
		case contract.KeyHome:
			return moved(m.Home())
		case contract.KeyEnd:
			return moved(m.End())
		}
	}
	index := p.selectIndex(ev)
	if index < 0 {
		return contract.Rejected
	}
	page, ok := m.CurrentPage()
	if !ok || index >= len(page.Candidates) {
		return contract.Accepted
	}
	p.engine.Select(page.PageNo*page.PageSize + index)
	return contract.Accepted
}

// boundary: 翻页失败（已在首/末页）时以 Pending 放行并通知前端。
func (p *Processor) boundary(moved bool) contract.ProcessResult {
	if moved {
		return contract.Accepted
	}
	p.engine.Messenger().Publish(contract.MsgNoMoreCandidates, "")
	return contract.Pending
}

// moved: 高亮未变时放行，由后续处理器（navigator）处理光标。
func moved(ok bool) contract.ProcessResult {
	if ok {
		return contract.Accepted
	}
	return contract.Rejected
}

// selectIndex: 自定义选字键优先；否则数字键 1..9,0 对应 0..9。
func (p *Processor) selectIndex(ev contract.KeyEvent) int {
	ch := ev.Keycode
	if ev.Ctrl() || ch < 0x20 || ch >= 0x7f {
		return -1
	}
	if keys := p.schema().SelectKeys; keys != "" {
		return strings.IndexByte(keys, byte(ch))
	}
	if ch >= '0' && ch <= '9' {
		return ((ch - '0') + 9) % 10
	}
	return -1
}
