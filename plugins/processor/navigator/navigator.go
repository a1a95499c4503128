// Package navigator 在组字中移动光标：左右逐字，Home 回到未选定部分的起点，End 到末尾。
// Control/Shift 加左右键按段界跳动。
package navigator

import (
	"unicode/utf8"

	"imecore/pkg/contract"
)

type Processor struct {
	engine contract.EngineHandle
}

func New(t contract.Ticket) *Processor {
	return &Processor{engine: t.Engine}
}

func (p *Processor) ProcessKeyEvent(ev contract.KeyEvent) contract.ProcessResult {
	if p.engine == nil || ev.Release() {
		return contract.Rejected
	}
	ctx := p.engine.Context()
	if !ctx.IsComposing() {
		return contract.Rejected
	}
	jump := ev.Ctrl() || ev.Shift()
	switch ev.Keycode {
	case contract.KeyLeft:
		if jump {
			_ = jumpLeft(ctx) || home(ctx) || end(ctx)
		} else {
			_ = left(ctx) || end(ctx)
		}
	case contract.KeyRight:
		if jump {
			_ = jumpRight(ctx) || end(ctx) || home(ctx)
		} else {
			_ = right(ctx) || home(ctx)
		}
	case contract.KeyHome:
		home(ctx)
	case contract.KeyEnd:
		end(ctx)
	default:
		return contract.Rejected
	}
	return contract.Accepted
}

// jumpLeft 移到光标之前最近的段终点。
func jumpLeft(ctx *contract.Context) bool {
	caret := ctx.Caret()
	comp := ctx.Composition()
	for i := comp.Len() - 1; i >= 0; i-- {
		if s := comp.At(i); s.End < caret {
			ctx.SetCaret(s.End)
			return true
		}
	}
	return false
}

// jumpRight 移到光标之后最近的段终点；光标在末尾时从头开始。
func jumpRight(ctx *contract.Context) bool {
	caret := ctx.Caret()
	if caret == len(ctx.Input()) {
		caret = 0
	}
	comp := ctx.Composition()
	for i := 0; i < comp.Len(); i++ {
		if s := comp.At(i); s.End > caret && s.End != ctx.Caret() {
			ctx.SetCaret(s.End)
			return true
		}
	}
	return false
}

func left(ctx *contract.Context) bool {
	caret := ctx.Caret()
	if caret == 0 {
		return false
	}
	_, n := utf8.DecodeLastRuneInString(ctx.Input()[:caret])
	ctx.SetCaret(caret - n)
	return true
}

func right(ctx *contract.Context) bool {
	caret := ctx.Caret()
	input := ctx.Input()
	if caret >= len(input) {
		return false
	}
	_, n := utf8.DecodeRuneInString(input[caret:])
	ctx.SetCaret(caret + n)
	return true
}

// home 先退到未选定段的起点；已在该处时回到输入开头。
func home(ctx *contract.Context) bool {
	caret := ctx.Caret()
	comp := ctx.Composition()
	pos := caret
	for i := comp.Len() - 1; i >= 0; i-- {
		s := comp.At(i)
		if s.Status >= contract.Selected {
			break
		}
		pos = s.Start
	}
	if pos < caret {
		ctx.SetCaret(pos)
		return true
	}
	if caret != 0 {
		ctx.SetCaret(0)
		return true
	}
	return false
}

func end(ctx *contract.Context) bool {
	n := len(ctx.Input())
	if ctx.Caret() == n {
		return false
	}
	ctx.SetCaret(n)
	return true
}
