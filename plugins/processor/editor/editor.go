// Package editor 为快速编辑器（express_editor）：字母入码，空格确认，回车上屏原码，
// 退格回退，Esc 取消；组合中遇到非字母可见字符时先上屏再放行该键。
package editor

import (
	"strings"

	"imecore/pkg/contract"
)

const defaultAlphabet = "zyxwvutsrqponmlkjihgfedcba"

// Options: alphabet 取自 speller/alphabet；bindings 取自 "<ns>/bindings"（键 → 动作名）。
type Options struct {
	Alphabet string `yaml:"alphabet"`
	// CharHandling 为 false 时不接收字母（交给 speller）。
	CharHandling *bool            `yaml:"char_handling"`
	Bindings     map[string]string `yaml:"bindings"`
}

type action func(p *Processor, ctx *contract.Context)

var actions = map[string]action{
	"confirm":            (*Processor).confirm,
	"commit_raw_input":   (*Processor).commitRawInput,
	"commit_composition": (*Processor).commitComposition,
	"back":               (*Processor).back,
	"delete":             (*Processor).deleteChar,
	"cancel":             (*Processor).cancel,
	"noop":               nil,
}

type Processor struct {
	engine   contract.EngineHandle
	alphabet string
	chars    bool
	bindings map[contract.KeyEvent]action
}

func New(t contract.Ticket, opts *Options) *Processor {
	p := &Processor{engine: t.Engine, alphabet: defaultAlphabet, chars: true}
	p.bindings = map[contract.KeyEvent]action{
		{Keycode: contract.KeySpace}:     (*Processor).confirm,
		{Keycode: contract.KeyReturn}:    (*Processor).commitRawInput,
		{Keycode: contract.KeyBackSpace}: (*Processor).back,
		{Keycode: contract.KeyDelete}:    (*Processor).deleteChar,
		{Keycode: contract.KeyEscape}:    (*Processor).cancel,
	}
	if opts == nil {
		return p
	}
	if opts.Alphabet != "" {
		p.alphabet = opts.Alphabet
	}
	if opts.CharHandling != nil {
		p.chars = *opts.CharHandling
	}
	for repr, name := range opts.Bindings {
		ev, err := contract.ParseKeyEvent(repr)
		if err != nil {
			continue
		}
		a, ok := actions[name]
		if !ok {
			continue
		}
		if a == nil {
			delete(p.bindings, ev)
			continue
		}
		p.bindings[ev] = a
	}
	return p
}

func (p *Processor) ProcessKeyEvent(ev contract.KeyEvent) contract.ProcessResult {
	if p.engine == nil || ev.Release() {
		return contract.Rejected
	}
	ctx := p.engine.Context()
	if ctx.IsComposing() {
		if a, ok := p.bindings[ev]; ok {
			a(p, ctx)
			return contract.Accepted
		}
		if ev.Ctrl() || ev.Alt() {
			return contract.Rejected
		}
	}
	if !ev.Printable() {
		return contract.Rejected
	}
	ch := byte(ev.Keycode)
	if p.chars && strings.IndexByte(p.alphabet, ch) >= 0 {
		ctx.PushInput(string(ch))
		return contract.Accepted
	}
	// 组合中的其他可见字符：先上屏当前组合，再放行该键
	if ctx.IsComposing() {
		p.engine.Commit()
	}
	return contract.Rejected
}

// confirm 选定高亮候选；无候选时上屏组合。
func (p *Processor) confirm(ctx *contract.Context) {
	if ctx.HasMenu() && p.engine.Select(ctx.Composition().Back().Menu.Highlight()) {
		return
	}
	p.engine.Commit()
}

// commitRawInput 上屏原始输入。
func (p *Processor) commitRawInput(ctx *contract.Context) {
	text := ctx.Input()
	ctx.Clear()
	p.engine.CommitText(text)
}

// commitComposition 按各段高亮候选上屏。
func (p *Processor) commitComposition(ctx *contract.Context) {
	p.engine.Commit()
}

// back 先撤销最近一次（未确认的）选定，否则删除光标前一个字符。
func (p *Processor) back(ctx *contract.Context) {
	comp := ctx.Composition()
	for i := comp.Len() - 1; i >= 0; i-- {
		s := comp.At(i)
		if s.Status > contract.Selected {
			break
		}
		if s.Status == contract.Selected {
			s.Reopen()
			return
		}
	}
	ctx.PopInput()
}

func (p *Processor) deleteChar(ctx *contract.Context) {
	ctx.DeleteInput()
}

func (p *Processor) cancel(ctx *contract.Context) {
	ctx.Clear()
}
