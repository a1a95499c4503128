// Package punctuator 把标点键送入输入并按定义处理：单一符号即确认，{commit} 即上屏，
// {pair} 交替给出成对符号，列表定义在重复按键时轮换候选。
package punctuator

import (
	"imecore/internal/schema"
	"imecore/pkg/contract"
)

const shapeOption = "full_shape"

type Processor struct {
	engine  contract.EngineHandle
	punct   *schema.PunctConfig
	// oddness 为成对标点下一次应取的一侧。
	oddness int
}

func New(t contract.Ticket, punct *schema.PunctConfig) *Processor {
	if punct == nil {
		punct = &schema.PunctConfig{}
	}
	return &Processor{engine: t.Engine, punct: punct}
}

func (p *Processor) ProcessKeyEvent(ev contract.KeyEvent) contract.ProcessResult {
	if p.engine == nil || ev.Release() || ev.Ctrl() || ev.Alt() {
		return contract.Rejected
	}
	ch := ev.Keycode
	if ch < 0x20 || ch >= 0x7f {
		return contract.Rejected
	}
	ctx := p.engine.Context()
	if ch == contract.KeySpace && !p.punct.UseSpace && ctx.IsComposing() {
		return contract.Rejected
	}
	key := string(rune(ch))
	def, ok := p.punct.Lookup(key, ctx.GetOption(shapeOption), false)
	if !ok {
		return contract.Rejected
	}
	if def.Kind == schema.PunctAlternating && p.alternate(ctx, key) {
		return contract.Accepted
	}
	ctx.PushInput(key)
	if c, ok := p.engine.(contract.Composer); ok {
		c.Compose()
	}
	switch def.Kind {
	case schema.PunctUnique:
		p.confirm(ctx, 0)
	case schema.PunctCommit:
		p.engine.Commit()
	case schema.PunctPair:
		side := p.oddness
		if p.confirm(ctx, side) {
			p.oddness = 1 - side
		}
	}
	return contract.Accepted
}

// punctSegment 返回末段，仅当其为已翻译的标点段。
func punctSegment(ctx *contract.Context) *contract.Segment {
	seg := ctx.Composition().Back()
	if seg == nil || seg.Status == contract.Void || seg.Status >= contract.Selected || !seg.HasTag("punct") || seg.Menu == nil {
		return nil
	}
	return seg
}

// alternate: 末段正是同一键的标点段时，高亮轮换到下一个候选。
func (p *Processor) alternate(ctx *contract.Context, key string) bool {
	seg := punctSegment(ctx)
	if seg == nil || ctx.Input()[seg.Start:seg.End] != key {
		return false
	}
	m := seg.Menu
	if m.Prepare(m.Highlight()+2) == 0 {
		return false
	}
	return m.SetHighlight((m.Highlight() + 1) % m.CandidateCount())
}

// confirm 选定末尾标点段的第 index 项。
func (p *Processor) confirm(ctx *contract.Context, index int) bool {
	seg := punctSegment(ctx)
	if seg == nil {
		return false
	}
	return p.engine.Select(index)
}
