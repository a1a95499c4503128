// Package punct 将 "punct" 段翻译为定义中的符号；列表与成对定义按序给出全部候选。
package punct

import (
	"unicode/utf8"

	"imecore/internal/schema"
	"imecore/pkg/contract"
)

const (
	halfShapeTip = "〔半角〕"
	fullShapeTip = "〔全角〕"
)

type Translator struct {
	engine contract.EngineHandle
	punct  *schema.PunctConfig
}

func New(t contract.Ticket, punct *schema.PunctConfig) *Translator {
	return &Translator{engine: t.Engine, punct: punct}
}

func (t *Translator) Query(input string, seg *contract.Segment) contract.Translation {
	if seg == nil || !seg.HasTag("punct") || seg.Start >= seg.End || seg.End > len(input) {
		return nil
	}
	full := t.engine != nil && t.engine.Context().GetOption("full_shape")
	def, ok := t.punct.Lookup(input[seg.Start:seg.End], full, true)
	if !ok {
		return nil
	}
	tr := contract.NewFifoTranslation()
	for _, v := range def.Values {
		tr.Append(candidate(v, seg))
	}
	return tr
}

// candidate 单个字符的符号按码位注明半角/全角；单键段的预编辑显示符号本身。
func candidate(text string, seg *contract.Segment) contract.Candidate {
	c := contract.NewSimpleCandidate("punct", seg.Start, seg.End, text, shapeTip(text))
	if seg.End-seg.Start == 1 {
		c.Preedit = text
	}
	return c
}

func shapeTip(text string) string {
	r, n := utf8.DecodeRuneInString(text)
	if n == 0 || n != len(text) {
		return ""
	}
	switch {
	case r >= 0x20 && r < 0x7f, r >= 0xff65 && r <= 0xffdc:
		return halfShapeTip
	case r == 0x3000, r >= 0xff01 && r <= 0xff5e:
		return fullShapeTip
	}
	return ""
}
