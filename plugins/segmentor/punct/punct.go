// Package punct 在游标处识别已定义的标点键，切出单字符的 "punct" 段。
package punct

import (
	"imecore/internal/schema"
	"imecore/pkg/contract"
)

const Tag = "punct"

type Segmentor struct {
	engine contract.EngineHandle
	punct  *schema.PunctConfig
}

func New(t contract.Ticket, punct *schema.PunctConfig) *Segmentor {
	return &Segmentor{engine: t.Engine, punct: punct}
}

// Proceed 认领标点后独占本轮（返回 false）；非标点交给后续分段器。
func (s *Segmentor) Proceed(g *contract.Segmentation) bool {
	if g.GetCurrentSegmentLength() > 0 {
		return true
	}
	input := g.Input()
	k := g.GetCurrentStartPosition()
	if k >= len(input) {
		return false
	}
	ch := input[k]
	if ch < 0x20 || ch >= 0x7f {
		return true
	}
	full := s.engine != nil && s.engine.Context().GetOption("full_shape")
	if _, ok := s.punct.Lookup(string(ch), full, false); !ok {
		return true
	}
	g.AddSegment(contract.NewSegment(k, k+1, Tag))
	return false
}
