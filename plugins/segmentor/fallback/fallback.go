// Package fallback 为兜底分段器：游标处无人认领时吃进一个字符，标记为 raw。
package fallback

import (
	"unicode/utf8"

	"imecore/pkg/contract"
)

// Segmentor 应排在分段器末尾；引擎在方案未配置时自动追加。
type Segmentor struct{}

func New() *Segmentor { return &Segmentor{} }

// Proceed 只在当前段仍为空时动作；相邻的 raw 段合并为一段。
func (s *Segmentor) Proceed(g *contract.Segmentation) bool {
	if g.GetCurrentSegmentLength() > 0 {
		return false
	}
	input := g.Input()
	k := g.GetCurrentStartPosition()
	if k >= len(input) {
		return false
	}
	_, size := utf8.DecodeRuneInString(input[k:])
	if n := g.Len(); n >= 2 {
		prev := g.At(n - 2)
		if prev.Status == contract.Void && prev.HasTag("raw") && prev.End == k {
			if err := g.ExtendLast(k + size); err == nil {
				return false
			}
			// ExtendLast 已丢弃当前空段
			g.Forward()
		}
	}
	g.AddSegment(contract.NewSegment(k, k+size, "raw"))
	return false
}
