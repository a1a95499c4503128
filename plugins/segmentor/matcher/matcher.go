// Package matcher 按 recognizer/patterns 正则在游标处识别特殊段（网址、反查前缀、选单触发符等）。
package matcher

import (
	"fmt"

	"github.com/dlclark/regexp2"

	"imecore/pkg/contract"
)

// Pattern: 标签与正则。
type Pattern struct {
	Tag  string
	Expr string
}

// Options 保持方案中的声明顺序；等长匹配时先声明者胜。
type Options struct {
	Patterns []Pattern
}

type rule struct {
	tag string
	re  *regexp2.Regexp
}

type Segmentor struct {
	rules []rule
}

// New 编译全部正则；任一非法即返回错误。正则一律锚定在游标处。
func New(opts *Options) (*Segmentor, error) {
	s := &Segmentor{}
	if opts == nil {
		return s, nil
	}
	for _, p := range opts.Patterns {
		if p.Tag == "" || p.Expr == "" {
			continue
		}
		re, err := regexp2.Compile(`^(?:`+p.Expr+`)`, regexp2.None)
		if err != nil {
			return nil, fmt.Errorf("recognizer pattern %s: %w", p.Tag, err)
		}
		s.rules = append(s.rules, rule{tag: p.Tag, re: re})
	}
	return s, nil
}

// Proceed 取最长的非空匹配认领当前段；认领后结束本轮。
func (s *Segmentor) Proceed(g *contract.Segmentation) bool {
	if len(s.rules) == 0 {
		return true
	}
	input := g.Input()
	start := g.GetCurrentStartPosition()
	if start >= len(input) {
		return true
	}
	rest := input[start:]
	best, tag := 0, ""
	for _, r := range s.rules {
		m, err := r.re.FindStringMatch(rest)
		if err != nil || m == nil {
			continue
		}
		// regexp2 的下标以 rune 计；锚定后匹配必从 0 开始，取其字节长度
		if n := len(m.String()); n > best {
			best, tag = n, r.tag
		}
	}
	if best == 0 {
		return true
	}
	return !g.AddSegment(contract.NewSegment(start, start+best, tag))
}
