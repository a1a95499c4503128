// Package echo 将段内原始输入作为最低优先的候选回显。
package echo

import "imecore/pkg/contract"

const rawQuality = -100

type Options struct {
	// Tag: 适用的段标签，缺省 raw；"*" 表示所有段。
	Tag string `yaml:"tag"`
}

type Translator struct {
	tag string
}

func New(opts *Options) *Translator {
	t := &Translator{tag: "raw"}
	if opts != nil && opts.Tag != "" {
		t.tag = opts.Tag
	}
	return t
}

func (t *Translator) Query(input string, seg *contract.Segment) contract.Translation {
	if seg == nil || seg.Start >= seg.End || seg.End > len(input) {
		return nil
	}
	if t.tag != "*" && !seg.HasTag(t.tag) {
		return nil
	}
	c := contract.NewSimpleCandidate("raw", seg.Start, seg.End, input[seg.Start:seg.End], "")
	c.Quality = rawQuality
	return contract.NewUniqueTranslation(c)
}
