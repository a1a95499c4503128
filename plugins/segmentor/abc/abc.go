// Package abc 识别字母串（编码）段，打上 "abc" 标签。
package abc

import (
	"strings"

	"imecore/pkg/contract"
)

const (
	defaultAlphabet = "zyxwvutsrqponmlkjihgfedcba"
	Tag             = "abc"
)

// Options 取自 speller/* 与 <ns>/extra_tags。
type Options struct {
	Alphabet  string   `yaml:"alphabet"`
	Delimiter string   `yaml:"delimiter"`
	Initials  string   `yaml:"initials"`
	Finals    string   `yaml:"finals"`
	ExtraTags []string `yaml:"extra_tags"`
}

type Segmentor struct {
	alphabet  string
	delimiter string
	initials  string
	finals    string
	extraTags []string
}

// New 应用默认值：字母表缺省为小写字母，声母集缺省等于字母表。
func New(opts *Options) *Segmentor {
	s := &Segmentor{alphabet: defaultAlphabet}
	if opts != nil {
		if opts.Alphabet != "" {
			s.alphabet = opts.Alphabet
		}
		s.delimiter = opts.Delimiter
		s.initials = opts.Initials
		s.finals = opts.Finals
		s.extraTags = opts.ExtraTags
	}
	if s.initials == "" {
		s.initials = s.alphabet
	}
	return s
}

// Proceed 自游标起吃进字母与（非首位的）分隔符。
// 期待声母处遇到非声母即停；韵母或分隔符之后重新期待声母。
func (s *Segmentor) Proceed(g *contract.Segmentation) bool {
	input := g.Input()
	j := g.GetCurrentStartPosition()
	k := j
	expectInitial := true
	for ; k < len(input); k++ {
		ch := input[k]
		isLetter := strings.IndexByte(s.alphabet, ch) >= 0
		isDelimiter := k != j && strings.IndexByte(s.delimiter, ch) >= 0
		if !isLetter && !isDelimiter {
			break
		}
		isInitial := strings.IndexByte(s.initials, ch) >= 0
		if expectInitial && !isInitial && !isDelimiter {
			break
		}
		expectInitial = isDelimiter || strings.IndexByte(s.finals, ch) >= 0
	}
	if k > j {
		seg := contract.NewSegment(j, k, Tag)
		for _, t := range s.extraTags {
			seg.AddTag(t)
		}
		g.AddSegment(seg)
	}
	return true
}
