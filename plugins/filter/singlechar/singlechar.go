// Package singlechar 单字优先：把开头一串词典候选中的单字提到多字词之前，各自保持原序。
package singlechar

import (
	"unicode/utf8"

	"imecore/pkg/contract"
)

type Options struct {
	Tags []string `yaml:"tags"`
	// OptionName 非空时仅在该选项打开时生效。
	OptionName string `yaml:"option_name"`
}

type Filter struct {
	contract.TagMatcher
	engine contract.EngineHandle
	option string
}

func New(t contract.Ticket, opts *Options) *Filter {
	f := &Filter{engine: t.Engine}
	if opts != nil {
		f.TagMatcher = contract.NewTagMatcher(opts.Tags)
		f.option = opts.OptionName
	}
	return f
}

func (f *Filter) active() bool {
	if f.option == "" {
		return true
	}
	return f.engine != nil && f.engine.Context().GetOption(f.option)
}

func rearrangeable(c contract.Candidate) bool {
	return c.Type == "table" || c.Type == "user_table"
}

// Apply 只缓冲开头连续的 table/user_table 候选（同一编码的精确匹配），其后原样透传。
func (f *Filter) Apply(up contract.Translation) contract.Translation {
	if !f.active() {
		return up
	}
	var queue []contract.Candidate
	arranged := false
	return contract.NewFuncTranslation(func() (contract.Candidate, bool) {
		if !arranged {
			arranged = true
			var top, bottom []contract.Candidate
			for {
				c, ok := up.Peek()
				if !ok || !rearrangeable(c) {
					break
				}
				if utf8.RuneCountInString(c.Text) == 1 {
					top = append(top, c)
				} else {
					bottom = append(bottom, c)
				}
				up.Next()
			}
			queue = append(top, bottom...)
		}
		if len(queue) > 0 {
			c := queue[0]
			queue = queue[1:]
			return c, true
		}
		c, ok := up.Peek()
		if ok {
			up.Next()
		}
		return c, ok
	})
}
