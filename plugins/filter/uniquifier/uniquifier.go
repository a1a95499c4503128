// Package uniquifier 按文本去重：保留首次出现者，后续同文本候选丢弃，不重排。
package uniquifier

import "imecore/pkg/contract"

type Options struct {
	Tags []string `yaml:"tags"`
}

type Filter struct {
	contract.TagMatcher
}

func New(opts *Options) *Filter {
	f := &Filter{}
	if opts != nil {
		f.TagMatcher = contract.NewTagMatcher(opts.Tags)
	}
	return f
}

func (f *Filter) Apply(up contract.Translation) contract.Translation {
	seen := map[string]struct{}{}
	return contract.NewFuncTranslation(func() (contract.Candidate, bool) {
		for {
			c, ok := up.Peek()
			if !ok {
				return contract.Candidate{}, false
			}
			up.Next()
			if _, dup := seen[c.Text]; dup {
				continue
			}
			seen[c.Text] = struct{}{}
			return c, true
		}
	})
}
