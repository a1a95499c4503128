// Package speller 接收编码字符：字母表内字符入码；分隔符仅在组合中接收；
// 未在组合中时只有声母可开启输入。
package speller

import (
	"strings"

	"imecore/pkg/contract"
)

const defaultAlphabet = "zyxwvutsrqponmlkjihgfedcba"

type Options struct {
	Alphabet  string `yaml:"alphabet"`
	Delimiter string `yaml:"delimiter"`
	Initials  string `yaml:"initials"`
}

type Processor struct {
	engine    contract.EngineHandle
	alphabet  string
	delimiter string
	initials  string
}

func New(t contract.Ticket, opts *Options) *Processor {
	p := &Processor{engine: t.Engine, alphabet: defaultAlphabet}
	if opts != nil {
		if opts.Alphabet != "" {
			p.alphabet = opts.Alphabet
		}
		p.delimiter = opts.Delimiter
		p.initials = opts.Initials
	}
	if p.initials == "" {
		p.initials = p.alphabet
	}
	return p
}

func (p *Processor) ProcessKeyEvent(ev contract.KeyEvent) contract.ProcessResult {
	if p.engine == nil || ev.Release() || !ev.Printable() {
		return contract.Rejected
	}
	ch := byte(ev.Keycode)
	ctx := p.engine.Context()
	isLetter := strings.IndexByte(p.alphabet, ch) >= 0
	isDelimiter := strings.IndexByte(p.delimiter, ch) >= 0
	if !isLetter && !isDelimiter {
		return contract.Rejected
	}
	if !ctx.IsComposing() {
		if isDelimiter && !isLetter {
			return contract.Rejected
		}
		if strings.IndexByte(p.initials, ch) < 0 {
			return contract.Rejected
		}
	}
	ctx.PushInput(string(ch))
	return contract.Accepted
}
