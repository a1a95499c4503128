// Package shape 为全角格式化器：full_shape 打开时把 ASCII 可见字符与空格转为全角。
package shape

import (
	"golang.org/x/text/width"

	"imecore/pkg/contract"
)

const defaultOption = "full_shape"

type Options struct {
	OptionName string `yaml:"option_name"`
}

type Formatter struct {
	engine contract.EngineHandle
	option string
}

func New(t contract.Ticket, opts *Options) *Formatter {
	f := &Formatter{engine: t.Engine, option: defaultOption}
	if opts != nil && opts.OptionName != "" {
		f.option = opts.OptionName
	}
	return f
}

// Format 仅变换 0x20–0x7e；其余字符原样保留。
func (f *Formatter) Format(text string) string {
	if f.engine == nil || !f.engine.Context().GetOption(f.option) {
		return text
	}
	return Widen(text)
}

// Widen: 0x20 → U+3000，0x21–0x7e → U+FF01–U+FF5E。
func Widen(text string) string {
	b := make([]rune, 0, len(text))
	for _, r := range text {
		if r >= 0x20 && r <= 0x7e {
			b = append(b, []rune(width.Widen.String(string(r)))...)
			continue
		}
		b = append(b, r)
	}
	return string(b)
}
