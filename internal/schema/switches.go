package schema

import (
	"fmt"

	"imecore/pkg/contract"
)

// Switch: switches 列表的一项。Name 非空为开关；否则 Options 为单选组。
// Reset 为方案载入时的初始状态，-1 表示保持现状。
type Switch struct {
	Name    string
	Options []string
	States  []string
	Reset   int
}

// Radio 判断是否为单选组。
func (s Switch) Radio() bool { return s.Name == "" }

// StateLabel 返回第 i 个状态的标签；缺失时为空串。
func (s Switch) StateLabel(i int) string {
	if i < 0 || i >= len(s.States) {
		return ""
	}
	return s.States[i]
}

// LoadSwitches 读取 switches 列表；既无 name 也无 options 的项被跳过。
func LoadSwitches(cfg contract.Config) []Switch {
	if cfg == nil {
		return nil
	}
	n := cfg.ListSize("switches")
	out := make([]Switch, 0, n)
	for i := 0; i < n; i++ {
		base := fmt.Sprintf("switches/@%d/", i)
		sw := Switch{Reset: -1, States: cfg.GetList(base + "states")}
		if r, ok := cfg.GetInt(base + "reset"); ok && r >= 0 {
			sw.Reset = r
		}
		if name, ok := cfg.GetString(base + "name"); ok && name != "" {
			sw.Name = name
		} else if opts := cfg.GetList(base + "options"); len(opts) > 0 {
			sw.Options = opts
		} else {
			continue
		}
		out = append(out, sw)
	}
	return out
}

// InitializeOptions 按各项 reset 设置上下文选项：开关取 reset != 0；单选组仅第 reset 项为真。
func InitializeOptions(switches []Switch, ctx *contract.Context) {
	for _, sw := range switches {
		if sw.Reset < 0 {
			continue
		}
		if !sw.Radio() {
			ctx.SetOption(sw.Name, sw.Reset != 0)
			continue
		}
		for j, opt := range sw.Options {
			ctx.SetOption(opt, j == sw.Reset)
		}
	}
}
