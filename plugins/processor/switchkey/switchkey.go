// Package switchkey 为选单热键：按下后以触发符替换输入，由 recognizer 模式认领为 switcher 段，
// 交给 switch_translator 列出选项开关。
package switchkey

import (
	"fmt"

	"imecore/pkg/contract"
)

var defaultHotkeys = []string{"Control+grave", "F4"}

const defaultTrigger = "`"

// Options 取自 "switcher/*"。
type Options struct {
	Hotkeys []string `yaml:"hotkeys"`
	Trigger string   `yaml:"trigger"`
}

type Processor struct {
	engine  contract.EngineHandle
	hotkeys map[contract.KeyEvent]struct{}
	trigger string
}

// New 解析热键；任一热键非法即返回错误。
func New(t contract.Ticket, opts *Options) (*Processor, error) {
	p := &Processor{engine: t.Engine, hotkeys: map[contract.KeyEvent]struct{}{}, trigger: defaultTrigger}
	keys := defaultHotkeys
	if opts != nil {
		if len(opts.Hotkeys) > 0 {
			keys = opts.Hotkeys
		}
		if opts.Trigger != "" {
			p.trigger = opts.Trigger
		}
	}
	for _, k := range keys {
		ev, err := contract.ParseKeyEvent(k)
		if err != nil {
			return nil, fmt.Errorf("switcher hotkey %q: %w", k, err)
		}
		p.hotkeys[ev] = struct{}{}
	}
	return p, nil
}

// ProcessKeyEvent 热键打开选单；选单已打开时再按一次则关闭。
func (p *Processor) ProcessKeyEvent(ev contract.KeyEvent) contract.ProcessResult {
	if p.engine == nil || ev.Release() {
		return contract.Rejected
	}
	if _, ok := p.hotkeys[ev]; !ok {
		return contract.Rejected
	}
	ctx := p.engine.Context()
	if ctx.Input() == p.trigger {
		ctx.Clear()
		return contract.Accepted
	}
	ctx.Clear()
	ctx.SetInput(p.trigger)
	return contract.Accepted
}
