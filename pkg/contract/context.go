package contract

import (
	"strings"
	"unicode/utf8"
)

const maxCommitHistory = 20

// Context: 单个输入会话的可变状态（输入串、组合、选项、属性、待上屏文本）。
// 由引擎独占；选项与属性变更经 Messenger 广播。
type Context struct {
	input      string
	caret      int
	comp       *Segmentation
	options    map[string]bool
	props      map[string]string
	commitText strings.Builder
	history    []string
	bus        *Messenger
}

// NewContext 创建空上下文；bus 可为 nil。
func NewContext(bus *Messenger) *Context {
	return &Context{
		comp:    NewSegmentation(""),
		options: map[string]bool{},
		props:   map[string]string{},
		bus:     bus,
	}
}

// Input 返回原始输入。
func (c *Context) Input() string { return c.input }

// Caret 返回光标位置（字节）。
func (c *Context) Caret() int { return c.caret }

// SetCaret 设置光标，越界时截断到输入两端。
func (c *Context) SetCaret(pos int) {
	switch {
	case pos < 0:
		pos = 0
	case pos > len(c.input):
		pos = len(c.input)
	}
	c.caret = pos
}

// IsComposing 判断是否有未上屏输入。
func (c *Context) IsComposing() bool { return c.input != "" }

// HasMenu 判断当前段是否有非空菜单。
func (c *Context) HasMenu() bool {
	b := c.comp.Back()
	return b != nil && b.Menu != nil && !b.Menu.Empty()
}

// Composition 返回当前分段。
func (c *Context) Composition() *Segmentation { return c.comp }

// PushInput 在光标处插入文本。
func (c *Context) PushInput(s string) {
	c.input = c.input[:c.caret] + s + c.input[c.caret:]
	c.caret += len(s)
}

// PopInput 删除光标前一个字符；无可删时返回 false。
func (c *Context) PopInput() bool {
	if c.caret == 0 {
		return false
	}
	_, n := utf8.DecodeLastRuneInString(c.input[:c.caret])
	c.input = c.input[:c.caret-n] + c.input[c.caret:]
	c.caret -= n
	return true
}

// DeleteInput 删除光标后一个字符。
func (c *Context) DeleteInput() bool {
	if c.caret >= len(c.input) {
		return false
	}
	_, n := utf8.DecodeRuneInString(c.input[c.caret:])
	c.input = c.input[:c.caret] + c.input[c.caret+n:]
	return true
}

// SetInput 替换整个输入，光标置于末尾。
func (c *Context) SetInput(s string) {
	c.input = s
	c.caret = len(s)
}

// Clear 清空输入与组合。
func (c *Context) Clear() {
	c.input = ""
	c.caret = 0
	c.comp.Clear()
}

// SetOption 设置开关并广播 "name" 或 "!name"。
func (c *Context) SetOption(name string, on bool) {
	c.options[name] = on
	v := name
	if !on {
		v = "!" + name
	}
	c.bus.Publish(MsgOption, v)
}

// GetOption 读取开关；未设置为 false。
func (c *Context) GetOption(name string) bool { return c.options[name] }

// Options 返回开关快照。
func (c *Context) Options() map[string]bool {
	out := make(map[string]bool, len(c.options))
	for k, v := range c.options {
		out[k] = v
	}
	return out
}

// SetProperty 设置属性并广播 "name=value"。
func (c *Context) SetProperty(name, value string) {
	c.props[name] = value
	c.bus.Publish(MsgProperty, name+"="+value)
}

// GetProperty 读取属性。
func (c *Context) GetProperty(name string) string { return c.props[name] }

// AppendCommit 追加待上屏文本并记入历史。
func (c *Context) AppendCommit(text string) {
	if text == "" {
		return
	}
	c.commitText.WriteString(text)
	c.history = append(c.history, text)
	if len(c.history) > maxCommitHistory {
		c.history = c.history[len(c.history)-maxCommitHistory:]
	}
}

// GetCommitText 返回自上次清除以来累计的上屏文本。
func (c *Context) GetCommitText() string { return c.commitText.String() }

// ClearCommitText 清除待上屏文本。
func (c *Context) ClearCommitText() { c.commitText.Reset() }

// CommitHistory 返回最近的上屏记录（旧在前）。
func (c *Context) CommitHistory() []string {
	out := make([]string, len(c.history))
	copy(out, c.history)
	return out
}

// Preedit 返回组合区显示文本：已选段显示候选文本，其余显示原始输入。
func (c *Context) Preedit() string {
	var b strings.Builder
	pos := 0
	for _, s := range c.comp.Segments() {
		if s.Start == s.End {
			continue
		}
		if s.End > len(c.input) || s.Start < pos {
			break
		}
		if s.Status >= Selected {
			if cand, ok := s.SelectedCandidate(); ok {
				b.WriteString(cand.Text)
				pos = s.End
				continue
			}
		}
		b.WriteString(c.input[s.Start:s.End])
		pos = s.End
	}
	if pos < len(c.input) {
		b.WriteString(c.input[pos:])
	}
	return b.String()
}
