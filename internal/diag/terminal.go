package diag

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/mattn/go-runewidth"

	"imecore/pkg/contract"
)

// Terminal: 控制台组字回显（非日志）。
// - 输出到提供的 io.Writer（默认 stderr）。
// - TTY: 预编辑与候选页单行 \r 覆盖；非 TTY: 每次变化分行打印。
// - 宽度按终端显示列计算（中日韩字符占两列）。
// - 并发安全；写失败后进入禁用态为 no-op。
type Terminal struct {
	w       io.Writer
	enabled bool
	isTTY   bool
	width   int

	schemaID string
	commits  int
	lastLine string
	lastLen  int

	mu sync.Mutex
}

var (
	termMu sync.RWMutex
	term   *Terminal
)

// SetTerminal 设置全局终端指针（nil 可清除）。
func SetTerminal(t *Terminal) { termMu.Lock(); term = t; termMu.Unlock() }

// GetTerminal 返回全局终端（可能为 nil）。
func GetTerminal() *Terminal { termMu.RLock(); defer termMu.RUnlock(); return term }

// NewTerminal 构造终端回显器。
// enabled=false 时总是 no-op。
func NewTerminal(w io.Writer, enabled bool) *Terminal {
	if w == nil {
		w = os.Stderr
	}
	t := &Terminal{w: w, enabled: enabled, width: 80}
	// CI 环境视为非 TTY
	if os.Getenv("CI") != "" {
		t.isTTY = false
	} else if f, ok := w.(*os.File); ok {
		t.isTTY = isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	}
	return t
}

// SetWidth 设置单行最大显示列数（<=0 表示不截断）。
func (t *Terminal) SetWidth(cols int) {
	if t == nil {
		return
	}
	t.mu.Lock()
	t.width = cols
	t.mu.Unlock()
}

// SessionStart: 记录会话方案。
func (t *Terminal) SessionStart(schemaID, schemaName string) {
	if t == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.enabled {
		return
	}
	t.schemaID = schemaID
	t.commits = 0
	t.println(fmt.Sprintf("[schema] %s | %s", safe(schemaID), safe(schemaName)))
}

// Compose: 刷新预编辑与当前候选页。page 为 nil 表示无菜单。
// highlight 为全局候选序号；labels 为选字键（空则用数字）。
func (t *Terminal) Compose(preedit string, page *contract.Page, highlight int, labels string) {
	if t == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.enabled {
		return
	}
	line := FormatMenuLine(preedit, page, highlight, labels)
	if line == t.lastLine {
		return
	}
	t.lastLine = line
	if t.isTTY {
		if t.width > 0 {
			line = runewidth.Truncate(line, t.width, "…")
		}
		t.printInline(line)
		return
	}
	t.println(line)
}

// Commit: 上屏文本，换行输出。
func (t *Terminal) Commit(text string) {
	if t == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.enabled {
		return
	}
	t.commits++
	t.clearInline()
	t.lastLine = ""
	t.println("[commit] " + safe(text))
}

// Notice: 一次性提示，如 no_more_candidates。
func (t *Terminal) Notice(kind, value string) {
	if t == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.enabled {
		return
	}
	t.clearInline()
	t.lastLine = ""
	if value == "" {
		t.println("[" + safe(kind) + "]")
		return
	}
	t.println(fmt.Sprintf("[%s] %s", safe(kind), safe(value)))
}

// SessionFinish: 结束总览。
func (t *Terminal) SessionFinish(ok bool, dur time.Duration) {
	if t == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.enabled {
		return
	}
	tag := "ok"
	if !ok {
		tag = "fail"
	}
	t.clearInline()
	t.println(fmt.Sprintf("[%s] %s | 上屏 %d | 用时 %s", tag, safe(t.schemaID), t.commits, formatDur(dur)))
}

// FormatMenuLine 渲染一行："[ni hao] 1.你好 [2.拟好] 3.你"，高亮项加方括号。
func FormatMenuLine(preedit string, page *contract.Page, highlight int, labels string) string {
	var b strings.Builder
	b.WriteByte('[')
	b.WriteString(safe(preedit))
	b.WriteByte(']')
	if page == nil {
		return b.String()
	}
	base := page.PageNo * page.PageSize
	lr := []rune(labels)
	for i, c := range page.Candidates {
		label := fmt.Sprintf("%d", (i+1)%10)
		if i < len(lr) {
			label = string(lr[i])
		}
		item := label + "." + safe(c.Text)
		if c.Comment != "" {
			item += "(" + safe(c.Comment) + ")"
		}
		b.WriteByte(' ')
		if base+i == highlight {
			b.WriteString("[" + item + "]")
		} else {
			b.WriteString(item)
		}
	}
	if !page.IsLastPage {
		b.WriteString(" ▸")
	}
	return b.String()
}

func (t *Terminal) clearInline() {
	if t.isTTY && t.lastLen > 0 {
		t.printInline("")
		if t.enabled {
			_, _ = io.WriteString(t.w, "\r")
		}
	}
}

func (t *Terminal) println(s string) {
	if t == nil || !t.enabled {
		return
	}
	if _, err := io.WriteString(t.w, s+"\n"); err != nil {
		t.enabled = false
	}
	t.lastLen = 0
}

func (t *Terminal) printInline(s string) {
	if t == nil || !t.enabled {
		return
	}
	// 若新行比旧短，填充空格覆盖
	pad := 0
	if l := visLen(s); t.lastLen > l {
		pad = t.lastLen - l
	}
	var b strings.Builder
	b.WriteByte('\r')
	b.WriteString(s)
	if pad > 0 {
		b.WriteString(strings.Repeat(" ", pad))
	}
	if _, err := io.WriteString(t.w, b.String()); err != nil {
		t.enabled = false
		return
	}
	t.lastLen = visLen(s)
}

func visLen(s string) int { return runewidth.StringWidth(s) }

func safe(s string) string {
	// 避免换行等控制字符污染终端
	s = strings.ReplaceAll(s, "\n", " ")
	s = strings.ReplaceAll(s, "\r", " ")
	return s
}

func formatDur(d time.Duration) string {
	if d < time.Second {
		ms := d.Milliseconds()
		if ms <= 0 {
			ms = 0
		}
		return fmt.Sprintf("%dms", ms)
	}
	s := float64(d.Milliseconds()) / 1000.0
	return fmt.Sprintf("%.1fs", s)
}
