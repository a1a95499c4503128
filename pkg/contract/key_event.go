package contract

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// 键码沿用 X11 keysym 数值；可打印 ASCII 即其字符值。
const (
	KeySpace     = 0x20
	KeyBackSpace = 0xff08
	KeyTab       = 0xff09
	KeyReturn    = 0xff0d
	KeyEscape    = 0xff1b
	KeyHome      = 0xff50
	KeyLeft      = 0xff51
	KeyUp        = 0xff52
	KeyRight     = 0xff53
	KeyDown      = 0xff54
	KeyPageUp    = 0xff55
	KeyPageDown  = 0xff56
	KeyEnd       = 0xff57
	KeyDelete    = 0xffff
	KeyF1        = 0xffbe
)

// 修饰键位掩码。
const (
	ShiftMask   = 1 << 0
	LockMask    = 1 << 1
	ControlMask = 1 << 2
	AltMask     = 1 << 3
	ReleaseMask = 1 << 30
)

var keyNames = map[string]int{
	"space":        KeySpace,
	"BackSpace":    KeyBackSpace,
	"Tab":          KeyTab,
	"Return":       KeyReturn,
	"Escape":       KeyEscape,
	"Home":         KeyHome,
	"Left":         KeyLeft,
	"Up":           KeyUp,
	"Right":        KeyRight,
	"Down":         KeyDown,
	"Page_Up":      KeyPageUp,
	"Prior":        KeyPageUp,
	"Page_Down":    KeyPageDown,
	"Next":         KeyPageDown,
	"End":          KeyEnd,
	"Delete":       KeyDelete,
	"minus":        '-',
	"equal":        '=',
	"comma":        ',',
	"period":       '.',
	"semicolon":    ';',
	"apostrophe":   '\'',
	"bracketleft":  '[',
	"bracketright": ']',
	"slash":        '/',
	"backslash":    '\\',
	"quotedbl":     '"',
	"exclam":       '!',
	"question":     '?',
	"grave":        '`',
}

func init() {
	for i := 1; i <= 12; i++ {
		keyNames[fmt.Sprintf("F%d", i)] = KeyF1 + i - 1
	}
}

var modifierNames = map[string]int{
	"Shift":   ShiftMask,
	"Lock":    LockMask,
	"Control": ControlMask,
	"Alt":     AltMask,
	"Release": ReleaseMask,
}

// KeyEvent: 键码 + 修饰键。
type KeyEvent struct {
	Keycode  int
	Modifier int
}

func (k KeyEvent) Shift() bool   { return k.Modifier&ShiftMask != 0 }
func (k KeyEvent) Ctrl() bool    { return k.Modifier&ControlMask != 0 }
func (k KeyEvent) Alt() bool     { return k.Modifier&AltMask != 0 }
func (k KeyEvent) Release() bool { return k.Modifier&ReleaseMask != 0 }

// Printable 判断是否为无修饰的可打印 ASCII（不含空格）。
func (k KeyEvent) Printable() bool {
	return k.Modifier&^(ShiftMask|LockMask) == 0 && k.Keycode > 0x20 && k.Keycode < 0x7f
}

// Repr 返回可再次被 ParseKeyEvent 解析的表示，如 "Control+a"、"space"。
func (k KeyEvent) Repr() string {
	var b strings.Builder
	for _, name := range []string{"Shift", "Lock", "Control", "Alt", "Release"} {
		if k.Modifier&modifierNames[name] != 0 {
			b.WriteString(name)
			b.WriteByte('+')
		}
	}
	b.WriteString(keyName(k.Keycode))
	return b.String()
}

func keyName(code int) string {
	// 可打印字符直接输出，命名键取首个匹配的规范名。
	if code > 0x20 && code < 0x7f {
		return string(rune(code))
	}
	for _, name := range []string{"space", "BackSpace", "Tab", "Return", "Escape", "Home", "Left", "Up", "Right", "Down", "Page_Up", "Page_Down", "End", "Delete"} {
		if keyNames[name] == code {
			return name
		}
	}
	if code >= KeyF1 && code < KeyF1+12 {
		return fmt.Sprintf("F%d", code-KeyF1+1)
	}
	return fmt.Sprintf("0x%04x", code)
}

// ParseKeyEvent 解析 "Control+Shift+a"、"Page_Down"、"a" 等表示。
func ParseKeyEvent(repr string) (KeyEvent, error) {
	if repr == "" {
		return KeyEvent{}, fmt.Errorf("empty key repr: %w", ErrInvalidInput)
	}
	var ev KeyEvent
	rest := repr
	for {
		i := strings.IndexByte(rest, '+')
		if i <= 0 || i == len(rest)-1 {
			break
		}
		m, ok := modifierNames[rest[:i]]
		if !ok {
			return KeyEvent{}, fmt.Errorf("unknown modifier %q: %w", rest[:i], ErrInvalidInput)
		}
		ev.Modifier |= m
		rest = rest[i+1:]
	}
	if code, ok := keyNames[rest]; ok {
		ev.Keycode = code
		return ev, nil
	}
	if r, n := utf8.DecodeRuneInString(rest); n == len(rest) && r != utf8.RuneError {
		ev.Keycode = int(r)
		return ev, nil
	}
	var code int
	if _, err := fmt.Sscanf(rest, "0x%x", &code); err == nil {
		ev.Keycode = code
		return ev, nil
	}
	return KeyEvent{}, fmt.Errorf("unknown key %q: %w", rest, ErrInvalidInput)
}

// ParseKeySequence 解析按键序列：普通字符逐个成键，"{name}" 为命名键，如 "ni{space}{Page_Down}1"。
func ParseKeySequence(seq string) ([]KeyEvent, error) {
	var out []KeyEvent
	for i := 0; i < len(seq); {
		if seq[i] == '{' {
			j := strings.IndexByte(seq[i:], '}')
			if j < 2 {
				return nil, fmt.Errorf("unterminated key name at %d: %w", i, ErrInvalidInput)
			}
			ev, err := ParseKeyEvent(seq[i+1 : i+j])
			if err != nil {
				return nil, err
			}
			out = append(out, ev)
			i += j + 1
			continue
		}
		r, n := utf8.DecodeRuneInString(seq[i:])
		out = append(out, KeyEvent{Keycode: int(r)})
		i += n
	}
	return out, nil
}
