package diag

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap/zapcore"

	"imecore/pkg/contract"
)

// UT-DIAG-01: 日志轮转写入
func TestRotatingFile(t *testing.T) {
	dir := t.TempDir()
	w := NewRotatingFile(dir, 30)
	if err := w.WriteLine([]byte("first line that is very long")); err != nil {
		t.Fatalf("写入失败: %v", err)
	}
	if err := w.WriteLine([]byte("second")); err != nil {
		t.Fatalf("第二次写入失败: %v", err)
	}
	files, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("读取目录失败: %v", err)
	}
	if len(files) < 2 {
		t.Fatalf("应存在轮转文件, got %d", len(files))
	}
}

// 当前文件名与时间戳文件存在
func TestRotatingFileRotateFiles(t *testing.T) {
	dir := t.TempDir()
	w := NewRotatingFile(dir, 10)
	for i := 0; i < 5; i++ {
		if err := w.WriteLine([]byte("xxxxxxxxxxxxxxxxxx")); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	ents, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("readdir: %v", err)
	}
	hasCurrent, hasRotated := false, false
	for _, e := range ents {
		if e.Name() == "imecore-current.txt" {
			hasCurrent = true
		}
		if strings.HasPrefix(e.Name(), "imecore-") && !strings.Contains(e.Name(), "current") {
			hasRotated = true
		}
	}
	if !hasCurrent || !hasRotated {
		t.Fatalf("expect both current and rotated files, got current=%v rotated=%v", hasCurrent, hasRotated)
	}
	if err := w.Sync(); err != nil {
		t.Fatalf("sync: %v", err)
	}
	_ = w.Close()
}

// 默认 maxBytes 与 f==nil 时 rotate
func TestRotatingFileDefaultsAndRotateNoOpen(t *testing.T) {
	dir := t.TempDir()
	w := NewRotatingFile(dir, 0)
	if w.maxBytes != 10*1024*1024 {
		t.Fatalf("default maxBytes = %d", w.maxBytes)
	}
	if err := w.Sync(); err != nil {
		t.Fatalf("未打开时 Sync 应为 no-op: %v", err)
	}
	if err := w.rotate(); err != nil {
		t.Fatalf("rotate: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "imecore-current.txt")); err != nil {
		t.Fatalf("current 文件未创建: %v", err)
	}
}

// UT-DIAG-02: 指标计数
func TestMetricsSnapshot(t *testing.T) {
	ResetMetrics()
	IncOp("engine", "compose", "success")
	IncOp("engine", "compose", "success")
	IncError("dict", "io")
	ObserveDuration("engine", "compose", 3)
	ObserveDuration("engine", "compose", 4)
	snap := Snapshot()
	if snap["op_total{engine,compose,success}"] != 2 {
		t.Fatalf("op_total 错误: %v", snap)
	}
	if snap["error_total{dict,io}"] != 1 || snap["op_duration_ms{engine,compose}"] != 7 {
		t.Fatalf("计数错误: %v", snap)
	}
	lines := FormatSnapshot(snap)
	if len(lines) != 3 || lines[0] != "error_total{dict,io} 1" {
		t.Fatalf("FormatSnapshot 排序错误: %v", lines)
	}
	// 快照为副本
	snap["x"] = 1
	if _, ok := Snapshot()["x"]; ok {
		t.Fatalf("Snapshot 应返回副本")
	}
}

// 错误分类
func TestClassify(t *testing.T) {
	cases := []struct {
		err  error
		want Code
	}{
		{fmt.Errorf("translator x: %w", contract.ErrNoSuchComponent), CodeNotFound},
		{contract.ErrReadOnly, CodeReadOnly},
		{contract.ErrNotLoaded, CodeNotLoaded},
		{contract.ErrPathInvalid, CodePath},
		{contract.ErrInvariantViolation, CodeInvariant},
		{contract.ErrRegistryFrozen, CodeInvariant},
		{contract.ErrMalformedEntry, CodeInput},
		{&fs.PathError{Op: "open", Path: "/", Err: errors.New("x")}, CodeIO},
		{errors.New("other"), CodeUnknown},
		{nil, CodeUnknown},
	}
	for _, c := range cases {
		if got := Classify(c.err); got != c.want {
			t.Fatalf("Classify(%v) = %s, 预期 %s", c.err, got, c.want)
		}
	}
}

func TestNowUTC(t *testing.T) {
	if NowUTC() == "" {
		t.Fatalf("应返回时间字符串")
	}
}

// Logger 输出单行 JSON，字段固定
func TestLoggerJSONFields(t *testing.T) {
	var buf bytes.Buffer
	l := NewLoggerTo("corr", "debug", zapcore.AddSync(&buf))
	timer := l.StartWithKV("engine", "compose", map[string]string{"schema": "luna"})
	timer.Finish("ok", 3)
	l.Warn("registry", "not_found", "skip stage", map[string]string{"name": "nope"})
	start := time.Now().Add(-10 * time.Millisecond)
	l.ErrorWithKV("dict", "io", "load failed", &start, map[string]string{"path": "/x"})
	l.DebugStart("segmentor", "round", nil)
	_ = l.Sync()

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 5 {
		t.Fatalf("应输出 5 行, got %d: %q", len(lines), buf.String())
	}
	var ev map[string]any
	if err := json.Unmarshal([]byte(lines[2]), &ev); err != nil {
		t.Fatalf("非 JSON: %v", err)
	}
	if ev["comp"] != "registry" || ev["code"] != "not_found" || ev["level"] != "warn" || ev["corr_id"] != "corr" {
		t.Fatalf("字段错误: %v", ev)
	}
	if err := json.Unmarshal([]byte(lines[3]), &ev); err != nil {
		t.Fatalf("非 JSON: %v", err)
	}
	if _, ok := ev["dur_ms"]; !ok {
		t.Fatalf("error 事件应带 dur_ms: %v", ev)
	}
}

// 级别过滤与 nil 接收者
func TestLoggerLevelsAndNil(t *testing.T) {
	var buf bytes.Buffer
	l := NewLoggerTo("", "warn", zapcore.AddSync(&buf))
	l.Start("comp", "msg").Finish("ok", 1)
	l.DebugStart("comp", "msg", nil)
	if buf.Len() != 0 {
		t.Fatalf("warn 级别应过滤 info/debug: %q", buf.String())
	}
	l.Error("comp", "code", "msg", nil)
	if buf.Len() == 0 {
		t.Fatalf("error 应输出")
	}

	var ln *Logger
	ln.Start("c", "m").Finish("x", 0)
	ln.Warn("c", "x", "m", nil)
	ln.Error("c", "x", "m", nil)
	if ln.With("k", "v") != nil || ln.Sync() != nil || ln.Close() != nil {
		t.Fatalf("nil logger 应为 no-op")
	}
	var tn *Timer
	tn.Finish("x", 0)
	(&Timer{}).Finish("x", 0)
	NewNop().Warn("c", "x", "m", nil)
}

// Logger 经由 RotatingFile 写盘
func TestLoggerWithRotatingSink(t *testing.T) {
	dir := t.TempDir()
	sink := NewRotatingFile(dir, 1024)
	l := NewLoggerTo("corr", "info", sink)
	l.With("session", "s1").Start("engine", "open").Finish("ok", 0)
	_ = l.Sync()
	_ = sink.Close()
	data, err := os.ReadFile(filepath.Join(dir, "imecore-current.txt"))
	if err != nil {
		t.Fatalf("log file not found: %v", err)
	}
	if !strings.Contains(string(data), `"session":"s1"`) {
		t.Fatalf("子日志器字段缺失: %s", data)
	}
}

// UT-DIAG-03: 终端（非 TTY）逐行输出
func TestTerminalNonTTYFlow(t *testing.T) {
	var sb strings.Builder
	term := NewTerminal(&sb, true)
	if term.isTTY {
		t.Fatalf("expect non-tty")
	}
	term.SessionStart("luna", "明月")
	page := &contract.Page{PageSize: 3, PageNo: 0, Candidates: []contract.Candidate{
		{Text: "你好"}, {Text: "拟好"}, {Text: "你", Comment: "ni"},
	}}
	term.Compose("ni hao", page, 1, "")
	term.Compose("ni hao", page, 1, "") // 无变化不重复输出
	term.Commit("你好")
	term.Notice(contract.MsgNoMoreCandidates, "")
	term.SessionFinish(true, 1500*time.Millisecond)

	out := sb.String()
	if strings.Contains(out, "\r") {
		t.Fatalf("non-tty should not contain carriage returns: %q", out)
	}
	for _, want := range []string{
		"[schema] luna | 明月\n",
		"[ni hao] 1.你好 [2.拟好] 3.你(ni) ▸\n",
		"[commit] 你好\n",
		"[no_more_candidates]\n",
		"[ok] luna | 上屏 1 | 用时 1.5s\n",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %q in %q", want, out)
		}
	}
	if strings.Count(out, "[ni hao]") != 1 {
		t.Fatalf("相同内容不应重复输出: %q", out)
	}
}

// UT-DIAG-04: 终端（TTY）单行覆盖与按显示宽度清尾
func TestTerminalTTYInlineClear(t *testing.T) {
	var sb strings.Builder
	term := NewTerminal(&sb, true)
	term.isTTY = true
	page := &contract.Page{PageSize: 2, IsLastPage: true, Candidates: []contract.Candidate{{Text: "你好"}, {Text: "拟好"}}}
	term.Compose("nihao", page, 0, "ab")
	first := sb.String()
	if !strings.HasPrefix(first, "\r[nihao] [a.你好] b.拟好") {
		t.Fatalf("TTY 应以回车覆盖: %q", first)
	}
	wide := term.lastLen
	if wide != visLen("[nihao] [a.你好] b.拟好") || wide <= len([]rune("[nihao] [a.你好] b.拟好")) {
		t.Fatalf("宽度应按显示列计算: %d", wide)
	}
	term.Compose("n", nil, 0, "")
	second := sb.String()[len(first):]
	if !strings.HasPrefix(second, "\r[n]") || !strings.HasSuffix(second, strings.Repeat(" ", wide-3)) {
		t.Fatalf("短行应补空格覆盖: %q", second)
	}
	term.Commit("你")
	if !strings.HasSuffix(sb.String(), "\r[commit] 你\n") {
		t.Fatalf("commit 前应清尾: %q", sb.String())
	}
}

// 截断到终端宽度
func TestTerminalTTYTruncate(t *testing.T) {
	var sb strings.Builder
	term := NewTerminal(&sb, true)
	term.isTTY = true
	term.SetWidth(10)
	term.Compose("这是一个很长的预编辑串", nil, 0, "")
	if term.lastLen > 10 {
		t.Fatalf("应截断到 10 列, got %d", term.lastLen)
	}
}

// UT-DIAG-05: 写失败降级为禁用态
type flakyWriter struct{ fail bool }

func (w *flakyWriter) Write(p []byte) (int, error) {
	if w.fail {
		w.fail = false
		return 0, fmt.Errorf("boom")
	}
	return len(p), nil
}

func TestTerminalDisableOnWriteError(t *testing.T) {
	fw := &flakyWriter{fail: true}
	term := NewTerminal(fw, true)
	term.SessionStart("luna", "x")
	if term.enabled {
		t.Fatalf("terminal should be disabled after write error")
	}
	term.Compose("a", nil, 0, "")
	term.Commit("a")
	term.Notice("x", "y")
	term.SessionFinish(true, 0)

	fw = &flakyWriter{fail: true}
	term = NewTerminal(fw, true)
	term.isTTY = true
	term.Compose("a", nil, 0, "")
	if term.enabled {
		t.Fatalf("terminal should be disabled after inline error")
	}
}

// UT-DIAG-06: 工具函数与全局终端
func TestHelpers(t *testing.T) {
	if safe("a\nb\rc") != "a b c" {
		t.Fatalf("safe replace failed")
	}
	if formatDur(0) != "0ms" || formatDur(1500*time.Millisecond) != "1.5s" {
		t.Fatalf("formatDur failed: %s", formatDur(1500*time.Millisecond))
	}
	SetTerminal(nil)
	if GetTerminal() != nil {
		t.Fatalf("expected nil terminal")
	}
	SetTerminal(NewTerminal(os.Stderr, false))
	if GetTerminal() == nil {
		t.Fatalf("expected non-nil terminal")
	}
	SetTerminal(nil)

	var tn *Terminal
	tn.SessionStart("x", "y")
	tn.Compose("a", nil, 0, "")
	tn.Commit("a")
	tn.Notice("a", "")
	tn.SessionFinish(true, 0)
	tn.SetWidth(1)
}

func TestNewTerminalCIEnv(t *testing.T) {
	t.Setenv("CI", "true")
	term := NewTerminal(os.Stderr, true)
	if term.isTTY {
		t.Fatalf("CI env should force non-tty")
	}
}
