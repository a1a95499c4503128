package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	cfgpkg "imecore/internal/config"
	"imecore/internal/diag"
)

func init() {
	newLogger = func(string, string) *diag.Logger { return diag.NewNop() }
}

// chdir 等价于 Go 1.24 的 t.Chdir：切换工作目录并在测试结束时恢复。
func chdir(t *testing.T, dir string) {
	t.Helper()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if !filepath.IsAbs(dir) {
		dir = filepath.Join(wd, dir)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Setenv("PWD", dir)
	t.Cleanup(func() {
		if err := os.Chdir(wd); err != nil {
			panic("testing: failed to restore working directory: " + err.Error())
		}
	})
}

// initDir 在临时目录生成默认配置与示例方案，并切换工作目录。
func initDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	var out, errb bytes.Buffer
	if code := run([]string{"init-config", dir}, strings.NewReader(""), &out, &errb); code != 0 {
		t.Fatalf("init-config return %d: %s", code, errb.String())
	}
	chdir(t, dir)
	return dir
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, ".env")
	content := "# c\nexport IMECORE_T_A=\"x\\ty\"\nIMECORE_T_B='keep'\nbad line\nIMECORE_T_C=new\n"
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("IMECORE_T_C", "old")
	t.Setenv("IMECORE_T_A", "")
	os.Unsetenv("IMECORE_T_A")
	if err := loadDotEnv(p); err != nil {
		t.Fatalf("loadDotEnv: %v", err)
	}
	if got := os.Getenv("IMECORE_T_A"); got != "x\ty" {
		t.Fatalf("A=%q", got)
	}
	if got := os.Getenv("IMECORE_T_B"); got != "keep" {
		t.Fatalf("B=%q", got)
	}
	os.Unsetenv("IMECORE_T_B")
	if got := os.Getenv("IMECORE_T_C"); got != "old" {
		t.Fatalf("已有 ENV 不应被覆盖: %q", got)
	}
	if err := loadDotEnv(filepath.Join(dir, "missing")); err != nil {
		t.Fatalf("缺失文件应忽略: %v", err)
	}
}

func TestWriteConfigNoOverwrite(t *testing.T) {
	cfg := cfgpkg.DefaultTemplateConfig()
	file := filepath.Join(t.TempDir(), "c.json")
	if err := writeConfig(file, cfg, nil); err != nil {
		t.Fatalf("writeConfig: %v", err)
	}
	if err := writeConfig(file, cfg, nil); !os.IsExist(err) {
		t.Fatalf("已存在文件应报 ErrExist，实际 %v", err)
	}
	var out bytes.Buffer
	if err := writeConfig("-", cfg, &out); err != nil {
		t.Fatalf("writeConfig stdout: %v", err)
	}
	if !strings.Contains(out.String(), `"schema": "luna"`) {
		t.Fatalf("stdout=%s", out.String())
	}
}

func TestRunInitConfig(t *testing.T) {
	dir := initDir(t)
	for _, rel := range []string{"config.json", ".env", "data/luna.schema.yaml", "data/luna.table.txt"} {
		if _, err := os.Stat(filepath.Join(dir, rel)); err != nil {
			t.Fatalf("%s not generated: %v", rel, err)
		}
	}
	// 再次生成不覆盖
	marker := filepath.Join(dir, "data", "luna.table.txt")
	if err := os.WriteFile(marker, []byte("中\tzhong\t1\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	var out, errb bytes.Buffer
	if code := run([]string{"init-config", dir}, strings.NewReader(""), &out, &errb); code != 0 {
		t.Fatalf("second init return %d: %s", code, errb.String())
	}
	b, _ := os.ReadFile(marker)
	if string(b) != "中\tzhong\t1\n" {
		t.Fatalf("已存在文件被覆盖: %q", b)
	}
}

func TestRunConsoleKeys(t *testing.T) {
	initDir(t)
	var out, errb bytes.Buffer
	code := run([]string{"console", "--keys", "zhong{space}", "--stats"}, strings.NewReader(""), &out, &errb)
	if code != 0 {
		t.Fatalf("console return %d: %s", code, errb.String())
	}
	s := out.String()
	for _, want := range []string{"[schema] luna", "[zhong] [1.中]", "[commit] 中", "[ok] luna"} {
		if !strings.Contains(s, want) {
			t.Fatalf("输出缺少 %q:\n%s", want, s)
		}
	}
	if !strings.Contains(s, "op_total{engine,commit,ok}") {
		t.Fatalf("--stats 应输出计数器:\n%s", s)
	}
}

func TestRunConsoleStdin(t *testing.T) {
	initDir(t)
	in := strings.NewReader("ni{space}\n\nbad{Nope}\nhao{space}\n")
	var out, errb bytes.Buffer
	if code := run([]string{"console"}, in, &out, &errb); code != 0 {
		t.Fatalf("console return %d: %s", code, errb.String())
	}
	s := out.String()
	iNi := strings.Index(s, "[commit] 你")
	iHao := strings.Index(s, "[commit] 好")
	if iNi < 0 || iHao < iNi {
		t.Fatalf("上屏顺序不符:\n%s", s)
	}
	if !strings.Contains(s, "[error]") {
		t.Fatalf("非法序列应提示而不中断:\n%s", s)
	}
}

func TestRunConsoleBadKeys(t *testing.T) {
	initDir(t)
	var out, errb bytes.Buffer
	if code := run([]string{"console", "--keys", "{Nope}"}, strings.NewReader(""), &out, &errb); code != 1 {
		t.Fatalf("非法按键序列应返回 1，实际 %d", code)
	}
}

func TestRunConfigErrors(t *testing.T) {
	chdir(t, t.TempDir())
	var out, errb bytes.Buffer
	// 无配置：未设置方案
	if code := run([]string{"console", "--keys", "a"}, strings.NewReader(""), &out, &errb); code != 3 {
		t.Fatalf("缺少方案应返回 3，实际 %d", code)
	}
	if !strings.Contains(errb.String(), "schema not set") {
		t.Fatalf("stderr=%s", errb.String())
	}

	initDir(t)
	errb.Reset()
	if code := run([]string{"console", "--schema", "missing", "--keys", "a"}, strings.NewReader(""), &out, &errb); code != 3 {
		t.Fatalf("方案缺失应返回 3，实际 %d", code)
	}
	if code := run([]string{"console", "--log-level", "loud"}, strings.NewReader(""), &out, &errb); code != 3 {
		t.Fatalf("非法日志等级应返回 3，实际 %d", code)
	}
	if code := run([]string{"console", "extra"}, strings.NewReader(""), &out, &errb); code != 3 {
		t.Fatalf("多余参数应返回 3，实际 %d", code)
	}
}

func TestRunCompile(t *testing.T) {
	dir := initDir(t)
	var out, errb bytes.Buffer
	if code := run([]string{"compile", "luna"}, strings.NewReader(""), &out, &errb); code != 0 {
		t.Fatalf("compile return %d: %s", code, errb.String())
	}
	if !strings.Contains(out.String(), "[compiled] luna") || !strings.Contains(out.String(), "(12 entries)") {
		t.Fatalf("out=%s", out.String())
	}
	if _, err := os.Stat(filepath.Join(dir, "data", "cache", "luna.table.bin")); err != nil {
		t.Fatalf("快照未生成: %v", err)
	}
	out.Reset()
	if code := run([]string{"compile", "luna"}, strings.NewReader(""), &out, &errb); code != 0 {
		t.Fatalf("second compile return %d", code)
	}
	if !strings.Contains(out.String(), "[up-to-date] luna") {
		t.Fatalf("源文件未变应命中快照: %s", out.String())
	}
	if code := run([]string{"compile", "nope"}, strings.NewReader(""), &out, &errb); code != 1 {
		t.Fatalf("缺失码表应返回 1，实际 %d", code)
	}
	if code := run([]string{"compile"}, strings.NewReader(""), &out, &errb); code != 3 {
		t.Fatalf("缺少参数应返回 3，实际 %d", code)
	}
}

func TestWatchFileSignalsOnWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "luna.schema.yaml")
	if err := os.WriteFile(path, []byte("a: 1\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	ch, wait, err := watchFile(ctx, path, diag.NewNop())
	if err != nil {
		t.Fatalf("watchFile: %v", err)
	}
	defer func() { cancel(); wait() }()

	// 同目录其他文件不触发
	if err := os.WriteFile(filepath.Join(dir, "other.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	select {
	case <-ch:
		t.Fatal("无关文件不应触发重载")
	case <-time.After(3 * reloadDebounce):
	}

	if err := os.WriteFile(path, []byte("a: 2\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	select {
	case <-ch:
	case <-time.After(5 * time.Second):
		t.Fatal("写入方案文件后未收到重载信号")
	}
}
