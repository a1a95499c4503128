package resource

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"imecore/pkg/contract"
)

// TestResolvePathTemplate 根目录 + 前缀 + 后缀。
func TestResolvePathTemplate(t *testing.T) {
	r := NewResolver(Type{Name: "test", Prefix: "not_", Suffix: ".m"}, "/R")
	got, err := r.ResolvePath("x")
	if err != nil {
		t.Fatalf("ResolvePath: %v", err)
	}
	if got != "/R/not_x.m" {
		t.Fatalf("got %q want /R/not_x.m", got)
	}
	// 模板作用于整个标识串，结果再规范化
	got, _ = r.ResolvePath("sub/./y")
	if got != "/R/not_sub/y.m" {
		t.Fatalf("got %q want /R/not_sub/y.m", got)
	}
}

// TestResolvePathAbsoluteBypassesRoot 绝对标识不挂到根目录下。
func TestResolvePathAbsoluteBypassesRoot(t *testing.T) {
	plain := NewResolver(Type{Name: "test", Suffix: ".m"}, "/R")
	got, err := plain.ResolvePath("/abs/x")
	if err != nil || got != "/abs/x.m" {
		t.Fatalf("got %q, %v", got, err)
	}
	prefixed := NewResolver(Type{Name: "test", Prefix: "not_", Suffix: ".m"}, "/R")
	got, err = prefixed.ResolvePath("/abs/x")
	if err != nil || got != "/abs/not_x.m" {
		t.Fatalf("got %q, %v", got, err)
	}
	// 绝对标识无需根目录
	noRoot := NewResolver(Type{Name: "test", Suffix: ".m"}, "")
	if got, err := noRoot.ResolvePath("/abs/x"); err != nil || got != "/abs/x.m" {
		t.Fatalf("got %q, %v", got, err)
	}
}

// TestResolvePathInvalidRoot 空根与非法根向调用方报告，不发明回退路径。
func TestResolvePathInvalidRoot(t *testing.T) {
	cases := []struct {
		name string
		root string
		id   string
	}{
		{"空根", "", "x"},
		{"空白根", "   ", "x"},
		{"NUL 根", "/R\x00", "x"},
		{"空 id", "/R", ""},
		{"NUL id", "/R", "a\x00b"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			r := NewResolver(SchemaType, c.root)
			if _, err := r.ResolvePath(c.id); !errors.Is(err, contract.ErrPathInvalid) {
				t.Fatalf("want ErrPathInvalid got %v", err)
			}
		})
	}
}

// TestToResourceID 为 ResolvePath 的逆。
func TestToResourceID(t *testing.T) {
	r := NewResolver(Type{Name: "test", Prefix: "not_", Suffix: ".m"}, "/R")
	p, _ := r.ResolvePath("x")
	if id := r.ToResourceID(p); id != "x" {
		t.Fatalf("round trip got %q", id)
	}
	if id := r.ToResourceID("/R/sub/not_y.m"); id != "sub/y" {
		t.Fatalf("got %q want sub/y", id)
	}
	if id := r.ToResourceID("/elsewhere/other.txt"); id != "/elsewhere/other.txt" {
		t.Fatalf("got %q", id)
	}
}

// TestToFilePath 仅在相对时挂根。
func TestToFilePath(t *testing.T) {
	r := NewResolver(SchemaType, "/R")
	if p, err := r.ToFilePath("a/b.txt"); err != nil || p != "/R/a/b.txt" {
		t.Fatalf("got %q, %v", p, err)
	}
	if p, err := r.ToFilePath("/x/y"); err != nil || p != "/x/y" {
		t.Fatalf("got %q, %v", p, err)
	}
	if _, err := NewResolver(SchemaType, "").ToFilePath("a"); !errors.Is(err, contract.ErrPathInvalid) {
		t.Fatalf("want ErrPathInvalid got %v", err)
	}
}

// TestFallbackResolver 主路径缺失时回退到共享目录。
func TestFallbackResolver(t *testing.T) {
	user := t.TempDir()
	shared := t.TempDir()
	if err := os.WriteFile(filepath.Join(shared, "luna.schema.yaml"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	r := NewFallbackResolver(SchemaType, user, shared)
	got, err := r.ResolvePath("luna")
	if err != nil || got != filepath.Join(shared, "luna.schema.yaml") {
		t.Fatalf("回退失败 got %q, %v", got, err)
	}
	if err := os.WriteFile(filepath.Join(user, "luna.schema.yaml"), []byte("y"), 0o644); err != nil {
		t.Fatal(err)
	}
	got, _ = r.ResolvePath("luna")
	if got != filepath.Join(user, "luna.schema.yaml") {
		t.Fatalf("主路径存在时应优先 got %q", got)
	}
	// 都不存在时返回主路径
	got, _ = r.ResolvePath("missing")
	if got != filepath.Join(user, "missing.schema.yaml") {
		t.Fatalf("got %q", got)
	}
}
