// Package resource 将逻辑资源标识（方案名、词典名）映射为文件路径。
package resource

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"imecore/pkg/contract"
)

// Type: 资源类别的路径模板：prefix + id + suffix。
type Type struct {
	Name   string
	Prefix string
	Suffix string
}

// 内置资源类别。
var (
	SchemaType     = Type{Name: "schema", Suffix: ".schema.yaml"}
	DictType       = Type{Name: "dict", Suffix: ".dict.yaml"}
	TableType      = Type{Name: "table", Suffix: ".table.txt"}
	UserDBType     = Type{Name: "userdb", Suffix: ".userdb.txt"}
	UserSQLiteType = Type{Name: "userdb_sqlite", Suffix: ".userdb.sqlite"}
	CacheType      = Type{Name: "compiled", Suffix: ".table.bin"}
)

// Resolver 以固定根目录解析某一类资源。除根目录外无状态。
type Resolver struct {
	Type Type
	Root string
}

// NewResolver 构造解析器。
func NewResolver(t Type, root string) *Resolver {
	return &Resolver{Type: t, Root: root}
}

// ResolvePath 返回 normalize(root, prefix+id+suffix)。
// 拼接结果或 id 本身为绝对路径时不再挂到 root 下；相对路径遇到空根或非法根时报 ErrPathInvalid。
func (r *Resolver) ResolvePath(id string) (string, error) {
	if id == "" {
		return "", fmt.Errorf("resolve %s: empty id: %w", r.Type.Name, contract.ErrPathInvalid)
	}
	composed := r.Type.Prefix + id + r.Type.Suffix
	if strings.ContainsRune(composed, 0) {
		return "", fmt.Errorf("resolve %s %q: %w", r.Type.Name, id, contract.ErrPathInvalid)
	}
	if filepath.IsAbs(composed) {
		return filepath.Clean(composed), nil
	}
	// 绝对标识：模板只作用于文件名
	if filepath.IsAbs(id) {
		dir, base := filepath.Split(filepath.Clean(id))
		return filepath.Join(dir, r.Type.Prefix+base+r.Type.Suffix), nil
	}
	root := strings.TrimSpace(r.Root)
	if root == "" || strings.ContainsRune(root, 0) {
		return "", fmt.Errorf("resolve %s %q: root %q: %w", r.Type.Name, id, r.Root, contract.ErrPathInvalid)
	}
	abs, err := filepath.Abs(filepath.Join(root, composed))
	if err != nil {
		return "", fmt.Errorf("resolve %s %q: %v: %w", r.Type.Name, id, err, contract.ErrPathInvalid)
	}
	return abs, nil
}

// ToResourceID 为 ResolvePath 的逆：去除根目录、前缀与后缀。
// 不符合模板的路径原样（规范化后）返回。
func (r *Resolver) ToResourceID(path string) string {
	p := filepath.Clean(path)
	if r.Root != "" {
		if root, err := filepath.Abs(r.Root); err == nil {
			if rel, err := filepath.Rel(root, p); err == nil && !strings.HasPrefix(rel, "..") {
				p = rel
			}
		}
	}
	p = filepath.ToSlash(p)
	dir, base := "", p
	if i := strings.LastIndexByte(p, '/'); i >= 0 {
		dir, base = p[:i+1], p[i+1:]
	}
	if strings.HasPrefix(base, r.Type.Prefix) && strings.HasSuffix(base, r.Type.Suffix) &&
		len(base) >= len(r.Type.Prefix)+len(r.Type.Suffix) {
		base = base[len(r.Type.Prefix) : len(base)-len(r.Type.Suffix)]
	}
	return contract.NormalizeResourceID(dir + base)
}

// ToFilePath 将相对文件标识挂到根目录下；绝对路径原样返回。不套用前后缀。
func (r *Resolver) ToFilePath(id string) (string, error) {
	if filepath.IsAbs(id) {
		return filepath.Clean(id), nil
	}
	if strings.TrimSpace(r.Root) == "" {
		return "", fmt.Errorf("file path %q: empty root: %w", id, contract.ErrPathInvalid)
	}
	return filepath.Abs(filepath.Join(r.Root, id))
}

// FallbackResolver 优先使用主根目录，文件不存在时回退到备用根目录（如共享数据目录）。
type FallbackResolver struct {
	Resolver
	FallbackRoot string
}

// NewFallbackResolver 构造带回退的解析器。
func NewFallbackResolver(t Type, root, fallback string) *FallbackResolver {
	return &FallbackResolver{Resolver: Resolver{Type: t, Root: root}, FallbackRoot: fallback}
}

// ResolvePath 主路径存在则返回主路径；否则若回退路径存在则返回回退路径；都不存在时返回主路径。
func (r *FallbackResolver) ResolvePath(id string) (string, error) {
	primary, err := r.Resolver.ResolvePath(id)
	if err != nil {
		return "", err
	}
	if _, err := os.Stat(primary); err == nil || r.FallbackRoot == "" {
		return primary, nil
	}
	fb := Resolver{Type: r.Type, Root: r.FallbackRoot}
	alt, err := fb.ResolvePath(id)
	if err != nil {
		return primary, nil
	}
	if _, err := os.Stat(alt); err == nil {
		return alt, nil
	}
	return primary, nil
}

// PathResolver 为两类解析器的共同能力。
type PathResolver interface {
	ResolvePath(id string) (string, error)
}

var (
	_ PathResolver = (*Resolver)(nil)
	_ PathResolver = (*FallbackResolver)(nil)
)
